package engine

// StopReason classifies whether, and why, decoding should stop at the
// matcher's current position.
type StopReason int

const (
	// StopNotStopped means the sequence can still be extended.
	StopNotStopped StopReason = iota

	// StopEndOfSentence means the end-of-sequence token was consumed.
	StopEndOfSentence

	// StopNoExtension means the grammar is satisfied and no byte can
	// extend the sequence.
	StopNoExtension

	// StopNoExtensionBias means nothing can extend the sequence but the
	// grammar is not satisfied; no token can be biased toward.
	StopNoExtensionBias

	// StopMaxTokensTotal means the matcher's token budget was reached.
	StopMaxTokensTotal

	// StopInternalError means the matcher state is corrupted.
	StopInternalError
)

func (r StopReason) String() string {
	switch r {
	case StopNotStopped:
		return "NotStopped"
	case StopEndOfSentence:
		return "EndOfSentence"
	case StopNoExtension:
		return "NoExtension"
	case StopNoExtensionBias:
		return "NoExtensionBias"
	case StopMaxTokensTotal:
		return "MaxTokensTotal"
	case StopInternalError:
		return "InternalError"
	}
	return "Unknown"
}

// IsTerminal reports whether the reason means a valid complete parse was
// reached or decoding cannot usefully continue.
func (r StopReason) IsTerminal() bool {
	switch r {
	case StopEndOfSentence, StopNoExtension, StopNoExtensionBias, StopMaxTokensTotal:
		return true
	}
	return false
}
