package stencil

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stencil-ml/stencil/engine"
	"github.com/stencil-ml/stencil/envconfig"
	"github.com/stencil-ml/stencil/grammar"
	"github.com/stencil-ml/stencil/logutil"
	"github.com/stencil-ml/stencil/vocab"
)

// Session owns a compiled grammar factory and a live matcher. It must be
// driven by a single logical caller: mutating calls require exclusive
// access. The factory inside a session is the only shareable piece of its
// state.
type Session struct {
	id      string
	log     *slog.Logger
	factory *engine.Factory
	matcher *engine.Matcher
}

type options struct {
	voc        *vocab.Vocabulary
	maxTokens  int
	workers    int
	maxConfigs int
	logger     *slog.Logger
}

// Option configures a Session at construction time.
type Option func(*options)

// WithVocabulary binds the session to a host-supplied vocabulary instead
// of the byte-level placeholder.
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(o *options) { o.voc = v }
}

// WithMaxTokens bounds how many tokens the session will consume before
// reporting MaxTokensTotal. Zero means unbounded.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithWorkers sets the number of goroutines used per mask computation.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger routes the session's logging to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New normalizes the raw grammar document, binds a vocabulary, compiles
// the grammar, and returns a session positioned at the start of the
// output. Defaults come from the STENCIL_* environment.
func New(grammarRaw []byte, opts ...Option) (*Session, error) {
	o := options{
		maxTokens:  envconfig.MaxTokens,
		workers:    envconfig.MaskWorkers,
		maxConfigs: envconfig.MaxConfigs,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.voc == nil {
		o.voc = vocab.ByteLevel()
	}

	g, err := grammar.Normalize(grammarRaw)
	if err != nil {
		return nil, fmt.Errorf("normalize grammar: %w", err)
	}

	fopts := []engine.FactoryOption{
		engine.WithMaxTokens(o.maxTokens),
		engine.WithWorkers(o.workers),
	}
	if o.maxConfigs > 0 {
		fopts = append(fopts, engine.WithMaxConfigs(o.maxConfigs))
	}
	factory, err := engine.NewFactory(o.voc, fopts...)
	if err != nil {
		return nil, err
	}

	matcher, err := factory.NewMatcher(g)
	if err != nil {
		return nil, fmt.Errorf("compile grammar: %w", err)
	}

	s := &Session{
		id:      uuid.NewString(),
		factory: factory,
		matcher: matcher,
	}
	s.log = o.logger.With("session", s.id)
	s.log.Debug("session created", "vocab_size", o.voc.Size(), "rules", len(g.Rules))
	return s, nil
}

// ID returns the session's log-correlation id.
func (s *Session) ID() string { return s.id }

// VocabSize returns the vocabulary size, constant for the session's
// lifetime.
func (s *Session) VocabSize() int { return s.factory.Vocabulary().Size() }

// TokenMask computes the set of token ids that, if chosen next, keep the
// output grammar-conformant. The mask is recomputed on every call and is
// stale after the next Advance.
func (s *Session) TokenMask() (engine.Mask, error) {
	mask, err := s.matcher.ComputeMask()
	if err != nil {
		return nil, fmt.Errorf("compute mask: %w", err)
	}
	return mask, nil
}

// IsAllowed reports whether the single token id is admissible next. It is
// equivalent to testing membership in TokenMask but does not compute the
// full mask.
func (s *Session) IsAllowed(id int32) (bool, error) {
	ok, err := s.matcher.Allows(id)
	if err != nil {
		return false, fmt.Errorf("check token: %w", err)
	}
	return ok, nil
}

// Advance consumes the chosen token. An inadmissible token fails without
// changing session state.
func (s *Session) Advance(id int32) error {
	if err := s.matcher.Advance(id); err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	logutil.Trace(s.log, "token consumed", "token", id, "count", s.matcher.TokenCount())
	return nil
}

// StopReason reports why decoding should stop, or NotStopped. It never
// mutates state.
func (s *Session) StopReason() engine.StopReason {
	return s.matcher.StopReason()
}

// IsComplete reports whether the session reached a terminal stop reason.
func (s *Session) IsComplete() bool {
	return s.matcher.StopReason().IsTerminal()
}

// Reset discards all progress and re-arms the session over a new grammar
// document, reusing the existing factory and vocabulary.
func (s *Session) Reset(grammarRaw []byte) error {
	g, err := grammar.Normalize(grammarRaw)
	if err != nil {
		return fmt.Errorf("normalize grammar: %w", err)
	}
	matcher, err := s.factory.NewMatcher(g)
	if err != nil {
		return fmt.Errorf("compile grammar: %w", err)
	}
	s.matcher = matcher
	s.log.Debug("session reset", "rules", len(g.Rules))
	return nil
}
