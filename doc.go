// Package stencil constrains a token-generation loop to a user-supplied
// grammar. A Session wraps a compiled grammar and a live matcher: at every
// decoding step the host asks for the set of vocabulary tokens that keep
// the output grammar-conformant, picks one, and advances the session until
// it reports a terminal stop reason.
//
// Grammars are given as a JSON description carrying a JSON Schema, a
// regular expression, or lark-style grammar text:
//
//	s, err := stencil.New([]byte(`{"grammars":[{"json_schema":{"type":"boolean"}}]}`))
//	if err != nil {
//		...
//	}
//	for !s.IsComplete() {
//		mask, err := s.TokenMask()
//		...
//		s.Advance(pick(mask))
//	}
//
// Sessions default to a byte-level placeholder vocabulary; bind a real
// tokenizer's token table with WithVocabulary.
package stencil
