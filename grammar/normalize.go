package grammar

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Description is the host-facing grammar document: an ordered list of
// grammar variants. Only the first variant is honored.
type Description struct {
	Grammars []Variant `json:"grammars"`
}

// Variant is one grammar in a Description. Exactly one field is set.
type Variant struct {
	// JSONSchema constrains output to values conforming to the schema.
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`

	// Regex constrains output to full matches of the pattern.
	Regex *string `json:"rx,omitempty"`

	// Lark is grammar text in the lark-style notation.
	Lark *string `json:"lark,omitempty"`
}

// Normalize converts a raw grammar document into the canonical form. Two
// input shapes are accepted: a Description carrying at least one variant,
// or, failing that, the native serialized canonical grammar. Normalize has
// no side effects beyond logging.
func Normalize(raw []byte) (*Grammar, error) {
	var desc Description
	if err := json.Unmarshal(raw, &desc); err == nil && len(desc.Grammars) > 0 {
		if len(desc.Grammars) > 1 {
			// Composition of multiple grammars is not supported;
			// first wins.
			slog.Warn("grammar description has multiple variants, using the first", "supplied", len(desc.Grammars))
		}
		return desc.Grammars[0].grammar()
	}

	var g Grammar
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("parse grammar document: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("parse grammar document: %w", err)
	}
	return &g, nil
}

func (v Variant) grammar() (*Grammar, error) {
	set := 0
	if v.JSONSchema != nil {
		set++
	}
	if v.Regex != nil {
		set++
	}
	if v.Lark != nil {
		set++
	}
	if set > 1 {
		return nil, errors.New("grammar variant sets more than one of json_schema, rx, lark")
	}

	switch {
	case v.JSONSchema != nil:
		return FromSchema(v.JSONSchema)
	case v.Regex != nil:
		return FromRegex(*v.Regex)
	case v.Lark != nil:
		return ParseLark(*v.Lark)
	default:
		return nil, errors.New("grammar variant sets none of json_schema, rx, lark")
	}
}
