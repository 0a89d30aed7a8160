package grammar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode"

	"github.com/stencil-ml/stencil/grammar/jsonschema"
)

// FromSchema builds a canonical grammar from a JSON Schema document. The
// grammar matches the canonical serialization of conforming values: no
// whitespace between structural tokens, properties in declaration order.
func FromSchema(raw []byte) (*Grammar, error) {
	var s *jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	s.Name = "root"

	root, err := schemaNode(s)
	if err != nil {
		return nil, err
	}

	rules := jsonBaseRules()
	rules["root"] = root
	g := &Grammar{Start: "root", Rules: rules}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// jsonBaseRules returns the grammar for JSON values from RFC 7159, less
// inter-token whitespace.
func jsonBaseRules() map[string]Node {
	digit := Class{{Lo: '0', Hi: '9'}}
	return map[string]Node{
		"value":   Alt{Ref("object"), Ref("array"), Ref("string"), Ref("number"), Ref("boolean"), Literal("null")},
		"object":  Concat{Literal("{"), opt(Concat{Ref("kv"), star(Concat{Literal(","), Ref("kv")})}), Literal("}")},
		"kv":      Concat{Ref("string"), Literal(":"), Ref("value")},
		"array":   Concat{Literal("["), opt(Concat{Ref("value"), star(Concat{Literal(","), Ref("value")})}), Literal("]")},
		"string":  Concat{Literal(`"`), star(Ref("char")), Literal(`"`)},
		"char":    Alt{Class{{Lo: 0x20, Hi: 0x21}, {Lo: 0x23, Hi: 0x5b}, {Lo: 0x5d, Hi: unicode.MaxRune}}, Ref("escape")},
		"escape":  Concat{Literal(`\`), Alt{Class{{Lo: '"', Hi: '"'}, {Lo: '/', Hi: '/'}, {Lo: '\\', Hi: '\\'}, {Lo: 'b', Hi: 'b'}, {Lo: 'f', Hi: 'f'}, {Lo: 'n', Hi: 'n'}, {Lo: 'r', Hi: 'r'}, {Lo: 't', Hi: 't'}}, Concat{Literal("u"), Ref("hex"), Ref("hex"), Ref("hex"), Ref("hex")}}},
		"hex":     Class{{Lo: '0', Hi: '9'}, {Lo: 'a', Hi: 'f'}, {Lo: 'A', Hi: 'F'}},
		"integer": Alt{Literal("0"), Concat{Class{{Lo: '1', Hi: '9'}}, star(digit)}},
		"number":  Concat{opt(Literal("-")), Ref("integer"), opt(Ref("frac")), opt(Ref("exp"))},
		"frac":    Concat{Literal("."), plus(digit)},
		"exp":     Concat{Class{{Lo: 'E', Hi: 'E'}, {Lo: 'e', Hi: 'e'}}, opt(Class{{Lo: '+', Hi: '+'}, {Lo: '-', Hi: '-'}}), plus(digit)},
		"boolean": Alt{Literal("true"), Literal("false")},
	}
}

func opt(n Node) Node  { return Repeat{Body: n, Min: 0, Max: 1} }
func star(n Node) Node { return Repeat{Body: n, Min: 0, Max: -1} }
func plus(n Node) Node { return Repeat{Body: n, Min: 1, Max: -1} }

func schemaNode(s *jsonschema.Schema) (Node, error) {
	if s.Const != nil {
		lit, err := compactLiteral(s.Const)
		if err != nil {
			return nil, fmt.Errorf("%s: const: %w", s.Name, err)
		}
		return lit, nil
	}
	if len(s.Enum) > 0 {
		branches := make(Alt, 0, len(s.Enum))
		for _, e := range s.Enum {
			lit, err := compactLiteral(e)
			if err != nil {
				return nil, fmt.Errorf("%s: enum: %w", s.Name, err)
			}
			branches = append(branches, lit)
		}
		return branches, nil
	}

	switch typ := s.EffectiveType(); typ {
	case "boolean":
		return Ref("boolean"), nil
	case "null":
		return Literal("null"), nil
	case "integer":
		return Concat{opt(Literal("-")), Ref("integer")}, nil
	case "number":
		return Ref("number"), nil
	case "string":
		if s.Pattern == "" {
			return Ref("string"), nil
		}
		// The pattern constrains the decoded string value; characters
		// that would need JSON escaping are not admitted through it.
		body, err := regexNode(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: pattern: %w", s.Name, err)
		}
		return Concat{Literal(`"`), body, Literal(`"`)}, nil
	case "object":
		return objectNode(s)
	case "array":
		return arrayNode(s)
	case "value":
		return Ref("value"), nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %q", s.Name, typ)
	}
}

func objectNode(s *jsonschema.Schema) (Node, error) {
	if len(s.Properties) == 0 {
		return Ref("object"), nil
	}
	parts := Concat{Literal("{")}
	for i, p := range s.Properties {
		if i > 0 {
			parts = append(parts, Literal(","))
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Literal(string(name)+":"))
		child, err := schemaNode(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, child)
	}
	return append(parts, Literal("}")), nil
}

func arrayNode(s *jsonschema.Schema) (Node, error) {
	bounded := s.MinItems > 0 || s.MaxItems > 0
	if len(s.PrefixItems) == 0 && s.Items == nil && !bounded {
		return Ref("array"), nil
	}
	if s.MaxItems > 0 && s.MaxItems < len(s.PrefixItems) {
		return nil, fmt.Errorf("%s: maxItems %d is smaller than the %d-item tuple prefix", s.Name, s.MaxItems, len(s.PrefixItems))
	}

	var item Node
	switch {
	case s.Items != nil:
		n, err := schemaNode(s.Items)
		if err != nil {
			return nil, err
		}
		item = n
	case len(s.PrefixItems) == 0:
		// Bounds without an item schema still constrain the length; the
		// items themselves are unconstrained values.
		item = Ref("value")
	default:
		// Closed tuple: its length is fixed, so a minimum beyond it can
		// never be met.
		if s.MinItems > len(s.PrefixItems) {
			return nil, fmt.Errorf("%s: minItems %d exceeds the closed %d-item tuple", s.Name, s.MinItems, len(s.PrefixItems))
		}
	}

	parts := Concat{Literal("[")}
	for i, p := range s.PrefixItems {
		if i > 0 {
			parts = append(parts, Literal(","))
		}
		child, err := schemaNode(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, child)
	}

	if item != nil {
		// minItems/maxItems count the whole array, including the tuple
		// prefix.
		min := s.MinItems - len(s.PrefixItems)
		if min < 0 {
			min = 0
		}
		max := -1
		if s.MaxItems > 0 {
			max = s.MaxItems - len(s.PrefixItems)
		}

		switch {
		case max == 0:
			// Tuple prefix fills the array.
		case len(s.PrefixItems) > 0:
			rest := Concat{Literal(","), item}
			parts = append(parts, Repeat{Body: rest, Min: min, Max: max})
		default:
			restMax := max
			if restMax > 0 {
				restMax--
			}
			inner := Concat{item, Repeat{Body: Concat{Literal(","), item}, Min: maxInt(min-1, 0), Max: restMax}}
			if min == 0 {
				parts = append(parts, opt(inner))
			} else {
				parts = append(parts, inner)
			}
		}
	}

	return append(parts, Literal("]")), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// compactLiteral renders a raw JSON value as a literal with whitespace
// normalized away.
func compactLiteral(raw json.RawMessage) (Node, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return Literal(buf.String()), nil
}
