// Package grammar defines the canonical grammar representation consumed by
// the engine, and normalizes the host-facing grammar description formats
// (JSON Schema, regular expressions, lark-style grammar text) into it.
package grammar

import (
	"encoding/json"
	"fmt"
)

// Grammar is the canonical form: a set of named rules over the expression
// IR, plus a designated start rule. It is the only input the engine
// compiles, regardless of which host-facing format produced it.
type Grammar struct {
	Start string
	Rules map[string]Node
}

// Node is a single expression in a rule body.
type Node interface {
	node()
}

// Literal matches an exact byte sequence. The empty literal matches the
// empty string.
type Literal string

// Range is an inclusive range of runes.
type Range struct {
	Lo, Hi rune
}

// Class matches any single rune covered by one of its ranges.
type Class []Range

// Concat matches its parts in order.
type Concat []Node

// Alt matches any one of its branches.
type Alt []Node

// Repeat matches Body between Min and Max times. Max < 0 means unbounded.
type Repeat struct {
	Body Node
	Min  int
	Max  int
}

// Ref matches the named rule.
type Ref string

func (Literal) node() {}
func (Class) node()   {}
func (Concat) node()  {}
func (Alt) node()     {}
func (Repeat) node()  {}
func (Ref) node()     {}

// Validate checks that the start rule exists and every Ref resolves to a
// defined rule.
func (g *Grammar) Validate() error {
	if g.Start == "" {
		return fmt.Errorf("grammar has no start rule")
	}
	if _, ok := g.Rules[g.Start]; !ok {
		return fmt.Errorf("start rule %q is not defined", g.Start)
	}
	for name, body := range g.Rules {
		if err := checkRefs(body, g.Rules); err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
	}
	return nil
}

func checkRefs(n Node, rules map[string]Node) error {
	switch e := n.(type) {
	case Ref:
		if _, ok := rules[string(e)]; !ok {
			return fmt.Errorf("undefined rule %q", string(e))
		}
	case Concat:
		for _, c := range e {
			if err := checkRefs(c, rules); err != nil {
				return err
			}
		}
	case Alt:
		for _, c := range e {
			if err := checkRefs(c, rules); err != nil {
				return err
			}
		}
	case Repeat:
		return checkRefs(e.Body, rules)
	}
	return nil
}

// Wire format for the native serialized grammar. Exactly one field is set
// per node.
type nodeWire struct {
	Lit    *string           `json:"lit,omitempty"`
	Class  [][2]rune         `json:"class,omitempty"`
	Concat []json.RawMessage `json:"concat,omitempty"`
	Alt    []json.RawMessage `json:"alt,omitempty"`
	Repeat *repeatWire       `json:"repeat,omitempty"`
	Ref    *string           `json:"ref,omitempty"`
}

type repeatWire struct {
	Of  json.RawMessage `json:"of"`
	Min int             `json:"min"`
	Max int             `json:"max"`
}

type grammarWire struct {
	Start string                     `json:"start"`
	Rules map[string]json.RawMessage `json:"rules"`
}

func (g *Grammar) MarshalJSON() ([]byte, error) {
	w := grammarWire{Start: g.Start, Rules: make(map[string]json.RawMessage, len(g.Rules))}
	for name, body := range g.Rules {
		raw, err := marshalNode(body)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		w.Rules[name] = raw
	}
	return json.Marshal(w)
}

func (g *Grammar) UnmarshalJSON(data []byte) error {
	var w grammarWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g.Start = w.Start
	g.Rules = make(map[string]Node, len(w.Rules))
	for name, raw := range w.Rules {
		n, err := unmarshalNode(raw)
		if err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
		g.Rules[name] = n
	}
	return nil
}

func marshalNode(n Node) (json.RawMessage, error) {
	var w nodeWire
	switch e := n.(type) {
	case Literal:
		s := string(e)
		w.Lit = &s
	case Class:
		if len(e) == 0 {
			return nil, fmt.Errorf("empty class")
		}
		for _, r := range e {
			w.Class = append(w.Class, [2]rune{r.Lo, r.Hi})
		}
	case Concat:
		if len(e) == 0 {
			// Epsilon; normalize to the empty literal so omitempty
			// cannot drop the field.
			return marshalNode(Literal(""))
		}
		for _, c := range e {
			raw, err := marshalNode(c)
			if err != nil {
				return nil, err
			}
			w.Concat = append(w.Concat, raw)
		}
	case Alt:
		if len(e) == 0 {
			return nil, fmt.Errorf("empty alternative")
		}
		for _, c := range e {
			raw, err := marshalNode(c)
			if err != nil {
				return nil, err
			}
			w.Alt = append(w.Alt, raw)
		}
	case Repeat:
		raw, err := marshalNode(e.Body)
		if err != nil {
			return nil, err
		}
		w.Repeat = &repeatWire{Of: raw, Min: e.Min, Max: e.Max}
	case Ref:
		s := string(e)
		w.Ref = &s
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
	return json.Marshal(w)
}

func unmarshalNode(data json.RawMessage) (Node, error) {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch {
	case w.Lit != nil:
		return Literal(*w.Lit), nil
	case len(w.Class) > 0:
		var c Class
		for _, r := range w.Class {
			if r[0] > r[1] {
				return nil, fmt.Errorf("class range [%d,%d] is inverted", r[0], r[1])
			}
			c = append(c, Range{Lo: r[0], Hi: r[1]})
		}
		return c, nil
	case len(w.Concat) > 0:
		var c Concat
		for _, raw := range w.Concat {
			n, err := unmarshalNode(raw)
			if err != nil {
				return nil, err
			}
			c = append(c, n)
		}
		return c, nil
	case len(w.Alt) > 0:
		var a Alt
		for _, raw := range w.Alt {
			n, err := unmarshalNode(raw)
			if err != nil {
				return nil, err
			}
			a = append(a, n)
		}
		return a, nil
	case w.Repeat != nil:
		body, err := unmarshalNode(w.Repeat.Of)
		if err != nil {
			return nil, err
		}
		if w.Repeat.Min < 0 || (w.Repeat.Max >= 0 && w.Repeat.Max < w.Repeat.Min) {
			return nil, fmt.Errorf("invalid repeat bounds {%d,%d}", w.Repeat.Min, w.Repeat.Max)
		}
		return Repeat{Body: body, Min: w.Repeat.Min, Max: w.Repeat.Max}, nil
	case w.Ref != nil:
		return Ref(*w.Ref), nil
	}
	return nil, fmt.Errorf("node sets none of lit, class, concat, alt, repeat, ref")
}
