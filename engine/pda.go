// Package engine compiles canonical grammars into byte-level pushdown
// automata and evaluates them incrementally against a token vocabulary:
// computing admissible-token masks, consuming chosen tokens, and reporting
// why decoding should stop.
package engine

import (
	"fmt"
	"sort"

	"github.com/stencil-ml/stencil/grammar"
)

type stateID int32

// stackSym identifies a call site. Zero means "no symbol".
type stackSym int32

// transition either consumes one byte in [lo, hi] (eps false) or moves
// silently (eps true), optionally pushing a call-site symbol or popping
// one that must match the stack top.
type transition struct {
	eps    bool
	lo, hi byte
	push   stackSym
	pop    stackSym
	target stateID
}

// Program is a compiled grammar: a pushdown automaton whose consuming
// transitions each read exactly one byte. It is immutable after Compile
// and safe for concurrent use by any number of matchers.
type Program struct {
	start  stateID
	accept stateID
	trans  [][]transition
}

func (p *Program) addState() stateID {
	p.trans = append(p.trans, nil)
	return stateID(len(p.trans) - 1)
}

func (p *Program) add(from stateID, t transition) {
	p.trans[from] = append(p.trans[from], t)
}

// Compile lowers a canonical grammar to a Program. Rule references become
// call/return transition pairs with a distinct stack symbol per call site,
// so returns are unambiguous.
func Compile(g *grammar.Grammar) (*Program, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grammar: %w", err)
	}

	c := &compiler{
		prog:  &Program{},
		entry: make(map[string]stateID, len(g.Rules)),
		exit:  make(map[string]stateID, len(g.Rules)),
	}

	// Deterministic state numbering.
	names := make([]string, 0, len(g.Rules))
	for name := range g.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c.entry[name] = c.prog.addState()
		c.exit[name] = c.prog.addState()
	}
	for _, name := range names {
		if err := c.compileNode(g.Rules[name], c.entry[name], c.exit[name]); err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", name, err)
		}
	}

	c.prog.start = c.entry[g.Start]
	c.prog.accept = c.exit[g.Start]
	return c.prog, nil
}

type compiler struct {
	prog    *Program
	entry   map[string]stateID
	exit    map[string]stateID
	nextSym stackSym
}

func (c *compiler) newSym() stackSym {
	c.nextSym++
	return c.nextSym
}

func (c *compiler) compileNode(n grammar.Node, entry, exit stateID) error {
	switch e := n.(type) {
	case grammar.Literal:
		c.compileBytes([]byte(e), entry, exit)
	case grammar.Class:
		if len(e) == 0 {
			return fmt.Errorf("empty class")
		}
		for _, r := range e {
			for _, seq := range utf8Sequences(r.Lo, r.Hi) {
				c.compileSeq(seq, entry, exit)
			}
		}
	case grammar.Concat:
		cur := entry
		for i, part := range e {
			next := exit
			if i < len(e)-1 {
				next = c.prog.addState()
			}
			if err := c.compileNode(part, cur, next); err != nil {
				return err
			}
			cur = next
		}
		if len(e) == 0 {
			c.prog.add(entry, transition{eps: true, target: exit})
		}
	case grammar.Alt:
		if len(e) == 0 {
			return fmt.Errorf("empty alternative")
		}
		for _, branch := range e {
			if err := c.compileNode(branch, entry, exit); err != nil {
				return err
			}
		}
	case grammar.Repeat:
		return c.compileRepeat(e, entry, exit)
	case grammar.Ref:
		// Call: push the site symbol and enter the rule; return: pop it
		// at the rule's exit.
		sym := c.newSym()
		c.prog.add(entry, transition{eps: true, push: sym, target: c.entry[string(e)]})
		c.prog.add(c.exit[string(e)], transition{eps: true, pop: sym, target: exit})
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
	return nil
}

func (c *compiler) compileRepeat(r grammar.Repeat, entry, exit stateID) error {
	if r.Min < 0 || (r.Max >= 0 && r.Max < r.Min) {
		return fmt.Errorf("invalid repeat bounds {%d,%d}", r.Min, r.Max)
	}

	cur := entry
	for i := 0; i < r.Min; i++ {
		next := exit
		if !(i == r.Min-1 && r.Max == r.Min) {
			next = c.prog.addState()
		}
		if err := c.compileNode(r.Body, cur, next); err != nil {
			return err
		}
		cur = next
	}

	switch {
	case r.Max == r.Min:
		if r.Min == 0 {
			c.prog.add(entry, transition{eps: true, target: exit})
		}
	case r.Max < 0:
		c.prog.add(cur, transition{eps: true, target: exit})
		return c.compileNode(r.Body, cur, cur)
	default:
		for i := r.Min; i < r.Max; i++ {
			c.prog.add(cur, transition{eps: true, target: exit})
			next := exit
			if i < r.Max-1 {
				next = c.prog.addState()
			}
			if err := c.compileNode(r.Body, cur, next); err != nil {
				return err
			}
			cur = next
		}
	}
	return nil
}

// compileBytes chains exact single-byte transitions for a literal. The
// empty literal is an epsilon edge.
func (c *compiler) compileBytes(b []byte, entry, exit stateID) {
	if len(b) == 0 {
		c.prog.add(entry, transition{eps: true, target: exit})
		return
	}
	seq := make([]byteRange, len(b))
	for i, by := range b {
		seq[i] = byteRange{by, by}
	}
	c.compileSeq(seq, entry, exit)
}

func (c *compiler) compileSeq(seq []byteRange, entry, exit stateID) {
	cur := entry
	for i, r := range seq {
		next := exit
		if i < len(seq)-1 {
			next = c.prog.addState()
		}
		c.prog.add(cur, transition{lo: r.lo, hi: r.hi, target: next})
		cur = next
	}
}
