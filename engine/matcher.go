package engine

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stencil-ml/stencil/vocab"
)

// stackNode is an immutable pushdown stack. Nodes are interned so that
// structurally equal stacks share one pointer, which makes config
// deduplication a pointer comparison.
type stackNode struct {
	sym  stackSym
	next *stackNode
}

type internKey struct {
	sym  stackSym
	next *stackNode
}

type interner map[internKey]*stackNode

func (in interner) push(s *stackNode, sym stackSym) *stackNode {
	k := internKey{sym: sym, next: s}
	if n, ok := in[k]; ok {
		return n
	}
	n := &stackNode{sym: sym, next: s}
	in[k] = n
	return n
}

// config is one nondeterministic alternative: an automaton state plus a
// pushdown stack. A nil stack is the empty stack.
type config struct {
	state stateID
	stack *stackNode
}

// configSet is an epsilon-closed, deduplicated set of configs.
type configSet struct {
	items []config
	seen  map[config]struct{}
}

func newConfigSet(capacity int) *configSet {
	return &configSet{seen: make(map[config]struct{}, capacity)}
}

func (cs *configSet) add(c config) bool {
	if _, ok := cs.seen[c]; ok {
		return false
	}
	cs.seen[c] = struct{}{}
	cs.items = append(cs.items, c)
	return true
}

// Matcher is a stateful incremental-parse cursor over a Program, bound to
// a vocabulary. A matcher serves one logical caller; it is not safe for
// concurrent use.
type Matcher struct {
	prog   *Program
	voc    *vocab.Vocabulary
	intern interner
	cfg    *configSet

	maxTokens  int
	maxConfigs int
	workers    int

	consumed int
	eosSeen  bool
}

func newMatcher(prog *Program, f *Factory) (*Matcher, error) {
	m := &Matcher{
		prog:       prog,
		voc:        f.voc,
		intern:     make(interner),
		maxTokens:  f.maxTokens,
		maxConfigs: f.maxConfigs,
		workers:    f.workers,
	}
	cfg, err := m.closure([]config{{state: prog.start}}, m.intern)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	m.cfg = cfg
	return m, nil
}

// closure expands a set of configs across epsilon transitions, applying
// pushes and matching pops, until a fixpoint.
func (m *Matcher) closure(in []config, intern interner) (*configSet, error) {
	cs := newConfigSet(len(in) * 2)
	queue := append([]config(nil), in...)
	for len(queue) > 0 {
		c := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if !cs.add(c) {
			continue
		}
		if len(cs.items) > m.maxConfigs {
			return nil, fmt.Errorf("parser state exceeds %d configurations", m.maxConfigs)
		}
		for _, t := range m.prog.trans[c.state] {
			if !t.eps {
				continue
			}
			switch {
			case t.push != 0:
				queue = append(queue, config{state: t.target, stack: intern.push(c.stack, t.push)})
			case t.pop != 0:
				if c.stack != nil && c.stack.sym == t.pop {
					queue = append(queue, config{state: t.target, stack: c.stack.next})
				}
			default:
				queue = append(queue, config{state: t.target, stack: c.stack})
			}
		}
	}
	return cs, nil
}

// step consumes one byte from a closed config set. It returns nil when the
// byte is inadmissible.
func (m *Matcher) step(cs *configSet, b byte, intern interner) (*configSet, error) {
	var out []config
	for _, c := range cs.items {
		for _, t := range m.prog.trans[c.state] {
			if t.eps || b < t.lo || b > t.hi {
				continue
			}
			out = append(out, config{state: t.target, stack: c.stack})
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return m.closure(out, intern)
}

func (m *Matcher) accepting(cs *configSet) bool {
	for _, c := range cs.items {
		if c.state == m.prog.accept && c.stack == nil {
			return true
		}
	}
	return false
}

// canExtend reports whether any byte can be consumed from cs. A consuming
// transition always succeeds on a byte in its range, so presence is enough.
func (m *Matcher) canExtend(cs *configSet) bool {
	for _, c := range cs.items {
		for _, t := range m.prog.trans[c.state] {
			if !t.eps {
				return true
			}
		}
	}
	return false
}

// StopReason reports the matcher's current assessment of whether decoding
// should stop. It never mutates state and may be called at any point.
func (m *Matcher) StopReason() StopReason {
	if m.eosSeen {
		return StopEndOfSentence
	}
	if m.maxTokens > 0 && m.consumed >= m.maxTokens {
		return StopMaxTokensTotal
	}
	if len(m.cfg.items) == 0 {
		return StopInternalError
	}
	ext := m.canExtend(m.cfg)
	switch {
	case m.accepting(m.cfg) && !ext:
		return StopNoExtension
	case !m.accepting(m.cfg) && !ext:
		return StopNoExtensionBias
	}
	return StopNotStopped
}

// TokenCount returns the number of tokens consumed so far, including EOS.
func (m *Matcher) TokenCount() int { return m.consumed }

// Advance consumes one token. Inadmissible tokens, including ids outside
// the vocabulary, fail without changing matcher state.
func (m *Matcher) Advance(id int32) error {
	if r := m.StopReason(); r.IsTerminal() || r == StopInternalError {
		return fmt.Errorf("matcher is stopped (%s)", r)
	}

	if id == m.voc.EOS() {
		if !m.accepting(m.cfg) {
			return fmt.Errorf("token %d (eos) is not admissible here", id)
		}
		m.eosSeen = true
		m.consumed++
		return nil
	}

	tok := m.voc.TokenBytes(id)
	if tok == nil {
		return fmt.Errorf("token %d is not admissible here", id)
	}

	cur := m.cfg
	for _, b := range tok {
		next, err := m.step(cur, b, m.intern)
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("token %d is not admissible here", id)
		}
		cur = next
	}
	m.cfg = cur
	m.consumed++
	return nil
}

// Allows reports whether the single token is admissible next, without
// computing a full mask. It is equivalent to testing the token's mask bit.
func (m *Matcher) Allows(id int32) (bool, error) {
	if r := m.StopReason(); r.IsTerminal() || r == StopInternalError {
		return false, fmt.Errorf("matcher is stopped (%s)", r)
	}

	if id == m.voc.EOS() {
		return m.accepting(m.cfg), nil
	}
	tok := m.voc.TokenBytes(id)
	if tok == nil {
		return false, nil
	}

	cur := m.cfg
	for _, b := range tok {
		next, err := m.step(cur, b, m.intern)
		if err != nil {
			return false, err
		}
		if next == nil {
			return false, nil
		}
		cur = next
	}
	return true, nil
}

// ComputeMask computes a fresh admissibility mask for the vocabulary. It
// does not mutate matcher state and may be called repeatedly; the result
// is only valid until the next Advance.
func (m *Matcher) ComputeMask() (Mask, error) {
	if r := m.StopReason(); r.IsTerminal() || r == StopInternalError {
		return nil, fmt.Errorf("cannot compute mask: matcher is stopped (%s)", r)
	}

	mask := make(Mask, m.voc.Size())
	if m.accepting(m.cfg) {
		mask[m.voc.EOS()] = 1
	}

	root := m.voc.Trie()
	if m.workers <= 1 {
		if err := m.walkTrie(root, m.cfg, mask, m.intern); err != nil {
			return nil, err
		}
		return mask, nil
	}

	// Subtrees of distinct root edges cover disjoint token ids, so the
	// workers write disjoint mask entries.
	var g errgroup.Group
	g.SetLimit(m.workers)
	root.Each(func(b byte, child *vocab.TrieNode) bool {
		g.Go(func() error {
			intern := make(interner)
			next, err := m.step(m.cfg, b, intern)
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}
			for _, id := range child.Tokens() {
				mask[id] = 1
			}
			return m.walkTrie(child, next, mask, intern)
		})
		return true
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mask, nil
}

// walkTrie marks every token reachable from node whose remaining bytes the
// matcher can consume, sharing per-prefix parse work across tokens.
func (m *Matcher) walkTrie(node *vocab.TrieNode, cs *configSet, mask Mask, intern interner) error {
	var walkErr error
	node.Each(func(b byte, child *vocab.TrieNode) bool {
		next, err := m.step(cs, b, intern)
		if err != nil {
			walkErr = err
			return false
		}
		if next == nil {
			return true
		}
		for _, id := range child.Tokens() {
			mask[id] = 1
		}
		walkErr = m.walkTrie(child, next, mask, intern)
		return walkErr == nil
	})
	return walkErr
}
