// Package vocab binds a decoding session to a fixed token vocabulary: a
// table mapping token ids to the bytes they produce, plus the trie the
// engine walks when computing token masks.
package vocab

import (
	"fmt"
)

// Vocabulary is an immutable token-to-bytes table. It is safe for
// concurrent use once constructed.
type Vocabulary struct {
	tokens [][]byte
	eos    int32
	root   *TrieNode
}

// New builds a vocabulary from a host-supplied token table. eos names the
// end-of-sequence token id; its byte content, if any, is ignored. Every
// other token must be non-empty.
func New(tokens [][]byte, eos int32) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty token table")
	}
	if eos < 0 || int(eos) >= len(tokens) {
		return nil, fmt.Errorf("eos token %d out of range [0,%d)", eos, len(tokens))
	}

	v := &Vocabulary{
		tokens: tokens,
		eos:    eos,
		root:   &TrieNode{},
	}
	for id, tok := range tokens {
		if int32(id) == eos {
			continue
		}
		if len(tok) == 0 {
			return nil, fmt.Errorf("token %d is empty", id)
		}
		v.root.insert(tok, int32(id))
	}
	return v, nil
}

// ByteLevel returns the placeholder vocabulary used when no tokenizer is
// bound: one token per byte value, plus an end-of-sequence token. Token id
// b produces the single byte b for b < 256; id 256 is EOS.
func ByteLevel() *Vocabulary {
	tokens := make([][]byte, 257)
	for b := 0; b < 256; b++ {
		tokens[b] = []byte{byte(b)}
	}
	tokens[256] = nil
	v, err := New(tokens, 256)
	if err != nil {
		// Construction of the fixed table cannot fail.
		panic(err)
	}
	return v
}

// Size returns the number of tokens, including EOS.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// EOS returns the end-of-sequence token id.
func (v *Vocabulary) EOS() int32 { return v.eos }

// TokenBytes returns the bytes produced by the token, or nil for EOS and
// out-of-range ids.
func (v *Vocabulary) TokenBytes(id int32) []byte {
	if id < 0 || int(id) >= len(v.tokens) || id == v.eos {
		return nil
	}
	return v.tokens[id]
}

// Trie returns the root of the token trie. The trie holds every non-EOS
// token keyed by its bytes.
func (v *Vocabulary) Trie() *TrieNode { return v.root }

// TrieNode is a node in the byte trie over token contents.
type TrieNode struct {
	children map[byte]*TrieNode
	tokens   []int32
}

func (n *TrieNode) insert(tok []byte, id int32) {
	for _, b := range tok {
		if n.children == nil {
			n.children = make(map[byte]*TrieNode)
		}
		child := n.children[b]
		if child == nil {
			child = &TrieNode{}
			n.children[b] = child
		}
		n = child
	}
	n.tokens = append(n.tokens, id)
}

// Child returns the child reached by b, or nil.
func (n *TrieNode) Child(b byte) *TrieNode {
	return n.children[b]
}

// Tokens returns the ids of tokens whose bytes end at this node.
func (n *TrieNode) Tokens() []int32 { return n.tokens }

// Each calls fn for every child edge until fn returns false.
func (n *TrieNode) Each(fn func(b byte, child *TrieNode) bool) {
	for b, child := range n.children {
		if !fn(b, child) {
			return
		}
	}
}
