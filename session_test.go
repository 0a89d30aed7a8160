package stencil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencil-ml/stencil/engine"
	"github.com/stencil-ml/stencil/grammar"
	"github.com/stencil-ml/stencil/vocab"
)

const booleanDesc = `{"grammars":[{"json_schema":{"type":"boolean"}}]}`

func TestSessionBoolean(t *testing.T) {
	s, err := New([]byte(booleanDesc))
	require.NoError(t, err)
	require.NotEmpty(t, s.ID())
	require.Equal(t, 257, s.VocabSize())

	mask, err := s.TokenMask()
	require.NoError(t, err)
	require.Len(t, []byte(mask), s.VocabSize())
	for id := int32(0); id < int32(s.VocabSize()); id++ {
		want := id == 't' || id == 'f'
		assert.Equal(t, want, mask.IsAllowed(id), "token %d", id)
	}

	for _, b := range []byte("true") {
		require.False(t, s.IsComplete())
		require.NoError(t, s.Advance(int32(b)))
	}
	require.True(t, s.IsComplete())
	require.Equal(t, engine.StopNoExtension, s.StopReason())

	_, err = s.TokenMask()
	require.Error(t, err)
}

func TestIsAllowedMatchesMask(t *testing.T) {
	s, err := New([]byte(booleanDesc))
	require.NoError(t, err)

	mask, err := s.TokenMask()
	require.NoError(t, err)
	for id := int32(-1); id <= int32(s.VocabSize()); id++ {
		got, err := s.IsAllowed(id)
		require.NoError(t, err)
		assert.Equal(t, mask.IsAllowed(id), got, "token %d", id)
	}
}

func TestMaskIdempotent(t *testing.T) {
	s, err := New([]byte(`{"grammars":[{"rx":"[a-m]+"}]}`))
	require.NoError(t, err)

	first, err := s.TokenMask()
	require.NoError(t, err)
	second, err := s.TokenMask()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAdvanceDisallowedKeepsState(t *testing.T) {
	s, err := New([]byte(`{"grammars":[{"rx":"ab"}]}`))
	require.NoError(t, err)

	before := s.StopReason()
	require.Error(t, s.Advance('x'))
	require.Equal(t, before, s.StopReason())

	require.NoError(t, s.Advance('a'))
	require.NoError(t, s.Advance('b'))
	require.True(t, s.IsComplete())
}

func TestRegexLarkEquivalence(t *testing.T) {
	rx, err := New([]byte(`{"grammars":[{"rx":"ab+c"}]}`))
	require.NoError(t, err)
	lark, err := New([]byte(`{"grammars":[{"lark":"start: /ab+c/"}]}`))
	require.NoError(t, err)

	for _, b := range []byte("abbbc") {
		rxMask, err := rx.TokenMask()
		require.NoError(t, err)
		larkMask, err := lark.TokenMask()
		require.NoError(t, err)
		require.Equal(t, rxMask, larkMask, "masks diverge before byte %q", b)

		require.True(t, rxMask.IsAllowed(int32(b)))
		require.NoError(t, rx.Advance(int32(b)))
		require.NoError(t, lark.Advance(int32(b)))
	}

	require.True(t, rx.IsComplete())
	require.True(t, lark.IsComplete())
	require.Equal(t, rx.StopReason(), lark.StopReason())
}

func TestNativeGrammarDocument(t *testing.T) {
	g, err := grammar.ParseLark(`start: "hi" | "ho"`)
	require.NoError(t, err)
	native, err := json.Marshal(g)
	require.NoError(t, err)

	fromNative, err := New(native)
	require.NoError(t, err)
	fromDesc, err := New([]byte(`{"grammars":[{"lark":"start: \"hi\" | \"ho\""}]}`))
	require.NoError(t, err)

	nm, err := fromNative.TokenMask()
	require.NoError(t, err)
	dm, err := fromDesc.TokenMask()
	require.NoError(t, err)
	assert.Equal(t, dm, nm)
}

func TestFirstVariantWins(t *testing.T) {
	s, err := New([]byte(`{"grammars":[{"rx":"a"},{"rx":"b"}]}`))
	require.NoError(t, err)

	mask, err := s.TokenMask()
	require.NoError(t, err)
	assert.True(t, mask.IsAllowed('a'))
	assert.False(t, mask.IsAllowed('b'))
}

func TestNewErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty grammars", `{"grammars":[]}`},
		{"not json", `nope`},
		{"conflicting variant", `{"grammars":[{"rx":"a","lark":"start: \"a\""}]}`},
		{"bad regex", `{"grammars":[{"rx":"["}]}`},
		{"bad schema", `{"grammars":[{"json_schema":{"type":"quaternion"}}]}`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]byte(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestResetMatchesFreshSession(t *testing.T) {
	s, err := New([]byte(`{"grammars":[{"rx":"ab+c"}]}`))
	require.NoError(t, err)
	require.NoError(t, s.Advance('a'))

	const next = `{"grammars":[{"lark":"start: \"yes\" | \"no\""}]}`
	require.NoError(t, s.Reset([]byte(next)))

	fresh, err := New([]byte(next))
	require.NoError(t, err)

	for _, b := range []byte("yes") {
		resetMask, err := s.TokenMask()
		require.NoError(t, err)
		freshMask, err := fresh.TokenMask()
		require.NoError(t, err)
		require.Equal(t, freshMask, resetMask)

		require.NoError(t, s.Advance(int32(b)))
		require.NoError(t, fresh.Advance(int32(b)))
	}
	require.Equal(t, fresh.StopReason(), s.StopReason())
	require.True(t, s.IsComplete())
}

func TestResetBadGrammarKeepsSession(t *testing.T) {
	s, err := New([]byte(`{"grammars":[{"rx":"ab"}]}`))
	require.NoError(t, err)
	require.NoError(t, s.Advance('a'))

	require.Error(t, s.Reset([]byte(`{"grammars":[{"rx":"["}]}`)))

	// The failed reset leaves the previous parse intact.
	require.NoError(t, s.Advance('b'))
	require.True(t, s.IsComplete())
}

func TestSessionMaxTokens(t *testing.T) {
	s, err := New([]byte(`{"grammars":[{"rx":"a+"}]}`), WithMaxTokens(1))
	require.NoError(t, err)

	require.NoError(t, s.Advance('a'))
	require.True(t, s.IsComplete())
	require.Equal(t, engine.StopMaxTokensTotal, s.StopReason())
	require.Error(t, s.Advance('a'))
}

func TestSessionEndOfSentence(t *testing.T) {
	s, err := New([]byte(`{"grammars":[{"rx":"a+"}]}`))
	require.NoError(t, err)

	require.NoError(t, s.Advance('a'))
	ok, err := s.IsAllowed(256)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Advance(256))
	require.Equal(t, engine.StopEndOfSentence, s.StopReason())
	require.True(t, s.IsComplete())
}

func TestSessionHostVocabulary(t *testing.T) {
	voc, err := vocab.New([][]byte{
		[]byte("yes"), []byte("no"), []byte("y"), []byte("es"), nil,
	}, 4)
	require.NoError(t, err)

	s, err := New([]byte(`{"grammars":[{"lark":"start: \"yes\" | \"no\""}]}`), WithVocabulary(voc), WithWorkers(4))
	require.NoError(t, err)
	require.Equal(t, 5, s.VocabSize())

	mask, err := s.TokenMask()
	require.NoError(t, err)
	assert.True(t, mask.IsAllowed(0))  // yes
	assert.True(t, mask.IsAllowed(1))  // no
	assert.True(t, mask.IsAllowed(2))  // y
	assert.False(t, mask.IsAllowed(3)) // es
	assert.False(t, mask.IsAllowed(4)) // eos

	require.NoError(t, s.Advance(2)) // y
	mask, err = s.TokenMask()
	require.NoError(t, err)
	assert.True(t, mask.IsAllowed(3)) // es
	assert.False(t, mask.IsAllowed(0))
	assert.False(t, mask.IsAllowed(1))

	require.NoError(t, s.Advance(3))
	require.True(t, s.IsComplete())
	require.Equal(t, engine.StopNoExtension, s.StopReason())
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()
}
