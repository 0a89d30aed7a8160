package engine

import (
	"fmt"

	"github.com/stencil-ml/stencil/grammar"
	"github.com/stencil-ml/stencil/vocab"
)

const (
	// defaultMaxConfigs bounds the nondeterministic parser state so a
	// pathological grammar fails with an error instead of growing
	// without limit.
	defaultMaxConfigs = 1 << 14
)

// Factory binds engine settings to a fixed vocabulary. It is immutable
// and may be shared by any number of sessions; matchers derived from it
// are independent.
type Factory struct {
	voc        *vocab.Vocabulary
	maxTokens  int
	maxConfigs int
	workers    int
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithMaxTokens bounds the number of tokens a matcher will consume.
// Zero means unbounded.
func WithMaxTokens(n int) FactoryOption {
	return func(f *Factory) { f.maxTokens = n }
}

// WithWorkers sets the number of goroutines used to compute masks.
func WithWorkers(n int) FactoryOption {
	return func(f *Factory) { f.workers = n }
}

// WithMaxConfigs bounds the size of the nondeterministic parser state.
func WithMaxConfigs(n int) FactoryOption {
	return func(f *Factory) { f.maxConfigs = n }
}

// NewFactory creates a factory over the given vocabulary.
func NewFactory(v *vocab.Vocabulary, opts ...FactoryOption) (*Factory, error) {
	if v == nil {
		return nil, fmt.Errorf("nil vocabulary")
	}
	f := &Factory{
		voc:        v,
		maxConfigs: defaultMaxConfigs,
		workers:    1,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.workers < 1 {
		f.workers = 1
	}
	if f.maxConfigs < 1 {
		f.maxConfigs = defaultMaxConfigs
	}
	if f.maxTokens < 0 {
		f.maxTokens = 0
	}
	return f, nil
}

// Vocabulary returns the factory's vocabulary.
func (f *Factory) Vocabulary() *vocab.Vocabulary { return f.voc }

// NewMatcher compiles the grammar and derives a live matcher positioned at
// the start of the input.
func (f *Factory) NewMatcher(g *grammar.Grammar) (*Matcher, error) {
	prog, err := Compile(g)
	if err != nil {
		return nil, err
	}
	return newMatcher(prog, f)
}
