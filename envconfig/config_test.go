package envconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("STENCIL_DEBUG", "1")
	t.Setenv("STENCIL_MASK_WORKERS", "4")
	t.Setenv("STENCIL_MAX_TOKENS", "128")
	t.Setenv("STENCIL_MAX_CONFIGS", "4096")
	LoadConfig()

	assert.True(t, Debug)
	assert.Equal(t, 4, MaskWorkers)
	assert.Equal(t, 128, MaxTokens)
	assert.Equal(t, 4096, MaxConfigs)
}

func TestLoadConfigQuoted(t *testing.T) {
	t.Setenv("STENCIL_MASK_WORKERS", `"2"`)
	LoadConfig()
	assert.Equal(t, 2, MaskWorkers)
}

func TestLoadConfigInvalidIgnored(t *testing.T) {
	t.Setenv("STENCIL_MASK_WORKERS", "3")
	t.Setenv("STENCIL_MAX_TOKENS", "7")
	LoadConfig()
	assert.Equal(t, 3, MaskWorkers)
	assert.Equal(t, 7, MaxTokens)

	t.Setenv("STENCIL_MASK_WORKERS", "banana")
	t.Setenv("STENCIL_MAX_TOKENS", "-5")
	LoadConfig()
	assert.Equal(t, 3, MaskWorkers, "invalid value should leave the previous one")
	assert.Equal(t, 7, MaxTokens, "negative value should leave the previous one")
}

func TestAsMap(t *testing.T) {
	m := AsMap()
	for _, key := range []string{"STENCIL_DEBUG", "STENCIL_MASK_WORKERS", "STENCIL_MAX_TOKENS", "STENCIL_MAX_CONFIGS"} {
		v, ok := m[key]
		assert.True(t, ok, key)
		assert.Equal(t, key, v.Name)
		assert.NotEmpty(t, v.Description)
	}
	assert.Len(t, Values(), len(m))
}
