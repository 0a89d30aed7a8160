// Package envconfig reads the STENCIL_* environment variables that tune
// session defaults.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via STENCIL_DEBUG in the environment
	Debug bool
	// Set via STENCIL_MASK_WORKERS in the environment
	MaskWorkers int
	// Set via STENCIL_MAX_TOKENS in the environment
	MaxTokens int
	// Set via STENCIL_MAX_CONFIGS in the environment
	MaxConfigs int
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"STENCIL_DEBUG":        {"STENCIL_DEBUG", Debug, "Show additional debug information (e.g. STENCIL_DEBUG=1)"},
		"STENCIL_MASK_WORKERS": {"STENCIL_MASK_WORKERS", MaskWorkers, "Number of goroutines used to compute token masks (default 1)"},
		"STENCIL_MAX_TOKENS":   {"STENCIL_MAX_TOKENS", MaxTokens, "Default per-session token budget (default unlimited)"},
		"STENCIL_MAX_CONFIGS":  {"STENCIL_MAX_CONFIGS", MaxConfigs, "Bound on nondeterministic parser state (default 16384)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	// default values
	MaskWorkers = 1

	LoadConfig()
}

func LoadConfig() {
	if debug := clean("STENCIL_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	for _, v := range []struct {
		key string
		dst *int
	}{
		{"STENCIL_MASK_WORKERS", &MaskWorkers},
		{"STENCIL_MAX_TOKENS", &MaxTokens},
		{"STENCIL_MAX_CONFIGS", &MaxConfigs},
	} {
		if raw := clean(v.key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				slog.Error("invalid setting, ignoring", v.key, raw)
				continue
			}
			*v.dst = n
		}
	}
}
