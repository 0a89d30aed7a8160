package stencil

import (
	"log/slog"
	"os"
	"sync"

	"github.com/stencil-ml/stencil/envconfig"
	"github.com/stencil-ml/stencil/logutil"
)

var initOnce sync.Once

// Init performs one-time process initialization: it reloads the STENCIL_*
// environment and installs the default logger at the configured level.
// Hosts call it from their startup path; repeated calls are no-ops.
func Init() {
	initOnce.Do(func() {
		envconfig.LoadConfig()
		level := slog.LevelInfo
		if envconfig.Debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(logutil.NewLogger(os.Stderr, level))
	})
}
