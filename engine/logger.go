package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/fancy-regex/resource"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the engine's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the engine package's logger.
// This must be called before any engine operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// tableLogger reports handle table events at debug level.
type tableLogger struct{}

func (tableLogger) OnResourceEvent(e resource.Event) {
	Logger().Debug("handle "+e.Type.String(),
		zap.String("kind", e.Kind),
		zap.Uint64("handle", uint64(e.Handle)))
}
