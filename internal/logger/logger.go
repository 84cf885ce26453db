// Package logger is the gateway's structured logging collaborator: a
// single process-wide zap.Logger, configured once at startup.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	once   sync.Once
)

// Initialize builds the global logger. env selects development
// (pretty-printed-free JSON, debug level) vs. production (sampled,
// info level) zap defaults.
func Initialize(env string) {
	once.Do(func() {
		var cfg zap.Config
		if env == "development" {
			cfg = zap.NewDevelopmentConfig()
			cfg.Encoding = "json"
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		} else {
			cfg = zap.NewProductionConfig()
		}
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}

		built, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		global = built
	})
}

// Get returns the global logger, initializing it from APP_ENV if a
// caller reaches it before Initialize was explicitly called.
func Get() *zap.Logger {
	if global == nil {
		Initialize(os.Getenv("APP_ENV"))
	}
	return global
}

func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
