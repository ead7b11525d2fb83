package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface the rest of the bot depends on.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
	With(tags ...any) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = (*zapLogger)(nil)

// New builds a console logger. Debug output is only emitted when verbose is set.
func New(verbose bool) Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// The console config is static; a build failure here is unrecoverable.
		panic(err)
	}
	return &zapLogger{sugar: logger.Sugar()}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debugf(template string, args ...any) { z.sugar.Debugf(template, args...) }
func (z *zapLogger) Infof(template string, args ...any)  { z.sugar.Infof(template, args...) }
func (z *zapLogger) Warnf(template string, args ...any)  { z.sugar.Warnf(template, args...) }
func (z *zapLogger) Errorf(template string, args ...any) { z.sugar.Errorf(template, args...) }

func (z *zapLogger) With(tags ...any) Logger {
	return &zapLogger{sugar: z.sugar.With(tags...)}
}
