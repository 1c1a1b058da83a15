package log

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across the emulator. Key/value pairs
// follow the logr convention: alternating string keys and values, with zap
// fields and bare errors accepted in between.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	// Error logs at error level with err attached under "error". err may be nil.
	Error(err error, msg string, keysAndValues ...any)

	WithName(name string) Logger
	WithValues(keysAndValues ...any) Logger

	// SetLevel changes the minimum level of this logger and every logger
	// derived from the same root.
	SetLevel(level string) error

	Sync() error
}

var _ Logger = (*logger)(nil)

type logger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// NewLogger builds a Logger from opts. It panics if an output path cannot be
// opened; opts are expected to have passed Validate.
func NewLogger(opts *Options) Logger {
	if opts == nil {
		opts = NewOptions()
	}

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	sink, _, err := zap.Open(paths...)
	if err != nil {
		panic(fmt.Sprintf("log: open %v: %v", paths, err))
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		panic(fmt.Sprintf("log: open stderr: %v", err))
	}

	level := zap.NewAtomicLevelAt(parseLevel(opts.Level))
	core := zapcore.NewCore(newEncoder(opts), sink, level)

	zopts := []zap.Option{
		zap.ErrorOutput(errSink),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if !opts.DisableCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(opts.CallerSkip))
	}

	z := zap.New(core, zopts...)
	if opts.Name != "" {
		z = z.Named(opts.Name)
	}
	return &logger{z: z, level: level}
}

func newEncoder(opts *Options) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if opts.Format == FormatJSON {
		return zapcore.NewJSONEncoder(cfg)
	}
	if opts.EnableColor {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func parseLevel(text string) zapcore.Level {
	l, err := zapcore.ParseLevel(text)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func (l *logger) Debug(msg string, keysAndValues ...any) {
	l.z.Debug(msg, toFields(keysAndValues...)...)
}

func (l *logger) Info(msg string, keysAndValues ...any) {
	l.z.Info(msg, toFields(keysAndValues...)...)
}

func (l *logger) Warn(msg string, keysAndValues ...any) {
	l.z.Warn(msg, toFields(keysAndValues...)...)
}

func (l *logger) Error(err error, msg string, keysAndValues ...any) {
	if ce := l.z.Check(zapcore.ErrorLevel, msg); ce != nil {
		fields := toFields(keysAndValues...)
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		ce.Write(fields...)
	}
}

func (l *logger) WithName(name string) Logger {
	return &logger{z: l.z.Named(name), level: l.level}
}

func (l *logger) WithValues(keysAndValues ...any) Logger {
	return &logger{z: l.z.With(toFields(keysAndValues...)...), level: l.level}
}

func (l *logger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.level.SetLevel(lvl)
	return nil
}

func (l *logger) Sync() error {
	return l.z.Sync()
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return &logger{z: zap.NewNop(), level: zap.NewAtomicLevel()}
}

var (
	std         atomic.Pointer[logger]
	helpers     atomic.Pointer[logger] // std plus one caller frame for the package funcs below
	initialized atomic.Bool
)

func init() {
	setStd(NewNopLogger().(*logger))
}

func setStd(l *logger) {
	std.Store(l)
	helpers.Store(&logger{z: l.z.WithOptions(zap.AddCallerSkip(1)), level: l.level})
}

// Init replaces the process-wide logger. Calls after the first are ignored,
// so loggers handed out by WithName keep writing to the same sinks.
func Init(opts *Options) {
	if initialized.CompareAndSwap(false, true) {
		setStd(NewLogger(opts).(*logger))
	}
}

// Std returns the process-wide logger. It discards output until Init is called.
func Std() Logger { return std.Load() }

func Debug(msg string, keysAndValues ...any) { helpers.Load().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { helpers.Load().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { helpers.Load().Warn(msg, keysAndValues...) }
func Error(err error, msg string, keysAndValues ...any) {
	helpers.Load().Error(err, msg, keysAndValues...)
}
func WithName(name string) Logger            { return std.Load().WithName(name) }
func WithValues(keysAndValues ...any) Logger { return std.Load().WithValues(keysAndValues...) }
func SetLevel(level string) error            { return std.Load().SetLevel(level) }
func Sync() error                            { return std.Load().Sync() }
