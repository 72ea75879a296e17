// Package logger implements auth.Logger on top of zerolog.
//
// Calls follow the auth.Logger convention: a message followed by key/value
// pairs which become structured fields. A message holding a format verb is
// rendered printf style instead.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	auth "github.com/goliatone/go-report-auth"
)

type options struct {
	level  string
	pretty bool
	name   string
	writer io.Writer
}

type Option func(*options)

// WithLevel sets the minimum level, e.g. "debug" or "warn"
func WithLevel(level string) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithPretty switches to the human readable console writer
func WithPretty(pretty bool) Option {
	return func(o *options) {
		o.pretty = pretty
	}
}

// WithName sets the name of the root logger
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithWriter sets the output, stdout by default
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// BaseLogger is the root logger. Named children share its output and level.
type BaseLogger struct {
	*Logger
	root zerolog.Logger
}

var _ auth.LoggerProvider = (*BaseLogger)(nil)

func New(opts ...Option) *BaseLogger {
	o := &options{
		level:  "info",
		name:   "app",
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(o.level))
	if err != nil || o.level == "" {
		level = zerolog.InfoLevel
	}

	out := o.writer
	if o.pretty {
		out = zerolog.ConsoleWriter{Out: o.writer, TimeFormat: time.RFC3339}
	}

	root := zerolog.New(out).Level(level).With().Timestamp().Logger()

	return &BaseLogger{
		root:   root,
		Logger: named(root, o.name),
	}
}

// GetLogger returns a child logger tagged with name
func (b *BaseLogger) GetLogger(name string) auth.Logger {
	return named(b.root, name)
}

// Zerolog exposes the underlying root logger
func (b *BaseLogger) Zerolog() *zerolog.Logger {
	return &b.root
}

func named(root zerolog.Logger, name string) *Logger {
	zl := root
	if name != "" {
		zl = root.With().Str("logger", name).Logger()
	}
	return &Logger{zl: zl}
}

// Logger adapts a zerolog logger to auth.Logger
type Logger struct {
	zl zerolog.Logger
}

var _ auth.Logger = (*Logger)(nil)

// Wrap adapts an existing zerolog logger
func Wrap(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(l.zl.Debug(), format, args)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(l.zl.Info(), format, args)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(l.zl.Warn(), format, args)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(l.zl.Error(), format, args)
}

// With returns a child logger that always carries the given pairs
func (l *Logger) With(args ...any) *Logger {
	return &Logger{zl: l.zl.With().Fields(fieldList(args)).Logger()}
}

func (l *Logger) log(e *zerolog.Event, format string, args []any) {
	if e == nil {
		return
	}

	if len(args) > 0 && strings.Contains(format, "%") {
		e.Msg(fmt.Sprintf(format, args...))
		return
	}

	if len(args) > 0 {
		e = e.Fields(fieldList(args))
	}
	e.Msg(format)
}

// fieldList makes args safe for zerolog: keys are strings and a dangling
// value is kept under "arg".
func fieldList(args []any) []any {
	out := make([]any, 0, len(args)+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, "arg", args[i])
			break
		}

		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		out = append(out, key, args[i+1])
	}
	return out
}
