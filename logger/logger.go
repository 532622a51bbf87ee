package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ServiceName tags every line written by the global logger.
const ServiceName = "diarlive"

const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// F is a set of structured fields attached to one log line.
type F = map[string]any

// Logger is a zerolog logger scoped to a service and, optionally, a
// component or a diarization session.
type Logger struct {
	zl      zerolog.Logger
	service string
}

var global *Logger

// Init replaces the global logger and drops cached component loggers so
// they pick up the new level and format.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	global = New(&cfg, ServiceName)
	Reset()
}

// New creates a logger writing to cfg.Output.
func New(cfg *Config, service string) *Logger {
	return NewWithWriter(cfg, service, outputWriter(cfg.Output))
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg *Config, service string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		zl = zerolog.New(consoleWriter(cfg, service, w))
	default:
		zl = zerolog.New(w).With().Str("service", service).Logger()
	}
	ctx := zl.Level(level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return &Logger{zl: ctx.Logger(), service: service}
}

// NewDefault creates a console logger at info level on stdout.
func NewDefault(service string) *Logger {
	cfg := Config{}
	cfg.ApplyDefaults()
	return New(&cfg, service)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), service: "nop"}
}

// GetGlobalLogger returns the global logger, creating a default one on
// first use.
func GetGlobalLogger() *Logger {
	if global == nil {
		global = NewDefault(ServiceName)
	}
	return global
}

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l *Logger) {
	global = l
	Reset()
}

// WithComponent tags lines with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str(FieldComponent, name) })
}

// WithSession tags lines with the meeting and session they belong to.
// An empty session id is left out.
func (l *Logger) WithSession(meetingID, sessionID string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context {
		c = c.Str(FieldMeetingID, meetingID)
		if sessionID != "" {
			c = c.Str(FieldSessionID, sessionID)
		}
		return c
	})
}

// WithError attaches err to every line.
func (l *Logger) WithError(err error) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Err(err) })
}

func (l *Logger) with(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger(), service: l.service}
}

func (l *Logger) Debug(msg string, fields ...F) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...F)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...F)  { write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...F) { write(l.zl.Error(), msg, fields) }

// Info logs through the global logger.
func Info(msg string, fields ...F) { GetGlobalLogger().Info(msg, fields...) }

// Warn logs through the global logger.
func Warn(msg string, fields ...F) { GetGlobalLogger().Warn(msg, fields...) }

func write(ev *zerolog.Event, msg string, fields []F) {
	for _, f := range fields {
		for k, v := range f {
			ev.Interface(k, v)
		}
	}
	ev.Msg(msg)
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// consoleWriter prints "[DIA][INF] message key:value" lines.
func consoleWriter(cfg *Config, service string, w io.Writer) zerolog.ConsoleWriter {
	prefix := ""
	if len(service) >= 3 {
		prefix = "[" + strings.ToUpper(service[:3]) + "]"
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i any) string {
			lvl := strings.ToUpper(fmt.Sprint(i))
			if len(lvl) > 3 {
				lvl = lvl[:3]
			}
			return prefix + "[" + lvl + "]"
		},
		FormatFieldName: func(i any) string { return fmt.Sprint(i) + ":" },
	}
}
