package diag

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging. The CLI (cmd/fhirpath)
// uses this to emit one structured event per diagnostic instead of
// formatting strings by hand.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-wide Logger, writing to stderr at Info
// level unless overridden by FHIRPATH_LOG_LEVEL.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(os.Stderr)
	})
	return defaultLogger
}

// New builds a Logger writing to w.
func New(w io.Writer) *Logger {
	level := zerolog.InfoLevel
	if s := os.Getenv("FHIRPATH_LOG_LEVEL"); s != "" {
		if lv, err := zerolog.ParseLevel(s); err == nil {
			level = lv
		}
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Diagnostic logs a single Diagnostic at a level derived from its
// Severity.
func (l *Logger) Diagnostic(d *Diagnostic) {
	var event *zerolog.Event
	switch d.Severity {
	case SeverityError:
		event = l.zl.Error()
	case SeverityWarning:
		event = l.zl.Warn()
	default:
		event = l.zl.Info()
	}
	event.Str("code", d.Code.String())
	if d.Path != "" {
		event.Str("path", d.Path)
	}
	if d.Span.Line > 0 {
		event.Int("line", d.Span.Line).Int("column", d.Span.Column)
	}
	event.Msg(d.Message)
}

// Bag logs every diagnostic in b.
func (l *Logger) Bag(b *Bag) {
	for _, d := range b.All() {
		l.Diagnostic(d)
	}
}

// Event starts a structured log event at the given severity, for
// call sites that want to attach extra fields beyond a Diagnostic
// (e.g. expression text, cache hit/miss, evaluation duration).
func (l *Logger) Event(sev Severity) *zerolog.Event {
	switch sev {
	case SeverityError:
		return l.zl.Error()
	case SeverityWarning:
		return l.zl.Warn()
	default:
		return l.zl.Info()
	}
}
