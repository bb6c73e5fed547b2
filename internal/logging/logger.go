// Package logging provides the structured logger used by the vqo binaries
// and a bridge that lets zap-based packages write through it.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of an entry, rendered in upper case.
type LogLevel string

// Levels in increasing severity. Fatal exits the process after writing.
const (
	DebugLevel LogLevel = "DEBUG"
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	FatalLevel LogLevel = "FATAL"
)

// rank orders levels; unknown levels rank below debug and never log.
func (lv LogLevel) rank() int {
	switch lv {
	case DebugLevel:
		return 1
	case InfoLevel:
		return 2
	case WarnLevel:
		return 3
	case ErrorLevel:
		return 4
	case FatalLevel:
		return 5
	}
	return 0
}

// Format selects how entries are rendered.
type Format string

const (
	// JSONFormat writes one JSON object per line.
	JSONFormat Format = "json"
	// TextFormat writes "time LEVEL message key=value ..." lines.
	TextFormat Format = "text"
)

// Logger writes levelled entries with a fixed set of fields. Loggers
// derived from one another share the output and its lock.
type Logger struct {
	level  LogLevel
	format Format
	output io.Writer
	mu     *sync.Mutex
	fields map[string]interface{}
}

// New returns a JSON logger writing entries at level and above to output.
func New(level LogLevel, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: JSONFormat,
		output: output,
		mu:     &sync.Mutex{},
		fields: map[string]interface{}{},
	}
}

// WithFormat returns a copy of the logger that renders entries in format.
func (l *Logger) WithFormat(format Format) *Logger {
	c := *l
	c.format = format
	return &c
}

// WithFields returns a child logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	c := *l
	c.fields = merge(l.fields, fields)
	return &c
}

// WithField is WithFields for a single key.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError adds err's message under "error".
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

func merge(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (l *Logger) shouldLog(level LogLevel) bool {
	r := level.rank()
	return r > 0 && r >= l.level.rank()
}

// log writes one entry. skip is passed to runtime.Caller to find the call
// site.
func (l *Logger) log(skip int, level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	caller := "???:0"
	if _, file, line, ok := runtime.Caller(skip); ok {
		caller = fmt.Sprintf("%s/%s:%d", filepath.Base(filepath.Dir(file)), filepath.Base(file), line)
	}

	// Fields may replace caller; the zap bridge reports zap's own call site.
	entry := merge(map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   msg,
		"caller":    caller,
	}, merge(l.fields, fields))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == TextFormat {
		writeText(l.output, entry)
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		// A field that cannot be marshalled still leaves a trace.
		writeText(l.output, map[string]interface{}{
			"timestamp": entry["timestamp"],
			"level":     level,
			"message":   msg,
			"caller":    entry["caller"],
			"log_error": err.Error(),
		})
		return
	}
	_, _ = l.output.Write(append(data, '\n'))
}

func writeText(w io.Writer, entry map[string]interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", entry["timestamp"], entry["level"], entry["message"])

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if k == "timestamp" || k == "level" || k == "message" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry[k])
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(w, b.String())
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs msg at DebugLevel with optional extra fields.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(2, DebugLevel, msg, first(fields))
}

// Info logs msg at InfoLevel with optional extra fields.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(2, InfoLevel, msg, first(fields))
}

// Warn logs msg at WarnLevel with optional extra fields.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(2, WarnLevel, msg, first(fields))
}

// Error logs msg at ErrorLevel with optional extra fields.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(2, ErrorLevel, msg, first(fields))
}

// Fatal logs msg at FatalLevel and exits with status 1.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(2, FatalLevel, msg, first(fields))
	os.Exit(1)
}

// CtxLogger is the request-scoped logger stored in a context.
type CtxLogger struct {
	*Logger
}

// FromContext returns the logger Middleware stored in ctx, or an info-level
// JSON logger on stderr.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a copy of ctx carrying l.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
