package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Config selects the level, format and destination of a Logger. It mirrors
// the LOG_* environment settings.
type Config struct {
	// Level is one of debug, info, warn, error or fatal. Empty means info.
	Level string
	// Format is json or text. Empty means json.
	Format string
	// Output is stdout, stderr, discard or a file path opened for append.
	Output string
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: string(JSONFormat),
		Output: "stderr",
	}
}

// NewLogger builds a Logger from cfg. A nil cfg uses DefaultConfig.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var format Format
	switch f := Format(strings.ToLower(cfg.Format)); f {
	case "", JSONFormat:
		format = JSONFormat
	case TextFormat:
		format = TextFormat
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return New(level, output).WithFormat(format), nil
}

// parseLevel accepts the zap level names. DPanic and panic log as errors.
func parseLevel(level string) (LogLevel, error) {
	zl, err := zapcore.ParseLevel(level)
	if err != nil {
		return InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	if zl == zapcore.FatalLevel {
		return FatalLevel, nil
	}
	return levelOf(zl), nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard":
		return io.Discard, nil
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output: %w", err)
	}
	return file, nil
}
