package logger

import (
	"Vibeshare/internal/api/config"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
)

var LogWriter io.Writer = os.Stdout

// InitLogger 初始化全局 slog，stdout 为主输出，配置了 file 时同时写入带 trace 的日志
func InitLogger(cfg config.LogConfig) (io.Closer, error) {
	opts := &log.HandlerOptions{Level: parseLevel(cfg.Level)}

	hStdout := newHandler(os.Stdout, cfg.Format, opts)
	var finalHandler log.Handler = hStdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		hFile := &TracedFilterHandler{next: log.NewJSONHandler(f, opts)}
		finalHandler = &TeeHandler{handlers: []log.Handler{hStdout, hFile}}
		LogWriter = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	log.SetDefault(log.New(&ContextHandler{finalHandler}))
	return closer, nil
}

func newHandler(w io.Writer, format string, opts *log.HandlerOptions) log.Handler {
	if strings.EqualFold(format, "text") {
		return log.NewTextHandler(w, opts)
	}
	return log.NewJSONHandler(w, opts)
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug
	case "warn", "warning":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
