package clog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// NamespaceKey 是日志中命名空间的字段名，用于标识组件
const NamespaceKey = "namespace"

// slogLogger 是基于 slog 的 Logger 实现（内部使用）
type slogLogger struct {
	l         *slog.Logger
	levelVar  *slog.LevelVar
	namespace string
}

// newLogger 根据配置构建 Logger（内部使用）
func newLogger(config *Config, opts *options) (Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level.toSlogLevel())

	w, err := openOutput(config.Output)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := &slogLogger{
		l:        slog.New(handler),
		levelVar: levelVar,
	}

	if ns := strings.Join(opts.namespaceParts, "."); ns != "" {
		return logger.WithNamespace(ns), nil
	}
	return logger, nil
}

// openOutput 解析输出目标（内部使用）
func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log output %s: %w", output, err)
		}
		return f, nil
	}
}

func (s *slogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields...) }
func (s *slogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields...) }

// Fatal 记录致命错误并退出进程
func (s *slogLogger) Fatal(msg string, fields ...Field) {
	s.log(FatalLevel.toSlogLevel(), msg, fields...)
	os.Exit(1)
}

func (s *slogLogger) log(level slog.Level, msg string, fields ...Field) {
	attrs := make([]any, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, f)
	}
	s.l.Log(context.Background(), level, msg, attrs...)
}

// With 创建一个带有预设字段的子 Logger
func (s *slogLogger) With(fields ...Field) Logger {
	attrs := make([]any, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, f)
	}
	return &slogLogger{
		l:         s.l.With(attrs...),
		levelVar:  s.levelVar,
		namespace: s.namespace,
	}
}

// WithNamespace 创建一个扩展命名空间的子 Logger
func (s *slogLogger) WithNamespace(parts ...string) Logger {
	ns := s.namespace
	for _, p := range parts {
		if p == "" {
			continue
		}
		if ns == "" {
			ns = p
		} else {
			ns = ns + "." + p
		}
	}
	if ns == s.namespace {
		return s
	}
	return &slogLogger{
		l:         s.l.With(slog.String(NamespaceKey, ns)),
		levelVar:  s.levelVar,
		namespace: ns,
	}
}

// SetLevel 动态调整日志级别
func (s *slogLogger) SetLevel(level Level) error {
	if _, err := ParseLevel(level.String()); err != nil {
		return err
	}
	s.levelVar.Set(level.toSlogLevel())
	return nil
}
