package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var levels = map[string]int{"debug": 10, "info": 20, "warn": 30, "error": 40}

type Logger struct {
	level string
	base  *log.Logger
}

type Options struct {
	Level string
	// File, when set, sends output to a size-rotated log file instead of stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithOptions(opts Options) *Logger {
	if strings.TrimSpace(opts.File) == "" {
		return New(opts.Level)
	}
	w := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	return NewWithWriter(opts.Level, w)
}

func NewWithWriter(level string, w io.Writer) *Logger {
	lv := strings.ToLower(strings.TrimSpace(level))
	if _, ok := levels[lv]; !ok {
		lv = "info"
	}
	return &Logger{level: lv, base: log.New(w, "", log.LstdFlags)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter("error", io.Discard)
}

func (l *Logger) Level() string { return l.level }

func (l *Logger) enabled(level string) bool {
	return levels[level] >= levels[l.level]
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.enabled("debug") {
		l.base.Printf("[DEBUG] "+format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if l.enabled("info") {
		l.base.Printf("[INFO] "+format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...any) {
	if l.enabled("warn") {
		l.base.Printf("[WARN] "+format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	if l.enabled("error") {
		l.base.Printf("[ERROR] "+format, args...)
	}
}
