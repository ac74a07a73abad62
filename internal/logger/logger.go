// Package logger provides a small leveled logger over the standard library
// log.Logger. Level 0 silences everything; 4 enables debug output.
package logger

import (
	"fmt"
	"log"
	"os"
)

type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

type Logger struct {
	out   *log.Logger
	level Level
	tag   string
}

// New creates a logger writing to out at the given level. A nil out discards
// everything except Fatalf, which always terminates the process.
func New(out *log.Logger, level Level) *Logger {
	return &Logger{out: out, level: level}
}

// WithTag returns a logger that prefixes every line with "[tag]".
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{out: l.out, level: l.level, tag: tag}
}

func (l *Logger) printf(min Level, prefix, format string, v ...interface{}) {
	if l.level < min || l.out == nil {
		return
	}
	if l.tag != "" {
		prefix = "[" + l.tag + "] " + prefix
	}
	l.out.Printf(prefix+format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.printf(LevelDebug, "DEBUG: ", format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.printf(LevelInfo, "", format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.printf(LevelWarn, "WARN: ", format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.printf(LevelError, "ERROR: ", format, v...)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	if l.out != nil {
		l.out.Fatalf("FATAL: "+format, v...)
	}
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", v...)
	os.Exit(1)
}
