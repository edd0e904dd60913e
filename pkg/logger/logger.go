package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which records are emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu       sync.Mutex
	minLevel = LevelInfo
	output   io.Writer = os.Stderr
)

// SetDebug toggles debug-level output.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		minLevel = LevelDebug
	} else {
		minLevel = LevelInfo
	}
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

// DebugCF logs a debug record for a component with structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	logCF(LevelDebug, component, msg, fields)
}

// InfoCF logs an info record for a component with structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	logCF(LevelInfo, component, msg, fields)
}

// WarnCF logs a warning record for a component with structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	logCF(LevelWarn, component, msg, fields)
}

// ErrorCF logs an error record for a component with structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	logCF(LevelError, component, msg, fields)
}

func logCF(level Level, component, msg string, fields map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(levelName(level))
	b.WriteString("] [")
	b.WriteString(component)
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(" %s=%v", k, fields[k]))
		}
	}

	fmt.Fprintln(output, b.String())
}

func levelName(level Level) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
