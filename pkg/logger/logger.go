package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which log lines are emitted.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu       sync.Mutex
	minLevel = INFO
	out      = os.Stderr
)

// SetLevel sets the minimum emitted level.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = level
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "?"
	}
}

func logf(level Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, " %-5s [%s] %s", level.String(), component, msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(out, b.String())
}

func DebugC(component, msg string) { logf(DEBUG, component, msg, nil) }

func InfoC(component, msg string) { logf(INFO, component, msg, nil) }

func WarnC(component, msg string) { logf(WARN, component, msg, nil) }

func ErrorC(component, msg string) { logf(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { logf(DEBUG, component, msg, fields) }

func InfoCF(component, msg string, fields map[string]any) { logf(INFO, component, msg, fields) }

func WarnCF(component, msg string, fields map[string]any) { logf(WARN, component, msg, fields) }

func ErrorCF(component, msg string, fields map[string]any) { logf(ERROR, component, msg, fields) }
