package logger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLevel is returned when a severity is outside the fixed set.
var ErrUnknownLevel = errors.New("unknown log level")

// Level is the severity of a log record. Levels are ordered, DEBUG is lowest.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{
	DEBUG: "debug",
	INFO:  "info",
	WARN:  "warn",
	ERROR: "error",
}

// ParseLevel parses a lower- or upper-case severity name.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
}

// Valid reports whether l is one of the defined severities.
func (l Level) Valid() bool {
	return l >= DEBUG && l <= ERROR
}

// String returns the lower-case name stored in the database and the file sink.
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Label returns the upper-case name used on the console.
func (l Level) Label() string {
	return strings.ToUpper(l.String())
}

// AtOrBelow lists every severity less than or equal to l, lowest first.
func AtOrBelow(l Level) []Level {
	if !l.Valid() {
		return nil
	}
	levels := make([]Level, 0, int(l)+1)
	for lvl := DEBUG; lvl <= l; lvl++ {
		levels = append(levels, lvl)
	}
	return levels
}
