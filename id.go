package spandump

import (
	"strconv"
)

// SpanID identifies a span while it is open. Zero means "no span".
//
// Ids are assigned by the instrumentation framework and may be reused once
// the span they named has closed.
type SpanID uint64

// IsValid reports whether the id names a span.
func (id SpanID) IsValid() bool {
	return id != 0
}

// String renders the id as 16 lowercase hex digits.
func (id SpanID) String() string {
	s := strconv.FormatUint(uint64(id), 16)
	if len(s) < 16 {
		s = "0000000000000000"[len(s):] + s
	}
	return s
}

// Level describes the verbosity a span was declared at.
// The registry records it but never filters on it.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "LEVEL(" + strconv.Itoa(int(l)) + ")"
	}
}

// Descriptor is the static metadata of a span call-site.
//
// Descriptors are shared by pointer. Nothing in this package copies or
// mutates one, so a *Descriptor read from a Snapshot is the same pointer
// that was passed at creation. Declare them once, typically as package
// level variables.
type Descriptor struct {
	Name   string   `json:"name"`
	Target string   `json:"target,omitempty"`
	File   string   `json:"file,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Line   int      `json:"line,omitempty"`
	Level  Level    `json:"level"`
}

// Values carries field values recorded on a span or event.
type Values map[Key]any
