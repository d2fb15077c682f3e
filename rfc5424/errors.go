package rfc5424

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a line is empty or contains only
// whitespace. No scanning is attempted for such input.
var ErrInvalidArgument = errors.New("rfc5424: line cannot be empty or blank")

// ConfigurationError is returned by NewParser when the supplied
// configuration cannot produce a working parser.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rfc5424: invalid configuration for %s: %s", e.Field, e.Reason)
}

// ScanError is a lexical failure: a disallowed character, or input that
// ends before the current production is complete.
type ScanError struct {
	Offset int
	Reason string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at offset %d: %s", e.Offset, e.Reason)
}

// ParseError reports the grammar rule that failed to match. Err holds the
// underlying ScanError when the failure was lexical.
type ParseError struct {
	Rule   string
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rfc5424: parse error in %s at offset %d", e.Rule, e.Offset)
	}
	return fmt.Sprintf("rfc5424: parse error in %s at offset %d: %s", e.Rule, e.Offset, e.Err.Error())
}

// Unwrap returns the triggering error, if any.
func (e *ParseError) Unwrap() error { return e.Err }

// LineError identifies which line of a multi-line input failed to parse.
// Lines are numbered from 1.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err.Error())
}

// Unwrap returns the error produced by parsing the line.
func (e *LineError) Unwrap() error { return e.Err }
