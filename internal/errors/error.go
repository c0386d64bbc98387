package errors

import (
	"fmt"
	"os"
	"strings"
)

// Category groups related error codes.
type Category string

const (
	CategoryRuntime  Category = "runtime"
	CategoryRender   Category = "render"
	CategoryProtocol Category = "protocol"
	CategoryJournal  Category = "journal"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location points at a position in a source or configuration file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// LoomError is a structured diagnostic with a stable code, an optional
// file location, a fix suggestion and a documentation link.
type LoomError struct {
	// Code is a unique error identifier (e.g. "E080").
	Code string

	// Category is the error group (runtime, protocol, config, ...).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred, if known.
	Location *Location

	// Context holds the source lines surrounding Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is code or configuration showing the correct approach.
	Example string

	// DocURL links to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LoomError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LoomError) Unwrap() error {
	return e.Wrapped
}

// WithLocation attaches a file position and loads surrounding lines from
// the file for display.
func (e *LoomError) WithLocation(file string, line, column int) *LoomError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithLocationFromOffset attaches a file position computed from a byte
// offset into data. Context lines come from data rather than the
// filesystem, so the snippet matches the bytes that were actually parsed.
// Offsets from json.SyntaxError and json.UnmarshalTypeError fit here.
func (e *LoomError) WithLocationFromOffset(file string, data []byte, offset int64) *LoomError {
	if offset < 0 || offset > int64(len(data)) {
		return e
	}
	line, column := 1, 1
	for i := int64(0); i < offset; i++ {
		if data[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = contextLines(strings.Split(string(data), "\n"), line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LoomError) WithSuggestion(s string) *LoomError {
	e.Suggestion = s
	return e
}

// WithExample adds a code example to the error.
func (e *LoomError) WithExample(ex string) *LoomError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *LoomError) WithDetail(d string) *LoomError {
	e.Detail = d
	return e
}

// WithContext adds custom context lines to the error.
func (e *LoomError) WithContext(lines []string) *LoomError {
	e.Context = lines
	return e
}

// Wrap wraps another error.
func (e *LoomError) Wrap(err error) *LoomError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines surrounding targetLine from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	return contextLines(strings.Split(string(data), "\n"), targetLine, contextSize)
}

// contextLines returns up to contextSize lines centered on targetLine.
// Line numbers are 1-based.
func contextLines(lines []string, targetLine, contextSize int) []string {
	start := targetLine - contextSize/2
	end := targetLine + contextSize/2
	var out []string
	for i, line := range lines {
		n := i + 1
		if n > end {
			break
		}
		if n >= start {
			out = append(out, line)
		}
	}
	return out
}

// New creates a LoomError from a registered error code.
func New(code string) *LoomError {
	template, ok := registry[code]
	if !ok {
		return &LoomError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LoomError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a LoomError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *LoomError {
	return &LoomError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error under the given code. A *LoomError
// passes through unchanged.
func FromError(err error, code string) *LoomError {
	if err == nil {
		return nil
	}
	if le, ok := err.(*LoomError); ok {
		return le
	}
	return New(code).Wrap(err)
}
