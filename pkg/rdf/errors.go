package rdf

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for formats the package cannot handle
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseError reports malformed input together with its position
type ParseError struct {
	Format Format
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Format, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Format, e.Line, e.Column, e.Msg)
}

// position converts a byte offset into a 1-based line and column
func position(input string, offset int) (int, int) {
	if offset > len(input) {
		offset = len(input)
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if input[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
