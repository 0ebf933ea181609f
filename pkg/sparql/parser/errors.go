package parser

import "fmt"

// SyntaxError reports malformed query or update text
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sparql syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// errorf builds a SyntaxError at the current position
func (p *Parser) errorf(format string, args ...any) error {
	line, column := 1, 1
	for i := 0; i < p.pos && i < p.length; i++ {
		if p.input[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return &SyntaxError{Line: line, Column: column, Msg: fmt.Sprintf(format, args...)}
}
