package compiler

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is matched by every bracket balance failure.
	ErrMalformed = errors.New("malformed program")

	// ErrRead reports that the source could not be read.
	ErrRead = errors.New("cannot read source")

	// ErrWrite reports that the output sink rejected a write.
	ErrWrite = errors.New("cannot write output")
)

// MalformedKind tells which bracket rule a source breaks.
type MalformedKind int

const (
	// UnmatchedClose is a ']' seen while no loop is open.
	UnmatchedClose MalformedKind = iota
	// UnclosedOpen is a '[' still open at the end of the source.
	UnclosedOpen
)

func (k MalformedKind) String() string {
	switch k {
	case UnmatchedClose:
		return "unmatched ']'"
	case UnclosedOpen:
		return "unclosed '['"
	default:
		panic("invalid malformed kind")
	}
}

// MalformedProgramError describes the first bracket balance failure of a
// source program.
type MalformedProgramError struct {
	Kind MalformedKind
	// Offset is the byte offset of the offending bracket.
	Offset int
	// Line and Column are 1-based.
	Line, Column int
}

func (e *MalformedProgramError) Error() string {
	return fmt.Sprintf("%s: %s at line %d, column %d (offset %d)",
		ErrMalformed, e.Kind, e.Line, e.Column, e.Offset)
}

// Is lets errors.Is match the error against ErrMalformed.
func (e *MalformedProgramError) Is(target error) bool {
	return target == ErrMalformed
}

func newMalformed(src []byte, kind MalformedKind, offset int) *MalformedProgramError {
	line, col := 1, 1
	for _, b := range src[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}

	return &MalformedProgramError{
		Kind:   kind,
		Offset: offset,
		Line:   line,
		Column: col,
	}
}
