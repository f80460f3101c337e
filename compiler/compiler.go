// Package compiler translates Brainfuck source into MIPS assembly.
//
// Translation is two strictly ordered steps. Validate checks bracket
// balance over the whole source; nothing is written before it succeeds.
// Generate then walks the source once, emitting the flat template of each
// command from package instr and wrapping every loop body with a
// preamble/postamble pair labelled LOOP_START<id>/LOOP_END<id>. Ids are
// assigned in the order opening brackets appear, starting at 1, and the
// program always ends with a single exit syscall.
//
//	src, _ := os.ReadFile("hello.bf")
//	if err := compiler.Validate(src); err != nil {
//	    return err
//	}
//	return compiler.Generate(w, src)
package compiler

import (
	"bytes"
	"fmt"
	"io"
)

// Compile reads the whole source from r, validates it, and writes the
// assembly to w. On a read or validation failure nothing is written.
func Compile(r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}

	if err := Validate(src); err != nil {
		return err
	}

	return Generate(w, src)
}

// CompileBytes is Compile over an in-memory source.
func CompileBytes(src []byte) ([]byte, error) {
	if err := Validate(src); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Generate(&buf, src); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
