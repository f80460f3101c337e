// Package instr holds the fixed instruction selection table that maps
// Brainfuck commands to MIPS assembly.
//
// The tape pointer lives in $sp, the scratch register is $s0, and
// character I/O goes through the SPIM/MARS syscall convention ($v0 selects
// the service, $a0 carries the argument).
package instr

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/bfasm/bf"
)

// Registers used by the templates.
const (
	PtrReg     = "$sp"
	ScratchReg = "$s0"
	ZeroReg    = "$0"
)

// Syscall service numbers used by the templates.
const (
	SysPrintInt  = 1
	SysReadInt   = 5
	SysExit      = 10
	SysPrintChar = 11
	SysReadChar  = 12
)

// Label prefixes of the loop labels.
const (
	StartPrefix = "LOOP_START"
	EndPrefix   = "LOOP_END"
)

// Template is the literal instruction block emitted for one command.
type Template struct {
	Command bf.Command
	Lines   []string
}

func (t Template) String() string {
	return fmt.Sprintf("Template{%c: %q}", t.Command.Symbol(), t.Lines)
}

// Emit writes the block to w, one newline-terminated line per instruction.
func (t Template) Emit(w io.Writer) error {
	return writeLines(w, t.Lines...)
}

var table = map[bf.Command]Template{
	bf.IncPtr: {bf.IncPtr, []string{
		"addi $sp, $sp, 1",
	}},
	bf.DecPtr: {bf.DecPtr, []string{
		"subi $sp, $sp, 1",
	}},
	bf.IncData: {bf.IncData, []string{
		"lbu $s0, 0($sp)",
		"addi $s0, $s0, 1",
		"sb $s0, 0($sp)",
	}},
	bf.DecData: {bf.DecData, []string{
		"lbu $s0, 0($sp)",
		"subi $s0, $s0, 1",
		"sb $s0, 0($sp)",
	}},
	bf.Output: {bf.Output, []string{
		"lbu $a0, 0($sp)",
		"li $v0, 11",
		"syscall",
	}},
	bf.Input: {bf.Input, []string{
		"li $v0, 12",
		"syscall",
		"sb $v0, 0($sp)",
	}},
}

// Lookup returns the flat template of a command. Brackets and None have no
// template.
func Lookup(c bf.Command) (Template, bool) {
	t, ok := table[c]
	return t, ok
}

// Table returns the flat templates in the order of bf.Commands.
func Table() []Template {
	var out []Template
	for _, c := range bf.Commands {
		if t, ok := table[c]; ok {
			out = append(out, t)
		}
	}
	return out
}

// StartLabel returns the label placed at the top of loop id.
func StartLabel(id uint32) string {
	return fmt.Sprintf("%s%d", StartPrefix, id)
}

// EndLabel returns the label placed after loop id.
func EndLabel(id uint32) string {
	return fmt.Sprintf("%s%d", EndPrefix, id)
}

// Preamble returns the instructions that open loop id: skip the body when
// the current cell is zero.
func Preamble(id uint32) []string {
	return []string{
		"lbu $s0, 0($sp)",
		"beq $s0, $0, " + EndLabel(id),
		StartLabel(id) + ":",
	}
}

// Postamble returns the instructions that close loop id: jump back while
// the current cell is nonzero.
func Postamble(id uint32) []string {
	return []string{
		"lbu $s0, 0($sp)",
		"bne $s0, $0, " + StartLabel(id),
		EndLabel(id) + ":",
	}
}

// Terminate returns the exit sequence that ends the program.
func Terminate() []string {
	return []string{
		"li $v0, 10",
		"syscall",
	}
}

// EmitPreamble writes the preamble of loop id.
func EmitPreamble(w io.Writer, id uint32) error {
	return writeLines(w, Preamble(id)...)
}

// EmitPostamble writes the postamble of loop id.
func EmitPostamble(w io.Writer, id uint32) error {
	return writeLines(w, Postamble(id)...)
}

// EmitTerminate writes the exit sequence.
func EmitTerminate(w io.Writer) error {
	return writeLines(w, Terminate()...)
}

func writeLines(w io.Writer, lines ...string) error {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
