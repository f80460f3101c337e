package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrSyntax reports a line the parser cannot read.
	ErrSyntax = errors.New("syntax error")

	// ErrUnknownInstruction reports a mnemonic the machine does not run.
	ErrUnknownInstruction = errors.New("unknown instruction")

	// ErrUndefinedLabel reports a branch to a label that is never defined.
	ErrUndefinedLabel = errors.New("undefined label")

	// ErrDuplicateLabel reports a label defined twice.
	ErrDuplicateLabel = errors.New("duplicate label")
)

// Program is a parsed assembly listing.
type Program struct {
	Insts []Inst

	// Labels maps a label name to the index of the instruction it marks.
	// A label at the end of the listing maps to len(Insts).
	Labels map[string]int

	// LabelOrder lists label names in the order they are defined.
	LabelOrder []string
}

// Inst is one instruction of a Program.
type Inst struct {
	OpCode   string
	Operands []string

	// Line is the 1-based source line.
	Line int
	// The raw text of the instruction.
	Text string
}

func (i Inst) String() string {
	if len(i.Operands) == 0 {
		return i.OpCode
	}
	return i.OpCode + " " + strings.Join(i.Operands, ", ")
}

// operandCount is the number of operands each supported mnemonic takes.
var operandCount = map[string]int{
	"add":     3,
	"addi":    3,
	"addiu":   3,
	"sub":     3,
	"subi":    3,
	"lb":      2,
	"lbu":     2,
	"sb":      2,
	"li":      2,
	"move":    2,
	"beq":     3,
	"bne":     3,
	"beqz":    2,
	"bnez":    2,
	"j":       1,
	"nop":     0,
	"syscall": 0,
}

// branchTarget is the operand index holding the label of a branch.
var branchTarget = map[string]int{
	"beq":  2,
	"bne":  2,
	"beqz": 1,
	"bnez": 1,
	"j":    0,
}

// ParseProgram parses the assembly subset the compiler emits. Blank lines,
// '#' comments and assembler directives (lines starting with '.') are
// skipped. A label may stand on its own line or prefix an instruction.
func ParseProgram(text string) (*Program, error) {
	p := &Program{
		Labels: make(map[string]int),
	}

	for n, raw := range strings.Split(text, "\n") {
		lineNo := n + 1
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)

		for {
			colon := strings.IndexByte(line, ':')
			if colon < 0 {
				break
			}
			name := strings.TrimSpace(line[:colon])
			if !isLabelName(name) {
				return nil, fmt.Errorf("%w: line %d: bad label %q", ErrSyntax, lineNo, name)
			}
			if _, dup := p.Labels[name]; dup {
				return nil, fmt.Errorf("%w: line %d: %s", ErrDuplicateLabel, lineNo, name)
			}
			p.Labels[name] = len(p.Insts)
			p.LabelOrder = append(p.LabelOrder, name)
			line = strings.TrimSpace(line[colon+1:])
		}

		if line == "" || strings.HasPrefix(line, ".") {
			continue
		}

		inst, err := parseInst(line, lineNo)
		if err != nil {
			return nil, err
		}
		p.Insts = append(p.Insts, inst)
	}

	for _, inst := range p.Insts {
		idx, ok := branchTarget[inst.OpCode]
		if !ok {
			continue
		}
		if _, defined := p.Labels[inst.Operands[idx]]; !defined {
			return nil, fmt.Errorf("%w: line %d: %s",
				ErrUndefinedLabel, inst.Line, inst.Operands[idx])
		}
	}

	return p, nil
}

func parseInst(line string, lineNo int) (Inst, error) {
	fields := strings.Fields(line)
	op := strings.ToLower(fields[0])

	want, ok := operandCount[op]
	if !ok {
		return Inst{}, fmt.Errorf("%w: line %d: %s", ErrUnknownInstruction, lineNo, fields[0])
	}

	var operands []string
	rest := strings.TrimSpace(line[len(fields[0]):])
	if rest != "" {
		for _, o := range strings.Split(rest, ",") {
			operands = append(operands, strings.TrimSpace(o))
		}
	}

	if len(operands) != want {
		return Inst{}, fmt.Errorf("%w: line %d: %s takes %d operands, got %d",
			ErrSyntax, lineNo, op, want, len(operands))
	}
	for _, o := range operands {
		if o == "" {
			return Inst{}, fmt.Errorf("%w: line %d: empty operand", ErrSyntax, lineNo)
		}
	}

	return Inst{
		OpCode:   op,
		Operands: operands,
		Line:     lineNo,
		Text:     line,
	}, nil
}

func isLabelName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// LoadProgramFile reads and parses an assembly file.
func LoadProgramFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p, err := ParseProgram(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// PrintProgram writes a numbered listing of the program with its labels.
func PrintProgram(w io.Writer, p *Program) {
	byIndex := make(map[int][]string)
	for _, name := range p.LabelOrder {
		idx := p.Labels[name]
		byIndex[idx] = append(byIndex[idx], name)
	}

	for i, inst := range p.Insts {
		for _, l := range byIndex[i] {
			fmt.Fprintf(w, "%s:\n", l)
		}
		fmt.Fprintf(w, "%6d  %s\n", i, inst)
	}
	for _, l := range byIndex[len(p.Insts)] {
		fmt.Fprintf(w, "%s:\n", l)
	}
}
