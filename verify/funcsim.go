package verify

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/bfasm/bf"
	"github.com/sarchlab/bfasm/compiler"
)

// ErrStepLimit reports that the golden model exceeded its step budget.
var ErrStepLimit = errors.New("functional simulator step limit exceeded")

// FunctionalSimulator interprets a Brainfuck program directly.
type FunctionalSimulator struct {
	code  []bf.Command
	jumps []int

	tape  map[int]byte
	ptr   int
	steps uint64

	TraceStep func(pc int, cmd bf.Command, ptr int, cell byte)
}

// NewFunctionalSimulator prepares src for interpretation. Comments are
// dropped; the source must be balanced.
func NewFunctionalSimulator(src []byte) (*FunctionalSimulator, error) {
	if err := compiler.Validate(src); err != nil {
		return nil, err
	}

	fs := &FunctionalSimulator{
		tape: make(map[int]byte),
	}
	for _, b := range bf.Strip(src) {
		fs.code = append(fs.code, bf.FromByte(b))
	}

	fs.jumps = make([]int, len(fs.code))
	var open []int
	for pc, cmd := range fs.code {
		if !cmd.IsLoop() {
			continue
		}
		switch cmd {
		case bf.LoopOpen:
			open = append(open, pc)
		case bf.LoopClose:
			start := open[len(open)-1]
			open = open[:len(open)-1]
			fs.jumps[start] = pc
			fs.jumps[pc] = start
		}
	}

	return fs, nil
}

// Run executes the program from a cleared tape, reading from in and
// returning everything it prints. A maxSteps of zero means no bound.
func (fs *FunctionalSimulator) Run(in io.Reader, maxSteps uint64) ([]byte, error) {
	fs.tape = make(map[int]byte)
	fs.ptr = 0
	fs.steps = 0

	var out bytes.Buffer
	r := bufio.NewReader(in)

	for pc := 0; pc < len(fs.code); pc++ {
		if maxSteps > 0 && fs.steps >= maxSteps {
			return out.Bytes(), fmt.Errorf("%w: %d", ErrStepLimit, maxSteps)
		}
		fs.steps++

		cmd := fs.code[pc]
		if fs.TraceStep != nil {
			fs.TraceStep(pc, cmd, fs.ptr, fs.tape[fs.ptr])
		}

		switch cmd {
		case bf.IncPtr:
			fs.ptr++
		case bf.DecPtr:
			fs.ptr--
		case bf.IncData:
			fs.tape[fs.ptr]++
		case bf.DecData:
			fs.tape[fs.ptr]--
		case bf.Output:
			out.WriteByte(fs.tape[fs.ptr])
		case bf.Input:
			b, err := r.ReadByte()
			switch {
			case errors.Is(err, io.EOF):
				b = 0
			case err != nil:
				return out.Bytes(), err
			}
			fs.tape[fs.ptr] = b
		case bf.LoopOpen:
			if fs.tape[fs.ptr] == 0 {
				pc = fs.jumps[pc]
			}
		case bf.LoopClose:
			if fs.tape[fs.ptr] != 0 {
				pc = fs.jumps[pc]
			}
		}
	}

	return out.Bytes(), nil
}

// Steps returns the number of commands executed.
func (fs *FunctionalSimulator) Steps() uint64 {
	return fs.steps
}

// GetCell returns the value of a tape cell relative to the start.
func (fs *FunctionalSimulator) GetCell(offset int) byte {
	return fs.tape[offset]
}

// GetCellRange returns cells [start, end].
func (fs *FunctionalSimulator) GetCellRange(start, end int) []byte {
	var result []byte
	for i := start; i <= end; i++ {
		result = append(result, fs.tape[i])
	}
	return result
}

// Pointer returns the current tape offset.
func (fs *FunctionalSimulator) Pointer() int {
	return fs.ptr
}
