package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/bfasm/instr"
)

var (
	// ErrBadOperand reports an operand the emulator cannot decode.
	ErrBadOperand = errors.New("bad operand")

	// ErrUnknownSyscall reports a syscall service the machine lacks.
	ErrUnknownSyscall = errors.New("unknown syscall")

	// ErrPCOutOfRange reports execution running past the last instruction
	// without an exit syscall.
	ErrPCOutOfRange = errors.New("pc out of range")
)

var registerNames = map[string]int{
	"zero": 0, "at": 1, "v0": 2, "v1": 3,
	"a0": 4, "a1": 5, "a2": 6, "a3": 7,
	"t0": 8, "t1": 9, "t2": 10, "t3": 11,
	"t4": 12, "t5": 13, "t6": 14, "t7": 15,
	"s0": 16, "s1": 17, "s2": 18, "s3": 19,
	"s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"t8": 24, "t9": 25, "k0": 26, "k1": 27,
	"gp": 28, "sp": 29, "fp": 30, "ra": 31,
}

// Register indexes used outside the emulator.
const (
	RegV0 = 2
	RegA0 = 4
	RegS0 = 16
	RegSP = 29
)

type machineState struct {
	PC        uint32
	Registers [32]uint32
	Memory    map[uint32]byte

	Halted bool
	Steps  uint64
}

func (s *machineState) writeMemory(addr uint32, data byte) {
	s.Memory[addr] = data
	Trace("Memory",
		"Behavior", "WriteMemory",
		"Data", data,
		"Addr", addr,
	)
}

func newMachineState(memoryBase uint32) machineState {
	s := machineState{
		Memory: make(map[uint32]byte),
	}
	s.Registers[RegSP] = memoryBase
	return s
}

type instEmulator struct {
	stdin  *bufio.Reader
	stdout io.Writer
	labels map[string]int
}

// RunInst executes one instruction and advances the PC.
func (i instEmulator) RunInst(inst Inst, state *machineState) error {
	instFuncs := map[string]func([]string, *machineState) error{
		"add":     i.runAdd,
		"addi":    i.runAddi,
		"addiu":   i.runAddi,
		"sub":     i.runSub,
		"subi":    i.runSubi,
		"lb":      i.runLb,
		"lbu":     i.runLbu,
		"sb":      i.runSb,
		"li":      i.runLi,
		"move":    i.runMove,
		"beq":     i.runBeq,
		"bne":     i.runBne,
		"beqz":    i.runBeqz,
		"bnez":    i.runBnez,
		"j":       i.runJ,
		"nop":     func(_ []string, state *machineState) error { state.PC++; return nil },
		"syscall": func(_ []string, state *machineState) error { return i.runSyscall(state) },
	}

	instFunc, ok := instFuncs[inst.OpCode]
	if !ok {
		return fmt.Errorf("%w '%s' at PC %d", ErrUnknownInstruction, inst.OpCode, state.PC)
	}

	if err := instFunc(inst.Operands, state); err != nil {
		return fmt.Errorf("line %d (%s): %w", inst.Line, inst, err)
	}

	state.Registers[0] = 0
	return nil
}

func (i instEmulator) runAdd(ops []string, state *machineState) error {
	return i.arith(ops, state, func(a, b uint32) uint32 { return a + b }, false)
}

func (i instEmulator) runAddi(ops []string, state *machineState) error {
	return i.arith(ops, state, func(a, b uint32) uint32 { return a + b }, true)
}

func (i instEmulator) runSub(ops []string, state *machineState) error {
	return i.arith(ops, state, func(a, b uint32) uint32 { return a - b }, false)
}

func (i instEmulator) runSubi(ops []string, state *machineState) error {
	return i.arith(ops, state, func(a, b uint32) uint32 { return a - b }, true)
}

func (i instEmulator) arith(
	ops []string,
	state *machineState,
	f func(a, b uint32) uint32,
	immediate bool,
) error {
	dst, err := parseRegister(ops[0])
	if err != nil {
		return err
	}
	a, err := i.readRegister(ops[1], state)
	if err != nil {
		return err
	}

	var b uint32
	if immediate {
		b, err = parseImmediate(ops[2])
	} else {
		b, err = i.readRegister(ops[2], state)
	}
	if err != nil {
		return err
	}

	state.Registers[dst] = f(a, b)
	state.PC++
	return nil
}

func (i instEmulator) runLbu(ops []string, state *machineState) error {
	dst, addr, err := i.memOperands(ops, state)
	if err != nil {
		return err
	}
	state.Registers[dst] = uint32(state.Memory[addr])
	state.PC++
	return nil
}

func (i instEmulator) runLb(ops []string, state *machineState) error {
	dst, addr, err := i.memOperands(ops, state)
	if err != nil {
		return err
	}
	state.Registers[dst] = uint32(int32(int8(state.Memory[addr])))
	state.PC++
	return nil
}

func (i instEmulator) runSb(ops []string, state *machineState) error {
	src, addr, err := i.memOperands(ops, state)
	if err != nil {
		return err
	}
	state.writeMemory(addr, byte(state.Registers[src]))
	state.PC++
	return nil
}

// memOperands decodes "$rt, off($rs)" into the register index of rt and
// the effective address.
func (i instEmulator) memOperands(ops []string, state *machineState) (int, uint32, error) {
	reg, err := parseRegister(ops[0])
	if err != nil {
		return 0, 0, err
	}

	mem := ops[1]
	open := strings.IndexByte(mem, '(')
	if open < 0 || !strings.HasSuffix(mem, ")") {
		return 0, 0, fmt.Errorf("%w: %q is not off($reg)", ErrBadOperand, mem)
	}

	var off uint32
	if s := strings.TrimSpace(mem[:open]); s != "" {
		off, err = parseImmediate(s)
		if err != nil {
			return 0, 0, err
		}
	}

	base, err := i.readRegister(mem[open+1:len(mem)-1], state)
	if err != nil {
		return 0, 0, err
	}

	return reg, base + off, nil
}

func (i instEmulator) runLi(ops []string, state *machineState) error {
	dst, err := parseRegister(ops[0])
	if err != nil {
		return err
	}
	v, err := parseImmediate(ops[1])
	if err != nil {
		return err
	}
	state.Registers[dst] = v
	state.PC++
	return nil
}

func (i instEmulator) runMove(ops []string, state *machineState) error {
	dst, err := parseRegister(ops[0])
	if err != nil {
		return err
	}
	v, err := i.readRegister(ops[1], state)
	if err != nil {
		return err
	}
	state.Registers[dst] = v
	state.PC++
	return nil
}

func (i instEmulator) runBeq(ops []string, state *machineState) error {
	return i.branch(ops, state, func(a, b uint32) bool { return a == b })
}

func (i instEmulator) runBne(ops []string, state *machineState) error {
	return i.branch(ops, state, func(a, b uint32) bool { return a != b })
}

func (i instEmulator) runBeqz(ops []string, state *machineState) error {
	return i.branch([]string{ops[0], "$zero", ops[1]}, state,
		func(a, b uint32) bool { return a == b })
}

func (i instEmulator) runBnez(ops []string, state *machineState) error {
	return i.branch([]string{ops[0], "$zero", ops[1]}, state,
		func(a, b uint32) bool { return a != b })
}

func (i instEmulator) branch(
	ops []string,
	state *machineState,
	taken func(a, b uint32) bool,
) error {
	a, err := i.readRegister(ops[0], state)
	if err != nil {
		return err
	}
	b, err := i.readRegister(ops[1], state)
	if err != nil {
		return err
	}

	if taken(a, b) {
		return i.Jump(ops[2], state)
	}

	state.PC++
	return nil
}

func (i instEmulator) runJ(ops []string, state *machineState) error {
	return i.Jump(ops[0], state)
}

// Jump moves the PC to the instruction marked by the label.
func (i instEmulator) Jump(label string, state *machineState) error {
	target, ok := i.labels[label]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndefinedLabel, label)
	}
	state.PC = uint32(target)
	return nil
}

func (i instEmulator) runSyscall(state *machineState) error {
	service := state.Registers[RegV0]
	arg := state.Registers[RegA0]

	switch service {
	case instr.SysPrintInt:
		if _, err := fmt.Fprintf(i.stdout, "%d", int32(arg)); err != nil {
			return err
		}
	case instr.SysReadInt:
		v, err := i.readInt()
		if err != nil {
			return err
		}
		state.Registers[RegV0] = uint32(v)
	case instr.SysExit:
		state.Halted = true
	case instr.SysPrintChar:
		if _, err := i.stdout.Write([]byte{byte(arg)}); err != nil {
			return err
		}
	case instr.SysReadChar:
		b, err := i.stdin.ReadByte()
		switch {
		case errors.Is(err, io.EOF):
			b = 0
		case err != nil:
			return err
		}
		state.Registers[RegV0] = uint32(b)
	default:
		return fmt.Errorf("%w %d", ErrUnknownSyscall, service)
	}

	Trace("Syscall",
		"Service", service,
		"Arg", arg,
		"PC", state.PC,
	)

	state.PC++
	return nil
}

// readInt reads one line from stdin and parses it as a decimal integer.
// End of input reads as 0.
func (i instEmulator) readInt() (int32, error) {
	line, err := i.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}

	v, err := strconv.ParseInt(line, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrBadOperand, line)
	}

	return int32(v), nil
}

func (i instEmulator) readRegister(operand string, state *machineState) (uint32, error) {
	idx, err := parseRegister(operand)
	if err != nil {
		return 0, err
	}
	return state.Registers[idx], nil
}

func parseRegister(operand string) (int, error) {
	operand = strings.TrimSpace(operand)
	if !strings.HasPrefix(operand, "$") {
		return 0, fmt.Errorf("%w: %q is not a register", ErrBadOperand, operand)
	}

	name := operand[1:]
	if idx, ok := registerNames[name]; ok {
		return idx, nil
	}

	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 || idx >= 32 {
		return 0, fmt.Errorf("%w: unknown register %s", ErrBadOperand, operand)
	}

	return idx, nil
}

func parseImmediate(operand string) (uint32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(operand), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad immediate %q", ErrBadOperand, operand)
	}
	return uint32(v), nil
}
