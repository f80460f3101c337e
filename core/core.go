// Package core implements a small MIPS machine that runs the assembly the
// compiler produces.
//
// The machine is an akita ticking component. Every tick executes one
// instruction; the component stops ticking when the program exits through
// syscall 10, fails, or exhausts its step budget.
package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
)

// ErrStepLimit reports that a program ran longer than the machine allows.
var ErrStepLimit = errors.New("step limit exceeded")

// HookPosInstRetired marks when an instruction finishes executing. The hook
// item is the Inst and the detail is the number of retired instructions.
var HookPosInstRetired = &sim.HookPos{Name: "Inst Retired"}

// Machine runs one Program.
type Machine struct {
	*sim.TickingComponent

	engine   sim.Engine
	logger   *slog.Logger
	maxSteps uint64

	memoryBase uint32
	program    *Program
	state      machineState
	emu        instEmulator
	err        error
}

// LoadProgram resets the machine and maps the program into it.
func (m *Machine) LoadProgram(p *Program) {
	m.program = p
	m.state = newMachineState(m.memoryBase)
	m.emu.labels = p.Labels
	m.err = nil
}

// Run executes the loaded program to completion.
func (m *Machine) Run() error {
	if m.program == nil {
		return errors.New("no program loaded")
	}

	m.TickLater()
	if err := m.engine.Run(); err != nil {
		return err
	}

	if m.err != nil {
		return m.err
	}

	m.logger.Debug("program finished",
		"machine", m.Name(),
		"steps", m.state.Steps,
	)

	return nil
}

// RunProgram is LoadProgram followed by Run.
func (m *Machine) RunProgram(p *Program) error {
	m.LoadProgram(p)
	return m.Run()
}

// Tick runs one instruction.
func (m *Machine) Tick() (madeProgress bool) {
	if m.state.Halted || m.err != nil {
		return false
	}

	if m.maxSteps > 0 && m.state.Steps >= m.maxSteps {
		m.err = fmt.Errorf("%w: %d", ErrStepLimit, m.maxSteps)
		return false
	}

	if int(m.state.PC) >= len(m.program.Insts) {
		m.err = fmt.Errorf("%w: %d", ErrPCOutOfRange, m.state.PC)
		return false
	}

	inst := m.program.Insts[m.state.PC]
	if err := m.emu.RunInst(inst, &m.state); err != nil {
		m.err = err
		return false
	}
	m.state.Steps++

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m,
			Pos:    HookPosInstRetired,
			Item:   inst,
			Detail: m.state.Steps,
		})
	}

	if m.state.Halted {
		return false
	}

	return true
}

// Halted reports whether the program exited normally.
func (m *Machine) Halted() bool {
	return m.state.Halted
}

// Steps returns the number of instructions executed.
func (m *Machine) Steps() uint64 {
	return m.state.Steps
}

// PC returns the index of the next instruction.
func (m *Machine) PC() uint32 {
	return m.state.PC
}

// Register returns the value of register idx.
func (m *Machine) Register(idx int) uint32 {
	return m.state.Registers[idx]
}

// ReadMemory returns the byte at addr. Unwritten memory reads as zero.
func (m *Machine) ReadMemory(addr uint32) byte {
	return m.state.Memory[addr]
}

// Tape returns n cells starting at the initial tape pointer.
func (m *Machine) Tape(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = m.state.Memory[m.memoryBase+uint32(i)]
	}
	return out
}

// MemoryBase returns the initial value of $sp.
func (m *Machine) MemoryBase() uint32 {
	return m.memoryBase
}
