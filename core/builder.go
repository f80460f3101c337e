package core

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
)

// DefaultMemoryBase is the initial $sp of the SPIM stack segment. The tape
// grows upwards from it.
const DefaultMemoryBase uint32 = 0x7fffeffc

// Builder can create new machines.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	stdin      io.Reader
	stdout     io.Writer
	logger     *slog.Logger
	memoryBase uint32
	maxSteps   uint64
}

// NewBuilder returns a builder with default settings.
func NewBuilder() Builder {
	return Builder{
		freq:       1 * sim.GHz,
		memoryBase: DefaultMemoryBase,
		maxSteps:   100_000_000,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the machine.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithStdin sets the reader that backs the read syscalls.
func (b Builder) WithStdin(r io.Reader) Builder {
	b.stdin = r
	return b
}

// WithStdout sets the writer that backs the print syscalls.
func (b Builder) WithStdout(w io.Writer) Builder {
	b.stdout = w
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithMemoryBase sets the initial tape pointer.
func (b Builder) WithMemoryBase(base uint32) Builder {
	b.memoryBase = base
	return b
}

// WithMaxSteps bounds the number of executed instructions. Zero means no
// bound.
func (b Builder) WithMaxSteps(n uint64) Builder {
	b.maxSteps = n
	return b
}

// Build creates a machine.
func (b Builder) Build(name string) *Machine {
	if b.freq == 0 {
		panic("machine frequency must be positive")
	}

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	stdin := b.stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	stdout := b.stdout
	if stdout == nil {
		stdout = io.Discard
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Machine{
		engine:     engine,
		logger:     logger,
		maxSteps:   b.maxSteps,
		memoryBase: b.memoryBase,
		state:      newMachineState(b.memoryBase),
		emu: instEmulator{
			stdin:  bufio.NewReader(stdin),
			stdout: stdout,
		},
	}
	m.TickingComponent = sim.NewTickingComponent(name, engine, b.freq, m)

	return m
}
