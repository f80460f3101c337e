package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bfasm/compiler"
	"github.com/sarchlab/bfasm/core"
)

//go:embed hello.bf
var source []byte

func main() {
	asm, err := compiler.CompileBytes(source)
	if err != nil {
		atexit.Fatalf("compile: %v", err)
	}

	program, err := core.ParseProgram(string(asm))
	if err != nil {
		atexit.Fatalf("parse: %v", err)
	}

	stats := compiler.Analyze(source)
	fmt.Printf("%d commands, %d loops (max depth %d), %d instructions\n",
		stats.Total(), stats.Loops, stats.MaxDepth, len(program.Insts))

	engine := sim.NewSerialEngine()

	machine := core.NewBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithStdout(os.Stdout).
		Build("Machine")

	if err := machine.RunProgram(program); err != nil {
		atexit.Fatalf("run: %v", err)
	}

	core.PrintState(os.Stdout, machine, 8)

	atexit.Exit(0)
}
