package main

import (
	_ "embed"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bfasm/compiler"
	"github.com/sarchlab/bfasm/core"
)

//go:embed cat.bf
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

	machine := core.NewBuilder().
		WithEngine(sim.NewSerialEngine()).
		WithFreq(1 * sim.GHz).
		WithStdin(os.Stdin).
		WithStdout(os.Stdout).
		Build("Machine")

	if err := machine.RunProgram(program); err != nil {
		atexit.Fatalf("run: %v", err)
	}

	atexit.Exit(0)
}
