// Command bfc translates a Brainfuck program into MIPS assembly written
// next to it.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bfasm/api"
	"github.com/sarchlab/bfasm/config"
	"github.com/sarchlab/bfasm/core"
	"github.com/sarchlab/bfasm/verify"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	var (
		cfgPath string
		run     bool
		check   bool
	)

	cmd := &cobra.Command{
		Use:   "bfc <file.bf>",
		Short: "Translate a Brainfuck program into MIPS assembly",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			logger := cfg.Log.NewLogger(os.Stderr)
			slog.SetDefault(logger)

			driver := api.DriverBuilder{}.
				WithLogger(logger).
				WithExtensions(cfg.InputExt, cfg.OutputExt).
				Build()

			outPath, err := driver.CompileFile(args[0])
			if err != nil {
				return err
			}

			if check {
				if err := verifyFile(args[0], cfg); err != nil {
					return err
				}
			}

			if run {
				return runFile(outPath, cfg, logger)
			}

			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().BoolVar(&run, "run", false, "run the generated program on the machine")
	cmd.Flags().BoolVar(&check, "verify", false, "check the generated program against the golden model")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bfc:", err)

		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprint(os.Stderr, cmd.UsageString())
			atexit.Exit(exitUsage)
		}
		atexit.Exit(exitFailure)
	}

	atexit.Exit(0)
}

func verifyFile(path string, cfg config.Config) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	report := verify.GenerateReport(src, nil, verify.Options{
		MaxSteps:   cfg.Machine.MaxSteps,
		MemoryBase: cfg.Machine.MemoryBase,
	})
	report.WriteReport(os.Stderr)

	if !report.Passed() {
		return fmt.Errorf("%s: verification failed", path)
	}
	return nil
}

func runFile(asmPath string, cfg config.Config, logger *slog.Logger) error {
	program, err := core.LoadProgramFile(asmPath)
	if err != nil {
		return err
	}

	m := core.NewBuilder().
		WithEngine(sim.NewSerialEngine()).
		WithFreq(sim.Freq(cfg.Machine.FreqMHz) * sim.MHz).
		WithStdin(os.Stdin).
		WithStdout(os.Stdout).
		WithLogger(logger).
		WithMemoryBase(cfg.Machine.MemoryBase).
		WithMaxSteps(cfg.Machine.MaxSteps).
		Build("BFC.Machine")

	err = m.RunProgram(program)
	core.LogState(m)

	return err
}
