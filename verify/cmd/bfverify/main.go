// Command bfverify compiles a Brainfuck program, checks the generated
// assembly and compares the machine run against the golden interpreter.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bfasm/core"
	"github.com/sarchlab/bfasm/verify"
)

func main() {
	var (
		inputPath  string
		reportPath string
		maxSteps   uint64
		dump       bool
		trace      bool
	)

	cmd := &cobra.Command{
		Use:           "bfverify <program.bf>",
		Short:         "Verify the assembly generated for a Brainfuck program",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if trace {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
					&slog.HandlerOptions{Level: core.LevelTrace})))
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var input []byte
			if inputPath != "" {
				input, err = os.ReadFile(inputPath)
				if err != nil {
					return err
				}
			}

			report := verify.GenerateReport(src, input, verify.Options{
				MaxSteps:   maxSteps,
				MemoryBase: core.DefaultMemoryBase,
				Trace:      trace,
			})

			if dump && report.Program != nil {
				core.PrintProgram(os.Stdout, report.Program)
				pp.Println(report.Program.Labels)
			}

			report.WriteReport(os.Stdout)

			if reportPath != "" {
				if err := report.SaveReportToFile(reportPath); err != nil {
					return err
				}
			}

			if !report.Passed() {
				return fmt.Errorf("%s: verification failed", args[0])
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "file fed to the program as stdin")
	cmd.Flags().StringVarP(&reportPath, "report", "o", "", "also write the report to this file")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 10_000_000, "step limit of both simulations")
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the parsed program")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every golden model step")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
