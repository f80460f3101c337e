package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/bfasm/bf"
	"github.com/sarchlab/bfasm/compiler"
	"github.com/sarchlab/bfasm/core"
)

// Options control the simulation stages of a report.
type Options struct {
	MaxSteps   uint64
	MemoryBase uint32

	// Trace logs every golden model step at core.LevelTrace.
	Trace bool
}

// VerificationReport represents a complete verification report
type VerificationReport struct {
	Stats      compiler.Stats
	CompileErr error
	Assembly   []byte
	Program    *core.Program

	LintIssues    []Issue
	LabelIssues   []Issue
	NestingIssues []Issue
	ExitIssues    []Issue

	MachineOutput []byte
	MachineSteps  uint64
	MachineErr    error

	GoldenOutput []byte
	GoldenSteps  uint64
	GoldenErr    error

	OutputsMatch bool
}

// GenerateReport compiles src, lints the result, runs it on the machine and
// on the functional simulator with the same input, and compares outputs.
func GenerateReport(src, input []byte, opts Options) *VerificationReport {
	report := &VerificationReport{
		Stats: compiler.Analyze(src),
	}

	report.Assembly, report.CompileErr = compiler.CompileBytes(src)
	if report.CompileErr != nil {
		return report
	}

	report.Program, report.CompileErr = core.ParseProgram(string(report.Assembly))
	if report.CompileErr != nil {
		return report
	}

	// Run lint
	report.LintIssues = RunLint(report.Program)

	// Categorize issues
	for _, issue := range report.LintIssues {
		switch issue.Type {
		case IssueLabel:
			report.LabelIssues = append(report.LabelIssues, issue)
		case IssueNesting:
			report.NestingIssues = append(report.NestingIssues, issue)
		case IssueExit:
			report.ExitIssues = append(report.ExitIssues, issue)
		}
	}

	// Run the compiled program
	memoryBase := opts.MemoryBase
	if memoryBase == 0 {
		memoryBase = core.DefaultMemoryBase
	}
	var machineOut bytes.Buffer
	m := core.NewBuilder().
		WithEngine(sim.NewSerialEngine()).
		WithStdin(bytes.NewReader(input)).
		WithStdout(&machineOut).
		WithMemoryBase(memoryBase).
		WithMaxSteps(opts.MaxSteps).
		Build("Verify.Machine")
	report.MachineErr = m.RunProgram(report.Program)
	report.MachineOutput = machineOut.Bytes()
	report.MachineSteps = m.Steps()

	// Run the golden model
	fs, err := NewFunctionalSimulator(src)
	if err != nil {
		report.GoldenErr = err
		return report
	}
	if opts.Trace {
		fs.TraceStep = func(pc int, cmd bf.Command, ptr int, cell byte) {
			core.Trace("GoldenStep",
				"PC", pc,
				"Command", cmd,
				"Ptr", ptr,
				"Cell", cell,
			)
		}
	}
	report.GoldenOutput, report.GoldenErr = fs.Run(bytes.NewReader(input), opts.MaxSteps)
	report.GoldenSteps = fs.Steps()

	report.OutputsMatch = report.MachineErr == nil && report.GoldenErr == nil &&
		bytes.Equal(report.MachineOutput, report.GoldenOutput)

	return report
}

// Passed reports whether compilation, lint and simulation all succeeded.
func (r *VerificationReport) Passed() bool {
	return r.CompileErr == nil && len(r.LintIssues) == 0 && r.OutputsMatch
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "BRAINFUCK PROGRAM VERIFICATION REPORT")
	fmt.Fprintln(w, separator)

	src := table.NewWriter()
	src.SetTitle("Source")
	src.AppendHeader(table.Row{"Command", "Count"})
	for _, c := range bf.Commands {
		src.AppendRow(table.Row{fmt.Sprintf("%c %s", c.Symbol(), c.Name()), r.Stats.Commands[c]})
	}
	src.AppendFooter(table.Row{"loops / max depth", fmt.Sprintf("%d / %d", r.Stats.Loops, r.Stats.MaxDepth)})
	fmt.Fprintln(w, src.Render())

	// STAGE 0: COMPILE
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 0: COMPILATION")
	fmt.Fprintln(w, separator)
	if r.CompileErr != nil {
		fmt.Fprintf(w, "⚠ Compilation failed: %v\n", r.CompileErr)
		return
	}
	fmt.Fprintf(w, "✓ %d instructions, %d labels\n", len(r.Program.Insts), len(r.Program.Labels))

	// STAGE 1: LINT
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 1: STATIC LINT CHECKS")
	fmt.Fprintln(w, separator)

	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "✓ No lint issues found!")
	} else {
		fmt.Fprintf(w, "⚠ Found %d lint issues:\n", len(r.LintIssues))
		issues := table.NewWriter()
		issues.AppendHeader(table.Row{"#", "Type", "Line", "Label", "Message"})
		for i, issue := range r.LintIssues {
			issues.AppendRow(table.Row{i + 1, issue.Type, issue.Line, issue.Label, issue.Message})
		}
		fmt.Fprintln(w, issues.Render())
	}

	// STAGE 2: SIMULATION
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 2: SIMULATION")
	fmt.Fprintln(w, separator)

	sims := table.NewWriter()
	sims.AppendHeader(table.Row{"Model", "Steps", "Output bytes", "Result"})
	sims.AppendRow(table.Row{"machine", r.MachineSteps, len(r.MachineOutput), status(r.MachineErr)})
	sims.AppendRow(table.Row{"golden", r.GoldenSteps, len(r.GoldenOutput), status(r.GoldenErr)})
	fmt.Fprintln(w, sims.Render())

	// STAGE 3: SUMMARY
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "VERIFICATION SUMMARY")
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Lint Result: %d issues detected (%d LABEL, %d NESTING, %d EXIT)\n",
		len(r.LintIssues), len(r.LabelIssues), len(r.NestingIssues), len(r.ExitIssues))
	if r.OutputsMatch {
		fmt.Fprintln(w, "Output Result: machine output matches the golden model")
	} else {
		fmt.Fprintln(w, "Output Result: MISMATCH")
		fmt.Fprintf(w, "  machine: %q\n", r.MachineOutput)
		fmt.Fprintf(w, "  golden:  %q\n", r.GoldenOutput)
	}

	if r.Passed() {
		fmt.Fprintln(w, "✓ PROGRAM PASSED ALL CHECKS")
	}

	fmt.Fprintln(w)
}

func status(err error) string {
	if err == nil {
		return "SUCCESS"
	}
	return "FAILED: " + err.Error()
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
