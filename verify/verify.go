// Package verify checks compiled programs.
//
// This package implements two complementary verification stages:
//
// 1. Static Lint (lint.go): structural checks on the emitted assembly
//   - LABEL checks: every loop id 1..k has one START/END label pair, one
//     beq to its END and one bne to its START
//   - NESTING checks: loops open in id order and close innermost first
//   - EXIT checks: one exit syscall, at the very end
//
// 2. Functional Simulator (funcsim.go): a direct Brainfuck interpreter
//   - Runs the source program without compiling it
//   - Serves as the golden model for the output of the compiled program
//     running on core.Machine
//
// # Usage Example
//
//	report := verify.GenerateReport(src, input, verify.Options{MaxSteps: 1e6})
//	report.WriteReport(os.Stdout)
//	if !report.Passed() {
//	    os.Exit(1)
//	}
//
// # Cell model
//
// Both the machine and the golden model use byte cells that wrap, an
// unbounded tape in both directions, and read 0 at end of input.
package verify

// IssueType categorizes lint issues
type IssueType string

const (
	IssueLabel   IssueType = "LABEL"   // Missing, duplicated or stray loop label
	IssueNesting IssueType = "NESTING" // Loop order or nesting broken
	IssueExit    IssueType = "EXIT"    // Missing, duplicated or misplaced exit
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType              // LABEL, NESTING or EXIT
	Line    int                    // Source line of the assembly (-1 if not applicable)
	Label   string                 // Label concerned, if any
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}
