package verify

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/sarchlab/bfasm/core"
	"github.com/sarchlab/bfasm/instr"
)

var loopLabel = regexp.MustCompile(`^(` + instr.StartPrefix + `|` + instr.EndPrefix + `)(\d+)$`)

type loopRefs struct {
	start, end int // number of definitions
	beq, bne   int // number of references
}

// RunLint performs static checks on a compiled program.
// LABEL checks: every loop id has one START and one END label, one beq to
// its END and one bne to its START, and the ids are exactly 1..k.
// NESTING checks: ids open in increasing order and close innermost first.
// EXIT checks: one exit sequence, placed last.
// Returns a list of issues found, or empty list if no issues.
func RunLint(p *core.Program) []Issue {
	var issues []Issue

	refs := make(map[uint32]*loopRefs)
	get := func(id uint32) *loopRefs {
		r, ok := refs[id]
		if !ok {
			r = &loopRefs{}
			refs[id] = r
		}
		return r
	}

	// LABEL: definitions
	for _, name := range p.LabelOrder {
		kind, id, ok := parseLoopLabel(name)
		if !ok {
			issues = append(issues, Issue{
				Type:    IssueLabel,
				Line:    -1,
				Label:   name,
				Message: fmt.Sprintf("Label %s is not a loop label", name),
			})
			continue
		}

		r := get(id)
		if kind == instr.StartPrefix {
			r.start++
		} else {
			r.end++
		}
	}

	// LABEL: references
	for _, inst := range p.Insts {
		var target string
		switch inst.OpCode {
		case "beq", "bne":
			target = inst.Operands[2]
		case "beqz", "bnez":
			target = inst.Operands[1]
		default:
			continue
		}

		kind, id, ok := parseLoopLabel(target)
		if !ok {
			continue
		}

		r := get(id)
		switch {
		case inst.OpCode == "beq" && kind == instr.EndPrefix:
			r.beq++
		case inst.OpCode == "bne" && kind == instr.StartPrefix:
			r.bne++
		default:
			issues = append(issues, Issue{
				Type:    IssueLabel,
				Line:    inst.Line,
				Label:   target,
				Message: fmt.Sprintf("Unexpected branch %s to %s", inst.OpCode, target),
			})
		}
	}

	ids := make([]uint32, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for i, id := range ids {
		r := refs[id]
		if want := uint32(i + 1); id != want {
			issues = append(issues, Issue{
				Type:    IssueLabel,
				Line:    -1,
				Label:   instr.StartLabel(id),
				Message: fmt.Sprintf("Loop id %d found where %d was expected", id, want),
				Details: map[string]interface{}{"id": id, "expected": want},
			})
		}

		if r.start != 1 || r.end != 1 || r.beq != 1 || r.bne != 1 {
			issues = append(issues, Issue{
				Type:  IssueLabel,
				Line:  -1,
				Label: instr.StartLabel(id),
				Message: fmt.Sprintf(
					"Loop %d has %d START, %d END, %d beq and %d bne; expected one of each",
					id, r.start, r.end, r.beq, r.bne,
				),
				Details: map[string]interface{}{
					"start": r.start,
					"end":   r.end,
					"beq":   r.beq,
					"bne":   r.bne,
				},
			})
		}
	}

	issues = append(issues, checkNesting(p)...)
	issues = append(issues, checkExit(p)...)

	return issues
}

// checkNesting walks the label definitions as a bracket sequence. START
// labels must appear in increasing id order and every END must close the
// innermost open loop.
func checkNesting(p *core.Program) []Issue {
	var (
		issues []Issue
		stack  []uint32
		last   uint32
	)

	for _, name := range p.LabelOrder {
		kind, id, ok := parseLoopLabel(name)
		if !ok {
			continue
		}

		if kind == instr.StartPrefix {
			if id <= last {
				issues = append(issues, Issue{
					Type:    IssueNesting,
					Line:    -1,
					Label:   name,
					Message: fmt.Sprintf("Loop %d opens after loop %d", id, last),
				})
			}
			last = id
			stack = append(stack, id)
			continue
		}

		if len(stack) == 0 || stack[len(stack)-1] != id {
			var top interface{} = "none"
			if len(stack) > 0 {
				top = stack[len(stack)-1]
			}
			issues = append(issues, Issue{
				Type:    IssueNesting,
				Line:    -1,
				Label:   name,
				Message: fmt.Sprintf("Loop %d closes while the innermost open loop is %v", id, top),
			})
			continue
		}
		stack = stack[:len(stack)-1]
	}

	for _, id := range stack {
		issues = append(issues, Issue{
			Type:    IssueNesting,
			Line:    -1,
			Label:   instr.StartLabel(id),
			Message: fmt.Sprintf("Loop %d is never closed", id),
		})
	}

	return issues
}

// checkExit requires exactly one "li $v0, 10" and that it and its syscall
// are the last two instructions.
func checkExit(p *core.Program) []Issue {
	var (
		issues []Issue
		exits  []int
	)

	for i, inst := range p.Insts {
		if isExitLoad(inst) {
			exits = append(exits, i)
		}
	}

	n := len(p.Insts)
	switch {
	case len(exits) == 0:
		issues = append(issues, Issue{
			Type:    IssueExit,
			Line:    -1,
			Message: "Program has no exit syscall",
		})
	case len(exits) > 1:
		lines := make([]int, len(exits))
		for i, idx := range exits {
			lines[i] = p.Insts[idx].Line
		}
		issues = append(issues, Issue{
			Type:    IssueExit,
			Line:    p.Insts[exits[1]].Line,
			Message: fmt.Sprintf("Program has %d exit sequences", len(exits)),
			Details: map[string]interface{}{"lines": lines},
		})
	case exits[0] != n-2 || p.Insts[n-1].OpCode != "syscall":
		issues = append(issues, Issue{
			Type:    IssueExit,
			Line:    p.Insts[exits[0]].Line,
			Message: "Exit sequence is not the last instruction",
		})
	}

	return issues
}

func isExitLoad(inst core.Inst) bool {
	if inst.OpCode != "li" || inst.Operands[0] != "$v0" {
		return false
	}
	v, err := strconv.ParseInt(inst.Operands[1], 0, 32)
	return err == nil && v == instr.SysExit
}

func parseLoopLabel(name string) (kind string, id uint32, ok bool) {
	m := loopLabel.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return "", 0, false
	}
	return m[1], uint32(n), true
}
