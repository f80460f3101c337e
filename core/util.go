package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

// LevelTrace is below debug and logs every syscall.
const (
	LevelTrace slog.Level = slog.LevelDebug - 4
)

// Trace logs at LevelTrace through the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// PrintState renders the registers the templates touch and a window of the
// tape around the current pointer.
func PrintState(w io.Writer, m *Machine, window int) {
	fmt.Fprintf(w, "==============State@%s==============\n", m.Name())

	regTable := table.NewWriter()
	regTable.SetTitle("Registers")
	regTable.AppendHeader(table.Row{"PC", "Steps", "$v0", "$a0", "$s0", "$sp"})
	regTable.AppendRow(table.Row{
		m.PC(),
		m.Steps(),
		m.Register(RegV0),
		m.Register(RegA0),
		m.Register(RegS0),
		fmt.Sprintf("0x%08x", m.Register(RegSP)),
	})
	fmt.Fprintln(w, regTable.Render())
	fmt.Fprintln(w)

	sp := m.Register(RegSP)
	tapeTable := table.NewWriter()
	tapeTable.SetTitle("Tape")

	header := table.Row{"Cell"}
	values := table.Row{"Value"}
	for off := -window; off <= window; off++ {
		addr := sp + uint32(off)
		cell := int64(addr) - int64(m.memoryBase)
		label := fmt.Sprintf("%d", cell)
		if off == 0 {
			label = fmt.Sprintf("[%d]", cell)
		}
		header = append(header, label)
		values = append(values, m.ReadMemory(addr))
	}
	tapeTable.AppendHeader(header)
	tapeTable.AppendRow(values)

	fmt.Fprintln(w, tapeTable.Render())
	fmt.Fprintln(w, "================================================")
}

// LogState logs a checkpoint of the machine at debug level.
func LogState(m *Machine) {
	m.logger.Debug("StateCheckpoint",
		"Machine", m.Name(),
		"PC", m.PC(),
		"Steps", m.Steps(),
		"Registers", m.state.Registers,
	)
}
