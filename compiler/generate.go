package compiler

import (
	"fmt"
	"io"

	"github.com/sarchlab/bfasm/bf"
	"github.com/sarchlab/bfasm/instr"
)

// LoopContext is threaded through the recursive descent. Depth is the
// current nesting level (0 is the top level, not a loop). Count is the
// number of loops opened so far and is the source of label ids.
type LoopContext struct {
	Depth uint32
	Count uint32
}

type cursor struct {
	src []byte
	pos int
}

func (c *cursor) next() (byte, bool) {
	if c.pos >= len(c.src) {
		return 0, false
	}
	b := c.src[c.pos]
	c.pos++
	return b, true
}

type generator struct {
	w   io.Writer
	cur *cursor
}

// Generate writes the assembly of src to w as it walks the source. src
// must have passed IsValid; unbalanced input produces unspecified output.
// The first write error stops generation and is returned.
func Generate(w io.Writer, src []byte) error {
	g := &generator{
		w:   w,
		cur: &cursor{src: src},
	}

	_, err := g.translateLoop(LoopContext{}, 0)
	return err
}

// translateLoop emits one body. At depth 0 the body is the whole program;
// otherwise it is the body of loop id, whose '[' was just consumed.
func (g *generator) translateLoop(ctx LoopContext, id uint32) (LoopContext, error) {
	if ctx.Depth > 0 {
		if err := instr.EmitPreamble(g.w, id); err != nil {
			return ctx, g.writeErr(err)
		}
	}

body:
	for {
		b, ok := g.cur.next()
		if !ok {
			break
		}

		switch cmd := bf.FromByte(b); cmd {
		case bf.LoopOpen:
			ctx.Count++
			inner, err := g.translateLoop(LoopContext{
				Depth: ctx.Depth + 1,
				Count: ctx.Count,
			}, ctx.Count)
			if err != nil {
				return ctx, err
			}
			ctx.Count = inner.Count
		case bf.LoopClose:
			break body
		case bf.None:
			continue
		default:
			t, _ := instr.Lookup(cmd)
			if err := t.Emit(g.w); err != nil {
				return ctx, g.writeErr(err)
			}
		}
	}

	if ctx.Depth > 0 {
		if err := instr.EmitPostamble(g.w, id); err != nil {
			return ctx, g.writeErr(err)
		}
		return LoopContext{Depth: ctx.Depth - 1, Count: ctx.Count}, nil
	}

	if err := instr.EmitTerminate(g.w); err != nil {
		return ctx, g.writeErr(err)
	}

	return ctx, nil
}

func (g *generator) writeErr(err error) error {
	return fmt.Errorf("%w at offset %d: %w", ErrWrite, g.cur.pos, err)
}
