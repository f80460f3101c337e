package instr_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bfasm/bf"
	"github.com/sarchlab/bfasm/instr"
)

var _ = Describe("Template table", func() {
	DescribeTable("emitting a flat command",
		func(c bf.Command, want string) {
			t, ok := instr.Lookup(c)
			Expect(ok).To(BeTrue())

			var buf bytes.Buffer
			Expect(t.Emit(&buf)).To(Succeed())
			Expect(buf.String()).To(Equal(want))
		},
		Entry(">", bf.IncPtr, "addi $sp, $sp, 1\n"),
		Entry("<", bf.DecPtr, "subi $sp, $sp, 1\n"),
		Entry("+", bf.IncData, "lbu $s0, 0($sp)\naddi $s0, $s0, 1\nsb $s0, 0($sp)\n"),
		Entry("-", bf.DecData, "lbu $s0, 0($sp)\nsubi $s0, $s0, 1\nsb $s0, 0($sp)\n"),
		Entry(".", bf.Output, "lbu $a0, 0($sp)\nli $v0, 11\nsyscall\n"),
		Entry(",", bf.Input, "li $v0, 12\nsyscall\nsb $v0, 0($sp)\n"),
	)

	It("should have no template for brackets", func() {
		_, ok := instr.Lookup(bf.LoopOpen)
		Expect(ok).To(BeFalse())
		_, ok = instr.Lookup(bf.LoopClose)
		Expect(ok).To(BeFalse())
		_, ok = instr.Lookup(bf.None)
		Expect(ok).To(BeFalse())
	})

	It("should list six templates in command order", func() {
		tbl := instr.Table()
		Expect(tbl).To(HaveLen(6))
		Expect(tbl[0].Command).To(Equal(bf.IncPtr))
		Expect(tbl[5].Command).To(Equal(bf.Input))
	})

	It("should pair loop labels by id", func() {
		var buf bytes.Buffer
		Expect(instr.EmitPreamble(&buf, 7)).To(Succeed())
		Expect(instr.EmitPostamble(&buf, 7)).To(Succeed())
		Expect(buf.String()).To(Equal(
			"lbu $s0, 0($sp)\nbeq $s0, $0, LOOP_END7\nLOOP_START7:\n" +
				"lbu $s0, 0($sp)\nbne $s0, $0, LOOP_START7\nLOOP_END7:\n"))
	})

	It("should emit the exit syscall", func() {
		var buf bytes.Buffer
		Expect(instr.EmitTerminate(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal("li $v0, 10\nsyscall\n"))
	})
})
