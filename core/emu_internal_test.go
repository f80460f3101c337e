package core

import (
	"bufio"
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("InstEmulator", func() {
	var (
		ie  instEmulator
		s   machineState
		out *bytes.Buffer
	)

	run := func(text string) error {
		inst, err := parseInst(text, 1)
		Expect(err).NotTo(HaveOccurred())
		return ie.RunInst(inst, &s)
	}

	BeforeEach(func() {
		out = new(bytes.Buffer)
		ie = instEmulator{
			stdin:  bufio.NewReader(strings.NewReader("A")),
			stdout: out,
			labels: map[string]int{"L": 7},
		}
		s = newMachineState(1000)
	})

	Context("when running arithmetic", func() {
		It("should add an immediate", func() {
			Expect(run("addi $sp, $sp, 1")).To(Succeed())
			Expect(s.Registers[RegSP]).To(Equal(uint32(1001)))
			Expect(s.PC).To(Equal(uint32(1)))
		})

		It("should subtract an immediate and wrap", func() {
			Expect(run("subi $s0, $s0, 1")).To(Succeed())
			Expect(s.Registers[RegS0]).To(Equal(uint32(0xffffffff)))
		})

		It("should keep $0 at zero", func() {
			Expect(run("addi $0, $0, 5")).To(Succeed())
			Expect(s.Registers[0]).To(BeZero())
		})
	})

	Context("when accessing memory", func() {
		It("should store the low byte", func() {
			s.Registers[RegS0] = 0x1ff
			Expect(run("sb $s0, 0($sp)")).To(Succeed())
			Expect(s.Memory[1000]).To(Equal(byte(0xff)))
		})

		It("should load unsigned bytes", func() {
			s.Memory[1002] = 0xfe
			Expect(run("lbu $s0, 2($sp)")).To(Succeed())
			Expect(s.Registers[RegS0]).To(Equal(uint32(0xfe)))
		})

		It("should sign extend lb", func() {
			s.Memory[1000] = 0xfe
			Expect(run("lb $s0, ($sp)")).To(Succeed())
			Expect(int32(s.Registers[RegS0])).To(Equal(int32(-2)))
		})

		It("should reject a malformed address", func() {
			Expect(run("lbu $s0, $sp")).To(MatchError(ErrBadOperand))
		})
	})

	Context("when branching", func() {
		It("should jump when beq holds", func() {
			Expect(run("beq $s0, $0, L")).To(Succeed())
			Expect(s.PC).To(Equal(uint32(7)))
		})

		It("should fall through when bne fails", func() {
			Expect(run("bne $s0, $0, L")).To(Succeed())
			Expect(s.PC).To(Equal(uint32(1)))
		})
	})

	Context("when calling the system", func() {
		It("should print a character", func() {
			s.Registers[RegV0] = 11
			s.Registers[RegA0] = 'h'
			Expect(run("syscall")).To(Succeed())
			Expect(out.String()).To(Equal("h"))
		})

		It("should read a character and return 0 at end of input", func() {
			s.Registers[RegV0] = 12
			Expect(run("syscall")).To(Succeed())
			Expect(s.Registers[RegV0]).To(Equal(uint32('A')))

			s.Registers[RegV0] = 12
			Expect(run("syscall")).To(Succeed())
			Expect(s.Registers[RegV0]).To(BeZero())
		})

		It("should print an integer", func() {
			s.Registers[RegV0] = 1
			s.Registers[RegA0] = uint32(0xffffffff)
			Expect(run("syscall")).To(Succeed())
			Expect(out.String()).To(Equal("-1"))
		})

		It("should read an integer line", func() {
			ie.stdin = bufio.NewReader(strings.NewReader("42\n"))
			s.Registers[RegV0] = 5
			Expect(run("syscall")).To(Succeed())
			Expect(s.Registers[RegV0]).To(Equal(uint32(42)))
		})

		It("should halt on exit", func() {
			s.Registers[RegV0] = 10
			Expect(run("syscall")).To(Succeed())
			Expect(s.Halted).To(BeTrue())
		})

		It("should reject unknown services", func() {
			s.Registers[RegV0] = 99
			Expect(run("syscall")).To(MatchError(ErrUnknownSyscall))
		})
	})
})
