package compiler_test

import (
	"bytes"
	"errors"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bfasm/bf"
	"github.com/sarchlab/bfasm/compiler"
)

var _ = Describe("Compile", func() {
	It("should compile a valid source", func() {
		var out bytes.Buffer
		Expect(compiler.Compile(strings.NewReader("+"), &out)).To(Succeed())
		Expect(out.String()).To(Equal(incCell + exitCall))
	})

	DescribeTable("rejecting malformed sources without output",
		func(src string) {
			var out bytes.Buffer
			err := compiler.Compile(strings.NewReader(src), &out)

			Expect(errors.Is(err, compiler.ErrMalformed)).To(BeTrue())
			Expect(out.Len()).To(BeZero())
		},
		Entry("close", "]"),
		Entry("open", "["),
		Entry("late close", "+++[-]]"),
	)

	It("should report read failures", func() {
		var out bytes.Buffer
		err := compiler.Compile(iotest.ErrReader(errors.New("boom")), &out)

		Expect(err).To(MatchError(compiler.ErrRead))
		Expect(out.Len()).To(BeZero())
	})

	It("should compile in memory", func() {
		asm, err := compiler.CompileBytes([]byte("[-]"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(asm)).To(Equal(preamble(1) + decCell + postamble(1) + exitCall))

		asm, err = compiler.CompileBytes([]byte("]"))
		Expect(err).To(MatchError(compiler.ErrMalformed))
		Expect(asm).To(BeNil())
	})
})

var _ = Describe("Analyze", func() {
	It("should count commands, loops and depth", func() {
		s := compiler.Analyze([]byte("++[>[-]<]. x"))

		Expect(s.Bytes).To(Equal(12))
		Expect(s.Commands[bf.IncData]).To(Equal(2))
		Expect(s.Commands[bf.LoopOpen]).To(Equal(2))
		Expect(s.Loops).To(Equal(2))
		Expect(s.MaxDepth).To(Equal(2))
		Expect(s.Comments).To(Equal(2))
		Expect(s.Total()).To(Equal(10))
	})
})
