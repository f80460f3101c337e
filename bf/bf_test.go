package bf_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bfasm/bf"
)

var _ = Describe("Command", func() {
	It("should round trip every symbol", func() {
		for _, c := range bf.Commands {
			Expect(bf.FromByte(c.Symbol())).To(Equal(c))
		}
	})

	It("should treat other bytes as comments", func() {
		for _, b := range []byte("abc \n\t#!{}()0") {
			Expect(bf.IsCommand(b)).To(BeFalse())
			Expect(bf.FromByte(b)).To(Equal(bf.None))
		}
	})

	It("should only mark brackets as loops", func() {
		Expect(bf.LoopOpen.IsLoop()).To(BeTrue())
		Expect(bf.LoopClose.IsLoop()).To(BeTrue())
		Expect(bf.IncData.IsLoop()).To(BeFalse())
	})

	It("should panic on the symbol of None", func() {
		Expect(func() { bf.None.Symbol() }).To(Panic())
	})

	It("should strip comments", func() {
		Expect(string(bf.Strip([]byte("a+b[c-]d.")))).To(Equal("+[-]."))
	})
})
