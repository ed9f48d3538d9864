package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IDGenerator", func() {
	BeforeEach(func() {
		ResetIDGenerator()
	})

	AfterEach(func() {
		ResetIDGenerator()
	})

	It("should count up from one", func() {
		g := GetIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
		Expect(GetIDGenerator()).To(BeIdenticalTo(g))
	})

	It("should generate unique ids", func() {
		UseUniqueIDGenerator()
		g := GetIDGenerator()

		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})

	It("should not switch generators after use", func() {
		GetIDGenerator()

		Expect(UseUniqueIDGenerator).To(Panic())
	})
})
