package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ControlRegister", func() {
	var (
		r *ControlRegister
	)

	BeforeEach(func() {
		r = NewControlRegister()
	})

	It("should start with both caches disabled", func() {
		Expect(r.Mode(InstructionCache)).To(Equal(ModeDisabled))
		Expect(r.Mode(DataCache)).To(Equal(ModeDisabled))
	})

	It("should only store writable bits", func() {
		flushI, flushD := r.Write(0xffffffff)

		Expect(flushI).To(BeTrue())
		Expect(flushD).To(BeTrue())
		Expect(r.Read()).To(Equal(uint32(0x0081003f)))
	})

	It("should split the cache modes", func() {
		r.Write(0b0111)

		Expect(r.Mode(InstructionCache)).To(Equal(ModeEnabled))
		Expect(r.Mode(DataCache)).To(Equal(ModeFrozen))
		Expect(r.Mode(DataCache).IsEnabled()).To(BeTrue())
		Expect(r.Mode(DataCache).IsFrozen()).To(BeTrue())
	})

	It("should set one mode", func() {
		r.Write(CCRIB)
		r.SetMode(DataCache, ModeEnabled)

		Expect(r.Read()).To(Equal(CCRIB | 0b1100))
		Expect(r.BurstFetch()).To(BeTrue())
	})

	It("should keep flush pending bits on writes", func() {
		r.setFlushPending(InstructionCache, true)

		r.Write(0)

		Expect(r.FlushPending(InstructionCache)).To(BeTrue())
		Expect(r.FlushPending(DataCache)).To(BeFalse())
		Expect(r.Read()).To(Equal(CCRIP))
	})

	It("should tell disabled modes apart", func() {
		Expect(ModeDisabled.IsEnabled()).To(BeFalse())
		Expect(ModeDisabled2.IsEnabled()).To(BeFalse())
		Expect(ModeFrozen.IsEnabled()).To(BeTrue())
		Expect(ModeEnabled.IsFrozen()).To(BeFalse())
	})
})
