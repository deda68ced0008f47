package mmu

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/vm"
	"github.com/sarchlab/vcache/mem/vm/tlb"
)

var _ = Describe("Registers", func() {
	var (
		adaptor *mem.StorageAdaptor
		m       *Comp
	)

	BeforeEach(func() {
		adaptor = mem.NewStorageAdaptor(mem.NewStorage(1 << 20))
		m = MakeBuilder().WithMemoryAdaptor(adaptor).MustBuild("MMU")
	})

	It("should only write TD, NF and E", func() {
		m.WriteControl(0xffffffff)

		Expect(m.ReadControl()).To(Equal(uint32(0x006c8003)))
		Expect(m.Enabled()).To(BeTrue())
	})

	It("should describe the configuration", func() {
		m = MakeBuilder().
			WithMemoryAdaptor(adaptor).
			WithPageSize(vm.PageSize8K).
			WithSeparateTLB(true).
			WithTLBEntries(16, 4).
			MustBuild("MMU")

		Expect(m.ReadControl()).To(Equal(uint32(0x00894000)))
		Expect(m.Enabled()).To(BeFalse())
	})

	It("should align the context table pointer", func() {
		m.WriteContextTablePointer(0x10003)

		Expect(m.ReadContextTablePointer()).To(Equal(uint32(0x10000)))
	})

	It("should store the context", func() {
		m.WriteContext(0xffffffff)

		Expect(m.ReadContext()).To(Equal(uint32(0xffffffff)))
	})
})

var _ = Describe("Builder", func() {
	var b Builder

	BeforeEach(func() {
		b = MakeBuilder().WithMemoryAdaptor(
			mem.NewStorageAdaptor(mem.NewStorage(4096)))
	})

	DescribeTable("should reject illegal parameters",
		func(modify func(Builder) Builder, param string) {
			_, err := modify(b).Build("MMU")

			var configErr *ConfigurationError
			Expect(errors.As(err, &configErr)).To(BeTrue())
			Expect(configErr.Param).To(Equal(param))
		},
		Entry("page size", func(b Builder) Builder {
			return b.WithPageSize(vm.PageSize(4))
		}, "pagesize"),
		Entry("itlb size", func(b Builder) Builder {
			return b.WithTLBEntries(3, 8)
		}, "itlb"),
		Entry("dtlb size", func(b Builder) Builder {
			return b.WithSeparateTLB(true).WithTLBEntries(8, 256)
		}, "dtlb"),
		Entry("eviction", func(b Builder) Builder {
			return b.WithEvictionPolicy(tlb.EvictionPolicy(7))
		}, "eviction"),
		Entry("adaptor", func(b Builder) Builder {
			return b.WithMemoryAdaptor(nil)
		}, "adaptor"),
	)

	It("should ignore the dtlb size of a shared TLB", func() {
		m, err := b.WithTLBEntries(8, 0).Build("MMU")

		Expect(err).NotTo(HaveOccurred())
		Expect(m.TLB(DataSide).Capacity()).To(Equal(8))
	})
})

var _ = Describe("Adaptor", func() {
	var (
		ctx     context.Context
		adaptor *mem.StorageAdaptor
		m       *Comp
		w       *vm.TableWriter
	)

	BeforeEach(func() {
		ctx = context.Background()
		adaptor = mem.NewStorageAdaptor(mem.NewStorage(1 << 20))
		m = MakeBuilder().WithMemoryAdaptor(adaptor).MustBuild("MMU")

		w = vm.NewTableWriter(adaptor, vm.PageSize4K, 0x10000)
		Expect(w.Map(ctx, 0x01041000, 0x4000, 3, 0)).To(Succeed())
		Expect(w.Map(ctx, 0x01042000, 0x200000, 3, 0)).To(Succeed())
		m.WriteContextTablePointer(w.Root())

		err := adaptor.Storage().Write(0x4abc, []byte{1, 2, 3, 4})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should pass addresses through while disabled", func() {
		data, err := m.Adaptor(DataSide).Read(ctx, 0x4abc, 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(m.TLB(DataSide).Len()).To(BeZero())
	})

	It("should translate while enabled", func() {
		m.WriteControl(CtrlE)
		a := m.Adaptor(DataSide)

		var flags mem.DebugFlags
		data, err := a.Read(mem.WithDebugSink(ctx, &flags), 0x01041abc, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(flags).To(Equal(mem.TLBMiss))

		err = a.Write(ctx, 0x01041ac0, []byte{5, 6, 7, 8})
		Expect(err).NotTo(HaveOccurred())

		stored, err := adaptor.Storage().Read(0x4ac0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(Equal([]byte{5, 6, 7, 8}))
	})

	It("should return translation faults", func() {
		m.WriteControl(CtrlE)

		_, err := m.Adaptor(InstructionSide).Read(ctx, 0x05000000, 4)

		var fault *PageTableFault
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(m.ReadFaultAddress()).To(Equal(uint32(0x05000000)))
	})

	It("should record bus errors of translated accesses", func() {
		m.WriteControl(CtrlE)

		err := m.Adaptor(DataSide).Write(ctx, 0x01042000, []byte{1, 2, 3, 4})

		Expect(errors.Is(err, mem.ErrBeyondCapacity)).To(BeTrue())
		Expect(m.ReadFaultStatus()).To(Equal(
			AccessTypeStoreData<<FSRATShift |
				uint32(FaultAccessBusError)<<FSRFTShift | FSRFAV))
		Expect(m.ReadFaultAddress()).To(Equal(uint32(0x01042000)))
	})
})
