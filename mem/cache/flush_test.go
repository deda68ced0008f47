package cache

import (
	"context"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/sim/hooking"
)

var _ = Describe("Flush", func() {
	var (
		ctx     context.Context
		c       *Comp
		adaptor *mem.StorageAdaptor
	)

	BeforeEach(func() {
		ctx = context.Background()
		c, adaptor = newBackedCache(MakeBuilder().
			WithNumSets(2).
			WithReplacementPolicy(PolicyLRU).
			WithLineLocking(true))
		fillStorage(adaptor, 0x100, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88)
		fillStorage(adaptor, 0x1200, 0x99, 0xaa, 0xbb, 0xcc)
		c.SetMode(ModeEnabled)
	})

	It("should write back valid words and invalidate", func() {
		_, _, err := c.Read(ctx, 0x100, 8)
		Expect(err).NotTo(HaveOccurred())
		_, _, err = c.Read(ctx, 0x1200, 4)
		Expect(err).NotTo(HaveOccurred())
		fillStorage(adaptor, 0x100, 0, 0, 0, 0, 0, 0, 0, 0)
		fillStorage(adaptor, 0x1200, 0, 0, 0, 0)

		err = c.Flush(ctx)
		Expect(err).NotTo(HaveOccurred())

		data, err := adaptor.Storage().Read(0x100, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{
			0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}))

		data, err = adaptor.Storage().Read(0x1200, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{0x99, 0xaa, 0xbb, 0xcc}))

		Expect(adaptor.NumWrites()).To(Equal(uint64(3)))
		Expect(c.sets[0].Lines[0x10].IsEmpty()).To(BeTrue())
		Expect(c.sets[0].Lines[0x20].IsEmpty()).To(BeTrue())
		Expect(c.ControlRegister().FlushPending(DataCache)).To(BeFalse())
	})

	It("should keep lock bits", func() {
		err := c.WriteTag(0, 0x10, TagLockBit|0x1)
		Expect(err).NotTo(HaveOccurred())

		err = c.Flush(ctx)
		Expect(err).NotTo(HaveOccurred())

		tag, err := c.ReadTag(0, 0x10)
		Expect(err).NotTo(HaveOccurred())
		Expect(tag).To(Equal(TagLockBit))
	})

	It("should report the number of flushed bytes", func() {
		counter := hooking.NewCountingHook()
		c.AcceptHook(counter)

		_, _, err := c.Read(ctx, 0x100, 8)
		Expect(err).NotTo(HaveOccurred())
		err = c.Flush(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(counter.Stats("Cache").Flushes).To(Equal(uint64(1)))
	})

	It("should set flush pending while flushing", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		mockAdaptor := NewMockMemoryAdaptor(mockCtrl)
		c = MakeBuilder().WithMemoryAdaptor(mockAdaptor).MustBuild("Cache")
		c.sets[0].Lines[0x10].Valid = 0x4
		c.sets[0].Lines[0x10].Tag = 0x3

		mockAdaptor.EXPECT().
			Write(gomock.Any(), uint32(0x3108), gomock.Any()).
			DoAndReturn(func(context.Context, uint32, []byte) error {
				Expect(c.ControlRegister().FlushPending(DataCache)).To(BeTrue())
				Expect(c.ControlRegister().Read() & CCRDP).NotTo(BeZero())
				return nil
			})

		err := c.Flush(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.ControlRegister().FlushPending(DataCache)).To(BeFalse())
	})
})

var _ = Describe("SnoopInvalidate", func() {
	var (
		ctx context.Context
		c   *Comp
	)

	BeforeEach(func() {
		ctx = context.Background()
		c, _ = newBackedCache(MakeBuilder().
			WithNumSets(2).
			WithReplacementPolicy(PolicyLRU))
		c.SetMode(ModeEnabled)

		_, _, err := c.Read(ctx, 0x100, 8)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should clear the snooped words", func() {
		c.SnoopInvalidate(0x104, 4)

		Expect(c.sets[0].Lines[0x10].Valid).To(Equal(uint8(0b0001)))

		_, flags, err := c.Read(ctx, 0x100, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(flags).To(Equal(mem.ReadHitIn(0)))

		_, flags, err = c.Read(ctx, 0x104, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(flags).To(Equal(mem.ReadMissIn(0)))
	})

	It("should cover unaligned ranges", func() {
		c.SnoopInvalidate(0x103, 2)

		Expect(c.sets[0].Lines[0x10].IsEmpty()).To(BeTrue())
	})

	It("should ignore other tags", func() {
		c.SnoopInvalidate(0x1100, 8)

		Expect(c.sets[0].Lines[0x10].Valid).To(Equal(uint8(0b0011)))
	})

	It("should do nothing unless fully enabled", func() {
		c.SetMode(ModeFrozen)

		c.SnoopInvalidate(0x100, 8)

		Expect(c.sets[0].Lines[0x10].Valid).To(Equal(uint8(0b0011)))
	})
})

var _ = Describe("SnoopInvalidate during an access", func() {
	var (
		ctx      context.Context
		storage  *mem.Storage
		c        *Comp
		blocking atomic.Bool
		entered  chan struct{}
		release  chan struct{}
	)

	// gate holds the first adaptor call after blocking is set until release
	// is closed.
	gate := func() {
		if blocking.CompareAndSwap(true, false) {
			close(entered)
			<-release
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		storage = mem.NewStorage(1 << 20)
		entered = make(chan struct{})
		release = make(chan struct{})
		blocking.Store(false)

		adaptor := mem.AdaptorFuncs{
			ReadFunc: func(
				_ context.Context,
				addr uint32,
				length uint32,
			) ([]byte, error) {
				gate()
				return storage.Read(uint64(addr), uint64(length))
			},
			WriteFunc: func(_ context.Context, addr uint32, data []byte) error {
				gate()
				return storage.Write(uint64(addr), data)
			},
		}

		c = MakeBuilder().
			WithNumSets(2).
			WithReplacementPolicy(PolicyLRU).
			WithMemoryAdaptor(adaptor).
			MustBuild("Cache")
		c.SetMode(ModeEnabled)

		Expect(storage.Write(0x100, []byte{1, 2, 3, 4, 5, 6, 7, 8})).
			To(Succeed())
	})

	snoopDuring := func(access func()) {
		blocking.Store(true)

		accessDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(accessDone)
			access()
		}()
		Eventually(entered).Should(BeClosed())

		snoopDone := make(chan struct{})
		go func() {
			defer close(snoopDone)
			c.SnoopInvalidate(0x100, 8)
		}()
		Consistently(snoopDone, "50ms").ShouldNot(BeClosed())

		close(release)
		Eventually(accessDone).Should(BeClosed())
		Eventually(snoopDone).Should(BeClosed())
	}

	It("should wait for a refill and then invalidate it", func() {
		snoopDuring(func() {
			data, flags, err := c.Read(ctx, 0x104, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{5, 6, 7, 8}))
			Expect(flags).To(Equal(mem.ReadMissIn(0)))
		})

		for s := range c.sets {
			Expect(c.sets[s].Lines[0x10].Valid).To(BeZero())
		}
	})

	It("should wait for a write and then invalidate the written word", func() {
		_, _, err := c.Read(ctx, 0x100, 8)
		Expect(err).NotTo(HaveOccurred())

		snoopDuring(func() {
			flags, err := c.Write(ctx, 0x100, []byte{9, 9, 9, 9})
			Expect(err).NotTo(HaveOccurred())
			Expect(flags).To(Equal(mem.WriteHitIn(0)))
		})

		Expect(c.sets[0].Lines[0x10].Valid).To(BeZero())

		data, flags, err := c.Read(ctx, 0x100, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(flags).To(Equal(mem.ReadMissIn(0)))
		Expect(data).To(Equal([]byte{9, 9, 9, 9}))
	})
})
