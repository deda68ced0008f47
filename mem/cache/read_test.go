package cache

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/sim/hooking"
)

func newBackedCache(b Builder) (*Comp, *mem.StorageAdaptor) {
	storage := mem.NewStorage(1 << 20)
	adaptor := mem.NewStorageAdaptor(storage)
	c := b.WithMemoryAdaptor(adaptor).MustBuild("Cache")

	return c, adaptor
}

func fillStorage(a *mem.StorageAdaptor, addr uint64, data ...byte) {
	err := a.Storage().Write(addr, data)
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("Read", func() {
	var (
		ctx     context.Context
		c       *Comp
		adaptor *mem.StorageAdaptor
	)

	BeforeEach(func() {
		ctx = context.Background()
		c, adaptor = newBackedCache(MakeBuilder())
		fillStorage(adaptor, 0x100,
			0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
			0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x00)
	})

	It("should bypass when disabled", func() {
		data, flags, err := c.Read(ctx, 0x100, 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
		Expect(flags).To(Equal(mem.Bypass))
		Expect(c.sets[0].Lines[0x10].IsEmpty()).To(BeTrue())
	})

	It("should treat mode 10 as disabled", func() {
		c.SetMode(ModeDisabled2)

		_, flags, err := c.Read(ctx, 0x100, 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(flags).To(Equal(mem.Bypass))
	})

	It("should reject unsupported accesses", func() {
		c.SetMode(ModeEnabled)

		_, _, err := c.Read(ctx, 0x100, 3)
		Expect(err).To(MatchError(ErrInvalidAccess))

		_, _, err = c.Read(ctx, 0x102, 4)
		Expect(err).To(MatchError(ErrInvalidAccess))
		Expect(adaptor.NumReads()).To(BeZero())
	})

	Context("when enabled", func() {
		BeforeEach(func() {
			c.SetMode(ModeEnabled)
		})

		It("should miss and then hit", func() {
			data, flags, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
			Expect(flags).To(Equal(mem.ReadMissIn(0)))

			data, flags, err = c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
			Expect(flags).To(Equal(mem.ReadHitIn(0)))
			Expect(adaptor.NumReads()).To(Equal(uint64(1)))
		})

		It("should only refill the requested word", func() {
			_, _, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())

			_, flags, err := c.Read(ctx, 0x104, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(flags).To(Equal(mem.ReadMissIn(0)))
		})

		It("should add valid words without dropping others", func() {
			_, _, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			_, _, err = c.Read(ctx, 0x108, 8)
			Expect(err).NotTo(HaveOccurred())

			line := c.sets[0].Lines[0x10]
			Expect(line.Tag).To(Equal(uint32(0)))
			Expect(line.Valid).To(Equal(uint8(0b1101)))

			data, flags, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(flags).To(Equal(mem.ReadHitIn(0)))
			Expect(data).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
		})

		It("should read single bytes and half words", func() {
			data, _, err := c.Read(ctx, 0x101, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0x22}))

			data, flags, err := c.Read(ctx, 0x102, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0x33, 0x44}))
			Expect(flags).To(Equal(mem.ReadHitIn(0)))
		})

		It("should clear the valid bits when the tag changes", func() {
			fillStorage(adaptor, 0x1100, 0xca, 0xfe, 0xba, 0xbe)

			_, _, err := c.Read(ctx, 0x100, 8)
			Expect(err).NotTo(HaveOccurred())

			data, flags, err := c.Read(ctx, 0x1100, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0xca, 0xfe, 0xba, 0xbe}))
			Expect(flags).To(Equal(mem.ReadMissIn(0)))

			line := c.sets[0].Lines[0x10]
			Expect(line.Tag).To(Equal(uint32(1)))
			Expect(line.Valid).To(Equal(uint8(0b0001)))
		})

		It("should always miss on forced misses", func() {
			_, _, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())

			data, flags, err := c.ReadForceMiss(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
			Expect(flags).To(Equal(mem.ReadMissIn(0)))
			Expect(adaptor.NumReads()).To(Equal(uint64(2)))
		})

		It("should report to hooks", func() {
			counter := hooking.NewCountingHook()
			c.AcceptHook(counter)

			_, _, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			_, _, err = c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())

			stats := counter.Stats("Cache")
			Expect(stats.Reads).To(Equal(uint64(2)))
			Expect(stats.ReadHits).To(Equal(uint64(1)))
			Expect(stats.ReadMisses).To(Equal(uint64(1)))
		})
	})

	Context("when frozen", func() {
		BeforeEach(func() {
			c.SetMode(ModeFrozen)
		})

		It("should not allocate new lines", func() {
			data, flags, err := c.Read(ctx, 0x100, 4)

			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
			Expect(flags).To(Equal(mem.FrozenMiss))
			Expect(c.sets[0].Lines[0x10].IsEmpty()).To(BeTrue())
		})

		It("should grow a line with the same tag", func() {
			c.SetMode(ModeEnabled)
			_, _, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			c.SetMode(ModeFrozen)

			_, flags, err := c.Read(ctx, 0x104, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(flags).To(Equal(mem.ReadMissIn(0)))
			Expect(c.sets[0].Lines[0x10].Valid).To(Equal(uint8(0b0011)))

			_, flags, err = c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(flags).To(Equal(mem.ReadHitIn(0)))
		})

		It("should not replace a line with another tag", func() {
			c.SetMode(ModeEnabled)
			_, _, err := c.Read(ctx, 0x100, 4)
			Expect(err).NotTo(HaveOccurred())
			c.SetMode(ModeFrozen)

			_, flags, err := c.Read(ctx, 0x1100, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(flags).To(Equal(mem.FrozenMiss))

			line := c.sets[0].Lines[0x10]
			Expect(line.Tag).To(Equal(uint32(0)))
			Expect(line.Valid).To(Equal(uint8(0b0001)))
		})
	})

	Context("with burst fetch", func() {
		BeforeEach(func() {
			c, adaptor = newBackedCache(MakeBuilder().
				AsInstructionCache().
				WithBurstFetch(true))
			fillStorage(adaptor, 0x100,
				0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
				0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x00)
		})

		It("should refill to the end of the line", func() {
			c.ControlRegister().Write(uint32(ModeEnabled) | CCRIB)

			data, flags, err := c.Read(ctx, 0x104, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0x55, 0x66, 0x77, 0x88}))
			Expect(flags).To(Equal(mem.ReadMissIn(0)))
			Expect(c.sets[0].Lines[0x10].Valid).To(Equal(uint8(0b1110)))

			data, flags, err = c.Read(ctx, 0x10c, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{0xdd, 0xee, 0xff, 0x00}))
			Expect(flags).To(Equal(mem.ReadHitIn(0)))
			Expect(adaptor.NumReads()).To(Equal(uint64(1)))
		})

		It("should fetch one word if the burst bit is clear", func() {
			c.SetMode(ModeEnabled)

			_, _, err := c.Read(ctx, 0x104, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.sets[0].Lines[0x10].Valid).To(Equal(uint8(0b0010)))
		})
	})
})

var _ = Describe("Read with a mocked adaptor", func() {
	var (
		mockCtrl *gomock.Controller
		adaptor  *MockMemoryAdaptor
		c        *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		adaptor = NewMockMemoryAdaptor(mockCtrl)
		c = MakeBuilder().WithMemoryAdaptor(adaptor).MustBuild("Cache")
		c.SetMode(ModeEnabled)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should return adaptor errors without filling", func() {
		busErr := errors.New("bus error")
		adaptor.EXPECT().
			Read(gomock.Any(), uint32(0x200), uint32(4)).
			Return(nil, busErr)

		_, _, err := c.Read(context.Background(), 0x200, 4)

		Expect(err).To(MatchError(busErr))
		Expect(c.sets[0].Lines[0x20].IsEmpty()).To(BeTrue())
	})

	It("should collect the flags reported by the adaptor", func() {
		adaptor.EXPECT().
			Read(gomock.Any(), uint32(0x200), uint32(4)).
			DoAndReturn(func(
				ctx context.Context, _ uint32, _ uint32,
			) ([]byte, error) {
				mem.ReportDebug(ctx, mem.TLBMiss)
				return []byte{1, 2, 3, 4}, nil
			})

		_, flags, err := c.Read(context.Background(), 0x200, 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(flags).To(Equal(mem.ReadMissIn(0) | mem.TLBMiss))
	})
})
