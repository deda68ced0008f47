package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vcache/config"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/mmucache"
	"github.com/sarchlab/vcache/mem/vm/mmu"
)

var _ = Describe("System", func() {
	var (
		ctx context.Context
		c   config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = config.DefaultConfig()
	})

	It("should refuse to map without an MMU", func() {
		s, err := buildSystem(c)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.identityMap(ctx)).To(MatchError(mmucache.ErrNoMMU))
	})

	It("should fail accesses beyond the memory", func() {
		s, err := buildSystem(c)
		Expect(err).NotTo(HaveOccurred())

		_, _, err = s.comp.DataRead(ctx, 0x02000000, 4)

		Expect(err).To(MatchError(mem.ErrUnmapped))
	})

	It("should map the address space onto itself", func() {
		c.MMU.Enabled = true

		s, err := buildSystem(c)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.memory.Storage().Write(0x2000,
			[]byte{0xde, 0xad, 0xbe, 0xef})).To(Succeed())

		Expect(s.identityMap(ctx)).To(Succeed())
		Expect(s.comp.MMU().ReadControl() & mmu.CtrlE).NotTo(BeZero())

		data, flags, err := s.comp.DataRead(ctx, 0x2000, 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{0xde, 0xad, 0xbe, 0xef}))
		Expect(flags.Has(mem.TLBMiss)).To(BeTrue())
	})
})

var _ = Describe("Run", func() {
	var (
		dir string
		o   runOptions
		out *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = new(bytes.Buffer)

		s, err := buildSystem(config.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		o = runOptions{
			tracePath: filepath.Join(dir, "trace.txt"),
			system:    s,
		}
	})

	writeTrace := func(text string) {
		Expect(os.WriteFile(o.tracePath, []byte(text), 0o644)).To(Succeed())
	}

	It("should replay a trace and print the statistics", func() {
		writeTrace("C 0xf\nW 0x100 4 0x11223344\nR 0x100 4\nR 0x100 4\n")

		Expect(runTrace(context.Background(), o, out)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("4 operations, 0 errors"))
		Expect(out.String()).To(ContainSubstring("Core.DCache"))
		Expect(out.String()).To(ContainSubstring("Core.ICache"))

		data, err := o.system.memory.Storage().Read(0x100, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
	})

	It("should report a missing trace", func() {
		Expect(runTrace(context.Background(), o, out)).NotTo(Succeed())
	})

	It("should stop at the first failure", func() {
		writeTrace("X 1\nR 0 4\n")

		err := runTrace(context.Background(), o, out)

		Expect(err).To(MatchError(ContainSubstring("line 1")))
		Expect(out.String()).To(ContainSubstring("1 operations, 1 errors"))
	})

	It("should count every failure when asked to keep going", func() {
		writeTrace("X 1\nR 0 4\nX 2\n")
		o.keepGoing = true

		Expect(runTrace(context.Background(), o, out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("3 operations, 2 errors"))
	})

	It("should record the accesses", func() {
		writeTrace("R 0 4\n")
		o.recordPath = filepath.Join(dir, "rec")

		Expect(runTrace(context.Background(), o, out)).To(Succeed())

		_, err := os.Stat(o.recordPath + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
	})
})
