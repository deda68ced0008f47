package trace

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parse", func() {
	It("should parse every operation", func() {
		ops, err := Parse(strings.NewReader(`
# warm up
C 0xf
I 0x1000
R 0x2000 4     # first read
w 0x2004 2 0xbeef
S 0x2000 8

F
X 3
`))

		Expect(err).NotTo(HaveOccurred())
		Expect(ops).To(Equal([]Op{
			{Kind: OpCCR, Value: 0xf, Line: 3},
			{Kind: OpFetch, Addr: 0x1000, Length: 4, Line: 4},
			{Kind: OpRead, Addr: 0x2000, Length: 4, Line: 5},
			{Kind: OpWrite, Addr: 0x2004, Length: 2, Value: 0xbeef, Line: 6},
			{Kind: OpSnoop, Addr: 0x2000, Length: 8, Line: 7},
			{Kind: OpFlush, Line: 9},
			{Kind: OpContext, Value: 3, Line: 10},
		}))
	})

	DescribeTable("should reject malformed lines",
		func(line string) {
			_, err := Parse(strings.NewReader("R 0 4\n" + line))

			var syntaxErr *SyntaxError
			Expect(errors.As(err, &syntaxErr)).To(BeTrue())
			Expect(syntaxErr.Line).To(Equal(2))
		},
		Entry("unknown operation", "Q 0"),
		Entry("long operation", "RR 0 4"),
		Entry("missing argument", "R 0x100"),
		Entry("extra argument", "I 0x100 4"),
		Entry("not a number", "R addr 4"),
		Entry("address too wide", "R 0x100000000 4"),
		Entry("value too wide", "W 0 1 0x100"),
		Entry("write too long", "W 0 16 0"),
	)

	It("should encode write data big-endian", func() {
		op := Op{Kind: OpWrite, Length: 4, Value: 0x11223344}

		Expect(op.Bytes()).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
	})

	It("should print operations in trace syntax", func() {
		for _, line := range []string{
			"I 0x00001000", "R 0x00002000 4", "W 0x00002004 2 0xbeef",
			"S 0x00002000 8", "F", "C 0xf", "X 0x3",
		} {
			op, ok, err := ParseLine(line, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(op.String()).To(Equal(line))
		}
	})
})
