// Package tagging holds the per-line state of a set-associative cache and the
// replacement policies that pick victim lines.
package tagging

import "encoding/binary"

// MaxWordsPerLine is the largest supported line size in 32-bit words.
const MaxWordsPerLine = 8

// A Line is one cache line: the address tag, one valid bit per word and the
// replacement history that belongs to it. Data is kept in memory byte order
// (big-endian words).
type Line struct {
	Tag   uint32
	Valid uint8
	Lock  bool
	LRU   uint8
	LRR   bool
	Data  [MaxWordsPerLine * 4]byte
}

// IsEmpty tells if no word of the line holds data.
func (l *Line) IsEmpty() bool {
	return l.Valid == 0
}

// IsValid checks the valid bit of one word.
func (l *Line) IsValid(word int) bool {
	return l.Valid&(1<<word) != 0
}

// AllValid checks the valid bits of every word in mask.
func (l *Line) AllValid(mask uint8) bool {
	return l.Valid&mask == mask
}

// Word returns one data word.
func (l *Line) Word(word int) uint32 {
	return binary.BigEndian.Uint32(l.Data[word*4:])
}

// SetWord overwrites one data word. Valid bits are left untouched.
func (l *Line) SetWord(word int, value uint32) {
	binary.BigEndian.PutUint32(l.Data[word*4:], value)
}

// Invalidate clears all the valid bits.
func (l *Line) Invalidate() {
	l.Valid = 0
}

// WordMask returns the valid-bit mask covering length bytes from byte
// offset off within a line.
func WordMask(off, length uint32) uint8 {
	first := off / 4
	last := (off + length - 1) / 4

	mask := uint8(0)
	for w := first; w <= last; w++ {
		mask |= 1 << w
	}

	return mask
}

// A Set is one way of the cache: an array of lines indexed by the index
// field of the address.
type Set struct {
	Lines []Line
}

// NewSets allocates numSets sets of linesPerSet empty lines each.
func NewSets(numSets, linesPerSet int) []Set {
	sets := make([]Set, numSets)
	for i := range sets {
		sets[i].Lines = make([]Line, linesPerSet)
	}

	return sets
}

// Candidates returns the lines at index in every set, in set order.
func Candidates(sets []Set, index uint32) []*Line {
	lines := make([]*Line, len(sets))
	for i := range sets {
		lines[i] = &sets[i].Lines[index]
	}

	return lines
}
