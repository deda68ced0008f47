package cache

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/vcache/mem/cache/internal/tagging"
	"github.com/sarchlab/vcache/mem/mem"
)

// ReplacementPolicy selects how victims are chosen.
type ReplacementPolicy = tagging.Policy

// The replacement policies.
const (
	PolicyDirectMapped = tagging.DirectMapped
	PolicyLRU          = tagging.LRU
	PolicyLRR          = tagging.LRR
	PolicyRandom       = tagging.Random
)

// ParseReplacementPolicy converts a policy name, as printed by String.
func ParseReplacementPolicy(name string) (ReplacementPolicy, error) {
	for p := PolicyDirectMapped; p <= PolicyRandom; p++ {
		if p.String() == name {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown replacement policy %q", name)
}

// LocalRAM describes the local scratchpad RAM that sits next to a cache. It is
// only reported through the configuration register.
type LocalRAM struct {
	Enabled bool
	Start   uint32
	SizeKB  int
}

// Builder can build caches.
type Builder struct {
	kind          Kind
	numSets       int
	setSizeKB     int
	lineSizeWords int
	policy        ReplacementPolicy
	lockEnabled   bool
	burstEnabled  bool
	writeAllocate bool
	snooping      bool
	mmuPresent    bool
	localRAM      LocalRAM
	seed          uint64
	adaptor       mem.MemoryAdaptor
	ccr           *ControlRegister
}

// MakeBuilder creates a new builder with the parameters of a 4 KiB,
// direct-mapped data cache with 4-word lines.
func MakeBuilder() Builder {
	return Builder{
		kind:          DataCache,
		numSets:       1,
		setSizeKB:     4,
		lineSizeWords: 4,
		policy:        PolicyDirectMapped,
		snooping:      true,
	}
}

// AsInstructionCache builds a cache that rejects writes and may burst fill.
func (b Builder) AsInstructionCache() Builder {
	b.kind = InstructionCache
	return b
}

// AsDataCache builds a write-through data cache.
func (b Builder) AsDataCache() Builder {
	b.kind = DataCache
	return b
}

// WithNumSets sets the associativity, from 1 to 4.
func (b Builder) WithNumSets(n int) Builder {
	b.numSets = n
	return b
}

// WithSetSizeKB sets the size of each set in KiB. It must be a power of two
// between 1 and 256.
func (b Builder) WithSetSizeKB(n int) Builder {
	b.setSizeKB = n
	return b
}

// WithLineSizeWords sets the line size in 32-bit words, 4 or 8.
func (b Builder) WithLineSizeWords(n int) Builder {
	b.lineSizeWords = n
	return b
}

// WithReplacementPolicy sets the replacement policy.
func (b Builder) WithReplacementPolicy(p ReplacementPolicy) Builder {
	b.policy = p
	return b
}

// WithLineLocking allows lines to be locked through diagnostic tag writes.
func (b Builder) WithLineLocking(enabled bool) Builder {
	b.lockEnabled = enabled
	return b
}

// WithBurstFetch allows refills to run to the end of the line while the
// burst bit of the control register is set. Only instruction caches burst.
func (b Builder) WithBurstFetch(enabled bool) Builder {
	b.burstEnabled = enabled
	return b
}

// WithWriteAllocate makes write misses allocate a line.
func (b Builder) WithWriteAllocate(enabled bool) Builder {
	b.writeAllocate = enabled
	return b
}

// WithSnooping reports snooping support in the configuration register.
func (b Builder) WithSnooping(enabled bool) Builder {
	b.snooping = enabled
	return b
}

// WithMMUPresent reports an MMU in the configuration register.
func (b Builder) WithMMUPresent(present bool) Builder {
	b.mmuPresent = present
	return b
}

// WithLocalRAM reports a local scratchpad RAM in the configuration register.
func (b Builder) WithLocalRAM(ram LocalRAM) Builder {
	b.localRAM = ram
	return b
}

// WithRandomSeed seeds the random replacement counter.
func (b Builder) WithRandomSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithMemoryAdaptor sets the adaptor that serves refills and write-throughs.
func (b Builder) WithMemoryAdaptor(a mem.MemoryAdaptor) Builder {
	b.adaptor = a
	return b
}

// WithControlRegister shares a control register with another cache. Without
// one, the cache gets a private register.
func (b Builder) WithControlRegister(ccr *ControlRegister) Builder {
	b.ccr = ccr
	return b
}

// Build returns a newly created cache, or a *ConfigurationError if the
// parameters cannot be combined.
func (b Builder) Build(name string) (*Comp, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.numSets == 1 {
		b.policy = PolicyDirectMapped
	}

	c := &Comp{
		name:          name,
		kind:          b.kind,
		adaptor:       b.adaptor,
		ccr:           b.ccr,
		numSets:       b.numSets,
		setSizeKB:     b.setSizeKB,
		wordsPerLine:  b.lineSizeWords,
		policy:        b.policy,
		lockEnabled:   b.lockEnabled,
		burstEnabled:  b.burstEnabled && b.kind == InstructionCache,
		allowWrites:   b.kind == DataCache,
		writeAllocate: b.writeAllocate,
		snooping:      b.snooping,
		mmuPresent:    b.mmuPresent,
		localRAM:      b.localRAM,
	}

	if c.ccr == nil {
		c.ccr = NewControlRegister()
	}

	b.configureGeometry(c)

	vf, err := tagging.NewVictimFinder(b.policy, b.numSets, b.seed)
	if err != nil {
		return nil, &ConfigurationError{
			Param:  "policy",
			Value:  int(b.policy),
			Reason: err.Error(),
		}
	}

	c.victimFinder = vf
	c.sets = tagging.NewSets(c.numSets, c.linesPerSet)

	return c, nil
}

// MustBuild is Build that panics on configuration errors.
func (b Builder) MustBuild(name string) *Comp {
	c, err := b.Build(name)
	if err != nil {
		panic(err)
	}

	return c
}

func (b Builder) configureGeometry(c *Comp) {
	lineBytes := b.lineSizeWords * 4
	c.linesPerSet = b.setSizeKB * 256 / b.lineSizeWords
	c.offsetBits = uint(bits.TrailingZeros(uint(lineBytes)))
	c.idxBits = uint(bits.TrailingZeros(uint(c.linesPerSet)))
	c.tagWidth = 32 - c.offsetBits - c.idxBits
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func (b Builder) validate() error {
	if b.numSets < 1 || b.numSets > 4 {
		return &ConfigurationError{"sets", b.numSets, "must be 1 to 4"}
	}

	if b.lineSizeWords != 4 && b.lineSizeWords != 8 {
		return &ConfigurationError{"linesize", b.lineSizeWords,
			"must be 4 or 8 words"}
	}

	if b.setSizeKB < 1 || b.setSizeKB > 256 || !isPowerOfTwo(b.setSizeKB) {
		return &ConfigurationError{"setsize", b.setSizeKB,
			"must be a power of two from 1 to 256 KiB"}
	}

	if b.policy > PolicyRandom {
		return &ConfigurationError{"policy", int(b.policy),
			"unknown replacement policy"}
	}

	if b.numSets > 1 && b.policy == PolicyDirectMapped {
		return &ConfigurationError{"policy", int(b.policy),
			"an associative cache needs a replacement policy"}
	}

	if b.policy == PolicyLRR && b.numSets != 2 {
		return &ConfigurationError{"policy", int(b.policy),
			"LRR requires exactly 2 sets"}
	}

	if b.adaptor == nil {
		return &ConfigurationError{"adaptor", 0, "memory adaptor is missing"}
	}

	return nil
}
