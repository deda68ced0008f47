package memaccessagent

import (
	"io"
	"log"
)

// A Builder can build MemAccessAgents.
type Builder struct {
	target      Target
	baseAddress uint32
	maxAddress  uint32
	writeLeft   int
	readLeft    int
	seed        int64
	logger      *log.Logger
}

// MakeBuilder creates a builder for an agent that issues 1000 reads and 1000
// writes in the first MiB.
func MakeBuilder() Builder {
	return Builder{
		maxAddress: 1024 * 1024,
		writeLeft:  1000,
		readLeft:   1000,
		seed:       1,
	}
}

// WithTarget sets the memory subsystem under test.
func (b Builder) WithTarget(t Target) Builder {
	b.target = t
	return b
}

// WithBaseAddress sets the first address the agent accesses.
func (b Builder) WithBaseAddress(addr uint32) Builder {
	b.baseAddress = addr
	return b
}

// WithMaxAddress sets the size of the accessed range.
func (b Builder) WithMaxAddress(addr uint32) Builder {
	b.maxAddress = addr
	return b
}

// WithWriteLeft sets the number of writes to issue.
func (b Builder) WithWriteLeft(write int) Builder {
	b.writeLeft = write
	return b
}

// WithReadLeft sets the number of reads to issue.
func (b Builder) WithReadLeft(read int) Builder {
	b.readLeft = read
	return b
}

// WithSeed sets the seed of the access pattern.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithLogger makes the agent log every access.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// Build creates the agent.
func (b Builder) Build(name string) *MemAccessAgent {
	if b.target == nil {
		panic("target is not set")
	}

	if b.maxAddress < 4 {
		panic("max address must cover at least one word")
	}

	logger := b.logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &MemAccessAgent{
		name:          name,
		target:        b.target,
		baseAddress:   b.baseAddress,
		maxAddress:    b.maxAddress,
		WriteLeft:     b.writeLeft,
		ReadLeft:      b.readLeft,
		KnownMemValue: make(map[uint32]uint32),
		rng:           newRand(b.seed),
		logger:        logger,
	}
}
