// Package config holds the parameters of one cache and MMU subsystem and
// loads them from Lua, JSON and the environment.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/vcache/mem/cache"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/mmucache"
	"github.com/sarchlab/vcache/mem/vm"
	"github.com/sarchlab/vcache/mem/vm/mmu"
	"github.com/sarchlab/vcache/mem/vm/tlb"
)

// CacheConfig holds the parameters of one cache.
type CacheConfig struct {
	Sets          int    `json:"sets"`
	SetSizeKB     int    `json:"setsize_kb"`
	LineWords     int    `json:"linesize_words"`
	Replacement   string `json:"replacement"`
	LineLocking   bool   `json:"line_locking"`
	BurstFetch    bool   `json:"burst_fetch"`
	WriteAllocate bool   `json:"write_allocate"`
	Snooping      bool   `json:"snooping"`
	Seed          uint64 `json:"seed"`
}

// MMUConfig holds the parameters of the MMU.
type MMUConfig struct {
	Enabled     bool   `json:"enabled"`
	PageSizeKB  int    `json:"page_size_kb"`
	ITLBEntries int    `json:"itlb_entries"`
	DTLBEntries int    `json:"dtlb_entries"`
	SeparateTLB bool   `json:"separate_tlb"`
	Eviction    string `json:"eviction"`
}

// LocalRAMConfig describes the scratchpad RAM next to the data cache.
type LocalRAMConfig struct {
	Enabled bool   `json:"enabled"`
	Start   uint32 `json:"start"`
	SizeKB  int    `json:"size_kb"`
}

// MemoryConfig describes the simulated main memory.
type MemoryConfig struct {
	SizeBytes uint64 `json:"size_bytes"`
}

// MonitorConfig controls the monitoring server of the run command. Port 0
// picks a free port.
type MonitorConfig struct {
	Port      int  `json:"port"`
	DevAssets bool `json:"dev_assets"`
}

// Config is the full parameter set.
type Config struct {
	ICache   CacheConfig    `json:"icache"`
	DCache   CacheConfig    `json:"dcache"`
	MMU      MMUConfig      `json:"mmu"`
	LocalRAM LocalRAMConfig `json:"local_ram"`
	Memory   MemoryConfig   `json:"memory"`
	Monitor  MonitorConfig  `json:"monitor"`
}

// DefaultConfig returns the parameters of a direct-mapped 4 KiB cache pair
// with 4-word lines, no MMU and 16 MiB of memory.
func DefaultConfig() Config {
	c := CacheConfig{
		Sets:        1,
		SetSizeKB:   4,
		LineWords:   4,
		Replacement: cache.PolicyDirectMapped.String(),
		Snooping:    true,
		Seed:        1,
	}

	return Config{
		ICache: c,
		DCache: c,
		MMU: MMUConfig{
			PageSizeKB:  4,
			ITLBEntries: 8,
			DTLBEntries: 8,
			Eviction:    tlb.EvictFIFO.String(),
		},
		Memory: MemoryConfig{SizeBytes: 16 << 20},
	}
}

// LoadJSON reads a JSON parameter file. Absent fields keep their default
// values.
func LoadJSON(path string) (Config, error) {
	c := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// Load picks the loader by the file extension.
func Load(path string) (Config, error) {
	switch filepath.Ext(path) {
	case ".lua":
		return LoadLua(path)
	case ".json":
		return LoadJSON(path)
	default:
		return Config{}, fmt.Errorf("%s: unknown configuration format", path)
	}
}

// JSON returns the configuration as indented JSON.
func (c Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

func (c CacheConfig) builder() (cache.Builder, error) {
	policy, err := cache.ParseReplacementPolicy(c.Replacement)
	if err != nil {
		return cache.Builder{}, &cache.ConfigurationError{
			Param: "policy", Reason: err.Error()}
	}

	return cache.MakeBuilder().
		WithNumSets(c.Sets).
		WithSetSizeKB(c.SetSizeKB).
		WithLineSizeWords(c.LineWords).
		WithReplacementPolicy(policy).
		WithLineLocking(c.LineLocking).
		WithBurstFetch(c.BurstFetch).
		WithWriteAllocate(c.WriteAllocate).
		WithSnooping(c.Snooping).
		WithRandomSeed(c.Seed), nil
}

func (c MMUConfig) builder() (mmu.Builder, error) {
	pageSize, err := vm.ParsePageSize(c.PageSizeKB * 1024)
	if err != nil {
		return mmu.Builder{}, &mmu.ConfigurationError{
			Param: "pagesize", Value: c.PageSizeKB, Reason: err.Error()}
	}

	eviction, err := tlb.ParseEvictionPolicy(c.Eviction)
	if err != nil {
		return mmu.Builder{}, &mmu.ConfigurationError{
			Param: "eviction", Reason: err.Error()}
	}

	return mmu.MakeBuilder().
		WithPageSize(pageSize).
		WithTLBEntries(c.ITLBEntries, c.DTLBEntries).
		WithSeparateTLB(c.SeparateTLB).
		WithEvictionPolicy(eviction), nil
}

// Builder turns the configuration into a subsystem builder around the given
// memory and scratchpad adaptors. The scratchpad may be nil if no local RAM
// is configured.
func (c Config) Builder(
	memory, scratchpad mem.MemoryAdaptor,
) (mmucache.Builder, error) {
	ib, err := c.ICache.builder()
	if err != nil {
		return mmucache.Builder{}, err
	}

	db, err := c.DCache.builder()
	if err != nil {
		return mmucache.Builder{}, err
	}

	b := mmucache.MakeBuilder().
		WithICache(ib).
		WithDCache(db).
		WithMemoryAdaptor(memory)

	if c.MMU.Enabled {
		mb, err := c.MMU.builder()
		if err != nil {
			return mmucache.Builder{}, err
		}

		b = b.WithMMU(mb)
	}

	if c.LocalRAM.Enabled {
		b = b.WithScratchpad(cache.LocalRAM{
			Enabled: true,
			Start:   c.LocalRAM.Start,
			SizeKB:  c.LocalRAM.SizeKB,
		}, scratchpad)
	}

	return b, nil
}

var errNoMemory = errors.New("memory adaptor of a validation build")

// Validate builds the subsystem once and returns the first configuration
// error.
func (c Config) Validate() error {
	if c.Memory.SizeBytes == 0 || c.Memory.SizeBytes > 1<<32 {
		return &cache.ConfigurationError{Param: "memory",
			Reason: "size must be from 1 byte to 4 GiB"}
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return &cache.ConfigurationError{Param: "monitor_port",
			Value: c.Monitor.Port, Reason: "must be from 0 to 65535"}
	}

	unused := mem.AdaptorFuncs{
		ReadFunc: func(context.Context, uint32, uint32) ([]byte, error) {
			return nil, errNoMemory
		},
		WriteFunc: func(context.Context, uint32, []byte) error {
			return errNoMemory
		},
	}

	b, err := c.Builder(unused, unused)
	if err != nil {
		return err
	}

	_, err = b.Build("Validate")

	return err
}
