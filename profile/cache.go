// Package profile measures how a program uses memory by replaying its
// accesses through set-associative cache models.
package profile

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles
	MissLatency uint64
}

// DefaultICacheConfig returns a small instruction cache with
// paragraph-sized lines.
func DefaultICacheConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   8,
	}
}

// DefaultDCacheConfig returns a small data cache.
func DefaultDCacheConfig() Config {
	return Config{
		Size:          8 * 1024,
		Associativity: 4,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   8,
	}
}

// Validate checks that the geometry describes at least one full set.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block size %d must be a positive power of two", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity %d must be positive", c.Associativity)
	}
	if c.Size < c.BlockSize*c.Associativity || c.Size%(c.BlockSize*c.Associativity) != 0 {
		return fmt.Errorf("size %d must be a multiple of %d", c.Size, c.BlockSize*c.Associativity)
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	Hit     bool
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the replaced block.
	EvictedAddr uint64
	// Writeback is true if the replaced block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// HitRate returns the fraction of accesses that hit.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// Cache is a write-back, write-allocate cache that tracks tags only.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// NewCache creates a cache with the given configuration.
func NewCache(config Config) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	numSets := config.Size / (config.Associativity * config.BlockSize)
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Read records a read of addr.
func (c *Cache) Read(addr uint64) AccessResult {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write records a write of addr.
func (c *Cache) Write(addr uint64) AccessResult {
	c.stats.Writes++
	return c.access(addr, true)
}

func (c *Cache) access(addr uint64, isWrite bool) AccessResult {
	blockAddr := addr &^ uint64(c.config.BlockSize-1)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if isWrite {
			block.IsDirty = true
		}
		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}
	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite
	c.directory.Visit(victim)

	return result
}

// Flush writes back dirty blocks and invalidates everything.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all lines without writeback and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
