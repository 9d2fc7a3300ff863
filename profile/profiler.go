package profile

import (
	"fmt"
	"io"

	"github.com/sarchlab/sim8086/emu"
)

// Profiler is an emu.AccessWatcher that sends instruction fetches to an
// instruction cache and data accesses to a data cache.
type Profiler struct {
	icache *Cache
	dcache *Cache

	fetches uint64
	reads   uint64
	writes  uint64
	cycles  uint64
}

// NewProfiler creates a profiler with the given cache geometries.
func NewProfiler(icfg, dcfg Config) (*Profiler, error) {
	icache, err := NewCache(icfg)
	if err != nil {
		return nil, fmt.Errorf("instruction cache: %w", err)
	}
	dcache, err := NewCache(dcfg)
	if err != nil {
		return nil, fmt.Errorf("data cache: %w", err)
	}
	return &Profiler{icache: icache, dcache: dcache}, nil
}

// Attach installs p as the memory watcher of e.
func (p *Profiler) Attach(e *emu.Emulator) {
	e.Memory().SetWatcher(p)
}

// MemoryAccess implements emu.AccessWatcher.
func (p *Profiler) MemoryAccess(kind emu.AccessKind, addr uint32) {
	var r AccessResult
	switch kind {
	case emu.AccessFetch:
		p.fetches++
		r = p.icache.Read(uint64(addr))
	case emu.AccessRead:
		p.reads++
		r = p.dcache.Read(uint64(addr))
	case emu.AccessWrite:
		p.writes++
		r = p.dcache.Write(uint64(addr))
	default:
		return
	}
	p.cycles += r.Latency
}

// ICache returns the instruction cache.
func (p *Profiler) ICache() *Cache {
	return p.icache
}

// DCache returns the data cache.
func (p *Profiler) DCache() *Cache {
	return p.dcache
}

// Reset clears both caches and all counters.
func (p *Profiler) Reset() {
	p.icache.Reset()
	p.dcache.Reset()
	p.fetches, p.reads, p.writes, p.cycles = 0, 0, 0, 0
}

// Report summarizes the profile.
type Report struct {
	Fetches      uint64     `json:"fetches"`
	Reads        uint64     `json:"reads"`
	Writes       uint64     `json:"writes"`
	MemoryCycles uint64     `json:"memory_cycles"`
	ICache       Statistics `json:"icache"`
	DCache       Statistics `json:"dcache"`
}

// Report returns the current counters.
func (p *Profiler) Report() Report {
	return Report{
		Fetches:      p.fetches,
		Reads:        p.reads,
		Writes:       p.writes,
		MemoryCycles: p.cycles,
		ICache:       p.icache.Stats(),
		DCache:       p.dcache.Stats(),
	}
}

// Print writes a human-readable report.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Memory accesses: %d fetch, %d read, %d write\n",
		r.Fetches, r.Reads, r.Writes)
	fmt.Fprintf(w, "Memory cycles:   %d\n", r.MemoryCycles)
	printStats(w, "I-cache", r.ICache)
	printStats(w, "D-cache", r.DCache)
}

func printStats(w io.Writer, name string, s Statistics) {
	fmt.Fprintf(w, "%s: %d hits, %d misses (%.1f%% hit rate), %d evictions, %d writebacks\n",
		name, s.Hits, s.Misses, s.HitRate()*100, s.Evictions, s.Writebacks)
}
