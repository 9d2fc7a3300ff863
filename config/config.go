// Package config holds the machine configuration shared by the command
// line tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/loader"
	"github.com/sarchlab/sim8086/profile"
)

// Registers holds initial register values that override what the
// loader chose. Nil fields are left alone.
type Registers struct {
	CS    *uint16 `json:"cs,omitempty" yaml:"cs,omitempty"`
	IP    *uint16 `json:"ip,omitempty" yaml:"ip,omitempty"`
	SS    *uint16 `json:"ss,omitempty" yaml:"ss,omitempty"`
	SP    *uint16 `json:"sp,omitempty" yaml:"sp,omitempty"`
	DS    *uint16 `json:"ds,omitempty" yaml:"ds,omitempty"`
	ES    *uint16 `json:"es,omitempty" yaml:"es,omitempty"`
	Flags *uint16 `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Apply writes the set fields into r.
func (g Registers) Apply(r *emu.RegFile) {
	set := func(dst *uint16, v *uint16) {
		if v != nil {
			*dst = *v
		}
	}
	set(&r.CS, g.CS)
	set(&r.IP, g.IP)
	set(&r.SS, g.SS)
	set(&r.GP[emu.SP], g.SP)
	set(&r.DS, g.DS)
	set(&r.ES, g.ES)
	if g.Flags != nil {
		r.Flags = *g.Flags & emu.DefinedFlags
	}
}

func (g Registers) clone() Registers {
	dup := func(v *uint16) *uint16 {
		if v == nil {
			return nil
		}
		c := *v
		return &c
	}
	return Registers{
		CS:    dup(g.CS),
		IP:    dup(g.IP),
		SS:    dup(g.SS),
		SP:    dup(g.SP),
		DS:    dup(g.DS),
		ES:    dup(g.ES),
		Flags: dup(g.Flags),
	}
}

// Cache is the geometry of one profiling cache.
type Cache struct {
	Size          int    `json:"size" yaml:"size"`
	Associativity int    `json:"associativity" yaml:"associativity"`
	BlockSize     int    `json:"block_size" yaml:"block_size"`
	HitLatency    uint64 `json:"hit_latency" yaml:"hit_latency"`
	MissLatency   uint64 `json:"miss_latency" yaml:"miss_latency"`
}

func fromProfile(c profile.Config) Cache {
	return Cache{
		Size:          c.Size,
		Associativity: c.Associativity,
		BlockSize:     c.BlockSize,
		HitLatency:    c.HitLatency,
		MissLatency:   c.MissLatency,
	}
}

// Profile converts the geometry to a profile.Config.
func (c Cache) Profile() profile.Config {
	return profile.Config{
		Size:          c.Size,
		Associativity: c.Associativity,
		BlockSize:     c.BlockSize,
		HitLatency:    c.HitLatency,
		MissLatency:   c.MissLatency,
	}
}

// Machine configures one emulation run.
type Machine struct {
	// Format is the image format: auto, raw, com or exe.
	Format string `json:"format" yaml:"format"`

	// LoadSegment is the PSP segment for COM and EXE images.
	LoadSegment uint16 `json:"load_segment" yaml:"load_segment"`

	// RawAddress is the physical load address for raw images.
	RawAddress uint32 `json:"raw_address" yaml:"raw_address"`

	Registers Registers `json:"registers" yaml:"registers"`

	// MaxInstructions stops runaway programs. Zero means no limit.
	MaxInstructions uint64 `json:"max_instructions" yaml:"max_instructions"`

	Trace          bool `json:"trace" yaml:"trace"`
	TraceRegisters bool `json:"trace_registers" yaml:"trace_registers"`

	// Script is an optional Lua interrupt script.
	Script string `json:"script,omitempty" yaml:"script,omitempty"`

	// Console enables the BIOS and DOS console services.
	Console bool `json:"console" yaml:"console"`

	// DebugAddr is the listen address of the websocket state stream.
	// Empty disables it.
	DebugAddr  string `json:"debug_addr,omitempty" yaml:"debug_addr,omitempty"`
	DebugEvery uint64 `json:"debug_every" yaml:"debug_every"`

	Profile bool  `json:"profile" yaml:"profile"`
	ICache  Cache `json:"icache" yaml:"icache"`
	DCache  Cache `json:"dcache" yaml:"dcache"`

	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Default returns the default machine configuration.
func Default() *Machine {
	return &Machine{
		Format:          loader.FormatAuto.String(),
		LoadSegment:     loader.DefaultLoadSegment,
		MaxInstructions: 0,
		Console:         true,
		DebugEvery:      1,
		ICache:          fromProfile(profile.DefaultICacheConfig()),
		DCache:          fromProfile(profile.DefaultDCacheConfig()),
		LogLevel:        logrus.InfoLevel.String(),
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a configuration file over the defaults. Files ending in
// .yaml or .yml are YAML, anything else is JSON.
func Load(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the configuration in the format implied by path.
func (c *Machine) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Machine) Validate() error {
	if _, err := loader.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.RawAddress >= emu.MemorySize {
		return fmt.Errorf("raw_address 0x%X is outside the 1MB address space", c.RawAddress)
	}
	if c.LoadSegment == 0 {
		return fmt.Errorf("load_segment must be > 0")
	}
	if c.LoadSegment > loader.MaxLoadSegment {
		return fmt.Errorf("load_segment 0x%04X is above 0x%04X", c.LoadSegment, loader.MaxLoadSegment)
	}
	if c.DebugAddr != "" && c.DebugEvery == 0 {
		return fmt.Errorf("debug_every must be > 0")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Profile {
		if err := c.ICache.Profile().Validate(); err != nil {
			return fmt.Errorf("icache: %w", err)
		}
		if err := c.DCache.Profile().Validate(); err != nil {
			return fmt.Errorf("dcache: %w", err)
		}
	}
	return nil
}

// LoaderOptions returns the loader options described by c.
func (c *Machine) LoaderOptions() (loader.Options, error) {
	format, err := loader.ParseFormat(c.Format)
	if err != nil {
		return loader.Options{}, err
	}
	return loader.Options{
		Format:      format,
		LoadSegment: c.LoadSegment,
		RawAddress:  c.RawAddress,
	}, nil
}

// Clone returns a deep copy of the configuration.
func (c *Machine) Clone() *Machine {
	dup := *c
	dup.Registers = c.Registers.clone()
	return &dup
}
