// Package config reads the simulator's settings document once, at startup,
// into a validated Settings value. Nothing downstream of config.Load
// touches the document format again.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// SimulationMode selects how far the core takes a guest program: pure
// emulation, an in-order timing model, or the full out-of-order core.
type SimulationMode string

const (
	// ModeEmulation runs the guest program for correctness only, with no
	// timing model at all.
	ModeEmulation SimulationMode = "emulation"
	// ModeInOrderPipelined runs a simple in-order timing model.
	ModeInOrderPipelined SimulationMode = "inorderpipelined"
	// ModeOutOfOrder runs the full superscalar out-of-order core.
	ModeOutOfOrder SimulationMode = "outoforder"
)

// Core holds top-level simulation parameters.
type Core struct {
	SimulationMode     SimulationMode `yaml:"simulation_mode"`
	ClockFrequencyGHz  float64        `yaml:"clock_frequency_ghz"`
	TimerFrequencyMHz  float64        `yaml:"timer_frequency_mhz"`
	CommitWidth        int            `yaml:"commit_width"`
	FetchWidth         int            `yaml:"fetch_width"`
	ROBSize            int            `yaml:"rob_size"`
	GeneralRegisters   int            `yaml:"general_registers"`
	VectorRegisters    int            `yaml:"vector_registers"`
	ArchGeneralRegs    int            `yaml:"arch_general_registers"`
	ArchVectorRegs     int            `yaml:"arch_vector_registers"`
	// SystemRegisters/ArchSystemRegs size the physical/architectural file
	// backing condition flags and other single-valued control state, renamed
	// like any other register so flag-setting instructions can be flushed
	// and rolled back the same way.
	SystemRegisters int `yaml:"system_registers"`
	ArchSystemRegs  int `yaml:"arch_system_registers"`
}

// BranchPredictorConfig configures the bimodal predictor's table sizes.
type BranchPredictorConfig struct {
	BTBBits uint32 `yaml:"btb_bits"`
	BHTBits uint32 `yaml:"bht_bits"`
}

// Port names one issue port and the op classes it accepts.
type Port struct {
	Name             string   `yaml:"name"`
	InstructionGroups []string `yaml:"instruction_groups"`
}

// ReservationStation configures one reservation station and the ports it
// feeds.
type ReservationStation struct {
	Size         int   `yaml:"size"`
	DispatchRate int   `yaml:"dispatch_rate"`
	Ports        []int `yaml:"ports"`
}

// CPUInfo holds metadata about the core reported to the guest program, and
// a flag for whether to synthesize a /proc/cpuinfo-style special file.
type CPUInfo struct {
	GenerateSpecialDir bool `yaml:"generate_special_dir"`
}

// MemoryConfig configures the backing cache and memory latencies.
type MemoryConfig struct {
	CacheLineWidth uint64 `yaml:"cache_line_width"`
	L1Size         int    `yaml:"l1_size"`
	L1Associativity int   `yaml:"l1_associativity"`
	L1HitLatency   int    `yaml:"l1_hit_latency"`
	MissLatency    int    `yaml:"miss_latency"`
}

// Latencies configures the per-op-class execution latency table.
type Latencies struct {
	ALU              uint64 `yaml:"alu"`
	Branch           uint64 `yaml:"branch"`
	BranchMispredict uint64 `yaml:"branch_mispredict_penalty"`
	Load             uint64 `yaml:"load"`
	Store            uint64 `yaml:"store"`
	Multiply         uint64 `yaml:"multiply"`
	DivideMin        uint64 `yaml:"divide_min"`
	DivideMax        uint64 `yaml:"divide_max"`
	Syscall          uint64 `yaml:"syscall"`
	SIMDInt          uint64 `yaml:"simd_int"`
	SIMDFloat        uint64 `yaml:"simd_float"`
	SIMDLoad         uint64 `yaml:"simd_load"`
	SIMDStore        uint64 `yaml:"simd_store"`
}

// Settings is the fully-parsed, validated configuration document. It is
// built once by Load and passed by pointer to every component constructor.
type Settings struct {
	Core               Core                 `yaml:"core"`
	BranchPredictor    BranchPredictorConfig `yaml:"branch_predictor"`
	Ports              []Port               `yaml:"ports"`
	ReservationStations []ReservationStation `yaml:"reservation_stations"`
	CPUInfo            CPUInfo              `yaml:"cpu_info"`
	Memory             MemoryConfig         `yaml:"memory"`
	Latencies          Latencies            `yaml:"latencies"`
}

// Default returns a Settings value describing a modest quad-issue
// out-of-order core, used when no document is supplied.
func Default() *Settings {
	return &Settings{
		Core: Core{
			SimulationMode:    ModeOutOfOrder,
			ClockFrequencyGHz: 3.5,
			TimerFrequencyMHz: 100,
			CommitWidth:       4,
			FetchWidth:        4,
			ROBSize:           128,
			GeneralRegisters:  96,
			VectorRegisters:   64,
			ArchGeneralRegs:   32,
			ArchVectorRegs:    32,
			SystemRegisters:   8,
			ArchSystemRegs:    1,
		},
		BranchPredictor: BranchPredictorConfig{BTBBits: 8, BHTBits: 10},
		Ports: []Port{
			{Name: "ALU0", InstructionGroups: []string{"alu", "branch"}},
			{Name: "ALU1", InstructionGroups: []string{"alu"}},
			{Name: "LOAD", InstructionGroups: []string{"load"}},
			{Name: "STORE", InstructionGroups: []string{"store"}},
		},
		ReservationStations: []ReservationStation{
			{Size: 16, DispatchRate: 2, Ports: []int{0, 1}},
			{Size: 12, DispatchRate: 1, Ports: []int{2}},
			{Size: 12, DispatchRate: 1, Ports: []int{3}},
		},
		CPUInfo: CPUInfo{GenerateSpecialDir: true},
		Memory: MemoryConfig{
			CacheLineWidth:  64,
			L1Size:          32 * 1024,
			L1Associativity: 8,
			L1HitLatency:    4,
			MissLatency:     140,
		},
		Latencies: Latencies{
			ALU: 1, Branch: 1, BranchMispredict: 12,
			Load: 4, Store: 1, Multiply: 3,
			DivideMin: 10, DivideMax: 15, Syscall: 1,
			SIMDInt: 2, SIMDFloat: 3, SIMDLoad: 5, SIMDStore: 2,
		},
	}
}

// Load reads and parses a YAML settings document from path, filling any
// field the document omits from Default, then validates the result.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading settings file: %w", err)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("config: parsing settings document: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid settings: %w", err)
	}
	return settings, nil
}

// Validate checks that Settings describes a buildable core.
func (s *Settings) Validate() error {
	switch s.Core.SimulationMode {
	case ModeEmulation, ModeInOrderPipelined, ModeOutOfOrder:
	default:
		return fmt.Errorf("unknown core.simulation_mode %q", s.Core.SimulationMode)
	}
	if s.Core.CommitWidth <= 0 {
		return fmt.Errorf("core.commit_width must be > 0")
	}
	if s.Core.FetchWidth <= 0 {
		return fmt.Errorf("core.fetch_width must be > 0")
	}
	if s.Core.ROBSize <= 0 {
		return fmt.Errorf("core.rob_size must be > 0")
	}
	if len(s.Ports) == 0 {
		return fmt.Errorf("at least one port must be configured")
	}
	if len(s.ReservationStations) == 0 {
		return fmt.Errorf("at least one reservation station must be configured")
	}
	for i, rs := range s.ReservationStations {
		if rs.Size <= 0 {
			return fmt.Errorf("reservation_stations[%d].size must be > 0", i)
		}
		if rs.DispatchRate <= 0 {
			return fmt.Errorf("reservation_stations[%d].dispatch_rate must be > 0", i)
		}
		for _, p := range rs.Ports {
			if p < 0 || p >= len(s.Ports) {
				return fmt.Errorf("reservation_stations[%d] references unknown port %d", i, p)
			}
		}
	}
	if s.Latencies.DivideMin > s.Latencies.DivideMax {
		return fmt.Errorf("latencies.divide_min must be <= latencies.divide_max")
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Ports = append([]Port(nil), s.Ports...)
	for i := range c.Ports {
		c.Ports[i].InstructionGroups = append([]string(nil), s.Ports[i].InstructionGroups...)
	}
	c.ReservationStations = append([]ReservationStation(nil), s.ReservationStations...)
	for i := range c.ReservationStations {
		c.ReservationStations[i].Ports = append([]int(nil), s.ReservationStations[i].Ports...)
	}
	return &c
}

// PortIndexByName returns the index of the port with the given name, or
// ok=false if no such port is configured.
func (s *Settings) PortIndexByName(name string) (int, bool) {
	for i, p := range s.Ports {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}
