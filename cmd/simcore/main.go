// Package main is the entry point for SimEng, a cycle-accurate superscalar
// out-of-order ARM64 core simulator.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/mutalibmohammed/SimEng/arch"
	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/core"
	"github.com/mutalibmohammed/SimEng/loader"
	"github.com/mutalibmohammed/SimEng/memio"
	"github.com/mutalibmohammed/SimEng/predictor"
	"github.com/mutalibmohammed/SimEng/timing/cache"
)

var (
	configPath = flag.String("config", "", "path to a YAML settings document (defaults built in if omitted)")
	verbose    = flag.Bool("v", false, "print a cycle/stall/prediction summary after the run")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: simcore [options] <program.elf>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	programPath := flag.Arg(0)

	cfg, err := loadSettings(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simcore: %v\n", err)
		os.Exit(1)
	}

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simcore: loading program: %v\n", err)
		os.Exit(1)
	}

	mem := arch.NewMemory()
	for _, seg := range prog.Segments {
		mem.LoadImage(seg.VirtAddr, seg.Data)
	}

	c, err := buildCore(cfg, mem)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simcore: %v\n", err)
		os.Exit(1)
	}
	c.SetPC(prog.EntryPoint)

	if *verbose {
		fmt.Printf("loaded %s: entry 0x%x, %d segments\n", programPath, prog.EntryPoint, len(prog.Segments))
	}

	exitCode := c.Run()

	if *verbose {
		printSummary(c)
	}

	os.Exit(int(exitCode))
}

func loadSettings(path string) (*config.Settings, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildCore assembles the memory hierarchy and ISA collaborators around
// mem and wires them into a fresh Core. Instruction and data sides each get
// their own L1 cache instance, sized identically from cfg.Memory, sitting
// in front of the same backing guest memory.
func buildCore(cfg *config.Settings, mem *arch.Memory) (*core.Core, error) {
	cacheCfg := cache.Config{
		Size:          cfg.Memory.L1Size,
		Associativity: cfg.Memory.L1Associativity,
		BlockSize:     int(cfg.Memory.CacheLineWidth),
		HitLatency:    uint64(cfg.Memory.L1HitLatency),
		MissLatency:   uint64(cfg.Memory.MissLatency),
	}

	icache := cache.New(cacheCfg, mem)
	dcache := cache.New(cacheCfg, mem)

	imem := memio.NewSplitInterface(cache.Adapter{Cache: icache}, cfg.Memory.CacheLineWidth, cfg.Memory.MissLatency)
	dmem := memio.NewSplitInterface(cache.Adapter{Cache: dcache}, cfg.Memory.CacheLineWidth, cfg.Memory.MissLatency)

	decoder := arch.NewDecoder(cfg)
	exHandler := arch.NewExceptionHandler(mem, os.Stdin, os.Stdout, os.Stderr)
	pred := predictor.NewBimodal(predictor.Config{
		BHTBits: cfg.BranchPredictor.BHTBits,
		BTBBits: cfg.BranchPredictor.BTBBits,
	})

	return core.New(cfg, core.Dependencies{
		Decoder:   decoder,
		ExHandler: exHandler,
		IMem:      imem,
		DMem:      dmem,
		Predictor: pred,
	})
}

// printSummary prints every named counter the core and its stages
// registered, sorted by name so the output is stable across runs.
func printSummary(c *core.Core) {
	snap := c.Stats()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\nexit code: %d\n", c.ExitCode())
	for _, name := range names {
		fmt.Printf("  %-28s %s\n", name, snap[name])
	}
}
