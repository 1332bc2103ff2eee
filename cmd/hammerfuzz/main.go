package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/example/hammerfuzz/addrmap"
	"github.com/example/hammerfuzz/codejit"
	"github.com/example/hammerfuzz/dram"
	"github.com/example/hammerfuzz/dramanalyzer"
	"github.com/example/hammerfuzz/memregion"
	"github.com/example/hammerfuzz/orchestrator"
	"github.com/example/hammerfuzz/patternio"
)

const (
	channelsArg   = "channels"
	dimmsArg      = "dimms"
	ranksArg      = "ranks"
	banksArg      = "banks"
	regionArg     = "region-size"
	actsPerRefArg = "measured-acts-per-ref"
	conflictsArg  = "bank-conflicts-confirmed"
	iterationsArg = "iterations"
	seedArg       = "seed"
	cpuArg        = "cpu"
	outDirArg     = "out"
	helpArg       = "h"

	appName = "hammerfuzz"
	usage   = appName + `
DESCRIPTION
  Runs the rowhammer fuzzing core against one allocated region: for
  each iteration it randomizes parameters, builds a frequency-based
  pattern, maps it into a bank, jits the hammering routine, runs it,
  and (if -` + outDirArg + ` is set) persists the pattern and mapping
  to disk as JSON.

USAGE
  ` + appName + ` [options]

OPTIONS
`
)

func main() {
	log.SetFlags(0)

	err := mainWithError()
	if err != nil {
		log.Fatalln("fatal:", err)
	}
}

func mainWithError() error {
	help := flag.Bool(helpArg, false, "Display this information")

	channels := flag.Int(channelsArg, 1, "DIMM topology: channel count")
	dimms := flag.Int(dimmsArg, 1, "DIMM topology: DIMM count")
	ranks := flag.Int(ranksArg, 1, "DIMM topology: rank count")
	banks := flag.Int(banksArg, 16, "DIMM topology: bank count")

	regionSize := flag.Int(regionArg, 1<<30, "Bytes to allocate for the hammering region")
	actsPerRef := flag.Int(actsPerRefArg, 0,
		"Measured activations per REFRESH window; 0 probes nothing and assumes a conservative default")
	conflictsConfirmed := flag.Bool(conflictsArg, true,
		"Whether this machine's chosen MemConfig has been confirmed to induce bank conflicts")

	iterations := flag.Int(iterationsArg, 1, "Number of fuzzing iterations to run")
	seed := flag.Int64(seedArg, 1, "Seed for the parameter/pattern/mapping random source")
	cpu := flag.Int(cpuArg, -1, "Pin the hammering thread to this CPU; -1 disables pinning")
	outDir := flag.String(outDirArg, "", "Directory to write one pattern JSON document per iteration into; empty disables persistence")

	flag.Parse()

	if *help {
		os.Stderr.WriteString(usage)
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *actsPerRef <= 0 {
		*actsPerRef = 8192
	}

	registry := dram.NewRegistry()
	key := dram.Key{Channels: *channels, DIMMs: *dimms, Ranks: *ranks, Banks: *banks}

	o, err := orchestrator.Bootstrap(orchestrator.Config{
		Allocator:  memregion.NewLinuxHugePageAllocator(),
		Measurer:   dramanalyzer.NewFixedMeasurer(*actsPerRef, *conflictsConfirmed),
		Registry:   registry,
		Key:        key,
		RegionSize: *regionSize,
		Logger:     log.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap orchestrator - %w", err)
	}

	if *cpu >= 0 {
		// Locked for the remainder of the process: RunHammering below
		// also calls LockOSThread/UnlockOSThread per iteration, and Go's
		// lock count is per-goroutine, so this outer lock keeps the
		// goroutine pinned to the same OS thread across every iteration
		// instead of just the first.
		runtime.LockOSThread()
		if err := codejit.PinCurrentThreadToCPU(*cpu); err != nil {
			return fmt.Errorf("failed to pin hammering thread to CPU %d - %w", *cpu, err)
		}
	}

	rng := rand.New(rand.NewSource(*seed))

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create -%s directory - %w", outDirArg, err)
		}
	}

	for i := 0; i < *iterations; i++ {
		result := o.RunIterationOrExit(rng)

		log.Printf("iteration %d: pattern %s mapped to bank %d, rows [%d, %d), hammering %d time(s)",
			i, result.Pattern.InstanceID, result.Mapping.BankNo, result.Mapping.MinRow, result.Mapping.MaxRow,
			result.HammeringReps)

		counts, err := o.RunHammering(result)
		if err != nil {
			return fmt.Errorf("iteration %d: failed to run hammering routine - %w", i, err)
		}
		log.Printf("iteration %d: post-sync pass counts per repetition: %v", i, counts)

		if *outDir != "" {
			doc, err := patternio.Marshal(result.Pattern, []*addrmap.Mapping{result.Mapping})
			if err != nil {
				return fmt.Errorf("iteration %d: failed to marshal pattern - %w", i, err)
			}

			path := filepath.Join(*outDir, "pattern-"+strconv.Itoa(i)+".json")
			if err := os.WriteFile(path, doc, 0o644); err != nil {
				return fmt.Errorf("iteration %d: failed to write %s - %w", i, path, err)
			}
		}
	}

	return nil
}
