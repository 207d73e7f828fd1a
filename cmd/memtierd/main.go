// Copyright 2024 Memtierd Contributors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pagetier/memtierd/pkg/memtier"
)

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, fmt.Sprintf("memtierd: "+format+"\n", a...))
	os.Exit(1)
}

func main() {
	optPid := flag.Int("pid", 0, "-pid=PID the process to scan")
	optInterval := flag.Int("interval", 8, "-interval=N idle-bit sweeps per scan round")
	optSleep := flag.Float64("sleep", 1.0, "-sleep=SECONDS time to sleep between scan rounds")
	optLoop := flag.Int("loop", 1, "-loop=N number of scan rounds, 0 means forever")
	optOutput := flag.String("output", "", "-output=FILE write the per-round summary here instead of stdout")
	optDRAM := flag.Int("dram", -1, "-dram=PERCENT target fast-node occupancy; omit to derive it from live vmstat")
	optMigrate := flag.String("migrate", "both", "-migrate=0|none,1|hot,2|cold,3|both")
	optVerbose := flag.Bool("verbose", false, "-verbose show debug info")

	flag.Parse()

	if *optPid == 0 {
		exit("missing -pid=PID")
	}
	if *optInterval <= 0 {
		exit("-interval must be positive")
	}

	memtier.SetLogDebug(*optVerbose)

	migrateWhat, err := memtier.ParseMigrateWhat(*optMigrate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memtierd: %v, falling back to none\n", err)
		migrateWhat = memtier.MigrateNone
	}

	out := os.Stdout
	if *optOutput != "" {
		f, err := os.Create(*optOutput)
		if err != nil {
			exit("cannot create -output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	// Fast node 0, slow node 1: the two-node DRAM/PMEM layout the
	// original tool targets. A richer topology would need a
	// --target-node=class:node flag; out of scope for this CLI.
	cfg := memtier.NewTierConfig(0, 1)
	cfg.MigrateWhat = migrateWhat
	cfg.NrWalks = *optInterval
	if *optDRAM >= 0 {
		cfg.DRAMPercent = optDRAM
	}

	scanner := memtier.NewScanner()
	maps := memtier.NewProcMaps()
	vmstat := memtier.NewVMStat()
	migrator := &memtier.Migrator{BatchSize: cfg.BatchSize}
	orchestrator := memtier.NewOrchestrator(cfg, migrator, vmstat)

	for round := 0; *optLoop == 0 || round < *optLoop; round++ {
		if err := runRound(*optPid, cfg, scanner, maps, orchestrator, out, round); err != nil {
			exit("round %d: %v", round, err)
		}
		if *optLoop == 0 || round < *optLoop-1 {
			time.Sleep(time.Duration(*optSleep * float64(time.Second)))
		}
	}
}

// runRound scans pid for cfg.NrWalks sweeps, runs one orchestrator
// tick against the result, and prints a summary line regardless of
// whether the tick returned an error partway through.
func runRound(pid int, cfg *memtier.TierConfig, scanner *memtier.Scanner, maps memtier.ProcMaps, o *memtier.Orchestrator, out *os.File, round int) error {
	hist, err := scanner.Scan(pid, maps, cfg.NrWalks)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	results, tickErr := o.Tick(pid, hist, cfg.NrWalks)
	summarizeRound(out, round, results)
	if tickErr != nil {
		return fmt.Errorf("tick: %w", tickErr)
	}
	return nil
}

func summarizeRound(out *os.File, round int, results map[memtier.PageClass]*memtier.ClassResult) {
	fmt.Fprintf(out, "round %d:\n", round)
	for _, class := range memtier.PageClasses {
		r, ok := results[class]
		if !ok || r == nil {
			continue
		}
		if r.Skipped {
			fmt.Fprintf(out, "  %-14s skipped\n", class)
			continue
		}
		fmt.Fprintf(out, "  %-14s refs=[%d,%d] portion=%d moved=%d node0=%d%% err=%d%%\n",
			class, r.MinRefs, r.MaxRefs, r.Portion, len(r.Status), r.Stats.Node0Percent, r.Stats.ErrorPercent)
	}
}
