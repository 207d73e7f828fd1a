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

package memtier

import "fmt"

// ClassResult is what one PageClass's pipeline produced in a tick.
type ClassResult struct {
	MinRefs, MaxRefs, Portion int
	Skipped                   bool // true when the histogram was empty
	Status                    MigrationStatus
	Stats                     MigrationStats
}

// Orchestrator sequences threshold selection, page selection, and
// migration over the four page classes on each tick.
type Orchestrator struct {
	Config   *TierConfig
	Migrator *Migrator
	VMStat   VMStat
}

// NewOrchestrator builds an Orchestrator over cfg, moving pages with
// migrator and reading capacity ratios from vmstat.
func NewOrchestrator(cfg *TierConfig, migrator *Migrator, vmstat VMStat) *Orchestrator {
	return &Orchestrator{Config: cfg, Migrator: migrator, VMStat: vmstat}
}

// coldClassOrder and hotClassOrder fix the strict small-then-large
// processing order within each half of a tick.
var coldClassOrder = []PageClass{SmallIdle, LargeIdle}
var hotClassOrder = []PageClass{SmallAccessed, LargeAccessed}

// Tick runs one scan/classify/migrate round for pid against hist, the
// per-class histograms a Scanner just produced (one entry per class
// present in hist; a class missing from hist is treated like an
// empty histogram, i.e. skipped). Classes are processed cold-first
// (evicting cold pages frees fast-tier capacity before hot pages are
// promoted), honoring cfg.MigrateWhat. A move_pages syscall failure
// aborts the remaining classes of the tick and is returned as an
// error; results already collected for earlier classes are returned
// alongside it.
func (o *Orchestrator) Tick(pid int, hist map[PageClass]*ReferenceHistogram, nrWalks int) (map[PageClass]*ClassResult, error) {
	results := make(map[PageClass]*ClassResult)

	if o.Config.MigrateWhat&MigrateCold != 0 {
		for _, class := range coldClassOrder {
			result, err := o.pipeline(pid, class, hist[class], nrWalks)
			results[class] = result
			if err != nil {
				return results, err
			}
		}
	}

	if o.Config.MigrateWhat&MigrateHot != 0 {
		for _, class := range hotClassOrder {
			result, err := o.pipeline(pid, class, hist[class], nrWalks)
			results[class] = result
			if err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

func (o *Orchestrator) pipeline(pid int, class PageClass, h *ReferenceHistogram, nrWalks int) (*ClassResult, error) {
	if h == nil || h.IsEmpty() {
		return &ClassResult{Skipped: true}, nil
	}

	minRefs, maxRefs, portion := PickThresholds(class, h, o.Config, nrWalks, o.VMStat)
	addrs := Select(class, h, minRefs, maxRefs)
	if len(addrs) == 0 {
		return &ClassResult{MinRefs: minRefs, MaxRefs: maxRefs, Portion: portion, Skipped: true}, nil
	}

	targetNode := o.Config.TargetNode[class]
	status, err := o.Migrator.Move(pid, addrs, targetNode)
	result := &ClassResult{
		MinRefs: minRefs,
		MaxRefs: maxRefs,
		Portion: portion,
		Status:  status,
		Stats:   Stats(status),
	}
	if err != nil {
		return result, fmt.Errorf("%s: %w", class, err)
	}
	return result, nil
}
