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

import (
	"fmt"
	"testing"
)

func histWithOnePage(nrWalks int, count ReferenceCount) *ReferenceHistogram {
	h := NewReferenceHistogram(nrWalks)
	h.Set(0, count)
	return h
}

func TestOrchestratorTickColdFirstOrder(t *testing.T) {
	cfg := NewTierConfig(0, 1)
	cfg.MigrateWhat = MigrateBoth
	cfg.NrWalks = 4
	zero := 0
	cfg.ColdMaxRefs = &zero // deterministic, non-empty cold selection
	hotMin := 1
	cfg.HotMinRefs = &hotMin

	// Each class holds one page at its own page-frame number, so the
	// byte address a move_pages call receives identifies the class.
	pfns := map[PageClass]PageAddress{SmallIdle: 1, LargeIdle: 2, SmallAccessed: 3, LargeAccessed: 4}
	counts := map[PageClass]ReferenceCount{SmallIdle: 0, LargeIdle: 0, SmallAccessed: 4, LargeAccessed: 4}
	hist := map[PageClass]*ReferenceHistogram{}
	classOfAddr := map[uint64]PageClass{}
	for class, pfn := range pfns {
		h := NewReferenceHistogram(4)
		h.Set(pfn, counts[class])
		hist[class] = h
		classOfAddr[uint64(pfn)<<class.PageShift()] = class
	}

	// Track processing order through the migrator's batch calls: a
	// move_pages call only happens for classes whose Select() is
	// non-empty, which is all four here.
	var order []PageClass
	wantOrder := []PageClass{SmallIdle, LargeIdle, SmallAccessed, LargeAccessed}
	withFakeMovePages(t, func(pid int, pages []uint64, nodes []int32, flags int) (uintptr, []int32, error) {
		order = append(order, classOfAddr[pages[0]])
		return 0, make([]int32, len(pages)), nil
	})

	o := NewOrchestrator(cfg, &Migrator{}, fakeVMStat{})
	results, err := o.Tick(1234, hist, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected all four classes processed, got %d", len(results))
	}
	for i, want := range wantOrder {
		if i >= len(order) || order[i] != want {
			t.Errorf("processing order mismatch at %d: want %s, got %v", i, want, order)
			break
		}
	}
}

func TestOrchestratorTickAbortsOnFailure(t *testing.T) {
	cfg := NewTierConfig(0, 1)
	cfg.MigrateWhat = MigrateCold
	cfg.NrWalks = 4
	zero := 0
	cfg.ColdMaxRefs = &zero

	hist := map[PageClass]*ReferenceHistogram{
		SmallIdle: histWithOnePage(4, 0),
		LargeIdle: histWithOnePage(4, 0),
	}

	withFakeMovePages(t, func(pid int, pages []uint64, nodes []int32, flags int) (uintptr, []int32, error) {
		return 0, nil, fmt.Errorf("injected move_pages failure")
	})

	o := NewOrchestrator(cfg, &Migrator{}, fakeVMStat{})
	results, err := o.Tick(1234, hist, 4)
	if err == nil {
		t.Fatalf("expected an error from the first failing class")
	}
	if _, ok := results[SmallIdle]; !ok {
		t.Errorf("expected a partial result for SmallIdle even though its migration failed")
	}
	if _, ok := results[LargeIdle]; ok {
		t.Errorf("expected LargeIdle to be skipped after SmallIdle aborted the tick")
	}
}

func TestOrchestratorTickSkipsEmptyClasses(t *testing.T) {
	cfg := NewTierConfig(0, 1)
	cfg.MigrateWhat = MigrateBoth
	cfg.NrWalks = 4

	o := NewOrchestrator(cfg, &Migrator{}, fakeVMStat{})
	results, err := o.Tick(1234, map[PageClass]*ReferenceHistogram{}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for class, r := range results {
		if !r.Skipped {
			t.Errorf("expected class %s to be skipped when no histogram was provided", class)
		}
	}
}

