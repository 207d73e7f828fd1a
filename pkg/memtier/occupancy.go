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

// occupancyVMAThreshold is the minimum VMA size the occupancy probe
// will sample; smaller VMAs are skipped silently (ProbeSkipped, §7).
const occupancyVMAThreshold = 1 << 30 // 1 GiB

// occupancySlots is the number of equal-sized slots a qualifying VMA
// is split into.
const occupancySlots = 10

// OccupancyProbe samples where a VMA's pages currently live, without
// migrating anything. It is a diagnostic path driven independently of
// the Orchestrator's tick.
type OccupancyProbe struct {
	Migrator *Migrator
}

// NewOccupancyProbe returns a probe that issues its query-mode
// move_pages calls through migrator.
func NewOccupancyProbe(migrator *Migrator) *OccupancyProbe {
	return &OccupancyProbe{Migrator: migrator}
}

// SlotOccupancy is one row of a VMA's occupancy histogram: the
// fraction of sampled pages currently resident on node 0.
type SlotOccupancy struct {
	StartAddr    uint64
	Node0Percent int
}

// Probe splits vma into occupancySlots equal slots (skipping vma
// entirely if it is smaller than occupancyVMAThreshold) and, for each
// slot, samples one address per page at slot granularity and queries
// its current node. The result is one SlotOccupancy row per slot.
func (p *OccupancyProbe) Probe(pid int, vma VMA) ([]SlotOccupancy, error) {
	if vma.Size() < occupancyVMAThreshold {
		return nil, nil
	}

	nrPages := vma.NrPages()
	slotPages := nrPages / occupancySlots
	if slotPages == 0 {
		return nil, nil
	}

	rows := make([]SlotOccupancy, 0, occupancySlots)
	for slot := 0; slot < occupancySlots; slot++ {
		slotStart := vma.Start + uint64(slot)*slotPages*constUPagesize
		addrs := make([]uint64, slotPages)
		addr := slotStart
		for i := range addrs {
			addrs[i] = addr
			addr += constUPagesize
		}

		status, err := p.Migrator.QueryNodes(pid, addrs)
		if err != nil {
			return rows, err
		}
		rows = append(rows, SlotOccupancy{
			StartAddr:    slotStart,
			Node0Percent: Stats(status).Node0Percent,
		})
	}
	return rows, nil
}

// ProbeTask occupancy across every VMA of pid reported by maps,
// skipping VMAs below the size threshold.
func ProbeTask(p *OccupancyProbe, maps ProcMaps, pid int) (map[VMA][]SlotOccupancy, error) {
	vmas, err := maps.VMAs(pid)
	if err != nil {
		return nil, err
	}
	result := make(map[VMA][]SlotOccupancy)
	for _, vma := range vmas {
		rows, err := p.Probe(pid, vma)
		if err != nil {
			return result, err
		}
		if rows == nil {
			continue
		}
		result[vma] = rows
	}
	return result, nil
}
