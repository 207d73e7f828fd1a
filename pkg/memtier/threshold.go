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

// VMStat is the vmstat collaborator required by capacity-driven
// threshold selection: it answers how much anonymous memory currently
// sits on a node versus in total, when the caller has not pinned a
// fixed dram_percent.
type VMStat interface {
	// AnonCapacity returns the total anonymous page count across all nodes.
	AnonCapacity() (uint64, error)
	// AnonCapacityNode returns the anonymous page count on one node.
	AnonCapacityNode(node int) (uint64, error)
}

// PickThresholds chooses the (min_refs, max_refs) reference-count band
// that PageClass class should migrate this tick, and the page
// "portion" that band was sized to admit. hist must be the histogram
// the scanner produced for class this tick; nrWalks is the number of
// idle-bit sweeps that produced it.
//
// The four decision rules and the capacity-driven arithmetic (the
// overshoot "+1" correction for accessed classes, the ">>1" halving
// for idle classes) are pinned exactly as specified: do not simplify
// or reorder them even though they look asymmetric, since tests check
// the literal bucket-walking behavior, not just the end result.
func PickThresholds(class PageClass, hist *ReferenceHistogram, cfg *TierConfig, nrWalks int, vmstat VMStat) (minRefs, maxRefs, portion int) {
	if class.Accessed() && cfg.NrWalks == 0 {
		return nrWalks, nrWalks, 0
	}
	if class.Accessed() && cfg.HotMinRefs != nil && *cfg.HotMinRefs > 0 {
		return *cfg.HotMinRefs, nrWalks, 0
	}
	if !class.Accessed() && cfg.ColdMaxRefs != nil && *cfg.ColdMaxRefs >= 0 {
		return 0, *cfg.ColdMaxRefs, 0
	}

	ratio := capacityRatio(class, cfg, vmstat)
	portion = int(float64(hist.Size()) * ratio)
	quota := portion
	refsCount := hist.RefsCount()

	if class.Accessed() {
		minRefs = nrWalks
		maxRefs = nrWalks
		for ; minRefs > 1; minRefs-- {
			quota -= refsCount[minRefs]
			if quota <= 0 {
				break
			}
		}
		if minRefs < nrWalks {
			minRefs++
		}
		return minRefs, maxRefs, portion
	}

	minRefs = 0
	maxRefs = 0
	for ; maxRefs < nrWalks/2; maxRefs++ {
		quota -= refsCount[maxRefs]
		if quota <= 0 {
			break
		}
	}
	maxRefs >>= 1
	return minRefs, maxRefs, portion
}

func capacityRatio(class PageClass, cfg *TierConfig, vmstat VMStat) float64 {
	if cfg.DRAMPercent != nil {
		dram := float64(*cfg.DRAMPercent) / 100.0
		if class.Accessed() {
			return dram
		}
		return 1.0 - dram
	}

	targetNode := cfg.TargetNode[class]
	nodeAnon, err := vmstat.AnonCapacityNode(targetNode)
	if err != nil {
		return 0
	}
	totalAnon, err := vmstat.AnonCapacity()
	if err != nil || totalAnon == 0 {
		return 0
	}
	return float64(nodeAnon) / float64(totalAnon)
}
