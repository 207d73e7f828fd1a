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

// MigrationBatch is the sorted set of byte addresses C3 (Select)
// produces for one page class in one tick. It is ephemeral: built by
// Select, consumed by Migrator.Move, then discarded.
type MigrationBatch = []uint64

// MigrationStatus is the per-page outcome vector Migrator.Move
// returns, parallel to the addresses it was given: non-negative
// entries are the node the page now resides on, negative entries are
// -errno explaining why that page was not moved.
type MigrationStatus = []int32

// Migrator batches move_pages(2) calls for one process.
type Migrator struct {
	// BatchSize caps how many pages are submitted per syscall.
	// Zero means defaultBatchSize (4096).
	BatchSize int
}

func (m *Migrator) batchSize() int {
	if m.BatchSize > 0 {
		return m.BatchSize
	}
	return defaultBatchSize
}

// Move relocates addrs (page-aligned byte addresses) to targetNode in
// fixed-size batches, using MPOL_MF_MOVE|MPOL_MF_SW_YOUNG so the
// kernel treats migrated pages as freshly accessed. It returns the
// status slice built so far even when a batch fails: a whole-call
// syscall failure aborts the remaining batches and is returned as an
// error, but already-processed prefixes of the status slice remain
// valid (per-page negative statuses inside a successful batch are not
// errors and never cause Move itself to fail).
func (m *Migrator) Move(pid int, addrs []uint64, targetNode int) (MigrationStatus, error) {
	status := make(MigrationStatus, len(addrs))
	batchSize := m.batchSize()

	for start := 0; start < len(addrs); start += batchSize {
		end := start + batchSize
		if end > len(addrs) {
			end = len(addrs)
		}
		batch := addrs[start:end]
		nodes := make([]int32, len(batch))
		for i := range nodes {
			nodes[i] = int32(targetNode)
		}

		_, batchStatus, err := movePagesSyscall(pid, batch, nodes, MPOLMFMove|MPOLMFSWYoung)
		if err != nil {
			log.Errorf("move_pages(pid=%d, pages=%d, node=%d) failed: %s", pid, len(batch), targetNode, err)
			return status, fmt.Errorf("move_pages: %w", err)
		}
		copy(status[start:end], batchStatus)
	}

	return status, nil
}

// QueryNodes reports, without moving anything, the NUMA node each of
// addrs currently resides on (MPOL_MF_MOVE alone, nodes == nil). Used
// by the occupancy probe (C5).
func (m *Migrator) QueryNodes(pid int, addrs []uint64) (MigrationStatus, error) {
	status := make(MigrationStatus, len(addrs))
	batchSize := m.batchSize()

	for start := 0; start < len(addrs); start += batchSize {
		end := start + batchSize
		if end > len(addrs) {
			end = len(addrs)
		}
		batch := addrs[start:end]

		_, batchStatus, err := movePagesSyscall(pid, batch, nil, MPOLMFMove)
		if err != nil {
			return status, fmt.Errorf("move_pages (query): %w", err)
		}
		copy(status[start:end], batchStatus)
	}

	return status, nil
}

// MigrationStats summarizes a MigrationStatus: the count of pages per
// status value, plus the two published percentages.
type MigrationStats struct {
	ByStatus     map[int32]int
	Node0Percent int
	ErrorPercent int
}

// Stats aggregates a status vector. Per-page negative statuses are
// counted here, not raised as errors: only a whole-call syscall
// failure is an error in this package.
func Stats(status MigrationStatus) MigrationStats {
	s := MigrationStats{ByStatus: make(map[int32]int)}
	if len(status) == 0 {
		return s
	}
	node0 := 0
	errs := 0
	for _, v := range status {
		s.ByStatus[v]++
		if v == 0 {
			node0++
		}
		if v < 0 {
			errs++
		}
	}
	s.Node0Percent = 100 * node0 / len(status)
	s.ErrorPercent = 100 * errs / len(status)
	return s
}
