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

// withFakeMovePages substitutes movePagesSyscall for the duration of fn
// and restores the real one afterward.
func withFakeMovePages(t *testing.T, fake func(pid int, pages []uint64, nodes []int32, flags int) (uintptr, []int32, error)) {
	t.Helper()
	orig := movePagesSyscall
	movePagesSyscall = fake
	t.Cleanup(func() { movePagesSyscall = orig })
}

func TestMigratorMoveBatching(t *testing.T) {
	var gotBatchSizes []int
	withFakeMovePages(t, func(pid int, pages []uint64, nodes []int32, flags int) (uintptr, []int32, error) {
		gotBatchSizes = append(gotBatchSizes, len(pages))
		status := make([]int32, len(pages))
		for i := range status {
			status[i] = int32(nodes[i])
		}
		return 0, status, nil
	})

	addrs := make([]uint64, 10000)
	for i := range addrs {
		addrs[i] = uint64(i) * constUPagesize
	}

	m := &Migrator{BatchSize: 4096}
	status, err := m.Move(1234, addrs, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status) != 10000 {
		t.Errorf("expected status length 10000, got %d", len(status))
	}

	want := []int{4096, 4096, 1808}
	if fmt.Sprint(gotBatchSizes) != fmt.Sprint(want) {
		t.Errorf("expected batch sizes %v, got %v", want, gotBatchSizes)
	}
}

func TestMigratorMoveAbortsOnSyscallFailure(t *testing.T) {
	calls := 0
	withFakeMovePages(t, func(pid int, pages []uint64, nodes []int32, flags int) (uintptr, []int32, error) {
		calls++
		if calls == 2 {
			return 0, nil, fmt.Errorf("injected failure")
		}
		return 0, make([]int32, len(pages)), nil
	})

	addrs := make([]uint64, 3*4096)
	m := &Migrator{BatchSize: 4096}
	status, err := m.Move(1234, addrs, 0)
	if err == nil {
		t.Fatalf("expected an error from the second batch")
	}
	if len(status) != len(addrs) {
		t.Errorf("expected the full-length status slice back even on failure, got len %d", len(status))
	}
	if calls != 2 {
		t.Errorf("expected the third batch to never run, got %d calls", calls)
	}
}

func TestMigrationStatsPerPageFailures(t *testing.T) {
	status := MigrationStatus{0, 0, -16, 0, -16} // -EBUSY == -16
	stats := Stats(status)
	if stats.ByStatus[0] != 3 {
		t.Errorf("expected 3 pages with status 0, got %d", stats.ByStatus[0])
	}
	if stats.ByStatus[-16] != 2 {
		t.Errorf("expected 2 pages with status -EBUSY, got %d", stats.ByStatus[-16])
	}
	if stats.Node0Percent != 60 {
		t.Errorf("expected node0_percent=60, got %d", stats.Node0Percent)
	}
	if stats.ErrorPercent != 40 {
		t.Errorf("expected error_percent=40, got %d", stats.ErrorPercent)
	}
}

func TestMigrationStatsEmpty(t *testing.T) {
	stats := Stats(nil)
	if stats.Node0Percent != 0 || stats.ErrorPercent != 0 {
		t.Errorf("expected zero percentages for an empty status vector, got %+v", stats)
	}
}
