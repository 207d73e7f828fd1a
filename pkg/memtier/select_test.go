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

import "testing"

func TestSelectEmpty(t *testing.T) {
	h := NewReferenceHistogram(8)
	if addrs := Select(SmallIdle, h, 0, 8); addrs != nil {
		t.Errorf("expected nil for an empty histogram, got %v", addrs)
	}
}

func TestSelectRoundTrip(t *testing.T) {
	h := NewReferenceHistogram(8)
	want := map[uint64]bool{}
	for i, count := range []ReferenceCount{0, 3, 8, 1, 8, 0} {
		addr := PageAddress(i * 3)
		h.Set(addr, count)
		want[uint64(addr)<<SmallIdle.PageShift()] = true
	}

	got := Select(SmallIdle, h, 0, 8)
	if len(got) != len(want) {
		t.Fatalf("expected %d addresses, got %d", len(want), len(got))
	}
	for _, addr := range got {
		if !want[addr] {
			t.Errorf("unexpected address %d in round-trip selection", addr)
		}
	}
}

func TestSelectBandFilter(t *testing.T) {
	h := NewReferenceHistogram(8)
	h.Set(0, 0)
	h.Set(1, 3)
	h.Set(2, 6)
	h.Set(3, 8)

	got := Select(SmallIdle, h, 3, 6)
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses in [3,6], got %d: %v", len(got), got)
	}
	shift := SmallIdle.PageShift()
	wantLow := uint64(1) << shift
	wantHigh := uint64(2) << shift
	if got[0] != wantLow || got[1] != wantHigh {
		t.Errorf("expected sorted [%d,%d], got %v", wantLow, wantHigh, got)
	}
}

func TestSelectLargeClassShift(t *testing.T) {
	h := NewReferenceHistogram(4)
	h.Set(5, 2)

	got := Select(LargeAccessed, h, 0, 4)
	if len(got) != 1 {
		t.Fatalf("expected 1 address, got %d", len(got))
	}
	want := uint64(5) << LargeAccessed.PageShift()
	if got[0] != want {
		t.Errorf("expected byte address %d (page 5 at large page shift), got %d", want, got[0])
	}
}
