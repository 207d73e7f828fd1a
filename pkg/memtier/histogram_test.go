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

func TestReferenceHistogramEmpty(t *testing.T) {
	h := NewReferenceHistogram(8)
	if !h.IsEmpty() {
		t.Errorf("expected empty histogram")
	}
	if h.Size() != 0 {
		t.Errorf("expected size 0, got %d", h.Size())
	}
	var cur HistCursor
	if _, _, ok := h.GetFirst(&cur); ok {
		t.Errorf("expected GetFirst to report ok=false on an empty histogram")
	}
}

func TestReferenceHistogramSetAndRefsCount(t *testing.T) {
	tcases := []struct {
		name    string
		nrWalks int
		sets    map[PageAddress]ReferenceCount
	}{
		{
			name:    "single page",
			nrWalks: 8,
			sets:    map[PageAddress]ReferenceCount{100: 3},
		}, {
			name:    "contiguous run",
			nrWalks: 8,
			sets:    map[PageAddress]ReferenceCount{10: 0, 11: 0, 12: 5, 13: 5},
		}, {
			name:    "sparse pages",
			nrWalks: 4,
			sets:    map[PageAddress]ReferenceCount{1: 1, 1000: 4, 500: 2},
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewReferenceHistogram(tc.nrWalks)
			for addr, count := range tc.sets {
				h.Set(addr, count)
			}
			if h.Size() != len(tc.sets) {
				t.Errorf("expected size %d, got %d", len(tc.sets), h.Size())
			}

			sumRefsCount := 0
			for _, c := range h.RefsCount() {
				sumRefsCount += c
			}
			if sumRefsCount != h.Size() {
				t.Errorf("invariant broken: sum(refs_count)=%d != page_refs.size()=%d", sumRefsCount, h.Size())
			}

			seen := map[PageAddress]ReferenceCount{}
			var cur HistCursor
			addr, count, ok := h.GetFirst(&cur)
			for ok {
				seen[addr] = count
				addr, count, ok = h.GetNext(&cur)
			}
			if len(seen) != len(tc.sets) {
				t.Errorf("cursor visited %d pages, expected %d", len(seen), len(tc.sets))
			}
			for addr, want := range tc.sets {
				if got, ok := seen[addr]; !ok || got != want {
					t.Errorf("page %d: expected count %d, got %d (ok=%v)", addr, want, got, ok)
				}
			}
		})
	}
}

func TestReferenceHistogramOverwrite(t *testing.T) {
	h := NewReferenceHistogram(8)
	h.Set(42, 3)
	h.Set(42, 6)
	if h.Size() != 1 {
		t.Errorf("expected size 1 after overwrite, got %d", h.Size())
	}
	if h.RefsCount()[3] != 0 {
		t.Errorf("expected refs_count[3]=0 after overwrite, got %d", h.RefsCount()[3])
	}
	if h.RefsCount()[6] != 1 {
		t.Errorf("expected refs_count[6]=1 after overwrite, got %d", h.RefsCount()[6])
	}
}
