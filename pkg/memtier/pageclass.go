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

import "math/bits"

// PageClass crosses granularity (small/large) with accessed-bit state
// (idle/accessed). It is the key under which a ReferenceHistogram,
// a threshold band, and a migration target node are all indexed.
type PageClass int

const (
	// SmallIdle is a base-page-sized page on the idle side of a scan,
	// selected by the idle-class band [0, max_refs]: a cold-demotion
	// candidate.
	SmallIdle PageClass = iota
	// SmallAccessed is a base-page-sized page observed accessed:
	// a hot-promotion candidate.
	SmallAccessed
	// LargeIdle is a huge-page-sized region whose idle bit was set.
	LargeIdle
	// LargeAccessed is a huge-page-sized region observed accessed.
	LargeAccessed
)

// PageClasses lists all four classes in cold-then-hot, small-then-large
// order, matching the orchestrator's processing sequence.
var PageClasses = []PageClass{SmallIdle, LargeIdle, SmallAccessed, LargeAccessed}

func (c PageClass) String() string {
	switch c {
	case SmallIdle:
		return "SMALL_IDLE"
	case SmallAccessed:
		return "SMALL_ACCESSED"
	case LargeIdle:
		return "LARGE_IDLE"
	case LargeAccessed:
		return "LARGE_ACCESSED"
	default:
		return "UNKNOWN_PAGE_CLASS"
	}
}

// Accessed reports whether the class tracks the hot (accessed-bit-set)
// side of a scan, as opposed to the idle side.
func (c PageClass) Accessed() bool {
	return c == SmallAccessed || c == LargeAccessed
}

// Large reports whether the class covers huge-page-sized regions.
func (c PageClass) Large() bool {
	return c == LargeIdle || c == LargeAccessed
}

// PageSize returns the page size in bytes backing this class.
func (c PageClass) PageSize() uint64 {
	if c.Large() {
		return constHugepagesize
	}
	return constUPagesize
}

// PageShift returns log2(PageSize()), used to compress a byte address
// into the page-frame-number keys a ReferenceHistogram stores.
func (c PageClass) PageShift() uint {
	return uint(bits.TrailingZeros64(c.PageSize()))
}
