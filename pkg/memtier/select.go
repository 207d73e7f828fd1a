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

import "sort"

// Select walks hist and returns, sorted ascending, the byte addresses
// of every page whose reference count falls in [minRefs, maxRefs].
// It returns nil for an empty histogram or when nothing matches; the
// caller (the orchestrator) treats either as "skip this class".
//
// The histogram's own iteration order is by page-frame number, which
// is only a byte-address order within one PageClass: different
// classes carry different page sizes, so the result is explicitly
// sorted rather than assumed ordered from the cursor walk.
func Select(class PageClass, hist *ReferenceHistogram, minRefs, maxRefs int) []uint64 {
	if hist.IsEmpty() {
		return nil
	}
	shift := class.PageShift()
	addrs := make([]uint64, 0, hist.Size())

	var cur HistCursor
	addr, count, ok := hist.GetFirst(&cur)
	for ok {
		if int(count) >= minRefs && int(count) <= maxRefs {
			addrs = append(addrs, uint64(addr)<<shift)
		}
		addr, count, ok = hist.GetNext(&cur)
	}

	if len(addrs) == 0 {
		return nil
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}
