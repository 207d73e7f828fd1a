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

// PageAddress is a page-frame number: a virtual address shifted right
// by the page-size exponent of its class.
type PageAddress uint64

// ReferenceCount is the number of idle-bit walks (out of nr_walks)
// on which a page was observed accessed.
type ReferenceCount uint8

// histChunk stores counts for a contiguous run of page-frame numbers,
// amortizing the per-page bookkeeping of a flat map across the long
// contiguous runs a real address space produces.
type histChunk struct {
	startPFN PageAddress
	counts   []ReferenceCount
}

func (c *histChunk) endPFN() PageAddress {
	return c.startPFN + PageAddress(len(c.counts))
}

// ReferenceHistogram is the per-PageClass store of (PageAddress,
// ReferenceCount) pairs (page_refs) together with the derived
// count-of-counts vector (refs_count). It is filled exclusively by a
// Scanner; nothing in this package ever writes to a histogram handed
// to the threshold selector, the page selector, or the orchestrator.
type ReferenceHistogram struct {
	chunks    []*histChunk // sorted, non-overlapping, ascending startPFN
	size      int
	refsCount []int // length nrWalks+1
	nrWalks   int
}

// NewReferenceHistogram returns an empty histogram sized for nrWalks
// sweeps per tick (reference counts range over [0, nrWalks]).
func NewReferenceHistogram(nrWalks int) *ReferenceHistogram {
	return &ReferenceHistogram{
		refsCount: make([]int, nrWalks+1),
		nrWalks:   nrWalks,
	}
}

// IsEmpty reports whether the histogram holds no pages.
func (h *ReferenceHistogram) IsEmpty() bool {
	return h.size == 0
}

// Size returns the number of distinct pages recorded.
func (h *ReferenceHistogram) Size() int {
	return h.size
}

// RefsCount returns the count-of-counts vector; RefsCount()[c] is the
// number of pages with exactly reference count c.
func (h *ReferenceHistogram) RefsCount() []int {
	return h.refsCount
}

// NrWalks returns the number of idle-bit sweeps this histogram's
// counts are measured against.
func (h *ReferenceHistogram) NrWalks() int {
	return h.nrWalks
}

// Set records (or overwrites) the reference count observed for addr
// (a page-frame number). The scanner is the only caller.
func (h *ReferenceHistogram) Set(addr PageAddress, count ReferenceCount) {
	idx := sort.Search(len(h.chunks), func(i int) bool { return h.chunks[i].endPFN() > addr })

	if idx < len(h.chunks) && h.chunks[idx].startPFN <= addr {
		chunk := h.chunks[idx]
		pos := addr - chunk.startPFN
		old := chunk.counts[pos]
		chunk.counts[pos] = count
		h.refsCount[old]--
		h.refsCount[count]++
		return
	}

	h.size++
	h.refsCount[count]++

	// Extend the previous chunk if addr is its next contiguous page;
	// this is the common case for a scanner walking memory in
	// ascending address order.
	if idx > 0 && h.chunks[idx-1].endPFN() == addr {
		h.chunks[idx-1].counts = append(h.chunks[idx-1].counts, count)
		return
	}
	// Extend the next chunk backward if addr is its immediate predecessor.
	if idx < len(h.chunks) && h.chunks[idx].startPFN == addr+1 {
		chunk := h.chunks[idx]
		chunk.counts = append([]ReferenceCount{count}, chunk.counts...)
		chunk.startPFN = addr
		return
	}

	newChunk := &histChunk{startPFN: addr, counts: []ReferenceCount{count}}
	h.chunks = append(h.chunks, nil)
	copy(h.chunks[idx+1:], h.chunks[idx:])
	h.chunks[idx] = newChunk
}

// HistCursor walks a ReferenceHistogram from lowest to highest address.
type HistCursor struct {
	chunkIdx int
	pos      int
}

// GetFirst positions cur at the lowest address in the histogram and
// returns it, or ok==false if the histogram is empty.
func (h *ReferenceHistogram) GetFirst(cur *HistCursor) (addr PageAddress, count ReferenceCount, ok bool) {
	cur.chunkIdx = 0
	cur.pos = 0
	return h.current(cur)
}

// GetNext advances cur and returns the next (address, count) pair, or
// ok==false once traversal is exhausted.
func (h *ReferenceHistogram) GetNext(cur *HistCursor) (addr PageAddress, count ReferenceCount, ok bool) {
	cur.pos++
	return h.current(cur)
}

func (h *ReferenceHistogram) current(cur *HistCursor) (PageAddress, ReferenceCount, bool) {
	for cur.chunkIdx < len(h.chunks) && cur.pos >= len(h.chunks[cur.chunkIdx].counts) {
		cur.chunkIdx++
		cur.pos = 0
	}
	if cur.chunkIdx >= len(h.chunks) {
		return 0, 0, false
	}
	chunk := h.chunks[cur.chunkIdx]
	return chunk.startPFN + PageAddress(cur.pos), chunk.counts[cur.pos], true
}
