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

// The idle-bit scanner uses /proc/pid/pagemap and
// /sys/kernel/mm/page_idle/bitmap, exactly like the teacher's
// TrackerIdlePage (tracker_idlepage.go), but tracks a reference count
// per page across repeated sweeps instead of a single region-level
// counter.

package memtier

import (
	"io"
	"os"
	"strconv"
)

const (
	pmPFNMask      = (uint64(1) << 55) - 1
	pmPresentBit   = uint64(1) << 63
	pmExclusiveBit = uint64(1) << 56
)

// Scanner drives nr_walks idle-bit sweeps of a process's address
// space per tick and fills one ReferenceHistogram per page-size
// granularity. SMALL_IDLE/SMALL_ACCESSED share the small-page
// histogram and LARGE_IDLE/LARGE_ACCESSED share the large-page
// histogram: the idle/accessed split is a threshold-selection
// concern (C2), not a separate scan.
type Scanner struct {
	// RequireExclusive skips pages not mapped exclusively by the
	// target process; mirrors PMExclusiveSet in the teacher.
	// RequirePresent mirrors PMPresentSet but is not consulted: pages
	// that are not present have no PFN to look up and are always
	// skipped.
	RequirePresent   bool
	RequireExclusive bool
}

// NewScanner returns a Scanner requiring present, exclusively-owned
// pages, the teacher's default (PagePresent|PageExclusive).
func NewScanner() *Scanner {
	return &Scanner{RequirePresent: true, RequireExclusive: true}
}

// Scan performs nrWalks idle-bit sweeps over pid's VMAs and returns
// the four PageClass histograms (SMALL_IDLE aliases SMALL_ACCESSED,
// LARGE_IDLE aliases LARGE_ACCESSED — see the Scanner doc comment).
func (s *Scanner) Scan(pid int, maps ProcMaps, nrWalks int) (map[PageClass]*ReferenceHistogram, error) {
	if nrWalks <= 0 {
		return nil, nil
	}

	vmas, err := maps.VMAs(pid)
	if err != nil {
		return nil, err
	}

	pagemap, err := openPagemap(pid)
	if err != nil {
		return nil, err
	}
	defer pagemap.Close()

	idleBitmap, err := openPageIdleBitmap()
	if err != nil {
		return nil, err
	}
	defer idleBitmap.Close()

	smallHist := NewReferenceHistogram(nrWalks)
	largeHist := NewReferenceHistogram(nrWalks)
	smallCounts := map[uint64]ReferenceCount{}
	largeCounts := map[uint64]ReferenceCount{}

	for walk := 0; walk < nrWalks; walk++ {
		for _, vma := range vmas {
			isLarge := vma.Start%constHugepagesize == 0 && vma.End%constHugepagesize == 0 && vma.Size() >= constHugepagesize
			stride := constUPagesize
			if isLarge {
				stride = constHugepagesize
			}
			for addr := vma.Start; addr+stride <= vma.End; addr += stride {
				pfn, present, exclusive, err := pagemap.readPFN(addr)
				if err != nil || !present {
					continue
				}
				if s.RequireExclusive && !exclusive {
					continue
				}
				accessed, err := idleBitmap.accessedSinceLastMark(pfn)
				if err != nil {
					continue
				}
				counts := smallCounts
				if isLarge {
					counts = largeCounts
				}
				if accessed {
					counts[addr]++
				} else if _, ok := counts[addr]; !ok {
					counts[addr] = 0
				}
			}
		}
	}

	for addr, count := range smallCounts {
		smallHist.Set(PageAddress(addr>>SmallIdle.PageShift()), count)
	}
	for addr, count := range largeCounts {
		largeHist.Set(PageAddress(addr>>LargeIdle.PageShift()), count)
	}

	return map[PageClass]*ReferenceHistogram{
		SmallIdle:     smallHist,
		SmallAccessed: smallHist,
		LargeIdle:     largeHist,
		LargeAccessed: largeHist,
	}, nil
}

// pagemapFile is a thin, seek-per-lookup reader of /proc/pid/pagemap.
// The teacher buffers reads across whole address ranges for
// throughput (procPagemapCb in proc.go); this scanner favors the
// simpler per-address seek+read since it is not the hot path being
// optimized here.
type pagemapFile struct {
	f *os.File
}

func openPagemap(pid int) (*pagemapFile, error) {
	f, err := os.OpenFile("/proc/"+strconv.Itoa(pid)+"/pagemap", os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &pagemapFile{f: f}, nil
}

func (p *pagemapFile) Close() error { return p.f.Close() }

// readPFN returns the page-frame number backing addr, whether the
// page is currently present in memory, and whether it is mapped
// exclusively by this process (PM_MMAP_EXCLUSIVE).
func (p *pagemapFile) readPFN(addr uint64) (pfn uint64, present, exclusive bool, err error) {
	offset := int64(addr/constUPagesize) * 8
	var buf [8]byte
	if _, err := p.f.ReadAt(buf[:], offset); err != nil {
		if err == io.EOF {
			return 0, false, false, nil
		}
		return 0, false, false, err
	}
	entry := le64(buf[:])
	present = entry&pmPresentBit != 0
	exclusive = entry&pmExclusiveBit != 0
	return entry & pmPFNMask, present, exclusive, nil
}

// pageIdleBitmapFile wraps /sys/kernel/mm/page_idle/bitmap: one bit
// per PFN, cleared by the kernel when a page is accessed, set again by
// us after each lookup so the next sweep measures fresh accesses.
type pageIdleBitmapFile struct {
	f *os.File
}

func openPageIdleBitmap() (*pageIdleBitmapFile, error) {
	f, err := os.OpenFile("/sys/kernel/mm/page_idle/bitmap", os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &pageIdleBitmapFile{f: f}, nil
}

func (b *pageIdleBitmapFile) Close() error { return b.f.Close() }

// accessedSinceLastMark reports whether pfn's idle bit is clear
// (i.e. it was accessed since it was last marked idle), then marks it
// idle again for the next sweep.
func (b *pageIdleBitmapFile) accessedSinceLastMark(pfn uint64) (bool, error) {
	wordOffset := int64(pfn / 64 * 8)
	var buf [8]byte
	if _, err := b.f.ReadAt(buf[:], wordOffset); err != nil {
		return false, err
	}
	word := le64(buf[:])
	bit := uint(pfn % 64)
	idle := word&(uint64(1)<<bit) != 0

	word |= uint64(1) << bit
	putLE64(buf[:], word)
	if _, err := b.f.WriteAt(buf[:], wordOffset); err != nil {
		return false, err
	}
	return !idle, nil
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}
