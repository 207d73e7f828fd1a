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

import "os"

const (
	// PagePresent requires that the pagemap entry's present bit is set.
	PagePresent uint64 = 1 << iota
	// PageExclusive requires that the page is not shared with another process.
	PageExclusive
)

const (
	// MPOLMFMove asks move_pages(2) to actually relocate pages
	// (as opposed to only querying their current node).
	MPOLMFMove = 1 << 1
	// MPOLMFSWYoung is a non-upstream kernel extension (bit 7):
	// mark moved pages as freshly accessed so a tiering tool does
	// not immediately see them as cold again after the move.
	MPOLMFSWYoung = 1 << 7
)

// constPagesize is the base (small) page size of the running kernel.
var constPagesize = int64(os.Getpagesize())
var constUPagesize = uint64(constPagesize)

// constHugepagesize is the large-page (transparent huge page) size
// used to size LARGE_* page classes. 2 MiB is the x86_64 THP size;
// platforms with a different huge page size should override this at
// startup from /sys/kernel/mm/transparent_hugepage/hpage_pmd_size.
var constHugepagesize uint64 = 2 * 1024 * 1024
