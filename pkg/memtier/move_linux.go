//go:build linux
// +build linux

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
	"unsafe"

	"golang.org/x/sys/unix"
)

// movePagesSyscall wraps the Linux move_pages(2) primitive:
//
//	long move_pages(int pid, unsigned long count, void **pages,
//	                const int *nodes, int *status, int flags);
//
// nodes == nil queries each page's current node without moving it
// (query mode, used by the occupancy probe); otherwise nodes[i] is
// the destination node for pages[i]. status[i] is non-negative
// (current/resulting node) or negative (-errno) on return.
//
// A package-level var, not a plain func, so tests can substitute a
// fake without a live process to migrate.
var movePagesSyscall = rawMovePagesSyscall

func rawMovePagesSyscall(pid int, pages []uint64, nodes []int32, flags int) (sysRet uintptr, status []int32, err error) {
	count := len(pages)
	if count == 0 {
		return 0, nil, nil
	}

	cPages := make([]unsafe.Pointer, count)
	for i, addr := range pages {
		cPages[i] = unsafe.Pointer(uintptr(addr))
	}
	status = make([]int32, count)

	var nodesPtr unsafe.Pointer
	if nodes != nil {
		if len(nodes) != count {
			return 0, nil, fmt.Errorf("nodes length %d does not match pages length %d", len(nodes), count)
		}
		nodesPtr = unsafe.Pointer(&nodes[0])
	}

	ret, _, errno := unix.Syscall6(
		unix.SYS_MOVE_PAGES,
		uintptr(pid),
		uintptr(count),
		uintptr(unsafe.Pointer(&cPages[0])),
		uintptr(nodesPtr),
		uintptr(unsafe.Pointer(&status[0])),
		uintptr(flags),
	)
	if errno != 0 {
		err = errno
	}
	return ret, status, err
}
