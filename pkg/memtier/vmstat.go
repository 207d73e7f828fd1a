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
	"os"
	"strconv"
	"strings"
)

// anonVmstatNames are the three vmstat counters that make up "anon
// capacity", matching original_source/Migration.cc's show_numa_stats.
var anonVmstatNames = []string{"nr_inactive_anon", "nr_active_anon", "nr_isolated_anon"}

// procVMStat implements VMStat by reading /proc/vmstat and
// /sys/devices/system/node/nodeN/vmstat, grounded on
// original_source/show-vmstat.cc's ProcVmstat::vmstat.
type procVMStat struct{}

// NewVMStat returns the default /proc-backed VMStat implementation.
func NewVMStat() VMStat {
	return procVMStat{}
}

func (procVMStat) AnonCapacity() (uint64, error) {
	return sumNamedCounters("/proc/vmstat", anonVmstatNames)
}

func (procVMStat) AnonCapacityNode(node int) (uint64, error) {
	path := fmt.Sprintf("/sys/devices/system/node/node%d/vmstat", node)
	return sumNamedCounters(path, anonVmstatNames)
}

// Vmstat returns one named counter from /proc/vmstat.
func Vmstat(name string) (uint64, error) {
	return namedCounter("/proc/vmstat", name)
}

// VmstatNode returns one named counter from a per-node vmstat file.
func VmstatNode(node int, name string) (uint64, error) {
	path := fmt.Sprintf("/sys/devices/system/node/node%d/vmstat", node)
	return namedCounter(path, name)
}

func namedCounter(path, name string) (uint64, error) {
	counters, err := readCounters(path)
	if err != nil {
		return 0, err
	}
	v, ok := counters[name]
	if !ok {
		return 0, fmt.Errorf("%s: no such counter %q", path, name)
	}
	return v, nil
}

func sumNamedCounters(path string, names []string) (uint64, error) {
	counters, err := readCounters(path)
	if err != nil {
		return 0, err
	}
	var sum uint64
	for _, name := range names {
		sum += counters[name]
	}
	return sum, nil
}

// readCounters parses a whitespace-separated "name value" file, the
// common format of both /proc/vmstat and the per-node vmstat files.
func readCounters(path string) (map[string]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	counters := make(map[string]uint64)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		counters[fields[0]] = v
	}
	return counters, nil
}
