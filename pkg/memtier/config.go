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
	"strconv"
	"strings"
)

// MigrateWhat selects which page classes an Orchestrator tick migrates.
// It is a bitmask so MigrateHot|MigrateCold (== MigrateBoth) is valid.
type MigrateWhat int

const (
	// MigrateNone migrates nothing.
	MigrateNone MigrateWhat = 0
	// MigrateHot migrates the accessed classes to the fast node.
	MigrateHot MigrateWhat = 1 << 0
	// MigrateCold migrates the idle classes to the slow node.
	MigrateCold MigrateWhat = 1 << 1
	// MigrateBoth migrates both accessed and idle classes.
	MigrateBoth = MigrateHot | MigrateCold
)

var migrateNameTable = map[string]MigrateWhat{
	"none": MigrateNone,
	"hot":  MigrateHot,
	"cold": MigrateCold,
	"both": MigrateBoth,
}

// ParseMigrateWhat parses both the numeric ("0".."3") and name
// ("none"|"hot"|"cold"|"both") forms of --migrate. An unrecognized
// value returns MigrateNone and a non-nil error; callers that must
// degrade rather than fail (the CLI) log the error and substitute
// MigrateNone themselves, matching the ConfigRejected error kind.
func ParseMigrateWhat(s string) (MigrateWhat, error) {
	if s == "" {
		return MigrateNone, fmt.Errorf("empty migrate type")
	}
	if s[0] >= '0' && s[0] <= '9' {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || MigrateWhat(n) > MigrateBoth {
			return MigrateNone, fmt.Errorf("invalid migrate type: %q", s)
		}
		return MigrateWhat(n), nil
	}
	if mw, ok := migrateNameTable[strings.ToLower(s)]; ok {
		return mw, nil
	}
	return MigrateNone, fmt.Errorf("invalid migrate type: %q", s)
}

// TierConfig holds the process-wide, read-only-after-init knobs that
// drive threshold selection and migration target nodes.
type TierConfig struct {
	// DRAMPercent, if non-nil, is the target fraction (0-100) of
	// pages that should live on the fast node; the complement goes
	// to the slow node. When nil, the capacity ratio is computed
	// from live vmstat occupancy instead.
	DRAMPercent *int
	// HotMinRefs, if non-nil and > 0, forces the lower bound of the
	// accessed-class threshold band, bypassing capacity-driven selection.
	HotMinRefs *int
	// ColdMaxRefs, if non-nil, forces the upper bound of the
	// idle-class threshold band, bypassing capacity-driven selection.
	ColdMaxRefs *int
	// TargetNode maps each PageClass to the NUMA node id migration
	// of that class should move pages to.
	TargetNode map[PageClass]int
	// BatchSize is the maximum number of pages moved per move_pages
	// syscall. Zero means the default of 4096.
	BatchSize int
	// MigrateWhat selects which classes an Orchestrator tick processes.
	MigrateWhat MigrateWhat
	// NrWalks is the number of idle-bit sweeps the scanner is
	// configured to perform per tick. Zero means the scanner is
	// disabled this tick: PickThresholds then migrates only the
	// strict hottest pages of accessed classes (rule 1 in §4.2).
	// It is otherwise expected to equal the nrWalks argument passed
	// to PickThresholds, which comes from the histogram the scanner
	// just produced.
	NrWalks int
}

const defaultBatchSize = 4096

// NewTierConfig returns a TierConfig with the two-node (DRAM, slow
// memory) target-node defaults: accessed classes target dramNode,
// idle classes target slowNode.
func NewTierConfig(dramNode, slowNode int) *TierConfig {
	return &TierConfig{
		TargetNode: map[PageClass]int{
			SmallIdle:     slowNode,
			LargeIdle:     slowNode,
			SmallAccessed: dramNode,
			LargeAccessed: dramNode,
		},
		BatchSize:   defaultBatchSize,
		MigrateWhat: MigrateBoth,
	}
}

func (c *TierConfig) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return defaultBatchSize
}
