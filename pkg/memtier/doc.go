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

// Package memtier classifies the pages of a running process as hot or
// cold from repeated idle-bit scans, and migrates them between NUMA
// nodes with the kernel's move_pages(2) to keep hot pages on fast
// memory and cold pages on slow memory.
//
// The package is organized around one tick:
//
//   - a Scanner fills a ReferenceHistogram per PageClass by sweeping
//     the idle bit of every tracked page nr_walks times,
//   - PickThresholds turns a histogram and a TierConfig into a
//     reference-count band that admits the configured tier capacity,
//   - Select extracts the sorted addresses inside that band,
//   - a Migrator moves them to the class's target NUMA node in
//     fixed-size batches and reports per-page outcomes,
//   - an Orchestrator sequences the above, cold classes first, across
//     a tick.
package memtier
