// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"sort"

	"github.com/samber/lo"
)

// Index maps sorted distinct ids to contiguous positions starting from zero. Positions
// only depend on the set of ids, never on the order they were seen in.
type Index struct {
	ids       []int
	positions map[int]int
}

func NewIndex(ids []int) *Index {
	sorted := lo.Uniq(ids)
	sort.Ints(sorted)
	positions := make(map[int]int, len(sorted))
	for i, id := range sorted {
		positions[id] = i
	}
	return &Index{ids: sorted, positions: positions}
}

func (idx *Index) Len() int {
	return len(idx.ids)
}

// Position returns the position of id and whether id is indexed.
func (idx *Index) Position(id int) (int, bool) {
	pos, ok := idx.positions[id]
	return pos, ok
}

// Id returns the id at pos. It panics if pos is out of range.
func (idx *Index) Id(pos int) int {
	return idx.ids[pos]
}

// Ids returns a copy of the indexed ids in ascending order.
func (idx *Index) Ids() []int {
	return append([]int(nil), idx.ids...)
}
