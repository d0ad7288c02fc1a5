// Copyright 2020 gorse Project Authors
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

// Index manages the bijection between labels and dense ids. Entities and relations use
// separate indices, so their ids live in independent numbering spaces.
type Index struct {
	Numbers map[string]int32 // label -> dense id
	Names   []string         // dense id -> label
}

// NotId represents a label doesn't exist.
const NotId = int32(-1)

// NewIndex creates an Index.
func NewIndex() *Index {
	return &Index{
		Numbers: make(map[string]int32),
		Names:   make([]string, 0),
	}
}

// Len returns the number of indexed labels.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Names)
}

// Add assigns the next id to name unless it is indexed already.
func (idx *Index) Add(name string) int32 {
	if id, exist := idx.Numbers[name]; exist {
		return id
	}
	id := int32(len(idx.Names))
	idx.Numbers[name] = id
	idx.Names = append(idx.Names, name)
	return id
}

// ToNumber converts a label to a dense id, or NotId.
func (idx *Index) ToNumber(name string) int32 {
	if id, exist := idx.Numbers[name]; exist {
		return id
	}
	return NotId
}

// ToName converts a dense id to a label.
func (idx *Index) ToName(id int32) string {
	return idx.Names[id]
}

// GetNames returns all labels ordered by id.
func (idx *Index) GetNames() []string {
	return idx.Names
}

// IDs returns all dense ids in ascending order.
func (idx *Index) IDs() []int32 {
	ids := make([]int32, idx.Len())
	for i := range ids {
		ids[i] = int32(i)
	}
	return ids
}
