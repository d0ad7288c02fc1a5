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
	mapset "github.com/deckarep/golang-set/v2"
)

// Assumption is the supervision assumption training instances are built under.
type Assumption string

const (
	// OpenWorld treats unobserved triples as unknown. Each instance is one triple.
	OpenWorld Assumption = "owa"
	// ClosedWorld treats unlisted objects as false. Each instance is a (subject, relation)
	// pair with all its valid objects.
	ClosedWorld Assumption = "cwa"
)

// Instances are training instances consumed by a trainer.
type Instances interface {
	Assumption() Assumption
	Len() int
	GetEntityIndex() *Index
	GetRelationIndex() *Index
}

// OWAInstances wraps mapped triples.
type OWAInstances struct {
	Triples       MappedTriples
	EntityIndex   *Index
	RelationIndex *Index
}

func NewOWAInstances(triples MappedTriples, entities, relations *Index) *OWAInstances {
	return &OWAInstances{Triples: triples, EntityIndex: entities, RelationIndex: relations}
}

func (o *OWAInstances) Assumption() Assumption   { return OpenWorld }
func (o *OWAInstances) Len() int                 { return len(o.Triples) }
func (o *OWAInstances) GetEntityIndex() *Index   { return o.EntityIndex }
func (o *OWAInstances) GetRelationIndex() *Index { return o.RelationIndex }

// CWAInstances holds unique (subject, relation) pairs in first-encounter order and, at the
// same position, the set of objects observed with each pair.
type CWAInstances struct {
	Pairs         [][2]int32
	Labels        []mapset.Set[int32]
	EntityIndex   *Index
	RelationIndex *Index
}

func NewCWAInstances(triples MappedTriples, entities, relations *Index) *CWAInstances {
	instances := &CWAInstances{EntityIndex: entities, RelationIndex: relations}
	positions := make(map[[2]int32]int)
	for _, t := range triples {
		key := [2]int32{t[0], t[1]}
		pos, exist := positions[key]
		if !exist {
			pos = len(instances.Pairs)
			positions[key] = pos
			instances.Pairs = append(instances.Pairs, key)
			instances.Labels = append(instances.Labels, mapset.NewThreadUnsafeSet[int32]())
		}
		instances.Labels[pos].Add(t[2])
	}
	return instances
}

func (c *CWAInstances) Assumption() Assumption   { return ClosedWorld }
func (c *CWAInstances) Len() int                 { return len(c.Pairs) }
func (c *CWAInstances) GetEntityIndex() *Index   { return c.EntityIndex }
func (c *CWAInstances) GetRelationIndex() *Index { return c.RelationIndex }
