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
	"fmt"
	"path/filepath"
	"time"

	"github.com/gorse-io/kge/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// TriplesFactory indexes a training set of triples once. Its indices and mapped triples are
// shared read-only by every trial of a search.
type TriplesFactory struct {
	Path                 string
	Triples              []Triple
	EntityIndex          *Index
	RelationIndex        *Index
	MappedTriples        MappedTriples
	CreateInverseTriples bool

	numRelations int
}

// NewTriplesFactory loads triples from path and indexes them.
func NewTriplesFactory(path string, createInverseTriples bool) (*TriplesFactory, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	triples, err := LoadTriples(absPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	factory := NewTriplesFactoryFromTriples(triples, createInverseTriples)
	factory.Path = absPath
	return factory, nil
}

// NewTriplesFactoryFromTriples indexes triples already in memory.
func NewTriplesFactoryFromTriples(triples []Triple, createInverseTriples bool) *TriplesFactory {
	entities, relations := CreateMappings(triples)
	// every label is indexed, so no row can be unknown
	mapped, _ := MapTriples(triples, entities, relations, FailOnUnknown)
	factory := &TriplesFactory{
		Triples:              triples,
		EntityIndex:          entities,
		RelationIndex:        relations,
		MappedTriples:        mapped,
		CreateInverseTriples: createInverseTriples,
		numRelations:         relations.Len(),
	}
	if createInverseTriples {
		start := time.Now()
		factory.MappedTriples = CreateInverseTriples(factory.MappedTriples, factory.numRelations)
		factory.numRelations *= 2
		log.Logger().Info("create inverse triples",
			zap.Int("n_triples", len(factory.MappedTriples)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return factory
}

func (f *TriplesFactory) String() string {
	return fmt.Sprintf("TriplesFactory(path=%q)", f.Path)
}

// CountEntities returns the number of entities.
func (f *TriplesFactory) CountEntities() int {
	return f.EntityIndex.Len()
}

// CountRelations returns the size of the relation id space, which is twice the number of
// relation labels when inverse triples are created.
func (f *TriplesFactory) CountRelations() int {
	return f.numRelations
}

// MapTriplesToID loads held-out triples and maps them with the existing indices.
func (f *TriplesFactory) MapTriplesToID(path string, policy UnknownLabelPolicy) (MappedTriples, error) {
	triples, err := LoadTriples(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return f.MapTriples(triples, policy)
}

// MapTriples maps held-out triples with the existing indices.
func (f *TriplesFactory) MapTriples(triples []Triple, policy UnknownLabelPolicy) (MappedTriples, error) {
	return MapTriples(triples, f.EntityIndex, f.RelationIndex, policy)
}

// CreateOWAInstances packages mapped triples as one instance per triple.
func (f *TriplesFactory) CreateOWAInstances() *OWAInstances {
	return NewOWAInstances(f.MappedTriples, f.EntityIndex, f.RelationIndex)
}

// CreateCWAInstances groups mapped triples by (subject, relation).
func (f *TriplesFactory) CreateCWAInstances() *CWAInstances {
	return NewCWAInstances(f.MappedTriples, f.EntityIndex, f.RelationIndex)
}
