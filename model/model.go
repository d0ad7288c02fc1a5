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

package model

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/common/nn"
	"github.com/gorse-io/kge/dataset"
)

// Model is the interface for all knowledge graph embedding models. Any model in this
// package should implement it.
type Model interface {
	// GetParams returns the configuration record the model was built from.
	GetParams() Params
	// Family returns the model family.
	Family() Family
	// Assumption returns the kind of training instances the model learns from.
	Assumption() dataset.Assumption
	// CountEntities returns the number of entities.
	CountEntities() int
	// CountRelations returns the size of the relation id space.
	CountRelations() int
	// Score returns the plausibility of a triple. Higher is more plausible.
	Score(head, relation, tail int32) float32
}

// TailScorer is implemented by models that score every tail of a (head, relation) pair
// at once.
type TailScorer interface {
	ScoreTails(head, relation int32) []float32
}

// owaLearner learns from positive triples contrasted with corrupted ones.
type owaLearner interface {
	Model
	// fitPair accumulates gradients of the loss of a positive and a negative triple.
	fitPair(positive, negative dataset.MappedTriple) float32
	// constrain applies parameter constraints before a batch.
	constrain()
	parameters() []nn.Parameter
}

// cwaLearner learns from (head, relation) pairs labeled with all their valid tails.
type cwaLearner interface {
	Model
	// fitInstance accumulates gradients of the multi-label loss of one instance.
	fitInstance(rng base.RandomGenerator, head, relation int32, targets *bitset.BitSet) float32
	parameters() []nn.Parameter
}

// BaseModel must be included by every model. Hyper-parameters, sizes and the random
// generator for initialization are managed by BaseModel.
type BaseModel struct {
	Params       Params // Hyper-parameters
	family       Family
	numEntities  int
	numRelations int
	embeddingDim int
	rng          base.RandomGenerator // Random generator
}

func newBaseModel(family Family, params Params) BaseModel {
	return BaseModel{
		Params:       params,
		family:       family,
		numEntities:  params.GetInt(NumEntities, 0),
		numRelations: params.GetInt(NumRelations, 0),
		embeddingDim: params.GetInt(EmbeddingDim, 0),
		rng:          base.NewRandomGenerator(params.GetInt64(RandomSeed, 0)),
	}
}

// GetParams returns all hyper-parameters.
func (model *BaseModel) GetParams() Params {
	return model.Params
}

func (model *BaseModel) Family() Family {
	return model.family
}

func (model *BaseModel) Assumption() dataset.Assumption {
	return model.family.Assumption()
}

func (model *BaseModel) CountEntities() int {
	return model.numEntities
}

func (model *BaseModel) CountRelations() int {
	return model.numRelations
}
