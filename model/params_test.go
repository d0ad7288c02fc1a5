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
	"testing"

	"github.com/gorse-io/kge/base"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestParams_Copy(t *testing.T) {
	// Create parameters
	a := Params{
		EmbeddingDim: 1,
		Lr:           0.1,
		RandomSeed:   0,
	}
	// Create copy
	b := a.Copy()
	b[EmbeddingDim] = 2
	b[Lr] = 0.2
	b[RandomSeed] = 1
	// Check original parameters
	assert.Equal(t, 1, a.GetInt(EmbeddingDim, -1))
	assert.Equal(t, float32(0.1), a.GetFloat32(Lr, -0.1))
	assert.Equal(t, int64(0), a.GetInt64(RandomSeed, -1))
	// Check copy parameters
	assert.Equal(t, 2, b.GetInt(EmbeddingDim, -1))
	assert.Equal(t, float32(0.2), b.GetFloat32(Lr, -0.1))
	assert.Equal(t, int64(1), b.GetInt64(RandomSeed, -1))
}

func TestParams_GetFloat32(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, float32(0.1), p.GetFloat32(Lr, 0.1))
	// Normal case
	p[Lr] = float32(1.0)
	assert.Equal(t, float32(1.0), p.GetFloat32(Lr, 0.1))
	// Wrong type case
	p[Lr] = 1
	assert.Equal(t, float32(1.0), p.GetFloat32(Lr, 0.1))
	p[Lr] = "hello"
	assert.Equal(t, float32(0.1), p.GetFloat32(Lr, 0.1))
}

func TestParams_GetInt(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, -1, p.GetInt(EmbeddingDim, -1))
	// Normal case
	p[EmbeddingDim] = 0
	assert.Equal(t, 0, p.GetInt(EmbeddingDim, -1))
	// Wrong type case
	p[EmbeddingDim] = "hello"
	assert.Equal(t, -1, p.GetInt(EmbeddingDim, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, int64(-1), p.GetInt64(RandomSeed, -1))
	// Normal case
	p[RandomSeed] = int64(0)
	assert.Equal(t, int64(0), p.GetInt64(RandomSeed, -1))
	// Wrong type case
	p[RandomSeed] = 0
	assert.Equal(t, int64(0), p.GetInt64(RandomSeed, -1))
	p[RandomSeed] = "hello"
	assert.Equal(t, int64(-1), p.GetInt64(RandomSeed, -1))
}

func TestParams_GetString(t *testing.T) {
	p := Params{}
	assert.Equal(t, "TransE", p.GetString(ModelName, "TransE"))
	p[ModelName] = "ConvE"
	assert.Equal(t, "ConvE", p.GetString(ModelName, "TransE"))
	p[ModelName] = 1
	assert.Equal(t, "TransE", p.GetString(ModelName, "TransE"))
}

func TestParams_Names(t *testing.T) {
	p := Params{
		ScoringNorm:  1,
		"zzz":        1,
		"aaa":        1,
		NumEntities:  3,
		Lr:           0.1,
		ModelName:    "TransE",
		MarginLoss:   1.0,
		EmbeddingDim: 10,
	}
	assert.Equal(t, []ParamName{ModelName, Lr, EmbeddingDim, NumEntities, MarginLoss, ScoringNorm, "aaa", "zzz"}, p.Names())
}

func TestParams_Overwrite(t *testing.T) {
	a := Params{Lr: 0.1, EmbeddingDim: 10}
	b := a.Overwrite(Params{Lr: 0.2, BatchSize: 32})
	assert.Equal(t, Params{Lr: 0.2, EmbeddingDim: 10, BatchSize: 32}, b)
	assert.Equal(t, Params{Lr: 0.1, EmbeddingDim: 10}, a)
}

func TestParamsGrid(t *testing.T) {
	grid := ParamsGrid{
		Lr:           {0.1, 0.01},
		EmbeddingDim: {10, 20, 50},
	}
	assert.Equal(t, 2, grid.Len())
	assert.Equal(t, 6, grid.NumCombinations())

	rng := base.NewRandomGenerator(0)
	for i := 0; i < 10; i++ {
		value, err := grid.Sample(rng, EmbeddingDim)
		assert.NoError(t, err)
		assert.Contains(t, []interface{}{10, 20, 50}, value)
	}
	_, err := grid.Sample(rng, MarginLoss)
	assert.True(t, errors.Is(err, base.ErrConfiguration))
	grid[MarginLoss] = []interface{}{}
	_, err = grid.Sample(rng, MarginLoss)
	assert.True(t, errors.Is(err, base.ErrConfiguration))

	params := Params{}
	assert.NoError(t, grid.SampleInto(rng, params, Lr, BatchSize))
	assert.Equal(t, 32, params[BatchSize])
	assert.Len(t, params, 2)
}
