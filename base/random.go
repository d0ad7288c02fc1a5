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

package base

import (
	"math/rand"

	"github.com/chewxy/math32"
)

// RandomGenerator is the random generator shared by samplers, initializers and trainers.
// It is not safe for concurrent use.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// Choice picks one of values uniformly. values must not be empty.
func (rng RandomGenerator) Choice(values []interface{}) interface{} {
	return values[rng.Intn(len(values))]
}

// UniformVector makes a vec filled with uniform random floats,
func (rng RandomGenerator) UniformVector(size int, low, high float32) []float32 {
	ret := make([]float32, size)
	scale := high - low
	for i := 0; i < len(ret); i++ {
		ret[i] = rng.Float32()*scale + low
	}
	return ret
}

// NormalVector makes a vec filled with normal random floats.
func (rng RandomGenerator) NormalVector(size int, mean, stdDev float32) []float32 {
	ret := make([]float32, size)
	for i := 0; i < len(ret); i++ {
		ret[i] = float32(rng.NormFloat64())*stdDev + mean
	}
	return ret
}

// UniformMatrix makes a matrix filled with uniform random floats.
func (rng RandomGenerator) UniformMatrix(row, col int, low, high float32) [][]float32 {
	ret := make([][]float32, row)
	for i := range ret {
		ret[i] = rng.UniformVector(col, low, high)
	}
	return ret
}

// NormalMatrix makes a matrix filled with normal random floats.
func (rng RandomGenerator) NormalMatrix(row, col int, mean, stdDev float32) [][]float32 {
	ret := make([][]float32, row)
	for i := range ret {
		ret[i] = rng.NormalVector(col, mean, stdDev)
	}
	return ret
}

// XavierMatrix makes a matrix filled with Glorot normal floats, where fanIn and fanOut
// are the fan sizes of the layer the matrix belongs to.
func (rng RandomGenerator) XavierMatrix(row, col, fanIn, fanOut int) [][]float32 {
	stdDev := math32.Sqrt(2 / float32(fanIn+fanOut))
	return rng.NormalMatrix(row, col, 0, stdDev)
}

// Mask makes a dropout mask of the given size. Kept positions hold 1/(1-p) so the expected
// activation is unchanged, dropped positions hold zero.
func (rng RandomGenerator) Mask(size int, p float32) []float32 {
	ret := make([]float32, size)
	if p <= 0 {
		for i := range ret {
			ret[i] = 1
		}
		return ret
	}
	if p >= 1 {
		return ret
	}
	scale := 1 / (1 - p)
	for i := range ret {
		if rng.Float32() >= p {
			ret[i] = scale
		}
	}
	return ret
}
