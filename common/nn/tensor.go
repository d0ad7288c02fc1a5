// Copyright 2024 gorse Project Authors
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


package nn

import (
	"fmt"

	"github.com/gorse-io/kge/common/floats"
)

// Parameter is a trainable tensor updated by an Optimizer.
type Parameter interface {
	// chunks calls f with every slice of weights that received a gradient. The key
	// identifies the slice within the parameter.
	chunks(f func(key int, data, grad []float32))
	zeroGrad()
}

// Tensor is a dense parameter stored flat in row-major order with its gradient.
type Tensor struct {
	Data  []float32
	Grad  []float32
	shape []int
}

// NewTensor wraps data of the given shape. It panics if the shape does not match the data.
func NewTensor(data []float32, shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		panic(fmt.Sprintf("shape %v does not match %d elements", shape, len(data)))
	}
	return &Tensor{
		Data:  data,
		Grad:  make([]float32, len(data)),
		shape: shape,
	}
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return NewTensor(make([]float32, n), shape...)
}

func (t *Tensor) Shape() []int {
	return t.shape
}

func (t *Tensor) chunks(f func(key int, data, grad []float32)) {
	f(0, t.Data, t.Grad)
}

func (t *Tensor) zeroGrad() {
	floats.Zero(t.Grad)
}

// Embedding is a table of rows with sparse gradients. Only rows touched since the last
// ZeroGrad are updated.
type Embedding struct {
	Weights [][]float32
	grads   map[int32][]float32
}

func NewEmbedding(weights [][]float32) *Embedding {
	return &Embedding{Weights: weights, grads: make(map[int32][]float32)}
}

// Row returns the vector of an id.
func (e *Embedding) Row(id int32) []float32 {
	return e.Weights[id]
}

// Grad returns the gradient accumulator of an id.
func (e *Embedding) Grad(id int32) []float32 {
	grad, exist := e.grads[id]
	if !exist {
		grad = make([]float32, len(e.Weights[id]))
		e.grads[id] = grad
	}
	return grad
}

// NormalizeRows scales every row to unit length.
func (e *Embedding) NormalizeRows() {
	for _, row := range e.Weights {
		floats.Normalize(row)
	}
}

func (e *Embedding) chunks(f func(key int, data, grad []float32)) {
	for id, grad := range e.grads {
		f(int(id), e.Weights[id], grad)
	}
}

func (e *Embedding) zeroGrad() {
	clear(e.grads)
}
