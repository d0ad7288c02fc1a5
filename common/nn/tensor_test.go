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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTensor(t *testing.T) {
	x := NewTensor([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, []int{2, 3}, x.Shape())
	assert.Equal(t, make([]float32, 6), x.Grad)
	z := Zeros(3)
	assert.Equal(t, []float32{0, 0, 0}, z.Data)
	assert.Panics(t, func() { NewTensor([]float32{1, 2}, 3) })

	x.Grad[1] = 1
	x.zeroGrad()
	assert.Equal(t, make([]float32, 6), x.Grad)
}

func TestEmbedding(t *testing.T) {
	e := NewEmbedding([][]float32{{3, 4}, {1, 0}})
	assert.Equal(t, []float32{3, 4}, e.Row(0))
	e.Grad(1)[0] = 1
	var keys []int
	e.chunks(func(key int, data, grad []float32) {
		keys = append(keys, key)
		assert.Equal(t, []float32{1, 0}, data)
		assert.Equal(t, []float32{1, 0}, grad)
	})
	assert.Equal(t, []int{1}, keys)
	e.zeroGrad()
	e.chunks(func(_ int, _, _ []float32) {
		assert.Fail(t, "no gradient after zeroGrad")
	})
	e.NormalizeRows()
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, e.Row(0), 1e-6)
}
