// Copyright 2022 gorse Project Authors
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

package floats

import (
	"github.com/chewxy/math32"
)

// Zero fills zeros in a slice of 32-bit floats.
func Zero(a []float32) {
	for i := range a {
		a[i] = 0
	}
}

// Add two vectors: dst = dst + s
func Add(dst, s []float32) {
	if len(dst) != len(s) {
		panic("floats: slice lengths do not match")
	}
	for i := range dst {
		dst[i] += s[i]
	}
}

// Sub one vector by another: dst = dst - s
func Sub(dst, s []float32) {
	if len(dst) != len(s) {
		panic("floats: slice lengths do not match")
	}
	for i := range dst {
		dst[i] -= s[i]
	}
}

// AddTo adds two vectors and saves the result in dst: dst = a + b
func AddTo(a, b, dst []float32) {
	if len(a) != len(b) || len(a) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		dst[i] = a[i] + b[i]
	}
}

// SubTo subtracts one vector by another and saves the result in dst: dst = a - b
func SubTo(a, b, dst []float32) {
	if len(dst) != len(b) || len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		dst[i] = a[i] - b[i]
	}
}

// MulTo multiplies two vectors element-wise: dst = a * b
func MulTo(a, b, dst []float32) {
	if len(a) != len(b) || len(a) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		dst[i] = a[i] * b[i]
	}
}

// MulConst multiplies a vector with a const: dst = dst * c
func MulConst(dst []float32, c float32) {
	for i := range dst {
		dst[i] *= c
	}
}

// MulConstTo multiplies a vector and a const, then saves the result in dst: dst = a * c
func MulConstTo(a []float32, c float32, dst []float32) {
	if len(a) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		dst[i] = a[i] * c
	}
}

// MulConstAdd multiplies a vector and a const, then adds to dst: dst = dst + a * c
func MulConstAdd(a []float32, c float32, dst []float32) {
	if len(a) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		dst[i] += a[i] * c
	}
}

// Dot two vectors.
func Dot(a, b []float32) (ret float32) {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

// Norm returns the p-norm of a vector. p is 1 or 2.
func Norm(a []float32, p int) (ret float32) {
	if p == 1 {
		for i := range a {
			ret += math32.Abs(a[i])
		}
		return
	}
	for i := range a {
		ret += a[i] * a[i]
	}
	return math32.Sqrt(ret)
}

// Normalize scales a vector to unit euclidean length. Zero vectors are left unchanged.
func Normalize(a []float32) {
	if norm := Norm(a, 2); norm > 0 {
		MulConst(a, 1/norm)
	}
}

// MatVec multiplies a row-major matrix m of shape (len(dst), len(v)) with v: dst = m v
func MatVec(m, v, dst []float32) {
	if len(m) != len(v)*len(dst) {
		panic("floats: matrix shape does not match")
	}
	for i := range dst {
		dst[i] = Dot(m[i*len(v):(i+1)*len(v)], v)
	}
}

// MatTVecAdd multiplies the transpose of a row-major matrix m of shape (len(v), len(dst))
// with v and adds the result to dst: dst = dst + m^T v
func MatTVecAdd(m, v, dst []float32) {
	if len(m) != len(v)*len(dst) {
		panic("floats: matrix shape does not match")
	}
	for i := range v {
		MulConstAdd(m[i*len(dst):(i+1)*len(dst)], v[i], dst)
	}
}

// OuterAdd adds the scaled outer product of a and b to a row-major matrix: dst = dst + c a b^T
func OuterAdd(a, b []float32, c float32, dst []float32) {
	if len(dst) != len(a)*len(b) {
		panic("floats: matrix shape does not match")
	}
	for i := range a {
		MulConstAdd(b, c*a[i], dst[i*len(b):(i+1)*len(b)])
	}
}
