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

package model

import (
	"github.com/chewxy/math32"
	"github.com/gorse-io/kge/common/floats"
)

func flatten(m [][]float32) []float32 {
	var ret []float32
	for _, row := range m {
		ret = append(ret, row...)
	}
	return ret
}

// distance returns -||d||_p.
func distance(d []float32, p int) float32 {
	return -floats.Norm(d, p)
}

// distanceGrad adds scale * d(-||d||_p)/dd to dst.
func distanceGrad(d []float32, p int, scale float32, dst []float32) {
	if p == 1 {
		for i := range d {
			switch {
			case d[i] > 0:
				dst[i] -= scale
			case d[i] < 0:
				dst[i] += scale
			}
		}
		return
	}
	norm := floats.Norm(d, 2)
	if norm < 1e-12 {
		return
	}
	floats.MulConstAdd(d, -scale/norm, dst)
}

// marginRankingLoss returns max(0, margin - positive + negative) and the gradients with
// respect to both scores.
func marginRankingLoss(positive, negative, margin float32) (loss, gradPositive, gradNegative float32) {
	loss = margin - positive + negative
	if loss <= 0 {
		return 0, 0, 0
	}
	return loss, -1, 1
}

// softplus returns log(1 + exp(x)).
func softplus(x float32) float32 {
	if x > 20 {
		return x
	}
	return math32.Log1p(math32.Exp(x))
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
