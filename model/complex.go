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
	"github.com/gorse-io/kge/common/floats"
	"github.com/gorse-io/kge/common/nn"
	"github.com/gorse-io/kge/dataset"
)

// ComplEx [trouillon2016] scores with the real part of a trilinear product of complex
// embeddings:
//
//	score(h, r, t) = Re(<h, r, conj(t)>)
//
// Each row stores the real part followed by the imaginary part. It is trained with the
// softplus loss on positive (+1) and corrupted (-1) triples plus a mean square penalty.
type ComplEx struct {
	BaseModel
	EntityEmbedding   *nn.Embedding
	RelationEmbedding *nn.Embedding
	regFactor         float32
}

func NewComplEx(params Params) *ComplEx {
	m := &ComplEx{
		BaseModel: newBaseModel(FamilyComplEx, params),
		regFactor: params.GetFloat32(RegFactor, 0.01),
	}
	k := m.embeddingDim
	m.EntityEmbedding = nn.NewEmbedding(m.rng.XavierMatrix(m.numEntities, 2*k, k, m.numEntities))
	m.RelationEmbedding = nn.NewEmbedding(m.rng.XavierMatrix(m.numRelations, 2*k, k, m.numRelations))
	return m
}

func (m *ComplEx) Score(head, relation, tail int32) float32 {
	k := m.embeddingDim
	h, r, t := m.EntityEmbedding.Row(head), m.RelationEmbedding.Row(relation), m.EntityEmbedding.Row(tail)
	var score float32
	for i := 0; i < k; i++ {
		hRe, hIm := h[i], h[k+i]
		rRe, rIm := r[i], r[k+i]
		tRe, tIm := t[i], t[k+i]
		score += hRe*rRe*tRe + hRe*rIm*tIm + hIm*rRe*tIm - hIm*rIm*tRe
	}
	return score
}

// backward adds grad * dScore/dParams and the gradient of the penalty.
func (m *ComplEx) backward(triple dataset.MappedTriple, grad float32) {
	k := m.embeddingDim
	h, r, t := m.EntityEmbedding.Row(triple[0]), m.RelationEmbedding.Row(triple[1]), m.EntityEmbedding.Row(triple[2])
	gh, gr, gt := m.EntityEmbedding.Grad(triple[0]), m.RelationEmbedding.Grad(triple[1]), m.EntityEmbedding.Grad(triple[2])
	for i := 0; i < k; i++ {
		hRe, hIm := h[i], h[k+i]
		rRe, rIm := r[i], r[k+i]
		tRe, tIm := t[i], t[k+i]
		gh[i] += grad * (rRe*tRe + rIm*tIm)
		gh[k+i] += grad * (rRe*tIm - rIm*tRe)
		gr[i] += grad * (hRe*tRe + hIm*tIm)
		gr[k+i] += grad * (hRe*tIm - hIm*tRe)
		gt[i] += grad * (hRe*rRe - hIm*rIm)
		gt[k+i] += grad * (hRe*rIm + hIm*rRe)
	}
	// d/dx of factor * mean(x^2) over each of the six vectors
	scale := 2 * m.regFactor / float32(k)
	floats.MulConstAdd(h, scale, gh)
	floats.MulConstAdd(r, scale, gr)
	floats.MulConstAdd(t, scale, gt)
}

func (m *ComplEx) penalty(triple dataset.MappedTriple) float32 {
	h, r, t := m.EntityEmbedding.Row(triple[0]), m.RelationEmbedding.Row(triple[1]), m.EntityEmbedding.Row(triple[2])
	return m.regFactor * (floats.Dot(h, h) + floats.Dot(r, r) + floats.Dot(t, t)) / float32(m.embeddingDim)
}

func (m *ComplEx) fitPair(positive, negative dataset.MappedTriple) float32 {
	var loss float32
	for _, sample := range []struct {
		triple dataset.MappedTriple
		label  float32
	}{{positive, 1}, {negative, -1}} {
		score := m.Score(sample.triple[0], sample.triple[1], sample.triple[2])
		loss += softplus(-sample.label*score) + m.penalty(sample.triple)
		// d softplus(-y s)/ds = -y sigmoid(-y s)
		m.backward(sample.triple, -sample.label*sigmoid(-sample.label*score))
	}
	return loss
}

func (m *ComplEx) constrain() {}

func (m *ComplEx) parameters() []nn.Parameter {
	return []nn.Parameter{m.EntityEmbedding, m.RelationEmbedding}
}
