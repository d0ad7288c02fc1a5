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
	"github.com/gorse-io/kge/common/nn"
	"github.com/gorse-io/kge/dataset"
)

// distanceModel is scored by a negative distance and trained with the margin ranking loss.
type distanceModel interface {
	Score(head, relation, tail int32) float32
	// backward adds grad * dScore/dParams of a triple to the gradient accumulators.
	backward(t dataset.MappedTriple, grad float32)
}

// BaseDistance holds the options shared by distance models.
type BaseDistance struct {
	BaseModel
	margin float32
	norm   int
}

func newBaseDistance(family Family, params Params) BaseDistance {
	return BaseDistance{
		BaseModel: newBaseModel(family, params),
		margin:    params.GetFloat32(MarginLoss, 1),
		norm:      params.GetInt(ScoringNorm, 1),
	}
}

// initBound is the uniform initialization bound 6/sqrt(k).
func (model *BaseDistance) initBound() float32 {
	return 6 / math32.Sqrt(float32(model.embeddingDim))
}

func fitMargin(m distanceModel, margin float32, positive, negative dataset.MappedTriple) float32 {
	loss, gradPositive, gradNegative := marginRankingLoss(
		m.Score(positive[0], positive[1], positive[2]),
		m.Score(negative[0], negative[1], negative[2]),
		margin)
	if loss > 0 {
		m.backward(positive, gradPositive)
		m.backward(negative, gradNegative)
	}
	return loss
}

// TransE [bordes2013] translates the head by the relation vector:
//
//	score(h, r, t) = -||h + r - t||_p
type TransE struct {
	BaseDistance
	EntityEmbedding   *nn.Embedding
	RelationEmbedding *nn.Embedding
}

func NewTransE(params Params) *TransE {
	m := &TransE{BaseDistance: newBaseDistance(FamilyTransE, params)}
	bound := m.initBound()
	m.EntityEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numEntities, m.embeddingDim, -bound, bound))
	m.RelationEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, m.embeddingDim, -bound, bound))
	m.RelationEmbedding.NormalizeRows()
	return m
}

func (m *TransE) diff(head, relation, tail int32) []float32 {
	d := make([]float32, m.embeddingDim)
	floats.AddTo(m.EntityEmbedding.Row(head), m.RelationEmbedding.Row(relation), d)
	floats.Sub(d, m.EntityEmbedding.Row(tail))
	return d
}

func (m *TransE) Score(head, relation, tail int32) float32 {
	return distance(m.diff(head, relation, tail), m.norm)
}

func (m *TransE) backward(t dataset.MappedTriple, grad float32) {
	gd := make([]float32, m.embeddingDim)
	distanceGrad(m.diff(t[0], t[1], t[2]), m.norm, grad, gd)
	floats.Add(m.EntityEmbedding.Grad(t[0]), gd)
	floats.Add(m.RelationEmbedding.Grad(t[1]), gd)
	floats.Sub(m.EntityEmbedding.Grad(t[2]), gd)
}

func (m *TransE) fitPair(positive, negative dataset.MappedTriple) float32 {
	return fitMargin(m, m.margin, positive, negative)
}

func (m *TransE) constrain() {
	m.EntityEmbedding.NormalizeRows()
}

func (m *TransE) parameters() []nn.Parameter {
	return []nn.Parameter{m.EntityEmbedding, m.RelationEmbedding}
}

// TransH [wang2014] translates on a relation-specific hyperplane with unit normal w_r:
//
//	score(h, r, t) = -||(h - w_r.h w_r) + d_r - (t - w_r.t w_r)||_p
type TransH struct {
	BaseDistance
	EntityEmbedding   *nn.Embedding
	RelationEmbedding *nn.Embedding // d_r
	NormalVector      *nn.Embedding // w_r
}

func NewTransH(params Params) *TransH {
	m := &TransH{BaseDistance: newBaseDistance(FamilyTransH, params)}
	bound := m.initBound()
	m.EntityEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numEntities, m.embeddingDim, -bound, bound))
	m.RelationEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, m.embeddingDim, -bound, bound))
	m.NormalVector = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, m.embeddingDim, -bound, bound))
	m.NormalVector.NormalizeRows()
	return m
}

// project returns u = h - t and the translated difference on the hyperplane.
func (m *TransH) project(head, relation, tail int32) (u, d []float32) {
	u = make([]float32, m.embeddingDim)
	floats.SubTo(m.EntityEmbedding.Row(head), m.EntityEmbedding.Row(tail), u)
	w := m.NormalVector.Row(relation)
	d = make([]float32, m.embeddingDim)
	floats.MulConstTo(w, -floats.Dot(w, u), d)
	floats.Add(d, u)
	floats.Add(d, m.RelationEmbedding.Row(relation))
	return
}

func (m *TransH) Score(head, relation, tail int32) float32 {
	_, d := m.project(head, relation, tail)
	return distance(d, m.norm)
}

func (m *TransH) backward(t dataset.MappedTriple, grad float32) {
	u, d := m.project(t[0], t[1], t[2])
	w := m.NormalVector.Row(t[1])
	g := make([]float32, m.embeddingDim)
	distanceGrad(d, m.norm, grad, g)
	wg, wu := floats.Dot(w, g), floats.Dot(w, u)
	// dScore/du = g - (w.g) w
	gu := make([]float32, m.embeddingDim)
	floats.MulConstTo(w, -wg, gu)
	floats.Add(gu, g)
	floats.Add(m.EntityEmbedding.Grad(t[0]), gu)
	floats.Sub(m.EntityEmbedding.Grad(t[2]), gu)
	floats.Add(m.RelationEmbedding.Grad(t[1]), g)
	// dScore/dw = -((w.g) u + (w.u) g)
	gw := m.NormalVector.Grad(t[1])
	floats.MulConstAdd(u, -wg, gw)
	floats.MulConstAdd(g, -wu, gw)
}

func (m *TransH) fitPair(positive, negative dataset.MappedTriple) float32 {
	return fitMargin(m, m.margin, positive, negative)
}

func (m *TransH) constrain() {
	m.EntityEmbedding.NormalizeRows()
	m.NormalVector.NormalizeRows()
}

func (m *TransH) parameters() []nn.Parameter {
	return []nn.Parameter{m.EntityEmbedding, m.RelationEmbedding, m.NormalVector}
}

// TransD [ji2015] projects entities with dynamic mapping vectors:
//
//	score(h, r, t) = -||h + (h_p.h) r_p + r - t - (t_p.t) r_p||_p
type TransD struct {
	BaseDistance
	EntityEmbedding    *nn.Embedding
	EntityProjection   *nn.Embedding // h_p, t_p
	RelationEmbedding  *nn.Embedding
	RelationProjection *nn.Embedding // r_p
}

func NewTransD(params Params) *TransD {
	m := &TransD{BaseDistance: newBaseDistance(FamilyTransD, params)}
	bound := m.initBound()
	m.EntityEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numEntities, m.embeddingDim, -bound, bound))
	m.EntityProjection = nn.NewEmbedding(m.rng.UniformMatrix(m.numEntities, m.embeddingDim, -bound, bound))
	m.RelationEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, m.embeddingDim, -bound, bound))
	m.RelationProjection = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, m.embeddingDim, -bound, bound))
	return m
}

// project returns a = h_p.h - t_p.t and the translated difference.
func (m *TransD) project(head, relation, tail int32) (a float32, d []float32) {
	h, t := m.EntityEmbedding.Row(head), m.EntityEmbedding.Row(tail)
	a = floats.Dot(m.EntityProjection.Row(head), h) - floats.Dot(m.EntityProjection.Row(tail), t)
	d = make([]float32, m.embeddingDim)
	floats.SubTo(h, t, d)
	floats.Add(d, m.RelationEmbedding.Row(relation))
	floats.MulConstAdd(m.RelationProjection.Row(relation), a, d)
	return
}

func (m *TransD) Score(head, relation, tail int32) float32 {
	_, d := m.project(head, relation, tail)
	return distance(d, m.norm)
}

func (m *TransD) backward(t dataset.MappedTriple, grad float32) {
	a, d := m.project(t[0], t[1], t[2])
	g := make([]float32, m.embeddingDim)
	distanceGrad(d, m.norm, grad, g)
	rp := m.RelationProjection.Row(t[1])
	rg := floats.Dot(rp, g)
	// head: g + (r_p.g) h_p, tail: -(g + (r_p.g) t_p)
	gh := m.EntityEmbedding.Grad(t[0])
	floats.Add(gh, g)
	floats.MulConstAdd(m.EntityProjection.Row(t[0]), rg, gh)
	gt := m.EntityEmbedding.Grad(t[2])
	floats.Sub(gt, g)
	floats.MulConstAdd(m.EntityProjection.Row(t[2]), -rg, gt)
	floats.MulConstAdd(m.EntityEmbedding.Row(t[0]), rg, m.EntityProjection.Grad(t[0]))
	floats.MulConstAdd(m.EntityEmbedding.Row(t[2]), -rg, m.EntityProjection.Grad(t[2]))
	floats.Add(m.RelationEmbedding.Grad(t[1]), g)
	floats.MulConstAdd(g, a, m.RelationProjection.Grad(t[1]))
}

func (m *TransD) fitPair(positive, negative dataset.MappedTriple) float32 {
	return fitMargin(m, m.margin, positive, negative)
}

func (m *TransD) constrain() {
	m.EntityEmbedding.NormalizeRows()
	m.RelationEmbedding.NormalizeRows()
}

func (m *TransD) parameters() []nn.Parameter {
	return []nn.Parameter{m.EntityEmbedding, m.EntityProjection, m.RelationEmbedding, m.RelationProjection}
}

// TransR [lin2015] translates in a relation space reached by the matrix M_r:
//
//	score(h, r, t) = -||M_r h + r - M_r t||_p
type TransR struct {
	BaseDistance
	EntityEmbedding   *nn.Embedding
	RelationEmbedding *nn.Embedding
	ProjectionMatrix  *nn.Embedding // M_r, row-major k x k
}

func NewTransR(params Params) *TransR {
	m := &TransR{BaseDistance: newBaseDistance(FamilyTransR, params)}
	bound := m.initBound()
	k := m.embeddingDim
	m.EntityEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numEntities, k, -bound, bound))
	m.RelationEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, k, -bound, bound))
	m.RelationEmbedding.NormalizeRows()
	matrices := make([][]float32, m.numRelations)
	for i := range matrices {
		matrices[i] = make([]float32, k*k)
		for j := 0; j < k; j++ {
			matrices[i][j*k+j] = 1
		}
	}
	m.ProjectionMatrix = nn.NewEmbedding(matrices)
	return m
}

// project returns u = h - t and M_r u + r.
func (m *TransR) project(head, relation, tail int32) (u, d []float32) {
	u = make([]float32, m.embeddingDim)
	floats.SubTo(m.EntityEmbedding.Row(head), m.EntityEmbedding.Row(tail), u)
	d = make([]float32, m.embeddingDim)
	floats.MatVec(m.ProjectionMatrix.Row(relation), u, d)
	floats.Add(d, m.RelationEmbedding.Row(relation))
	return
}

func (m *TransR) Score(head, relation, tail int32) float32 {
	_, d := m.project(head, relation, tail)
	return distance(d, m.norm)
}

func (m *TransR) backward(t dataset.MappedTriple, grad float32) {
	u, d := m.project(t[0], t[1], t[2])
	g := make([]float32, m.embeddingDim)
	distanceGrad(d, m.norm, grad, g)
	floats.Add(m.RelationEmbedding.Grad(t[1]), g)
	floats.OuterAdd(g, u, 1, m.ProjectionMatrix.Grad(t[1]))
	gu := make([]float32, m.embeddingDim)
	floats.MatTVecAdd(m.ProjectionMatrix.Row(t[1]), g, gu)
	floats.Add(m.EntityEmbedding.Grad(t[0]), gu)
	floats.Sub(m.EntityEmbedding.Grad(t[2]), gu)
}

func (m *TransR) fitPair(positive, negative dataset.MappedTriple) float32 {
	return fitMargin(m, m.margin, positive, negative)
}

func (m *TransR) constrain() {
	m.EntityEmbedding.NormalizeRows()
}

func (m *TransR) parameters() []nn.Parameter {
	return []nn.Parameter{m.EntityEmbedding, m.RelationEmbedding, m.ProjectionMatrix}
}

// SE [bordes2011] projects head and tail with two relation-specific matrices:
//
//	score(h, r, t) = -||L_r h - R_r t||_p
type SE struct {
	BaseDistance
	EntityEmbedding *nn.Embedding
	LeftRelation    *nn.Embedding // L_r, row-major k x k
	RightRelation   *nn.Embedding // R_r, row-major k x k
}

func NewSE(params Params) *SE {
	m := &SE{BaseDistance: newBaseDistance(FamilySE, params)}
	bound := m.initBound()
	k := m.embeddingDim
	m.EntityEmbedding = nn.NewEmbedding(m.rng.UniformMatrix(m.numEntities, k, -bound, bound))
	m.LeftRelation = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, k*k, -bound, bound))
	m.LeftRelation.NormalizeRows()
	m.RightRelation = nn.NewEmbedding(m.rng.UniformMatrix(m.numRelations, k*k, -bound, bound))
	m.RightRelation.NormalizeRows()
	return m
}

func (m *SE) project(head, relation, tail int32) (d []float32) {
	d = make([]float32, m.embeddingDim)
	right := make([]float32, m.embeddingDim)
	floats.MatVec(m.LeftRelation.Row(relation), m.EntityEmbedding.Row(head), d)
	floats.MatVec(m.RightRelation.Row(relation), m.EntityEmbedding.Row(tail), right)
	floats.Sub(d, right)
	return
}

func (m *SE) Score(head, relation, tail int32) float32 {
	return distance(m.project(head, relation, tail), m.norm)
}

func (m *SE) backward(t dataset.MappedTriple, grad float32) {
	g := make([]float32, m.embeddingDim)
	distanceGrad(m.project(t[0], t[1], t[2]), m.norm, grad, g)
	h, tail := m.EntityEmbedding.Row(t[0]), m.EntityEmbedding.Row(t[2])
	floats.OuterAdd(g, h, 1, m.LeftRelation.Grad(t[1]))
	floats.OuterAdd(g, tail, -1, m.RightRelation.Grad(t[1]))
	floats.MatTVecAdd(m.LeftRelation.Row(t[1]), g, m.EntityEmbedding.Grad(t[0]))
	gt := make([]float32, m.embeddingDim)
	floats.MatTVecAdd(m.RightRelation.Row(t[1]), g, gt)
	floats.Sub(m.EntityEmbedding.Grad(t[2]), gt)
}

func (m *SE) fitPair(positive, negative dataset.MappedTriple) float32 {
	return fitMargin(m, m.margin, positive, negative)
}

func (m *SE) constrain() {
	m.EntityEmbedding.NormalizeRows()
}

func (m *SE) parameters() []nn.Parameter {
	return []nn.Parameter{m.EntityEmbedding, m.LeftRelation, m.RightRelation}
}
