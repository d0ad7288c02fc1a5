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
	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/common/floats"
	"github.com/gorse-io/kge/common/nn"
)

// ConvE [dettmers2018] convolves the stacked 2D reshaping of head and relation embeddings,
// projects the feature maps back to the embedding space and scores every tail at once:
//
//	score(h, r, t) = relu(W vec(relu([h; r] * w)) + b) . t + b_t
//
// It is trained under the closed world assumption with binary cross entropy over all
// entities. Dropout is applied to the input, the feature maps (per channel) and the hidden
// layer.
type ConvE struct {
	BaseModel
	EntityEmbedding   *nn.Tensor // numEntities x k
	RelationEmbedding *nn.Tensor // numRelations x k
	EntityBias        *nn.Tensor // numEntities
	Kernel            *nn.Tensor // outChannels x inChannels x kernelHeight x kernelWidth
	KernelBias        *nn.Tensor // outChannels
	Projection        *nn.Tensor // k x numFeatures
	ProjectionBias    *nn.Tensor // k

	height, width           int
	inChannels, outChannels int
	kernelHeight            int
	kernelWidth             int
	inputDropout            float32
	featureMapDropout       float32
	outputDropout           float32
}

func NewConvE(params Params) *ConvE {
	m := &ConvE{
		BaseModel:         newBaseModel(FamilyConvE, params),
		height:            params.GetInt(ConvEHeight, 10),
		width:             params.GetInt(ConvEWidth, 20),
		inChannels:        params.GetInt(ConvEInputChannels, 1),
		outChannels:       params.GetInt(ConvEOutputChannels, 32),
		kernelHeight:      params.GetInt(ConvEKernelHeight, 3),
		kernelWidth:       params.GetInt(ConvEKernelWidth, 3),
		inputDropout:      params.GetFloat32(ConvEInputDropout, 0.2),
		featureMapDropout: params.GetFloat32(ConvEFeatureMapDropout, 0.2),
		outputDropout:     params.GetFloat32(ConvEOutputDropout, 0.3),
	}
	k := m.embeddingDim
	kernelSize := m.inChannels * m.kernelHeight * m.kernelWidth
	m.EntityEmbedding = nn.NewTensor(flatten(m.rng.XavierMatrix(m.numEntities, k, k, m.numEntities)), m.numEntities, k)
	m.RelationEmbedding = nn.NewTensor(flatten(m.rng.XavierMatrix(m.numRelations, k, k, m.numRelations)), m.numRelations, k)
	m.EntityBias = nn.Zeros(m.numEntities)
	m.Kernel = nn.NewTensor(flatten(m.rng.XavierMatrix(m.outChannels, kernelSize,
		kernelSize, m.outChannels*m.kernelHeight*m.kernelWidth)), m.outChannels, m.inChannels, m.kernelHeight, m.kernelWidth)
	m.KernelBias = nn.Zeros(m.outChannels)
	m.Projection = nn.NewTensor(flatten(m.rng.XavierMatrix(k, m.numFeatures(), m.numFeatures(), k)), k, m.numFeatures())
	m.ProjectionBias = nn.Zeros(k)
	return m
}

func (m *ConvE) outHeight() int {
	return 2*m.height - m.kernelHeight + 1
}

func (m *ConvE) outWidth() int {
	return m.width - m.kernelWidth + 1
}

func (m *ConvE) numFeatures() int {
	return m.outChannels * m.outHeight() * m.outWidth()
}

func (m *ConvE) entity(id int32) []float32 {
	k := m.embeddingDim
	return m.EntityEmbedding.Data[int(id)*k : int(id+1)*k]
}

// convECache holds the activations of one forward pass. Masks are nil in evaluation.
type convECache struct {
	input       []float32 // stacked and dropped out, inChannels x 2height x width
	inputMask   []float32
	conv        []float32 // before relu, outChannels x outHeight x outWidth
	featureMask []float32 // per output channel
	features    []float32
	projected   []float32 // after dropout, before relu
	outputMask  []float32
	hidden      []float32
}

// stackIndex maps a position of the stacked input to the embedding it comes from.
func (m *ConvE) stackIndex(channel, row, col int) (fromRelation bool, index int) {
	fromRelation = row >= m.height
	return fromRelation, channel*m.height*m.width + (row%m.height)*m.width + col
}

func (m *ConvE) forward(head, relation int32, rng *base.RandomGenerator) *convECache {
	k := m.embeddingDim
	h := m.EntityEmbedding.Data[int(head)*k : int(head+1)*k]
	r := m.RelationEmbedding.Data[int(relation)*k : int(relation+1)*k]
	cache := &convECache{}
	if rng != nil {
		cache.inputMask = rng.Mask(2*k, m.inputDropout)
		cache.featureMask = rng.Mask(m.outChannels, m.featureMapDropout)
		cache.outputMask = rng.Mask(k, m.outputDropout)
	}
	// stack
	cache.input = make([]float32, 2*k)
	for c := 0; c < m.inChannels; c++ {
		for row := 0; row < 2*m.height; row++ {
			for col := 0; col < m.width; col++ {
				pos := (c*2*m.height+row)*m.width + col
				fromRelation, index := m.stackIndex(c, row, col)
				if fromRelation {
					cache.input[pos] = r[index]
				} else {
					cache.input[pos] = h[index]
				}
			}
		}
	}
	if cache.inputMask != nil {
		floats.MulTo(cache.input, cache.inputMask, cache.input)
	}
	// convolution
	oh, ow := m.outHeight(), m.outWidth()
	cache.conv = make([]float32, m.numFeatures())
	cache.features = make([]float32, m.numFeatures())
	for o := 0; o < m.outChannels; o++ {
		for i := 0; i < oh; i++ {
			for j := 0; j < ow; j++ {
				sum := m.KernelBias.Data[o]
				for c := 0; c < m.inChannels; c++ {
					for a := 0; a < m.kernelHeight; a++ {
						for b := 0; b < m.kernelWidth; b++ {
							sum += m.Kernel.Data[((o*m.inChannels+c)*m.kernelHeight+a)*m.kernelWidth+b] *
								cache.input[(c*2*m.height+i+a)*m.width+j+b]
						}
					}
				}
				pos := (o*oh+i)*ow + j
				cache.conv[pos] = sum
				if sum > 0 {
					cache.features[pos] = sum
					if cache.featureMask != nil {
						cache.features[pos] *= cache.featureMask[o]
					}
				}
			}
		}
	}
	// projection
	cache.projected = make([]float32, k)
	floats.MatVec(m.Projection.Data, cache.features, cache.projected)
	floats.Add(cache.projected, m.ProjectionBias.Data)
	if cache.outputMask != nil {
		floats.MulTo(cache.projected, cache.outputMask, cache.projected)
	}
	cache.hidden = make([]float32, k)
	for i, v := range cache.projected {
		if v > 0 {
			cache.hidden[i] = v
		}
	}
	return cache
}

func (m *ConvE) Score(head, relation, tail int32) float32 {
	hidden := m.forward(head, relation, nil).hidden
	return floats.Dot(hidden, m.entity(tail)) + m.EntityBias.Data[tail]
}

// ScoreTails scores every entity as the tail of (head, relation).
func (m *ConvE) ScoreTails(head, relation int32) []float32 {
	hidden := m.forward(head, relation, nil).hidden
	scores := make([]float32, m.numEntities)
	for e := range scores {
		scores[e] = floats.Dot(hidden, m.entity(int32(e))) + m.EntityBias.Data[e]
	}
	return scores
}

func (m *ConvE) fitInstance(rng base.RandomGenerator, head, relation int32, targets *bitset.BitSet) float32 {
	k := m.embeddingDim
	cache := m.forward(head, relation, &rng)
	// binary cross entropy over all entities
	var loss float32
	n := float32(m.numEntities)
	gradHidden := make([]float32, k)
	for e := 0; e < m.numEntities; e++ {
		row := m.entity(int32(e))
		score := floats.Dot(cache.hidden, row) + m.EntityBias.Data[e]
		var label float32
		if targets.Test(uint(e)) {
			label = 1
		}
		loss += softplus(score) - label*score
		grad := (sigmoid(score) - label) / n
		floats.MulConstAdd(cache.hidden, grad, m.EntityEmbedding.Grad[e*k:(e+1)*k])
		m.EntityBias.Grad[e] += grad
		floats.MulConstAdd(row, grad, gradHidden)
	}
	// relu and dropout of the hidden layer
	gradProjected := make([]float32, k)
	for i := range gradProjected {
		if cache.projected[i] > 0 {
			gradProjected[i] = gradHidden[i]
			if cache.outputMask != nil {
				gradProjected[i] *= cache.outputMask[i]
			}
		}
	}
	floats.Add(m.ProjectionBias.Grad, gradProjected)
	floats.OuterAdd(gradProjected, cache.features, 1, m.Projection.Grad)
	gradFeatures := make([]float32, m.numFeatures())
	floats.MatTVecAdd(m.Projection.Data, gradProjected, gradFeatures)
	// convolution
	oh, ow := m.outHeight(), m.outWidth()
	gradInput := make([]float32, 2*k)
	for o := 0; o < m.outChannels; o++ {
		for i := 0; i < oh; i++ {
			for j := 0; j < ow; j++ {
				pos := (o*oh+i)*ow + j
				if cache.conv[pos] <= 0 {
					continue
				}
				grad := gradFeatures[pos]
				if cache.featureMask != nil {
					grad *= cache.featureMask[o]
				}
				if grad == 0 {
					continue
				}
				m.KernelBias.Grad[o] += grad
				for c := 0; c < m.inChannels; c++ {
					for a := 0; a < m.kernelHeight; a++ {
						for b := 0; b < m.kernelWidth; b++ {
							w := ((o*m.inChannels+c)*m.kernelHeight+a)*m.kernelWidth + b
							x := (c*2*m.height+i+a)*m.width + j + b
							m.Kernel.Grad[w] += grad * cache.input[x]
							gradInput[x] += grad * m.Kernel.Data[w]
						}
					}
				}
			}
		}
	}
	// unstack into the head and relation rows
	floats.MulTo(gradInput, cache.inputMask, gradInput)
	gradHead := m.EntityEmbedding.Grad[int(head)*k : int(head+1)*k]
	gradRelation := m.RelationEmbedding.Grad[int(relation)*k : int(relation+1)*k]
	for c := 0; c < m.inChannels; c++ {
		for row := 0; row < 2*m.height; row++ {
			for col := 0; col < m.width; col++ {
				grad := gradInput[(c*2*m.height+row)*m.width+col]
				fromRelation, index := m.stackIndex(c, row, col)
				if fromRelation {
					gradRelation[index] += grad
				} else {
					gradHead[index] += grad
				}
			}
		}
	}
	return loss / n
}

func (m *ConvE) parameters() []nn.Parameter {
	return []nn.Parameter{m.EntityEmbedding, m.RelationEmbedding, m.EntityBias, m.Kernel,
		m.KernelBias, m.Projection, m.ProjectionBias}
}
