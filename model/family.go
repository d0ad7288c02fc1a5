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
	"sort"

	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Family identifies a model family.
type Family string

const (
	FamilyTransE  Family = "TransE"
	FamilyTransH  Family = "TransH"
	FamilyTransD  Family = "TransD"
	FamilyTransR  Family = "TransR"
	FamilySE      Family = "SE"
	FamilyComplEx Family = "ComplEx"
	FamilyConvE   Family = "ConvE"
)

// SampledKeys are the general options drawn from candidate lists in every trial, in
// drawing order.
var SampledKeys = []ParamName{Lr, EmbeddingDim, NumEpochs, BatchSize}

// GeneralKeys are the options every model family accepts.
var GeneralKeys = []ParamName{ModelName, Lr, EmbeddingDim, NumEpochs, BatchSize, NumEntities, NumRelations, RandomSeed}

type sampler func(rng base.RandomGenerator, grid ParamsGrid) (Params, error)

type familySchema struct {
	assumption dataset.Assumption
	keys       []ParamName
	sample     sampler
	build      func(params Params) Model
}

var families map[Family]familySchema

func init() {
	translationKeys := []ParamName{MarginLoss, ScoringNorm}
	families = map[Family]familySchema{
		FamilyTransE: {dataset.OpenWorld, translationKeys, sampleTranslation, func(p Params) Model { return NewTransE(p) }},
		FamilyTransH: {dataset.OpenWorld, translationKeys, sampleTranslation, func(p Params) Model { return NewTransH(p) }},
		FamilyTransD: {dataset.OpenWorld, translationKeys, sampleTranslation, func(p Params) Model { return NewTransD(p) }},
		FamilyTransR: {dataset.OpenWorld, translationKeys, sampleTranslation, func(p Params) Model { return NewTransR(p) }},
		FamilySE:     {dataset.OpenWorld, translationKeys, sampleTranslation, func(p Params) Model { return NewSE(p) }},
		FamilyComplEx: {dataset.OpenWorld, []ParamName{RegFactor}, sampleComplEx,
			func(p Params) Model { return NewComplEx(p) }},
		FamilyConvE: {dataset.ClosedWorld, convEKeys, sampleConvE,
			func(p Params) Model { return NewConvE(p) }},
	}
}

var convEKeys = []ParamName{
	ConvEHeight, ConvEWidth, ConvEInputChannels, ConvEOutputChannels, ConvEKernelHeight,
	ConvEKernelWidth, ConvEInputDropout, ConvEOutputDropout, ConvEFeatureMapDropout,
}

// ParseFamily converts a name to a Family. Unknown names are a configuration error.
func ParseFamily(name string) (Family, error) {
	family := Family(name)
	if _, exist := families[family]; !exist {
		return "", errors.Annotatef(base.ErrConfiguration, "unknown model family %q", name)
	}
	return family, nil
}

// Families returns all supported families sorted by name.
func Families() []Family {
	names := lo.Keys(families)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Assumption returns the kind of training instances models of the family learn from.
func (f Family) Assumption() dataset.Assumption {
	return families[f].assumption
}

// SpecificKeys returns the family-specific options in sampling order.
func (f Family) SpecificKeys() []ParamName {
	return families[f].keys
}

// Keys returns every option a configuration record of the family must hold.
func (f Family) Keys() []ParamName {
	return append(append([]ParamName{}, GeneralKeys...), families[f].keys...)
}

// Sample draws the family-specific options.
func (f Family) Sample(rng base.RandomGenerator, grid ParamsGrid) (Params, error) {
	schema, exist := families[f]
	if !exist {
		return nil, errors.Annotatef(base.ErrConfiguration, "unknown model family %q", f)
	}
	return schema.sample(rng, grid)
}

// ValidateGrid checks that every combination of candidates builds a model of the family.
// Only ConvE options depend on each other: embedding_dim must equal the input shape and
// the kernel must fit into it.
func (f Family) ValidateGrid(grid ParamsGrid) error {
	if f != FamilyConvE {
		return nil
	}
	ints := func(name ParamName) []int {
		return lo.FilterMap(grid[name], func(value interface{}, _ int) (int, bool) {
			number, ok := asFloat(value, true)
			return int(number), ok
		})
	}
	heights, widths := ints(ConvEHeight), ints(ConvEWidth)
	for _, channels := range ints(ConvEInputChannels) {
		for _, height := range heights {
			for _, width := range widths {
				for _, dim := range ints(EmbeddingDim) {
					if dim != channels*height*width {
						return errors.Annotatef(base.ErrConfiguration, "%s = %d does not match %s * %s * %s = %d*%d*%d",
							EmbeddingDim, dim, ConvEInputChannels, ConvEHeight, ConvEWidth, channels, height, width)
					}
				}
			}
		}
	}
	if len(heights) > 0 && lo.Max(ints(ConvEKernelHeight)) > lo.Min(heights) {
		return errors.Annotatef(base.ErrConfiguration, "%s is larger than %s", ConvEKernelHeight, ConvEHeight)
	}
	if len(widths) > 0 && lo.Max(ints(ConvEKernelWidth)) > lo.Min(widths) {
		return errors.Annotatef(base.ErrConfiguration, "%s is larger than %s", ConvEKernelWidth, ConvEWidth)
	}
	return nil
}

// sampleTranslation draws the margin of the ranking loss and the distance norm shared by
// translational and structured models.
func sampleTranslation(rng base.RandomGenerator, grid ParamsGrid) (Params, error) {
	params := Params{}
	if err := grid.SampleInto(rng, params, MarginLoss, ScoringNorm); err != nil {
		return nil, errors.Trace(err)
	}
	return params, nil
}

func sampleComplEx(rng base.RandomGenerator, grid ParamsGrid) (Params, error) {
	params := Params{}
	if err := grid.SampleInto(rng, params, RegFactor); err != nil {
		return nil, errors.Trace(err)
	}
	return params, nil
}

// sampleConvE draws the layer shape and the three dropout rates.
func sampleConvE(rng base.RandomGenerator, grid ParamsGrid) (Params, error) {
	params := Params{}
	if err := grid.SampleInto(rng, params, convEKeys...); err != nil {
		return nil, errors.Trace(err)
	}
	return params, nil
}
