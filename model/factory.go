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
	"math"

	"github.com/gorse-io/kge/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// NewModel builds an untrained model from a configuration record. The record must hold
// exactly the keys of its family, otherwise ErrConfiguration is returned.
func NewModel(params Params) (Model, error) {
	var family Family
	switch name := params[ModelName].(type) {
	case string:
		family = Family(name)
	case Family:
		family = name
	default:
		return nil, errors.Annotatef(base.ErrConfiguration, "missing %s", ModelName)
	}
	if _, err := ParseFamily(string(family)); err != nil {
		return nil, errors.Trace(err)
	}
	keys := family.Keys()
	for _, key := range keys {
		if _, exist := params[key]; !exist {
			return nil, errors.Annotatef(base.ErrConfiguration, "missing %s for %s", key, family)
		}
	}
	for _, key := range params.Names() {
		if !lo.Contains(keys, key) {
			return nil, errors.Annotatef(base.ErrConfiguration, "unrecognized %s for %s", key, family)
		}
	}
	if err := validateParams(family, params); err != nil {
		return nil, errors.Trace(err)
	}
	return families[family].build(params.Copy()), nil
}

type rule struct {
	name ParamName
	kind string // "int" or "float"
	min  float64
	max  float64
}

func validateParams(family Family, params Params) error {
	rules := []rule{
		{Lr, "float", 1e-12, 1e12},
		{EmbeddingDim, "int", 1, 1 << 20},
		{NumEpochs, "int", 0, 1 << 30},
		{BatchSize, "int", 1, 1 << 30},
		{NumEntities, "int", 1, 1 << 31},
		{NumRelations, "int", 1, 1 << 31},
		{RandomSeed, "int", math.MinInt64, math.MaxInt64},
	}
	switch family.SpecificKeys()[0] {
	case MarginLoss:
		rules = append(rules, rule{MarginLoss, "float", 0, 1e12}, rule{ScoringNorm, "int", 1, 2})
	case RegFactor:
		rules = append(rules, rule{RegFactor, "float", 0, 1e12})
	case ConvEHeight:
		for _, name := range convEKeys[:6] {
			rules = append(rules, rule{name, "int", 1, 1 << 20})
		}
		for _, name := range convEKeys[6:] {
			rules = append(rules, rule{name, "float", 0, 0.999999})
		}
	}
	for _, r := range rules {
		value, ok := asFloat(params[r.name], r.kind == "int")
		if !ok {
			return errors.Annotatef(base.ErrConfiguration, "%s must be %s but got %T", r.name, r.kind, params[r.name])
		}
		if value < r.min || value > r.max {
			return errors.Annotatef(base.ErrConfiguration, "%s = %v is out of range [%v, %v]", r.name, params[r.name], r.min, r.max)
		}
	}
	if family == FamilyConvE {
		height, width := params.GetInt(ConvEHeight, 0), params.GetInt(ConvEWidth, 0)
		if params.GetInt(EmbeddingDim, 0) != params.GetInt(ConvEInputChannels, 0)*height*width {
			return errors.Annotatef(base.ErrConfiguration, "%s must equal %s * %s * %s",
				EmbeddingDim, ConvEInputChannels, ConvEHeight, ConvEWidth)
		}
		if params.GetInt(ConvEKernelHeight, 0) > height || params.GetInt(ConvEKernelWidth, 0) > width {
			return errors.Annotatef(base.ErrConfiguration, "kernel is larger than the %dx%d input", height, width)
		}
	}
	return nil
}

func asFloat(value interface{}, integer bool) (float64, bool) {
	switch value := value.(type) {
	case int:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case float32:
		return float64(value), !integer
	case float64:
		return value, !integer
	default:
		return 0, false
	}
}
