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

package model

import (
	"reflect"
	"sort"

	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

/* ParamName */

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	ModelName    ParamName = "kg_embedding_model_name" // model family
	Lr           ParamName = "learning_rate"           // learning rate
	EmbeddingDim ParamName = "embedding_dim"           // dimension of entity and relation embeddings
	NumEpochs    ParamName = "num_epochs"              // number of epochs
	BatchSize    ParamName = "batch_size"              // number of instances per gradient step
	NumEntities  ParamName = "num_entities"            // number of entities
	NumRelations ParamName = "num_relations"           // size of the relation id space
	RandomSeed   ParamName = "random_seed"             // random state (seed)

	MarginLoss  ParamName = "margin_loss"      // margin of the ranking loss
	ScoringNorm ParamName = "scoring_fct_norm" // p of the distance norm, 1 or 2

	RegFactor ParamName = "regularization_factor" // weight of the embedding regularization term

	ConvEHeight            ParamName = "conv_e_height"
	ConvEWidth             ParamName = "conv_e_width"
	ConvEInputChannels     ParamName = "conv_e_input_channels"
	ConvEOutputChannels    ParamName = "conv_e_output_channels"
	ConvEKernelHeight      ParamName = "conv_e_kernel_height"
	ConvEKernelWidth       ParamName = "conv_e_kernel_width"
	ConvEInputDropout      ParamName = "conv_e_input_dropout"
	ConvEOutputDropout     ParamName = "conv_e_output_dropout"
	ConvEFeatureMapDropout ParamName = "conv_e_feature_map_dropout"
)

// paramOrder is the order in which a configuration record lists its options.
var paramOrder = []ParamName{
	ModelName, Lr, EmbeddingDim, NumEpochs, BatchSize, NumEntities, NumRelations, RandomSeed,
	MarginLoss, ScoringNorm, RegFactor,
	ConvEHeight, ConvEWidth, ConvEInputChannels, ConvEOutputChannels, ConvEKernelHeight,
	ConvEKernelWidth, ConvEInputDropout, ConvEOutputDropout, ConvEFeatureMapDropout,
}

// Params stores hyper-parameters for an model. It is a map between strings
// (names) and interface{}s (values). For example, hyper-parameters for TransE
// is given by:
//
//	model.Params{
//		model.ModelName:    "TransE",
//		model.Lr:           0.01,
//		model.EmbeddingDim: 50,
//		model.MarginLoss:   1.0,
//		model.ScoringNorm:  1,
//	}
type Params map[ParamName]interface{}

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// Names returns parameter names in configuration record order. Unknown names follow in
// alphabetical order.
func (parameters Params) Names() []ParamName {
	names := lo.Keys(parameters)
	rank := func(name ParamName) int {
		if i := lo.IndexOf(paramOrder, name); i >= 0 {
			return i
		}
		return len(paramOrder)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

// GetInt gets a integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		case int32:
			return int(val)
		case int64:
			return int(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "int"),
				zap.String("actual", reflect.TypeOf(val).Name()))
		}
	}
	return _default
}

// GetInt64 gets a int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "int64"),
				zap.String("actual", reflect.TypeOf(val).Name()))
		}
	}
	return _default
}

// GetFloat32 gets a float32 parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetFloat32(name ParamName, _default float32) float32 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float32:
			return val
		case float64:
			return float32(val)
		case int:
			return float32(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "float32"),
				zap.String("actual", reflect.TypeOf(val).Name()))
		}
	}
	return _default
}

// GetString gets a string parameter. Returns _default if not exists or type doesn't match.
func (parameters Params) GetString(name ParamName, _default string) string {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case string:
			return val
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "string"),
				zap.String("actual", reflect.TypeOf(val).Name()))
		}
	}
	return _default
}

// Overwrite returns a copy with params merged on top.
func (parameters Params) Overwrite(params Params) Params {
	merged := make(Params)
	for k, v := range parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// ParamsGrid contains candidates for random search.
type ParamsGrid map[ParamName][]interface{}

func (grid ParamsGrid) Len() int {
	return len(grid)
}

// NumCombinations returns the number of distinct configurations in the grid.
func (grid ParamsGrid) NumCombinations() int {
	count := 1
	for _, values := range grid {
		count *= len(values)
	}
	return count
}

// Sample draws one candidate of a parameter uniformly. A missing or empty candidate
// list is a configuration error.
func (grid ParamsGrid) Sample(rng base.RandomGenerator, name ParamName) (interface{}, error) {
	values := grid[name]
	if len(values) == 0 {
		return nil, errors.Annotatef(base.ErrConfiguration, "no candidates for %s", name)
	}
	return rng.Choice(values), nil
}

// SampleInto draws candidates of names in order and stores them in params.
func (grid ParamsGrid) SampleInto(rng base.RandomGenerator, params Params, names ...ParamName) error {
	for _, name := range names {
		value, err := grid.Sample(rng, name)
		if err != nil {
			return errors.Trace(err)
		}
		params[name] = value
	}
	return nil
}
