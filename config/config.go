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

package config

import (
	"strings"

	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/common/nn"
	"github.com/gorse-io/kge/dataset"
	"github.com/gorse-io/kge/model"
	"github.com/gorse-io/kge/search"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the configuration of a search run.
type Config struct {
	Data   DataConfig  `mapstructure:"data"`
	Search SearchSpace `mapstructure:"search"`
	Device string      `mapstructure:"device" validate:"oneof=cpu"`
	Seed   int64       `mapstructure:"seed"`
	Jobs   int         `mapstructure:"jobs" validate:"gte=1"`
}

// DataConfig is the configuration of the training and test sets.
type DataConfig struct {
	Train                string `mapstructure:"train" validate:"required"`
	Test                 string `mapstructure:"test" validate:"required"`
	CreateInverseTriples bool   `mapstructure:"create_inverse_triples"`
	UnknownLabels        string `mapstructure:"unknown_labels" validate:"oneof=error drop"`
}

// SearchSpace is the configuration of the random search.
type SearchSpace struct {
	Model     string       `mapstructure:"model" validate:"required"`
	MaxIters  int          `mapstructure:"max_iters" validate:"gt=0"`
	Metrics   []string     `mapstructure:"metrics" validate:"min=1,unique,dive,oneof=mean_rank hits_at_k"`
	K         int          `mapstructure:"k" validate:"gte=0"`
	Selection string       `mapstructure:"selection" validate:"oneof=direction argmax"`
	Optimizer string       `mapstructure:"optimizer" validate:"oneof=sgd adam"`
	Params    ParamsConfig `mapstructure:"params"`
}

// ParamsConfig holds candidate values of every hyper-parameter.
type ParamsConfig struct {
	LearningRate []float64 `mapstructure:"learning_rate" validate:"dive,gt=0"`
	EmbeddingDim []int     `mapstructure:"embedding_dim" validate:"dive,gt=0"`
	NumEpochs    []int     `mapstructure:"num_epochs" validate:"dive,gte=0"`
	BatchSize    []int     `mapstructure:"batch_size" validate:"dive,gt=0"`

	MarginLoss  []float64 `mapstructure:"margin_loss" validate:"dive,gte=0"`
	ScoringNorm []int     `mapstructure:"scoring_fct_norm" validate:"dive,oneof=1 2"`
	RegFactor   []float64 `mapstructure:"regularization_factor" validate:"dive,gte=0"`

	ConvEHeight            []int     `mapstructure:"conv_e_height" validate:"dive,gt=0"`
	ConvEWidth             []int     `mapstructure:"conv_e_width" validate:"dive,gt=0"`
	ConvEInputChannels     []int     `mapstructure:"conv_e_input_channels" validate:"dive,gt=0"`
	ConvEOutputChannels    []int     `mapstructure:"conv_e_output_channels" validate:"dive,gt=0"`
	ConvEKernelHeight      []int     `mapstructure:"conv_e_kernel_height" validate:"dive,gt=0"`
	ConvEKernelWidth       []int     `mapstructure:"conv_e_kernel_width" validate:"dive,gt=0"`
	ConvEInputDropout      []float64 `mapstructure:"conv_e_input_dropout" validate:"dive,gte=0,lt=1"`
	ConvEOutputDropout     []float64 `mapstructure:"conv_e_output_dropout" validate:"dive,gte=0,lt=1"`
	ConvEFeatureMapDropout []float64 `mapstructure:"conv_e_feature_map_dropout" validate:"dive,gte=0,lt=1"`
}

func setDefaults(v *viper.Viper) {
	// [data]
	v.SetDefault("data.train", "")
	v.SetDefault("data.test", "")
	v.SetDefault("data.create_inverse_triples", false)
	v.SetDefault("data.unknown_labels", string(dataset.FailOnUnknown))
	// [search]
	v.SetDefault("search.model", string(model.FamilyTransE))
	v.SetDefault("search.max_iters", 10)
	v.SetDefault("search.metrics", []string{string(model.MeanRank), string(model.HitsAtK)})
	v.SetDefault("search.k", 10)
	v.SetDefault("search.selection", string(search.SelectByDirection))
	v.SetDefault("search.optimizer", nn.OptimizerSGD)
	// [search.params]
	v.SetDefault("search.params.learning_rate", []float64{0.01})
	v.SetDefault("search.params.embedding_dim", []int{50})
	v.SetDefault("search.params.num_epochs", []int{100})
	v.SetDefault("search.params.batch_size", []int{64})
	v.SetDefault("search.params.margin_loss", []float64{1.0})
	v.SetDefault("search.params.scoring_fct_norm", []int{1})
	v.SetDefault("search.params.regularization_factor", []float64{0.01})
	v.SetDefault("search.params.conv_e_height", []int{5})
	v.SetDefault("search.params.conv_e_width", []int{10})
	v.SetDefault("search.params.conv_e_input_channels", []int{1})
	v.SetDefault("search.params.conv_e_output_channels", []int{32})
	v.SetDefault("search.params.conv_e_kernel_height", []int{3})
	v.SetDefault("search.params.conv_e_kernel_width", []int{3})
	v.SetDefault("search.params.conv_e_input_dropout", []float64{0.2})
	v.SetDefault("search.params.conv_e_output_dropout", []float64{0.3})
	v.SetDefault("search.params.conv_e_feature_map_dropout", []float64{0.2})
	// [device]
	v.SetDefault("device", model.DeviceCPU)
	v.SetDefault("seed", 0)
	v.SetDefault("jobs", 1)
}

// LoadConfig loads configuration from a YAML, TOML or JSON file, KGE_* environment variables
// and the --train and --test flags. Empty path skips the file.
func LoadConfig(path string, flagSet *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("KGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if flagSet != nil {
		for key, name := range map[string]string{"data.train": "train", "data.test": "test"} {
			if flag := flagSet.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, errors.Trace(err)
				}
			}
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Annotatef(base.ErrConfiguration, "%v", err)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &config, nil
}

// SearchConfig converts the search section to a search configuration.
func (config *Config) SearchConfig() (*search.Config, error) {
	family, err := model.ParseFamily(config.Search.Model)
	if err != nil {
		return nil, errors.Trace(err)
	}
	selection, err := search.ParseSelection(config.Search.Selection)
	if err != nil {
		return nil, errors.Trace(err)
	}
	params := config.Search.Params
	return &search.Config{
		Family:    family,
		MaxIters:  config.Search.MaxIters,
		Metrics:   lo.Map(config.Search.Metrics, func(name string, _ int) model.Metric { return model.Metric(name) }),
		K:         config.Search.K,
		Selection: selection,
		Optimizer: config.Search.Optimizer,
		Grid: model.ParamsGrid{
			model.Lr:                     candidates(params.LearningRate),
			model.EmbeddingDim:           candidates(params.EmbeddingDim),
			model.NumEpochs:              candidates(params.NumEpochs),
			model.BatchSize:              candidates(params.BatchSize),
			model.MarginLoss:             candidates(params.MarginLoss),
			model.ScoringNorm:            candidates(params.ScoringNorm),
			model.RegFactor:              candidates(params.RegFactor),
			model.ConvEHeight:            candidates(params.ConvEHeight),
			model.ConvEWidth:             candidates(params.ConvEWidth),
			model.ConvEInputChannels:     candidates(params.ConvEInputChannels),
			model.ConvEOutputChannels:    candidates(params.ConvEOutputChannels),
			model.ConvEKernelHeight:      candidates(params.ConvEKernelHeight),
			model.ConvEKernelWidth:       candidates(params.ConvEKernelWidth),
			model.ConvEInputDropout:      candidates(params.ConvEInputDropout),
			model.ConvEOutputDropout:     candidates(params.ConvEOutputDropout),
			model.ConvEFeatureMapDropout: candidates(params.ConvEFeatureMapDropout),
		},
	}, nil
}

// UnknownLabelPolicy returns the policy applied to test triples with unseen labels.
func (config *Config) UnknownLabelPolicy() dataset.UnknownLabelPolicy {
	return dataset.UnknownLabelPolicy(config.Data.UnknownLabels)
}

func candidates[T int | float64](values []T) []interface{} {
	return lo.Map(values, func(value T, _ int) interface{} { return value })
}
