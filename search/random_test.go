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

package search

import (
	"context"
	"testing"

	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/base/log"
	"github.com/gorse-io/kge/dataset"
	"github.com/gorse-io/kge/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var (
	trainTriples = []dataset.Triple{
		{"alice", "parent_of", "bob"},
		{"alice", "parent_of", "carol"},
		{"bob", "sibling_of", "carol"},
		{"carol", "sibling_of", "bob"},
		{"bob", "parent_of", "dave"},
		{"dave", "friend_of", "erin"},
	}
	testTriples = []dataset.Triple{
		{"carol", "parent_of", "dave"},
		{"erin", "friend_of", "dave"},
	}
)

// mockTrainer returns the model untouched with one zero loss per epoch.
type mockTrainer struct {
	configs []model.TrainConfig
	failAt  int
}

func (t *mockTrainer) Train(_ context.Context, m model.Model, config model.TrainConfig, _ dataset.Instances) (model.Model, []float32, error) {
	t.configs = append(t.configs, config)
	if len(t.configs) == t.failAt {
		return nil, nil, errors.Annotate(base.ErrTrainingFailure, "loss is NaN")
	}
	return m, make([]float32, config.NumEpochs), nil
}

// mockEvaluator derives metrics from the learning rate: mean rank is 10 * lr and hits@k is lr.
type mockEvaluator struct {
	meanRankCalls int
	hitsCalls     int
	jointCalls    int
}

func (e *mockEvaluator) MeanRank(_ context.Context, _ []int32, m model.Model, _ dataset.MappedTriples) (float32, error) {
	e.meanRankCalls++
	return 10 * m.GetParams().GetFloat32(model.Lr, 0), nil
}

func (e *mockEvaluator) HitsAtK(_ context.Context, _ []int32, m model.Model, _ dataset.MappedTriples, _ int) (float32, error) {
	e.hitsCalls++
	return m.GetParams().GetFloat32(model.Lr, 0), nil
}

func (e *mockEvaluator) MeanRankAndHitsAtK(_ context.Context, _ []int32, m model.Model, _ dataset.MappedTriples, _ int) (float32, float32, error) {
	e.jointCalls++
	lr := m.GetParams().GetFloat32(model.Lr, 0)
	return 10 * lr, lr, nil
}

type RandomSearchTestSuite struct {
	suite.Suite
	input     *Input
	trainer   *mockTrainer
	evaluator *mockEvaluator
	search    *RandomSearch
	trials    []Trial
}

func (suite *RandomSearchTestSuite) SetupSuite() {
	// twenty trials per test would flood the output
	log.CloseLogger()
}

func (suite *RandomSearchTestSuite) SetupTest() {
	suite.input = &Input{
		Train: dataset.NewTriplesFactoryFromTriples(trainTriples, true),
		Test:  testTriples,
	}
	suite.trainer = &mockTrainer{}
	suite.evaluator = &mockEvaluator{}
	suite.trials = nil
	suite.search = &RandomSearch{
		Factory:   FactoryFunc(model.NewModel),
		Trainer:   suite.trainer,
		Evaluator: suite.evaluator,
		OnTrial:   func(trial Trial) { suite.trials = append(suite.trials, trial) },
	}
}

func (suite *RandomSearchTestSuite) newConfig(maxIters int, metrics ...model.Metric) *Config {
	return &Config{
		Family:   model.FamilyTransE,
		MaxIters: maxIters,
		Metrics:  metrics,
		K:        3,
		Grid: model.ParamsGrid{
			model.Lr:           {0.1, 0.2, 0.3, 0.4},
			model.EmbeddingDim: {4, 8},
			model.NumEpochs:    {1, 2},
			model.BatchSize:    {2},
			model.MarginLoss:   {0.5, 1.0},
			model.ScoringNorm:  {1, 2},
		},
	}
}

func (suite *RandomSearchTestSuite) TestMaxItersOne() {
	result, err := suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(1, model.MeanRank, model.HitsAtK), model.DeviceCPU, 0)
	suite.NoError(err)
	suite.Equal(1, result.Len())
	suite.Equal(0, result.BestIndex)
	suite.Len(suite.trainer.configs, 1)
	suite.Equal(1, suite.evaluator.jointCalls)
	suite.Zero(suite.evaluator.meanRankCalls)
	suite.Zero(suite.evaluator.hitsCalls)

	best := result.Best()
	suite.Equal(model.MeanRank, best.PrimaryMetric)
	suite.Equal([]model.Metric{model.MeanRank, model.HitsAtK}, best.Summary.Metrics())
	suite.Len(best.Losses, best.Params.GetInt(model.NumEpochs, 0))
	suite.Same(suite.input.Train.EntityIndex, best.EntityIndex)
	suite.Same(suite.input.Train.RelationIndex, best.RelationIndex)
	suite.Equal(5, best.Params[model.NumEntities])
	suite.Equal(6, best.Params[model.NumRelations])
	suite.Equal(int64(0), best.Params[model.RandomSeed])
	suite.Equal(string(model.FamilyTransE), best.Params[model.ModelName])
	suite.Equal(model.FamilyTransE.Keys(), best.Params.Names())
	suite.Len(suite.trials, 1)
	suite.Equal(best.Params, suite.trials[0].Params)
}

func (suite *RandomSearchTestSuite) TestDeterministic() {
	config := suite.newConfig(3, model.MeanRank)
	for name := range config.Grid {
		config.Grid[name] = config.Grid[name][:1]
	}
	first, err := suite.search.Optimize(context.Background(), suite.input, config, model.DeviceCPU, 42)
	suite.NoError(err)
	second, err := suite.search.Optimize(context.Background(), suite.input, config, model.DeviceCPU, 42)
	suite.NoError(err)
	suite.Equal(first.Params, second.Params)
	for _, params := range first.Params {
		suite.Equal(first.Params[0], params)
	}
	suite.Equal(0.1, first.Params[0][model.Lr])
}

func (suite *RandomSearchTestSuite) TestSameSeed() {
	config := suite.newConfig(5, model.MeanRank)
	first, err := suite.search.Optimize(context.Background(), suite.input, config, model.DeviceCPU, 7)
	suite.NoError(err)
	second, err := suite.search.Optimize(context.Background(), suite.input, config, model.DeviceCPU, 7)
	suite.NoError(err)
	suite.Equal(first.Params, second.Params)
	suite.Equal(first.Scores, second.Scores)
}

func (suite *RandomSearchTestSuite) TestHitsOnly() {
	result, err := suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(3, model.HitsAtK), model.DeviceCPU, 0)
	suite.NoError(err)
	suite.Equal(3, result.Len())
	for _, summary := range result.Summaries {
		suite.Equal([]model.Metric{model.HitsAtK}, summary.Metrics())
	}
	suite.Equal(model.HitsAtK, result.PrimaryMetric)
	suite.Equal(model.HitsAtK, result.Best().PrimaryMetric)
	suite.Equal(3, suite.evaluator.hitsCalls)
	suite.Zero(suite.evaluator.meanRankCalls)
	suite.Zero(suite.evaluator.jointCalls)
	suite.Equal(lo.Max(result.Scores), result.Scores[result.BestIndex])
}

func (suite *RandomSearchTestSuite) TestMeanRankOnly() {
	result, err := suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(3, model.MeanRank), model.DeviceCPU, 0)
	suite.NoError(err)
	for _, summary := range result.Summaries {
		suite.Equal([]model.Metric{model.MeanRank}, summary.Metrics())
		_, found := summary.Get(model.HitsAtK)
		suite.False(found)
	}
	suite.Equal(3, suite.evaluator.meanRankCalls)
	suite.Zero(suite.evaluator.hitsCalls)
}

func (suite *RandomSearchTestSuite) TestSelection() {
	// lower mean rank wins
	config := suite.newConfig(20, model.MeanRank, model.HitsAtK)
	result, err := suite.search.Optimize(context.Background(), suite.input, config, model.DeviceCPU, 0)
	suite.NoError(err)
	suite.Equal(SelectByDirection, result.Selection)
	suite.Less(lo.Min(result.Scores), lo.Max(result.Scores))
	suite.Equal(lo.Min(result.Scores), result.Scores[result.BestIndex])
	// argmax picks the worst mean rank
	config.Selection = SelectArgmax
	result, err = suite.search.Optimize(context.Background(), suite.input, config, model.DeviceCPU, 0)
	suite.NoError(err)
	suite.Equal(lo.Max(result.Scores), result.Scores[result.BestIndex])
}

func (suite *RandomSearchTestSuite) TestConfigurationError() {
	ctx := context.Background()
	// unknown family
	config := suite.newConfig(1, model.MeanRank)
	config.Family = "RotatE"
	_, err := suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// no metrics
	config = suite.newConfig(1)
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// unknown metric
	config = suite.newConfig(1, "mrr")
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// missing candidates
	config = suite.newConfig(1, model.MeanRank)
	delete(config.Grid, model.MarginLoss)
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	suite.Contains(err.Error(), string(model.MarginLoss))
	config = suite.newConfig(1, model.MeanRank)
	config.Grid[model.Lr] = nil
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// bad k
	config = suite.newConfig(1, model.HitsAtK)
	config.K = 0
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// no trials
	config = suite.newConfig(0, model.MeanRank)
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// unknown selection
	config = suite.newConfig(1, model.MeanRank)
	config.Selection = "argmin"
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// unknown optimizer
	config = suite.newConfig(1, model.MeanRank)
	config.Optimizer = "rmsprop"
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	// embedding_dim 100 does not fit a 1x5x10 input
	config = suite.newConfig(10, model.MeanRank)
	config.Family = model.FamilyConvE
	config.Grid[model.EmbeddingDim] = []interface{}{50, 100}
	config.Grid[model.ConvEHeight] = []interface{}{5}
	config.Grid[model.ConvEWidth] = []interface{}{10}
	config.Grid[model.ConvEInputChannels] = []interface{}{1}
	config.Grid[model.ConvEOutputChannels] = []interface{}{4}
	config.Grid[model.ConvEKernelHeight] = []interface{}{3}
	config.Grid[model.ConvEKernelWidth] = []interface{}{3}
	config.Grid[model.ConvEInputDropout] = []interface{}{0.2}
	config.Grid[model.ConvEOutputDropout] = []interface{}{0.3}
	config.Grid[model.ConvEFeatureMapDropout] = []interface{}{0.2}
	_, err = suite.search.Optimize(ctx, suite.input, config, model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	suite.Contains(err.Error(), "embedding_dim = 100")
	suite.Empty(suite.trials)
	// nothing was trained
	suite.Empty(suite.trainer.configs)
}

func (suite *RandomSearchTestSuite) TestUnknownLabel() {
	suite.input.Test = append(suite.input.Test, dataset.Triple{Subject: "zoe", Relation: "parent_of", Object: "bob"})
	_, err := suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(1, model.MeanRank), model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrUnknownLabel))
	suite.Empty(suite.trainer.configs)
	// drop
	suite.input.Policy = dataset.DropUnknown
	_, err = suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(1, model.MeanRank), model.DeviceCPU, 0)
	suite.NoError(err)
	// nothing left
	suite.input.Test = []dataset.Triple{{Subject: "zoe", Relation: "parent_of", Object: "bob"}}
	_, err = suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(1, model.MeanRank), model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
}

func (suite *RandomSearchTestSuite) TestTrainingFailure() {
	suite.trainer.failAt = 2
	result, err := suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(3, model.MeanRank), model.DeviceCPU, 0)
	suite.Nil(result)
	suite.True(errors.Is(err, base.ErrTrainingFailure))
	suite.Contains(err.Error(), "trial 2: train")
	suite.Len(suite.trials, 1)
}

func (suite *RandomSearchTestSuite) TestBuildFailure() {
	suite.search.Factory = FactoryFunc(func(params model.Params) (model.Model, error) {
		return nil, errors.Annotate(base.ErrConfiguration, "missing key")
	})
	_, err := suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(2, model.MeanRank), model.DeviceCPU, 0)
	suite.True(errors.Is(err, base.ErrConfiguration))
	suite.Contains(err.Error(), "trial 1: build model")
	suite.Empty(suite.trainer.configs)
}

func (suite *RandomSearchTestSuite) TestTrainConfig() {
	_, err := suite.search.Optimize(context.Background(), suite.input,
		suite.newConfig(4, model.MeanRank), model.DeviceCPU, 3)
	suite.NoError(err)
	suite.Len(suite.trainer.configs, 4)
	for i, config := range suite.trainer.configs {
		suite.Equal(model.DeviceCPU, config.Device)
		suite.Equal(int64(3), config.Seed)
		suite.Equal(2, config.BatchSize)
		suite.Equal(suite.trials[i].Params.GetInt(model.NumEpochs, 0), config.NumEpochs)
		suite.Equal(i, suite.trials[i].Index)
		suite.Empty(config.Optimizer)
	}
	// the optimizer is passed to every trial
	searchConfig := suite.newConfig(2, model.MeanRank)
	searchConfig.Optimizer = "adam"
	suite.trainer.configs = nil
	_, err = suite.search.Optimize(context.Background(), suite.input, searchConfig, model.DeviceCPU, 3)
	suite.NoError(err)
	suite.Len(suite.trainer.configs, 2)
	for _, config := range suite.trainer.configs {
		suite.Equal("adam", config.Optimizer)
	}
}

func TestRandomSearch(t *testing.T) {
	suite.Run(t, new(RandomSearchTestSuite))
}

func TestConfig_Space(t *testing.T) {
	config := (&RandomSearchTestSuite{}).newConfig(1, model.MeanRank)
	config.Grid[model.RegFactor] = []interface{}{0.1, 0.2, 0.3}
	space := config.space()
	assert.Equal(t, 6, space.Len())
	assert.NotContains(t, space, model.RegFactor)
	assert.Equal(t, 4*2*2*1*2*2, space.NumCombinations())
}

func TestSelection_BestIndex(t *testing.T) {
	scores := []float32{3, 1, 2}
	assert.Equal(t, 1, SelectByDirection.BestIndex(model.MeanRank, scores))
	assert.Equal(t, 0, SelectByDirection.BestIndex(model.HitsAtK, scores))
	assert.Equal(t, 0, SelectArgmax.BestIndex(model.MeanRank, scores))
	assert.Equal(t, 0, SelectArgmax.BestIndex(model.HitsAtK, scores))
	// ties go to the earliest trial
	assert.Equal(t, 0, SelectByDirection.BestIndex(model.MeanRank, []float32{1, 1}))
	assert.Equal(t, -1, SelectArgmax.BestIndex(model.MeanRank, nil))

	selection, err := ParseSelection("")
	assert.NoError(t, err)
	assert.Equal(t, SelectByDirection, selection)
	selection, err = ParseSelection("argmax")
	assert.NoError(t, err)
	assert.Equal(t, SelectArgmax, selection)
	_, err = ParseSelection("argmin")
	assert.True(t, errors.Is(err, base.ErrConfiguration))
}

func TestRandomSearch_EndToEnd(t *testing.T) {
	input := &Input{
		Train: dataset.NewTriplesFactoryFromTriples(trainTriples, false),
		Test:  testTriples,
	}
	for _, family := range []model.Family{model.FamilyTransE, model.FamilyComplEx, model.FamilyConvE} {
		config := &Config{
			Family:   family,
			MaxIters: 2,
			Metrics:  []model.Metric{model.HitsAtK, model.MeanRank},
			K:        2,
			Grid: model.ParamsGrid{
				model.Lr:                     {0.01, 0.05},
				model.EmbeddingDim:           {8},
				model.NumEpochs:              {3},
				model.BatchSize:              {2, 4},
				model.MarginLoss:             {1.0},
				model.ScoringNorm:            {1, 2},
				model.RegFactor:              {0.01},
				model.ConvEHeight:            {2},
				model.ConvEWidth:             {4},
				model.ConvEInputChannels:     {1},
				model.ConvEOutputChannels:    {2},
				model.ConvEKernelHeight:      {2},
				model.ConvEKernelWidth:       {2},
				model.ConvEInputDropout:      {0.1},
				model.ConvEOutputDropout:     {0.1},
				model.ConvEFeatureMapDropout: {0.1},
			},
		}
		result, err := NewRandomSearch(2).Optimize(context.Background(), input, config, model.DeviceCPU, 0)
		if !assert.NoError(t, err, family) {
			continue
		}
		best := result.Best()
		assert.Equal(t, family, best.Model.Family())
		assert.Len(t, best.Losses, 3)
		assert.Equal(t, model.MeanRank, best.PrimaryMetric)
		meanRank, _ := best.Summary.Get(model.MeanRank)
		hits, _ := best.Summary.Get(model.HitsAtK)
		assert.GreaterOrEqual(t, meanRank, float32(1))
		assert.LessOrEqual(t, meanRank, float32(input.Train.CountEntities()))
		assert.GreaterOrEqual(t, hits, float32(0))
		assert.LessOrEqual(t, hits, float32(1))
		assert.Equal(t, lo.Min(result.Scores), meanRank)
	}
}
