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
	"fmt"
	"time"

	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/base/log"
	"github.com/gorse-io/kge/base/progress"
	"github.com/gorse-io/kge/common/nn"
	"github.com/gorse-io/kge/dataset"
	"github.com/gorse-io/kge/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Factory builds a model from a configuration record.
type Factory interface {
	NewModel(params model.Params) (model.Model, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(params model.Params) (model.Model, error)

func (f FactoryFunc) NewModel(params model.Params) (model.Model, error) {
	return f(params)
}

// Trainer fits a model and returns it with its epoch losses.
type Trainer interface {
	Train(ctx context.Context, m model.Model, config model.TrainConfig, instances dataset.Instances) (model.Model, []float32, error)
}

// Evaluator computes ranking metrics of a model over test triples.
type Evaluator interface {
	MeanRank(ctx context.Context, entities []int32, m model.Model, triples dataset.MappedTriples) (float32, error)
	HitsAtK(ctx context.Context, entities []int32, m model.Model, triples dataset.MappedTriples, k int) (float32, error)
	MeanRankAndHitsAtK(ctx context.Context, entities []int32, m model.Model, triples dataset.MappedTriples, k int) (float32, float32, error)
}

// Input is the indexed training set and the held-out triples.
type Input struct {
	Train  *dataset.TriplesFactory
	Test   []dataset.Triple
	Policy dataset.UnknownLabelPolicy // FailOnUnknown if empty
}

// Config is the search space and budget.
type Config struct {
	Family    model.Family
	MaxIters  int
	Metrics   []model.Metric
	K         int
	Selection Selection
	Optimizer string // sgd if empty
	Grid      model.ParamsGrid
}

// PrimaryMetric returns mean rank if requested, otherwise hits@k.
func (config *Config) PrimaryMetric() model.Metric {
	if lo.Contains(config.Metrics, model.MeanRank) {
		return model.MeanRank
	}
	return model.HitsAtK
}

// Validate checks the configuration before any trial runs.
func (config *Config) Validate() error {
	if _, err := model.ParseFamily(string(config.Family)); err != nil {
		return errors.Trace(err)
	}
	if config.MaxIters <= 0 {
		return errors.Annotatef(base.ErrConfiguration, "max_iters must be positive but got %d", config.MaxIters)
	}
	if len(config.Metrics) == 0 {
		return errors.Annotate(base.ErrConfiguration, "no evaluation metric requested")
	}
	for _, metric := range config.Metrics {
		if _, err := model.ParseMetric(string(metric)); err != nil {
			return errors.Trace(err)
		}
	}
	if lo.Contains(config.Metrics, model.HitsAtK) && config.K <= 0 {
		return errors.Annotatef(base.ErrConfiguration, "k must be positive but got %d", config.K)
	}
	if _, err := ParseSelection(string(config.Selection)); err != nil {
		return errors.Trace(err)
	}
	if _, err := nn.ParseOptimizer(config.Optimizer); err != nil {
		return errors.Trace(err)
	}
	for name, values := range config.space() {
		if len(values) == 0 {
			return errors.Annotatef(base.ErrConfiguration, "no candidates for %s", name)
		}
	}
	return errors.Trace(config.Family.ValidateGrid(config.Grid))
}

// space returns the candidate lists drawn for the family.
func (config *Config) space() model.ParamsGrid {
	space := make(model.ParamsGrid)
	for _, name := range append(append([]model.ParamName{}, model.SampledKeys...), config.Family.SpecificKeys()...) {
		space[name] = config.Grid[name]
	}
	return space
}

// RandomSearch samples configurations uniformly from candidate lists and keeps the best
// trial. Trials run one after another.
type RandomSearch struct {
	Factory   Factory
	Trainer   Trainer
	Evaluator Evaluator
	// OnTrial is called after every completed trial if not nil.
	OnTrial func(trial Trial)
}

// NewRandomSearch creates a search with the built-in model factory, trainer and evaluator.
func NewRandomSearch(jobs int) *RandomSearch {
	return &RandomSearch{
		Factory:   FactoryFunc(model.NewModel),
		Trainer:   model.NewTrainer(),
		Evaluator: model.NewEvaluator(jobs),
	}
}

// Optimize runs config.MaxIters trials and returns all of them with the index of the best.
// The sampler is seeded once, so a run is reproducible given the same seed. Any error aborts
// the search and names the failing trial and stage.
func (s *RandomSearch) Optimize(ctx context.Context, input *Input, config *Config, device string, seed int64) (*SearchResult, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	selection, _ := ParseSelection(string(config.Selection))
	metrics := lo.Uniq(config.Metrics)
	policy := input.Policy
	if policy == "" {
		policy = dataset.FailOnUnknown
	}
	// held-out triples and training instances are shared by all trials
	testTriples, err := input.Train.MapTriples(input.Test, policy)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(testTriples) == 0 {
		return nil, errors.Annotate(base.ErrConfiguration, "no test triples to evaluate")
	}
	var instances dataset.Instances
	if config.Family.Assumption() == dataset.ClosedWorld {
		instances = input.Train.CreateCWAInstances()
	} else {
		instances = input.Train.CreateOWAInstances()
	}
	entities := input.Train.EntityIndex.IDs()

	log.Logger().Info("start random search",
		zap.String("model", string(config.Family)),
		zap.Int("n_entities", input.Train.CountEntities()),
		zap.Int("n_relations", input.Train.CountRelations()),
		zap.Int("n_instances", instances.Len()),
		zap.Int("n_test", len(testTriples)),
		zap.Int("max_iters", config.MaxIters),
		zap.Int("n_combinations", config.space().NumCombinations()))
	startTime := time.Now()
	rng := base.NewRandomGenerator(seed)
	results := &SearchResult{
		PrimaryMetric: config.PrimaryMetric(),
		Selection:     selection,
		EntityIndex:   input.Train.EntityIndex,
		RelationIndex: input.Train.RelationIndex,
	}
	newCtx, span := progress.Start(ctx, "RandomSearch", config.MaxIters)
	for i := 1; i <= config.MaxIters; i++ {
		// Make parameters
		params := model.Params{model.ModelName: string(config.Family)}
		if err = config.Grid.SampleInto(rng, params, model.SampledKeys...); err != nil {
			span.Fail(err)
			return nil, errors.Annotatef(err, "trial %d: sample", i)
		}
		specific, err := config.Family.Sample(rng, config.Grid)
		if err != nil {
			span.Fail(err)
			return nil, errors.Annotatef(err, "trial %d: sample", i)
		}
		params = params.Overwrite(specific)
		params[model.NumEntities] = input.Train.CountEntities()
		params[model.NumRelations] = input.Train.CountRelations()
		params[model.RandomSeed] = seed
		log.Logger().Info(fmt.Sprintf("random search (%v/%v)", i, config.MaxIters),
			zap.Any("params", params))
		// Build, train and evaluate
		m, err := s.Factory.NewModel(params)
		if err != nil {
			span.Fail(err)
			return nil, errors.Annotatef(err, "trial %d: build model", i)
		}
		trainConfig := model.NewTrainConfig(params, device)
		trainConfig.Optimizer = config.Optimizer
		trained, losses, err := s.Trainer.Train(newCtx, m, trainConfig, instances)
		if err != nil {
			span.Fail(err)
			return nil, errors.Annotatef(err, "trial %d: train", i)
		}
		summary, err := s.evaluate(newCtx, metrics, config.K, entities, trained, testTriples)
		if err != nil {
			span.Fail(err)
			return nil, errors.Annotatef(err, "trial %d: evaluate", i)
		}
		results.add(trained, losses, summary, params)
		if s.OnTrial != nil {
			s.OnTrial(results.Trial(results.Len() - 1))
		}
		span.Add(1)
	}
	span.End()
	results.BestIndex = selection.BestIndex(results.PrimaryMetric, results.Scores)
	best := results.Best()
	log.Logger().Info("complete random search",
		zap.Int("best_trial", best.Index+1),
		zap.String("metric", string(results.PrimaryMetric)),
		zap.Float32("score", results.Scores[results.BestIndex]),
		zap.Any("params", best.Params),
		zap.String("search_time", time.Since(startTime).String()))
	return results, nil
}

// evaluate computes the requested metrics only, both in one pass if both are requested.
func (s *RandomSearch) evaluate(ctx context.Context, metrics []model.Metric, k int, entities []int32,
	m model.Model, triples dataset.MappedTriples) (Summary, error) {
	wantMeanRank := lo.Contains(metrics, model.MeanRank)
	wantHits := lo.Contains(metrics, model.HitsAtK)
	switch {
	case wantMeanRank && wantHits:
		meanRank, hits, err := s.Evaluator.MeanRankAndHitsAtK(ctx, entities, m, triples, k)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return Summary{{model.MeanRank, meanRank}, {model.HitsAtK, hits}}, nil
	case wantMeanRank:
		meanRank, err := s.Evaluator.MeanRank(ctx, entities, m, triples)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return Summary{{model.MeanRank, meanRank}}, nil
	default:
		hits, err := s.Evaluator.HitsAtK(ctx, entities, m, triples, k)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return Summary{{model.HitsAtK, hits}}, nil
	}
}
