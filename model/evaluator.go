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
	"context"

	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/base/parallel"
	"github.com/gorse-io/kge/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Metric is the name of a ranking metric.
type Metric string

const (
	MeanRank Metric = "mean_rank"
	HitsAtK  Metric = "hits_at_k"
)

// ParseMetric converts a name to a Metric.
func ParseMetric(name string) (Metric, error) {
	switch metric := Metric(name); metric {
	case MeanRank, HitsAtK:
		return metric, nil
	default:
		return "", errors.Annotatef(base.ErrConfiguration, "unknown metric %q", name)
	}
}

// LowerIsBetter returns true if smaller values of the metric are better.
func (m Metric) LowerIsBetter() bool {
	return m == MeanRank
}

// Better returns true if a is strictly better than b.
func (m Metric) Better(a, b float32) bool {
	if m.LowerIsBetter() {
		return a < b
	}
	return a > b
}

// Evaluator ranks the true head and tail of each test triple among candidate entities.
// The rank of a true entity is one plus the number of candidates with a strictly higher
// score. Triples are ranked by Jobs workers in parallel.
type Evaluator struct {
	Jobs int
}

func NewEvaluator(jobs int) *Evaluator {
	return &Evaluator{Jobs: max(jobs, 1)}
}

// MeanRank returns the average head and tail rank.
func (e *Evaluator) MeanRank(ctx context.Context, entities []int32, m Model, triples dataset.MappedTriples) (float32, error) {
	ranks, err := e.ranks(ctx, entities, m, triples)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return meanRank(ranks), nil
}

// HitsAtK returns the fraction of head and tail ranks no greater than k.
func (e *Evaluator) HitsAtK(ctx context.Context, entities []int32, m Model, triples dataset.MappedTriples, k int) (float32, error) {
	if k <= 0 {
		return 0, errors.Annotatef(base.ErrConfiguration, "k must be positive but got %d", k)
	}
	ranks, err := e.ranks(ctx, entities, m, triples)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return hitsAtK(ranks, k), nil
}

// MeanRankAndHitsAtK computes both metrics from a single ranking pass.
func (e *Evaluator) MeanRankAndHitsAtK(ctx context.Context, entities []int32, m Model, triples dataset.MappedTriples, k int) (float32, float32, error) {
	if k <= 0 {
		return 0, 0, errors.Annotatef(base.ErrConfiguration, "k must be positive but got %d", k)
	}
	ranks, err := e.ranks(ctx, entities, m, triples)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	return meanRank(ranks), hitsAtK(ranks, k), nil
}

// ranks returns the tail rank and the head rank of every triple.
func (e *Evaluator) ranks(ctx context.Context, entities []int32, m Model, triples dataset.MappedTriples) ([]int, error) {
	if len(triples) == 0 {
		return nil, errors.Annotate(base.ErrConfiguration, "no test triples to evaluate")
	}
	if len(entities) == 0 {
		return nil, errors.Annotate(base.ErrConfiguration, "no candidate entities")
	}
	scorer, scoreTails := m.(TailScorer)
	ranks := make([]int, 2*len(triples))
	err := parallel.Parallel(ctx, len(triples), e.Jobs, func(_, jobId int) error {
		head, relation, tail := triples[jobId][0], triples[jobId][1], triples[jobId][2]
		// tail
		if scoreTails {
			scores := scorer.ScoreTails(head, relation)
			target := scores[tail]
			ranks[2*jobId] = 1 + lo.CountBy(entities, func(candidate int32) bool { return scores[candidate] > target })
		} else {
			target := m.Score(head, relation, tail)
			ranks[2*jobId] = 1 + lo.CountBy(entities, func(candidate int32) bool { return m.Score(head, relation, candidate) > target })
		}
		// head
		target := m.Score(head, relation, tail)
		ranks[2*jobId+1] = 1 + lo.CountBy(entities, func(candidate int32) bool { return m.Score(candidate, relation, tail) > target })
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ranks, nil
}

func meanRank(ranks []int) float32 {
	return float32(lo.Sum(ranks)) / float32(len(ranks))
}

func hitsAtK(ranks []int, k int) float32 {
	return float32(lo.CountBy(ranks, func(rank int) bool { return rank <= k })) / float32(len(ranks))
}
