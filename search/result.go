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
	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/dataset"
	"github.com/gorse-io/kge/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Selection decides how the best trial is picked from primary metric values.
type Selection string

const (
	// SelectByDirection minimizes mean rank and maximizes hits@k.
	SelectByDirection Selection = "direction"
	// SelectArgmax takes the largest value whatever the metric is.
	SelectArgmax Selection = "argmax"
)

// ParseSelection converts a name to a Selection. The empty name selects by direction.
func ParseSelection(name string) (Selection, error) {
	switch selection := Selection(name); selection {
	case "":
		return SelectByDirection, nil
	case SelectByDirection, SelectArgmax:
		return selection, nil
	default:
		return "", errors.Annotatef(base.ErrConfiguration, "unknown selection policy %q", name)
	}
}

// BestIndex returns the position of the best score. Ties go to the earliest trial.
func (s Selection) BestIndex(metric model.Metric, scores []float32) int {
	if len(scores) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if s == SelectArgmax {
			if scores[i] > scores[best] {
				best = i
			}
		} else if metric.Better(scores[i], scores[best]) {
			best = i
		}
	}
	return best
}

// MetricValue is an entry of an evaluation summary.
type MetricValue struct {
	Metric model.Metric
	Value  float32
}

// Summary holds metric values in the order they were computed.
type Summary []MetricValue

// Get returns the value of a metric.
func (s Summary) Get(metric model.Metric) (float32, bool) {
	entry, found := lo.Find(s, func(v MetricValue) bool { return v.Metric == metric })
	return entry.Value, found
}

// Metrics returns the names of the metrics in the summary.
func (s Summary) Metrics() []model.Metric {
	return lo.Map(s, func(v MetricValue, _ int) model.Metric { return v.Metric })
}

// Trial is the record of one search iteration.
type Trial struct {
	Index         int
	Model         model.Model
	Losses        []float32
	EntityIndex   *dataset.Index
	RelationIndex *dataset.Index
	Summary       Summary
	Params        model.Params
	PrimaryMetric model.Metric
}

// SearchResult stores trial records in parallel slices indexed by trial number.
type SearchResult struct {
	PrimaryMetric model.Metric
	Selection     Selection
	EntityIndex   *dataset.Index
	RelationIndex *dataset.Index
	Models        []model.Model
	Losses        [][]float32
	Summaries     []Summary
	Params        []model.Params
	Scores        []float32
	BestIndex     int
}

func (r *SearchResult) add(m model.Model, losses []float32, summary Summary, params model.Params) {
	score, _ := summary.Get(r.PrimaryMetric)
	r.Models = append(r.Models, m)
	r.Losses = append(r.Losses, losses)
	r.Summaries = append(r.Summaries, summary)
	r.Params = append(r.Params, params)
	r.Scores = append(r.Scores, score)
}

// Len returns the number of completed trials.
func (r *SearchResult) Len() int {
	return len(r.Scores)
}

// Trial returns the record of the i-th trial.
func (r *SearchResult) Trial(i int) Trial {
	return Trial{
		Index:         i,
		Model:         r.Models[i],
		Losses:        r.Losses[i],
		EntityIndex:   r.EntityIndex,
		RelationIndex: r.RelationIndex,
		Summary:       r.Summaries[i],
		Params:        r.Params[i],
		PrimaryMetric: r.PrimaryMetric,
	}
}

// Best returns the record of the selected trial.
func (r *SearchResult) Best() Trial {
	return r.Trial(r.BestIndex)
}
