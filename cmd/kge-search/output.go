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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorse-io/kge/dataset"
	"github.com/gorse-io/kge/model"
	"github.com/gorse-io/kge/search"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	bestTrialFile = "best_trial.yaml"
	entitiesFile  = "entity_to_id.tsv"
	relationsFile = "relation_to_id.tsv"
)

// derivedKeys are set from the data, not sampled, so the table leaves them out.
var derivedKeys = []model.ParamName{model.ModelName, model.NumEntities, model.NumRelations, model.RandomSeed}

// renderTrials prints one row per trial. The selected trial is marked with '*'.
func renderTrials(w io.Writer, result *search.SearchResult) error {
	if result.Len() == 0 {
		return nil
	}
	metrics := result.Summaries[0].Metrics()
	header := append([]string{"trial"}, lo.Map(metrics, func(m model.Metric, _ int) string { return string(m) })...)
	header = append(header, "final loss", "params")
	rows := make([][]string, 0, result.Len())
	for i := 0; i < result.Len(); i++ {
		trial := result.Trial(i)
		row := []string{fmt.Sprint(i + 1)}
		if i == result.BestIndex {
			row[0] += "*"
		}
		for _, metric := range metrics {
			value, _ := trial.Summary.Get(metric)
			row = append(row, fmt.Sprintf("%.4f", value))
		}
		if len(trial.Losses) > 0 {
			row = append(row, fmt.Sprintf("%.4f", trial.Losses[len(trial.Losses)-1]))
		} else {
			row = append(row, "-")
		}
		row = append(row, formatParams(trial.Params))
		rows = append(rows, row)
	}
	table := tablewriter.NewWriter(w)
	table.Header(lo.ToAnySlice(header)...)
	if err := table.Bulk(rows); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

func formatParams(params model.Params) string {
	names := lo.Without(params.Names(), derivedKeys...)
	return strings.Join(lo.Map(names, func(name model.ParamName, _ int) string {
		return fmt.Sprintf("%s=%v", name, params[name])
	}), " ")
}

// bestTrial is the YAML document of the selected trial.
type bestTrial struct {
	Model         string             `yaml:"model"`
	Trial         int                `yaml:"trial"`
	PrimaryMetric string             `yaml:"primary_metric"`
	Selection     string             `yaml:"selection"`
	Metrics       map[string]float32 `yaml:"metrics"`
	Params        map[string]any     `yaml:"params"`
	Losses        []float32          `yaml:"losses"`
}

func newBestTrial(result *search.SearchResult) bestTrial {
	trial := result.Best()
	doc := bestTrial{
		Model:         string(trial.Model.Family()),
		Trial:         trial.Index + 1,
		PrimaryMetric: string(trial.PrimaryMetric),
		Selection:     string(result.Selection),
		Metrics:       make(map[string]float32, len(trial.Summary)),
		Params:        make(map[string]any, len(trial.Params)),
		Losses:        trial.Losses,
	}
	for _, entry := range trial.Summary {
		doc.Metrics[string(entry.Metric)] = entry.Value
	}
	for name, value := range trial.Params {
		doc.Params[string(name)] = value
	}
	return doc
}

// writeResult writes the best trial as YAML and both mappings as "label\tid" lines.
func writeResult(dir string, result *search.SearchResult) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	data, err := yaml.Marshal(newBestTrial(result))
	if err != nil {
		return errors.Trace(err)
	}
	if err = os.WriteFile(filepath.Join(dir, bestTrialFile), data, 0644); err != nil {
		return errors.Trace(err)
	}
	best := result.Best()
	if err = writeMapping(filepath.Join(dir, entitiesFile), best.EntityIndex); err != nil {
		return errors.Trace(err)
	}
	return writeMapping(filepath.Join(dir, relationsFile), best.RelationIndex)
}

func writeMapping(path string, index *dataset.Index) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = errors.Trace(closeErr)
		}
	}()
	return errors.Trace(writeLines(file, index))
}

func writeLines(w io.Writer, index *dataset.Index) error {
	buf := bufio.NewWriter(w)
	for id, name := range index.GetNames() {
		if _, err := fmt.Fprintf(buf, "%s\t%d\n", name, id); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(buf.Flush())
}
