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

package dataset

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Triple is a (subject, relation, object) statement of labels.
type Triple struct {
	Subject  string
	Relation string
	Object   string
}

// MappedTriple is a triple of ids: subject, relation, object.
type MappedTriple [3]int32

func (t MappedTriple) Subject() int32  { return t[0] }
func (t MappedTriple) Relation() int32 { return t[1] }
func (t MappedTriple) Object() int32   { return t[2] }

// MappedTriples is a row-per-triple array of ids.
type MappedTriples []MappedTriple

// Shape returns the number of rows and columns.
func (m MappedTriples) Shape() (int, int) {
	return len(m), 3
}

// UnknownLabelPolicy decides what happens to a triple whose labels are absent from the mappings.
type UnknownLabelPolicy string

const (
	// FailOnUnknown aborts mapping with ErrUnknownLabel.
	FailOnUnknown UnknownLabelPolicy = "error"
	// DropUnknown skips the row and logs how many rows were skipped.
	DropUnknown UnknownLabelPolicy = "drop"
)

// LoadTriples loads tab separated triples from a file.
func LoadTriples(path string) ([]Triple, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	triples, err := ReadTriples(file, path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load triples", zap.String("path", path), zap.Int("n_triples", len(triples)))
	return triples, nil
}

// ReadTriples parses one tab separated triple per line. Blank lines and lines starting
// with '#' are skipped, any other line must have exactly three fields.
func ReadTriples(r io.Reader, name string) ([]Triple, error) {
	var triples []Triple
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, errors.Annotatef(base.ErrMalformedInput, "%s:%d: expect 3 fields but got %d", name, lineNumber, len(fields))
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
			if fields[i] == "" {
				return nil, errors.Annotatef(base.ErrMalformedInput, "%s:%d: field %d is empty", name, lineNumber, i+1)
			}
		}
		triples = append(triples, Triple{Subject: fields[0], Relation: fields[1], Object: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return triples, nil
}

// CreateMappings assigns ids to entity and relation labels in sorted label order, so the
// result only depends on the label set. Empty input gives empty indices.
func CreateMappings(triples []Triple) (entities, relations *Index) {
	entityNames := lo.Uniq(lo.FlatMap(triples, func(t Triple, _ int) []string {
		return []string{t.Subject, t.Object}
	}))
	relationNames := lo.Uniq(lo.Map(triples, func(t Triple, _ int) string {
		return t.Relation
	}))
	sort.Strings(entityNames)
	sort.Strings(relationNames)
	entities, relations = NewIndex(), NewIndex()
	for _, name := range entityNames {
		entities.Add(name)
	}
	for _, name := range relationNames {
		relations.Add(name)
	}
	return
}

// MapTriples converts labels to ids with existing indices. Rows with unknown labels are
// handled by policy.
func MapTriples(triples []Triple, entities, relations *Index, policy UnknownLabelPolicy) (MappedTriples, error) {
	if policy != FailOnUnknown && policy != DropUnknown {
		return nil, errors.Annotatef(base.ErrConfiguration, "unknown label policy %q", policy)
	}
	mapped := make(MappedTriples, 0, len(triples))
	dropped := 0
	for i, t := range triples {
		row := MappedTriple{
			entities.ToNumber(t.Subject),
			relations.ToNumber(t.Relation),
			entities.ToNumber(t.Object),
		}
		if row[0] == NotId || row[1] == NotId || row[2] == NotId {
			if policy == FailOnUnknown {
				return nil, errors.Annotatef(base.ErrUnknownLabel, "triple %d (%s, %s, %s)", i, t.Subject, t.Relation, t.Object)
			}
			dropped++
			continue
		}
		mapped = append(mapped, row)
	}
	if dropped > 0 {
		log.Logger().Warn("drop triples with unknown labels",
			zap.Int("n_dropped", dropped), zap.Int("n_triples", len(triples)))
	}
	return mapped, nil
}

// CreateInverseTriples appends (t, r + numRelations, h) for every row (h, r, t). numRelations
// must be the relation count before augmentation.
func CreateInverseTriples(mapped MappedTriples, numRelations int) MappedTriples {
	augmented := make(MappedTriples, len(mapped), 2*len(mapped))
	copy(augmented, mapped)
	for _, row := range mapped {
		augmented = append(augmented, MappedTriple{row[2], row[1] + int32(numRelations), row[0]})
	}
	return augmented
}
