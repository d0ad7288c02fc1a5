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
	"context"
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/base/log"
	"github.com/gorse-io/kge/base/progress"
	"github.com/gorse-io/kge/common/nn"
	"github.com/gorse-io/kge/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// DeviceCPU is the only supported device.
const DeviceCPU = "cpu"

// TrainConfig holds the options of one training run.
type TrainConfig struct {
	LearningRate float32
	NumEpochs    int
	BatchSize    int
	Device       string
	Seed         int64
	Optimizer    string // sgd if empty
}

// NewTrainConfig reads the training options from a configuration record.
func NewTrainConfig(params Params, device string) TrainConfig {
	return TrainConfig{
		LearningRate: params.GetFloat32(Lr, 0.01),
		NumEpochs:    params.GetInt(NumEpochs, 1),
		BatchSize:    params.GetInt(BatchSize, 1),
		Device:       device,
		Seed:         params.GetInt64(RandomSeed, 0),
	}
}

// Trainer fits models by mini-batch gradient descent with SGD or Adam.
type Trainer struct {
	Verbose int // log the loss every Verbose epochs, 0 to disable
}

func NewTrainer() *Trainer {
	return &Trainer{Verbose: 10}
}

// Train fits a model in place and returns it with the mean loss of every epoch. The loss
// history has exactly NumEpochs entries. A non-finite loss or a canceled context is a
// training failure.
func (t *Trainer) Train(ctx context.Context, m Model, config TrainConfig, instances dataset.Instances) (Model, []float32, error) {
	if config.Device != DeviceCPU {
		return nil, nil, errors.Annotatef(base.ErrConfiguration, "unsupported device %q", config.Device)
	}
	if config.NumEpochs < 0 || config.BatchSize <= 0 || config.LearningRate <= 0 {
		return nil, nil, errors.Annotatef(base.ErrConfiguration, "invalid train config %+v", config)
	}
	if m.Assumption() != instances.Assumption() {
		return nil, nil, errors.Annotatef(base.ErrConfiguration, "%s learns from %s instances but got %s",
			m.Family(), m.Assumption(), instances.Assumption())
	}
	if instances.Len() == 0 {
		return nil, nil, errors.Annotate(base.ErrTrainingFailure, "no training instances")
	}
	var fitBatch func(rng base.RandomGenerator, batch []int) float32
	switch learner := m.(type) {
	case owaLearner:
		owa, ok := instances.(*dataset.OWAInstances)
		if !ok {
			return nil, nil, errors.Annotatef(base.ErrConfiguration, "unexpected instances %T", instances)
		}
		optimizer, err := nn.NewOptimizer(config.Optimizer, learner.parameters(), config.LearningRate)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		fitBatch = t.owaBatch(learner, owa, optimizer)
	case cwaLearner:
		cwa, ok := instances.(*dataset.CWAInstances)
		if !ok {
			return nil, nil, errors.Annotatef(base.ErrConfiguration, "unexpected instances %T", instances)
		}
		optimizer, err := nn.NewOptimizer(config.Optimizer, learner.parameters(), config.LearningRate)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		fitBatch = t.cwaBatch(learner, cwa, optimizer)
	default:
		return nil, nil, errors.Annotatef(base.ErrConfiguration, "%T is not trainable", m)
	}

	rng := base.NewRandomGenerator(config.Seed)
	n := instances.Len()
	losses := make([]float32, 0, config.NumEpochs)
	_, span := progress.Start(ctx, fmt.Sprintf("Train %s", m.Family()), config.NumEpochs)
	defer span.End()
	start := time.Now()
	for epoch := 1; epoch <= config.NumEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return nil, nil, errors.Annotatef(base.ErrTrainingFailure, "epoch %d: %v", epoch, err)
		}
		perm := rng.Perm(n)
		var total float32
		for begin := 0; begin < n; begin += config.BatchSize {
			end := min(begin+config.BatchSize, n)
			total += fitBatch(rng, perm[begin:end])
		}
		loss := total / float32(n)
		if math32.IsNaN(loss) || math32.IsInf(loss, 0) {
			err := errors.Annotatef(base.ErrTrainingFailure, "epoch %d: loss is %v", epoch, loss)
			span.Fail(err)
			return nil, nil, err
		}
		losses = append(losses, loss)
		if t.Verbose > 0 && epoch%t.Verbose == 0 {
			log.Logger().Debug(fmt.Sprintf("fit %s", m.Family()),
				zap.Int("epoch", epoch),
				zap.Int("n_epochs", config.NumEpochs),
				zap.Float32("loss", loss))
		}
		span.Add(1)
	}
	log.Logger().Debug(fmt.Sprintf("complete fitting %s", m.Family()),
		zap.Int("n_instances", n),
		zap.Duration("elapsed", time.Since(start)))
	return m, losses, nil
}

// owaBatch contrasts each positive triple with a corruption of its head or tail drawn
// uniformly from all entities.
func (t *Trainer) owaBatch(m owaLearner, instances *dataset.OWAInstances, optimizer nn.Optimizer) func(base.RandomGenerator, []int) float32 {
	numEntities := m.CountEntities()
	return func(rng base.RandomGenerator, batch []int) float32 {
		m.constrain()
		optimizer.ZeroGrad()
		var loss float32
		for _, i := range batch {
			positive := instances.Triples[i]
			negative := positive
			if rng.Intn(2) == 0 {
				negative[0] = int32(rng.Intn(numEntities))
			} else {
				negative[2] = int32(rng.Intn(numEntities))
			}
			loss += m.fitPair(positive, negative)
		}
		optimizer.Step(len(batch))
		return loss
	}
}

// cwaBatch fits each (head, relation) pair against all entities with its valid tails as
// positive labels.
func (t *Trainer) cwaBatch(m cwaLearner, instances *dataset.CWAInstances, optimizer nn.Optimizer) func(base.RandomGenerator, []int) float32 {
	targets := make([]*bitset.BitSet, instances.Len())
	for i, labels := range instances.Labels {
		targets[i] = bitset.New(uint(m.CountEntities()))
		for _, tail := range labels.ToSlice() {
			targets[i].Set(uint(tail))
		}
	}
	return func(rng base.RandomGenerator, batch []int) float32 {
		optimizer.ZeroGrad()
		var loss float32
		for _, i := range batch {
			pair := instances.Pairs[i]
			loss += m.fitInstance(rng, pair[0], pair[1], targets[i])
		}
		optimizer.Step(len(batch))
		return loss
	}
}
