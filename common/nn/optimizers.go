// Copyright 2024 gorse Project Authors
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


package nn

import (
	"github.com/chewxy/math32"
	"github.com/gorse-io/kge/base"
	"github.com/gorse-io/kge/common/floats"
	"github.com/juju/errors"
)

const (
	OptimizerSGD  = "sgd"
	OptimizerAdam = "adam"
)

// Optimizer updates parameters from the gradients accumulated over a batch.
type Optimizer interface {
	ZeroGrad()
	// Step applies the mean gradient of batchSize instances.
	Step(batchSize int)
}

// ParseOptimizer checks an optimizer name. Empty name means SGD.
func ParseOptimizer(name string) (string, error) {
	switch name {
	case "", OptimizerSGD:
		return OptimizerSGD, nil
	case OptimizerAdam:
		return OptimizerAdam, nil
	default:
		return "", errors.Annotatef(base.ErrConfiguration, "unknown optimizer %q", name)
	}
}

// NewOptimizer creates an optimizer by name.
func NewOptimizer(name string, params []Parameter, lr float32) (Optimizer, error) {
	name, err := ParseOptimizer(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if name == OptimizerAdam {
		return NewAdam(params, lr), nil
	}
	return NewSGD(params, lr), nil
}

type baseOptimizer struct {
	params []Parameter
}

func (o *baseOptimizer) ZeroGrad() {
	for _, p := range o.params {
		p.zeroGrad()
	}
}

type SGD struct {
	baseOptimizer
	lr float32
}

func NewSGD(params []Parameter, lr float32) Optimizer {
	return &SGD{
		baseOptimizer: baseOptimizer{params: params},
		lr:            lr,
	}
}

func (s *SGD) Step(batchSize int) {
	scale := -s.lr / float32(batchSize)
	for _, p := range s.params {
		p.chunks(func(_ int, data, grad []float32) {
			floats.MulConstAdd(grad, scale, data)
		})
	}
}

// Adam keeps moment estimates per chunk, so rows of an embedding without gradients are
// left untouched.
type Adam struct {
	baseOptimizer
	alpha float32
	beta1 float32
	beta2 float32
	eps   float32
	ms    map[Parameter]map[int][]float32
	vs    map[Parameter]map[int][]float32
	t     float32
}

func NewAdam(params []Parameter, alpha float32) Optimizer {
	return &Adam{
		baseOptimizer: baseOptimizer{params: params},
		alpha:         alpha,
		beta1:         0.9,
		beta2:         0.999,
		eps:           1e-8,
		ms:            make(map[Parameter]map[int][]float32),
		vs:            make(map[Parameter]map[int][]float32),
	}
}

func (a *Adam) Step(batchSize int) {
	a.t++

	fix1 := 1 - math32.Pow(a.beta1, a.t)
	fix2 := 1 - math32.Pow(a.beta2, a.t)
	lr := a.alpha * math32.Sqrt(fix2) / fix1

	for _, p := range a.params {
		if _, ok := a.ms[p]; !ok {
			a.ms[p] = make(map[int][]float32)
			a.vs[p] = make(map[int][]float32)
		}
		p.chunks(func(key int, data, grad []float32) {
			m, ok := a.ms[p][key]
			if !ok {
				m = make([]float32, len(data))
				a.ms[p][key] = m
			}
			v, ok := a.vs[p][key]
			if !ok {
				v = make([]float32, len(data))
				a.vs[p][key] = v
			}
			for i := range data {
				g := grad[i] / float32(batchSize)
				// m += (1 - beta1) * (grad - m)
				m[i] += (1 - a.beta1) * (g - m[i])
				// v += (1 - beta2) * (grad * grad - v)
				v[i] += (1 - a.beta2) * (g*g - v[i])
				data[i] -= lr * m[i] / (math32.Sqrt(v[i]) + a.eps)
			}
		})
	}
}
