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

package base

import "github.com/juju/errors"

// Errors returned by loading, searching and training. Concrete failures annotate one of them,
// so callers match with errors.Is.
const (
	// ErrMalformedInput means a triple line cannot be parsed into exactly three fields.
	ErrMalformedInput = errors.ConstError("malformed input")
	// ErrUnknownLabel means a held-out triple references an entity or relation absent from
	// the training mappings.
	ErrUnknownLabel = errors.ConstError("unknown label")
	// ErrConfiguration means an invalid model family, candidate list, metric list or model key.
	ErrConfiguration = errors.ConstError("configuration error")
	// ErrTrainingFailure means the trainer could not complete.
	ErrTrainingFailure = errors.ConstError("training failure")
)
