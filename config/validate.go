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

	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/kge/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges with struct tags, then the choices that depend on each other
// the same way a search does before its first trial.
func (config *Config) Validate() error {
	if err := validate.Struct(config); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			messages := lo.Map(fieldErrors, func(e validator.FieldError, _ int) string {
				return e.Namespace() + " failed on " + e.Tag()
			})
			return errors.Annotate(base.ErrConfiguration, strings.Join(messages, "; "))
		}
		return errors.Annotatef(base.ErrConfiguration, "%v", err)
	}
	searchConfig, err := config.SearchConfig()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(searchConfig.Validate())
}
