// Copyright 2024 SpotRank Project Authors
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

package logics

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spotrank-io/spotrank/config"
)

// Experiments assigns users to experiment variants. Assignment is a pure
// function of the user id and the experiment name, so a user always lands in
// the same variant no matter which node serves the request.
type Experiments struct {
	experiments map[string]config.ExperimentConfig
}

func NewExperiments(configs []config.ExperimentConfig) *Experiments {
	experiments := make(map[string]config.ExperimentConfig, len(configs))
	for _, cfg := range configs {
		experiments[cfg.Name] = cfg
	}
	return &Experiments{experiments: experiments}
}

// VariantFor buckets the user into one of the experiment's variants by
// hashing userId+name into [0,100) and walking the cumulative traffic split.
// Unknown experiments return the empty string; inactive experiments always
// return the first (control) variant.
func (e *Experiments) VariantFor(name, userId string) string {
	experiment, ok := e.experiments[name]
	if !ok || len(experiment.Variants) == 0 {
		return ""
	}
	if !experiment.Active {
		return experiment.Variants[0]
	}
	bucket := int(xxhash.Sum64String(userId+name) % 100)
	cumulative := 0
	for i, split := range experiment.TrafficSplit {
		cumulative += split
		if bucket < cumulative {
			return experiment.Variants[i]
		}
	}
	return experiment.Variants[len(experiment.Variants)-1]
}
