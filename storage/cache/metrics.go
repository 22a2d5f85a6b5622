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

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SetScoresSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "spotrank",
		Subsystem: "cache",
		Name:      "set_scores_seconds",
	})
	GetScoresSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "spotrank",
		Subsystem: "cache",
		Name:      "get_scores_seconds",
	})
	HitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spotrank",
		Subsystem: "cache",
		Name:      "hit_total",
	})
	MissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spotrank",
		Subsystem: "cache",
		Name:      "miss_total",
	})
)
