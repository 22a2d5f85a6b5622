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

package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for the engine.
type Config struct {
	Database    DatabaseConfig     `mapstructure:"database"`
	Recommend   RecommendConfig    `mapstructure:"recommend"`
	Similarity  SimilarityConfig   `mapstructure:"similarity"`
	Trending    TrendingConfig     `mapstructure:"trending"`
	Experiments []ExperimentConfig `mapstructure:"experiments"`
}

type DatabaseConfig struct {
	// DataStore is the database for businesses, interactions, profiles,
	// similarity and trending rows, e.g. sqlite://spotrank.db
	DataStore string `mapstructure:"data_store" validate:"required"`
	// CacheStore is the TTL cache for recommendation responses,
	// e.g. redis://localhost:6379 or local://
	CacheStore  string `mapstructure:"cache_store" validate:"required"`
	TablePrefix string `mapstructure:"table_prefix"`
}

type RecommendConfig struct {
	// DefaultCount is the number of recommendations returned when the
	// caller does not specify one.
	DefaultCount int `mapstructure:"default_count" validate:"gt=0"`
	// CandidateLimit bounds the candidate set fetched per call.
	CandidateLimit int `mapstructure:"candidate_limit" validate:"gt=0"`
	// CacheTTL is the lifetime of cached recommendation responses.
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	// RecencyWindow bounds interactions feeding neighbor computations.
	RecencyWindow time.Duration `mapstructure:"recency_window" validate:"gt=0"`
	// ActivityWindow bounds the fast user-activity summary.
	ActivityWindow time.Duration `mapstructure:"activity_window" validate:"gt=0"`
	// ActivitySample caps the number of interactions sampled for the
	// light-personalization boost.
	ActivitySample int `mapstructure:"activity_sample" validate:"gt=0"`
	// DefaultRadius is the search radius in kilometers when the user has
	// no preferred radius.
	DefaultRadius float64 `mapstructure:"default_radius" validate:"gt=0"`
	// MaxRadius is the hard cap on the search radius in kilometers.
	MaxRadius float64 `mapstructure:"max_radius" validate:"gt=0"`
	// InteractionWeights maps interaction types to their signal weights.
	InteractionWeights map[string]float64 `mapstructure:"interaction_weights"`
}

type SimilarityConfig struct {
	// Threshold is the minimum composite score for a pair to be stored.
	Threshold float64 `mapstructure:"threshold" validate:"gte=0,lte=1"`
	// Incompatible maps a lowercased category name to category names it
	// must never be related to. Entries are treated symmetrically.
	Incompatible map[string][]string `mapstructure:"incompatible"`
	// Compatible maps a lowercased category name to category names that
	// count as a partial category match.
	Compatible map[string][]string `mapstructure:"compatible"`
}

type TrendingConfig struct {
	// TopSearchTerms caps the number of search terms ranked per run.
	TopSearchTerms int `mapstructure:"top_search_terms" validate:"gt=0"`
}

// ExperimentConfig is a static experiment definition. Variant assignment
// is a pure function of (user id, experiment name), no assignment rows
// are stored.
type ExperimentConfig struct {
	Name         string   `mapstructure:"name" validate:"required"`
	Variants     []string `mapstructure:"variants" validate:"min=1"`
	TrafficSplit []int    `mapstructure:"traffic_split"`
	Active       bool     `mapstructure:"active"`
}

// PersonalizationExperiment gates which personalization path serves a
// recommendation request.
const PersonalizationExperiment = "personalization_level"

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore:  "sqlite://spotrank.db",
			CacheStore: "local://",
		},
		Recommend: RecommendConfig{
			DefaultCount:   20,
			CandidateLimit: 500,
			CacheTTL:       15 * time.Minute,
			RecencyWindow:  90 * 24 * time.Hour,
			ActivityWindow: 30 * 24 * time.Hour,
			ActivitySample: 100,
			DefaultRadius:  25,
			MaxRadius:      100,
			InteractionWeights: map[string]float64{
				"view":           1,
				"collection_add": 2,
				"favorite":       3,
				"phone_call":     4,
				"review":         4,
				"visit":          5,
			},
		},
		Similarity: SimilarityConfig{
			Threshold: 0.3,
			Incompatible: map[string][]string{
				"restaurant":  {"clothing", "electronics", "pharmacy", "automotive", "real estate"},
				"clothing":    {"restaurant", "food", "pharmacy", "automotive"},
				"electronics": {"restaurant", "food", "beauty", "pharmacy"},
				"pharmacy":    {"restaurant", "clothing", "electronics", "automotive"},
				"automotive":  {"restaurant", "clothing", "pharmacy", "beauty"},
				"real estate": {"restaurant", "food", "beauty"},
			},
			Compatible: map[string][]string{
				"restaurant": {"food", "cafe", "bakery"},
				"food":       {"restaurant", "cafe", "grocery"},
				"cafe":       {"restaurant", "food", "bakery"},
				"bakery":     {"cafe", "restaurant", "grocery"},
				"grocery":    {"food", "bakery"},
				"beauty":     {"salon", "spa"},
				"salon":      {"beauty", "spa"},
				"spa":        {"beauty", "salon"},
			},
		},
		Trending: TrendingConfig{
			TopSearchTerms: 100,
		},
		Experiments: []ExperimentConfig{{
			Name:         PersonalizationExperiment,
			Variants:     []string{"none", "light", "full"},
			TrafficSplit: []int{33, 33, 34},
			Active:       true,
		}},
	}
}

// LoadConfig loads the configuration from a file, overriding defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	conf := GetDefaultConfig()
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}

// Validate checks structural constraints and experiment traffic splits.
func (config *Config) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return errors.Trace(err)
	}
	for _, weight := range config.Recommend.InteractionWeights {
		if weight < 0 {
			return errors.Errorf("interaction weights must be non-negative")
		}
	}
	for _, experiment := range config.Experiments {
		if len(experiment.TrafficSplit) != len(experiment.Variants) {
			return errors.Errorf("experiment %s: traffic split must match variants", experiment.Name)
		}
		total := 0
		for _, split := range experiment.TrafficSplit {
			if split < 0 {
				return errors.Errorf("experiment %s: negative traffic split", experiment.Name)
			}
			total += split
		}
		if total != 100 {
			return errors.Errorf("experiment %s: traffic split must sum to 100, got %d", experiment.Name, total)
		}
	}
	return nil
}
