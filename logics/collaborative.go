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
	"context"
	"math"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spotrank-io/spotrank/common/heap"
	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/storage/cache"
	"github.com/spotrank-io/spotrank/storage/data"
)

const (
	// minInteractedBusinesses is the cold-start cutoff below which the
	// scorer falls back to popularity.
	minInteractedBusinesses = 3
	// minNeighborSimilarity drops noise neighbors.
	minNeighborSimilarity = 0.1
	// maxNeighbors caps the neighborhood per user.
	maxNeighbors = 10
	// positiveSignalWeight is the minimum interaction weight that counts
	// as an endorsement when aggregating neighbor activity.
	positiveSignalWeight = 2.0
)

// CollaborativeScorer recommends businesses liked by users whose recent
// interaction history resembles the target user's.
type CollaborativeScorer struct {
	cfg        *config.Config
	dataClient data.Database
}

func NewCollaborativeScorer(cfg *config.Config, dataClient data.Database) *CollaborativeScorer {
	return &CollaborativeScorer{cfg: cfg, dataClient: dataClient}
}

// Recommend returns up to n businesses the user has not interacted with,
// scored by similarity-weighted neighbor endorsements. Users with too
// little history get the popularity fallback instead.
func (s *CollaborativeScorer) Recommend(ctx context.Context, userId string, n int) ([]cache.Score, error) {
	if n <= 0 {
		return nil, errors.BadRequestf("n must be positive")
	}
	begin := time.Now().Add(-s.cfg.Recommend.RecencyWindow)
	interactions, err := s.dataClient.GetUserInteractions(ctx, userId, &begin)
	if err != nil {
		return nil, errors.Trace(err)
	}
	userVector := weightVector(interactions)
	seen := mapset.NewSet(lo.Keys(userVector)...)
	if len(userVector) < minInteractedBusinesses {
		return s.popularityFallback(ctx, seen, n)
	}

	neighbors, err := s.findNeighbors(ctx, userId, userVector, begin)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(neighbors) == 0 {
		return s.popularityFallback(ctx, seen, n)
	}

	scores := make(map[string]float64)
	for _, neighbor := range neighbors {
		neighborInteractions, err := s.dataClient.GetUserInteractions(ctx, neighbor.Value, &begin)
		if err != nil {
			return nil, errors.Trace(err)
		}
		// only interactions that are endorsements on their own count,
		// repeated weak signals do not add up to one
		endorsements := lo.Filter(neighborInteractions, func(i data.Interaction, _ int) bool {
			return i.Weight >= positiveSignalWeight
		})
		for businessId, weight := range weightVector(endorsements) {
			if seen.Contains(businessId) {
				continue
			}
			scores[businessId] += weight * neighbor.Weight
		}
	}
	if len(scores) == 0 {
		return s.popularityFallback(ctx, seen, n)
	}

	filter := heap.NewTopKFilter[string, float64](n)
	for businessId, score := range scores {
		filter.Push(businessId, score)
	}
	results := make([]cache.Score, 0, n)
	for _, elem := range filter.PopAll() {
		results = append(results, cache.Score{
			Id:        elem.Value,
			Score:     round4(elem.Weight),
			Algorithm: AlgorithmCollaborative,
		})
	}
	return results, nil
}

// findNeighbors ranks users who touched the same businesses by cosine
// similarity of interaction weight vectors over the shared businesses.
func (s *CollaborativeScorer) findNeighbors(ctx context.Context, userId string, userVector map[string]float64, begin time.Time) ([]heap.Elem[string, float64], error) {
	shared, err := s.dataClient.GetBusinessInteractions(ctx, lo.Keys(userVector), &begin)
	if err != nil {
		return nil, errors.Trace(err)
	}
	vectors := make(map[string]map[string]float64)
	for _, interaction := range shared {
		if interaction.UserId == userId {
			continue
		}
		vector, ok := vectors[interaction.UserId]
		if !ok {
			vector = make(map[string]float64)
			vectors[interaction.UserId] = vector
		}
		vector[interaction.BusinessId] += interaction.Weight
	}
	filter := heap.NewTopKFilter[string, float64](maxNeighbors)
	for neighborId, vector := range vectors {
		similarity := cosine(userVector, vector)
		if similarity >= minNeighborSimilarity {
			filter.Push(neighborId, similarity)
		}
	}
	return filter.PopAll(), nil
}

func (s *CollaborativeScorer) popularityFallback(ctx context.Context, exclude mapset.Set[string], n int) ([]cache.Score, error) {
	businesses, err := s.dataClient.GetActiveBusinesses(ctx, s.cfg.Recommend.CandidateLimit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	filter := heap.NewTopKFilter[string, float64](n)
	for _, business := range businesses {
		if exclude.Contains(business.BusinessId) {
			continue
		}
		filter.Push(business.BusinessId, PopularityScore(business))
	}
	results := make([]cache.Score, 0, n)
	for _, elem := range filter.PopAll() {
		results = append(results, cache.Score{
			Id:        elem.Value,
			Score:     elem.Weight,
			Algorithm: AlgorithmPopularity,
		})
	}
	return results, nil
}

// weightVector sums interaction weights per business.
func weightVector(interactions []data.Interaction) map[string]float64 {
	vector := make(map[string]float64)
	for _, interaction := range interactions {
		vector[interaction.BusinessId] += interaction.Weight
	}
	return vector
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for key, valueA := range a {
		normA += valueA * valueA
		if valueB, ok := b[key]; ok {
			dot += valueA * valueB
		}
	}
	for _, valueB := range b {
		normB += valueB * valueB
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
