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
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spotrank-io/spotrank/base/geo"
	"github.com/spotrank-io/spotrank/base/log"
	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/storage/data"
	"go.uber.org/zap"
)

// Similarity factor names stored alongside each pair.
const (
	FactorCategoryMatch     = "category_match"
	FactorLocationProximity = "location_proximity"
	FactorReviewSentiment   = "review_sentiment"
	FactorFeatureOverlap    = "feature_overlap"
	FactorUserOverlap       = "user_overlap"
)

// Composite factor weights. They must sum to 1.
const (
	categoryWeight  = 0.6
	locationWeight  = 0.15
	sentimentWeight = 0.1
	featureWeight   = 0.1
	overlapWeight   = 0.05
)

// SimilarityTypeMultiFactor labels scores produced by the full weighted
// formula, as opposed to the reduced real-time estimate.
const (
	SimilarityTypeMultiFactor = "multi_factor"
	SimilarityTypeRealTime    = "real_time"
)

// SimilarityCalculator scores unordered business pairs. It is stateless
// apart from the category name lookup and safe for concurrent use.
type SimilarityCalculator struct {
	cfg           config.SimilarityConfig
	categoryNames map[string]string
}

func NewSimilarityCalculator(cfg config.SimilarityConfig, categories []data.Category) *SimilarityCalculator {
	names := make(map[string]string, len(categories))
	for _, category := range categories {
		names[category.CategoryId] = strings.ToLower(category.Name)
	}
	return &SimilarityCalculator{cfg: cfg, categoryNames: names}
}

func (c *SimilarityCalculator) categoryName(categoryId string) string {
	return c.categoryNames[categoryId]
}

func contains(names []string, name string) bool {
	return lo.Contains(names, name)
}

// Incompatible reports whether the two businesses belong to category
// families that must never be related, regardless of any other factor.
// The lookup is symmetric.
func (c *SimilarityCalculator) Incompatible(a, b data.Business) bool {
	nameA := c.categoryName(a.CategoryId)
	nameB := c.categoryName(b.CategoryId)
	if nameA == "" || nameB == "" || nameA == nameB {
		return false
	}
	return contains(c.cfg.Incompatible[nameA], nameB) || contains(c.cfg.Incompatible[nameB], nameA)
}

func (c *SimilarityCalculator) categoryMatch(a, b data.Business) float64 {
	if a.CategoryId == b.CategoryId {
		if a.SubcategoryId != "" && a.SubcategoryId == b.SubcategoryId {
			return 1.0
		}
		return 0.8
	}
	nameA := c.categoryName(a.CategoryId)
	nameB := c.categoryName(b.CategoryId)
	if nameA != "" && nameB != "" &&
		(contains(c.cfg.Compatible[nameA], nameB) || contains(c.cfg.Compatible[nameB], nameA)) {
		return 0.6
	}
	return 0
}

func locationProximity(a, b data.Business) float64 {
	if !a.HasLocation() || !b.HasLocation() {
		return 0
	}
	distance := geo.Distance(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	switch {
	case distance <= 1:
		return 1.0
	case distance <= 5:
		return 0.8
	case distance <= 10:
		return 0.5
	case distance <= 25:
		return 0.2
	default:
		return 0
	}
}

func reviewSentiment(a, b data.Business) float64 {
	return 1 - math.Abs(a.Rating-b.Rating)/5
}

func featureOverlap(a, b data.Business) float64 {
	// Amenity data has no source yet, so the amenity term stays a fixed
	// neutral baseline until one exists.
	price := 0.5
	if a.PriceRange != nil && b.PriceRange != nil {
		price = math.Max(0, 1-math.Abs(float64(*a.PriceRange-*b.PriceRange))/3)
	}
	return (price + 0.5) / 2
}

func userOverlap(usersA, usersB mapset.Set[string]) float64 {
	if usersA == nil || usersB == nil || usersA.Cardinality() == 0 || usersB.Cardinality() == 0 {
		return 0
	}
	intersection := usersA.Intersect(usersB).Cardinality()
	union := usersA.Union(usersB).Cardinality()
	return float64(intersection) / float64(union)
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// Compute returns the factor breakdown and the composite score for a
// pair. Incompatible pairs short-circuit to zero with no factors. A zero
// category match also forces the composite to zero, but the computed
// factors are still returned.
func (c *SimilarityCalculator) Compute(a, b data.Business, usersA, usersB mapset.Set[string]) (map[string]float64, float64) {
	if c.Incompatible(a, b) {
		return nil, 0
	}
	factors := map[string]float64{
		FactorCategoryMatch:     c.categoryMatch(a, b),
		FactorLocationProximity: locationProximity(a, b),
		FactorReviewSentiment:   reviewSentiment(a, b),
		FactorFeatureOverlap:    featureOverlap(a, b),
		FactorUserOverlap:       userOverlap(usersA, usersB),
	}
	if factors[FactorCategoryMatch] == 0 {
		return factors, 0
	}
	score := factors[FactorCategoryMatch]*categoryWeight +
		factors[FactorLocationProximity]*locationWeight +
		factors[FactorReviewSentiment]*sentimentWeight +
		factors[FactorFeatureOverlap]*featureWeight +
		factors[FactorUserOverlap]*overlapWeight
	return factors, round4(score)
}

// RealTimeScore estimates similarity from business metadata alone, for
// fallback paths that cannot afford interaction lookups. Weights shift
// toward category and rating since the user-overlap factor is absent.
func (c *SimilarityCalculator) RealTimeScore(a, b data.Business) float64 {
	if c.Incompatible(a, b) {
		return 0
	}
	match := c.categoryMatch(a, b)
	if match == 0 {
		return 0
	}
	price := 0.5
	if a.PriceRange != nil && b.PriceRange != nil {
		price = math.Max(0, 1-math.Abs(float64(*a.PriceRange-*b.PriceRange))/3)
	}
	score := match*0.4 +
		reviewSentiment(a, b)*0.3 +
		locationProximity(a, b)*0.2 +
		price*0.1
	return round4(score)
}

// BatchStats summarizes a batch recalculation run.
type BatchStats struct {
	Processed int
	Updated   int
}

// SimilarityUpdater recalculates stored pairwise similarities.
type SimilarityUpdater struct {
	cfg        *config.Config
	dataClient data.Database
}

func NewSimilarityUpdater(cfg *config.Config, dataClient data.Database) *SimilarityUpdater {
	return &SimilarityUpdater{cfg: cfg, dataClient: dataClient}
}

// Recalculate scores every unordered pair among the given businesses, or
// among the most active businesses when none are given. Pairs that
// already have a stored record are skipped unless force is set. Only
// pairs at or above the threshold are written. The optional progress
// callback receives (total, done) pair counts.
func (u *SimilarityUpdater) Recalculate(ctx context.Context, businessIds []string, force bool, progress func(total, done int)) (BatchStats, error) {
	var stats BatchStats
	categories, err := u.dataClient.GetCategories(ctx)
	if err != nil {
		return stats, errors.Trace(err)
	}
	calculator := NewSimilarityCalculator(u.cfg.Similarity, categories)

	var businesses []data.Business
	if len(businessIds) == 0 {
		businesses, err = u.dataClient.GetActiveBusinesses(ctx, u.cfg.Recommend.CandidateLimit)
	} else {
		businesses, err = u.dataClient.BatchGetBusinesses(ctx, businessIds)
	}
	if err != nil {
		return stats, errors.Trace(err)
	}
	businesses = lo.Filter(businesses, func(b data.Business, _ int) bool {
		return b.IsActive
	})

	userSets, err := u.loadUserSets(ctx, businesses)
	if err != nil {
		return stats, errors.Trace(err)
	}

	total := len(businesses) * (len(businesses) - 1) / 2
	for i := range businesses {
		for j := i + 1; j < len(businesses); j++ {
			a, b := businesses[i], businesses[j]
			stats.Processed++
			if progress != nil {
				progress(total, stats.Processed)
			}
			SimilarityPairsTotal.Inc()
			if !force {
				exists, err := u.dataClient.HasSimilarity(ctx, a.BusinessId, b.BusinessId)
				if err != nil {
					return stats, errors.Trace(err)
				}
				if exists {
					continue
				}
			}
			factors, score := calculator.Compute(a, b,
				userSets[a.BusinessId], userSets[b.BusinessId])
			if score < u.cfg.Similarity.Threshold {
				continue
			}
			first, second := data.CanonicalPair(a.BusinessId, b.BusinessId)
			if err := u.dataClient.PutSimilarity(ctx, data.SimilarityRecord{
				BusinessAId: first,
				BusinessBId: second,
				Score:       score,
				Type:        SimilarityTypeMultiFactor,
				Factors:     factors,
				UpdatedAt:   time.Now(),
			}); err != nil {
				log.Logger().Error("failed to store similarity",
					zap.String("business_a", first),
					zap.String("business_b", second),
					zap.Error(err))
				continue
			}
			stats.Updated++
		}
	}
	return stats, nil
}

// loadUserSets collects, per business, the distinct users with strong
// interactions inside the recency window.
func (u *SimilarityUpdater) loadUserSets(ctx context.Context, businesses []data.Business) (map[string]mapset.Set[string], error) {
	ids := lo.Map(businesses, func(b data.Business, _ int) string {
		return b.BusinessId
	})
	begin := time.Now().Add(-u.cfg.Recommend.RecencyWindow)
	interactions, err := u.dataClient.GetBusinessInteractions(ctx, ids, &begin, data.StrongInteractionTypes...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	userSets := make(map[string]mapset.Set[string])
	for _, interaction := range interactions {
		set, ok := userSets[interaction.BusinessId]
		if !ok {
			set = mapset.NewSet[string]()
			userSets[interaction.BusinessId] = set
		}
		set.Add(interaction.UserId)
	}
	return userSets, nil
}
