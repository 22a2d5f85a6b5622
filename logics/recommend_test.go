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
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/storage/cache"
	"github.com/spotrank-io/spotrank/storage/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// configWithVariant pins every user to a single personalization path.
func configWithVariant(variant string) *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Experiments = []config.ExperimentConfig{{
		Name:         config.PersonalizationExperiment,
		Variants:     []string{variant},
		TrafficSplit: []int{100},
		Active:       true,
	}}
	return cfg
}

func newTestRecommender(t *testing.T, cfg *config.Config) (*Recommender, data.Database) {
	database := newTestDatabase(t)
	cacheClient := cache.NewLocalCache()
	t.Cleanup(func() {
		assert.NoError(t, cacheClient.Close())
	})
	return NewRecommender(cfg, database, cacheClient), database
}

func TestRecommendationKey(t *testing.T) {
	key := recommendationKey("u1", lo.ToPtr(40.123456), lo.ToPtr(-73.987654),
		[]string{"c2", "c1"}, 20, VariantLight)
	assert.Equal(t, "recommendation/u1/40.12_-73.99/c1,c2/20/light", key)
	key = recommendationKey("u1", nil, nil, nil, 20, VariantNone)
	assert.Equal(t, "recommendation/u1/no_location/no_cat/20/none", key)
}

func TestFastScore(t *testing.T) {
	recommender, _ := newTestRecommender(t, config.GetDefaultConfig())
	business := data.Business{
		Rating:         4.0,
		ReviewCount:    25,
		DiscoveryScore: 50,
		IsVerified:     true,
		IsFeatured:     true,
		Latitude:       lo.ToPtr(40.0),
		Longitude:      lo.ToPtr(-73.0),
	}
	// 4*0.3 + 0.5*0.2 + 0.5*0.2 + 1*0.3 + 0.1 + 0.15
	score := recommender.fastScore(business, lo.ToPtr(40.0), lo.ToPtr(-73.0))
	assert.InDelta(t, 1.95, score, 1e-9)
	// without location the distance term is absent
	score = recommender.fastScore(business, nil, nil)
	assert.InDelta(t, 1.65, score, 1e-9)
}

func TestGetRecommendationsFast(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, configWithVariant(VariantNone))
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "plain", CategoryId: "c1", Rating: 3.0, IsActive: true},
		{BusinessId: "strong", CategoryId: "c1", Rating: 4.8, ReviewCount: 100,
			DiscoveryScore: 80, IsVerified: true, IsActive: true},
		{BusinessId: "other_cat", CategoryId: "c2", Rating: 5.0, IsActive: true},
		{BusinessId: "inactive", CategoryId: "c1", Rating: 5.0, IsActive: false},
	}))

	scores, err := recommender.GetRecommendations(ctx, "u1", nil, nil, []string{"c1"}, 10)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "strong", scores[0].Id)
	assert.Equal(t, "plain", scores[1].Id)
	assert.Equal(t, AlgorithmFast, scores[0].Algorithm)
	assert.Greater(t, scores[0].Score, scores[1].Score)

	// results truncate to the requested count
	scores, err = recommender.GetRecommendations(ctx, "u1", nil, nil, []string{"c1"}, 1)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "strong", scores[0].Id)
}

func TestGetRecommendationsCached(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, configWithVariant(VariantNone))
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b1", Rating: 4.0, IsActive: true},
	}))
	first, err := recommender.GetRecommendations(ctx, "u1", nil, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// a new business does not appear until the cache entry expires
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b2", Rating: 5.0, IsActive: true},
	}))
	second, err := recommender.GetRecommendations(ctx, "u1", nil, nil, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// a different count is a different cache entry
	third, err := recommender.GetRecommendations(ctx, "u1", nil, nil, nil, 5)
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestGetRecommendationsDefaultCount(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, configWithVariant(VariantNone))
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b1", Rating: 4.0, IsActive: true},
	}))
	_, err := recommender.GetRecommendations(ctx, "", nil, nil, nil, 10)
	assert.Error(t, err)
	_, err = recommender.GetRecommendations(ctx, "u1", nil, nil, nil, -1)
	assert.Error(t, err)
	scores, err := recommender.GetRecommendations(ctx, "u1", nil, nil, nil, 0)
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestLightBoost(t *testing.T) {
	summary := &activitySummary{
		categoryShare: map[string]float64{"c1": 1.0},
		modePrice:     lo.ToPtr(2),
		interacted:    mapset.NewSet("b1"),
	}
	// all three boosts: 0.15 + 0.05 + 0.05, capped at 0.25
	boost := summary.boost(data.Business{
		BusinessId: "b1", CategoryId: "c1", PriceRange: lo.ToPtr(2),
	})
	assert.InDelta(t, lightBoostCap, boost, 1e-9)
	assert.Zero(t, summary.boost(data.Business{BusinessId: "b9", CategoryId: "c9"}))
	var empty *activitySummary
	assert.Zero(t, empty.boost(data.Business{}))
}

func TestGetRecommendationsLight(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, configWithVariant(VariantLight))
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "familiar", CategoryId: "c1", Rating: 4.0, IsActive: true},
		{BusinessId: "unfamiliar", CategoryId: "c2", Rating: 4.0, IsActive: true},
	}))
	require.NoError(t, database.InsertInteraction(ctx, data.Interaction{
		UserId: "u1", BusinessId: "familiar", Type: data.InteractionFavorite,
		Weight: 3, Timestamp: time.Now(),
	}))

	scores, err := recommender.GetRecommendations(ctx, "u1", nil, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "familiar", scores[0].Id)
	assert.Equal(t, AlgorithmLight, scores[0].Algorithm)
}

func TestPersonalScore(t *testing.T) {
	profile := &data.Profile{
		CategoryWeights: map[string]float64{"c1": 3, "c2": 1},
		PriceMin:        lo.ToPtr(1),
		PriceMax:        lo.ToPtr(2),
		MinRating:       lo.ToPtr(4.0),
	}
	business := data.Business{
		BusinessId: "b1", CategoryId: "c1",
		PriceRange: lo.ToPtr(2), Rating: 4.5,
	}
	liked := mapset.NewSet("b1")
	// 0.75*0.4 + 1*0.2 + 1*0.2 + 0.5*0.1 + 1*0.1
	assert.InDelta(t, 0.85, personalScore(business, profile, liked), 1e-9)
	// everything neutral without a profile
	assert.InDelta(t, 0.2, personalScore(business, nil, nil), 1e-9)
}

func TestFilterByProfile(t *testing.T) {
	profile := &data.Profile{
		CategoryWeights: map[string]float64{"c1": 1},
		PriceMin:        lo.ToPtr(1),
		PriceMax:        lo.ToPtr(2),
	}
	businesses := []data.Business{
		{BusinessId: "match", CategoryId: "c1", PriceRange: lo.ToPtr(1)},
		{BusinessId: "wrong_cat", CategoryId: "c2"},
		{BusinessId: "too_pricey", CategoryId: "c1", PriceRange: lo.ToPtr(4)},
		{BusinessId: "featured", CategoryId: "c9", IsFeatured: true},
	}
	kept := filterByProfile(businesses, profile)
	ids := lo.Map(kept, func(b data.Business, _ int) string { return b.BusinessId })
	assert.Equal(t, []string{"match", "featured"}, ids)
	assert.Len(t, filterByProfile(businesses, nil), 4)
}

func TestGetRecommendationsFull(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, configWithVariant(VariantFull))
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "preferred", CategoryId: "c1", Rating: 4.0, IsActive: true},
		{BusinessId: "off_taste", CategoryId: "c2", Rating: 4.9, IsActive: true},
		{BusinessId: "featured", CategoryId: "c2", Rating: 3.0, IsFeatured: true, IsActive: true},
	}))
	require.NoError(t, database.PutProfile(ctx, data.Profile{
		UserId:          "u1",
		CategoryWeights: map[string]float64{"c1": 5},
	}))

	scores, err := recommender.GetRecommendations(ctx, "u1", nil, nil, nil, 10)
	require.NoError(t, err)
	ids := lo.Map(scores, func(s cache.Score, _ int) string { return s.Id })
	assert.Contains(t, ids, "preferred")
	assert.Contains(t, ids, "featured")
	assert.NotContains(t, ids, "off_taste")
	assert.Equal(t, AlgorithmFull, scores[0].Algorithm)
}

func TestTrackInteraction(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, config.GetDefaultConfig())
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b1", CategoryId: "c1", Rating: 4.5, PriceRange: lo.ToPtr(2), IsActive: true},
	}))

	require.NoError(t, recommender.TrackInteraction(ctx, "u1", "b1", data.InteractionView,
		map[string]string{"area": "downtown"}))

	interactions, err := database.GetUserInteractions(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, data.InteractionView, interactions[0].Type)
	assert.Equal(t, 1.0, interactions[0].Weight)
	assert.Equal(t, "downtown", interactions[0].Area)

	// the view hit today's trending counter
	start, err := periodStart(data.PeriodDaily, time.Now())
	require.NoError(t, err)
	record, err := database.GetTrendingRecord(ctx, data.TrendingKey{
		ItemType: data.ItemTypeBusiness, ItemId: "b1",
		Period: data.PeriodDaily, Date: start, Area: "downtown",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, record.ViewCount)

	// the derived profile follows the interaction
	profile, err := database.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, profile.CategoryWeights["c1"])
	require.NotNil(t, profile.PriceMin)
	assert.Equal(t, 2, *profile.PriceMin)
}

func TestTrackInteractionRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, config.GetDefaultConfig())
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b1", IsActive: true},
	}))
	assert.Error(t, recommender.TrackInteraction(ctx, "", "b1", data.InteractionView, nil))
	assert.Error(t, recommender.TrackInteraction(ctx, "u1", "b1", "teleport", nil))
	err := recommender.TrackInteraction(ctx, "u1", "missing", data.InteractionView, nil)
	assert.ErrorIs(t, err, errors.NotFound)
}

func TestTrackSearch(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, config.GetDefaultConfig())
	require.NoError(t, recommender.TrackSearch(ctx, "u1", "  Pizza  ", "", "", "downtown"))
	assert.Error(t, recommender.TrackSearch(ctx, "u1", "", "", "", "downtown"))

	counts, err := database.AggregateSearchTerms(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "pizza", counts[0].ItemId)
}

func TestGetSimilarBusinessesStored(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, config.GetDefaultConfig())
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "a", CategoryId: "c_restaurant", IsActive: true},
		{BusinessId: "b", CategoryId: "c_restaurant", IsActive: true},
	}))
	require.NoError(t, database.PutSimilarity(ctx, data.SimilarityRecord{
		BusinessAId: "a", BusinessBId: "b", Score: 0.8,
		Type: SimilarityTypeMultiFactor,
		Factors: map[string]float64{
			FactorCategoryMatch:     1.0,
			FactorLocationProximity: 1.0,
		},
		UpdatedAt: time.Now(),
	}))

	results, err := recommender.GetSimilarBusinesses(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Id)
	assert.Equal(t, SimilarityTypeMultiFactor, results[0].Type)
	assert.Contains(t, results[0].Reasons, "same category")
	assert.Contains(t, results[0].Reasons, "close by")
}

func TestGetSimilarBusinessesFallback(t *testing.T) {
	ctx := context.Background()
	recommender, database := newTestRecommender(t, config.GetDefaultConfig())
	require.NoError(t, database.BatchInsertCategories(ctx, testCategories))
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "a", CategoryId: "c_restaurant", Rating: 4.5, IsActive: true},
		{BusinessId: "same_cat", CategoryId: "c_restaurant", Rating: 4.2, IsActive: true},
		{BusinessId: "incompatible", CategoryId: "c_clothing", Rating: 4.9, IsActive: true},
	}))

	results, err := recommender.GetSimilarBusinesses(ctx, "a", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "same_cat", results[0].Id)
	assert.Equal(t, SimilarityTypeRealTime, results[0].Type)
	assert.Contains(t, results[0].Reasons, "same category")

	_, err = recommender.GetSimilarBusinesses(ctx, "missing", 5)
	assert.ErrorIs(t, err, errors.NotFound)
}
