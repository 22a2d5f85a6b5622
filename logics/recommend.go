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
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spotrank-io/spotrank/base/geo"
	"github.com/spotrank-io/spotrank/base/log"
	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/storage/cache"
	"github.com/spotrank-io/spotrank/storage/data"
	"go.uber.org/zap"
)

// Personalization variants served by the orchestrator.
const (
	VariantNone  = "none"
	VariantLight = "light"
	VariantFull  = "full"
)

// Algorithm labels attached to served scores.
const (
	AlgorithmFast          = "fast"
	AlgorithmLight         = "light_personalized"
	AlgorithmFull          = "full_personalized"
	AlgorithmPopularity    = "popularity"
	AlgorithmCollaborative = "collaborative"
	AlgorithmLocation      = "location"
)

// lightBoostCap bounds the total activity boost of the light path so
// personalization can reorder but never dominate the base score.
const lightBoostCap = 0.25

// Recommender serves recommendation requests. It owns the response
// cache and dispatches each request to the personalization path chosen
// by the experiment assignment.
type Recommender struct {
	cfg         *config.Config
	dataClient  data.Database
	cacheClient cache.Database
	experiments *Experiments
	trending    *TrendingCalculator
}

func NewRecommender(cfg *config.Config, dataClient data.Database, cacheClient cache.Database) *Recommender {
	return &Recommender{
		cfg:         cfg,
		dataClient:  dataClient,
		cacheClient: cacheClient,
		experiments: NewExperiments(cfg.Experiments),
		trending:    NewTrendingCalculator(cfg, dataClient),
	}
}

// GetRecommendations returns up to n scored businesses for a user.
// Responses are cached per (user, rounded location, categories, count,
// variant) and served from cache until the TTL lapses.
func (r *Recommender) GetRecommendations(ctx context.Context, userId string, lat, lng *float64, categoryIds []string, n int) ([]cache.Score, error) {
	if userId == "" {
		return nil, errors.BadRequestf("user id must not be empty")
	}
	if n < 0 {
		return nil, errors.BadRequestf("n must not be negative")
	}
	if n == 0 {
		n = r.cfg.Recommend.DefaultCount
	}
	start := time.Now()
	variant := r.experiments.VariantFor(config.PersonalizationExperiment, userId)
	if variant == "" {
		variant = VariantNone
	}

	key := recommendationKey(userId, lat, lng, categoryIds, n, variant)
	if cached, err := cache.GetScores(ctx, r.cacheClient, key); err == nil {
		RecommendCacheHitTotal.Inc()
		return cached, nil
	} else if !errors.Is(err, errors.NotFound) {
		log.Logger().Warn("failed to read recommendation cache",
			zap.String("key", key), zap.Error(err))
	}
	RecommendCacheMissTotal.Inc()

	var scores []cache.Score
	var err error
	switch variant {
	case VariantLight:
		scores, err = r.lightRecommend(ctx, userId, lat, lng, categoryIds, n)
	case VariantFull:
		scores, err = r.fullRecommend(ctx, userId, lat, lng, categoryIds, n)
	default:
		scores, err = r.fastRecommend(ctx, lat, lng, categoryIds, n)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}

	if err := cache.SetScores(ctx, r.cacheClient, key, scores, r.cfg.Recommend.CacheTTL); err != nil {
		log.Logger().Warn("failed to write recommendation cache",
			zap.String("key", key), zap.Error(err))
	}
	elapsed := time.Since(start)
	RecommendSeconds.WithLabelValues(variant).Observe(elapsed.Seconds())
	go r.recordMetric(userId, variant, elapsed, len(scores))
	return scores, nil
}

// recordMetric appends a serving metric row off the request path.
func (r *Recommender) recordMetric(userId, variant string, elapsed time.Duration, resultCount int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.dataClient.InsertMetricEvent(ctx, data.MetricEvent{
		UserId:       userId,
		Variant:      variant,
		ResponseTime: elapsed.Seconds(),
		ResultCount:  resultCount,
		Timestamp:    time.Now(),
	}); err != nil {
		log.Logger().Warn("failed to record metric event", zap.Error(err))
	}
}

// recommendationKey builds the cache key. Coordinates are rounded to
// two decimals (about a kilometer) so nearby requests share entries.
func recommendationKey(userId string, lat, lng *float64, categoryIds []string, n int, variant string) string {
	location := "no_location"
	if lat != nil && lng != nil {
		location = fmt.Sprintf("%.2f_%.2f", *lat, *lng)
	}
	categories := "no_cat"
	if len(categoryIds) > 0 {
		sorted := make([]string, len(categoryIds))
		copy(sorted, categoryIds)
		sort.Strings(sorted)
		categories = strings.Join(sorted, ",")
	}
	return cache.Key(cache.Recommendations, userId, location, categories, strconv.Itoa(n), variant)
}

// candidates fetches active businesses around the anchor, or the most
// popular actives when no location is given, filtered by category.
func (r *Recommender) candidates(ctx context.Context, lat, lng *float64, categoryIds []string) ([]data.Business, error) {
	var businesses []data.Business
	var err error
	if lat != nil && lng != nil {
		businesses, err = r.dataClient.GetBusinessesNear(ctx, *lat, *lng, r.cfg.Recommend.DefaultRadius, r.cfg.Recommend.CandidateLimit)
	} else {
		businesses, err = r.dataClient.GetActiveBusinesses(ctx, r.cfg.Recommend.CandidateLimit)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(categoryIds) > 0 {
		wanted := mapset.NewSet(categoryIds...)
		businesses = lo.Filter(businesses, func(b data.Business, _ int) bool {
			return wanted.Contains(b.CategoryId) || wanted.Contains(b.SubcategoryId)
		})
	}
	return businesses, nil
}

// fastScore is the profile-free base score shared by all paths.
func (r *Recommender) fastScore(business data.Business, lat, lng *float64) float64 {
	score := business.Rating*0.3 +
		math.Min(float64(business.ReviewCount)/50, 1)*0.2 +
		business.DiscoveryScore/100*0.2
	if lat != nil && lng != nil && business.HasLocation() {
		distance := geo.Distance(*lat, *lng, *business.Latitude, *business.Longitude)
		score += math.Max(0, 1-distance/r.cfg.Recommend.DefaultRadius) * 0.3
	}
	if business.IsVerified {
		score += 0.1
	}
	if business.IsFeatured {
		score += 0.15
	}
	return score
}

func (r *Recommender) fastRecommend(ctx context.Context, lat, lng *float64, categoryIds []string, n int) ([]cache.Score, error) {
	businesses, err := r.candidates(ctx, lat, lng, categoryIds)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.rank(businesses, n, AlgorithmFast, func(business data.Business) float64 {
		return r.fastScore(business, lat, lng)
	}, lat, lng), nil
}

// lightRecommend applies bounded boosts derived from the user's recent
// activity sample on top of the fast score.
func (r *Recommender) lightRecommend(ctx context.Context, userId string, lat, lng *float64, categoryIds []string, n int) ([]cache.Score, error) {
	businesses, err := r.candidates(ctx, lat, lng, categoryIds)
	if err != nil {
		return nil, errors.Trace(err)
	}
	activity, err := r.loadActivity(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.rank(businesses, n, AlgorithmLight, func(business data.Business) float64 {
		return r.fastScore(business, lat, lng) + activity.boost(business)
	}, lat, lng), nil
}

// activitySummary is a cheap summary of the user's recent interactions.
type activitySummary struct {
	categoryShare map[string]float64
	modePrice     *int
	interacted    mapset.Set[string]
}

// boost rewards candidates matching the user's recent category mix,
// price habit and revisits, capped so the base ranking stays dominant.
func (a *activitySummary) boost(business data.Business) float64 {
	if a == nil {
		return 0
	}
	var boost float64
	boost += a.categoryShare[business.CategoryId] * 0.15
	if a.modePrice != nil && business.PriceRange != nil && *a.modePrice == *business.PriceRange {
		boost += 0.05
	}
	if a.interacted.Contains(business.BusinessId) {
		boost += 0.05
	}
	return math.Min(boost, lightBoostCap)
}

func (r *Recommender) loadActivity(ctx context.Context, userId string) (*activitySummary, error) {
	begin := time.Now().Add(-r.cfg.Recommend.ActivityWindow)
	interactions, err := r.dataClient.GetUserInteractions(ctx, userId, &begin)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(interactions) > r.cfg.Recommend.ActivitySample {
		interactions = interactions[:r.cfg.Recommend.ActivitySample]
	}
	if len(interactions) == 0 {
		return nil, nil
	}
	summary := &activitySummary{
		categoryShare: make(map[string]float64),
		interacted:    mapset.NewSet[string](),
	}
	ids := lo.Uniq(lo.Map(interactions, func(i data.Interaction, _ int) string {
		return i.BusinessId
	}))
	summary.interacted.Append(ids...)
	businesses, err := r.dataClient.BatchGetBusinesses(ctx, ids)
	if err != nil {
		return nil, errors.Trace(err)
	}
	byId := lo.KeyBy(businesses, func(b data.Business) string {
		return b.BusinessId
	})

	var totalWeight float64
	priceCounts := make(map[int]int)
	for _, interaction := range interactions {
		business, ok := byId[interaction.BusinessId]
		if !ok {
			continue
		}
		weight := interaction.Weight
		if weight <= 0 {
			weight = 1
		}
		totalWeight += weight
		summary.categoryShare[business.CategoryId] += weight
		if business.PriceRange != nil {
			priceCounts[*business.PriceRange]++
		}
	}
	if totalWeight > 0 {
		for categoryId := range summary.categoryShare {
			summary.categoryShare[categoryId] /= totalWeight
		}
	}
	best := 0
	for price, count := range priceCounts {
		if count > best {
			best = count
			summary.modePrice = lo.ToPtr(price)
		}
	}
	return summary, nil
}

// fullRecommend blends the fast score with a profile-driven personal
// score. Candidates outside the profile's taste are filtered out unless
// featured.
func (r *Recommender) fullRecommend(ctx context.Context, userId string, lat, lng *float64, categoryIds []string, n int) ([]cache.Score, error) {
	businesses, err := r.candidates(ctx, lat, lng, categoryIds)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var profile *data.Profile
	if p, err := r.dataClient.GetProfile(ctx, userId); err == nil {
		profile = &p
	} else if !errors.Is(err, errors.NotFound) {
		return nil, errors.Trace(err)
	}
	liked, err := r.likedBySimilarUsers(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	businesses = filterByProfile(businesses, profile)
	return r.rank(businesses, n, AlgorithmFull, func(business data.Business) float64 {
		base := r.fastScore(business, lat, lng)
		personal := personalScore(business, profile, liked)
		return base*0.6 + personal*0.4
	}, lat, lng), nil
}

// filterByProfile drops candidates clearly outside the profile's taste.
// Featured businesses always survive the filter.
func filterByProfile(businesses []data.Business, profile *data.Profile) []data.Business {
	if profile == nil {
		return businesses
	}
	return lo.Filter(businesses, func(b data.Business, _ int) bool {
		if b.IsFeatured {
			return true
		}
		if len(profile.CategoryWeights) > 0 && categoryOverlap(b, profile) == 0 {
			return false
		}
		if profile.PriceMin != nil && profile.PriceMax != nil && b.PriceRange != nil &&
			(*b.PriceRange < *profile.PriceMin || *b.PriceRange > *profile.PriceMax) {
			return false
		}
		return true
	})
}

// personalScore grades a candidate against the stored profile on a 0-1
// scale. Unknown signals stay neutral at 0.5.
func personalScore(business data.Business, profile *data.Profile, liked mapset.Set[string]) float64 {
	var affinity float64
	if profile != nil && len(profile.CategoryWeights) > 0 {
		var total, mine float64
		for categoryId, weight := range profile.CategoryWeights {
			total += weight
			if categoryId == business.CategoryId || categoryId == business.SubcategoryId {
				mine += weight
			}
		}
		if total > 0 {
			affinity = mine / total
		}
	}
	priceMatch := 0.5
	if profile != nil && profile.PriceMin != nil && profile.PriceMax != nil && business.PriceRange != nil {
		if *business.PriceRange >= *profile.PriceMin && *business.PriceRange <= *profile.PriceMax {
			priceMatch = 1
		} else {
			priceMatch = 0
		}
	}
	likedScore := 0.0
	if liked != nil && liked.Contains(business.BusinessId) {
		likedScore = 1
	}
	// no time-of-day signal is collected yet
	timeOfDay := 0.5
	ratingMatch := 0.5
	if profile != nil && profile.MinRating != nil {
		if business.Rating >= *profile.MinRating {
			ratingMatch = 1
		} else {
			ratingMatch = 0
		}
	}
	return affinity*0.4 + priceMatch*0.2 + likedScore*0.2 + timeOfDay*0.1 + ratingMatch*0.1
}

// likedBySimilarUsers collects businesses endorsed by the user's
// nearest neighbors. An empty set is returned when the user lacks
// history.
func (r *Recommender) likedBySimilarUsers(ctx context.Context, userId string) (mapset.Set[string], error) {
	begin := time.Now().Add(-r.cfg.Recommend.RecencyWindow)
	interactions, err := r.dataClient.GetUserInteractions(ctx, userId, &begin)
	if err != nil {
		return nil, errors.Trace(err)
	}
	userVector := weightVector(interactions)
	liked := mapset.NewSet[string]()
	if len(userVector) < minInteractedBusinesses {
		return liked, nil
	}
	collaborative := NewCollaborativeScorer(r.cfg, r.dataClient)
	neighbors, err := collaborative.findNeighbors(ctx, userId, userVector, begin)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, neighbor := range neighbors {
		neighborInteractions, err := r.dataClient.GetUserInteractions(ctx, neighbor.Value, &begin)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for businessId, weight := range weightVector(neighborInteractions) {
			if weight >= positiveSignalWeight {
				liked.Add(businessId)
			}
		}
	}
	return liked, nil
}

// rank scores candidates, orders them descending and attaches distances
// when an anchor was given.
func (r *Recommender) rank(businesses []data.Business, n int, algorithm string, score func(data.Business) float64, lat, lng *float64) []cache.Score {
	scored := make([]cache.Score, 0, len(businesses))
	for _, business := range businesses {
		result := cache.Score{
			Id:        business.BusinessId,
			Score:     round4(score(business)),
			Algorithm: algorithm,
		}
		if lat != nil && lng != nil && business.HasLocation() {
			result.Distance = lo.ToPtr(geo.Distance(*lat, *lng, *business.Latitude, *business.Longitude))
		}
		scored = append(scored, result)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// SimilarBusiness is a similar-business result with human-readable
// reasons.
type SimilarBusiness struct {
	Id      string   `json:"id"`
	Score   float64  `json:"score"`
	Type    string   `json:"type"`
	Reasons []string `json:"reasons,omitempty"`
}

// GetSimilarBusinesses returns businesses similar to the given one.
// Stored multi-factor pairs are preferred; without enough of them the
// result is topped up with real-time estimates over same-category,
// nearby and finally top-rated candidates.
func (r *Recommender) GetSimilarBusinesses(ctx context.Context, businessId string, n int) ([]SimilarBusiness, error) {
	if n <= 0 {
		return nil, errors.BadRequestf("n must be positive")
	}
	business, err := r.dataClient.GetBusiness(ctx, businessId)
	if err != nil {
		return nil, errors.Trace(err)
	}

	results := make([]SimilarBusiness, 0, n)
	seen := mapset.NewSet(businessId)
	records, err := r.dataClient.GetSimilarities(ctx, businessId, n)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, record := range records {
		otherId := record.BusinessAId
		if otherId == businessId {
			otherId = record.BusinessBId
		}
		if seen.Contains(otherId) {
			continue
		}
		seen.Add(otherId)
		results = append(results, SimilarBusiness{
			Id:      otherId,
			Score:   record.Score,
			Type:    record.Type,
			Reasons: factorReasons(record.Factors),
		})
	}
	if len(results) >= n {
		return results[:n], nil
	}

	categories, err := r.dataClient.GetCategories(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	calculator := NewSimilarityCalculator(r.cfg.Similarity, categories)
	for _, fetch := range []func(context.Context) ([]data.Business, error){
		func(ctx context.Context) ([]data.Business, error) {
			return r.dataClient.GetBusinessesByCategory(ctx, business.CategoryId, r.cfg.Recommend.CandidateLimit)
		},
		func(ctx context.Context) ([]data.Business, error) {
			if !business.HasLocation() {
				return nil, nil
			}
			nearby, err := r.dataClient.GetBusinessesNear(ctx, *business.Latitude, *business.Longitude,
				10, r.cfg.Recommend.CandidateLimit)
			if err != nil {
				return nil, errors.Trace(err)
			}
			minRating := math.Max(3.0, business.Rating-1)
			return lo.Filter(nearby, func(b data.Business, _ int) bool {
				return b.Rating >= minRating
			}), nil
		},
		func(ctx context.Context) ([]data.Business, error) {
			return r.dataClient.GetTopRatedBusinesses(ctx, 4.0, r.cfg.Recommend.CandidateLimit)
		},
	} {
		if len(results) >= n {
			break
		}
		candidates, err := fetch(ctx)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for _, candidate := range candidates {
			if len(results) >= n {
				break
			}
			if seen.Contains(candidate.BusinessId) {
				continue
			}
			seen.Add(candidate.BusinessId)
			// gated or unrelated categories never show up as related
			score := calculator.RealTimeScore(business, candidate)
			if score == 0 {
				continue
			}
			results = append(results, SimilarBusiness{
				Id:      candidate.BusinessId,
				Score:   score,
				Type:    SimilarityTypeRealTime,
				Reasons: realTimeReasons(business, candidate),
			})
		}
	}
	return results, nil
}

// factorReasons turns the strongest stored factors into reason strings.
func factorReasons(factors map[string]float64) []string {
	var reasons []string
	if factors[FactorCategoryMatch] >= 0.8 {
		reasons = append(reasons, "same category")
	} else if factors[FactorCategoryMatch] >= 0.6 {
		reasons = append(reasons, "related category")
	}
	if factors[FactorLocationProximity] >= 0.8 {
		reasons = append(reasons, "close by")
	}
	if factors[FactorReviewSentiment] >= 0.9 {
		reasons = append(reasons, "similarly rated")
	}
	if factors[FactorUserOverlap] >= 0.2 {
		reasons = append(reasons, "visited by the same people")
	}
	return reasons
}

func realTimeReasons(business, candidate data.Business) []string {
	var reasons []string
	if business.CategoryId == candidate.CategoryId {
		reasons = append(reasons, "same category")
	} else {
		reasons = append(reasons, "related category")
	}
	if business.HasLocation() && candidate.HasLocation() &&
		geo.Distance(*business.Latitude, *business.Longitude,
			*candidate.Latitude, *candidate.Longitude) <= 5 {
		reasons = append(reasons, "close by")
	}
	if candidate.Rating >= 4.0 {
		reasons = append(reasons, "highly rated")
	}
	return reasons
}

// TrackInteraction records a user action on a business, refreshes the
// derived profile and feeds the view into today's trending counters.
func (r *Recommender) TrackInteraction(ctx context.Context, userId, businessId, interactionType string, metadata map[string]string) error {
	if userId == "" || businessId == "" {
		return errors.BadRequestf("user id and business id must not be empty")
	}
	weight, ok := r.cfg.Recommend.InteractionWeights[interactionType]
	if !ok {
		return errors.BadRequestf("unknown interaction type %q", interactionType)
	}
	business, err := r.dataClient.GetBusiness(ctx, businessId)
	if err != nil {
		return errors.Trace(err)
	}
	interaction := data.Interaction{
		UserId:     userId,
		BusinessId: businessId,
		Type:       interactionType,
		Weight:     weight,
		Context:    metadata,
		Timestamp:  time.Now(),
	}
	if metadata != nil {
		interaction.Area = metadata["area"]
		interaction.OfferingId = metadata["offering_id"]
	}
	if err := r.dataClient.InsertInteraction(ctx, interaction); err != nil {
		return errors.Trace(err)
	}

	if interactionType == data.InteractionView {
		if err := r.trending.TrackView(ctx, data.ItemTypeBusiness, businessId, interaction.Area, business.Rating); err != nil {
			log.Logger().Warn("failed to track trending view",
				zap.String("business_id", businessId), zap.Error(err))
		}
	}
	if err := r.refreshProfile(ctx, userId); err != nil {
		log.Logger().Warn("failed to refresh profile",
			zap.String("user_id", userId), zap.Error(err))
	}
	return nil
}

// TrackSearch records a search event feeding the trending aggregates.
func (r *Recommender) TrackSearch(ctx context.Context, userId, term, categoryId, businessId, area string) error {
	if term == "" && categoryId == "" {
		return errors.BadRequestf("search must carry a term or a category")
	}
	return errors.Trace(r.dataClient.InsertSearchEvent(ctx, data.SearchEvent{
		UserId:     userId,
		Term:       strings.ToLower(strings.TrimSpace(term)),
		CategoryId: categoryId,
		BusinessId: businessId,
		Area:       area,
		Timestamp:  time.Now(),
	}))
}

// refreshProfile rebuilds the derived preference profile from the
// user's interactions inside the recency window. Explicitly set home
// location and radius survive the rebuild.
func (r *Recommender) refreshProfile(ctx context.Context, userId string) error {
	begin := time.Now().Add(-r.cfg.Recommend.RecencyWindow)
	interactions, err := r.dataClient.GetUserInteractions(ctx, userId, &begin)
	if err != nil {
		return errors.Trace(err)
	}
	if len(interactions) == 0 {
		return nil
	}
	profile := data.Profile{UserId: userId}
	if existing, err := r.dataClient.GetProfile(ctx, userId); err == nil {
		profile = existing
	} else if !errors.Is(err, errors.NotFound) {
		return errors.Trace(err)
	}

	ids := lo.Uniq(lo.Map(interactions, func(i data.Interaction, _ int) string {
		return i.BusinessId
	}))
	businesses, err := r.dataClient.BatchGetBusinesses(ctx, ids)
	if err != nil {
		return errors.Trace(err)
	}
	byId := lo.KeyBy(businesses, func(b data.Business) string {
		return b.BusinessId
	})

	weights := make(map[string]float64)
	var priceMin, priceMax *int
	for _, interaction := range interactions {
		business, ok := byId[interaction.BusinessId]
		if !ok {
			continue
		}
		weight := interaction.Weight
		if weight <= 0 {
			weight = 1
		}
		if business.CategoryId != "" {
			weights[business.CategoryId] += weight
		}
		if business.SubcategoryId != "" {
			weights[business.SubcategoryId] += weight
		}
		if business.PriceRange != nil {
			if priceMin == nil || *business.PriceRange < *priceMin {
				priceMin = lo.ToPtr(*business.PriceRange)
			}
			if priceMax == nil || *business.PriceRange > *priceMax {
				priceMax = lo.ToPtr(*business.PriceRange)
			}
		}
	}
	profile.CategoryWeights = weights
	profile.PriceMin = priceMin
	profile.PriceMax = priceMax
	if profile.Latitude == nil || profile.Longitude == nil {
		// interactions arrive newest first
		for _, interaction := range interactions {
			if interaction.Latitude != nil && interaction.Longitude != nil {
				profile.Latitude = interaction.Latitude
				profile.Longitude = interaction.Longitude
				break
			}
		}
	}
	profile.UpdatedAt = time.Now()
	return errors.Trace(r.dataClient.PutProfile(ctx, profile))
}
