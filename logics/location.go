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
	"sort"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spotrank-io/spotrank/base/geo"
	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/storage/cache"
	"github.com/spotrank-io/spotrank/storage/data"
)

// localPopularityRadiusKm bounds which interactions count as local
// activity around the anchor.
const localPopularityRadiusKm = 10.0

// LocationScorer ranks businesses around an anchor point by distance,
// quality, profile fit and recent local activity.
type LocationScorer struct {
	cfg        *config.Config
	dataClient data.Database
}

func NewLocationScorer(cfg *config.Config, dataClient data.Database) *LocationScorer {
	return &LocationScorer{cfg: cfg, dataClient: dataClient}
}

// Recommend scores businesses near the user. The anchor is resolved from
// the explicit coordinates, then the profile's home location, then the
// user's most recent located interaction. Without any anchor the result
// is empty.
func (s *LocationScorer) Recommend(ctx context.Context, userId string, lat, lng *float64, n int) ([]cache.Score, error) {
	if n <= 0 {
		return nil, errors.BadRequestf("n must be positive")
	}
	var profile *data.Profile
	if p, err := s.dataClient.GetProfile(ctx, userId); err == nil {
		profile = &p
	} else if !errors.Is(err, errors.NotFound) {
		return nil, errors.Trace(err)
	}

	anchorLat, anchorLng, err := s.resolveAnchor(ctx, userId, lat, lng, profile)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if anchorLat == nil {
		return nil, nil
	}

	radius := s.cfg.Recommend.DefaultRadius
	if profile != nil && profile.Radius != nil && *profile.Radius > 0 {
		radius = *profile.Radius
	}
	radius = math.Min(radius, s.cfg.Recommend.MaxRadius)

	candidates, err := s.dataClient.GetBusinessesNear(ctx, *anchorLat, *anchorLng, radius, s.cfg.Recommend.CandidateLimit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	localCounts, err := s.localActivity(ctx, userId, *anchorLat, *anchorLng, candidates)
	if err != nil {
		return nil, errors.Trace(err)
	}

	scored := make([]cache.Score, 0, len(candidates))
	for _, business := range candidates {
		distance := geo.Distance(*anchorLat, *anchorLng, *business.Latitude, *business.Longitude)
		distanceTerm := math.Max(0, 1-distance/radius)
		quality := business.Rating/5*0.7 + math.Min(float64(business.ReviewCount)/50, 1)*0.3
		popularity := math.Min(float64(localCounts[business.BusinessId])/20, 1)
		score := distanceTerm*0.4 +
			quality*0.3 +
			preferenceTerm(business, profile)*0.2 +
			popularity*0.1
		scored = append(scored, cache.Score{
			Id:        business.BusinessId,
			Score:     round4(score),
			Algorithm: AlgorithmLocation,
			Distance:  lo.ToPtr(distance),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored, nil
}

// resolveAnchor picks the coordinate pair to score around.
func (s *LocationScorer) resolveAnchor(ctx context.Context, userId string, lat, lng *float64, profile *data.Profile) (*float64, *float64, error) {
	if lat != nil && lng != nil {
		return lat, lng, nil
	}
	if profile != nil && profile.Latitude != nil && profile.Longitude != nil {
		return profile.Latitude, profile.Longitude, nil
	}
	begin := time.Now().Add(-s.cfg.Recommend.RecencyWindow)
	interactions, err := s.dataClient.GetUserInteractions(ctx, userId, &begin)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	// interactions arrive newest first
	for _, interaction := range interactions {
		if interaction.Latitude != nil && interaction.Longitude != nil {
			return interaction.Latitude, interaction.Longitude, nil
		}
	}
	for _, interaction := range interactions {
		business, err := s.dataClient.GetBusiness(ctx, interaction.BusinessId)
		if err != nil {
			if errors.Is(err, errors.NotFound) {
				continue
			}
			return nil, nil, errors.Trace(err)
		}
		if business.HasLocation() {
			return business.Latitude, business.Longitude, nil
		}
	}
	return nil, nil, nil
}

// localActivity counts other users' recent interactions per candidate
// that happened within the local radius of the anchor.
func (s *LocationScorer) localActivity(ctx context.Context, userId string, anchorLat, anchorLng float64, candidates []data.Business) (map[string]int, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	coords := make(map[string]data.Business, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, business := range candidates {
		coords[business.BusinessId] = business
		ids = append(ids, business.BusinessId)
	}
	begin := time.Now().Add(-s.cfg.Recommend.ActivityWindow)
	interactions, err := s.dataClient.GetBusinessInteractions(ctx, ids, &begin)
	if err != nil {
		return nil, errors.Trace(err)
	}
	counts := make(map[string]int)
	for _, interaction := range interactions {
		if interaction.UserId == userId {
			continue
		}
		lat, lng := interaction.Latitude, interaction.Longitude
		if lat == nil || lng == nil {
			business := coords[interaction.BusinessId]
			lat, lng = business.Latitude, business.Longitude
		}
		if lat == nil || lng == nil {
			continue
		}
		if geo.Distance(anchorLat, anchorLng, *lat, *lng) <= localPopularityRadiusKm {
			counts[interaction.BusinessId]++
		}
	}
	return counts, nil
}

// preferenceTerm averages the determinable profile fit signals. With no
// signal it stays neutral.
func preferenceTerm(business data.Business, profile *data.Profile) float64 {
	if profile == nil {
		return 0.5
	}
	var total float64
	var terms int
	if len(profile.CategoryWeights) > 0 {
		total += categoryOverlap(business, profile)
		terms++
	}
	if profile.PriceMin != nil && profile.PriceMax != nil && business.PriceRange != nil {
		if *business.PriceRange >= *profile.PriceMin && *business.PriceRange <= *profile.PriceMax {
			total += 1
		}
		terms++
	}
	if profile.MinRating != nil {
		if business.Rating >= *profile.MinRating {
			total += 1
		}
		terms++
	}
	if terms == 0 {
		return 0.5
	}
	return total / float64(terms)
}
