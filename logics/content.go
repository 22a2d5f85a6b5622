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
	"math"

	"github.com/spotrank-io/spotrank/storage/data"
)

// ContentScorer ranks businesses against a preference profile using
// metadata only. It never touches storage.
type ContentScorer struct{}

// Score combines category overlap, rating, popularity and price band
// closeness. Without a profile it degrades to a pure popularity score.
func (ContentScorer) Score(business data.Business, profile *data.Profile) float64 {
	if profile == nil || len(profile.CategoryWeights) == 0 {
		return PopularityScore(business)
	}
	score := categoryOverlap(business, profile)*0.4 +
		business.Rating/5*0.25 +
		math.Min(float64(business.ReviewCount)/100, 1)*0.15
	if profile.PriceMin != nil && profile.PriceMax != nil && business.PriceRange != nil {
		mid := float64(*profile.PriceMin+*profile.PriceMax) / 2
		closeness := math.Max(0, 1-math.Abs(float64(*business.PriceRange)-mid)/3)
		score += closeness * 0.2
	}
	return round4(score)
}

// categoryOverlap is the fraction of the business's category ids found
// among the profile's weighted categories.
func categoryOverlap(business data.Business, profile *data.Profile) float64 {
	ids := make([]string, 0, 2)
	if business.CategoryId != "" {
		ids = append(ids, business.CategoryId)
	}
	if business.SubcategoryId != "" {
		ids = append(ids, business.SubcategoryId)
	}
	if len(ids) == 0 {
		return 0
	}
	matched := 0
	for _, id := range ids {
		if _, ok := profile.CategoryWeights[id]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(ids))
}

// PopularityScore ranks a business by rating and review volume alone.
// It backs every cold-start fallback path.
func PopularityScore(business data.Business) float64 {
	return round4(business.Rating/5*0.7 + math.Min(float64(business.ReviewCount)/100, 1)*0.3)
}
