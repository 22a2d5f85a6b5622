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

package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoDatabase(t *testing.T) {
	ctx := context.Background()
	var database NoDatabase
	assert.ErrorIs(t, database.Init(), ErrNoDatabase)
	assert.ErrorIs(t, database.Ping(), ErrNoDatabase)
	assert.ErrorIs(t, database.Close(), ErrNoDatabase)
	assert.ErrorIs(t, database.Purge(), ErrNoDatabase)
	assert.ErrorIs(t, database.BatchInsertBusinesses(ctx, nil), ErrNoDatabase)
	_, err := database.BatchGetBusinesses(ctx, nil)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.GetBusiness(ctx, "")
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.GetActiveBusinesses(ctx, 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.GetBusinessesByCategory(ctx, "", 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.GetBusinessesNear(ctx, 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.GetTopRatedBusinesses(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, database.BatchInsertCategories(ctx, nil), ErrNoDatabase)
	_, err = database.GetCategories(ctx)
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, database.InsertInteraction(ctx, Interaction{}), ErrNoDatabase)
	_, err = database.GetUserInteractions(ctx, "", nil)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.GetBusinessInteractions(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, database.InsertSearchEvent(ctx, SearchEvent{}), ErrNoDatabase)
	_, err = database.GetProfile(ctx, "")
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, database.PutProfile(ctx, Profile{}), ErrNoDatabase)
	assert.ErrorIs(t, database.PutSimilarity(ctx, SimilarityRecord{}), ErrNoDatabase)
	_, err = database.GetSimilarities(ctx, "", 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.HasSimilarity(ctx, "", "")
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, database.PutTrending(ctx, TrendingRecord{}), ErrNoDatabase)
	_, err = database.GetTrendingRecord(ctx, TrendingKey{})
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.GetTrending(ctx, "", "", time.Time{}, "", 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.AggregateBusinessActivity(ctx, time.Time{})
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.AggregateCategorySearches(ctx, time.Time{})
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.AggregateSearchTerms(ctx, time.Time{}, 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = database.AggregateOfferingViews(ctx, time.Time{})
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, database.InsertMetricEvent(ctx, MetricEvent{}), ErrNoDatabase)
}
