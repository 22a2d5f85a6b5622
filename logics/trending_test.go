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

	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/storage/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrendScore(t *testing.T) {
	assert.Equal(t, 0.0, trendScore(0, 0))
	// 10*5*0.7 + 20*2*0.3
	assert.Equal(t, 47.0, trendScore(10, 20))
	// both components saturate at 100
	assert.Equal(t, 100.0, trendScore(1000, 1000))
}

func TestHybridScore(t *testing.T) {
	// 50*0.6 + 4/5*100*0.4
	assert.Equal(t, 62.0, hybridScore(50, 4))
	assert.Equal(t, 100.0, hybridScore(100, 5))
	assert.Equal(t, 0.0, hybridScore(0, 0))
}

func TestPeriodStart(t *testing.T) {
	date := time.Date(2024, 5, 15, 13, 45, 0, 0, time.UTC) // a Wednesday
	daily, err := periodStart(data.PeriodDaily, date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), daily)
	weekly, err := periodStart(data.PeriodWeekly, date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), weekly)
	monthly, err := periodStart(data.PeriodMonthly, date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), monthly)
	_, err = periodStart("hourly", date)
	assert.Error(t, err)
}

func TestCalculateBusinessTrending(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	cfg := config.GetDefaultConfig()
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b1", Rating: 4.0, IsActive: true},
		{BusinessId: "b2", Rating: 5.0, IsActive: true},
	}))
	now := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, database.InsertInteraction(ctx, data.Interaction{
			UserId: "u1", BusinessId: "b1", Type: data.InteractionView,
			Weight: 1, Area: "downtown", Timestamp: now,
		}))
	}
	require.NoError(t, database.InsertSearchEvent(ctx, data.SearchEvent{
		UserId: "u1", Term: "pizza", BusinessId: "b1", Area: "downtown", Timestamp: now,
	}))
	require.NoError(t, database.InsertInteraction(ctx, data.Interaction{
		UserId: "u2", BusinessId: "b2", Type: data.InteractionView,
		Weight: 1, Area: "uptown", Timestamp: now,
	}))

	calculator := NewTrendingCalculator(cfg, database)
	stats, err := calculator.Calculate(ctx, data.ItemTypeBusiness, data.PeriodDaily, now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Updated)

	records, err := calculator.GetTrending(ctx, data.ItemTypeBusiness, data.PeriodDaily, now, "downtown", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b1", records[0].ItemId)
	assert.Equal(t, 4, records[0].ViewCount)
	assert.Equal(t, 1, records[0].SearchCount)
	// 1 search, 4 views: 5*0.7 + 8*0.3
	assert.Equal(t, 5.9, records[0].TrendScore)
	require.NotNil(t, records[0].HybridScore)
	// 5.9*0.6 + 80*0.4
	assert.Equal(t, 35.54, *records[0].HybridScore)

	// recompute with unchanged counts is idempotent
	_, err = calculator.Calculate(ctx, data.ItemTypeBusiness, data.PeriodDaily, now)
	require.NoError(t, err)
	again, err := calculator.GetTrending(ctx, data.ItemTypeBusiness, data.PeriodDaily, now, "downtown", 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, records[0].TrendScore, again[0].TrendScore)
	assert.Equal(t, records[0].ViewCount, again[0].ViewCount)
	assert.Equal(t, records[0].SearchCount, again[0].SearchCount)
}

func TestCalculateIdempotent(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	cfg := config.GetDefaultConfig()
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b1", Rating: 4.0, IsActive: true},
		{BusinessId: "b2", Rating: 5.0, IsActive: true},
	}))
	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, database.InsertInteraction(ctx, data.Interaction{
			UserId: "u1", BusinessId: "b1", Type: data.InteractionView,
			Weight: 1, Area: "downtown", Timestamp: now,
		}))
	}
	require.NoError(t, database.InsertSearchEvent(ctx, data.SearchEvent{
		UserId: "u2", Term: "coffee", BusinessId: "b2", Area: "uptown", Timestamp: now,
	}))

	calculator := NewTrendingCalculator(cfg, database)
	loadAll := func() []data.TrendingRecord {
		var records []data.TrendingRecord
		for _, area := range []string{"downtown", "uptown"} {
			found, err := calculator.GetTrending(ctx, data.ItemTypeBusiness, data.PeriodDaily, now, area, 10)
			require.NoError(t, err)
			for _, record := range found {
				record.UpdatedAt = time.Time{}
				records = append(records, record)
			}
		}
		return records
	}

	_, err := calculator.Calculate(ctx, data.ItemTypeBusiness, data.PeriodDaily, now)
	require.NoError(t, err)
	first := loadAll()
	require.Len(t, first, 2)

	// same counts, same stored records
	_, err = calculator.Calculate(ctx, data.ItemTypeBusiness, data.PeriodDaily, now)
	require.NoError(t, err)
	assert.Equal(t, first, loadAll())
}

func TestCalculateSearchTerms(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	cfg := config.GetDefaultConfig()
	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, database.InsertSearchEvent(ctx, data.SearchEvent{
			UserId: "u1", Term: "pizza", Area: "downtown", Timestamp: now,
		}))
	}
	require.NoError(t, database.InsertSearchEvent(ctx, data.SearchEvent{
		UserId: "u2", Term: "sushi", Area: "downtown", Timestamp: now,
	}))

	calculator := NewTrendingCalculator(cfg, database)
	stats, err := calculator.Calculate(ctx, data.ItemTypeSearchTerm, data.PeriodDaily, now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Updated)

	records, err := calculator.GetTrending(ctx, data.ItemTypeSearchTerm, data.PeriodDaily, now, "downtown", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "pizza", records[0].ItemId)
	assert.Nil(t, records[0].HybridScore)
}

func TestCalculateAll(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	cfg := config.GetDefaultConfig()
	now := time.Now()
	require.NoError(t, database.BatchInsertBusinesses(ctx, []data.Business{
		{BusinessId: "b1", Rating: 4.0, IsActive: true},
	}))
	require.NoError(t, database.InsertInteraction(ctx, data.Interaction{
		UserId: "u1", BusinessId: "b1", Type: data.InteractionView,
		Weight: 1, Area: "downtown", Timestamp: now,
	}))
	require.NoError(t, database.InsertInteraction(ctx, data.Interaction{
		UserId: "u1", BusinessId: "b1", Type: data.InteractionViewOffering,
		OfferingId: "o1", Weight: 1, Area: "downtown", Timestamp: now,
	}))
	require.NoError(t, database.InsertSearchEvent(ctx, data.SearchEvent{
		UserId: "u1", Term: "pizza", CategoryId: "c1", Area: "downtown", Timestamp: now,
	}))

	calculator := NewTrendingCalculator(cfg, database)
	stats, err := calculator.CalculateAll(ctx, data.PeriodDaily, now)
	require.NoError(t, err)
	// one business row, one category row, one search term, one offering
	assert.Equal(t, 4, stats.Updated)
}

func TestTrackView(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	calculator := NewTrendingCalculator(config.GetDefaultConfig(), database)

	require.NoError(t, calculator.TrackView(ctx, data.ItemTypeBusiness, "b1", "downtown", 4.5))
	require.NoError(t, calculator.TrackView(ctx, data.ItemTypeBusiness, "b1", "downtown", 4.5))

	start, err := periodStart(data.PeriodDaily, time.Now())
	require.NoError(t, err)
	record, err := database.GetTrendingRecord(ctx, data.TrendingKey{
		ItemType: data.ItemTypeBusiness, ItemId: "b1",
		Period: data.PeriodDaily, Date: start, Area: "downtown",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, record.ViewCount)
	// 2 views: min(100,4)*0.3
	assert.Equal(t, 1.2, record.TrendScore)
	require.NotNil(t, record.HybridScore)
}
