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

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spotrank-io/spotrank/base/log"
	"github.com/spotrank-io/spotrank/config"
	"github.com/spotrank-io/spotrank/storage/data"
	"go.uber.org/zap"
)

// TrendingCalculator aggregates recent activity into per-period trending
// scores for businesses, categories, search terms and offerings.
type TrendingCalculator struct {
	cfg        *config.Config
	dataClient data.Database
}

func NewTrendingCalculator(cfg *config.Config, dataClient data.Database) *TrendingCalculator {
	return &TrendingCalculator{cfg: cfg, dataClient: dataClient}
}

// trendScore saturates each raw count before mixing so a flood of one
// signal cannot push the score past 100.
func trendScore(searchCount, viewCount int) float64 {
	return round4(math.Min(100, float64(searchCount)*5)*0.7 +
		math.Min(100, float64(viewCount)*2)*0.3)
}

// hybridScore blends the trend score with rating quality on a 0-100
// scale. Only businesses carry one.
func hybridScore(trend, rating float64) float64 {
	return round4(trend*0.6 + rating/5*100*0.4)
}

// periodStart normalizes a date to the start of its period in UTC.
func periodStart(period string, date time.Time) (time.Time, error) {
	date = date.UTC()
	switch period {
	case data.PeriodDaily:
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), nil
	case data.PeriodWeekly:
		start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(start.Weekday()) + 6) % 7
		return start.AddDate(0, 0, -offset), nil
	case data.PeriodMonthly:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, errors.BadRequestf("unknown period %q", period)
	}
}

// CalculateAll recomputes trending scores for every item type over the
// period containing date. Failures of one item type do not abort the
// others.
func (t *TrendingCalculator) CalculateAll(ctx context.Context, period string, date time.Time) (BatchStats, error) {
	var stats BatchStats
	for _, itemType := range []string{
		data.ItemTypeBusiness,
		data.ItemTypeCategory,
		data.ItemTypeSearchTerm,
		data.ItemTypeOffering,
	} {
		partial, err := t.Calculate(ctx, itemType, period, date)
		if err != nil {
			log.Logger().Error("failed to calculate trending",
				zap.String("item_type", itemType), zap.Error(err))
			continue
		}
		stats.Processed += partial.Processed
		stats.Updated += partial.Updated
	}
	return stats, nil
}

// Calculate recomputes trending scores for one item type.
func (t *TrendingCalculator) Calculate(ctx context.Context, itemType, period string, date time.Time) (BatchStats, error) {
	var stats BatchStats
	start, err := periodStart(period, date)
	if err != nil {
		return stats, errors.Trace(err)
	}
	counts, err := t.aggregate(ctx, itemType, start)
	if err != nil {
		return stats, errors.Trace(err)
	}

	var ratings map[string]float64
	if itemType == data.ItemTypeBusiness {
		ids := lo.Uniq(lo.Map(counts, func(c data.AreaCount, _ int) string {
			return c.ItemId
		}))
		businesses, err := t.dataClient.BatchGetBusinesses(ctx, ids)
		if err != nil {
			return stats, errors.Trace(err)
		}
		ratings = make(map[string]float64, len(businesses))
		for _, business := range businesses {
			ratings[business.BusinessId] = business.Rating
		}
	}

	now := time.Now()
	for _, count := range counts {
		stats.Processed++
		record := data.TrendingRecord{
			TrendingKey: data.TrendingKey{
				ItemType: itemType,
				ItemId:   count.ItemId,
				Period:   period,
				Date:     start,
				Area:     count.Area,
			},
			TrendScore:  trendScore(count.SearchCount, count.ViewCount),
			ViewCount:   count.ViewCount,
			SearchCount: count.SearchCount,
			UpdatedAt:   now,
		}
		if itemType == data.ItemTypeBusiness {
			record.HybridScore = lo.ToPtr(hybridScore(record.TrendScore, ratings[count.ItemId]))
		}
		if err := t.dataClient.PutTrending(ctx, record); err != nil {
			log.Logger().Error("failed to store trending record",
				zap.String("item_type", itemType),
				zap.String("item_id", count.ItemId),
				zap.Error(err))
			continue
		}
		TrendingRecordsTotal.Inc()
		stats.Updated++
	}
	return stats, nil
}

func (t *TrendingCalculator) aggregate(ctx context.Context, itemType string, begin time.Time) ([]data.AreaCount, error) {
	switch itemType {
	case data.ItemTypeBusiness:
		return t.dataClient.AggregateBusinessActivity(ctx, begin)
	case data.ItemTypeCategory:
		return t.dataClient.AggregateCategorySearches(ctx, begin)
	case data.ItemTypeSearchTerm:
		return t.dataClient.AggregateSearchTerms(ctx, begin, t.cfg.Trending.TopSearchTerms)
	case data.ItemTypeOffering:
		return t.dataClient.AggregateOfferingViews(ctx, begin)
	default:
		return nil, errors.BadRequestf("unknown item type %q", itemType)
	}
}

// GetTrending returns the highest-scored items of one type for the
// period containing date, optionally filtered by area.
func (t *TrendingCalculator) GetTrending(ctx context.Context, itemType, period string, date time.Time, area string, n int) ([]data.TrendingRecord, error) {
	if n <= 0 {
		return nil, errors.BadRequestf("n must be positive")
	}
	start, err := periodStart(period, date)
	if err != nil {
		return nil, errors.Trace(err)
	}
	records, err := t.dataClient.GetTrending(ctx, itemType, period, start, area, n)
	return records, errors.Trace(err)
}

// TrackView increments today's daily view counter for an item and
// recomputes its scores in place. The read-modify-write is not
// coordinated across processes; counts are approximate under
// concurrency and corrected by the next batch run.
func (t *TrendingCalculator) TrackView(ctx context.Context, itemType, itemId, area string, rating float64) error {
	start, err := periodStart(data.PeriodDaily, time.Now())
	if err != nil {
		return errors.Trace(err)
	}
	key := data.TrendingKey{
		ItemType: itemType,
		ItemId:   itemId,
		Period:   data.PeriodDaily,
		Date:     start,
		Area:     area,
	}
	record, err := t.dataClient.GetTrendingRecord(ctx, key)
	if errors.Is(err, errors.NotFound) {
		record = data.TrendingRecord{TrendingKey: key}
	} else if err != nil {
		return errors.Trace(err)
	}
	record.ViewCount++
	record.TrendScore = trendScore(record.SearchCount, record.ViewCount)
	if itemType == data.ItemTypeBusiness {
		record.HybridScore = lo.ToPtr(hybridScore(record.TrendScore, rating))
	}
	record.UpdatedAt = time.Now()
	return errors.Trace(t.dataClient.PutTrending(ctx, record))
}
