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
	"sort"
	"time"

	"github.com/juju/errors"
	"github.com/spotrank-io/spotrank/base/geo"
	"github.com/spotrank-io/spotrank/base/log"
	"github.com/spotrank-io/spotrank/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLDatabase use a SQL database as the data storage.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	driver SQLDriver
}

func (d *SQLDatabase) applyOptions(opts ...storage.Option) {
	client, err := d.gormDB.DB()
	if err != nil {
		log.Logger().Error("failed to fetch sql connection pool", zap.Error(err))
		return
	}
	storage.ApplySQLPool(client, storage.NewOptions(opts...))
}

// Init tables and indices in the SQL database.
func (d *SQLDatabase) Init() error {
	err := d.gormDB.AutoMigrate(
		&Business{}, &Category{}, &Interaction{}, &SearchEvent{},
		&Profile{}, &SimilarityRecord{}, &TrendingRecord{}, &MetricEvent{})
	return errors.Trace(err)
}

func (d *SQLDatabase) Ping() error {
	client, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(client.Ping())
}

// Close the database connection.
func (d *SQLDatabase) Close() error {
	client, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(client.Close())
}

// Purge all data from the SQL database.
func (d *SQLDatabase) Purge() error {
	tables := []string{
		d.BusinessesTable(),
		d.CategoriesTable(),
		d.InteractionsTable(),
		d.SearchEventsTable(),
		d.ProfilesTable(),
		d.SimilarityRecordsTable(),
		d.TrendingRecordsTable(),
		d.MetricEventsTable(),
	}
	for _, table := range tables {
		if err := d.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) BatchInsertBusinesses(ctx context.Context, businesses []Business) error {
	if len(businesses) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(businesses).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchGetBusinesses(ctx context.Context, businessIds []string) ([]Business, error) {
	if len(businessIds) == 0 {
		return nil, nil
	}
	var businesses []Business
	err := d.gormDB.WithContext(ctx).
		Where("business_id IN ?", businessIds).
		Find(&businesses).Error
	return businesses, errors.Trace(err)
}

func (d *SQLDatabase) GetBusiness(ctx context.Context, businessId string) (Business, error) {
	var business Business
	err := d.gormDB.WithContext(ctx).
		Where("business_id = ?", businessId).
		First(&business).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Business{}, errors.Annotate(ErrBusinessNotExist, businessId)
	}
	return business, errors.Trace(err)
}

func (d *SQLDatabase) GetActiveBusinesses(ctx context.Context, n int) ([]Business, error) {
	var businesses []Business
	err := d.gormDB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("rating DESC, discovery_score DESC").
		Limit(n).
		Find(&businesses).Error
	return businesses, errors.Trace(err)
}

func (d *SQLDatabase) GetBusinessesByCategory(ctx context.Context, categoryId string, n int) ([]Business, error) {
	var businesses []Business
	err := d.gormDB.WithContext(ctx).
		Where("is_active = ? AND category_id = ?", true, categoryId).
		Order("rating DESC, review_count DESC").
		Limit(n).
		Find(&businesses).Error
	return businesses, errors.Trace(err)
}

// GetBusinessesNear returns active businesses within radius kilometers of
// the point, nearest first. Candidates are prefiltered with a bounding
// box in SQL and refined with the exact haversine distance.
func (d *SQLDatabase) GetBusinessesNear(ctx context.Context, lat, lng, radius float64, n int) ([]Business, error) {
	minLat, maxLat, minLng, maxLng := geo.BoundingBox(lat, lng, radius)
	var candidates []Business
	err := d.gormDB.WithContext(ctx).
		Where("is_active = ? AND latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			true, minLat, maxLat, minLng, maxLng).
		Find(&candidates).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	type withDistance struct {
		business Business
		distance float64
	}
	within := make([]withDistance, 0, len(candidates))
	for _, business := range candidates {
		if !business.HasLocation() {
			continue
		}
		distance := geo.Distance(lat, lng, *business.Latitude, *business.Longitude)
		if distance <= radius {
			within = append(within, withDistance{business, distance})
		}
	}
	sort.Slice(within, func(i, j int) bool {
		return within[i].distance < within[j].distance
	})
	if n > 0 && len(within) > n {
		within = within[:n]
	}
	businesses := make([]Business, len(within))
	for i, w := range within {
		businesses[i] = w.business
	}
	return businesses, nil
}

func (d *SQLDatabase) GetTopRatedBusinesses(ctx context.Context, minRating float64, n int) ([]Business, error) {
	var businesses []Business
	err := d.gormDB.WithContext(ctx).
		Where("is_active = ? AND rating >= ?", true, minRating).
		Order("rating DESC, review_count DESC").
		Limit(n).
		Find(&businesses).Error
	return businesses, errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertCategories(ctx context.Context, categories []Category) error {
	if len(categories) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(categories).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := d.gormDB.WithContext(ctx).Find(&categories).Error
	return categories, errors.Trace(err)
}

func (d *SQLDatabase) InsertInteraction(ctx context.Context, interaction Interaction) error {
	err := d.gormDB.WithContext(ctx).Create(&interaction).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetUserInteractions(ctx context.Context, userId string, begin *time.Time, types ...string) ([]Interaction, error) {
	tx := d.gormDB.WithContext(ctx).Where("user_id = ?", userId)
	if begin != nil {
		tx = tx.Where("timestamp >= ?", *begin)
	}
	if len(types) > 0 {
		tx = tx.Where("type IN ?", types)
	}
	var interactions []Interaction
	err := tx.Order("timestamp DESC").Find(&interactions).Error
	return interactions, errors.Trace(err)
}

func (d *SQLDatabase) GetBusinessInteractions(ctx context.Context, businessIds []string, begin *time.Time, types ...string) ([]Interaction, error) {
	if len(businessIds) == 0 {
		return nil, nil
	}
	tx := d.gormDB.WithContext(ctx).Where("business_id IN ?", businessIds)
	if begin != nil {
		tx = tx.Where("timestamp >= ?", *begin)
	}
	if len(types) > 0 {
		tx = tx.Where("type IN ?", types)
	}
	var interactions []Interaction
	err := tx.Find(&interactions).Error
	return interactions, errors.Trace(err)
}

func (d *SQLDatabase) InsertSearchEvent(ctx context.Context, event SearchEvent) error {
	err := d.gormDB.WithContext(ctx).Create(&event).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetProfile(ctx context.Context, userId string) (Profile, error) {
	var profile Profile
	err := d.gormDB.WithContext(ctx).
		Where("user_id = ?", userId).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, errors.Annotate(ErrProfileNotExist, userId)
	}
	return profile, errors.Trace(err)
}

func (d *SQLDatabase) PutProfile(ctx context.Context, profile Profile) error {
	err := d.gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&profile).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) PutSimilarity(ctx context.Context, record SimilarityRecord) error {
	record.BusinessAId, record.BusinessBId = CanonicalPair(record.BusinessAId, record.BusinessBId)
	err := d.gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetSimilarities(ctx context.Context, businessId string, n int) ([]SimilarityRecord, error) {
	var records []SimilarityRecord
	err := d.gormDB.WithContext(ctx).
		Where("business_a_id = ? OR business_b_id = ?", businessId, businessId).
		Order("score DESC").
		Limit(n).
		Find(&records).Error
	return records, errors.Trace(err)
}

func (d *SQLDatabase) HasSimilarity(ctx context.Context, businessAId, businessBId string) (bool, error) {
	businessAId, businessBId = CanonicalPair(businessAId, businessBId)
	var count int64
	err := d.gormDB.WithContext(ctx).
		Model(&SimilarityRecord{}).
		Where("business_a_id = ? AND business_b_id = ?", businessAId, businessBId).
		Count(&count).Error
	return count > 0, errors.Trace(err)
}

func (d *SQLDatabase) PutTrending(ctx context.Context, record TrendingRecord) error {
	err := d.gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetTrendingRecord(ctx context.Context, key TrendingKey) (TrendingRecord, error) {
	var record TrendingRecord
	err := d.gormDB.WithContext(ctx).
		Where("item_type = ? AND item_id = ? AND period = ? AND date = ? AND area = ?",
			key.ItemType, key.ItemId, key.Period, key.Date, key.Area).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TrendingRecord{}, errors.Annotate(ErrTrendingNotExist, key.ItemId)
	}
	return record, errors.Trace(err)
}

func (d *SQLDatabase) GetTrending(ctx context.Context, itemType, period string, date time.Time, area string, n int) ([]TrendingRecord, error) {
	tx := d.gormDB.WithContext(ctx).
		Where("item_type = ? AND period = ? AND date = ?", itemType, period, date)
	if area != "" {
		tx = tx.Where("area = ?", area)
	}
	var records []TrendingRecord
	err := tx.Order("trend_score DESC").Limit(n).Find(&records).Error
	return records, errors.Trace(err)
}

// AggregateBusinessActivity groups click-through search counts and view
// counts by (business, area) since begin.
func (d *SQLDatabase) AggregateBusinessActivity(ctx context.Context, begin time.Time) ([]AreaCount, error) {
	var searches []AreaCount
	err := d.gormDB.WithContext(ctx).
		Model(&SearchEvent{}).
		Select("business_id AS item_id, area, count(*) AS search_count").
		Where("timestamp >= ? AND business_id <> ''", begin).
		Group("business_id, area").
		Scan(&searches).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	var views []AreaCount
	err = d.gormDB.WithContext(ctx).
		Model(&Interaction{}).
		Select("business_id AS item_id, area, count(*) AS view_count").
		Where("timestamp >= ? AND type = ?", begin, InteractionView).
		Group("business_id, area").
		Scan(&views).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return mergeAreaCounts(searches, views), nil
}

func (d *SQLDatabase) AggregateCategorySearches(ctx context.Context, begin time.Time) ([]AreaCount, error) {
	var counts []AreaCount
	err := d.gormDB.WithContext(ctx).
		Model(&SearchEvent{}).
		Select("category_id AS item_id, area, count(*) AS search_count").
		Where("timestamp >= ? AND category_id <> ''", begin).
		Group("category_id, area").
		Scan(&counts).Error
	return counts, errors.Trace(err)
}

// AggregateSearchTerms counts searches per (term, area) for the top n
// distinct terms by total count. The cap applies to terms, so a term
// searched in many areas consumes one slot, not one per area.
func (d *SQLDatabase) AggregateSearchTerms(ctx context.Context, begin time.Time, n int) ([]AreaCount, error) {
	var topTerms []string
	err := d.gormDB.WithContext(ctx).
		Model(&SearchEvent{}).
		Where("timestamp >= ? AND term <> ''", begin).
		Group("term").
		Order("count(*) DESC").
		Limit(n).
		Pluck("term", &topTerms).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(topTerms) == 0 {
		return nil, nil
	}
	var counts []AreaCount
	err = d.gormDB.WithContext(ctx).
		Model(&SearchEvent{}).
		Select("term AS item_id, area, count(*) AS search_count").
		Where("timestamp >= ? AND term IN ?", begin, topTerms).
		Group("term, area").
		Order("search_count DESC").
		Scan(&counts).Error
	return counts, errors.Trace(err)
}

func (d *SQLDatabase) AggregateOfferingViews(ctx context.Context, begin time.Time) ([]AreaCount, error) {
	var counts []AreaCount
	err := d.gormDB.WithContext(ctx).
		Model(&Interaction{}).
		Select("offering_id AS item_id, area, count(*) AS view_count").
		Where("timestamp >= ? AND type = ? AND offering_id <> ''", begin, InteractionViewOffering).
		Group("offering_id, area").
		Scan(&counts).Error
	return counts, errors.Trace(err)
}

func (d *SQLDatabase) InsertMetricEvent(ctx context.Context, event MetricEvent) error {
	err := d.gormDB.WithContext(ctx).Create(&event).Error
	return errors.Trace(err)
}

func mergeAreaCounts(searches, views []AreaCount) []AreaCount {
	type key struct{ itemId, area string }
	merged := make(map[key]AreaCount)
	for _, row := range searches {
		merged[key{row.ItemId, row.Area}] = row
	}
	for _, row := range views {
		k := key{row.ItemId, row.Area}
		if existing, ok := merged[k]; ok {
			existing.ViewCount = row.ViewCount
			merged[k] = existing
		} else {
			merged[k] = row
		}
	}
	counts := make([]AreaCount, 0, len(merged))
	for _, row := range merged {
		counts = append(counts, row)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].ItemId != counts[j].ItemId {
			return counts[i].ItemId < counts[j].ItemId
		}
		return counts[i].Area < counts[j].Area
	})
	return counts
}
