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
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spotrank-io/spotrank/storage"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	ErrBusinessNotExist = errors.NotFoundf("business")
	ErrProfileNotExist  = errors.NotFoundf("profile")
	ErrTrendingNotExist = errors.NotFoundf("trending record")
	ErrNoDatabase       = errors.NotAssignedf("database")
)

// Interaction types recorded by the tracker.
const (
	InteractionView          = "view"
	InteractionFavorite      = "favorite"
	InteractionReview        = "review"
	InteractionPhoneCall     = "phone_call"
	InteractionVisit         = "visit"
	InteractionCollectionAdd = "collection_add"
	InteractionViewOffering  = "view_offering"
)

// StrongInteractionTypes are the deliberate signals that count for the
// user-overlap similarity factor.
var StrongInteractionTypes = []string{
	InteractionFavorite,
	InteractionReview,
	InteractionPhoneCall,
	InteractionVisit,
}

// Trending item types.
const (
	ItemTypeBusiness   = "business"
	ItemTypeCategory   = "category"
	ItemTypeSearchTerm = "search_term"
	ItemTypeOffering   = "offering"
)

// Trending time periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Business stores meta data about a business. It is immutable for the
// duration of a scoring call.
type Business struct {
	BusinessId     string `gorm:"primaryKey"`
	Name           string
	CategoryId     string `gorm:"index"`
	SubcategoryId  string
	Latitude       *float64
	Longitude      *float64
	Rating         float64
	ReviewCount    int
	PriceRange     *int
	IsVerified     bool
	IsFeatured     bool
	DiscoveryScore float64
	IsActive       bool `gorm:"index"`
	CreatedAt      time.Time
}

// HasLocation reports whether the business has coordinates.
func (b *Business) HasLocation() bool {
	return b.Latitude != nil && b.Longitude != nil
}

// Category stores a category. Lowercased category names key the
// incompatibility and compatibility tables.
type Category struct {
	CategoryId string `gorm:"primaryKey"`
	Name       string
	ParentId   string
}

// Interaction stores a weighted user action on a business. Records are
// never deduplicated, only aggregated by consumers.
type Interaction struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	UserId     string `gorm:"index"`
	BusinessId string `gorm:"index"`
	Type       string
	Weight     float64
	OfferingId string
	Latitude   *float64
	Longitude  *float64
	Area       string
	Context    map[string]string `gorm:"serializer:json"`
	Timestamp  time.Time         `gorm:"index"`
}

// SearchEvent stores a search. BusinessId is set when the user clicked
// through to a business from the results.
type SearchEvent struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	UserId     string `gorm:"index"`
	Term       string
	CategoryId string
	BusinessId string
	Area       string
	Timestamp  time.Time `gorm:"index"`
}

// Profile is the derived preference profile of a user. All preference
// fields are optional.
type Profile struct {
	UserId          string             `gorm:"primaryKey"`
	CategoryWeights map[string]float64 `gorm:"serializer:json"`
	PriceMin        *int
	PriceMax        *int
	MinRating       *float64
	Latitude        *float64
	Longitude       *float64
	Radius          *float64
	UpdatedAt       time.Time
}

// SimilarityRecord stores the composite similarity of a canonical
// unordered business pair (BusinessAId < BusinessBId).
type SimilarityRecord struct {
	BusinessAId string             `gorm:"primaryKey"`
	BusinessBId string             `gorm:"primaryKey"`
	Score       float64            `gorm:"index"`
	Type        string
	Factors     map[string]float64 `gorm:"serializer:json"`
	UpdatedAt   time.Time
}

// CanonicalPair orders two business ids so that (A,B) and (B,A) map to
// the same storage key.
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// TrendingKey identifies a trending record.
type TrendingKey struct {
	ItemType string    `gorm:"primaryKey"`
	ItemId   string    `gorm:"primaryKey"`
	Period   string    `gorm:"primaryKey"`
	Date     time.Time `gorm:"primaryKey"`
	Area     string    `gorm:"primaryKey"`
}

// TrendingRecord stores a decayed popularity score. The stored score is
// a cache of a deterministic formula over the raw counts, never
// hand-edited.
type TrendingRecord struct {
	TrendingKey `gorm:"embedded"`
	TrendScore  float64
	HybridScore *float64
	ViewCount   int
	SearchCount int
	UpdatedAt   time.Time
}

// MetricEvent is an append-only recommendation serving metric row.
type MetricEvent struct {
	Id           int64 `gorm:"primaryKey;autoIncrement"`
	UserId       string
	Variant      string
	ResponseTime float64
	ResultCount  int
	Timestamp    time.Time
}

// AreaCount is an aggregated activity row grouped by (item, area).
type AreaCount struct {
	ItemId      string
	Area        string
	SearchCount int
	ViewCount   int
}

type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	// businesses
	BatchInsertBusinesses(ctx context.Context, businesses []Business) error
	BatchGetBusinesses(ctx context.Context, businessIds []string) ([]Business, error)
	GetBusiness(ctx context.Context, businessId string) (Business, error)
	GetActiveBusinesses(ctx context.Context, n int) ([]Business, error)
	GetBusinessesByCategory(ctx context.Context, categoryId string, n int) ([]Business, error)
	GetBusinessesNear(ctx context.Context, lat, lng, radius float64, n int) ([]Business, error)
	GetTopRatedBusinesses(ctx context.Context, minRating float64, n int) ([]Business, error)
	// categories
	BatchInsertCategories(ctx context.Context, categories []Category) error
	GetCategories(ctx context.Context) ([]Category, error)
	// interactions
	InsertInteraction(ctx context.Context, interaction Interaction) error
	GetUserInteractions(ctx context.Context, userId string, begin *time.Time, types ...string) ([]Interaction, error)
	GetBusinessInteractions(ctx context.Context, businessIds []string, begin *time.Time, types ...string) ([]Interaction, error)
	// search events
	InsertSearchEvent(ctx context.Context, event SearchEvent) error
	// preference profiles
	GetProfile(ctx context.Context, userId string) (Profile, error)
	PutProfile(ctx context.Context, profile Profile) error
	// similarity records
	PutSimilarity(ctx context.Context, record SimilarityRecord) error
	GetSimilarities(ctx context.Context, businessId string, n int) ([]SimilarityRecord, error)
	HasSimilarity(ctx context.Context, businessAId, businessBId string) (bool, error)
	// trending records
	PutTrending(ctx context.Context, record TrendingRecord) error
	GetTrendingRecord(ctx context.Context, key TrendingKey) (TrendingRecord, error)
	GetTrending(ctx context.Context, itemType, period string, date time.Time, area string, n int) ([]TrendingRecord, error)
	// activity aggregates
	AggregateBusinessActivity(ctx context.Context, begin time.Time) ([]AreaCount, error)
	AggregateCategorySearches(ctx context.Context, begin time.Time) ([]AreaCount, error)
	AggregateSearchTerms(ctx context.Context, begin time.Time, n int) ([]AreaCount, error)
	AggregateOfferingViews(ctx context.Context, begin time.Time) ([]AreaCount, error)
	// metrics
	InsertMetricEvent(ctx context.Context, event MetricEvent) error
}

// Open a connection to a database.
func Open(path, tablePrefix string, opts ...storage.Option) (Database, error) {
	var err error
	if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"parseTime": "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		database := new(SQLDatabase)
		database.driver = MySQL
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		database.gormDB, err = gorm.Open(mysql.Open(name), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		database.applyOptions(opts...)
		return database, nil
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "application_name", B: "spotrank"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		database := new(SQLDatabase)
		database.driver = Postgres
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		database.gormDB, err = gorm.Open(postgres.Open(path), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		database.applyOptions(opts...)
		return database, nil
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		database.gormDB, err = gorm.Open(sqlite.Open(name), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		database.applyOptions(opts...)
		return database, nil
	}
	return nil, errors.Errorf("unknown database: %s", path)
}
