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
	"time"
)

// NoDatabase means no database is attached.
type NoDatabase struct{}

func (NoDatabase) Init() error {
	return ErrNoDatabase
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return ErrNoDatabase
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertBusinesses(_ context.Context, _ []Business) error {
	return ErrNoDatabase
}

func (NoDatabase) BatchGetBusinesses(_ context.Context, _ []string) ([]Business, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetBusiness(_ context.Context, _ string) (Business, error) {
	return Business{}, ErrNoDatabase
}

func (NoDatabase) GetActiveBusinesses(_ context.Context, _ int) ([]Business, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetBusinessesByCategory(_ context.Context, _ string, _ int) ([]Business, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetBusinessesNear(_ context.Context, _, _, _ float64, _ int) ([]Business, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetTopRatedBusinesses(_ context.Context, _ float64, _ int) ([]Business, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) BatchInsertCategories(_ context.Context, _ []Category) error {
	return ErrNoDatabase
}

func (NoDatabase) GetCategories(_ context.Context) ([]Category, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) InsertInteraction(_ context.Context, _ Interaction) error {
	return ErrNoDatabase
}

func (NoDatabase) GetUserInteractions(_ context.Context, _ string, _ *time.Time, _ ...string) ([]Interaction, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetBusinessInteractions(_ context.Context, _ []string, _ *time.Time, _ ...string) ([]Interaction, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) InsertSearchEvent(_ context.Context, _ SearchEvent) error {
	return ErrNoDatabase
}

func (NoDatabase) GetProfile(_ context.Context, _ string) (Profile, error) {
	return Profile{}, ErrNoDatabase
}

func (NoDatabase) PutProfile(_ context.Context, _ Profile) error {
	return ErrNoDatabase
}

func (NoDatabase) PutSimilarity(_ context.Context, _ SimilarityRecord) error {
	return ErrNoDatabase
}

func (NoDatabase) GetSimilarities(_ context.Context, _ string, _ int) ([]SimilarityRecord, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) HasSimilarity(_ context.Context, _, _ string) (bool, error) {
	return false, ErrNoDatabase
}

func (NoDatabase) PutTrending(_ context.Context, _ TrendingRecord) error {
	return ErrNoDatabase
}

func (NoDatabase) GetTrendingRecord(_ context.Context, _ TrendingKey) (TrendingRecord, error) {
	return TrendingRecord{}, ErrNoDatabase
}

func (NoDatabase) GetTrending(_ context.Context, _, _ string, _ time.Time, _ string, _ int) ([]TrendingRecord, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) AggregateBusinessActivity(_ context.Context, _ time.Time) ([]AreaCount, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) AggregateCategorySearches(_ context.Context, _ time.Time) ([]AreaCount, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) AggregateSearchTerms(_ context.Context, _ time.Time, _ int) ([]AreaCount, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) AggregateOfferingViews(_ context.Context, _ time.Time) ([]AreaCount, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) InsertMetricEvent(_ context.Context, _ MetricEvent) error {
	return ErrNoDatabase
}
