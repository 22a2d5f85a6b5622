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

package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/spotrank-io/spotrank/storage"
)

var (
	ErrObjectNotExist = errors.NotFoundf("object")
	ErrNoDatabase     = errors.NotAssignedf("database")
)

// Cache key collections.
const (
	Recommendations   = "recommendation"
	SimilarBusinesses = "similar"
)

// Score is a scored business held in a cached response.
type Score struct {
	Id        string   `json:"id"`
	Score     float64  `json:"score"`
	Algorithm string   `json:"algorithm,omitempty"`
	Distance  *float64 `json:"distance,omitempty"`
}

// Key concatenates keys by slashes.
func Key(keys ...string) string {
	return strings.Join(keys, "/")
}

// Database is a TTL key-value store for responses. Writes are
// unsynchronized last-write-wins.
type Database interface {
	Close() error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SetScores caches a scored list under a key with a TTL.
func SetScores(ctx context.Context, database Database, key string, scores []Score, ttl time.Duration) error {
	start := time.Now()
	defer SetScoresSeconds.Observe(time.Since(start).Seconds())
	encoded, err := json.Marshal(scores)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(database.Set(ctx, key, string(encoded), ttl))
}

// GetScores fetches a cached scored list. ErrObjectNotExist is returned
// on both missing and expired keys.
func GetScores(ctx context.Context, database Database, key string) ([]Score, error) {
	start := time.Now()
	defer GetScoresSeconds.Observe(time.Since(start).Seconds())
	value, err := database.Get(ctx, key)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			MissTotal.Inc()
		}
		return nil, errors.Trace(err)
	}
	HitTotal.Inc()
	var scores []Score
	if err = json.Unmarshal([]byte(value), &scores); err != nil {
		return nil, errors.Trace(err)
	}
	return scores, nil
}

// Open a connection to a cache store.
func Open(path string) (Database, error) {
	if strings.HasPrefix(path, storage.RedisPrefix) {
		addr := path[len(storage.RedisPrefix):]
		return NewRedis(addr), nil
	} else if strings.HasPrefix(path, storage.LocalPrefix) {
		return NewLocalCache(), nil
	}
	return nil, errors.Errorf("unknown cache store: %s", path)
}
