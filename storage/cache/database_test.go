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
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "recommendation/u1/no_location", Key(Recommendations, "u1", "no_location"))
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	store := NewLocalCache()
	defer store.Close()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, errors.NotFound))

	require.NoError(t, store.Set(ctx, "key", "value", time.Minute))
	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	require.NoError(t, store.Delete(ctx, "key"))
	_, err = store.Get(ctx, "key")
	assert.True(t, errors.Is(err, errors.NotFound))

	// expiration
	require.NoError(t, store.Set(ctx, "short", "value", time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	_, err = store.Get(ctx, "short")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestScoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalCache()
	defer store.Close()

	scores := []Score{
		{Id: "1", Score: 0.9, Algorithm: "fast"},
		{Id: "2", Score: 0.8, Algorithm: "fast", Distance: lo.ToPtr(1.5)},
	}
	require.NoError(t, SetScores(ctx, store, Key(Recommendations, "u1"), scores, time.Minute))
	cached, err := GetScores(ctx, store, Key(Recommendations, "u1"))
	require.NoError(t, err)
	assert.Equal(t, scores, cached)

	_, err = GetScores(ctx, store, Key(Recommendations, "u2"))
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestOpen(t *testing.T) {
	store, err := Open("local://")
	require.NoError(t, err)
	assert.IsType(t, &LocalCache{}, store)
	assert.NoError(t, store.Close())

	store, err = Open("redis://localhost:6379")
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, store)
	assert.NoError(t, store.Close())

	_, err = Open("unknown://")
	assert.Error(t, err)
}

func TestNoDatabase(t *testing.T) {
	ctx := context.Background()
	var store NoDatabase
	assert.ErrorIs(t, store.Close(), ErrNoDatabase)
	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, store.Set(ctx, "", "", 0), ErrNoDatabase)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrNoDatabase)
}
