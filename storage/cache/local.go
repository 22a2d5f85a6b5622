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
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
)

// LocalCache is an in-process TTL cache for single-node deployments and
// tests.
type LocalCache struct {
	cache *ttlcache.Cache[string, string]
}

// NewLocalCache creates an in-process cache store.
func NewLocalCache() *LocalCache {
	cache := ttlcache.New[string, string]()
	go cache.Start()
	return &LocalCache{cache: cache}
}

func (l *LocalCache) Close() error {
	l.cache.Stop()
	return nil
}

func (l *LocalCache) Get(_ context.Context, key string) (string, error) {
	item := l.cache.Get(key)
	if item == nil || item.IsExpired() {
		return "", errors.Annotate(ErrObjectNotExist, key)
	}
	return item.Value(), nil
}

func (l *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	l.cache.Set(key, value, ttl)
	return nil
}

func (l *LocalCache) Delete(_ context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}
