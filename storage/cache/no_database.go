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
)

// NoDatabase means no cache store is attached.
type NoDatabase struct{}

func (NoDatabase) Close() error {
	return ErrNoDatabase
}

func (NoDatabase) Get(_ context.Context, _ string) (string, error) {
	return "", ErrNoDatabase
}

func (NoDatabase) Set(_ context.Context, _, _ string, _ time.Duration) error {
	return ErrNoDatabase
}

func (NoDatabase) Delete(_ context.Context, _ string) error {
	return ErrNoDatabase
}
