/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package msgid

import (
	"context"
	"time"

	"github.com/rulego/soaprt/addressing"
	"github.com/rulego/soaprt/utils/cache"
)

var (
	_ addressing.MessageIDStore = (*MemoryStore)(nil)
	_ Purger                    = (*MemoryStore)(nil)
)

// MemoryStore keeps MessageIDs in process memory.
type MemoryStore struct {
	cache *cache.MemoryCache
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.NewMemoryCache()}
}

func (s *MemoryStore) Remember(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.cache.SetIfAbsent(id, struct{}{}, ttl), nil
}

func (s *MemoryStore) Purge(ctx context.Context) (int, error) {
	return s.cache.DeleteExpired(), nil
}

// Len returns the number of stored ids, expired ones included.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
