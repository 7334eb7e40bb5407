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

// Package cache provides an in-memory key-value cache with per-entry expiration.
package cache

import (
	"strings"
	"sync"
	"time"
)

// MemoryCache is an in-memory cache implementation.
// It stores key-value pairs with optional expiration. Expired entries are
// invisible to readers and removed by DeleteExpired.
type MemoryCache struct {
	items map[string]item
	mu    sync.RWMutex
	now   func() time.Time
}

// item represents a cached item with its value and expiration time.
// The expiration time is stored as Unix nano timestamp (int64).
// If expiration is 0, the item will never expire.
type item struct {
	value      interface{}
	expiration int64
}

func (i item) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

func (c *MemoryCache) expiration(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.now().Add(ttl).UnixNano()
}

// Set stores a value with the given time-to-live. A ttl <= 0 never expires.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiration: c.expiration(ttl)}
}

// SetIfAbsent stores the value only when key is missing or expired and
// reports whether it was stored. The check and the store are atomic.
func (c *MemoryCache) SetIfAbsent(key string, value interface{}, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok && !it.expired(c.now().UnixNano()) {
		return false
	}
	c.items[key] = item{value: value, expiration: c.expiration(ttl)}
	return true
}

// Get returns the value of key, or nil when it is missing or expired.
func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	if !ok || it.expired(c.now().UnixNano()) {
		return nil
	}
	return it.value
}

// Has 键是否存在且未过期
func (c *MemoryCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	return ok && !it.expired(c.now().UnixNano())
}

// Delete 删除键
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeleteByPrefix removes every key starting with prefix.
func (c *MemoryCache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// DeleteExpired removes expired entries and returns how many were removed.
// Expired keys are collected under the read lock and deleted in batches under
// the write lock, re-checking each entry before it is removed.
func (c *MemoryCache) DeleteExpired() int {
	now := c.now().UnixNano()

	c.mu.RLock()
	var expiredKeys []string
	for k, v := range c.items {
		if v.expired(now) {
			expiredKeys = append(expiredKeys, k)
		}
	}
	c.mu.RUnlock()

	const batchSize = 300
	removed := 0
	for i := 0; i < len(expiredKeys); i += batchSize {
		end := i + batchSize
		if end > len(expiredKeys) {
			end = len(expiredKeys)
		}
		c.mu.Lock()
		for _, k := range expiredKeys[i:end] {
			// the entry may have been replaced since it was collected
			if it, found := c.items[k]; found && it.expired(now) {
				delete(c.items, k)
				removed++
			}
		}
		c.mu.Unlock()
	}
	return removed
}
