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

package pipe

import (
	"errors"
	"sync"

	"github.com/rulego/soaprt/api/types"
)

// ErrEmptyId 管道ID为空
var ErrEmptyId = errors.New("pipeline id is empty")

// DefaultRegistry is the default global registry of named pipelines.
// DefaultRegistry 默认的全局命名管道注册表。
var DefaultRegistry = &Registry{}

// Callbacks are lifecycle hooks of a registry.
type Callbacks struct {
	// OnNew is called after a pipeline was registered.
	OnNew func(id string)
	// OnDeleted is called after a pipeline was removed and closed.
	OnDeleted func(id string)
}

// Registry holds pipeline pools by id.
//
// Registry 按ID管理管道池，并发安全。
//
// Usage:
//
//	pool, _ := registry.New("echo", head, 0)
//	response, err := pool.Process(ctx, e, request)
type Registry struct {
	// entries id -> *Pool
	entries   sync.Map
	Callbacks Callbacks
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{}
}

// New registers master under id. An existing pool with the same id is returned
// unchanged.
func (r *Registry) New(id string, master types.Tube, maxIdle int) (*Pool, error) {
	if id == "" {
		return nil, ErrEmptyId
	}
	if v, ok := r.entries.Load(id); ok {
		return v.(*Pool), nil
	}
	pool := NewPool(master, maxIdle)
	if v, loaded := r.entries.LoadOrStore(id, pool); loaded {
		return v.(*Pool), nil
	}
	if r.Callbacks.OnNew != nil {
		r.Callbacks.OnNew(id)
	}
	return pool, nil
}

// Get 获取指定ID的管道池
func (r *Registry) Get(id string) (*Pool, bool) {
	v, ok := r.entries.Load(id)
	if ok {
		return v.(*Pool), true
	}
	return nil, false
}

// Del closes and removes the pool with id.
func (r *Registry) Del(id string) {
	if v, ok := r.entries.LoadAndDelete(id); ok {
		v.(*Pool).Close()
		if r.Callbacks.OnDeleted != nil {
			r.Callbacks.OnDeleted(id)
		}
	}
}

// Stop closes and removes every pool.
func (r *Registry) Stop() {
	r.entries.Range(func(key, value any) bool {
		r.Del(key.(string))
		return true
	})
}

// Range iterates over the registered pools.
func (r *Registry) Range(f func(id string, pool *Pool) bool) {
	r.entries.Range(func(key, value any) bool {
		return f(key.(string), value.(*Pool))
	})
}

// Register registers master in DefaultRegistry.
func Register(id string, master types.Tube, maxIdle int) (*Pool, error) {
	return DefaultRegistry.New(id, master, maxIdle)
}

// Get retrieves a pool from DefaultRegistry.
func Get(id string) (*Pool, bool) {
	return DefaultRegistry.Get(id)
}

// Del removes a pool from DefaultRegistry.
func Del(id string) {
	DefaultRegistry.Del(id)
}
