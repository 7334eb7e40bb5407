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

package base

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/soaprt/api/types"
)

// ErrComponentNotFound 组件类型未注册
var ErrComponentNotFound = errors.New("component not found")

// Factory creates a tube of one component type in front of next.
type Factory func(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error)

// Registry 组件注册表
var Registry = NewComponentRegistry()

// ComponentRegistry maps component types to factories.
type ComponentRegistry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewComponentRegistry 创建组件注册表
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{factories: make(map[string]Factory)}
}

// Register 注册组件
func (r *ComponentRegistry) Register(componentType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[componentType] = factory
}

// Unregister 删除组件
func (r *ComponentRegistry) Unregister(componentType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, componentType)
}

// NewTube creates a tube of componentType.
func (r *ComponentRegistry) NewTube(componentType string, config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	r.mu.RLock()
	factory, ok := r.factories[componentType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, componentType)
	}
	return factory(config, configuration, next)
}

// Components returns the registered component types, sorted.
func (r *ComponentRegistry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Spec describes one stage of a pipeline built by BuildChain.
type Spec struct {
	Type          string
	Configuration types.Configuration
}

// BuildChain builds the pipeline described by specs, first spec at the head,
// in front of terminal.
func (r *ComponentRegistry) BuildChain(config types.Config, terminal types.Tube, specs ...Spec) (types.Tube, error) {
	next := terminal
	for i := len(specs) - 1; i >= 0; i-- {
		t, err := r.NewTube(specs[i].Type, config, specs[i].Configuration, next)
		if err != nil {
			return nil, err
		}
		next = t
	}
	return next, nil
}
