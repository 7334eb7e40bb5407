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

// Package engine executes tube pipelines on fibers.
//
// A Fiber walks a chain of tubes forward through ProcessRequest and backward
// through ProcessResponse, keeping the tubes awaiting their response callback
// on a continuation stack. A fiber can suspend while waiting for an external
// event and is resumed on any worker of the engine's pool, so no goroutine is
// dedicated to an in-flight call.
//
// Package engine 在纤程上执行管道。纤程前向调用ProcessRequest，反向调用ProcessResponse，
// 挂起时不占用协程，恢复后可在引擎协程池的任意工作者上继续执行。
//
// Usage:
//
//	e := engine.NewEngine("server", types.NewConfig())
//	defer e.Stop()
//	response, err := e.CreateFiber(ctx).RunSync(head, request)
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rulego/soaprt/api/types"
)

// Option configures an Engine.
type Option func(*Engine)

// WithInterceptors installs interceptors on every fiber created by the engine.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(e *Engine) {
		e.interceptors = append(e.interceptors, interceptors...)
	}
}

// Engine owns the worker pool fibers run on and the aspects applied to them.
// Engine 纤程执行引擎，持有协程池和切面。
type Engine struct {
	id           string
	config       types.Config
	pool         types.Pool
	ownPool      bool
	aspects      []types.Aspect
	interceptors []Interceptor

	seq     int64
	stopped int32
	mu      sync.Mutex
}

// NewEngine creates an engine. Without a configured pool it starts a queued
// worker pool of config.WorkerCount workers.
func NewEngine(id string, config types.Config, opts ...Option) *Engine {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	e := &Engine{
		id:      id,
		config:  config,
		pool:    config.Pool,
		aspects: newAspects(config.Aspects),
	}
	if e.pool == nil {
		e.pool = types.DefaultPool(config.WorkerCount)
		e.ownPool = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Id 引擎ID
func (e *Engine) Id() string {
	return e.id
}

// Config 引擎配置
func (e *Engine) Config() types.Config {
	return e.config
}

// Aspects returns the aspect instances bound to this engine.
func (e *Engine) Aspects() []types.Aspect {
	return e.aspects
}

// CreateFiber creates a fiber that captures ctx. The context is installed
// around every burst of the fiber and inherited by fibers it creates.
func (e *Engine) CreateFiber(ctx context.Context) *Fiber {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFiber(e, atomic.AddInt64(&e.seq, 1), ctx)
	for _, ic := range e.interceptors {
		f.interceptors = append(f.interceptors, ic)
	}
	if e.config.Debug {
		e.config.Logger.Printf("%s created", f.Name())
	}
	return f
}

// Stop releases the pool when the engine created it.
func (e *Engine) Stop() {
	if !atomic.CompareAndSwapInt32(&e.stopped, 0, 1) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ownPool && e.pool != nil {
		e.pool.Release()
	}
}

// schedule hands a runnable fiber to the pool.
func (e *Engine) schedule(f *Fiber) {
	if atomic.LoadInt32(&e.stopped) == 1 {
		f.complete(nil, ErrEngineStopped)
		return
	}
	if err := e.pool.Submit(f.run); err != nil {
		f.complete(nil, err)
	}
}

// start runs the start aspects. It returns the aspects that were entered
// and the first error.
func (e *Engine) start(f *Fiber) ([]types.Aspect, error) {
	for i, a := range e.aspects {
		if sa, ok := a.(StartAspect); ok {
			if err := sa.Start(f); err != nil {
				return e.aspects[:i], err
			}
		}
	}
	return e.aspects, nil
}

func (e *Engine) completed(f *Fiber, entered []types.Aspect, response *types.Packet, err error) {
	for _, a := range entered {
		if ca, ok := a.(CompletedAspect); ok {
			ca.Completed(f, response, err)
		}
	}
	if e.config.Debug {
		e.config.Logger.Printf("%s completed err=%v", f.Name(), err)
	}
}

func (e *Engine) suspended(f *Fiber) {
	for _, a := range e.aspects {
		if sa, ok := a.(SuspendAspect); ok {
			sa.Suspended(f)
		}
	}
	if e.config.Debug {
		e.config.Logger.Printf("%s suspended", f.Name())
	}
}
