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

package types

import (
	"time"

	"github.com/rulego/soaprt/utils/pool"
)

// DefaultWorkerCount is the number of workers of the default fiber pool.
const DefaultWorkerCount = 5

// Pool executes fiber bursts. It is compatible with ants-style goroutine pools.
// Pool 协程池接口，用于执行纤程。
type Pool interface {
	// Submit 提交任务
	Submit(task func()) error
	// Release 释放
	Release()
}

// Aspect is the base interface of fiber aspects. The engine type-asserts
// each aspect to the concrete hook interfaces it knows.
// Aspect 纤程切面基础接口。
type Aspect interface {
	// Order 执行顺序，值越小越先执行
	Order() int
	// New creates the aspect instance bound to one engine.
	New() Aspect
}

// Config defines the configuration of the fiber engine and the components built on it.
// Config 纤程引擎及组件配置。
type Config struct {
	// Pool executes fiber bursts. When nil, a queued worker pool with
	// WorkerCount workers is created by the engine.
	// 执行纤程的协程池，不配置则使用WorkerCount个工作者的默认池。
	Pool Pool
	// WorkerCount is the size of the default pool, defaulting to DefaultWorkerCount.
	WorkerCount int
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Properties are global properties in key-value format, visible to script components.
	Properties Metadata
	// ScriptMaxExecutionTime is the maximum execution time for scripts, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Udf registers custom functions callable from script components.
	Udf map[string]interface{}
	// Aspects 纤程切面
	Aspects []Aspect
	// Debug enables burst tracing through the logger.
	Debug bool
	// ReplySenders deliver non-anonymous replies, keyed by URL scheme.
	// 非匿名应答发送器，按地址协议索引
	ReplySenders map[string]ReplySender
}

// RegisterUdf registers a custom function.
func (c *Config) RegisterUdf(name string, value interface{}) {
	if c.Udf == nil {
		c.Udf = make(map[string]interface{})
	}
	c.Udf[name] = value
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Properties:             NewMetadata(),
		WorkerCount:            DefaultWorkerCount,
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// DefaultPool provides a queued worker pool with the given number of workers.
func DefaultPool(workers int) Pool {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	wp := &pool.WorkerPool{MaxWorkersCount: workers}
	wp.Start()
	return wp
}
