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

package aspect

import (
	"sync/atomic"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/engine"
)

var (
	_ engine.StartAspect     = (*ConcurrencyLimiterAspect)(nil)
	_ engine.CompletedAspect = (*ConcurrencyLimiterAspect)(nil)
)

// ConcurrencyLimiterAspect limits the number of fibers of an engine that are
// started and not yet completed. A fiber over the limit completes at once
// with types.ErrConcurrencyLimitReached.
//
// ConcurrencyLimiterAspect 限制引擎中已启动但未完成的纤程数量，
// 超过限制的纤程立即以 types.ErrConcurrencyLimitReached 结束。
//
// Usage:
// 使用方法：
//
//	limiter := NewConcurrencyLimiterAspect(100)
//	e := engine.NewEngine("server", types.NewConfig(types.WithAspects(limiter)))
type ConcurrencyLimiterAspect struct {
	Max          int64 // Maximum number of concurrent fibers  最大并发纤程数量
	currentCount int64
}

// NewConcurrencyLimiterAspect creates a limiter allowing max concurrent fibers.
func NewConcurrencyLimiterAspect(max int) *ConcurrencyLimiterAspect {
	return &ConcurrencyLimiterAspect{
		Max: int64(max),
	}
}

// Order 执行顺序，值越低越先执行
func (a *ConcurrencyLimiterAspect) Order() int {
	return 10
}

// New creates an instance with its own counter for each engine.
func (a *ConcurrencyLimiterAspect) New() types.Aspect {
	return &ConcurrencyLimiterAspect{
		Max: a.Max,
	}
}

// Start reserves a slot with compare-and-swap, failing when the limit is reached.
func (a *ConcurrencyLimiterAspect) Start(f *engine.Fiber) error {
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return types.ErrConcurrencyLimitReached
		}
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			return nil
		}
		// 其他协程修改了计数器，重试
	}
}

// Completed releases the slot. It is only called for fibers whose Start succeeded.
func (a *ConcurrencyLimiterAspect) Completed(f *engine.Fiber, response *types.Packet, err error) {
	atomic.AddInt64(&a.currentCount, -1)
}

// Current 当前并发数量
func (a *ConcurrencyLimiterAspect) Current() int64 {
	return atomic.LoadInt64(&a.currentCount)
}
