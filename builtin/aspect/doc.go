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

// Package aspect provides built-in fiber aspects and interceptors.
//
// Package aspect 提供内置的纤程切面和拦截器。
//
// Available Built-in Aspects:
// 可用的内置切面：
//
//   - ConcurrencyLimiterAspect: Limits the number of fibers in flight
//     ConcurrencyLimiterAspect：限制同时执行的纤程数量
//
//   - MetricsAspect: Collects fiber execution metrics
//     MetricsAspect：收集纤程执行指标
//
//   - Debug: Logs fiber life cycle events and, installed as an interceptor, every burst
//     Debug：记录纤程生命周期事件，作为拦截器安装时记录每一次执行
//
// Aspect Execution Order:
// 切面执行顺序：
//  1. ConcurrencyLimiterAspect (order: 10)
//  2. MetricsAspect (order: 20)
//  3. Debug (order: 900)
//
// Usage Examples:
// 使用示例：
//
//	debug := &aspect.Debug{}
//	config := types.NewConfig(types.WithAspects(
//		aspect.NewConcurrencyLimiterAspect(100),
//		aspect.NewMetricsAspect(nil),
//		debug,
//	))
//	e := engine.NewEngine("server", config, engine.WithInterceptors(debug))
package aspect
