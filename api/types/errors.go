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

import "errors"

var (
	// ErrMessageConsumed 消息体已被读取
	ErrMessageConsumed = errors.New("message body has already been consumed")
	// ErrHandlerScopedProperty 处理器作用域属性不能被应用直接覆盖
	ErrHandlerScopedProperty = errors.New("property is handler scoped and cannot be overwritten from application scope")
	// ErrNoMessage 数据包没有消息
	ErrNoMessage = errors.New("packet has no message")
	// ErrConcurrencyLimitReached 并发数已达上限
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")
	// ErrPoolClosed 管道池已关闭
	ErrPoolClosed = errors.New("pipeline pool is closed")
)
