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

import "context"

// Configuration is the raw configuration of a component, decoded into the
// component's own configuration struct.
// Configuration 组件配置
type Configuration map[string]interface{}

// ReplySender delivers a reply or fault message to a non-anonymous address
// outside the request's back channel.
// ReplySender 将应答或故障消息发送到非匿名地址。
type ReplySender interface {
	// Send 发送消息到指定地址
	Send(ctx context.Context, address string, msg Message) error
}

// ReplySenderFunc adapts a function to ReplySender.
type ReplySenderFunc func(ctx context.Context, address string, msg Message) error

func (fn ReplySenderFunc) Send(ctx context.Context, address string, msg Message) error {
	return fn(ctx, address, msg)
}
