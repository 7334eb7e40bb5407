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
	"sort"
	"sync"
)

// Metadata 字符串键值对，用于全局属性
type Metadata map[string]string

// NewMetadata creates a new Metadata.
func NewMetadata() Metadata {
	return make(Metadata)
}

// Copy 复制
func (md Metadata) Copy() Metadata {
	out := make(Metadata, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

// GetValue 获取值
func (md Metadata) GetValue(key string) string {
	return md[key]
}

// PutValue 设置值
func (md Metadata) PutValue(key, value string) {
	if key != "" {
		md[key] = value
	}
}

// Scope 属性作用域
type Scope int

const (
	// ApplicationScope 应用作用域，可被任意层读写
	ApplicationScope Scope = iota
	// HandlerScope 处理器作用域，只能由所属层通过SetHandlerScoped修改
	HandlerScope
)

type property struct {
	value interface{}
	scope Scope
}

// Properties holds invocation-scoped key/values of a packet.
// Properties 数据包调用作用域属性，并发安全。
type Properties struct {
	mu    sync.RWMutex
	items map[string]property
}

// NewProperties creates an empty property set.
func NewProperties() *Properties {
	return &Properties{items: make(map[string]property)}
}

// Get 获取属性
func (p *Properties) Get(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.items[key]
	return v.value, ok
}

// GetString returns the property as a string, or "" when absent or not a string.
func (p *Properties) GetString(key string) string {
	v, _ := p.Get(key)
	s, _ := v.(string)
	return s
}

// Has 是否存在
func (p *Properties) Has(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.items[key]
	return ok
}

// Set writes an application scoped property. Keys owned by a handler layer
// cannot be overwritten this way.
func (p *Properties) Set(key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.items[key]; ok && old.scope == HandlerScope {
		return ErrHandlerScopedProperty
	}
	p.items[key] = property{value: value, scope: ApplicationScope}
	return nil
}

// SetHandlerScoped writes a property owned by the calling handler layer.
func (p *Properties) SetHandlerScoped(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[key] = property{value: value, scope: HandlerScope}
}

// ScopeOf 返回属性作用域
func (p *Properties) ScopeOf(key string) (Scope, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.items[key]
	return v.scope, ok
}

// Delete 删除属性
func (p *Properties) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, key)
}

// Keys returns the sorted property keys.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	keys := make([]string, 0, len(p.items))
	for k := range p.items {
		keys = append(keys, k)
	}
	p.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Values returns a snapshot of all property values.
func (p *Properties) Values() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]interface{}, len(p.items))
	for k, v := range p.items {
		out[k] = v.value
	}
	return out
}

// Copy 复制，保留作用域
func (p *Properties) Copy() *Properties {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := &Properties{items: make(map[string]property, len(p.items))}
	for k, v := range p.items {
		out.items[k] = v
	}
	return out
}

// BackChannel is the transport connection a synchronous reply would be written to.
// Close must be idempotent.
//
// BackChannel 传输层回写通道，Close必须幂等。
type BackChannel interface {
	Close() error
}

// Packet is the mutable carrier that flows through a pipeline.
// Packet 在管道中流转的数据包。
type Packet struct {
	// Message SOAP消息，可能为nil（例如单向操作的空响应）
	Message Message
	// EndpointAddress 端点地址
	EndpointAddress string
	// SOAPAction SOAPAction或SOAP 1.2 content type action参数
	SOAPAction string
	// BackChannel 传输回写通道，可选
	BackChannel BackChannel
	// Proxy is non-nil when the packet travels through a client-side pipeline.
	Proxy interface{}

	oneWay     *bool
	properties *Properties
}

// NewPacket creates a request packet.
func NewPacket(msg Message) *Packet {
	return &Packet{Message: msg, properties: NewProperties()}
}

// Properties 调用属性
func (p *Packet) Properties() *Properties {
	if p.properties == nil {
		p.properties = NewProperties()
	}
	return p.properties
}

// SetOneWay marks whether the exchange expects a reply.
func (p *Packet) SetOneWay(oneWay bool) {
	p.oneWay = &oneWay
}

// IsOneWay reports the one-way flag. known is false until SetOneWay is called.
func (p *Packet) IsOneWay() (oneWay bool, known bool) {
	if p.oneWay == nil {
		return false, false
	}
	return *p.oneWay, true
}

// OneWay returns true only when the exchange is known to be one-way.
func (p *Packet) OneWay() bool {
	return p.oneWay != nil && *p.oneWay
}

// IsClient 是否为客户端数据包
func (p *Packet) IsClient() bool {
	return p.Proxy != nil
}

// CloseBackChannel closes the transport back channel if there is one.
func (p *Packet) CloseBackChannel() error {
	if p.BackChannel == nil {
		return nil
	}
	return p.BackChannel.Close()
}

// Copy copies the packet. Properties are copied, the message only when
// includeMessage is true. A consumed message cannot be copied and yields
// ErrMessageConsumed.
func (p *Packet) Copy(includeMessage bool) (*Packet, error) {
	out := &Packet{
		EndpointAddress: p.EndpointAddress,
		SOAPAction:      p.SOAPAction,
		BackChannel:     p.BackChannel,
		Proxy:           p.Proxy,
		oneWay:          p.oneWay,
		properties:      p.Properties().Copy(),
	}
	if includeMessage && p.Message != nil {
		msg, err := p.Message.Copy()
		if err != nil {
			return nil, err
		}
		out.Message = msg
	}
	return out, nil
}

// CreateServerResponse derives a response packet on the server side.
// The invocation properties are shared with the request so that state stored
// on the forward walk is visible on the backward walk.
func (p *Packet) CreateServerResponse(msg Message, action string) *Packet {
	out := &Packet{
		Message:         msg,
		EndpointAddress: p.EndpointAddress,
		BackChannel:     p.BackChannel,
		Proxy:           p.Proxy,
		oneWay:          p.oneWay,
		properties:      p.Properties(),
	}
	if msg != nil {
		out.SOAPAction = action
	}
	return out
}

// CreateClientResponse derives a response packet on the client side.
func (p *Packet) CreateClientResponse(msg Message) *Packet {
	return &Packet{
		Message:         msg,
		EndpointAddress: p.EndpointAddress,
		Proxy:           p.Proxy,
		oneWay:          p.oneWay,
		properties:      p.Properties(),
	}
}
