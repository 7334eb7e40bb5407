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

package addressing

import (
	"sync"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/soap"
)

// Binding is the binding of an endpoint: its SOAP version and the addressing
// feature.
//
// Binding 端点绑定：SOAP版本以及WS-Addressing特性。
type Binding interface {
	SOAPVersion() types.SOAPVersion
	// AddressingVersion returns nil when addressing is not enabled.
	AddressingVersion() *Version
	// AddressingRequired 是否要求WS-Addressing
	AddressingRequired() bool
}

// WSDLOperation is the part of a WSDL operation the addressing tubes need.
type WSDLOperation interface {
	Name() string
	InputAction() string
	OutputAction() string
	// FaultAction returns the action of a fault, or "" for the default one.
	FaultAction(fault soap.QName) string
	// IsInputActionDefault reports whether the input action was derived
	// rather than declared.
	IsInputActionDefault() bool
	IsOneWay() bool
	// Anonymous wsaw:Anonymous取值
	Anonymous() Anonymous
}

// WSDLPort resolves the operation of a request.
type WSDLPort interface {
	Operation(request *types.Packet) (WSDLOperation, bool)
}

// StaticBinding is a Binding with fixed values.
type StaticBinding struct {
	SOAP       types.SOAPVersion
	Addressing *Version
	Required   bool
}

var _ Binding = StaticBinding{}

func (b StaticBinding) SOAPVersion() types.SOAPVersion { return b.SOAP }

func (b StaticBinding) AddressingVersion() *Version { return b.Addressing }

func (b StaticBinding) AddressingRequired() bool { return b.Required }

// StaticOperation is an in-memory WSDLOperation.
type StaticOperation struct {
	OpName string
	// Input is the qualified name of the request payload element.
	Input soap.QName
	// Action wsam:Action of the input message. Empty means the default
	// action, which is then taken from the SOAPAction of the request.
	Action string
	// Output wsam:Action of the output message.
	Output string
	// Faults maps fault detail names to their actions.
	Faults map[soap.QName]string
	OneWay bool
	// AnonymousMode defaults to AnonymousOptional.
	AnonymousMode Anonymous
}

var _ WSDLOperation = (*StaticOperation)(nil)

func (o *StaticOperation) Name() string { return o.OpName }

func (o *StaticOperation) InputAction() string { return o.Action }

func (o *StaticOperation) OutputAction() string { return o.Output }

func (o *StaticOperation) FaultAction(fault soap.QName) string { return o.Faults[fault] }

func (o *StaticOperation) IsInputActionDefault() bool { return o.Action == "" }

func (o *StaticOperation) IsOneWay() bool { return o.OneWay }

func (o *StaticOperation) Anonymous() Anonymous {
	if o.AnonymousMode == "" {
		return AnonymousOptional
	}
	return o.AnonymousMode
}

// StaticPort is an in-memory WSDLPort. Operations are matched by payload
// name first, then by input action.
//
// StaticPort 内存中的端口定义，先按消息体元素名匹配操作，再按Action匹配。
type StaticPort struct {
	operations []*StaticOperation
}

var _ WSDLPort = (*StaticPort)(nil)

// NewStaticPort 创建端口
func NewStaticPort(operations ...*StaticOperation) *StaticPort {
	return &StaticPort{operations: operations}
}

// Operations 端口的全部操作
func (p *StaticPort) Operations() []*StaticOperation {
	return append([]*StaticOperation(nil), p.operations...)
}

func (p *StaticPort) Operation(request *types.Packet) (WSDLOperation, bool) {
	if request == nil {
		return nil, false
	}
	if msg := request.Message; msg != nil && msg.HasPayload() {
		name := soap.NewQName(msg.PayloadNamespace(), msg.PayloadLocalName())
		for _, op := range p.operations {
			if op.Input == name {
				return op, true
			}
		}
	}
	action := request.SOAPAction
	if action == "" {
		action = actionOf(request.Message)
	}
	if action == "" {
		return nil, false
	}
	for _, op := range p.operations {
		if op.Action == action {
			return op, true
		}
	}
	return nil, false
}

// actionOf returns the first Action header in any addressing namespace.
func actionOf(msg types.Message) string {
	if msg == nil {
		return ""
	}
	for _, v := range []*Version{W3C, Member} {
		if h, ok := msg.Headers().Get(v.Namespace, ActionName); ok {
			return h.StringContent()
		}
	}
	return ""
}

// Ports holds the ports addressing tubes built from configuration refer to.
var Ports = &PortRegistry{}

// PortRegistry 端口注册表
type PortRegistry struct {
	ports sync.Map
}

// Register 注册端口
func (r *PortRegistry) Register(name string, port WSDLPort) {
	r.ports.Store(name, port)
}

// Unregister 删除端口
func (r *PortRegistry) Unregister(name string) {
	r.ports.Delete(name)
}

// Get 获取端口
func (r *PortRegistry) Get(name string) (WSDLPort, bool) {
	v, ok := r.ports.Load(name)
	if !ok {
		return nil, false
	}
	return v.(WSDLPort), true
}
