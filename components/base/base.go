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

// Package base provides the building blocks shared by pipeline components:
// the FilterTube base, the component factory registry and helpers that expose
// a packet to expression and script engines.
package base

import (
	"context"
	"errors"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/soap"
)

// InternalErrorReason is the fault reason of a pipeline that panicked.
const InternalErrorReason = "internal server error"

// Keys of the environment exposed to expressions and scripts.
const (
	SOAPActionKey = "soapAction"
	EndpointKey   = "endpoint"
	PayloadKey    = "payload"
	PayloadNsKey  = "payloadNs"
	OneWayKey     = "oneWay"
	HeadersKey    = "headers"
	PropertiesKey = "properties"
	GlobalKey     = "global"
)

// FilterTube is the base of tubes that do some work and pass the packet on to
// Next. Embedders override the callbacks they need and copy Next with CopyNext.
//
// FilterTube 过滤管道基类，处理后将数据包交给下一个管道。
type FilterTube struct {
	Next types.Tube
}

// ProcessRequest invokes Next, or turns the packet around when there is none.
func (b *FilterTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	return b.DoInvoke(request)
}

func (b *FilterTube) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	return types.Return(response)
}

func (b *FilterTube) ProcessException(ctx context.Context, err error) types.NextAction {
	return types.Throw(err)
}

// PreDestroy propagates to the rest of the pipeline.
func (b *FilterTube) PreDestroy() {
	if b.Next != nil {
		b.Next.PreDestroy()
	}
}

// DoInvoke 调用下一个管道
func (b *FilterTube) DoInvoke(p *types.Packet) types.NextAction {
	if b.Next == nil {
		return types.Return(p)
	}
	return types.Invoke(b.Next, p)
}

// CopyNext copies Next with cloner. Call it after cloner.Add.
func (b *FilterTube) CopyNext(cloner types.TubeCloner) types.Tube {
	return cloner.CopyTube(b.Next)
}

// TubeUtils 管道工具
var TubeUtils = &tubeUtils{}

type tubeUtils struct {
}

// GetEnv builds the variables a packet exposes to expressions and scripts.
// The payload is reported by name only, so the message body is not consumed.
func (u *tubeUtils) GetEnv(config types.Config, p *types.Packet) map[string]interface{} {
	env := map[string]interface{}{
		SOAPActionKey: p.SOAPAction,
		EndpointKey:   p.EndpointAddress,
		OneWayKey:     p.OneWay(),
		PropertiesKey: p.Properties().Values(),
		GlobalKey:     map[string]string(config.Properties.Copy()),
	}
	headers := make(map[string]interface{})
	if p.Message != nil {
		env[PayloadKey] = p.Message.PayloadLocalName()
		env[PayloadNsKey] = p.Message.PayloadNamespace()
		p.Message.Headers().Range(func(h types.Header) bool {
			if _, ok := headers[h.LocalName()]; !ok {
				headers[h.LocalName()] = h.StringContent()
			}
			return true
		})
	}
	env[HeadersKey] = headers
	return env
}

// SenderFault answers request with a sender fault carrying reason. The fault
// uses the SOAP version of the request message, SOAP 1.1 without one.
func (u *tubeUtils) SenderFault(request *types.Packet, reason string) *types.Packet {
	version := types.SOAP11
	if request.Message != nil {
		version = request.Message.Version()
	}
	fault := soap.Fault{Code: soap.SenderCode(version), Reason: reason}
	return request.CreateServerResponse(soap.NewFaultMessage(version, fault), "")
}

// PipelineFault answers request with a receiver fault for the completion error
// of a pipeline. A stage failure is reported by its cause only and a panic by
// InternalErrorReason.
func (u *tubeUtils) PipelineFault(request *types.Packet, err error) *types.Packet {
	var stageErr *engine.StageError
	if errors.As(err, &stageErr) && stageErr.Err != nil {
		err = stageErr.Err
	}
	var panicErr *engine.PanicError
	if errors.As(err, &panicErr) {
		err = errors.New(InternalErrorReason)
	}
	return u.ReceiverFault(request, err)
}

// ReceiverFault answers request with a receiver fault for err.
func (u *tubeUtils) ReceiverFault(request *types.Packet, err error) *types.Packet {
	version := types.SOAP11
	if request.Message != nil {
		version = request.Message.Version()
	}
	fault := soap.Fault{Code: soap.ReceiverCode(version), Reason: err.Error()}
	return request.CreateServerResponse(soap.NewFaultMessage(version, fault), "")
}
