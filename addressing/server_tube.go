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
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/soap"
	"github.com/rulego/soaprt/utils/maps"
)

// Component types
const (
	ServerType    = "wsaServer"
	ClientType    = "wsaClient"
	DuplicateType = "wsaDuplicate"
)

// Invocation property keys. The properties are owned by the addressing tubes.
const (
	// ServerInbound *Properties of the request
	ServerInbound = "addressing.ServerInbound"
	// ServerOutbound *Properties of the reply
	ServerOutbound = "addressing.ServerOutbound"
	// ClientOutbound *Properties of the client request
	ClientOutbound = "addressing.ClientOutbound"
	// operationKey WSDLOperation of the request
	operationKey = "addressing.Operation"
)

var (
	// ErrUnknownVersion 未知的WS-Addressing版本
	ErrUnknownVersion = errors.New("unknown WS-Addressing version")
	// ErrPortNotFound 端口未注册
	ErrPortNotFound = errors.New("WSDL port not found")
)

func init() {
	base.Registry.Register(ServerType, New)
	base.Registry.Register(ClientType, NewClient)
	base.Registry.Register(DuplicateType, NewDuplicate)
}

// ServerTubeConfiguration 服务端组件配置
type ServerTubeConfiguration struct {
	// Version w3c, member or an addressing namespace. Defaults to w3c.
	Version string
	// Required rejects requests without addressing headers.
	Required bool
	// Port is the name of a port registered in Ports.
	Port string
	// SOAPVersion 1.1 or 1.2, used for faults of requests without message.
	SOAPVersion string
}

// ServerTube validates the addressing headers of requests and addresses the
// replies. Replies to anonymous destinations travel on the back channel,
// replies to the none address are dropped and any other destination is
// served by the ReplySender registered for its URL scheme.
//
// ServerTube 服务端WS-Addressing管道：校验请求头部，为应答添加头部并路由。
type ServerTube struct {
	base.FilterTube
	Config    ServerTubeConfiguration
	validator *Validator
	senders   map[string]types.ReplySender
	logger    types.Logger
}

var _ types.Tube = (*ServerTube)(nil)

// New creates the tube from configuration.
func New(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	var c ServerTubeConfiguration
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return nil, err
	}
	binding, port, err := c.resolve()
	if err != nil {
		return nil, err
	}
	t := NewServerTube(config, binding, port, next)
	t.Config = c
	return t, nil
}

func (c ServerTubeConfiguration) resolve() (Binding, WSDLPort, error) {
	version, ok := VersionOf(c.Version)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownVersion, c.Version)
	}
	binding := StaticBinding{SOAP: types.SOAP11, Addressing: version, Required: c.Required}
	if c.SOAPVersion == types.SOAP12.Name {
		binding.SOAP = types.SOAP12
	}
	var port WSDLPort
	if c.Port != "" {
		if port, ok = Ports.Get(c.Port); !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrPortNotFound, c.Port)
		}
	}
	return binding, port, nil
}

// NewServerTube creates the tube in front of next. port may be nil.
func NewServerTube(config types.Config, binding Binding, port WSDLPort, next types.Tube) *ServerTube {
	logger := config.Logger
	if logger == nil {
		logger = types.DiscardLogger()
	}
	return &ServerTube{
		FilterTube: base.FilterTube{Next: next},
		validator:  NewValidator(binding, port),
		senders:    config.ReplySenders,
		logger:     logger,
	}
}

// Version 使用的WS-Addressing版本
func (t *ServerTube) Version() *Version {
	return t.validator.Version
}

func (t *ServerTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	op := t.validator.Operation(request)
	if op != nil {
		request.Properties().SetHandlerScoped(operationKey, op)
	}
	props, err := t.validator.Validate(request, op)
	if props != nil {
		request.Properties().SetHandlerScoped(ServerInbound, props)
	}
	if err != nil {
		response, ok := t.Version().FaultResponse(request, op, t.soapVersion(), err)
		if !ok {
			return types.Throw(err)
		}
		if response.Message == nil {
			return types.Return(response)
		}
		return t.ProcessResponse(ctx, response)
	}
	if props != nil && !t.isAnonymous(props.ReplyTo) && !t.isAnonymous(props.FaultTo) {
		if err := request.CloseBackChannel(); err != nil {
			t.logger.Printf("addressing: close back channel: %v", err)
		}
	}
	return t.DoInvoke(request)
}

// isAnonymous treats a missing EPR as anonymous.
func (t *ServerTube) isAnonymous(epr *EPR) bool {
	return epr == nil || t.Version().IsAnonymous(epr.Address)
}

func (t *ServerTube) soapVersion() types.SOAPVersion {
	if t.validator.Binding != nil {
		return t.validator.Binding.SOAPVersion()
	}
	return types.SOAP11
}

func (t *ServerTube) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	msg := response.Message
	if msg == nil {
		return types.Return(response)
	}
	props, _ := t.inbound(response)
	if props == nil || props.Action == "" {
		return types.Return(response)
	}
	op, _ := t.operation(response)
	v := t.Version()

	if !msg.IsFault() && props.MessageID == "" && !response.OneWay() && (op == nil || !op.IsOneWay()) {
		faultMsg, _ := v.NewFault(msg.Version(), &MapRequiredError{Header: v.QName(MessageIDName)})
		msg = faultMsg
		response = response.CreateServerResponse(msg, v.DefaultFaultAction())
	}

	dest := t.destination(props, msg.IsFault())
	out := &Properties{
		To:                  dest.Address,
		Action:              t.replyAction(response, op),
		MessageID:           newMessageID(),
		ReferenceParameters: dest.ReferenceParameters,
	}
	if props.MessageID != "" {
		out.RelatesTo = []Relationship{{ID: props.MessageID, Type: v.ReplyRelationship}}
	}
	v.SetHeaders(msg, out)
	response.Properties().SetHandlerScoped(ServerOutbound, out)
	if out.Action != "" {
		response.SOAPAction = out.Action
	}

	switch {
	case v.IsAnonymous(dest.Address):
		return types.Return(response)
	case v.IsNone(dest.Address):
		return types.Return(response.CreateServerResponse(nil, ""))
	}
	if err := response.CloseBackChannel(); err != nil {
		t.logger.Printf("addressing: close back channel: %v", err)
	}
	return t.sendReply(ctx, response, dest.Address)
}

func (t *ServerTube) inbound(p *types.Packet) (*Properties, bool) {
	v, ok := p.Properties().Get(ServerInbound)
	if !ok {
		return nil, false
	}
	props, ok := v.(*Properties)
	return props, ok
}

func (t *ServerTube) operation(p *types.Packet) (WSDLOperation, bool) {
	v, ok := p.Properties().Get(operationKey)
	if !ok {
		return nil, false
	}
	op, ok := v.(WSDLOperation)
	return op, ok
}

// destination is FaultTo for faults when present, otherwise ReplyTo,
// otherwise the anonymous address.
func (t *ServerTube) destination(props *Properties, fault bool) *EPR {
	if fault && props.FaultTo != nil {
		return props.FaultTo
	}
	if props.ReplyTo != nil {
		return props.ReplyTo
	}
	return NewEPR(t.Version().Anonymous)
}

func (t *ServerTube) replyAction(response *types.Packet, op WSDLOperation) string {
	msg := response.Message
	if msg.IsFault() {
		if op != nil {
			if action := op.FaultAction(faultDetailName(msg)); action != "" {
				return action
			}
		}
		return t.Version().DefaultFaultAction()
	}
	if op != nil && op.OutputAction() != "" {
		return op.OutputAction()
	}
	if response.SOAPAction != "" {
		return response.SOAPAction
	}
	if h, ok := msg.Headers().Get(t.Version().Namespace, ActionName); ok && h.StringContent() != "" {
		return h.StringContent()
	}
	return t.Version().UnsetOutputAction()
}

// faultDetailName returns the name of the first fault detail entry.
func faultDetailName(msg types.Message) soap.QName {
	m, ok := msg.(*soap.Message)
	if !ok {
		return soap.QName{}
	}
	fault, err := soap.ReadFault(m)
	if err != nil || len(fault.Detail) == 0 {
		return soap.QName{}
	}
	return soap.NameOf(fault.Detail[0])
}

// sendReply delivers response out of band. Inside a fiber the fiber is
// suspended until the send finished and resumes with a response without
// message; outside a fiber the send is synchronous.
func (t *ServerTube) sendReply(ctx context.Context, response *types.Packet, address string) types.NextAction {
	sender, ok := t.sender(address)
	if !ok {
		t.logger.Printf("addressing: no reply sender for %s", address)
		return types.Return(response.CreateServerResponse(nil, ""))
	}
	done := response.CreateServerResponse(nil, "")
	f, ok := engine.CurrentFiber(ctx)
	if !ok {
		t.send(ctx, sender, address, response.Message)
		return types.Return(done)
	}
	go func() {
		t.send(f.Context(), sender, address, response.Message)
		f.Resume(done)
	}()
	return types.Suspend()
}

func (t *ServerTube) send(ctx context.Context, sender types.ReplySender, address string, msg types.Message) {
	if err := sender.Send(ctx, address, msg); err != nil {
		t.logger.Printf("addressing: send reply to %s: %v", address, err)
	}
}

func (t *ServerTube) sender(address string) (types.ReplySender, bool) {
	u, err := url.Parse(address)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	sender, ok := t.senders[strings.ToLower(u.Scheme)]
	return sender, ok && sender != nil
}

// Copy shares the validator and the reply senders.
func (t *ServerTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &ServerTube{Config: t.Config, validator: t.validator, senders: t.senders, logger: t.logger}
	cloner.Add(t, c)
	c.Next = t.CopyNext(cloner)
	return c
}

func newMessageID() string {
	id, _ := uuid.NewV4()
	return "uuid:" + id.String()
}
