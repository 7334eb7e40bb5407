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

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/utils/maps"
)

// ErrNoAction 请求既没有Action头部也没有SOAPAction
var ErrNoAction = errors.New("addressing: request has no action")

// ClientTubeConfiguration 客户端组件配置
type ClientTubeConfiguration struct {
	// Version w3c, member or an addressing namespace. Defaults to w3c.
	Version string
}

// ClientTube fills the addressing headers of outbound requests and checks
// the cardinality of the responses.
//
// Headers already present on the request are kept. To defaults to the
// endpoint address and Action to the SOAPAction. Requests expecting a reply
// also get a fresh MessageID and an anonymous ReplyTo.
type ClientTube struct {
	base.FilterTube
	Config    ClientTubeConfiguration
	validator *Validator
}

var _ types.Tube = (*ClientTube)(nil)

// NewClient creates the client tube from configuration.
func NewClient(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	var c ClientTubeConfiguration
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return nil, err
	}
	version, ok := VersionOf(c.Version)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, c.Version)
	}
	t := NewClientTube(version, next)
	t.Config = c
	return t, nil
}

// NewClientTube 创建客户端管道
func NewClientTube(version *Version, next types.Tube) *ClientTube {
	return &ClientTube{
		FilterTube: base.FilterTube{Next: next},
		validator:  &Validator{Version: version},
	}
}

func (t *ClientTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	msg := request.Message
	if msg == nil {
		return t.DoInvoke(request)
	}
	v := t.validator.Version
	props, err := v.ReadProperties(msg)
	if err != nil {
		return types.Throw(err)
	}
	if props.To == "" {
		props.To = request.EndpointAddress
	}
	if props.Action == "" {
		props.Action = request.SOAPAction
	}
	if props.Action == "" {
		return types.Throw(ErrNoAction)
	}
	if !request.OneWay() {
		if props.MessageID == "" {
			props.MessageID = newMessageID()
		}
		if props.ReplyTo == nil {
			props.ReplyTo = NewEPR(v.Anonymous)
		}
	}
	v.SetHeaders(msg, props)
	if request.SOAPAction == "" {
		request.SOAPAction = props.Action
	}
	request.Properties().SetHandlerScoped(ClientOutbound, props)
	return t.DoInvoke(request)
}

// ProcessResponse rejects responses with repeated addressing headers.
func (t *ClientTube) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	if _, err := t.validator.ValidateResponse(response); err != nil {
		return types.Throw(err)
	}
	return types.Return(response)
}

func (t *ClientTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &ClientTube{Config: t.Config, validator: t.validator}
	cloner.Add(t, c)
	c.Next = t.CopyNext(cloner)
	return c
}
