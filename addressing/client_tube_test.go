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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/soap"
)

// peer answers every request with the message built by respond.
type peer struct {
	base.FilterTube
	request *types.Packet
	respond func(request *types.Packet) types.Message
}

func (p *peer) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	p.request = request
	return types.Return(request.CreateClientResponse(p.respond(request)))
}

func (p *peer) Copy(cloner types.TubeCloner) types.Tube {
	cloner.Add(p, p)
	return p
}

func newClientEngine(t *testing.T) *engine.Engine {
	e := engine.NewEngine("wsa-client", types.NewConfig(types.WithLogger(types.DiscardLogger())))
	t.Cleanup(e.Stop)
	return e
}

func TestClientTubeFillsHeaders(t *testing.T) {
	e := newClientEngine(t)
	p := &peer{respond: func(request *types.Packet) types.Message {
		return soap.NewEmptyMessage(types.SOAP12)
	}}
	tube := NewClientTube(W3C, p)

	request := types.NewPacket(soap.NewEmptyMessage(types.SOAP12))
	request.EndpointAddress = "http://svc"
	request.SOAPAction = "urn:foo"
	request.Proxy = "calc"
	_, err := e.CreateFiber(context.Background()).RunSync(tube, request)
	require.Nil(t, err)

	msg := p.request.Message
	assert.Equal(t, "http://svc", header(t, msg, ToName))
	assert.Equal(t, "urn:foo", header(t, msg, ActionName))
	assert.True(t, strings.HasPrefix(header(t, msg, MessageIDName), "uuid:"))
	props, err := W3C.ReadProperties(msg)
	require.Nil(t, err)
	assert.Equal(t, anonymousW3C, props.ReplyTo.Address)

	stored, ok := p.request.Properties().Get(ClientOutbound)
	require.True(t, ok)
	assert.Equal(t, props.MessageID, stored.(*Properties).MessageID)
}

func TestClientTubeKeepsHeaders(t *testing.T) {
	e := newClientEngine(t)
	p := &peer{respond: func(request *types.Packet) types.Message { return nil }}
	tube := NewClientTube(W3C, p)

	request := types.NewPacket(envelope(t, types.SOAP11,
		text(ActionName, "urn:bar"), text(MessageIDName, "uuid:7"), epr(ReplyToName, "http://client/reply")))
	request.EndpointAddress = "http://svc"
	request.SetOneWay(true)
	request.Proxy = "calc"
	response, err := e.CreateFiber(context.Background()).RunSync(tube, request)
	require.Nil(t, err)
	assert.Nil(t, response.Message)

	props, err := W3C.ReadProperties(p.request.Message)
	require.Nil(t, err)
	assert.Equal(t, "urn:bar", props.Action)
	assert.Equal(t, "uuid:7", props.MessageID)
	assert.Equal(t, "http://client/reply", props.ReplyTo.Address)
	assert.Equal(t, "urn:bar", p.request.SOAPAction)

	oneWay := types.NewPacket(soap.NewEmptyMessage(types.SOAP11))
	oneWay.SOAPAction = "urn:notify"
	oneWay.SetOneWay(true)
	_, err = e.CreateFiber(context.Background()).RunSync(tube, oneWay)
	require.Nil(t, err)
	props, _ = W3C.ReadProperties(p.request.Message)
	assert.Equal(t, "", props.MessageID)
	assert.Nil(t, props.ReplyTo)
}

func TestClientTubeErrors(t *testing.T) {
	e := newClientEngine(t)
	p := &peer{respond: func(request *types.Packet) types.Message {
		return envelope(t, types.SOAP12, text(ActionName, "urn:r"), text(ActionName, "urn:r"))
	}}
	tube := NewClientTube(W3C, p)

	_, err := e.CreateFiber(context.Background()).RunSync(tube, types.NewPacket(soap.NewEmptyMessage(types.SOAP12)))
	assert.True(t, errors.Is(err, ErrNoAction))

	request := types.NewPacket(soap.NewEmptyMessage(types.SOAP12))
	request.SOAPAction = "urn:foo"
	_, err = e.CreateFiber(context.Background()).RunSync(tube, request)
	var invalid *InvalidMapError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, W3C.InvalidCardinalityTag(), invalid.Subsubcode)

	_, err = base.Registry.NewTube(ClientType, types.NewConfig(), types.Configuration{"version": "member"}, nil)
	assert.Nil(t, err)
	_, err = base.Registry.NewTube(ClientType, types.NewConfig(), types.Configuration{"version": "x"}, nil)
	assert.True(t, errors.Is(err, ErrUnknownVersion))
}

// mapStore is a MessageIDStore without expiry.
type mapStore struct {
	mu  sync.Mutex
	ids map[string]bool
	err error
}

func (s *mapStore) Remember(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.ids[id] {
		return false, nil
	}
	s.ids[id] = true
	return true, nil
}

func TestDuplicateMessageID(t *testing.T) {
	f := newFixture(t, true)
	store := &mapStore{ids: make(map[string]bool)}
	f.tube.Next = NewDuplicateTube(W3C, store, 0, f.tube.Next)
	newRequest := func() *types.Packet {
		return types.NewPacket(envelope(t, types.SOAP12,
			text(ActionName, "urn:foo"), text(ToName, "http://svc"), text(MessageIDName, "uuid:9")))
	}

	response := f.run(t, newRequest())
	assert.False(t, response.Message.IsFault())

	response = f.run(t, newRequest())
	require.True(t, response.Message.IsFault())
	fault := readFault(t, response.Message)
	assert.Equal(t, []soap.QName{W3C.InvalidMapTag(), W3C.QName(DuplicateMessageIDName)}, fault.Subcodes)
	assert.Equal(t, "uuid:9", header(t, response.Message, RelatesToName))
	assert.Equal(t, W3C.DefaultFaultAction(), header(t, response.Message, ActionName))
	assert.Equal(t, int32(1), f.handler.calls)

	store.err = errors.New("store down")
	_, err := f.engine.CreateFiber(context.Background()).RunSync(f.tube, newRequest())
	assert.NotNil(t, err)
}

func TestDuplicateFactory(t *testing.T) {
	Stores.Register("memory", &mapStore{ids: make(map[string]bool)})
	tube, err := base.Registry.NewTube(DuplicateType, types.NewConfig(), types.Configuration{"store": "memory", "ttl": "1m"}, nil)
	require.Nil(t, err)
	assert.Equal(t, time.Minute, tube.(*DuplicateTube).Config.TTL)

	tube, err = base.Registry.NewTube(DuplicateType, types.NewConfig(), types.Configuration{"store": "memory"}, nil)
	require.Nil(t, err)
	assert.Equal(t, DefaultMessageIDTTL, tube.(*DuplicateTube).Config.TTL)

	_, err = base.Registry.NewTube(DuplicateType, types.NewConfig(), types.Configuration{"store": "redis"}, nil)
	assert.True(t, errors.Is(err, ErrStoreNotFound))
}
