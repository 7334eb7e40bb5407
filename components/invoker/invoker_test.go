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

package invoker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/pipe"
	"github.com/rulego/soaprt/soap"
)

func newRequest() *types.Packet {
	payload := soap.NewElement(soap.NewQName("urn:calc", "add"), "c")
	payload.SetText("1+2")
	return types.NewPacket(soap.NewMessage(types.SOAP12, payload))
}

func newTestEngine(t *testing.T) *engine.Engine {
	e := engine.NewEngine("invoker", types.NewConfig(types.WithLogger(types.DiscardLogger())))
	t.Cleanup(e.Stop)
	return e
}

func TestEcho(t *testing.T) {
	e := newTestEngine(t)
	tube, err := base.Registry.NewTube(Type, types.NewConfig(), types.Configuration{}, nil)
	require.Nil(t, err)
	assert.Equal(t, EchoHandler, tube.(*InvokerTube).Config.Handler)

	response, err := e.CreateFiber(context.Background()).RunSync(tube, newRequest())
	require.Nil(t, err)
	assert.Equal(t, "add", response.Message.PayloadLocalName())
	assert.Equal(t, "urn:calc", response.Message.PayloadNamespace())
	assert.Equal(t, types.SOAP12, response.Message.Version())
}

func TestHandlerErrorIsReceiverFault(t *testing.T) {
	e := newTestEngine(t)
	tube, err := NewInvokerTube(HandlerFunc(func(ctx context.Context, request *types.Packet) (types.Message, error) {
		return nil, errors.New("division by zero")
	}))
	require.Nil(t, err)

	response, err := e.CreateFiber(context.Background()).RunSync(tube, newRequest())
	require.Nil(t, err)
	require.True(t, response.Message.IsFault())
	fault, err := soap.ReadFault(response.Message.(*soap.Message))
	require.Nil(t, err)
	assert.Equal(t, soap.ReceiverCode(types.SOAP12), fault.Code)
	assert.Equal(t, "division by zero", fault.Reason)
}

func TestOneWayHasNoResponseMessage(t *testing.T) {
	e := newTestEngine(t)
	tube, _ := NewInvokerTube(HandlerFunc(func(ctx context.Context, request *types.Packet) (types.Message, error) {
		return nil, errors.New("ignored")
	}))
	request := newRequest()
	request.SetOneWay(true)
	response, err := e.CreateFiber(context.Background()).RunSync(tube, request)
	require.Nil(t, err)
	assert.Nil(t, response.Message)
}

func TestNilMessageIsEmptyResponse(t *testing.T) {
	e := newTestEngine(t)
	tube, _ := NewInvokerTube(HandlerFunc(func(ctx context.Context, request *types.Packet) (types.Message, error) {
		return nil, nil
	}))
	response, err := e.CreateFiber(context.Background()).RunSync(tube, newRequest())
	require.Nil(t, err)
	require.NotNil(t, response.Message)
	assert.False(t, response.Message.HasPayload())
	assert.Equal(t, types.SOAP12, response.Message.Version())
}

func TestAsyncHandler(t *testing.T) {
	e := newTestEngine(t)
	calls := 0
	tube, err := NewInvokerTube(AsyncHandlerFunc(func(ctx context.Context, request *types.Packet, callback Callback) {
		calls++
		go func() {
			time.Sleep(10 * time.Millisecond)
			msg, err := Echo(ctx, request)
			callback(msg, err)
			// extra calls are ignored
			callback(nil, errors.New("late"))
		}()
	}))
	require.Nil(t, err)

	t.Run("sync", func(t *testing.T) {
		response, err := e.CreateFiber(context.Background()).RunSync(tube, newRequest())
		require.Nil(t, err)
		assert.Equal(t, "add", response.Message.PayloadLocalName())
	})
	t.Run("async", func(t *testing.T) {
		done := make(chan *types.Packet, 1)
		f := e.CreateFiber(context.Background())
		require.Nil(t, f.Start(pipe.CopyTube(tube), newRequest(), func(response *types.Packet, err error) {
			assert.Nil(t, err)
			done <- response
		}))
		select {
		case response := <-done:
			assert.Equal(t, "add", response.Message.PayloadLocalName())
		case <-time.After(2 * time.Second):
			t.Fatal("fiber did not complete")
		}
	})
	assert.Equal(t, 2, calls)
}

func TestAsyncHandlerCallsBackImmediately(t *testing.T) {
	e := newTestEngine(t)
	tube, _ := NewInvokerTube(AsyncHandlerFunc(func(ctx context.Context, request *types.Packet, callback Callback) {
		callback(nil, errors.New("rejected"))
	}))
	response, err := e.CreateFiber(context.Background()).RunSync(tube, newRequest())
	require.Nil(t, err)
	assert.True(t, response.Message.IsFault())
}

func TestAsyncHandlerOutsideFiber(t *testing.T) {
	tube, _ := NewInvokerTube(AsyncHandlerFunc(func(ctx context.Context, request *types.Packet, callback Callback) {}))
	na := tube.ProcessRequest(context.Background(), newRequest())
	assert.Equal(t, types.ThrowKind, na.Kind)
	assert.Equal(t, engine.ErrNoCurrentFiber, na.Err)
}

func TestHandlerRegistry(t *testing.T) {
	Handlers.Register("test", HandlerFunc(func(ctx context.Context, request *types.Packet) (types.Message, error) {
		return nil, nil
	}))
	defer Handlers.Unregister("test")
	assert.Contains(t, Handlers.Names(), "test")
	assert.Contains(t, Handlers.Names(), EchoHandler)

	_, err := New(types.NewConfig(), types.Configuration{"handler": "test"}, nil)
	assert.Nil(t, err)
	_, err = New(types.NewConfig(), types.Configuration{"handler": "missing"}, nil)
	assert.True(t, errors.Is(err, ErrHandlerNotFound))
	_, err = NewInvokerTube("not a handler")
	assert.NotNil(t, err)
}
