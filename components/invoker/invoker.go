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

// Package invoker provides the terminal tube that hands a request to the
// application handler of an endpoint.
//
// Handlers are looked up by name when the tube is built from configuration:
//
//	invoker.Handlers.Register("calc", invoker.HandlerFunc(calc))
//	tube, err := base.Registry.NewTube(invoker.Type, config, types.Configuration{"handler": "calc"}, nil)
//
// A handler that also implements AsyncHandler is called asynchronously: the
// fiber is suspended until the handler reports its result.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/soap"
	"github.com/rulego/soaprt/utils/maps"
)

// Type 组件类型
const Type = "invoker"

// EchoHandler is the name Echo is registered under.
const EchoHandler = "echo"

// ErrHandlerNotFound 处理器未注册
var ErrHandlerNotFound = errors.New("handler not found")

func init() {
	base.Registry.Register(Type, New)
	Handlers.Register(EchoHandler, Echo)
}

// Handler answers a request with a response message. A nil message answers
// with an empty response.
type Handler interface {
	Handle(ctx context.Context, request *types.Packet) (types.Message, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, request *types.Packet) (types.Message, error)

func (fn HandlerFunc) Handle(ctx context.Context, request *types.Packet) (types.Message, error) {
	return fn(ctx, request)
}

// Callback reports the result of an asynchronous handler. It must be called
// exactly once, from any goroutine.
type Callback func(msg types.Message, err error)

// AsyncHandler answers a request through callback.
type AsyncHandler interface {
	HandleAsync(ctx context.Context, request *types.Packet, callback Callback)
}

// AsyncHandlerFunc adapts a function to AsyncHandler.
type AsyncHandlerFunc func(ctx context.Context, request *types.Packet, callback Callback)

func (fn AsyncHandlerFunc) HandleAsync(ctx context.Context, request *types.Packet, callback Callback) {
	fn(ctx, request, callback)
}

// Echo answers with a copy of the request body.
var Echo = HandlerFunc(func(ctx context.Context, request *types.Packet) (types.Message, error) {
	if request.Message == nil {
		return nil, nil
	}
	payload, err := request.Message.ReadPayload()
	if err != nil {
		return nil, err
	}
	return soap.NewMessage(request.Message.Version(), payload), nil
})

// Handlers 处理器注册表
var Handlers = &HandlerRegistry{handlers: make(map[string]interface{})}

// HandlerRegistry maps names to Handler or AsyncHandler values.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]interface{}
}

// Register registers a Handler or an AsyncHandler.
func (r *HandlerRegistry) Register(name string, handler interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Unregister 删除处理器
func (r *HandlerRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Get 获取处理器
func (r *HandlerRegistry) Get(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the sorted handler names.
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// InvokerTubeConfiguration 组件配置
type InvokerTubeConfiguration struct {
	// Handler 处理器名称
	Handler string
}

// InvokerTube is the terminal tube of a server pipeline.
//
// Handler errors are answered with a receiver fault. One-way requests are
// answered with a response without message whatever the handler returns.
//
// InvokerTube 服务端管道末端，调用应用处理器。
type InvokerTube struct {
	Config  InvokerTubeConfiguration
	handler Handler
	async   AsyncHandler
}

var _ types.Tube = (*InvokerTube)(nil)

// New creates the tube from configuration. next is ignored: the invoker is
// always the last tube.
func New(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	var c InvokerTubeConfiguration
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return nil, err
	}
	if c.Handler == "" {
		c.Handler = EchoHandler
	}
	h, ok := Handlers.Get(c.Handler)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, c.Handler)
	}
	tube, err := NewInvokerTube(h)
	if err != nil {
		return nil, err
	}
	tube.Config = c
	return tube, nil
}

// NewInvokerTube creates the tube for a Handler or an AsyncHandler.
func NewInvokerTube(handler interface{}) (*InvokerTube, error) {
	t := &InvokerTube{}
	switch h := handler.(type) {
	case AsyncHandler:
		t.async = h
	case Handler:
		t.handler = h
	default:
		return nil, fmt.Errorf("invalid handler type %T", handler)
	}
	return t, nil
}

func (t *InvokerTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	if t.async == nil {
		msg, err := t.handler.Handle(ctx, request)
		return types.Return(t.response(request, msg, err))
	}
	f, ok := engine.CurrentFiber(ctx)
	if !ok {
		return types.Throw(engine.ErrNoCurrentFiber)
	}
	var once sync.Once
	t.async.HandleAsync(ctx, request, func(msg types.Message, err error) {
		once.Do(func() {
			f.Resume(t.response(request, msg, err))
		})
	})
	return types.Suspend()
}

// ProcessResponse passes on the response delivered by Resume.
func (t *InvokerTube) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	return types.Return(response)
}

func (t *InvokerTube) ProcessException(ctx context.Context, err error) types.NextAction {
	return types.Throw(err)
}

func (t *InvokerTube) response(request *types.Packet, msg types.Message, err error) *types.Packet {
	if request.OneWay() {
		return request.CreateServerResponse(nil, "")
	}
	if err != nil {
		return base.TubeUtils.ReceiverFault(request, err)
	}
	if msg == nil {
		version := types.SOAP11
		if request.Message != nil {
			version = request.Message.Version()
		}
		msg = soap.NewEmptyMessage(version)
	}
	return request.CreateServerResponse(msg, "")
}

// Copy shares the handler.
func (t *InvokerTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &InvokerTube{Config: t.Config, handler: t.handler, async: t.async}
	cloner.Add(t, c)
	return c
}

func (t *InvokerTube) PreDestroy() {}
