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

// Package websocket serves SOAP over WebSocket. Every text or binary frame is
// one envelope; the response envelope is written back as a frame of the same
// type. A request whose back channel is closed gets no frame.
//
// Package websocket 提供SOAP over WebSocket接入端点，每帧一个SOAP信封。
package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/components/transport"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/pipe"
	"github.com/rulego/soaprt/soap"
)

// Websocket SOAP over WebSocket 端点
type Websocket struct {
	Upgrader websocket.Upgrader
	// Pipelines defaults to pipe.DefaultRegistry.
	Pipelines *pipe.Registry

	engine *engine.Engine
	logger types.Logger
	router *httprouter.Router
}

// New creates an endpoint running its fibers on e.
func New(config types.Config, e *engine.Engine) *Websocket {
	logger := config.Logger
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &Websocket{
		Pipelines: pipe.DefaultRegistry,
		engine:    e,
		logger:    logger,
		router:    httprouter.New(),
	}
}

// AddService upgrades GET requests on path and runs every frame through the
// pipeline registered as pipelineId.
func (ws *Websocket) AddService(path, pipelineId string) *Websocket {
	ws.router.GET(path, ws.Handler(pipelineId))
	return ws
}

// Router 返回路由器
func (ws *Websocket) Router() *httprouter.Router {
	return ws.router
}

// Handler returns the upgrade handler of pipelineId, for mounting on another
// router.
func (ws *Websocket) Handler(pipelineId string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		pool, ok := ws.Pipelines.Get(pipelineId)
		if !ok {
			http.Error(w, "service not found: "+pipelineId, http.StatusNotFound)
			return
		}
		c, err := ws.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			ws.logger.Printf("upgrade: %v", err)
			return
		}
		defer func() {
			_ = c.Close()
			//捕捉异常
			if e := recover(); e != nil {
				ws.logger.Printf("ws handler err :%v", e)
			}
		}()
		conn := &conn{c: c}
		action := transport.HttpUtils.SOAPAction(r.Header)
		address := "ws://" + r.Host + r.URL.Path
		for {
			mt, data, err := c.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
				continue
			}
			msg, err := soap.Parse(data)
			if err != nil {
				ws.write(conn, mt, base.TubeUtils.SenderFault(types.NewPacket(nil), err.Error()))
				continue
			}
			bc := &backChannel{}
			request := types.NewPacket(msg)
			request.EndpointAddress = address
			request.SOAPAction = action
			request.BackChannel = bc
			for _, param := range params {
				_ = request.Properties().Set(param.Key, param.Value)
			}
			response, err := pool.Process(r.Context(), ws.engine, request)
			if err != nil {
				ws.logger.Printf("soap pipeline %s failed: %v", pipelineId, err)
				if !bc.isClosed() {
					ws.write(conn, mt, base.TubeUtils.PipelineFault(request, err))
				}
				continue
			}
			if bc.isClosed() || response == nil || response.Message == nil {
				continue
			}
			ws.write(conn, mt, response)
		}
	}
}

func (ws *Websocket) write(c *conn, messageType int, response *types.Packet) {
	data, err := response.Message.Bytes()
	if err == nil {
		err = c.write(messageType, data)
	}
	if err != nil {
		ws.logger.Printf("write soap frame: %v", err)
	}
}

// conn serializes frame writes.
type conn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (c *conn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.WriteMessage(messageType, data)
}

// backChannel of one frame. Closing it suppresses the response frame.
type backChannel struct {
	mu     sync.Mutex
	closed bool
}

func (b *backChannel) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *backChannel) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
