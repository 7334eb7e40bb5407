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

// Package rest serves SOAP over HTTP. Each route is bound to a named pipeline
// of a pipe.Registry; a request is run through a pooled copy of it on a fiber
// and the response is written to the HTTP response, the back channel.
//
// A pipeline stage that closes the back channel, for example because the
// reply is addressed elsewhere, makes the endpoint answer 202 Accepted at once.
//
// Package rest 提供SOAP over HTTP接入端点。
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/components/transport"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/pipe"
	"github.com/rulego/soaprt/soap"
)

const (
	// DefaultMaxBodySize 请求体默认最大字节数
	DefaultMaxBodySize = 4 << 20
	// DefaultShutdownTimeout Stop等待进行中请求的时间
	DefaultShutdownTimeout = 5 * time.Second
)

// ErrServerStarted 服务已启动
var ErrServerStarted = errors.New("server already started")

// Config Rest 服务配置
type Config struct {
	// Server 监听地址，例如 :9090
	Server      string
	CertFile    string
	CertKeyFile string
	// Users maps user names to bcrypt password hashes. Basic authentication
	// is enforced when it is not empty.
	Users map[string]string
	// MaxBodySize defaults to DefaultMaxBodySize.
	MaxBodySize int64
}

// Rest SOAP接收端点
type Rest struct {
	// Config 配置
	Config Config
	// Pipelines resolves route pipelines, defaulting to pipe.DefaultRegistry.
	Pipelines *pipe.Registry

	engine *engine.Engine
	logger types.Logger
	router *httprouter.Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates an endpoint running its fibers on e.
func New(config types.Config, c Config, e *engine.Engine) *Rest {
	logger := config.Logger
	if logger == nil {
		logger = types.DefaultLogger()
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	return &Rest{
		Config:    c,
		Pipelines: pipe.DefaultRegistry,
		engine:    e,
		logger:    logger,
		router:    httprouter.New(),
	}
}

// AddService routes POST requests on path to the pipeline registered as
// pipelineId. Path parameters are copied into the invocation properties.
func (r *Rest) AddService(path, pipelineId string) *Rest {
	r.router.Handle(http.MethodPost, path, r.handler(pipelineId))
	return r
}

// Router 返回路由器
func (r *Rest) Router() *httprouter.Router {
	return r.router
}

// Start listens on Config.Server and serves in the background.
func (r *Rest) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		return ErrServerStarted
	}
	ln, err := net.Listen("tcp", r.Config.Server)
	if err != nil {
		return err
	}
	r.server = &http.Server{Handler: r.router}
	r.listener = ln
	tls := r.Config.CertKeyFile != "" && r.Config.CertFile != ""
	if tls {
		r.logger.Printf("starting soap server with TLS on %s", ln.Addr())
	} else {
		r.logger.Printf("starting soap server on %s", ln.Addr())
	}
	go func(server *http.Server) {
		var err error
		if tls {
			err = server.ServeTLS(ln, r.Config.CertFile, r.Config.CertKeyFile)
		} else {
			err = server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Printf("soap server stopped: %v", err)
		}
	}(r.server)
	return nil
}

// Addr returns the listening address, or nil before Start.
func (r *Rest) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Stop shuts the server down, waiting for running requests for at most
// DefaultShutdownTimeout.
func (r *Rest) Stop() {
	r.mu.Lock()
	server := r.server
	r.server, r.listener = nil, nil
	r.mu.Unlock()
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		r.logger.Printf("soap server shutdown: %v", err)
	}
}

func (r *Rest) handler(pipelineId string) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		defer func() {
			//捕捉异常
			if e := recover(); e != nil {
				r.logger.Printf("rest handler err :%v", e)
			}
		}()
		if !r.authorized(req) {
			w.Header().Set("WWW-Authenticate", `Basic realm="soap"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		pool, ok := r.Pipelines.Get(pipelineId)
		if !ok {
			http.Error(w, "service not found: "+pipelineId, http.StatusNotFound)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.Config.MaxBodySize))
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		msg, err := soap.Parse(body)
		if err != nil {
			r.writeMessage(w, base.TubeUtils.SenderFault(types.NewPacket(nil), err.Error()))
			return
		}

		bc := &BackChannel{w: w}
		request := types.NewPacket(msg)
		request.EndpointAddress = endpointAddress(req)
		request.SOAPAction = transport.HttpUtils.SOAPAction(req.Header)
		request.BackChannel = bc
		for _, param := range params {
			_ = request.Properties().Set(param.Key, param.Value)
		}

		response, err := pool.Process(req.Context(), r.engine, request)
		if err != nil {
			r.logger.Printf("soap pipeline %s failed: %v", pipelineId, err)
			if !bc.Closed() {
				r.writeMessage(w, base.TubeUtils.PipelineFault(request, err))
			}
			return
		}
		if bc.Closed() {
			return
		}
		if response == nil || response.Message == nil {
			_ = bc.Close()
			return
		}
		bc.markWritten()
		r.writeMessage(w, response)
	}
}

func (r *Rest) authorized(req *http.Request) bool {
	if len(r.Config.Users) == 0 {
		return true
	}
	user, password, ok := req.BasicAuth()
	if !ok {
		return false
	}
	hash, ok := r.Config.Users[user]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (r *Rest) writeMessage(w http.ResponseWriter, response *types.Packet) {
	msg := response.Message
	version := msg.Version()
	transport.HttpUtils.SetSOAPHeaders(w.Header(), version, response.SOAPAction)
	w.WriteHeader(statusOf(msg))
	if _, err := msg.WriteTo(w); err != nil {
		r.logger.Printf("write soap response: %v", err)
	}
}

// statusOf follows the SOAP HTTP bindings: faults are 500, SOAP 1.2 sender
// faults 400.
func statusOf(msg types.Message) int {
	if !msg.IsFault() {
		return http.StatusOK
	}
	if m, ok := msg.(*soap.Message); ok && msg.Version().IsSOAP12() {
		if fault, err := soap.ReadFault(m); err == nil && fault.Code == soap.SenderCode(msg.Version()) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func endpointAddress(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + req.Host + req.URL.Path
}

// BackChannel is the HTTP response of a request. Closing it answers
// 202 Accepted; later closes and writes do nothing.
type BackChannel struct {
	w       http.ResponseWriter
	mu      sync.Mutex
	closed  bool
	written bool
}

var _ types.BackChannel = (*BackChannel)(nil)

func (b *BackChannel) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.written {
		return nil
	}
	b.closed = true
	b.w.WriteHeader(http.StatusAccepted)
	if f, ok := b.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Closed reports whether the channel was closed without a response.
func (b *BackChannel) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *BackChannel) markWritten() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.written = true
}
