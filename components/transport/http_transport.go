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

// Package transport provides the client-side HTTP transport tube and the
// reply senders used to deliver replies to non-anonymous addresses.
package transport

//组件配置示例：
//[component.httpTransport]
//server = http://127.0.0.1:9090/soap/echo
//readTimeoutMs = 5000
//enableProxy = true
//proxyScheme = socks5
//proxyHost = 127.0.0.1
//proxyPort = 1080
import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/soap"
	"github.com/rulego/soaprt/utils/maps"
)

// Type 组件类型
const Type = "httpTransport"

// ErrNoEndpoint is returned when neither the packet nor the configuration names an endpoint.
var ErrNoEndpoint = errors.New("no endpoint address")

func init() {
	base.Registry.Register(Type, New)
}

// HTTPError is a non-successful HTTP response without a SOAP envelope.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// HttpTransportTubeConfiguration 组件配置
type HttpTransportTubeConfiguration struct {
	ClientConfiguration `mapstructure:",squash"`
	// Server is the endpoint used when the packet carries none.
	Server string
	// Headers 额外的HTTP请求头
	Headers map[string]string
}

// HttpTransportTube posts the request envelope to the endpoint address and
// answers with the response envelope. It is the last tube of a client pipeline.
//
// 202 Accepted and empty bodies are answered with a response without message.
// Faults returned with status 500 are regular responses.
//
// HttpTransportTube 客户端HTTP传输管道。
type HttpTransportTube struct {
	Config     HttpTransportTubeConfiguration
	httpClient *http.Client
}

var _ types.Tube = (*HttpTransportTube)(nil)

// New creates the tube from configuration. next is ignored.
func New(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	var c HttpTransportTubeConfiguration
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return nil, err
	}
	return NewHttpTransportTube(c), nil
}

// NewHttpTransportTube 创建传输管道
func NewHttpTransportTube(c HttpTransportTubeConfiguration) *HttpTransportTube {
	return &HttpTransportTube{Config: c, httpClient: NewHttpClient(c.ClientConfiguration)}
}

func (x *HttpTransportTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	response, err := x.Do(ctx, request)
	if err != nil {
		return types.Throw(err)
	}
	return types.Return(response)
}

// Do performs the HTTP exchange for request.
func (x *HttpTransportTube) Do(ctx context.Context, request *types.Packet) (*types.Packet, error) {
	endpoint := request.EndpointAddress
	if endpoint == "" {
		endpoint = x.Config.Server
	}
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if request.Message == nil {
		return nil, types.ErrNoMessage
	}
	body, err := request.Message.Bytes()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	HttpUtils.SetSOAPHeaders(req.Header, request.Message.Version(), request.SOAPAction)
	for k, v := range x.Config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusAccepted || len(bytes.TrimSpace(b)) == 0 {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &HTTPError{StatusCode: resp.StatusCode}
		}
		return request.CreateClientResponse(nil), nil
	}
	msg, err := soap.Parse(b)
	if err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
		}
		return nil, err
	}
	return request.CreateClientResponse(msg), nil
}

func (x *HttpTransportTube) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	return types.Return(response)
}

func (x *HttpTransportTube) ProcessException(ctx context.Context, err error) types.NextAction {
	return types.Throw(err)
}

// Copy shares the HTTP client.
func (x *HttpTransportTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &HttpTransportTube{Config: x.Config, httpClient: x.httpClient}
	cloner.Add(x, c)
	return c
}

// PreDestroy closes idle connections.
func (x *HttpTransportTube) PreDestroy() {
	x.httpClient.CloseIdleConnections()
}
