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

package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rulego/soaprt/api/types"
)

// Reply address schemes.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeWS    = "ws"
	SchemeWSS   = "wss"
	SchemeMQTT  = "mqtt"
)

var (
	_ types.ReplySender = (*HTTPReplySender)(nil)
	_ types.ReplySender = (*WebSocketReplySender)(nil)
	_ types.ReplySender = (*MQTTReplySender)(nil)
)

// messageAction returns the content of the first Action header.
func messageAction(msg types.Message) string {
	action := ""
	msg.Headers().Range(func(h types.Header) bool {
		if h.LocalName() == "Action" {
			action = h.StringContent()
			return false
		}
		return true
	})
	return action
}

// HTTPReplySender posts replies to http and https addresses. Any 2xx status
// counts as delivered.
type HTTPReplySender struct {
	Client *http.Client
	// Action is sent as SOAPAction or content type action parameter.
	Action func(msg types.Message) string
}

// NewHTTPReplySender 创建HTTP应答发送器
func NewHTTPReplySender(config ClientConfiguration) *HTTPReplySender {
	return &HTTPReplySender{Client: NewHttpClient(config), Action: messageAction}
}

func (s *HTTPReplySender) Send(ctx context.Context, address string, msg types.Message) error {
	body, err := msg.Bytes()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(body))
	if err != nil {
		return err
	}
	action := ""
	if s.Action != nil {
		action = s.Action(msg)
	}
	HttpUtils.SetSOAPHeaders(req.Header, msg.Version(), action)
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// WebSocketReplySender dials ws and wss addresses and writes the envelope as
// one text message.
type WebSocketReplySender struct {
	Dialer *websocket.Dialer
}

// NewWebSocketReplySender 创建WebSocket应答发送器
func NewWebSocketReplySender() *WebSocketReplySender {
	return &WebSocketReplySender{Dialer: websocket.DefaultDialer}
}

func (s *WebSocketReplySender) Send(ctx context.Context, address string, msg types.Message) error {
	body, err := msg.Bytes()
	if err != nil {
		return err
	}
	conn, _, err := s.Dialer.DialContext(ctx, address, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err = conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Publisher publishes to a broker topic.
type Publisher interface {
	Publish(topic string, data []byte) error
}

// MQTTReplySender publishes replies addressed as mqtt://broker/topic to the
// topic of the address through a connected client. The broker part of the
// address is informational.
type MQTTReplySender struct {
	Publisher Publisher
}

// NewMQTTReplySender 创建MQTT应答发送器
func NewMQTTReplySender(publisher Publisher) *MQTTReplySender {
	return &MQTTReplySender{Publisher: publisher}
}

func (s *MQTTReplySender) Send(ctx context.Context, address string, msg types.Message) error {
	u, err := url.Parse(address)
	if err != nil {
		return err
	}
	topic := strings.TrimPrefix(u.Path, "/")
	if topic == "" {
		return fmt.Errorf("no topic in reply address %s", address)
	}
	body, err := msg.Bytes()
	if err != nil {
		return err
	}
	return s.Publisher.Publish(topic, body)
}

// DefaultReplySenders returns senders for http, https, ws and wss. publisher,
// when not nil, adds an mqtt sender.
func DefaultReplySenders(config ClientConfiguration, publisher Publisher) map[string]types.ReplySender {
	httpSender := NewHTTPReplySender(config)
	wsSender := NewWebSocketReplySender()
	senders := map[string]types.ReplySender{
		SchemeHTTP:  httpSender,
		SchemeHTTPS: httpSender,
		SchemeWS:    wsSender,
		SchemeWSS:   wsSender,
	}
	if publisher != nil {
		senders[SchemeMQTT] = NewMQTTReplySender(publisher)
	}
	return senders
}
