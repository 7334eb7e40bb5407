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

// Package mqtt provides the MQTT publishing client used to deliver replies to
// mqtt:// reply addresses.
//
// The client is built on the Paho MQTT library and supports TLS connections,
// username and password authentication and automatic reconnection.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"
)

// ErrNotConnected 客户端未连接
var ErrNotConnected = errors.New("mqtt client is not connected")

// Config 客户端配置
type Config struct {
	//mqtt broker 地址
	Server string
	//用户名
	Username string
	//密码
	Password string
	//重连重试间隔
	MaxReconnectInterval time.Duration
	QOS                  uint8
	CleanSession         bool
	//client Id, random when empty
	ClientID    string
	CAFile      string
	CertFile    string
	CertKeyFile string
}

// Client mqtt发布客户端
type Client struct {
	client paho.Client
	qos    byte
}

// NewClient connects to the broker, retrying every two seconds until ctx is done.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	if conf.ClientID == "" {
		//随机clientId
		opts.SetClientID("soaprt/" + uuid.Must(uuid.NewV4()).String()[:8])
	} else {
		opts.SetClientID(conf.ClientID)
	}
	if conf.MaxReconnectInterval <= 0 {
		conf.MaxReconnectInterval = time.Second * 60
	}
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)

	tlsconfig, err := newTLSConfig(conf.CAFile, conf.CertFile, conf.CertKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading mqtt certificate files,ca_cert=%s,tls_cert=%s,tls_key=%s: %w", conf.CAFile, conf.CertFile, conf.CertKeyFile, err)
	}
	if tlsconfig != nil {
		opts.SetTLSConfig(tlsconfig)
	}
	b := &Client{client: paho.NewClient(opts), qos: conf.QOS}

	for {
		token := b.client.Connect()
		if token.Wait() && token.Error() == nil {
			return b, nil
		}
		select {
		case <-ctx.Done():
			//context被取消或超时，返回错误
			return nil, fmt.Errorf("connect %s: %w", conf.Server, token.Error())
		case <-time.After(2 * time.Second):
		}
	}
}

// Publish 发布数据
func (b *Client) Publish(topic string, data []byte) error {
	if !b.client.IsConnected() {
		return ErrNotConnected
	}
	if token := b.client.Publish(topic, b.qos, false, data); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// IsConnected 是否已连接
func (b *Client) IsConnected() bool {
	return b.client.IsConnected()
}

func (b *Client) Close() error {
	b.client.Disconnect(500)
	return nil
}

func newTLSConfig(CAFile, certFile, certKeyFile string) (*tls.Config, error) {
	if CAFile == "" && certFile == "" && certKeyFile == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{}

	// Import trusted certificates from CAFile.pem.
	if CAFile != "" {
		caCert, err := os.ReadFile(CAFile)
		if err != nil {
			return nil, err
		}
		certPool := x509.NewCertPool()
		certPool.AppendCertsFromPEM(caCert)

		tlsConfig.RootCAs = certPool
	}

	// Import certificate and the key
	if certFile != "" && certKeyFile != "" {
		kp, err := tls.LoadX509KeyPair(certFile, certKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{kp}
	}
	return tlsConfig, nil
}
