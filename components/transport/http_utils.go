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
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/rulego/soaprt/api/types"
)

// SOAPActionHeader SOAP 1.1 action header
const SOAPActionHeader = "SOAPAction"

// ClientConfiguration HTTP客户端配置
type ClientConfiguration struct {
	//ReadTimeoutMs 超时，单位毫秒，默认0:不限制
	ReadTimeoutMs int
	//禁用证书验证
	InsecureSkipVerify bool
	//MaxParallelRequestsCount 连接池大小，默认200。0代表不限制
	MaxParallelRequestsCount int
	//EnableProxy 是否开启代理
	EnableProxy bool
	//UseSystemProxyProperties 使用系统配置代理
	UseSystemProxyProperties bool
	//ProxyScheme 代理协议
	ProxyScheme string
	//ProxyHost 代理主机
	ProxyHost string
	//ProxyPort 代理端口
	ProxyPort int
	//ProxyUser 代理用户名
	ProxyUser string
	//ProxyPassword 代理密码
	ProxyPassword string
}

// NewHttpClient 创建http客户端
func NewHttpClient(config ClientConfiguration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}
	transport.MaxConnsPerHost = config.MaxParallelRequestsCount

	if config.EnableProxy {
		if config.UseSystemProxyProperties {
			if proxyURL := HttpUtils.GetSystemProxy(); proxyURL != nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		} else if proxyURL := HttpUtils.BuildProxyURL(config.ProxyScheme, config.ProxyHost, config.ProxyPort, config.ProxyUser, config.ProxyPassword); proxyURL != nil {
			if config.ProxyScheme == "socks5" {
				transport.Proxy = nil
				transport.Dial = HttpUtils.CreateSOCKS5Dialer(proxyURL)
			} else {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{Transport: transport,
		Timeout: time.Duration(config.ReadTimeoutMs) * time.Millisecond}
}

// HttpUtils 全局HttpUtils实例
var HttpUtils = &httpUtils{}

type httpUtils struct{}

// GetSystemProxy 获取系统代理设置
func (h *httpUtils) GetSystemProxy() *url.URL {
	for _, env := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		if proxyStr := os.Getenv(env); proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				return proxyURL
			}
		}
	}
	return nil
}

// BuildProxyURL 构建代理URL
func (h *httpUtils) BuildProxyURL(scheme, host string, port int, user, password string) *url.URL {
	if scheme == "" || host == "" || port == 0 {
		return nil
	}
	u := &url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(port))}
	if user != "" && password != "" {
		u.User = url.UserPassword(user, password)
	}
	return u
}

// CreateSOCKS5Dialer 创建SOCKS5拨号器
func (h *httpUtils) CreateSOCKS5Dialer(proxyURL *url.URL) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var auth *proxy.Auth
		if proxyURL.User != nil {
			if password, ok := proxyURL.User.Password(); ok {
				auth = &proxy.Auth{
					User:     proxyURL.User.Username(),
					Password: password,
				}
			}
		}
		dialer, err := proxy.SOCKS5(network, proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		return dialer.Dial(network, addr)
	}
}

// ContentType returns the content type of a message of version. SOAP 1.2
// carries the action as a media type parameter.
func (h *httpUtils) ContentType(version types.SOAPVersion, action string) string {
	if version.IsSOAP12() && action != "" {
		return fmt.Sprintf("%s; action=%q", version.ContentType, action)
	}
	return version.ContentType
}

// SetSOAPHeaders sets Content-Type and, for SOAP 1.1, the SOAPAction header.
func (h *httpUtils) SetSOAPHeaders(header http.Header, version types.SOAPVersion, action string) {
	header.Set("Content-Type", h.ContentType(version, action))
	if !version.IsSOAP12() {
		header.Set(SOAPActionHeader, strconv.Quote(action))
	}
}

// SOAPAction reads the action of an inbound request: the SOAPAction header
// (1.1) or the action parameter of the content type (1.2).
func (h *httpUtils) SOAPAction(header http.Header) string {
	if v := header.Get(SOAPActionHeader); v != "" {
		if unquoted, err := strconv.Unquote(v); err == nil {
			return unquoted
		}
		return v
	}
	if _, params, err := mime.ParseMediaType(header.Get("Content-Type")); err == nil {
		return params["action"]
	}
	return ""
}
