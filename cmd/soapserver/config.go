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

package main

import (
	"gopkg.in/ini.v1"

	"github.com/rulego/soaprt/addressing/msgid"
)

// Config 服务配置，对应ini配置文件
type Config struct {
	// Server http服务器地址
	Server string `ini:"server"`
	// LogFile 日志文件，为空输出到标准输出
	LogFile string `ini:"log_file"`
	// Debug 打印每个请求的处理结果
	Debug bool `ini:"debug"`
	// MaxConcurrency 最大并发请求数，0不限制
	MaxConcurrency int `ini:"max_concurrency"`
	// Workers 执行纤程的工作协程数量
	Workers     int    `ini:"workers"`
	CertFile    string `ini:"cert_file"`
	CertKeyFile string `ini:"cert_key_file"`
	// Path SOAP over HTTP 服务路径
	Path string `ini:"path"`
	// WsPath SOAP over WebSocket 服务路径，为空不启用
	WsPath string `ini:"ws_path"`
	// Handler 处理器名称，默认echo
	Handler string `ini:"handler"`
	// Filter expr表达式，为空不过滤
	Filter string `ini:"filter"`
	// Script body of a js function Process(env, payload)，为空不启用
	Script string `ini:"script"`
	// Addressing w3c or member
	Addressing string `ini:"addressing"`
	// Required 是否要求WS-Addressing头部
	Required bool `ini:"required"`
	// SOAPVersion 1.1 or 1.2
	SOAPVersion string `ini:"soap_version"`
	// Users maps user names to bcrypt password hashes, from the [users] section.
	Users map[string]string `ini:"-"`
	// MsgID MessageID去重配置
	MsgID MsgID `ini:"msgid"`
	// Mqtt mqtt应答发送配置
	Mqtt Mqtt `ini:"mqtt"`
}

// MsgID configures duplicate MessageID detection.
type MsgID struct {
	// Store memory, mysql or postgres. Empty disables detection.
	Store    string `ini:"store"`
	Dsn      string `ini:"dsn"`
	Table    string `ini:"table"`
	PoolSize int    `ini:"pool_size"`
	// TTL 例如 10m
	TTL string `ini:"ttl"`
	// PurgeSpec cron表达式，包含秒
	PurgeSpec string `ini:"purge_spec"`
}

// Mqtt configures the sender of replies addressed to mqtt:// URLs.
type Mqtt struct {
	Enabled  bool   `ini:"enabled"`
	Server   string `ini:"server"`
	Username string `ini:"username"`
	Password string `ini:"password"`
	QOS      uint8  `ini:"qos"`
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	Server:      ":9090",
	Path:        "/soap",
	Handler:     "echo",
	Addressing:  "w3c",
	SOAPVersion: "1.2",
	MsgID: MsgID{
		TTL:       "10m",
		PurgeSpec: msgid.DefaultPurgeSpec,
	},
}

// LoadConfig reads file over DefaultConfig. An empty file name returns the
// defaults.
func LoadConfig(file string) (Config, error) {
	c := DefaultConfig
	if file == "" {
		return c, nil
	}
	cfg, err := ini.Load(file)
	if err != nil {
		return c, err
	}
	if err := cfg.MapTo(&c); err != nil {
		return c, err
	}
	if section, err := cfg.GetSection("users"); err == nil {
		c.Users = section.KeysHash()
	}
	return c, nil
}
