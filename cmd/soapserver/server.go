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

// Command soapserver serves one SOAP pipeline over HTTP and WebSocket.
// WS-Addressing validation, optional filters and duplicate MessageID
// detection run in front of a registered handler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rulego/soaprt/addressing"
	"github.com/rulego/soaprt/addressing/msgid"
	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/builtin/aspect"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/components/filter"
	"github.com/rulego/soaprt/components/invoker"
	"github.com/rulego/soaprt/components/js"
	"github.com/rulego/soaprt/components/transport"
	"github.com/rulego/soaprt/endpoint/rest"
	"github.com/rulego/soaprt/endpoint/websocket"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/pipe"
	"github.com/rulego/soaprt/utils/mqtt"
)

const (
	version = "1.0.0"
	// pipelineId 服务管道ID
	pipelineId = "soap"
	// storeName MessageID存储注册名
	storeName = "default"
)

var (
	//是否是查询版本
	ver bool
	//配置文件
	configFile string
)

func init() {
	flag.StringVar(&configFile, "c", "", "配置文件")
	flag.BoolVar(&ver, "v", false, "打印版本")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Printf("soaprt server v%s", version)
		os.Exit(0)
	}

	c, err := LoadConfig(configFile)
	if err != nil {
		log.Fatal("error:", err)
	}
	logger := initLogger(c)
	logger.Printf("use config file=%s \n", configFile)

	var closers []func()
	var publisher transport.Publisher
	if c.Mqtt.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := mqtt.NewClient(ctx, mqtt.Config{
			Server:   c.Mqtt.Server,
			Username: c.Mqtt.Username,
			Password: c.Mqtt.Password,
			QOS:      c.Mqtt.QOS,
		})
		cancel()
		if err != nil {
			log.Fatal("mqtt error:", err)
		}
		publisher = client
		closers = append(closers, func() { _ = client.Close() })
	}

	config := types.NewConfig(engineOptions(c, logger, publisher)...)

	purge, closeStore, err := setupStore(context.Background(), c, logger)
	if err != nil {
		log.Fatal("msgid store error:", err)
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}
	if purge != nil {
		if err := purge.Start(); err != nil {
			log.Fatal("purge schedule error:", err)
		}
		closers = append(closers, purge.Stop)
	}

	head, err := buildPipeline(c, config)
	if err != nil {
		log.Fatal("pipeline error:", err)
	}
	if _, err := pipe.Register(pipelineId, head, 0); err != nil {
		log.Fatal("pipeline error:", err)
	}

	var engineOpts []engine.Option
	if c.Debug {
		engineOpts = append(engineOpts, engine.WithInterceptors(&aspect.Debug{Logger: logger}))
	}
	e := engine.NewEngine("soaprt", config, engineOpts...)
	restEndpoint := rest.New(config, rest.Config{
		Server:      c.Server,
		CertFile:    c.CertFile,
		CertKeyFile: c.CertKeyFile,
		Users:       c.Users,
	}, e).AddService(c.Path, pipelineId)
	if c.WsPath != "" {
		ws := websocket.New(config, e)
		restEndpoint.Router().GET(c.WsPath, ws.Handler(pipelineId))
	}
	//启动服务
	if err := restEndpoint.Start(); err != nil {
		log.Fatal("error:", err)
	}

	sigs := make(chan os.Signal, 1)
	// 监听系统信号，包括中断信号和终止信号
	signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	restEndpoint.Stop()
	e.Stop()
	pipe.DefaultRegistry.Stop()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	logger.Printf("stopped server")
}

func engineOptions(c Config, logger types.Logger, publisher transport.Publisher) []types.Option {
	opts := []types.Option{
		types.WithLogger(logger),
		types.WithDebug(c.Debug),
		types.WithReplySenders(transport.DefaultReplySenders(transport.ClientConfiguration{}, publisher)),
	}
	if c.Workers > 0 {
		opts = append(opts, types.WithWorkerCount(c.Workers))
	}
	var aspects []types.Aspect
	if c.MaxConcurrency > 0 {
		aspects = append(aspects, aspect.NewConcurrencyLimiterAspect(c.MaxConcurrency))
	}
	if c.Debug {
		aspects = append(aspects, &aspect.Debug{Logger: logger})
	}
	if len(aspects) > 0 {
		opts = append(opts, types.WithAspects(aspects...))
	}
	return opts
}

// buildPipeline builds wsaServer and the optional exprFilter, jsScript and
// wsaDuplicate stages in front of the configured invoker.
func buildPipeline(c Config, config types.Config) (types.Tube, error) {
	terminal, err := base.Registry.NewTube(invoker.Type, config, types.Configuration{"handler": c.Handler}, nil)
	if err != nil {
		return nil, err
	}
	specs := []base.Spec{{
		Type: addressing.ServerType,
		Configuration: types.Configuration{
			"version":     c.Addressing,
			"required":    c.Required,
			"soapVersion": c.SOAPVersion,
		},
	}}
	if c.Filter != "" {
		specs = append(specs, base.Spec{Type: filter.Type, Configuration: types.Configuration{"expr": c.Filter}})
	}
	if c.Script != "" {
		specs = append(specs, base.Spec{Type: js.Type, Configuration: types.Configuration{"jsScript": c.Script}})
	}
	if c.MsgID.Store != "" {
		specs = append(specs, base.Spec{
			Type: addressing.DuplicateType,
			Configuration: types.Configuration{
				"version": c.Addressing,
				"store":   storeName,
				"ttl":     c.MsgID.TTL,
			},
		})
	}
	return base.Registry.BuildChain(config, terminal, specs...)
}

// setupStore registers the MessageID store named in c and returns its purge
// schedule and closer. Both are nil when detection is disabled.
func setupStore(ctx context.Context, c Config, logger types.Logger) (*msgid.PurgeSchedule, func(), error) {
	switch c.MsgID.Store {
	case "":
		return nil, nil, nil
	case "memory":
		store := msgid.NewMemoryStore()
		addressing.Stores.Register(storeName, store)
		return msgid.NewPurgeSchedule(c.MsgID.PurgeSpec, logger, store), nil, nil
	default:
		store, err := msgid.NewSQLStore(msgid.SQLConfiguration{
			DriverName: c.MsgID.Store,
			Dsn:        c.MsgID.Dsn,
			PoolSize:   c.MsgID.PoolSize,
			Table:      c.MsgID.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.CreateTable(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		addressing.Stores.Register(storeName, store)
		return msgid.NewPurgeSchedule(c.MsgID.PurgeSpec, logger, store), func() { _ = store.Close() }, nil
	}
}

// 初始化日志记录器
func initLogger(c Config) *log.Logger {
	if c.LogFile == "" {
		return log.New(os.Stdout, "", log.LstdFlags)
	}
	f, err := os.OpenFile(c.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		log.Fatal(err)
	}
	return log.New(f, "", log.LstdFlags)
}
