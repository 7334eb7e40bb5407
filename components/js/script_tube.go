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

// Package js provides the JavaScript script tube.
package js

//组件配置示例：
//[component.jsScript]
//jsScript = if (env.headers.Tenant === undefined) return false; return true;
import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/soap"
	"github.com/rulego/soaprt/utils/js"
	"github.com/rulego/soaprt/utils/maps"
)

// Type 组件类型
const Type = "jsScript"

// FunctionName is the name the configured script body is wrapped into.
const FunctionName = "Process"

// DefaultReason is the fault reason used when the script rejects a request.
const DefaultReason = "request rejected by script"

// ErrUnsupportedResult is returned for script results the tube cannot interpret.
var ErrUnsupportedResult = errors.New("unsupported script result")

func init() {
	base.Registry.Register(Type, New)
}

// ScriptTubeConfiguration 组件配置
type ScriptTubeConfiguration struct {
	// JsScript is the body of `function Process(env, payload)`.
	JsScript string
	// Reason 脚本返回false时的故障原因
	Reason string
}

// ScriptTube runs a JavaScript function on each request.
//
// The script body sees `env` (the same variables as the expression filter) and
// `payload`, the body element serialized as XML or "" when there is none.
// Reading the payload does not consume the request. The return value decides
// what happens next:
//
//   - undefined, null or true: the request continues down the pipeline
//   - false: the request is answered with a sender fault
//   - a string: it is parsed as the response payload and the request is answered
//   - an object: its fields are written to the invocation properties and the
//     request continues
//
// Script errors abort the pipeline.
//
// ScriptTube 使用js脚本处理请求。
type ScriptTube struct {
	base.FilterTube
	Config   ScriptTubeConfiguration
	config   types.Config
	jsEngine *js.GojaJsEngine
}

// New creates the tube from configuration in front of next.
func New(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	var c ScriptTubeConfiguration
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return nil, err
	}
	return NewScriptTube(config, c, next)
}

// NewScriptTube compiles the script.
func NewScriptTube(config types.Config, c ScriptTubeConfiguration, next types.Tube) (*ScriptTube, error) {
	if c.Reason == "" {
		c.Reason = DefaultReason
	}
	jsScript := fmt.Sprintf("function %s(env, payload) { %s }", FunctionName, c.JsScript)
	jsEngine, err := js.NewGojaJsEngine(config, jsScript, nil)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	return &ScriptTube{
		FilterTube: base.FilterTube{Next: next},
		Config:     c,
		config:     config,
		jsEngine:   jsEngine,
	}, nil
}

func (x *ScriptTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	payload, err := peekPayload(request.Message)
	if err != nil {
		return types.Throw(err)
	}
	out, err := x.jsEngine.Execute(ctx, FunctionName, base.TubeUtils.GetEnv(x.config, request), payload)
	if err != nil {
		return types.Throw(err)
	}
	switch result := out.(type) {
	case nil:
		return x.DoInvoke(request)
	case bool:
		if result {
			return x.DoInvoke(request)
		}
		return types.Return(base.TubeUtils.SenderFault(request, x.Config.Reason))
	case string:
		response, err := x.respond(request, result)
		if err != nil {
			return types.Throw(err)
		}
		return types.Return(response)
	case map[string]interface{}:
		for k, v := range result {
			if err := request.Properties().Set(k, v); err != nil {
				return types.Throw(fmt.Errorf("property %s: %w", k, err))
			}
		}
		return x.DoInvoke(request)
	default:
		return types.Throw(fmt.Errorf("%w: %T", ErrUnsupportedResult, out))
	}
}

func (x *ScriptTube) respond(request *types.Packet, payload string) (*types.Packet, error) {
	version := types.SOAP11
	if request.Message != nil {
		version = request.Message.Version()
	}
	var body *etree.Element
	if strings.TrimSpace(payload) != "" {
		doc := etree.NewDocument()
		if err := doc.ReadFromString(payload); err != nil {
			return nil, fmt.Errorf("script response payload: %w", err)
		}
		if body = doc.Root(); body == nil {
			return nil, fmt.Errorf("script response payload: no element")
		}
	}
	return request.CreateServerResponse(soap.NewMessage(version, body), ""), nil
}

// Copy shares the script engine, which pools its runtimes.
func (x *ScriptTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &ScriptTube{Config: x.Config, config: x.config, jsEngine: x.jsEngine}
	cloner.Add(x, c)
	c.Next = x.CopyNext(cloner)
	return c
}

// PreDestroy stops the script engine.
func (x *ScriptTube) PreDestroy() {
	x.jsEngine.Stop()
	x.FilterTube.PreDestroy()
}

// peekPayload serializes the body of msg from a copy, leaving msg unconsumed.
func peekPayload(msg types.Message) (string, error) {
	if msg == nil || !msg.HasPayload() || msg.IsConsumed() {
		return "", nil
	}
	c, err := msg.Copy()
	if err != nil {
		return "", err
	}
	el, err := c.ReadPayload()
	if err != nil || el == nil {
		return "", err
	}
	doc := etree.NewDocument()
	doc.SetRoot(el)
	return doc.WriteToString()
}
