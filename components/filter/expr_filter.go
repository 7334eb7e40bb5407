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

// Package filter provides filter tubes that decide whether a request may
// proceed down the pipeline.
package filter

//组件配置示例：
//[component.exprFilter]
//expr = soapAction == "urn:echo" && "Tenant" in headers
//reason = tenant required
import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/utils/maps"
)

// Type 组件类型
const Type = "exprFilter"

// DefaultReason is the fault reason used when none is configured.
const DefaultReason = "request rejected by filter"

func init() {
	base.Registry.Register(Type, New)
}

// ExprFilterTubeConfiguration 组件配置
type ExprFilterTubeConfiguration struct {
	// Expr 布尔表达式
	Expr string
	// Reason 拒绝时返回的故障原因
	Reason string
}

// ExprFilterTube evaluates an expr-lang expression against the request.
// A true result passes the request on, false answers it with a sender fault
// and an evaluation error aborts the pipeline.
//
// The expression sees `soapAction`, `endpoint`, `payload`, `payloadNs`,
// `oneWay`, `headers` (by local name), `properties` and `global`,
// for example `"Tenant" in headers && payload == "echo"`.
//
// ExprFilterTube 使用expr表达式过滤请求。
type ExprFilterTube struct {
	base.FilterTube
	Config  ExprFilterTubeConfiguration
	config  types.Config
	program *vm.Program
}

// New creates the tube from configuration in front of next.
func New(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	var c ExprFilterTubeConfiguration
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return nil, err
	}
	return NewExprFilterTube(config, c, next)
}

// NewExprFilterTube compiles the expression.
func NewExprFilterTube(config types.Config, c ExprFilterTubeConfiguration, next types.Tube) (*ExprFilterTube, error) {
	program, err := expr.Compile(c.Expr, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter expression: %w", err)
	}
	if c.Reason == "" {
		c.Reason = DefaultReason
	}
	return &ExprFilterTube{
		FilterTube: base.FilterTube{Next: next},
		Config:     c,
		config:     config,
		program:    program,
	}, nil
}

func (x *ExprFilterTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	env := base.TubeUtils.GetEnv(x.config, request)
	out, err := vm.Run(x.program, env)
	if err != nil {
		return types.Throw(err)
	}
	if result, ok := out.(bool); ok && result {
		return x.DoInvoke(request)
	}
	return types.Return(base.TubeUtils.SenderFault(request, x.Config.Reason))
}

// Copy shares the compiled program, which is safe for concurrent use.
func (x *ExprFilterTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &ExprFilterTube{Config: x.Config, config: x.config, program: x.program}
	cloner.Add(x, c)
	c.Next = x.CopyNext(cloner)
	return c
}
