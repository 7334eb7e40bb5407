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

// Package js runs JavaScript for script components on pooled goja runtimes.
//
// Every runtime in the pool has the global properties of the Config bound to
// `global`, the Udf entries of the Config installed (JS source strings are
// compiled once and run in each runtime, Go values are bound by name) and the
// component script evaluated. Execute calls one function of the script with a
// watchdog that interrupts the runtime after Config.ScriptMaxExecutionTime.
package js

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/rulego/soaprt/api/types"
)

const (
	// GlobalKey global properties key, call them through the global.xx method
	GlobalKey = "global"
)

// ErrExecutionTimeout is reported when a call ran longer than the configured limit.
var ErrExecutionTimeout = errors.New("js execution timeout")

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool            sync.Pool
	config            types.Config
	jsScript          *goja.Program
	jsUdfProgramCache map[string]*goja.Program
}

// NewGojaJsEngine compiles jsScript and the JS udfs of config. vars are bound
// into every runtime.
func NewGojaJsEngine(config types.Config, jsScript string, vars map[string]interface{}) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = types.DiscardLogger()
	}
	g := &GojaJsEngine{
		config:   config,
		jsScript: program,
	}
	if err = g.PreCompileJs(); err != nil {
		return nil, err
	}
	g.vmPool = sync.Pool{
		New: func() interface{} {
			return g.NewVm(vars)
		},
	}
	return g, nil
}

// PreCompileJs compiles the udfs given as JS source.
func (g *GojaJsEngine) PreCompileJs() error {
	cache := make(map[string]*goja.Program)
	for k, v := range g.config.Udf {
		switch src := v.(type) {
		case string:
			p, err := goja.Compile(k, src, true)
			if err != nil {
				return fmt.Errorf("compile udf %s: %w", k, err)
			}
			cache[k] = p
		case *goja.Program:
			cache[k] = src
		}
	}
	g.jsUdfProgramCache = cache
	return nil
}

// NewVm creates a runtime with globals, udfs and the script installed.
func (g *GojaJsEngine) NewVm(vars map[string]interface{}) *goja.Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			g.config.Logger.Printf("set var %s error: %s", k, err.Error())
		}
	}
	if err := vm.Set(GlobalKey, map[string]string(g.config.Properties.Copy())); err != nil {
		g.config.Logger.Printf("set global properties error: %s", err.Error())
	}
	for k, v := range g.config.Udf {
		var err error
		if p, ok := g.jsUdfProgramCache[k]; ok {
			_, err = vm.RunProgram(p)
		} else {
			err = vm.Set(k, v)
		}
		if err != nil {
			g.config.Logger.Printf("install udf %s error: %s", k, err.Error())
		}
	}

	timer := g.startTimeout(vm)
	_, err := vm.RunProgram(g.jsScript)
	g.stopTimeout(vm, timer)
	if err != nil {
		g.config.Logger.Printf("js vm error: %s", err.Error())
	}
	return vm
}

// Execute calls functionName with args and exports the result.
func (g *GojaJsEngine) Execute(ctx context.Context, functionName string, args ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()
	if ctx != nil {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
	}

	vm := g.vmPool.Get().(*goja.Runtime)
	timer := g.startTimeout(vm)
	defer func() {
		g.stopTimeout(vm, timer)
		g.vmPool.Put(vm)
	}()

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}
	params := make([]goja.Value, len(args))
	for i, v := range args {
		params[i] = vm.ToValue(v)
	}
	res, err := f(goja.Undefined(), params...)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, ErrExecutionTimeout
		}
		return nil, err
	}
	return res.Export(), nil
}

// Stop 释放资源
func (g *GojaJsEngine) Stop() {
}

func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

// stopTimeout stops the watchdog and clears an interrupt that fired after the
// call returned, so the runtime can go back to the pool.
func (g *GojaJsEngine) stopTimeout(vm *goja.Runtime, timer *time.Timer) {
	if timer != nil {
		timer.Stop()
		vm.ClearInterrupt()
	}
}
