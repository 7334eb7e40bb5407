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

package aspect

import (
	"fmt"
	"time"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/engine"
)

var (
	_ engine.StartAspect     = (*Debug)(nil)
	_ engine.CompletedAspect = (*Debug)(nil)
	_ engine.SuspendAspect   = (*Debug)(nil)
	_ engine.Interceptor     = (*Debug)(nil)
)

// Debug logs fiber life cycle events. Installed with engine.WithInterceptors
// it also logs every execution burst and its duration.
//
// Debug 记录纤程生命周期事件，作为拦截器安装时还记录每一次执行及其耗时。
type Debug struct {
	Logger types.Logger
}

// Order returns 900, so Debug runs after the other built-in aspects.
func (aspect *Debug) Order() int {
	return 900
}

func (aspect *Debug) New() types.Aspect {
	return &Debug{Logger: aspect.Logger}
}

// Type 切面类型
func (aspect *Debug) Type() string {
	return "debug"
}

func (aspect *Debug) Start(f *engine.Fiber) error {
	aspect.log(f, "start")
	return nil
}

func (aspect *Debug) Suspended(f *engine.Fiber) {
	aspect.log(f, "suspended")
}

func (aspect *Debug) Completed(f *engine.Fiber, response *types.Packet, err error) {
	if err != nil {
		aspect.log(f, "completed err="+err.Error())
		return
	}
	aspect.log(f, "completed")
}

// Execute logs the tube a burst starts with and where it stopped.
func (aspect *Debug) Execute(f *engine.Fiber, next types.Tube, work engine.Work) types.Tube {
	start := time.Now()
	aspect.log(f, fmt.Sprintf("enter next=%T", next))
	r := work(next)
	aspect.log(f, fmt.Sprintf("exit next=%T state=%s took=%s", r, f.State(), time.Since(start)))
	return r
}

func (aspect *Debug) log(f *engine.Fiber, event string) {
	logger := aspect.Logger
	if logger == nil {
		logger = f.Owner().Config().Logger
	}
	logger.Printf("[%s] %s %s", f.Owner().Id(), f.Name(), event)
}
