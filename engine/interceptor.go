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

package engine

import (
	"github.com/rulego/soaprt/api/types"
)

// Work runs the rest of an execution burst starting at next and returns the
// tube to continue with when the fiber is resumed.
type Work func(next types.Tube) types.Tube

// Interceptor wraps every execution burst of a fiber, for example to install
// and remove security or tracing context around the goroutine hand-off.
// Execute must call work exactly once and return its result.
//
// Interceptor 包裹纤程的每一次执行，例如在协程切换前后安装和移除上下文。
// Execute 必须且只能调用一次 work 并返回其结果。
type Interceptor interface {
	Execute(f *Fiber, next types.Tube, work Work) types.Tube
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(f *Fiber, next types.Tube, work Work) types.Tube

func (fn InterceptorFunc) Execute(f *Fiber, next types.Tube, work Work) types.Tube {
	return fn(f, next, work)
}

// chain runs interceptors in order around core.
func chain(f *Fiber, interceptors []Interceptor, core Work, next types.Tube) types.Tube {
	var exec func(i int, next types.Tube) types.Tube
	exec = func(i int, next types.Tube) types.Tube {
		if i == len(interceptors) {
			return core(next)
		}
		return interceptors[i].Execute(f, next, func(n types.Tube) types.Tube {
			return exec(i+1, n)
		})
	}
	return exec(0, next)
}
