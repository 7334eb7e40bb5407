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

import "context"

type fiberKey struct{}

// withFiber binds f to the context of one execution burst.
func withFiber(ctx context.Context, f *Fiber) context.Context {
	return context.WithValue(ctx, fiberKey{}, f)
}

// CurrentFiber returns the fiber executing the tube that received ctx.
// CurrentFiber 返回当前正在执行该处理阶段的纤程。
func CurrentFiber(ctx context.Context) (*Fiber, bool) {
	if ctx == nil {
		return nil, false
	}
	f, ok := ctx.Value(fiberKey{}).(*Fiber)
	return f, ok && f != nil
}

// CreateSibling creates a new fiber on the engine of the current fiber.
// The new fiber inherits ctx. Outside a fiber it returns ErrNoCurrentFiber.
func CreateSibling(ctx context.Context) (*Fiber, error) {
	f, ok := CurrentFiber(ctx)
	if !ok {
		return nil, ErrNoCurrentFiber
	}
	return f.owner.CreateFiber(ctx), nil
}
