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
	"errors"
	"fmt"
)

var (
	// ErrNoCurrentFiber 当前上下文中没有正在运行的纤程
	ErrNoCurrentFiber = errors.New("can be only used from fibers")
	// ErrFiberStarted 纤程已启动
	ErrFiberStarted = errors.New("fiber has already been started")
	// ErrEngineStopped 引擎已停止
	ErrEngineStopped = errors.New("engine is stopped")
)

// StageError is the completion error of a fiber whose stage failed and no
// enclosing stage recovered from the failure.
//
// StageError 某个处理阶段失败且没有上游阶段处理该错误时纤程的完成错误。
type StageError struct {
	// Stage is the type name of the tube that raised the error.
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking tube.
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
