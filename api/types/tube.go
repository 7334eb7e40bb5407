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

package types

import (
	"context"
	"fmt"
)

// Tube is one processing stage of a pipeline. A fiber calls ProcessRequest on
// the forward walk and ProcessResponse (or ProcessException) on the backward
// walk, in reverse order.
//
// Tube 管道中的一个处理阶段。纤程在前向遍历时调用ProcessRequest，
// 在反向遍历时以相反顺序调用ProcessResponse或ProcessException。
type Tube interface {
	// ProcessRequest 处理请求
	ProcessRequest(ctx context.Context, request *Packet) NextAction
	// ProcessResponse 处理响应
	ProcessResponse(ctx context.Context, response *Packet) NextAction
	// ProcessException is called instead of ProcessResponse when a stage
	// further down the chain failed.
	ProcessException(ctx context.Context, err error) NextAction
	// Copy creates an independent copy for concurrent use. Implementations
	// must call cloner.Add(original, copy) before copying the tubes they reference.
	Copy(cloner TubeCloner) Tube
	// PreDestroy releases resources. Called once per master pipeline lineage.
	PreDestroy()
}

// Pipe is the single-method stage form. It always runs to completion.
// Pipe 单方法处理阶段，总是同步执行完成。
type Pipe interface {
	Process(request *Packet) (*Packet, error)
	// Copy must call cloner.AddPipe(original, copy) before copying the pipes it references.
	Copy(cloner PipeCloner) Pipe
	PreDestroy()
}

// TubeCloner clones a graph of tubes, keeping shared nodes shared.
type TubeCloner interface {
	// CopyTube returns the copy of t, creating it on first use.
	CopyTube(t Tube) Tube
	// Add registers copy as the clone of original.
	Add(original, copy Tube)
}

// PipeCloner clones a graph of pipes.
type PipeCloner interface {
	CopyPipe(p Pipe) Pipe
	AddPipe(original, copy Pipe)
}

// NextActionKind 下一步动作类型
type NextActionKind int

const (
	// InvokeKind invoke the next tube and remember the current one for the response phase
	InvokeKind NextActionKind = iota
	// InvokeAndForgetKind invoke the next tube without a response callback
	InvokeAndForgetKind
	// ReturnKind start the response phase
	ReturnKind
	// SuspendKind pause the fiber, remembering the current tube
	SuspendKind
	// ThrowKind abort with an error, handed to the previous tube's ProcessException
	ThrowKind
)

func (k NextActionKind) String() string {
	switch k {
	case InvokeKind:
		return "INVOKE"
	case InvokeAndForgetKind:
		return "INVOKE_AND_FORGET"
	case ReturnKind:
		return "RETURN"
	case SuspendKind:
		return "SUSPEND"
	case ThrowKind:
		return "THROW"
	default:
		return fmt.Sprintf("NextActionKind(%d)", int(k))
	}
}

// NextAction is returned by value from tube callbacks.
// NextAction 按值返回的下一步动作。
type NextAction struct {
	Kind   NextActionKind
	Next   Tube
	Packet *Packet
	Err    error
}

// Invoke 调用下一个管道并在响应阶段回调当前管道
func Invoke(next Tube, p *Packet) NextAction {
	return NextAction{Kind: InvokeKind, Next: next, Packet: p}
}

// InvokeAndForget 调用下一个管道，不回调当前管道
func InvokeAndForget(next Tube, p *Packet) NextAction {
	return NextAction{Kind: InvokeAndForgetKind, Next: next, Packet: p}
}

// Return 开始响应阶段
func Return(p *Packet) NextAction {
	return NextAction{Kind: ReturnKind, Packet: p}
}

// Suspend 挂起纤程，等待Resume
func Suspend() NextAction {
	return NextAction{Kind: SuspendKind}
}

// Throw 以错误中止
func Throw(err error) NextAction {
	return NextAction{Kind: ThrowKind, Err: err}
}

func (a NextAction) String() string {
	if a.Err != nil {
		return fmt.Sprintf("%s(err=%v)", a.Kind, a.Err)
	}
	return fmt.Sprintf("%s(next=%T)", a.Kind, a.Next)
}
