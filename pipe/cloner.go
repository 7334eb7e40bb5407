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

// Package pipe clones, adapts and pools tube pipelines.
//
// A master pipeline is never executed directly. Every concurrent caller works
// on a copy obtained through a Cloner, which keeps shared nodes shared and
// terminates on cycles, and a Pool caches such copies between calls.
//
// Package pipe 负责管道的克隆、适配和池化。主管道不直接执行，每个并发调用方使用其克隆副本。
package pipe

import (
	"fmt"

	"github.com/rulego/soaprt/api/types"
)

var (
	_ types.TubeCloner = (*Cloner)(nil)
	_ types.PipeCloner = (*Cloner)(nil)
)

// Cloner copies a graph of tubes or pipes. Every node is copied once, a node
// reachable over several paths maps to a single copy, and cycles terminate
// because a node registers its copy before copying its successors.
//
// Nodes are keyed by identity, so tubes and pipes must be pointer types.
type Cloner struct {
	copies map[interface{}]interface{}
}

// NewCloner 创建克隆器
func NewCloner() *Cloner {
	return &Cloner{copies: make(map[interface{}]interface{})}
}

// CopyTube returns the copy of t, creating it on first use.
func (c *Cloner) CopyTube(t types.Tube) types.Tube {
	if t == nil {
		return nil
	}
	if r, ok := c.copies[t]; ok {
		return r.(types.Tube)
	}
	r := t.Copy(c)
	c.mustRegistered(t)
	return r
}

// Add registers copy as the clone of original.
func (c *Cloner) Add(original, copy types.Tube) {
	c.copies[original] = copy
}

// CopyPipe returns the copy of p, creating it on first use.
func (c *Cloner) CopyPipe(p types.Pipe) types.Pipe {
	if p == nil {
		return nil
	}
	if r, ok := c.copies[p]; ok {
		return r.(types.Pipe)
	}
	r := p.Copy(c)
	c.mustRegistered(p)
	return r
}

// AddPipe registers copy as the clone of original.
func (c *Cloner) AddPipe(original, copy types.Pipe) {
	c.copies[original] = copy
}

// Len 已复制的节点数量
func (c *Cloner) Len() int {
	return len(c.copies)
}

func (c *Cloner) mustRegistered(original interface{}) {
	if _, ok := c.copies[original]; !ok {
		panic(copyNotRegistered(original))
	}
}

func copyNotRegistered(original interface{}) string {
	return fmt.Sprintf("%T.Copy did not register its copy with the cloner", original)
}

// CopyTube copies the pipeline starting at head.
func CopyTube(head types.Tube) types.Tube {
	return NewCloner().CopyTube(head)
}

// CopyPipe copies the pipe graph starting at head.
func CopyPipe(head types.Pipe) types.Pipe {
	return NewCloner().CopyPipe(head)
}
