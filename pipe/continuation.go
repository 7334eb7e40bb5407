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

package pipe

import (
	"context"

	"github.com/rulego/soaprt/api/types"
)

var _ types.TubeCloner = (*ContinuationCloner)(nil)

// ContinuationCloner copies the chain in front of a stop tube and records the
// copies in the order they were created, which is the continuation stack a
// fiber would hold after walking that chain forward.
//
// The stop tube itself is replaced by a passthrough placeholder, so nothing
// behind it is copied.
//
// ContinuationCloner 复制停止管道之前的链路，并按创建顺序记录副本作为续体栈。
type ContinuationCloner struct {
	copies map[interface{}]interface{}
	stop   types.Tube
	conts  []types.Tube
}

// NewContinuationCloner creates a cloner that stops at stop.
func NewContinuationCloner(stop types.Tube) *ContinuationCloner {
	return &ContinuationCloner{copies: make(map[interface{}]interface{}), stop: stop}
}

func (c *ContinuationCloner) CopyTube(t types.Tube) types.Tube {
	if t == nil {
		return nil
	}
	if r, ok := c.copies[t]; ok {
		return r.(types.Tube)
	}
	if t == c.stop {
		placeholder := &stopTube{}
		c.copies[t] = placeholder
		return placeholder
	}
	r := t.Copy(c)
	if _, ok := c.copies[t]; !ok {
		panic(copyNotRegistered(t))
	}
	return r
}

// Add registers copy and pushes it on the continuation stack.
func (c *ContinuationCloner) Add(original, copy types.Tube) {
	c.copies[original] = copy
	c.conts = append(c.conts, copy)
}

// DropLast removes the most recently pushed continuation.
func (c *ContinuationCloner) DropLast() {
	if n := len(c.conts); n > 0 {
		c.conts[n-1] = nil
		c.conts = c.conts[:n-1]
	}
}

// Conts returns a copy of the recorded continuation stack, bottom first.
func (c *ContinuationCloner) Conts() []types.Tube {
	return append([]types.Tube(nil), c.conts...)
}

// stopTube stands in for the stop tube inside a continuation snapshot.
type stopTube struct{}

func (t *stopTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	return types.Return(request)
}

func (t *stopTube) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	return types.Return(response)
}

func (t *stopTube) ProcessException(ctx context.Context, err error) types.NextAction {
	return types.Throw(err)
}

func (t *stopTube) Copy(cloner types.TubeCloner) types.Tube {
	cloner.Add(t, t)
	return t
}

func (t *stopTube) PreDestroy() {}
