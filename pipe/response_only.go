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
	"github.com/rulego/soaprt/engine"
)

var _ types.Tube = (*ResponseOnlyTube)(nil)

// ResponseOnlyTube replays only the response half of a lead chain. On request
// it replaces the fiber's continuation stack with a private copy of the lead
// chain up to stop and turns the request around, so the copied tubes see the
// packet in their ProcessResponse in reverse order.
//
// ResponseOnlyTube 仅重放主链路的响应阶段：请求到达时用主链路（到停止管道为止）的私有副本
// 替换纤程续体栈并直接返回。
type ResponseOnlyTube struct {
	lead   types.Tube
	stop   types.Tube
	isLead bool
	conts  []types.Tube
}

// NewResponseOnlyTube snapshots the continuation of lead up to stop. When
// isLead is true the tube itself ends up on top of the replayed stack.
func NewResponseOnlyTube(lead, stop types.Tube, isLead bool) *ResponseOnlyTube {
	t := &ResponseOnlyTube{lead: lead, stop: stop, isLead: isLead}
	t.conts = t.snapshot()
	return t
}

func (t *ResponseOnlyTube) snapshot() []types.Tube {
	cc := NewContinuationCloner(t.stop)
	cc.CopyTube(t.lead)
	conts := cc.Conts()
	if t.isLead {
		conts = append(conts, t)
	}
	return conts
}

// Conts returns the continuation installed on request.
func (t *ResponseOnlyTube) Conts() []types.Tube {
	return append([]types.Tube(nil), t.conts...)
}

func (t *ResponseOnlyTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	f, ok := engine.CurrentFiber(ctx)
	if !ok {
		return types.Throw(engine.ErrNoCurrentFiber)
	}
	f.ResetCont(t.conts)
	return types.Return(request)
}

func (t *ResponseOnlyTube) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	return types.Return(response)
}

func (t *ResponseOnlyTube) ProcessException(ctx context.Context, err error) types.NextAction {
	return types.Throw(err)
}

// Copy creates a tube with its own continuation snapshot. Inside another
// continuation snapshot only the response half of the copy is ever used, so
// no nested snapshot is taken there.
func (t *ResponseOnlyTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &ResponseOnlyTube{lead: t.lead, stop: t.stop, isLead: t.isLead}
	cloner.Add(t, c)
	if _, nested := cloner.(*ContinuationCloner); !nested {
		c.conts = c.snapshot()
	}
	return c
}

func (t *ResponseOnlyTube) PreDestroy() {}
