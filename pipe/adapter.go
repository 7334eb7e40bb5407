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

var _ types.Tube = (*PipeAdapter)(nil)

// PipeAdapter runs a Pipe as the terminal tube of a pipeline.
// PipeAdapter 将Pipe作为管道末端的Tube执行。
type PipeAdapter struct {
	pipe types.Pipe
}

// AdaptPipe wraps p as a tube.
func AdaptPipe(p types.Pipe) *PipeAdapter {
	return &PipeAdapter{pipe: p}
}

// Pipe returns the wrapped pipe.
func (a *PipeAdapter) Pipe() types.Pipe {
	return a.pipe
}

func (a *PipeAdapter) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	response, err := a.pipe.Process(request)
	if err != nil {
		return types.Throw(err)
	}
	return types.Return(response)
}

func (a *PipeAdapter) ProcessResponse(ctx context.Context, response *types.Packet) types.NextAction {
	return types.Return(response)
}

func (a *PipeAdapter) ProcessException(ctx context.Context, err error) types.NextAction {
	return types.Throw(err)
}

// Copy copies the wrapped pipe with the same cloner when it can clone pipes.
func (a *PipeAdapter) Copy(cloner types.TubeCloner) types.Tube {
	c := &PipeAdapter{}
	cloner.Add(a, c)
	if pc, ok := cloner.(types.PipeCloner); ok {
		c.pipe = pc.CopyPipe(a.pipe)
	} else {
		c.pipe = CopyPipe(a.pipe)
	}
	return c
}

func (a *PipeAdapter) PreDestroy() {
	a.pipe.PreDestroy()
}
