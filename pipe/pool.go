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
	"sync"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/engine"
)

// DefaultMaxIdle is the number of idle copies a Pool keeps by default.
const DefaultMaxIdle = 16

// Pool caches copies of a master pipeline. Take hands out a copy that is used
// by one fiber at a time, Recycle returns it. The master is never executed.
//
// Pool 主管道副本池。Take获取一个副本，同一时刻只被一个纤程使用，Recycle归还。
type Pool struct {
	master  types.Tube
	maxIdle int

	mu     sync.Mutex
	idle   []types.Tube
	closed bool
	once   sync.Once
}

// NewPool creates a pool of copies of master. maxIdle <= 0 uses DefaultMaxIdle.
func NewPool(master types.Tube, maxIdle int) *Pool {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Pool{master: master, maxIdle: maxIdle}
}

// Take 获取一个管道副本
func (p *Pool) Take() (types.Tube, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, types.ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		t := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return t, nil
	}
	p.mu.Unlock()
	return CopyTube(p.master), nil
}

// Recycle returns a copy obtained from Take. Copies beyond the idle limit or
// returned after Close are dropped.
func (p *Pool) Recycle(t types.Tube) {
	if t == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.idle) >= p.maxIdle {
		return
	}
	p.idle = append(p.idle, t)
}

// Idle 空闲副本数量
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close drops the idle copies and destroys the master lineage once.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.idle = nil
	p.mu.Unlock()
	p.once.Do(p.master.PreDestroy)
}

// Process runs request through a pooled copy on a new fiber of e and blocks
// until the response is available.
func (p *Pool) Process(ctx context.Context, e *engine.Engine, request *types.Packet) (*types.Packet, error) {
	t, err := p.Take()
	if err != nil {
		return nil, err
	}
	defer p.Recycle(t)
	return e.CreateFiber(ctx).RunSync(t, request)
}

// Start runs request through a pooled copy on a new fiber of e without
// blocking. The copy is recycled before onComplete is called.
func (p *Pool) Start(ctx context.Context, e *engine.Engine, request *types.Packet, onComplete engine.CompletionCallback) (*engine.Fiber, error) {
	t, err := p.Take()
	if err != nil {
		return nil, err
	}
	f := e.CreateFiber(ctx)
	err = f.Start(t, request, func(response *types.Packet, err error) {
		p.Recycle(t)
		if onComplete != nil {
			onComplete(response, err)
		}
	})
	return f, err
}
