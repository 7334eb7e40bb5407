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
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/api/types/metrics"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/soap"
)

// funcTube runs fn on request and passes responses through.
type funcTube func(ctx context.Context, p *types.Packet) types.NextAction

func (fn funcTube) ProcessRequest(ctx context.Context, p *types.Packet) types.NextAction {
	return fn(ctx, p)
}

func (fn funcTube) ProcessResponse(ctx context.Context, p *types.Packet) types.NextAction {
	return types.Return(p)
}

func (fn funcTube) ProcessException(ctx context.Context, err error) types.NextAction {
	return types.Throw(err)
}

func (fn funcTube) Copy(cloner types.TubeCloner) types.Tube {
	return fn
}

func (fn funcTube) PreDestroy() {}

var echo = funcTube(func(ctx context.Context, p *types.Packet) types.NextAction {
	return types.Return(p)
})

// parking suspends until the fiber is resumed by the test.
var parking = funcTube(func(ctx context.Context, p *types.Packet) types.NextAction {
	return types.Suspend()
})

func newEngine(t *testing.T, aspects ...types.Aspect) *engine.Engine {
	config := types.NewConfig(types.WithLogger(types.DiscardLogger()), types.WithAspects(aspects...))
	e := engine.NewEngine("aspect", config)
	t.Cleanup(e.Stop)
	return e
}

func TestConcurrencyLimiterAspect(t *testing.T) {
	e := newEngine(t, NewConcurrencyLimiterAspect(1))
	limiter := e.Aspects()[0].(*ConcurrencyLimiterAspect)

	first := e.CreateFiber(context.Background())
	require.Nil(t, first.Start(parking, types.NewPacket(nil), nil))
	assert.Equal(t, int64(1), limiter.Current())

	//上一个没执行完，并发超过限制
	var rejected error
	err := e.CreateFiber(context.Background()).Start(echo, types.NewPacket(nil), func(response *types.Packet, err error) {
		rejected = err
	})
	assert.Equal(t, types.ErrConcurrencyLimitReached, err)
	assert.Equal(t, types.ErrConcurrencyLimitReached, rejected)
	assert.Equal(t, int64(1), limiter.Current())

	//都已经执行完，解除并发限制
	first.Resume(types.NewPacket(nil))
	require.Nil(t, first.Join(context.Background()))
	assert.Equal(t, int64(0), limiter.Current())

	_, err = e.CreateFiber(context.Background()).RunSync(echo, types.NewPacket(nil))
	assert.Nil(t, err)
	assert.Equal(t, int64(0), limiter.Current())
}

func TestConcurrencyLimiterAspectNew(t *testing.T) {
	a := NewConcurrencyLimiterAspect(3)
	b := a.New().(*ConcurrencyLimiterAspect)
	assert.Equal(t, int64(3), b.Max)
	assert.NotSame(t, a, b)
	assert.Equal(t, 10, a.Order())
}

func TestMetricsAspect(t *testing.T) {
	m := metrics.NewFiberMetrics()
	e := newEngine(t, NewMetricsAspect(m))

	_, err := e.CreateFiber(nil).RunSync(echo, types.NewPacket(nil))
	require.Nil(t, err)

	failing := funcTube(func(ctx context.Context, p *types.Packet) types.NextAction {
		return types.Throw(errors.New("failed"))
	})
	_, err = e.CreateFiber(nil).RunSync(failing, types.NewPacket(nil))
	require.NotNil(t, err)

	faulting := funcTube(func(ctx context.Context, p *types.Packet) types.NextAction {
		fault := soap.Fault{Code: soap.ReceiverCode(types.SOAP12), Reason: "down"}
		return types.Return(p.CreateServerResponse(soap.NewFaultMessage(types.SOAP12, fault), ""))
	})
	_, err = e.CreateFiber(nil).RunSync(faulting, types.NewPacket(nil))
	require.Nil(t, err)

	f := e.CreateFiber(nil)
	require.Nil(t, f.Start(parking, types.NewPacket(nil), nil))
	assert.Equal(t, int64(1), m.Get().Current)
	f.Resume(types.NewPacket(nil))
	require.Nil(t, f.Join(context.Background()))

	got := m.Get()
	assert.Equal(t, int64(0), got.Current)
	assert.Equal(t, int64(4), got.Total)
	assert.Equal(t, int64(3), got.Success)
	assert.Equal(t, int64(1), got.Failed)
	assert.Equal(t, int64(1), got.Faults)
	assert.Equal(t, int64(1), got.Suspended)

	a := NewMetricsAspect(nil)
	assert.NotNil(t, a.GetMetrics())
	assert.Equal(t, 20, a.Order())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDebug(t *testing.T) {
	out := &syncBuffer{}
	debug := &Debug{Logger: types.NewLogger(log.New(out, "", 0))}
	config := types.NewConfig(types.WithLogger(types.DiscardLogger()), types.WithAspects(debug))
	e := engine.NewEngine("debug", config, engine.WithInterceptors(debug))
	defer e.Stop()

	f := e.CreateFiber(nil)
	require.Nil(t, f.Start(parking, types.NewPacket(nil), nil))
	f.Resume(types.NewPacket(nil))
	require.Nil(t, f.Join(context.Background()))

	logs := out.String()
	name := "[debug] " + f.Name()
	assert.True(t, strings.Contains(logs, name+" start"))
	assert.True(t, strings.Contains(logs, name+" enter next=aspect.funcTube"))
	assert.True(t, strings.Contains(logs, name+" completed"))
	assert.Equal(t, 900, debug.Order())
	assert.Equal(t, "debug", debug.Type())
}
