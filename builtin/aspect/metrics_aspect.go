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
	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/api/types/metrics"
	"github.com/rulego/soaprt/engine"
)

var (
	_ engine.StartAspect     = (*MetricsAspect)(nil)
	_ engine.CompletedAspect = (*MetricsAspect)(nil)
	_ engine.SuspendAspect   = (*MetricsAspect)(nil)
)

// MetricsAspect counts fiber executions.
// MetricsAspect 纤程执行指标切面
type MetricsAspect struct {
	metrics *metrics.FiberMetrics
}

// NewMetricsAspect creates the aspect. A nil m allocates new counters.
func NewMetricsAspect(m *metrics.FiberMetrics) *MetricsAspect {
	if m == nil {
		m = metrics.NewFiberMetrics()
	}
	return &MetricsAspect{
		metrics: m,
	}
}

func (a *MetricsAspect) Order() int {
	return 20
}

func (a *MetricsAspect) New() types.Aspect {
	if a.metrics == nil {
		a.metrics = metrics.NewFiberMetrics()
	}
	a.metrics.Reset()
	return &MetricsAspect{
		metrics: a.metrics,
	}
}

func (a *MetricsAspect) Start(f *engine.Fiber) error {
	a.metrics.IncrementCurrent()
	a.metrics.IncrementTotal()
	return nil
}

func (a *MetricsAspect) Suspended(f *engine.Fiber) {
	a.metrics.IncrementSuspended()
}

func (a *MetricsAspect) Completed(f *engine.Fiber, response *types.Packet, err error) {
	a.metrics.DecrementCurrent()
	if err != nil {
		a.metrics.IncrementFailed()
		return
	}
	a.metrics.IncrementSuccess()
	if response != nil && response.Message != nil && response.Message.IsFault() {
		a.metrics.IncrementFaults()
	}
}

// GetMetrics 返回当前的指标
func (a *MetricsAspect) GetMetrics() *metrics.FiberMetrics {
	return a.metrics
}
