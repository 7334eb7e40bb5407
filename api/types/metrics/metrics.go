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

package metrics

import (
	"sync/atomic"
)

// FiberMetrics holds counters of fiber executions.
type FiberMetrics struct {
	Current   int64 // Number of fibers started and not yet completed
	Total     int64 // Total number of started fibers
	Failed    int64 // Fibers completed with an unhandled stage error
	Success   int64 // Fibers completed normally
	Suspended int64 // Number of suspensions
	Faults    int64 // Responses carrying a SOAP fault
}

// NewFiberMetrics creates a new instance of FiberMetrics.
func NewFiberMetrics() *FiberMetrics {
	return &FiberMetrics{}
}

// IncrementCurrent increases the count of current executions.
func (m *FiberMetrics) IncrementCurrent() {
	atomic.AddInt64(&m.Current, 1)
}

// DecrementCurrent decreases the count of current executions.
func (m *FiberMetrics) DecrementCurrent() {
	atomic.AddInt64(&m.Current, -1)
}

// IncrementTotal increases the total count of executions.
func (m *FiberMetrics) IncrementTotal() {
	atomic.AddInt64(&m.Total, 1)
}

// IncrementFailed increases the count of failed executions.
func (m *FiberMetrics) IncrementFailed() {
	atomic.AddInt64(&m.Failed, 1)
}

// IncrementSuccess increases the count of successful executions.
func (m *FiberMetrics) IncrementSuccess() {
	atomic.AddInt64(&m.Success, 1)
}

// IncrementSuspended 挂起次数加一
func (m *FiberMetrics) IncrementSuspended() {
	atomic.AddInt64(&m.Suspended, 1)
}

// IncrementFaults 故障响应数加一
func (m *FiberMetrics) IncrementFaults() {
	atomic.AddInt64(&m.Faults, 1)
}

// Get returns a copy of the current metrics.
func (m *FiberMetrics) Get() FiberMetrics {
	return FiberMetrics{
		Current:   atomic.LoadInt64(&m.Current),
		Total:     atomic.LoadInt64(&m.Total),
		Failed:    atomic.LoadInt64(&m.Failed),
		Success:   atomic.LoadInt64(&m.Success),
		Suspended: atomic.LoadInt64(&m.Suspended),
		Faults:    atomic.LoadInt64(&m.Faults),
	}
}

// Reset resets all metrics to zero.
func (m *FiberMetrics) Reset() {
	atomic.StoreInt64(&m.Current, 0)
	atomic.StoreInt64(&m.Total, 0)
	atomic.StoreInt64(&m.Failed, 0)
	atomic.StoreInt64(&m.Success, 0)
	atomic.StoreInt64(&m.Suspended, 0)
	atomic.StoreInt64(&m.Faults, 0)
}
