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
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rulego/soaprt/api/types"
)

// State is the life cycle state of a fiber.
type State int32

const (
	// StateRunnable 可运行，等待调度
	StateRunnable State = iota
	// StateRunning 正在某个工作者上执行
	StateRunning
	// StateSuspended 已挂起，等待Resume
	StateSuspended
	// StateCompleted 已完成
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "RUNNABLE"
	case StateRunning:
		return "RUNNING"
	case StateSuspended:
		return "SUSPENDED"
	case StateCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// CompletionCallback receives the final packet of an asynchronously started fiber.
type CompletionCallback func(response *types.Packet, err error)

const initialContsCap = 16

// Fiber is a resumable execution of a tube chain.
//
// The suspend counter is guarded by mu together with the state: Resume may be
// called before the suspending tube has returned Suspend, in which case the
// response is parked and picked up when the suspension is registered, so the
// fiber neither blocks forever nor gets scheduled twice.
//
// Fiber 管道链的可恢复执行单元。
type Fiber struct {
	owner *Engine
	id    int64

	mu             sync.Mutex
	cond           *sync.Cond
	state          State
	started        bool
	synchronous    bool
	suspendedCount int
	resumed        *types.Packet
	resumePending  bool
	interceptors   []Interceptor
	needsToReenter bool
	ctx            context.Context
	onComplete     CompletionCallback
	entered        []types.Aspect
	completed      bool
	result         *types.Packet
	err            error
	done           chan struct{}

	// owned by the goroutine executing the current burst
	next        types.Tube
	packet      *types.Packet
	conts       []types.Tube
	pendingErr  error
	failedStage string
}

func newFiber(owner *Engine, id int64, ctx context.Context) *Fiber {
	f := &Fiber{
		owner: owner,
		id:    id,
		ctx:   ctx,
		conts: make([]types.Tube, 0, initialContsCap),
		done:  make(chan struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Id 纤程ID
func (f *Fiber) Id() int64 {
	return f.id
}

// Name 纤程名称
func (f *Fiber) Name() string {
	return fmt.Sprintf("fiber%d", f.id)
}

// Owner returns the engine that created the fiber.
func (f *Fiber) Owner() *Engine {
	return f.owner
}

// State 当前状态
func (f *Fiber) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Context returns the context installed around every burst.
func (f *Fiber) Context() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

// SetContext replaces the fiber context and returns the previous one.
// It takes effect at the next burst.
func (f *Fiber) SetContext(ctx context.Context) context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	old := f.ctx
	f.ctx = ctx
	return old
}

// Start schedules the fiber to run next with packet on the engine's pool.
// onComplete is invoked exactly once, also when Start fails.
func (f *Fiber) Start(next types.Tube, packet *types.Packet, onComplete CompletionCallback) error {
	f.mu.Lock()
	if f.started || f.completed {
		f.mu.Unlock()
		return ErrFiberStarted
	}
	f.started = true
	f.next = next
	f.packet = packet
	f.onComplete = onComplete
	f.state = StateRunnable
	f.mu.Unlock()

	entered, err := f.owner.start(f)
	f.mu.Lock()
	f.entered = entered
	f.mu.Unlock()
	if err != nil {
		f.complete(nil, err)
		return err
	}
	f.owner.schedule(f)
	return nil
}

// RunSync runs next with packet on the calling goroutine until the chain
// completes, blocking the caller while the fiber is suspended.
//
// Called from a tube of this fiber, it runs a nested chain with its own
// continuation stack and leaves the outer continuations untouched.
func (f *Fiber) RunSync(next types.Tube, packet *types.Packet) (*types.Packet, error) {
	f.mu.Lock()
	nested := f.state == StateRunning
	if f.completed || (f.started && !nested) {
		f.mu.Unlock()
		return nil, ErrFiberStarted
	}
	f.started = true
	oldConts := f.conts
	oldSync := f.synchronous
	oldErr, oldStage := f.pendingErr, f.failedStage
	f.conts = make([]types.Tube, 0, initialContsCap)
	f.synchronous = true
	f.pendingErr, f.failedStage = nil, ""
	f.state = StateRunning
	f.mu.Unlock()

	restore := func() {
		f.mu.Lock()
		f.conts = oldConts
		f.synchronous = oldSync
		f.pendingErr, f.failedStage = oldErr, oldStage
		f.mu.Unlock()
	}

	if !nested {
		entered, err := f.owner.start(f)
		f.mu.Lock()
		f.entered = entered
		f.mu.Unlock()
		if err != nil {
			restore()
			f.complete(nil, err)
			return nil, err
		}
	}

	f.packet = packet
	f.doRun(next)
	response, err := f.packet, f.stageError()

	restore()
	if !nested {
		f.complete(response, err)
	}
	return response, err
}

// Resume delivers the response of a suspended tube. When the last pending
// suspension is released the fiber is rescheduled, or the blocked RunSync
// caller is woken up.
func (f *Fiber) Resume(response *types.Packet) {
	f.mu.Lock()
	f.suspendedCount--
	if f.suspendedCount == 0 && f.state == StateSuspended {
		f.packet = response
		f.resumed, f.resumePending = nil, false
		f.state = StateRunnable
		if f.synchronous {
			f.cond.Broadcast()
			f.mu.Unlock()
			return
		}
		f.mu.Unlock()
		if f.owner.config.Debug {
			f.owner.config.Logger.Printf("%s resumed", f.Name())
		}
		f.owner.schedule(f)
		return
	}
	// The fiber is still running: either Resume overtook the Suspend, or the
	// burst has not finished unwinding yet.
	f.resumed, f.resumePending = response, true
	f.mu.Unlock()
}

// AddInterceptor adds an interceptor. A running burst unwinds and re-enters
// the interceptor chain before executing the next tube.
func (f *Fiber) AddInterceptor(interceptor Interceptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interceptors = append(f.interceptors, interceptor)
	f.needsToReenter = true
}

// RemoveInterceptor removes an interceptor and reports whether it was installed.
func (f *Fiber) RemoveInterceptor(interceptor Interceptor) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ic := range f.interceptors {
		if ic == interceptor {
			f.interceptors = append(f.interceptors[:i:i], f.interceptors[i+1:]...)
			f.needsToReenter = true
			return true
		}
	}
	return false
}

// ResetCont replaces the continuation stack. Only valid from a tube running
// on this fiber; the slice is copied.
func (f *Fiber) ResetCont(conts []types.Tube) {
	next := make([]types.Tube, len(conts), len(conts)+initialContsCap)
	copy(next, conts)
	f.conts = next
}

// ContsSize returns the depth of the continuation stack. Only meaningful from
// a tube running on this fiber.
func (f *Fiber) ContsSize() int {
	return len(f.conts)
}

// Join blocks until the fiber completes or ctx is done.
func (f *Fiber) Join(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the fiber completes.
func (f *Fiber) Done() <-chan struct{} {
	return f.done
}

// Result returns the final packet and error of a completed fiber.
func (f *Fiber) Result() (*types.Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

// run executes bursts on a pool worker until the fiber suspends or completes.
func (f *Fiber) run() {
	for {
		f.mu.Lock()
		f.state = StateRunning
		f.mu.Unlock()

		next, done := f.doRun(f.next)
		f.next = next
		if done {
			f.complete(f.packet, f.stageError())
			return
		}

		f.mu.Lock()
		if f.suspendedCount > 0 {
			f.state = StateSuspended
			f.mu.Unlock()
			f.owner.suspended(f)
			return
		}
		// resumed while the burst was unwinding
		f.applyResumedLocked()
		f.mu.Unlock()
	}
}

// doRun runs one burst through the interceptors, re-entering the chain
// whenever interceptors change mid-burst.
func (f *Fiber) doRun(next types.Tube) (types.Tube, bool) {
	for {
		f.mu.Lock()
		f.needsToReenter = false
		interceptors := append([]Interceptor(nil), f.interceptors...)
		ctx := withFiber(f.ctx, f)
		f.mu.Unlock()

		var done bool
		core := func(n types.Tube) types.Tube {
			var r types.Tube
			r, done = f.loop(ctx, n)
			return r
		}
		if len(interceptors) == 0 {
			next = core(next)
		} else {
			next = chain(f, interceptors, core, next)
		}

		f.mu.Lock()
		reenter := f.needsToReenter
		f.mu.Unlock()
		if done || !reenter {
			return next, done
		}
	}
}

// loop is the trampoline: request phase while next is set, response phase
// popping the continuation stack otherwise.
func (f *Fiber) loop(ctx context.Context, next types.Tube) (types.Tube, bool) {
	for {
		if yield, reenter := f.checkpoint(); yield || reenter {
			return next, false
		}

		var na types.NextAction
		last := next
		if next != nil {
			na = f.invoke(func() types.NextAction {
				return last.ProcessRequest(ctx, f.packet)
			})
		} else {
			if len(f.conts) == 0 {
				return nil, true
			}
			last = f.popCont()
			if err := f.pendingErr; err != nil {
				f.pendingErr = nil
				na = f.invoke(func() types.NextAction {
					return last.ProcessException(ctx, err)
				})
			} else {
				na = f.invoke(func() types.NextAction {
					return last.ProcessResponse(ctx, f.packet)
				})
			}
		}

		switch na.Kind {
		case types.InvokeKind:
			f.packet = na.Packet
			f.pushCont(last)
			next = na.Next
		case types.InvokeAndForgetKind:
			f.packet = na.Packet
			next = na.Next
		case types.ReturnKind:
			f.packet = na.Packet
			next = nil
		case types.SuspendKind:
			f.pushCont(last)
			next = nil
			f.suspend()
		case types.ThrowKind:
			err := na.Err
			if err == nil {
				err = errors.New("tube threw without an error")
			}
			f.fail(last, err)
			next = nil
		default:
			f.fail(last, fmt.Errorf("unknown next action %v", na.Kind))
			next = nil
		}
	}
}

// checkpoint is evaluated between two tube invocations. In synchronous mode
// it blocks while suspended; otherwise it reports that the burst must yield.
func (f *Fiber) checkpoint() (yield bool, reenter bool) {
	f.mu.Lock()
	if f.synchronous && f.suspendedCount > 0 {
		f.mu.Unlock()
		f.owner.suspended(f)
		f.mu.Lock()
		for f.suspendedCount > 0 {
			f.state = StateSuspended
			f.cond.Wait()
		}
		f.state = StateRunning
	}
	defer f.mu.Unlock()
	if f.suspendedCount > 0 {
		return true, false
	}
	f.applyResumedLocked()
	return false, f.needsToReenter
}

func (f *Fiber) applyResumedLocked() {
	if f.resumePending && f.suspendedCount == 0 {
		f.packet = f.resumed
		f.resumed, f.resumePending = nil, false
	}
}

func (f *Fiber) suspend() {
	f.mu.Lock()
	f.suspendedCount++
	f.mu.Unlock()
}

func (f *Fiber) fail(stage types.Tube, err error) {
	f.pendingErr = err
	f.failedStage = fmt.Sprintf("%T", stage)
	f.packet = nil
}

// invoke calls a tube, turning a panic into a thrown error.
func (f *Fiber) invoke(fn func() types.NextAction) (na types.NextAction) {
	defer func() {
		if r := recover(); r != nil {
			na = types.Throw(&PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()
	return fn()
}

func (f *Fiber) pushCont(t types.Tube) {
	f.conts = append(f.conts, t)
}

func (f *Fiber) popCont() types.Tube {
	n := len(f.conts) - 1
	t := f.conts[n]
	f.conts[n] = nil
	f.conts = f.conts[:n]
	return t
}

// stageError converts an unhandled failure into the completion error.
func (f *Fiber) stageError() error {
	if f.pendingErr == nil {
		return nil
	}
	err := &StageError{Stage: f.failedStage, Err: f.pendingErr}
	f.pendingErr = nil
	f.packet = nil
	return err
}

func (f *Fiber) complete(response *types.Packet, err error) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return
	}
	f.completed = true
	f.state = StateCompleted
	f.result, f.err = response, err
	cb := f.onComplete
	entered := f.entered
	f.mu.Unlock()

	f.owner.completed(f, entered, response, err)
	if cb != nil {
		cb(response, err)
	}
	close(f.done)
}
