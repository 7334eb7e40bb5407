/*
 * Copyright 2023 The RuleGo Authors.
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

// Package pool provides the worker pool that executes fiber bursts.
//
// Package pool 提供执行纤程的工作池。
//
// Note: This file is inspired by:
// Valyala, A. (2023) workerpool.go (Version 1.48.0)
// [Source code]. https://github.com/valyala/fasthttp/blob/master/workerpool.go
// 1.Change the Serve(c net.Conn) method to Submit(fn func()) error method
// 2.Queue submissions when every worker is busy instead of rejecting them
package pool

import (
	"errors"
	"runtime"
	"sync"
	"time"
)

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("worker pool is stopped")

// WorkerPool serves submitted functions using a bounded set of workers in FILO order.
// When all MaxWorkersCount workers are busy, functions are queued and picked up
// by the next worker that finishes, so a submitted fiber burst is never dropped.
//
// WorkerPool 以FILO顺序使用有限数量的工作者执行任务。
// 所有工作者都忙碌时任务进入等待队列，由下一个空闲的工作者取出执行。
type WorkerPool struct {
	// MaxWorkersCount is the maximum number of concurrently running workers.
	// Zero or negative means runtime.NumCPU().
	// 最大工作者数量，小于等于0时使用CPU核数
	MaxWorkersCount int

	// MaxIdleWorkerDuration is how long an idle worker is kept before it exits.
	// Default is 10 seconds.
	// 空闲工作者保留时长，默认10秒
	MaxIdleWorkerDuration time.Duration

	lock         sync.Mutex
	workersCount int
	mustStop     bool
	ready        []*workerChan
	// backlog holds functions submitted while every worker was busy.
	// backlog 工作者全忙时提交的任务
	backlog []func()

	stopCh         chan struct{}
	workerChanPool sync.Pool
	startOnce      sync.Once
}

type workerChan struct {
	lastUseTime time.Time
	ch          chan func()
}

// Start starts the idle worker cleaner. Calling it more than once is safe.
// Start 启动空闲工作者清理协程，可重复调用。
func (wp *WorkerPool) Start() {
	if wp.stopCh != nil {
		return
	}
	wp.startOnce.Do(func() {
		wp.stopCh = make(chan struct{})
		stopCh := wp.stopCh
		wp.workerChanPool.New = func() interface{} {
			return &workerChan{
				ch: make(chan func(), workerChanCap),
			}
		}
		go func() {
			var scratch []*workerChan
			for {
				wp.clean(&scratch)
				select {
				case <-stopCh:
					return
				case <-time.After(wp.getMaxIdleWorkerDuration()):
				}
			}
		}()
	})
}

// Stop stops idle workers and rejects further submissions. Queued functions
// that no worker picked up yet are discarded; busy workers finish their
// current function first.
//
// Stop 停止空闲工作者并拒绝新任务，尚未执行的排队任务被丢弃。
func (wp *WorkerPool) Stop() {
	wp.lock.Lock()
	if wp.stopCh == nil || wp.mustStop {
		wp.lock.Unlock()
		return
	}
	close(wp.stopCh)
	ready := wp.ready
	for i := range ready {
		ready[i].ch <- nil
		ready[i] = nil
	}
	wp.ready = ready[:0]
	wp.backlog = nil
	wp.mustStop = true
	wp.lock.Unlock()
}

// Release is an alias for Stop so WorkerPool satisfies the engine's Pool interface.
func (wp *WorkerPool) Release() {
	wp.Stop()
}

// Pending returns the number of queued functions.
// Pending 排队中的任务数
func (wp *WorkerPool) Pending() int {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	return len(wp.backlog)
}

// Workers returns the number of live workers.
func (wp *WorkerPool) Workers() int {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	return wp.workersCount
}

func (wp *WorkerPool) getMaxIdleWorkerDuration() time.Duration {
	if wp.MaxIdleWorkerDuration <= 0 {
		return 10 * time.Second
	}
	return wp.MaxIdleWorkerDuration
}

func (wp *WorkerPool) maxWorkers() int {
	if wp.MaxWorkersCount <= 0 {
		return runtime.NumCPU()
	}
	return wp.MaxWorkersCount
}

// clean stops workers that stayed idle longer than MaxIdleWorkerDuration.
// ready is ordered by lastUseTime, so a binary search finds the cut.
func (wp *WorkerPool) clean(scratch *[]*workerChan) {
	criticalTime := time.Now().Add(-wp.getMaxIdleWorkerDuration())

	wp.lock.Lock()
	ready := wp.ready
	n := len(ready)
	l, r, mid := 0, n-1, 0
	for l <= r {
		mid = (l + r) / 2
		if criticalTime.After(wp.ready[mid].lastUseTime) {
			l = mid + 1
		} else {
			r = mid - 1
		}
	}
	i := r
	if i == -1 {
		wp.lock.Unlock()
		return
	}
	*scratch = append((*scratch)[:0], ready[:i+1]...)
	m := copy(ready, ready[i+1:])
	for i = m; i < n; i++ {
		ready[i] = nil
	}
	wp.ready = ready[:m]
	wp.lock.Unlock()

	// outside the lock: sending may block on busy CPUs
	tmp := *scratch
	for i := range tmp {
		tmp[i].ch <- nil
		tmp[i] = nil
	}
}

// Submit hands fn to an idle worker, starts a new worker when below the limit,
// or queues fn. It only fails after Stop.
//
// Submit 提交任务：优先复用空闲工作者，其次创建新工作者，否则排队。只在停止后返回错误。
func (wp *WorkerPool) Submit(fn func()) error {
	if fn == nil {
		return errors.New("nil function")
	}
	wp.lock.Lock()
	if wp.mustStop {
		wp.lock.Unlock()
		return ErrPoolStopped
	}
	if wp.stopCh == nil {
		wp.lock.Unlock()
		wp.Start()
		wp.lock.Lock()
	}
	var ch *workerChan
	createWorker := false
	if n := len(wp.ready) - 1; n >= 0 {
		ch = wp.ready[n]
		wp.ready[n] = nil
		wp.ready = wp.ready[:n]
	} else if wp.workersCount < wp.maxWorkers() {
		createWorker = true
		wp.workersCount++
	} else {
		wp.backlog = append(wp.backlog, fn)
		wp.lock.Unlock()
		return nil
	}
	wp.lock.Unlock()

	if createWorker {
		vch := wp.workerChanPool.Get()
		ch = vch.(*workerChan)
		go func() {
			wp.workerFunc(ch)
			wp.workerChanPool.Put(vch)
		}()
	}
	ch.ch <- fn
	return nil
}

// workerChanCap: blocking channels when GOMAXPROCS=1, otherwise a slot of one
// so Submit does not wait on CPU-bound workers.
var workerChanCap = func() int {
	if runtime.GOMAXPROCS(0) == 1 {
		return 0
	}
	return 1
}()

// next pops a queued function, or parks the worker in the ready list.
// It returns false when the pool is stopping.
func (wp *WorkerPool) next(ch *workerChan) (func(), bool) {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	if wp.mustStop {
		return nil, false
	}
	if len(wp.backlog) > 0 {
		fn := wp.backlog[0]
		wp.backlog[0] = nil
		wp.backlog = wp.backlog[1:]
		return fn, true
	}
	ch.lastUseTime = time.Now()
	wp.ready = append(wp.ready, ch)
	return nil, true
}

func (wp *WorkerPool) workerFunc(ch *workerChan) {
	defer func() {
		wp.lock.Lock()
		wp.workersCount--
		wp.lock.Unlock()
	}()
	for fn := range ch.ch {
		if fn == nil {
			return
		}
		for fn != nil {
			fn()
			var ok bool
			if fn, ok = wp.next(ch); !ok {
				return
			}
		}
	}
}
