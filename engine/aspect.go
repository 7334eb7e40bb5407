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
	"sort"

	"github.com/rulego/soaprt/api/types"
)

// StartAspect runs before a fiber executes its first burst. An error aborts
// the fiber, which then completes with that error.
// StartAspect 纤程开始执行前调用，返回错误则纤程以该错误结束。
type StartAspect interface {
	types.Aspect
	Start(f *Fiber) error
}

// CompletedAspect runs once when a fiber completes.
// CompletedAspect 纤程完成时调用一次。
type CompletedAspect interface {
	types.Aspect
	Completed(f *Fiber, response *types.Packet, err error)
}

// SuspendAspect runs every time a fiber parks waiting for Resume.
type SuspendAspect interface {
	types.Aspect
	Suspended(f *Fiber)
}

// newAspects instantiates and orders the configured aspects.
func newAspects(aspects []types.Aspect) []types.Aspect {
	out := make([]types.Aspect, 0, len(aspects))
	for _, a := range aspects {
		if a != nil {
			out = append(out, a.New())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order() < out[j].Order()
	})
	return out
}
