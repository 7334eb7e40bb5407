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

// Package msgid provides the MessageID stores used for duplicate detection:
// an in-memory store and an SQL store for MySQL and PostgreSQL. Expired ids
// are removed by a cron driven PurgeSchedule.
//
// Package msgid 提供用于重复消息检测的MessageID存储：内存存储以及MySQL/PostgreSQL存储，
// 过期记录由定时任务清理。
package msgid

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/rulego/soaprt/api/types"
)

// DefaultPurgeSpec runs the purge every minute.
const DefaultPurgeSpec = "0 * * * * *"

// Purger removes expired ids.
type Purger interface {
	// Purge returns the number of removed ids.
	Purge(ctx context.Context) (int, error)
}

// PurgeSchedule runs Purge on a set of stores on a cron schedule. The spec
// has a seconds field.
//
// PurgeSchedule 按cron表达式定时清理过期的MessageID。
type PurgeSchedule struct {
	spec    string
	purgers []Purger
	logger  types.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewPurgeSchedule creates a stopped schedule. An empty spec uses DefaultPurgeSpec.
func NewPurgeSchedule(spec string, logger types.Logger, purgers ...Purger) *PurgeSchedule {
	if spec == "" {
		spec = DefaultPurgeSpec
	}
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &PurgeSchedule{spec: spec, purgers: purgers, logger: logger}
}

// Start schedules the purge. Starting a started schedule does nothing.
func (s *PurgeSchedule) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithSeconds())
	id, err := c.AddFunc(s.spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron, s.entryID = c, id
	c.Start()
	return nil
}

// Stop unschedules the purge and waits for a running purge to finish.
func (s *PurgeSchedule) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		c.Remove(s.entryID)
		<-c.Stop().Done()
	}
}

// RunOnce purges every store and returns the number of removed ids.
// Failures are logged and do not stop the other stores.
func (s *PurgeSchedule) RunOnce(ctx context.Context) int {
	total := 0
	for _, p := range s.purgers {
		n, err := p.Purge(ctx)
		if err != nil {
			s.logger.Printf("msgid: purge failed: %v", err)
			continue
		}
		total += n
	}
	return total
}
