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

package types

import (
	"time"
)

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithPool is an option that sets the pool of the Config.
func WithPool(pool Pool) Option {
	return func(c *Config) error {
		c.Pool = pool
		return nil
	}
}

// WithWorkerCount sets the size of the default pool.
func WithWorkerCount(workers int) Option {
	return func(c *Config) error {
		c.WorkerCount = workers
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the js max execution time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithProperties sets the global properties.
func WithProperties(properties Metadata) Option {
	return func(c *Config) error {
		c.Properties = properties
		return nil
	}
}

// WithAspects appends fiber aspects.
func WithAspects(aspects ...Aspect) Option {
	return func(c *Config) error {
		c.Aspects = append(c.Aspects, aspects...)
		return nil
	}
}

// WithDebug 开启调试日志
func WithDebug(debug bool) Option {
	return func(c *Config) error {
		c.Debug = debug
		return nil
	}
}

// WithReplySender registers the sender used for reply addresses with the given scheme.
func WithReplySender(scheme string, sender ReplySender) Option {
	return func(c *Config) error {
		if c.ReplySenders == nil {
			c.ReplySenders = make(map[string]ReplySender)
		}
		c.ReplySenders[scheme] = sender
		return nil
	}
}

// WithReplySenders registers reply senders by scheme.
func WithReplySenders(senders map[string]ReplySender) Option {
	return func(c *Config) error {
		for scheme, sender := range senders {
			_ = WithReplySender(scheme, sender)(c)
		}
		return nil
	}
}
