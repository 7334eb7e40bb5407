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

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type senderConfig struct {
	Server   string
	Qos      byte
	Retained bool
	Timeout  time.Duration
	Topics   []string
}

func TestMap2Struct(t *testing.T) {
	var cfg senderConfig
	err := Map2Struct(map[string]interface{}{
		"server":   "127.0.0.1:1883",
		"qos":      1,
		"retained": true,
		"timeout":  5 * time.Second,
		"topics":   []string{"a", "b"},
	}, &cfg)
	assert.Nil(t, err)
	assert.Equal(t, senderConfig{Server: "127.0.0.1:1883", Qos: 1, Retained: true, Timeout: 5 * time.Second, Topics: []string{"a", "b"}}, cfg)
}

func TestMap2StructFromStrings(t *testing.T) {
	var cfg senderConfig
	err := Map2Struct(map[string]interface{}{
		"qos":      "2",
		"retained": "true",
		"timeout":  "1500ms",
		"topics":   "x,y",
	}, &cfg)
	assert.Nil(t, err)
	assert.Equal(t, byte(2), cfg.Qos)
	assert.True(t, cfg.Retained)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, []string{"x", "y"}, cfg.Topics)
}

func TestMap2StructError(t *testing.T) {
	var cfg senderConfig
	err := Map2Struct(map[string]interface{}{"qos": "high"}, &cfg)
	assert.NotNil(t, err)
}
