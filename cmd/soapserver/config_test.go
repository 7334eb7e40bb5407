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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/soaprt/addressing"
	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/filter"
	"github.com/rulego/soaprt/components/invoker"
	"github.com/rulego/soaprt/components/js"
)

const configText = `
server = :8080
required = true
soap_version = 1.1
filter = payload == "echo"

[users]
admin = $2a$10$hash

[msgid]
store = memory
ttl = 5m

[mqtt]
enabled = false
`

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig("")
	require.Nil(t, err)
	assert.Equal(t, DefaultConfig, c)

	file := filepath.Join(t.TempDir(), "config.ini")
	require.Nil(t, os.WriteFile(file, []byte(configText), 0644))
	c, err = LoadConfig(file)
	require.Nil(t, err)
	assert.Equal(t, ":8080", c.Server)
	assert.True(t, c.Required)
	assert.Equal(t, "1.1", c.SOAPVersion)
	assert.Equal(t, "/soap", c.Path)
	assert.Equal(t, "w3c", c.Addressing)
	assert.Equal(t, map[string]string{"admin": "$2a$10$hash"}, c.Users)
	assert.Equal(t, "memory", c.MsgID.Store)
	assert.Equal(t, "5m", c.MsgID.TTL)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.NotNil(t, err)
}

func TestEngineOptions(t *testing.T) {
	c := DefaultConfig
	c.Debug = true
	c.MaxConcurrency = 10
	c.Workers = 3
	config := types.NewConfig(engineOptions(c, types.DiscardLogger(), nil)...)
	assert.True(t, config.Debug)
	assert.Len(t, config.Aspects, 2)
	for _, scheme := range []string{"http", "https", "ws", "wss"} {
		assert.Contains(t, config.ReplySenders, scheme)
	}
	assert.NotContains(t, config.ReplySenders, "mqtt")
}

func TestBuildPipeline(t *testing.T) {
	c := DefaultConfig
	c.Filter = `payload == "echo"`
	c.Script = "return true;"
	c.MsgID.Store = "memory"
	config := types.NewConfig(types.WithLogger(types.DiscardLogger()))

	purge, closer, err := setupStore(context.Background(), c, config.Logger)
	require.Nil(t, err)
	assert.Nil(t, closer)
	require.NotNil(t, purge)

	head, err := buildPipeline(c, config)
	require.Nil(t, err)
	server, ok := head.(*addressing.ServerTube)
	require.True(t, ok)
	assert.Equal(t, addressing.W3C, server.Version())
	f, ok := server.Next.(*filter.ExprFilterTube)
	require.True(t, ok)
	script, ok := f.Next.(*js.ScriptTube)
	require.True(t, ok)
	duplicate, ok := script.Next.(*addressing.DuplicateTube)
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, duplicate.Config.TTL)
	_, ok = duplicate.Next.(*invoker.InvokerTube)
	assert.True(t, ok)

	c.Handler = "missing"
	_, err = buildPipeline(c, config)
	assert.ErrorIs(t, err, invoker.ErrHandlerNotFound)

	none, closer, err := setupStore(context.Background(), DefaultConfig, config.Logger)
	assert.Nil(t, err)
	assert.Nil(t, none)
	assert.Nil(t, closer)
}
