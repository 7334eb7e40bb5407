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

package addressing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/components/base"
	"github.com/rulego/soaprt/utils/maps"
)

// DefaultMessageIDTTL is how long a MessageID is remembered by default.
const DefaultMessageIDTTL = 10 * time.Minute

// ErrStoreNotFound MessageID存储未注册
var ErrStoreNotFound = errors.New("message id store not found")

// MessageIDStore remembers MessageIDs for a while.
//
// MessageIDStore 记录已处理的MessageID。
type MessageIDStore interface {
	// Remember records id and reports whether it was new.
	Remember(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// Stores holds the MessageID stores duplicate tubes built from configuration
// refer to.
var Stores = &StoreRegistry{stores: make(map[string]MessageIDStore)}

// StoreRegistry 存储注册表
type StoreRegistry struct {
	mu     sync.RWMutex
	stores map[string]MessageIDStore
}

// Register 注册存储
func (r *StoreRegistry) Register(name string, store MessageIDStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = store
}

// Get 获取存储
func (r *StoreRegistry) Get(name string) (MessageIDStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[name]
	return s, ok
}

// DuplicateTubeConfiguration 重复消息检测组件配置
type DuplicateTubeConfiguration struct {
	// Version w3c, member or an addressing namespace. Defaults to w3c.
	Version string
	// Store is the name of a store registered in Stores.
	Store string
	// TTL how long a MessageID is remembered, defaults to DefaultMessageIDTTL.
	TTL time.Duration
}

// DuplicateTube answers requests whose MessageID was already seen with an
// InvalidAddressingHeader/DuplicateMessageID fault. It belongs behind the
// server tube, so the fault is addressed like any other reply. Requests
// without MessageID pass.
type DuplicateTube struct {
	base.FilterTube
	Config  DuplicateTubeConfiguration
	version *Version
	store   MessageIDStore
}

var _ types.Tube = (*DuplicateTube)(nil)

// NewDuplicate creates the tube from configuration.
func NewDuplicate(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
	var c DuplicateTubeConfiguration
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return nil, err
	}
	version, ok := VersionOf(c.Version)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, c.Version)
	}
	store, ok := Stores.Get(c.Store)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, c.Store)
	}
	t := NewDuplicateTube(version, store, c.TTL, next)
	t.Config.Version, t.Config.Store = c.Version, c.Store
	return t, nil
}

// NewDuplicateTube creates the tube in front of next.
func NewDuplicateTube(version *Version, store MessageIDStore, ttl time.Duration, next types.Tube) *DuplicateTube {
	if ttl <= 0 {
		ttl = DefaultMessageIDTTL
	}
	return &DuplicateTube{
		FilterTube: base.FilterTube{Next: next},
		Config:     DuplicateTubeConfiguration{TTL: ttl},
		version:    version,
		store:      store,
	}
}

func (t *DuplicateTube) ProcessRequest(ctx context.Context, request *types.Packet) types.NextAction {
	if request.Message == nil {
		return t.DoInvoke(request)
	}
	h, ok := request.Message.Headers().Get(t.version.Namespace, MessageIDName)
	if !ok || h.StringContent() == "" {
		return t.DoInvoke(request)
	}
	fresh, err := t.store.Remember(ctx, h.StringContent(), t.Config.TTL)
	if err != nil {
		return types.Throw(err)
	}
	if fresh {
		return t.DoInvoke(request)
	}
	err = &InvalidMapError{Header: t.version.QName(MessageIDName), Subsubcode: t.version.QName(DuplicateMessageIDName)}
	var op WSDLOperation
	if v, ok := request.Properties().Get(operationKey); ok {
		op, _ = v.(WSDLOperation)
	}
	response, _ := t.version.FaultResponse(request, op, types.SOAP11, err)
	return types.Return(response)
}

func (t *DuplicateTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &DuplicateTube{Config: t.Config, version: t.version, store: t.store}
	cloner.Add(t, c)
	c.Next = t.CopyNext(cloner)
	return c
}
