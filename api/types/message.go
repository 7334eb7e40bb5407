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
	"io"

	"github.com/beevik/etree"
)

// Header is one SOAP header block. It is read-only and can be read any number
// of times; the element tree behind it is only copied when Element is called.
//
// Header 表示一个SOAP头部块，只读且可重复读取。
type Header interface {
	// Namespace 头部元素命名空间
	Namespace() string
	// LocalName 头部元素本地名
	LocalName() string
	// Role returns the role (1.2) or actor (1.1) the header targets,
	// or the implicit role of the version when the attribute is absent.
	Role(version SOAPVersion) string
	// IsMustUnderstood 是否声明了mustUnderstand
	IsMustUnderstood(version SOAPVersion) bool
	// Attribute 读取属性值，不存在返回空字符串
	Attribute(ns, local string) string
	// StringContent 头部文本内容（已去除首尾空白）
	StringContent() string
	// Element returns a detached copy of the header element.
	Element() *etree.Element
}

// Message is the SOAP envelope carried by a Packet.
// The body payload streams: ReadPayload succeeds at most once.
//
// Message 表示Packet携带的SOAP信封，消息体只能读取一次。
type Message interface {
	Version() SOAPVersion
	Headers() *HeaderList
	HasPayload() bool
	IsFault() bool
	PayloadLocalName() string
	PayloadNamespace() string
	// ReadPayload consumes the body. Later calls return ErrMessageConsumed.
	ReadPayload() (*etree.Element, error)
	IsConsumed() bool
	// Copy duplicates an unconsumed message.
	Copy() (Message, error)
	WriteTo(w io.Writer) (int64, error)
	Bytes() ([]byte, error)
}

// HeaderList is an ordered list of headers. Name comparisons are exact.
type HeaderList struct {
	items []Header
}

// NewHeaderList creates a header list.
func NewHeaderList(headers ...Header) *HeaderList {
	return &HeaderList{items: append([]Header(nil), headers...)}
}

// Len 头部数量
func (l *HeaderList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At 第i个头部
func (l *HeaderList) At(i int) Header {
	return l.items[i]
}

// Add appends a header.
func (l *HeaderList) Add(h Header) {
	l.items = append(l.items, h)
}

// Get returns the first header with the given name.
func (l *HeaderList) Get(ns, local string) (Header, bool) {
	if l == nil {
		return nil, false
	}
	for _, h := range l.items {
		if h.Namespace() == ns && h.LocalName() == local {
			return h, true
		}
	}
	return nil, false
}

// All returns every header in namespace ns, in document order.
func (l *HeaderList) All(ns string) []Header {
	if l == nil {
		return nil
	}
	var out []Header
	for _, h := range l.items {
		if h.Namespace() == ns {
			out = append(out, h)
		}
	}
	return out
}

// Remove deletes all headers with the given name and reports how many were removed.
func (l *HeaderList) Remove(ns, local string) int {
	if l == nil {
		return 0
	}
	kept := l.items[:0]
	removed := 0
	for _, h := range l.items {
		if h.Namespace() == ns && h.LocalName() == local {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = kept
	return removed
}

// Range iterates headers until f returns false.
func (l *HeaderList) Range(f func(h Header) bool) {
	if l == nil {
		return
	}
	for _, h := range l.items {
		if !f(h) {
			return
		}
	}
}

// Copy returns a shallow copy; headers are immutable.
func (l *HeaderList) Copy() *HeaderList {
	if l == nil {
		return NewHeaderList()
	}
	return NewHeaderList(l.items...)
}
