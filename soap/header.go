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

package soap

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/rulego/soaprt/api/types"
)

var _ types.Header = (*Header)(nil)

// Header is an element-backed SOAP header block. The element is private to the
// header and only handed out as copies, which makes the header re-readable.
type Header struct {
	name QName
	el   *etree.Element
}

// NewHeader wraps el. el is detached first so namespace lookups keep working.
func NewHeader(el *etree.Element) *Header {
	name := NameOf(el)
	return &Header{name: name, el: Detach(el)}
}

// NewTextHeader creates <prefix:local xmlns:prefix="ns">text</prefix:local>.
func NewTextHeader(name QName, prefix, text string) *Header {
	el := NewElement(name, prefix)
	el.SetText(text)
	return &Header{name: name, el: el}
}

func (h *Header) Namespace() string {
	return h.name.Space
}

func (h *Header) LocalName() string {
	return h.name.Local
}

// Name 头部限定名
func (h *Header) Name() QName {
	return h.name
}

func (h *Header) Role(version types.SOAPVersion) string {
	if role := h.Attribute(version.Namespace, version.RoleAttribute); role != "" {
		return role
	}
	return version.ImplicitRole
}

func (h *Header) IsMustUnderstood(version types.SOAPVersion) bool {
	v := strings.TrimSpace(h.Attribute(version.Namespace, "mustUnderstand"))
	return v == "1" || v == "true"
}

func (h *Header) Attribute(ns, local string) string {
	for _, a := range h.el.Attr {
		if a.Key != local || a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		attrNs := ""
		if a.Space != "" {
			attrNs = NamespaceOf(h.el, a.Space)
		}
		if attrNs == ns {
			return a.Value
		}
	}
	return ""
}

func (h *Header) StringContent() string {
	return strings.TrimSpace(h.el.Text())
}

func (h *Header) Element() *etree.Element {
	return h.el.Copy()
}

// ChildText returns the trimmed text of the first child element named name.
func (h *Header) ChildText(name QName) (string, bool) {
	for _, c := range h.el.ChildElements() {
		if c.Tag == name.Local && NamespaceOf(c, c.Space) == name.Space {
			return strings.TrimSpace(c.Text()), true
		}
	}
	return "", false
}
