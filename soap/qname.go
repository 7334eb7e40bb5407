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

// Package soap implements SOAP 1.1 and 1.2 envelopes on top of etree:
// parsing, lazy re-readable headers, a consume-once body and fault building.
//
// Package soap 基于etree实现SOAP 1.1/1.2信封：解析、可重复读取的头部、
// 只能读取一次的消息体以及错误报文构建。
package soap

import (
	"strings"

	"github.com/beevik/etree"
)

// QName is an XML qualified name.
type QName struct {
	Space string
	Local string
}

// NewQName creates a QName.
func NewQName(space, local string) QName {
	return QName{Space: space, Local: local}
}

// String renders the name in {namespace}local form.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// IsZero 是否为空
func (q QName) IsZero() bool {
	return q.Space == "" && q.Local == ""
}

// Prefixed returns prefix:local, or local when prefix is empty.
func (q QName) Prefixed(prefix string) string {
	if prefix == "" {
		return q.Local
	}
	return prefix + ":" + q.Local
}

// NewElement creates an element bound to name, declaring the namespace on it.
func NewElement(name QName, prefix string) *etree.Element {
	el := etree.NewElement(name.Prefixed(prefix))
	if name.Space != "" {
		if prefix == "" {
			el.CreateAttr("xmlns", name.Space)
		} else {
			el.CreateAttr("xmlns:"+prefix, name.Space)
		}
	}
	return el
}

// NamespaceOf resolves prefix in the scope of el, walking up its ancestors.
// The empty prefix resolves the default namespace.
func NamespaceOf(el *etree.Element, prefix string) string {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// NameOf returns the resolved qualified name of el.
func NameOf(el *etree.Element) QName {
	return QName{Space: NamespaceOf(el, el.Space), Local: el.Tag}
}

// ResolveQNameText resolves a prefix:local text value such as a fault code.
func ResolveQNameText(el *etree.Element, text string) QName {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, ':'); i >= 0 {
		return QName{Space: NamespaceOf(el, text[:i]), Local: text[i+1:]}
	}
	return QName{Space: NamespaceOf(el, ""), Local: text}
}

// Detach copies el and re-declares every namespace in scope at el on the copy,
// so the copy keeps resolving its prefixes after leaving its document.
func Detach(el *etree.Element) *etree.Element {
	c := el.Copy()
	declared := make(map[string]bool)
	for _, a := range c.Attr {
		if a.Space == "xmlns" {
			declared[a.Key] = true
		} else if a.Space == "" && a.Key == "xmlns" {
			declared[""] = true
		}
	}
	for e := el.Parent(); e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			switch {
			case a.Space == "xmlns" && !declared[a.Key]:
				declared[a.Key] = true
				c.CreateAttr("xmlns:"+a.Key, a.Value)
			case a.Space == "" && a.Key == "xmlns" && !declared[""]:
				declared[""] = true
				c.CreateAttr("xmlns", a.Value)
			}
		}
	}
	return c
}
