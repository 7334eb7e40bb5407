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
	"errors"
	"strings"

	"github.com/beevik/etree"
	"github.com/rulego/soaprt/api/types"
)

// faultCodePrefix is declared on fault code elements for non-envelope namespaces.
const faultCodePrefix = "fc"

// Fault is a version-neutral SOAP fault.
//
// SOAP 1.1 renders Code as faultcode and ignores Subcodes.
// SOAP 1.2 renders Code as the top-level Value with a nested Subcode chain.
type Fault struct {
	Code     QName
	Subcodes []QName
	Reason   string
	Detail   []*etree.Element
}

// SenderCode returns the sender (1.2) or client (1.1) fault code of the version.
func SenderCode(version types.SOAPVersion) QName {
	return QName{Space: version.Namespace, Local: version.SenderFaultCode}
}

// ReceiverCode returns the receiver (1.2) or server (1.1) fault code of the version.
func ReceiverCode(version types.SOAPVersion) QName {
	return QName{Space: version.Namespace, Local: version.ReceiverFaultCode}
}

// NewFaultMessage builds a message whose body is the fault.
func NewFaultMessage(version types.SOAPVersion, fault Fault, headers ...types.Header) *Message {
	return NewMessage(version, fault.Element(version), headers...)
}

// Element renders the fault element for version.
func (f Fault) Element(version types.SOAPVersion) *etree.Element {
	el := NewElement(QName{Space: version.Namespace, Local: "Fault"}, EnvelopePrefix)
	if version.IsSOAP12() {
		code := el.CreateElement(EnvelopePrefix + ":Code")
		setQNameText(code.CreateElement(EnvelopePrefix+":Value"), f.Code, version)
		parent := code
		for _, sub := range f.Subcodes {
			parent = parent.CreateElement(EnvelopePrefix + ":Subcode")
			setQNameText(parent.CreateElement(EnvelopePrefix+":Value"), sub, version)
		}
		text := el.CreateElement(EnvelopePrefix + ":Reason").CreateElement(EnvelopePrefix + ":Text")
		text.CreateAttr("xml:lang", "en")
		text.SetText(f.Reason)
		if len(f.Detail) > 0 {
			detail := el.CreateElement(EnvelopePrefix + ":Detail")
			for _, d := range f.Detail {
				detail.AddChild(d.Copy())
			}
		}
		return el
	}
	setQNameText(el.CreateElement("faultcode"), f.Code, version)
	el.CreateElement("faultstring").SetText(f.Reason)
	if len(f.Detail) > 0 {
		detail := el.CreateElement("detail")
		for _, d := range f.Detail {
			detail.AddChild(d.Copy())
		}
	}
	return el
}

func setQNameText(el *etree.Element, q QName, version types.SOAPVersion) {
	switch q.Space {
	case "":
		el.SetText(q.Local)
	case version.Namespace:
		el.CreateAttr("xmlns:"+EnvelopePrefix, q.Space)
		el.SetText(EnvelopePrefix + ":" + q.Local)
	default:
		el.CreateAttr("xmlns:"+faultCodePrefix, q.Space)
		el.SetText(faultCodePrefix + ":" + q.Local)
	}
}

// ReadFault decodes the fault carried by m without consuming it.
func ReadFault(m *Message) (Fault, error) {
	if !m.IsFault() {
		return Fault{}, errors.New("message is not a fault")
	}
	el := m.payload
	var f Fault
	if m.version.IsSOAP12() {
		code := childNamed(el, m.version.Namespace, "Code")
		if code == nil {
			return f, errors.New("fault has no Code")
		}
		if v := childNamed(code, m.version.Namespace, "Value"); v != nil {
			f.Code = ResolveQNameText(v, v.Text())
		}
		for sub := childNamed(code, m.version.Namespace, "Subcode"); sub != nil; sub = childNamed(sub, m.version.Namespace, "Subcode") {
			if v := childNamed(sub, m.version.Namespace, "Value"); v != nil {
				f.Subcodes = append(f.Subcodes, ResolveQNameText(v, v.Text()))
			}
		}
		if reason := childNamed(el, m.version.Namespace, "Reason"); reason != nil {
			if t := childNamed(reason, m.version.Namespace, "Text"); t != nil {
				f.Reason = strings.TrimSpace(t.Text())
			}
		}
		if detail := childNamed(el, m.version.Namespace, "Detail"); detail != nil {
			f.Detail = detail.ChildElements()
		}
		return f, nil
	}
	if v := childNamed(el, "", "faultcode"); v != nil {
		f.Code = ResolveQNameText(v, v.Text())
	}
	if v := childNamed(el, "", "faultstring"); v != nil {
		f.Reason = strings.TrimSpace(v.Text())
	}
	if detail := childNamed(el, "", "detail"); detail != nil {
		f.Detail = detail.ChildElements()
	}
	return f, nil
}

func childNamed(el *etree.Element, ns, local string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag != local {
			continue
		}
		if ns == "" && c.Space == "" {
			return c
		}
		if NamespaceOf(c, c.Space) == ns {
			return c
		}
	}
	return nil
}
