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
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/soap"
)

// EPR is an endpoint reference.
type EPR struct {
	// Address 地址
	Address string
	// ReferenceParameters are echoed as headers of messages sent to the EPR.
	ReferenceParameters []*etree.Element
}

// NewEPR 创建没有引用参数的端点引用
func NewEPR(address string) *EPR {
	return &EPR{Address: address}
}

// Relationship is one RelatesTo value.
type Relationship struct {
	// ID related MessageID
	ID string
	// Type is the relationship type, empty for the default reply relationship.
	Type string
}

// Properties are the message addressing properties of a message.
//
// Properties 消息寻址属性。
type Properties struct {
	To        string
	Action    string
	MessageID string
	From      *EPR
	ReplyTo   *EPR
	FaultTo   *EPR
	RelatesTo []Relationship
	// ReferenceParameters are added to the message as separate headers.
	ReferenceParameters []*etree.Element
}

// InRole reports whether h targets this node: always for SOAP 1.1, for SOAP
// 1.2 only headers without role or with the ultimate receiver role.
func InRole(h types.Header, version types.SOAPVersion) bool {
	if !version.IsSOAP12() {
		return true
	}
	return h.Role(version) == version.ImplicitRole
}

// ReadEPR decodes an endpoint reference element.
func (v *Version) ReadEPR(el *etree.Element) (*EPR, error) {
	epr := &EPR{}
	found := false
	for _, c := range el.ChildElements() {
		if soap.NamespaceOf(c, c.Space) != v.Namespace {
			continue
		}
		switch {
		case c.Tag == AddressName:
			epr.Address = strings.TrimSpace(c.Text())
			found = true
		case v.IsReferenceParameters(c.Tag):
			for _, p := range c.ChildElements() {
				epr.ReferenceParameters = append(epr.ReferenceParameters, soap.Detach(p))
			}
		}
	}
	if !found {
		return nil, &InvalidMapError{Header: soap.NameOf(el), Subsubcode: v.QName(MissingAddressInEPRName)}
	}
	return epr, nil
}

// ReadProperties decodes the in-role addressing headers of msg. Repeated
// headers keep their first value; cardinality is checked by the Validator.
func (v *Version) ReadProperties(msg types.Message) (*Properties, error) {
	props := &Properties{}
	if msg == nil {
		return props, nil
	}
	var err error
	seen := make(map[string]bool)
	msg.Headers().Range(func(h types.Header) bool {
		if h.Namespace() != v.Namespace || !InRole(h, msg.Version()) {
			return true
		}
		err = v.readHeader(props, h, seen)
		return err == nil
	})
	return props, err
}

// readHeader stores h into props unless its name is already in seen.
func (v *Version) readHeader(props *Properties, h types.Header, seen map[string]bool) error {
	local := h.LocalName()
	if local != RelatesToName && local != FaultDetailName {
		if seen[local] {
			return nil
		}
		seen[local] = true
	}
	switch local {
	case ToName:
		props.To = h.StringContent()
	case ActionName:
		props.Action = h.StringContent()
	case MessageIDName:
		props.MessageID = h.StringContent()
	case FromName, ReplyToName, FaultToName:
		epr, err := v.ReadEPR(h.Element())
		if err != nil {
			return err
		}
		switch local {
		case FromName:
			props.From = epr
		case ReplyToName:
			props.ReplyTo = epr
		default:
			props.FaultTo = epr
		}
	case RelatesToName:
		props.RelatesTo = append(props.RelatesTo, Relationship{
			ID:   h.StringContent(),
			Type: h.Attribute("", RelationshipTypeName),
		})
	case FaultDetailName:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAddressingHeader, v.QName(local))
	}
	return nil
}

// TextHeader creates a header in the addressing namespace carrying text.
func (v *Version) TextHeader(local, text string) types.Header {
	return soap.NewTextHeader(v.QName(local), v.Prefix, text)
}

// EPRHeader creates an endpoint reference header such as ReplyTo.
func (v *Version) EPRHeader(local string, epr *EPR) types.Header {
	el := soap.NewElement(v.QName(local), v.Prefix)
	el.CreateElement(v.Prefix + ":" + AddressName).SetText(epr.Address)
	if len(epr.ReferenceParameters) > 0 {
		params := el.CreateElement(v.Prefix + ":" + ReferenceParametersName)
		for _, p := range epr.ReferenceParameters {
			params.AddChild(p.Copy())
		}
	}
	return soap.NewHeader(el)
}

// RelatesToHeader creates a RelatesTo header. The relationship type is always
// written.
func (v *Version) RelatesToHeader(r Relationship) types.Header {
	el := soap.NewElement(v.QName(RelatesToName), v.Prefix)
	typ := r.Type
	if typ == "" {
		typ = v.ReplyRelationship
	}
	el.CreateAttr(RelationshipTypeName, typ)
	el.SetText(r.ID)
	return soap.NewHeader(el)
}

// ReferenceParameterHeader turns a reference parameter into a header, marked
// with IsReferenceParameter when the version defines the marker.
func (v *Version) ReferenceParameterHeader(param *etree.Element) types.Header {
	el := soap.Detach(param)
	if v.IsReferenceParameterLocal != "" {
		prefix := v.Prefix
		if ns := soap.NamespaceOf(el, prefix); ns != "" && ns != v.Namespace {
			prefix = "wsa2"
		}
		if soap.NamespaceOf(el, prefix) == "" {
			el.CreateAttr("xmlns:"+prefix, v.Namespace)
		}
		el.CreateAttr(prefix+":"+v.IsReferenceParameterLocal, "true")
	}
	return soap.NewHeader(el)
}

// Headers renders props as headers, in the order To, Action, MessageID, From,
// ReplyTo, FaultTo, RelatesTo and reference parameters.
func (v *Version) Headers(props *Properties) []types.Header {
	var hs []types.Header
	if props.To != "" {
		hs = append(hs, v.TextHeader(ToName, props.To))
	}
	if props.Action != "" {
		hs = append(hs, v.TextHeader(ActionName, props.Action))
	}
	if props.MessageID != "" {
		hs = append(hs, v.TextHeader(MessageIDName, props.MessageID))
	}
	if props.From != nil {
		hs = append(hs, v.EPRHeader(FromName, props.From))
	}
	if props.ReplyTo != nil {
		hs = append(hs, v.EPRHeader(ReplyToName, props.ReplyTo))
	}
	if props.FaultTo != nil {
		hs = append(hs, v.EPRHeader(FaultToName, props.FaultTo))
	}
	for _, r := range props.RelatesTo {
		hs = append(hs, v.RelatesToHeader(r))
	}
	for _, p := range props.ReferenceParameters {
		hs = append(hs, v.ReferenceParameterHeader(p))
	}
	return hs
}

// SetHeaders replaces the addressing headers of msg with props.
func (v *Version) SetHeaders(msg types.Message, props *Properties) {
	list := msg.Headers()
	for _, local := range []string{ToName, ActionName, MessageIDName, FromName, ReplyToName, FaultToName, RelatesToName} {
		list.Remove(v.Namespace, local)
	}
	for _, h := range v.Headers(props) {
		list.Add(h)
	}
}
