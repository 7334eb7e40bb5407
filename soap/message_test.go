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
	"testing"

	"github.com/beevik/etree"
	"github.com/rulego/soaprt/api/types"
	"github.com/stretchr/testify/assert"
)

const wsaNs = "http://www.w3.org/2005/08/addressing"

var envelope12 = `<?xml version="1.0"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope" xmlns:wsa="http://www.w3.org/2005/08/addressing">
  <env:Header>
    <wsa:Action>urn:foo</wsa:Action>
    <wsa:To env:role="http://example.com/other">http://svc</wsa:To>
    <wsa:MessageID env:mustUnderstand="true">uuid:1</wsa:MessageID>
  </env:Header>
  <env:Body>
    <m:echo xmlns:m="urn:echo"><m:text>hello</m:text></m:echo>
  </env:Body>
</env:Envelope>`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(envelope12))
	assert.Nil(t, err)
	assert.True(t, m.Version().IsSOAP12())
	assert.Equal(t, 3, m.Headers().Len())
	assert.Equal(t, "echo", m.PayloadLocalName())
	assert.Equal(t, "urn:echo", m.PayloadNamespace())
	assert.False(t, m.IsFault())

	action, ok := m.Headers().Get(wsaNs, "Action")
	assert.True(t, ok)
	assert.Equal(t, "urn:foo", action.StringContent())
	assert.Equal(t, types.SOAP12.ImplicitRole, action.Role(types.SOAP12))
	assert.False(t, action.IsMustUnderstood(types.SOAP12))

	to, _ := m.Headers().Get(wsaNs, "To")
	assert.Equal(t, "http://example.com/other", to.Role(types.SOAP12))

	id, _ := m.Headers().Get(wsaNs, "MessageID")
	assert.True(t, id.IsMustUnderstood(types.SOAP12))

	//头部可重复读取
	assert.Equal(t, "uuid:1", id.StringContent())
	assert.Equal(t, "MessageID", id.Element().Tag)
	assert.Equal(t, "MessageID", id.Element().Tag)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("not xml <"))
	assert.NotNil(t, err)
	_, err = Parse([]byte(`<a xmlns="urn:x"/>`))
	assert.NotNil(t, err)
	_, err = Parse([]byte(`<Envelope xmlns="urn:unknown"><Body/></Envelope>`))
	assert.NotNil(t, err)
}

func TestPayloadReadOnce(t *testing.T) {
	m, err := Parse([]byte(envelope12))
	assert.Nil(t, err)

	c, err := m.Copy()
	assert.Nil(t, err)

	payload, err := m.ReadPayload()
	assert.Nil(t, err)
	assert.Equal(t, "echo", payload.Tag)
	assert.True(t, m.IsConsumed())

	_, err = m.ReadPayload()
	assert.Equal(t, types.ErrMessageConsumed, err)
	_, err = m.Copy()
	assert.Equal(t, types.ErrMessageConsumed, err)
	_, err = m.Bytes()
	assert.Equal(t, types.ErrMessageConsumed, err)

	//副本不受影响
	assert.False(t, c.IsConsumed())
	data, err := c.Bytes()
	assert.Nil(t, err)
	assert.True(t, strings.Contains(string(data), "hello"))
}

func TestPacketCopyWithMessage(t *testing.T) {
	m, err := Parse([]byte(envelope12))
	assert.Nil(t, err)
	p := types.NewPacket(m)
	p.SOAPAction = "urn:foo"

	c, err := p.Copy(true)
	assert.Nil(t, err)
	assert.NotSame(t, m, c.Message)
	assert.Equal(t, "urn:foo", c.SOAPAction)

	_, err = c.Message.Bytes()
	assert.Nil(t, err)
	assert.True(t, c.Message.IsConsumed())
	assert.False(t, m.IsConsumed())

	_, err = c.Copy(true)
	assert.Equal(t, types.ErrMessageConsumed, err)
	withoutMessage, err := c.Copy(false)
	assert.Nil(t, err)
	assert.Nil(t, withoutMessage.Message)
}

func TestRoundTrip(t *testing.T) {
	payload := etree.NewElement("m:ping")
	payload.CreateAttr("xmlns:m", "urn:ping")
	m := NewMessage(types.SOAP11, payload, NewTextHeader(NewQName(wsaNs, "Action"), "wsa", "urn:ping"))
	data, err := m.Bytes()
	assert.Nil(t, err)

	parsed, err := Parse(data)
	assert.Nil(t, err)
	assert.False(t, parsed.Version().IsSOAP12())
	assert.Equal(t, "ping", parsed.PayloadLocalName())
	assert.Equal(t, "urn:ping", parsed.PayloadNamespace())
	h, ok := parsed.Headers().Get(wsaNs, "Action")
	assert.True(t, ok)
	assert.Equal(t, "urn:ping", h.StringContent())
}

func TestFault(t *testing.T) {
	invalidMap := NewQName(wsaNs, "InvalidAddressingHeader")
	cardinality := NewQName(wsaNs, "InvalidCardinality")
	detail := NewElement(NewQName(wsaNs, "ProblemHeaderQName"), "wsa")
	detail.SetText("wsa:To")

	t.Run("soap12", func(t *testing.T) {
		m := NewFaultMessage(types.SOAP12, Fault{
			Code:     SenderCode(types.SOAP12),
			Subcodes: []QName{invalidMap, cardinality},
			Reason:   "invalid",
			Detail:   []*etree.Element{detail},
		})
		assert.True(t, m.IsFault())
		data, err := m.Bytes()
		assert.Nil(t, err)
		parsed, err := Parse(data)
		assert.Nil(t, err)
		f, err := ReadFault(parsed)
		assert.Nil(t, err)
		assert.Equal(t, NewQName(types.SOAP12Namespace, "Sender"), f.Code)
		assert.Equal(t, []QName{invalidMap, cardinality}, f.Subcodes)
		assert.Equal(t, "invalid", f.Reason)
		assert.Equal(t, 1, len(f.Detail))
		assert.Equal(t, "ProblemHeaderQName", f.Detail[0].Tag)
	})

	t.Run("soap11", func(t *testing.T) {
		m := NewFaultMessage(types.SOAP11, Fault{
			Code:     cardinality,
			Subcodes: []QName{invalidMap},
			Reason:   "invalid",
		})
		data, err := m.Bytes()
		assert.Nil(t, err)
		parsed, err := Parse(data)
		assert.Nil(t, err)
		assert.True(t, parsed.IsFault())
		f, err := ReadFault(parsed)
		assert.Nil(t, err)
		assert.Equal(t, cardinality, f.Code)
		assert.Equal(t, 0, len(f.Subcodes))
		assert.Equal(t, "invalid", f.Reason)
	})

	t.Run("notFault", func(t *testing.T) {
		_, err := ReadFault(NewEmptyMessage(types.SOAP11))
		assert.NotNil(t, err)
	})
}

func TestHeaderList(t *testing.T) {
	l := types.NewHeaderList(
		NewTextHeader(NewQName(wsaNs, "RelatesTo"), "wsa", "a"),
		NewTextHeader(NewQName(wsaNs, "RelatesTo"), "wsa", "b"),
		NewTextHeader(NewQName("urn:other", "RelatesTo"), "o", "c"),
	)
	assert.Equal(t, 2, len(l.All(wsaNs)))
	//名称区分大小写
	_, ok := l.Get(wsaNs, "relatesTo")
	assert.False(t, ok)
	assert.Equal(t, 2, l.Remove(wsaNs, "RelatesTo"))
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "urn:other", l.At(0).Namespace())
}
