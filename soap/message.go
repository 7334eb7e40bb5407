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
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/beevik/etree"
	"github.com/rulego/soaprt/api/types"
)

// EnvelopePrefix is the prefix used for envelope elements on output.
const EnvelopePrefix = "S"

var _ types.Message = (*Message)(nil)

// Message is a SOAP envelope whose body may be read once.
// Message SOAP信封，消息体只能读取一次。
type Message struct {
	version types.SOAPVersion
	headers *types.HeaderList
	payload *etree.Element
	name    QName

	mu       sync.Mutex
	consumed bool
}

// NewMessage creates a message. payload may be nil for an empty body.
func NewMessage(version types.SOAPVersion, payload *etree.Element, headers ...types.Header) *Message {
	m := &Message{
		version: version,
		headers: types.NewHeaderList(headers...),
	}
	if payload != nil {
		m.name = NameOf(payload)
		m.payload = Detach(payload)
	}
	return m
}

// NewEmptyMessage 创建没有消息体的消息
func NewEmptyMessage(version types.SOAPVersion) *Message {
	return NewMessage(version, nil)
}

func (m *Message) Version() types.SOAPVersion {
	return m.version
}

func (m *Message) Headers() *types.HeaderList {
	return m.headers
}

func (m *Message) HasPayload() bool {
	return m.payload != nil
}

func (m *Message) IsFault() bool {
	return m.payload != nil && m.name.Local == "Fault" && m.name.Space == m.version.Namespace
}

func (m *Message) PayloadLocalName() string {
	return m.name.Local
}

func (m *Message) PayloadNamespace() string {
	return m.name.Space
}

func (m *Message) ReadPayload() (*etree.Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumed {
		return nil, types.ErrMessageConsumed
	}
	m.consumed = true
	if m.payload == nil {
		return nil, nil
	}
	return m.payload, nil
}

func (m *Message) IsConsumed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumed
}

func (m *Message) Copy() (types.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumed {
		return nil, types.ErrMessageConsumed
	}
	c := &Message{
		version: m.version,
		headers: m.headers.Copy(),
		name:    m.name,
	}
	if m.payload != nil {
		c.payload = m.payload.Copy()
	}
	return c, nil
}

// Document builds the envelope document without consuming the message.
func (m *Message) document() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := NewElement(QName{Space: m.version.Namespace, Local: "Envelope"}, EnvelopePrefix)
	doc.SetRoot(env)
	if m.headers.Len() > 0 {
		hdr := env.CreateElement(EnvelopePrefix + ":Header")
		m.headers.Range(func(h types.Header) bool {
			hdr.AddChild(h.Element())
			return true
		})
	}
	body := env.CreateElement(EnvelopePrefix + ":Body")
	if m.payload != nil {
		body.AddChild(m.payload.Copy())
	}
	return doc
}

// WriteTo serializes the envelope. Writing consumes the body.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	m.mu.Lock()
	if m.consumed {
		m.mu.Unlock()
		return 0, types.ErrMessageConsumed
	}
	m.consumed = true
	m.mu.Unlock()
	return m.document().WriteTo(w)
}

// Bytes serializes the envelope. It consumes the body like WriteTo.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String renders the envelope for logging without consuming it.
func (m *Message) String() string {
	s, err := m.document().WriteToString()
	if err != nil {
		return fmt.Sprintf("<invalid message: %v>", err)
	}
	return s
}

// Parse reads a SOAP envelope.
// Parse 解析SOAP信封。
func Parse(data []byte) (*Message, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty document")
	}
	if root.Tag != "Envelope" {
		return nil, fmt.Errorf("root element must be Envelope, got %s", root.Tag)
	}
	version, ok := types.SOAPVersionFromNamespace(NamespaceOf(root, root.Space))
	if !ok {
		return nil, fmt.Errorf("unsupported envelope namespace %q", NamespaceOf(root, root.Space))
	}
	m := &Message{version: version, headers: types.NewHeaderList()}
	for _, child := range root.ChildElements() {
		if NamespaceOf(child, child.Space) != version.Namespace {
			continue
		}
		switch child.Tag {
		case "Header":
			for _, h := range child.ChildElements() {
				m.headers.Add(NewHeader(h))
			}
		case "Body":
			if elements := child.ChildElements(); len(elements) > 0 {
				m.name = NameOf(elements[0])
				m.payload = Detach(elements[0])
			}
		}
	}
	return m, nil
}
