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
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/soap"
)

const (
	anonymousW3C = "http://www.w3.org/2005/08/addressing/anonymous"
	noneW3C      = "http://www.w3.org/2005/08/addressing/none"
)

// envelope builds a message with the given header XML. The wsa prefix is
// bound to W3C addressing, wsm to Member Submission and S to the envelope.
func envelope(t *testing.T, version types.SOAPVersion, headers ...string) *soap.Message {
	t.Helper()
	xml := fmt.Sprintf(`<S:Envelope xmlns:S="%s" xmlns:wsa="%s" xmlns:wsm="%s">`+
		`<S:Header>%s</S:Header>`+
		`<S:Body><m:echo xmlns:m="urn:echo"><m:text>hi</m:text></m:echo></S:Body></S:Envelope>`,
		version.Namespace, W3C.Namespace, Member.Namespace, strings.Join(headers, ""))
	msg, err := soap.Parse([]byte(xml))
	require.Nil(t, err)
	return msg
}

func text(local, value string) string {
	return fmt.Sprintf("<wsa:%s>%s</wsa:%s>", local, value, local)
}

func epr(local, address string) string {
	return fmt.Sprintf("<wsa:%s><wsa:Address>%s</wsa:Address></wsa:%s>", local, address, local)
}

func requiredValidator(op ...*StaticOperation) *Validator {
	return NewValidator(StaticBinding{SOAP: types.SOAP12, Addressing: W3C, Required: true}, NewStaticPort(op...))
}

func fooOperation(anonymous Anonymous) *StaticOperation {
	return &StaticOperation{
		OpName:        "foo",
		Input:         soap.NewQName("urn:echo", "echo"),
		Action:        "urn:foo",
		Output:        "urn:fooResponse",
		AnonymousMode: anonymous,
	}
}

func TestReadProperties(t *testing.T) {
	msg := envelope(t, types.SOAP12,
		text(ToName, "http://svc"),
		text(ActionName, "urn:foo"),
		text(MessageIDName, "uuid:1"),
		`<wsa:ReplyTo><wsa:Address>http://client/reply</wsa:Address>`+
			`<wsa:ReferenceParameters><c:session xmlns:c="urn:client">42</c:session></wsa:ReferenceParameters></wsa:ReplyTo>`,
		epr(FaultToName, "http://client/fault"),
		`<wsa:RelatesTo>uuid:0</wsa:RelatesTo>`,
		`<wsa:RelatesTo RelationshipType="urn:custom">uuid:00</wsa:RelatesTo>`,
		`<wsa:Action S:role="http://example.com/other">urn:ignored</wsa:Action>`,
	)
	props, err := W3C.ReadProperties(msg)
	require.Nil(t, err)
	assert.Equal(t, "http://svc", props.To)
	assert.Equal(t, "urn:foo", props.Action)
	assert.Equal(t, "uuid:1", props.MessageID)
	require.NotNil(t, props.ReplyTo)
	assert.Equal(t, "http://client/reply", props.ReplyTo.Address)
	require.Len(t, props.ReplyTo.ReferenceParameters, 1)
	assert.Equal(t, "session", props.ReplyTo.ReferenceParameters[0].Tag)
	assert.Equal(t, "http://client/fault", props.FaultTo.Address)
	assert.Nil(t, props.From)
	assert.Equal(t, []Relationship{{ID: "uuid:0"}, {ID: "uuid:00", Type: "urn:custom"}}, props.RelatesTo)
}

func TestReadPropertiesMissingAddress(t *testing.T) {
	msg := envelope(t, types.SOAP11, text(ActionName, "urn:foo"), `<wsa:ReplyTo><wsa:Metadata/></wsa:ReplyTo>`)
	_, err := W3C.ReadProperties(msg)
	var invalid *InvalidMapError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, W3C.QName(ReplyToName), invalid.Header)
	assert.Equal(t, W3C.QName(MissingAddressInEPRName), invalid.Subsubcode)
}

func TestHeadersRoundTrip(t *testing.T) {
	props := &Properties{
		To:        "http://svc",
		Action:    "urn:foo",
		MessageID: "uuid:1",
		ReplyTo:   NewEPR(anonymousW3C),
		RelatesTo: []Relationship{{ID: "uuid:0"}},
	}
	msg := soap.NewEmptyMessage(types.SOAP12)
	msg.Headers().Add(W3C.TextHeader(ActionName, "urn:old"))
	W3C.SetHeaders(msg, props)

	data, err := msg.Bytes()
	require.Nil(t, err)
	parsed, err := soap.Parse(data)
	require.Nil(t, err)
	read, err := W3C.ReadProperties(parsed)
	require.Nil(t, err)
	assert.Equal(t, "urn:foo", read.Action)
	assert.Equal(t, anonymousW3C, read.ReplyTo.Address)
	assert.Equal(t, []Relationship{{ID: "uuid:0", Type: W3C.ReplyRelationship}}, read.RelatesTo)
	assert.Len(t, parsed.Headers().All(W3C.Namespace), 5)
}

func TestCardinality(t *testing.T) {
	v := requiredValidator()
	for _, local := range []string{ToName, FromName, ReplyToName, FaultToName, ActionName, MessageIDName} {
		t.Run(local, func(t *testing.T) {
			header := text(local, "x")
			if local == FromName || local == ReplyToName || local == FaultToName {
				header = epr(local, anonymousW3C)
			}
			msg := envelope(t, types.SOAP12, text(ActionName, "urn:foo"), text(ToName, "http://svc"), header, header)
			_, err := v.Validate(types.NewPacket(msg), nil)
			var invalid *InvalidMapError
			require.True(t, errors.As(err, &invalid), "%v", err)
			assert.Equal(t, W3C.QName(local), invalid.Header)
			assert.Equal(t, W3C.InvalidCardinalityTag(), invalid.Subsubcode)
			assert.True(t, IsProtocolError(err))
		})
	}

	t.Run("repeatable", func(t *testing.T) {
		msg := envelope(t, types.SOAP12, text(ActionName, "urn:foo"), text(ToName, "http://svc"),
			text(RelatesToName, "uuid:a"), text(RelatesToName, "uuid:b"),
			`<wsa:FaultDetail/>`, `<wsa:FaultDetail/>`)
		props, err := v.Validate(types.NewPacket(msg), nil)
		require.Nil(t, err)
		assert.Len(t, props.RelatesTo, 2)
	})

	t.Run("other role", func(t *testing.T) {
		msg := envelope(t, types.SOAP12, text(ActionName, "urn:foo"), text(ToName, "http://svc"),
			`<wsa:Action S:role="http://example.com/other">urn:bar</wsa:Action>`)
		_, err := v.Validate(types.NewPacket(msg), nil)
		assert.Nil(t, err)
	})

	t.Run("soap 1.1 ignores roles", func(t *testing.T) {
		msg := envelope(t, types.SOAP11, text(ActionName, "urn:foo"), text(ToName, "http://svc"),
			`<wsa:Action S:actor="http://example.com/other">urn:bar</wsa:Action>`)
		_, err := v.Validate(types.NewPacket(msg), nil)
		var invalid *InvalidMapError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("unknown header", func(t *testing.T) {
		msg := envelope(t, types.SOAP12, text(ActionName, "urn:foo"), text("Unknown", "x"))
		_, err := v.Validate(types.NewPacket(msg), nil)
		assert.True(t, errors.Is(err, ErrUnknownAddressingHeader))
		assert.False(t, IsProtocolError(err))
	})
}

func TestMandatoryHeaders(t *testing.T) {
	required := requiredValidator()
	optional := NewValidator(StaticBinding{SOAP: types.SOAP12, Addressing: W3C}, nil)

	_, err := required.Validate(types.NewPacket(envelope(t, types.SOAP12)), nil)
	var missing *MapRequiredError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, W3C.QName(ActionName), missing.Header)

	props, err := optional.Validate(types.NewPacket(envelope(t, types.SOAP12)), nil)
	assert.Nil(t, err)
	assert.Equal(t, "", props.Action)

	_, err = optional.Validate(types.NewPacket(envelope(t, types.SOAP12, text(ActionName, "urn:foo"))), nil)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, W3C.QName(ToName), missing.Header)

	_, err = required.Validate(types.NewPacket(envelope(t, types.SOAP12, text(ToName, "http://svc"))), nil)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, W3C.QName(ActionName), missing.Header)

	_, err = optional.Validate(types.NewPacket(envelope(t, types.SOAP12, text(ToName, "http://svc"))), nil)
	assert.Nil(t, err)

	_, err = required.Validate(types.NewPacket(nil), nil)
	assert.Equal(t, ErrNoMessage, err)
	_, err = optional.Validate(types.NewPacket(nil), nil)
	assert.Nil(t, err)
}

func TestAnonymousMatrix(t *testing.T) {
	cases := []struct {
		mode    Anonymous
		address string
		fault   string
	}{
		{AnonymousRequired, anonymousW3C, ""},
		{AnonymousRequired, "http://client/reply", OnlyAnonymousAddressSupportedName},
		{AnonymousRequired, "", ""},
		{AnonymousProhibited, anonymousW3C, OnlyNonAnonymousAddressSupportedName},
		{AnonymousProhibited, "http://client/reply", ""},
		{AnonymousProhibited, "", ""},
		{AnonymousOptional, anonymousW3C, ""},
		{AnonymousOptional, "http://client/reply", ""},
		{AnonymousOptional, "", ""},
	}
	for _, target := range []string{ReplyToName, FaultToName} {
		for _, c := range cases {
			t.Run(fmt.Sprintf("%s/%s/%s", target, c.mode, c.address), func(t *testing.T) {
				op := fooOperation(c.mode)
				headers := []string{text(ActionName, "urn:foo"), text(ToName, "http://svc"), text(MessageIDName, "uuid:1")}
				if c.address != "" {
					headers = append(headers, epr(target, c.address))
				}
				request := types.NewPacket(envelope(t, types.SOAP12, headers...))
				_, err := requiredValidator(op).Validate(request, op)
				if c.fault == "" {
					assert.Nil(t, err)
					return
				}
				var invalid *InvalidMapError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, W3C.QName(target), invalid.Header)
				assert.Equal(t, W3C.QName(c.fault), invalid.Subsubcode)
			})
		}
	}

	t.Run("invalid mode", func(t *testing.T) {
		op := fooOperation("sometimes")
		request := types.NewPacket(envelope(t, types.SOAP12, text(ActionName, "urn:foo"), text(ToName, "http://svc"), epr(ReplyToName, anonymousW3C)))
		_, err := requiredValidator(op).Validate(request, op)
		assert.True(t, errors.Is(err, ErrInvalidAnonymousSemantics))
		assert.False(t, IsProtocolError(err))
	})

	t.Run("client side", func(t *testing.T) {
		op := fooOperation(AnonymousRequired)
		request := types.NewPacket(envelope(t, types.SOAP12, text(ActionName, "urn:foo"), text(ToName, "http://svc"), epr(ReplyToName, "http://client/reply")))
		request.Proxy = struct{}{}
		_, err := requiredValidator(op).Validate(request, op)
		assert.Nil(t, err)
	})

	t.Run("member submission", func(t *testing.T) {
		op := fooOperation(AnonymousRequired)
		v := NewValidator(StaticBinding{SOAP: types.SOAP12, Addressing: Member, Required: true}, NewStaticPort(op))
		request := types.NewPacket(envelope(t, types.SOAP12,
			"<wsm:Action>urn:foo</wsm:Action>", "<wsm:To>http://svc</wsm:To>",
			"<wsm:ReplyTo><wsm:Address>http://client/reply</wsm:Address></wsm:ReplyTo>"))
		_, err := v.Validate(request, op)
		assert.Nil(t, err)
	})
}

func TestActionNotSupported(t *testing.T) {
	op := fooOperation(AnonymousOptional)
	request := types.NewPacket(envelope(t, types.SOAP12, text(ActionName, "urn:bar"), text(ToName, "http://svc")))
	_, err := requiredValidator(op).Validate(request, op)
	var notSupported *ActionNotSupportedError
	require.True(t, errors.As(err, &notSupported))
	assert.Equal(t, "urn:bar", notSupported.Action)

	defaulted := &StaticOperation{OpName: "foo", Input: op.Input}
	request = types.NewPacket(envelope(t, types.SOAP12, text(ActionName, "urn:bar"), text(ToName, "http://svc")))
	request.SOAPAction = "urn:bar"
	_, err = requiredValidator(defaulted).Validate(request, defaulted)
	assert.Nil(t, err)
	request.SOAPAction = "urn:baz"
	_, err = requiredValidator(defaulted).Validate(request, defaulted)
	assert.True(t, errors.As(err, &notSupported))
	request.SOAPAction = ""
	_, err = requiredValidator(defaulted).Validate(request, defaulted)
	assert.Nil(t, err)
}

func TestStaticPort(t *testing.T) {
	foo := fooOperation(AnonymousOptional)
	bar := &StaticOperation{OpName: "bar", Input: soap.NewQName("urn:bar", "bar"), Action: "urn:bar"}
	port := NewStaticPort(foo, bar)

	op, ok := port.Operation(types.NewPacket(envelope(t, types.SOAP11)))
	require.True(t, ok)
	assert.Equal(t, "foo", op.Name())

	request := types.NewPacket(soap.NewEmptyMessage(types.SOAP11))
	request.SOAPAction = "urn:bar"
	op, ok = port.Operation(request)
	require.True(t, ok)
	assert.Equal(t, "bar", op.Name())

	_, ok = port.Operation(types.NewPacket(soap.NewEmptyMessage(types.SOAP11)))
	assert.False(t, ok)
	assert.Equal(t, AnonymousOptional, bar.Anonymous())
	assert.True(t, (&StaticOperation{}).IsInputActionDefault())
}

func TestVersionOf(t *testing.T) {
	v, ok := VersionOf("")
	assert.True(t, ok)
	assert.Same(t, W3C, v)
	v, ok = VersionOf(Member.Namespace)
	assert.True(t, ok)
	assert.Same(t, Member, v)
	_, ok = VersionOf("urn:other")
	assert.False(t, ok)

	assert.True(t, W3C.IsNone(noneW3C))
	assert.False(t, Member.IsNone(""))
	assert.True(t, Member.IsReferenceParameters("ReferenceProperties"))
	assert.False(t, W3C.IsReferenceParameters("ReferenceProperties"))
}
