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

	"github.com/rulego/soaprt/api/types"
)

// Validator checks the addressing headers of a message.
//
// Validator 校验消息的WS-Addressing头部。
type Validator struct {
	Version *Version
	// Binding may be nil, addressing is then optional.
	Binding Binding
	// Port may be nil, operation dependent checks are then skipped.
	Port WSDLPort
}

// NewValidator creates a validator. The addressing version of binding wins
// over W3C when set.
func NewValidator(binding Binding, port WSDLPort) *Validator {
	v := &Validator{Version: W3C, Binding: binding, Port: port}
	if binding != nil && binding.AddressingVersion() != nil {
		v.Version = binding.AddressingVersion()
	}
	return v
}

// Required 是否要求WS-Addressing
func (v *Validator) Required() bool {
	return v.Binding != nil && v.Binding.AddressingRequired()
}

// Operation resolves the WSDL operation of request, if any.
func (v *Validator) Operation(request *types.Packet) WSDLOperation {
	if v.Port == nil {
		return nil
	}
	op, ok := v.Port.Operation(request)
	if !ok {
		return nil
	}
	return op
}

// HasHeaders reports whether msg carries any header of the addressing namespace.
func (v *Validator) HasHeaders(msg types.Message) bool {
	return msg != nil && len(msg.Headers().All(v.Version.Namespace)) > 0
}

// Validate checks an inbound server request and returns its addressing
// properties. Protocol violations are reported as *InvalidMapError,
// *MapRequiredError or *ActionNotSupportedError; any other error is not
// answerable with a fault. The properties are returned whenever they could
// be read, so that a fault can still be routed.
func (v *Validator) Validate(request *types.Packet, op WSDLOperation) (*Properties, error) {
	msg := request.Message
	if msg == nil {
		if v.Required() {
			return nil, ErrNoMessage
		}
		return &Properties{}, nil
	}
	if !v.HasHeaders(msg) {
		if v.Required() {
			return &Properties{}, &MapRequiredError{Header: v.Version.QName(ActionName)}
		}
		return &Properties{}, nil
	}
	if err := v.CheckCardinality(msg); err != nil {
		return nil, err
	}
	props, err := v.Version.ReadProperties(msg)
	if err != nil {
		return nil, err
	}
	if err := v.checkMandatory(props); err != nil {
		return props, err
	}
	if request.IsClient() || op == nil {
		return props, nil
	}
	if err := v.checkAnonymous(props, op); err != nil {
		return props, err
	}
	return props, v.checkAction(request, props, op)
}

// ValidateResponse checks an inbound client response. Only the cardinality
// and the header syntax are checked.
func (v *Validator) ValidateResponse(response *types.Packet) (*Properties, error) {
	if response.Message == nil || !v.HasHeaders(response.Message) {
		return &Properties{}, nil
	}
	if err := v.CheckCardinality(response.Message); err != nil {
		return nil, err
	}
	return v.Version.ReadProperties(response.Message)
}

// CheckCardinality verifies that the in-role addressing headers of msg occur
// at most once, RelatesTo and FaultDetail excepted.
func (v *Validator) CheckCardinality(msg types.Message) error {
	seen := make(map[string]bool)
	var err error
	msg.Headers().Range(func(h types.Header) bool {
		if h.Namespace() != v.Version.Namespace || !InRole(h, msg.Version()) {
			return true
		}
		switch local := h.LocalName(); local {
		case ToName, FromName, ReplyToName, FaultToName, ActionName, MessageIDName:
			if seen[local] {
				err = &InvalidMapError{Header: v.Version.QName(local), Subsubcode: v.Version.InvalidCardinalityTag()}
				return false
			}
			seen[local] = true
		case RelatesToName, FaultDetailName:
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownAddressingHeader, v.Version.QName(local))
			return false
		}
		return true
	})
	return err
}

func (v *Validator) checkMandatory(props *Properties) error {
	if props.Action == "" && !v.Required() {
		return nil
	}
	if props.Action == "" {
		return &MapRequiredError{Header: v.Version.QName(ActionName)}
	}
	if props.To == "" {
		return &MapRequiredError{Header: v.Version.QName(ToName)}
	}
	return nil
}

// checkAnonymous applies wsaw:Anonymous, which only W3C addressing defines.
func (v *Validator) checkAnonymous(props *Properties, op WSDLOperation) error {
	if v.Version != W3C {
		return nil
	}
	mode := op.Anonymous()
	for _, target := range []struct {
		local string
		epr   *EPR
	}{{ReplyToName, props.ReplyTo}, {FaultToName, props.FaultTo}} {
		if target.epr == nil {
			continue
		}
		anonymous := v.Version.IsAnonymous(target.epr.Address)
		switch mode {
		case AnonymousOptional:
		case AnonymousRequired:
			if !anonymous {
				return &InvalidMapError{Header: v.Version.QName(target.local), Subsubcode: v.Version.QName(OnlyAnonymousAddressSupportedName)}
			}
		case AnonymousProhibited:
			if anonymous {
				return &InvalidMapError{Header: v.Version.QName(target.local), Subsubcode: v.Version.QName(OnlyNonAnonymousAddressSupportedName)}
			}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidAnonymousSemantics, mode)
		}
	}
	return nil
}

// checkAction compares the Action with the input action of op. A default
// input action is replaced by the SOAPAction of the request.
func (v *Validator) checkAction(request *types.Packet, props *Properties, op WSDLOperation) error {
	if props.Action == "" {
		return nil
	}
	expected := op.InputAction()
	if op.IsInputActionDefault() {
		expected = request.SOAPAction
	}
	if expected != "" && expected != props.Action {
		return &ActionNotSupportedError{Action: props.Action}
	}
	return nil
}
