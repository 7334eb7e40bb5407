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

	"github.com/beevik/etree"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/soap"
)

// problemPrefix binds header namespaces other than the addressing one in
// ProblemHeaderQName values.
const problemPrefix = "ph"

// NewFault renders a protocol error as a fault message. ok is false when err
// is not a protocol error.
//
// SOAP 1.2 faults carry env:Sender with the addressing subcode chain and the
// problem in the fault detail. SOAP 1.1 faults use the most specific subcode
// as faultcode and carry the problem in a FaultDetail header.
func (v *Version) NewFault(version types.SOAPVersion, err error) (msg *soap.Message, ok bool) {
	var (
		subcode    soap.QName
		subsubcode soap.QName
		reason     string
		problem    *etree.Element
	)
	var invalidMap *InvalidMapError
	var mapRequired *MapRequiredError
	var notSupported *ActionNotSupportedError
	switch {
	case errors.As(err, &invalidMap):
		subcode, subsubcode = v.InvalidMapTag(), invalidMap.Subsubcode
		reason = v.InvalidMapText
		problem = v.problemHeader(invalidMap.Header)
	case errors.As(err, &mapRequired):
		subcode = v.MapRequiredTag()
		reason = v.MapRequiredText
		problem = v.problemHeader(mapRequired.Header)
	case errors.As(err, &notSupported):
		subcode = v.ActionNotSupportedTag()
		reason = fmt.Sprintf(v.ActionNotSupportedText, notSupported.Action)
		problem = v.problemAction(notSupported.Action)
	default:
		return nil, false
	}

	action := v.TextHeader(ActionName, v.DefaultFaultAction())
	if version.IsSOAP12() {
		fault := soap.Fault{
			Code:     soap.SenderCode(version),
			Subcodes: []soap.QName{subcode},
			Reason:   reason,
			Detail:   []*etree.Element{problem},
		}
		if !subsubcode.IsZero() {
			fault.Subcodes = append(fault.Subcodes, subsubcode)
		}
		return soap.NewFaultMessage(version, fault, action), true
	}
	code := subcode
	if !subsubcode.IsZero() {
		code = subsubcode
	}
	detail := soap.NewElement(v.QName(FaultDetailName), v.Prefix)
	detail.AddChild(problem)
	fault := soap.Fault{Code: code, Reason: reason}
	return soap.NewFaultMessage(version, fault, action, soap.NewHeader(detail)), true
}

// problemHeader renders <wsa:ProblemHeaderQName>prefix:Local</wsa:ProblemHeaderQName>.
func (v *Version) problemHeader(header soap.QName) *etree.Element {
	el := soap.NewElement(v.QName(ProblemHeaderQNameName), v.Prefix)
	switch header.Space {
	case v.Namespace:
		el.SetText(header.Prefixed(v.Prefix))
	case "":
		el.SetText(header.Local)
	default:
		el.CreateAttr("xmlns:"+problemPrefix, header.Space)
		el.SetText(header.Prefixed(problemPrefix))
	}
	return el
}

func (v *Version) problemAction(action string) *etree.Element {
	el := soap.NewElement(v.QName(ProblemActionName), v.Prefix)
	el.CreateElement(v.Prefix + ":" + ActionName).SetText(action)
	return el
}

// FaultResponse answers request with the fault of a protocol error. One-way
// exchanges are answered with a response without message instead. ok is false
// when err is not a protocol error.
func (v *Version) FaultResponse(request *types.Packet, op WSDLOperation, version types.SOAPVersion, err error) (response *types.Packet, ok bool) {
	if !IsProtocolError(err) {
		return nil, false
	}
	if request.OneWay() || (op != nil && op.IsOneWay()) {
		return request.CreateServerResponse(nil, ""), true
	}
	if request.Message != nil {
		version = request.Message.Version()
	}
	msg, _ := v.NewFault(version, err)
	return request.CreateServerResponse(msg, v.DefaultFaultAction()), true
}
