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

const (
	// SOAP11Namespace SOAP 1.1 信封命名空间
	SOAP11Namespace = "http://schemas.xmlsoap.org/soap/envelope/"
	// SOAP12Namespace SOAP 1.2 信封命名空间
	SOAP12Namespace = "http://www.w3.org/2003/05/soap-envelope"
	// SOAP11ContentType SOAP 1.1 content type
	SOAP11ContentType = "text/xml; charset=utf-8"
	// SOAP12ContentType SOAP 1.2 content type
	SOAP12ContentType = "application/soap+xml; charset=utf-8"
)

// SOAPVersion describes the version-dependent vocabulary of a SOAP envelope.
// SOAPVersion 描述SOAP信封中与版本相关的词汇。
type SOAPVersion struct {
	// Name 版本名称，1.1 或 1.2
	Name string
	// Namespace 信封命名空间
	Namespace string
	// ContentType HTTP content type
	ContentType string
	// ImplicitRole 未声明role时头部的隐式角色
	ImplicitRole string
	// RoleAttribute 头部角色属性名，1.1为actor，1.2为role
	RoleAttribute string
	// SenderFaultCode 发送方错误码本地名，1.1为Client，1.2为Sender
	SenderFaultCode string
	// ReceiverFaultCode 接收方错误码本地名，1.1为Server，1.2为Receiver
	ReceiverFaultCode string
}

var (
	// SOAP11 SOAP 1.1
	SOAP11 = SOAPVersion{
		Name:              "1.1",
		Namespace:         SOAP11Namespace,
		ContentType:       SOAP11ContentType,
		ImplicitRole:      "http://schemas.xmlsoap.org/soap/actor/next",
		RoleAttribute:     "actor",
		SenderFaultCode:   "Client",
		ReceiverFaultCode: "Server",
	}
	// SOAP12 SOAP 1.2
	SOAP12 = SOAPVersion{
		Name:              "1.2",
		Namespace:         SOAP12Namespace,
		ContentType:       SOAP12ContentType,
		ImplicitRole:      "http://www.w3.org/2003/05/soap-envelope/role/ultimateReceiver",
		RoleAttribute:     "role",
		SenderFaultCode:   "Sender",
		ReceiverFaultCode: "Receiver",
	}
)

// IsSOAP12 reports whether the version is SOAP 1.2.
func (v SOAPVersion) IsSOAP12() bool {
	return v.Namespace == SOAP12Namespace
}

// SOAPVersionFromNamespace returns the version bound to the envelope namespace.
func SOAPVersionFromNamespace(ns string) (SOAPVersion, bool) {
	switch ns {
	case SOAP11Namespace:
		return SOAP11, true
	case SOAP12Namespace:
		return SOAP12, true
	default:
		return SOAPVersion{}, false
	}
}
