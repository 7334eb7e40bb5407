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

// Package addressing implements WS-Addressing for server and client pipelines.
//
// The server tube validates the addressing headers of inbound requests
// (cardinality, mandatory headers, wsaw:Anonymous semantics and the WSDL input
// action), turns violations into SOAP faults and routes replies: anonymous
// replies ride the transport back channel, none replies are dropped and any
// other address is served out of band by a ReplySender chosen by URL scheme.
//
// The client tube fills the addressing headers of outbound requests and checks
// the cardinality of responses.
//
// Package addressing 实现WS-Addressing：服务端头部校验、故障生成、应答路由以及客户端头部填充。
package addressing

import (
	"strings"

	"github.com/rulego/soaprt/soap"
)

// Anonymous is the wsaw:Anonymous enumerant of a WSDL operation.
type Anonymous string

const (
	// AnonymousOptional 不做检查
	AnonymousOptional Anonymous = "optional"
	// AnonymousRequired ReplyTo/FaultTo必须为匿名地址
	AnonymousRequired Anonymous = "required"
	// AnonymousProhibited ReplyTo/FaultTo不能为匿名地址
	AnonymousProhibited Anonymous = "prohibited"
)

// Header local names.
const (
	ToName          = "To"
	FromName        = "From"
	ReplyToName     = "ReplyTo"
	FaultToName     = "FaultTo"
	ActionName      = "Action"
	MessageIDName   = "MessageID"
	RelatesToName   = "RelatesTo"
	FaultDetailName = "FaultDetail"

	AddressName             = "Address"
	ReferenceParametersName = "ReferenceParameters"
	RelationshipTypeName    = "RelationshipType"
	ProblemHeaderQNameName  = "ProblemHeaderQName"
	ProblemActionName       = "ProblemAction"
)

// Fault subcode local names.
const (
	ActionNotSupportedName               = "ActionNotSupported"
	DestinationUnreachableName           = "DestinationUnreachable"
	EndpointUnavailableName              = "EndpointUnavailable"
	InvalidAddressName                   = "InvalidAddress"
	InvalidEPRName                       = "InvalidEPR"
	MissingAddressInEPRName              = "MissingAddressInEPR"
	DuplicateMessageIDName               = "DuplicateMessageID"
	ActionMismatchName                   = "ActionMismatch"
	OnlyAnonymousAddressSupportedName    = "OnlyAnonymousAddressSupported"
	OnlyNonAnonymousAddressSupportedName = "OnlyNonAnonymousAddressSupported"
)

// Version is one WS-Addressing namespace with its well-known URIs and fault
// vocabulary. Use W3C or Member; addresses are compared as exact strings.
//
// Version WS-Addressing版本，包含命名空间、匿名地址以及故障词汇。
type Version struct {
	// Name 版本名称
	Name string
	// Namespace 头部命名空间
	Namespace string
	// WSDLNamespace wsaw命名空间
	WSDLNamespace string
	// Prefix 头部前缀
	Prefix string
	// Anonymous 匿名地址
	Anonymous string
	// None is the address of messages that must not be sent. Member Submission
	// has no none address.
	None string
	// ReplyRelationship RelatesTo默认关系类型
	ReplyRelationship string

	MapRequiredLocal        string
	MapRequiredText         string
	InvalidMapLocal         string
	InvalidMapText          string
	InvalidCardinalityLocal string
	ActionNotSupportedText  string
	// IsReferenceParameterLocal marks copied reference parameters; empty when
	// the version has no marker.
	IsReferenceParameterLocal string
	// referenceParameterLocals are the EPR children holding reference parameters.
	referenceParameterLocals []string
}

var (
	// W3C WS-Addressing 1.0 (2005/08)
	W3C = &Version{
		Name:                      "w3c",
		Namespace:                 "http://www.w3.org/2005/08/addressing",
		WSDLNamespace:             "http://www.w3.org/2006/05/addressing/wsdl",
		Prefix:                    "wsa",
		Anonymous:                 "http://www.w3.org/2005/08/addressing/anonymous",
		None:                      "http://www.w3.org/2005/08/addressing/none",
		ReplyRelationship:         "http://www.w3.org/2005/08/addressing/reply",
		MapRequiredLocal:          "MessageAddressingHeaderRequired",
		MapRequiredText:           "A required header representing a Message Addressing Property is not present",
		InvalidMapLocal:           "InvalidAddressingHeader",
		InvalidMapText:            "A header representing a Message Addressing Property is not valid and the message cannot be processed",
		InvalidCardinalityLocal:   "InvalidCardinality",
		ActionNotSupportedText:    "The \"%s\" cannot be processed at the receiver",
		IsReferenceParameterLocal: "IsReferenceParameter",
		referenceParameterLocals:  []string{ReferenceParametersName},
	}
	// Member WS-Addressing Member Submission (2004/08)
	Member = &Version{
		Name:                     "member",
		Namespace:                "http://schemas.xmlsoap.org/ws/2004/08/addressing",
		WSDLNamespace:            "http://schemas.xmlsoap.org/ws/2004/08/addressing",
		Prefix:                   "wsa",
		Anonymous:                "http://schemas.xmlsoap.org/ws/2004/08/addressing/role/anonymous",
		None:                     "",
		ReplyRelationship:        "wsa:Reply",
		MapRequiredLocal:         "MessageInformationHeaderRequired",
		MapRequiredText:          "A required message information header, To, MessageID, or Action, is not present.",
		InvalidMapLocal:          "InvalidMessageInformationHeader",
		InvalidMapText:           "A message information header is not valid and the message cannot be processed.",
		InvalidCardinalityLocal:  "InvalidMessageInformationHeader",
		ActionNotSupportedText:   "The \"%s\" cannot be processed at the receiver.",
		referenceParameterLocals: []string{ReferenceParametersName, "ReferenceProperties"},
	}
)

// VersionOf returns the version of a namespace or a version name.
func VersionOf(nsOrName string) (*Version, bool) {
	switch strings.ToLower(nsOrName) {
	case W3C.Namespace, W3C.Name, "":
		return W3C, true
	case Member.Namespace, Member.Name:
		return Member, true
	default:
		return nil, false
	}
}

// QName returns local qualified with the addressing namespace.
func (v *Version) QName(local string) soap.QName {
	return soap.QName{Space: v.Namespace, Local: local}
}

// DefaultFaultAction is the Action of faults generated by the runtime.
func (v *Version) DefaultFaultAction() string {
	return v.Namespace + "/fault"
}

const unsetOutputAction = "http://jax-ws.dev.java.net/addressing/output-action-not-set"

// UnsetOutputAction is the Action of replies whose action could not be
// resolved from the WSDL operation, the response or the reply message.
// UnsetOutputAction 无法确定应答Action时使用的默认值
func (v *Version) UnsetOutputAction() string {
	return unsetOutputAction
}

// IsAnonymous 是否为匿名地址
func (v *Version) IsAnonymous(address string) bool {
	return address == v.Anonymous
}

// IsNone reports whether address is the none address. It never matches for
// Member Submission, which defines no none address.
func (v *Version) IsNone(address string) bool {
	return v.None != "" && address == v.None
}

// IsReferenceParameters reports whether an EPR child holds reference parameters.
func (v *Version) IsReferenceParameters(local string) bool {
	for _, l := range v.referenceParameterLocals {
		if l == local {
			return true
		}
	}
	return false
}

// MapRequiredTag 必需头部缺失故障码
func (v *Version) MapRequiredTag() soap.QName {
	return v.QName(v.MapRequiredLocal)
}

// InvalidMapTag 无效头部故障码
func (v *Version) InvalidMapTag() soap.QName {
	return v.QName(v.InvalidMapLocal)
}

// InvalidCardinalityTag 头部重复故障子码
func (v *Version) InvalidCardinalityTag() soap.QName {
	return v.QName(v.InvalidCardinalityLocal)
}

// ActionNotSupportedTag 不支持的Action故障码
func (v *Version) ActionNotSupportedTag() soap.QName {
	return v.QName(ActionNotSupportedName)
}
