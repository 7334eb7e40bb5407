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

	"github.com/rulego/soaprt/soap"
)

var (
	// ErrUnknownAddressingHeader is raised for a header in the addressing
	// namespace that the version does not define. It usually means the peer
	// speaks another addressing version.
	ErrUnknownAddressingHeader = errors.New("unknown WS-Addressing header")
	// ErrInvalidAnonymousSemantics wsaw:Anonymous取值非法
	ErrInvalidAnonymousSemantics = errors.New("invalid wsaw:Anonymous value")
	// ErrNoMessage 要求WS-Addressing但数据包没有消息
	ErrNoMessage = errors.New("addressing is required but the packet has no message")
)

// InvalidMapError reports an invalid addressing header. It is answered with
// an InvalidAddressingHeader fault.
type InvalidMapError struct {
	// Header 出错的头部
	Header soap.QName
	// Subsubcode such as InvalidCardinality or OnlyAnonymousAddressSupported
	Subsubcode soap.QName
}

func (e *InvalidMapError) Error() string {
	return fmt.Sprintf("invalid addressing header %s: %s", e.Header, e.Subsubcode.Local)
}

// MapRequiredError reports a missing mandatory addressing header.
type MapRequiredError struct {
	Header soap.QName
}

func (e *MapRequiredError) Error() string {
	return fmt.Sprintf("required addressing header %s is missing", e.Header)
}

// ActionNotSupportedError reports an Action that does not match the operation.
type ActionNotSupportedError struct {
	Action string
}

func (e *ActionNotSupportedError) Error() string {
	return fmt.Sprintf("action %q is not supported", e.Action)
}

// IsProtocolError reports whether err is answered with a fault rather than
// aborting the pipeline.
func IsProtocolError(err error) bool {
	var invalidMap *InvalidMapError
	var mapRequired *MapRequiredError
	var notSupported *ActionNotSupportedError
	return errors.As(err, &invalidMap) || errors.As(err, &mapRequired) || errors.As(err, &notSupported)
}
