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

package base

import (
	"context"
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/soaprt/api/types"
	"github.com/rulego/soaprt/engine"
	"github.com/rulego/soaprt/soap"
)

type countingTube struct {
	FilterTube
	destroyed int
}

func (t *countingTube) Copy(cloner types.TubeCloner) types.Tube {
	c := &countingTube{}
	cloner.Add(t, c)
	c.Next = t.CopyNext(cloner)
	return c
}

func (t *countingTube) PreDestroy() {
	t.destroyed++
	t.FilterTube.PreDestroy()
}

func newRequest() *types.Packet {
	payload := etree.NewElement("echo")
	payload.CreateAttr("xmlns", "urn:test")
	msg := soap.NewMessage(types.SOAP12, payload, soap.NewTextHeader(soap.NewQName("urn:h", "Trace"), "h", "abc"))
	p := types.NewPacket(msg)
	p.SOAPAction = "urn:echo"
	p.EndpointAddress = "http://svc"
	return p
}

func TestFilterTube(t *testing.T) {
	last := &countingTube{}
	first := &countingTube{FilterTube: FilterTube{Next: last}}
	p := types.NewPacket(nil)

	na := first.ProcessRequest(context.Background(), p)
	assert.Equal(t, types.InvokeKind, na.Kind)
	assert.Same(t, last, na.Next)
	na = last.ProcessRequest(context.Background(), p)
	assert.Equal(t, types.ReturnKind, na.Kind)
	na = first.ProcessResponse(context.Background(), p)
	assert.Equal(t, types.ReturnKind, na.Kind)
	boom := errors.New("boom")
	na = first.ProcessException(context.Background(), boom)
	assert.Equal(t, boom, na.Err)

	first.PreDestroy()
	assert.Equal(t, 1, first.destroyed)
	assert.Equal(t, 1, last.destroyed)
}

func TestGetEnv(t *testing.T) {
	config := types.NewConfig()
	config.Properties.PutValue("region", "eu")
	p := newRequest()
	_ = p.Properties().Set("tenant", "t1")
	p.SetOneWay(true)

	env := TubeUtils.GetEnv(config, p)
	assert.Equal(t, "urn:echo", env[SOAPActionKey])
	assert.Equal(t, "http://svc", env[EndpointKey])
	assert.Equal(t, "echo", env[PayloadKey])
	assert.Equal(t, "urn:test", env[PayloadNsKey])
	assert.Equal(t, true, env[OneWayKey])
	assert.Equal(t, "abc", env[HeadersKey].(map[string]interface{})["Trace"])
	assert.Equal(t, "t1", env[PropertiesKey].(map[string]interface{})["tenant"])
	assert.Equal(t, "eu", env[GlobalKey].(map[string]string)["region"])
	assert.False(t, p.Message.IsConsumed())
}

func TestFaults(t *testing.T) {
	p := newRequest()
	response := TubeUtils.SenderFault(p, "rejected")
	require.NotNil(t, response.Message)
	assert.True(t, response.Message.IsFault())
	fault, err := soap.ReadFault(response.Message.(*soap.Message))
	require.Nil(t, err)
	assert.Equal(t, soap.SenderCode(types.SOAP12), fault.Code)
	assert.Equal(t, "rejected", fault.Reason)

	response = TubeUtils.ReceiverFault(types.NewPacket(nil), errors.New("down"))
	assert.Equal(t, types.SOAP11, response.Message.Version())
	fault, err = soap.ReadFault(response.Message.(*soap.Message))
	require.Nil(t, err)
	assert.Equal(t, soap.ReceiverCode(types.SOAP11), fault.Code)
}

func TestPipelineFault(t *testing.T) {
	stageErr := &engine.StageError{Stage: "*addressing.ServerTube", Err: errors.New("unknown header")}
	response := TubeUtils.PipelineFault(newRequest(), stageErr)
	fault, err := soap.ReadFault(response.Message.(*soap.Message))
	require.Nil(t, err)
	assert.Equal(t, soap.ReceiverCode(types.SOAP12), fault.Code)
	assert.Equal(t, "unknown header", fault.Reason)

	panicked := &engine.StageError{Stage: "*invoker.Tube", Err: &engine.PanicError{Value: "nil map"}}
	response = TubeUtils.PipelineFault(newRequest(), panicked)
	fault, err = soap.ReadFault(response.Message.(*soap.Message))
	require.Nil(t, err)
	assert.Equal(t, InternalErrorReason, fault.Reason)

	response = TubeUtils.PipelineFault(newRequest(), errors.New("engine is stopped"))
	fault, err = soap.ReadFault(response.Message.(*soap.Message))
	require.Nil(t, err)
	assert.Equal(t, "engine is stopped", fault.Reason)
}

func TestRegistry(t *testing.T) {
	r := NewComponentRegistry()
	r.Register("filter", func(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
		return &countingTube{FilterTube: FilterTube{Next: next}}, nil
	})
	r.Register("broken", func(config types.Config, configuration types.Configuration, next types.Tube) (types.Tube, error) {
		return nil, errors.New("bad configuration")
	})
	assert.Equal(t, []string{"broken", "filter"}, r.Components())

	terminal := &countingTube{}
	head, err := r.BuildChain(types.NewConfig(), terminal, Spec{Type: "filter"}, Spec{Type: "filter"})
	require.Nil(t, err)
	assert.Same(t, terminal, head.(*countingTube).Next.(*countingTube).Next)

	_, err = r.BuildChain(types.NewConfig(), terminal, Spec{Type: "missing"})
	assert.True(t, errors.Is(err, ErrComponentNotFound))
	_, err = r.BuildChain(types.NewConfig(), terminal, Spec{Type: "broken"})
	assert.Equal(t, "bad configuration", err.Error())

	r.Unregister("broken")
	assert.Equal(t, []string{"filter"}, r.Components())
}
