// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package step

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/response"
)

type noopStrategy struct{}

func (noopStrategy) Step(ctx context.Context, state *agentstate.CodeAgentState) (*response.Response, error) {
	return response.New("noop"), nil
}

func TestStrategyRegistry_RegisterAndGet(t *testing.T) {
	reg := NewStrategyRegistry()
	require.NoError(t, reg.RegisterStrategy("code", noopStrategy{}))

	s, err := reg.GetStrategy("code")
	require.NoError(t, err)
	resp, err := s.Step(context.Background(), agentstate.NewCodeAgentState("t", &agentstate.Input{Query: "t"}))
	require.NoError(t, err)
	assert.Equal(t, "noop", resp.RawResponse)
}

func TestStrategyRegistry_UnknownRouteErrors(t *testing.T) {
	reg := NewStrategyRegistry()
	_, err := reg.GetStrategy("missing")
	assert.Error(t, err)
}

func TestStrategyRegistry_EmptyRouteRejected(t *testing.T) {
	reg := NewStrategyRegistry()
	err := reg.RegisterStrategy("", noopStrategy{})
	assert.Error(t, err)
}
