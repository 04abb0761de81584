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

// Package step implements the Step Executor: pluggable per-route
// Strategies that turn one pass over the model (plus, for the "code"
// route, the Sandboxed Code Evaluator) into a single Response.
package step

import (
	"context"
	"fmt"

	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/registry"
	"github.com/kpekel/agentrun/pkg/response"
)

// Strategy executes exactly one step against the given State, returning
// the Response that step produced. Every route shares the same concrete
// state type (CodeAgentState) since even a "plain" route that skips code
// execution operates on the same run; only the "code" route's Strategy
// actually populates the per-block results CodeAgentState carries.
type Strategy interface {
	Step(ctx context.Context, state *agentstate.CodeAgentState) (*response.Response, error)
}

// StrategyRegistry is a named registry of Strategies, selected by an
// Input's Route field (see agentstate.Input), the same registration
// pattern the runtime uses for LLM providers and tools.
type StrategyRegistry struct {
	*registry.BaseRegistry[Strategy]
}

func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{BaseRegistry: registry.NewBaseRegistry[Strategy]()}
}

func (r *StrategyRegistry) RegisterStrategy(route string, s Strategy) error {
	if route == "" {
		return fmt.Errorf("route cannot be empty")
	}
	return r.Register(route, s)
}

func (r *StrategyRegistry) GetStrategy(route string) (Strategy, error) {
	s, ok := r.Get(route)
	if !ok {
		return nil, fmt.Errorf("no strategy registered for route %q", route)
	}
	return s, nil
}
