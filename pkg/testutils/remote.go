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

package testutils

import (
	"context"

	"github.com/kpekel/agentrun/pkg/tools"
)

// FakeRemoteToolServer stands in for an MCP server: it implements
// tools.ToolSource entirely in-process, so a test can exercise
// ToolRegistry/driver.Toolset wiring against "remote" tools without
// spawning a subprocess or opening a socket. DiscoverFunc/DiscoverErr let
// a test script a source whose first discovery fails (e.g. to exercise
// ToolsetSetupError's non-fatal contract) and then succeeds on retry.
type FakeRemoteToolServer struct {
	Name         string
	DiscoverFunc func(ctx context.Context) error
	DiscoverErr  error
	ClosedCalled bool

	tools map[string]tools.Tool
}

// NewFakeRemoteToolServer returns a server exposing the given tools once
// discovered.
func NewFakeRemoteToolServer(name string, offered ...tools.Tool) *FakeRemoteToolServer {
	m := make(map[string]tools.Tool, len(offered))
	for _, t := range offered {
		m[t.GetName()] = t
	}
	return &FakeRemoteToolServer{Name: name, tools: m}
}

func (s *FakeRemoteToolServer) GetName() string { return s.Name }
func (s *FakeRemoteToolServer) GetType() string { return "mcp" }

func (s *FakeRemoteToolServer) DiscoverTools(ctx context.Context) error {
	if s.DiscoverFunc != nil {
		return s.DiscoverFunc(ctx)
	}
	return s.DiscoverErr
}

func (s *FakeRemoteToolServer) ListTools() []tools.ToolInfo {
	infos := make([]tools.ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, t.GetInfo())
	}
	return infos
}

func (s *FakeRemoteToolServer) GetTool(name string) (tools.Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// Close satisfies the duck-typed closer interface driver.sourceToolset
// checks for, recording that it was called.
func (s *FakeRemoteToolServer) Close() error {
	s.ClosedCalled = true
	return nil
}

var _ tools.ToolSource = (*FakeRemoteToolServer)(nil)
