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

package driver

import (
	"context"
	"sync"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/tools"
)

// Toolset is a lazily-initialized group of tools sharing one underlying
// connection (an MCP server session, typically). The Driver owns a set of
// Toolsets and guarantees setup before the first step and close on every
// exit path, success or not.
type Toolset interface {
	Name() string
	Setup(ctx context.Context) error
	Close() error
}

// closer is satisfied by ToolSource implementations that hold a live
// connection worth tearing down (MCPToolSource); local, in-process sources
// have nothing to close.
type closer interface {
	Close() error
}

// sourceToolset adapts a tools.ToolSource into a Toolset: Setup calls
// DiscoverTools (idempotent on the source's own end) and Close forwards to
// the source's Close if it has one.
type sourceToolset struct {
	mu     sync.Mutex
	source tools.ToolSource
	ready  bool
}

// NewSourceToolset wraps a tools.ToolSource as a Toolset the Driver can
// manage the lifecycle of.
func NewSourceToolset(source tools.ToolSource) Toolset {
	return &sourceToolset{source: source}
}

func (t *sourceToolset) Name() string { return t.source.GetName() }

func (t *sourceToolset) Setup(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		return nil
	}
	if err := t.source.DiscoverTools(ctx); err != nil {
		return &agenterrors.ToolsetSetupError{ToolsetName: t.source.GetName(), Err: err}
	}
	t.ready = true
	return nil
}

// Close is idempotent and safe to call even if Setup never succeeded, so a
// Toolset whose setup failed still gets its (possibly partial) connection
// torn down.
func (t *sourceToolset) Close() error {
	if c, ok := t.source.(closer); ok {
		return c.Close()
	}
	return nil
}
