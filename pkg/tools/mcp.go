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

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"
)

// MCPServerConfig describes a single remote MCP server connection. Transport
// is one of "stdio", "sse", or "streamable_http".
type MCPServerConfig struct {
	Name      string
	Transport string
	Command   string   // stdio
	Args      []string // stdio
	Env       []string // stdio
	URL       string   // sse, streamable_http
	Internal  bool     // if true, tools from this source are hidden from agents
}

// MCPToolSource is a ToolSource backed by a single remote MCP server,
// reachable over stdio, SSE, or streamable HTTP. It owns the underlying
// mcp-go client connection and the per-tool Tool adapters it discovers.
type MCPToolSource struct {
	mu       sync.RWMutex
	cfg      MCPServerConfig
	inner    sdkclient.MCPClient
	tools    map[string]Tool
	internal bool
}

// NewMCPToolSource creates an unconnected MCPToolSource. Call DiscoverTools
// (which connects, performs the MCP initialize handshake, and lists tools)
// before GetTool/ListTools return anything.
func NewMCPToolSource(cfg MCPServerConfig) *MCPToolSource {
	return &MCPToolSource{cfg: cfg, tools: make(map[string]Tool), internal: cfg.Internal}
}

func (s *MCPToolSource) GetName() string { return s.cfg.Name }
func (s *MCPToolSource) GetType() string { return "mcp" }

// connect establishes the transport and completes the MCP initialize
// handshake. Idempotent: a second call is a no-op if already connected.
func (s *MCPToolSource) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inner != nil {
		return nil
	}

	var inner sdkclient.MCPClient
	var err error

	switch s.cfg.Transport {
	case "stdio":
		inner, err = sdkclient.NewStdioMCPClient(s.cfg.Command, s.cfg.Env, s.cfg.Args...)
		if err != nil {
			return fmt.Errorf("mcp: start stdio server %q: %w", s.cfg.Name, err)
		}

	case "sse":
		cli, e := sdkclient.NewSSEMCPClient(s.cfg.URL)
		if e != nil {
			return fmt.Errorf("mcp: create SSE client %q: %w", s.cfg.Name, e)
		}
		if e := cli.Start(ctx); e != nil {
			return fmt.Errorf("mcp: start SSE client %q: %w", s.cfg.Name, e)
		}
		inner = cli

	case "streamable_http", "":
		cli, e := sdkclient.NewStreamableHttpClient(s.cfg.URL)
		if e != nil {
			return fmt.Errorf("mcp: create streamable-http client %q: %w", s.cfg.Name, e)
		}
		inner = cli

	default:
		return fmt.Errorf("mcp: unknown transport %q for server %q", s.cfg.Transport, s.cfg.Name)
	}

	_, err = inner.Initialize(ctx, sdkmcp.InitializeRequest{
		Params: sdkmcp.InitializeParams{
			ProtocolVersion: sdkmcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdkmcp.Implementation{
				Name:    "agentrun",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = inner.Close()
		return fmt.Errorf("mcp: initialize server %q: %w", s.cfg.Name, err)
	}

	s.inner = inner
	return nil
}

// DiscoverTools connects (if not already) and refreshes the set of tools
// this source exposes.
func (s *MCPToolSource) DiscoverTools(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	inner := s.inner
	s.mu.RUnlock()

	result, err := inner.ListTools(ctx, sdkmcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("mcp: list tools %q: %w", s.cfg.Name, err)
	}

	discovered := make(map[string]Tool, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		discovered[t.Name] = &mcpTool{
			source:      s,
			name:        t.Name,
			description: t.Description,
			parameters:  parametersFromJSONSchema(schema),
		}
	}

	s.mu.Lock()
	s.tools = discovered
	s.mu.Unlock()
	return nil
}

func (s *MCPToolSource) ListTools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		info := t.GetInfo()
		info.ServerURL = s.cfg.Name
		out = append(out, info)
	}
	return out
}

func (s *MCPToolSource) GetTool(name string) (Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// ListMCPToolNames returns the names of every tool this source has
// discovered, regardless of the registry's own tool-name collision rules.
func (s *MCPToolSource) ListMCPToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}

// Close terminates the connection to the MCP server.
func (s *MCPToolSource) Close() error {
	s.mu.Lock()
	inner := s.inner
	s.inner = nil
	s.mu.Unlock()

	if inner == nil {
		return nil
	}
	return inner.Close()
}

// mcpTool adapts a single remote tool exposed by an MCPToolSource to the
// runtime's Tool interface.
type mcpTool struct {
	source      *MCPToolSource
	name        string
	description string
	parameters  []ToolParameter
}

func (t *mcpTool) GetName() string        { return t.name }
func (t *mcpTool) GetDescription() string { return t.description }

func (t *mcpTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
		ServerURL:   t.source.cfg.Name,
	}
}

func (t *mcpTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	t.source.mu.RLock()
	inner := t.source.inner
	t.source.mu.RUnlock()

	if inner == nil {
		err := fmt.Errorf("mcp: client %q not connected", t.source.cfg.Name)
		return buildMCPErrorResult(t.name, err.Error(), time.Since(start), t.source.cfg.Name, t.source.cfg.URL), err
	}

	req := sdkmcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	result, err := inner.CallTool(ctx, req)
	if err != nil {
		wrapped := fmt.Errorf("mcp: call tool %q on %q: %w", t.name, t.source.cfg.Name, err)
		return buildMCPErrorResult(t.name, wrapped.Error(), time.Since(start), t.source.cfg.Name, t.source.cfg.URL), wrapped
	}

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdkmcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return buildMCPErrorResult(t.name, text, time.Since(start), t.source.cfg.Name, t.source.cfg.URL),
			fmt.Errorf("mcp: tool %q returned error: %s", t.name, text)
	}

	return buildMCPSuccessResult(t.name, text, time.Since(start), t.source.cfg.Name, t.source.cfg.URL, nil), nil
}

// parametersFromJSONSchema extracts a flat []ToolParameter from a JSON
// Schema object's top-level "properties"/"required", for display and for
// the LLM-facing ToolDefinition conversion in pkg/llms. Nested schemas are
// passed through best-effort; this is metadata for prompting, not a
// validator.
func parametersFromJSONSchema(schema json.RawMessage) []ToolParameter {
	var doc struct {
		Properties map[string]struct {
			Type        string   `json:"type"`
			Description string   `json:"description"`
			Enum        []string `json:"enum"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil
	}

	required := make(map[string]bool, len(doc.Required))
	for _, r := range doc.Required {
		required[r] = true
	}

	params := make([]ToolParameter, 0, len(doc.Properties))
	for name, prop := range doc.Properties {
		params = append(params, ToolParameter{
			Name:        name,
			Type:        prop.Type,
			Description: prop.Description,
			Required:    required[name],
			Enum:        prop.Enum,
		})
	}
	return params
}

var _ ToolSource = (*MCPToolSource)(nil)
var _ Tool = (*mcpTool)(nil)
