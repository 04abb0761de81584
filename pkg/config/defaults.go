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

package config

import (
	"time"

	"github.com/kpekel/agentrun/pkg/driver"
	"github.com/kpekel/agentrun/pkg/sandbox"
)

// ApplyDefaults fills in zero-valued fields with the runtime's own
// defaults, so a config file only needs to name what it wants to override.
func ApplyDefaults(cfg *Config) {
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "agentrun"
	}
	if cfg.Agent.DefaultRoute == "" {
		cfg.Agent.DefaultRoute = "code"
	}
	if cfg.Agent.MaxSteps <= 0 {
		cfg.Agent.MaxSteps = driver.DefaultMaxSteps
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 4096
	}

	if cfg.Sandbox.MaxOperations <= 0 {
		cfg.Sandbox.MaxOperations = sandbox.DefaultMaxOperations
	}
	if cfg.Sandbox.MaxWhileIterations <= 0 {
		cfg.Sandbox.MaxWhileIterations = sandbox.DefaultMaxWhileIterations
	}
	if cfg.Sandbox.MaxOutputLen <= 0 {
		cfg.Sandbox.MaxOutputLen = 4000
	}

	if cfg.Compaction.Threshold <= 0 {
		cfg.Compaction.Threshold = driver.DefaultCompactionThreshold
	}
	if cfg.Compaction.KeepLast <= 0 {
		cfg.Compaction.KeepLast = driver.DefaultCompactionKeepLast
	}

	for i := range cfg.Toolsets {
		if cfg.Toolsets[i].Type == "" {
			cfg.Toolsets[i].Type = "local"
		}
	}

	if cmd := cfg.BuiltinTools.Command; cmd != nil {
		if cmd.WorkingDirectory == "" {
			cmd.WorkingDirectory = "./"
		}
		if cmd.MaxExecutionTime <= 0 {
			cmd.MaxExecutionTime = 30 * time.Second
		}
	}
	if rf := cfg.BuiltinTools.ReadFile; rf != nil {
		if rf.MaxFileSize <= 0 {
			rf.MaxFileSize = 10485760
		}
		if rf.WorkingDirectory == "" {
			rf.WorkingDirectory = "./"
		}
	}
	if wr := cfg.BuiltinTools.WebRequest; wr != nil {
		if wr.Timeout <= 0 {
			wr.Timeout = 30 * time.Second
		}
		if wr.MaxRedirects <= 0 {
			wr.MaxRedirects = 5
		}
		if len(wr.AllowedMethods) == 0 {
			wr.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD"}
		}
		if wr.UserAgent == "" {
			wr.UserAgent = "agentrun/1.0"
		}
	}
}
