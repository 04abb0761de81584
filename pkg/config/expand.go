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

// ExpandConfigEnvVars expands ${VAR}/$VAR/${VAR:-default} references in
// every string field a config file plausibly carries a secret or
// host-specific value in. Unlike the teacher's raw-koanf-tree expansion
// (which walks the entire decoded map before unmarshalling), this walks
// the already-typed Config: the field set here is small and fixed, so
// naming them directly is simpler than reflecting over the whole tree.
func ExpandConfigEnvVars(cfg *Config) {
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	cfg.LLM.BaseURL = expandEnvVars(cfg.LLM.BaseURL)

	for i := range cfg.Toolsets {
		ts := &cfg.Toolsets[i]
		ts.Command = expandEnvVars(ts.Command)
		ts.URL = expandEnvVars(ts.URL)
		for j, a := range ts.Args {
			ts.Args[j] = expandEnvVars(a)
		}
		for j, e := range ts.Env {
			ts.Env[j] = expandEnvVars(e)
		}
	}
}
