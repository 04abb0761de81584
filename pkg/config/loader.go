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
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kpekel/agentrun/pkg/logger"
)

// LoaderOptions configures a Loader. Watch, when true, reloads the file
// on change and invokes OnChange with the freshly parsed Config.
type LoaderOptions struct {
	Path     string
	Watch    bool
	OnChange func(*Config) error
}

// Loader reads a YAML config file with knadh/koanf, expands environment
// variable references, fills in defaults, resolves provider credentials,
// and validates the result. It's the sole config entry point cmd/agentrun
// uses.
type Loader struct {
	koanf   *koanf.Koanf
	options LoaderOptions
	parser  *yaml.YAML
}

// NewLoader builds a Loader for opts.Path. Path is required.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	return &Loader{
		koanf:   koanf.New("."),
		options: opts,
		parser:  yaml.Parser(),
	}, nil
}

// Load parses the file, applies the loading pipeline (env expansion,
// defaults, credential resolution, validation), and starts a watcher
// goroutine if Watch is set.
func (l *Loader) Load() (*Config, error) {
	provider := file.Provider(l.options.Path)

	if err := l.koanf.Load(provider, l.parser); err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", l.options.Path, err)
	}

	cfg, err := l.unmarshalAndProcess()
	if err != nil {
		return nil, err
	}

	if l.options.Watch {
		go l.watch(provider)
	}

	return cfg, nil
}

func (l *Loader) unmarshalAndProcess() (*Config, error) {
	cfg := &Config{}
	if err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	ExpandConfigEnvVars(cfg)
	ApplyDefaults(cfg)
	ResolveCredentials(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// watcher is the subset of koanf.Provider that file.Provider implements,
// backing fsnotify-driven reloads without this package importing fsnotify
// directly.
type watcher interface {
	Watch(cb func(event interface{}, err error)) error
}

func (l *Loader) watch(provider koanf.Provider) {
	w, ok := provider.(watcher)
	if !ok {
		logger.GetLogger().Warn("config provider does not support watching", "path", l.options.Path)
		return
	}

	err := w.Watch(func(event interface{}, err error) {
		if err != nil {
			logger.GetLogger().Warn("config watch error", "error", err)
			return
		}

		if err := l.koanf.Load(provider, l.parser); err != nil {
			logger.GetLogger().Warn("config reload failed", "error", err)
			return
		}

		newCfg, err := l.unmarshalAndProcess()
		if err != nil {
			logger.GetLogger().Warn("reloaded config rejected", "error", err)
			return
		}

		if l.options.OnChange != nil {
			if err := l.options.OnChange(newCfg); err != nil {
				logger.GetLogger().Warn("config change callback failed", "error", err)
			}
		}
	})
	if err != nil {
		logger.GetLogger().Warn("config watch stopped", "error", err)
	}
}

// Load reads and processes the config file at path in one call, without
// hot-reload.
func Load(path string) (*Config, error) {
	l, err := NewLoader(LoaderOptions{Path: path})
	if err != nil {
		return nil, err
	}
	return l.Load()
}
