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

// Command agentrun drives the Agent Driver from the command line.
//
// Usage:
//
//	agentrun run "summarize this repo's README" --config agentrun.yaml
//	agentrun run "what is 2+2" --config agentrun.yaml --model gpt-4o --no-stream
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/config"
	"github.com/kpekel/agentrun/pkg/llms"
)

const (
	exitSuccess     = 0
	exitGenericErr  = 1
	exitUsageErr    = 2
	exitMaxSteps    = 3
	exitCancelled   = 4
)

// CLI is the top-level kong command set.
type CLI struct {
	Run RunCmd `cmd:"" help:"Run a task to completion."`

	Config string `short:"c" help:"Path to config file." type:"path" default:"agentrun.yaml"`
}

// RunCmd runs a single task through the Agent Driver.
type RunCmd struct {
	Task string `arg:"" help:"The task to run."`

	MaxSteps int    `name:"max-steps" help:"Override the configured step budget."`
	Model    string `help:"Override the configured model name."`
	NoStream bool   `name:"no-stream" help:"Disable streaming output; print only the final answer."`
}

func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return usageError{err}
	}

	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	maxSteps := cfg.Agent.MaxSteps
	if c.MaxSteps > 0 {
		maxSteps = c.MaxSteps
	}

	rt, err := config.Build(cfg)
	if err != nil {
		return usageError{err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if c.NoStream {
		resp, err := rt.Driver.Run(ctx, c.Task, nil, maxSteps)
		if err != nil {
			return err
		}
		fmt.Println(resp.Answer)
		return nil
	}

	chunks := make(chan llms.StreamChunk, 16)
	done := make(chan error, 1)
	go func() {
		done <- rt.Driver.RunStreaming(ctx, c.Task, nil, maxSteps, chunks)
	}()

	for chunk := range chunks {
		switch chunk.Type {
		case "text":
			fmt.Println(chunk.Text)
		case "error":
			fmt.Fprintln(os.Stderr, chunk.Error)
		}
	}

	return <-done
}

// usageError marks an error as a CLI usage problem (bad config, bad
// flags) rather than a runtime failure, so main can map it to exit code 2
// instead of 1.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}

	var usage usageError
	if errors.As(err, &usage) {
		return exitUsageErr
	}

	var maxSteps *agenterrors.MaxStepsExceeded
	if errors.As(err, &maxSteps) {
		return exitMaxSteps
	}

	var cancelled *agenterrors.Cancelled
	if errors.As(err, &cancelled) {
		return exitCancelled
	}

	return exitGenericErr
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("agentrun"),
		kong.Description("Run a code-executing agent to completion from the command line."),
		kong.UsageOnError(),
	)

	err := kctx.Run(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
