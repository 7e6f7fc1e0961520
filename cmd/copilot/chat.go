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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/galaxyco/copilot/pkg/assistant"
	"github.com/galaxyco/copilot/pkg/runtime"
)

// ChatCmd sends one message as the development caller and prints the reply.
type ChatCmd struct {
	Message     []string `arg:"" help:"Message to send."`
	Workspace   string   `help:"Workspace id (overrides auth.dev.workspace_id)."`
	User        string   `help:"User id (overrides auth.dev.user_id)."`
	Permissions []string `help:"Permissions held (overrides auth.dev.permissions)." sep:","`
	JSON        bool     `help:"Print the full response as JSON."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	if c.Workspace != "" {
		cfg.Auth.Dev.WorkspaceID = c.Workspace
	}
	if c.User != "" {
		cfg.Auth.Dev.UserID = c.User
	}
	if c.Permissions != nil {
		cfg.Auth.Dev.Permissions = c.Permissions
	}
	caller, err := cfg.Auth.DevCaller()
	if err != nil {
		return err
	}

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	defer rt.Close()

	resp, err := rt.ProcessMessage(ctx, strings.Join(c.Message, " "), assistant.Conversation{}, caller)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResponse(os.Stdout, resp)
	return nil
}

func printResponse(w io.Writer, resp *assistant.Response) {
	fmt.Fprintln(w, resp.Message)
	if len(resp.Actions) > 0 {
		fmt.Fprintln(w, "\nActions:")
		for _, a := range resp.Actions {
			fmt.Fprintf(w, "  [%s] %s -> %s\n", a.Type, a.Label, a.Target)
		}
	}
	if len(resp.SuggestedFollowUps) > 0 {
		fmt.Fprintln(w, "\nYou could ask:")
		for _, f := range resp.SuggestedFollowUps {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
}
