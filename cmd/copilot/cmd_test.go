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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/assistant"
	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/tool"
)

func keepDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
	assert.Equal(t, "", firstNonEmpty())
}

func TestResolveVersion(t *testing.T) {
	prev := version
	t.Cleanup(func() { version = prev })

	version = "1.2.3"
	assert.Equal(t, "1.2.3", resolveVersion())

	version = ""
	assert.NotEmpty(t, resolveVersion())
}

func TestInitLogger_Priority(t *testing.T) {
	keepDefaultLogger(t)
	t.Setenv(LogLevelEnvVar, "")
	t.Setenv(LogFileEnvVar, "")
	t.Setenv(LogFormatEnvVar, "")

	path := filepath.Join(t.TempDir(), "copilot.log")
	cli := &CLI{LogFile: path}

	cleanup, err := initLogger(cli, &config.LoggerConfig{Level: "warn", Format: "simple"})
	require.NoError(t, err)

	slog.Info("hidden")
	slog.Warn("Shown", "k", "v")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "WARN Shown k=v")
}

func TestInitLogger_EnvOverridesConfig(t *testing.T) {
	keepDefaultLogger(t)
	t.Setenv(LogLevelEnvVar, "error")
	t.Setenv(LogFileEnvVar, "")
	t.Setenv(LogFormatEnvVar, "")

	cleanup, err := initLogger(&CLI{}, &config.LoggerConfig{Level: "debug"})
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelError))
}

func TestInitLogger_BadLevel(t *testing.T) {
	keepDefaultLogger(t)
	t.Setenv(LogLevelEnvVar, "")

	_, err := initLogger(&CLI{LogLevel: "loud"}, nil)
	assert.Error(t, err)
}

func TestToolsCmd_Table(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&ToolsCmd{}).run(context.Background(), &out))

	text := out.String()
	assert.Contains(t, text, "NAME")
	for _, name := range tool.Names() {
		assert.Contains(t, text, string(name))
	}
	assert.Contains(t, text, "destructive")
	assert.Contains(t, text, "read-only")
}

func TestToolsCmd_JSONFiltered(t *testing.T) {
	var out bytes.Buffer
	cmd := &ToolsCmd{JSON: true, Permissions: []string{"analytics:read"}}
	require.NoError(t, cmd.run(context.Background(), &out))

	var entries []toolEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, tool.CategoryAnalytics, e.Category)
		assert.True(t, e.ReadOnly)
		assert.NotEmpty(t, e.Parameters)
	}
}

func TestToolsCmd_UnknownPermission(t *testing.T) {
	err := (&ToolsCmd{Permissions: []string{"agents:fly"}}).run(context.Background(), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	keepDefaultLogger(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("server:\n  port: 9090\nassistant:\n  brand: Acme\n"), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  port: 70000\n"), 0o644))

	var out bytes.Buffer
	cli := &CLI{Config: good, ConfigProvider: "file", LogLevel: "error"}
	require.NoError(t, (&ValidateCmd{}).run(context.Background(), cli, &out))
	assert.Contains(t, out.String(), "Configuration is valid")
	assert.Contains(t, out.String(), "0.0.0.0:9090")
	assert.Contains(t, out.String(), "openai/gpt-4o")
	assert.Contains(t, out.String(), "assistant: Acme")
	assert.Contains(t, out.String(), "development caller")

	cli.Config = bad
	assert.Error(t, (&ValidateCmd{}).run(context.Background(), cli, &bytes.Buffer{}))
}

func TestValidateCmd_Defaults(t *testing.T) {
	keepDefaultLogger(t)

	var out bytes.Buffer
	require.NoError(t, (&ValidateCmd{}).run(context.Background(), &CLI{LogLevel: "error"}, &out))
	assert.Contains(t, out.String(), "0.0.0.0:8080")
}

func TestPrintResponse(t *testing.T) {
	var out bytes.Buffer
	printResponse(&out, &assistant.Response{
		Message:            "Created your agent.",
		Actions:            []tool.Action{{Type: tool.ActionNavigate, Target: "/agents/a1", Label: "View agent"}},
		SuggestedFollowUps: []string{"Want me to activate this agent?"},
	})

	assert.Equal(t, "Created your agent.\n"+
		"\nActions:\n  [navigate] View agent -> /agents/a1\n"+
		"\nYou could ask:\n  - Want me to activate this agent?\n", out.String())
}
