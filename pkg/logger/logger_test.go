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


package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestNew_Simple(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelInfo, &buf, "simple")

	l.Debug("Hidden")
	l.With("workspace_id", "ws1").WithGroup("tool").Info("Tool executed", "name", "list_agents", "success", true)
	l.Warn("Retrying")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "INFO Tool executed workspace_id=ws1 tool.name=list_agents tool.success=true", lines[0])
	assert.Equal(t, "WARN Retrying", lines[1])
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(slog.LevelDebug, &buf, "json").Info("Message processed", "rounds", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Message processed", rec["msg"])
	assert.Equal(t, float64(1), rec["rounds"])
}

func TestFilteringHandler_DropsForeignRecords(t *testing.T) {
	var buf bytes.Buffer
	h := New(slog.LevelInfo, &buf, "simple").Handler()

	// A record with no caller is treated as third-party.
	rec := slog.NewRecord(testTime, slog.LevelInfo, "from a library", 0)
	require.NoError(t, h.Handle(t.Context(), rec))
	assert.Empty(t, buf.String())

	debug := New(slog.LevelDebug, &buf, "simple").Handler()
	require.NoError(t, debug.Handle(t.Context(), rec))
	assert.Contains(t, buf.String(), "from a library")
}

func TestInitAndGetLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Init(slog.LevelInfo, &buf, "verbose")
	slog.Info("Server started", "port", 8080)

	assert.Same(t, GetLogger(), slog.Default())
	assert.Contains(t, buf.String(), "INFO Server started port=8080")
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copilot.log")
	f, cleanup, err := OpenLogFile(path)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, path, f.Name())

	_, _, err = OpenLogFile(filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
