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


package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/galaxyco/copilot/pkg/assistant"
	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/tool"
)

// MessageRequest is the body of POST /api/assistant/messages.
type MessageRequest struct {
	Message      string `json:"message"`
	Conversation struct {
		Messages []assistant.Message `json:"messages"`
	} `json:"conversation"`
}

// ToolInfo describes one tool in GET /api/assistant/tools.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    tool.Category  `json:"category"`
	Permissions []string       `json:"permissions"`
	Destructive bool           `json:"destructive"`
	ReadOnly    bool           `json:"readOnly"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolsResponse is the body of GET /api/assistant/tools.
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Tools  int    `json:"tools"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	conv := assistant.Conversation{
		Messages:    req.Conversation.Messages,
		WorkspaceID: caller.WorkspaceID,
		UserID:      caller.UserID,
	}

	resp, err := s.assistant.ProcessMessage(r.Context(), strings.TrimSpace(req.Message), conv, caller)
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to process message", "workspace_id", caller.WorkspaceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	permitted := s.tools.ForPermissions(caller.Permissions)
	out := ToolsResponse{Tools: make([]ToolInfo, 0, len(permitted))}
	for _, t := range permitted {
		out.Tools = append(out.Tools, ToolInfo{
			Name:        string(t.Name()),
			Description: t.Description(),
			Category:    t.Category(),
			Permissions: t.RequiredPermissions().Strings(),
			Destructive: t.IsDestructive(),
			ReadOnly:    t.IsReadOnly(),
			Parameters:  t.Schema(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Tools: s.tools.Len()}
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			resp.Status = "unavailable"
			resp.Error = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func joinOr(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ", ")
}
