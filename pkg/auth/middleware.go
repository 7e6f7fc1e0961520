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

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware validates the bearer token and stores Claims and Caller in the
// request context. Requests without a usable token get 401.
func Middleware(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeAuthError(w, http.StatusUnauthorized, "Invalid Authorization format, expected: Bearer <token>")
				return
			}

			claims, err := v.ValidateToken(r.Context(), tokenString)
			if err != nil {
				slog.Debug("Token rejected", "error", err)
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized: "+err.Error())
				return
			}

			caller, err := claims.Caller()
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized: "+err.Error())
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			ctx = ContextWithCaller(ctx, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaticMiddleware attaches the same caller to every request. It is meant for
// local development when token validation is disabled.
func StaticMiddleware(caller Caller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
