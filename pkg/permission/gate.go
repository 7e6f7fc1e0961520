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

package permission

import (
	"strings"
)

// Decision is the outcome of Check.
type Decision struct {
	Allowed bool
	// Missing lists the required permissions the caller does not hold, sorted.
	Missing []Permission
}

// Check returns Allowed only when held contains every permission in required.
// An empty required set is always allowed.
func Check(required, held Set) Decision {
	var missing []Permission
	for p := range required {
		if !held.Has(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return Decision{Allowed: true}
	}
	sortPermissions(missing)
	return Decision{Missing: missing}
}

// Err returns nil when allowed and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Missing: d.Missing}
}

// DeniedError reports the permissions a caller lacked.
type DeniedError struct {
	Missing []Permission
}

func (e *DeniedError) Error() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = string(p)
	}
	return "forbidden: missing " + strings.Join(names, ", ")
}
