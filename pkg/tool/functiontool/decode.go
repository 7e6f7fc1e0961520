// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package functiontool

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/galaxyco/copilot/pkg/tool"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name, which is what the model sees.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		default:
			return name
		}
	})
	return v
}

// decodeArgs converts raw model arguments into Args. Type mismatches and
// rule violations are reported together as a *tool.ValidationError.
func decodeArgs[Args any](raw map[string]any) (Args, error) {
	var args Args

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &args,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			integralNumberHook,
		),
	})
	if err != nil {
		return args, err
	}

	if err := decoder.Decode(raw); err != nil {
		return args, decodeError(err)
	}

	if d, ok := any(&args).(Defaulter); ok {
		d.SetDefaults()
	}

	if reflect.TypeOf(args).Kind() != reflect.Struct {
		return args, nil
	}
	if err := validate.Struct(args); err != nil {
		return args, validationError(err)
	}

	return args, nil
}

// integralNumberHook rejects numbers with a fractional part bound to integer
// fields. mapstructure would otherwise truncate them.
func integralNumberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}

	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	return data, nil
}

func decodeError(err error) error {
	var msErr *mapstructure.Error
	if !errors.As(err, &msErr) {
		return &tool.ValidationError{Fields: []tool.FieldError{{Field: "arguments", Reason: err.Error()}}}
	}

	fields := make([]tool.FieldError, 0, len(msErr.Errors))
	for _, msg := range msErr.Errors {
		fields = append(fields, splitDecodeMessage(msg))
	}
	return &tool.ValidationError{Fields: fields}
}

// splitDecodeMessage turns "'limit' expected type 'int', got ..." into a field
// name and reason.
func splitDecodeMessage(msg string) tool.FieldError {
	msg = strings.TrimPrefix(msg, "error decoding ")
	if strings.HasPrefix(msg, "'") {
		if end := strings.Index(msg[1:], "'"); end >= 0 {
			field := msg[1 : end+1]
			reason := strings.TrimLeft(msg[end+2:], ": ")
			if field == "" {
				field = "arguments"
			}
			return tool.FieldError{Field: field, Reason: reason}
		}
	}
	return tool.FieldError{Field: "arguments", Reason: msg}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &tool.ValidationError{Fields: []tool.FieldError{{Field: "arguments", Reason: err.Error()}}}
	}

	fields := make([]tool.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, tool.FieldError{
			Field:  fieldPath(fe),
			Reason: describeRule(fe),
		})
	}
	return &tool.ValidationError{Fields: fields}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required unless " + lowerFirst(fe.Param()) + " is set"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must have at least " + fe.Param() + " characters or items"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must have at most " + fe.Param() + " characters or items"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
