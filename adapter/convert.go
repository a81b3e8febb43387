/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package adapter converts notices and error views into protobuf
// well-known types so they can be rendered with protojson on any transport.
package adapter

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/notice"
)

// JSON is the marshaller used for notice bodies and error views.
var JSON = protojson.MarshalOptions{Multiline: true, Indent: "  "}

// ToStruct converts n into a structpb.Struct. Opaque references (request,
// session, controller, exception) are replaced by JSON-friendly summaries.
func ToStruct(n notice.Notice) (*structpb.Struct, error) {
	fields := make(map[string]*structpb.Value, len(n))
	for _, k := range n.Keys() {
		v, err := ToValue(n[k])
		if err != nil {
			return nil, fmt.Errorf("adapter: notice key %q: %w", k, err)
		}
		fields[k] = v
	}
	return &structpb.Struct{Fields: fields}, nil
}

// ToJSON renders n with protojson.
func ToJSON(n notice.Notice) ([]byte, error) {
	s, err := ToStruct(n)
	if err != nil {
		return nil, err
	}
	return JSON.Marshal(s)
}

// ToValue converts a single notice value. Strings are forced to valid
// UTF-8, invalid bytes become U+FFFD, so protojson never rejects a notice
// built from raw request data.
func ToValue(v any) (*structpb.Value, error) {
	switch x := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case string:
		return structpb.NewStringValue(validUTF8(x)), nil
	case []string:
		vals := make([]*structpb.Value, len(x))
		for i, s := range x {
			vals[i] = structpb.NewStringValue(validUTF8(s))
		}
		return structpb.NewListValue(&structpb.ListValue{Values: vals}), nil
	case map[string]string:
		fields := make(map[string]*structpb.Value, len(x))
		for k, s := range x {
			fields[validUTF8(k)] = structpb.NewStringValue(validUTF8(s))
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	case map[string]any:
		fields := make(map[string]*structpb.Value, len(x))
		for k, inner := range x {
			iv, err := ToValue(inner)
			if err != nil {
				return nil, err
			}
			fields[validUTF8(k)] = iv
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	case []any:
		vals := make([]*structpb.Value, len(x))
		for i, inner := range x {
			iv, err := ToValue(inner)
			if err != nil {
				return nil, err
			}
			vals[i] = iv
		}
		return structpb.NewListValue(&structpb.ListValue{Values: vals}), nil
	case time.Time:
		return structpb.NewStringValue(x.UTC().Format(time.RFC3339)), nil
	case error:
		return structpb.NewStringValue(validUTF8(x.Error())), nil
	case notice.Request:
		return ToValue(requestSummary(x))
	case notice.Session:
		return ToValue(map[string]any{"session_id": x.SessionID()})
	case notice.ExecutionContext:
		return ToValue(contextSummary(x))
	case fmt.Stringer:
		return structpb.NewStringValue(validUTF8(x.String())), nil
	}
	if pv, err := structpb.NewValue(v); err == nil {
		return pv, nil
	}
	return structpb.NewStringValue(validUTF8(fmt.Sprintf("%v", v))), nil
}

func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

func requestSummary(r notice.Request) map[string]any {
	return map[string]any{
		"remote_ip":   r.RemoteIP(),
		"protocol":    r.Protocol(),
		"host":        r.Host(),
		"request_uri": r.RequestURI(),
	}
}

func contextSummary(ec notice.ExecutionContext) map[string]any {
	out := map[string]any{"type": fmt.Sprintf("%T", ec)}
	if ci, ok := ec.TryControllerInfo(); ok {
		out["controller"] = ci.Controller
		out["action"] = ci.Action
	}
	return out
}

// ToView builds the public error view for a resolved status. The message is
// the standard HTTP status text; error internals never reach end users.
func ToView(st apis.Status) apis.ErrorView {
	return apis.ErrorView{Status: st.HTTP, Error: http.StatusText(st.HTTP)}
}

// ViewJSON renders v with protojson.
func ViewJSON(v apis.ErrorView) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"status": v.Status,
		"error":  v.Error,
	})
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

// SummaryLines returns "key: value" lines for the scalar notice entries, in
// key order, skipping environment and backtrace. Used for plain-text bodies.
func SummaryLines(n notice.Notice) []string {
	skip := map[string]bool{
		notice.KeyEnvironment: true,
		notice.KeyBacktrace:   true,
		notice.KeyParams:      true,
		notice.KeySessionData: true,
		notice.KeyDetails:     true,
	}
	var out []string
	for _, k := range n.Keys() {
		if skip[k] {
			continue
		}
		v, err := ToValue(n[k])
		if err != nil {
			continue
		}
		switch v.GetKind().(type) {
		case *structpb.Value_StructValue, *structpb.Value_ListValue:
			continue
		}
		out = append(out, k+": "+scalar(v))
	}
	return out
}

func scalar(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return fmt.Sprintf("%v", k.NumberValue)
	case *structpb.Value_BoolValue:
		return fmt.Sprintf("%t", k.BoolValue)
	default:
		return ""
	}
}
