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

package adapter

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"google.golang.org/grpc/codes"

	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/notice"
)

type req struct{}

func (req) RemoteIP() string           { return "10.0.0.1" }
func (req) Parameters() map[string]any { return nil }
func (req) Env() map[string]string     { return nil }
func (req) Protocol() string           { return "https://" }
func (req) Host() string               { return "example.com" }
func (req) RequestURI() string         { return "/x" }

type sess struct{}

func (sess) SessionID() string { return "s1" }

func TestToJSON(t *testing.T) {
	n := notice.Notice{
		notice.KeyErrorClass:  "internal",
		notice.KeyMessage:     "boom",
		notice.KeyBacktrace:   []string{"a.go:1 main.a", "b.go:2 main.b"},
		notice.KeyEnvironment: map[string]string{"PATH": "/bin"},
		notice.KeyException:   errors.New("boom"),
		notice.KeyRequest:     req{},
		notice.KeySession:     sess{},
		notice.KeyParams:      map[string]any{"id": "1", "nested": map[string]any{"n": 2}},
		"user_id":             42,
	}
	b, err := ToJSON(n)
	if err != nil {
		t.Fatalf("ToJSON error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, b)
	}
	if got["exception"] != "boom" {
		t.Fatalf("exception = %v", got["exception"])
	}
	if got["user_id"] != float64(42) {
		t.Fatalf("user_id = %v", got["user_id"])
	}
	if want := []any{"a.go:1 main.a", "b.go:2 main.b"}; !reflect.DeepEqual(got["backtrace"], want) {
		t.Fatalf("backtrace = %v", got["backtrace"])
	}
	r := got["request"].(map[string]any)
	if r["host"] != "example.com" || r["remote_ip"] != "10.0.0.1" {
		t.Fatalf("request = %v", r)
	}
	if s := got["session"].(map[string]any); s["session_id"] != "s1" {
		t.Fatalf("session = %v", s)
	}
	p := got["params"].(map[string]any)
	if p["nested"].(map[string]any)["n"] != float64(2) {
		t.Fatalf("params = %v", p)
	}
}

func TestViewJSON(t *testing.T) {
	v := ToView(apis.Status{HTTP: 404, GRPC: codes.NotFound})
	if v.Status != 404 || v.Error != "Not Found" {
		t.Fatalf("ToView = %+v", v)
	}
	b, err := ViewJSON(v)
	if err != nil {
		t.Fatalf("ViewJSON error = %v", err)
	}
	var got apis.ErrorView
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != v {
		t.Fatalf("round trip = %+v, want %+v", got, v)
	}
}

func TestSummaryLines(t *testing.T) {
	n := notice.Notice{
		notice.KeyErrorClass: "internal",
		notice.KeyMessage:    "boom",
		notice.KeyBacktrace:  []string{"x"},
		notice.KeyRequest:    req{},
	}
	want := []string{"error_class: internal", "message: boom"}
	if got := SummaryLines(n); !reflect.DeepEqual(got, want) {
		t.Fatalf("SummaryLines = %v, want %v", got, want)
	}
}

func TestToJSON_InvalidUTF8(t *testing.T) {
	n := notice.Notice{
		notice.KeyMessage:     "bad \xff byte",
		notice.KeyException:   errors.New("decode \xfe"),
		notice.KeyParams:      map[string]any{"q": "\xff", "k\xff": []any{"\xc3"}},
		notice.KeyEnvironment: map[string]string{"HTTP_X": "\xff"},
		notice.KeyBacktrace:   []string{"a\xff.go:1 main.a"},
	}
	b, err := ToJSON(n)
	if err != nil {
		t.Fatalf("ToJSON error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, b)
	}
	if got["message"] != "bad � byte" {
		t.Fatalf("message = %q", got["message"])
	}
	if got["exception"] != "decode �" {
		t.Fatalf("exception = %q", got["exception"])
	}
	p := got["params"].(map[string]any)
	if p["q"] != "�" {
		t.Fatalf("params.q = %q", p["q"])
	}
	if _, ok := p["k�"]; !ok {
		t.Fatalf("params keys = %v", p)
	}
	if e := got["environment"].(map[string]any); e["HTTP_X"] != "�" {
		t.Fatalf("environment = %v", e)
	}
}
