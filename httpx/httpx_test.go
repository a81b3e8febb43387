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

package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dirpx.dev/exnotify"
	"dirpx.dev/exnotify/notice"
)

type sink struct {
	mu      sync.Mutex
	notices []notice.Notice
}

func (s *sink) deliver(_ context.Context, n notice.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return nil
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notices)
}

func newTestNotifier(t *testing.T, showLocal bool) (*exnotify.Notifier, *sink) {
	t.Helper()
	s := &sink{}
	n, err := exnotify.New(exnotify.Config{
		Deliverer:  exnotify.DeliverFunc("sink", s.deliver),
		Normalizer: notice.NewNormalizer(notice.WithEnviron(func() []string { return nil })),
		ShowLocal:  showLocal,
	})
	if err != nil {
		t.Fatalf("exnotify.New: %v", err)
	}
	return n, s
}

func TestMiddleware_NotFoundRendersPublicPage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "404.html"), []byte("custom 404"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, s := newTestNotifier(t, false)
	h := New(n, WithRenderer(Renderer{PublicDir: dir})).Func(func(w http.ResponseWriter, r *http.Request) error {
		return exnotify.NotFound("user 42")
	})

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if rec.Body.String() != "custom 404" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if s.count() != 0 {
		t.Fatalf("delivered %d notices, want 0", s.count())
	}
}

func TestMiddleware_UnexpectedJSON(t *testing.T) {
	n, s := newTestNotifier(t, false)
	h := New(n).Func(func(w http.ResponseWriter, r *http.Request) error {
		WithRoute(r, "users", "show")
		return errors.New("db is down")
	})

	req := httptest.NewRequest(http.MethodGet, "https://example.com/users/42?verbose=1", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var view struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("body is not JSON: %v (%q)", err, rec.Body.String())
	}
	if view.Status != 500 || view.Error != "Internal Server Error" {
		t.Fatalf("view = %+v", view)
	}
	if s.count() != 1 {
		t.Fatalf("delivered %d notices, want 1", s.count())
	}
	got := s.notices[0]
	if got.Location() != "users#show" {
		t.Fatalf("location = %q", got.Location())
	}
	if got.String(notice.KeyURL) != "https://example.com/users/42?verbose=1" {
		t.Fatalf("url = %q", got.String(notice.KeyURL))
	}
	if got.Message() != "db is down" {
		t.Fatalf("message = %q", got.Message())
	}
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	n, s := newTestNotifier(t, false)
	h := New(n).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "image/png")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("body = %q, want empty", rec.Body.String())
	}
	if s.count() != 1 {
		t.Fatalf("delivered %d notices, want 1", s.count())
	}
	if got := s.notices[0]; got.ErrorClass() != "panic" || got.Message() != "panic: kaboom" {
		t.Fatalf("error_class = %q message = %q", got.ErrorClass(), got.Message())
	}
	if len(s.notices[0].Backtrace()) == 0 {
		t.Fatal("panic notice has no backtrace")
	}
}

func TestMiddleware_ShowLocal(t *testing.T) {
	tests := []struct {
		name       string
		showLocal  bool
		remote     string
		wantPlain  bool
		wantNotice int
	}{
		{"trusted and enabled", true, "127.0.0.1:4000", true, 0},
		{"trusted but disabled", false, "127.0.0.1:4000", false, 1},
		{"untrusted", true, "203.0.113.9:4000", false, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, s := newTestNotifier(t, tc.showLocal)
			h := New(n).Func(func(w http.ResponseWriter, r *http.Request) error {
				return exnotify.Errorf("internal", "boom")
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rec.Code)
			}
			plain := strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain")
			if plain != tc.wantPlain {
				t.Fatalf("debug page = %v, want %v (%q)", plain, tc.wantPlain, rec.Body.String())
			}
			if tc.wantPlain && !strings.Contains(rec.Body.String(), "internal: boom") {
				t.Fatalf("debug page = %q", rec.Body.String())
			}
			if s.count() != tc.wantNotice {
				t.Fatalf("delivered %d notices, want %d", s.count(), tc.wantNotice)
			}
		})
	}
}

func TestMiddleware_HandlerAlreadyWrote(t *testing.T) {
	n, s := newTestNotifier(t, false)
	h := New(n).Func(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		return errors.New("late failure")
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusAccepted || rec.Body.String() != "partial" {
		t.Fatalf("response rewritten: %d %q", rec.Code, rec.Body.String())
	}
	if s.count() != 1 {
		t.Fatalf("delivered %d notices, want 1", s.count())
	}
}

func TestMiddleware_RoutingNotFound(t *testing.T) {
	n, s := newTestNotifier(t, false)
	rec := httptest.NewRecorder()
	New(n).NotFound().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404 Not Found") {
		t.Fatalf("body = %q, want built-in page", rec.Body.String())
	}
	if s.count() != 0 {
		t.Fatal("routing error was reported")
	}
}

type cookieSession struct{ id string }

func (c cookieSession) SessionID() string     { return c.id }
func (c cookieSession) ToMap() map[string]any { return map[string]any{"user": "ann"} }

func TestContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders?id=7&tag=a&tag=b", nil)
	req.Host = "shop.example:8443"
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("User-Agent", "test-agent")
	req = WithRoute(req, "orders", "create")

	ec := NewContext(req, func(r *http.Request) notice.Session { return cookieSession{id: "s1"} })

	ci, ok := ec.TryControllerInfo()
	if !ok || ci.Location() != "orders#create" {
		t.Fatalf("controller info = %+v, %v", ci, ok)
	}
	rq, ok := ec.TryRequest()
	if !ok {
		t.Fatal("no request facet")
	}
	if rq.RemoteIP() != "10.1.2.3" {
		t.Fatalf("RemoteIP = %q", rq.RemoteIP())
	}
	if got := rq.Protocol() + rq.Host() + rq.RequestURI(); got != "https://shop.example:8443/orders?id=7&tag=a&tag=b" {
		t.Fatalf("url = %q", got)
	}
	params := rq.Parameters()
	if params["id"] != "7" {
		t.Fatalf("params[id] = %v", params["id"])
	}
	if tags, ok := params["tag"].([]string); !ok || len(tags) != 2 {
		t.Fatalf("params[tag] = %#v", params["tag"])
	}
	env := rq.Env()
	for k, want := range map[string]string{
		"REQUEST_METHOD":  "POST",
		"REMOTE_ADDR":     "10.1.2.3",
		"QUERY_STRING":    "id=7&tag=a&tag=b",
		"PATH_INFO":       "/orders",
		"SERVER_NAME":     "shop.example",
		"SERVER_PORT":     "8443",
		"HTTP_HOST":       "shop.example:8443",
		"HTTP_USER_AGENT": "test-agent",
	} {
		if env[k] != want {
			t.Errorf("env[%s] = %q, want %q", k, env[k], want)
		}
	}
	s, ok := ec.TrySession()
	if !ok || s.SessionID() != "s1" {
		t.Fatalf("session = %v, %v", s, ok)
	}

	if _, ok := NewContext(httptest.NewRequest(http.MethodGet, "/", nil), nil).TrySession(); ok {
		t.Fatal("session facet without SessionFunc")
	}
	if _, ok := NewContext(httptest.NewRequest(http.MethodGet, "/", nil), nil).TryControllerInfo(); ok {
		t.Fatal("controller info without route")
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		accept string
		want   format
	}{
		{"", formatHTML},
		{"text/html,application/xhtml+xml;q=0.9", formatHTML},
		{"application/json", formatJSON},
		{"application/problem+json", formatJSON},
		{"*/*", formatHTML},
		{"image/png", formatNone},
		{"text/plain", formatNone},
	}
	for _, tc := range tests {
		if got := negotiate(tc.accept); got != tc.want {
			t.Errorf("negotiate(%q) = %v, want %v", tc.accept, got, tc.want)
		}
	}
}

// accountContext is an application execution context exposing extra data
// by method name.
type accountContext struct {
	*Context
}

func (c accountContext) CurrentAccount() map[string]any {
	return map[string]any{"account_id": c.HTTPRequest().Header.Get("X-Account")}
}

func TestMiddleware_NamedExtraData(t *testing.T) {
	s := &sink{}
	n, err := exnotify.New(exnotify.Config{
		Deliverer: exnotify.DeliverFunc("sink", s.deliver),
		Normalizer: notice.NewNormalizer(
			notice.WithEnviron(func() []string { return nil }),
			notice.WithExtraData(notice.Named("CurrentAccount")),
		),
	})
	if err != nil {
		t.Fatalf("exnotify.New: %v", err)
	}
	mw := New(n, WithContext(func(r *http.Request) notice.ExecutionContext {
		return accountContext{NewContext(r, nil)}
	}))
	h := mw.Func(func(w http.ResponseWriter, r *http.Request) error {
		WithRoute(r, "billing", "charge")
		return errors.New("card declined")
	})

	req := httptest.NewRequest(http.MethodPost, "http://example.com/charge", nil)
	req.Header.Set("X-Account", "acc-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if s.count() != 1 {
		t.Fatalf("delivered %d notices, want 1", s.count())
	}
	got := s.notices[0]
	if got["account_id"] != "acc-9" {
		t.Fatalf("account_id = %v", got["account_id"])
	}
	if got.Location() != "billing#charge" {
		t.Fatalf("location = %q", got.Location())
	}

	// Without the application context the method cannot resolve and
	// nothing is delivered.
	s2 := &sink{}
	n2, _ := exnotify.New(exnotify.Config{
		Deliverer: exnotify.DeliverFunc("sink", s2.deliver),
		Normalizer: notice.NewNormalizer(
			notice.WithEnviron(func() []string { return nil }),
			notice.WithExtraData(notice.Named("CurrentAccount")),
		),
	})
	New(n2).Func(func(http.ResponseWriter, *http.Request) error {
		return errors.New("card declined")
	}).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "http://example.com/charge", nil))
	if s2.count() != 0 {
		t.Fatalf("delivered %d notices without a resolvable context", s2.count())
	}
}
