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
	"fmt"
	"net/http"
	"strings"

	"dirpx.dev/exnotify"
	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/kind"
	"dirpx.dev/exnotify/notice"
)

// HandlerFunc is an http handler that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Option configures a Middleware.
type Option func(*Middleware)

// WithRenderer sets the public error page renderer.
func WithRenderer(rd Renderer) Option {
	return func(m *Middleware) { m.renderer = rd }
}

// WithSession sets how the session facet is extracted from requests.
func WithSession(fn SessionFunc) Option {
	return func(m *Middleware) { m.session = fn }
}

// WithContext replaces the execution context built for failing requests.
// Use it when extra data is resolved by method name on an application type,
// typically one embedding *Context. A nil result falls back to NewContext.
func WithContext(fn ContextFunc) Option {
	return func(m *Middleware) { m.newContext = fn }
}

// ContextFunc builds the execution context of a request.
type ContextFunc func(r *http.Request) notice.ExecutionContext

// Middleware is the HTTP error boundary in front of a Notifier.
type Middleware struct {
	n          *exnotify.Notifier
	renderer   Renderer
	session    SessionFunc
	newContext ContextFunc
}

// New returns a Middleware reporting to n.
func New(n *exnotify.Notifier, opts ...Option) *Middleware {
	m := &Middleware{n: n}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Wrap recovers panics raised by next and routes them to the boundary.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w}
		r = withRouteHolder(r)
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				m.ServeError(rw, r, exnotify.Recovered(v))
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// Func adapts an error-returning handler. Returned errors and panics both
// reach the boundary.
func (m *Middleware) Func(fn HandlerFunc) http.Handler {
	return m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			m.ServeError(w, r, err)
		}
	}))
}

// NotFound is a fallback handler reporting a routing error, for use as the
// catch-all route of a mux.
func (m *Middleware) NotFound() http.Handler {
	return m.Func(func(_ http.ResponseWriter, r *http.Request) error {
		return RoutingError(r)
	})
}

// RoutingError describes a request no route matched.
func RoutingError(r *http.Request) error {
	return exnotify.Errorf(kind.Routing, "no route matches [%s] %q", r.Method, r.URL.Path)
}

// ServeError handles err for the request: trusted clients get a debug page
// when the notifier shows local errors, everybody else the public 404/500
// page, with unexpected errors reported.
func (m *Middleware) ServeError(w http.ResponseWriter, r *http.Request, err error) {
	ec := m.context(r)
	if m.n.ShowLocal() && m.n.IsTrusted(r.RemoteAddr) {
		m.renderLocal(w, err)
		return
	}
	resp := m.renderer.Responder(w, r, m.n.Status(apis.NotFound), m.n.Status(apis.Unexpected))
	v, rerr := m.n.HandleUnexpected(r.Context(), err, ec, resp)
	if rerr != nil {
		log := m.n.Logger()
		log.Warn().Err(rerr).Str("verdict", v.String()).Msg("cannot render error page")
	}
}

func (m *Middleware) context(r *http.Request) notice.ExecutionContext {
	if m.newContext != nil {
		if ec := m.newContext(r); ec != nil {
			return ec
		}
	}
	return NewContext(r, m.session)
}

// renderLocal writes a plain-text page with the error, its classification
// and its backtrace. Nothing is reported.
func (m *Middleware) renderLocal(w http.ResponseWriter, err error) {
	if rw, ok := w.(*responseWriter); ok && rw.wroteHeader {
		return
	}
	v := m.n.Classify(err)
	san := m.n.Normalizer().Sanitizer()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n\n", notice.ClassName(err), err.Error())
	b.WriteString(m.n.Explain(err))
	b.WriteString("\n\n")
	for _, frame := range san.Sanitize(notice.Backtrace(err)) {
		b.WriteString(frame)
		b.WriteString("\n")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(m.n.Status(v).HTTP)
	_, _ = w.Write([]byte(b.String()))
}

// responseWriter remembers whether the handler already wrote headers.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
