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
	"net"
	"net/http"
	"strings"

	"dirpx.dev/exnotify/notice"
)

type routeKey struct{}

type route struct {
	controller string
	action     string
}

// WithRoute labels r with the controller and action serving it; notices use
// them for location. Inside Middleware the label is recorded in place and r
// is returned as is; elsewhere a derived request is returned.
func WithRoute(r *http.Request, controller, action string) *http.Request {
	if rt, ok := r.Context().Value(routeKey{}).(*route); ok {
		rt.controller, rt.action = controller, action
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, &route{controller: controller, action: action}))
}

// Route wraps h so every request it serves is labelled controller#action.
func Route(controller, action string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, WithRoute(r, controller, action))
	})
}

func withRouteHolder(r *http.Request) *http.Request {
	if _, ok := r.Context().Value(routeKey{}).(*route); ok {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, &route{}))
}

// SessionFunc extracts the session facet of a request. It may return nil.
type SessionFunc func(r *http.Request) notice.Session

// Context is the notice.ExecutionContext of an HTTP request.
type Context struct {
	req     *http.Request
	session SessionFunc
}

var _ notice.ExecutionContext = (*Context)(nil)

// NewContext returns the execution context for r. session may be nil.
func NewContext(r *http.Request, session SessionFunc) *Context {
	return &Context{req: r, session: session}
}

// HTTPRequest returns the underlying request.
func (c *Context) HTTPRequest() *http.Request { return c.req }

// TryControllerInfo implements notice.ExecutionContext.
func (c *Context) TryControllerInfo() (notice.ControllerInfo, bool) {
	rt, ok := c.req.Context().Value(routeKey{}).(*route)
	if !ok || rt.controller == "" {
		return notice.ControllerInfo{}, false
	}
	return notice.ControllerInfo{Controller: rt.controller, Action: rt.action}, true
}

// TryRequest implements notice.ExecutionContext.
func (c *Context) TryRequest() (notice.Request, bool) {
	return Request{r: c.req}, true
}

// TrySession implements notice.ExecutionContext.
func (c *Context) TrySession() (notice.Session, bool) {
	if c.session == nil {
		return nil, false
	}
	s := c.session(c.req)
	return s, s != nil
}

// Request is the notice.Request facet over *http.Request.
type Request struct {
	r *http.Request
}

// RemoteIP returns the host part of RemoteAddr.
func (q Request) RemoteIP() string {
	host, _, err := net.SplitHostPort(q.r.RemoteAddr)
	if err != nil {
		return q.r.RemoteAddr
	}
	return host
}

// Parameters merges query and already-parsed form values. Single values are
// plain strings, repeated ones []string. The body is never read here.
func (q Request) Parameters() map[string]any {
	vals := q.r.Form
	if vals == nil && q.r.URL != nil {
		vals = q.r.URL.Query()
	}
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		switch len(v) {
		case 0:
			out[k] = ""
		case 1:
			out[k] = v[0]
		default:
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Env renders the request as a CGI-style environment.
func (q Request) Env() map[string]string {
	r := q.r
	env := map[string]string{
		"REQUEST_METHOD":  r.Method,
		"REMOTE_ADDR":     q.RemoteIP(),
		"SERVER_PROTOCOL": r.Proto,
		"SERVER_NAME":     hostname(r.Host),
		"REQUEST_URI":     q.RequestURI(),
	}
	if r.URL != nil {
		env["PATH_INFO"] = r.URL.Path
		env["QUERY_STRING"] = r.URL.RawQuery
	}
	if _, port, err := net.SplitHostPort(r.Host); err == nil {
		env["SERVER_PORT"] = port
	}
	for k, v := range r.Header {
		env["HTTP_"+strings.ToUpper(strings.ReplaceAll(k, "-", "_"))] = strings.Join(v, ", ")
	}
	if r.Host != "" {
		env["HTTP_HOST"] = r.Host
	}
	return env
}

// Protocol returns "https://" for TLS or X-Forwarded-Proto: https requests,
// "http://" otherwise.
func (q Request) Protocol() string {
	if q.r.TLS != nil || strings.EqualFold(q.r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https://"
	}
	return "http://"
}

// Host returns the Host header as sent.
func (q Request) Host() string { return q.r.Host }

// RequestURI returns the path and query of the request target.
func (q Request) RequestURI() string {
	if q.r.URL != nil {
		return q.r.URL.RequestURI()
	}
	return q.r.RequestURI
}

func hostname(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
