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

package grpcx

import (
	"context"
	"encoding/json"
	"net"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"dirpx.dev/exnotify/notice"
)

// Context is the notice.ExecutionContext of a gRPC call. The service is the
// controller and the method the action.
type Context struct {
	ctx        context.Context
	fullMethod string
	req        any
}

var _ notice.ExecutionContext = (*Context)(nil)

// NewContext returns the execution context for a call to fullMethod
// ("/pkg.Service/Method"). req is the request message, nil for streams.
func NewContext(ctx context.Context, fullMethod string, req any) *Context {
	return &Context{ctx: ctx, fullMethod: fullMethod, req: req}
}

// CallContext returns the context of the call.
func (c *Context) CallContext() context.Context { return c.ctx }

// SplitMethod splits "/pkg.Service/Method" into service and method.
func SplitMethod(fullMethod string) (service, method string) {
	s := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// TryControllerInfo implements notice.ExecutionContext.
func (c *Context) TryControllerInfo() (notice.ControllerInfo, bool) {
	svc, m := SplitMethod(c.fullMethod)
	if svc == "" {
		return notice.ControllerInfo{}, false
	}
	return notice.ControllerInfo{Controller: svc, Action: m}, true
}

// TryRequest implements notice.ExecutionContext.
func (c *Context) TryRequest() (notice.Request, bool) {
	return Request{c: c}, true
}

// TrySession implements notice.ExecutionContext. gRPC calls have no session.
func (c *Context) TrySession() (notice.Session, bool) { return nil, false }

// Request is the notice.Request facet of a gRPC call.
type Request struct {
	c *Context
}

// RemoteIP returns the peer's IP.
func (q Request) RemoteIP() string {
	p, ok := peer.FromContext(q.c.ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Parameters returns the request message as a JSON-shaped map when it is a
// protobuf message.
func (q Request) Parameters() map[string]any {
	out := map[string]any{}
	m, ok := q.c.req.(proto.Message)
	if !ok || m == nil {
		return out
	}
	b, err := protojson.Marshal(m)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}

// Env renders incoming metadata as HTTP_* entries plus the CGI basics.
// Binary (-bin) metadata is skipped.
func (q Request) Env() map[string]string {
	env := map[string]string{
		"REQUEST_METHOD":  "POST",
		"SERVER_PROTOCOL": "HTTP/2",
		"PATH_INFO":       q.c.fullMethod,
		"REQUEST_URI":     q.c.fullMethod,
		"REMOTE_ADDR":     q.RemoteIP(),
	}
	md, _ := metadata.FromIncomingContext(q.c.ctx)
	for k, v := range md {
		if strings.HasSuffix(k, "-bin") {
			continue
		}
		name := strings.TrimPrefix(k, ":")
		env["HTTP_"+strings.ToUpper(strings.ReplaceAll(name, "-", "_"))] = strings.Join(v, ", ")
	}
	if h := q.Host(); h != "" {
		env["HTTP_HOST"] = h
	}
	return env
}

// Protocol is "https://" for calls over an authenticated transport,
// "http://" otherwise.
func (q Request) Protocol() string {
	if p, ok := peer.FromContext(q.c.ctx); ok && p.AuthInfo != nil {
		return "https://"
	}
	return "http://"
}

// Host returns the :authority of the call.
func (q Request) Host() string {
	md, _ := metadata.FromIncomingContext(q.c.ctx)
	if v := md.Get(":authority"); len(v) > 0 {
		return v[0]
	}
	return ""
}

// RequestURI returns the full method name.
func (q Request) RequestURI() string { return q.c.fullMethod }
