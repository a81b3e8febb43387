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

// Package grpcx puts an exnotify.Notifier in front of gRPC services.
//
// The interceptors recover panics and classify handler errors. Errors that
// already carry a gRPC status (other than Unknown) pass through untouched.
// The rest become codes.NotFound or codes.Internal, the latter reported
// through the notifier. Public statuses carry an error view detail and
// never the original error text.
package grpcx

import (
	"context"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"dirpx.dev/exnotify"
	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/notice"
)

// ContextFunc builds the execution context of a call. req is nil for
// streaming calls.
type ContextFunc func(ctx context.Context, fullMethod string, req any) notice.ExecutionContext

// Option configures the interceptors.
type Option func(*boundary)

// WithContext replaces the execution context built for failing calls, so
// extra data can be resolved by method name on an application type. A nil
// result falls back to NewContext.
func WithContext(fn ContextFunc) Option {
	return func(b *boundary) { b.newContext = fn }
}

type boundary struct {
	n          *exnotify.Notifier
	newContext ContextFunc
}

func newBoundary(n *exnotify.Notifier, opts []Option) *boundary {
	b := &boundary{n: n}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// UnaryServerInterceptor returns the error boundary for unary calls.
func UnaryServerInterceptor(n *exnotify.Notifier, opts ...Option) grpc.UnaryServerInterceptor {
	b := newBoundary(n, opts)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if v := recover(); v != nil {
				resp, err = nil, b.handle(ctx, info.FullMethod, req, exnotify.Recovered(v))
			}
		}()
		resp, err = handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		return nil, b.handle(ctx, info.FullMethod, req, err)
	}
}

// StreamServerInterceptor returns the error boundary for streaming calls.
func StreamServerInterceptor(n *exnotify.Notifier, opts ...Option) grpc.StreamServerInterceptor {
	b := newBoundary(n, opts)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx := ss.Context()
		defer func() {
			if v := recover(); v != nil {
				err = b.handle(ctx, info.FullMethod, nil, exnotify.Recovered(v))
			}
		}()
		if err = handler(srv, ss); err == nil {
			return nil
		}
		return b.handle(ctx, info.FullMethod, nil, err)
	}
}

func (b *boundary) handle(ctx context.Context, fullMethod string, req any, err error) error {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return err
	}
	v, _ := b.n.HandleUnexpected(ctx, err, b.context(ctx, fullMethod, req), nil)
	return Status(b.n.Status(v)).Err()
}

func (b *boundary) context(ctx context.Context, fullMethod string, req any) notice.ExecutionContext {
	if b.newContext != nil {
		if ec := b.newContext(ctx, fullMethod, req); ec != nil {
			return ec
		}
	}
	return NewContext(ctx, fullMethod, req)
}

// Status builds the public gRPC status for st, with the error view attached
// as a structpb.Struct detail.
func Status(st apis.Status) *status.Status {
	text := http.StatusText(st.HTTP)
	base := status.New(st.GRPC, text)
	view, err := structpb.NewStruct(map[string]any{"status": st.HTTP, "error": text})
	if err != nil {
		return base
	}
	with, err := base.WithDetails(view)
	if err != nil {
		return base
	}
	return with
}

// ExtractView pulls the error view out of a gRPC error, if present.
// Useful in tests and client code.
func ExtractView(err error) (apis.ErrorView, bool) {
	if err == nil {
		return apis.ErrorView{}, false
	}
	st, ok := status.FromError(err)
	if !ok {
		return apis.ErrorView{}, false
	}
	for _, d := range st.Proto().GetDetails() {
		s := new(structpb.Struct)
		if !d.MessageIs(s) || d.UnmarshalTo(s) != nil {
			continue
		}
		f := s.GetFields()
		return apis.ErrorView{
			Status: int(f["status"].GetNumberValue()),
			Error:  f["error"].GetStringValue(),
		}, true
	}
	return apis.ErrorView{}, false
}
