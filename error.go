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

package exnotify

import (
	"fmt"
	"maps"

	"dirpx.dev/exnotify/backtrace"
	"dirpx.dev/exnotify/kind"
)

// Error is an error with a kind and the stack captured where it was made.
//
// It carries:
//   - Kind: dotted classification, e.g. "record_not_found" (optional);
//   - Message: human-oriented description;
//   - Details: key/value context copied into the notice;
//   - Cause: wrapped underlying error.
//
// All mutation helpers (WithX) return a shallow copy, so Error instances
// can be shared freely.
type Error struct {
	Kind    kind.Kind
	Message string

	// Details is treated as immutable: WithDetail/WithDetails always copy it.
	Details map[string]any

	Cause error

	pcs []uintptr
}

// E builds an Error and records the caller's stack.
//
//	return exnotify.E(kind.RecordNotFound, "user 42",
//	    exnotify.WithDetailOption("table", "users"),
//	)
func E(k kind.Kind, msg string, opts ...Option) *Error {
	e := &Error{Kind: k, Message: msg, pcs: backtrace.Callers(1)}
	for _, opt := range opts {
		e = opt(e)
	}
	return e
}

// Errorf is E with a formatted message. %w is not interpreted; use
// WithCauseOption to wrap.
func Errorf(k kind.Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), pcs: backtrace.Callers(1)}
}

// NotFound builds a record_not_found Error.
func NotFound(msg string) *Error {
	return &Error{Kind: kind.RecordNotFound, Message: msg, pcs: backtrace.Callers(1)}
}

// Recovered converts a value returned by recover into a panic-kind Error.
// Call it directly from the deferred function so the stack still contains
// the panicking frames.
func Recovered(v any) *Error {
	e := &Error{Kind: kind.Panic, pcs: backtrace.Callers(1)}
	switch x := v.(type) {
	case error:
		e.Message = x.Error()
		e.Cause = x
	default:
		e.Message = fmt.Sprint(v)
	}
	return e
}

// Error implements the error interface as "<kind>: <message>", or just the
// message when no kind is set. An empty message falls back to the cause.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Kind == kind.Empty {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// ErrorKind implements apis.Kinded.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// Backtrace implements apis.Backtracer.
func (e *Error) Backtrace() []string { return backtrace.Frames(e.pcs) }

// ErrorDetails implements apis.Detailed.
func (e *Error) ErrorDetails() map[string]any { return e.Details }

// WithKind returns a copy of e with the given kind.
func (e *Error) WithKind(k kind.Kind) *Error {
	cp := *e
	cp.Kind = k
	return &cp
}

// WithMessage returns a copy of e with a replaced message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithDetail returns a copy of e with one extra detail.
func (e *Error) WithDetail(k string, v any) *Error {
	cp := *e
	cp.Details = maps.Clone(cp.Details)
	if cp.Details == nil {
		cp.Details = make(map[string]any, 1)
	}
	cp.Details[k] = v
	return &cp
}

// WithDetails returns a copy of e with kv merged into Details; kv wins on
// conflicts.
func (e *Error) WithDetails(kv map[string]any) *Error {
	if len(kv) == 0 {
		return e
	}
	cp := *e
	m := make(map[string]any, len(cp.Details)+len(kv))
	maps.Copy(m, cp.Details)
	maps.Copy(m, kv)
	cp.Details = m
	return &cp
}

// WithCause returns a copy of e wrapping err. A nil err returns e unchanged.
func (e *Error) WithCause(err error) *Error {
	if err == nil {
		return e
	}
	cp := *e
	cp.Cause = err
	return &cp
}
