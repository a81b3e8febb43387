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

package notice

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"dirpx.dev/exnotify/backtrace"
)

// ClassPolicy decides error_class for manual notices that do not set it.
type ClassPolicy uint8

const (
	// ClassFromMessage copies the message into error_class. This is the
	// historical behaviour of manual notices.
	ClassFromMessage ClassPolicy = iota

	// ClassNotice sets error_class to "notice".
	ClassNotice
)

// String returns the policy name.
func (p ClassPolicy) String() string {
	switch p {
	case ClassFromMessage:
		return "from_message"
	case ClassNotice:
		return "notice"
	default:
		return fmt.Sprintf("ClassPolicy(%d)", uint8(p))
	}
}

// ParseClassPolicy parses the output of ClassPolicy.String.
func ParseClassPolicy(s string) (ClassPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "from_message":
		return ClassFromMessage, nil
	case "notice":
		return ClassNotice, nil
	default:
		return 0, fmt.Errorf("notice: unknown class policy %q", s)
	}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithRoot sets the application root stripped from backtraces and reported
// as rails_root.
func WithRoot(root string) Option {
	return func(n *Normalizer) {
		n.sanitizer = backtrace.NewSanitizer(root)
		n.root = n.sanitizer.Root
	}
}

// WithFilterParameters redacts keys containing any of the given fragments
// (case-insensitive) in params, environment, session_data and details.
func WithFilterParameters(fragments ...string) Option {
	return func(n *Normalizer) {
		for _, f := range fragments {
			f = strings.ToLower(strings.TrimSpace(f))
			if f != "" {
				n.filters = append(n.filters, f)
			}
		}
	}
}

// WithClassPolicy sets the manual-notice class policy.
func WithClassPolicy(p ClassPolicy) Option {
	return func(n *Normalizer) { n.policy = p }
}

// WithExtraData sets the source merged last into every notice.
// A nil source means NoExtra.
func WithExtraData(src ExtraDataSource) Option {
	return func(n *Normalizer) {
		if src == nil {
			src = NoExtra()
		}
		n.extra = src
	}
}

// WithEnviron replaces os.Environ as the process environment snapshot.
func WithEnviron(fn func() []string) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.environ = fn
		}
	}
}

// WithClock replaces time.Now for occurred_at.
func WithClock(fn func() time.Time) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.now = fn
		}
	}
}

// WithIDFunc replaces the notice_id generator.
func WithIDFunc(fn func() string) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.newID = fn
		}
	}
}

// Normalizer builds notices. It is immutable and safe for concurrent use.
type Normalizer struct {
	root      string
	sanitizer backtrace.Sanitizer
	filters   []string
	policy    ClassPolicy
	extra     ExtraDataSource
	environ   func() []string
	now       func() time.Time
	newID     func() string
}

// NewNormalizer returns a Normalizer configured by opts.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		extra:   NoExtra(),
		environ: os.Environ,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Root returns the configured application root.
func (n *Normalizer) Root() string { return n.root }

// Sanitizer returns the backtrace sanitizer in use.
func (n *Normalizer) Sanitizer() backtrace.Sanitizer { return n.sanitizer }

// Normalize builds the notice for in within ec. A nil ec is treated as
// Background.
//
// For manual inputs the call stack is captured here: backtrace starts at
// the caller of Normalize and location is the frame above it, i.e. whoever
// called the function that called Normalize.
func (n *Normalizer) Normalize(ec ExecutionContext, in Input) (Notice, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var stack []string
	if in.IsManual() {
		stack = n.sanitizer.Sanitize(backtrace.Capture(1))
	}
	if ec == nil {
		ec = Background
	}

	out := Notice{}
	env := n.environment()

	if ci, ok := ec.TryControllerInfo(); ok {
		out[KeyLocation] = ci.Location()
		out[KeyController] = ec
	}
	if req, ok := ec.TryRequest(); ok && req != nil {
		renv := req.Env()
		out[KeyRequest] = req
		out[KeyRemoteAddress] = firstNonEmpty(renv["HTTP_X_FORWARDED_HOST"], renv["HTTP_HOST"])
		out[KeyRailsRoot] = n.root
		out[KeyParams] = n.filterMap(req.Parameters())
		out[KeyURL] = req.Protocol() + req.Host() + req.RequestURI()
		for k, v := range renv {
			env[k] = v
		}
	}
	out[KeyEnvironment] = n.filterEnv(env)

	if s, ok := ec.TrySession(); ok && s != nil {
		out[KeySession] = s
		out[KeySessionID] = s.SessionID()
		out[KeySessionData] = n.filterMap(sessionData(s))
	}

	switch {
	case in.IsManual():
		if len(stack) > 1 {
			out[KeyLocation] = stack[1]
		} else if len(stack) == 1 {
			out[KeyLocation] = stack[0]
		}
		out[KeyBacktrace] = stack
		msg := in.fields[KeyMessage].(string)
		switch n.policy {
		case ClassNotice:
			out[KeyErrorClass] = "notice"
		default:
			out[KeyErrorClass] = msg
		}
		for k, v := range in.fields {
			out[k] = v
		}
	case in.IsCaught():
		n.fromError(out, in.err)
	}

	extra, err := n.extra.Resolve(ec)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		out[k] = v
	}

	if _, ok := out[KeyNoticeID]; !ok {
		out[KeyNoticeID] = n.newID()
	}
	if _, ok := out[KeyOccurredAt]; !ok {
		out[KeyOccurredAt] = n.now().UTC().Format(time.RFC3339)
	}
	return out, nil
}

func (n *Normalizer) fromError(out Notice, err error) {
	out[KeyException] = err
	out[KeyErrorClass] = ClassName(err)
	out[KeyMessage] = err.Error()
	out[KeyBacktrace] = n.sanitizer.Sanitize(Backtrace(err))
	if d := Details(err); len(d) > 0 {
		out[KeyDetails] = n.filterMap(d)
	}
}

func (n *Normalizer) environment() map[string]string {
	env := map[string]string{}
	for _, kv := range n.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

func (n *Normalizer) redact(key string) bool {
	if len(n.filters) == 0 {
		return false
	}
	lk := strings.ToLower(key)
	for _, f := range n.filters {
		if strings.Contains(lk, f) {
			return true
		}
	}
	return false
}

func (n *Normalizer) filterEnv(env map[string]string) map[string]string {
	for k := range env {
		if n.redact(k) {
			env[k] = Filtered
		}
	}
	return env
}

// filterMap returns a redacted deep copy of m. Nested maps are filtered too.
func (n *Normalizer) filterMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if n.redact(k) {
			out[k] = Filtered
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = n.filterMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func sessionData(s Session) map[string]any {
	if m, ok := s.(SessionMapper); ok {
		return m.ToMap()
	}
	if l, ok := s.(LegacySession); ok {
		return l.RawData()
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
