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

package classify

import (
	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/kind"
	"google.golang.org/grpc/codes"
)

// Option configures the Classifier at build time.
type Option func(*builder)

// WithNotFound adds kind patterns to the "treat as 404" set. A pattern
// matches the kind itself and all of its descendants; "*" matches exactly
// one segment.
func WithNotFound(patterns ...string) Option {
	return func(b *builder) { b.patterns = append(b.patterns, patterns...) }
}

// WithNotFoundKinds is WithNotFound for already typed kinds.
func WithNotFoundKinds(kinds ...kind.Kind) Option {
	return func(b *builder) {
		for _, k := range kinds {
			b.patterns = append(b.patterns, string(k))
		}
	}
}

// WithNotFoundError treats any error matching one of targets (errors.Is)
// as not found.
func WithNotFoundError(targets ...error) Option {
	return func(b *builder) {
		for _, t := range targets {
			if t != nil {
				b.targets = append(b.targets, t)
			}
		}
	}
}

// WithNotFoundFunc registers a named predicate. Use it for error types that
// carry neither a kind nor a sentinel, typically checked with errors.As.
func WithNotFoundFunc(name string, fn func(error) bool) Option {
	return func(b *builder) {
		if fn != nil {
			b.rules = append(b.rules, rule{name: name, fn: fn})
		}
	}
}

// WithoutDefaults drops the built-in not-found kinds, sentinels and
// predicates, leaving only what the application registers.
func WithoutDefaults() Option {
	return func(b *builder) { b.skipDefaults = true }
}

// WithStatus replaces the transport statuses rendered for a verdict.
func WithStatus(v apis.Verdict, http int, grpc codes.Code) Option {
	return func(b *builder) { b.status[v] = apis.Status{HTTP: http, GRPC: grpc} }
}
