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
	"errors"
	"fmt"
	"strings"

	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/internal/segmenttrie"
	"dirpx.dev/exnotify/kind"
)

// New constructs an immutable apis.Classifier snapshot.
//
// Build process:
//
//  1. Seed the builder with the built-in not-found set (unless
//     WithoutDefaults is given).
//  2. Apply user options.
//  3. Normalize and validate every kind pattern and index it in a segment
//     trie for hierarchical matching.
//  4. Freeze targets, rules and statuses into fresh copies.
//
// Errors indicate malformed kind patterns. They are configuration errors and
// are meant to stop the application at boot.
func New(opts ...Option) (apis.Classifier, error) {
	b := newBuilder()
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	var patterns []string
	var targets []error
	var rules []rule
	if !b.skipDefaults {
		for _, k := range defaultKinds {
			patterns = append(patterns, string(k))
		}
		targets = append(targets, defaultTargets...)
		rules = append(rules, defaultRules...)
	}
	patterns = append(patterns, b.patterns...)
	targets = append(targets, b.targets...)
	rules = append(rules, b.rules...)

	trie := segmenttrie.New[struct{}]()
	for _, raw := range patterns {
		p, err := normalizeAndValidatePattern(raw)
		if err != nil {
			return nil, fmt.Errorf("classify: invalid not-found kind %q: %w", raw, err)
		}
		if err := trie.Insert(p, struct{}{}); err != nil {
			return nil, fmt.Errorf("classify: cannot index not-found kind %q: %w", p, err)
		}
	}

	status := make(map[apis.Verdict]apis.Status, len(b.status))
	for v, s := range b.status {
		status[v] = s
	}

	return &classifier{
		kinds:   trie,
		targets: targets,
		rules:   rules,
		status:  status,
	}, nil
}

// MustNew is New that panics on error. Intended for tests and package-level
// defaults.
func MustNew(opts ...Option) apis.Classifier {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// classifier is the immutable implementation behind apis.Classifier.
type classifier struct {
	// kinds indexes the not-found kind patterns.
	kinds *segmenttrie.Trie[struct{}]

	// targets are sentinel errors matched with errors.Is.
	targets []error

	// rules are named predicates evaluated last.
	rules []rule

	// status maps verdicts onto transport statuses.
	status map[apis.Verdict]apis.Status
}

// match describes which tier produced a verdict.
type match struct {
	source string // kind | target | rule | none
	detail string
}

// Classify implements apis.Classifier.
func (c *classifier) Classify(err error) apis.Verdict {
	if _, ok := c.resolve(err); ok {
		return apis.NotFound
	}
	return apis.Unexpected
}

// Status implements apis.Classifier. Unknown verdicts resolve like
// Unexpected.
func (c *classifier) Status(v apis.Verdict) apis.Status {
	if s, ok := c.status[v]; ok {
		return s
	}
	return c.status[apis.Unexpected]
}

// Explain produces a textual trace of the decision for err.
//
// Example output:
//
//	kind="routing.method_not_allowed"
//	verdict=not_found source=kind pattern="routing"
//	status: http=404 grpc=NOTFOUND(5)
//
// It is meant for logs and tests, not for machine parsing.
func (c *classifier) Explain(err error) string {
	var b strings.Builder
	k, _ := kind.Of(err)
	_, _ = fmt.Fprintf(&b, "kind=%q\n", k)

	m, ok := c.resolve(err)
	v := apis.Unexpected
	if ok {
		v = apis.NotFound
	}
	switch m.source {
	case "kind":
		_, _ = fmt.Fprintf(&b, "verdict=%s source=kind pattern=%q\n", v, m.detail)
	case "target", "rule":
		_, _ = fmt.Fprintf(&b, "verdict=%s source=%s match=%q\n", v, m.source, m.detail)
	default:
		_, _ = fmt.Fprintf(&b, "verdict=%s source=none\n", v)
	}

	st := c.Status(v)
	_, _ = fmt.Fprintf(&b, "status: http=%d grpc=%s(%d)", st.HTTP, strings.ToUpper(st.GRPC.String()), int(st.GRPC))
	return b.String()
}

// resolve runs the tiers in order and reports the first that matched.
func (c *classifier) resolve(err error) (match, bool) {
	if err == nil {
		return match{source: "none"}, false
	}

	if k, ok := kind.Of(err); ok {
		if _, hit, pat := c.kinds.MatchWithPattern(string(k)); hit {
			return match{source: "kind", detail: pat}, true
		}
	}

	for _, t := range c.targets {
		if errors.Is(err, t) {
			return match{source: "target", detail: t.Error()}, true
		}
	}

	for _, r := range c.rules {
		if r.fn(err) {
			return match{source: "rule", detail: r.name}, true
		}
	}

	return match{source: "none"}, false
}

// normalizeAndValidatePattern brings a kind pattern into canonical form.
// Patterns follow kind syntax, except that a segment may be "*".
func normalizeAndValidatePattern(raw string) (string, error) {
	p := kind.Normalize(raw)
	if p == "" {
		return "", fmt.Errorf("empty pattern")
	}
	if !strings.Contains(p, segmenttrie.Wildcard) {
		if _, err := kind.Parse(p); err != nil {
			return "", err
		}
		return p, nil
	}
	allWild := true
	for _, seg := range strings.Split(p, kind.Separator) {
		if seg == segmenttrie.Wildcard {
			continue
		}
		allWild = false
		if !validSegment(seg) {
			return "", fmt.Errorf("invalid segment %q", seg)
		}
	}
	if allWild {
		return "", fmt.Errorf("pattern cannot consist of '*' only")
	}
	return p, nil
}

// validSegment reports whether seg matches [a-z][a-z0-9_]*.
func validSegment(seg string) bool {
	if seg == "" || seg[0] < 'a' || seg[0] > 'z' {
		return false
	}
	for i := 1; i < len(seg); i++ {
		c := seg[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}
