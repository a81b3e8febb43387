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

// Package segmenttrie is a segment-aware prefix index over dot-separated
// keys. It backs hierarchical kind matching: a pattern stored for "routing"
// matches "routing" and every "routing.*" descendant, while "*" matches
// exactly one segment.
package segmenttrie

import (
	"errors"
	"strings"
)

// ErrInvalidPattern is returned when inserting a pattern that is empty, has
// empty or malformed segments, or consists only of wildcards.
var ErrInvalidPattern = errors.New("segmenttrie: invalid pattern")

// Wildcard matches exactly one segment.
const Wildcard = "*"

// Trie maps dotted patterns to values and answers longest-prefix queries.
// A Trie is not safe for concurrent mutation; once built it may be shared by
// any number of readers.
type Trie[T any] struct {
	children map[string]*Trie[T]
	hasVal   bool
	val      T
	// pattern is the dotted pattern stored at this node, kept for Explain
	// style diagnostics so lookups never build strings.
	pattern string
}

// New creates an empty trie.
func New[T any]() *Trie[T] {
	return &Trie[T]{children: make(map[string]*Trie[T])}
}

// Insert associates val with pattern. Inserting the same pattern twice
// replaces the value.
func (t *Trie[T]) Insert(pattern string, val T) error {
	if t == nil {
		return ErrInvalidPattern
	}
	segs, ok := split(pattern, true)
	if !ok || len(segs) == 0 {
		return ErrInvalidPattern
	}
	onlyWild := true
	for _, s := range segs {
		if s != Wildcard {
			onlyWild = false
			break
		}
	}
	if onlyWild {
		return ErrInvalidPattern
	}

	cur := t
	for _, s := range segs {
		next, ok := cur.children[s]
		if !ok {
			next = New[T]()
			cur.children[s] = next
		}
		cur = next
	}
	cur.hasVal = true
	cur.val = val
	cur.pattern = pattern
	return nil
}

// Match returns the value of the deepest pattern that is a segment prefix
// of key. Exact segments win over wildcards at the same depth.
func (t *Trie[T]) Match(key string) (T, bool) {
	v, ok, _ := t.MatchWithPattern(key)
	return v, ok
}

// MatchWithPattern is Match that also reports which stored pattern won.
func (t *Trie[T]) MatchWithPattern(key string) (T, bool, string) {
	var zero T
	if t == nil {
		return zero, false, ""
	}
	segs, ok := split(key, false)
	if !ok {
		return zero, false, ""
	}
	best, _ := t.deepest(segs, 0)
	if best == nil {
		return zero, false, ""
	}
	return best.val, true, best.pattern
}

// Len reports how many patterns carry a value.
func (t *Trie[T]) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	if t.hasVal {
		n++
	}
	for _, c := range t.children {
		n += c.Len()
	}
	return n
}

// deepest explores exact and wildcard branches and returns the node with a
// value at the greatest depth. Exact branches are visited first and a
// wildcard result only replaces them when strictly deeper.
func (t *Trie[T]) deepest(segs []string, depth int) (*Trie[T], int) {
	var best *Trie[T]
	bestDepth := -1
	if t.hasVal {
		best, bestDepth = t, depth
	}
	if depth == len(segs) {
		return best, bestDepth
	}
	for _, key := range [2]string{segs[depth], Wildcard} {
		next, ok := t.children[key]
		if !ok {
			continue
		}
		if n, d := next.deepest(segs, depth+1); n != nil && d > bestDepth {
			best, bestDepth = n, d
		}
	}
	return best, bestDepth
}

func split(s string, allowWildcard bool) ([]string, bool) {
	if s == "" {
		return nil, true
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if !validSegment(seg, allowWildcard) {
			return nil, false
		}
	}
	return segs, true
}

// validSegment accepts [a-z][a-z0-9_]* and, when allowed, the wildcard.
func validSegment(seg string, allowWildcard bool) bool {
	if seg == "" {
		return false
	}
	if allowWildcard && seg == Wildcard {
		return true
	}
	if seg[0] < 'a' || seg[0] > 'z' {
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
