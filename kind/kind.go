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

package kind

import (
	"bytes"
	"encoding"
	"errors"
	"regexp"
	"strings"
)

// Kind is the canonical, validated representation of an error kind.
//
// It is a distinct type (not just string) so that raw user input and
// normalized values are not mixed by accident.
type Kind string

const (
	// MinLength is the minimum length for a valid kind.
	MinLength = 3

	// MaxLength is the maximum length for a valid kind. Four descriptive
	// segments fit comfortably.
	MaxLength = 128

	// Separator splits a kind into its hierarchical segments.
	Separator = "."
)

const (
	// kindFmt accepts 1 to 4 dot-separated segments, each starting with a
	// lowercase letter followed by lowercase letters, digits or underscores.
	//
	// Length limits are checked separately against MinLength / MaxLength.
	kindFmt = `^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*){0,3}$`
)

var kindRe = regexp.MustCompile(kindFmt)

var (
	// ErrKindInvalid is returned when a value cannot be parsed or validated
	// as a kind.
	ErrKindInvalid = errors.New("exnotify: invalid kind")
)

var (
	_ encoding.TextMarshaler   = (*Kind)(nil)
	_ encoding.TextUnmarshaler = (*Kind)(nil)
)

// Empty is the zero-value kind. It means "not provided": an error with an
// empty kind does not take part in kind based classification.
var Empty Kind = ""

// Parse normalizes and validates s. On success it returns a canonical Kind.
func Parse(s string) (Kind, error) {
	s = Normalize(s)
	if err := validate(s); err != nil {
		return Empty, err
	}
	return Kind(s), nil
}

// MustParse is the panic-on-error variant of Parse, intended for package
// level declarations.
func MustParse(s string) Kind {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Normalize brings s closer to the canonical form. It only performs
// obvious, non-lossy transformations:
//
//   - trims surrounding spaces;
//   - lowercases the value;
//   - converts "/" to "." and "-" to "_".
//
// It does NOT guarantee validity; callers should still Parse.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "/", ".")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// Validate checks whether k is canonical. The empty kind is invalid.
func Validate(k Kind) error {
	return validate(string(k))
}

// String returns the canonical string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Segments splits the kind into its hierarchical parts.
// The empty kind has no segments.
func (k Kind) Segments() []string {
	if k == Empty {
		return nil
	}
	return strings.Split(string(k), Separator)
}

// Parent returns the enclosing kind, or Empty for a top-level kind.
//
//	Kind("routing.unknown_action").Parent() == "routing"
func (k Kind) Parent() Kind {
	i := strings.LastIndex(string(k), Separator)
	if i < 0 {
		return Empty
	}
	return k[:i]
}

// Within reports whether k equals ancestor or descends from it on a
// segment boundary. "routing.unknown_action" is within "routing", but
// "routingx" is not.
func (k Kind) Within(ancestor Kind) bool {
	if ancestor == Empty || k == Empty {
		return false
	}
	if k == ancestor {
		return true
	}
	return strings.HasPrefix(string(k), string(ancestor)+Separator)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if err := Validate(k); err != nil {
		return nil, err
	}
	return []byte(k), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// It normalizes and validates the provided text before assigning.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(bytes.TrimSpace(text)))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func validate(s string) error {
	if len(s) < MinLength || len(s) > MaxLength {
		return ErrKindInvalid
	}
	if !kindRe.MatchString(s) {
		return ErrKindInvalid
	}
	return nil
}
