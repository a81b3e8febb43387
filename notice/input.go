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
	"errors"
	"maps"
)

var (
	// ErrInvalidInput is returned for inputs that are neither a manual notice
	// nor a caught error.
	ErrInvalidInput = errors.New("exnotify: invalid notice input")

	// ErrMissingMessage is returned for manual notices without a string
	// "message" entry.
	ErrMissingMessage = errors.New("exnotify: manual notice requires a message")
)

type inputKind uint8

const (
	inputNone inputKind = iota
	inputManual
	inputCaught
)

// Input is what gets normalized: either a manual notice or a caught error.
// The zero value is invalid.
type Input struct {
	kind   inputKind
	fields map[string]any
	err    error
}

// Manual wraps caller-supplied fields. fields must contain a string
// "message"; every key supplied here wins over the defaults the normalizer
// computes.
func Manual(fields map[string]any) Input {
	return Input{kind: inputManual, fields: maps.Clone(fields)}
}

// Caught wraps an error raised while handling a request.
func Caught(err error) Input {
	return Input{kind: inputCaught, err: err}
}

// IsManual reports whether in was built with Manual.
func (in Input) IsManual() bool { return in.kind == inputManual }

// IsCaught reports whether in was built with Caught.
func (in Input) IsCaught() bool { return in.kind == inputCaught }

// Err returns the caught error, nil for manual inputs.
func (in Input) Err() error { return in.err }

// Validate reports whether in can be normalized.
func (in Input) Validate() error {
	switch in.kind {
	case inputManual:
		if msg, ok := in.fields[KeyMessage].(string); !ok || msg == "" {
			return ErrMissingMessage
		}
		return nil
	case inputCaught:
		if in.err == nil {
			return ErrInvalidInput
		}
		return nil
	default:
		return ErrInvalidInput
	}
}
