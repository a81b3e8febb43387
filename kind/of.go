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
	"errors"

	"dirpx.dev/exnotify/apis"
)

// Of returns the first valid kind found in err's chain.
//
// The chain is walked depth-first following Unwrap() error and
// Unwrap() []error. Values implementing apis.Kinded with an empty or
// malformed kind are skipped, so wrappers that only add context do not
// hide the kind of the error they wrap.
func Of(err error) (Kind, bool) {
	for _, e := range Chain(err) {
		ke, ok := e.(apis.Kinded)
		if !ok {
			continue
		}
		k, perr := Parse(ke.ErrorKind())
		if perr != nil {
			continue
		}
		return k, true
	}
	return Empty, false
}

// Chain flattens err's wrap tree in depth-first order, err itself first.
func Chain(err error) []error {
	var out []error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		out = append(out, e)
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		default:
			walk(errors.Unwrap(e))
		}
	}
	walk(err)
	return out
}
