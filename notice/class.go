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

	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/kind"
)

// ClassName names the class of err for error_class: the first valid kind in
// the chain, otherwise the Go type of the innermost cause.
func ClassName(err error) string {
	if err == nil {
		return ""
	}
	if k, ok := kind.Of(err); ok {
		return k.String()
	}
	return fmt.Sprintf("%T", rootCause(err))
}

// Backtrace returns the frames of the first error in err's chain that
// captured a stack.
func Backtrace(err error) []string {
	for _, e := range kind.Chain(err) {
		if bt, ok := e.(apis.Backtracer); ok {
			if frames := bt.Backtrace(); len(frames) > 0 {
				return frames
			}
		}
	}
	return nil
}

// Details returns the details of the first error in err's chain that
// carries any.
func Details(err error) map[string]any {
	for _, e := range kind.Chain(err) {
		if d, ok := e.(apis.Detailed); ok {
			if m := d.ErrorDetails(); len(m) > 0 {
				return m
			}
		}
	}
	return nil
}

// rootCause follows single-error Unwrap to the end. Joined errors stop the
// walk: no single cause is more "root" than the others.
func rootCause(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
