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

package apis

// Kinded is implemented by errors that know their kind, e.g.
// "record_not_found" or "routing.unknown_action".
//
// The returned value is normalized and validated by package kind. An empty
// string means "no opinion": classification keeps walking the wrap chain.
type Kinded interface {
	error

	// ErrorKind returns the error kind identifier.
	ErrorKind() string
}

// Backtracer is implemented by errors that captured the call stack at the
// point they were created.
//
// Frames are ordered innermost first and formatted as
// "<file>:<line> <function>". They are raw: sanitizing them for a notice
// (root stripping, path cleaning) is the normalizer's job.
type Backtracer interface {
	error

	// Backtrace returns the captured frames. May return nil.
	Backtrace() []string
}

// Detailed is implemented by errors that carry structured context worth
// attaching to a notice.
type Detailed interface {
	error

	// ErrorDetails returns a read-only view of the details. May return nil.
	ErrorDetails() map[string]any
}
