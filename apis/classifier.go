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

import "google.golang.org/grpc/codes"

// Verdict is the outcome of classifying an unhandled error.
type Verdict int

const (
	// Unexpected errors render a 500 and trigger a notification.
	Unexpected Verdict = iota

	// NotFound errors are expected: they render a 404 and stop there.
	NotFound
)

// String returns "not_found" or "unexpected".
func (v Verdict) String() string {
	if v == NotFound {
		return "not_found"
	}
	return "unexpected"
}

// Classifier is an immutable, concurrency-safe decision table that tells
// expected (not-found style) errors apart from unexpected ones.
type Classifier interface {
	// Classify returns NotFound when err matches the configured set of
	// expected errors and Unexpected otherwise. A nil error is Unexpected.
	Classify(err error) Verdict

	// Status resolves the transport statuses for a verdict.
	Status(v Verdict) Status

	// Explain returns a human-readable description of which rule matched.
	Explain(err error) string
}

// Status is a resolved pair of transport statuses for a single verdict.
type Status struct {
	HTTP int        // net/http compatible status code.
	GRPC codes.Code // gRPC status code.
}
