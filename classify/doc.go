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

// Package classify decides whether an unhandled error is expected or not.
//
// # Overview
//
// Expected errors are the "not found" family: a record lookup that came back
// empty, a request for a controller or action that does not exist. They end
// with a 404 and nobody is paged. Everything else is unexpected: the client
// gets a 500 and the notifier sends a notice.
//
// The set of expected errors (the "treat as 404" set) is configurable per
// application and defaults to:
//
//   - kind.RecordNotFound
//   - kind.UnknownController
//   - kind.UnknownAction
//   - kind.Routing (the generic routing failure and all routing.* kinds)
//   - sql.ErrNoRows, matched with errors.Is
//   - gRPC status errors with codes.NotFound
//
// # Resolution model
//
// A Classifier checks, in order:
//
//  1. the error's kind (see kind.Of) against the configured kind patterns,
//     hierarchically: "routing" matches "routing.unknown_action", and "*"
//     matches exactly one segment;
//  2. sentinel targets with errors.Is;
//  3. predicate functions;
//  4. otherwise the error is Unexpected.
//
// # Building a classifier
//
// A Classifier is created once at boot and reused:
//
//	c, err := classify.New(
//	    classify.WithNotFound("billing.invoice_missing"),
//	    classify.WithNotFoundError(fs.ErrNotExist),
//	)
//	if err != nil {
//	    // malformed kind pattern
//	}
//	if c.Classify(err) == apis.NotFound { ... }
//
// # Immutability
//
// All inputs are copied during New. The resulting Classifier is safe to share
// across goroutines and requests.
package classify
