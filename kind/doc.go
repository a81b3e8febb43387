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

// Package kind provides parsing, normalization and discovery of error kinds.
//
// A kind names what sort of failure an error represents, for example
// "record_not_found" or "routing.unknown_action". Kinds are the identity the
// classifier uses to decide whether an unhandled error is an expected,
// not-found style failure or an unexpected one.
//
// Kinds are hierarchical: segments are separated by ".", and a kind is
// considered a descendant of every dotted prefix of itself. The kind
// "routing.unknown_action" therefore belongs to the "routing" family.
//
// Canonical kinds are:
//
//   - lowercase ASCII;
//   - 1 to 4 dot-separated segments, each [a-z][a-z0-9_]*;
//   - 3 to 128 characters long.
//
// Errors carry a kind by implementing apis.Kinded. Of walks an error chain and
// returns the first valid kind it finds.
package kind
