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

// Built-in kinds.
//
// The first four make up the default "treat as 404" set: a missing record and
// the routing failures a dispatcher raises before any application code runs.
const (
	// RecordNotFound indicates that a lookup by id, key or reference found
	// nothing in storage.
	RecordNotFound Kind = "record_not_found"

	// Routing is the generic routing failure. Every routing.* kind is a
	// member of this family.
	Routing Kind = "routing"

	// UnknownController indicates that no handler group matched the request.
	UnknownController Kind = "routing.unknown_controller"

	// UnknownAction indicates that the handler group exists but has no
	// action for the request.
	UnknownAction Kind = "routing.unknown_action"
)

// Kinds used by the notifier itself.
const (
	// Internal is the fallback for unclassified, unexpected failures.
	Internal Kind = "internal"

	// Panic marks an error synthesized from a recovered panic.
	Panic Kind = "panic"

	// Notice marks a manually sent notice when its class is not taken from
	// the caller's message.
	Notice Kind = "notice"
)
