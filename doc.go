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

// Package exnotify turns unexpected errors into notifications.
//
// A Notifier sits at a service's outermost error boundary. Every error that
// reaches it is classified: expected "not found" conditions render a 404 and
// stop there; anything else renders a 500 and is normalized into a
// notice.Notice handed to a single Deliverer (mail, in the bundled daemon).
//
// Errors created with E carry a kind and the stack at their creation, which
// end up as error_class and backtrace in the notice. Plain errors work too:
// their class is the Go type of the innermost cause.
//
// Transport glue lives in httpx and grpcx.
package exnotify
