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

// ErrorView is the public, serializable body rendered for clients that ask
// for a machine-readable error response.
//
// It deliberately carries no message, kind or backtrace: end users see a
// status and its text, never the notice.
type ErrorView struct {
	// Status is the HTTP status code, e.g. 404 or 500.
	Status int `json:"status"`

	// Error is the standard status text, e.g. "Not Found".
	Error string `json:"error"`
}
