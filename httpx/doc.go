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

// Package httpx puts an exnotify.Notifier in front of net/http handlers.
//
// Middleware recovers panics and handles errors returned by HandlerFunc
// handlers: expected errors render a 404 page, everything else a 500 page
// plus one notice. Requests become notice.ExecutionContext values through
// Context, which exposes the route label set with WithRoute, a CGI-style
// request environment and an optional session.
package httpx
