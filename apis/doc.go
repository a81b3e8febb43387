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

// Package apis defines the small Go-level contracts shared by the exnotify
// packages.
//
// Errors describe themselves through optional interfaces (Kinded,
// Backtracer) so that application code can participate in classification and
// notification without importing the concrete exnotify error type. The
// classifier contract lives here too, so transports (httpx, grpcx) depend on
// an interface rather than on package classify.
//
// This package must remain lightweight: only interfaces and tiny value types.
package apis
