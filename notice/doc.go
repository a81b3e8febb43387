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

// Package notice assembles the payload handed to a delivery channel when an
// unexpected error occurs.
//
// A Notice is a flat string-keyed map. The Normalizer fills it from three
// sources, in order: the execution context (controller, request and session
// facets, each optional), the input (a manual notice or a caught error) and
// finally an ExtraDataSource whose keys win over everything else.
//
// Normalization only reads shared configuration. A Normalizer is immutable
// after construction and safe for concurrent use.
package notice
