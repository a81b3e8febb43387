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

package classify

import (
	"dirpx.dev/exnotify/apis"
)

// rule is a named predicate. The name only shows up in Explain output.
type rule struct {
	name string
	fn   func(error) bool
}

type builder struct {
	// patterns are raw kind patterns; normalized and validated in New.
	patterns []string

	// targets are matched with errors.Is.
	targets []error

	// rules are arbitrary predicates evaluated last.
	rules []rule

	// skipDefaults drops the built-in kinds, targets and rules.
	skipDefaults bool

	// status holds per-verdict transport statuses.
	status map[apis.Verdict]apis.Status
}

func newBuilder() *builder {
	st := make(map[apis.Verdict]apis.Status, len(defaultStatus))
	for v, s := range defaultStatus {
		st[v] = s
	}
	return &builder{status: st}
}
