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

package notice

import (
	"maps"
	"sort"
)

// Well-known notice keys.
const (
	KeyEnvironment   = "environment"
	KeyLocation      = "location"
	KeyController    = "controller"
	KeyRequest       = "request"
	KeyRemoteAddress = "remote_address"
	KeyRailsRoot     = "rails_root"
	KeyParams        = "params"
	KeyURL           = "url"
	KeySession       = "session"
	KeySessionID     = "session_id"
	KeySessionData   = "session_data"
	KeyBacktrace     = "backtrace"
	KeyErrorClass    = "error_class"
	KeyMessage       = "message"
	KeyException     = "exception"
	KeyDetails       = "details"
	KeyNoticeID      = "notice_id"
	KeyOccurredAt    = "occurred_at"
)

// Filtered replaces the value of redacted keys.
const Filtered = "[FILTERED]"

// Notice is the normalized payload of one notification.
//
// Values are whatever the normalizer put there: strings, string slices,
// nested maps and, for KeyController, KeyRequest, KeySession and
// KeyException, opaque references to the originating objects.
type Notice map[string]any

// String returns the value at key if it is a string.
func (n Notice) String(key string) string {
	s, _ := n[key].(string)
	return s
}

// ErrorClass returns the error_class entry.
func (n Notice) ErrorClass() string { return n.String(KeyErrorClass) }

// Message returns the message entry.
func (n Notice) Message() string { return n.String(KeyMessage) }

// Location returns the location entry.
func (n Notice) Location() string { return n.String(KeyLocation) }

// ID returns the notice_id entry.
func (n Notice) ID() string { return n.String(KeyNoticeID) }

// Backtrace returns the backtrace entry.
func (n Notice) Backtrace() []string {
	bt, _ := n[KeyBacktrace].([]string)
	return bt
}

// Exception returns the original error for notices built from a caught
// error, nil otherwise.
func (n Notice) Exception() error {
	err, _ := n[KeyException].(error)
	return err
}

// Clone returns a shallow copy of n.
func (n Notice) Clone() Notice {
	if n == nil {
		return nil
	}
	return maps.Clone(n)
}

// Keys returns the notice keys in lexical order.
func (n Notice) Keys() []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
