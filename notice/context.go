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

// ExecutionContext is the ambient per-request object handed to the
// normalizer. Every facet is optional; a missing facet is simply skipped.
type ExecutionContext interface {
	// TryControllerInfo returns the controller and action handling the
	// request, if known.
	TryControllerInfo() (ControllerInfo, bool)

	// TryRequest returns the request facet, if any.
	TryRequest() (Request, bool)

	// TrySession returns the session facet, if any.
	TrySession() (Session, bool)
}

// ControllerInfo names the handler that was running.
type ControllerInfo struct {
	Controller string
	Action     string
}

// Location renders "<controller>#<action>".
func (c ControllerInfo) Location() string {
	return c.Controller + "#" + c.Action
}

// Request is the request-like facet of an ExecutionContext.
type Request interface {
	// RemoteIP is the client address as seen by the server.
	RemoteIP() string

	// Parameters are the decoded request parameters.
	Parameters() map[string]any

	// Env is the CGI-style request environment, headers included as HTTP_*.
	Env() map[string]string

	// Protocol is the scheme with separator, e.g. "https://".
	Protocol() string

	// Host is the request host without scheme.
	Host() string

	// RequestURI is the path plus query, e.g. "/x?y=1".
	RequestURI() string
}

// Session is the session-like facet of an ExecutionContext.
//
// Session data is read from ToMap when the session implements SessionMapper,
// otherwise from RawData when it implements LegacySession.
type Session interface {
	SessionID() string
}

// SessionMapper is the preferred way to expose session data.
type SessionMapper interface {
	ToMap() map[string]any
}

// LegacySession exposes the session's internal store directly. It is only
// consulted when SessionMapper is not implemented.
type LegacySession interface {
	RawData() map[string]any
}

// Background is an ExecutionContext with no facets.
var Background ExecutionContext = background{}

type background struct{}

func (background) TryControllerInfo() (ControllerInfo, bool) { return ControllerInfo{}, false }
func (background) TryRequest() (Request, bool)               { return nil, false }
func (background) TrySession() (Session, bool)               { return nil, false }
