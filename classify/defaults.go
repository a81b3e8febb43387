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
	"database/sql"
	"errors"
	"net/http"

	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/kind"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// defaultKinds is the built-in "treat as 404" set.
var defaultKinds = []kind.Kind{
	kind.RecordNotFound,
	kind.UnknownController,
	kind.UnknownAction,
	kind.Routing,
}

// defaultTargets are sentinel errors that mean "no such record" in the
// standard library.
var defaultTargets = []error{
	sql.ErrNoRows,
}

// defaultRules are predicates that recognise not-found errors produced by
// other layers.
var defaultRules = []rule{
	{name: "grpc.not_found", fn: isGRPCNotFound},
}

// defaultStatus maps verdicts onto transport statuses.
var defaultStatus = map[apis.Verdict]apis.Status{
	apis.NotFound:   {HTTP: http.StatusNotFound, GRPC: codes.NotFound},
	apis.Unexpected: {HTTP: http.StatusInternalServerError, GRPC: codes.Internal},
}

// isGRPCNotFound reports whether err carries a gRPC status with
// codes.NotFound anywhere in its chain.
func isGRPCNotFound(err error) bool {
	var se interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &se) {
		return false
	}
	return se.GRPCStatus().Code() == codes.NotFound
}
