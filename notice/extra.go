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
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrExtraData is returned when an ExtraDataSource cannot be resolved.
var ErrExtraData = errors.New("exnotify: cannot resolve extra data")

// ExtraDataSource yields caller-specific data merged last into every notice.
type ExtraDataSource interface {
	// Resolve returns the extra data for ec. A nil map adds nothing.
	Resolve(ec ExecutionContext) (map[string]any, error)
}

// NoExtra returns a source that adds nothing.
func NoExtra() ExtraDataSource { return noExtra{} }

type noExtra struct{}

func (noExtra) Resolve(ExecutionContext) (map[string]any, error) { return nil, nil }

// Named returns a source that calls the exported method name on the
// execution context. The method must have the signature
// func() map[string]any.
func Named(name string) ExtraDataSource { return named(strings.TrimSpace(name)) }

type named string

var extraMapType = reflect.TypeOf(map[string]any(nil))

func (n named) Resolve(ec ExecutionContext) (map[string]any, error) {
	if n == "" {
		return nil, fmt.Errorf("%w: empty method name", ErrExtraData)
	}
	if ec == nil {
		return nil, fmt.Errorf("%w: no execution context for method %q", ErrExtraData, string(n))
	}
	m := reflect.ValueOf(ec).MethodByName(string(n))
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %T has no method %q", ErrExtraData, ec, string(n))
	}
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() != 1 || mt.Out(0) != extraMapType {
		return nil, fmt.Errorf("%w: %T.%s has signature %s, want func() map[string]any", ErrExtraData, ec, string(n), mt)
	}
	out := m.Call(nil)[0]
	if out.IsNil() {
		return nil, nil
	}
	return out.Interface().(map[string]any), nil
}

// Func returns a source backed by fn, called with the execution context.
func Func(fn func(ec ExecutionContext) map[string]any) ExtraDataSource {
	return funcSource(fn)
}

type funcSource func(ExecutionContext) map[string]any

func (f funcSource) Resolve(ec ExecutionContext) (map[string]any, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil func", ErrExtraData)
	}
	return f(ec), nil
}
