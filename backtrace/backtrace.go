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

// Package backtrace captures call stacks and sanitizes them for notices.
//
// Frames are plain strings of the form
//
//	<file>:<line> <function>
//
// innermost first. Sanitizing strips a configured application root from the
// file part and cleans the resulting path, so traces are relocatable and do
// not leak the deployment layout.
package backtrace

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// maxDepth bounds how many frames Capture records.
const maxDepth = 64

// Capture records the calling goroutine's stack. skip=0 starts at the caller
// of Capture. Frames inside the Go runtime are dropped.
func Capture(skip int) []string {
	pcs := make([]uintptr, maxDepth)
	// +2 skips runtime.Callers and Capture itself.
	n := runtime.Callers(skip+2, pcs)
	return Frames(pcs[:n])
}

// Callers records raw program counters for later formatting with Frames.
// It is cheaper than Capture when the trace may never be read.
func Callers(skip int) []uintptr {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pcs)
	return pcs[:n:n]
}

// Frames formats program counters obtained from runtime.Callers.
func Frames(pcs []uintptr) []string {
	if len(pcs) == 0 {
		return nil
	}
	out := make([]string, 0, len(pcs))
	frames := runtime.CallersFrames(pcs)
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, Format(f.File, f.Line, f.Function))
		}
		if !more {
			break
		}
	}
	return out
}

// Format renders a single frame.
func Format(file string, line int, function string) string {
	if function == "" {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return fmt.Sprintf("%s:%d %s", file, line, function)
}

// Sanitizer strips Root from frames and cleans their paths.
// The zero value only cleans paths.
type Sanitizer struct {
	// Root is the application root, already cleaned. See NewSanitizer.
	Root string
}

// NewSanitizer returns a Sanitizer for the given application root. A
// relative root is resolved against the working directory, as runtime
// frames always carry absolute paths.
func NewSanitizer(root string) Sanitizer {
	if strings.TrimSpace(root) == "" {
		return Sanitizer{}
	}
	root = path.Clean(filepath.ToSlash(root))
	if !path.IsAbs(root) {
		if abs, err := filepath.Abs(root); err == nil {
			root = path.Clean(filepath.ToSlash(abs))
		}
	}
	return Sanitizer{Root: root}
}

// Sanitize returns a sanitized copy of trace. It is idempotent:
// Sanitize(Sanitize(t)) equals Sanitize(t).
func (s Sanitizer) Sanitize(trace []string) []string {
	if trace == nil {
		return nil
	}
	out := make([]string, len(trace))
	for i, line := range trace {
		out[i] = s.Line(line)
	}
	return out
}

// Line sanitizes a single frame. The location part ("file:line") is
// path-cleaned, loses the root prefix and is cleaned again; the function
// part is kept verbatim.
func (s Sanitizer) Line(line string) string {
	loc, fn, hasFn := splitFrame(line)
	if loc != "" {
		loc = path.Clean(loc)
		if s.Root != "" && s.Root != "/" && s.Root != "." {
			if rest, ok := strings.CutPrefix(loc, s.Root+"/"); ok {
				loc = path.Clean(rest)
			}
		}
	}
	if !hasFn {
		return loc
	}
	return loc + " " + fn
}

// lineSuffix matches the ":<line>" that ends the location part of a frame.
var lineSuffix = regexp.MustCompile(`:[0-9]+(?: |$)`)

// splitFrame separates "<file>:<line> <function>" at the last line number
// followed by a space or the end, so files with spaces in their path stay
// whole. Frames without a line number split at the first space.
func splitFrame(line string) (loc, fn string, hasFn bool) {
	idx := lineSuffix.FindAllStringIndex(line, -1)
	if len(idx) == 0 {
		return strings.Cut(line, " ")
	}
	end := idx[len(idx)-1][1]
	if end == len(line) && line[end-1] != ' ' {
		return line, "", false
	}
	return line[:end-1], line[end:], true
}
