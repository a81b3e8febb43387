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

package httpx

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dirpx.dev/exnotify/adapter"
	"dirpx.dev/exnotify/apis"
)

// Renderer writes the public 404/500 responses.
//
// HTML clients get <PublicDir>/404.html or 500.html (a minimal built-in page
// when the file is missing), JSON clients get {"status":..,"error":..} and
// everybody else an empty body.
type Renderer struct {
	// PublicDir holds the static error pages. Empty means built-in pages.
	PublicDir string
}

// Responder binds the renderer to one response. NotFound and Unexpected are
// the statuses written by Render404 and Render500.
func (rd Renderer) Responder(w http.ResponseWriter, r *http.Request, notFound, unexpected apis.Status) *Responder {
	return &Responder{w: w, r: r, dir: rd.PublicDir, notFound: notFound, unexpected: unexpected}
}

// Responder implements exnotify.Renderer for a single request.
type Responder struct {
	w          http.ResponseWriter
	r          *http.Request
	dir        string
	notFound   apis.Status
	unexpected apis.Status
}

// Render404 writes the not-found response.
func (p *Responder) Render404() error { return p.render(p.notFound.HTTP, "404.html") }

// Render500 writes the internal-error response.
func (p *Responder) Render500() error { return p.render(p.unexpected.HTTP, "500.html") }

func (p *Responder) render(status int, page string) error {
	if rw, ok := p.w.(*responseWriter); ok && rw.wroteHeader {
		// Too late for a clean error page; the handler already started
		// streaming its own response.
		return nil
	}
	h := p.w.Header()
	h.Del("Content-Length")
	h.Set("Cache-Control", "no-store")

	switch negotiate(p.r.Header.Get("Accept")) {
	case formatHTML:
		body, err := p.page(page, status)
		if err != nil {
			return err
		}
		h.Set("Content-Type", "text/html; charset=utf-8")
		h.Set("Content-Length", strconv.Itoa(len(body)))
		p.w.WriteHeader(status)
		_, err = p.w.Write(body)
		return err
	case formatJSON:
		body, err := adapter.ViewJSON(adapter.ToView(apis.Status{HTTP: status}))
		if err != nil {
			return err
		}
		h.Set("Content-Type", "application/json")
		p.w.WriteHeader(status)
		_, err = p.w.Write(body)
		return err
	default:
		p.w.WriteHeader(status)
		return nil
	}
}

func (p *Responder) page(name string, status int) ([]byte, error) {
	if p.dir != "" {
		b, err := os.ReadFile(filepath.Join(p.dir, name))
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("httpx: read %s: %w", name, err)
		}
	}
	text := http.StatusText(status)
	return []byte(fmt.Sprintf("<!DOCTYPE html>\n<html><head><title>%d %s</title></head><body><h1>%d %s</h1></body></html>\n", status, text, status, text)), nil
}

type format uint8

const (
	formatNone format = iota
	formatHTML
	formatJSON
)

// negotiate picks the response format from an Accept header. An absent
// header or a wildcard means HTML.
func negotiate(accept string) format {
	if strings.TrimSpace(accept) == "" {
		return formatHTML
	}
	wildcard := false
	for _, part := range strings.Split(accept, ",") {
		mt, _, _ := strings.Cut(part, ";")
		mt = strings.ToLower(strings.TrimSpace(mt))
		switch {
		case mt == "text/html" || mt == "application/xhtml+xml":
			return formatHTML
		case mt == "application/json" || strings.HasSuffix(mt, "+json"):
			return formatJSON
		case mt == "*/*" || mt == "text/*":
			wildcard = true
		}
	}
	if wildcard {
		return formatHTML
	}
	return formatNone
}
