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

package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dirpx.dev/exnotify"
	"dirpx.dev/exnotify/httpx"
	"dirpx.dev/exnotify/internal/config"
	"dirpx.dev/exnotify/notice"
)

// routes builds the HTTP surface: operational endpoints plus an endpoint
// for reporting manual notices.
func routes(n *exnotify.Notifier, cfg *config.Config) http.Handler {
	mw := httpx.New(n, httpx.WithRenderer(httpx.Renderer{PublicDir: cfg.Notifier.PublicDir}))

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("POST /notices", mw.Func(func(w http.ResponseWriter, r *http.Request) error {
		r = httpx.WithRoute(r, "notices", "create")
		return createNotice(n, w, r)
	}))
	mux.Handle("/", mw.NotFound())
	return mw.Wrap(mux)
}

// createNotice reports the JSON object in the body as a manual notice.
func createNotice(n *exnotify.Notifier, w http.ResponseWriter, r *http.Request) error {
	var fields map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&fields); err != nil {
		http.Error(w, "body must be a JSON object", http.StatusBadRequest)
		return nil
	}
	err := n.NotifyOf(r.Context(), httpx.NewContext(r, nil), notice.Manual(fields))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, notice.ErrMissingMessage), errors.Is(err, notice.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, exnotify.ErrThrottled):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	default:
		return err
	}
	return nil
}
