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
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/kind"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type kindErr string

func (e kindErr) Error() string     { return "failed: " + string(e) }
func (e kindErr) ErrorKind() string { return string(e) }

type missingPage struct{ path string }

func (e *missingPage) Error() string { return "no page at " + e.path }

func TestDefaults(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	cases := []struct {
		name string
		err  error
		want apis.Verdict
	}{
		{"record not found", kindErr(kind.RecordNotFound), apis.NotFound},
		{"unknown controller", kindErr(kind.UnknownController), apis.NotFound},
		{"unknown action", kindErr(kind.UnknownAction), apis.NotFound},
		{"generic routing", kindErr(kind.Routing), apis.NotFound},
		{"routing descendant", kindErr("routing.method_not_allowed"), apis.NotFound},
		{"wrapped kind", fmt.Errorf("show user: %w", kindErr(kind.RecordNotFound)), apis.NotFound},
		{"sql no rows", fmt.Errorf("query: %w", sql.ErrNoRows), apis.NotFound},
		{"grpc not found", status.Error(codes.NotFound, "missing"), apis.NotFound},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), apis.Unexpected},
		{"plain error", errors.New("boom"), apis.Unexpected},
		{"internal kind", kindErr(kind.Internal), apis.Unexpected},
		{"routing lookalike", kindErr("routingx"), apis.Unexpected},
		{"nil", nil, apis.Unexpected},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	c := MustNew()
	if st := c.Status(apis.NotFound); st.HTTP != 404 || st.GRPC != codes.NotFound {
		t.Fatalf("NotFound status = %+v", st)
	}
	if st := c.Status(apis.Unexpected); st.HTTP != 500 || st.GRPC != codes.Internal {
		t.Fatalf("Unexpected status = %+v", st)
	}
	if st := c.Status(apis.Verdict(42)); st.HTTP != 500 {
		t.Fatalf("unknown verdict must resolve like Unexpected, got %+v", st)
	}

	c2 := MustNew(WithStatus(apis.NotFound, 410, codes.NotFound))
	if st := c2.Status(apis.NotFound); st.HTTP != 410 {
		t.Fatalf("WithStatus ignored: %+v", st)
	}
}

func TestCustomSet(t *testing.T) {
	c, err := New(
		WithNotFound("billing.invoice_missing", "media.*.gone"),
		WithNotFoundError(fs.ErrNotExist),
		WithNotFoundFunc("missing_page", func(err error) bool {
			var mp *missingPage
			return errors.As(err, &mp)
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := map[error]apis.Verdict{
		kindErr("billing.invoice_missing"):      apis.NotFound,
		kindErr("billing.invoice_missing.pdf"):  apis.NotFound,
		kindErr("billing.charge_failed"):        apis.Unexpected,
		kindErr("media.video.gone"):             apis.NotFound,
		kindErr("media.gone"):                   apis.Unexpected,
		fmt.Errorf("open: %w", fs.ErrNotExist):  apis.NotFound,
		fmt.Errorf("x: %w", &missingPage{"/a"}): apis.NotFound,
		kindErr(kind.RecordNotFound):            apis.NotFound, // defaults kept
	}
	for e, want := range cases {
		if got := c.Classify(e); got != want {
			t.Fatalf("Classify(%v) = %s, want %s", e, got, want)
		}
	}
}

func TestWithoutDefaults(t *testing.T) {
	c := MustNew(WithoutDefaults(), WithNotFoundKinds(kind.UnknownAction))
	if got := c.Classify(kindErr(kind.RecordNotFound)); got != apis.Unexpected {
		t.Fatalf("defaults must be dropped, got %s", got)
	}
	if got := c.Classify(sql.ErrNoRows); got != apis.Unexpected {
		t.Fatalf("default sentinel must be dropped, got %s", got)
	}
	if got := c.Classify(kindErr(kind.UnknownAction)); got != apis.NotFound {
		t.Fatalf("registered kind must match, got %s", got)
	}
	// routing.unknown_action does not make its parent expected.
	if got := c.Classify(kindErr(kind.Routing)); got != apis.Unexpected {
		t.Fatalf("parent kind must not match a child pattern, got %s", got)
	}
}

func TestNew_InvalidPatterns(t *testing.T) {
	for _, p := range []string{"", "ab", "*", "*.*", "Bad Kind", "a..b", "1abc.def"} {
		if _, err := New(WithNotFound(p)); err == nil {
			t.Fatalf("New(WithNotFound(%q)) must fail", p)
		}
	}
	if _, err := New(WithNotFound(" Billing/Invoice-Missing ")); err != nil {
		t.Fatalf("pattern must be normalized: %v", err)
	}
}

func TestExplain(t *testing.T) {
	c := MustNew(WithNotFoundFunc("missing_page", func(err error) bool {
		var mp *missingPage
		return errors.As(err, &mp)
	}))

	got := c.Explain(kindErr("routing.method_not_allowed"))
	want := "kind=\"routing.method_not_allowed\"\n" +
		"verdict=not_found source=kind pattern=\"routing\"\n" +
		"status: http=404 grpc=NOTFOUND(5)"
	if got != want {
		t.Fatalf("Explain(kind) mismatch.\n--- want ---\n%s\n--- got ---\n%s", want, got)
	}

	got = c.Explain(&missingPage{"/x"})
	if !strings.Contains(got, `source=rule match="missing_page"`) {
		t.Fatalf("Explain(rule) = %q", got)
	}

	got = c.Explain(errors.New("boom"))
	want = "kind=\"\"\nverdict=unexpected source=none\nstatus: http=500 grpc=INTERNAL(13)"
	if got != want {
		t.Fatalf("Explain(none) mismatch.\n--- want ---\n%s\n--- got ---\n%s", want, got)
	}
}

func TestConcurrentUse(t *testing.T) {
	c := MustNew()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := error(kindErr(kind.RecordNotFound))
			want := apis.NotFound
			if i%2 == 0 {
				e, want = errors.New("boom"), apis.Unexpected
			}
			if got := c.Classify(e); got != want {
				t.Errorf("Classify = %s, want %s", got, want)
			}
		}(i)
	}
	wg.Wait()
}
