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

package mail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dirpx.dev/exnotify/notice"
)

func testConfig() Config {
	return Config{
		Host: "smtp.example.com",
		Port: 2525,
		From: "Exceptions <noreply@example.com>",
		To:   []string{"ops@example.com", "dev@example.com", "ops@example.com"},
	}
}

func testNotice() notice.Notice {
	return notice.Notice{
		notice.KeyNoticeID:   "2b1c",
		notice.KeyLocation:   "users#show",
		notice.KeyErrorClass: "internal",
		notice.KeyMessage:    "db is down",
		notice.KeyBacktrace:  []string{"app/users.go:10 app.Show", "app/router.go:20 app.Route"},
	}
}

func TestNewValidation(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.Host = " " }},
		{"invalid port", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"missing from", func(c *Config) { c.From = "" }},
		{"bad recipient", func(c *Config) { c.To = []string{"not an address"} }},
		{"no recipients", func(c *Config) { c.To = []string{" "} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg, logger); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestSubject(t *testing.T) {
	cfg := testConfig()
	cfg.SubjectPrefix = "[shop]"
	m, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := `[shop] users#show (internal) "db is down"`
	if got := m.Subject(testNotice()); got != want {
		t.Fatalf("Subject = %q, want %q", got, want)
	}

	m, _ = New(testConfig(), zerolog.Nop())
	if got := m.Subject(testNotice()); !strings.HasPrefix(got, DefaultSubjectPrefix+" ") {
		t.Fatalf("Subject = %q, want default prefix", got)
	}
}

func TestMessage(t *testing.T) {
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	m, err := New(testConfig(), zerolog.Nop(), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := m.Message(testNotice())
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	msg := string(raw)
	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: ops@example.com, dev@example.com\r\n",
		"Message-Id: <2b1c@example.com>\r\n",
		"Date: Tue, 04 Mar 2025 05:06:07 +0000\r\n",
		"A internal occurred in users#show:\r\n",
		"  app/users.go:10 app.Show\r\n",
		"\"notice_id\":",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(strings.ReplaceAll(msg, "\r\n", ""), "\n") {
		t.Fatal("bare LF in message")
	}
}

func TestDeliver(t *testing.T) {
	var (
		waitFn     func()
		transcript *smtpTranscript
	)
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		if address != "smtp.example.com:2525" {
			t.Errorf("dial address = %q", address)
		}
		conn, tr, wait := startFakeSMTPServer(t)
		transcript = tr
		waitFn = wait
		return conn, nil
	})

	m, err := New(testConfig(), zerolog.New(io.Discard), WithTLSConfig(nil), WithDialer(dialer), WithHelloName("app.local"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Name() != "mail" {
		t.Fatalf("Name = %q", m.Name())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Deliver(ctx, testNotice()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	waitFn()

	if transcript.hello != "app.local" {
		t.Fatalf("EHLO = %q", transcript.hello)
	}
	if transcript.mailFrom != "noreply@example.com" {
		t.Fatalf("MAIL FROM = %q", transcript.mailFrom)
	}
	if want := []string{"ops@example.com", "dev@example.com"}; !reflect.DeepEqual(transcript.rcpts, want) {
		t.Fatalf("RCPT TO = %v, want %v", transcript.rcpts, want)
	}
	if !strings.Contains(transcript.data, `Subject: [ERROR] users#show (internal) "db is down"`) {
		t.Fatalf("data = %q", transcript.data)
	}
}

func TestDeliver_DialError(t *testing.T) {
	dialErr := errors.New("connection refused")
	dialer := dialerFunc(func(context.Context, string, string) (net.Conn, error) { return nil, dialErr })
	m, err := New(testConfig(), zerolog.Nop(), WithDialer(dialer))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Deliver(context.Background(), testNotice()); !errors.Is(err, dialErr) {
		t.Fatalf("Deliver error = %v, want dial error", err)
	}
}

func TestDeliver_CanceledContext(t *testing.T) {
	m, err := New(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Deliver(ctx, testNotice()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Deliver error = %v, want context.Canceled", err)
	}
	if err := m.Deliver(context.Background(), nil); err == nil {
		t.Fatal("nil notice accepted")
	}
}

// Helpers.

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (d dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d(ctx, network, address)
}

type smtpTranscript struct {
	hello    string
	mailFrom string
	rcpts    []string
	data     string
}

func startFakeSMTPServer(t *testing.T) (net.Conn, *smtpTranscript, func()) {
	t.Helper()

	server, client := net.Pipe()
	transcript := &smtpTranscript{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer server.Close()
		if err := runFakeSMTPConversation(server, transcript); err != nil && !errors.Is(err, io.EOF) {
			t.Errorf("fake smtp server: %v", err)
		}
	}()
	return client, transcript, wg.Wait
}

func runFakeSMTPConversation(conn net.Conn, tr *smtpTranscript) error {
	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)
	writeLine := func(format string, args ...any) error {
		if _, err := fmt.Fprintf(w, format+"\r\n", args...); err != nil {
			return err
		}
		return w.Flush()
	}

	if err := writeLine("220 fake smtp ready"); err != nil {
		return err
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "EHLO ") || strings.HasPrefix(upper, "HELO "):
			tr.hello = strings.TrimSpace(line[5:])
			if err := writeLine("250-fake"); err != nil {
				return err
			}
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case strings.HasPrefix(upper, "MAIL FROM:"):
			tr.mailFrom = extractAddress(line)
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case strings.HasPrefix(upper, "RCPT TO:"):
			tr.rcpts = append(tr.rcpts, extractAddress(line))
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case upper == "DATA":
			if err := writeLine("354 Start mail input; end with <CRLF>.<CRLF>"); err != nil {
				return err
			}
			var data strings.Builder
			for {
				msgLine, err := r.ReadString('\n')
				if err != nil {
					return err
				}
				if msgLine == ".\r\n" {
					break
				}
				data.WriteString(msgLine)
			}
			tr.data = data.String()
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case upper == "QUIT":
			return writeLine("221 Bye")
		default:
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		}
	}
}

func extractAddress(line string) string {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start != -1 && end > start+1 {
		return strings.TrimSpace(line[start+1 : end])
	}
	if idx := strings.Index(line, ":"); idx != -1 {
		return strings.TrimSpace(line[idx+1:])
	}
	return strings.TrimSpace(line)
}

func TestMessage_EncodesSubject(t *testing.T) {
	m, err := New(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := testNotice()
	n[notice.KeyMessage] = "größe überschritten"
	raw, err := m.Message(n)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	var subject string
	for _, line := range strings.Split(string(raw), "\r\n") {
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = v
			break
		}
	}
	if !strings.HasPrefix(subject, "=?utf-8?q?") {
		t.Fatalf("Subject header not encoded: %q", subject)
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	if err != nil {
		t.Fatalf("decode subject: %v", err)
	}
	if want := m.Subject(n); decoded != want {
		t.Fatalf("decoded subject = %q, want %q", decoded, want)
	}

	raw, err = m.Message(testNotice())
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if !strings.Contains(string(raw), "Subject: [ERROR] users#show (internal) \"db is down\"\r\n") {
		t.Fatalf("ASCII subject must stay readable:\n%s", raw)
	}
}

func TestBody_InvalidUTF8(t *testing.T) {
	n := testNotice()
	n[notice.KeyParams] = map[string]any{"q": "\xff"}
	n[notice.KeyMessage] = "bad \xfe input"
	body, err := Body(n)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if !strings.Contains(body, `"q":`) || !strings.Contains(body, "�") {
		t.Fatalf("params not rendered:\n%s", body)
	}
}
