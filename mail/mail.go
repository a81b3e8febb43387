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

// Package mail delivers notices by e-mail over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dirpx.dev/exnotify/adapter"
	"dirpx.dev/exnotify/notice"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "[ERROR]"

// Config describes the SMTP relay and the envelope.
type Config struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	To            []string
	SubjectPrefix string
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithTLSConfig overrides the configuration used for STARTTLS. nil disables
// STARTTLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(m *Mailer) { m.tlsConfig = cfg }
}

// WithDialer swaps the network dialer.
func WithDialer(d Dialer) Option {
	return func(m *Mailer) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithAuth supplies a custom SMTP auth strategy instead of PLAIN with
// Config.User/Pass.
func WithAuth(auth smtp.Auth) Option {
	return func(m *Mailer) { m.auth = auth }
}

// WithClock replaces time.Now for the Date header.
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) {
		if now != nil {
			m.now = now
		}
	}
}

// WithHelloName sets the EHLO identity.
func WithHelloName(name string) Option {
	return func(m *Mailer) {
		if strings.TrimSpace(name) != "" {
			m.helloName = strings.TrimSpace(name)
		}
	}
}

// Dialer abstracts net.Dialer for tests.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Mailer is an exnotify.Deliverer sending one e-mail per notice.
type Mailer struct {
	logger     zerolog.Logger
	host       string
	port       int
	from       string
	fromDomain string
	to         []string
	prefix     string
	auth       smtp.Auth
	tlsConfig  *tls.Config
	dialer     Dialer
	now        func() time.Time
	helloName  string
}

// New validates cfg and returns a Mailer.
func New(cfg Config, logger zerolog.Logger, opts ...Option) (*Mailer, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("mail: host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("mail: invalid port %d", cfg.Port)
	}
	from, err := envelopeAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid sender %q: %w", cfg.From, err)
	}
	to, err := envelopeList(cfg.To)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid recipient: %w", err)
	}
	if len(to) == 0 {
		return nil, errors.New("mail: at least one recipient is required")
	}

	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	m := &Mailer{
		logger:    logger.With().Str("component", "mail").Logger(),
		host:      host,
		port:      cfg.Port,
		from:      from,
		to:        to,
		prefix:    strings.TrimSpace(cfg.SubjectPrefix),
		dialer:    &net.Dialer{Timeout: 30 * time.Second},
		now:       time.Now,
		helloName: "localhost",
		tlsConfig: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
	}
	if m.prefix == "" {
		m.prefix = DefaultSubjectPrefix
	}
	if _, domain, ok := strings.Cut(from, "@"); ok {
		m.fromDomain = domain
	}
	if strings.TrimSpace(cfg.User) != "" {
		m.auth = smtp.PlainAuth("", cfg.User, cfg.Pass, host)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Name implements exnotify.Deliverer.
func (m *Mailer) Name() string { return "mail" }

// Deliver renders n and sends it to every recipient.
func (m *Mailer) Deliver(ctx context.Context, n notice.Notice) error {
	if n == nil {
		return errors.New("mail: notice is required")
	}
	msg, err := m.Message(n)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		code, text := classifySMTPError(err)
		m.logger.Warn().Err(err).Int("smtp_code", code).Str("smtp_text", text).
			Str("notice_id", n.ID()).Msg("delivery failed")
		return err
	}
	m.logger.Debug().Str("notice_id", n.ID()).Strs("to", m.to).Msg("notice mailed")
	return nil
}

// Subject renders `<prefix> <location> (<error_class>) "<message>"`.
// Message Q-encodes it when it is not plain ASCII.
func (m *Mailer) Subject(n notice.Notice) string {
	return sanitizeHeader(fmt.Sprintf("%s %s (%s) %q", m.prefix, n.Location(), n.ErrorClass(), n.Message()))
}

// Message renders the full RFC 5322 message for n.
func (m *Mailer) Message(n notice.Notice) ([]byte, error) {
	body, err := Body(n)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		"From":         m.from,
		"To":           strings.Join(m.to, ", "),
		"Subject":      mime.QEncoding.Encode("utf-8", m.Subject(n)),
		"Date":         m.now().UTC().Format(time.RFC1123Z),
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}
	if id := n.ID(); id != "" {
		domain := m.fromDomain
		if domain == "" {
			domain = "localhost"
		}
		headers["Message-Id"] = sanitizeHeader("<" + id + "@" + domain + ">")
		headers["X-Exnotify-Notice-Id"] = sanitizeHeader(id)
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(headers[k])
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.WriteString(normalizeBody(body))
	return buf.Bytes(), nil
}

const rule = "-------------------------------"

// Body renders the plain-text body: a headline, summary lines, the
// backtrace and the full notice as JSON.
func Body(n notice.Notice) (string, error) {
	js, err := adapter.ToJSON(n)
	if err != nil {
		return "", fmt.Errorf("mail: render notice: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "A %s occurred in %s:\n\n  %s\n\n", n.ErrorClass(), n.Location(), n.Message())
	section(&b, "Summary")
	for _, line := range adapter.SummaryLines(n) {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
	section(&b, "Backtrace")
	for _, frame := range n.Backtrace() {
		b.WriteString("  " + frame + "\n")
	}
	b.WriteString("\n")
	section(&b, "Notice")
	b.Write(js)
	b.WriteString("\n")
	return b.String(), nil
}

func section(b *strings.Builder, title string) {
	b.WriteString(rule + "\n" + title + ":\n" + rule + "\n")
}

func (m *Mailer) send(ctx context.Context, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mail: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("mail: new client: %w", err)
	}
	defer client.Close()

	if err := client.Hello(m.helloName); err != nil {
		return fmt.Errorf("mail: hello: %w", err)
	}
	if m.tlsConfig != nil {
		if ok, _ := client.Extension("STARTTLS"); ok {
			cfg := m.tlsConfig.Clone()
			if cfg.ServerName == "" {
				cfg.ServerName = m.host
			}
			if err := client.StartTLS(cfg); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if m.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(m.auth); err != nil {
				return fmt.Errorf("mail: auth: %w", err)
			}
		}
	}
	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("mail: mail from: %w", err)
	}
	for _, rcpt := range m.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	if _, err := w.Write(message); err != nil {
		_ = w.Close()
		return fmt.Errorf("mail: data write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: data close: %w", err)
	}
	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mail: quit: %w", err)
	}
	return ctx.Err()
}

func normalizeBody(body string) string {
	s := strings.ReplaceAll(body, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.TrimSpace(v)
}

func envelopeList(list []string) ([]string, error) {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, raw := range list {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		addr, err := envelopeAddress(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

func envelopeAddress(value string) (string, error) {
	addr, err := netmail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}
