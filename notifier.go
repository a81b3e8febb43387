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

package exnotify

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dirpx.dev/exnotify/address"
	"dirpx.dev/exnotify/apis"
	"dirpx.dev/exnotify/classify"
	"dirpx.dev/exnotify/notice"
)

var (
	// ErrNoDeliverer is returned by New when Config.Deliverer is nil.
	ErrNoDeliverer = errors.New("exnotify: deliverer is required")

	// ErrThrottled is returned by NotifyOf when the notification rate limit
	// is exhausted. The notice is dropped.
	ErrThrottled = errors.New("exnotify: notification throttled")
)

// Deliverer sends a finished notice to its destination.
type Deliverer interface {
	// Name identifies the channel in logs and metrics, e.g. "mail".
	Name() string

	// Deliver sends n. Implementations own retries and timeouts.
	Deliver(ctx context.Context, n notice.Notice) error
}

// DeliverFunc adapts fn to a Deliverer called name.
func DeliverFunc(name string, fn func(ctx context.Context, n notice.Notice) error) Deliverer {
	return deliverFunc{name: name, fn: fn}
}

type deliverFunc struct {
	name string
	fn   func(context.Context, notice.Notice) error
}

func (d deliverFunc) Name() string { return d.name }

func (d deliverFunc) Deliver(ctx context.Context, n notice.Notice) error {
	return d.fn(ctx, n)
}

// Renderer produces the response the client sees. Content negotiation is
// the renderer's business.
type Renderer interface {
	Render404() error
	Render500() error
}

// Config wires a Notifier. Only Deliverer is required.
type Config struct {
	// Classifier decides 404 vs 500. Defaults to classify.MustNew().
	Classifier apis.Classifier

	// Normalizer builds notices. Defaults to notice.NewNormalizer().
	Normalizer *notice.Normalizer

	// Trusted lists local addresses. Defaults to loopback only.
	Trusted *address.List

	Deliverer Deliverer

	// ShowLocal makes transports render a debug page instead of notifying
	// when the client address is trusted.
	ShowLocal bool

	// RateLimitPerMinute caps notifications; 0 disables the limit.
	RateLimitPerMinute int

	// RateBurst defaults to max(1, RateLimitPerMinute/10).
	RateBurst int

	// Logger receives boundary and delivery events. The zero value discards.
	Logger zerolog.Logger
}

// Notifier is the error boundary. It is immutable after New and safe for
// concurrent use.
type Notifier struct {
	classifier apis.Classifier
	normalizer *notice.Normalizer
	trusted    *address.List
	deliverer  Deliverer
	limiter    *rate.Limiter
	showLocal  bool
	log        zerolog.Logger
}

// New builds a Notifier from cfg.
func New(cfg Config) (*Notifier, error) {
	if cfg.Deliverer == nil {
		return nil, ErrNoDeliverer
	}
	log := cfg.Logger
	if reflect.ValueOf(log).IsZero() {
		log = zerolog.Nop()
	}
	n := &Notifier{
		classifier: cfg.Classifier,
		normalizer: cfg.Normalizer,
		trusted:    cfg.Trusted,
		deliverer:  cfg.Deliverer,
		showLocal:  cfg.ShowLocal,
		log:        log.With().Str("component", "exnotify").Logger(),
	}
	if n.classifier == nil {
		c, err := classify.New()
		if err != nil {
			return nil, fmt.Errorf("exnotify: default classifier: %w", err)
		}
		n.classifier = c
	}
	if n.normalizer == nil {
		n.normalizer = notice.NewNormalizer()
	}
	if n.trusted == nil {
		n.trusted = address.MustNew()
	}
	if cfg.RateLimitPerMinute < 0 || cfg.RateBurst < 0 {
		return nil, fmt.Errorf("exnotify: negative rate limit %d/%d", cfg.RateLimitPerMinute, cfg.RateBurst)
	}
	if cfg.RateLimitPerMinute > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = max(1, cfg.RateLimitPerMinute/10)
		}
		n.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMinute)/60.0), burst)
	}
	return n, nil
}

// Classify returns the verdict for err.
func (n *Notifier) Classify(err error) apis.Verdict { return n.classifier.Classify(err) }

// Status returns the transport status for v.
func (n *Notifier) Status(v apis.Verdict) apis.Status { return n.classifier.Status(v) }

// Explain describes how err was classified.
func (n *Notifier) Explain(err error) string { return n.classifier.Explain(err) }

// IsTrusted reports whether remote is a local address.
func (n *Notifier) IsTrusted(remote string) bool { return n.trusted.IsTrusted(remote) }

// ShowLocal reports whether trusted clients get a debug page.
func (n *Notifier) ShowLocal() bool { return n.showLocal }

// Normalizer returns the notice normalizer.
func (n *Notifier) Normalizer() *notice.Normalizer { return n.normalizer }

// Logger returns the notifier's logger.
func (n *Notifier) Logger() zerolog.Logger { return n.log }

// HandleUnexpected is the error boundary. NotFound errors render a 404 and
// are not reported. Everything else renders a 500 and is delivered once.
//
// Delivery problems are logged and counted, never returned: the returned
// error is the renderer's. r may be nil when the transport renders on its
// own. A nil err is a no-op: nothing is rendered or reported.
func (n *Notifier) HandleUnexpected(ctx context.Context, err error, ec notice.ExecutionContext, r Renderer) (apis.Verdict, error) {
	if err == nil {
		return apis.Unexpected, nil
	}
	v := n.classifier.Classify(err)
	classifiedTotal.WithLabelValues(v.String()).Inc()

	if v == apis.NotFound {
		n.log.Debug().Err(err).Msg("not found")
		if r == nil {
			return v, nil
		}
		return v, r.Render404()
	}

	var rerr error
	if r != nil {
		rerr = r.Render500()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_ = n.send(ctx, ec, notice.Caught(err))
	return v, rerr
}

// NotifyOf normalizes in within ec and delivers it. Manual notices record
// the caller of NotifyOf as their location. Malformed input, throttling and
// delivery failures are returned.
func (n *Notifier) NotifyOf(ctx context.Context, ec notice.ExecutionContext, in notice.Input) error {
	if err := in.Validate(); err != nil {
		noticesTotal.WithLabelValues(statusInvalid).Inc()
		return err
	}
	if !n.allow() {
		return ErrThrottled
	}
	nt, err := n.normalizer.Normalize(ec, in)
	if err != nil {
		noticesTotal.WithLabelValues(statusInvalid).Inc()
		return err
	}
	return n.deliver(ctx, nt)
}

func (n *Notifier) send(ctx context.Context, ec notice.ExecutionContext, in notice.Input) error {
	if !n.allow() {
		return ErrThrottled
	}
	nt, err := n.normalizer.Normalize(ec, in)
	if err != nil {
		noticesTotal.WithLabelValues(statusInvalid).Inc()
		n.log.Error().Err(err).Msg("cannot build notice")
		return err
	}
	return n.deliver(ctx, nt)
}

func (n *Notifier) allow() bool {
	if n.limiter == nil || n.limiter.Allow() {
		return true
	}
	noticesTotal.WithLabelValues(statusThrottled).Inc()
	n.log.Warn().Msg("notice dropped: rate limit exceeded")
	return false
}

func (n *Notifier) deliver(ctx context.Context, nt notice.Notice) error {
	name := n.deliverer.Name()
	start := time.Now()
	err := n.deliverer.Deliver(ctx, nt)
	deliveryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	ev := n.log.Info()
	if err != nil {
		noticesTotal.WithLabelValues(statusFailed).Inc()
		ev = n.log.Error().Err(err)
	} else {
		noticesTotal.WithLabelValues(statusDelivered).Inc()
	}
	ev.Str("notice_id", nt.ID()).
		Str("error_class", nt.ErrorClass()).
		Str("location", nt.Location()).
		Str("deliverer", name).
		Msg("notice")
	if err != nil {
		return fmt.Errorf("exnotify: deliver via %s: %w", name, err)
	}
	return nil
}
