// Package notify delivers alert events to chat channels and remembers which
// transitions have already been delivered.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/report"
)

// ErrUndelivered is returned when a channel rejected or could not take a
// notification.
var ErrUndelivered = errors.New("notification not delivered")

// Notifier sends a batch of fresh events.
type Notifier interface {
	Notify(ctx context.Context, events []alerts.Event) error
}

// WebhookConfig configures a chat webhook (Slack/Discord style).
type WebhookConfig struct {
	URL           string
	RatePerMinute int
	Timeout       time.Duration
}

// Webhook posts the terse notification text as {"text": ...}.
type Webhook struct {
	url     string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

type webhookPayload struct {
	Text string `json:"text"`
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	client := resty.New()
	client.SetTimeout(cfg.Timeout)

	st := gobreaker.Settings{Name: "webhook"}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}

	return &Webhook{
		url:     cfg.URL,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(st),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60), cfg.RatePerMinute),
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, events []alerts.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limiter: %w", err)
	}

	_, err := w.breaker.Execute(func() (interface{}, error) {
		resp, err := w.client.R().
			SetContext(ctx).
			SetBody(webhookPayload{Text: report.Notification(events)}).
			Post(w.url)
		if err != nil {
			return nil, fmt.Errorf("failed to post webhook: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("%w: webhook returned status %d", ErrUndelivered, resp.StatusCode())
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUndelivered, err)
	}
	return err
}

// LogNotifier writes each event through the logger; used when no webhook is
// configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("notifier", "log").Logger()}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, events []alerts.Event) error {
	for _, ev := range events {
		n.logger.Info().
			Str("kind", string(ev.Kind)).
			Str("priority", string(ev.Priority)).
			Str("item_id", ev.ItemID).
			Msg(ev.Message)
	}
	return nil
}

// ChannelError ties a delivery failure to the channel that produced it.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string { return e.Channel + ": " + e.Err.Error() }

func (e *ChannelError) Unwrap() error { return e.Err }

// ChannelName is n's Name() when it has one, otherwise its type.
func ChannelName(n Notifier) string {
	if named, ok := n.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", n)
}

// FailedChannels lists the channels named by the ChannelErrors inside err.
func FailedChannels(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if ce, ok := err.(*ChannelError); ok {
			out = append(out, ce.Channel)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// Multi fans a batch out to every notifier. A failing notifier does not stop
// the others; their errors are joined as ChannelErrors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, events []alerts.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, events); err != nil {
			errs = append(errs, &ChannelError{Channel: ChannelName(n), Err: err})
		}
	}
	return errors.Join(errs...)
}
