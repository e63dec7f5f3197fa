// Package monitor runs the comparison on a schedule and delivers each new
// transition at least once.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/notify"
	"brick-tracker/internal/snapshot"
)

const (
	cycleTimeout   = 30 * time.Second
	releaseTimeout = 5 * time.Second
)

// Options wires a Monitor. Ledger and Notifier default to an in-memory
// ledger and a log notifier; Metrics may be nil.
type Options struct {
	Reader   snapshot.Reader
	Detector *alerts.Detector
	Ledger   notify.Ledger
	Notifier notify.Notifier
	Metrics  *Metrics
	Logger   zerolog.Logger
	Interval time.Duration
	Now      func() time.Time
}

// Cycle summarizes one run.
type Cycle struct {
	RunID          string        `json:"run_id"`
	Status         alerts.Status `json:"status"`
	Snapshots      int           `json:"snapshots"`
	Detected       int           `json:"detected"`
	Delivered      int           `json:"delivered"`
	FailedChannels []string      `json:"failed_channels,omitempty"`
	FinishedAt     time.Time     `json:"finished_at"`
	Error          string        `json:"error,omitempty"`
}

type Monitor struct {
	reader   snapshot.Reader
	detector *alerts.Detector
	ledger   notify.Ledger
	notifier notify.Notifier
	metrics  *Metrics
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last *Cycle
}

func New(opts Options) *Monitor {
	m := &Monitor{
		reader:   opts.Reader,
		detector: opts.Detector,
		ledger:   opts.Ledger,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With().Str("component", "monitor").Logger(),
		interval: opts.Interval,
		now:      opts.Now,
	}
	if m.detector == nil {
		m.detector = alerts.NewDetector(alerts.Config{})
	}
	if m.ledger == nil {
		m.ledger = notify.NewMemoryLedger()
	}
	if m.notifier == nil {
		m.notifier = notify.NewLogNotifier(opts.Logger)
	}
	if m.interval <= 0 {
		m.interval = 30 * time.Minute
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// RunOnce loads the two newest snapshots, compares them and delivers the
// events the ledger has not seen. Insufficient data is not an error.
func (m *Monitor) RunOnce(ctx context.Context) (Cycle, error) {
	cycle := Cycle{RunID: uuid.NewString()}
	log := m.logger.With().Str("run_id", cycle.RunID).Logger()

	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	err := m.cycle(ctx, log, &cycle)
	cycle.FinishedAt = m.now()
	if err != nil {
		cycle.Error = err.Error()
		log.Error().Err(err).Msg("Monitor cycle failed")
	}
	if m.metrics != nil {
		m.metrics.Cycles.Inc()
		if err != nil {
			m.metrics.CycleErrors.Inc()
		}
		m.metrics.LastCycle.Set(float64(cycle.FinishedAt.Unix()))
	}

	m.mu.Lock()
	c := cycle
	m.last = &c
	m.mu.Unlock()
	return cycle, err
}

func (m *Monitor) cycle(ctx context.Context, log zerolog.Logger, cycle *Cycle) error {
	snaps, err := m.reader.Load(ctx, 2)
	if err != nil {
		return fmt.Errorf("failed to load snapshots: %w", err)
	}
	cycle.Snapshots = len(snaps)

	res := m.detector.Latest(snaps)
	cycle.Status = res.Status
	if res.Status == alerts.StatusInsufficientData {
		log.Info().Int("snapshots", len(snaps)).Msg("Not enough snapshots to compare")
		return nil
	}

	events := res.Ordered()
	cycle.Detected = len(events)
	fresh := make([]alerts.Event, 0, len(events))
	for _, ev := range events {
		claimed, err := m.ledger.Claim(ctx, ev.Fingerprint(res.Current))
		if err != nil {
			// at-least-once: deliver when the ledger is unavailable
			log.Warn().Err(err).Str("item_id", ev.ItemID).Str("kind", string(ev.Kind)).Msg("Ledger claim failed")
			claimed = true
		}
		if claimed {
			fresh = append(fresh, ev)
		}
	}

	log.Info().
		Time("previous", res.Previous).
		Time("current", res.Current).
		Int("detected", len(events)).
		Int("fresh", len(fresh)).
		Msg("Comparison complete")

	if len(fresh) == 0 {
		return nil
	}
	if err := m.notifier.Notify(ctx, fresh); err != nil {
		m.undelivered(ctx, log, cycle, res, fresh, err)
		return fmt.Errorf("failed to deliver %d alert(s): %w", len(fresh), err)
	}
	cycle.Delivered = len(fresh)
	if m.metrics != nil {
		for _, ev := range fresh {
			m.metrics.Alerts.WithLabelValues(string(ev.Kind)).Inc()
		}
	}
	return nil
}

// undelivered releases the batch's fingerprints so the next cycle retries
// it. Channels that did take the batch will see it again.
func (m *Monitor) undelivered(ctx context.Context, log zerolog.Logger, cycle *Cycle, res alerts.Result, fresh []alerts.Event, err error) {
	failed := notify.FailedChannels(err)
	if len(failed) == 0 {
		failed = []string{notify.ChannelName(m.notifier)}
	}
	cycle.FailedChannels = failed
	if m.metrics != nil {
		for _, ch := range failed {
			m.metrics.DeliveryFailures.WithLabelValues(ch).Inc()
		}
	}
	log.Warn().Err(err).Strs("channels", failed).Int("alerts", len(fresh)).Msg("Delivery failed, releasing alerts for retry")

	// the cycle context may already be expired when delivery timed out
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	for _, ev := range fresh {
		fp := ev.Fingerprint(res.Current)
		if err := m.ledger.Release(rctx, fp); err != nil {
			log.Error().Err(err).Str("fingerprint", fp).Msg("Ledger release failed")
		}
	}
}

// Run runs a cycle immediately and then on every tick until ctx is done.
// Cycle failures are logged and do not stop the loop.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", m.interval).Msg("Monitor started")
	_, _ = m.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			_, _ = m.RunOnce(ctx)
		case <-ctx.Done():
			m.logger.Info().Msg("Monitor stopped")
			return
		}
	}
}

// LastCycle returns the most recent cycle, if any has run.
func (m *Monitor) LastCycle() (Cycle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Cycle{}, false
	}
	return *m.last, true
}
