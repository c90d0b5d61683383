package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// DefaultDebounceWindow is how long a filter change waits for a newer
// one before it is computed.
const DefaultDebounceWindow = 175 * time.Millisecond

// DeliverFunc receives the result of the latest issued computation. It is
// called with the debouncer's lock held: it must not block and must not
// call back into the debouncer.
type DeliverFunc func(seq uint64, result *domain.MetricsResult, err error)

// Debouncer coalesces rapid filter changes and presents only the result
// of the most recently issued one. Each Submit takes a new sequence
// number; a computation that completes after a newer Submit is
// discarded, not cancelled. The debouncer also remembers the last
// accepted filter so Resubmit can recompute it without racing Submit.
type Debouncer struct {
	arbitrator ports.MetricsArbitrator
	clock      clock.Clock
	window     time.Duration
	deliver    DeliverFunc
	recorder   ports.MetricsRecorder
	logger     *slog.Logger
	ctx        context.Context

	mu      sync.Mutex
	seq     uint64
	pending *clock.Timer
	last    *domain.MetricsFilter
	closed  bool
}

// NewDebouncer creates a debouncer whose computations run under ctx. A
// window <= 0 uses DefaultDebounceWindow.
func NewDebouncer(
	ctx context.Context,
	arbitrator ports.MetricsArbitrator,
	clk clock.Clock,
	window time.Duration,
	deliver DeliverFunc,
	recorder ports.MetricsRecorder,
	logger *slog.Logger,
) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &Debouncer{
		arbitrator: arbitrator,
		clock:      clk,
		window:     window,
		deliver:    deliver,
		recorder:   recorder,
		logger:     logger.With("component", "debouncer"),
		ctx:        ctx,
	}
}

// Submit schedules a computation for filter after the debounce window
// and returns its sequence number. An invalid filter is rejected at once
// with no computation; it still supersedes every earlier call so that
// their results are no longer shown.
func (d *Debouncer) Submit(filter domain.MetricsFilter) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return d.seq, context.Canceled
	}

	seq := d.supersedeLocked()
	if err := filter.Validate(); err != nil {
		return seq, err
	}

	d.last = &filter
	d.scheduleLocked(seq, filter)
	return seq, nil
}

// Resubmit schedules the last accepted filter again under a new sequence
// number, e.g. after the ticket data changed. It reports false when there
// is nothing to recompute: no filter was accepted yet, the latest change
// was rejected, or the debouncer is closed.
func (d *Debouncer) Resubmit() (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.last == nil {
		return d.seq, false
	}
	filter := *d.last
	seq := d.supersedeLocked()
	d.last = &filter
	d.scheduleLocked(seq, filter)
	return seq, true
}

// Last returns the last accepted filter, if it is still the current one.
func (d *Debouncer) Last() (domain.MetricsFilter, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return domain.MetricsFilter{}, false
	}
	return *d.last, true
}

// Supersede discards the pending and in-flight computations without
// scheduling a new one, as for a filter change rejected before Submit.
func (d *Debouncer) Supersede() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.supersedeLocked()
}

// supersedeLocked also forgets the accepted filter; callers that accept
// a new one set it again.
func (d *Debouncer) supersedeLocked() uint64 {
	d.seq++
	d.last = nil
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	return d.seq
}

func (d *Debouncer) scheduleLocked(seq uint64, filter domain.MetricsFilter) {
	d.pending = d.clock.AfterFunc(d.window, func() { d.run(seq, filter) })
}

// Latest returns the most recently issued sequence number.
func (d *Debouncer) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// Close stops any pending computation and discards in-flight results.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.supersedeLocked()
}

func (d *Debouncer) run(seq uint64, filter domain.MetricsFilter) {
	d.mu.Lock()
	if seq != d.seq || d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	result, err := d.arbitrator.Resolve(d.ctx, filter)

	d.mu.Lock()
	defer d.mu.Unlock()

	if seq != d.seq || d.closed {
		d.recorder.StaleResultDropped()
		d.logger.Debug("dropping stale metrics result", "seq", seq, "latest", d.seq)
		return
	}
	d.deliver(seq, result, err)
}
