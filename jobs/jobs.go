// Package jobs sequences image requests so that only the latest one may
// publish a result.
//
// Every request takes a Ticket from a Sequencer before it starts work and
// checks it between steps. Issuing a new ticket supersedes all earlier ones;
// a superseded request stops at its next check and its result is discarded.
// Nothing is interrupted mid-step and there is no queue or timeout.
//
// Example:
//
//	seq := jobs.NewSequencer()
//	t := seq.Begin()
//	var img image.Image
//	err := jobs.Run(ctx, t,
//	    func(ctx context.Context) (err error) { img, _, err = codec.Decode(data); return },
//	    func(ctx context.Context) error { return publish(img) },
//	)
//	if errors.Is(err, jobs.ErrStale) {
//	    // a newer request owns the output
//	}
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/eliasnau/imagetools/errors"
)

// ErrStale is returned when a newer ticket has been issued.
var ErrStale = errors.New(errors.CodeStale, "superseded by a newer request")

// Step is one unit of work between two staleness checks.
type Step func(ctx context.Context) error

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger used to report discarded jobs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// Sequencer hands out tickets with a monotonically increasing sequence
// number. It is safe for concurrent use.
type Sequencer struct {
	latest atomic.Uint64
	logger *slog.Logger
}

// NewSequencer creates a Sequencer.
func NewSequencer(opts ...Option) *Sequencer {
	s := &Sequencer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin issues a ticket that supersedes every earlier one.
func (s *Sequencer) Begin() *Ticket {
	return &Ticket{
		ID:  uuid.NewString(),
		Seq: s.latest.Add(1),
		s:   s,
	}
}

// Latest returns the sequence number of the newest ticket, 0 if none.
func (s *Sequencer) Latest() uint64 {
	return s.latest.Load()
}

// Ticket identifies one request.
type Ticket struct {
	// ID correlates log lines of one request.
	ID string

	// Seq is the position of the ticket in issue order, starting at 1.
	Seq uint64

	s *Sequencer
}

// Current reports whether no newer ticket has been issued.
func (t *Ticket) Current() bool {
	return t.s.latest.Load() == t.Seq
}

// Check returns the context error, ErrStale if the ticket was superseded,
// or nil.
func (t *Ticket) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.Current() {
		if t.s.logger != nil {
			t.s.logger.DebugContext(ctx, "discarding stale job",
				"job", t.ID,
				"seq", t.Seq,
				"latest", t.s.Latest())
		}
		return ErrStale
	}
	return nil
}

// Logger returns a logger annotated with the ticket's id, or nil when the
// sequencer has none.
func (t *Ticket) Logger() *slog.Logger {
	if t.s.logger == nil {
		return nil
	}
	return t.s.logger.With("job", t.ID)
}

// Run executes steps in order, checking the ticket before each step and once
// more after the last. The first step error is returned as is.
func Run(ctx context.Context, t *Ticket, steps ...Step) error {
	for i, step := range steps {
		if err := t.Check(ctx); err != nil {
			return wrapCheck(err, i)
		}
		if err := step(ctx); err != nil {
			return err
		}
	}
	if err := t.Check(ctx); err != nil {
		return wrapCheck(err, len(steps))
	}
	return nil
}

// Do runs fn and returns its result only if the ticket is still current
// afterwards.
func Do[T any](ctx context.Context, t *Ticket, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := t.Check(ctx); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	if err != nil {
		return zero, err
	}
	if err := t.Check(ctx); err != nil {
		return zero, err
	}
	return v, nil
}

type ticketKey struct{}

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t *Ticket) context.Context {
	return context.WithValue(ctx, ticketKey{}, t)
}

// FromContext returns the ticket carried by ctx.
func FromContext(ctx context.Context) (*Ticket, bool) {
	t, ok := ctx.Value(ticketKey{}).(*Ticket)
	return t, ok && t != nil
}

// RunContext is Run with the ticket carried by ctx. Without a ticket only
// the context is checked between steps.
func RunContext(ctx context.Context, steps ...Step) error {
	if t, ok := FromContext(ctx); ok {
		return Run(ctx, t, steps...)
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func wrapCheck(err error, step int) error {
	return fmt.Errorf("jobs: before step %d: %w", step, err)
}
