package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexport/opsdash/internal/events"
	"github.com/nexport/opsdash/internal/probe"
)

// Prober issues one probe call. *probe.Client is the production
// implementation; tests substitute a fake.
type Prober interface {
	Call(ctx context.Context, req probe.Request) (json.RawMessage, error)
}

// Runner fans probe calls out, one goroutine per enabled widget, and
// publishes a settle event for each. It never touches board state: the
// bus subscriber owning the board applies outcomes on its own loop.
type Runner struct {
	prober Prober
	bus    *events.Bus
}

// NewRunner creates a runner publishing to the given bus.
func NewRunner(prober Prober, bus *events.Bus) *Runner {
	return &Runner{prober: prober, bus: bus}
}

// Fetch launches every widget's probe concurrently and returns once all
// of them have settled. There is no concurrency cap and no retry: each
// call is independent, and one slow or failing probe neither delays nor
// fails its siblings. The per-widget outcome travels in the settle
// event, so Fetch only errors on context cancellation.
func (r *Runner) Fetch(ctx context.Context, widgets []Descriptor) error {
	g, gctx := errgroup.WithContext(ctx)

	var errored atomic.Int32
	for _, d := range widgets {
		d := d
		g.Go(func() error {
			r.bus.Publish(events.TopicProbe, events.ProbeStartedEvent{
				ID:        d.ID,
				Method:    d.Request.Method,
				Timestamp: time.Now(),
			})

			start := time.Now()
			payload, err := r.prober.Call(gctx, d.Request)

			failure := asFailure(err)
			if failure != nil && failure.Kind == probe.FailureGenuine {
				errored.Add(1)
			}
			r.bus.Publish(events.TopicProbe, events.ProbeSettledEvent{
				ID:        d.ID,
				Payload:   payload,
				Failure:   failure,
				Duration:  time.Since(start),
				Timestamp: time.Now(),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.bus.Publish(events.TopicBoard, events.BoardDoneEvent{
		Settled:   len(widgets),
		Errored:   int(errored.Load()),
		Timestamp: time.Now(),
	})
	return ctx.Err()
}

// RunSnapshot fans out all enabled probes and applies their outcomes to
// the board in completion order, for headless one-shot rendering. The
// board is only written from this goroutine; probe goroutines hand
// outcomes over a channel. Returns once every widget has settled.
func RunSnapshot(ctx context.Context, prober Prober, board *Board) error {
	type settle struct {
		id      string
		payload json.RawMessage
		failure *probe.Failure
	}

	enabled := board.Enabled()
	settles := make(chan settle, len(enabled))

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range enabled {
		d := d
		g.Go(func() error {
			payload, err := prober.Call(gctx, d.Request)
			settles <- settle{id: d.ID, payload: payload, failure: asFailure(err)}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(settles)
	}()

	for s := range settles {
		board.Apply(s.id, s.payload, s.failure)
	}

	if err := <-done; err != nil {
		return err
	}
	return ctx.Err()
}

// asFailure normalizes a probe error to the typed failure. A nil error
// stays nil; anything untyped counts as genuine.
func asFailure(err error) *probe.Failure {
	if err == nil {
		return nil
	}
	var f *probe.Failure
	if errors.As(err, &f) {
		return f
	}
	return probe.Genuine(err)
}
