package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/events"
	"github.com/nexport/opsdash/internal/probe"
)

// fakeProber serves canned responses keyed by probe method and records
// which methods were called.
type fakeProber struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]json.RawMessage
	errors    map[string]error
}

func (f *fakeProber) Call(_ context.Context, req probe.Request) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Method)
	f.mu.Unlock()

	if err, ok := f.errors[req.Method]; ok {
		return nil, err
	}
	if payload, ok := f.responses[req.Method]; ok {
		return payload, nil
	}
	return json.RawMessage(`{"count": 0}`), nil
}

func (f *fakeProber) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

// runnerRegistry mirrors testRegistry but with probe methods attached,
// so the fake prober can be keyed by method.
func runnerRegistry() []Descriptor {
	return []Descriptor{
		{ID: "crit-a", Section: SectionCritical, Visible: access.Finance,
			Request: probe.Request{Method: "test.crit_a"}, Interpret: countInterpreter},
		{ID: "crit-b", Section: SectionCritical, Visible: access.Procurement,
			Request: probe.Request{Method: "test.crit_b"}, Interpret: countInterpreter},
		{ID: "todo-a", Section: SectionTodo, Visible: access.Warehouse,
			Request: probe.Request{Method: "test.todo_a"}, Interpret: todoInterpreter},
	}
}

// TestFetchOnlyProbesEnabledWidgets verifies the capability gate sits
// before the fetch: a widget the viewer cannot see is never probed.
func TestFetchOnlyProbesEnabledWidgets(t *testing.T) {
	prober := &fakeProber{}
	bus := events.NewBus()
	defer bus.Close()

	board := NewBoard(runnerRegistry(), access.Resolve([]string{access.RoleWarehouse}))
	runner := NewRunner(prober, bus)

	if err := runner.Fetch(context.Background(), board.Enabled()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got := prober.called()
	if len(got) != 1 || got[0] != "test.todo_a" {
		t.Errorf("probed methods = %v, want only test.todo_a", got)
	}
}

// TestFetchPublishesSettleEvents verifies every widget yields a started
// and a settled event, failures included.
func TestFetchPublishesSettleEvents(t *testing.T) {
	prober := &fakeProber{
		responses: map[string]json.RawMessage{"test.crit_a": count(2)},
		errors:    map[string]error{"test.crit_b": probe.Genuine(fmt.Errorf("refused"))},
	}
	bus := events.NewBus()
	defer bus.Close()

	sub := bus.Subscribe(events.TopicProbe, 32)
	runner := NewRunner(prober, bus)

	board := NewBoard(runnerRegistry(), access.Resolve([]string{access.RoleAdmin}))
	if err := runner.Fetch(context.Background(), board.Enabled()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	started := make(map[string]bool)
	settled := make(map[string]events.ProbeSettledEvent)
	timeout := time.After(2 * time.Second)
	for len(settled) < 3 {
		select {
		case ev := <-sub:
			switch e := ev.(type) {
			case events.ProbeStartedEvent:
				started[e.ID] = true
			case events.ProbeSettledEvent:
				settled[e.ID] = e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for settles, have %d", len(settled))
		}
	}

	for _, id := range []string{"crit-a", "crit-b", "todo-a"} {
		if !started[id] {
			t.Errorf("widget %q: no started event", id)
		}
		if _, ok := settled[id]; !ok {
			t.Errorf("widget %q: no settled event", id)
		}
	}

	if settled["crit-b"].Failure == nil {
		t.Error("failed probe settled without a failure")
	}
	if settled["crit-a"].Failure != nil {
		t.Errorf("successful probe settled with failure %v", settled["crit-a"].Failure)
	}
}

// TestRunSnapshotCompletesBoard drives a full headless run: every widget
// settles, the banner join completes, and a genuine failure contributes
// zero instead of blocking.
func TestRunSnapshotCompletesBoard(t *testing.T) {
	prober := &fakeProber{
		responses: map[string]json.RawMessage{
			"test.crit_a": count(3),
			"test.todo_a": count(1),
		},
		errors: map[string]error{"test.crit_b": probe.Genuine(fmt.Errorf("gateway timeout"))},
	}

	board := NewBoard(runnerRegistry(), access.Resolve([]string{access.RoleAdmin}))
	if err := RunSnapshot(context.Background(), prober, board); err != nil {
		t.Fatalf("RunSnapshot() error = %v", err)
	}

	if !board.Done() {
		t.Fatal("board not done after snapshot run")
	}

	banner := board.Banner()
	if banner.State != BannerCritical {
		t.Errorf("banner state = %v, want BannerCritical", banner.State)
	}
	if banner.Count != 3 {
		t.Errorf("banner count = %d, want 3 (errored widget contributes 0)", banner.Count)
	}

	card, _ := board.Card("crit-b")
	if card.Phase != CardError {
		t.Errorf("errored widget phase = %v, want CardError", card.Phase)
	}
	if len(board.Todo()) != 1 {
		t.Errorf("todo entries = %d, want 1", len(board.Todo()))
	}
}

// TestRunSnapshotToleratedFailure: a schema-absence failure leaves a
// skipped card, not an error surface.
func TestRunSnapshotToleratedFailure(t *testing.T) {
	prober := &fakeProber{
		errors: map[string]error{"test.crit_a": probe.Tolerated(fmt.Errorf("field missing"))},
	}

	board := NewBoard(runnerRegistry(), access.Resolve([]string{access.RoleFinance}))
	if err := RunSnapshot(context.Background(), prober, board); err != nil {
		t.Fatalf("RunSnapshot() error = %v", err)
	}

	card, _ := board.Card("crit-a")
	if card.Phase != CardSkipped {
		t.Errorf("phase = %v, want CardSkipped", card.Phase)
	}
	if board.Errored() != 0 {
		t.Errorf("Errored() = %d, tolerated failures must not count", board.Errored())
	}
}

// TestFetchUntypedError: a prober returning a plain error still settles
// the widget, normalized to a genuine failure.
func TestFetchUntypedError(t *testing.T) {
	prober := &fakeProber{
		errors: map[string]error{"test.crit_a": fmt.Errorf("bare transport error")},
	}

	board := NewBoard(runnerRegistry(), access.Resolve([]string{access.RoleFinance}))
	if err := RunSnapshot(context.Background(), prober, board); err != nil {
		t.Fatalf("RunSnapshot() error = %v", err)
	}

	card, _ := board.Card("crit-a")
	if card.Phase != CardError {
		t.Errorf("phase = %v, want CardError for an untyped error", card.Phase)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bus := events.NewBus()
	defer bus.Close()
	runner := NewRunner(&fakeProber{}, bus)

	board := NewBoard(runnerRegistry(), access.Resolve([]string{access.RoleAdmin}))
	if err := runner.Fetch(ctx, board.Enabled()); err == nil {
		t.Error("Fetch() with canceled context returned nil error")
	}
}
