package dashboard

import (
	"encoding/json"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/probe"
)

// Board is the per-viewer dashboard state machine.
//
// It is composed once from the static registry and the viewer's resolved
// capabilities: widgets whose predicate fails are absent entirely, with
// no card, no probe, and no contribution to any aggregate. Enabled
// widgets start in CardLoading and settle exactly once via Apply.
//
// Board is not safe for concurrent use. Exactly one goroutine owns it
// (the TUI update loop, or the snapshot runner); probe goroutines hand
// their outcomes to that owner instead of writing state themselves.
type Board struct {
	caps    access.Capabilities
	widgets map[string]Descriptor
	order   map[Section][]string // enabled widget IDs in layout order

	cards map[string]*Card

	// Banner fan-in: the statically-scoped join set. Completion is
	// tracked per widget, not with a running counter, so a duplicate
	// settle cannot double-count.
	criticalPending map[string]bool
	criticalCount   int

	// To-do fan-in.
	todoPending map[string]bool
	todo        []TodoEntry

	settled int
	errored int
}

// NewBoard composes a board for one viewer. The capability check happens
// here, before any fetch: disabled widgets never make it into the board.
func NewBoard(registry []Descriptor, caps access.Capabilities) *Board {
	b := &Board{
		caps:            caps,
		widgets:         make(map[string]Descriptor),
		order:           make(map[Section][]string),
		cards:           make(map[string]*Card),
		criticalPending: make(map[string]bool),
		todoPending:     make(map[string]bool),
	}

	for _, d := range registry {
		if !d.Visible(caps) {
			continue
		}
		b.widgets[d.ID] = d
		b.order[d.Section] = append(b.order[d.Section], d.ID)
		b.cards[d.ID] = &Card{Phase: CardLoading}

		switch d.Section {
		case SectionCritical:
			b.criticalPending[d.ID] = true
		case SectionTodo:
			b.todoPending[d.ID] = true
		}
	}

	return b
}

// Capabilities returns the viewer's capability set.
func (b *Board) Capabilities() access.Capabilities { return b.caps }

// Enabled returns the enabled widgets in layout order across sections.
// These are exactly the probes the orchestrator may issue.
func (b *Board) Enabled() []Descriptor {
	var out []Descriptor
	for _, section := range Sections {
		for _, id := range b.order[section] {
			out = append(out, b.widgets[id])
		}
	}
	return out
}

// SectionWidgets returns the enabled widget IDs of a section in layout order.
func (b *Board) SectionWidgets(s Section) []string {
	return append([]string(nil), b.order[s]...)
}

// Descriptor returns the enabled widget with the given ID.
func (b *Board) Descriptor(id string) (Descriptor, bool) {
	d, ok := b.widgets[id]
	return d, ok
}

// Card returns a copy of the widget's current card state.
func (b *Board) Card(id string) (Card, bool) {
	c, ok := b.cards[id]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

// Apply settles one widget with either a payload or a failure. Settles
// for unknown (disabled) widgets and repeated settles for an already
// terminal card are ignored: transitions out of CardLoading happen once.
func (b *Board) Apply(id string, payload json.RawMessage, failure *probe.Failure) {
	d, ok := b.widgets[id]
	if !ok {
		return
	}
	card := b.cards[id]
	if card.Phase.Terminal() {
		return
	}

	if d.Section == SectionTodo {
		b.applyTodo(d, card, payload, failure)
	} else {
		b.applyCard(d, card, payload, failure)
	}

	b.settled++
	if card.Phase == CardError {
		b.errored++
	}

	if d.Section == SectionCritical {
		delete(b.criticalPending, id)
		// An errored or skipped widget is settled with count 0, never
		// left pending: one bad widget must not hang the banner.
		b.criticalCount += card.Count
	}
	if d.Section == SectionTodo {
		delete(b.todoPending, id)
	}
}

// applyCard handles widgets that render into a card slot.
func (b *Board) applyCard(d Descriptor, card *Card, payload json.RawMessage, failure *probe.Failure) {
	if failure != nil {
		if failure.Kind == probe.FailureTolerated {
			card.Phase = CardSkipped
		} else {
			card.Phase = CardError
			card.Message = failure.Error()
		}
		return
	}

	eval, err := d.Interpret(payload)
	if err != nil {
		card.Phase = CardError
		card.Message = err.Error()
		return
	}

	if eval.Count == 0 {
		card.Phase = CardOK
		card.Message = eval.OKText
		return
	}

	card.Phase = CardRendered
	card.Severity = eval.Severity
	card.Lines = eval.Lines
	card.Count = eval.Count
	card.Link = d.ListPath
}

// applyTodo handles to-do probes: a positive count appends one entry,
// anything else (zero, schema absence, even a genuine failure) appends
// nothing. To-do probes never surface error cards; a failure here must
// not block the remaining probes.
func (b *Board) applyTodo(d Descriptor, card *Card, payload json.RawMessage, failure *probe.Failure) {
	if failure != nil {
		card.Phase = CardSkipped
		return
	}

	eval, err := d.Interpret(payload)
	if err != nil {
		card.Phase = CardSkipped
		return
	}

	if eval.Todo == nil {
		card.Phase = CardOK
		return
	}

	card.Phase = CardRendered
	card.Count = eval.Count

	entry := *eval.Todo
	if entry.Link == "" {
		entry.Link = d.ListPath
	}
	b.todo = append(b.todo, entry)
}

// Banner returns the aggregate banner state. It stays BannerPending
// until every enabled Critical-section widget has reached a terminal
// state; with no enabled Critical widgets it is all-clear immediately.
func (b *Board) Banner() Banner {
	if len(b.criticalPending) > 0 {
		return Banner{State: BannerPending}
	}
	if b.criticalCount == 0 {
		return Banner{State: BannerAllClear}
	}
	return Banner{State: BannerCritical, Count: b.criticalCount}
}

// Todo returns the to-do entries appended so far, in completion order.
func (b *Board) Todo() []TodoEntry {
	return append([]TodoEntry(nil), b.todo...)
}

// TodoSettled reports whether every enabled to-do probe has settled.
func (b *Board) TodoSettled() bool { return len(b.todoPending) == 0 }

// TodoEmpty reports whether the "nothing pending" success state should
// render: every to-do probe settled and none produced an entry.
func (b *Board) TodoEmpty() bool {
	return b.TodoSettled() && len(b.todo) == 0
}

// Done reports whether every enabled widget has settled.
func (b *Board) Done() bool { return b.settled == len(b.widgets) }

// Progress returns settled and total widget counts.
func (b *Board) Progress() (settled, total int) {
	return b.settled, len(b.widgets)
}

// Errored returns how many widgets settled in CardError.
func (b *Board) Errored() int { return b.errored }
