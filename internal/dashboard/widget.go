// Package dashboard implements the role-gated composition and
// aggregation engine behind the operational dashboard: which widgets a
// viewer gets, the per-widget card state machine, and the fan-in joins
// that drive the alert banner and the to-do list.
package dashboard

import (
	"encoding/json"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/probe"
	"github.com/nexport/opsdash/internal/severity"
)

// Section identifies one of the four fixed dashboard sections.
// Layout is fixed at design time; a viewer sees a subset of each
// section's widgets, possibly none.
type Section int

const (
	SectionCritical Section = iota
	SectionKPI
	SectionTodo
	SectionAnalytics
)

// String returns the section's display title.
func (s Section) String() string {
	switch s {
	case SectionCritical:
		return "Critical"
	case SectionKPI:
		return "KPI"
	case SectionTodo:
		return "To-Do"
	case SectionAnalytics:
		return "Analytics"
	default:
		return "Unknown"
	}
}

// Sections lists all sections in layout order.
var Sections = []Section{SectionCritical, SectionKPI, SectionTodo, SectionAnalytics}

// Evaluation is what a widget's Interpret produces from a settled payload.
type Evaluation struct {
	Severity severity.Tier
	Count    int      // items contributing to downstream aggregates
	Lines    []string // rendered card body, one line per row
	OKText   string   // message shown when Count is zero
	Todo     *TodoEntry
}

// InterpretFunc turns a raw probe payload into an Evaluation.
// Must be pure: same payload, same result.
type InterpretFunc func(payload json.RawMessage) (Evaluation, error)

// Descriptor statically defines one widget. Descriptors are design-time
// data and are never mutated; a viewer-specific board holds only the
// descriptors whose Visible predicate passed.
type Descriptor struct {
	ID        string
	Section   Section
	Title     string
	Visible   access.Predicate
	Request   probe.Request
	ListPath  string // detail-view list, filtered the same way as Request
	Interpret InterpretFunc
}

// TodoEntry is one pending-work item. The to-do list's order is probe
// completion order, not a business ordering.
type TodoEntry struct {
	Severity severity.Tier // TierHigh or TierMedium
	Text     string
	Link     string
	Label    string // action label, e.g. "Review"
}

// WithDetailLinks rewrites each descriptor's ListPath into a full
// detail-view URL carrying the same filters and ordering as its probe
// request, so a card's link opens the exact rows the card counted.
func WithDetailLinks(registry []Descriptor, baseURL string) []Descriptor {
	out := make([]Descriptor, len(registry))
	for i, d := range registry {
		d.ListPath = probe.DetailLink(baseURL, d.ListPath, d.Request)
		out[i] = d
	}
	return out
}
