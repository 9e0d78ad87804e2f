package dashboard

import "github.com/nexport/opsdash/internal/severity"

// CardPhase is the lifecycle state of one widget's card. Transitions go
// from CardLoading to exactly one terminal phase and never back: a
// widget does not re-fetch within a session.
type CardPhase int

const (
	// CardLoading: probe issued, no terminal outcome yet.
	CardLoading CardPhase = iota

	// CardRendered: payload arrived with at least one item of interest.
	CardRendered

	// CardOK: payload arrived and reported nothing pending.
	CardOK

	// CardError: the probe failed with a genuine transport/remote error.
	// The card offers a manual refresh; nothing is retried automatically.
	CardError

	// CardSkipped: the probe failed with a tolerated schema-absence
	// condition. The card renders nothing at all; absence of data is not
	// the same as zero pending work.
	CardSkipped
)

// String returns the phase name, mainly for test failure messages.
func (p CardPhase) String() string {
	switch p {
	case CardLoading:
		return "Loading"
	case CardRendered:
		return "Rendered"
	case CardOK:
		return "OK"
	case CardError:
		return "Error"
	case CardSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition can occur.
func (p CardPhase) Terminal() bool { return p != CardLoading }

// Card is the render state of one enabled widget. Exactly one phase
// holds at any time; Severity, Lines and Count are meaningful only in
// CardRendered, Message only in CardOK and CardError.
type Card struct {
	Phase    CardPhase
	Severity severity.Tier
	Lines    []string
	Message  string
	Count    int
	Link     string
}

// BannerState is the top-level alert banner's state.
type BannerState int

const (
	// BannerPending: at least one Critical-section probe has not settled;
	// the banner must not render yet.
	BannerPending BannerState = iota
	BannerAllClear
	BannerCritical
)

// Banner is the aggregate over the viewer's Critical-section widgets.
type Banner struct {
	State BannerState
	Count int
}
