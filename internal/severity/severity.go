// Package severity classifies raw probe metrics into ordered risk tiers.
package severity

// Tier is an ordered severity level. Higher values are more severe, so
// tiers compare directly with < and >.
type Tier int

const (
	TierOK Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

// String returns the display name for the tier.
func (t Tier) String() string {
	switch t {
	case TierOK:
		return "OK"
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	case TierCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Thresholds configures a widget's classification boundaries.
// Thresholds are configuration, not code: the numeric values come from
// the dashboard config and can differ per widget.
type Thresholds struct {
	CriticalAbove float64 `json:"critical_above"`
	HighAbove     float64 `json:"high_above"`
}

// ClassifyPercent maps a percentage metric (e.g. a cost deviation or an
// overdue ratio) to a tier. The floor tier is returned when neither
// threshold is exceeded; widgets pass TierOK or TierMedium depending on
// whether a quiet metric is "fine" or merely "unremarkable".
func ClassifyPercent(pct float64, th Thresholds, floor Tier) Tier {
	switch {
	case pct > th.CriticalAbove:
		return TierCritical
	case pct > th.HighAbove:
		return TierHigh
	default:
		return floor
	}
}

// ClassifyPresence classifies a presence-based metric. Any positive count
// of the worst sub-condition (e.g. gaps already inside the deadline
// window) escalates to CRITICAL regardless of magnitude; otherwise the
// total volume is measured against HighAbove, falling back to the floor.
func ClassifyPresence(worstCount int, total float64, th Thresholds, floor Tier) Tier {
	if worstCount > 0 {
		return TierCritical
	}
	if total > th.HighAbove {
		return TierHigh
	}
	return floor
}

// Worst returns the more severe of two tiers. Used wherever multiple
// conditions could qualify: the tie always breaks toward the more
// severe tier, never toward evaluation order.
func Worst(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}
