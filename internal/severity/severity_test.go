package severity

import "testing"

func TestClassifyPercent(t *testing.T) {
	th := Thresholds{CriticalAbove: 20, HighAbove: 5}

	tests := []struct {
		name  string
		pct   float64
		floor Tier
		want  Tier
	}{
		{"above critical", 25, TierOK, TierCritical},
		{"exactly critical boundary stays high", 20, TierOK, TierHigh},
		{"between high and critical", 12, TierOK, TierHigh},
		{"exactly high boundary stays floor", 5, TierOK, TierOK},
		{"below high with ok floor", 3, TierOK, TierOK},
		{"below high with medium floor", 3, TierMedium, TierMedium},
		{"zero", 0, TierOK, TierOK},
		{"negative deviation treated as quiet", -8, TierOK, TierOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPercent(tt.pct, th, tt.floor); got != tt.want {
				t.Errorf("ClassifyPercent(%v) = %v, want %v", tt.pct, got, tt.want)
			}
		})
	}
}

func TestClassifyPresence(t *testing.T) {
	th := Thresholds{HighAbove: 10}

	tests := []struct {
		name       string
		worstCount int
		total      float64
		want       Tier
	}{
		{"any worst-condition hit wins", 1, 0, TierCritical},
		{"worst-condition beats large volume", 2, 500, TierCritical},
		{"volume above high threshold", 0, 11, TierHigh},
		{"volume at threshold stays floor", 0, 10, TierMedium},
		{"quiet", 0, 0, TierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPresence(tt.worstCount, tt.total, th, TierMedium); got != tt.want {
				t.Errorf("ClassifyPresence(%d, %v) = %v, want %v", tt.worstCount, tt.total, got, tt.want)
			}
		})
	}
}

// TestClassifyIdempotent verifies the classifier is a pure function:
// the same payload with the same thresholds always yields the same tier.
func TestClassifyIdempotent(t *testing.T) {
	th := Thresholds{CriticalAbove: 20, HighAbove: 5}

	for i := 0; i < 3; i++ {
		if got := ClassifyPercent(12, th, TierOK); got != TierHigh {
			t.Fatalf("run %d: ClassifyPercent(12) = %v, want %v", i, got, TierHigh)
		}
		if got := ClassifyPresence(1, 3, th, TierMedium); got != TierCritical {
			t.Fatalf("run %d: ClassifyPresence(1, 3) = %v, want %v", i, got, TierCritical)
		}
	}
}

func TestWorst(t *testing.T) {
	tests := []struct {
		a, b, want Tier
	}{
		{TierOK, TierCritical, TierCritical},
		{TierCritical, TierOK, TierCritical},
		{TierMedium, TierHigh, TierHigh},
		{TierHigh, TierHigh, TierHigh},
		{TierOK, TierOK, TierOK},
	}

	for _, tt := range tests {
		if got := Worst(tt.a, tt.b); got != tt.want {
			t.Errorf("Worst(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTierOrdering(t *testing.T) {
	if !(TierOK < TierMedium && TierMedium < TierHigh && TierHigh < TierCritical) {
		t.Error("tiers must form a total order OK < MEDIUM < HIGH < CRITICAL")
	}
}

func TestTierString(t *testing.T) {
	tests := []struct {
		tier Tier
		want string
	}{
		{TierOK, "OK"},
		{TierMedium, "MEDIUM"},
		{TierHigh, "HIGH"},
		{TierCritical, "CRITICAL"},
		{Tier(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.tier.String(); got != tt.want {
			t.Errorf("Tier(%d).String() = %q, want %q", int(tt.tier), got, tt.want)
		}
	}
}
