package semantic_test

import (
	"math"
	"testing"

	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		deltaS float64
		want   semantic.Zone
	}{
		{0, semantic.ZoneSafe},
		{0.39, semantic.ZoneSafe},
		{0.4, semantic.ZoneTransitional},
		{0.59, semantic.ZoneTransitional},
		{0.6, semantic.ZoneRisk},
		{0.79, semantic.ZoneRisk},
		{0.8, semantic.ZoneDanger},
		{1.0, semantic.ZoneDanger},
		{2.0, semantic.ZoneDanger},
		{-0.1, semantic.ZoneSafe},
		{math.NaN(), semantic.ZoneDanger},
		{math.Inf(1), semantic.ZoneDanger},
	}
	for _, tt := range tests {
		if got := semantic.Classify(tt.deltaS); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.deltaS, got, tt.want)
		}
	}
}

func TestClassifyWith_Custom(t *testing.T) {
	th := semantic.Thresholds{Safe: 0.2, Transitional: 0.5, Risk: 0.85}
	if got := semantic.ClassifyWith(0.8, th); got != semantic.ZoneRisk {
		t.Errorf("ClassifyWith(0.8) = %q, want risk", got)
	}
	if got := semantic.ClassifyWith(0.85, th); got != semantic.ZoneDanger {
		t.Errorf("ClassifyWith(0.85) = %q, want danger", got)
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := semantic.DefaultThresholds.Validate(); err != nil {
		t.Errorf("DefaultThresholds.Validate() = %v", err)
	}
	bad := []semantic.Thresholds{
		{Safe: 0, Transitional: 0.5, Risk: 0.8},
		{Safe: 0.6, Transitional: 0.5, Risk: 0.8},
		{Safe: 0.4, Transitional: 0.8, Risk: 0.8},
		{Safe: 0.4, Transitional: 0.6, Risk: 2.5},
	}
	for _, th := range bad {
		if err := th.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", th)
		}
	}
}

func TestZone_RangeContainsItsValues(t *testing.T) {
	th := semantic.DefaultThresholds
	for _, z := range semantic.Zones {
		lo, hi := z.Range(th)
		if got := semantic.ClassifyWith(lo, th); got != z {
			t.Errorf("%s: ClassifyWith(min=%v) = %q", z, lo, got)
		}
		if z != semantic.ZoneDanger {
			if got := semantic.ClassifyWith(hi, th); got == z {
				t.Errorf("%s: max %v should be exclusive", z, hi)
			}
		}
	}
	_, hi := semantic.ZoneDanger.Range(th)
	if !(semantic.MaxTension < hi) {
		t.Errorf("danger max = %v, must include %v", hi, semantic.MaxTension)
	}
}

func TestParseZone(t *testing.T) {
	for _, z := range semantic.Zones {
		got, err := semantic.ParseZone(string(z))
		if err != nil || got != z {
			t.Errorf("ParseZone(%q) = %q, %v", z, got, err)
		}
	}
	if _, err := semantic.ParseZone("purple"); err == nil {
		t.Error("ParseZone(purple) = nil error")
	}
}

func TestZone_Marker(t *testing.T) {
	seen := map[string]bool{}
	for _, z := range semantic.Zones {
		m := z.Marker()
		if m == "" || seen[m] {
			t.Errorf("%s marker %q empty or duplicated", z, m)
		}
		seen[m] = true
	}
}
