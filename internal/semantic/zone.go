// Package semantic holds the data model and numeric core of the
// semantic tension tracker: nodes, reasoning directions, zones, and the
// vector math that turns embeddings into a tension value (ΔS).
//
// Everything here is pure. Persistence lives in internal/memory and
// embedding providers live in internal/embedding.
package semantic

import (
	"fmt"
	"math"
)

// Zone is a discrete risk bucket derived from ΔS.
type Zone string

const (
	ZoneSafe         Zone = "safe"
	ZoneTransitional Zone = "transitional"
	ZoneRisk         Zone = "risk"
	ZoneDanger       Zone = "danger"
)

// Zones lists every zone in ascending order of tension.
var Zones = []Zone{ZoneSafe, ZoneTransitional, ZoneRisk, ZoneDanger}

// MaxTension is the upper bound of ΔS (opposite vectors).
const MaxTension = 2.0

// Thresholds are the lower bounds of the TRANSITIONAL, RISK, and DANGER
// zones. Intervals are half-open: ΔS < Safe is SAFE, ΔS < Transitional is
// TRANSITIONAL, ΔS < Risk is RISK, everything else is DANGER.
type Thresholds struct {
	Safe         float64 `json:"safe" yaml:"safe" mapstructure:"safe"`
	Transitional float64 `json:"transitional" yaml:"transitional" mapstructure:"transitional"`
	Risk         float64 `json:"risk" yaml:"risk" mapstructure:"risk"`
}

// DefaultThresholds are the zone cut points used when no configuration
// overrides them.
var DefaultThresholds = Thresholds{
	Safe:         0.4,
	Transitional: 0.6,
	Risk:         0.8,
}

// Validate reports whether the thresholds are strictly increasing and
// inside [0, MaxTension].
func (t Thresholds) Validate() error {
	if t.Safe <= 0 || t.Safe >= t.Transitional || t.Transitional >= t.Risk || t.Risk > MaxTension {
		return fmt.Errorf("thresholds must satisfy 0 < safe < transitional < risk <= %.1f (got %.2f, %.2f, %.2f)",
			MaxTension, t.Safe, t.Transitional, t.Risk)
	}
	return nil
}

// Classify maps ΔS to a zone using DefaultThresholds.
func Classify(deltaS float64) Zone {
	return ClassifyWith(deltaS, DefaultThresholds)
}

// ClassifyWith maps ΔS to a zone. It is total: NaN lands in DANGER and
// negative values land in SAFE.
func ClassifyWith(deltaS float64, t Thresholds) Zone {
	switch {
	case math.IsNaN(deltaS):
		return ZoneDanger
	case deltaS < t.Safe:
		return ZoneSafe
	case deltaS < t.Transitional:
		return ZoneTransitional
	case deltaS < t.Risk:
		return ZoneRisk
	default:
		return ZoneDanger
	}
}

// Range returns the half-open [min, max) ΔS interval covered by the zone.
// DANGER is closed at MaxTension, so its max is nudged past it.
func (z Zone) Range(t Thresholds) (min, max float64) {
	switch z {
	case ZoneSafe:
		return 0, t.Safe
	case ZoneTransitional:
		return t.Safe, t.Transitional
	case ZoneRisk:
		return t.Transitional, t.Risk
	default:
		return t.Risk, math.Nextafter(MaxTension, math.Inf(1))
	}
}

// Marker returns the glyph used for the zone in digests and tree output.
func (z Zone) Marker() string {
	switch z {
	case ZoneSafe:
		return "🟢"
	case ZoneTransitional:
		return "🟡"
	case ZoneRisk:
		return "🟠"
	case ZoneDanger:
		return "🔴"
	}
	return "⚪"
}

// ParseZone resolves a zone name.
func ParseZone(s string) (Zone, error) {
	for _, z := range Zones {
		if string(z) == s {
			return z, nil
		}
	}
	return "", fmt.Errorf("unknown zone %q (want safe, transitional, risk or danger)", s)
}
