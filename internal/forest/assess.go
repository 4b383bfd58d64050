package forest

import "math"

// Tier is the presentation bucket for a score.
type Tier string

const (
	// TierUnsafe is used when the score reaches the blocking threshold.
	TierUnsafe Tier = "Unsafe"
	// TierSuspicious is used when the score reaches the warning threshold.
	TierSuspicious Tier = "Suspicious"
	// TierLikelySafe is used below the warning threshold.
	TierLikelySafe Tier = "Likely safe"
)

// Thresholds are percentages in 0..100 applied to the phishing score.
type Thresholds struct {
	Block int `json:"block" yaml:"block"`
	Warn  int `json:"warn"  yaml:"warn"`
}

// DefaultThresholds returns block=50, warn=35.
func DefaultThresholds() Thresholds {
	return Thresholds{Block: 50, Warn: 35}
}

// Validate reports ErrInvalidThresholds for out-of-range values.
func (t Thresholds) Validate() error {
	if t.Block < 0 || t.Block > 100 || t.Warn < 0 || t.Warn > 100 || t.Warn > t.Block {
		return ErrInvalidThresholds
	}
	return nil
}

// Assessment is a score translated for display.
type Assessment struct {
	Score         float64 `json:"score"`
	SafetyPercent int     `json:"safety_percent"`
	Tier          Tier    `json:"tier"`
	// Flagged is true when the score reaches the warning threshold and the
	// page should be queued as a report.
	Flagged bool `json:"flagged"`
}

// SafetyPercent converts a phishing score into a 0..100 safety percentage.
func SafetyPercent(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	p := math.Round(100 * (1 - score))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// Assess buckets score using t.
func Assess(score float64, t Thresholds) Assessment {
	a := Assessment{
		Score:         score,
		SafetyPercent: SafetyPercent(score),
		Tier:          TierLikelySafe,
	}
	switch {
	case score >= float64(t.Block)/100:
		a.Tier = TierUnsafe
	case score >= float64(t.Warn)/100:
		a.Tier = TierSuspicious
	}
	a.Flagged = score >= float64(t.Warn)/100
	return a
}
