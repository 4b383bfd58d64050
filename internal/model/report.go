package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidReport is returned when a report cannot be built from its input.
var ErrInvalidReport = errors.New("invalid report")

// Report records a page whose phishing score crossed the warning threshold.
// A Report is immutable after creation.
type Report struct {
	// ID is a UUIDv7: a millisecond timestamp followed by random bits, so IDs
	// are unique and sort by creation time.
	ID string `json:"id"`

	// TS is the creation time in UTC.
	TS time.Time `json:"ts"`

	// URL is the reported page.
	URL string `json:"url"`

	// Score is the phishing score in [0, 1].
	Score float64 `json:"score"`

	// Extra carries the evidence behind the score.
	Extra ReportExtra `json:"extra"`
}

// ReportExtra is the normalized evidence attached to a Report.
type ReportExtra struct {
	Features map[string]float64 `json:"features,omitempty"`
	Votes    map[int]int        `json:"votes,omitempty"`
	Reason   string             `json:"reason,omitempty"`
}

// NewReport builds a report stamped with a fresh identifier and the current time.
func NewReport(url string, score float64, extra ReportExtra) (Report, error) {
	return newReportAt(url, score, extra, time.Now())
}

func newReportAt(url string, score float64, extra ReportExtra, now time.Time) (Report, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Report{}, fmt.Errorf("%w: empty url", ErrInvalidReport)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Report{}, fmt.Errorf("%w: score is not a finite number", ErrInvalidReport)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Report{}, fmt.Errorf("failed to generate report id: %w", err)
	}

	return Report{
		ID:    id.String(),
		TS:    now.UTC(),
		URL:   url,
		Score: score,
		Extra: extra,
	}, nil
}

// NormalizeExtra converts a free-form evidence object into a ReportExtra.
// Known keys are kept when they have the expected shape; anything else is
// dropped. A nil or malformed input yields an empty ReportExtra.
func NormalizeExtra(raw json.RawMessage) ReportExtra {
	var loose struct {
		Features map[string]json.RawMessage `json:"features"`
		Votes    map[string]json.RawMessage `json:"votes"`
		Reason   json.RawMessage            `json:"reason"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &loose) != nil {
		return ReportExtra{}
	}

	var extra ReportExtra
	for name, v := range loose.Features {
		var f float64
		if json.Unmarshal(v, &f) != nil {
			var b bool
			if json.Unmarshal(v, &b) != nil {
				continue
			}
			if b {
				f = 1
			}
		}
		if extra.Features == nil {
			extra.Features = make(map[string]float64, len(loose.Features))
		}
		extra.Features[name] = f
	}
	for label, v := range loose.Votes {
		var class, count int
		if _, err := fmt.Sscanf(label, "%d", &class); err != nil {
			continue
		}
		if json.Unmarshal(v, &count) != nil {
			continue
		}
		if extra.Votes == nil {
			extra.Votes = make(map[int]int, 2)
		}
		extra.Votes[class] = count
	}
	var reason string
	if json.Unmarshal(loose.Reason, &reason) == nil {
		extra.Reason = reason
	}
	return extra
}
