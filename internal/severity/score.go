// Package severity turns signal counts into an additive score and label.
package severity

import (
	"fmt"

	"LeakScanner/internal/domain"
)

const largeSampleBytes = 50_000

type rule struct {
	points int
	match  func(c domain.SignalCounts) bool
	reason func(c domain.SignalCounts) string
}

func fixed(reason string) func(domain.SignalCounts) string {
	return func(domain.SignalCounts) string { return reason }
}

// rules are evaluated in order; reasons keep that order.
var rules = []rule{
	{1, func(c domain.SignalCounts) bool { return c.Emails >= 1 },
		func(c domain.SignalCounts) string { return fmt.Sprintf("%d email(s)", c.Emails) }},
	{2, func(c domain.SignalCounts) bool { return c.Emails >= 10 }, fixed("email list")},
	{3, func(c domain.SignalCounts) bool { return c.Passwords >= 1 }, fixed("password token(s) present")},
	{2, func(c domain.SignalCounts) bool { return c.Passwords >= 10 }, fixed("bulk passwords")},
	{1, func(c domain.SignalCounts) bool { return c.IPs >= 1 }, fixed("IP(s)")},
	{1, func(c domain.SignalCounts) bool { return c.Domains >= 1 }, fixed("domain(s)")},
	{1, func(c domain.SignalCounts) bool { return c.BTC >= 1 }, fixed("BTC address")},
	{1, func(c domain.SignalCounts) bool { return c.URLs >= 5 }, fixed("many URLs")},
	{3, func(c domain.SignalCounts) bool { return c.Emails >= 1 && c.Passwords >= 1 }, fixed("email+password combo")},
	{1, func(c domain.SignalCounts) bool { return c.Keywords >= 1 }, fixed("keywords")},
	{1, func(c domain.SignalCounts) bool { return c.Keywords >= 3 }, fixed("many keywords")},
	{1, func(c domain.SignalCounts) bool { return c.SizeBytes > largeSampleBytes }, fixed(">50KB")},
	{4, func(c domain.SignalCounts) bool { return c.WatchlistHits > 0 }, fixed("watchlist match")},
}

// Score applies the rule table to counts and labels the sum.
func Score(counts domain.SignalCounts, thresholds domain.ThresholdConfig) domain.SeverityResult {
	result := domain.SeverityResult{Reasons: []string{}}
	for _, r := range rules {
		if !r.match(counts) {
			continue
		}
		result.Score += r.points
		result.Reasons = append(result.Reasons, r.reason(counts))
	}
	result.Label = Label(result.Score, thresholds)
	return result
}

// Evaluate scores counts that arrive from outside the extractor, rejecting
// negative counters instead of letting them silently fail every rule.
func Evaluate(counts domain.SignalCounts, thresholds domain.ThresholdConfig) (domain.SeverityResult, error) {
	if err := counts.Validate(); err != nil {
		return domain.SeverityResult{}, err
	}
	return Score(counts, thresholds), nil
}

// Label buckets a score against the thresholds.
func Label(score int, thresholds domain.ThresholdConfig) domain.Severity {
	switch {
	case score >= thresholds.High:
		return domain.SeverityHigh
	case score >= thresholds.Medium:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
