package severity

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"LeakScanner/internal/domain"
)

func TestScoreZeroCounts(t *testing.T) {
	t.Parallel()

	got := Score(domain.SignalCounts{}, domain.DefaultThresholds())
	want := domain.SeverityResult{Score: 0, Label: domain.SeverityLow, Reasons: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestEvaluateRejectsNegativeCounts(t *testing.T) {
	t.Parallel()

	if _, err := Evaluate(domain.SignalCounts{Emails: 3, SizeBytes: -1}, domain.DefaultThresholds()); err == nil {
		t.Fatal("expected negative size to be rejected")
	}

	got, err := Evaluate(domain.SignalCounts{Emails: 12, Passwords: 1}, domain.DefaultThresholds())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if diff := cmp.Diff(Score(domain.SignalCounts{Emails: 12, Passwords: 1}, domain.DefaultThresholds()), got); diff != "" {
		t.Fatalf("evaluate and score disagree (-score +evaluate):\n%s", diff)
	}
}

func TestScoreEmailPasswordDump(t *testing.T) {
	t.Parallel()

	got := Score(domain.SignalCounts{Emails: 12, Passwords: 1}, domain.DefaultThresholds())
	if got.Score != 9 {
		t.Fatalf("expected score 9, got %d", got.Score)
	}
	if got.Label != domain.SeverityMedium {
		t.Fatalf("expected medium at 9 points, got %s", got.Label)
	}
	want := []string{"12 email(s)", "email list", "password token(s) present", "email+password combo"}
	if diff := cmp.Diff(want, got.Reasons); diff != "" {
		t.Fatalf("unexpected reasons (-want +got):\n%s", diff)
	}

	withDomain := Score(domain.SignalCounts{Emails: 12, Passwords: 1, Domains: 12}, domain.DefaultThresholds())
	if withDomain.Label != domain.SeverityHigh {
		t.Fatalf("expected high once another rule fires, got %s (%d)", withDomain.Label, withDomain.Score)
	}
}

func TestScoreEveryRule(t *testing.T) {
	t.Parallel()

	counts := domain.SignalCounts{
		Emails: 10, Passwords: 10, IPs: 1, Domains: 1, BTC: 1, URLs: 5,
		Keywords: 3, SizeBytes: 50_001, WatchlistHits: 1,
	}
	got := Score(counts, domain.DefaultThresholds())
	if got.Score != 22 {
		t.Fatalf("expected 22 points, got %d", got.Score)
	}
	want := []string{
		"10 email(s)", "email list", "password token(s) present", "bulk passwords",
		"IP(s)", "domain(s)", "BTC address", "many URLs", "email+password combo",
		"keywords", "many keywords", ">50KB", "watchlist match",
	}
	if diff := cmp.Diff(want, got.Reasons); diff != "" {
		t.Fatalf("unexpected reasons (-want +got):\n%s", diff)
	}
}

func TestScoreBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts domain.SignalCounts
		score  int
	}{
		{"size at limit", domain.SignalCounts{SizeBytes: 50_000}, 0},
		{"size above limit", domain.SignalCounts{SizeBytes: 50_001}, 1},
		{"four urls", domain.SignalCounts{URLs: 4}, 0},
		{"two keywords", domain.SignalCounts{Keywords: 2}, 1},
		{"nine passwords", domain.SignalCounts{Passwords: 9}, 3},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Score(tc.counts, domain.DefaultThresholds()).Score; got != tc.score {
				t.Fatalf("expected %d, got %d", tc.score, got)
			}
		})
	}
}

func TestScoreMonotonePerCounter(t *testing.T) {
	t.Parallel()

	bump := []func(*domain.SignalCounts){
		func(c *domain.SignalCounts) { c.Emails++ },
		func(c *domain.SignalCounts) { c.IPs++ },
		func(c *domain.SignalCounts) { c.Domains++ },
		func(c *domain.SignalCounts) { c.Passwords++ },
		func(c *domain.SignalCounts) { c.BTC++ },
		func(c *domain.SignalCounts) { c.URLs++ },
		func(c *domain.SignalCounts) { c.Keywords++ },
		func(c *domain.SignalCounts) { c.WatchlistHits++ },
		func(c *domain.SignalCounts) { c.SizeBytes += 10_000 },
	}

	thresholds := domain.DefaultThresholds()
	for i, inc := range bump {
		var counts domain.SignalCounts
		prev := Score(counts, thresholds)
		for step := 0; step < 15; step++ {
			inc(&counts)
			next := Score(counts, thresholds)
			if next.Score < prev.Score {
				t.Fatalf("counter %d: score decreased from %d to %d", i, prev.Score, next.Score)
			}
			if next.Label.Rank() < prev.Label.Rank() {
				t.Fatalf("counter %d: label decreased from %s to %s", i, prev.Label, next.Label)
			}
			prev = next
		}
	}
}

func TestLabelThresholds(t *testing.T) {
	t.Parallel()

	th := domain.DefaultThresholds()
	if Label(5, th) != domain.SeverityLow {
		t.Fatalf("5 should be low")
	}
	if Label(6, th) != domain.SeverityMedium {
		t.Fatalf("6 should be medium")
	}
	if Label(10, th) != domain.SeverityHigh {
		t.Fatalf("10 should be high")
	}
}
