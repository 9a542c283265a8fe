package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/usecase"
)

func TestScoreCommand(t *testing.T) {
	t.Setenv(configPathEnv, "")

	sample := filepath.Join(t.TempDir(), "sample.txt")
	if err := os.WriteFile(sample, []byte("admin@acme.test password: hunter2\nacme vpn"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"score", "--watch", "acme", sample})
	t.Cleanup(func() { rootCmd.SetArgs(nil); scoreFlags.watchlist = nil })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("score: %v", err)
	}

	got := out.String()
	for _, want := range []string{"label: high", "watchlist match", "email+password combo"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderReport(t *testing.T) {
	t.Parallel()

	report := usecase.BatchReport{
		Source:  domain.SourcePaste,
		Outcome: usecase.OutcomePaused,
		Events:  1,
		Candidates: []usecase.CandidateReport{
			{Candidate: domain.Candidate{ID: "a", Title: "combo"}, State: usecase.StateClassified, Label: domain.SeverityHigh, Score: 12, ArtifactPath: "data/artifacts/paste/x.txt"},
			{Candidate: domain.Candidate{ID: "b", Title: "db"}, State: usecase.StateGuardDenied, Label: domain.SeverityMedium, Score: 7, Err: errors.New("guard denied")},
			{Candidate: domain.Candidate{ID: "c", Title: "later"}, State: usecase.StateEnumerated},
		},
	}

	got := renderReport(report, true)
	for _, want := range []string{"| a |", "classified", "guard denied", "enumerated", "data/artifacts/paste/x.txt"} {
		if !strings.Contains(got, want) {
			t.Fatalf("report missing %q:\n%s", want, got)
		}
	}
}
