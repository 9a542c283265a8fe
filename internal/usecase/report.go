package usecase

import (
	"LeakScanner/internal/domain"
)

// CandidateState is the position of a candidate in one pass. States only move
// forward and every candidate ends a pass in exactly one of them.
type CandidateState string

const (
	StateEnumerated  CandidateState = "enumerated"
	StatePeeked      CandidateState = "peeked"
	StatePeekFailed  CandidateState = "peek_failed"
	StateSkippedLow  CandidateState = "skipped_low"
	StateGuardDenied CandidateState = "guard_denied"
	StateFetched     CandidateState = "fetched"
	StateFetchFailed CandidateState = "fetch_failed"
	StateClassified  CandidateState = "classified"
	// StateDuplicate and StateAccepted apply to listing rows.
	StateDuplicate CandidateState = "duplicate"
	StateAccepted  CandidateState = "accepted"
)

// Outcome summarises a batch.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePaused    Outcome = "paused"
	OutcomeFailed    Outcome = "failed"
)

// CandidateReport records what happened to one candidate.
type CandidateReport struct {
	Candidate    domain.Candidate
	State        CandidateState
	Score        int
	Label        domain.Severity
	Reasons      []string
	EventID      string
	ArtifactPath string
	Err          error
}

// BatchReport is the result of one pass over a source.
type BatchReport struct {
	Source     domain.SourceKind
	Outcome    Outcome
	Candidates []CandidateReport
	Events     int
	Err        error
}

// Count returns how many candidates ended in state.
func (r BatchReport) Count(state CandidateState) int {
	n := 0
	for _, c := range r.Candidates {
		if c.State == state {
			n++
		}
	}
	return n
}
