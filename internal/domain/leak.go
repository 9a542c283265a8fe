package domain

import (
	"fmt"
	"time"
)

// SourceKind names the upstream a candidate was discovered on.
type SourceKind string

const (
	SourcePaste    SourceKind = "paste"
	SourceGist     SourceKind = "gist"
	SourceForum    SourceKind = "forum"
	SourceTelegram SourceKind = "telegram"
	SourceBreach   SourceKind = "breach"
)

// Candidate identifies one fetchable unit awaiting triage.
type Candidate struct {
	Source  SourceKind
	ID      string
	Title   string
	Link    string
	PeekRef string
	FullRef string
	// Ext is the file extension for attachment-style candidates (".txt", ".zip").
	Ext string
	// DeclaredSize is the size announced by the source before download, 0 if unknown.
	DeclaredSize int64
	// Caption is free text the source attached to the item, if any.
	Caption string
}

// FetchResult is produced by an adapter's peek or full fetch.
type FetchResult struct {
	Text string
	// Body holds the raw bytes of a full fetch; peeks leave it nil.
	Body []byte
	// ContentHash is the hex sha256 of the whole stream; empty when the
	// stream was cut before EOF and no identity could be computed.
	ContentHash string
	// ByteLength counts the bytes inspected (the prefix for peeks).
	ByteLength int64
	// StreamLength counts every byte read off the wire.
	StreamLength int64
}

// Severity is the coarse triage bucket.
type Severity string

const (
	SeverityUnscored Severity = ""
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
)

// Rank orders severities so sinks can filter by a minimum level.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// ParseSeverity accepts low, medium or high.
func ParseSeverity(value string) (Severity, error) {
	switch s := Severity(value); s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return s, nil
	default:
		return SeverityUnscored, fmt.Errorf("unknown severity %q", value)
	}
}

// SignalCounts are the security-relevant pattern counts of one text sample.
type SignalCounts struct {
	Emails        int `json:"emails"`
	IPs           int `json:"ips"`
	Domains       int `json:"domains"`
	Passwords     int `json:"passwords"`
	BTC           int `json:"btc"`
	URLs          int `json:"urls"`
	Keywords      int `json:"keywords"`
	WatchlistHits int `json:"watchlist_hits"`
	SizeBytes     int `json:"size_bytes"`
}

// Validate rejects negative counters.
func (c SignalCounts) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"emails", c.Emails},
		{"ips", c.IPs},
		{"domains", c.Domains},
		{"passwords", c.Passwords},
		{"btc", c.BTC},
		{"urls", c.URLs},
		{"keywords", c.Keywords},
		{"watchlistHits", c.WatchlistHits},
		{"sizeBytes", c.SizeBytes},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("signal counter %s is negative: %d", f.name, f.value)
		}
	}
	return nil
}

// SeverityResult is the scorer's verdict for one SignalCounts.
type SeverityResult struct {
	Score   int      `json:"score"`
	Label   Severity `json:"label"`
	Reasons []string `json:"reasons"`
}

// ThresholdConfig holds the label cut points.
type ThresholdConfig struct {
	Low    int `yaml:"low"`
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// DefaultThresholds mirrors the production cut points.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{Low: 0, Medium: 6, High: 10}
}

// Validate requires 0 <= low <= medium <= high.
func (t ThresholdConfig) Validate() error {
	if t.Low < 0 || t.Medium < t.Low || t.High < t.Medium {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= low <= medium <= high, got %d/%d/%d",
			ErrConfiguration, t.Low, t.Medium, t.High)
	}
	return nil
}

// Event kinds emitted downstream.
const (
	KindPasteLeak          = "paste_leak"
	KindGistLeak           = "gist_leak"
	KindSuspiciousPost     = "suspicious_post"
	KindTelegramAttachment = "telegram_attachment"
	KindBreachListing      = "breach_listing"
)

// KindFor maps a source onto the event kind it emits.
func KindFor(source SourceKind) string {
	switch source {
	case SourcePaste:
		return KindPasteLeak
	case SourceGist:
		return KindGistLeak
	case SourceForum:
		return KindSuspiciousPost
	case SourceTelegram:
		return KindTelegramAttachment
	case SourceBreach:
		return KindBreachListing
	default:
		return string(source)
	}
}

// Event is the externally emitted unit.
type Event struct {
	ID           string            `json:"id" firestore:"id"`
	Source       SourceKind        `json:"source" firestore:"source"`
	Kind         string            `json:"kind" firestore:"kind"`
	Title        string            `json:"title" firestore:"title"`
	Link         string            `json:"link" firestore:"link"`
	Severity     Severity          `json:"severity" firestore:"severity"`
	Score        int               `json:"score" firestore:"score"`
	Reasons      []string          `json:"reasons,omitempty" firestore:"reasons"`
	ContentHash  string            `json:"content_hash,omitempty" firestore:"content_hash"`
	SizeBytes    int64             `json:"size_bytes,omitempty" firestore:"size_bytes"`
	ArtifactPath string            `json:"artifact_path,omitempty" firestore:"artifact_path"`
	Attributes   map[string]string `json:"attributes,omitempty" firestore:"attributes"`
	Timestamp    time.Time         `json:"ts" firestore:"ts"`
}

// ListingRow is one row of a breach-listing page.
type ListingRow struct {
	Name         string `json:"leak_name"`
	DiscoveredAt string `json:"discovered"`
	Country      string `json:"country"`
	SourceGroup  string `json:"source_group"`
	Link         string `json:"link_source"`
}

// DedupKey is built from the immutable fields of the row. A missing
// discovery timestamp contributes an empty segment.
func (r ListingRow) DedupKey() string {
	return r.Link + "|" + r.Name + "|" + r.DiscoveredAt
}
