// Package signals counts security-relevant patterns in raw text.
package signals

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"LeakScanner/internal/domain"
)

var (
	emailExpr  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	ipExpr     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	domainExpr = regexp.MustCompile(`\b(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,}\b`)
	btcExpr    = regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`)
	urlExpr    = regexp.MustCompile(`(?i)https?://[^\s"'>)]{4,}`)
)

// Keywords are the dump-related terms counted once each when present.
var Keywords = []string{
	"combo", "credentials", "leak", "dump", "pass:", "login",
	"api_key", "token", "wallet", "db_dump",
}

var passwordTokens = []string{"pass:", "password"}

// Extractor counts signals and, optionally, watchlist terms.
type Extractor struct {
	watchlist []string
}

// NewExtractor lowercases and de-duplicates the watchlist terms.
func NewExtractor(watchlist []string) *Extractor {
	seen := map[string]struct{}{}
	terms := make([]string, 0, len(watchlist))
	for _, term := range watchlist {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return &Extractor{watchlist: terms}
}

// Extract counts signals in text without a watchlist.
func Extract(text string) domain.SignalCounts {
	return (&Extractor{}).Extract(text)
}

// Extract counts every signal family independently. SizeBytes defaults to
// the byte length of text; callers override it with the fetched length.
func (e *Extractor) Extract(text string) domain.SignalCounts {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	lower := strings.ToLower(text)

	counts := domain.SignalCounts{
		Emails:    countMatches(emailExpr, text),
		IPs:       countMatches(ipExpr, text),
		Domains:   countMatches(domainExpr, text),
		BTC:       countMatches(btcExpr, text),
		URLs:      countMatches(urlExpr, text),
		Keywords:  countDistinct(lower, Keywords),
		SizeBytes: len(text),
	}
	for _, tok := range passwordTokens {
		counts.Passwords += strings.Count(lower, tok)
	}
	if e != nil {
		counts.WatchlistHits = countDistinct(lower, e.watchlist)
	}
	return counts
}

func countMatches(expr *regexp.Regexp, text string) int {
	if text == "" {
		return 0
	}
	return len(expr.FindAllStringIndex(text, -1))
}

func countDistinct(lower string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			n++
		}
	}
	return n
}
