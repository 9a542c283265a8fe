package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/usecase"
)

const maxTitleWidth = 48

func renderReport(report usecase.BatchReport, markdown bool) string {
	w := table.NewWriter()
	w.SetTitle(fmt.Sprintf("%s: %s", report.Source, report.Outcome))
	w.AppendHeader(table.Row{"ID", "Title", "State", "Label", "Score", "Detail"})
	for _, c := range report.Candidates {
		label := string(c.Label)
		if label == "" {
			label = "-"
		}
		w.AppendRow(table.Row{c.Candidate.ID, c.Candidate.Title, c.State, label, c.Score, detail(c)})
	}
	w.AppendFooter(table.Row{"", "", "events", report.Events, "", ""})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: maxTitleWidth},
		{Number: 5, Align: text.AlignRight},
	})

	if markdown {
		return w.RenderMarkdown()
	}
	w.SetStyle(table.StyleLight)
	return w.Render()
}

func detail(c usecase.CandidateReport) string {
	switch {
	case c.Err != nil:
		return c.Err.Error()
	case c.ArtifactPath != "":
		return c.ArtifactPath
	default:
		return strings.Join(c.Reasons, ", ")
	}
}

func renderScore(counts domain.SignalCounts, result domain.SeverityResult) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Signal", "Count"})
	for _, row := range []struct {
		name  string
		value int
	}{
		{"emails", counts.Emails},
		{"ips", counts.IPs},
		{"domains", counts.Domains},
		{"passwords", counts.Passwords},
		{"btc", counts.BTC},
		{"urls", counts.URLs},
		{"keywords", counts.Keywords},
		{"watchlist", counts.WatchlistHits},
		{"bytes", counts.SizeBytes},
	} {
		w.AppendRow(table.Row{row.name, row.value})
	}
	w.AppendFooter(table.Row{"score", result.Score})
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	var b strings.Builder
	b.WriteString(w.Render())
	fmt.Fprintf(&b, "\nlabel: %s\n", result.Label)
	if len(result.Reasons) > 0 {
		fmt.Fprintf(&b, "reasons: %s\n", strings.Join(result.Reasons, "; "))
	}
	return b.String()
}
