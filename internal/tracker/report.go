package tracker

import (
	"fmt"
	"strings"

	"repo-pulse/internal/history"
)

// RepoResult is the daily outcome for one repository. Err is set when the fetch failed.
type RepoResult struct {
	Repo         string
	Current      history.Snapshot
	Baseline     history.Snapshot
	BaselineDate string
	Delta        history.Delta
	Err          error
}

type DailyReport struct {
	Date    string
	Results []RepoResult
}

// Failed returns the results whose fetch failed.
func (r *DailyReport) Failed() []RepoResult {
	var out []RepoResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

func (r *DailyReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GitHub stats for %s\n", r.Date)
	for _, res := range r.Results {
		b.WriteString("\n")
		if res.Err != nil {
			fmt.Fprintf(&b, "%s\nfetch failed: %v\n", res.Repo, res.Err)
			continue
		}
		since := res.BaselineDate
		if since == "" {
			since = "no previous data"
		}
		fmt.Fprintf(&b, "%s (vs %s)\n", res.Repo, since)
		writeLine(&b, "Stars", res.Current.Stars, res.Delta.Stars)
		writeLine(&b, "Commits", res.Current.Commits, res.Delta.Commits)
		writeLine(&b, "Open issues", res.Current.Issues, res.Delta.Issues)
	}
	return b.String()
}

type WindowResult struct {
	Repo  string
	Start history.Snapshot
	End   history.Snapshot
	Delta history.Delta
}

type WeeklyReport struct {
	From    string
	To      string
	Days    int
	Results []WindowResult
	// Data is the history restricted to the window.
	Data history.History
}

func (r *WeeklyReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GitHub stats %s to %s (%d recorded days)\n", r.From, r.To, r.Days)
	for _, res := range r.Results {
		fmt.Fprintf(&b, "\n%s\n", res.Repo)
		writeLine(&b, "Stars", res.End.Stars, res.Delta.Stars)
		writeLine(&b, "Commits", res.End.Commits, res.Delta.Commits)
		writeLine(&b, "Open issues", res.End.Issues, res.Delta.Issues)
	}
	return b.String()
}

func writeLine(b *strings.Builder, name string, value, delta int) {
	fmt.Fprintf(b, "  %s: %d (%+d)\n", name, value, delta)
}
