package history

import (
	"errors"
	"sort"
	"time"
)

// DateLayout is the key format of History. Lexicographic order equals chronological order.
const DateLayout = "2006-01-02"

// ErrNoData is returned when a window is requested from an empty History.
var ErrNoData = errors.New("history: no recorded dates")

// Snapshot is one repository's metrics recorded for one date.
type Snapshot struct {
	Stars   int `json:"stars"`
	Commits int `json:"commits"`
	Issues  int `json:"issues"`
}

// Delta is a field-wise difference between two snapshots. Fields may be negative.
type Delta struct {
	Stars   int `json:"stars"`
	Commits int `json:"commits"`
	Issues  int `json:"issues"`
}

// Sub returns s - base.
func (s Snapshot) Sub(base Snapshot) Delta {
	return Delta{
		Stars:   s.Stars - base.Stars,
		Commits: s.Commits - base.Commits,
		Issues:  s.Issues - base.Issues,
	}
}

// History maps a date key to the snapshots recorded on that date, by repository.
type History map[string]map[string]Snapshot

// New returns an empty History.
func New() History {
	return make(History)
}

// DateKey formats t as a History key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Dates returns all date keys in ascending order.
func (h History) Dates() []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Ensure creates an empty entry for date if it does not exist yet.
func (h History) Ensure(date string) map[string]Snapshot {
	day, ok := h[date]
	if !ok || day == nil {
		day = make(map[string]Snapshot)
		h[date] = day
	}
	return day
}

// Record stores snap for repo under date, replacing any previous value.
func (h History) Record(date, repo string, snap Snapshot) {
	h.Ensure(date)[repo] = snap
}

// Get returns the snapshot recorded for repo on date.
func (h History) Get(date, repo string) (Snapshot, bool) {
	day, ok := h[date]
	if !ok {
		return Snapshot{}, false
	}
	snap, ok := day[repo]
	return snap, ok
}

// Baseline returns the most recent snapshot of repo recorded strictly before date.
// When there is none the zero Snapshot is returned with an empty date and found=false.
func (h History) Baseline(repo, date string) (snap Snapshot, at string, found bool) {
	dates := h.Dates()
	for i := len(dates) - 1; i >= 0; i-- {
		d := dates[i]
		if d >= date {
			continue
		}
		if s, ok := h[d][repo]; ok {
			return s, d, true
		}
	}
	return Snapshot{}, "", false
}

// Clone returns a deep copy of h.
func (h History) Clone() History {
	out := make(History, len(h))
	for date, day := range h {
		cp := make(map[string]Snapshot, len(day))
		for repo, snap := range day {
			cp[repo] = snap
		}
		out[date] = cp
	}
	return out
}

// Filter returns a copy of h holding only repo. Dates without repo are dropped.
func (h History) Filter(repo string) History {
	out := make(History)
	for date, day := range h {
		if snap, ok := day[repo]; ok {
			out[date] = map[string]Snapshot{repo: snap}
		}
	}
	return out
}

// Slice returns a copy of h restricted to the given dates.
func (h History) Slice(dates []string) History {
	out := make(History, len(dates))
	for _, d := range dates {
		day, ok := h[d]
		if !ok {
			continue
		}
		cp := make(map[string]Snapshot, len(day))
		for repo, snap := range day {
			cp[repo] = snap
		}
		out[d] = cp
	}
	return out
}

// Repos returns every repository present in h, sorted.
func (h History) Repos() []string {
	seen := make(map[string]struct{})
	for _, day := range h {
		for repo := range day {
			seen[repo] = struct{}{}
		}
	}
	repos := make([]string, 0, len(seen))
	for r := range seen {
		repos = append(repos, r)
	}
	sort.Strings(repos)
	return repos
}

// Latest returns the newest date and its snapshots.
func (h History) Latest() (string, map[string]Snapshot, bool) {
	dates := h.Dates()
	if len(dates) == 0 {
		return "", nil, false
	}
	last := dates[len(dates)-1]
	return last, h[last], true
}
