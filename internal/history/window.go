package history

// Window is a run of the most recent recorded dates, oldest first.
// It is "the last N recorded days", not a calendar week.
type Window struct {
	Dates []string
}

// Start is the oldest date in the window.
func (w Window) Start() string {
	return w.Dates[0]
}

// End is the newest date in the window.
func (w Window) End() string {
	return w.Dates[len(w.Dates)-1]
}

// Window selects the n most recent dates of h. With fewer than n dates all of them are used.
// ErrNoData is returned when h is empty or n is not positive.
func (h History) Window(n int) (Window, error) {
	dates := h.Dates()
	if len(dates) == 0 || n <= 0 {
		return Window{}, ErrNoData
	}
	if len(dates) > n {
		dates = dates[len(dates)-n:]
	}
	return Window{Dates: dates}, nil
}

// Compare returns the window start and end snapshots for repo and their delta.
// Missing entries count as the zero Snapshot.
func (w Window) Compare(h History, repo string) (start, end Snapshot, delta Delta) {
	start, _ = h.Get(w.Start(), repo)
	end, _ = h.Get(w.End(), repo)
	return start, end, end.Sub(start)
}
