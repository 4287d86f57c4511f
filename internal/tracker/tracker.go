package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"repo-pulse/internal/github"
	"repo-pulse/internal/history"
	"repo-pulse/internal/notify"
	"repo-pulse/internal/storage"
	"repo-pulse/internal/telemetry"
)

const (
	DailyTitle  = "Daily repository report"
	WeeklyTitle = "Weekly repository report"
)

// ErrNoRepos is returned by RunDaily when no repository is configured.
var ErrNoRepos = errors.New("tracker: no repositories configured")

type Options struct {
	Repos          []string
	DeliverOnDaily bool
	WindowDays     int
}

// Tracker runs the daily accumulation and the weekly window report.
type Tracker struct {
	store   *storage.Store
	fetcher github.Fetcher
	sender  notify.Sender
	metrics *telemetry.Metrics
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

func New(store *storage.Store, fetcher github.Fetcher, sender notify.Sender, metrics *telemetry.Metrics, logger *zap.Logger, opts Options) *Tracker {
	if sender == nil {
		sender = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	return &Tracker{
		store:   store,
		fetcher: fetcher,
		sender:  sender,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

func (t *Tracker) Repos() []string {
	return append([]string(nil), t.opts.Repos...)
}

// History returns a copy of the persisted history.
func (t *Tracker) History(ctx context.Context) history.History {
	return t.store.Load(ctx)
}

// RunDaily fetches every configured repository, records today's snapshots and
// reports each one against its previous recorded day. A failed fetch is kept in
// the report and does not stop the others. Today's date is only written when at
// least one snapshot was recorded, so a failed day never looks like a drop to zero.
func (t *Tracker) RunDaily(ctx context.Context) (*DailyReport, error) {
	if len(t.opts.Repos) == 0 {
		t.metrics.JobFinished("daily", ErrNoRepos)
		return nil, ErrNoRepos
	}
	today := history.DateKey(t.now())
	h := t.store.Load(ctx)

	report := &DailyReport{Date: today}
	for _, repo := range t.opts.Repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := RepoResult{Repo: repo}
		current, err := t.fetcher.Fetch(ctx, repo)
		if err != nil {
			t.logger.Warn("fetch failed", zap.String("repo", repo), zap.Error(err))
			t.metrics.FetchFailed(repo)
			res.Err = err
			report.Results = append(report.Results, res)
			continue
		}
		res.Current = current
		res.Baseline, res.BaselineDate, _ = h.Baseline(repo, today)
		res.Delta = current.Sub(res.Baseline)
		h.Record(today, repo, current)
		report.Results = append(report.Results, res)
	}
	if len(report.Failed()) < len(report.Results) {
		t.store.Save(ctx, h)
	} else {
		t.logger.Warn("no snapshot recorded, history left unchanged", zap.String("date", today))
	}

	t.logger.Info("daily run finished",
		zap.String("date", today),
		zap.Int("repos", len(report.Results)),
		zap.Int("failed", len(report.Failed())))

	var err error
	if t.opts.DeliverOnDaily {
		err = t.deliver(ctx, notify.Message{Title: DailyTitle, Text: report.Text()})
	}
	t.metrics.JobFinished("daily", err)
	return report, err
}

// WeeklyReport builds the window report without delivering it. It never writes to the store.
func (t *Tracker) WeeklyReport(ctx context.Context) (*WeeklyReport, error) {
	h := t.store.Load(ctx)
	w, err := h.Window(t.opts.WindowDays)
	if err != nil {
		return nil, err
	}
	repos := t.opts.Repos
	if len(repos) == 0 {
		repos = h.Slice([]string{w.End()}).Repos()
	}
	report := &WeeklyReport{From: w.Start(), To: w.End(), Days: len(w.Dates), Data: h.Slice(w.Dates)}
	for _, repo := range repos {
		start, end, delta := w.Compare(h, repo)
		report.Results = append(report.Results, WindowResult{Repo: repo, Start: start, End: end, Delta: delta})
	}
	return report, nil
}

// RunWeekly builds the window report and always delivers it.
// An empty history yields history.ErrNoData and nothing is sent.
func (t *Tracker) RunWeekly(ctx context.Context) (*WeeklyReport, error) {
	report, err := t.WeeklyReport(ctx)
	if err != nil {
		t.metrics.JobFinished("weekly", err)
		return nil, err
	}
	err = t.deliver(ctx, notify.Message{Title: WeeklyTitle, Text: report.Text()})
	t.metrics.JobFinished("weekly", err)
	return report, err
}

// Send delivers an arbitrary message through the configured channel.
func (t *Tracker) Send(ctx context.Context, msg notify.Message) error {
	return t.deliver(ctx, msg)
}

func (t *Tracker) deliver(ctx context.Context, msg notify.Message) error {
	err := t.sender.Send(ctx, msg)
	t.metrics.Delivered(err)
	if err != nil {
		return fmt.Errorf("failed to deliver %q: %w", msg.Title, err)
	}
	return nil
}
