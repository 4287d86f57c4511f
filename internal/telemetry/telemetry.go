package telemetry

import (
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repo-pulse/internal/history"
)

const namespace = "repo_pulse"

// LatestFunc returns the newest recorded snapshots by repository.
type LatestFunc func() map[string]history.Snapshot

// Metrics holds process counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	jobRuns     *prometheus.CounterVec
	fetchErrors *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Report job runs by job and outcome.",
		}, []string{"job", "status"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed repository metric fetches.",
		}, []string{"repo"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Chat deliveries by outcome.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(m.jobRuns, m.fetchErrors, m.deliveries)
	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) JobFinished(job string, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, status(err)).Inc()
}

func (m *Metrics) FetchFailed(repo string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(repo).Inc()
}

func (m *Metrics) Delivered(err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(status(err)).Inc()
}

// ExposeSnapshots publishes the latest snapshot of each repository as gauges.
func (m *Metrics) ExposeSnapshots(latest LatestFunc) {
	if m == nil || latest == nil {
		return
	}
	m.registry.MustRegister(&snapshotCollector{latest: latest})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var (
	starsDesc   = prometheus.NewDesc(namespace+"_stars", "Latest recorded star count.", []string{"repo"}, nil)
	commitsDesc = prometheus.NewDesc(namespace+"_commits", "Latest recorded commit count.", []string{"repo"}, nil)
	issuesDesc  = prometheus.NewDesc(namespace+"_open_issues", "Latest recorded open issue count.", []string{"repo"}, nil)
)

type snapshotCollector struct {
	latest LatestFunc
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- starsDesc
	ch <- commitsDesc
	ch <- issuesDesc
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snaps := c.latest()
	repos := make([]string, 0, len(snaps))
	for r := range snaps {
		repos = append(repos, r)
	}
	sort.Strings(repos)
	for _, r := range repos {
		s := snaps[r]
		ch <- prometheus.MustNewConstMetric(starsDesc, prometheus.GaugeValue, float64(s.Stars), r)
		ch <- prometheus.MustNewConstMetric(commitsDesc, prometheus.GaugeValue, float64(s.Commits), r)
		ch <- prometheus.MustNewConstMetric(issuesDesc, prometheus.GaugeValue, float64(s.Issues), r)
	}
}
