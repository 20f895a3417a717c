package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peerhive_posts_created_total",
		Help: "Total posts created, by classified zone",
	}, []string{"zone"})
	Votes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peerhive_votes_total",
		Help: "Total votes cast, by direction",
	}, []string{"direction"})
	PostsRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peerhive_posts_rate_limited_total",
		Help: "Total post attempts rejected by the rate limiter",
	})
	DashboardDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "peerhive_dashboard_aggregate_duration_seconds",
		Help:    "Time spent loading and aggregating the dashboard snapshot",
		Buckets: prometheus.DefBuckets,
	})
	LiveClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "peerhive_live_clients",
		Help: "Connected websocket clients, by stream",
	}, []string{"stream"})
)

func init() {
	prometheus.MustRegister(PostsCreated, Votes, PostsRateLimited, DashboardDuration, LiveClients)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncPostCreated counts a new post in zone
func IncPostCreated(zone string) { PostsCreated.WithLabelValues(zone).Inc() }

// IncVote counts a vote in direction (+1 / -1)
func IncVote(direction int) { Votes.WithLabelValues(strconv.Itoa(direction)).Inc() }

// ObserveDashboard records an aggregation started at start
func ObserveDashboard(start time.Time) {
	DashboardDuration.Observe(time.Since(start).Seconds())
}
