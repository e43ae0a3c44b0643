package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_requests_total",
			Help: "Total number of HTTP requests per route",
		},
		[]string{"route"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eimpact_request_duration_seconds",
			Help:    "Request duration in seconds per route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_request_errors_total",
			Help: "Total number of error responses per route and status code",
		},
		[]string{"route", "code"},
	)
)

var (
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_calculations_total",
			Help: "Total number of impact calculations per kind",
		},
		[]string{"kind"},
	)

	RecommendationsServed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eimpact_recommendations_served",
			Help:    "Number of recommendations returned per request",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
	)

	AdvisorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_advisor_requests_total",
			Help: "Recommendation requests by source (ai or rules) and result",
		},
		[]string{"source", "result"},
	)

	ImplementationsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eimpact_implementations_completed_total",
			Help: "Total number of implementations marked completed",
		},
	)

	GoalUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_goal_updates_total",
			Help: "Goal updates applied by impact propagation, by result",
		},
		[]string{"result"},
	)

	GoalsAchievedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eimpact_goals_achieved_total",
			Help: "Total number of goals that reached their target",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_cache_lookups_total",
			Help: "Cache lookups per cache and result (hit or miss)",
		},
		[]string{"cache", "result"},
	)

	FactorReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_factor_reloads_total",
			Help: "Factor table reloads by result",
		},
		[]string{"result"},
	)
)

// ObserveCalculation counts one calculation of the given kind.
func ObserveCalculation(kind string) {
	CalculationsTotal.WithLabelValues(kind).Inc()
}

// ObserveCache records a cache hit or miss.
func ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// ObserveGoalUpdates records the outcome of one propagation batch.
func ObserveGoalUpdates(applied, failed, achieved int) {
	GoalUpdatesTotal.WithLabelValues("applied").Add(float64(applied))
	GoalUpdatesTotal.WithLabelValues("failed").Add(float64(failed))
	GoalsAchievedTotal.Add(float64(achieved))
}

var (
	DBPoolTotalConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eimpact_db_pool_total_conns",
			Help: "Total number of connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eimpact_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquiredConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eimpact_db_pool_acquired_conns",
			Help: "Currently acquired (in-use) connections per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquiresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_db_pool_acquires_total",
			Help: "Total number of connection acquires per driver",
		},
		[]string{"driver"},
	)
)

var (
	acquiresMu   sync.Mutex
	lastAcquires = map[string]uint64{}
)

// UpdateDBPoolMetrics sets the pool gauges. acquires is the pool's cumulative
// acquire count; only the growth since the previous call is added.
func UpdateDBPoolMetrics(driver string, total, idle, acquired float64, acquires uint64) {
	DBPoolTotalConns.WithLabelValues(driver).Set(total)
	DBPoolIdleConns.WithLabelValues(driver).Set(idle)
	DBPoolAcquiredConns.WithLabelValues(driver).Set(acquired)

	acquiresMu.Lock()
	prev := lastAcquires[driver]
	lastAcquires[driver] = acquires
	acquiresMu.Unlock()
	if acquires > prev {
		DBPoolAcquiresTotal.WithLabelValues(driver).Add(float64(acquires - prev))
	}
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eimpact_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eimpact_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eimpact_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
