package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order dispatch outcomes per purchase flow.
type OrderMetrics struct {
	duration *prometheus.HistogramVec
	Orders   *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_dispatch_duration_seconds",
		Help:    "Duration of order dispatch calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Orders dispatched per flow and outcome.",
	}, []string{"flow", "outcome"})
	reg.MustRegister(duration, orders)
	return &OrderMetrics{
		duration: duration,
		Orders:   orders,
	}
}

// ObserveDispatch records the duration of one dispatch call for the flow.
func (o *OrderMetrics) ObserveDispatch(flow string, duration time.Duration) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.WithLabelValues(normalizeLabel(flow)).Observe(duration.Seconds())
}

// IncOrder increments the order counter for the flow and outcome.
func (o *OrderMetrics) IncOrder(flow, outcome string) {
	if o == nil || o.Orders == nil {
		return
	}
	o.Orders.WithLabelValues(normalizeLabel(flow), normalizeLabel(outcome)).Inc()
}

// RewardMetrics records reward credits issued per source.
type RewardMetrics struct {
	credits *prometheus.CounterVec
	coins   *prometheus.CounterVec
}

// NewRewardMetrics registers the reward metrics on the provided registerer.
func NewRewardMetrics(reg prometheus.Registerer) *RewardMetrics {
	if reg == nil {
		return &RewardMetrics{}
	}
	credits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_credits_total",
		Help: "Reward credits issued per source.",
	}, []string{"source"})
	coins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_coins_total",
		Help: "Coins credited per source.",
	}, []string{"source"})
	reg.MustRegister(credits, coins)
	return &RewardMetrics{
		credits: credits,
		coins:   coins,
	}
}

// IncCredit records one reward credit and the coins it carried.
func (r *RewardMetrics) IncCredit(source string, coins int) {
	if r == nil || r.credits == nil {
		return
	}
	label := normalizeLabel(source)
	r.credits.WithLabelValues(label).Inc()
	if coins > 0 {
		r.coins.WithLabelValues(label).Add(float64(coins))
	}
}

// CronJobMetrics records scheduled job runs and their durations.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron job runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job runs per job and outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, runs)
	return &CronJobMetrics{
		duration: duration,
		runs:     runs,
	}
}

// ObserveDuration records how long one run of the job took.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess counts a successful run of the job.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), "success").Inc()
}

// IncFailure counts a failed run of the job.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
