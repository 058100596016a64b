package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Time-lock metrics
	LocksCreated   prometheus.Counter
	LocksWithdrawn prometheus.Counter
	LocksExtended  prometheus.Counter
	LockDuration   prometheus.Histogram

	// Draw metrics
	DrawEntries    prometheus.Counter
	DrawsCompleted prometheus.Counter
	DrawDuration   prometheus.Histogram

	// Accrual metrics
	StakesCreated  prometheus.Counter
	RewardsClaimed prometheus.Counter
	Unstakes       prometheus.Counter

	// Disbursement metrics
	PayoutAmount     *prometheus.HistogramVec
	DisburseFailures *prometheus.CounterVec

	// Outbox metrics
	EventsPublished prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		LocksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_locks_created_total",
			Help: "Total number of time locks created",
		}),
		LocksWithdrawn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_locks_withdrawn_total",
			Help: "Total number of time locks withdrawn",
		}),
		LocksExtended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_locks_extended_total",
			Help: "Total number of deadline extensions",
		}),
		LockDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custody_lock_operation_duration_seconds",
			Help:    "Duration of lock withdrawal operations",
			Buckets: prometheus.DefBuckets,
		}),

		DrawEntries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_draw_entries_total",
			Help: "Total number of draw pool entries",
		}),
		DrawsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_draws_completed_total",
			Help: "Total number of completed draws",
		}),
		DrawDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custody_draw_operation_duration_seconds",
			Help:    "Duration of winner selection operations",
			Buckets: prometheus.DefBuckets,
		}),

		StakesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_stakes_created_total",
			Help: "Total number of stake deposits",
		}),
		RewardsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_rewards_claimed_total",
			Help: "Total number of reward claims",
		}),
		Unstakes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_unstakes_total",
			Help: "Total number of unstakes",
		}),

		PayoutAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "custody_payout_amount",
				Help:    "Disbursed amounts by policy",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"policy"},
		),
		DisburseFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_disburse_failures_total",
				Help: "Total number of failed disbursements by policy",
			},
			[]string{"policy"},
		),

		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_events_published_total",
			Help: "Total number of outbox events published",
		}),
	}
}
