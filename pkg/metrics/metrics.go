package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	forksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daypart",
			Name:      "forks_total",
			Help:      "Count of inherited definitions forked on write, by node level.",
		},
		[]string{"level"},
	)

	collisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "daypart",
			Name:      "day_collisions_total",
			Help:      "Count of schedule writes rejected by a day collision.",
		},
	)

	priorityTiesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "daypart",
			Name:      "priority_ties_total",
			Help:      "Count of day resolutions that hit an unresolved priority tie.",
		},
	)

	commitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daypart",
			Name:      "commits_total",
			Help:      "Count of persisted write plans by outcome.",
		},
		[]string{"outcome"},
	)

	configCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daypart",
			Name:      "config_cache_total",
			Help:      "Effective config cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Register 注册全部指标（幂等）
func Register() {
	once.Do(func() {
		prometheus.MustRegister(forksTotal, collisionsTotal, priorityTiesTotal, commitsTotal, configCacheTotal)
	})
}

func IncFork(level string) {
	forksTotal.WithLabelValues(level).Inc()
}

func IncCollision() {
	collisionsTotal.Inc()
}

func IncPriorityTie() {
	priorityTiesTotal.Inc()
}

// IncCommit outcome 取 ok / conflict / error
func IncCommit(outcome string) {
	commitsTotal.WithLabelValues(outcome).Inc()
}

// IncConfigCache result 取 hit / miss / error
func IncConfigCache(result string) {
	configCacheTotal.WithLabelValues(result).Inc()
}
