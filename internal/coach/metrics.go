package coach

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perform_analyses_total",
		Help: "Pipeline invocations by mode (video, text, chat) and outcome.",
	}, []string{"mode", "outcome"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perform_fallbacks_total",
		Help: "Synthetic-result degradations by reason.",
	}, []string{"reason"})
)
