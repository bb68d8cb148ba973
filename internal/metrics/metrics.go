package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction lifecycle metrics
var (
	PredictionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNamePredictionsCreated,
			Help: HelpTextPredictionsCreated,
		},
	)

	PredictionsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePredictionsResolved,
			Help: HelpTextPredictionsResolved,
		},
		[]string{LabelStatus},
	)

	PredictionsSuperseded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNamePredictionsSuperseded,
			Help: HelpTextPredictionsSuperseded,
		},
	)

	DimensionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameDimensionResults,
			Help: HelpTextDimensionResults,
		},
		[]string{LabelDimension, LabelResult},
	)
)

// Feed metrics
var (
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameFeedRequests,
			Help: HelpTextFeedRequests,
		},
		[]string{LabelResult},
	)

	FeedRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameFeedRequestDuration,
			Help:    HelpTextFeedRequestDuration,
			Buckets: FeedLatencyBuckets,
		},
	)
)

// Presentation metrics
var (
	BotCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameBotCommands,
			Help: HelpTextBotCommands,
		},
		[]string{LabelCommand},
	)

	PollerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePollerTicks,
			Help: HelpTextPollerTicks,
		},
		[]string{LabelResult},
	)
)

// RecordDimension counts one dimension outcome
func RecordDimension(dimension string, win bool) {
	result := ResultLoss
	if win {
		result = ResultWin
	}
	DimensionResults.WithLabelValues(dimension, result).Inc()
}
