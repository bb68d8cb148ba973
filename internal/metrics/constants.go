package metrics

// Metric names
const (
	MetricNamePredictionsCreated    = "wingo_predictions_created_total"
	MetricNamePredictionsResolved   = "wingo_predictions_resolved_total"
	MetricNamePredictionsSuperseded = "wingo_predictions_superseded_total"
	MetricNameDimensionResults      = "wingo_dimension_results_total"
	MetricNameFeedRequests          = "wingo_feed_requests_total"
	MetricNameFeedRequestDuration   = "wingo_feed_request_duration_seconds"
	MetricNameBotCommands           = "wingo_bot_commands_total"
	MetricNamePollerTicks           = "wingo_poller_ticks_total"
)

// Metric help text
const (
	HelpTextPredictionsCreated    = "Total number of predictions created"
	HelpTextPredictionsResolved   = "Total number of predictions resolved, by final status"
	HelpTextPredictionsSuperseded = "Total number of pending predictions replaced before resolution"
	HelpTextDimensionResults      = "Win/loss results per prediction dimension"
	HelpTextFeedRequests          = "Total number of result feed requests, by outcome"
	HelpTextFeedRequestDuration   = "Result feed request latency in seconds"
	HelpTextBotCommands           = "Total number of chat commands handled, by command"
	HelpTextPollerTicks           = "Total number of background observe cycles, by outcome"
)

// Label names
const (
	LabelStatus    = "status"
	LabelDimension = "dimension"
	LabelResult    = "result"
	LabelCommand   = "command"
)

// Label values
const (
	DimensionNumber = "number"
	DimensionColor  = "color"
	DimensionSize   = "big_small"

	ResultWin  = "win"
	ResultLoss = "loss"

	FeedResultOK          = "ok"
	FeedResultUnavailable = "unavailable"
	FeedResultFormatError = "format_error"

	TickResolved  = "resolved"
	TickNewRound  = "new_round"
	TickUnchanged = "unchanged"
	TickError     = "error"
)

// FeedLatencyBuckets covers a fast feed up to the request timeout
var FeedLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
