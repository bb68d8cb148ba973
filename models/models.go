package models

import (
	"time"
)

// ColorClass is the color a round number maps to
type ColorClass string

const (
	ColorGreen       ColorClass = "GREEN"
	ColorRed         ColorClass = "RED"
	ColorRedViolet   ColorClass = "RED_VIOLET"
	ColorGreenViolet ColorClass = "GREEN_VIOLET"
)

// Label returns the human readable color name shown in chat replies
func (c ColorClass) Label() string {
	switch c {
	case ColorRedViolet:
		return "RED & VIOLET"
	case ColorGreenViolet:
		return "GREEN & VIOLET"
	default:
		return string(c)
	}
}

// UnmarshalText accepts the display labels older state files stored in
// place of the class names.
func (c *ColorClass) UnmarshalText(text []byte) error {
	switch v := ColorClass(text); v.Label() {
	case ColorRedViolet.Label():
		*c = ColorRedViolet
	case ColorGreenViolet.Label():
		*c = ColorGreenViolet
	default:
		*c = v
	}
	return nil
}

// SizeClass splits numbers into SMALL (0-4) and BIG (5-9)
type SizeClass string

const (
	SizeSmall SizeClass = "SMALL"
	SizeBig   SizeClass = "BIG"
)

// PredictionStatus is the lifecycle state of a prediction
type PredictionStatus string

const (
	StatusPending PredictionStatus = "pending"
	StatusWon     PredictionStatus = "won"
	StatusLost    PredictionStatus = "lost"
)

// RoundOutcome is one concluded round as reported by the feed
type RoundOutcome struct {
	IssueID    string     `json:"issue"`
	Number     int        `json:"number"`
	Color      ColorClass `json:"color"`
	Size       SizeClass  `json:"size"`
	FeedColor  string     `json:"feed_color,omitempty"` // display only, never used for scoring
	ObservedAt time.Time  `json:"observed_at"`
}

// Resolution records the round a prediction was checked against
type Resolution struct {
	IssueID      string     `json:"issue"`
	ActualNumber int        `json:"actual_number"`
	ActualColor  ColorClass `json:"actual_color"`
	ActualSize   SizeClass  `json:"actual_size"`
	FeedColor    string     `json:"feed_color,omitempty"`
	NumberWin    bool       `json:"number_win"`
	ColorWin     bool       `json:"color_win"`
	SizeWin      bool       `json:"size_win"`
	ResolvedAt   int64      `json:"resolved_at"` // unix millis
}

// Prediction is a forecast for the round following BasedOnIssueID
type Prediction struct {
	ID             string           `json:"id"`
	TargetIssueID  string           `json:"predicted_issue"`
	BasedOnIssueID string           `json:"based_on_issue"`
	Number         int              `json:"predicted_number"`
	Color          ColorClass       `json:"predicted_color"`
	Size           SizeClass        `json:"predicted_size"`
	Timestamp      int64            `json:"timestamp"` // unix millis
	Status         PredictionStatus `json:"status"`
	Resolution     *Resolution      `json:"resolved_with,omitempty"`
}

// CreatedAt returns the creation time of the prediction
func (p Prediction) CreatedAt() time.Time {
	return FromMillis(p.Timestamp)
}

// IsPending reports whether the prediction still waits for a round
func (p Prediction) IsPending() bool {
	return p.Status == StatusPending
}

// Counter holds win/loss totals for one dimension
type Counter struct {
	Win  int `json:"win"`
	Loss int `json:"loss"`
}

// Total returns the number of resolved predictions counted
func (c Counter) Total() int {
	return c.Win + c.Loss
}

// WinRate returns wins as a percentage, 0 when nothing was counted
func (c Counter) WinRate() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.Win) / float64(c.Total()) * 100
}

// Statistics are the three independent win/loss counters
type Statistics struct {
	Size   Counter `json:"big_small"`
	Color  Counter `json:"color"`
	Number Counter `json:"number"`
}

// EngineState is the persisted aggregate owned by the prediction engine
type EngineState struct {
	History        Statistics  `json:"history"`
	RoundChecked   *string     `json:"round_checked"`
	LastPrediction *Prediction `json:"last_prediction"`
}

// Clone returns a deep copy so mutations never leak into the original
func (s EngineState) Clone() EngineState {
	out := EngineState{History: s.History}
	if s.RoundChecked != nil {
		round := *s.RoundChecked
		out.RoundChecked = &round
	}
	if s.LastPrediction != nil {
		pred := *s.LastPrediction
		if pred.Resolution != nil {
			res := *pred.Resolution
			pred.Resolution = &res
		}
		out.LastPrediction = &pred
	}
	return out
}
