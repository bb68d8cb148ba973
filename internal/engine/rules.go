package engine

import (
	"strings"
	"time"

	"github.com/Alias1177/SignalBot/internal/classify"
	"github.com/Alias1177/SignalBot/models"
)

// nextIssueSuffix marks a target id that could not be incremented
const nextIssueSuffix = "_next"

// Derive builds the pending prediction for the round after outcome
func Derive(outcome models.RoundOutcome, id string, now time.Time) (models.Prediction, error) {
	if err := classify.Validate(outcome.Number); err != nil {
		return models.Prediction{}, err
	}
	number := classify.NextNumber(outcome.Number)
	color, size, err := classify.Classify(number)
	if err != nil {
		return models.Prediction{}, err
	}
	return models.Prediction{
		ID:             id,
		TargetIssueID:  NextIssueID(outcome.IssueID),
		BasedOnIssueID: outcome.IssueID,
		Number:         number,
		Color:          color,
		Size:           size,
		Timestamp:      models.ToMillis(now),
		Status:         models.StatusPending,
	}, nil
}

// Resolve scores pred against outcome and bumps each counter on its own.
// The prediction is won only when all three dimensions win.
func Resolve(history *models.Statistics, pred *models.Prediction, outcome models.RoundOutcome, now time.Time) {
	res := &models.Resolution{
		IssueID:      outcome.IssueID,
		ActualNumber: outcome.Number,
		ActualColor:  outcome.Color,
		ActualSize:   outcome.Size,
		FeedColor:    outcome.FeedColor,
		NumberWin:    pred.Number == outcome.Number,
		ColorWin:     pred.Color == outcome.Color,
		SizeWin:      pred.Size == outcome.Size,
		ResolvedAt:   models.ToMillis(now),
	}

	count(&history.Number, res.NumberWin)
	count(&history.Color, res.ColorWin)
	count(&history.Size, res.SizeWin)

	pred.Status = models.StatusLost
	if res.NumberWin && res.ColorWin && res.SizeWin {
		pred.Status = models.StatusWon
	}
	pred.Resolution = res
}

func count(c *models.Counter, win bool) {
	if win {
		c.Win++
		return
	}
	c.Loss++
}

// NextIssueID increments an all-digit issue id in decimal, keeping its
// width unless it carries over. Anything else gets a suffix. The result is
// a guess and may not match the feed's next id.
func NextIssueID(issue string) string {
	if !allDigits(issue) {
		return issue + nextIssueSuffix
	}
	digits := []byte(issue)
	for i := len(digits) - 1; i >= 0; i-- {
		if digits[i] < '9' {
			digits[i]++
			return string(digits)
		}
		digits[i] = '0'
	}
	return "1" + string(digits)
}

// IssueBefore reports whether a is a numerically smaller issue id than b.
// Ids that are not all digits are never ordered.
func IssueBefore(a, b string) bool {
	if !allDigits(a) || !allDigits(b) {
		return false
	}
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func allDigits(s string) bool {
	return s != "" && strings.TrimLeft(s, "0123456789") == ""
}
