package wingo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/SignalBot/internal/classify"
	"github.com/Alias1177/SignalBot/models"
)

// historyResponse is the feed envelope, only the fields we read
type historyResponse struct {
	Data *struct {
		List []rawRound `json:"list"`
	} `json:"data"`
}

// rawRound keeps every field raw since the feed mixes strings and numbers
type rawRound struct {
	IssueNumber json.RawMessage `json:"issueNumber"`
	Issue       json.RawMessage `json:"issue"`
	Number      json.RawMessage `json:"number"`
	Color       json.RawMessage `json:"color"`
}

func parseHistory(body []byte, limit int, observedAt time.Time) ([]models.RoundOutcome, error) {
	var data historyResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, models.Fail(models.ErrFeedFormat, "parse rounds", fmt.Errorf("parsing JSON: %w", err))
	}
	if data.Data == nil || len(data.Data.List) == 0 {
		return nil, models.Fail(models.ErrFeedFormat, "parse rounds", errors.New("empty data.list"))
	}

	list := data.Data.List
	if len(list) > limit {
		list = list[:limit]
	}

	rounds := make([]models.RoundOutcome, 0, len(list))
	for i, raw := range list {
		round, err := raw.toOutcome(observedAt)
		if err != nil {
			return nil, models.Fail(models.ErrFeedFormat, fmt.Sprintf("parse round %d", i), err)
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func (r rawRound) toOutcome(observedAt time.Time) (models.RoundOutcome, error) {
	issue, ok := scalarString(r.IssueNumber)
	if !ok {
		issue, ok = scalarString(r.Issue)
	}
	if !ok || issue == "" {
		return models.RoundOutcome{}, errors.New("missing issueNumber")
	}

	rawNumber, ok := scalarString(r.Number)
	if !ok {
		return models.RoundOutcome{}, errors.New("missing number")
	}
	number, err := parseNumber(rawNumber)
	if err != nil {
		return models.RoundOutcome{}, err
	}

	// out of range numbers are a feed data bug, reported as InvalidNumber
	color, size, err := classify.Classify(number)
	if err != nil {
		return models.RoundOutcome{}, err
	}

	feedColor, _ := scalarString(r.Color)

	return models.RoundOutcome{
		IssueID:    issue,
		Number:     number,
		Color:      color,
		Size:       size,
		FeedColor:  strings.ToUpper(feedColor),
		ObservedAt: observedAt,
	}, nil
}

// scalarString reads a JSON string or number as text
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

// parseNumber accepts "7", " 7 ", "1,234" and integral floats like "7.0"
func parseNumber(s string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if n, err := strconv.Atoi(cleaned); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("unparseable number %q", s)
	}
	return int(f), nil
}
