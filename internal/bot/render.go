package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alias1177/SignalBot/internal/engine"
	"github.com/Alias1177/SignalBot/models"
)

const divider = "━━━━━━━━━━━━━━━"

const welcomeText = `👋 Welcome to the WinGo Signal Bot

Commands:
/signal - prediction for the next round, based on the latest result
/live - latest result, settles a pending prediction
/history - win/loss summary
/recent - last rounds from the feed
/help - show this message

Any other text is answered by the chat assistant.`

const relayDisabledText = "⚠️ OpenAI API key missing, chat replies are not available."

func signalText(p models.Prediction) string {
	var sb strings.Builder
	sb.WriteString("🎯 Signal (predicted for next issue)\n")
	sb.WriteString(divider + "\n")
	fmt.Fprintf(&sb, "🔁 Based on issue: %s\n", p.BasedOnIssueID)
	fmt.Fprintf(&sb, "🆔 Predicted issue: %s\n", p.TargetIssueID)
	fmt.Fprintf(&sb, "🔢 Predicted number: %d\n", p.Number)
	fmt.Fprintf(&sb, "🎨 Predicted color: %s\n", p.Color.Label())
	fmt.Fprintf(&sb, "📏 Predicted size: %s\n\n", p.Size)
	sb.WriteString("⚠️ Prediction saved. Use /live later to see the result.")
	return sb.String()
}

func liveText(obs engine.Observation) string {
	var sb strings.Builder
	if obs.Resolved != nil {
		sb.WriteString(ResolutionText(*obs.Resolved))
		sb.WriteString("\n")
	}
	o := obs.Outcome
	sb.WriteString("📡 Live result\n")
	sb.WriteString(divider + "\n")
	fmt.Fprintf(&sb, "🆔 Issue: %s\n", o.IssueID)
	fmt.Fprintf(&sb, "🔢 Number: %d\n", o.Number)
	fmt.Fprintf(&sb, "🎨 Color: %s\n", o.Color.Label())
	if o.FeedColor != "" {
		fmt.Fprintf(&sb, "🏷 Feed color: %s\n", o.FeedColor)
	}
	fmt.Fprintf(&sb, "📏 Size: %s\n", o.Size)
	return sb.String()
}

// ResolutionText announces a settled prediction
func ResolutionText(p models.Prediction) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔔 Previous prediction settled: %s\n", strings.ToUpper(string(p.Status)))
	fmt.Fprintf(&sb, "➡️ Predicted #%d (%s, %s)\n", p.Number, p.Color.Label(), p.Size)
	if r := p.Resolution; r != nil {
		fmt.Fprintf(&sb, "✔️ Actual #%d (%s, %s) in issue %s\n", r.ActualNumber, r.ActualColor.Label(), r.ActualSize, r.IssueID)
		fmt.Fprintf(&sb, "Number %s | Color %s | Size %s\n", mark(r.NumberWin), mark(r.ColorWin), mark(r.SizeWin))
	}
	return sb.String()
}

// HistoryText summarizes the counters and the last prediction
func HistoryText(stats models.Statistics, last *models.Prediction) string {
	var sb strings.Builder
	sb.WriteString("📊 Signal history summary\n")
	sb.WriteString(divider + "\n")
	writeCounter(&sb, "BIG/SMALL", stats.Size)
	writeCounter(&sb, "COLOR    ", stats.Color)
	writeCounter(&sb, "NUMBER   ", stats.Number)

	if last == nil {
		return sb.String()
	}
	sb.WriteString("\n📌 Last prediction:\n")
	fmt.Fprintf(&sb, "  Issue: %s\n", last.TargetIssueID)
	fmt.Fprintf(&sb, "  Number: %d\n", last.Number)
	fmt.Fprintf(&sb, "  Color: %s\n", last.Color.Label())
	fmt.Fprintf(&sb, "  Size: %s\n", last.Size)
	fmt.Fprintf(&sb, "  Status: %s\n", last.Status)
	fmt.Fprintf(&sb, "  Created: %s\n", formatTime(last.CreatedAt()))
	if r := last.Resolution; r != nil && !last.IsPending() {
		fmt.Fprintf(&sb, "  Resolved issue: %s\n", r.IssueID)
		fmt.Fprintf(&sb, "  Actual number: %d\n", r.ActualNumber)
		fmt.Fprintf(&sb, "  Wins: number=%t, color=%t, size=%t\n", r.NumberWin, r.ColorWin, r.SizeWin)
	}
	return sb.String()
}

func writeCounter(sb *strings.Builder, name string, c models.Counter) {
	fmt.Fprintf(sb, "%s → ✅ %d | ❌ %d (%.1f%%)\n", name, c.Win, c.Loss, c.WinRate())
}

func recentText(rounds []models.RoundOutcome) string {
	if len(rounds) == 0 {
		return "No rounds reported by the feed yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🕘 Last %d rounds\n", len(rounds))
	sb.WriteString(divider + "\n")
	for _, r := range rounds {
		fmt.Fprintf(&sb, "%s │ %d │ %s │ %s\n", r.IssueID, r.Number, r.Size, r.Color.Label())
	}
	return sb.String()
}

func errorText(err error) string {
	switch {
	case errors.Is(err, models.ErrFeedUnavailable):
		return fmt.Sprintf("⚠️ Could not fetch live data: %v", err)
	case errors.Is(err, models.ErrFeedFormat):
		return "⚠️ API response has an unexpected format."
	case errors.Is(err, models.ErrInvalidNumber):
		return "⚠️ Could not parse the round number."
	case errors.Is(err, models.ErrStoreIO):
		return "⚠️ Could not read or save the prediction state."
	default:
		return "⚠️ Something went wrong, try again later."
	}
}

func mark(win bool) string {
	if win {
		return "✅"
	}
	return "❌"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
