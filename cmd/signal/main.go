package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/app"
	"github.com/Alias1177/SignalBot/internal/config"
	"github.com/Alias1177/SignalBot/internal/logger"
	"github.com/Alias1177/SignalBot/models"
)

const usage = `usage: signal [-json] <command>

commands:
  predict        derive and store a prediction for the next round
  live           fetch the latest round and settle a pending prediction
  history        print win/loss counters and the last prediction
  recent [n]     list the last n rounds (default 10)
`

func main() {
	asJSON := flag.Bool("json", false, "print JSON instead of text")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize signal engine")
	}
	defer a.Close()

	out := printer{w: os.Stdout, json: *asJSON}
	if err := run(ctx, a, flag.Args(), out); err != nil {
		log.Error().Err(err).Msg("Command failed")
		stop()
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, args []string, out printer) error {
	switch args[0] {
	case "predict":
		pred, err := a.Engine.Predict(ctx)
		if err != nil {
			return err
		}
		return out.print(pred, func(w io.Writer) {
			fmt.Fprintf(w, "issue %s -> %s: number %d, %s, %s\n",
				pred.BasedOnIssueID, pred.TargetIssueID, pred.Number, pred.Color.Label(), pred.Size)
		})
	case "live":
		obs, err := a.Engine.ObserveAndResolve(ctx)
		if err != nil {
			return err
		}
		return out.print(obs, func(w io.Writer) {
			o := obs.Outcome
			fmt.Fprintf(w, "issue %s: number %d, %s, %s\n", o.IssueID, o.Number, o.Color.Label(), o.Size)
			if p := obs.Resolved; p != nil {
				fmt.Fprintf(w, "prediction %s settled: %s\n", p.ID, p.Status)
			}
		})
	case "history":
		stats, last, err := a.Engine.Snapshot(ctx)
		if err != nil {
			return err
		}
		payload := map[string]any{"history": stats, "last_prediction": last}
		return out.print(payload, func(w io.Writer) {
			printCounter(w, "big/small", stats.Size)
			printCounter(w, "color", stats.Color)
			printCounter(w, "number", stats.Number)
			if last != nil {
				fmt.Fprintf(w, "last prediction: issue %s, number %d, %s\n", last.TargetIssueID, last.Number, last.Status)
			}
		})
	case "recent":
		limit := 10
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid round count %q", args[1])
			}
			limit = n
		}
		rounds, err := a.Feed.FetchHistory(ctx, limit)
		if err != nil {
			return err
		}
		return out.print(rounds, func(w io.Writer) {
			for _, r := range rounds {
				fmt.Fprintf(w, "%s  %d  %-5s  %s\n", r.IssueID, r.Number, r.Size, r.Color.Label())
			}
		})
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type printer struct {
	w    io.Writer
	json bool
}

func (p printer) print(v any, text func(io.Writer)) error {
	if !p.json {
		text(p.w)
		return nil
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCounter(w io.Writer, name string, c models.Counter) {
	fmt.Fprintf(w, "%-9s win %d  loss %d  (%.1f%%)\n", name, c.Win, c.Loss, c.WinRate())
}
