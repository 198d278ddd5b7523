package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/propflow/mailtriage/internal/rate"
	"github.com/propflow/mailtriage/internal/runtime"
	"github.com/propflow/mailtriage/internal/triage"
)

type classifyConfig struct {
	cfgDir string
	max    int64
	query  string
	apply  bool
	asJSON bool
	rps    int
	fanOut int
}

func main() {
	cfg := parseClassifyFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailtriage-classify failed", "error", err)
		os.Exit(1)
	}
}

func parseClassifyFlags() classifyConfig {
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	max := flag.Int64("max", 20, "maximum messages to classify")
	query := flag.String("query", "", "Gmail search query")
	apply := flag.Bool("apply", false, "write categories to Gmail labels")
	asJSON := flag.Bool("json", false, "emit JSON instead of a table")
	rps := flag.Int("rps", 4, "max requests per second")
	fanOut := flag.Int("fan-out", 5, "concurrent per-message detail fetches")
	flag.Parse()

	return classifyConfig{
		cfgDir: *cfgDir,
		max:    *max,
		query:  *query,
		apply:  *apply,
		asJSON: *asJSON,
		rps:    *rps,
		fanOut: *fanOut,
	}
}

func run(cfg classifyConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	client, err := runtime.NewLocalClient(ctx, cfg.cfgDir)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	var limiter rate.Limiter = rate.None{}
	if cfg.rps > 0 {
		bucket := rate.NewTokenBucket(cfg.rps)
		defer bucket.Stop()
		limiter = bucket
	}

	fetcher := triage.NewFetcher(client, limiter, logger)
	if cfg.fanOut > 0 {
		fetcher.FanOut = cfg.fanOut
	}

	msgs, err := fetcher.ListClassified(ctx, cfg.max, cfg.query)
	if err != nil {
		return fmt.Errorf("list classified: %w", err)
	}

	if cfg.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summarize(msgs)); encErr != nil {
			return fmt.Errorf("encode output: %w", encErr)
		}
	} else {
		for _, m := range msgs {
			fmt.Printf("%-16s  %-40.40s  %s\n", m.Category, m.Header("Subject"), m.Header("From"))
		}
	}

	if !cfg.apply {
		return nil
	}

	sync := triage.NewSynchronizer(client, limiter, logger)
	for _, m := range msgs {
		if err := sync.SetCategory(ctx, m.ID, m.Category); err != nil {
			return fmt.Errorf("apply category for %s: %w", m.ID, err)
		}
	}
	logger.Info("categories applied", "count", len(msgs))
	return nil
}

type summary struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Category string `json:"category"`
}

func summarize(msgs []triage.Message) []summary {
	out := make([]summary, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, summary{
			ID:       string(m.ID),
			Subject:  m.Header("Subject"),
			From:     m.Header("From"),
			Category: m.Category.String(),
		})
	}
	return out
}
