package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"candlehub/internal/app"
	"candlehub/internal/config"
	"candlehub/internal/fetcher"
	"candlehub/internal/logger"
	"candlehub/internal/watchlist"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "fetch":
		err = runFetch(ctx, cfg, os.Args[2:])
	case "batch":
		err = runBatch(ctx, cfg, os.Args[2:])
	case "watch":
		err = runWatchlist(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  candlehub fetch <symbol> [-interval 1d] [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-refresh] [-providers a,b] [-rows 10]
  candlehub batch [-interval 1d] [-refresh] [symbols...]
  candlehub watch add|remove|list [symbol]
  candlehub watch run [-interval 1d]`)
}

func runFetch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	interval := fs.String("interval", "1d", "candle interval (1m, 5m, 1h, 1d...)")
	startRaw := fs.String("start", "", "range start, YYYY-MM-DD")
	endRaw := fs.String("end", "", "range end, YYYY-MM-DD")
	refresh := fs.Bool("refresh", false, "bypass cache freshness")
	providers := fs.String("providers", "", "explicit comma-separated provider order")
	rows := fs.Int("rows", 10, "rows to print (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("fetch: symbol required")
	}

	start, err := parseDate(*startRaw)
	if err != nil {
		return err
	}
	end, err := parseDate(*endRaw)
	if err != nil {
		return err
	}

	a := app.New(cfg)
	res, err := a.Fetcher.Fetch(ctx, fetcher.Request{
		Instrument:   fs.Arg(0),
		Interval:     *interval,
		Start:        start,
		End:          end,
		ForceRefresh: *refresh,
		Providers:    splitProviders(*providers),
	})
	if err != nil {
		return err
	}
	printTable(fs.Arg(0), res, *rows)
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	interval := fs.String("interval", "1d", "candle interval")
	refresh := fs.Bool("refresh", false, "bypass cache freshness")
	if err := fs.Parse(args); err != nil {
		return err
	}

	symbols := fs.Args()
	if len(symbols) == 0 {
		wl, err := watchlist.Load(cfg.Watchlist)
		if err != nil {
			return fmt.Errorf("load watchlist: %w", err)
		}
		symbols = wl.Symbols
	}
	if len(symbols) == 0 {
		return fmt.Errorf("batch: no symbols given and watchlist is empty")
	}

	a := app.New(cfg)
	results := a.Fetcher.FetchBatch(ctx, symbols, fetcher.BatchRequest{
		Interval:     *interval,
		ForceRefresh: *refresh,
		Concurrency:  cfg.Batch.Concurrency,
	})
	printBatch(symbols, results)
	return nil
}

func printBatch(symbols []string, results map[string]*fetcher.Result) {
	for _, sym := range symbols {
		res, ok := results[sym]
		if !ok {
			fmt.Printf("%-12s  no data\n", sym)
			continue
		}
		stale := ""
		if res.Stale {
			stale = " (stale)"
		}
		last, ok := res.Table.Last()
		if !ok {
			fmt.Printf("%-12s     0 rows  source=%s%s\n", sym, res.Source, stale)
			continue
		}
		fmt.Printf("%-12s  %4d rows  close=%.4f  source=%s%s\n",
			sym, res.Table.Len(), last.Close, res.Source, stale)
	}
}

func runWatchlist(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("watch: add, remove, list or run required")
	}
	if args[0] == "run" {
		return runWatchFollow(ctx, cfg, args[1:])
	}
	wl, err := watchlist.Load(cfg.Watchlist)
	if err != nil {
		return err
	}
	switch args[0] {
	case "list":
		for _, s := range wl.Symbols {
			fmt.Println(s)
		}
		return nil
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("watch add: symbol required")
		}
		wl.Add(args[1])
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("watch remove: symbol required")
		}
		wl.Remove(args[1])
	default:
		return fmt.Errorf("watch: unknown action %q", args[0])
	}
	return watchlist.Save(cfg.Watchlist, wl)
}

// runWatchFollow fetches the watchlist once, then refetches whenever the
// file changes, until the context is cancelled.
func runWatchFollow(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch run", flag.ExitOnError)
	interval := fs.String("interval", "1d", "candle interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, err := watchlist.Watch(cfg.Watchlist)
	if err != nil {
		return err
	}
	defer w.Close()

	a := app.New(cfg)
	refetch := func(symbols []string) {
		if len(symbols) == 0 {
			logger.Infof("watchlist is empty, waiting for changes")
			return
		}
		results := a.Fetcher.FetchBatch(ctx, symbols, fetcher.BatchRequest{
			Interval:    *interval,
			Concurrency: cfg.Batch.Concurrency,
		})
		printBatch(symbols, results)
	}

	refetch(w.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case symbols := <-w.Updates():
			logger.Infof("watchlist changed, refetching %d symbols", len(symbols))
			refetch(symbols)
		}
	}
}

func printTable(symbol string, res *fetcher.Result, limit int) {
	stale := ""
	if res.Stale {
		stale = " (stale)"
	}
	fmt.Printf("%s  %d rows  source=%s%s\n", symbol, res.Table.Len(), res.Source, stale)
	rows := res.Table.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	for _, c := range rows {
		vol := "-"
		if c.HasVolume() {
			vol = fmt.Sprintf("%.0f", c.Volume)
		}
		fmt.Printf("%s  O=%.4f H=%.4f L=%.4f C=%.4f V=%s\n",
			c.Time.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, vol)
	}
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return ts.UTC(), nil
}

func splitProviders(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
