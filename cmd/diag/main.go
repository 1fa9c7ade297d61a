package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/star/darksky/internal/cache"
	"github.com/star/darksky/internal/darkness"
	"github.com/star/darksky/internal/ephemeris"
	"github.com/star/darksky/internal/nights"
	"github.com/star/darksky/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	lat, lon := 43.4494, -80.5752
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		fmt.Println("ERROR loading timezone:", err)
		os.Exit(1)
	}

	from := time.Now().In(loc)
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 30)
	start, end := nights.Span(from, to, loc)
	fmt.Printf("Nights %s .. %s at %.4f,%.4f\n", from.Format(nights.DateLayout), to.Format(nights.DateLayout), lat, lon)

	pool := ephemeris.NewWorkerPool(runtime.NumCPU())
	windows := cache.NewWindowCache(store.NewMemoryStore(), darkness.NewGenerator(pool).Generate, logger)

	began := time.Now()
	instants, err := windows.GetOrGenerate(context.Background(), start, end, lat, lon)
	if err != nil {
		fmt.Println("ERROR generating windows:", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d dark instants in %v using %d workers\n", len(instants), time.Since(began).Round(time.Millisecond), pool.Workers())

	results := nights.Summarize(context.Background(), nights.Request{
		Latitude:  lat,
		Longitude: lon,
		Location:  loc,
		From:      from,
		To:        to,
		Instants:  cache.Dedup(cache.Assemble(instants, start.Add(-time.Nanosecond), end)),
	})

	total := 0.0
	for _, n := range results {
		if n.Error != "" {
			fmt.Printf("  %s: ERROR %s\n", n.Date, n.Error)
			continue
		}
		total += n.DarkMinutes
		fmt.Printf("  %s: dark=%5.1fh moon=%3.0f%% windows=%d\n",
			n.Date, n.DarkMinutes/60, n.MoonIllumination*100, len(n.Windows))
		for j, w := range n.Windows {
			fmt.Printf("    window %d: %s - %s\n", j, w.Start.In(loc).Format("15:04"), w.End.In(loc).Format("15:04"))
		}
	}
	fmt.Printf("\nTotal dark hours: %.1f\n", total/60)
}
