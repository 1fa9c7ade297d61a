package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/star/darksky/internal/planner"
)

// Flags shared by every offline command.
func locationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "start", Usage: "First date", Required: true},
		&cli.StringFlag{Name: "end", Usage: "Last date", Required: true},
		&cli.FloatFlag{Name: "lat", Usage: "Observer latitude in degrees", Required: true},
		&cli.FloatFlag{Name: "lon", Usage: "Observer longitude in degrees", Required: true},
	}
}

func tzFlag() cli.Flag {
	return &cli.StringFlag{Name: "tz", Usage: "IANA timezone for output (defaults to config)"}
}

func warmCommand() *cli.Command {
	return &cli.Command{
		Name:      "warm",
		Usage:     "Generate and store dark windows for every month in a date range",
		UsageText: "darksky warm --start 2024-01-01 --end 2024-12-31 --lat 43.45 --lon -80.58",
		Flags:     locationFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			var bar *progressbar.ProgressBar
			res, err := a.planner.Warm(ctx, planner.WarmRequest{
				StartDate: cmd.String("start"),
				EndDate:   cmd.String("end"),
				Latitude:  cmd.Float("lat"),
				Longitude: cmd.Float("lon"),
			}, func(done, total int) {
				if bar == nil {
					bar = progressbar.Default(int64(total), "warming")
				}
				_ = bar.Set(done)
			})
			if err != nil {
				return err
			}
			fmt.Printf("%d month(s) covered, %d generated\n", res.Buckets, res.Generated)
			return nil
		},
	}
}

func windowsCommand() *cli.Command {
	return &cli.Command{
		Name:      "windows",
		Usage:     "Print dark instants between two UTC minutes",
		UsageText: `darksky windows --start "2024-03-10 00:00" --end "2024-03-11 00:00" --lat 43.45 --lon -80.58`,
		Flags:     append(locationFlags(), tzFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.planner.OptimalTimes(ctx, planner.OptimalTimesRequest{
				StartDate: cmd.String("start"),
				EndDate:   cmd.String("end"),
				Latitude:  cmd.Float("lat"),
				Longitude: cmd.Float("lon"),
				Timezone:  cmd.String("tz"),
			})
			if err != nil {
				return err
			}
			for _, s := range out {
				fmt.Println(s)
			}
			return nil
		},
	}
}

func sessionsCommand() *cli.Command {
	flags := append(locationFlags(),
		tzFlag(),
		&cli.StringFlag{Name: "target", Usage: "Catalog id or name, e.g. M31"},
		&cli.FloatFlag{Name: "ra", Usage: "Right ascension in degrees (with --dec, bypasses the catalog)"},
		&cli.FloatFlag{Name: "dec", Usage: "Declination in degrees"},
		&cli.FloatFlag{Name: "min-alt", Usage: "Minimum altitude in degrees", Value: 30},
		&cli.FloatFlag{Name: "min-length", Usage: "Minimum session length in minutes", Value: 60},
	)
	return &cli.Command{
		Name:      "sessions",
		Usage:     "Print observing sessions for a target from stored windows",
		UsageText: "darksky sessions --start 2024-03-01 --end 2024-03-31 --lat 43.45 --lon -80.58 --target M42",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			req := planner.TargetSessionsRequest{
				StartDate:         cmd.String("start"),
				EndDate:           cmd.String("end"),
				Latitude:          cmd.Float("lat"),
				Longitude:         cmd.Float("lon"),
				TargetID:          cmd.String("target"),
				MinAltitude:       cmd.Float("min-alt"),
				MinSessionMinutes: cmd.Float("min-length"),
				Timezone:          cmd.String("tz"),
			}
			if cmd.IsSet("ra") {
				ra := cmd.Float("ra")
				req.RA = &ra
			}
			if cmd.IsSet("dec") {
				dec := cmd.Float("dec")
				req.Dec = &dec
			}

			out, err := a.planner.TargetSessions(ctx, req)
			if err != nil {
				return err
			}
			if len(out) == 0 {
				fmt.Fprintln(os.Stderr, "no sessions; run `darksky warm` for this range first if it was never generated")
			}
			return printJSON(out)
		},
	}
}

func nightsCommand() *cli.Command {
	return &cli.Command{
		Name:      "nights",
		Usage:     "Summarize darkness night by night",
		UsageText: "darksky nights --start 2024-03-01 --end 2024-03-07 --lat 43.45 --lon -80.58 --tz America/Toronto",
		Flags:     append(locationFlags(), tzFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.planner.Nights(ctx, planner.NightsRequest{
				StartDate: cmd.String("start"),
				EndDate:   cmd.String("end"),
				Latitude:  cmd.Float("lat"),
				Longitude: cmd.Float("lon"),
				Timezone:  cmd.String("tz"),
			})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
