// Command orderdesk-drill exercises a running order desk over HTTP.
//
//	orderdesk-drill [-addr URL] dupes [-copies 5] [-amount 1.00]
//	orderdesk-drill [-addr URL] race [-seed 970] [-trades 10] [-step 10]
//	orderdesk-drill [-addr URL] deactivate [-trades 10] [-amount 50] [-stagger 10ms] [-after 50ms]
//	orderdesk-drill [-addr URL] reset
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Base URL of the order desk")
	timeout := flag.Duration("timeout", 30*time.Second, "Per-request timeout")
	wait := flag.Duration("wait", 30*time.Second, "How long to wait for the server to become healthy")
	verbose := flag.Bool("v", false, "Log every rejection")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: orderdesk-drill [flags] dupes|race|deactivate|reset [subcommand flags]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := newAPIClient(*addr, *timeout)
	if err := api.waitHealthy(ctx, *wait); err != nil {
		logger.Error("server not healthy", slog.String("addr", *addr), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(ctx, api, logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Error("drill failed", slog.String("command", flag.Arg(0)), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, api *apiClient, logger *slog.Logger, cmd string, args []string) error {
	switch cmd {
	case "dupes":
		fs := flag.NewFlagSet("dupes", flag.ContinueOnError)
		copies := fs.Int("copies", 5, "Number of identical trades")
		amount := fs.String("amount", "1.00", "Amount of each trade")
		if err := fs.Parse(args); err != nil {
			return err
		}

		opts := dupesOptions{Copies: *copies}
		var err error
		if opts.Amount, err = decimal.NewFromString(*amount); err != nil {
			return fmt.Errorf("invalid -amount: %w", err)
		}
		if opts.Copies < 2 {
			return fmt.Errorf("-copies must be at least 2")
		}

		res, err := runDupes(ctx, api, opts, logger)
		if err != nil {
			return err
		}
		printRace(os.Stdout, res)
		return nil

	case "deactivate":
		fs := flag.NewFlagSet("deactivate", flag.ContinueOnError)
		trades := fs.Int("trades", 10, "Number of staggered trades")
		amount := fs.String("amount", "50", "Amount of each trade")
		stagger := fs.Duration("stagger", 10*time.Millisecond, "Gap between consecutive trades")
		after := fs.Duration("after", 50*time.Millisecond, "Delay before the consumer is deactivated")
		if err := fs.Parse(args); err != nil {
			return err
		}

		opts := deactivateOptions{Trades: *trades, Stagger: *stagger, After: *after}
		var err error
		if opts.Amount, err = decimal.NewFromString(*amount); err != nil {
			return fmt.Errorf("invalid -amount: %w", err)
		}
		if opts.Trades < 1 {
			return fmt.Errorf("-trades must be positive")
		}

		res, err := runDeactivate(ctx, api, opts, logger)
		if err != nil {
			return err
		}
		printRace(os.Stdout, res)
		return nil

	case "race":
		fs := flag.NewFlagSet("race", flag.ContinueOnError)
		seed := fs.String("seed", "970", "Amount the consumer is pushed below zero first")
		trades := fs.Int("trades", 10, "Number of concurrent trades")
		step := fs.String("step", "10", "Difference between consecutive trade amounts")
		if err := fs.Parse(args); err != nil {
			return err
		}

		opts := raceOptions{Trades: *trades}
		var err error
		if opts.Seed, err = decimal.NewFromString(*seed); err != nil {
			return fmt.Errorf("invalid -seed: %w", err)
		}
		if opts.Step, err = decimal.NewFromString(*step); err != nil {
			return fmt.Errorf("invalid -step: %w", err)
		}
		if opts.Trades < 1 || !opts.Step.IsPositive() {
			return fmt.Errorf("-trades and -step must be positive")
		}

		res, err := runRace(ctx, api, opts, logger)
		if err != nil {
			return err
		}
		printRace(os.Stdout, res)
		return nil

	case "reset":
		res, err := runReset(ctx, api, logger)
		if err != nil {
			return err
		}
		printReset(os.Stdout, res)
		if len(res.Failed) > 0 || len(res.Remaining) > 0 {
			return fmt.Errorf("%d clients could not be reset, %d still hold a balance", len(res.Failed), len(res.Remaining))
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
