package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

type raceOptions struct {
	// Seed is how far below zero the consumer is pushed before the race.
	Seed   decimal.Decimal
	Trades int
	Step   decimal.Decimal
}

type raceOutcome struct {
	Label  string
	Amount decimal.Decimal
	Code   string // "ok" or the server error code
}

type raceResult struct {
	Scenario        string
	SupplierID      int64
	ConsumerID      int64
	Outcomes        []raceOutcome
	Deactivation    string // set by the deactivate scenario
	SupplierBalance decimal.Decimal
	ConsumerBalance decimal.Decimal
}

// Committed returns the amounts that were booked, largest first.
func (r *raceResult) Committed() []decimal.Decimal {
	var out []decimal.Decimal
	for _, o := range r.Outcomes {
		if o.Code == "ok" {
			out = append(out, o.Amount)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GreaterThan(out[j]) })
	return out
}

// Counts tallies outcomes by code.
func (r *raceResult) Counts() map[string]int {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		counts[o.Code]++
	}
	return counts
}

// raceAmounts returns n decreasing amounts: n*step, (n-1)*step, ..., step.
func raceAmounts(n int, step decimal.Decimal) []decimal.Decimal {
	amounts := make([]decimal.Decimal, n)
	for i := range amounts {
		amounts[i] = step.Mul(decimal.NewFromInt(int64(n - i)))
	}
	return amounts
}

// newPair creates a fresh supplier and consumer for one scenario run.
func newPair(ctx context.Context, api *apiClient, run string) (supplier, consumer *clientDTO, err error) {
	supplier, err = api.createClient(ctx, "drill supplier "+run, fmt.Sprintf("supplier-%s@drill.local", run))
	if err != nil {
		return nil, nil, fmt.Errorf("create supplier: %w", err)
	}
	consumer, err = api.createClient(ctx, "drill consumer "+run, fmt.Sprintf("consumer-%s@drill.local", run))
	if err != nil {
		return nil, nil, fmt.Errorf("create consumer: %w", err)
	}
	return supplier, consumer, nil
}

// fire submits every input from its own goroutine and releases them all at
// once. With a positive stagger the i-th submission waits (i+1)*stagger after
// the release. alongside, when set, runs concurrently with the submissions.
func fire(ctx context.Context, api *apiClient, inputs []tradeInput, stagger time.Duration, alongside func(), logger *slog.Logger) []raceOutcome {
	start := make(chan struct{})

	var side conc.WaitGroup
	if alongside != nil {
		side.Go(func() {
			<-start
			alongside()
		})
	}

	p := pool.NewWithResults[raceOutcome]().WithMaxGoroutines(len(inputs))
	for i, in := range inputs {
		p.Go(func() raceOutcome {
			<-start
			if stagger > 0 {
				time.Sleep(time.Duration(i+1) * stagger)
			}
			out := raceOutcome{Label: in.Label, Amount: in.Amount, Code: "ok"}
			if _, err := api.submit(ctx, in); err != nil {
				out.Code = errorCode(err)
				logger.Debug("trade rejected", slog.String("label", in.Label), slog.String("error", err.Error()))
			}
			return out
		})
	}
	close(start)

	outcomes := p.Wait()
	side.Wait()
	return outcomes
}

// readBalances fills in the final balances of both participants.
func readBalances(ctx context.Context, api *apiClient, res *raceResult) error {
	s, err := api.getClient(ctx, res.SupplierID)
	if err != nil {
		return fmt.Errorf("read supplier: %w", err)
	}
	c, err := api.getClient(ctx, res.ConsumerID)
	if err != nil {
		return fmt.Errorf("read consumer: %w", err)
	}
	res.SupplierBalance = s.Profit
	res.ConsumerBalance = c.Profit
	return nil
}

// runRace creates a fresh supplier and consumer, pushes the consumer Seed
// below zero and then submits all race amounts at once.
func runRace(ctx context.Context, api *apiClient, opts raceOptions, logger *slog.Logger) (*raceResult, error) {
	run := uuid.NewString()[:8]
	supplier, consumer, err := newPair(ctx, api, run)
	if err != nil {
		return nil, err
	}

	if opts.Seed.IsPositive() {
		_, err := api.submit(ctx, tradeInput{
			Label:      "Seed " + run,
			SupplierID: supplier.ID,
			ConsumerID: consumer.ID,
			Amount:     opts.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("seed consumer: %w", err)
		}
	}
	logger.Info("race prepared",
		slog.Int64("supplier_id", supplier.ID),
		slog.Int64("consumer_id", consumer.ID),
		slog.String("seed", opts.Seed.String()),
	)

	amounts := raceAmounts(opts.Trades, opts.Step)
	inputs := make([]tradeInput, len(amounts))
	for i, amount := range amounts {
		inputs[i] = tradeInput{
			Label:      fmt.Sprintf("Decreasing Order %d %s", i+1, run),
			SupplierID: supplier.ID,
			ConsumerID: consumer.ID,
			Amount:     amount,
		}
	}

	res := &raceResult{Scenario: "race", SupplierID: supplier.ID, ConsumerID: consumer.ID}
	res.Outcomes = fire(ctx, api, inputs, 0, nil, logger)
	if err := readBalances(ctx, api, res); err != nil {
		return nil, err
	}
	return res, nil
}

func printRace(w io.Writer, res *raceResult) {
	fmt.Fprintf(w, "scenario %s\n", res.Scenario)
	fmt.Fprintf(w, "supplier %d balance %s\n", res.SupplierID, res.SupplierBalance)
	fmt.Fprintf(w, "consumer %d balance %s\n", res.ConsumerID, res.ConsumerBalance)

	counts := res.Counts()
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "%-24s %d\n", code, counts[code])
	}
	if res.Deactivation != "" {
		fmt.Fprintf(w, "deactivation %s\n", res.Deactivation)
	}
	for _, amount := range res.Committed() {
		fmt.Fprintf(w, "committed %s\n", amount)
	}
}
