package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type dupesOptions struct {
	Copies int
	Amount decimal.Decimal
}

// runDupes submits Copies identical trades at once. Exactly one of them may
// commit; the rest must come back as duplicate_trade.
func runDupes(ctx context.Context, api *apiClient, opts dupesOptions, logger *slog.Logger) (*raceResult, error) {
	run := uuid.NewString()[:8]
	supplier, consumer, err := newPair(ctx, api, run)
	if err != nil {
		return nil, err
	}

	in := tradeInput{
		Label:      "Similar Order " + run,
		SupplierID: supplier.ID,
		ConsumerID: consumer.ID,
		Amount:     opts.Amount,
	}
	inputs := make([]tradeInput, opts.Copies)
	for i := range inputs {
		inputs[i] = in
	}
	logger.Info("dupes prepared", slog.Int("copies", opts.Copies), slog.String("label", in.Label))

	res := &raceResult{Scenario: "dupes", SupplierID: supplier.ID, ConsumerID: consumer.ID}
	res.Outcomes = fire(ctx, api, inputs, 0, nil, logger)
	if err := readBalances(ctx, api, res); err != nil {
		return nil, err
	}
	return res, nil
}

type deactivateOptions struct {
	Trades  int
	Amount  decimal.Decimal
	Stagger time.Duration // gap between consecutive submissions
	After   time.Duration // when the consumer is deactivated
}

// runDeactivate submits staggered trades while the consumer is deactivated
// part way through. Every trade either commits before the deactivation or is
// rejected as inactive_participant.
func runDeactivate(ctx context.Context, api *apiClient, opts deactivateOptions, logger *slog.Logger) (*raceResult, error) {
	run := uuid.NewString()[:8]
	supplier, consumer, err := newPair(ctx, api, run)
	if err != nil {
		return nil, err
	}

	inputs := make([]tradeInput, opts.Trades)
	for i := range inputs {
		inputs[i] = tradeInput{
			Label:      fmt.Sprintf("Order %d %s", i+1, run),
			SupplierID: supplier.ID,
			ConsumerID: consumer.ID,
			Amount:     opts.Amount,
		}
	}

	res := &raceResult{Scenario: "deactivate", SupplierID: supplier.ID, ConsumerID: consumer.ID}
	res.Outcomes = fire(ctx, api, inputs, opts.Stagger, func() {
		time.Sleep(opts.After)
		res.Deactivation = "ok"
		if _, err := api.deactivate(ctx, consumer.ID); err != nil {
			res.Deactivation = errorCode(err)
			logger.Warn("deactivation failed", slog.Int64("client_id", consumer.ID), slog.String("error", err.Error()))
		}
	}, logger)
	if err := readBalances(ctx, api, res); err != nil {
		return nil, err
	}
	return res, nil
}
