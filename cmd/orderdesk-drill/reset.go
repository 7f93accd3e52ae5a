package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// systemPrefix marks clients created by reset runs. They are left out of
// verification.
const systemPrefix = "SYSTEM_PROFIT_RESET"

// plannedTrade is one offsetting trade that returns a client to zero.
type plannedTrade struct {
	ClientID int64
	Input    tradeInput
}

type resetPlan struct {
	Trades  []plannedTrade
	Skipped []int64 // inactive clients with a non-zero balance
}

// planReset builds the trades that bring every active client back to zero
// against the system client. Clients in profit are offset first so the
// system client gains before it has to absorb losses.
func planReset(clients []clientDTO, systemID int64, run string) resetPlan {
	var plan resetPlan
	var losses []plannedTrade

	for _, c := range clients {
		if c.ID == systemID || c.Profit.IsZero() {
			continue
		}
		if !c.Active {
			plan.Skipped = append(plan.Skipped, c.ID)
			continue
		}

		label := fmt.Sprintf("Profit reset %d %s", c.ID, run)
		if c.Profit.IsPositive() {
			plan.Trades = append(plan.Trades, plannedTrade{ClientID: c.ID, Input: tradeInput{
				Label:      label,
				SupplierID: systemID,
				ConsumerID: c.ID,
				Amount:     c.Profit,
			}})
			continue
		}
		losses = append(losses, plannedTrade{ClientID: c.ID, Input: tradeInput{
			Label:      label,
			SupplierID: c.ID,
			ConsumerID: systemID,
			Amount:     c.Profit.Abs(),
		}})
	}

	plan.Trades = append(plan.Trades, losses...)
	return plan
}

type resetFailure struct {
	ClientID int64
	Code     string
}

type resetResult struct {
	SystemID int64
	Reset    []int64
	Skipped  []int64
	Failed   []resetFailure

	// Filled by verifyReset.
	Remaining []clientDTO
	Total     decimal.Decimal
}

// runReset zeroes every active client's balance through a freshly created
// system client. Rejections are reported, never retried.
func runReset(ctx context.Context, api *apiClient, logger *slog.Logger) (*resetResult, error) {
	run := uuid.NewString()[:8]

	clients, err := api.listClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	system, err := api.createClient(ctx, systemPrefix+" "+run, fmt.Sprintf("system-%s@drill.local", run))
	if err != nil {
		return nil, fmt.Errorf("create system client: %w", err)
	}

	plan := planReset(clients, system.ID, run)
	res := &resetResult{SystemID: system.ID, Skipped: plan.Skipped}
	for _, pt := range plan.Trades {
		if _, err := api.submit(ctx, pt.Input); err != nil {
			logger.Warn("reset trade rejected",
				slog.Int64("client_id", pt.ClientID),
				slog.String("error", err.Error()),
			)
			res.Failed = append(res.Failed, resetFailure{ClientID: pt.ClientID, Code: errorCode(err)})
			continue
		}
		res.Reset = append(res.Reset, pt.ClientID)
	}

	if err := verifyReset(ctx, api, res); err != nil {
		return nil, err
	}
	return res, nil
}

// verifyReset re-reads every client and records the active, non-system ones
// that still carry a balance.
func verifyReset(ctx context.Context, api *apiClient, res *resetResult) error {
	clients, err := api.listClients(ctx)
	if err != nil {
		return fmt.Errorf("verify: list clients: %w", err)
	}

	res.Remaining = nil
	res.Total = decimal.Zero
	for _, c := range clients {
		if !c.Active || strings.HasPrefix(c.Name, systemPrefix) {
			continue
		}
		res.Total = res.Total.Add(c.Profit)
		if !c.Profit.IsZero() {
			res.Remaining = append(res.Remaining, c)
		}
	}
	return nil
}

func printReset(w io.Writer, res *resetResult) {
	fmt.Fprintf(w, "system client %d\n", res.SystemID)
	fmt.Fprintf(w, "reset   %d\n", len(res.Reset))
	fmt.Fprintf(w, "skipped %d\n", len(res.Skipped))
	for _, id := range res.Skipped {
		fmt.Fprintf(w, "  client %d inactive\n", id)
	}
	fmt.Fprintf(w, "failed  %d\n", len(res.Failed))
	for _, f := range res.Failed {
		fmt.Fprintf(w, "  client %d %s\n", f.ClientID, f.Code)
	}
	fmt.Fprintf(w, "remaining %d (total %s)\n", len(res.Remaining), res.Total)
	for _, c := range res.Remaining {
		fmt.Fprintf(w, "  client %d balance %s\n", c.ID, c.Profit)
	}
}
