package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
)

func newTestClient(name, email string) *domain.Client {
	return &domain.Client{
		Name:    name,
		Email:   email,
		Balance: decimal.Zero,
		Active:  true,
	}
}

func mustCreate(t *testing.T, s *Memory, name, email string) *domain.Client {
	t.Helper()
	c := newTestClient(name, email)
	if err := s.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("create client %s: %v", name, err)
	}
	return c
}

func TestMemory_CreateClient_AssignsAscendingIDs(t *testing.T) {
	s := NewMemory()
	a := mustCreate(t, s, "a", "a@example.com")
	b := mustCreate(t, s, "b", "b@example.com")

	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("got ids %d, %d, want 1, 2", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemory_CreateClient_DuplicateEmail(t *testing.T) {
	s := NewMemory()
	mustCreate(t, s, "a", "dup@example.com")

	err := s.CreateClient(context.Background(), newTestClient("b", "  DUP@example.com"))
	if !errors.Is(err, domain.ErrDuplicateResource) {
		t.Fatalf("got %v, want ErrDuplicateResource", err)
	}
}

func TestMemory_GetClient_NotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.GetClient(context.Background(), 99)
	if !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("got %v, want ErrClientNotFound", err)
	}
}

func TestMemory_GetClient_ReturnsCopy(t *testing.T) {
	s := NewMemory()
	c := mustCreate(t, s, "a", "a@example.com")

	got, _ := s.GetClient(context.Background(), c.ID)
	got.Balance = decimal.NewFromInt(500)

	again, _ := s.GetClient(context.Background(), c.ID)
	if !again.Balance.IsZero() {
		t.Fatalf("store state mutated through snapshot: %s", again.Balance)
	}
}

func TestMemory_WithinTx_CommitAppliesAll(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	a := mustCreate(t, s, "a", "a@example.com")
	b := mustCreate(t, s, "b", "b@example.com")

	trade := &domain.Trade{Label: "t1", SupplierID: a.ID, ConsumerID: b.ID, Amount: decimal.NewFromInt(10)}
	err := s.WithinTx(ctx, func(tx Tx) error {
		sup, err := tx.ClientForUpdate(ctx, a.ID)
		if err != nil {
			return err
		}
		con, err := tx.ClientForUpdate(ctx, b.ID)
		if err != nil {
			return err
		}
		sup.Balance = sup.Balance.Add(trade.Amount)
		con.Balance = con.Balance.Sub(trade.Amount)
		if err := tx.SaveClient(ctx, sup); err != nil {
			return err
		}
		if err := tx.SaveClient(ctx, con); err != nil {
			return err
		}
		return tx.AppendTrade(ctx, trade)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.ID != 1 {
		t.Errorf("trade id = %d, want 1", trade.ID)
	}

	gotA, _ := s.GetClient(ctx, a.ID)
	gotB, _ := s.GetClient(ctx, b.ID)
	if !gotA.Balance.Equal(decimal.NewFromInt(10)) || !gotB.Balance.Equal(decimal.NewFromInt(-10)) {
		t.Errorf("balances = %s, %s, want 10, -10", gotA.Balance, gotB.Balance)
	}
	if s.locks.Len() != 0 {
		t.Errorf("locks still held after commit: %d", s.locks.Len())
	}
}

func TestMemory_WithinTx_RollbackDiscardsAll(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	a := mustCreate(t, s, "a", "a@example.com")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Tx) error {
		c, err := tx.ClientForUpdate(ctx, a.ID)
		if err != nil {
			return err
		}
		c.Balance = decimal.NewFromInt(999)
		if err := tx.SaveClient(ctx, c); err != nil {
			return err
		}
		if err := tx.AppendTrade(ctx, &domain.Trade{Label: "x", SupplierID: a.ID, ConsumerID: 2}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	got, _ := s.GetClient(ctx, a.ID)
	if !got.Balance.IsZero() {
		t.Errorf("balance = %s after rollback, want 0", got.Balance)
	}
	trades, _ := s.ListTrades(ctx)
	if len(trades) != 0 {
		t.Errorf("got %d trades after rollback, want 0", len(trades))
	}
	if s.locks.Len() != 0 {
		t.Errorf("locks still held after rollback: %d", s.locks.Len())
	}
}

func TestMemory_ClientForUpdate_NotFoundReleasesLock(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.ClientForUpdate(ctx, 5)
		return err
	})
	if !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("got %v, want ErrClientNotFound", err)
	}
	if s.locks.Len() != 0 {
		t.Errorf("lock leaked for missing client")
	}
}

func TestMemory_ClientForUpdate_BlocksSecondHolder(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	a := mustCreate(t, s, "a", "a@example.com")

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.WithinTx(ctx, func(tx Tx) error {
			if _, err := tx.ClientForUpdate(ctx, a.ID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	err := s.WithinTx(waitCtx, func(tx Tx) error {
		_, err := tx.ClientForUpdate(waitCtx, a.ID)
		return err
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded while another unit holds the client", err)
	}
	close(release)
}

func TestMemory_SaveClient_RequiresHold(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	a := mustCreate(t, s, "a", "a@example.com")

	err := s.WithinTx(ctx, func(tx Tx) error {
		return tx.SaveClient(ctx, a)
	})
	if err == nil {
		t.Fatal("expected error saving a client that was not acquired")
	}
}

func TestMemory_AppendTrade_DuplicateWithinTx(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx Tx) error {
		if err := tx.AppendTrade(ctx, &domain.Trade{Label: "x", SupplierID: 1, ConsumerID: 2}); err != nil {
			return err
		}
		return tx.AppendTrade(ctx, &domain.Trade{Label: "x", SupplierID: 1, ConsumerID: 2})
	})
	if !errors.Is(err, domain.ErrDuplicateTrade) {
		t.Fatalf("got %v, want ErrDuplicateTrade", err)
	}
}

func TestMemory_Commit_RechecksTradeKey(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	key := domain.Trade{Label: "race", SupplierID: 1, ConsumerID: 2}

	err := s.WithinTx(ctx, func(tx Tx) error {
		first := key
		if err := tx.AppendTrade(ctx, &first); err != nil {
			return err
		}
		// A second unit commits the same key before this one does.
		return s.WithinTx(ctx, func(inner Tx) error {
			second := key
			return inner.AppendTrade(ctx, &second)
		})
	})
	if !errors.Is(err, domain.ErrDuplicateTrade) {
		t.Fatalf("got %v, want ErrDuplicateTrade from the commit-time guard", err)
	}

	trades, _ := s.ListTrades(ctx)
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want exactly 1", len(trades))
	}
}

func TestMemory_FindTrade_DirectionalKey(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_ = s.WithinTx(ctx, func(tx Tx) error {
		return tx.AppendTrade(ctx, &domain.Trade{Label: "k", SupplierID: 1, ConsumerID: 2})
	})

	_ = s.WithinTx(ctx, func(tx Tx) error {
		got, err := tx.FindTrade(ctx, domain.TradeKey{Label: "k", SupplierID: 1, ConsumerID: 2})
		if err != nil || got == nil {
			t.Errorf("expected to find trade, got %v, %v", got, err)
		}
		got, err = tx.FindTrade(ctx, domain.TradeKey{Label: "k", SupplierID: 2, ConsumerID: 1})
		if err != nil || got != nil {
			t.Errorf("swapped roles must be a different key, got %v, %v", got, err)
		}
		return nil
	})
}

func TestMemory_TradeListings_NewestFirst(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	add := func(label string, sup, con int64, at time.Time) {
		t.Helper()
		err := s.WithinTx(ctx, func(tx Tx) error {
			return tx.AppendTrade(ctx, &domain.Trade{Label: label, SupplierID: sup, ConsumerID: con, CreatedAt: at})
		})
		if err != nil {
			t.Fatalf("append %s: %v", label, err)
		}
	}
	add("t1", 1, 2, base)
	add("t2", 2, 3, base.Add(time.Minute))
	add("t3", 1, 3, base.Add(2*time.Minute))
	add("t4", 3, 1, base.Add(2*time.Minute)) // same timestamp, higher id

	labels := func(ts []*domain.Trade) []string {
		out := make([]string, len(ts))
		for i, tr := range ts {
			out[i] = tr.Label
		}
		return out
	}
	assertLabels := func(name string, got []*domain.Trade, want ...string) {
		t.Helper()
		gl := labels(got)
		if len(gl) != len(want) {
			t.Fatalf("%s: got %v, want %v", name, gl, want)
		}
		for i := range want {
			if gl[i] != want[i] {
				t.Fatalf("%s: got %v, want %v", name, gl, want)
			}
		}
	}

	all, _ := s.ListTrades(ctx)
	assertLabels("all", all, "t4", "t3", "t2", "t1")
	byClient, _ := s.TradesByClient(ctx, 1)
	assertLabels("client 1", byClient, "t4", "t3", "t1")
	supplied, _ := s.TradesBySupplier(ctx, 1)
	assertLabels("supplied by 1", supplied, "t3", "t1")
	consumed, _ := s.TradesByConsumer(ctx, 3)
	assertLabels("consumed by 3", consumed, "t3", "t2")

	got, err := s.GetTrade(ctx, 2)
	if err != nil || got.Label != "t2" {
		t.Fatalf("GetTrade(2) = %v, %v", got, err)
	}
	if _, err := s.GetTrade(ctx, 42); !errors.Is(err, domain.ErrTradeNotFound) {
		t.Fatalf("GetTrade(42) error = %v, want ErrTradeNotFound", err)
	}
}

func TestMemory_SearchAndBalanceRange(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	a := mustCreate(t, s, "Alice Cooper", "alice@example.com")
	b := mustCreate(t, s, "Bob Marley", "bob@reggae.org")

	_ = s.WithinTx(ctx, func(tx Tx) error {
		c, _ := tx.ClientForUpdate(ctx, b.ID)
		c.Balance = decimal.NewFromInt(-500)
		return tx.SaveClient(ctx, c)
	})

	found, _ := s.SearchClients(ctx, "REGGAE")
	if len(found) != 1 || found[0].ID != b.ID {
		t.Fatalf("search got %v", found)
	}

	inRange, _ := s.ClientsByBalance(ctx, decimal.NewFromInt(-500), decimal.Zero)
	if len(inRange) != 2 {
		t.Fatalf("range [-500, 0] got %d clients, want 2", len(inRange))
	}
	negative, _ := s.ClientsByBalance(ctx, decimal.NewFromInt(-1000), decimal.NewFromInt(-1))
	if len(negative) != 1 || negative[0].ID != b.ID {
		t.Fatalf("range [-1000, -1] got %v", negative)
	}

	all, _ := s.ListClients(ctx)
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Fatalf("list got %v", all)
	}
}

func TestMemory_Commit_EmailChangeCollision(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	mustCreate(t, s, "a", "a@example.com")
	b := mustCreate(t, s, "b", "b@example.com")

	err := s.WithinTx(ctx, func(tx Tx) error {
		c, err := tx.ClientForUpdate(ctx, b.ID)
		if err != nil {
			return err
		}
		c.Email = "A@example.com"
		return tx.SaveClient(ctx, c)
	})
	if !errors.Is(err, domain.ErrDuplicateResource) {
		t.Fatalf("got %v, want ErrDuplicateResource", err)
	}

	err = s.WithinTx(ctx, func(tx Tx) error {
		c, err := tx.ClientForUpdate(ctx, b.ID)
		if err != nil {
			return err
		}
		c.Email = "b2@example.com"
		return tx.SaveClient(ctx, c)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The old address is free again.
	if err := s.CreateClient(ctx, newTestClient("c", "b@example.com")); err != nil {
		t.Fatalf("old email should be reusable: %v", err)
	}
}
