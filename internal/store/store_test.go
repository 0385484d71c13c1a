package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/shopspring/decimal"
)

// runStoreSuite checks behaviour every Store implementation must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users and profiles", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u := &models.User{Username: "alice", Email: "a@example.com", PasswordHash: "h"}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if u.ID == 0 {
			t.Fatal("CreateUser did not assign an ID")
		}

		dup := &models.User{Username: "alice", PasswordHash: "h"}
		if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
			t.Errorf("duplicate username error = %v, want ErrDuplicate", err)
		}

		got, err := s.UserByUsername(ctx, "alice")
		if err != nil || got.ID != u.ID {
			t.Fatalf("UserByUsername = %+v, %v", got, err)
		}
		if _, err := s.UserByID(ctx, u.ID+1000); !errors.Is(err, ErrNotFound) {
			t.Errorf("UserByID(missing) error = %v, want ErrNotFound", err)
		}

		if err := s.CreateProfile(ctx, u.ID, decimal.RequireFromString("100000")); err != nil {
			t.Fatalf("CreateProfile: %v", err)
		}
		if err := s.SetBalance(ctx, u.ID, decimal.RequireFromString("99000.50")); err != nil {
			t.Fatalf("SetBalance: %v", err)
		}
		p, err := s.Profile(ctx, u.ID)
		if err != nil {
			t.Fatalf("Profile: %v", err)
		}
		if !p.Balance.Equal(decimal.RequireFromString("99000.50")) {
			t.Errorf("balance = %s, want 99000.50", p.Balance)
		}

		u.FirstName = "Alice"
		if err := s.UpdateUser(ctx, *u); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		got, _ = s.UserByID(ctx, u.ID)
		if got.FirstName != "Alice" {
			t.Errorf("FirstName = %q, want Alice", got.FirstName)
		}
	})

	t.Run("holdings and transactions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		userID := mustUser(t, s, "bob")

		port, err := s.EnsurePortfolio(ctx, userID)
		if err != nil {
			t.Fatalf("EnsurePortfolio: %v", err)
		}
		again, err := s.EnsurePortfolio(ctx, userID)
		if err != nil || again.ID != port.ID {
			t.Fatalf("EnsurePortfolio is not idempotent: %+v, %v", again, err)
		}

		h := &models.StockHolding{
			PortfolioID:     port.ID,
			StockSymbol:     "TCS.NS",
			StockName:       "Tata Consultancy Services",
			Quantity:        10,
			AverageBuyPrice: decimal.RequireFromString("3500.00"),
		}
		if err := s.SaveHolding(ctx, h); err != nil {
			t.Fatalf("SaveHolding insert: %v", err)
		}
		h.Quantity = 4
		if err := s.SaveHolding(ctx, h); err != nil {
			t.Fatalf("SaveHolding update: %v", err)
		}
		got, err := s.Holding(ctx, port.ID, "TCS.NS")
		if err != nil || got.Quantity != 4 {
			t.Fatalf("Holding = %+v, %v", got, err)
		}

		dup := &models.StockHolding{PortfolioID: port.ID, StockSymbol: "TCS.NS", Quantity: 1, AverageBuyPrice: decimal.NewFromInt(1)}
		if err := s.SaveHolding(ctx, dup); !errors.Is(err, ErrDuplicate) {
			t.Errorf("duplicate holding error = %v, want ErrDuplicate", err)
		}

		if err := s.DeleteHolding(ctx, h.ID); err != nil {
			t.Fatalf("DeleteHolding: %v", err)
		}
		if _, err := s.Holding(ctx, port.ID, "TCS.NS"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Holding after delete error = %v, want ErrNotFound", err)
		}

		if _, err := s.FirstTransactionAt(ctx, port.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("FirstTransactionAt(empty) error = %v, want ErrNotFound", err)
		}

		for i := 1; i <= 3; i++ {
			txn := &models.Transaction{
				PortfolioID:     port.ID,
				StockSymbol:     "TCS.NS",
				TransactionType: models.Buy,
				Quantity:        int64(i),
				Price:           decimal.NewFromInt(100),
			}
			if err := s.InsertTransaction(ctx, txn); err != nil {
				t.Fatalf("InsertTransaction: %v", err)
			}
		}

		latest, err := s.Transactions(ctx, port.ID, 2)
		if err != nil {
			t.Fatalf("Transactions: %v", err)
		}
		if len(latest) != 2 || latest[0].Quantity != 3 || latest[1].Quantity != 2 {
			t.Errorf("Transactions(limit 2) = %+v, want quantities 3, 2", latest)
		}
		all, _ := s.Transactions(ctx, port.ID, 0)
		if len(all) != 3 {
			t.Errorf("Transactions(all) returned %d, want 3", len(all))
		}
		if _, err := s.FirstTransactionAt(ctx, port.ID); err != nil {
			t.Errorf("FirstTransactionAt: %v", err)
		}

		owners, err := s.PortfolioOwners(ctx)
		if err != nil || len(owners) != 1 || owners[0].UserID != userID {
			t.Errorf("PortfolioOwners = %+v, %v", owners, err)
		}
	})

	t.Run("rolled back transaction leaves no trace", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		userID := mustUser(t, s, "carol")
		boom := errors.New("boom")

		err := s.WithinTx(ctx, func(q Queries) error {
			if err := q.SetBalance(ctx, userID, decimal.Zero); err != nil {
				return err
			}
			if _, err := q.EnsurePortfolio(ctx, userID); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithinTx error = %v, want boom", err)
		}

		p, _ := s.Profile(ctx, userID)
		if !p.Balance.Equal(decimal.NewFromInt(100000)) {
			t.Errorf("balance after rollback = %s, want 100000", p.Balance)
		}
		if _, err := s.Portfolio(ctx, userID); !errors.Is(err, ErrNotFound) {
			t.Errorf("portfolio after rollback error = %v, want ErrNotFound", err)
		}
	})

	t.Run("challenges", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		alice := mustUser(t, s, "alice")
		bob := mustUser(t, s, "bob")

		start := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)
		c := &models.Challenge{
			Name:           "Weekly",
			CreatorID:      alice,
			StartDate:      start,
			EndDate:        start.Add(24 * time.Hour),
			InitialBalance: models.DefaultChallengeBalance,
		}
		if err := s.CreateChallenge(ctx, c); err != nil {
			t.Fatalf("CreateChallenge: %v", err)
		}

		for _, uid := range []int64{alice, bob} {
			if err := s.AddParticipant(ctx, &models.ChallengeParticipant{UserID: uid, ChallengeID: c.ID}); err != nil {
				t.Fatalf("AddParticipant: %v", err)
			}
		}
		err := s.AddParticipant(ctx, &models.ChallengeParticipant{UserID: bob, ChallengeID: c.ID})
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("duplicate participant error = %v, want ErrDuplicate", err)
		}

		parts, err := s.Participants(ctx, c.ID)
		if err != nil || len(parts) != 2 {
			t.Fatalf("Participants = %+v, %v", parts, err)
		}
		if parts[0].Username == "" {
			t.Error("Participants did not fill usernames")
		}

		ended, err := s.EndedChallenges(ctx, time.Now())
		if err != nil || len(ended) != 1 {
			t.Fatalf("EndedChallenges = %+v, %v", ended, err)
		}

		for _, p := range parts {
			if err := s.SetFinalValue(ctx, p.ID, decimal.NewFromInt(123)); err != nil {
				t.Fatalf("SetFinalValue: %v", err)
			}
		}
		ended, _ = s.EndedChallenges(ctx, time.Now())
		if len(ended) != 0 {
			t.Errorf("EndedChallenges after freezing = %d, want 0", len(ended))
		}

		p, err := s.Participant(ctx, c.ID, bob)
		if err != nil || !p.FinalPortfolioValue.Valid {
			t.Errorf("Participant = %+v, %v", p, err)
		}
		ids, _ := s.UserChallengeIDs(ctx, bob)
		if len(ids) != 1 || ids[0] != c.ID {
			t.Errorf("UserChallengeIDs = %v, want [%d]", ids, c.ID)
		}
	})
}

func mustUser(t *testing.T, s Store, name string) int64 {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "h"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	if err := s.CreateProfile(ctx, u.ID, decimal.NewFromInt(100000)); err != nil {
		t.Fatalf("CreateProfile(%s): %v", name, err)
	}
	return u.ID
}
