package users

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/ripbid/internal/infra/pgtestutil"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/google/uuid"
)

func seedUser(t *testing.T, db *sql.DB, id uuid.UUID, credit int64) {
	t.Helper()

	pgtestutil.MustExec(t, db, `
		INSERT INTO users (id, site_credit) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET site_credit = EXCLUDED.site_credit
	`, id, credit)
}

func TestUsers_DecreaseCredit_Table(t *testing.T) {
	t.Parallel()

	type tc struct {
		name          string
		seed          int64 // -1 => no user row
		amount        int64
		wantBalance   int64
		wantErr       error
		checkFinalBal bool
	}

	tests := []tc{
		{name: "sufficient_credit_decrease_from_positive", seed: 1_000, amount: 250, wantBalance: 750, checkFinalBal: true},
		{name: "sufficient_credit_exact_to_zero", seed: 300, amount: 300, wantBalance: 0, checkFinalBal: true},
		{name: "insufficient_credit_balance_unchanged", seed: 200, amount: 300, wantBalance: 200, wantErr: users.ErrInsufficientCredits, checkFinalBal: true},
		{name: "user_missing_treated_as_insufficient", seed: -1, amount: 100, wantErr: users.ErrInsufficientCredits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			userID := uuid.New()
			if tt.seed >= 0 {
				seedUser(t, db, userID, tt.seed)
			}

			repo := New(db)

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin tx: %v", err)
			}
			defer func() { _ = tx.Rollback() }()

			got, err := repo.DecreaseCredit(tx, userID, tt.amount)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got: %v", tt.wantErr, err)
				}
			} else {
				if err != nil {
					t.Fatalf("decrease credit: %v", err)
				}
				if got != tt.wantBalance {
					t.Fatalf("returned balance: want %d, got %d", tt.wantBalance, got)
				}
				err = tx.Commit()
				if err != nil {
					t.Fatalf("commit: %v", err)
				}
			}

			if tt.checkFinalBal {
				final, gerr := repo.GetCredit(ctx, userID)
				if gerr != nil {
					t.Fatalf("get credit after decrease: %v", gerr)
				}
				if final != tt.wantBalance {
					t.Fatalf("final balance mismatch: want %d, got %d", tt.wantBalance, final)
				}
			}
		})
	}
}

// Two debits of the full balance race; exactly one may win.
func TestUsers_DecreaseCredit_ConcurrentGuard(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	userID := uuid.New()
	seedUser(t, db, userID, 1000)

	var (
		wg                    sync.WaitGroup
		mu                    sync.Mutex
		success, insufficient int
	)

	worker := func(name string) {
		defer wg.Done()

		tx, err := db.BeginTx(context.Background(), nil)
		if err != nil {
			t.Errorf("[%s] begin tx: %v", name, err)
			return
		}
		defer func() { _ = tx.Rollback() }()

		_, err = repo.LockAndGetCredit(tx, userID)
		if err != nil {
			t.Errorf("[%s] lock credit: %v", name, err)
			return
		}

		_, err = repo.DecreaseCredit(tx, userID, 1000)
		switch {
		case err == nil:
			mu.Lock()
			success++
			mu.Unlock()

			if cerr := tx.Commit(); cerr != nil {
				t.Errorf("[%s] commit: %v", name, cerr)
			}
		case errors.Is(err, users.ErrInsufficientCredits):
			mu.Lock()
			insufficient++
			mu.Unlock()
		default:
			t.Errorf("[%s] unexpected error: %v", name, err)
		}
	}

	wg.Add(2)
	go worker("A")
	go worker("B")
	wg.Wait()

	if success != 1 || insufficient != 1 {
		t.Fatalf("want 1 success and 1 insufficient, got success=%d insufficient=%d", success, insufficient)
	}
}
