package users

import (
	"context"
	"errors"
	"testing"

	"github.com/fastprodman/ripbid/internal/infra/pgtestutil"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/google/uuid"
)

func TestUsers_EnsureAndExists(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	userID := uuid.New()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = repo.Exists(tx, userID)
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}

	for range 2 {
		err = repo.Ensure(tx, userID)
		if err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}

	err = repo.Exists(tx, userID)
	if err != nil {
		t.Fatalf("exists after ensure: %v", err)
	}

	bal, err := repo.IncreaseCredit(tx, userID, 2500)
	if err != nil {
		t.Fatalf("increase: %v", err)
	}
	if bal != 2500 {
		t.Fatalf("balance after grant: want 2500, got %d", bal)
	}

	err = tx.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := repo.GetCredit(context.Background(), userID)
	if err != nil || got != 2500 {
		t.Fatalf("get credit: %d, %v", got, err)
	}
}

func TestUsers_GetCredit_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	_, err := New(db).GetCredit(context.Background(), uuid.New())
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestUsers_IncreaseCredit_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = New(db).IncreaseCredit(tx, uuid.New(), 10)
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}
