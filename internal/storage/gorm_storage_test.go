package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestGormStorage(t *testing.T) *GormStorage {
	t.Helper()
	st, err := NewGormStorage("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewGormStorage failed: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestGormDuplicateKeyTranslation(t *testing.T) {
	st := newTestGormStorage(t)
	ctx := context.Background()

	tariff := Tariff{ID: "t1", Kind: "uniform_block", BaseRate: 500, WasteRate: 300}
	if err := st.CreateTariff(ctx, tariff); err != nil {
		t.Fatalf("CreateTariff failed: %v", err)
	}
	if err := st.CreateTariff(ctx, tariff); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate tariff: got %v, want ErrDuplicateKey", err)
	}

	d := TokenDirectory{ID: "default", UsageToken: "u", CapacityToken: "c"}
	if err := st.CreateTokenDirectory(ctx, d); err != nil {
		t.Fatalf("CreateTokenDirectory failed: %v", err)
	}
	if err := st.CreateTokenDirectory(ctx, d); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate directory: got %v, want ErrDuplicateKey", err)
	}
}

func TestGormBalances(t *testing.T) {
	st := newTestGormStorage(t)
	ctx := context.Background()

	if err := st.AddToBalance(ctx, "tok", "acct", 100); err != nil {
		t.Fatalf("AddToBalance failed: %v", err)
	}
	if err := st.SubFromBalance(ctx, "tok", "acct", 40); err != nil {
		t.Fatalf("SubFromBalance failed: %v", err)
	}
	if got, _ := st.GetBalance(ctx, "tok", "acct"); got != 60 {
		t.Errorf("balance = %d, want 60", got)
	}
	if err := st.SubFromBalance(ctx, "tok", "acct", 61); !errors.Is(err, ErrBalanceUnderflow) {
		t.Errorf("underflow: got %v, want ErrBalanceUnderflow", err)
	}
	if err := st.AddToBalance(ctx, "tok", "acct", ^uint64(0)); !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("overflow: got %v, want ErrBalanceOverflow", err)
	}
	if got, _ := st.GetBalance(ctx, "tok", "acct"); got != 60 {
		t.Errorf("balance after failed moves = %d, want 60", got)
	}
}
