package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aquastack/aquameter/internal/storage"
)

// Token role names, used as metric labels and id prefixes.
const (
	RoleUsage         = "usage"
	RoleCapacity      = "capacity"
	RoleWaste         = "waste"
	RoleWasteCapacity = "waste_capacity"
	RoleCredit        = "credit"
)

// TokenSet holds the concrete token ids for each ledger role. It is resolved
// once at startup and injected into the Service.
type TokenSet struct {
	Usage         string
	Capacity      string
	Waste         string
	WasteCapacity string
	Credit        string
}

func newTokenID(role string) string {
	return role + "-" + uuid.NewString()
}

func tokenSetFromDirectory(d storage.TokenDirectory) TokenSet {
	return TokenSet{
		Usage:         d.UsageToken,
		Capacity:      d.CapacityToken,
		Waste:         d.WasteToken,
		WasteCapacity: d.WasteCapacityToken,
		Credit:        d.CreditToken,
	}
}

// InitializeTokens mints the deployment's token directory on first call and
// returns the existing one on every call after that. Two instances racing the
// first initialization both come back with the same set: the loser of the
// insert re-reads the winner's row.
func InitializeTokens(ctx context.Context, store storage.Storage) (TokenSet, error) {
	existing, err := store.GetTokenDirectory(ctx)
	if err != nil {
		return TokenSet{}, fmt.Errorf("load token directory: %w", err)
	}
	if existing != nil {
		return tokenSetFromDirectory(*existing), nil
	}

	d := storage.TokenDirectory{
		ID:                 "default",
		UsageToken:         newTokenID(RoleUsage),
		CapacityToken:      newTokenID(RoleCapacity),
		WasteToken:         newTokenID(RoleWaste),
		WasteCapacityToken: newTokenID(RoleWasteCapacity),
		CreditToken:        newTokenID(RoleCredit),
	}
	if err := store.CreateTokenDirectory(ctx, d); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			winner, err := store.GetTokenDirectory(ctx)
			if err != nil {
				return TokenSet{}, fmt.Errorf("reload token directory: %w", err)
			}
			if winner == nil {
				return TokenSet{}, fmt.Errorf("token directory vanished after duplicate insert")
			}
			return tokenSetFromDirectory(*winner), nil
		}
		return TokenSet{}, fmt.Errorf("create token directory: %w", err)
	}
	return tokenSetFromDirectory(d), nil
}
