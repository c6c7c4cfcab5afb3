package storage

import (
	"context"
	"errors"
	"time"
)

// Storage-level errors. The ledger maps these onto its domain taxonomy.
var (
	// ErrDuplicateKey reports an insert with a primary key that already exists.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrBalanceUnderflow reports a balance subtraction below zero.
	ErrBalanceUnderflow = errors.New("storage: balance underflow")

	// ErrBalanceOverflow reports a balance addition past the uint64 limit.
	ErrBalanceOverflow = errors.New("storage: balance overflow")
)

// Storage abstracts persistence for ledger accounts, token balances and the
// supporting tables (settings, jobs, auth). Get* methods return (nil, nil)
// when the record does not exist.
type Storage interface {
	// Tariffs
	CreateTariff(ctx context.Context, t Tariff) error
	GetTariff(ctx context.Context, id string) (*Tariff, error)
	SaveTariff(ctx context.Context, t Tariff) error
	ListTariffs(ctx context.Context) ([]Tariff, error)

	// Reservoirs
	CreateReservoir(ctx context.Context, r Reservoir) error
	GetReservoir(ctx context.Context, id string) (*Reservoir, error)
	SaveReservoir(ctx context.Context, r Reservoir) error
	ListReservoirs(ctx context.Context) ([]Reservoir, error)

	// Consumers
	CreateConsumer(ctx context.Context, c Consumer) error
	GetConsumer(ctx context.Context, id string) (*Consumer, error)
	SaveConsumer(ctx context.Context, c Consumer) error

	// Token directory (create-once, read-many)
	GetTokenDirectory(ctx context.Context) (*TokenDirectory, error)
	CreateTokenDirectory(ctx context.Context, d TokenDirectory) error

	// Token balances
	GetBalance(ctx context.Context, tokenID, account string) (uint64, error)
	AddToBalance(ctx context.Context, tokenID, account string, delta uint64) error
	SubFromBalance(ctx context.Context, tokenID, account string, delta uint64) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Scheduled jobs and single-writer locking
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)

	// Users
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// API tokens
	CreateToken(ctx context.Context, token Token) error
	GetTokenByHash(ctx context.Context, hash string) (*Token, error)
	UpdateTokenLastUsed(ctx context.Context, id string) error

	// Casbin rules
	LoadCasbinRules(ctx context.Context) ([]CasbinRule, error)
	AddCasbinRule(ctx context.Context, rule CasbinRule) error
	RemoveCasbinRule(ctx context.Context, rule CasbinRule) error

	// Email config
	GetEmailConfig(ctx context.Context) (*EmailConfig, error)
	SaveEmailConfig(ctx context.Context, config EmailConfig) error

	// WithinTx runs fn atomically: every write fn performs through the passed
	// Storage commits as one unit, or not at all. Backends without real
	// transactions serialize fn instead.
	WithinTx(ctx context.Context, fn func(Storage) error) error

	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}
