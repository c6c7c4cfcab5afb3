package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
//
// WithinTx serializes transactions but does not roll back: callers (the
// ledger service) validate every precondition before the first mutation, so
// a failed operation never leaves partial state behind.
type MemoryStorage struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	tariffs     map[string]Tariff
	reservoirs  map[string]Reservoir
	consumers   map[string]Consumer
	directory   *TokenDirectory
	balances    map[string]map[string]uint64 // tokenID -> account -> amount
	settings    map[string]string
	jobs        map[string]ScheduledJob
	users       map[string]User
	tokens      map[string]Token
	casbinRules []CasbinRule
	emailConfig *EmailConfig
	locks       map[int64]bool
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		tariffs:    make(map[string]Tariff),
		reservoirs: make(map[string]Reservoir),
		consumers:  make(map[string]Consumer),
		balances:   make(map[string]map[string]uint64),
		settings:   make(map[string]string),
		jobs:       make(map[string]ScheduledJob),
		users:      make(map[string]User),
		tokens:     make(map[string]Token),
		locks:      make(map[int64]bool),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

// Tariffs

func (m *MemoryStorage) CreateTariff(ctx context.Context, t Tariff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tariffs[t.ID]; ok {
		return ErrDuplicateKey
	}
	m.tariffs[t.ID] = t
	return nil
}

func (m *MemoryStorage) GetTariff(ctx context.Context, id string) (*Tariff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tariffs[id]
	if !ok {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

func (m *MemoryStorage) SaveTariff(ctx context.Context, t Tariff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tariffs[t.ID] = t
	return nil
}

func (m *MemoryStorage) ListTariffs(ctx context.Context) ([]Tariff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tariff, 0, len(m.tariffs))
	for _, t := range m.tariffs {
		out = append(out, t)
	}
	return out, nil
}

// Reservoirs

func (m *MemoryStorage) CreateReservoir(ctx context.Context, r Reservoir) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservoirs[r.ID]; ok {
		return ErrDuplicateKey
	}
	m.reservoirs[r.ID] = r
	return nil
}

func (m *MemoryStorage) GetReservoir(ctx context.Context, id string) (*Reservoir, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservoirs[id]
	if !ok {
		return nil, nil
	}
	cp := r
	return &cp, nil
}

func (m *MemoryStorage) SaveReservoir(ctx context.Context, r Reservoir) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservoirs[r.ID] = r
	return nil
}

func (m *MemoryStorage) ListReservoirs(ctx context.Context) ([]Reservoir, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Reservoir, 0, len(m.reservoirs))
	for _, r := range m.reservoirs {
		out = append(out, r)
	}
	return out, nil
}

// Consumers

func (m *MemoryStorage) CreateConsumer(ctx context.Context, c Consumer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.consumers[c.ID]; ok {
		return ErrDuplicateKey
	}
	m.consumers[c.ID] = c
	return nil
}

func (m *MemoryStorage) GetConsumer(ctx context.Context, id string) (*Consumer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.consumers[id]
	if !ok {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

func (m *MemoryStorage) SaveConsumer(ctx context.Context, c Consumer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumers[c.ID] = c
	return nil
}

// Token directory

func (m *MemoryStorage) GetTokenDirectory(ctx context.Context) (*TokenDirectory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.directory == nil {
		return nil, nil
	}
	cp := *m.directory
	return &cp, nil
}

func (m *MemoryStorage) CreateTokenDirectory(ctx context.Context, d TokenDirectory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.directory != nil {
		return ErrDuplicateKey
	}
	m.directory = &d
	return nil
}

// Balances

func (m *MemoryStorage) GetBalance(ctx context.Context, tokenID, account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[tokenID][account], nil
}

func (m *MemoryStorage) AddToBalance(ctx context.Context, tokenID, account string, delta uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[tokenID] == nil {
		m.balances[tokenID] = make(map[string]uint64)
	}
	held := m.balances[tokenID][account]
	if held+delta < held {
		return ErrBalanceOverflow
	}
	m.balances[tokenID][account] = held + delta
	return nil
}

func (m *MemoryStorage) SubFromBalance(ctx context.Context, tokenID, account string, delta uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := m.balances[tokenID][account]
	if held < delta {
		return ErrBalanceUnderflow
	}
	if m.balances[tokenID] == nil {
		m.balances[tokenID] = make(map[string]uint64)
	}
	m.balances[tokenID][account] = held - delta
	return nil
}

// Settings

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// Scheduled jobs and locking

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := 0
	if success {
		status = 1
	}
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return nil
}

func (m *MemoryStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *MemoryStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locks[key] {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

// Users

func (m *MemoryStorage) CreateUser(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

func (m *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

// API tokens

func (m *MemoryStorage) CreateToken(ctx context.Context, token Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
	return nil
}

func (m *MemoryStorage) GetTokenByHash(ctx context.Context, hash string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) UpdateTokenLastUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil
	}
	now := time.Now()
	t.LastUsedAt = &now
	m.tokens[id] = t
	return nil
}

// Casbin rules

func (m *MemoryStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CasbinRule, len(m.casbinRules))
	copy(out, m.casbinRules)
	return out, nil
}

func (m *MemoryStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casbinRules = append(m.casbinRules, rule)
	return nil
}

func (m *MemoryStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.casbinRules[:0]
	for _, r := range m.casbinRules {
		if r.PType == rule.PType && r.V0 == rule.V0 && r.V1 == rule.V1 && r.V2 == rule.V2 {
			continue
		}
		out = append(out, r)
	}
	m.casbinRules = out
	return nil
}

// Email config

func (m *MemoryStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.emailConfig == nil {
		return nil, nil
	}
	cp := *m.emailConfig
	return &cp, nil
}

func (m *MemoryStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailConfig = &config
	return nil
}

// WithinTx serializes the callback against other transactions. Individual
// operations remain internally locked, so fn sees a consistent store.
func (m *MemoryStorage) WithinTx(ctx context.Context, fn func(Storage) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}
