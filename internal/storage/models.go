package storage

import "time"

// Tariff is a stored rate schedule. Rate fields are fixed-point integers
// scaled by ledger.Scale; which of them apply depends on Kind.
type Tariff struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	WasteRate   uint64    `json:"waste_rate" gorm:"column:waste_rate"`
	Kind        string    `json:"kind" gorm:"column:kind"`
	BaseRate    uint64    `json:"base_rate" gorm:"column:base_rate"`
	ExcessRate  uint64    `json:"excess_rate" gorm:"column:excess_rate"`
	Sensitivity uint64    `json:"sensitivity" gorm:"column:sensitivity"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Reservoir is a stored water source. CurrentLevel is externally reported
// (telemetry) and may exceed Capacity on overflow readings.
type Reservoir struct {
	ID                string    `json:"id" gorm:"primaryKey;column:id"`
	CurrentLevel      uint64    `json:"current_level" gorm:"column:current_level"`
	Capacity          uint64    `json:"capacity" gorm:"column:capacity"`
	MaxAllowableWaste uint64    `json:"max_allowable_waste" gorm:"column:max_allowable_waste"`
	MinAllowableLevel uint64    `json:"min_allowable_level" gorm:"column:min_allowable_level"`
	CreditRate        uint64    `json:"credit_rate" gorm:"column:credit_rate"`
	TelemetrySource   string    `json:"telemetry_source,omitempty" gorm:"column:telemetry_source"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Consumer is a metering subject with non-owning references to its assigned
// tariff and reservoir.
type Consumer struct {
	ID                      string    `json:"id" gorm:"primaryKey;column:id"`
	TariffID                string    `json:"tariff_id" gorm:"column:tariff_id"`
	ReservoirID             string    `json:"reservoir_id" gorm:"column:reservoir_id"`
	ContractedCapacity      uint64    `json:"contracted_capacity" gorm:"column:contracted_capacity"`
	ContractedWasteCapacity uint64    `json:"contracted_waste_capacity" gorm:"column:contracted_waste_capacity"`
	BlockRate               uint64    `json:"block_rate" gorm:"column:block_rate"`
	CreatedAt               time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt               time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TokenDirectory maps logical token roles to concrete token identifiers.
// Exactly one row exists per deployment (primary key "default").
type TokenDirectory struct {
	ID                 string    `json:"id" gorm:"primaryKey;column:id"`
	UsageToken         string    `json:"usage_token" gorm:"column:usage_token"`
	CapacityToken      string    `json:"capacity_token" gorm:"column:capacity_token"`
	WasteToken         string    `json:"waste_token" gorm:"column:waste_token"`
	WasteCapacityToken string    `json:"waste_capacity_token" gorm:"column:waste_capacity_token"`
	CreditToken        string    `json:"credit_token" gorm:"column:credit_token"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at"`
}

// Balance is one account's holding of one token.
type Balance struct {
	TokenID string `json:"token_id" gorm:"primaryKey;column:token_id"`
	Account string `json:"account" gorm:"primaryKey;column:account"`
	Amount  uint64 `json:"amount" gorm:"column:amount"`
}

// Setting is a key/value runtime setting (worker intervals and the like).
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob records the last outcome of a background job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}

// User represents a registered operator or consumer login.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;column:id"`
	Username     string    `json:"username" gorm:"unique;column:username"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         string    `json:"role" gorm:"column:role"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Token represents an API access token (hash stored, raw value shown once).
type Token struct {
	ID         string     `json:"id" gorm:"primaryKey;column:id"`
	UserID     string     `json:"user_id" gorm:"column:user_id"`
	Name       string     `json:"name" gorm:"column:name"`
	TokenHash  string     `json:"-" gorm:"column:token_hash"`
	Role       string     `json:"role" gorm:"column:role"`
	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" gorm:"column:last_used_at"`
}

// CasbinRule represents a policy rule for RBAC.
type CasbinRule struct {
	ID    uint   `gorm:"primaryKey"`
	PType string `json:"ptype" gorm:"column:ptype"`
	V0    string `json:"v0" gorm:"column:v0"`
	V1    string `json:"v1" gorm:"column:v1"`
	V2    string `json:"v2" gorm:"column:v2"`
	V3    string `json:"v3" gorm:"column:v3"`
	V4    string `json:"v4" gorm:"column:v4"`
	V5    string `json:"v5" gorm:"column:v5"`
}

// EmailConfig holds configuration for email notifications.
type EmailConfig struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	Provider    string    `json:"provider" gorm:"column:provider"` // "smtp", "sendgrid"
	Host        string    `json:"host,omitempty" gorm:"column:host"`
	Port        int       `json:"port,omitempty" gorm:"column:port"`
	Username    string    `json:"username,omitempty" gorm:"column:username"`
	Password    string    `json:"password,omitempty" gorm:"column:password"`
	FromAddress string    `json:"from_address" gorm:"column:from_address"`
	FromName    string    `json:"from_name" gorm:"column:from_name"`
	Encryption  string    `json:"encryption,omitempty" gorm:"column:encryption"` // "ssl", "tls" or ""
	APIKey      string    `json:"api_key,omitempty" gorm:"column:api_key"`
	Recipients  string    `json:"recipients,omitempty" gorm:"column:recipients"` // comma-separated
	Enabled     bool      `json:"enabled" gorm:"column:enabled"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}
