package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/aquastack/aquameter/internal/metrics"
	"github.com/aquastack/aquameter/internal/storage"
)

// Service is the metering ledger: it owns tariff, reservoir and consumer
// records and moves token balances when water is drawn, waste is disposed and
// bills are paid. Every state-changing operation runs inside a storage
// transaction and commits either fully or not at all.
type Service struct {
	store  storage.Storage
	tokens TokenSet
}

func NewService(store storage.Storage, tokens TokenSet) *Service {
	return &Service{store: store, tokens: tokens}
}

// Tokens returns the deployment's token set.
func (s *Service) Tokens() TokenSet { return s.tokens }

func structureFromRecord(t storage.Tariff) (RateStructure, error) {
	switch t.Kind {
	case KindUniformBlock:
		return UniformBlock{BaseRate: FixedPoint(t.BaseRate), ExcessRate: FixedPoint(t.ExcessRate)}, nil
	case KindSeasonalIncreasing:
		return SeasonalIncreasing{BaseRate: FixedPoint(t.BaseRate), Sensitivity: FixedPoint(t.Sensitivity)}, nil
	case KindSeasonalDecreasing:
		return SeasonalDecreasing{BaseRate: FixedPoint(t.BaseRate), Sensitivity: FixedPoint(t.Sensitivity)}, nil
	default:
		return nil, fmt.Errorf("tariff %q has unknown rate structure kind %q", t.ID, t.Kind)
	}
}

func applyStructure(t *storage.Tariff, structure RateStructure) {
	t.Kind = structure.Kind()
	t.ExcessRate = 0
	t.Sensitivity = 0
	switch v := structure.(type) {
	case UniformBlock:
		t.BaseRate = uint64(v.BaseRate)
		t.ExcessRate = uint64(v.ExcessRate)
	case SeasonalIncreasing:
		t.BaseRate = uint64(v.BaseRate)
		t.Sensitivity = uint64(v.Sensitivity)
	case SeasonalDecreasing:
		t.BaseRate = uint64(v.BaseRate)
		t.Sensitivity = uint64(v.Sensitivity)
	}
}

// Tariffs

// CreateTariff registers a new tariff. An empty id gets a generated one; a
// taken id fails with ErrAlreadyExists.
func (s *Service) CreateTariff(ctx context.Context, id string, wasteRate FixedPoint, structure RateStructure) (*storage.Tariff, error) {
	if structure == nil {
		return nil, fmt.Errorf("%w: rate structure is required", ErrInvalidAmount)
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	t := storage.Tariff{
		ID:        id,
		WasteRate: uint64(wasteRate),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyStructure(&t, structure)
	if err := s.store.CreateTariff(ctx, t); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("tariff %q: %w", id, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create tariff: %w", err)
	}
	log.Printf("ledger: created tariff %s kind=%s", t.ID, t.Kind)
	return &t, nil
}

// TariffRateUpdate carries a partial rate change: nil fields keep their
// current value. Fields that do not apply to the tariff's structure kind are
// ignored.
type TariffRateUpdate struct {
	WasteRate   *FixedPoint
	BaseRate    *FixedPoint
	ExcessRate  *FixedPoint
	Sensitivity *FixedPoint
}

// UpdateTariffRates changes a tariff's rates in place without touching its
// structure kind.
func (s *Service) UpdateTariffRates(ctx context.Context, id string, upd TariffRateUpdate) (*storage.Tariff, error) {
	var out *storage.Tariff
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		t, err := tx.GetTariff(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("tariff %q: %w", id, ErrNotFound)
		}
		if upd.WasteRate != nil {
			t.WasteRate = uint64(*upd.WasteRate)
		}
		if upd.BaseRate != nil {
			t.BaseRate = uint64(*upd.BaseRate)
		}
		if upd.ExcessRate != nil {
			t.ExcessRate = uint64(*upd.ExcessRate)
		}
		if upd.Sensitivity != nil {
			t.Sensitivity = uint64(*upd.Sensitivity)
		}
		t.UpdatedAt = time.Now()
		if err := tx.SaveTariff(ctx, *t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// UpdateTariffStructure replaces a tariff's rate structure wholesale,
// including the kind. Consumers assigned to the tariff are repriced from the
// next draw onward; past charges are never restated.
func (s *Service) UpdateTariffStructure(ctx context.Context, id string, structure RateStructure) (*storage.Tariff, error) {
	if structure == nil {
		return nil, fmt.Errorf("%w: rate structure is required", ErrInvalidAmount)
	}
	var out *storage.Tariff
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		t, err := tx.GetTariff(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("tariff %q: %w", id, ErrNotFound)
		}
		applyStructure(t, structure)
		t.UpdatedAt = time.Now()
		if err := tx.SaveTariff(ctx, *t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func (s *Service) GetTariff(ctx context.Context, id string) (*storage.Tariff, error) {
	t, err := s.store.GetTariff(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("tariff %q: %w", id, ErrNotFound)
	}
	return t, nil
}

func (s *Service) ListTariffs(ctx context.Context) ([]storage.Tariff, error) {
	return s.store.ListTariffs(ctx)
}

// Reservoirs

// ReservoirParams are the operator-settable fields of a reservoir.
type ReservoirParams struct {
	CurrentLevel      uint64
	Capacity          uint64
	MaxAllowableWaste uint64
	MinAllowableLevel uint64
	CreditRate        uint64
	TelemetrySource   string
}

func (s *Service) CreateReservoir(ctx context.Context, id string, p ReservoirParams) (*storage.Reservoir, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	r := storage.Reservoir{
		ID:                id,
		CurrentLevel:      p.CurrentLevel,
		Capacity:          p.Capacity,
		MaxAllowableWaste: p.MaxAllowableWaste,
		MinAllowableLevel: p.MinAllowableLevel,
		CreditRate:        p.CreditRate,
		TelemetrySource:   p.TelemetrySource,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateReservoir(ctx, r); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("reservoir %q: %w", id, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create reservoir: %w", err)
	}
	log.Printf("ledger: created reservoir %s capacity=%d", r.ID, r.Capacity)
	return &r, nil
}

// ReservoirUpdate carries a partial reservoir change: nil fields keep their
// current value.
type ReservoirUpdate struct {
	CurrentLevel      *uint64
	Capacity          *uint64
	MaxAllowableWaste *uint64
	MinAllowableLevel *uint64
	CreditRate        *uint64
	TelemetrySource   *string
}

func (s *Service) UpdateReservoir(ctx context.Context, id string, upd ReservoirUpdate) (*storage.Reservoir, error) {
	var out *storage.Reservoir
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		r, err := tx.GetReservoir(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("reservoir %q: %w", id, ErrNotFound)
		}
		if upd.CurrentLevel != nil {
			r.CurrentLevel = *upd.CurrentLevel
		}
		if upd.Capacity != nil {
			r.Capacity = *upd.Capacity
		}
		if upd.MaxAllowableWaste != nil {
			r.MaxAllowableWaste = *upd.MaxAllowableWaste
		}
		if upd.MinAllowableLevel != nil {
			r.MinAllowableLevel = *upd.MinAllowableLevel
		}
		if upd.CreditRate != nil {
			r.CreditRate = *upd.CreditRate
		}
		if upd.TelemetrySource != nil {
			r.TelemetrySource = *upd.TelemetrySource
		}
		r.UpdatedAt = time.Now()
		if err := tx.SaveReservoir(ctx, *r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// SetReservoirLevel records an externally reported level. The level is taken
// as-is; readings above capacity are valid overflow reports.
func (s *Service) SetReservoirLevel(ctx context.Context, id string, level uint64) (*storage.Reservoir, error) {
	return s.UpdateReservoir(ctx, id, ReservoirUpdate{CurrentLevel: &level})
}

func (s *Service) GetReservoir(ctx context.Context, id string) (*storage.Reservoir, error) {
	r, err := s.store.GetReservoir(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("reservoir %q: %w", id, ErrNotFound)
	}
	return r, nil
}

func (s *Service) ListReservoirs(ctx context.Context) ([]storage.Reservoir, error) {
	return s.store.ListReservoirs(ctx)
}

// Consumers

// ConsumerParams are the contract terms fixed at registration.
type ConsumerParams struct {
	TariffID                string
	ReservoirID             string
	ContractedCapacity      uint64
	ContractedWasteCapacity uint64
	BlockRate               uint64
}

// RegisterConsumer creates a consumer under an existing tariff and reservoir
// and mints its contracted capacity and waste-capacity allowances.
func (s *Service) RegisterConsumer(ctx context.Context, id string, p ConsumerParams) (*storage.Consumer, error) {
	if id == "" {
		id = uuid.NewString()
	}
	var out *storage.Consumer
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		t, err := tx.GetTariff(ctx, p.TariffID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("tariff %q: %w", p.TariffID, ErrNotFound)
		}
		r, err := tx.GetReservoir(ctx, p.ReservoirID)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("reservoir %q: %w", p.ReservoirID, ErrNotFound)
		}

		now := time.Now()
		c := storage.Consumer{
			ID:                      id,
			TariffID:                p.TariffID,
			ReservoirID:             p.ReservoirID,
			ContractedCapacity:      p.ContractedCapacity,
			ContractedWasteCapacity: p.ContractedWasteCapacity,
			BlockRate:               p.BlockRate,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if err := tx.CreateConsumer(ctx, c); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("consumer %q: %w", id, ErrAlreadyExists)
			}
			return err
		}
		if p.ContractedCapacity > 0 {
			if err := tx.AddToBalance(ctx, s.tokens.Capacity, id, p.ContractedCapacity); err != nil {
				return err
			}
			metrics.ObserveMint(RoleCapacity, p.ContractedCapacity)
		}
		if p.ContractedWasteCapacity > 0 {
			if err := tx.AddToBalance(ctx, s.tokens.WasteCapacity, id, p.ContractedWasteCapacity); err != nil {
				return err
			}
			metrics.ObserveMint(RoleWasteCapacity, p.ContractedWasteCapacity)
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("ledger: registered consumer %s tariff=%s reservoir=%s", out.ID, out.TariffID, out.ReservoirID)
	return out, nil
}

// ConsumerUpdate carries a partial contract change: nil fields keep their
// current value.
type ConsumerUpdate struct {
	ContractedCapacity      *uint64
	ContractedWasteCapacity *uint64
	BlockRate               *uint64
}

// UpdateConsumer changes a consumer's contract terms. A capacity increase
// mints the difference; a decrease burns it from the held balance and fails
// with ErrInsufficientBalance when more has already been spent.
func (s *Service) UpdateConsumer(ctx context.Context, id string, upd ConsumerUpdate) (*storage.Consumer, error) {
	var out *storage.Consumer
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetConsumer(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("consumer %q: %w", id, ErrNotFound)
		}

		var resyncs []allowanceResync
		if upd.ContractedCapacity != nil {
			resyncs = append(resyncs, allowanceResync{s.tokens.Capacity, RoleCapacity, c.ContractedCapacity, *upd.ContractedCapacity})
			c.ContractedCapacity = *upd.ContractedCapacity
		}
		if upd.ContractedWasteCapacity != nil {
			resyncs = append(resyncs, allowanceResync{s.tokens.WasteCapacity, RoleWasteCapacity, c.ContractedWasteCapacity, *upd.ContractedWasteCapacity})
			c.ContractedWasteCapacity = *upd.ContractedWasteCapacity
		}

		// Every decrease must be coverable before the first balance moves;
		// the in-memory backend has no rollback.
		for _, rs := range resyncs {
			if rs.updated >= rs.old {
				continue
			}
			held, err := tx.GetBalance(ctx, rs.tokenID, id)
			if err != nil {
				return err
			}
			if held < rs.old-rs.updated {
				return fmt.Errorf("reduce %s allowance by %d: %w", rs.role, rs.old-rs.updated, ErrInsufficientBalance)
			}
		}
		for _, rs := range resyncs {
			if err := s.resyncAllowance(ctx, tx, rs.tokenID, rs.role, id, rs.old, rs.updated); err != nil {
				return err
			}
		}
		if upd.BlockRate != nil {
			c.BlockRate = *upd.BlockRate
		}
		c.UpdatedAt = time.Now()
		if err := tx.SaveConsumer(ctx, *c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// allowanceResync is one pending contract-allowance change.
type allowanceResync struct {
	tokenID string
	role    string
	old     uint64
	updated uint64
}

// resyncAllowance moves a consumer's token balance by the contract delta.
func (s *Service) resyncAllowance(ctx context.Context, tx storage.Storage, tokenID, role, account string, old, updated uint64) error {
	switch {
	case updated > old:
		if err := tx.AddToBalance(ctx, tokenID, account, updated-old); err != nil {
			return err
		}
		metrics.ObserveMint(role, updated-old)
	case updated < old:
		if err := tx.SubFromBalance(ctx, tokenID, account, old-updated); err != nil {
			if errors.Is(err, storage.ErrBalanceUnderflow) {
				return fmt.Errorf("reduce %s allowance by %d: %w", role, old-updated, ErrInsufficientBalance)
			}
			return err
		}
		metrics.ObserveBurn(role, old-updated)
	}
	return nil
}

// ReassignTariff moves a consumer to a new tariff. The caller must name the
// currently assigned tariff; a stale reference fails with ErrMismatch.
func (s *Service) ReassignTariff(ctx context.Context, consumerID, oldTariffID, newTariffID string) (*storage.Consumer, error) {
	var out *storage.Consumer
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetConsumer(ctx, consumerID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("consumer %q: %w", consumerID, ErrNotFound)
		}
		if c.TariffID != oldTariffID {
			return fmt.Errorf("consumer %q is assigned tariff %q, not %q: %w", consumerID, c.TariffID, oldTariffID, ErrMismatch)
		}
		t, err := tx.GetTariff(ctx, newTariffID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("tariff %q: %w", newTariffID, ErrNotFound)
		}
		c.TariffID = newTariffID
		c.UpdatedAt = time.Now()
		if err := tx.SaveConsumer(ctx, *c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// ReassignReservoir moves a consumer to a new reservoir, with the same stale
// reference protection as ReassignTariff.
func (s *Service) ReassignReservoir(ctx context.Context, consumerID, oldReservoirID, newReservoirID string) (*storage.Consumer, error) {
	var out *storage.Consumer
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetConsumer(ctx, consumerID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("consumer %q: %w", consumerID, ErrNotFound)
		}
		if c.ReservoirID != oldReservoirID {
			return fmt.Errorf("consumer %q is assigned reservoir %q, not %q: %w", consumerID, c.ReservoirID, oldReservoirID, ErrMismatch)
		}
		r, err := tx.GetReservoir(ctx, newReservoirID)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("reservoir %q: %w", newReservoirID, ErrNotFound)
		}
		c.ReservoirID = newReservoirID
		c.UpdatedAt = time.Now()
		if err := tx.SaveConsumer(ctx, *c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Service) GetConsumer(ctx context.Context, id string) (*storage.Consumer, error) {
	c, err := s.store.GetConsumer(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("consumer %q: %w", id, ErrNotFound)
	}
	return c, nil
}

// Metering operations

// UsageResult reports the outcome of a water draw.
type UsageResult struct {
	Cost              uint64 `json:"cost"`
	InContract        uint64 `json:"in_contract"`
	Excess            uint64 `json:"excess"`
	RemainingCapacity uint64 `json:"remaining_capacity"`
}

// UseWater meters a draw of amount units against the consumer's tariff and
// reservoir. The in-contract portion burns capacity tokens; the full cost is
// minted as usage-token debt to be settled by PayForWater.
func (s *Service) UseWater(ctx context.Context, consumerID string, amount uint64) (*UsageResult, error) {
	start := time.Now()
	var out *UsageResult
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetConsumer(ctx, consumerID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("consumer %q: %w", consumerID, ErrNotFound)
		}
		t, err := tx.GetTariff(ctx, c.TariffID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("tariff %q: %w", c.TariffID, ErrNotFound)
		}
		r, err := tx.GetReservoir(ctx, c.ReservoirID)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("reservoir %q: %w", c.ReservoirID, ErrNotFound)
		}

		structure, err := structureFromRecord(*t)
		if err != nil {
			return err
		}
		held, err := tx.GetBalance(ctx, s.tokens.Capacity, consumerID)
		if err != nil {
			return err
		}

		quote, err := ComputeUsageCost(amount, held, structure, FixedPoint(c.BlockRate), FixedPoint(r.CurrentLevel), FixedPoint(r.Capacity))
		if err != nil {
			return err
		}

		if quote.InContract > 0 {
			if err := tx.SubFromBalance(ctx, s.tokens.Capacity, consumerID, quote.InContract); err != nil {
				return err
			}
			metrics.ObserveBurn(RoleCapacity, quote.InContract)
		}
		if quote.Cost > 0 {
			if err := tx.AddToBalance(ctx, s.tokens.Usage, consumerID, quote.Cost); err != nil {
				return err
			}
			metrics.ObserveMint(RoleUsage, quote.Cost)
		}
		out = &UsageResult{
			Cost:              quote.Cost,
			InContract:        quote.InContract,
			Excess:            quote.Excess,
			RemainingCapacity: quote.Remaining,
		}
		return nil
	})
	metrics.ObserveOperation("use_water", start, err)
	if err != nil {
		return nil, err
	}
	log.Printf("ledger: consumer %s used %d units, cost %d (%d excess)", consumerID, amount, out.Cost, out.Excess)
	return out, nil
}

// WasteResult reports the outcome of a waste disposal.
type WasteResult struct {
	Cost                   uint64 `json:"cost"`
	InContract             uint64 `json:"in_contract"`
	RemainingWasteCapacity uint64 `json:"remaining_waste_capacity"`
}

// DisposeWaste meters a discharge of amount units. Disposal above the
// reservoir's per-event allowance is rejected outright. The cost is flat per
// unit; the contracted portion burns waste-capacity tokens.
func (s *Service) DisposeWaste(ctx context.Context, consumerID string, amount uint64) (*WasteResult, error) {
	start := time.Now()
	var out *WasteResult
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetConsumer(ctx, consumerID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("consumer %q: %w", consumerID, ErrNotFound)
		}
		t, err := tx.GetTariff(ctx, c.TariffID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("tariff %q: %w", c.TariffID, ErrNotFound)
		}
		r, err := tx.GetReservoir(ctx, c.ReservoirID)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("reservoir %q: %w", c.ReservoirID, ErrNotFound)
		}
		if r.MaxAllowableWaste > 0 && amount > r.MaxAllowableWaste {
			return fmt.Errorf("disposal of %d exceeds reservoir allowance %d: %w", amount, r.MaxAllowableWaste, ErrInvalidAmount)
		}

		cost, err := ComputeWasteCost(amount, FixedPoint(t.WasteRate))
		if err != nil {
			return err
		}

		held, err := tx.GetBalance(ctx, s.tokens.WasteCapacity, consumerID)
		if err != nil {
			return err
		}
		inContract := amount
		if held < inContract {
			inContract = held
		}
		if inContract > 0 {
			if err := tx.SubFromBalance(ctx, s.tokens.WasteCapacity, consumerID, inContract); err != nil {
				return err
			}
			metrics.ObserveBurn(RoleWasteCapacity, inContract)
		}
		if cost > 0 {
			if err := tx.AddToBalance(ctx, s.tokens.Waste, consumerID, cost); err != nil {
				return err
			}
			metrics.ObserveMint(RoleWaste, cost)
		}
		out = &WasteResult{
			Cost:                   cost,
			InContract:             inContract,
			RemainingWasteCapacity: held - inContract,
		}
		return nil
	})
	metrics.ObserveOperation("dispose_waste", start, err)
	if err != nil {
		return nil, err
	}
	log.Printf("ledger: consumer %s disposed %d units of waste, cost %d", consumerID, amount, out.Cost)
	return out, nil
}

// PayForWater settles amount units of the consumer's outstanding usage debt.
// Payment never reprices anything: it burns exactly what was minted.
func (s *Service) PayForWater(ctx context.Context, consumerID string, amount uint64) error {
	start := time.Now()
	err := s.pay(ctx, consumerID, amount, s.tokens.Usage, RoleUsage)
	metrics.ObserveOperation("pay_for_water", start, err)
	return err
}

// PayForWaste settles amount units of the consumer's outstanding waste debt.
func (s *Service) PayForWaste(ctx context.Context, consumerID string, amount uint64) error {
	start := time.Now()
	err := s.pay(ctx, consumerID, amount, s.tokens.Waste, RoleWaste)
	metrics.ObserveOperation("pay_for_waste", start, err)
	return err
}

func (s *Service) pay(ctx context.Context, consumerID string, amount uint64, tokenID, role string) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	return s.store.WithinTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetConsumer(ctx, consumerID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("consumer %q: %w", consumerID, ErrNotFound)
		}
		held, err := tx.GetBalance(ctx, tokenID, consumerID)
		if err != nil {
			return err
		}
		if held < amount {
			return fmt.Errorf("pay %d of %d %s debt: %w", amount, held, role, ErrInsufficientBalance)
		}
		if err := tx.SubFromBalance(ctx, tokenID, consumerID, amount); err != nil {
			return err
		}
		metrics.ObserveBurn(role, amount)
		return nil
	})
}

// CreditResult reports a waste-capacity redemption.
type CreditResult struct {
	Redeemed uint64 `json:"redeemed"`
	Credits  uint64 `json:"credits"`
}

// RedeemCredits converts the consumer's entire unspent waste-capacity
// allowance into credit tokens at the reservoir's credit rate.
func (s *Service) RedeemCredits(ctx context.Context, consumerID string) (*CreditResult, error) {
	start := time.Now()
	var out *CreditResult
	err := s.store.WithinTx(ctx, func(tx storage.Storage) error {
		c, err := tx.GetConsumer(ctx, consumerID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("consumer %q: %w", consumerID, ErrNotFound)
		}
		r, err := tx.GetReservoir(ctx, c.ReservoirID)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("reservoir %q: %w", c.ReservoirID, ErrNotFound)
		}
		held, err := tx.GetBalance(ctx, s.tokens.WasteCapacity, consumerID)
		if err != nil {
			return err
		}
		if held == 0 {
			return fmt.Errorf("no waste capacity to redeem: %w", ErrInsufficientBalance)
		}
		credits, err := scaleAmount(held, FixedPoint(r.CreditRate))
		if err != nil {
			return err
		}
		if err := tx.SubFromBalance(ctx, s.tokens.WasteCapacity, consumerID, held); err != nil {
			return err
		}
		metrics.ObserveBurn(RoleWasteCapacity, held)
		if credits > 0 {
			if err := tx.AddToBalance(ctx, s.tokens.Credit, consumerID, credits); err != nil {
				return err
			}
			metrics.ObserveMint(RoleCredit, credits)
		}
		out = &CreditResult{Redeemed: held, Credits: credits}
		return nil
	})
	metrics.ObserveOperation("redeem_credits", start, err)
	if err != nil {
		return nil, err
	}
	log.Printf("ledger: consumer %s redeemed %d waste capacity for %d credits", consumerID, out.Redeemed, out.Credits)
	return out, nil
}

// BalanceView is a consumer's position across every token role.
type BalanceView struct {
	Usage         uint64 `json:"usage"`
	Capacity      uint64 `json:"capacity"`
	Waste         uint64 `json:"waste"`
	WasteCapacity uint64 `json:"waste_capacity"`
	Credit        uint64 `json:"credit"`
}

// Balances returns the consumer's balance in every token role.
func (s *Service) Balances(ctx context.Context, consumerID string) (*BalanceView, error) {
	c, err := s.store.GetConsumer(ctx, consumerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("consumer %q: %w", consumerID, ErrNotFound)
	}
	var v BalanceView
	for _, pair := range []struct {
		tokenID string
		dst     *uint64
	}{
		{s.tokens.Usage, &v.Usage},
		{s.tokens.Capacity, &v.Capacity},
		{s.tokens.Waste, &v.Waste},
		{s.tokens.WasteCapacity, &v.WasteCapacity},
		{s.tokens.Credit, &v.Credit},
	} {
		held, err := s.store.GetBalance(ctx, pair.tokenID, consumerID)
		if err != nil {
			return nil, err
		}
		*pair.dst = held
	}
	return &v, nil
}
