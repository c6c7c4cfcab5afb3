package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/aquastack/aquameter/internal/storage"
)

func newTestService(t *testing.T) (*Service, storage.Storage) {
	t.Helper()
	st := storage.NewMemory()
	tokens, err := InitializeTokens(context.Background(), st)
	if err != nil {
		t.Fatalf("InitializeTokens failed: %v", err)
	}
	return NewService(st, tokens), st
}

// seedAccount creates a uniform-block tariff, a reservoir and a consumer with
// the given contract terms.
func seedAccount(t *testing.T, svc *Service, capacity, wasteCapacity uint64) (tariffID, reservoirID, consumerID string) {
	t.Helper()
	ctx := context.Background()

	tariff, err := svc.CreateTariff(ctx, "", 300, UniformBlock{BaseRate: 500, ExcessRate: 700})
	if err != nil {
		t.Fatalf("CreateTariff failed: %v", err)
	}
	reservoir, err := svc.CreateReservoir(ctx, "", ReservoirParams{
		CurrentLevel: 900_000,
		Capacity:     1_000_000,
		CreditRate:   2_000,
	})
	if err != nil {
		t.Fatalf("CreateReservoir failed: %v", err)
	}
	consumer, err := svc.RegisterConsumer(ctx, "", ConsumerParams{
		TariffID:                tariff.ID,
		ReservoirID:             reservoir.ID,
		ContractedCapacity:      capacity,
		ContractedWasteCapacity: wasteCapacity,
	})
	if err != nil {
		t.Fatalf("RegisterConsumer failed: %v", err)
	}
	return tariff.ID, reservoir.ID, consumer.ID
}

func TestInitializeTokensIdempotent(t *testing.T) {
	st := storage.NewMemory()
	ctx := context.Background()

	first, err := InitializeTokens(ctx, st)
	if err != nil {
		t.Fatalf("first InitializeTokens failed: %v", err)
	}
	second, err := InitializeTokens(ctx, st)
	if err != nil {
		t.Fatalf("second InitializeTokens failed: %v", err)
	}
	if first != second {
		t.Errorf("token sets differ across initializations: %+v vs %+v", first, second)
	}
	if first.Usage == "" || first.Capacity == "" || first.Waste == "" || first.WasteCapacity == "" || first.Credit == "" {
		t.Errorf("token set has empty ids: %+v", first)
	}
}

func TestCreateTariffDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateTariff(ctx, "industrial-a", 300, UniformBlock{BaseRate: 500, ExcessRate: 700}); err != nil {
		t.Fatalf("CreateTariff failed: %v", err)
	}
	_, err := svc.CreateTariff(ctx, "industrial-a", 300, UniformBlock{BaseRate: 500, ExcessRate: 700})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate tariff: got %v, want ErrAlreadyExists", err)
	}
}

func TestRegisterConsumerMintsAllowances(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 1_000, 500)

	v, err := svc.Balances(context.Background(), consumerID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if v.Capacity != 1_000 || v.WasteCapacity != 500 {
		t.Errorf("balances = %+v, want capacity=1000 wasteCapacity=500", v)
	}
	if v.Usage != 0 || v.Waste != 0 || v.Credit != 0 {
		t.Errorf("fresh consumer has nonzero debt or credit: %+v", v)
	}
}

func TestRegisterConsumerUnknownRefs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterConsumer(ctx, "", ConsumerParams{TariffID: "nope", ReservoirID: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown tariff: got %v, want ErrNotFound", err)
	}

	tariff, err := svc.CreateTariff(ctx, "", 300, UniformBlock{BaseRate: 500, ExcessRate: 700})
	if err != nil {
		t.Fatalf("CreateTariff failed: %v", err)
	}
	_, err = svc.RegisterConsumer(ctx, "", ConsumerParams{TariffID: tariff.ID, ReservoirID: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown reservoir: got %v, want ErrNotFound", err)
	}
}

func TestUseWaterSplitsAndMintsDebt(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 100, 0)
	ctx := context.Background()

	// 150 units: 100 in contract at 0.5, 50 excess at 0.7.
	res, err := svc.UseWater(ctx, consumerID, 150)
	if err != nil {
		t.Fatalf("UseWater failed: %v", err)
	}
	if res.Cost != 85 || res.InContract != 100 || res.Excess != 50 || res.RemainingCapacity != 0 {
		t.Errorf("result = %+v, want cost=85 inContract=100 excess=50 remaining=0", res)
	}

	v, err := svc.Balances(ctx, consumerID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if v.Capacity != 0 {
		t.Errorf("capacity balance = %d, want 0", v.Capacity)
	}
	if v.Usage != 85 {
		t.Errorf("usage debt = %d, want 85", v.Usage)
	}

	// With capacity exhausted everything is excess.
	res, err = svc.UseWater(ctx, consumerID, 10)
	if err != nil {
		t.Fatalf("UseWater failed: %v", err)
	}
	if res.InContract != 0 || res.Excess != 10 || res.Cost != 7 {
		t.Errorf("exhausted result = %+v, want inContract=0 excess=10 cost=7", res)
	}
}

func TestUseWaterZeroAmount(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 100, 0)

	if _, err := svc.UseWater(context.Background(), consumerID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
}

func TestUseWaterUnknownConsumer(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.UseWater(context.Background(), "nope", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown consumer: got %v, want ErrNotFound", err)
	}
}

func TestDisposeWaste(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 0, 100)
	ctx := context.Background()

	// 150 units at waste rate 0.3: cost 45, 100 covered by allowance.
	res, err := svc.DisposeWaste(ctx, consumerID, 150)
	if err != nil {
		t.Fatalf("DisposeWaste failed: %v", err)
	}
	if res.Cost != 45 || res.InContract != 100 || res.RemainingWasteCapacity != 0 {
		t.Errorf("result = %+v, want cost=45 inContract=100 remaining=0", res)
	}

	v, err := svc.Balances(ctx, consumerID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if v.WasteCapacity != 0 || v.Waste != 45 {
		t.Errorf("balances = %+v, want wasteCapacity=0 waste=45", v)
	}
}

func TestDisposeWasteAboveReservoirAllowance(t *testing.T) {
	svc, _ := newTestService(t)
	tariffID, _, _ := seedAccount(t, svc, 0, 100)
	ctx := context.Background()

	reservoir, err := svc.CreateReservoir(ctx, "", ReservoirParams{
		Capacity:          1_000_000,
		CurrentLevel:      900_000,
		MaxAllowableWaste: 50,
	})
	if err != nil {
		t.Fatalf("CreateReservoir failed: %v", err)
	}
	consumer, err := svc.RegisterConsumer(ctx, "", ConsumerParams{
		TariffID:                tariffID,
		ReservoirID:             reservoir.ID,
		ContractedWasteCapacity: 100,
	})
	if err != nil {
		t.Fatalf("RegisterConsumer failed: %v", err)
	}

	if _, err := svc.DisposeWaste(ctx, consumer.ID, 51); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("over allowance: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.DisposeWaste(ctx, consumer.ID, 50); err != nil {
		t.Errorf("at allowance: got %v, want nil", err)
	}
}

func TestPayments(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 100, 100)
	ctx := context.Background()

	if _, err := svc.UseWater(ctx, consumerID, 100); err != nil {
		t.Fatalf("UseWater failed: %v", err)
	}
	if _, err := svc.DisposeWaste(ctx, consumerID, 100); err != nil {
		t.Fatalf("DisposeWaste failed: %v", err)
	}
	// Usage debt 50, waste debt 30.

	if err := svc.PayForWater(ctx, consumerID, 20); err != nil {
		t.Fatalf("PayForWater failed: %v", err)
	}
	if err := svc.PayForWater(ctx, consumerID, 31); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overpay water: got %v, want ErrInsufficientBalance", err)
	}
	if err := svc.PayForWater(ctx, consumerID, 30); err != nil {
		t.Fatalf("PayForWater failed: %v", err)
	}

	if err := svc.PayForWaste(ctx, consumerID, 30); err != nil {
		t.Fatalf("PayForWaste failed: %v", err)
	}
	if err := svc.PayForWaste(ctx, consumerID, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("pay settled waste: got %v, want ErrInsufficientBalance", err)
	}

	v, err := svc.Balances(ctx, consumerID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if v.Usage != 0 || v.Waste != 0 {
		t.Errorf("outstanding debt after settlement: %+v", v)
	}
}

func TestPayZeroAmount(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 100, 0)

	if err := svc.PayForWater(context.Background(), consumerID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero payment: got %v, want ErrInvalidAmount", err)
	}
}

func TestUpdateConsumerResync(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 100, 0)
	ctx := context.Background()

	// Increase mints the difference.
	up := uint64(150)
	if _, err := svc.UpdateConsumer(ctx, consumerID, ConsumerUpdate{ContractedCapacity: &up}); err != nil {
		t.Fatalf("UpdateConsumer failed: %v", err)
	}
	v, _ := svc.Balances(ctx, consumerID)
	if v.Capacity != 150 {
		t.Errorf("capacity after increase = %d, want 150", v.Capacity)
	}

	// Spend some, then decrease within the held balance.
	if _, err := svc.UseWater(ctx, consumerID, 100); err != nil {
		t.Fatalf("UseWater failed: %v", err)
	}
	down := uint64(120)
	if _, err := svc.UpdateConsumer(ctx, consumerID, ConsumerUpdate{ContractedCapacity: &down}); err != nil {
		t.Fatalf("UpdateConsumer failed: %v", err)
	}
	v, _ = svc.Balances(ctx, consumerID)
	if v.Capacity != 20 {
		t.Errorf("capacity after decrease = %d, want 20", v.Capacity)
	}

	// A decrease larger than the held balance fails and changes nothing.
	tooLow := uint64(50)
	if _, err := svc.UpdateConsumer(ctx, consumerID, ConsumerUpdate{ContractedCapacity: &tooLow}); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("decrease beyond balance: got %v, want ErrInsufficientBalance", err)
	}
	c, err := svc.GetConsumer(ctx, consumerID)
	if err != nil {
		t.Fatalf("GetConsumer failed: %v", err)
	}
	if c.ContractedCapacity != 120 {
		t.Errorf("contract after failed decrease = %d, want 120", c.ContractedCapacity)
	}
}

func TestUpdateConsumerCombinedDecreaseAtomic(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 100, 100)
	ctx := context.Background()

	// Spend the whole waste allowance so its decrease cannot be covered.
	if _, err := svc.DisposeWaste(ctx, consumerID, 100); err != nil {
		t.Fatalf("DisposeWaste failed: %v", err)
	}

	capDown, wasteDown := uint64(50), uint64(50)
	_, err := svc.UpdateConsumer(ctx, consumerID, ConsumerUpdate{
		ContractedCapacity:      &capDown,
		ContractedWasteCapacity: &wasteDown,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("combined decrease: got %v, want ErrInsufficientBalance", err)
	}

	// The failed update must not have burned the water-capacity leg.
	v, err := svc.Balances(ctx, consumerID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if v.Capacity != 100 {
		t.Errorf("capacity balance after failed update = %d, want 100", v.Capacity)
	}
	c, err := svc.GetConsumer(ctx, consumerID)
	if err != nil {
		t.Fatalf("GetConsumer failed: %v", err)
	}
	if c.ContractedCapacity != 100 || c.ContractedWasteCapacity != 100 {
		t.Errorf("contract after failed update = %d/%d, want 100/100", c.ContractedCapacity, c.ContractedWasteCapacity)
	}
}

func TestReassignTariff(t *testing.T) {
	svc, _ := newTestService(t)
	tariffID, _, consumerID := seedAccount(t, svc, 100, 0)
	ctx := context.Background()

	other, err := svc.CreateTariff(ctx, "", 300, SeasonalIncreasing{BaseRate: 500, Sensitivity: 800})
	if err != nil {
		t.Fatalf("CreateTariff failed: %v", err)
	}

	// Stale old reference.
	if _, err := svc.ReassignTariff(ctx, consumerID, "stale", other.ID); !errors.Is(err, ErrMismatch) {
		t.Errorf("stale reference: got %v, want ErrMismatch", err)
	}

	// Unknown new tariff.
	if _, err := svc.ReassignTariff(ctx, consumerID, tariffID, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown new tariff: got %v, want ErrNotFound", err)
	}

	c, err := svc.ReassignTariff(ctx, consumerID, tariffID, other.ID)
	if err != nil {
		t.Fatalf("ReassignTariff failed: %v", err)
	}
	if c.TariffID != other.ID {
		t.Errorf("tariff = %s, want %s", c.TariffID, other.ID)
	}
}

func TestReassignReservoir(t *testing.T) {
	svc, _ := newTestService(t)
	_, reservoirID, consumerID := seedAccount(t, svc, 100, 0)
	ctx := context.Background()

	other, err := svc.CreateReservoir(ctx, "", ReservoirParams{Capacity: 500_000, CurrentLevel: 400_000})
	if err != nil {
		t.Fatalf("CreateReservoir failed: %v", err)
	}

	if _, err := svc.ReassignReservoir(ctx, consumerID, "stale", other.ID); !errors.Is(err, ErrMismatch) {
		t.Errorf("stale reference: got %v, want ErrMismatch", err)
	}

	c, err := svc.ReassignReservoir(ctx, consumerID, reservoirID, other.ID)
	if err != nil {
		t.Fatalf("ReassignReservoir failed: %v", err)
	}
	if c.ReservoirID != other.ID {
		t.Errorf("reservoir = %s, want %s", c.ReservoirID, other.ID)
	}
}

func TestRedeemCredits(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, consumerID := seedAccount(t, svc, 0, 100)
	ctx := context.Background()

	// Credit rate 2.0: 100 unspent waste capacity -> 200 credits.
	res, err := svc.RedeemCredits(ctx, consumerID)
	if err != nil {
		t.Fatalf("RedeemCredits failed: %v", err)
	}
	if res.Redeemed != 100 || res.Credits != 200 {
		t.Errorf("result = %+v, want redeemed=100 credits=200", res)
	}

	v, _ := svc.Balances(ctx, consumerID)
	if v.WasteCapacity != 0 || v.Credit != 200 {
		t.Errorf("balances = %+v, want wasteCapacity=0 credit=200", v)
	}

	// Nothing left to redeem.
	if _, err := svc.RedeemCredits(ctx, consumerID); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("second redeem: got %v, want ErrInsufficientBalance", err)
	}
}

func TestUpdateTariffStructureRepricesNextDraw(t *testing.T) {
	svc, _ := newTestService(t)
	tariffID, _, consumerID := seedAccount(t, svc, 0, 0)
	ctx := context.Background()

	res, err := svc.UseWater(ctx, consumerID, 100)
	if err != nil {
		t.Fatalf("UseWater failed: %v", err)
	}
	if res.Cost != 70 { // all excess at 0.7
		t.Fatalf("cost = %d, want 70", res.Cost)
	}

	if _, err := svc.UpdateTariffStructure(ctx, tariffID, UniformBlock{BaseRate: 500, ExcessRate: 1_000}); err != nil {
		t.Fatalf("UpdateTariffStructure failed: %v", err)
	}

	res, err = svc.UseWater(ctx, consumerID, 100)
	if err != nil {
		t.Fatalf("UseWater failed: %v", err)
	}
	if res.Cost != 100 {
		t.Errorf("cost after restructure = %d, want 100", res.Cost)
	}
}
