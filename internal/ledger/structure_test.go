package ledger

import (
	"errors"
	"testing"
)

func TestComputeUsageCostUniformBlock(t *testing.T) {
	structure := UniformBlock{BaseRate: 500, ExcessRate: 700}

	// Fully in contract: 100 units at 0.5.
	q, err := ComputeUsageCost(100, 1000, structure, 0, 0, 0)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q.Cost != 50 || q.InContract != 100 || q.Excess != 0 || q.Remaining != 900 {
		t.Errorf("quote = %+v, want cost=50 inContract=100 excess=0 remaining=900", q)
	}

	// Split: 100 in contract at 0.5, 50 excess at 0.7.
	q, err = ComputeUsageCost(150, 100, structure, 0, 0, 0)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q.Cost != 50+35 || q.InContract != 100 || q.Excess != 50 || q.Remaining != 0 {
		t.Errorf("quote = %+v, want cost=85 inContract=100 excess=50 remaining=0", q)
	}
}

func TestComputeUsageCostBlockRateOverride(t *testing.T) {
	structure := UniformBlock{BaseRate: 500, ExcessRate: 700}

	// A contracted block rate takes precedence over the tariff's excess rate.
	q, err := ComputeUsageCost(150, 100, structure, 900, 0, 0)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q.Cost != 50+45 {
		t.Errorf("cost = %d, want 95", q.Cost)
	}

	// Zero block rate means no override.
	q, err = ComputeUsageCost(150, 100, structure, 0, 0, 0)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q.Cost != 85 {
		t.Errorf("cost = %d, want 85", q.Cost)
	}
}

func TestComputeUsageCostSeasonalIncreasing(t *testing.T) {
	// base 0.5, sensitivity 0.8, reservoir 95% full.
	structure := SeasonalIncreasing{BaseRate: 500, Sensitivity: 800}

	q, err := ComputeUsageCost(120_000, 100_000, structure, 0, 950_000, 1_000_000)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	// In contract: ceil(100000*500/1000) = 50000.
	// Excess rate: 500 + ceil(800*50000/1000) = 40500.
	// Excess: ceil(20000*40500/1000) = 810000.
	if q.Cost != 860_000 {
		t.Errorf("cost = %d, want 860000", q.Cost)
	}
	if q.InContract != 100_000 || q.Excess != 20_000 {
		t.Errorf("split = %d/%d, want 100000/20000", q.InContract, q.Excess)
	}

	// A full reservoir charges no surcharge.
	q, err = ComputeUsageCost(120_000, 100_000, structure, 0, 1_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q.Cost != 50_000+10_000 {
		t.Errorf("cost at full = %d, want 60000", q.Cost)
	}

	// A level above capacity is treated like full, never negative.
	q2, err := ComputeUsageCost(120_000, 100_000, structure, 0, 1_200_000, 1_000_000)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q2.Cost != q.Cost {
		t.Errorf("cost above capacity = %d, want %d", q2.Cost, q.Cost)
	}
}

func TestComputeUsageCostSeasonalDecreasing(t *testing.T) {
	structure := SeasonalDecreasing{BaseRate: 500, Sensitivity: 800}

	// Level 25% of capacity: factor = 2.000 - 0.250 = 1.750,
	// rate = 500 + ceil(800*1750/1000) = 1900.
	q, err := ComputeUsageCost(1_100, 100, structure, 0, 250_000, 1_000_000)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	// In contract: ceil(100*500/1000) = 50. Excess: ceil(1000*1900/1000) = 1900.
	if q.Cost != 1950 {
		t.Errorf("cost = %d, want 1950", q.Cost)
	}

	// Level at exactly 2x capacity floors the factor at zero: base rate only.
	q, err = ComputeUsageCost(1_000, 0, structure, 0, 2_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q.Cost != 500 {
		t.Errorf("cost at 2x capacity = %d, want 500", q.Cost)
	}

	// Beyond 2x the rate stays clamped, it never goes below base.
	q, err = ComputeUsageCost(1_000, 0, structure, 0, 5_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("ComputeUsageCost failed: %v", err)
	}
	if q.Cost != 500 {
		t.Errorf("cost at 5x capacity = %d, want 500", q.Cost)
	}
}

func TestComputeUsageCostZeroAmount(t *testing.T) {
	structure := UniformBlock{BaseRate: 500, ExcessRate: 700}
	if _, err := ComputeUsageCost(0, 100, structure, 0, 0, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
}

func TestComputeWasteCost(t *testing.T) {
	got, err := ComputeWasteCost(100, 300)
	if err != nil {
		t.Fatalf("ComputeWasteCost failed: %v", err)
	}
	if got != 30 {
		t.Errorf("ComputeWasteCost(100, 300) = %d, want 30", got)
	}

	// Ceiling rounding: 1 unit at 0.3 costs 1.
	got, err = ComputeWasteCost(1, 300)
	if err != nil {
		t.Fatalf("ComputeWasteCost failed: %v", err)
	}
	if got != 1 {
		t.Errorf("ComputeWasteCost(1, 300) = %d, want 1", got)
	}

	if _, err := ComputeWasteCost(0, 300); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
}
