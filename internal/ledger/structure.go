package ledger

import (
	"fmt"
	"math/bits"
)

// Structure kind identifiers, used on the wire and in storage.
const (
	KindUniformBlock       = "uniform_block"
	KindSeasonalIncreasing = "seasonal_increasing"
	KindSeasonalDecreasing = "seasonal_decreasing"
)

// RateStructure is the closed set of tariff rate structures. Adding a kind
// means adding a type that implements these methods, so the compiler walks
// every pricing path for it.
type RateStructure interface {
	// Kind returns the structure's stable identifier.
	Kind() string

	// base returns the rate applied to in-contract usage.
	base() FixedPoint

	// excessRate returns the rate applied to usage beyond contracted
	// capacity, given the consumer's block-rate override and the assigned
	// reservoir's current level and capacity.
	excessRate(blockRate, level, capacity FixedPoint) (FixedPoint, error)
}

// UniformBlock prices excess usage at a flat second block rate.
type UniformBlock struct {
	BaseRate   FixedPoint
	ExcessRate FixedPoint
}

func (s UniformBlock) Kind() string     { return KindUniformBlock }
func (s UniformBlock) base() FixedPoint { return s.BaseRate }

func (s UniformBlock) excessRate(blockRate, level, capacity FixedPoint) (FixedPoint, error) {
	// A consumer-specific block rate, when contracted, takes precedence over
	// the tariff's own excess rate.
	if blockRate > 0 {
		return blockRate, nil
	}
	return s.ExcessRate, nil
}

// SeasonalIncreasing surcharges excess usage as the reservoir empties:
// rate = base + sensitivity * (capacity - level).
type SeasonalIncreasing struct {
	BaseRate    FixedPoint
	Sensitivity FixedPoint
}

func (s SeasonalIncreasing) Kind() string     { return KindSeasonalIncreasing }
func (s SeasonalIncreasing) base() FixedPoint { return s.BaseRate }

func (s SeasonalIncreasing) excessRate(blockRate, level, capacity FixedPoint) (FixedPoint, error) {
	shortfall := FixedPoint(0)
	if capacity > level {
		shortfall = capacity - level
	}
	surcharge, err := s.Sensitivity.Mul(shortfall)
	if err != nil {
		return 0, err
	}
	return s.BaseRate.Add(surcharge)
}

// SeasonalDecreasing moves the excess surcharge inversely with the fill
// ratio: rate = base + sensitivity * (2 - level/capacity). The level factor
// is clamped to [0, 2] so a reservoir reported far above capacity can never
// drive the rate negative.
type SeasonalDecreasing struct {
	BaseRate    FixedPoint
	Sensitivity FixedPoint
}

func (s SeasonalDecreasing) Kind() string     { return KindSeasonalDecreasing }
func (s SeasonalDecreasing) base() FixedPoint { return s.BaseRate }

func (s SeasonalDecreasing) excessRate(blockRate, level, capacity FixedPoint) (FixedPoint, error) {
	ratio, err := level.divFloor(capacity)
	if err != nil {
		return 0, err
	}
	factor := FixedPoint(0)
	if ratio < 2*Scale {
		factor = 2*Scale - ratio
	}
	surcharge, err := s.Sensitivity.Mul(factor)
	if err != nil {
		return 0, err
	}
	return s.BaseRate.Add(surcharge)
}

// UsageQuote is the result of pricing a single water draw.
type UsageQuote struct {
	// Cost is the number of usage tokens owed for the full amount.
	Cost uint64
	// InContract is the portion of the amount covered by capacity tokens.
	InContract uint64
	// Excess is the portion beyond the remaining contracted capacity.
	Excess uint64
	// Remaining is the contracted capacity left after this draw.
	Remaining uint64
}

// ComputeUsageCost partitions amount into an in-contract portion, priced at
// the structure's base rate, and an excess portion, priced by the structure,
// and returns the total ceiling-rounded cost. contractedRemaining is the
// consumer's current capacity-token balance.
func ComputeUsageCost(amount, contractedRemaining uint64, structure RateStructure, blockRate, level, capacity FixedPoint) (UsageQuote, error) {
	if amount == 0 {
		return UsageQuote{}, ErrInvalidAmount
	}

	inContract := amount
	if contractedRemaining < inContract {
		inContract = contractedRemaining
	}
	excess := amount - inContract

	cost, err := scaleAmount(inContract, structure.base())
	if err != nil {
		return UsageQuote{}, fmt.Errorf("price in-contract usage: %w", err)
	}

	if excess > 0 {
		rate, err := structure.excessRate(blockRate, level, capacity)
		if err != nil {
			return UsageQuote{}, fmt.Errorf("compute excess rate: %w", err)
		}
		excessCost, err := scaleAmount(excess, rate)
		if err != nil {
			return UsageQuote{}, fmt.Errorf("price excess usage: %w", err)
		}
		sum, carry := bits.Add64(cost, excessCost, 0)
		if carry != 0 {
			return UsageQuote{}, ErrArithmeticOverflow
		}
		cost = sum
	}

	return UsageQuote{
		Cost:       cost,
		InContract: inContract,
		Excess:     excess,
		Remaining:  contractedRemaining - inContract,
	}, nil
}

// ComputeWasteCost prices a waste disposal: ceil(amount*wasteRate/Scale).
// Waste has no block structure; every unit costs the same.
func ComputeWasteCost(amount uint64, wasteRate FixedPoint) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	return scaleAmount(amount, wasteRate)
}
