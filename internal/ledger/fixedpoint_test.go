package ledger

import (
	"errors"
	"math"
	"testing"
)

func TestFixedPointAdd(t *testing.T) {
	got, err := FixedPoint(1500).Add(FixedPoint(250))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got != 1750 {
		t.Errorf("Add = %d, want 1750", got)
	}

	if _, err := FixedPoint(math.MaxUint64).Add(1); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Add overflow: got %v, want ErrArithmeticOverflow", err)
	}
}

func TestFixedPointSub(t *testing.T) {
	got, err := FixedPoint(1500).Sub(FixedPoint(250))
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	if got != 1250 {
		t.Errorf("Sub = %d, want 1250", got)
	}

	if _, err := FixedPoint(100).Sub(FixedPoint(101)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Sub underflow: got %v, want ErrArithmeticOverflow", err)
	}
}

func TestFixedPointMul(t *testing.T) {
	tests := []struct {
		name string
		a, b FixedPoint
		want FixedPoint
	}{
		{"one times one", One, One, One},
		{"half times half", 500, 500, 250},
		{"exact", 2000, 1500, 3000},
		{"rounds up", 1, 1, 1}, // 1*1/1000 = 0.001, ceil -> 1
		{"zero", 0, 12345, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Mul(tt.b)
			if err != nil {
				t.Fatalf("Mul(%d, %d) failed: %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("Mul(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}

	// Large operands survive via the 128-bit intermediate.
	big := FixedPoint(math.MaxUint64 / 2)
	got, err := big.Mul(2 * Scale)
	if err != nil {
		t.Fatalf("Mul large failed: %v", err)
	}
	if got != big*2 {
		t.Errorf("Mul large = %d, want %d", got, big*2)
	}

	if _, err := FixedPoint(math.MaxUint64).Mul(FixedPoint(math.MaxUint64)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Mul overflow: got %v, want ErrArithmeticOverflow", err)
	}
}

func TestFixedPointDiv(t *testing.T) {
	got, err := FixedPoint(3000).Div(FixedPoint(1500))
	if err != nil {
		t.Fatalf("Div failed: %v", err)
	}
	if got != 2000 {
		t.Errorf("Div = %d, want 2000", got)
	}

	// 1/3 rounds up at the third decimal.
	got, err = FixedPoint(1000).Div(FixedPoint(3000))
	if err != nil {
		t.Fatalf("Div failed: %v", err)
	}
	if got != 334 {
		t.Errorf("Div(1, 3) = %d, want 334", got)
	}

	if _, err := One.Div(0); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Div by zero: got %v, want ErrArithmeticOverflow", err)
	}
}

func TestFixedPointDivFloor(t *testing.T) {
	got, err := FixedPoint(1000).divFloor(FixedPoint(3000))
	if err != nil {
		t.Fatalf("divFloor failed: %v", err)
	}
	if got != 333 {
		t.Errorf("divFloor(1, 3) = %d, want 333", got)
	}
}

func TestScaleAmount(t *testing.T) {
	// 100 units at rate 0.5 -> 50.
	got, err := scaleAmount(100, 500)
	if err != nil {
		t.Fatalf("scaleAmount failed: %v", err)
	}
	if got != 50 {
		t.Errorf("scaleAmount(100, 500) = %d, want 50", got)
	}

	// 1 unit at rate 0.001 rounds up to 1, never free.
	got, err = scaleAmount(1, 1)
	if err != nil {
		t.Fatalf("scaleAmount failed: %v", err)
	}
	if got != 1 {
		t.Errorf("scaleAmount(1, 1) = %d, want 1", got)
	}
}
