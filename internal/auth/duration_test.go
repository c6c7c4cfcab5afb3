package auth

import (
	"testing"
	"time"
)

func TestParseExpirationDurationNever(t *testing.T) {
	for _, in := range []string{"", "never"} {
		got, err := ParseExpirationDuration(in)
		if err != nil {
			t.Fatalf("ParseExpirationDuration(%q) failed: %v", in, err)
		}
		if got != nil {
			t.Errorf("ParseExpirationDuration(%q) = %v, want nil", in, got)
		}
	}
}

func TestParseExpirationDurationRelative(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"2h30m", 2*time.Hour + 30*time.Minute},
		{"30d", 30 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseExpirationDuration(tt.in)
		if err != nil {
			t.Fatalf("ParseExpirationDuration(%q) failed: %v", tt.in, err)
		}
		if got == nil {
			t.Fatalf("ParseExpirationDuration(%q) = nil, want a time", tt.in)
		}
		diff := time.Until(*got) - tt.want
		if diff < -time.Minute || diff > time.Minute {
			t.Errorf("ParseExpirationDuration(%q) off by %v", tt.in, diff)
		}
	}
}

func TestParseExpirationDurationAbsolute(t *testing.T) {
	got, err := ParseExpirationDuration("12/25/2030 09:30")
	if err != nil {
		t.Fatalf("ParseExpirationDuration failed: %v", err)
	}
	want := time.Date(2030, 12, 25, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := ParseExpirationDuration("01/01/2020"); err == nil {
		t.Errorf("past date accepted, want error")
	}
}

func TestParseExpirationDurationInvalid(t *testing.T) {
	for _, in := range []string{"soon", "3y", "d30", "10 days"} {
		if _, err := ParseExpirationDuration(in); err == nil {
			t.Errorf("ParseExpirationDuration(%q) succeeded, want error", in)
		}
	}
}
