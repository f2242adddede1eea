package core

import "testing"

func TestSafeRate(t *testing.T) {
	tests := []struct {
		name     string
		num, den float64
		want     float64
	}{
		{name: "zero denominator", num: 42, den: 0, want: 0},
		{name: "zero numerator", num: 0, den: 10, want: 0},
		{name: "half", num: 1, den: 2, want: 50},
		{name: "rounding", num: 1, den: 3, want: 33.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeRate(tt.num, tt.den, 100, 1); got != tt.want {
				t.Errorf("SafeRate(%v, %v) = %v, want %v", tt.num, tt.den, got, tt.want)
			}
		})
	}
}

func TestPitchScore(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		funding float64
		want    float64
	}{
		{name: "approved no funding", status: PitchApprove, funding: 0, want: 80},
		{name: "approved 1k", status: PitchApprove, funding: 1000, want: 81},
		{name: "rejected bonus capped", status: PitchReject, funding: 50000, want: 40},
		{name: "pending", status: "", funding: 0, want: 50},
		{name: "pending other status", status: "underreview", funding: 500, want: 50.5},
		{name: "capped at 100", status: PitchApprove, funding: 1e9, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PitchScore(tt.status, tt.funding); got != tt.want {
				t.Errorf("PitchScore(%q, %v) = %v, want %v", tt.status, tt.funding, got, tt.want)
			}
		})
	}
}

func TestCompletionPercent(t *testing.T) {
	if got := CompletionPercent(0, 0); got != 0 {
		t.Errorf("CompletionPercent(0, 0) = %d, want 0", got)
	}
	if got := CompletionPercent(4, 4); got != 100 {
		t.Errorf("CompletionPercent(4, 4) = %d, want 100", got)
	}
	if got := CompletionPercent(1, 3); got != 33 {
		t.Errorf("CompletionPercent(1, 3) = %d, want 33", got)
	}
}
