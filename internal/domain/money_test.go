package domain

import "testing"

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.49, 1},
		{2.5, 3},
		{-0.5, -1},
		{-1.4, -1},
		{999.999, 1000},
	}
	for _, tc := range cases {
		if got := RoundHalfUp(tc.in); got != tc.want {
			t.Errorf("RoundHalfUp(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPercentOf(t *testing.T) {
	// 5% GST on 100000 paise (Rs 1000) is 5000 paise (Rs 50).
	if got := PercentOf(100000, 5); got != 5000 {
		t.Fatalf("PercentOf(100000, 5) = %d, want 5000", got)
	}
	// 18% of 999 paise is 179.82, rounds to 180.
	if got := PercentOf(999, 18); got != 180 {
		t.Fatalf("PercentOf(999, 18) = %d, want 180", got)
	}
	if got := PercentOf(0, 12); got != 0 {
		t.Fatalf("PercentOf(0, 12) = %d, want 0", got)
	}
}
