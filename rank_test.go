package codehub

import "testing"

func TestRankThresholds(t *testing.T) {
	cases := []struct {
		solved int
		want   int
	}{
		{0, 7},
		{5, 7},
		{9, 7},
		{10, 6},
		{19, 6},
		{20, 5},
		{39, 5},
		{40, 4},
		{59, 4},
		{60, 3},
		{79, 3},
		{80, 2},
		{99, 2},
		{100, 1},
		{250, 1},
	}
	for _, tc := range cases {
		if got := Rank(tc.solved); got != tc.want {
			t.Errorf("Rank(%d) = %d, want %d", tc.solved, got, tc.want)
		}
	}
}

func TestRankNegativeSolved(t *testing.T) {
	if got := Rank(-1); got != 7 {
		t.Fatalf("Rank(-1) = %d, want 7", got)
	}
}
