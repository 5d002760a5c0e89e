package loyalty

import (
	"errors"
	"testing"
)

func TestRedemptionDiscountCents(t *testing.T) {
	cases := []struct {
		points  int64
		want    int64
		wantErr bool
	}{
		{100, 100, false},
		{300, 300, false},
		{2500, 2500, false},
		{0, 0, true},
		{-100, 0, true},
		{150, 0, true},
		{99, 0, true},
	}
	for _, tc := range cases {
		got, err := RedemptionDiscountCents(tc.points)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidRedemption) {
				t.Errorf("points %d: got err %v, want ErrInvalidRedemption", tc.points, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("points %d: %v", tc.points, err)
			continue
		}
		if got != tc.want {
			t.Errorf("points %d: got %d cents, want %d", tc.points, got, tc.want)
		}
	}
}

func TestEarnedPoints(t *testing.T) {
	cases := []struct {
		totalCents int64
		rate       int64
		want       int64
	}{
		{10000, 1, 100},
		{2599, 1, 25},
		{2599, 2, 50},
		{99, 1, 0},
		{0, 1, 0},
		{-500, 1, 0},
		{10000, 0, 0},
	}
	for _, tc := range cases {
		if got := EarnedPoints(tc.totalCents, tc.rate); got != tc.want {
			t.Errorf("EarnedPoints(%d, %d) = %d, want %d", tc.totalCents, tc.rate, got, tc.want)
		}
	}
}
