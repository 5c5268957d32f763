package tickmath

import (
	"testing"

	"github.com/oraicore/clmm/internal/errkind"
)

func TestSqrtPriceFromTickZero(t *testing.T) {
	sp, err := SqrtPriceFromTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Raw.Big().Cmp(scale) != 0 {
		t.Fatalf("tick 0 should be sqrt price 1.0 (raw=scale), got %s", sp.Raw)
	}
}

func TestSqrtPriceFromTickMonotonic(t *testing.T) {
	prev, err := SqrtPriceFromTick(-10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tick := range []int32{-9, 0, 1, 10, 100, 1000} {
		cur, err := SqrtPriceFromTick(tick)
		if err != nil {
			t.Fatalf("tick %d: unexpected error: %v", tick, err)
		}
		if cur.Raw.Big().Cmp(prev.Raw.Big()) <= 0 {
			t.Fatalf("sqrt price should strictly increase with tick: tick %d not greater than previous", tick)
		}
		prev = cur
	}
}

func TestSqrtPriceFromTickOutOfRange(t *testing.T) {
	if _, err := SqrtPriceFromTick(MaxTick + 1); !errkind.Is(err, errkind.InvalidTickIndex) {
		t.Fatalf("expected InvalidTickIndex, got %v", err)
	}
	if _, err := SqrtPriceFromTick(MinTick - 1); !errkind.Is(err, errkind.InvalidTickIndex) {
		t.Fatalf("expected InvalidTickIndex, got %v", err)
	}
}

func TestCheckTickSpacing(t *testing.T) {
	if err := CheckTick(10, 5); err != nil {
		t.Fatalf("10 is a multiple of 5, should pass: %v", err)
	}
	if err := CheckTick(7, 5); !errkind.Is(err, errkind.InvalidTick) {
		t.Fatalf("7 is not a multiple of 5, expected InvalidTick, got %v", err)
	}
}

func TestTickFromSqrtPriceRoundTrip(t *testing.T) {
	for _, tick := range []int32{0, 10, -10, 100, -100, 5000, -5000} {
		sp, err := SqrtPriceFromTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		got, err := TickFromSqrtPrice(sp, 1)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if got != tick {
			t.Fatalf("round trip mismatch: tick %d -> sqrt price -> tick %d", tick, got)
		}
	}
}

func TestTickFromSqrtPriceSnapsToSpacing(t *testing.T) {
	sp, err := SqrtPriceFromTick(23)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := TickFromSqrtPrice(sp, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 20 {
		t.Fatalf("tick 23 should snap down to 20 under spacing 10, got %d", got)
	}
}
