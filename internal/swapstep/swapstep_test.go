package swapstep

import (
	"testing"

	"lukechampine.com/uint128"

	"github.com/oraicore/clmm/internal/fixedpoint"
	"github.com/oraicore/clmm/internal/tickmath"
)

func mustSqrt(t *testing.T, tick int32) fixedpoint.SqrtPrice {
	t.Helper()
	sp, err := tickmath.SqrtPriceFromTick(tick)
	if err != nil {
		t.Fatalf("tick %d: %v", tick, err)
	}
	return sp
}

func TestComputeReachesTargetWithLargeAmount(t *testing.T) {
	current := mustSqrt(t, 0)
	target := mustSqrt(t, -100) // x_to_y: price decreasing
	liquidity := fixedpoint.NewLiquidity(uint128.From64(1_000_000_000)) // 1000.0 at 1e6 scale
	huge := fixedpoint.NewTokenAmount(uint128.From64(1_000_000_000_000))
	fee := fixedpoint.PercentageFromBps(30) // 0.3%

	step, err := Compute(current, target, liquidity, huge, true, fee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !step.NextSqrtPrice.Equals(target) {
		t.Fatalf("should clamp to target with an oversized amount: got %s want %s", step.NextSqrtPrice.Raw, target.Raw)
	}
	if step.AmountIn.IsZero() {
		t.Fatalf("expected nonzero amount in")
	}
}

func TestComputePartialStepDoesNotReachTarget(t *testing.T) {
	current := mustSqrt(t, 0)
	target := mustSqrt(t, -100)
	liquidity := fixedpoint.NewLiquidity(uint128.From64(1_000_000_000))
	tiny := fixedpoint.NewTokenAmount(uint128.From64(1))
	fee := fixedpoint.NewPercentage(0)

	step, err := Compute(current, target, liquidity, tiny, true, fee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.NextSqrtPrice.Equals(target) {
		t.Fatalf("a tiny amount should not reach the target price")
	}
	if step.NextSqrtPrice.Cmp(current) >= 0 {
		t.Fatalf("price should move down toward target, got %s from %s", step.NextSqrtPrice.Raw, current.Raw)
	}
}

func TestComputeByAmountOutDirectionYToX(t *testing.T) {
	current := mustSqrt(t, 0)
	target := mustSqrt(t, 100) // y_to_x: price increasing
	liquidity := fixedpoint.NewLiquidity(uint128.From64(1_000_000_000))
	wantOut := fixedpoint.NewTokenAmount(uint128.From64(1))
	fee := fixedpoint.NewPercentage(0)

	step, err := Compute(current, target, liquidity, wantOut, false, fee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.NextSqrtPrice.Cmp(current) <= 0 {
		t.Fatalf("price should move up toward target, got %s from %s", step.NextSqrtPrice.Raw, current.Raw)
	}
	if step.AmountOut.Cmp(wantOut) > 0 {
		t.Fatalf("amount out should never exceed the requested amount, got %s want at most %s", step.AmountOut.Raw, wantOut.Raw)
	}
}
