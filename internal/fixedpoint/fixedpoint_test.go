package fixedpoint

import (
	"math/big"
	"testing"

	"lukechampine.com/uint128"

	"github.com/oraicore/clmm/internal/errkind"
)

func TestPercentageAddSubOverflow(t *testing.T) {
	a := NewPercentage(1)
	_, err := a.Sub(NewPercentage(2))
	if !errkind.Is(err, errkind.Sub) {
		t.Fatalf("expected Sub error kind, got %v", err)
	}

	max := Percentage{Raw: ^uint64(0)}
	_, err = max.Add(NewPercentage(1))
	if !errkind.Is(err, errkind.Add) {
		t.Fatalf("expected Add error kind, got %v", err)
	}
}

func TestPercentageFromBps(t *testing.T) {
	p := PercentageFromBps(1)
	if p.Raw != 100_000_000 {
		t.Fatalf("1bps should be 1e8 raw at 12 decimals, got %d", p.Raw)
	}
	one := PercentageOne()
	if one.Raw != 1_000_000_000_000 {
		t.Fatalf("unexpected PercentageOne: %d", one.Raw)
	}
}

func TestLiquidityAddSub(t *testing.T) {
	a := LiquidityFromU64(10)
	b := LiquidityFromU64(3)
	sum, err := a.Add(b)
	if err != nil || sum.Cmp(LiquidityFromU64(13)) != 0 {
		t.Fatalf("unexpected sum: %v err=%v", sum, err)
	}
	_, err = b.Sub(a)
	if !errkind.Is(err, errkind.Sub) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestFeeGrowthWrappingSub(t *testing.T) {
	lo := FeeGrowth{Raw: uint128.From64(5)}
	hi := FeeGrowth{Raw: uint128.Max}
	// lo - hi wraps around modulo 2^128 instead of failing.
	got := lo.WrappingSub(hi)
	want := uint128.From64(6) // 5 - Max == 5 - (-1) == 6 mod 2^128
	if !got.Raw.Equals(want) {
		t.Fatalf("wrapping sub mismatch: got %s want %s", got.Raw, want)
	}
}

func TestTokenAmountMulPercentageRounding(t *testing.T) {
	amt := TokenAmountFromU64(100)
	half := PercentageFromBps(5_000) // 50%
	floor, err := amt.MulPercentageFloor(half)
	if err != nil || floor.Raw.Big().Int64() != 50 {
		t.Fatalf("floor mismatch: %v err=%v", floor, err)
	}

	odd := TokenAmountFromU64(1)
	tiny := PercentageFromBps(1) // 0.01%
	ceil, err := odd.MulPercentageCeil(tiny)
	if err != nil || ceil.Raw.Big().Int64() != 1 {
		t.Fatalf("ceil of a nonzero tiny fraction should round up to 1, got %v err=%v", ceil, err)
	}
	floor2, err := odd.MulPercentageFloor(tiny)
	if err != nil || floor2.Raw.Big().Int64() != 0 {
		t.Fatalf("floor of a tiny fraction should truncate to 0, got %v err=%v", floor2, err)
	}
}

func TestDivLiquidityFloor(t *testing.T) {
	amt := TokenAmountFromU64(1000)
	l := Liquidity{Raw: uint128.From64(100)} // 0.0001 at 6 decimals

	got, err := amt.DivLiquidityFloor(l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := new(big.Int).SetString("100000000000000000000000000000000000", 10) // (1000/0.0001) * 1e28
	if got.Raw.Big().Cmp(want) != 0 {
		t.Fatalf("DivLiquidityFloor mismatch: got %s want %s", got.Raw, want)
	}

	// Round-trips through the inverse: recovering the token amount from
	// the growth delta it produced should reproduce the original amount.
	recovered, err := MulGrowthDeltaByLiquidity(got, FeeGrowthZero(), l)
	if err != nil {
		t.Fatalf("unexpected error recovering amount: %v", err)
	}
	if recovered.Cmp(amt) != 0 {
		t.Fatalf("round trip mismatch: amount=%v recovered=%v growth=%s", amt, recovered, got.Raw)
	}
}

func TestMulGrowthDeltaByLiquidity(t *testing.T) {
	prev := NewFeeGrowth(uint128.From64(0))
	now := NewFeeGrowth(uint128.FromBig(feeGrowthDenom)) // growth of exactly 1.0
	l := LiquidityFromU64(2_000_000)                     // 2.0 at 6 decimals

	got, err := MulGrowthDeltaByLiquidity(now, prev, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Raw.Big().Int64() != 2 {
		t.Fatalf("1.0 growth * 2.0 liquidity should yield 2 raw token units, got %s", got.Raw)
	}
}
