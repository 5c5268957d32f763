// Package fixedpoint implements the five scaled integer types the engine
// computes with: Percentage, Liquidity, SqrtPrice, FeeGrowth and
// TokenAmount.
//
// Storage follows the teacher's on-chain decode types (TickState's
// LiquidityGross, CLMMPool's SqrtPriceX64 in
// pkg/pool/raydium/clmmPool.go) which back 128-bit pool fields with
// lukechampine.com/uint128.Uint128. Cross-scale multiplication/division
// widens through cosmossdk.io/math.Uint (an arbitrary-precision wrapper
// around math/big) so a u128*u128 product never silently truncates
// before the final scale-down, satisfying the spec's "widen to u256"
// requirement without hand-rolling 256-bit arithmetic.
package fixedpoint

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/oraicore/clmm/internal/errkind"
)

// Decimal scales, per §4.1.
const (
	PercentageScale = 12
	LiquidityScale  = 6
	SqrtPriceScale  = 24
	FeeGrowthScale  = 28
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

var (
	percentageDenom = pow10(PercentageScale)
	liquidityDenom  = pow10(LiquidityScale)
	sqrtPriceDenom  = pow10(SqrtPriceScale)
	feeGrowthDenom  = pow10(FeeGrowthScale)
)

// checked recovers a uint128 overflow/underflow/division panic into a
// tagged *errkind.Error, so callers see the same "fails with an error
// kind" contract the spec requires instead of a crash.
func checked(kind errkind.Kind, fn func() uint128.Uint128) (out uint128.Uint128, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errkind.New(kind)
		}
	}()
	return fn(), nil
}

func fitsU128(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(uint128.Max.Big()) <= 0
}

// mulDivU256 computes floor(a*b/denom) (or the ceiling if roundUp),
// widening the a*b product through sdkmath.Uint (backed by math/big) so
// the intermediate never clips at 128 bits.
func mulDivU256(a, b uint128.Uint128, denom *big.Int, roundUp bool) (uint128.Uint128, error) {
	if denom.Sign() == 0 {
		return uint128.Zero, errkind.New(errkind.Div)
	}
	wide := sdkmath.NewUintFromBigInt(a.Big()).Mul(sdkmath.NewUintFromBigInt(b.Big()))
	num := wide.BigInt()
	q, r := new(big.Int).QuoRem(num, denom, new(big.Int))
	if roundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !fitsU128(q) {
		return uint128.Zero, errkind.New(errkind.Mul)
	}
	return uint128.FromBig(q), nil
}

// ---- Percentage (12 decimals, backed by uint64) ----

type Percentage struct {
	Raw uint64
}

func NewPercentage(raw uint64) Percentage { return Percentage{Raw: raw} }

// PercentageFromBps builds a Percentage out of basis points (1bps =
// 0.0001 = 1e-4), e.g. PercentageFromBps(6) == 0.06%.
func PercentageFromBps(bps uint64) Percentage {
	return Percentage{Raw: bps * (1e12 / 1e4)}
}

func (p Percentage) IsZero() bool { return p.Raw == 0 }

func (p Percentage) Add(o Percentage) (Percentage, error) {
	sum := p.Raw + o.Raw
	if sum < p.Raw {
		return Percentage{}, errkind.New(errkind.Add)
	}
	return Percentage{Raw: sum}, nil
}

func (p Percentage) Sub(o Percentage) (Percentage, error) {
	if o.Raw > p.Raw {
		return Percentage{}, errkind.New(errkind.Sub)
	}
	return Percentage{Raw: p.Raw - o.Raw}, nil
}

// PercentageOne returns 100% at this scale.
func PercentageOne() Percentage { return Percentage{Raw: 1_000_000_000_000} }

// ---- Liquidity (6 decimals, u128) ----

type Liquidity struct {
	Raw uint128.Uint128
}

func NewLiquidity(raw uint128.Uint128) Liquidity { return Liquidity{Raw: raw} }

func LiquidityFromU64(v uint64) Liquidity { return Liquidity{Raw: uint128.From64(v)} }

func (l Liquidity) IsZero() bool { return l.Raw.IsZero() }

func (l Liquidity) Add(o Liquidity) (Liquidity, error) {
	raw, err := checked(errkind.Add, func() uint128.Uint128 { return l.Raw.Add(o.Raw) })
	return Liquidity{Raw: raw}, err
}

func (l Liquidity) Sub(o Liquidity) (Liquidity, error) {
	raw, err := checked(errkind.Sub, func() uint128.Uint128 { return l.Raw.Sub(o.Raw) })
	return Liquidity{Raw: raw}, err
}

func (l Liquidity) Cmp(o Liquidity) int { return l.Raw.Cmp(o.Raw) }

// ---- SqrtPrice (24 decimals, u128) ----

type SqrtPrice struct {
	Raw uint128.Uint128
}

func NewSqrtPrice(raw uint128.Uint128) SqrtPrice { return SqrtPrice{Raw: raw} }

func SqrtPriceFromU64(v uint64) SqrtPrice { return SqrtPrice{Raw: uint128.From64(v)} }

func (s SqrtPrice) Cmp(o SqrtPrice) int { return s.Raw.Cmp(o.Raw) }
func (s SqrtPrice) Equals(o SqrtPrice) bool { return s.Raw.Equals(o.Raw) }

func (s SqrtPrice) Add(o SqrtPrice) (SqrtPrice, error) {
	raw, err := checked(errkind.Add, func() uint128.Uint128 { return s.Raw.Add(o.Raw) })
	return SqrtPrice{Raw: raw}, err
}

func (s SqrtPrice) Sub(o SqrtPrice) (SqrtPrice, error) {
	raw, err := checked(errkind.Sub, func() uint128.Uint128 { return s.Raw.Sub(o.Raw) })
	return SqrtPrice{Raw: raw}, err
}

// ---- FeeGrowth (28 decimals, u128) ----

type FeeGrowth struct {
	Raw uint128.Uint128
}

func NewFeeGrowth(raw uint128.Uint128) FeeGrowth { return FeeGrowth{Raw: raw} }

func FeeGrowthZero() FeeGrowth { return FeeGrowth{Raw: uint128.Zero} }

// Add is checked: fee growth should never overflow in a single accrual
// step, so an overflow here means a programming error, not a normal
// wraparound.
func (f FeeGrowth) Add(o FeeGrowth) (FeeGrowth, error) {
	raw, err := checked(errkind.Add, func() uint128.Uint128 { return f.Raw.Add(o.Raw) })
	return FeeGrowth{Raw: raw}, err
}

// WrappingSub is the one deliberately unchecked subtraction in the
// engine (§4.1, §9): growth-outside and growth-inside differences are
// taken modulo 2^128, so a difference whose subtrahend exceeds its
// minuend wraps instead of failing. The accumulators themselves are
// advanced with the checked Add above.
func (f FeeGrowth) WrappingSub(o FeeGrowth) FeeGrowth {
	return FeeGrowth{Raw: f.Raw.SubWrap(o.Raw)}
}

func (f FeeGrowth) Cmp(o FeeGrowth) int { return f.Raw.Cmp(o.Raw) }
func (f FeeGrowth) IsZero() bool        { return f.Raw.IsZero() }

// ---- TokenAmount (unscaled u128, raw token units) ----

type TokenAmount struct {
	Raw uint128.Uint128
}

func NewTokenAmount(raw uint128.Uint128) TokenAmount { return TokenAmount{Raw: raw} }

func TokenAmountFromU64(v uint64) TokenAmount { return TokenAmount{Raw: uint128.From64(v)} }

func (t TokenAmount) IsZero() bool { return t.Raw.IsZero() }
func (t TokenAmount) Cmp(o TokenAmount) int { return t.Raw.Cmp(o.Raw) }

func (t TokenAmount) Add(o TokenAmount) (TokenAmount, error) {
	raw, err := checked(errkind.Add, func() uint128.Uint128 { return t.Raw.Add(o.Raw) })
	return TokenAmount{Raw: raw}, err
}

func (t TokenAmount) Sub(o TokenAmount) (TokenAmount, error) {
	raw, err := checked(errkind.Sub, func() uint128.Uint128 { return t.Raw.Sub(o.Raw) })
	return TokenAmount{Raw: raw}, err
}

// MulPercentageFloor/Ceil compute t * pct (12-decimal), rounding down or
// up, widening the product through sdkmath.Uint.
func (t TokenAmount) MulPercentageFloor(pct Percentage) (TokenAmount, error) {
	raw, err := mulDivU256(t.Raw, uint128.From64(pct.Raw), percentageDenom, false)
	return TokenAmount{Raw: raw}, err
}

func (t TokenAmount) MulPercentageCeil(pct Percentage) (TokenAmount, error) {
	raw, err := mulDivU256(t.Raw, uint128.From64(pct.Raw), percentageDenom, true)
	return TokenAmount{Raw: raw}, err
}

// DivLiquidityFloor computes floor(t << FeeGrowthScale-worth-of-precision
// / liquidity) as a FeeGrowth value: the classic "fee per unit
// liquidity" step performed once per swap step in §4.5(d). Liquidity is
// 6-decimal and TokenAmount is unscaled, so the quotient is scaled up by
// feeGrowthDenom/liquidityDenom to land at 28 decimals.
func (t TokenAmount) DivLiquidityFloor(l Liquidity) (FeeGrowth, error) {
	if l.IsZero() {
		return FeeGrowth{}, errkind.New(errkind.Div)
	}
	scaleUp := new(big.Int).Mul(feeGrowthDenom, liquidityDenom)
	raw, err := mulDivU256(t.Raw, uint128.FromBig(scaleUp), l.Raw.Big(), false)
	return FeeGrowth{Raw: raw}, err
}

// MulGrowthDeltaByLiquidity computes (growthNow - growthPrev) * liquidity,
// unscaled back down to a TokenAmount; growthNow-growthPrev is the one
// unchecked (wrapping) subtraction permitted by §4.7/§9.
func MulGrowthDeltaByLiquidity(growthNow, growthPrev FeeGrowth, l Liquidity) (TokenAmount, error) {
	delta := growthNow.WrappingSub(growthPrev)
	scaleDown := new(big.Int).Mul(feeGrowthDenom, liquidityDenom)
	raw, err := mulDivU256(delta.Raw, l.Raw, scaleDown, false)
	return TokenAmount{Raw: raw}, err
}
