// Package swapstep implements compute_swap_step (§4.3): one monotonic
// price move toward a target, bounded by available liquidity, the
// remaining amount, fee rate and direction.
//
// The four exact CLMM formulas (Δx, Δy, next-sqrt-price-from-input,
// next-sqrt-price-from-output) are the same ones the teacher computes in
// Q64.64 for Raydium's CLMM
// (pkg/pool/raydium/clmm_tickerarray.go:getTokenAmountAFromLiquidity,
// getTokenAmountBFromLiquidity, getNextSqrtPriceX64FromInput/Output),
// re-derived here against this engine's 6-decimal Liquidity / 24-decimal
// SqrtPrice scale instead of a power-of-two Q64.64 base.
package swapstep

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/fixedpoint"
)

var (
	liquidityDenom = pow10(fixedpoint.LiquidityScale)
	sqrtPriceDenom = pow10(fixedpoint.SqrtPriceScale)
	// crossScale is the product of the two denominators, the common base
	// Δy and the liquidity-rebasing step land on.
	crossScale = new(big.Int).Mul(liquidityDenom, sqrtPriceDenom)
)

func pow10(n int) *big.Int { return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil) }

func fitsU128(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(uint128.Max.Big()) <= 0
}

func toU128(v *big.Int) (uint128.Uint128, error) {
	if !fitsU128(v) {
		return uint128.Zero, errkind.New(errkind.Cast)
	}
	return uint128.FromBig(v), nil
}

func quoRound(num, denom *big.Int, roundUp bool) *big.Int {
	q, r := new(big.Int).QuoRem(num, denom, new(big.Int))
	if roundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// deltaX computes Δx = L*(1/√lo - 1/√hi) = L*(hi-lo)/(hi*lo), rounded up
// for the input side, down for the output side (§4.3).
func deltaX(lo, hi *big.Int, liquidity uint128.Uint128, roundUp bool) (fixedpoint.TokenAmount, error) {
	if lo.Cmp(hi) > 0 {
		lo, hi = hi, lo
	}
	if lo.Sign() <= 0 {
		return fixedpoint.TokenAmount{}, errkind.New(errkind.Div)
	}
	diff := new(big.Int).Sub(hi, lo)
	num := new(big.Int).Mul(liquidity.Big(), diff)
	num.Mul(num, sqrtPriceDenom)
	denom := new(big.Int).Mul(liquidityDenom, hi)
	denom.Mul(denom, lo)
	out := quoRound(num, denom, roundUp)
	raw, err := toU128(out)
	if err != nil {
		return fixedpoint.TokenAmount{}, err
	}
	return fixedpoint.NewTokenAmount(raw), nil
}

// deltaY computes Δy = L*(√hi - √lo), rounded up for input, down for
// output.
func deltaY(lo, hi *big.Int, liquidity uint128.Uint128, roundUp bool) (fixedpoint.TokenAmount, error) {
	if lo.Cmp(hi) > 0 {
		lo, hi = hi, lo
	}
	diff := new(big.Int).Sub(hi, lo)
	num := new(big.Int).Mul(liquidity.Big(), diff)
	out := quoRound(num, crossScale, roundUp)
	raw, err := toU128(out)
	if err != nil {
		return fixedpoint.TokenAmount{}, err
	}
	return fixedpoint.NewTokenAmount(raw), nil
}

// nextSqrtPriceFromInputX computes the sqrt price reached by adding Δx
// of token X to the pool (x→y, price decreasing), rounded up.
func nextSqrtPriceFromInputX(current *big.Int, liquidity uint128.Uint128, amount *big.Int) (*big.Int, error) {
	if amount.Sign() == 0 {
		return new(big.Int).Set(current), nil
	}
	numerator1 := new(big.Int).Mul(liquidity.Big(), new(big.Int).Quo(sqrtPriceDenom, liquidityDenom))
	product := new(big.Int).Mul(amount, current)
	denominator := new(big.Int).Add(numerator1, product)
	if denominator.Sign() <= 0 {
		return nil, errkind.New(errkind.InsufficientLiquidity)
	}
	num := new(big.Int).Mul(numerator1, current)
	return quoRound(num, denominator, true), nil
}

// nextSqrtPriceFromInputY computes the sqrt price reached by adding Δy
// of token Y to the pool (y→x, price increasing), rounded down.
func nextSqrtPriceFromInputY(current *big.Int, liquidity uint128.Uint128, amount *big.Int) (*big.Int, error) {
	if amount.Sign() == 0 {
		return new(big.Int).Set(current), nil
	}
	quotient := new(big.Int).Mul(amount, crossScale)
	quotient.Quo(quotient, liquidity.Big())
	return new(big.Int).Add(current, quotient), nil
}

// nextSqrtPriceFromOutputY computes the sqrt price reached by removing Δy
// of token Y from the pool (x→y direction, price decreasing). The price
// step is rounded up, so the resulting price is rounded down (removing
// output moves price down, so we round toward the pool).
func nextSqrtPriceFromOutputY(current *big.Int, liquidity uint128.Uint128, amount *big.Int) (*big.Int, error) {
	quotient := new(big.Int).Mul(amount, crossScale)
	quotient = quoRound(quotient, liquidity.Big(), true)
	if current.Cmp(quotient) <= 0 {
		return nil, errkind.New(errkind.InsufficientLiquidity)
	}
	return new(big.Int).Sub(current, quotient), nil
}

// nextSqrtPriceFromOutputX computes the sqrt price reached by removing Δx
// of token X from the pool (y→x direction, price increasing), rounded
// up.
func nextSqrtPriceFromOutputX(current *big.Int, liquidity uint128.Uint128, amount *big.Int) (*big.Int, error) {
	numerator1 := new(big.Int).Mul(liquidity.Big(), new(big.Int).Quo(sqrtPriceDenom, liquidityDenom))
	product := new(big.Int).Mul(amount, current)
	if numerator1.Cmp(product) <= 0 {
		return nil, errkind.New(errkind.InsufficientLiquidity)
	}
	denominator := new(big.Int).Sub(numerator1, product)
	num := new(big.Int).Mul(numerator1, current)
	return quoRound(num, denominator, true), nil
}

// AmountsForLiquidity computes the (x, y) token amounts backing a
// position of `liquidity` over [sqrtLower, sqrtUpper] at the pool's
// current sqrt price, the same three-branch split Uniswap-style CLMMs
// use to price a deposit/withdrawal (§4.6 step 5): all of token X when
// price is below the range, a mix when price is inside it, all of token
// Y when price is above it. roundUp selects deposit (true) vs
// withdrawal (false) rounding.
func AmountsForLiquidity(current, sqrtLower, sqrtUpper fixedpoint.SqrtPrice, liquidity fixedpoint.Liquidity, roundUp bool) (fixedpoint.TokenAmount, fixedpoint.TokenAmount, error) {
	lower := sqrtLower.Raw.Big()
	upper := sqrtUpper.Raw.Big()
	cur := current.Raw.Big()

	zero := fixedpoint.NewTokenAmount(uint128.Zero)

	switch {
	case cur.Cmp(lower) <= 0:
		x, err := deltaX(lower, upper, liquidity.Raw, roundUp)
		return x, zero, err
	case cur.Cmp(upper) >= 0:
		y, err := deltaY(lower, upper, liquidity.Raw, roundUp)
		return zero, y, err
	default:
		x, err := deltaX(cur, upper, liquidity.Raw, roundUp)
		if err != nil {
			return fixedpoint.TokenAmount{}, fixedpoint.TokenAmount{}, err
		}
		y, err := deltaY(lower, cur, liquidity.Raw, roundUp)
		if err != nil {
			return fixedpoint.TokenAmount{}, fixedpoint.TokenAmount{}, err
		}
		return x, y, nil
	}
}

// Step is the outcome of a single compute_swap_step call.
type Step struct {
	NextSqrtPrice fixedpoint.SqrtPrice
	AmountIn      fixedpoint.TokenAmount
	AmountOut     fixedpoint.TokenAmount
	FeeAmount     fixedpoint.TokenAmount
}

// Compute implements §4.3. xToY reports the swap direction (true iff
// targetSqrt < currentSqrt). byAmountIn selects whether amountRemaining
// is specified as input or desired output.
func Compute(
	currentSqrt, targetSqrt fixedpoint.SqrtPrice,
	liquidity fixedpoint.Liquidity,
	amountRemaining fixedpoint.TokenAmount,
	byAmountIn bool,
	fee fixedpoint.Percentage,
) (Step, error) {
	xToY := targetSqrt.Cmp(currentSqrt) < 0
	current := currentSqrt.Raw.Big()
	target := targetSqrt.Raw.Big()

	var (
		nextSqrt  *big.Int
		amountIn  fixedpoint.TokenAmount
		amountOut fixedpoint.TokenAmount
		err       error
	)

	if byAmountIn {
		afterFee, err := amountRemaining.MulPercentageFloor(mustSub1(fee))
		if err != nil {
			return Step{}, err
		}

		if xToY {
			amountIn, err = deltaX(target, current, liquidity.Raw, true)
		} else {
			amountIn, err = deltaY(current, target, liquidity.Raw, true)
		}
		if err != nil {
			return Step{}, err
		}

		if afterFee.Cmp(amountIn) >= 0 {
			nextSqrt = new(big.Int).Set(target)
		} else {
			if xToY {
				nextSqrt, err = nextSqrtPriceFromInputX(current, liquidity.Raw, afterFee.Raw.Big())
			} else {
				nextSqrt, err = nextSqrtPriceFromInputY(current, liquidity.Raw, afterFee.Raw.Big())
			}
			if err != nil {
				return Step{}, err
			}
		}
	} else {
		if xToY {
			amountOut, err = deltaY(target, current, liquidity.Raw, false)
		} else {
			amountOut, err = deltaX(current, target, liquidity.Raw, false)
		}
		if err != nil {
			return Step{}, err
		}

		if amountRemaining.Cmp(amountOut) >= 0 {
			nextSqrt = new(big.Int).Set(target)
		} else {
			if xToY {
				nextSqrt, err = nextSqrtPriceFromOutputY(current, liquidity.Raw, amountRemaining.Raw.Big())
			} else {
				nextSqrt, err = nextSqrtPriceFromOutputX(current, liquidity.Raw, amountRemaining.Raw.Big())
			}
			if err != nil {
				return Step{}, err
			}
		}
	}

	reachedTarget := nextSqrt.Cmp(target) == 0

	if xToY {
		if !(reachedTarget && byAmountIn) {
			amountIn, err = deltaX(nextSqrt, current, liquidity.Raw, true)
			if err != nil {
				return Step{}, err
			}
		}
		if !(reachedTarget && !byAmountIn) {
			amountOut, err = deltaY(nextSqrt, current, liquidity.Raw, false)
			if err != nil {
				return Step{}, err
			}
		}
	} else {
		if !(reachedTarget && byAmountIn) {
			amountIn, err = deltaY(current, nextSqrt, liquidity.Raw, true)
			if err != nil {
				return Step{}, err
			}
		}
		if !(reachedTarget && !byAmountIn) {
			amountOut, err = deltaX(current, nextSqrt, liquidity.Raw, false)
			if err != nil {
				return Step{}, err
			}
		}
	}

	if !byAmountIn && amountOut.Cmp(amountRemaining) > 0 {
		amountOut = amountRemaining
	}

	var feeAmount fixedpoint.TokenAmount
	if reachedTarget && byAmountIn {
		feeAmount, err = amountRemaining.Sub(amountIn)
		if err != nil {
			return Step{}, err
		}
	} else {
		feeAmount, err = amountIn.MulPercentageCeil(fee)
		if err != nil {
			return Step{}, err
		}
	}

	nextSqrtRaw, err := toU128(nextSqrt)
	if err != nil {
		return Step{}, err
	}

	return Step{
		NextSqrtPrice: fixedpoint.NewSqrtPrice(nextSqrtRaw),
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		FeeAmount:     feeAmount,
	}, nil
}

// mustSub1 computes (1 - fee); fee is always validated < 100% by the
// pool's fee-tier registry before a swap step ever runs, so this is
// infallible in practice but still threaded through the checked path.
func mustSub1(fee fixedpoint.Percentage) fixedpoint.Percentage {
	one := fixedpoint.PercentageOne()
	out, err := one.Sub(fee)
	if err != nil {
		return fixedpoint.NewPercentage(0)
	}
	return out
}
