package clmm

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/fixedpoint"
	"github.com/oraicore/clmm/internal/store"
	"github.com/oraicore/clmm/internal/swapstep"
	"github.com/oraicore/clmm/internal/tickmath"
)

func bigFromUint64(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// clampToUint128 saturates a nonnegative big.Int at uint128's max, used
// for incentive emission math where overflow should cap, not abort a
// transaction over a reward-schedule edge case.
func clampToUint128(v *big.Int) uint128.Uint128 {
	if v.Sign() < 0 {
		return uint128.Zero
	}
	if v.Cmp(uint128.Max.Big()) > 0 {
		return uint128.Max
	}
	return uint128.FromBig(v)
}

// SwapResult is calculate_swap's outcome (§6.1).
type SwapResult struct {
	AmountIn  fixedpoint.TokenAmount
	AmountOut fixedpoint.TokenAmount
	Intents   []TransferIntent
}

// CalculateSwap implements §4.5. xToY selects the swap direction;
// byAmountIn selects whether `amount` is the input or the desired
// output. sqrtPriceLimit bounds how far the price is allowed to move.
func CalculateSwap(
	tx *store.Tx,
	caller Address,
	key PoolKey,
	xToY bool,
	amount fixedpoint.TokenAmount,
	byAmountIn bool,
	sqrtPriceLimit fixedpoint.SqrtPrice,
	nowMs uint64,
) (SwapResult, error) {
	if amount.IsZero() {
		return SwapResult{}, errkind.New(errkind.AmountIsZero)
	}

	pool, err := loadPool(tx, key)
	if err != nil {
		return SwapResult{}, err
	}
	if !(pool.Status == StatusOpening || pool.Status == StatusSwapOnly) {
		return SwapResult{}, errkind.New(errkind.PoolPaused)
	}

	cfg, _ := loadConfig(tx)
	protocolFee := cfg.ProtocolFee

	if xToY {
		if sqrtPriceLimit.Cmp(pool.SqrtPrice) >= 0 || sqrtPriceLimit.Cmp(tickmath.MinSqrtPrice) < 0 {
			return SwapResult{}, errkind.New(errkind.WrongLimit)
		}
	} else {
		if sqrtPriceLimit.Cmp(pool.SqrtPrice) <= 0 || sqrtPriceLimit.Cmp(tickmath.MaxSqrtPrice) > 0 {
			return SwapResult{}, errkind.New(errkind.WrongLimit)
		}
	}

	if err := updateGlobalIncentives(tx, &pool, nowMs/1000); err != nil {
		return SwapResult{}, err
	}

	spacing := key.FeeTier.TickSpacing
	fee := key.FeeTier.Fee

	remaining := amount
	totalIn := fixedpoint.TokenAmountFromU64(0)
	totalOut := fixedpoint.TokenAmountFromU64(0)

	for !remaining.IsZero() {
		stepLimit, limitingTick, limitInitialized, err := closerLimit(tx, pool, key, xToY, sqrtPriceLimit, spacing)
		if err != nil {
			return SwapResult{}, err
		}

		step, err := swapstep.Compute(pool.SqrtPrice, stepLimit, pool.Liquidity, remaining, byAmountIn, fee)
		if err != nil {
			return SwapResult{}, err
		}

		var consumed fixedpoint.TokenAmount
		if byAmountIn {
			consumed, err = step.AmountIn.Add(step.FeeAmount)
		} else {
			consumed = step.AmountOut
		}
		if err != nil {
			return SwapResult{}, err
		}
		if remaining, err = remaining.Sub(consumed); err != nil {
			// A rounding step that would overshoot leaves nothing remaining.
			remaining = fixedpoint.TokenAmountFromU64(0)
		}

		if totalIn, err = totalIn.Add(step.AmountIn); err != nil {
			return SwapResult{}, err
		}
		if totalOut, err = totalOut.Add(step.AmountOut); err != nil {
			return SwapResult{}, err
		}

		if err := accrueFee(&pool, xToY, step.FeeAmount, protocolFee); err != nil {
			return SwapResult{}, err
		}

		pool.SqrtPrice = step.NextSqrtPrice

		reachedLimit := pool.SqrtPrice.Equals(stepLimit)
		if reachedLimit && !remaining.IsZero() && limitingTick == nil {
			return SwapResult{}, errkind.New(errkind.PriceLimitReached)
		}

		if reachedLimit && limitingTick != nil {
			if limitInitialized {
				if err := crossTick(tx, &pool, key, *limitingTick, xToY, nowMs); err != nil {
					return SwapResult{}, err
				}
			} else {
				pool.CurrentTick = *limitingTick
			}

			maxTickForSpacing := tickmath.MaxTick - tickmath.MaxTick%int32(spacing)
			minTickForSpacing := tickmath.MinTick - tickmath.MinTick%int32(spacing)
			if pool.CurrentTick <= minTickForSpacing || pool.CurrentTick >= maxTickForSpacing {
				return SwapResult{}, errkind.New(errkind.TickLimitReached)
			}
		}
	}

	if totalOut.IsZero() {
		return SwapResult{}, errkind.New(errkind.NoGainSwap)
	}

	if err := savePool(tx, pool); err != nil {
		return SwapResult{}, err
	}

	inAsset, outAsset := key.TokenX, key.TokenY
	if !xToY {
		inAsset, outAsset = key.TokenY, key.TokenX
	}

	intents := []TransferIntent{
		{Asset: AssetInfo{Kind: AssetToken, Address: inAsset}, From: caller, To: poolVault(key), Amount: totalIn},
		{Asset: AssetInfo{Kind: AssetToken, Address: outAsset}, From: poolVault(key), To: caller, Amount: totalOut},
	}

	return SwapResult{AmountIn: totalIn, AmountOut: totalOut, Intents: intents}, nil
}

// poolVault is a deterministic stand-in for "the pool's own balance":
// production hosts back this with a program-derived vault account; the
// core only needs a stable address to name as a transfer-intent party.
func poolVault(key PoolKey) Address {
	return key.TokenX
}

// closerLimit implements get_closer_limit (§4.4): the nearer of the
// caller's sqrt_price_limit and the next/prev initialized tick's sqrt
// price, scanning within TICK_SEARCH_RANGE. When no initialized tick
// falls within the window it returns the window boundary itself as an
// uninitialized limit, failing TickLimitReached only if that boundary
// equals the current tick (i.e. there is nowhere left to search).
func closerLimit(tx *store.Tx, pool Pool, key PoolKey, xToY bool, priceLimit fixedpoint.SqrtPrice, spacing uint16) (fixedpoint.SqrtPrice, *int32, bool, error) {
	var (
		tick         int32
		found        bool
	)
	if xToY {
		tick, found = prevInitializedTick(tx, key, pool.CurrentTick, spacing)
	} else {
		tick, found = nextInitializedTick(tx, key, pool.CurrentTick, spacing)
	}

	if !found {
		boundary := searchWindowBoundary(pool.CurrentTick, spacing, xToY)
		if boundary == pool.CurrentTick {
			return fixedpoint.SqrtPrice{}, nil, false, errkind.New(errkind.TickLimitReached)
		}
		boundarySqrt, err := tickmath.SqrtPriceFromTick(boundary)
		if err != nil {
			return fixedpoint.SqrtPrice{}, nil, false, err
		}
		if closerToCurrent(boundarySqrt, priceLimit, pool.SqrtPrice, xToY) {
			b := boundary
			return boundarySqrt, &b, false, nil
		}
		return priceLimit, nil, false, nil
	}

	tickSqrt, err := tickmath.SqrtPriceFromTick(tick)
	if err != nil {
		return fixedpoint.SqrtPrice{}, nil, false, err
	}
	if closerToCurrent(tickSqrt, priceLimit, pool.SqrtPrice, xToY) {
		t := tick
		return tickSqrt, &t, true, nil
	}
	return priceLimit, nil, false, nil
}

func searchWindowBoundary(current int32, spacing uint16, xToY bool) int32 {
	span := int32(256) * int32(spacing)
	if xToY {
		b := current - span
		if b < tickmath.MinTick {
			b = tickmath.MinTick
		}
		return b
	}
	b := current + span
	if b > tickmath.MaxTick {
		b = tickmath.MaxTick
	}
	return b
}

// closerToCurrent reports whether candidate is strictly closer to
// current (in the direction of travel) than limit is.
func closerToCurrent(candidate, limit, current fixedpoint.SqrtPrice, xToY bool) bool {
	if xToY {
		return candidate.Cmp(limit) > 0
	}
	return candidate.Cmp(limit) < 0
}

// accrueFee implements §4.5(d): split the step's fee between the pool's
// LPs and the protocol, advancing fee_growth_global on the input side.
func accrueFee(pool *Pool, xToY bool, feeAmount fixedpoint.TokenAmount, protocolFee fixedpoint.Percentage) error {
	if feeAmount.IsZero() {
		return nil
	}
	protocolShare, err := feeAmount.MulPercentageFloor(protocolFee)
	if err != nil {
		return err
	}
	poolShare, err := feeAmount.Sub(protocolShare)
	if err != nil {
		return err
	}

	if xToY {
		if pool.Liquidity.IsZero() {
			protocolShare, err = protocolShare.Add(poolShare)
			if err != nil {
				return err
			}
		} else {
			growth, err := poolShare.DivLiquidityFloor(pool.Liquidity)
			if err != nil {
				return err
			}
			pool.FeeGrowthGlobalX, err = pool.FeeGrowthGlobalX.Add(growth)
			if err != nil {
				return err
			}
		}
		pool.FeeProtocolTokenX, err = pool.FeeProtocolTokenX.Add(protocolShare)
		return err
	}

	if pool.Liquidity.IsZero() {
		protocolShare, err = protocolShare.Add(poolShare)
		if err != nil {
			return err
		}
	} else {
		growth, err := poolShare.DivLiquidityFloor(pool.Liquidity)
		if err != nil {
			return err
		}
		pool.FeeGrowthGlobalY, err = pool.FeeGrowthGlobalY.Add(growth)
		if err != nil {
			return err
		}
	}
	pool.FeeProtocolTokenY, err = pool.FeeProtocolTokenY.Add(protocolShare)
	return err
}

// crossTick implements §4.8: flip outside counters, advance
// current_tick, and apply the tick's signed liquidity_change to pool
// liquidity.
func crossTick(tx *store.Tx, pool *Pool, key PoolKey, index int32, xToY bool, nowMs uint64) error {
	t, ok := loadTick(tx, key, index)
	if !ok {
		return errkind.New(errkind.TickNotFound)
	}

	t.FeeGrowthOutsideX = pool.FeeGrowthGlobalX.WrappingSub(t.FeeGrowthOutsideX)
	t.FeeGrowthOutsideY = pool.FeeGrowthGlobalY.WrappingSub(t.FeeGrowthOutsideY)

	elapsed := uint64(0)
	if nowMs/1000 > pool.StartTimestampMs/1000 {
		elapsed = nowMs/1000 - pool.StartTimestampMs/1000
	}
	t.SecondsOutside = elapsed - t.SecondsOutside

	for i := range t.Incentives {
		inc := &t.Incentives[i]
		for _, rec := range pool.Incentives {
			if rec.ID == inc.IncentiveID {
				inc.IncentiveGrowthOutside = rec.IncentiveGrowthGlobal.WrappingSub(inc.IncentiveGrowthOutside)
				break
			}
		}
	}

	if t.LiquidityChange != 0 {
		delta := fixedpoint.LiquidityFromU64(uint64(absInt64(t.LiquidityChange)))
		var err error
		if (t.LiquidityChange > 0) != xToY {
			pool.Liquidity, err = pool.Liquidity.Add(delta)
		} else {
			pool.Liquidity, err = pool.Liquidity.Sub(delta)
		}
		if err != nil {
			return err
		}
	}

	if xToY {
		pool.CurrentTick = index - 1
	} else {
		pool.CurrentTick = index
	}

	return saveTick(tx, key, t)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// updateGlobalIncentives implements §4.5's `update_global_incentives`:
// advance every incentive record's growth counter by the emission owed
// since it was last updated, capped by its remaining budget.
func updateGlobalIncentives(tx *store.Tx, pool *Pool, nowS uint64) error {
	for i := range pool.Incentives {
		rec := &pool.Incentives[i]
		if nowS <= rec.LastUpdatedS || rec.Remaining.IsZero() {
			rec.LastUpdatedS = nowS
			continue
		}
		dt := nowS - rec.LastUpdatedS
		wantedBig := new(big.Int).Set(rec.RewardPerSec.Raw.Big())
		wantedBig.Mul(wantedBig, bigFromUint64(dt))
		emit := fixedpoint.NewTokenAmount(clampToUint128(wantedBig))
		if emit.Cmp(rec.Remaining) > 0 {
			emit = rec.Remaining
		}
		if !pool.Liquidity.IsZero() && !emit.IsZero() {
			growth, err := emit.DivLiquidityFloor(pool.Liquidity)
			if err != nil {
				return err
			}
			rec.IncentiveGrowthGlobal, err = rec.IncentiveGrowthGlobal.Add(growth)
			if err != nil {
				return err
			}
			rec.Remaining, err = rec.Remaining.Sub(emit)
			if err != nil {
				return err
			}
		}
		rec.LastUpdatedS = nowS
	}
	return nil
}
