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

// CreatePositionResult carries the required deposit amounts and the
// transfer intents pulling them from the caller (§4.6).
type CreatePositionResult struct {
	RequiredX fixedpoint.TokenAmount
	RequiredY fixedpoint.TokenAmount
	Intents   []TransferIntent
}

// CreatePosition implements §4.6's create_position.
func CreatePosition(
	tx *store.Tx,
	owner Address,
	key PoolKey,
	lower, upper int32,
	liquidityDelta fixedpoint.Liquidity,
	slipLo, slipHi fixedpoint.SqrtPrice,
	nowMs uint64,
) (CreatePositionResult, error) {
	if liquidityDelta.IsZero() {
		return CreatePositionResult{}, errkind.New(errkind.AmountIsZero)
	}
	if lower >= upper {
		return CreatePositionResult{}, errkind.New(errkind.InvalidTick)
	}
	spacing := key.FeeTier.TickSpacing
	if err := tickmath.CheckTick(lower, spacing); err != nil {
		return CreatePositionResult{}, err
	}
	if err := tickmath.CheckTick(upper, spacing); err != nil {
		return CreatePositionResult{}, err
	}

	pool, err := loadPool(tx, key)
	if err != nil {
		return CreatePositionResult{}, err
	}
	if !(pool.Status == StatusOpening || pool.Status == StatusLpOnly) {
		return CreatePositionResult{}, errkind.New(errkind.PoolPaused)
	}
	if err := updateGlobalIncentives(tx, &pool, nowMs/1000); err != nil {
		return CreatePositionResult{}, err
	}

	if pool.SqrtPrice.Cmp(slipLo) < 0 || pool.SqrtPrice.Cmp(slipHi) > 0 {
		return CreatePositionResult{}, errkind.New(errkind.PriceLimitReached)
	}

	lowerTick, err := getOrInitTick(tx, &pool, key, lower, spacing)
	if err != nil {
		return CreatePositionResult{}, err
	}
	upperTick, err := getOrInitTick(tx, &pool, key, upper, spacing)
	if err != nil {
		return CreatePositionResult{}, err
	}

	maxPerTick := maxLiquidityPerTick(spacing)

	lowerGross, err := lowerTick.LiquidityGross.Add(liquidityDelta)
	if err != nil {
		return CreatePositionResult{}, err
	}
	if lowerGross.Cmp(maxPerTick) > 0 {
		return CreatePositionResult{}, errkind.New(errkind.InsufficientLiquidity)
	}
	upperGross, err := upperTick.LiquidityGross.Add(liquidityDelta)
	if err != nil {
		return CreatePositionResult{}, err
	}
	if upperGross.Cmp(maxPerTick) > 0 {
		return CreatePositionResult{}, errkind.New(errkind.InsufficientLiquidity)
	}
	lowerTick.LiquidityGross = lowerGross
	upperTick.LiquidityGross = upperGross
	lowerTick.LiquidityChange += int64(liquidityDelta.Raw.Big().Int64())
	upperTick.LiquidityChange -= int64(liquidityDelta.Raw.Big().Int64())

	if err := saveTick(tx, key, lowerTick); err != nil {
		return CreatePositionResult{}, err
	}
	if err := saveTick(tx, key, upperTick); err != nil {
		return CreatePositionResult{}, err
	}

	if lower <= pool.CurrentTick && pool.CurrentTick < upper {
		pool.Liquidity, err = pool.Liquidity.Add(liquidityDelta)
		if err != nil {
			return CreatePositionResult{}, err
		}
	}

	sqrtLower, err := tickmath.SqrtPriceFromTick(lower)
	if err != nil {
		return CreatePositionResult{}, err
	}
	sqrtUpper, err := tickmath.SqrtPriceFromTick(upper)
	if err != nil {
		return CreatePositionResult{}, err
	}
	requiredX, requiredY, err := swapstep.AmountsForLiquidity(pool.SqrtPrice, sqrtLower, sqrtUpper, liquidityDelta, true)
	if err != nil {
		return CreatePositionResult{}, err
	}

	insideX, insideY := feeGrowthInside(lowerTick, upperTick, pool.CurrentTick, pool.FeeGrowthGlobalX, pool.FeeGrowthGlobalY)

	incentiveSnapshots := make([]PositionIncentiveState, 0, len(pool.Incentives))
	for _, rec := range pool.Incentives {
		loOut := incentiveOutsideOf(lowerTick, rec.ID)
		hiOut := incentiveOutsideOf(upperTick, rec.ID)
		inside := incentiveGrowthInside(loOut, hiOut, rec.IncentiveGrowthGlobal, lower, upper, pool.CurrentTick)
		incentiveSnapshots = append(incentiveSnapshots, PositionIncentiveState{
			IncentiveID:           rec.ID,
			PendingRewards:        fixedpoint.TokenAmountFromU64(0),
			IncentiveGrowthInside: inside,
		})
	}

	pos := Position{
		PoolKey:          key,
		Liquidity:        liquidityDelta,
		LowerTick:        lower,
		UpperTick:        upper,
		FeeGrowthInsideX: insideX,
		FeeGrowthInsideY: insideY,
		TokensOwedX:      fixedpoint.TokenAmountFromU64(0),
		TokensOwedY:      fixedpoint.TokenAmountFromU64(0),
		LastBlockNumber:  nowMs,
		Incentives:       incentiveSnapshots,
		TokenID:          nextTokenID(tx),
	}

	index := positionsLength(tx, owner)
	if err := savePosition(tx, owner, index, pos); err != nil {
		return CreatePositionResult{}, err
	}
	setPositionsLength(tx, owner, index+1)
	if err := saveTokenIDIndex(tx, pos.TokenID, tokenIDIndexEntry{Owner: owner, Index: index}); err != nil {
		return CreatePositionResult{}, err
	}
	setNumTokens(tx, numTokens(tx)+1)

	if err := savePool(tx, pool); err != nil {
		return CreatePositionResult{}, err
	}

	intents := []TransferIntent{
		{Asset: AssetInfo{Kind: AssetToken, Address: key.TokenX}, From: owner, To: poolVault(key), Amount: requiredX},
		{Asset: AssetInfo{Kind: AssetToken, Address: key.TokenY}, From: owner, To: poolVault(key), Amount: requiredY},
	}

	return CreatePositionResult{RequiredX: requiredX, RequiredY: requiredY, Intents: intents}, nil
}

// getOrInitTick loads a tick if present, or lazily creates it per §4.6
// step 4: flip its bitmap bit and seed fee_growth_outside/incentive
// outside from the pool's current side.
func getOrInitTick(tx *store.Tx, pool *Pool, key PoolKey, index int32, spacing uint16) (Tick, error) {
	if t, ok := loadTick(tx, key, index); ok {
		return t, nil
	}

	t := Tick{Index: index}
	if pool.CurrentTick >= index {
		t.FeeGrowthOutsideX = pool.FeeGrowthGlobalX
		t.FeeGrowthOutsideY = pool.FeeGrowthGlobalY
		for _, rec := range pool.Incentives {
			t.Incentives = append(t.Incentives, TickIncentiveOutside{IncentiveID: rec.ID, IncentiveGrowthOutside: rec.IncentiveGrowthGlobal})
		}
	} else {
		for _, rec := range pool.Incentives {
			t.Incentives = append(t.Incentives, TickIncentiveOutside{IncentiveID: rec.ID, IncentiveGrowthOutside: fixedpoint.FeeGrowthZero()})
		}
	}

	if err := flipBitmap(tx, key, index, spacing, false); err != nil {
		return Tick{}, err
	}
	return t, nil
}

func incentiveOutsideOf(t Tick, id uint64) fixedpoint.FeeGrowth {
	for _, s := range t.Incentives {
		if s.IncentiveID == id {
			return s.IncentiveGrowthOutside
		}
	}
	return fixedpoint.FeeGrowthZero()
}

// maxLiquidityPerTick implements §3.2: u128::MAX / ((MAX_TICK*2/spacing)+1).
func maxLiquidityPerTick(spacing uint16) fixedpoint.Liquidity {
	ticks := int64(tickmath.MaxTick)*2/int64(spacing) + 1
	q := new(big.Int).Div(uint128.Max.Big(), bigFromUint64(uint64(ticks)))
	return fixedpoint.NewLiquidity(clampToUint128(q))
}

// RemovePosition implements §4.6's remove_position.
func RemovePosition(tx *store.Tx, owner Address, index uint32, nowMs uint64) ([]TransferIntent, error) {
	pos, ok := loadPosition(tx, owner, index)
	if !ok {
		return nil, errkind.New(errkind.PositionNotFound)
	}

	pool, err := loadPool(tx, pos.PoolKey)
	if err != nil {
		return nil, err
	}
	if err := updateGlobalIncentives(tx, &pool, nowMs/1000); err != nil {
		return nil, err
	}

	if err := pokeOne(tx, &pool, &pos); err != nil {
		return nil, err
	}

	spacing := pos.PoolKey.FeeTier.TickSpacing
	sqrtLower, err := tickmath.SqrtPriceFromTick(pos.LowerTick)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := tickmath.SqrtPriceFromTick(pos.UpperTick)
	if err != nil {
		return nil, err
	}
	withdrawX, withdrawY, err := swapstep.AmountsForLiquidity(pool.SqrtPrice, sqrtLower, sqrtUpper, pos.Liquidity, false)
	if err != nil {
		return nil, err
	}

	if err := applyTickLiquidityDelta(tx, &pool, pos.PoolKey, pos.LowerTick, pos.UpperTick, pos.Liquidity, spacing, false); err != nil {
		return nil, err
	}

	totalX, err := withdrawX.Add(pos.TokensOwedX)
	if err != nil {
		return nil, err
	}
	totalY, err := withdrawY.Add(pos.TokensOwedY)
	if err != nil {
		return nil, err
	}

	if err := savePool(tx, pool); err != nil {
		return nil, err
	}

	intents := []TransferIntent{
		{Asset: AssetInfo{Kind: AssetToken, Address: pos.PoolKey.TokenX}, From: poolVault(pos.PoolKey), To: owner, Amount: totalX},
		{Asset: AssetInfo{Kind: AssetToken, Address: pos.PoolKey.TokenY}, From: poolVault(pos.PoolKey), To: owner, Amount: totalY},
	}

	// Settle any incentive rewards accrued up to this instant before the
	// position record is compacted away, same pattern as ClaimIncentive.
	for i := range pos.Incentives {
		inc := &pos.Incentives[i]
		if inc.PendingRewards.IsZero() {
			continue
		}
		var rewardToken AssetInfo
		for _, rec := range pool.Incentives {
			if rec.ID == inc.IncentiveID {
				rewardToken = rec.RewardToken
				break
			}
		}
		intents = append(intents, TransferIntent{Asset: rewardToken, From: poolVault(pos.PoolKey), To: owner, Amount: inc.PendingRewards})
		inc.PendingRewards = fixedpoint.TokenAmountFromU64(0)
	}

	if err := compactPositionOnRemove(tx, owner, index, pos.TokenID); err != nil {
		return nil, err
	}

	return intents, nil
}

// applyTickLiquidityDelta reverses (add=false) or replays (add=true) the
// liquidity_gross/liquidity_change bookkeeping of §4.6 steps 5-7,
// deinitializing a tick whose liquidity_gross falls to zero.
func applyTickLiquidityDelta(tx *store.Tx, pool *Pool, key PoolKey, lower, upper int32, delta fixedpoint.Liquidity, spacing uint16, add bool) error {
	for _, idx := range []int32{lower, upper} {
		t, ok := loadTick(tx, key, idx)
		if !ok {
			return errkind.New(errkind.TickNotFound)
		}
		var gross fixedpoint.Liquidity
		var err error
		if add {
			gross, err = t.LiquidityGross.Add(delta)
		} else {
			gross, err = t.LiquidityGross.Sub(delta)
		}
		if err != nil {
			return err
		}
		t.LiquidityGross = gross
		sign := int64(1)
		if idx == upper {
			sign = -1
		}
		if add {
			t.LiquidityChange += sign * int64(delta.Raw.Big().Int64())
		} else {
			t.LiquidityChange -= sign * int64(delta.Raw.Big().Int64())
		}

		if t.LiquidityGross.IsZero() {
			if err := flipBitmap(tx, key, idx, spacing, true); err != nil {
				return err
			}
			deleteTick(tx, key, idx)
		} else {
			if err := saveTick(tx, key, t); err != nil {
				return err
			}
		}
	}

	if lower <= pool.CurrentTick && pool.CurrentTick < upper {
		var err error
		if add {
			pool.Liquidity, err = pool.Liquidity.Add(delta)
		} else {
			pool.Liquidity, err = pool.Liquidity.Sub(delta)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func pokeOne(tx *store.Tx, pool *Pool, pos *Position) error {
	lowerTick, ok := loadTick(tx, pos.PoolKey, pos.LowerTick)
	if !ok {
		return errkind.New(errkind.TickNotFound)
	}
	upperTick, ok := loadTick(tx, pos.PoolKey, pos.UpperTick)
	if !ok {
		return errkind.New(errkind.TickNotFound)
	}
	insideX, insideY := feeGrowthInside(lowerTick, upperTick, pool.CurrentTick, pool.FeeGrowthGlobalX, pool.FeeGrowthGlobalY)

	incentiveInside := make(map[uint64]fixedpoint.FeeGrowth, len(pool.Incentives))
	for _, rec := range pool.Incentives {
		loOut := incentiveOutsideOf(lowerTick, rec.ID)
		hiOut := incentiveOutsideOf(upperTick, rec.ID)
		incentiveInside[rec.ID] = incentiveGrowthInside(loOut, hiOut, rec.IncentiveGrowthGlobal, pos.LowerTick, pos.UpperTick, pool.CurrentTick)
	}

	return pokePosition(pos, insideX, insideY, incentiveInside)
}

// ClaimFee implements §4.6's claim_fee.
func ClaimFee(tx *store.Tx, owner Address, index uint32, nowMs uint64) ([]TransferIntent, error) {
	pos, ok := loadPosition(tx, owner, index)
	if !ok {
		return nil, errkind.New(errkind.PositionNotFound)
	}
	pool, err := loadPool(tx, pos.PoolKey)
	if err != nil {
		return nil, err
	}
	if err := updateGlobalIncentives(tx, &pool, nowMs/1000); err != nil {
		return nil, err
	}
	if err := pokeOne(tx, &pool, &pos); err != nil {
		return nil, err
	}

	owedX, owedY := pos.TokensOwedX, pos.TokensOwedY
	pos.TokensOwedX = fixedpoint.TokenAmountFromU64(0)
	pos.TokensOwedY = fixedpoint.TokenAmountFromU64(0)

	if err := savePool(tx, pool); err != nil {
		return nil, err
	}
	if err := savePosition(tx, owner, index, pos); err != nil {
		return nil, err
	}

	return []TransferIntent{
		{Asset: AssetInfo{Kind: AssetToken, Address: pos.PoolKey.TokenX}, From: poolVault(pos.PoolKey), To: owner, Amount: owedX},
		{Asset: AssetInfo{Kind: AssetToken, Address: pos.PoolKey.TokenY}, From: poolVault(pos.PoolKey), To: owner, Amount: owedY},
	}, nil
}

// ClaimIncentive implements §4.6's claim_incentive: poke to realize
// pending rewards, zero them, and emit one transfer intent per
// incentive whose pending balance was nonzero.
func ClaimIncentive(tx *store.Tx, owner Address, index uint32, nowMs uint64) ([]TransferIntent, error) {
	pos, ok := loadPosition(tx, owner, index)
	if !ok {
		return nil, errkind.New(errkind.PositionNotFound)
	}
	pool, err := loadPool(tx, pos.PoolKey)
	if err != nil {
		return nil, err
	}
	if err := updateGlobalIncentives(tx, &pool, nowMs/1000); err != nil {
		return nil, err
	}
	if err := pokeOne(tx, &pool, &pos); err != nil {
		return nil, err
	}

	var intents []TransferIntent
	for i := range pos.Incentives {
		inc := &pos.Incentives[i]
		if inc.PendingRewards.IsZero() {
			continue
		}
		var rewardToken AssetInfo
		for _, rec := range pool.Incentives {
			if rec.ID == inc.IncentiveID {
				rewardToken = rec.RewardToken
				break
			}
		}
		intents = append(intents, TransferIntent{Asset: rewardToken, From: poolVault(pos.PoolKey), To: owner, Amount: inc.PendingRewards})
		inc.PendingRewards = fixedpoint.TokenAmountFromU64(0)
	}

	if err := savePool(tx, pool); err != nil {
		return nil, err
	}
	if err := savePosition(tx, owner, index, pos); err != nil {
		return nil, err
	}
	return intents, nil
}

// compactPositionOnRemove implements §4.6 step 5 / §9's "NFT
// compaction on removal": move the owner's last position into the
// vacated slot and fix up the token_id index for the moved position.
func compactPositionOnRemove(tx *store.Tx, owner Address, index uint32, removedTokenID uint64) error {
	length := positionsLength(tx, owner)
	if length == 0 {
		return errkind.New(errkind.PositionNotFound)
	}
	lastIndex := length - 1

	deleteTokenIDIndex(tx, removedTokenID)

	if index != lastIndex {
		last, ok := loadPosition(tx, owner, lastIndex)
		if !ok {
			return errkind.New(errkind.PositionNotFound)
		}
		if err := savePosition(tx, owner, index, last); err != nil {
			return err
		}
		if err := saveTokenIDIndex(tx, last.TokenID, tokenIDIndexEntry{Owner: owner, Index: index}); err != nil {
			return err
		}
	}

	deletePosition(tx, owner, lastIndex)
	setPositionsLength(tx, owner, lastIndex)
	if n := numTokens(tx); n > 0 {
		setNumTokens(tx, n-1)
	}
	return nil
}
