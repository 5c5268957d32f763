package clmm

import "github.com/oraicore/clmm/internal/fixedpoint"

// feeGrowthInside implements §4.7: inside = global - below - above,
// where below/above select the tick's outside value or its complement
// depending on which side of current_tick the tick sits on. All
// subtraction here is the unchecked/modular FeeGrowth.WrappingSub,
// per §9's "modular subtraction for growth counters".
func feeGrowthInside(lo, hi Tick, current int32, globalX, globalY fixedpoint.FeeGrowth) (insideX, insideY fixedpoint.FeeGrowth) {
	var belowX, belowY fixedpoint.FeeGrowth
	if current >= lo.Index {
		belowX, belowY = lo.FeeGrowthOutsideX, lo.FeeGrowthOutsideY
	} else {
		belowX = globalX.WrappingSub(lo.FeeGrowthOutsideX)
		belowY = globalY.WrappingSub(lo.FeeGrowthOutsideY)
	}

	var aboveX, aboveY fixedpoint.FeeGrowth
	if current < hi.Index {
		aboveX, aboveY = hi.FeeGrowthOutsideX, hi.FeeGrowthOutsideY
	} else {
		aboveX = globalX.WrappingSub(hi.FeeGrowthOutsideX)
		aboveY = globalY.WrappingSub(hi.FeeGrowthOutsideY)
	}

	insideX = globalX.WrappingSub(belowX).WrappingSub(aboveX)
	insideY = globalY.WrappingSub(belowY).WrappingSub(aboveY)
	return insideX, insideY
}

// incentiveGrowthInside is the same computation specialized to a single
// incentive's per-tick growth-outside bookkeeping (§4.7 "applied
// independently per... incentive").
func incentiveGrowthInside(loOutside, hiOutside, global fixedpoint.FeeGrowth, loIndex, hiIndex, current int32) fixedpoint.FeeGrowth {
	var below fixedpoint.FeeGrowth
	if current >= loIndex {
		below = loOutside
	} else {
		below = global.WrappingSub(loOutside)
	}
	var above fixedpoint.FeeGrowth
	if current < hiIndex {
		above = hiOutside
	} else {
		above = global.WrappingSub(hiOutside)
	}
	return global.WrappingSub(below).WrappingSub(above)
}

// pokePosition realizes accrued fees/incentives into tokens_owed and
// pending_rewards, per §4.7's poke rule:
// tokens_owed += (inside_now - position.fee_growth_inside) * liquidity.
func pokePosition(pos *Position, insideX, insideY fixedpoint.FeeGrowth, incentiveInside map[uint64]fixedpoint.FeeGrowth) error {
	deltaX, err := fixedpoint.MulGrowthDeltaByLiquidity(insideX, pos.FeeGrowthInsideX, pos.Liquidity)
	if err != nil {
		return err
	}
	deltaY, err := fixedpoint.MulGrowthDeltaByLiquidity(insideY, pos.FeeGrowthInsideY, pos.Liquidity)
	if err != nil {
		return err
	}
	owedX, err := pos.TokensOwedX.Add(deltaX)
	if err != nil {
		return err
	}
	owedY, err := pos.TokensOwedY.Add(deltaY)
	if err != nil {
		return err
	}
	pos.TokensOwedX = owedX
	pos.TokensOwedY = owedY
	pos.FeeGrowthInsideX = insideX
	pos.FeeGrowthInsideY = insideY

	for i := range pos.Incentives {
		inc := &pos.Incentives[i]
		newInside, ok := incentiveInside[inc.IncentiveID]
		if !ok {
			continue
		}
		gained, err := fixedpoint.MulGrowthDeltaByLiquidity(newInside, inc.IncentiveGrowthInside, pos.Liquidity)
		if err != nil {
			return err
		}
		pending, err := inc.PendingRewards.Add(gained)
		if err != nil {
			return err
		}
		inc.PendingRewards = pending
		inc.IncentiveGrowthInside = newInside
	}
	return nil
}
