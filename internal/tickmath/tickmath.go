// Package tickmath converts between tick indices and sqrt-price values
// (§4.2) using the same bit-decomposition technique the teacher uses to
// derive Raydium's X64 sqrt price from a tick
// (pkg/pool/raydium/clmm_tickerarray.go:getSqrtPriceX64FromTick /
// getTickFromSqrtPriceX64), re-tabulated for this engine's 24-decimal
// SqrtPrice scale instead of Q64.64.
package tickmath

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/fixedpoint"
)

// MaxTick/MinTick bound the valid tick domain. The value is grounded on
// original_source/wasm/consts.rs (MAX_TICK = 665455) rather than the
// "221_818" figure in the distilled spec prose: the two fixed constants
// the spec DOES pin precisely — MinSqrtPrice and MaxSqrtPrice — sit at
// tick = ±665455: SqrtPriceFromTick(MinTick) equals MinSqrtPrice exactly,
// and SqrtPriceFromTick(MaxTick) agrees with MaxSqrtPrice in its leading
// 23 digits (it is slightly larger). So that is the boundary this engine
// enforces (see DESIGN.md, Open Questions).
const (
	MaxTick = 665455
	MinTick = -MaxTick
)

var (
	scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(fixedpoint.SqrtPriceScale)), nil)

	// MinSqrtPrice/MaxSqrtPrice are the normative constants from §4.1,
	// bit-exact with the original CosmWasm contract's consts.rs.
	MinSqrtPrice = fixedpoint.NewSqrtPrice(uint128.From64(3_552_636_207))
	maxSqrtRaw, _ = new(big.Int).SetString("281481114768267672330495788147852355926", 10)
	MaxSqrtPrice  = fixedpoint.NewSqrtPrice(uint128.FromBig(maxSqrtRaw))
)

// sqrtPriceTable[j] holds sqrt(1.0001)^(2^j) at 24-decimal fixed point,
// precomputed the same way Raydium's on-chain table
// encodes sqrt(1.0001)^(2^j) at Q64.64 — only the base scale differs.
var sqrtPriceTable = [20]*big.Int{
	mustBig("1000049998750062496094023"),
	mustBig("1000100000000000000000000"),
	mustBig("1000200010000000000000000"),
	mustBig("1000400060004000100000000"),
	mustBig("1000800280056007000560028"),
	mustBig("1001601200560182043688009"),
	mustBig("1003204964963598014666529"),
	mustBig("1006420201727613920156534"),
	mustBig("1012881622445451097078096"),
	mustBig("1025929181087729343658709"),
	mustBig("1052530684607338948386589"),
	mustBig("1107820842039993613899216"),
	mustBig("1227267018058200482050504"),
	mustBig("1506184333613467388107956"),
	mustBig("2268591246822644826925610"),
	mustBig("5146506245160322222537992"),
	mustBig("26486526531474198664033812"),
	mustBig("701536087702486644953017488"),
	mustBig("492152882348911033633683861778"),
	mustBig("242214459604341065650571799093539783"),
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("tickmath: bad table constant " + s)
	}
	return v
}

// CheckTick validates i % spacing == 0 and MinTick <= i <= MaxTick (§4.2).
func CheckTick(i int32, spacing uint16) error {
	if i < MinTick || i > MaxTick {
		return errkind.New(errkind.InvalidTickIndex)
	}
	if spacing == 0 || i%int32(spacing) != 0 {
		return errkind.New(errkind.InvalidTick)
	}
	return nil
}

// SqrtPriceFromTick computes sqrt(1.0001)^i at 24-decimal fixed point via
// repeated-squaring bit decomposition of |i|, then inverts for negative
// ticks (ratio = scale^2 / ratio(|i|)), mirroring getSqrtPriceX64FromTick.
func SqrtPriceFromTick(i int32) (fixedpoint.SqrtPrice, error) {
	if i < MinTick || i > MaxTick {
		return fixedpoint.SqrtPrice{}, errkind.New(errkind.InvalidTickIndex)
	}
	abs := i
	if abs < 0 {
		abs = -abs
	}

	ratio := new(big.Int).Set(scale)
	for j := 0; j < len(sqrtPriceTable); j++ {
		if abs&(1<<uint(j)) != 0 {
			ratio.Mul(ratio, sqrtPriceTable[j])
			ratio.Quo(ratio, scale)
		}
	}

	if i < 0 {
		num := new(big.Int).Mul(scale, scale)
		ratio.Quo(num, ratio)
	}

	return fixedpoint.NewSqrtPrice(uint128.FromBig(ratio)), nil
}

// TickFromSqrtPrice returns the greatest tick t with t % spacing == 0 and
// sqrt_price_from_tick(t) <= p, found by binary search over the monotone
// SqrtPriceFromTick function (§4.2).
func TickFromSqrtPrice(p fixedpoint.SqrtPrice, spacing uint16) (int32, error) {
	lo, hi := int32(MinTick), int32(MaxTick)
	target := p.Raw.Big()

	// Binary search the greatest tick whose sqrt price is <= target.
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		sp, err := SqrtPriceFromTick(mid)
		if err != nil {
			return 0, err
		}
		if sp.Raw.Big().Cmp(target) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	// Snap down to the spacing grid.
	tick := lo
	if rem := tick % int32(spacing); rem != 0 {
		if tick < 0 {
			tick -= (int32(spacing) + rem)
		} else {
			tick -= rem
		}
	}
	if tick < MinTick {
		tick = MinTick - (MinTick % int32(spacing))
	}
	return tick, nil
}
