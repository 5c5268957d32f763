package clmm

import (
	"encoding/binary"

	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/fixedpoint"
	"github.com/oraicore/clmm/internal/store"
	"github.com/oraicore/clmm/internal/swapstep"
	"github.com/oraicore/clmm/internal/tickmath"
)

// MaxLimit bounds every paginated list query (§9 "Pagination bounds").
const MaxLimit = 100

// LiquidityTickLimit additionally bounds liquidity-tick list queries
// (§9): 16384*8 / (32+128+8) bytes per entry, rounded down.
const LiquidityTickLimit = 16384 * 8 / (32 + 128 + 8)

func clampLimit(limit uint32) uint32 {
	if limit == 0 || limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// AdminQuery backs §6.1's `admin` query.
func AdminQuery(tx *store.Tx) (Address, error) {
	cfg, ok := loadConfig(tx)
	if !ok {
		return Address{}, errkind.New(errkind.Unauthorized)
	}
	return cfg.Admin, nil
}

// ProtocolFeeQuery backs §6.1's `protocol fee` query.
func ProtocolFeeQuery(tx *store.Tx) (fixedpoint.Percentage, error) {
	cfg, ok := loadConfig(tx)
	if !ok {
		return fixedpoint.Percentage{}, errkind.New(errkind.Unauthorized)
	}
	return cfg.ProtocolFee, nil
}

// FeeTiersQuery backs §6.1's `fee tiers` query.
func FeeTiersQuery(tx *store.Tx) ([]FeeTier, error) {
	cfg, ok := loadConfig(tx)
	if !ok {
		return nil, errkind.New(errkind.Unauthorized)
	}
	return cfg.FeeTiers, nil
}

// PoolQuery backs §6.1's `pool` query.
func PoolQuery(tx *store.Tx, key PoolKey) (Pool, error) {
	return loadPool(tx, key)
}

// PoolsByPoolKeys backs §6.1's `pools_by_pool_keys` query.
func PoolsByPoolKeys(tx *store.Tx, keys []PoolKey) ([]Pool, error) {
	pools := make([]Pool, 0, len(keys))
	for _, k := range keys {
		p, err := loadPool(tx, k)
		if err != nil {
			continue
		}
		pools = append(pools, p)
	}
	return pools, nil
}

// PoolsPaged backs §6.1's `pools paged` query, ordered by pool key
// encoding and resuming strictly after startAfter.
func PoolsPaged(tx *store.Tx, startAfter []byte, limit uint32) []Pool {
	limit = clampLimit(limit)
	var out []Pool
	tx.Iterate(prefixPool, func(key, value []byte) bool {
		if startAfter != nil && string(key) <= string(append(append([]byte{}, prefixPool...), startAfter...)) {
			return true
		}
		var p Pool
		if err := decode(value, &p); err != nil {
			return true
		}
		out = append(out, p)
		return uint32(len(out)) < limit
	})
	return out
}

// PoolsForPair backs §6.1's `pools_for_pair` query: every fee-tier pool
// for an unordered token pair.
func PoolsForPair(tx *store.Tx, tokenA, tokenB Address) []Pool {
	var out []Pool
	tx.Iterate(prefixPool, func(_, value []byte) bool {
		var p Pool
		if err := decode(value, &p); err != nil {
			return true
		}
		if (p.Key.TokenX == tokenA && p.Key.TokenY == tokenB) || (p.Key.TokenX == tokenB && p.Key.TokenY == tokenA) {
			out = append(out, p)
		}
		return true
	})
	return out
}

// TickQuery backs §6.1's `tick` query.
func TickQuery(tx *store.Tx, key PoolKey, index int32) (Tick, bool) {
	return loadTick(tx, key, index)
}

// IsTickInitializedQuery backs §6.1's `is_tick_initialized` query.
func IsTickInitializedQuery(tx *store.Tx, key PoolKey, index int32, spacing uint16) bool {
	return isTickInitialized(tx, key, index, spacing)
}

// TickmapRangeQuery backs §6.1's `tickmap range` query: every
// initialized tick index within [lower, upper], walked via the bitmap
// scan rather than a raw tick-store iteration.
func TickmapRangeQuery(tx *store.Tx, key PoolKey, spacing uint16, lower, upper int32) []int32 {
	if minAligned := -(tickmath.MaxTick - tickmath.MaxTick%int32(spacing)); lower < minAligned {
		lower = minAligned
	}
	var out []int32
	if lower%int32(spacing) == 0 && isTickInitialized(tx, key, lower, spacing) {
		out = append(out, lower)
	}
	current := lower
	for current < upper {
		next, ok := nextInitializedTick(tx, key, current, spacing)
		if !ok {
			// Nothing in this search window; continue from its far end.
			current += int32(256) * int32(spacing)
			continue
		}
		if next > upper {
			break
		}
		out = append(out, next)
		current = next
	}
	return out
}

// LiquidityTick is one row of a `liquidity_ticks` listing (§6.1).
type LiquidityTick struct {
	Index           int32
	LiquidityGross  fixedpoint.Liquidity
	LiquidityChange int64
}

// LiquidityTicksQuery backs §6.1's `liquidity_ticks (list)` query,
// bounded by both MaxLimit and LiquidityTickLimit.
func LiquidityTicksQuery(tx *store.Tx, key PoolKey, startAfter *int32, limit uint32) []LiquidityTick {
	limit = clampLimit(limit)
	if limit > LiquidityTickLimit {
		limit = LiquidityTickLimit
	}
	var out []LiquidityTick
	tx.Iterate(append(append([]byte{}, prefixTick...), key.Bytes()...), func(_, value []byte) bool {
		var t Tick
		if err := decode(value, &t); err != nil {
			return true
		}
		if startAfter != nil && t.Index <= *startAfter {
			return true
		}
		out = append(out, LiquidityTick{Index: t.Index, LiquidityGross: t.LiquidityGross, LiquidityChange: t.LiquidityChange})
		return uint32(len(out)) < limit
	})
	return out
}

// LiquidityTicksAmountQuery backs §6.1's `liquidity_ticks_amount
// (count)` query.
func LiquidityTicksAmountQuery(tx *store.Tx, key PoolKey) uint32 {
	var n uint32
	tx.Iterate(append(append([]byte{}, prefixTick...), key.Bytes()...), func(_, _ []byte) bool {
		n++
		return true
	})
	return n
}

// PositionQuery backs §6.1's `position` query.
func PositionQuery(tx *store.Tx, owner Address, index uint32) (Position, bool) {
	return loadPosition(tx, owner, index)
}

// PositionsPaged backs §6.1's `positions paged` query for one owner.
func PositionsPaged(tx *store.Tx, owner Address, startAfter uint32, limit uint32) []Position {
	limit = clampLimit(limit)
	length := positionsLength(tx, owner)
	var out []Position
	for i := startAfter; i < length && uint32(len(out)) < limit; i++ {
		if p, ok := loadPosition(tx, owner, i); ok {
			out = append(out, p)
		}
	}
	return out
}

// AllPositionsPaged backs §6.1's `all_positions paged` query, scanning
// every owner's position prefix in storage-key order.
func AllPositionsPaged(tx *store.Tx, startAfter []byte, limit uint32) []Position {
	limit = clampLimit(limit)
	var out []Position
	tx.Iterate(prefixPosition, func(key, value []byte) bool {
		if startAfter != nil && string(key) <= string(append(append([]byte{}, prefixPosition...), startAfter...)) {
			return true
		}
		var p Position
		if err := decode(value, &p); err != nil {
			return true
		}
		out = append(out, p)
		return uint32(len(out)) < limit
	})
	return out
}

// PositionTicksQuery backs §6.1's `position_ticks` query: the lower and
// upper boundary ticks of a position.
func PositionTicksQuery(tx *store.Tx, owner Address, index uint32) (lower, upper Tick, err error) {
	pos, ok := loadPosition(tx, owner, index)
	if !ok {
		return Tick{}, Tick{}, errkind.New(errkind.PositionNotFound)
	}
	lo, ok := loadTick(tx, pos.PoolKey, pos.LowerTick)
	if !ok {
		return Tick{}, Tick{}, errkind.New(errkind.TickNotFound)
	}
	hi, ok := loadTick(tx, pos.PoolKey, pos.UpperTick)
	if !ok {
		return Tick{}, Tick{}, errkind.New(errkind.TickNotFound)
	}
	return lo, hi, nil
}

// PositionIncentivesQuery backs §6.1's `position_incentives` query.
func PositionIncentivesQuery(tx *store.Tx, owner Address, index uint32) ([]PositionIncentiveState, error) {
	pos, ok := loadPosition(tx, owner, index)
	if !ok {
		return nil, errkind.New(errkind.PositionNotFound)
	}
	return pos.Incentives, nil
}

// UserPositionAmountQuery backs §6.1's `user_position_amount` query:
// the token amounts a position currently represents at the pool's
// present price, not including unclaimed fees/rewards.
func UserPositionAmountQuery(tx *store.Tx, owner Address, index uint32) (fixedpoint.TokenAmount, fixedpoint.TokenAmount, error) {
	pos, ok := loadPosition(tx, owner, index)
	if !ok {
		return fixedpoint.TokenAmount{}, fixedpoint.TokenAmount{}, errkind.New(errkind.PositionNotFound)
	}
	pool, err := loadPool(tx, pos.PoolKey)
	if err != nil {
		return fixedpoint.TokenAmount{}, fixedpoint.TokenAmount{}, err
	}
	sqrtLower, err := tickmath.SqrtPriceFromTick(pos.LowerTick)
	if err != nil {
		return fixedpoint.TokenAmount{}, fixedpoint.TokenAmount{}, err
	}
	sqrtUpper, err := tickmath.SqrtPriceFromTick(pos.UpperTick)
	if err != nil {
		return fixedpoint.TokenAmount{}, fixedpoint.TokenAmount{}, err
	}
	return swapstep.AmountsForLiquidity(pool.SqrtPrice, sqrtLower, sqrtUpper, pos.Liquidity, false)
}

// NftInfo is the token-id-keyed view backing §6.1's `nft_info` query.
type NftInfo struct {
	Owner    Address
	Index    uint32
	Position Position
}

// NftInfoQuery backs §6.1's `nft_info` query.
func NftInfoQuery(tx *store.Tx, tokenID uint64) (NftInfo, error) {
	owner, index, pos, err := findByTokenID(tx, tokenID)
	if err != nil {
		return NftInfo{}, err
	}
	return NftInfo{Owner: owner, Index: index, Position: pos}, nil
}

// AllNftInfoQuery backs §6.1's `all_nft_info` query: like NftInfoQuery,
// plus the caller's approval standing (used by wallets to decide
// whether "approved" should be displayed).
func AllNftInfoQuery(tx *store.Tx, tokenID uint64, viewer Address, nowMs uint64) (NftInfo, bool, error) {
	info, err := NftInfoQuery(tx, tokenID)
	if err != nil {
		return NftInfo{}, false, err
	}
	return info, canSend(tx, info.Owner, viewer, info.Position, nowMs), nil
}

// TokensQuery backs §6.1's `tokens` query: every token_id owned by
// owner, derived from its dense position index.
func TokensQuery(tx *store.Tx, owner Address, startAfter uint32, limit uint32) []uint64 {
	ids := make([]uint64, 0)
	for _, p := range PositionsPaged(tx, owner, startAfter, limit) {
		ids = append(ids, p.TokenID)
	}
	return ids
}

// AllTokensPaged backs §6.1's `all_tokens paged` query over the global
// token_id index.
func AllTokensPaged(tx *store.Tx, startAfter uint64, limit uint32) []uint64 {
	limit = clampLimit(limit)
	var out []uint64
	tx.Iterate(prefixTokenID, func(key, _ []byte) bool {
		id := tokenIDFromKey(key)
		if id <= startAfter {
			return true
		}
		out = append(out, id)
		return uint32(len(out)) < limit
	})
	return out
}

// NumTokensQuery backs §6.1's `num_tokens` query.
func NumTokensQuery(tx *store.Tx) uint64 {
	return numTokens(tx)
}

// Quote backs §6.1's `quote` query: simulates CalculateSwap against a
// scratch overlay that is discarded afterward, so querying never
// mutates pool state.
func Quote(tx *store.Tx, key PoolKey, xToY bool, amount fixedpoint.TokenAmount, byAmountIn bool, sqrtPriceLimit fixedpoint.SqrtPrice, nowMs uint64) (SwapResult, error) {
	scratch := store.Begin(tx)
	result, err := CalculateSwap(scratch, Address{}, key, xToY, amount, byAmountIn, sqrtPriceLimit, nowMs)
	scratch.Abort()
	return result, err
}

// RouteLeg is one hop of a §6.1 `quote_route` simulation.
type RouteLeg struct {
	Key            PoolKey
	XToY           bool
	SqrtPriceLimit fixedpoint.SqrtPrice
}

// QuoteRoute backs §6.1's `quote_route` query: chains Quote across
// legs, feeding each hop's output as the next hop's input.
func QuoteRoute(tx *store.Tx, legs []RouteLeg, amountIn fixedpoint.TokenAmount, nowMs uint64) (fixedpoint.TokenAmount, error) {
	scratch := store.Begin(tx)
	defer scratch.Abort()

	amount := amountIn
	for _, leg := range legs {
		result, err := CalculateSwap(scratch, Address{}, leg.Key, leg.XToY, amount, true, leg.SqrtPriceLimit, nowMs)
		if err != nil {
			return fixedpoint.TokenAmount{}, err
		}
		amount = result.AmountOut
	}
	return amount, nil
}

func tokenIDFromKey(key []byte) uint64 {
	raw := key[len(prefixTokenID):]
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}
