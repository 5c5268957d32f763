// Package engine is the request surface a host embeds to run the CLMM
// core: it opens a transaction over the host's KVStore for every call,
// dispatches into internal/clmm, and commits on success or aborts on
// failure so a caller never observes a partial mutation.
package engine

import (
	"log"

	"golang.org/x/time/rate"

	"github.com/oraicore/clmm/internal/clmm"
	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/fixedpoint"
	"github.com/oraicore/clmm/internal/store"
)

// RateLimiter throttles the request surface, adapted from the teacher's
// RPC-call limiter to bound core entry points instead of outbound calls.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a RateLimiter allowing requestsPerSecond calls.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)}
}

// Allow reports whether a call may proceed without blocking.
func (rl *RateLimiter) Allow() bool { return rl.limiter.Allow() }

// Engine wires a backing KVStore into the core's request surface.
type Engine struct {
	store       store.KVStore
	rateLimiter *RateLimiter
}

// New builds an Engine over base, limited to requestsPerSecond calls.
func New(base store.KVStore, requestsPerSecond int) *Engine {
	return &Engine{store: base, rateLimiter: NewRateLimiter(requestsPerSecond)}
}

func (e *Engine) begin() (*store.Tx, error) {
	if !e.rateLimiter.Allow() {
		return nil, errkind.New(errkind.RateLimited)
	}
	return store.Begin(e.store), nil
}

// Swap executes calculate_swap and commits the resulting state change.
func (e *Engine) Swap(caller clmm.Address, key clmm.PoolKey, xToY bool, amount fixedpoint.TokenAmount, byAmountIn bool, sqrtPriceLimit fixedpoint.SqrtPrice, nowMs uint64) (clmm.SwapResult, error) {
	tx, err := e.begin()
	if err != nil {
		return clmm.SwapResult{}, err
	}
	result, err := clmm.CalculateSwap(tx, caller, key, xToY, amount, byAmountIn, sqrtPriceLimit, nowMs)
	if err != nil {
		log.Printf("swap failed: pool=%v err=%v", key, err)
		tx.Abort()
		return clmm.SwapResult{}, err
	}
	tx.Commit()
	return result, nil
}

// CreatePosition executes create_position and commits on success.
func (e *Engine) CreatePosition(owner clmm.Address, key clmm.PoolKey, lower, upper int32, liquidityDelta fixedpoint.Liquidity, slipLo, slipHi fixedpoint.SqrtPrice, nowMs uint64) (clmm.CreatePositionResult, error) {
	tx, err := e.begin()
	if err != nil {
		return clmm.CreatePositionResult{}, err
	}
	result, err := clmm.CreatePosition(tx, owner, key, lower, upper, liquidityDelta, slipLo, slipHi, nowMs)
	if err != nil {
		log.Printf("create_position failed: pool=%v err=%v", key, err)
		tx.Abort()
		return clmm.CreatePositionResult{}, err
	}
	tx.Commit()
	return result, nil
}

// RemovePosition executes remove_position and commits on success.
func (e *Engine) RemovePosition(owner clmm.Address, index uint32, nowMs uint64) ([]clmm.TransferIntent, error) {
	tx, err := e.begin()
	if err != nil {
		return nil, err
	}
	intents, err := clmm.RemovePosition(tx, owner, index, nowMs)
	if err != nil {
		log.Printf("remove_position failed: owner=%v index=%d err=%v", owner, index, err)
		tx.Abort()
		return nil, err
	}
	tx.Commit()
	return intents, nil
}

// ClaimFee executes claim_fee and commits on success.
func (e *Engine) ClaimFee(owner clmm.Address, index uint32, nowMs uint64) ([]clmm.TransferIntent, error) {
	tx, err := e.begin()
	if err != nil {
		return nil, err
	}
	intents, err := clmm.ClaimFee(tx, owner, index, nowMs)
	if err != nil {
		tx.Abort()
		return nil, err
	}
	tx.Commit()
	return intents, nil
}

// ClaimIncentive executes claim_incentive and commits on success.
func (e *Engine) ClaimIncentive(owner clmm.Address, index uint32, nowMs uint64) ([]clmm.TransferIntent, error) {
	tx, err := e.begin()
	if err != nil {
		return nil, err
	}
	intents, err := clmm.ClaimIncentive(tx, owner, index, nowMs)
	if err != nil {
		tx.Abort()
		return nil, err
	}
	tx.Commit()
	return intents, nil
}

// SwapRoute executes swap_route (§6.1): chains Swap across legs and
// rejects the whole route if the realized output undercuts
// expectedOut*(1-slippageBps/10000), aborting every leg's mutation.
func (e *Engine) SwapRoute(caller clmm.Address, legs []clmm.RouteLeg, amountIn fixedpoint.TokenAmount, expectedOut fixedpoint.TokenAmount, slippageBps uint32, nowMs uint64) (fixedpoint.TokenAmount, error) {
	tx, err := e.begin()
	if err != nil {
		return fixedpoint.TokenAmount{}, err
	}

	amount := amountIn
	for _, leg := range legs {
		result, err := clmm.CalculateSwap(tx, caller, leg.Key, leg.XToY, amount, true, leg.SqrtPriceLimit, nowMs)
		if err != nil {
			log.Printf("swap_route leg failed: pool=%v err=%v", leg.Key, err)
			tx.Abort()
			return fixedpoint.TokenAmount{}, err
		}
		amount = result.AmountOut
	}

	minOut, err := minAcceptableOut(expectedOut, slippageBps)
	if err != nil {
		tx.Abort()
		return fixedpoint.TokenAmount{}, err
	}
	if amount.Cmp(minOut) < 0 {
		log.Printf("swap_route undercut slippage: got=%v want>=%v", amount, minOut)
		tx.Abort()
		return fixedpoint.TokenAmount{}, errkind.New(errkind.AmountUnderMinimumAmountOut)
	}

	tx.Commit()
	return amount, nil
}

// minAcceptableOut scales expectedOut down by slippageBps basis points.
func minAcceptableOut(expectedOut fixedpoint.TokenAmount, slippageBps uint32) (fixedpoint.TokenAmount, error) {
	keep := fixedpoint.PercentageFromBps(uint64(10_000 - slippageBps))
	return expectedOut.MulPercentageFloor(keep)
}

// View runs fn (typically one or more internal/clmm query helpers)
// against a transaction over the engine's store; any writes fn stages
// are always discarded, never committed.
func (e *Engine) View(fn func(tx *store.Tx) error) error {
	tx := store.Begin(e.store)
	defer tx.Abort()
	return fn(tx)
}
