// Package errkind defines the tagged error kinds the engine returns.
//
// Every fallible operation in the engine returns a *Error carrying one of
// these kinds; there is no implicit recovery and no partial state change.
// Arithmetic kinds (Mul, Div, Add, Sub, Cast) are the only overflow
// signals ever raised; the one exception is fee-growth differences,
// which wrap instead of failing (see
// internal/fixedpoint.FeeGrowth.WrappingSub).
package errkind

import (
	"errors"
	"fmt"
)

// Kind tags the class of failure so callers can branch on it without
// string-matching an error message.
type Kind string

const (
	Unauthorized                 Kind = "unauthorized"
	Expired                      Kind = "expired"
	InvalidTickSpacing           Kind = "invalid_tick_spacing"
	InvalidFee                   Kind = "invalid_fee"
	InvalidTickIndex              Kind = "invalid_tick_index"
	InvalidTick                   Kind = "invalid_tick"
	TokensAreSame                 Kind = "tokens_are_same"
	InvalidInitTick                Kind = "invalid_init_tick"
	InvalidInitSqrtPrice           Kind = "invalid_init_sqrt_price"
	AmountIsZero                  Kind = "amount_is_zero"
	WrongLimit                    Kind = "wrong_limit"
	NoGainSwap                    Kind = "no_gain_swap"
	PriceLimitReached             Kind = "price_limit_reached"
	InsufficientLiquidity         Kind = "insufficient_liquidity"
	TickLimitReached              Kind = "tick_limit_reached"
	TickNotFound                  Kind = "tick_not_found"
	TickAlreadyExist               Kind = "tick_already_exist"
	TickReInitialize               Kind = "tick_re_initialize"
	NotEmptyTickDeinitialization    Kind = "not_empty_tick_deinitialization"
	EmptyPositionPokes             Kind = "empty_position_pokes"
	PoolAlreadyExist               Kind = "pool_already_exist"
	FeeTierNotFound                 Kind = "fee_tier_not_found"
	PoolPaused                     Kind = "pool_paused"
	InvalidFunds                  Kind = "invalid_funds"
	AmountUnderMinimumAmountOut      Kind = "amount_under_minimum_amount_out"
	PositionNotFound                Kind = "position_not_found"
	InvalidPoolKey                  Kind = "invalid_pool_key"
	RateLimited                    Kind = "rate_limited"

	// Arithmetic kinds.
	Mul Kind = "mul"
	Div Kind = "div"
	Add Kind = "add"
	Sub Kind = "sub"
	Cast Kind = "cast"
)

// Error wraps a Kind with an optional underlying cause.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a bare *Error for the given kind.
func New(kind Kind) *Error { return &Error{Kind: kind} }

// Wrap attaches a cause to a kind, the way solroute wraps RPC/decode
// failures with fmt.Errorf("...: %w", err).
func Wrap(kind Kind, cause error) *Error { return &Error{Kind: kind, cause: cause} }

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
