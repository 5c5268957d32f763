// Package clmm implements the concentrated-liquidity pool, tick,
// position and incentive state machine (§3, §4) on top of
// internal/store and internal/bitmap.
//
// Record layouts are tagged and (de)serialized with
// github.com/gagliardetto/binary the same way the teacher decodes
// Raydium's on-chain TickArray/TickState
// (pkg/pool/raydium/clmm_tickerarray.go): little-endian struct tags,
// fixed-size arrays, and a thin Decode/Encode pair per record type.
// Unlike the teacher (read-only RPC decode), this engine owns both
// directions since it is itself the storage writer.
package clmm

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/oraicore/clmm/internal/fixedpoint"
)

// Address is a 32-byte account identifier, repurposed from the
// teacher's solana.PublicKey (pkg/pool/raydium/clmmPool.go uses it for
// TokenMint0/1, Owner) to stand in for token mints, owners, spenders and
// operators in this engine's domain.
type Address = solana.PublicKey

// AssetInfo tags a native coin vs a token-contract asset, per §9's
// "dynamic, trait-based dispatch for tokens" guidance: a two-variant tag
// instead of a source-language trait object.
type AssetInfoKind uint8

const (
	AssetNative AssetInfoKind = iota
	AssetToken
)

type AssetInfo struct {
	Kind    AssetInfoKind
	Denom   string  // set iff Kind == AssetNative
	Address Address // set iff Kind == AssetToken
}

// TransferIntent is the one artifact the core ever produces to move
// value (§1): `{asset, from, to, amount}`, realized by a collaborator
// after the core's state mutations commit (§5).
type TransferIntent struct {
	Asset  AssetInfo
	From   Address
	To     Address
	Amount fixedpoint.TokenAmount
}

// FeeTier is a (fee, tick_spacing) pair; PoolKey embeds one (§3.1).
type FeeTier struct {
	Fee          fixedpoint.Percentage `bin:"le"`
	TickSpacing  uint16                `bin:"le"`
}

// PoolKey identifies a pool by its ordered token pair and fee tier
// (§3.1). TokenX must sort lexicographically before TokenY; CanonicalKey
// enforces this.
type PoolKey struct {
	TokenX  Address
	TokenY  Address
	FeeTier FeeTier
}

// CanonicalKey orders (a, b) into (TokenX, TokenY), mirroring the
// PoolKey ordering invariant in §3.1; it fails with TokensAreSame when
// a == b.
func CanonicalKey(a, b Address, tier FeeTier) (PoolKey, error) {
	if a == b {
		return PoolKey{}, errTokensAreSame()
	}
	if bytes.Compare(a[:], b[:]) < 0 {
		return PoolKey{TokenX: a, TokenY: b, FeeTier: tier}, nil
	}
	return PoolKey{TokenX: b, TokenY: a, FeeTier: tier}, nil
}

// Bytes produces the PoolKey encoding used as a storage key prefix
// (§6.2): token_x_bytes || token_y_bytes || be_u64(fee.raw) ||
// be_u16(tick_spacing). The fields are concatenated as-is with no length
// prefixes; every field has a fixed width (32+32+8+2 bytes).
func (k PoolKey) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(k.TokenX[:])
	buf.Write(k.TokenY[:])
	var feeBuf [8]byte
	binary.BigEndian.PutUint64(feeBuf[:], k.FeeTier.Fee.Raw)
	buf.Write(feeBuf[:])
	var spacingBuf [2]byte
	binary.BigEndian.PutUint16(spacingBuf[:], k.FeeTier.TickSpacing)
	buf.Write(spacingBuf[:])
	return buf.Bytes()
}

// PoolStatus is the admin-gated state machine of §4.10.
type PoolStatus uint8

const (
	StatusOpening PoolStatus = iota
	StatusPaused
	StatusLpOnly
	StatusSwapOnly
)

// Pool is the per-(token pair, fee tier) record (§3.1).
type Pool struct {
	Key                PoolKey
	SqrtPrice          fixedpoint.SqrtPrice `bin:"le"`
	CurrentTick        int32                `bin:"le"`
	Liquidity          fixedpoint.Liquidity `bin:"le"`
	FeeGrowthGlobalX   fixedpoint.FeeGrowth `bin:"le"`
	FeeGrowthGlobalY   fixedpoint.FeeGrowth `bin:"le"`
	FeeProtocolTokenX  fixedpoint.TokenAmount `bin:"le"`
	FeeProtocolTokenY  fixedpoint.TokenAmount `bin:"le"`
	FeeReceiver        Address
	StartTimestampMs    uint64 `bin:"le"`
	LastTimestampMs     uint64 `bin:"le"`
	Status              PoolStatus `bin:"le"`
	Incentives           []IncentiveRecord
}

// TickIncentiveOutside is the per-incentive growth-outside bookkeeping a
// Tick carries alongside its fee growth outside (§3.2).
type TickIncentiveOutside struct {
	IncentiveID            uint64               `bin:"le"`
	IncentiveGrowthOutside fixedpoint.FeeGrowth `bin:"le"`
}

// Tick is the per-(pool, index) record (§3.2).
type Tick struct {
	Index             int32                `bin:"le"`
	LiquidityGross    fixedpoint.Liquidity `bin:"le"`
	LiquidityChange    int64               `bin:"le"` // signed delta; sign() gives §3.2's `sign`
	FeeGrowthOutsideX fixedpoint.FeeGrowth `bin:"le"`
	FeeGrowthOutsideY fixedpoint.FeeGrowth `bin:"le"`
	SecondsOutside     uint64              `bin:"le"`
	Incentives          []TickIncentiveOutside
}

// PositionIncentiveState is a position's per-incentive snapshot (§3.4).
type PositionIncentiveState struct {
	IncentiveID           uint64               `bin:"le"`
	PendingRewards        fixedpoint.TokenAmount `bin:"le"`
	IncentiveGrowthInside fixedpoint.FeeGrowth `bin:"le"`
}

// Approval grants a spender transfer authority over one position (§3.6).
type Approval struct {
	Spender Address
	Expires uint64 `bin:"le"` // unix ms; 0 means "never expires"
}

// Position is the per-(owner, index) record, also addressable by
// TokenID (§3.4).
type Position struct {
	PoolKey           PoolKey
	Liquidity          fixedpoint.Liquidity `bin:"le"`
	LowerTick          int32                `bin:"le"`
	UpperTick          int32                `bin:"le"`
	FeeGrowthInsideX   fixedpoint.FeeGrowth `bin:"le"`
	FeeGrowthInsideY   fixedpoint.FeeGrowth `bin:"le"`
	TokensOwedX        fixedpoint.TokenAmount `bin:"le"`
	TokensOwedY        fixedpoint.TokenAmount `bin:"le"`
	LastBlockNumber     uint64               `bin:"le"`
	Incentives           []PositionIncentiveState
	Approvals            []Approval
	TokenID              uint64 `bin:"le"`
}

// IncentiveRecord is a per-pool reward schedule (§3.5).
type IncentiveRecord struct {
	ID                     uint64               `bin:"le"`
	RewardPerSec           fixedpoint.TokenAmount `bin:"le"`
	RewardToken            AssetInfo
	Remaining               fixedpoint.TokenAmount `bin:"le"`
	StartTimestampS         uint64               `bin:"le"`
	IncentiveGrowthGlobal   fixedpoint.FeeGrowth `bin:"le"`
	LastUpdatedS            uint64               `bin:"le"`
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	dec := bin.NewBinDecoder(data)
	return dec.Decode(v)
}
