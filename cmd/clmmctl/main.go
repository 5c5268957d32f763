package main

import (
	"log"

	"github.com/gagliardetto/solana-go"

	"github.com/oraicore/clmm/internal/clmm"
	"github.com/oraicore/clmm/internal/fixedpoint"
	"github.com/oraicore/clmm/internal/store"
	"github.com/oraicore/clmm/internal/tickmath"
	"github.com/oraicore/clmm/pkg/engine"
)

func main() {
	log.Printf("😈spinning up an in-memory CLMM store...")

	memory := store.NewMemory()
	eng := engine.New(memory, 50) // 50 requests per second

	admin := solana.NewWallet().PublicKey()
	tokenX := solana.NewWallet().PublicKey()
	tokenY := solana.NewWallet().PublicKey()
	lp := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()

	tier := clmm.FeeTier{Fee: fixedpoint.PercentageFromBps(30), TickSpacing: 60}

	setupTx := store.Begin(memory)
	if err := clmm.InitConfig(setupTx, admin, admin, fixedpoint.PercentageFromBps(1_000)); err != nil {
		log.Fatalf("init config: %v", err)
	}
	if err := clmm.AddFeeTier(setupTx, admin, tier); err != nil {
		log.Fatalf("add fee tier: %v", err)
	}
	setupTx.Commit()
	log.Printf("👌registered a %d bps / spacing %d fee tier", tier.Fee.Raw/1e8, tier.TickSpacing)

	initTick := int32(0)
	initSqrtPrice, err := tickmath.SqrtPriceFromTick(initTick)
	if err != nil {
		log.Fatalf("sqrt price from tick: %v", err)
	}

	poolTx := store.Begin(memory)
	key, err := clmm.CreatePool(poolTx, tokenX, tokenY, tier, initSqrtPrice, initTick)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	poolTx.Commit()
	log.Printf("👌pool created: %v", key)

	lower, upper := int32(-600), int32(600)
	sqrtLower, _ := tickmath.SqrtPriceFromTick(lower)
	sqrtUpper, _ := tickmath.SqrtPriceFromTick(upper)

	result, err := eng.CreatePosition(lp, key, lower, upper, fixedpoint.LiquidityFromU64(1_000_000_000), sqrtLower, sqrtUpper, 0)
	if err != nil {
		log.Fatalf("create position: %v", err)
	}
	log.Printf("👌position opened: deposit x=%v y=%v", result.RequiredX, result.RequiredY)

	swapResult, err := eng.Swap(trader, key, true, fixedpoint.TokenAmountFromU64(1_000_000), true, tickmath.MinSqrtPrice, 1)
	if err != nil {
		log.Fatalf("swap: %v", err)
	}
	log.Printf("😈swap done: in=%v out=%v", swapResult.AmountIn, swapResult.AmountOut)
}
