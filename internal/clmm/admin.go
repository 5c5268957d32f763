package clmm

import (
	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/fixedpoint"
	"github.com/oraicore/clmm/internal/store"
	"github.com/oraicore/clmm/internal/tickmath"
)

func requireAdmin(tx *store.Tx, caller Address) (Config, error) {
	cfg, ok := loadConfig(tx)
	if !ok {
		return Config{}, errkind.New(errkind.Unauthorized)
	}
	if cfg.Admin != caller {
		return Config{}, errkind.New(errkind.Unauthorized)
	}
	return cfg, nil
}

// InitConfig seeds the engine-wide config record; called once at
// instantiation time by a collaborator outside the core's scope (§1).
func InitConfig(tx *store.Tx, admin, incentivesFundManager Address, protocolFee fixedpoint.Percentage) error {
	return saveConfig(tx, Config{Admin: admin, ProtocolFee: protocolFee, IncentivesFundManager: incentivesFundManager})
}

// ChangeAdmin implements §6.1's change_admin.
func ChangeAdmin(tx *store.Tx, caller, newAdmin Address) error {
	cfg, err := requireAdmin(tx, caller)
	if err != nil {
		return err
	}
	cfg.Admin = newAdmin
	return saveConfig(tx, cfg)
}

// ChangeProtocolFee implements §6.1's change_protocol_fee.
func ChangeProtocolFee(tx *store.Tx, caller Address, fee fixedpoint.Percentage) error {
	cfg, err := requireAdmin(tx, caller)
	if err != nil {
		return err
	}
	if fee.Cmp(fixedpoint.PercentageOne()) > 0 {
		return errkind.New(errkind.InvalidFee)
	}
	cfg.ProtocolFee = fee
	return saveConfig(tx, cfg)
}

// ChangeFeeReceiver implements §6.1's change_fee_receiver(pool_key, …).
func ChangeFeeReceiver(tx *store.Tx, caller Address, key PoolKey, receiver Address) error {
	if _, err := requireAdmin(tx, caller); err != nil {
		return err
	}
	pool, err := loadPool(tx, key)
	if err != nil {
		return err
	}
	pool.FeeReceiver = receiver
	return savePool(tx, pool)
}

// AddFeeTier implements §6.1's add_fee_tier.
func AddFeeTier(tx *store.Tx, caller Address, tier FeeTier) error {
	cfg, err := requireAdmin(tx, caller)
	if err != nil {
		return err
	}
	if tier.TickSpacing == 0 {
		return errkind.New(errkind.InvalidTickSpacing)
	}
	if tier.Fee.Cmp(fixedpoint.PercentageOne()) >= 0 {
		return errkind.New(errkind.InvalidFee)
	}
	if _, exists := findFeeTier(cfg, tier.Fee, tier.TickSpacing); exists {
		return errkind.New(errkind.InvalidFee)
	}
	cfg.FeeTiers = append(cfg.FeeTiers, tier)
	return saveConfig(tx, cfg)
}

// RemoveFeeTier implements §6.1's remove_fee_tier.
func RemoveFeeTier(tx *store.Tx, caller Address, tier FeeTier) error {
	cfg, err := requireAdmin(tx, caller)
	if err != nil {
		return err
	}
	kept := cfg.FeeTiers[:0]
	found := false
	for _, ft := range cfg.FeeTiers {
		if ft.Fee.Raw == tier.Fee.Raw && ft.TickSpacing == tier.TickSpacing {
			found = true
			continue
		}
		kept = append(kept, ft)
	}
	if !found {
		return errkind.New(errkind.FeeTierNotFound)
	}
	cfg.FeeTiers = kept
	return saveConfig(tx, cfg)
}

// CreatePool implements §6.1's create_pool. token0/token1 may be given
// in either order; CanonicalKey sorts them into PoolKey.TokenX/TokenY.
func CreatePool(tx *store.Tx, token0, token1 Address, tier FeeTier, initSqrtPrice fixedpoint.SqrtPrice, initTick int32) (PoolKey, error) {
	key, err := CanonicalKey(token0, token1, tier)
	if err != nil {
		return PoolKey{}, err
	}
	cfg, ok := loadConfig(tx)
	if !ok {
		return PoolKey{}, errkind.New(errkind.Unauthorized)
	}
	if _, exists := findFeeTier(cfg, tier.Fee, tier.TickSpacing); !exists {
		return PoolKey{}, errkind.New(errkind.FeeTierNotFound)
	}
	if poolExists(tx, key) {
		return PoolKey{}, errkind.New(errkind.PoolAlreadyExist)
	}
	if err := tickmath.CheckTick(initTick, tier.TickSpacing); err != nil {
		return PoolKey{}, errkind.New(errkind.InvalidInitTick)
	}

	lower, err := tickmath.SqrtPriceFromTick(initTick)
	if err != nil {
		return PoolKey{}, err
	}
	upper, err := tickmath.SqrtPriceFromTick(initTick + 1)
	if err != nil {
		return PoolKey{}, err
	}
	if initSqrtPrice.Cmp(lower) < 0 || initSqrtPrice.Cmp(upper) >= 0 {
		return PoolKey{}, errkind.New(errkind.InvalidInitSqrtPrice)
	}

	pool := Pool{
		Key:         key,
		SqrtPrice:   initSqrtPrice,
		CurrentTick: initTick,
		Liquidity:   fixedpoint.LiquidityFromU64(0),
		Status:      StatusOpening,
	}
	return key, savePool(tx, pool)
}

// UpdatePoolStatus implements §6.1's update_pool_status (§4.10).
func UpdatePoolStatus(tx *store.Tx, caller Address, key PoolKey, status PoolStatus) error {
	if _, err := requireAdmin(tx, caller); err != nil {
		return err
	}
	pool, err := loadPool(tx, key)
	if err != nil {
		return err
	}
	pool.Status = status
	return savePool(tx, pool)
}

// WithdrawProtocolFee implements §6.1's withdraw_protocol_fee(pool_key).
func WithdrawProtocolFee(tx *store.Tx, caller Address, key PoolKey) ([]TransferIntent, error) {
	if _, err := requireAdmin(tx, caller); err != nil {
		return nil, err
	}
	pool, err := loadPool(tx, key)
	if err != nil {
		return nil, err
	}
	amountX, amountY := pool.FeeProtocolTokenX, pool.FeeProtocolTokenY
	pool.FeeProtocolTokenX = fixedpoint.TokenAmountFromU64(0)
	pool.FeeProtocolTokenY = fixedpoint.TokenAmountFromU64(0)
	if err := savePool(tx, pool); err != nil {
		return nil, err
	}
	receiver := pool.FeeReceiver
	return []TransferIntent{
		{Asset: AssetInfo{Kind: AssetToken, Address: key.TokenX}, From: poolVault(key), To: receiver, Amount: amountX},
		{Asset: AssetInfo{Kind: AssetToken, Address: key.TokenY}, From: poolVault(key), To: receiver, Amount: amountY},
	}, nil
}

// WithdrawAllProtocolFee implements §6.1's
// withdraw_all_protocol_fee(receiver?), iterating every stored pool.
func WithdrawAllProtocolFee(tx *store.Tx, caller Address, receiverOverride *Address) ([]TransferIntent, error) {
	if _, err := requireAdmin(tx, caller); err != nil {
		return nil, err
	}
	var intents []TransferIntent
	tx.Iterate(prefixPool, func(_ []byte, raw []byte) bool {
		var pool Pool
		if err := decode(raw, &pool); err != nil {
			return true
		}
		receiver := pool.FeeReceiver
		if receiverOverride != nil {
			receiver = *receiverOverride
		}
		if !pool.FeeProtocolTokenX.IsZero() {
			intents = append(intents, TransferIntent{Asset: AssetInfo{Kind: AssetToken, Address: pool.Key.TokenX}, From: poolVault(pool.Key), To: receiver, Amount: pool.FeeProtocolTokenX})
		}
		if !pool.FeeProtocolTokenY.IsZero() {
			intents = append(intents, TransferIntent{Asset: AssetInfo{Kind: AssetToken, Address: pool.Key.TokenY}, From: poolVault(pool.Key), To: receiver, Amount: pool.FeeProtocolTokenY})
		}
		pool.FeeProtocolTokenX = fixedpoint.TokenAmountFromU64(0)
		pool.FeeProtocolTokenY = fixedpoint.TokenAmountFromU64(0)
		if raw2, err := encode(pool); err == nil {
			tx.Set(poolStoreKey(pool.Key), raw2)
		}
		return true
	})
	return intents, nil
}

// CreateIncentive implements §6.1's create_incentive(pool_key,
// reward_token, total?, rate_per_sec, start?).
func CreateIncentive(tx *store.Tx, caller Address, key PoolKey, rewardToken AssetInfo, total *fixedpoint.TokenAmount, ratePerSec fixedpoint.TokenAmount, startS uint64) (uint64, error) {
	if _, err := requireAdmin(tx, caller); err != nil {
		return 0, err
	}
	pool, err := loadPool(tx, key)
	if err != nil {
		return 0, err
	}
	remaining := fixedpoint.TokenAmountFromU64(0)
	if total != nil {
		remaining = *total
	}
	id := uint64(len(pool.Incentives)) + 1
	pool.Incentives = append(pool.Incentives, IncentiveRecord{
		ID:                    id,
		RewardPerSec:          ratePerSec,
		RewardToken:           rewardToken,
		Remaining:             remaining,
		StartTimestampS:       startS,
		IncentiveGrowthGlobal: fixedpoint.FeeGrowthZero(),
		LastUpdatedS:          startS,
	})
	return id, savePool(tx, pool)
}

// UpdateIncentive implements §6.1's update_incentive. Per §9's
// documented open-question resolution, an unknown incentive_id is a
// no-op success rather than an error.
func UpdateIncentive(tx *store.Tx, caller Address, key PoolKey, incentiveID uint64, ratePerSec *fixedpoint.TokenAmount, addRemaining *fixedpoint.TokenAmount) error {
	if _, err := requireAdmin(tx, caller); err != nil {
		return err
	}
	pool, err := loadPool(tx, key)
	if err != nil {
		return err
	}
	for i := range pool.Incentives {
		if pool.Incentives[i].ID != incentiveID {
			continue
		}
		if ratePerSec != nil {
			pool.Incentives[i].RewardPerSec = *ratePerSec
		}
		if addRemaining != nil {
			sum, err := pool.Incentives[i].Remaining.Add(*addRemaining)
			if err != nil {
				return err
			}
			pool.Incentives[i].Remaining = sum
		}
		return savePool(tx, pool)
	}
	return nil
}
