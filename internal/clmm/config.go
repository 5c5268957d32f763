package clmm

import (
	"github.com/oraicore/clmm/internal/fixedpoint"
	"github.com/oraicore/clmm/internal/store"
)

// Config is the engine-wide admin record (§6.2: `config -> {admin,
// fee_tiers, protocol_fee, incentives_fund_manager}`).
type Config struct {
	Admin                 Address
	FeeTiers              []FeeTier
	ProtocolFee           fixedpoint.Percentage `bin:"le"`
	IncentivesFundManager Address
}

func loadConfig(tx *store.Tx) (Config, bool) {
	raw, ok := tx.Get(prefixConfig)
	if !ok {
		return Config{}, false
	}
	var cfg Config
	if err := decode(raw, &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}

func saveConfig(tx *store.Tx, cfg Config) error {
	raw, err := encode(cfg)
	if err != nil {
		return err
	}
	tx.Set(prefixConfig, raw)
	return nil
}

func findFeeTier(cfg Config, fee fixedpoint.Percentage, spacing uint16) (FeeTier, bool) {
	for _, ft := range cfg.FeeTiers {
		if ft.Fee.Raw == fee.Raw && ft.TickSpacing == spacing {
			return ft, true
		}
	}
	return FeeTier{}, false
}
