package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"membranecore/native/auction"
	"membranecore/native/basket"
	"membranecore/native/liqqueue"
	"membranecore/native/rates"
)

// DomainConfig holds the basket's risk/rate/queue/auction parameters: the
// service-level YAML counterpart to Config's process-level TOML settings,
// the same root-TOML/service-YAML split the host uses between its process
// config and services/*/config packages.
type DomainConfig struct {
	Basket  BasketDomainConfig  `yaml:"basket"`
	Rate    RateDomainConfig    `yaml:"rate"`
	Risk    RiskDomainConfig    `yaml:"risk"`
	Queue   QueueDomainConfig   `yaml:"queue"`
	Auction AuctionDomainConfig `yaml:"auction"`
}

// BasketDomainConfig describes the genesis Basket cmd/cdpd bootstraps on
// first run when no Basket has been persisted yet (spec §3 "Basket").
type BasketDomainConfig struct {
	CreditDenom string                    `yaml:"credit_denom"`
	Collateral  []CollateralDomainConfig  `yaml:"collateral"`
}

// CollateralDomainConfig mirrors native/basket.CollateralSpec plus the
// SupplyCap fields every collateral needs from genesis (spec §3
// "collateral_types", "collateral_supply_caps").
type CollateralDomainConfig struct {
	Denom          string          `yaml:"denom"`
	MaxBorrowLTV   decimal.Decimal `yaml:"max_borrow_ltv"`
	MaxLTV         decimal.Decimal `yaml:"max_ltv"`
	SupplyCapRatio decimal.Decimal `yaml:"supply_cap_ratio"`
}

// BuildBasket constructs the genesis Basket described by c, interning every
// configured collateral denom plus the credit denom itself.
func (c BasketDomainConfig) BuildBasket() *basket.Basket {
	interner := basket.NewInterner()
	b := &basket.Basket{
		CreditAsset:       basket.CreditAsset{Denom: c.CreditDenom, Amount: big.NewInt(0)},
		CreditPrice:       decimal.New(1, 0),
		PendingRevenue:    big.NewInt(0),
		CPCMarginOfError:  decimal.NewFromFloat(0.01),
		Denoms:            interner,
	}
	for _, col := range c.Collateral {
		id := interner.Intern(col.Denom)
		b.CollateralTypes = append(b.CollateralTypes, basket.CollateralSpec{
			Denom:        col.Denom,
			ID:           id,
			MaxBorrowLTV: col.MaxBorrowLTV,
			MaxLTV:       col.MaxLTV,
		})
		b.CollateralSupplyCaps = append(b.CollateralSupplyCaps, basket.SupplyCap{
			DenomID:        id,
			CurrentSupply:  big.NewInt(0),
			DebtTotal:      big.NewInt(0),
			SupplyCapRatio: col.SupplyCapRatio,
		})
	}
	return b
}

// RateDomainConfig mirrors native/rates.Config, spec §6 "Configuration
// options (Positions)".
type RateDomainConfig struct {
	CPCMultiplier       decimal.Decimal `yaml:"cpc_multiplier"`
	RateSlopeMultiplier decimal.Decimal `yaml:"rate_slope_multiplier"`
	BaseInterestRate    decimal.Decimal `yaml:"base_interest_rate"`
	CreditTwapTimeframe int64           `yaml:"credit_twap_timeframe_seconds"`
	OracleTimeLimit     int64           `yaml:"oracle_time_limit_seconds"`
	RateHikeRate        decimal.Decimal `yaml:"rate_hike_rate"`
}

func (c RateDomainConfig) toEngineConfig() rates.Config {
	return rates.Config{
		CPCMultiplier:       c.CPCMultiplier,
		RateSlopeMultiplier: c.RateSlopeMultiplier,
		BaseInterestRate:    c.BaseInterestRate,
		CreditTwapTimeframe: c.CreditTwapTimeframe,
		OracleTimeLimit:     c.OracleTimeLimit,
		RateHikeRate:        c.RateHikeRate,
	}
}

// RiskDomainConfig mirrors the constructor argument native/risk.NewEngine
// takes, spec §4.3 "desired_debt_cap_util".
type RiskDomainConfig struct {
	DesiredDebtCapUtil decimal.Decimal `yaml:"desired_debt_cap_util"`
}

// QueueDomainConfig mirrors native/liqqueue.Config, spec §6 "Configuration
// options (Queue)".
type QueueDomainConfig struct {
	WaitingPeriodSeconds int64  `yaml:"waiting_period_seconds"`
	MinimumBid           string `yaml:"minimum_bid"`
	MaximumWaitingBids   uint32 `yaml:"maximum_waiting_bids"`
	BidThreshold         string `yaml:"bid_threshold"`
	MaxPremium           uint32 `yaml:"max_premium"`
}

func (c QueueDomainConfig) toEngineConfig() (liqqueue.Config, error) {
	minBid, ok := new(big.Int).SetString(c.MinimumBid, 10)
	if !ok {
		return liqqueue.Config{}, fmt.Errorf("config: invalid queue.minimum_bid %q", c.MinimumBid)
	}
	threshold, ok := new(big.Int).SetString(c.BidThreshold, 10)
	if !ok {
		return liqqueue.Config{}, fmt.Errorf("config: invalid queue.bid_threshold %q", c.BidThreshold)
	}
	return liqqueue.Config{
		WaitingPeriod:      c.WaitingPeriodSeconds,
		MinimumBid:         minBid,
		MaximumWaitingBids: c.MaximumWaitingBids,
		BidThreshold:       threshold,
		MaxPremium:         c.MaxPremium,
	}, nil
}

// AuctionDomainConfig mirrors native/auction.Config, spec §6 "Configuration
// options (Auction)".
type AuctionDomainConfig struct {
	TWAPTimeframeSeconds        int64           `yaml:"twap_timeframe_seconds"`
	InitialDiscount             decimal.Decimal `yaml:"initial_discount"`
	DiscountIncreaseTimeframe   int64           `yaml:"discount_increase_timeframe_seconds"`
	DiscountIncrease            decimal.Decimal `yaml:"discount_increase"`
	SendToStakers               bool            `yaml:"send_to_stakers"`
}

func (c AuctionDomainConfig) toEngineConfig() auction.Config {
	return auction.Config{
		TWAPTimeframe:             c.TWAPTimeframeSeconds,
		InitialDiscount:           c.InitialDiscount,
		DiscountIncreaseTimeframe: c.DiscountIncreaseTimeframe,
		DiscountIncrease:          c.DiscountIncrease,
		SendToStakers:             c.SendToStakers,
	}
}

// EngineConfigs bundles the typed native/* engine configs derived from a
// DomainConfig, so cmd/cdpd can wire every engine from one decoded value.
type EngineConfigs struct {
	Rate    rates.Config
	Risk    decimal.Decimal
	Queue   liqqueue.Config
	Auction auction.Config
}

// Engines converts the YAML-decoded DomainConfig into the native/* engine
// config types, parsing the queue's big.Int fields out of their decimal
// string encoding.
func (c DomainConfig) Engines() (EngineConfigs, error) {
	queueCfg, err := c.Queue.toEngineConfig()
	if err != nil {
		return EngineConfigs{}, err
	}
	return EngineConfigs{
		Rate:    c.Rate.toEngineConfig(),
		Risk:    c.Risk.DesiredDebtCapUtil,
		Queue:   queueCfg,
		Auction: c.Auction.toEngineConfig(),
	}, nil
}

// LoadDomainConfig reads the basket risk/rate/queue/auction parameter file
// referenced by Config.DomainConfigPath.
func LoadDomainConfig(path string) (*DomainConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domain config: %w", err)
	}
	defer f.Close()

	cfg := &DomainConfig{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode domain config: %w", err)
	}
	return cfg, nil
}

// DefaultDomainConfig returns conservative starting parameters, written out
// by cmd/cdpd alongside createDefault's TOML file on first run.
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		Basket: BasketDomainConfig{
			CreditDenom: "cusd",
			Collateral: []CollateralDomainConfig{
				{Denom: "eth", MaxBorrowLTV: decimal.NewFromFloat(0.6), MaxLTV: decimal.NewFromFloat(0.75), SupplyCapRatio: decimal.NewFromFloat(0.4)},
				{Denom: "btc", MaxBorrowLTV: decimal.NewFromFloat(0.55), MaxLTV: decimal.NewFromFloat(0.7), SupplyCapRatio: decimal.NewFromFloat(0.4)},
			},
		},
		Rate: RateDomainConfig{
			CPCMultiplier:       decimal.NewFromFloat(2),
			RateSlopeMultiplier: decimal.NewFromFloat(0.0005),
			BaseInterestRate:    decimal.NewFromFloat(0.02),
			CreditTwapTimeframe: 3600,
			OracleTimeLimit:     600,
			RateHikeRate:        decimal.NewFromFloat(0.05),
		},
		Risk: RiskDomainConfig{
			DesiredDebtCapUtil: decimal.NewFromFloat(0.9),
		},
		Queue: QueueDomainConfig{
			WaitingPeriodSeconds: 3600,
			MinimumBid:           "1000000",
			MaximumWaitingBids:   50,
			BidThreshold:         "100000",
			MaxPremium:           2000,
		},
		Auction: AuctionDomainConfig{
			TWAPTimeframeSeconds:      3600,
			InitialDiscount:           decimal.NewFromFloat(0.05),
			DiscountIncreaseTimeframe: 900,
			DiscountIncrease:          decimal.NewFromFloat(0.01),
			SendToStakers:             false,
		},
	}
}

// WriteDefaultDomainConfig saves DefaultDomainConfig to path, for first-run
// bootstrap alongside the root TOML config.
func WriteDefaultDomainConfig(path string) (*DomainConfig, error) {
	cfg := DefaultDomainConfig()
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	defer enc.Close()
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
