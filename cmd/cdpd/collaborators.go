package main

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/auction"
)

// manualSpotOracle is an in-memory, manually-set price feed: the stub
// collaborator spec §6 describes cmd/cdpd wiring at startup ("initially
// stub/in-memory"), modeled on the host's swap.ManualOracle idiom of a
// mutex-guarded quote map with Set/Get accessors rather than a live feed.
type manualSpotOracle struct {
	mu     sync.RWMutex
	quotes map[string]decimal.Decimal
}

func newManualSpotOracle() *manualSpotOracle {
	return &manualSpotOracle{quotes: make(map[string]decimal.Decimal)}
}

// Set records denom's current spot price.
func (o *manualSpotOracle) Set(denom string, price decimal.Decimal) {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes[denom] = price
}

// Price implements native/positions.PriceOracle and native/cascade.PriceOracle.
func (o *manualSpotOracle) Price(denom string) (decimal.Decimal, error) {
	if o == nil {
		return decimal.Zero, fmt.Errorf("manual oracle not configured")
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.quotes[denom]
	if !ok {
		return decimal.Zero, fmt.Errorf("manual oracle: no quote for %q", denom)
	}
	return price, nil
}

// twapOracle adapts manualSpotOracle's instantaneous quotes to
// native/rates.Oracle's TWAP-shaped signature: a stub feed has no sample
// history to window over, so it reports the same spot quote regardless of
// the requested timeframe, with 18 decimals (matching every other denom's
// base-unit convention used elsewhere in this engine).
type twapOracle struct {
	spot *manualSpotOracle
}

func (o *twapOracle) Price(assetInfo string, _ int64, _ int64) (decimal.Decimal, uint64, error) {
	price, err := o.spot.Price(assetInfo)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return price, 18, nil
}

// manualLiquidityProbe is the stub native/rates.LiquidityProbe collaborator:
// a per-denom constant, set once at startup from domain config rather than
// sampled from a live AMM.
type manualLiquidityProbe struct {
	mu    sync.RWMutex
	depth map[string]*big.Int
}

func newManualLiquidityProbe() *manualLiquidityProbe {
	return &manualLiquidityProbe{depth: make(map[string]*big.Int)}
}

func (p *manualLiquidityProbe) Set(denom string, amount *big.Int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.depth[denom] = new(big.Int).Set(amount)
}

func (p *manualLiquidityProbe) Liquidity(denom string) (*big.Int, error) {
	if p == nil {
		return big.NewInt(0), nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if amount, ok := p.depth[denom]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

// ledgerMinter is the stub native/positions.Minter, native/cascade.Minter and
// native/auction.Minter collaborator: an in-process balance ledger standing
// in for the real credit-asset/collateral custody module spec §6 describes
// as external ("cmd/cdpd wires concrete (initially stub/in-memory)
// implementations of these interfaces at startup; a real deployment
// replaces them with gRPC/HTTP clients without touching engine code").
type ledgerMinter struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int
}

func newLedgerMinter() *ledgerMinter {
	return &ledgerMinter{balances: make(map[string]map[string]*big.Int)}
}

func (m *ledgerMinter) account(addr crypto.Address) map[string]*big.Int {
	key := addr.String()
	acct, ok := m.balances[key]
	if !ok {
		acct = make(map[string]*big.Int)
		m.balances[key] = acct
	}
	return acct
}

func (m *ledgerMinter) MintTokens(denom string, amount *big.Int, to crypto.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := m.account(to)
	cur, ok := acct[denom]
	if !ok {
		cur = big.NewInt(0)
	}
	acct[denom] = new(big.Int).Add(cur, amount)
	return nil
}

func (m *ledgerMinter) BurnTokens(denom string, amount *big.Int, from crypto.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := m.account(from)
	cur, ok := acct[denom]
	if !ok {
		cur = big.NewInt(0)
	}
	if cur.Cmp(amount) < 0 {
		return fmt.Errorf("ledger: insufficient %s balance for %s", denom, from.String())
	}
	acct[denom] = new(big.Int).Sub(cur, amount)
	return nil
}

func (m *ledgerMinter) Transfer(denom string, amount *big.Int, to crypto.Address) error {
	return m.MintTokens(denom, amount, to)
}

// pooledStabilityPool is the stub native/cascade.StabilityPool collaborator:
// it tracks per-owner deposits and a shared backstop pool in memory. A real
// deployment's StabilityPool is its own module with its own bidders; this
// stand-in only needs to answer the two queries Stage 1/Stage 3 of the
// cascade actually issue.
type pooledStabilityPool struct {
	mu       sync.Mutex
	deposits map[string]*big.Int
	pool     *big.Int
}

func newPooledStabilityPool() *pooledStabilityPool {
	return &pooledStabilityPool{deposits: make(map[string]*big.Int), pool: big.NewInt(0)}
}

func (s *pooledStabilityPool) UserDeposit(owner crypto.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[owner.String()]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(d), nil
}

// Liquidate draws up to amount from the shared backstop pool, reporting how
// much it actually covered (spec §4.4 Stage 3 "covered amount").
func (s *pooledStabilityPool) Liquidate(amount *big.Int) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool.Cmp(amount) >= 0 {
		s.pool = new(big.Int).Sub(s.pool, amount)
		return new(big.Int).Set(amount), nil
	}
	covered := new(big.Int).Set(s.pool)
	s.pool = big.NewInt(0)
	return covered, nil
}

func (s *pooledStabilityPool) DepositFee(_ string, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = new(big.Int).Add(s.pool, amount)
	return nil
}

// spotRouter is the stub native/cascade.Router sell-wall collaborator: it
// settles synchronously against the manual oracle's quotes rather than a
// real swap venue, since this Go rendition has no async message-passing
// (spec §6 "Router: Swap(...) → async").
type spotRouter struct {
	oracle *manualSpotOracle
}

func (r *spotRouter) Swap(fromDenom, toDenom string, amount *big.Int, _ crypto.Address) (*big.Int, error) {
	fromPrice, err := r.oracle.Price(fromDenom)
	if err != nil {
		return nil, err
	}
	toPrice, err := r.oracle.Price(toDenom)
	if err != nil {
		return nil, err
	}
	if toPrice.Sign() <= 0 {
		return nil, fmt.Errorf("spot router: no price for %q", toDenom)
	}
	value := decimal.NewFromBigInt(amount, 0).Mul(fromPrice).Div(toPrice)
	return value.BigInt(), nil
}

// debtAuctionAdapter narrows *auction.Engine's three-slice StartAuction down
// to the single-position shape native/cascade.DebtAuctionStarter consumes
// (spec §4.4 Stage 5 "forward any remaining debt amount to DebtAuction").
type debtAuctionAdapter struct {
	engine *auction.Engine
}

func (a *debtAuctionAdapter) StartAuction(amount *big.Int, positionID uint64, owner crypto.Address) error {
	repayments := []auction.RepaymentPosition{{PositionID: positionID, Amount: amount}}
	return a.engine.StartAuction(amount, repayments, nil)
}

// cascadeBadDebtEscalator implements native/positions.BadDebtEscalator by
// forwarding repay()'s bad-debt callback through the same DebtAuction
// adapter the cascade's own Stage 5 uses, so both unrecoverable-debt paths
// in spec §4.1/§4.4 settle through one auction.
type cascadeBadDebtEscalator struct {
	auction *debtAuctionAdapter
}

func (e *cascadeBadDebtEscalator) EscalateBadDebt(positionID uint64, owner crypto.Address, remainingDebt *big.Int) error {
	return e.auction.StartAuction(remainingDebt, positionID, owner)
}

// clockSource reports the wall-clock unix second every engine's SetNow
// expects, matching the "block-driven SetNow, never time.Now() internally"
// idiom the engines themselves follow — only cmd/cdpd's own dispatch loop
// calls time.Now.
func clockSource() int64 {
	return time.Now().Unix()
}
