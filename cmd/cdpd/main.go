// Command cdpd is the CDP protocol daemon: it loads the Basket/Positions
// engines over a persisted state.Store, wires their collaborators, and
// serves the read-only query API described in spec §6.1 (package rpc).
// Actor-facing mutation — Deposit, Withdraw, IncreaseDebt, Repay, Liquidate,
// SubmitBid, and the rest of spec §6's "Actor-facing operations" — is a
// library surface: an embedding program drives it by calling straight into
// the wired *positions.Engine / *cascade.Engine / *liqqueue.Engine /
// *auction.Engine returned from newServer, the same "operate on the
// caller's loaded struct" shape the engine packages themselves use.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"membranecore/config"
	"membranecore/crypto"
	"membranecore/native/auction"
	"membranecore/native/basket"
	"membranecore/native/cascade"
	"membranecore/native/liqqueue"
	"membranecore/native/positions"
	"membranecore/native/rates"
	"membranecore/native/risk"
	"membranecore/observability"
	"membranecore/observability/logging"
	"membranecore/rpc"
	"membranecore/state"
	"membranecore/storage"
)

// daemonSigningKey decodes the hex-encoded SigningKey Config carries: the
// daemon's own identity for authenticating its side of relayed collaborator
// callbacks in a split deployment (config.Config.SigningKey's doc comment).
func daemonSigningKey(hexKey string) (*crypto.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// server bundles every wired engine plus the collaborator stand-ins cmd/cdpd
// constructs them from, so operational code (genesis bootstrap, the rpc
// mount, a future actor-facing transport) has one value to reach through.
type server struct {
	store     *state.Store
	positions *positions.Engine
	rates     *rates.Engine
	risk      *risk.Engine
	cascade   *cascade.Engine
	queue     *liqqueue.Engine
	auction   *auction.Engine

	queueCfg  liqqueue.Config
	oracle    *manualSpotOracle
	liquidity *manualLiquidityProbe
}

func main() {
	configPath := flag.String("config", "./cdpd.toml", "path to the cdpd process config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CDPD_ENV"))
	logger := logging.Setup("cdpd", env)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	signingKey, err := daemonSigningKey(cfg.SigningKey)
	if err != nil {
		log.Fatalf("load signing key: %v", err)
	}
	logger.Info("daemon identity", "address", signingKey.PubKey().Address().String())

	if _, statErr := os.Stat(cfg.DomainConfigPath); os.IsNotExist(statErr) {
		if _, werr := config.WriteDefaultDomainConfig(cfg.DomainConfigPath); werr != nil {
			log.Fatalf("write default domain config: %v", werr)
		}
	}
	domainCfg, err := config.LoadDomainConfig(cfg.DomainConfigPath)
	if err != nil {
		log.Fatalf("load domain config: %v", err)
	}
	engineCfgs, err := domainCfg.Engines()
	if err != nil {
		log.Fatalf("resolve engine configs: %v", err)
	}

	db, err := openStorage(cfg.DataDir)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer db.Close()

	store := state.New(db)

	srv := newServer(store, engineCfgs)

	if err := srv.bootstrapGenesis(domainCfg.Basket); err != nil {
		log.Fatalf("bootstrap genesis basket: %v", err)
	}
	srv.tick()

	observability.CDPMetricsRegistry()
	router := rpc.NewRouter(store)

	httpServer := &http.Server{
		Addr:    cfg.RPCAddress,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("rpc listening", "address", cfg.RPCAddress)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve rpc: %v", err)
		}
	}
}

func openStorage(dataDir string) (storage.Database, error) {
	if strings.TrimSpace(dataDir) == "" {
		return storage.NewMemDB(), nil
	}
	return storage.NewLevelDB(dataDir)
}

// newServer wires every native/* engine against store and the in-memory
// collaborator stand-ins (spec §6 "cmd/cdpd wires concrete (initially
// stub/in-memory) implementations of these interfaces at startup").
func newServer(store *state.Store, engineCfgs config.EngineConfigs) *server {
	oracle := newManualSpotOracle()
	liquidity := newManualLiquidityProbe()
	minter := newLedgerMinter()
	stabilityPool := newPooledStabilityPool()
	spotRouterCollab := &spotRouter{oracle: oracle}

	positionsEngine := positions.NewEngine(big.NewInt(1), decimal.Zero)
	positionsEngine.SetState(store)

	rateEngine := rates.NewEngine(engineCfgs.Rate)
	rateEngine.SetCollaborators(&twapOracle{spot: oracle}, liquidity)

	riskEngine := risk.NewEngine(engineCfgs.Risk)

	queueEngine := liqqueue.NewEngine()
	queueEngine.SetState(store)

	auctionEngine := auction.NewEngine(engineCfgs.Auction)
	auctionEngine.SetState(store)
	auctionEngine.SetCollaborators(minter, nil, minter)

	auctionAdapter := &debtAuctionAdapter{engine: auctionEngine}

	cascadeEngine := cascade.NewEngine(decimal.Zero)
	cascadeEngine.SetState(store)
	cascadeEngine.SetCollaborators(queueEngine, stabilityPool, spotRouterCollab, minter, auctionAdapter, oracle)

	positionsEngine.SetCollaborators(oracle, minter, cascadeEngine, &cascadeBadDebtEscalator{auction: auctionAdapter})

	return &server{
		store:     store,
		positions: positionsEngine,
		rates:     rateEngine,
		risk:      riskEngine,
		cascade:   cascadeEngine,
		queue:     queueEngine,
		auction:   auctionEngine,
		queueCfg:  engineCfgs.Queue,
		oracle:    oracle,
		liquidity: liquidity,
	}
}

// tick advances every engine's block-driven clock to the current wall-clock
// second; cmd/cdpd's own dispatch loop is the only caller permitted to
// consult time.Now, per the engines' "never time.Now() internally" idiom.
func (s *server) tick() {
	now := time.Now().Unix()
	s.queue.SetNow(now)
	s.auction.SetNow(now)
	s.positions.SetNow(now)
}

// RecordSpotPrice sets denom's oracle quote and appends it to id's VOLATILITY
// price history (spec §4.2 "Volatility adjustment"; persisted layout spec §6
// "VOLATILITY: map denom → {list<price>, index}"), persisting the history so
// it survives restarts. Callers are expected to invoke this once per price
// tick alongside the real oracle feed.
func (s *server) RecordSpotPrice(id basket.DenomID, denom string, price decimal.Decimal) error {
	s.oracle.Set(denom, price)

	history, err := s.store.GetVolatility(id)
	if err != nil {
		return err
	}
	if history == nil {
		history = rates.NewVolatilityHistory()
	}
	history.Record(price)
	return s.store.PutVolatility(id, history)
}

// CheckDeposit is a dry-run of the same volatility-adjusted supply-cap check
// *positions.Engine.Deposit enforces internally, letting a caller validate a
// deposit amount before submitting it (spec §4.3 "Supply-cap enforcement",
// §4.2 "Volatility adjustment").
func (s *server) CheckDeposit(id basket.DenomID, depositAmount *big.Int) error {
	b, err := s.store.GetBasket()
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("cdpd: no basket persisted")
	}
	history, err := s.store.GetVolatility(id)
	if err != nil {
		return err
	}
	return s.risk.CheckSupplyCapWithVolatility(b, id, depositAmount, history)
}

// bootstrapGenesis writes the configured genesis Basket and opens its
// LiquidationQueue slots the first time cdpd starts against an empty store.
func (s *server) bootstrapGenesis(basketCfg config.BasketDomainConfig) error {
	existing, err := s.store.GetBasket()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if strings.TrimSpace(basketCfg.CreditDenom) == "" {
		return fmt.Errorf("cdpd: no basket persisted and no genesis basket configured")
	}
	b := basketCfg.BuildBasket()
	if err := s.store.PutBasket(b); err != nil {
		return err
	}
	for _, col := range b.CollateralTypes {
		if err := s.queue.AddQueue(col.ID, s.queueCfg); err != nil {
			return fmt.Errorf("bootstrap queue for %s: %w", col.Denom, err)
		}
	}
	return nil
}
