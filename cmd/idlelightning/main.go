// Package main runs the idle-lightning simulation as a headless daemon with
// background saves and an optional websocket event feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/config"
	"github.com/cory-johannsen/idle-lightning/internal/feed"
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/exp"
	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
	"github.com/cory-johannsen/idle-lightning/internal/game/sim"
	"github.com/cory-johannsen/idle-lightning/internal/game/status"
	"github.com/cory-johannsen/idle-lightning/internal/observability"
	"github.com/cory-johannsen/idle-lightning/internal/scripting"
	"github.com/cory-johannsen/idle-lightning/internal/server"
	"github.com/cory-johannsen/idle-lightning/internal/storage"
	"github.com/cory-johannsen/idle-lightning/internal/storage/local"
	"github.com/cory-johannsen/idle-lightning/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	newGame := flag.Bool("new-game", false, "ignore the saved run and start from 1F 1-1")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "idlelightning")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	simCfg, err := sim.ConfigFrom(cfg)
	if err != nil {
		logger.Fatal("building simulation config", zap.Error(err))
	}

	catalog := enemy.DefaultCatalog()
	if cfg.Content.EnemyDir != "" {
		catalog, err = enemy.LoadCatalog(cfg.Content.EnemyDir)
		if err != nil {
			logger.Fatal("loading enemy content", zap.String("dir", cfg.Content.EnemyDir), zap.Error(err))
		}
	}
	logger.Info("enemy catalog ready", zap.Int("kinds", len(catalog.Kinds())))

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening save store", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer closeStore()
	saver := storage.NewAsyncSaver(store, cfg.Storage.Slot, logger.Named("saver"))

	shop := status.NewTracker(status.Levels{}, simCfg.Attack.CooldownSeconds, simCfg.Attack.RangePixels)
	ledger := exp.NewLedger(logger.Named("exp"))

	var s *sim.Simulation
	var upgrades sim.Option
	if cfg.Content.StatusScript != "" {
		env := scripting.GameEnv{
			Progress: func() (int, int, int, bool) {
				p := s.StageInfo().Progress
				return p.Floor, p.Chapter, p.Stage, p.IsNight
			},
			Level: func(key string) int { return shop.Level(status.Key(key)) },
		}
		provider, err := scripting.NewStatusProvider(cfg.Content.StatusScript, cfg.Content.InstructionLimit, env, shop, logger.Named("script"))
		if err != nil {
			logger.Fatal("loading status script", zap.Error(err))
		}
		defer provider.Close()
		upgrades = sim.WithUpgrades(provider)
	}

	opts := []sim.Option{
		sim.WithLogger(logger.Named("sim")),
		sim.WithSource(rng.NewLogged(rng.New(cfg.Simulation.Seed), logger.Named("rng"))),
		sim.WithCatalog(catalog),
		sim.WithShop(shop),
		sim.WithExperience(ledger),
		sim.WithPersister(saver),
	}
	if upgrades != nil {
		opts = append(opts, upgrades)
	}
	s = sim.New(simCfg, opts...)

	if *newGame {
		s.NewGame()
	} else {
		snap, err := store.Load(ctx, cfg.Storage.Slot)
		if err != nil && !errors.Is(err, storage.ErrSlotNotFound) {
			logger.Warn("loading saved run", zap.String("slot", cfg.Storage.Slot), zap.Error(err))
		}
		s.Continue(snap)
	}

	loop := sim.NewLoop(s, cfg.Simulation.TickRate, cfg.Simulation.AutosaveInterval, logger.Named("loop"))

	lc := server.NewLifecycle(logger)
	lc.Add("saver", saver)
	lc.Add("simulation", loop)
	if cfg.Feed.Enabled {
		hub := feed.NewHub(cfg.Feed.ClientBuffer, logger.Named("hub"))
		s.Bus().Subscribe(hub.Publish)
		lc.Add("feed", feed.NewServer(cfg.Feed, hub, feed.NewLoopController(loop), logger.Named("feed")))
	}

	logger.Info("idle lightning ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("slot", cfg.Storage.Slot),
		zap.Bool("feed", cfg.Feed.Enabled),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lc.Run(ctx); err != nil {
		logger.Error("lifecycle error", zap.Error(err))
	}
	logger.Info("saves written",
		zap.Int64("saved", saver.Saved()),
		zap.Int64("failed", saver.Failed()),
	)
}

// openStore returns the configured backend and a function releasing it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemory(), func() {}, nil
	case "local":
		return local.Open(cfg.Storage.AppName, logger.Named("local")), func() {}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database, logger.Named("postgres"))
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSaveRepository(pool.DB()), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
