// Package main opens a window that runs the simulation in-process and draws
// the arena, the spirit, the enemies and the lightning.
//
// Keys: P pause/resume, R retry, N new game, 1-4 buy crit/speed/range/gold.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/config"
	"github.com/cory-johannsen/idle-lightning/internal/game/combat"
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/event"
	"github.com/cory-johannsen/idle-lightning/internal/game/exp"
	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
	"github.com/cory-johannsen/idle-lightning/internal/game/sim"
	"github.com/cory-johannsen/idle-lightning/internal/game/stage"
	"github.com/cory-johannsen/idle-lightning/internal/game/status"
	"github.com/cory-johannsen/idle-lightning/internal/observability"
	"github.com/cory-johannsen/idle-lightning/internal/storage"
	"github.com/cory-johannsen/idle-lightning/internal/storage/local"
)

const flashSeconds = 0.12

var (
	bgColor      = color.RGBA{0x10, 0x12, 0x1c, 0xff}
	playerColor  = color.RGBA{0x7f, 0xd8, 0xff, 0xff}
	rangeColor   = color.RGBA{0x3a, 0x5a, 0x8a, 0xff}
	boltColor    = color.RGBA{0xe8, 0xf4, 0xff, 0xff}
	hpBackColor  = color.RGBA{0x40, 0x10, 0x10, 0xff}
	hpFrontColor = color.RGBA{0x40, 0xd0, 0x60, 0xff}
)

var stateColors = map[combat.State]color.RGBA{
	combat.Chase:  {0xc0, 0x60, 0x60, 0xff},
	combat.Windup: {0xf0, 0xa0, 0x30, 0xff},
	combat.Strike: {0xff, 0x30, 0x30, 0xff},
	combat.Recoil: {0x90, 0x70, 0xa0, 0xff},
}

var upgradeKeys = map[ebiten.Key]status.Key{
	ebiten.Key1: status.Crit,
	ebiten.Key2: status.Speed,
	ebiten.Key3: status.Range,
	ebiten.Key4: status.Gold,
}

type viewer struct {
	sim          *sim.Simulation
	width        int
	height       int
	playerRadius float32

	last   time.Time
	flash  float64
	notice string
}

func (v *viewer) Update() error {
	now := time.Now()
	dt := now.Sub(v.last).Seconds()
	v.last = now

	v.handleInput()
	v.sim.Tick(dt)
	v.flash = max(0, v.flash-dt)
	return nil
}

func (v *viewer) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		if v.sim.Paused() {
			v.sim.Resume()
		} else {
			v.sim.Pause()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		v.sim.Retry()
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		v.sim.NewGame()
	}
	for k, key := range upgradeKeys {
		if !inpututil.IsKeyJustPressed(k) {
			continue
		}
		if err := v.sim.Upgrade(key); err != nil {
			v.notice = err.Error()
			continue
		}
		v.notice = fmt.Sprintf("%s upgraded to %d", key, v.sim.Shop().Level(key))
	}
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	p := v.sim.PlayerPos()
	atk := v.sim.Attack()
	vector.StrokeCircle(screen, float32(p.X), float32(p.Y), float32(atk.RangePixels), 1, rangeColor, true)

	entities := v.sim.Entities()
	for _, e := range entities {
		r := float32(e.Archetype.HitRadius())
		x, y := float32(e.Pos.X), float32(e.Pos.Y)
		vector.DrawFilledCircle(screen, x, y, r, stateColors[e.State], true)
		if e.MaxHP > 0 {
			w := 2 * r
			vector.DrawFilledRect(screen, x-r, y-r-6, w, 3, hpBackColor, false)
			vector.DrawFilledRect(screen, x-r, y-r-6, w*float32(e.HP/e.MaxHP), 3, hpFrontColor, false)
		}
		if v.flash > 0 && p.Sub(e.Pos).Len() <= atk.RangePixels {
			vector.StrokeLine(screen, float32(p.X), float32(p.Y), x, y, 2, boltColor, true)
		}
	}

	hp, maxHP := v.sim.PlayerHP()
	pr := v.playerRadius
	vector.DrawFilledCircle(screen, float32(p.X), float32(p.Y), pr, playerColor, true)
	vector.DrawFilledRect(screen, float32(p.X)-pr, float32(p.Y)+pr+6, 2*pr, 4, hpBackColor, false)
	if maxHP > 0 {
		vector.DrawFilledRect(screen, float32(p.X)-pr, float32(p.Y)+pr+6, 2*pr*float32(hp/maxHP), 4, hpFrontColor, false)
	}

	info := v.sim.StageInfo()
	hud := fmt.Sprintf("%s  remaining %d  enemies %d\nHP %.0f/%.0f  gold %d  diamonds %d  dps %.1f\ndmg %.1f  cd %.2fs  range %.0f  chain %d",
		info.Progress, info.Remaining, len(entities),
		hp, maxHP, v.sim.Gold(), v.sim.Diamonds(), v.sim.DPS(),
		atk.BaseDamage, atk.CooldownSeconds, atk.RangePixels, atk.ChainCount,
	)
	if info.Phase == stage.ClearPending {
		hud += fmt.Sprintf("\nCLEAR! next stage in %.1fs", info.ClearRemaining)
	}
	if v.sim.Paused() {
		hud += "\nPAUSED"
	}
	if v.notice != "" {
		hud += "\n" + v.notice
	}
	ebitenutil.DebugPrintAt(screen, hud, 8, 8)
}

func (v *viewer) Layout(int, int) (int, int) {
	return v.width, v.height
}

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty uses built-in defaults")
	logPath := flag.String("log", "idle_lightning_viewer.log", "log file; empty keeps logging.output")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	if *logPath != "" {
		cfg.Logging.Output = *logPath
	}
	logger, err := observability.NewLogger(cfg.Logging, "viewer")
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
		if catalog, err = enemy.LoadCatalog(cfg.Content.EnemyDir); err != nil {
			logger.Fatal("loading enemy content", zap.Error(err))
		}
	}

	store := local.Open(cfg.Storage.AppName, logger.Named("local"))
	saver := storage.NewAsyncSaver(store, cfg.Storage.Slot, logger.Named("saver"))
	go func() {
		if err := saver.Start(); err != nil {
			logger.Error("saver stopped", zap.Error(err))
		}
	}()
	defer saver.Stop()

	s := sim.New(simCfg,
		sim.WithLogger(logger.Named("sim")),
		sim.WithSource(rng.New(cfg.Simulation.Seed)),
		sim.WithCatalog(catalog),
		sim.WithShop(status.NewTracker(status.Levels{}, simCfg.Attack.CooldownSeconds, simCfg.Attack.RangePixels)),
		sim.WithExperience(exp.NewLedger(logger.Named("exp"))),
		sim.WithPersister(saver),
	)

	v := &viewer{
		sim:          s,
		width:        int(cfg.Arena.Width),
		height:       int(cfg.Arena.Height),
		playerRadius: float32(cfg.Arena.PlayerRadius),
		last:         time.Now(),
	}
	s.Bus().Subscribe(func(e event.Event) {
		switch e.Type {
		case event.ChainFired:
			v.flash = flashSeconds
		case event.StageFailed:
			v.notice = fmt.Sprintf("fell at %s", e.Progress)
		case event.StageChanged:
			v.notice = ""
		}
	})

	snap, err := store.Load(context.Background(), cfg.Storage.Slot)
	if err != nil && !errors.Is(err, storage.ErrSlotNotFound) {
		logger.Warn("loading saved run", zap.Error(err))
	}
	s.Continue(snap)

	ebiten.SetWindowSize(v.width, v.height)
	ebiten.SetWindowTitle("Idle Lightning")
	if err := ebiten.RunGame(v); err != nil {
		logger.Error("viewer exited", zap.Error(err))
	}
	s.Save()
}
