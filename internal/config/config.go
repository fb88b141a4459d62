// Package config provides Viper-based configuration loading for the idle lightning server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout", or a file path the log is appended to.
	Output string `mapstructure:"output"`
}

// SimulationConfig holds frame loop and stage flow timing.
type SimulationConfig struct {
	// TickRate is the wall-clock interval between simulation frames.
	TickRate time.Duration `mapstructure:"tick_rate"`
	// MaxDelta caps a single frame's dt in seconds.
	MaxDelta float64 `mapstructure:"max_delta"`
	// AutosaveInterval is the period between background snapshot saves.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
	// ClearDelay is the simulation time between a stage clear and the advance.
	ClearDelay time.Duration `mapstructure:"clear_delay"`
	// FirstSpawnTimeout forces a spawn when a started stage has produced nothing.
	FirstSpawnTimeout time.Duration `mapstructure:"first_spawn_timeout"`
	// StallTimeout restarts a stage whose spawn count has not moved on an empty board.
	StallTimeout time.Duration `mapstructure:"stall_timeout"`
	// Seed seeds the random source; 0 selects a crypto-backed source.
	Seed int64 `mapstructure:"seed"`
	// LogEscapes logs enemy escapes at info level instead of debug.
	LogEscapes bool `mapstructure:"log_escapes"`
}

// ArenaConfig describes the playfield geometry in pixels.
type ArenaConfig struct {
	Width         float64 `mapstructure:"width"`
	Height        float64 `mapstructure:"height"`
	PlayerX       float64 `mapstructure:"player_x"`
	PlayerY       float64 `mapstructure:"player_y"`
	PlayerRadius  float64 `mapstructure:"player_radius"`
	EscapeMarginX float64 `mapstructure:"escape_margin_x"`
	EscapeMarginY float64 `mapstructure:"escape_margin_y"`
}

// SpawnConfig holds wave pacing parameters.
type SpawnConfig struct {
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	BurstSize      int           `mapstructure:"burst_size"`
	BasePaceMs     float64       `mapstructure:"base_pace_ms"`
	MinPaceMs      float64       `mapstructure:"min_pace_ms"`
	PacePerStageMs float64       `mapstructure:"pace_per_stage_ms"`
	CrowdThreshold int           `mapstructure:"crowd_threshold"`
	CrowdPenaltyMs float64       `mapstructure:"crowd_penalty_ms"`
	SpawnGrace     time.Duration `mapstructure:"spawn_grace"`
	// Offscreen places new enemies past the right edge instead of inside the arena.
	Offscreen bool `mapstructure:"offscreen"`
}

// CombatConfig holds melee state machine tuning.
type CombatConfig struct {
	// CooldownPolicy is "rate" (1/attacks_per_sec) or "recoil" (recoil duration).
	CooldownPolicy string `mapstructure:"cooldown_policy"`
	// RemoveOnStrike removes an enemy right after its strike lands.
	RemoveOnStrike    bool    `mapstructure:"remove_on_strike"`
	EscapeDamageRatio float64 `mapstructure:"escape_damage_ratio"`
	HitMargin         float64 `mapstructure:"hit_margin"`
	EngageSlack       float64 `mapstructure:"engage_slack"`
	SeparationPush    float64 `mapstructure:"separation_push"`
	Steering          float64 `mapstructure:"steering"`
}

// AttackConfig holds the starting chain lightning parameters.
type AttackConfig struct {
	BaseDamage float64 `mapstructure:"base_damage"`
	Cooldown   float64 `mapstructure:"cooldown"`
	Range      float64 `mapstructure:"range"`
	ChainCount int     `mapstructure:"chain_count"`
	Falloff    float64 `mapstructure:"falloff"`
}

// PlayerConfig holds the spirit's starting health.
type PlayerConfig struct {
	MaxHP float64 `mapstructure:"max_hp"`
}

// ContentConfig points at the YAML and Lua content directories.
type ContentConfig struct {
	// EnemyDir holds archetype and weight table YAML; empty uses the built-in catalog.
	EnemyDir string `mapstructure:"enemy_dir"`
	// StatusScript is a Lua file providing crit/gold hooks; empty disables scripting.
	StatusScript string `mapstructure:"status_script"`
	// InstructionLimit caps Lua opcodes per hook call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	// Backend is one of "memory", "local", "postgres".
	Backend string `mapstructure:"backend"`
	// AppName namespaces the local save directory.
	AppName string `mapstructure:"app_name"`
	// Slot names the save slot.
	Slot string `mapstructure:"slot"`
}

// FeedConfig holds the websocket event feed settings.
type FeedConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ClientBuffer int    `mapstructure:"client_buffer"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (f FeedConfig) Addr() string {
	return fmt.Sprintf("%s:%d", f.Host, f.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Arena      ArenaConfig      `mapstructure:"arena"`
	Spawn      SpawnConfig      `mapstructure:"spawn"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Attack     AttackConfig     `mapstructure:"attack"`
	Player     PlayerConfig     `mapstructure:"player"`
	Content    ContentConfig    `mapstructure:"content"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Feed       FeedConfig       `mapstructure:"feed"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateSimulation(c.Simulation),
		validateArena(c.Arena),
		validateSpawn(c.Spawn),
		validateCombat(c.Combat),
		validateAttack(c.Attack),
		validatePlayer(c.Player),
		validateStorage(c.Storage),
		validateFeed(c.Feed),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Storage.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joinErrs(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.Output == "" {
		return fmt.Errorf("logging.output must be non-empty")
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickRate <= 0 {
		errs = append(errs, "simulation.tick_rate must be positive")
	}
	if s.MaxDelta <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.max_delta must be > 0, got %v", s.MaxDelta))
	}
	if s.AutosaveInterval <= 0 {
		errs = append(errs, "simulation.autosave_interval must be positive")
	}
	if s.ClearDelay < 0 {
		errs = append(errs, "simulation.clear_delay must not be negative")
	}
	if s.FirstSpawnTimeout <= 0 {
		errs = append(errs, "simulation.first_spawn_timeout must be positive")
	}
	if s.StallTimeout <= 0 {
		errs = append(errs, "simulation.stall_timeout must be positive")
	}
	return joinErrs(errs)
}

func validateArena(a ArenaConfig) error {
	var errs []string
	if a.Width <= 0 || a.Height <= 0 {
		errs = append(errs, fmt.Sprintf("arena size must be positive, got %vx%v", a.Width, a.Height))
	}
	if a.PlayerX < 0 || a.PlayerX > a.Width || a.PlayerY < 0 || a.PlayerY > a.Height {
		errs = append(errs, "arena player position must lie inside the arena")
	}
	if a.PlayerRadius <= 0 {
		errs = append(errs, "arena.player_radius must be positive")
	}
	if a.EscapeMarginX < 0 || a.EscapeMarginY < 0 {
		errs = append(errs, "arena escape margins must not be negative")
	}
	return joinErrs(errs)
}

func validateSpawn(s SpawnConfig) error {
	var errs []string
	if s.MaxConcurrent < 1 {
		errs = append(errs, fmt.Sprintf("spawn.max_concurrent must be >= 1, got %d", s.MaxConcurrent))
	}
	if s.BurstSize < 0 {
		errs = append(errs, "spawn.burst_size must not be negative")
	}
	if s.MinPaceMs <= 0 || s.BasePaceMs < s.MinPaceMs {
		errs = append(errs, "spawn pacing requires 0 < min_pace_ms <= base_pace_ms")
	}
	if s.SpawnGrace < 0 {
		errs = append(errs, "spawn.spawn_grace must not be negative")
	}
	return joinErrs(errs)
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.CooldownPolicy != "rate" && c.CooldownPolicy != "recoil" {
		errs = append(errs, fmt.Sprintf("combat.cooldown_policy must be one of [rate, recoil], got %q", c.CooldownPolicy))
	}
	if c.EscapeDamageRatio < 0 {
		errs = append(errs, "combat.escape_damage_ratio must not be negative")
	}
	if c.Steering <= 0 || c.Steering > 1 {
		errs = append(errs, fmt.Sprintf("combat.steering must be in (0, 1], got %v", c.Steering))
	}
	return joinErrs(errs)
}

func validateAttack(a AttackConfig) error {
	var errs []string
	if a.BaseDamage < 1 {
		errs = append(errs, fmt.Sprintf("attack.base_damage must be >= 1, got %v", a.BaseDamage))
	}
	if a.Cooldown < 0.15 {
		errs = append(errs, fmt.Sprintf("attack.cooldown must be >= 0.15, got %v", a.Cooldown))
	}
	if a.Range < 60 {
		errs = append(errs, fmt.Sprintf("attack.range must be >= 60, got %v", a.Range))
	}
	if a.ChainCount < 0 || a.ChainCount > 14 {
		errs = append(errs, fmt.Sprintf("attack.chain_count must be 0-14, got %d", a.ChainCount))
	}
	if a.Falloff <= 0 || a.Falloff > 1 {
		errs = append(errs, fmt.Sprintf("attack.falloff must be in (0, 1], got %v", a.Falloff))
	}
	return joinErrs(errs)
}

func validatePlayer(p PlayerConfig) error {
	if p.MaxHP < 1 {
		return fmt.Errorf("player.max_hp must be >= 1, got %v", p.MaxHP)
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	validBackends := map[string]bool{"memory": true, "local": true, "postgres": true}
	if !validBackends[s.Backend] {
		errs = append(errs, fmt.Sprintf("storage.backend must be one of [memory, local, postgres], got %q", s.Backend))
	}
	if s.Backend == "local" && s.AppName == "" {
		errs = append(errs, "storage.app_name must not be empty for the local backend")
	}
	if s.Slot == "" {
		errs = append(errs, "storage.slot must not be empty")
	}
	return joinErrs(errs)
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joinErrs(errs)
}

func validateFeed(f FeedConfig) error {
	if !f.Enabled {
		return nil
	}
	var errs []string
	if f.Port < 1 || f.Port > 65535 {
		errs = append(errs, fmt.Sprintf("feed.port must be 1-65535, got %d", f.Port))
	}
	if f.ClientBuffer < 1 {
		errs = append(errs, fmt.Sprintf("feed.client_buffer must be >= 1, got %d", f.ClientBuffer))
	}
	return joinErrs(errs)
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with IDLE_ prefix
	v.SetEnvPrefix("IDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the built-in defaults alone.
//
// Postcondition: The returned Config passes Validate.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic("config: built-in defaults are invalid: " + err.Error())
	}
	return cfg
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("simulation.tick_rate", "16ms")
	v.SetDefault("simulation.max_delta", 0.033)
	v.SetDefault("simulation.autosave_interval", "5s")
	v.SetDefault("simulation.clear_delay", "3s")
	v.SetDefault("simulation.first_spawn_timeout", "2s")
	v.SetDefault("simulation.stall_timeout", "8s")
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.log_escapes", true)

	v.SetDefault("arena.width", 960.0)
	v.SetDefault("arena.height", 540.0)
	v.SetDefault("arena.player_x", 80.0)
	v.SetDefault("arena.player_y", 270.0)
	v.SetDefault("arena.player_radius", 24.0)
	v.SetDefault("arena.escape_margin_x", 160.0)
	v.SetDefault("arena.escape_margin_y", 200.0)

	v.SetDefault("spawn.max_concurrent", 40)
	v.SetDefault("spawn.burst_size", 3)
	v.SetDefault("spawn.base_pace_ms", 800.0)
	v.SetDefault("spawn.min_pace_ms", 450.0)
	v.SetDefault("spawn.pace_per_stage_ms", 25.0)
	v.SetDefault("spawn.crowd_threshold", 12)
	v.SetDefault("spawn.crowd_penalty_ms", 12.0)
	v.SetDefault("spawn.spawn_grace", "900ms")
	v.SetDefault("spawn.offscreen", false)

	v.SetDefault("combat.cooldown_policy", "rate")
	v.SetDefault("combat.remove_on_strike", false)
	v.SetDefault("combat.escape_damage_ratio", 0.5)
	v.SetDefault("combat.hit_margin", 2.0)
	v.SetDefault("combat.engage_slack", 6.0)
	v.SetDefault("combat.separation_push", 0.10)
	v.SetDefault("combat.steering", 0.5)

	v.SetDefault("attack.base_damage", 8.0)
	v.SetDefault("attack.cooldown", 0.70)
	v.SetDefault("attack.range", 380.0)
	v.SetDefault("attack.chain_count", 2)
	v.SetDefault("attack.falloff", 0.85)

	v.SetDefault("player.max_hp", 100.0)

	v.SetDefault("content.enemy_dir", "")
	v.SetDefault("content.status_script", "")
	v.SetDefault("content.instruction_limit", 100000)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.app_name", "idle_lightning")
	v.SetDefault("storage.slot", "default")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "idle")
	v.SetDefault("database.password", "idle")
	v.SetDefault("database.name", "idle_lightning")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.host", "127.0.0.1")
	v.SetDefault("feed.port", 8080)
	v.SetDefault("feed.client_buffer", 64)
}
