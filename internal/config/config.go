package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"

	"github.com/Nishit5799/multiplayerShooting/internal/geom"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/spawn"
)

// Config is the full process configuration. Durations are stored in
// milliseconds so the TOML file stays plain numbers.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Gameplay      GameplayConfig      `toml:"gameplay"`
	Arena         ArenaConfig         `toml:"arena"`
	Logging       LoggingConfig       `toml:"logging"`
	Observability ObservabilityConfig `toml:"observability"`
}

type ServerConfig struct {
	Addr            string `toml:"addr"`
	TickRate        int    `toml:"tick_rate"`
	CatchupMaxTicks int    `toml:"catchup_max_ticks"`
	CommandCapacity int    `toml:"command_capacity"`
	PerActorLimit   int    `toml:"per_actor_limit"`
	Codec           string `toml:"codec"`
	// Dev makes authority violations panic instead of being dropped.
	Dev bool `toml:"dev"`
}

type GameplayConfig struct {
	RunSpeed           float64 `toml:"run_speed"`
	RotationLerp       float64 `toml:"rotation_lerp"`
	Damping            float64 `toml:"damping"`
	AimRate            float64 `toml:"aim_rate"`
	AimLimitDegrees    float64 `toml:"aim_limit_degrees"`
	ReplicaSmoothing   float64 `toml:"replica_smoothing"`
	FireIntervalMS     int     `toml:"fire_interval_ms"`
	BulletSpeed        float64 `toml:"bullet_speed"`
	BulletDamage       int     `toml:"bullet_damage"`
	BulletLifetimeMS   int     `toml:"bullet_lifetime_ms"`
	HitLifetimeMS      int     `toml:"hit_lifetime_ms"`
	RespawnDelayMS     int     `toml:"respawn_delay_ms"`
	RegenDelayMS       int     `toml:"regen_delay_ms"`
	RegenIntervalMS    int     `toml:"regen_interval_ms"`
	RegenAmount        int     `toml:"regen_amount"`
	WinKills           int     `toml:"win_kills"`
	RestartCountdownMS int     `toml:"restart_countdown_ms"`
}

type Vec3Config struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	Z float64 `toml:"z"`
}

func (v Vec3Config) vec() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

type BoxConfig struct {
	Min Vec3Config `toml:"min"`
	Max Vec3Config `toml:"max"`
}

func (b BoxConfig) box() geom.Box {
	return geom.Box{Min: b.Min.vec(), Max: b.Max.vec()}
}

func (b BoxConfig) empty() bool {
	return b.Min == b.Max
}

type SpawnPointConfig struct {
	Name     string     `toml:"name"`
	Position Vec3Config `toml:"position"`
}

// ArenaConfig describes the level. A zero Bounds box leaves the arena
// unbounded.
type ArenaConfig struct {
	Bounds      BoxConfig          `toml:"bounds"`
	Obstacles   []BoxConfig        `toml:"obstacles"`
	SpawnPoints []SpawnPointConfig `toml:"spawn_points"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Sinks      []string `toml:"sinks"`
	JSONPath   string   `toml:"json_path"`
	BufferSize int      `toml:"buffer_size"`
}

type ObservabilityConfig struct {
	SentryDSN         string `toml:"sentry_dsn"`
	SentryEnvironment string `toml:"sentry_environment"`
	StatsviewAddr     string `toml:"statsview_addr"`
}

// Default returns the arena defaults.
func Default() Config {
	tuning := sim.DefaultTuning()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			TickRate:        30,
			CatchupMaxTicks: 3,
			CommandCapacity: 1024,
			PerActorLimit:   8,
			Codec:           "json",
		},
		Gameplay: GameplayConfig{
			RunSpeed:           tuning.Movement.RunSpeed,
			RotationLerp:       tuning.Movement.RotationLerp,
			Damping:            tuning.Movement.Damping,
			AimRate:            tuning.Movement.AimRate,
			AimLimitDegrees:    geom.Degrees(tuning.Movement.AimLimit),
			ReplicaSmoothing:   tuning.Movement.ReplicaSmoothing,
			FireIntervalMS:     int(tuning.Projectile.FireInterval / time.Millisecond),
			BulletSpeed:        tuning.Projectile.Speed,
			BulletDamage:       tuning.Projectile.Damage,
			BulletLifetimeMS:   int(tuning.Projectile.Lifetime / time.Millisecond),
			HitLifetimeMS:      int(tuning.Projectile.HitLifetime / time.Millisecond),
			RespawnDelayMS:     int(tuning.Combat.RespawnDelay / time.Millisecond),
			RegenDelayMS:       int(tuning.Combat.RegenDelay / time.Millisecond),
			RegenIntervalMS:    int(tuning.Combat.RegenInterval / time.Millisecond),
			RegenAmount:        tuning.Combat.RegenAmount,
			WinKills:           tuning.WinKills,
			RestartCountdownMS: int(tuning.RestartCountdown / time.Millisecond),
		},
		Arena: ArenaConfig{
			Bounds: BoxConfig{Min: Vec3Config{X: -25, Y: -1, Z: -25}, Max: Vec3Config{X: 25, Y: 20, Z: 25}},
			Obstacles: []BoxConfig{
				{Min: Vec3Config{X: -2, Y: 0, Z: -2}, Max: Vec3Config{X: 2, Y: 3, Z: 2}},
				{Min: Vec3Config{X: 8, Y: 0, Z: -12}, Max: Vec3Config{X: 10, Y: 2, Z: -6}},
			},
			SpawnPoints: []SpawnPointConfig{
				{Name: "spawn_0", Position: Vec3Config{X: -15, Z: -15}},
				{Name: "spawn_1", Position: Vec3Config{X: 15, Z: -15}},
				{Name: "spawn_2", Position: Vec3Config{X: -15, Z: 15}},
				{Name: "spawn_3", Position: Vec3Config{X: 15, Z: 15}},
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Sinks:      []string{"logrus"},
			BufferSize: 512,
		},
	}
}

// Load reads an optional .env file, then the TOML file at path when path
// is non-empty, then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func SaveDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.New("config file already exists")
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	str := func(key string, target *string) {
		if raw := strings.TrimSpace(getenv(key)); raw != "" {
			*target = raw
		}
	}
	str("ARENA_ADDR", &c.Server.Addr)
	str("ARENA_CODEC", &c.Server.Codec)
	str("SENTRY_DSN", &c.Observability.SentryDSN)
	str("SENTRY_ENVIRONMENT", &c.Observability.SentryEnvironment)
	str("STATSVIEW_ADDR", &c.Observability.StatsviewAddr)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	if raw := strings.TrimSpace(getenv("LOG_JSON_PATH")); raw != "" {
		c.Logging.JSONPath = raw
		if !containsFold(c.Logging.Sinks, "json") {
			c.Logging.Sinks = append(c.Logging.Sinks, "json")
		}
	}
	if raw := strings.TrimSpace(getenv("ARENA_TICK_RATE")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid ARENA_TICK_RATE=%q: %w", raw, err))
		} else {
			c.Server.TickRate = value
		}
	}
	if raw := strings.TrimSpace(getenv("ARENA_DEV")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid ARENA_DEV=%q: %w", raw, err))
		} else {
			c.Server.Dev = value
		}
	}
	return errors.Join(errs...)
}

func containsFold(values []string, want string) bool {
	for _, value := range values {
		if strings.EqualFold(value, want) {
			return true
		}
	}
	return false
}

// Validate rejects configurations the host cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick rate must be positive, got %d", c.Server.TickRate))
	}
	if c.Server.CommandCapacity <= 0 {
		errs = append(errs, fmt.Errorf("command capacity must be positive, got %d", c.Server.CommandCapacity))
	}
	if len(c.Arena.SpawnPoints) == 0 {
		errs = append(errs, errors.New("at least one spawn point is required"))
	}
	seen := make(map[string]struct{}, len(c.Arena.SpawnPoints))
	for i, point := range c.Arena.SpawnPoints {
		if point.Name == "" {
			errs = append(errs, fmt.Errorf("spawn point %d has no name", i))
			continue
		}
		if _, dup := seen[point.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate spawn point %q", point.Name))
		}
		seen[point.Name] = struct{}{}
	}
	g := c.Gameplay
	if g.FireIntervalMS <= 0 || g.BulletLifetimeMS <= 0 || g.BulletSpeed <= 0 {
		errs = append(errs, errors.New("fire interval, bullet lifetime and bullet speed must be positive"))
	}
	if g.WinKills <= 0 {
		errs = append(errs, fmt.Errorf("win kills must be positive, got %d", g.WinKills))
	}
	switch strings.ToLower(c.Server.Codec) {
	case "", "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("unknown codec %q", c.Server.Codec))
	}
	return errors.Join(errs...)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Tuning converts the gameplay section into simulation tuning.
func (c Config) Tuning() sim.Tuning {
	tuning := sim.DefaultTuning()
	g := c.Gameplay
	tuning.Movement.RunSpeed = g.RunSpeed
	tuning.Movement.RotationLerp = g.RotationLerp
	tuning.Movement.Damping = g.Damping
	tuning.Movement.AimRate = g.AimRate
	tuning.Movement.AimLimit = math.Abs(geom.Radians(g.AimLimitDegrees))
	tuning.Movement.ReplicaSmoothing = g.ReplicaSmoothing
	tuning.Projectile.FireInterval = ms(g.FireIntervalMS)
	tuning.Projectile.Speed = g.BulletSpeed
	tuning.Projectile.Damage = g.BulletDamage
	tuning.Projectile.Lifetime = ms(g.BulletLifetimeMS)
	tuning.Projectile.HitLifetime = ms(g.HitLifetimeMS)
	tuning.Combat.RespawnDelay = ms(g.RespawnDelayMS)
	tuning.Combat.RegenDelay = ms(g.RegenDelayMS)
	tuning.Combat.RegenInterval = ms(g.RegenIntervalMS)
	tuning.Combat.RegenAmount = g.RegenAmount
	tuning.WinKills = g.WinKills
	tuning.RestartCountdown = ms(g.RestartCountdownMS)
	return tuning
}

// SpawnPoints returns the configured spawn pool.
func (c Config) SpawnPoints() []spawn.Point {
	points := make([]spawn.Point, 0, len(c.Arena.SpawnPoints))
	for _, point := range c.Arena.SpawnPoints {
		points = append(points, spawn.Point{Name: point.Name, Position: point.Position.vec()})
	}
	return points
}

// Obstacles returns the bullet-stopping geometry.
func (c Config) Obstacles() []geom.Box {
	boxes := make([]geom.Box, 0, len(c.Arena.Obstacles))
	for _, obstacle := range c.Arena.Obstacles {
		if obstacle.empty() {
			continue
		}
		boxes = append(boxes, obstacle.box())
	}
	return boxes
}

// Bounds returns the arena box, or nil when unbounded.
func (c Config) Bounds() *geom.Box {
	if c.Arena.Bounds.empty() {
		return nil
	}
	box := c.Arena.Bounds.box()
	return &box
}

// EngineConfig assembles the simulation configuration for one match.
func (c Config) EngineConfig(matchID string) sim.EngineConfig {
	return sim.EngineConfig{
		MatchID:     matchID,
		Tuning:      c.Tuning(),
		SpawnPoints: c.SpawnPoints(),
		Obstacles:   c.Obstacles(),
		Bounds:      c.Bounds(),
	}
}

// LoopConfig assembles the tick loop configuration.
func (c Config) LoopConfig() sim.LoopConfig {
	return sim.LoopConfig{
		TickRate:        c.Server.TickRate,
		CatchupMaxTicks: c.Server.CatchupMaxTicks,
		CommandCapacity: c.Server.CommandCapacity,
		PerActorLimit:   c.Server.PerActorLimit,
		WarningStep:     c.Server.CommandCapacity / 4,
	}
}
