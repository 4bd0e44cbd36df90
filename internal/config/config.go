package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	Secret       string        `mapstructure:"secret" validate:"required"`
	LogLevel     string        `mapstructure:"log_level"`
	ReadLimit    int64         `mapstructure:"read_limit" validate:"min=512"`
	PingPeriod   time.Duration `mapstructure:"ping_period" validate:"gt=0"`
	StepInterval time.Duration `mapstructure:"step_interval" validate:"gt=0"`
	BindLimit    int           `mapstructure:"bind_limit" validate:"min=0"`
	BindInterval time.Duration `mapstructure:"bind_interval" validate:"gte=0"`

	Pool        PoolConfig                `mapstructure:"pool"`
	Clips       ClipsConfig               `mapstructure:"clips"`
	Anchors     map[string]PositionConfig `mapstructure:"anchors"`
	Rooms       []RoomConfig              `mapstructure:"rooms" validate:"dive"`
	StaticRooms []RoomConfig              `mapstructure:"static_rooms" validate:"dive"`
}

type PoolConfig struct {
	Size     int  `mapstructure:"size" validate:"min=1,gtefield=MinSize"`
	MinSize  int  `mapstructure:"min_size" validate:"min=1"`
	AutoGrow bool `mapstructure:"auto_grow"`
	GrowStep int  `mapstructure:"grow_step" validate:"min=0"`
}

type ClipsConfig struct {
	DefaultDuration time.Duration            `mapstructure:"default_duration" validate:"gt=0"`
	Catalogue       map[string]time.Duration `mapstructure:"catalogue"`
}

type PositionConfig struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
	Z float64 `mapstructure:"z"`
}

type RoomConfig struct {
	Name     string          `mapstructure:"name" validate:"required"`
	Gateways []GatewayConfig `mapstructure:"gateways" validate:"dive"`
}

type GatewayConfig struct {
	Name      string          `mapstructure:"name" validate:"required"`
	Dampening *float64        `mapstructure:"dampening" validate:"omitempty,gte=0,lte=1"`
	Target    *PositionConfig `mapstructure:"target" validate:"required_without=Anchor,excluded_with=Anchor"`
	Anchor    string          `mapstructure:"anchor" validate:"required_without=Target"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, dev by default.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName on top of the defaults. A missing file is not an
// error; an invalid one is.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "propagation-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("step_interval", "20ms")
	v.SetDefault("bind_limit", 20)
	v.SetDefault("bind_interval", "10s")
	v.SetDefault("pool.size", 50)
	v.SetDefault("pool.min_size", 10)
	v.SetDefault("pool.auto_grow", false)
	v.SetDefault("pool.grow_step", 0)
	v.SetDefault("clips.default_duration", "3s")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(fileName); statErr == nil {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Int("pool_size", cfg.Pool.Size).
		Bool("auto_grow", cfg.Pool.AutoGrow).
		Int("rooms", len(cfg.Rooms)).
		Msg("config ready")
	return &cfg, nil
}
