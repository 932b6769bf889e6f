// Package config loads the runtime configuration from the environment, with
// a best-effort .env file for development.
package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		Map     Map     `envPrefix:"MAP_"`
		Cache   Cache   `envPrefix:"CACHE_"`
		Loader  Loader  `envPrefix:"LOADER_"`
		Logger  Logger  `envPrefix:"LOG_"`
		Metrics Metrics `envPrefix:"METRICS_"`
	}

	Map struct {
		CenterLon      float64 `env:"CENTER_LON" envDefault:"126.9780"`
		CenterLat      float64 `env:"CENTER_LAT" envDefault:"37.5665"`
		Zoom           float64 `env:"ZOOM" envDefault:"12"`
		ViewportWidth  uint32  `env:"VIEWPORT_WIDTH" envDefault:"800"`
		ViewportHeight uint32  `env:"VIEWPORT_HEIGHT" envDefault:"600"`
	}

	Cache struct {
		MaxTiles    int `env:"MAX_TILES" envDefault:"256"`
		MaxMemoryMB int `env:"MAX_MEMORY_MB" envDefault:"64"`
	}

	Loader struct {
		Mode          string `env:"MODE" envDefault:"worker"`
		URLTemplate   string `env:"URL_TEMPLATE" envDefault:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
		UserAgent     string `env:"USER_AGENT" envDefault:"mapview/0.1"`
		QueueSize     int    `env:"QUEUE_SIZE" envDefault:"256"`
		MaxConcurrent int64  `env:"MAX_CONCURRENT" envDefault:"16"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Metrics struct {
		Port          int           `env:"PORT" envDefault:"9090"`
		FrameInterval time.Duration `env:"FRAME_INTERVAL" envDefault:"16ms"`
	}
)

// New parses the configuration. A missing .env file is not an error.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MaxMemoryBytes converts the cache memory budget to bytes.
func (c *Config) MaxMemoryBytes() int {
	return c.Cache.MaxMemoryMB * 1024 * 1024
}
