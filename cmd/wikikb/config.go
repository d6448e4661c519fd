package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/wikitools/wikikb/pkg/cache"
	"github.com/wikitools/wikikb/pkg/client"
)

// app carries the global flags and the resolved file config.
type app struct {
	project    string
	chunkSize  int
	format     string
	configPath string
	debug      bool

	file fileConfig
}

// fileConfig is the YAML config file shape.
type fileConfig struct {
	Project   string `yaml:"project"`
	UserAgent string `yaml:"user_agent"`
	ChunkSize int    `yaml:"chunk_size"`

	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// newRequester builds the shared requester, attaching a redis response
// cache when the config names a redis address.
func (a *app) newRequester() (*client.Client, error) {
	cfg := client.DefaultConfig(a.userAgent())

	addr := a.file.Redis.Addr
	if addr == "" {
		addr = os.Getenv("WIKIKB_REDIS_ADDR")
	}
	if addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: a.file.Redis.Password,
			DB:       a.file.Redis.DB,
		})
		cfg.Cache = cache.NewStore(rdb, a.cacheTTL())
	}

	return client.New(cfg)
}
