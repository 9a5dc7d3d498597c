package main

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
)

const envPrefix = "GOSESSION_"

type config struct {
	Backend     string `koanf:"backend"`
	Codec       string `koanf:"codec"`
	Sessions    int    `koanf:"sessions"`
	Concurrency int    `koanf:"concurrency"`
	Ops         int    `koanf:"ops"`

	Redis struct {
		Addr   string `koanf:"addr"`
		Prefix string `koanf:"prefix"`
	} `koanf:"redis"`

	Bolt struct {
		Path string `koanf:"path"`
	} `koanf:"bolt"`

	Badger struct {
		Dir string `koanf:"dir"`
	} `koanf:"badger"`

	Postgres struct {
		DSN string `koanf:"dsn"`
	} `koanf:"postgres"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func defaultLoadConfig() map[string]any {
	return map[string]any{
		"backend":      "memory",
		"codec":        "json",
		"sessions":     10000,
		"concurrency":  64,
		"ops":          100000,
		"redis.prefix": "gs:load:",
		"log.level":    "info",
	}
}

// flagKeys maps CLI flags to config keys. Only flags set on the command line override
// file and environment values.
var flagKeys = map[string]string{
	"backend":      "backend",
	"codec":        "codec",
	"sessions":     "sessions",
	"concurrency":  "concurrency",
	"ops":          "ops",
	"redis-addr":   "redis.addr",
	"bolt-path":    "bolt.path",
	"badger-dir":   "badger.dir",
	"postgres-dsn": "postgres.dsn",
	"log-level":    "log.level",
}

// loadConfig merges defaults, the optional YAML file, GOSESSION_* variables and flags,
// later sources winning.
func loadConfig(c *cli.Context) (config, error) {
	var cfg config
	k := koanf.New(".")

	for key, v := range defaultLoadConfig() {
		if err := k.Set(key, v); err != nil {
			return cfg, err
		}
	}

	if path := c.String("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// GOSESSION_REDIS_ADDR -> redis.addr
	transform := func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	for flag, key := range flagKeys {
		if !c.IsSet(flag) {
			continue
		}
		if err := k.Set(key, c.Value(flag)); err != nil {
			return cfg, err
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	if c.Sessions <= 0 || c.Concurrency <= 0 || c.Ops <= 0 {
		return fmt.Errorf("sessions, concurrency, and ops must be > 0")
	}
	switch c.Codec {
	case "json", "cbor":
	default:
		return fmt.Errorf("unknown codec %q", c.Codec)
	}
	return nil
}
