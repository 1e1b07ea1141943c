package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Network    NetworkConfig    `toml:"network"`
	Simulation SimulationConfig `toml:"simulation"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Name        string `toml:"name"`
	DisplayName string `toml:"display_name"` // prefix for minted client names
	ScriptsDir  string `toml:"scripts_dir"`
	SpawnList   string `toml:"spawn_list"`
}

type NetworkConfig struct {
	BindAddress       string        `toml:"bind_address"`    // server: TCP+UDP listen addr
	ConnectAddress    string        `toml:"connect_address"` // client: server addr
	OutQueueSize      int           `toml:"out_queue_size"`  // bridge outbound capacity
	InQueueSize       int           `toml:"in_queue_size"`   // per-subscriber inbound capacity
	SessionQueueSize  int           `toml:"session_queue_size"`
	KeepAliveInterval time.Duration `toml:"keep_alive_interval"`
	DropThreshold     time.Duration `toml:"drop_threshold"`
	RetryInterval     time.Duration `toml:"retry_interval"` // client connect retry
	WriteTimeout      time.Duration `toml:"write_timeout"`
}

type SimulationConfig struct {
	TickRate           time.Duration `toml:"tick_rate"`
	MaxMessagesPerTick int           `toml:"max_messages_per_tick"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Network.DropThreshold <= c.Network.KeepAliveInterval {
		return fmt.Errorf("drop_threshold (%s) must exceed keep_alive_interval (%s)",
			c.Network.DropThreshold, c.Network.KeepAliveInterval)
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %s", c.Simulation.TickRate)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "osprey",
			DisplayName: "player",
			ScriptsDir:  "scripts",
			SpawnList:   "data/spawn_list.yaml",
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:6782",
			ConnectAddress:    "127.0.0.1:6782",
			OutQueueSize:      16384,
			InQueueSize:       16384,
			SessionQueueSize:  256,
			KeepAliveInterval: time.Second,
			DropThreshold:     5 * time.Second,
			RetryInterval:     2 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		Simulation: SimulationConfig{
			TickRate:           50 * time.Millisecond,
			MaxMessagesPerTick: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
