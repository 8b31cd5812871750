/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the daemon configuration from YAML, .env and the
// process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/tomoncle/ledger/database"
	"github.com/tomoncle/ledger/events"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database database.Config `yaml:"database"`
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Events   EventsConfig    `yaml:"events"`
	Ledger   LedgerConfig    `yaml:"ledger"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig also copies log entries to daily files under FileDir when it is
// set. MaxAgeDays <= 0 keeps old days.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	FileDir    string `yaml:"file_dir"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// EventsConfig enables the Kafka publisher when Brokers is non-empty.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LedgerConfig struct {
	LockTimeout time.Duration `yaml:"lock_timeout"`
	Seed        []SeedAccount `yaml:"seed"`
}

// SeedAccount is opened at startup when the ledger has no accounts.
type SeedAccount struct {
	Owner   string          `yaml:"owner"`
	Balance decimal.Decimal `yaml:"balance"`
}

func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:    LogConfig{Level: "info", Format: "console"},
		Events: EventsConfig{Topic: events.TopicTransferCompleted},
		Ledger: LedgerConfig{LockTimeout: 5 * time.Second},
	}
}

// Load reads path over the defaults, then applies .env and environment
// overrides. An empty path skips the file. A missing .env is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides non-database settings. DB_* variables are applied by the
// database factory when it connects.
func (c *Config) applyEnv() error {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("LOG_FILE_DIR"); v != "" {
		c.Log.FileDir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Events.Topic = v
	}
	if v := os.Getenv("LEDGER_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEDGER_LOCK_TIMEOUT: %w", err)
		}
		c.Ledger.LockTimeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Ledger.LockTimeout < 0 {
		return errors.New("ledger.lock_timeout must not be negative")
	}
	for i, s := range c.Ledger.Seed {
		if strings.TrimSpace(s.Owner) == "" {
			return fmt.Errorf("ledger.seed[%d]: owner must not be empty", i)
		}
		if s.Balance.IsNegative() {
			return fmt.Errorf("ledger.seed[%d]: balance must not be negative", i)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
