/*
 * Copyright 2025 The sndctl Authors.
 *
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

// Package config loads the sndctl configuration from a JSON file with
// SNDCTL_-prefixed environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sndctl/sndctl/pkg/logger"
	"github.com/sndctl/sndctl/pkg/models"
)

const (
	envPrefix = "SNDCTL_"

	defaultListenAddr       = ":8000"
	defaultSubnet           = "192.168.1"
	defaultCacheTTL         = 5 * time.Minute
	defaultDiscoveryTimeout = 5 * time.Second
	defaultScanTimeout      = 3 * time.Second
	defaultScanConcurrency  = 50
)

// Config is the top-level sndctl configuration.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	APIKey     string `json:"api_key"`

	// Subnet is the /24 prefix (e.g. "192.168.1") scanned when multicast
	// discovery finds nothing.
	Subnet string `json:"subnet"`

	DiscoveryTimeout models.Duration `json:"discovery_timeout"`
	CacheTTL         models.Duration `json:"cache_ttl"`
	ScanTimeout      models.Duration `json:"scan_timeout"`
	ScanConcurrency  int             `json:"scan_concurrency"`

	MCPEnabled bool `json:"mcp_enabled"`

	CORS    models.CORSConfig `json:"cors"`
	Logging *logger.Config    `json:"logging"`
}

// Load reads the config file at path, applies environment overrides, then
// fills in defaults. A missing file is not an error so the binary can run
// from environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)

		switch {
		case os.IsNotExist(err):
			// fall through to env + defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config from '%s': %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envPrefix + "LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}

	if v := os.Getenv(envPrefix + "API_KEY"); v != "" {
		c.APIKey = v
	}

	if v := os.Getenv(envPrefix + "SUBNET"); v != "" {
		c.Subnet = v
	}

	if v := os.Getenv(envPrefix + "DISCOVERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DiscoveryTimeout = models.Duration(d)
		}
	}

	if v := os.Getenv(envPrefix + "CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = models.Duration(d)
		}
	}

	if v := os.Getenv(envPrefix + "SCAN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ScanConcurrency = n
		}
	}

	if v := os.Getenv(envPrefix + "MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MCPEnabled = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.Subnet == "" {
		c.Subnet = defaultSubnet
	}

	if c.DiscoveryTimeout == 0 {
		c.DiscoveryTimeout = models.Duration(defaultDiscoveryTimeout)
	}

	if c.CacheTTL == 0 {
		c.CacheTTL = models.Duration(defaultCacheTTL)
	}

	if c.ScanTimeout == 0 {
		c.ScanTimeout = models.Duration(defaultScanTimeout)
	}

	if c.ScanConcurrency == 0 {
		c.ScanConcurrency = defaultScanConcurrency
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}
}
