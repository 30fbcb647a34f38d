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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sndctl/sndctl/pkg/api"
	"github.com/sndctl/sndctl/pkg/config"
	"github.com/sndctl/sndctl/pkg/logger"
	"github.com/sndctl/sndctl/pkg/mcp"
	"github.com/sndctl/sndctl/pkg/registry"
	"github.com/sndctl/sndctl/pkg/scan"
	"github.com/sndctl/sndctl/pkg/sonos"
	"github.com/sndctl/sndctl/pkg/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/sndctl/sndctl.json", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rootLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	rootLogger.Info().
		Str("version", version.GetFullVersion()).
		Str("listen_addr", cfg.ListenAddr).
		Msg("Starting sndctl")

	discoverer := sonos.NewSSDPDiscoverer(time.Duration(cfg.DiscoveryTimeout), rootLogger.Component("ssdp"))
	sweeper := scan.NewSweeper(time.Duration(cfg.ScanTimeout), cfg.ScanConcurrency, rootLogger.Component("scan"))

	// One HTTP client shared by every device handle; SOAP calls are short
	// and the speakers are on the local network.
	soapClient := &http.Client{Timeout: 10 * time.Second}
	deviceLogger := rootLogger.Component("sonos")

	connect := func(addr string) registry.Device {
		return sonos.NewDevice(addr, soapClient, deviceLogger)
	}

	reg := registry.New(discoverer, sweeper, connect, registry.Config{
		Subnet:   cfg.Subnet,
		CacheTTL: time.Duration(cfg.CacheTTL),
	}, rootLogger.Component("registry"))

	server := api.NewServer(reg,
		api.WithAPIKey(cfg.APIKey),
		api.WithCORS(cfg.CORS),
		api.WithLogger(rootLogger.Component("api")),
	)

	mcpServer := mcp.NewServer(reg, rootLogger.Component("mcp"), cfg.MCPEnabled)
	mcpServer.RegisterRoutes(server.Router())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Start(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		rootLogger.Info().Msg("shutting down")

		shutdownErr := server.Shutdown(context.Background())

		// Surface a listener error that raced the signal.
		if err := <-errCh; err != nil {
			return err
		}

		return shutdownErr
	}
}
