// ESP Firmware Portal
//
// This is the main entry point for the firmware distribution portal.
// It serves the OTA handshake and download endpoints for ESP8266
// boards and the Basic-Auth protected management API for registering
// devices and uploading firmware versions. Firmware is stored on the
// filesystem, one directory per device MAC address.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gpioneers/esp-firmware-portal/internal/api"
	"github.com/gpioneers/esp-firmware-portal/internal/auth"
	"github.com/gpioneers/esp-firmware-portal/internal/device"
	"github.com/gpioneers/esp-firmware-portal/internal/firmware"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/config"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/influxdb"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/logging"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/mqtt"
	"github.com/gpioneers/esp-firmware-portal/internal/storage"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ESP firmware portal",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Make sure the data root exists before anything touches it
	if err := storage.EnsureDir(cfg.Storage.DataDir); err != nil {
		return fmt.Errorf("preparing data directory: %w", err)
	}
	log.Info("data directory ready", "path", cfg.Storage.DataDir)

	// Wire up the filesystem repositories
	versionRepo := firmware.NewRepository(cfg.Storage.DataDir, log)
	authRepo := auth.NewRepository(cfg.Storage.DataDir, cfg.TokenMaxAge(), log)
	deviceRepo := device.NewRepository(
		cfg.Storage.DataDir,
		versionRepo,
		authRepo,
		firmware.ComparatorFor(cfg.Storage.VersionCompare),
		log,
	)
	log.Info("repositories initialised", "version_compare", cfg.Storage.VersionCompare)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the HTTP server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Auth:     cfg.Auth,
		Logger:   log,
		Devices:  deviceRepo,
		Versions: versionRepo,
		Auths:    authRepo,
		MQTT:     mqttClient,
		Influx:   influxClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"token_max_age", cfg.TokenMaxAge().String(),
	)

	// Verify optional connections are healthy before declaring ready
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)

	log.Info("ESP firmware portal stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ESPPORTAL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ESPPORTAL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheckTimeout bounds the startup health verification.
const healthCheckTimeout = 5 * time.Second

// healthCheck verifies the optional infrastructure connections.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
