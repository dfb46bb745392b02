package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gpioneers/esp-firmware-portal/internal/auth"
	"github.com/gpioneers/esp-firmware-portal/internal/device"
	"github.com/gpioneers/esp-firmware-portal/internal/firmware"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/config"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/influxdb"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/logging"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
//
// MQTT and Influx are optional: a nil client disables announcements
// and the audit trail respectively, the OTA and admin endpoints keep
// working without them.
type Deps struct {
	Config   config.APIConfig
	Auth     config.AuthConfig
	Logger   *logging.Logger
	Devices  *device.Repository
	Versions *firmware.Repository
	Auths    *auth.Repository
	MQTT     *mqtt.Client
	Influx   *influxdb.Client
	Version  string
}

// Server is the portal's HTTP server.
//
// It manages the HTTP listener, routes and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	authCfg  config.AuthConfig
	logger   *logging.Logger
	devices  *device.Repository
	versions *firmware.Repository
	auths    *auth.Repository
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	version  string
	server   *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device repository is required")
	}
	if deps.Versions == nil {
		return nil, fmt.Errorf("firmware repository is required")
	}
	if deps.Auths == nil {
		return nil, fmt.Errorf("auth repository is required")
	}

	return &Server{
		cfg:      deps.Config,
		authCfg:  deps.Auth,
		logger:   deps.Logger,
		devices:  deps.Devices,
		versions: deps.Versions,
		auths:    deps.Auths,
		mqtt:     deps.MQTT,
		influx:   deps.Influx,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}

	return nil
}

// handleHealth reports the portal's status and that of its optional
// integrations.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.mqtt != nil {
		status := "ok"
		if err := s.mqtt.HealthCheck(r.Context()); err != nil {
			status = "disconnected"
		}
		health["mqtt"] = status
	}
	if s.influx != nil {
		status := "ok"
		if err := s.influx.HealthCheck(r.Context()); err != nil {
			status = "disconnected"
		}
		health["influxdb"] = status
	}

	writeJSON(w, http.StatusOK, health)
}
