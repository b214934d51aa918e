package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/suite-tester/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080

	MetricsHost = "0.0.0.0"
	MetricsPort = 7300
)

// Config selects the servers to run and where they listen
type Config struct {
	HealthzAddr    string
	MetricsEnabled bool
	MetricsAddr    string
	Progress       func() Progress // Reported on /healthz
}

// DefaultConfig serves healthz and metrics on their default ports
func DefaultConfig() Config {
	return Config{
		HealthzAddr:    net.JoinHostPort(HealthzHost, strconv.Itoa(HealthzPort)),
		MetricsEnabled: true,
		MetricsAddr:    net.JoinHostPort(MetricsHost, strconv.Itoa(MetricsPort)),
	}
}

type Service struct {
	cfg     Config
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New(cfg Config) *Service {
	s := &Service{
		cfg:     cfg,
		Healthz: &HealthzServer{Progress: cfg.Progress},
	}
	if cfg.MetricsEnabled {
		s.Metrics = &MetricsServer{}
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	log.Info("service starting")

	if s.cfg.HealthzAddr != "" {
		go func() {
			addr := s.cfg.HealthzAddr
			log.Info("starting healthz server", "addr", addr)
			if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("error starting healthz server", "err", err)
				metrics.RecordErrorDetails("error starting healthz server", err)
			}
		}()
	}

	if s.Metrics != nil {
		go func() {
			addr := s.cfg.MetricsAddr
			log.Info("starting metrics server", "addr", addr)
			if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("error starting metrics server", err)
			}
		}()
	}

	log.Info("service started")
}

func (s *Service) Shutdown() {
	log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	log.Info("healthz stopped")

	if s.Metrics != nil {
		_ = s.Metrics.Shutdown()
		log.Info("metrics stopped")
	}

	log.Info("service stopped")
}
