// File: internal/simulator/simulator.go
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/smartdevs17/log-monitor/internal/config"
	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

var (
	defaultLevels  = []string{"INFO", "DEBUG", "WARNING", "ERROR"}
	defaultSources = []string{"auth-service", "payment-gateway", "inventory-api", "frontend-app"}

	defaultMessages = []string{
		"User login successful",
		"Database connection timeout",
		"Cache cleared",
		"Invalid API key provided",
		"Transaction processed",
		"High CPU usage detected",
		"New user registered",
		"Failed to fetch resource",
	}
)

// Simulator produces log records against the ingestion endpoint, either
// randomly generated or read from a followed file.
type Simulator struct {
	config  *config.SimulatorConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// New creates a new simulator
func New(cfg *config.SimulatorConfig) *Simulator {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1.0
	}

	return &Simulator{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  utils.GetLogger(),
	}
}

// Run produces records until the context is canceled
func (s *Simulator) Run(ctx context.Context) error {
	if s.config.FollowFile != "" {
		return s.followFile(ctx, s.config.FollowFile)
	}
	return s.runRandom(ctx)
}

// runRandom emits randomly generated records at the configured rate
func (s *Simulator) runRandom(ctx context.Context) error {
	s.logger.WithField("target", s.config.TargetURL).Info("Starting random log simulator")

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}

		req := models.IngestRequest{
			Level:   defaultLevels[rand.Intn(len(defaultLevels))],
			Message: defaultMessages[rand.Intn(len(defaultMessages))],
			Source:  defaultSources[rand.Intn(len(defaultSources))],
		}

		if err := s.send(ctx, req); err != nil {
			s.logger.WithError(err).Warn("Failed to send log record")
		}
	}
}

// send posts a single record to the ingestion endpoint
func (s *Simulator) send(ctx context.Context, record models.IngestRequest) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TargetURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ingestion endpoint returned status %d", resp.StatusCode)
	}

	s.logger.WithFields(logrus.Fields{
		"level":  record.Level,
		"source": record.Source,
	}).Debug("Sent log record")

	return nil
}
