package application

import (
	"context"
	"sync"
	"time"

	"github.com/bakehouse-platform/production-service/pkg/logging"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

// MonitoringConfig configuration for live batch monitoring
type MonitoringConfig struct {
	// Cadence is how often each monitored batch is snapshotted
	Cadence time.Duration `json:"cadence"`

	// Topic is the destination for published snapshots
	Topic string `json:"topic"`
}

// DefaultMonitoringConfig returns default configuration
func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		Cadence: 30 * time.Second,
		Topic:   "bakery.production.monitoring",
	}
}

// MonitoringService runs one cancellable watcher goroutine per active batch.
// Each watcher reloads its batch on a fixed cadence, publishes an enriched
// snapshot, and stops itself when the batch reaches a terminal status.
type MonitoringService struct {
	batchRepo domain.BatchRepository
	sink      domain.MonitorSink
	config    MonitoringConfig
	logger    *logging.Logger

	mu       sync.Mutex
	baseCtx  context.Context
	watchers map[string]context.CancelFunc
}

// NewMonitoringService creates a new MonitoringService
func NewMonitoringService(
	batchRepo domain.BatchRepository,
	sink domain.MonitorSink,
	config MonitoringConfig,
	logger *logging.Logger,
) *MonitoringService {
	if config.Cadence <= 0 {
		config.Cadence = 30 * time.Second
	}
	if config.Topic == "" {
		config.Topic = "bakery.production.monitoring"
	}
	return &MonitoringService{
		batchRepo: batchRepo,
		sink:      sink,
		config:    config,
		logger:    logger,
		watchers:  make(map[string]context.CancelFunc),
	}
}

// Start binds the service to its base context and re-attaches watchers to
// batches that were active before a restart
func (s *MonitoringService) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	batches, err := s.batchRepo.FindActive(ctx)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		s.StartMonitoring(batch.BatchID)
	}

	s.logger.Info("Monitoring service started", "resumed", len(batches), "cadence", s.config.Cadence)
	return nil
}

// StartMonitoring begins watching a batch. Starting an already-watched batch
// is a no-op.
func (s *MonitoringService) StartMonitoring(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watchers[batchID]; ok {
		return
	}

	base := s.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	s.watchers[batchID] = cancel

	go s.watch(ctx, batchID)
}

// StopMonitoring cancels the watcher for a batch. Stopping an unwatched
// batch is a no-op; terminal transitions always take this path so a watcher
// can never outlive its batch.
func (s *MonitoringService) StopMonitoring(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.watchers[batchID]; ok {
		cancel()
		delete(s.watchers, batchID)
	}
}

// IsMonitoring reports whether a batch currently has a watcher
func (s *MonitoringService) IsMonitoring(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watchers[batchID]
	return ok
}

// ActiveCount returns the number of running watchers
func (s *MonitoringService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Stop cancels every watcher
func (s *MonitoringService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for batchID, cancel := range s.watchers {
		cancel()
		delete(s.watchers, batchID)
	}
}

// watch is the per-batch monitoring loop
func (s *MonitoringService) watch(ctx context.Context, batchID string) {
	ticker := time.NewTicker(s.config.Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := s.tick(ctx, batchID); done {
				s.StopMonitoring(batchID)
				return
			}
		}
	}
}

// tick snapshots the batch once; it reports true when watching should stop
func (s *MonitoringService) tick(ctx context.Context, batchID string) bool {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		s.logger.WithError(err).Warn("Monitoring tick failed to load batch", "batchId", batchID)
		return false
	}
	if batch == nil {
		s.logger.Warn("Monitored batch no longer exists", "batchId", batchID)
		return true
	}

	snapshot := domain.SnapshotOf(batch, time.Now())
	if err := s.sink.PublishSnapshot(ctx, s.config.Topic, snapshot); err != nil {
		s.logger.WithError(err).Warn("Failed to publish batch snapshot", "batchId", batchID)
	}

	if batch.Status.IsTerminal() {
		s.logger.Info("Batch reached terminal status, stopping watcher", "batchId", batchID, "status", batch.Status)
		return true
	}
	return false
}
