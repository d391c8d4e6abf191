// Package scheduler keeps the in-memory dataset fresh: one full load at
// startup plus a daily cron refresh, with SNS alerting on failures.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/common/metrics"
	"infraction-insights/internal/dataset"

	"github.com/robfig/cron/v3"
)

// Notifier receives alerts about failed refreshes. *aws.SNSClient satisfies
// it; a nil notifier disables alerting.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// Config holds refresh scheduling settings.
type Config struct {
	Enabled  bool
	Hour     int
	Timezone string
}

// Status is a point-in-time snapshot of the refresh state.
type Status struct {
	Records     int       `json:"records"`
	Partial     bool      `json:"partial"`
	LastRefresh time.Time `json:"lastRefresh"`
	LastError   string    `json:"lastError,omitempty"`
	NextRefresh time.Time `json:"nextRefresh,omitempty"`
}

// Scheduler owns the current dataset and replaces it on a daily schedule.
type Scheduler struct {
	config   Config
	fetcher  *dataset.Fetcher
	notifier Notifier
	logger   logger.Logger
	cron     *cron.Cron
	entryID  cron.EntryID

	mu        sync.RWMutex
	current   *dataset.Dataset
	lastError string

	refreshMu sync.Mutex
}

// New creates a scheduler. Start must be called before the first Dataset read
// returns anything useful.
func New(cfg Config, fetcher *dataset.Fetcher, notifier Notifier, log logger.Logger) (*Scheduler, error) {
	if cfg.Hour < 0 || cfg.Hour > 23 {
		return nil, fmt.Errorf("refresh hour out of range: %d", cfg.Hour)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Sao_Paulo"
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		config:   cfg,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   log,
		cron:     cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start performs the initial load synchronously and then arms the daily cron
// job when refreshing is enabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.refresh(ctx, "startup")

	if !s.config.Enabled {
		s.logger.Info("scheduled refresh disabled", nil)
		return nil
	}

	spec := fmt.Sprintf("0 %d * * *", s.config.Hour)
	entryID, err := s.cron.AddFunc(spec, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		s.refresh(refreshCtx, "scheduled")
	})
	if err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	s.entryID = entryID
	s.cron.Start()

	s.logger.Info("scheduled refresh armed", map[string]interface{}{
		"spec":     spec,
		"timezone": s.config.Timezone,
	})
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Dataset returns the current dataset. May be nil before the first load
// completes.
func (s *Scheduler) Dataset(ctx context.Context) *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh forces an immediate reload, serialized against the cron job.
func (s *Scheduler) Refresh(ctx context.Context) Status {
	s.refresh(ctx, "manual")
	return s.Status()
}

// Status reports the current refresh state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{LastError: s.lastError}
	if s.current != nil {
		st.Records = len(s.current.Records)
		st.Partial = s.current.Partial
		st.LastRefresh = s.current.FetchedAt
	}
	if s.config.Enabled {
		if entry := s.cron.Entry(s.entryID); !entry.Next.IsZero() {
			st.NextRefresh = entry.Next
		}
	}
	return st
}

func (s *Scheduler) refresh(ctx context.Context, trigger string) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	ds := s.fetcher.FetchAll(ctx)

	report := dataset.Inspect(ds.Records)
	s.logger.Info("dataset integrity", map[string]interface{}{
		"trigger": trigger,
		"summary": report.Summary(),
	})

	if ds.Empty() {
		s.recordFailure(ctx, trigger, ds)
		return
	}

	s.mu.Lock()
	s.current = ds
	s.lastError = ""
	s.mu.Unlock()

	status := "ok"
	if ds.Partial {
		status = "partial"
		s.alert(ctx, "Carga parcial de autuações",
			fmt.Sprintf("Refresh %s carregou %d registros de forma parcial: %s", trigger, len(ds.Records), ds.PartialReason))
	}
	metrics.RefreshRuns.WithLabelValues(status).Inc()

	s.logger.Info("dataset refreshed", map[string]interface{}{
		"trigger":  trigger,
		"records":  len(ds.Records),
		"partial":  ds.Partial,
		"duration": time.Since(start).String(),
	})
}

// recordFailure keeps the previous dataset in place when a refresh comes back
// empty. Stale data beats no data.
func (s *Scheduler) recordFailure(ctx context.Context, trigger string, ds *dataset.Dataset) {
	reason := ds.PartialReason
	if reason == "" {
		reason = "a fonte retornou zero registros"
	}

	s.mu.Lock()
	s.lastError = reason
	s.mu.Unlock()

	metrics.RefreshRuns.WithLabelValues("failed").Inc()
	s.logger.Error("dataset refresh failed", map[string]interface{}{
		"trigger": trigger,
		"reason":  reason,
	})
	s.alert(ctx, "Falha na carga de autuações",
		fmt.Sprintf("Refresh %s não produziu registros: %s", trigger, reason))
}

func (s *Scheduler) alert(ctx context.Context, subject, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, subject, message); err != nil {
		s.logger.Warn("alert delivery failed", map[string]interface{}{"error": err.Error()})
	}
}
