// Package scheduler wires the coordinator to cron: one tick every five
// minutes, one maintenance run nightly.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"OptionSentinel/internal/coordinator"
)

// Scheduler manages the cron tasks.
type Scheduler struct {
	cron  *cron.Cron
	coord *coordinator.Coordinator
	ctx   context.Context
	log   zerolog.Logger
}

// New creates a Scheduler bound to the given context.
func New(ctx context.Context, coord *coordinator.Coordinator, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		coord: coord,
		ctx:   ctx,
		log:   log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the tick and maintenance jobs.
func (s *Scheduler) RegisterAll(tickCron, maintenanceCron string) error {
	if _, err := s.cron.AddFunc(tickCron, func() {
		s.coord.RunTick(s.ctx)
	}); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	if _, err := s.cron.AddFunc(maintenanceCron, func() {
		s.coord.RunMaintenance(s.ctx)
	}); err != nil {
		return fmt.Errorf("register maintenance task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info().Msg("scheduler stopped")
}

// RunTickNow executes one tick immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunTickNow() {
	s.coord.RunTick(s.ctx)
}
