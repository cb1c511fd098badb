// Package cron is the live-mode scheduler: cron-driven engine ticks and
// collector polls, using real wall-clock cron expressions at each engine's
// cadence, every job firing independently on its own schedule.
// A thin wrapper over robfig/cron/v3.
package cron

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one schedulable unit of work; Run is called on every tick, Name
// identifies it in logs.
type Job interface {
	Name() string
	Run() error
}

// Scheduler wraps a robfig/cron/v3 instance with second-level precision
// (collector and engine cadences are expressed in seconds/minutes, not
// whole hours).
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "cron_scheduler").Logger(),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job on the given cron schedule ("@every 5m", "0 */5 * * * *", ...).
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
		}
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}
