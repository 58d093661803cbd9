// Package scheduler runs the periodic jobs of the watch loop: refreshing the
// notification badge and purging cache entries past their retention.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultJobTimeout = time.Minute

// BadgeRefresher is satisfied by *session.Session
type BadgeRefresher interface {
	RefreshBadges(ctx context.Context)
}

// CachePurger is satisfied by *cache.Fetcher
type CachePurger interface {
	PurgeExpired(ctx context.Context, maxAge time.Duration) (int, error)
}

type Options struct {
	BadgeRefreshSpec string
	CachePurgeSpec   string
	Retention        time.Duration
	JobTimeout       time.Duration
	Location         *time.Location
}

type Scheduler struct {
	cron      *cron.Cron
	refresher BadgeRefresher
	purger    CachePurger
	opts      Options
	logger    *zap.Logger
}

// New registers both jobs. A nil refresher or purger skips that job.
func New(opts Options, refresher BadgeRefresher, purger CachePurger, logger *zap.Logger) (*Scheduler, error) {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		refresher: refresher,
		purger:    purger,
		opts:      opts,
		logger:    logger,
	}

	if refresher != nil {
		if _, err := s.cron.AddFunc(opts.BadgeRefreshSpec, s.refreshBadges); err != nil {
			return nil, fmt.Errorf("failed to add badge refresh job: %w", err)
		}
	}
	if purger != nil {
		if _, err := s.cron.AddFunc(opts.CachePurgeSpec, s.purgeCache); err != nil {
			return nil, fmt.Errorf("failed to add cache purge job: %w", err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow runs every registered job once, in the caller's goroutine
func (s *Scheduler) RunNow() {
	if s.refresher != nil {
		s.refreshBadges()
	}
	if s.purger != nil {
		s.purgeCache()
	}
}

func (s *Scheduler) refreshBadges() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	s.logger.Debug("Badge refresh triggered")
	s.refresher.RefreshBadges(ctx)
}

func (s *Scheduler) purgeCache() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	removed, err := s.purger.PurgeExpired(ctx, s.opts.Retention)
	if err != nil {
		s.logger.Error("Cache purge failed", zap.Error(err))
		return
	}
	s.logger.Debug("Cache purge finished", zap.Int("removed", removed))
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
