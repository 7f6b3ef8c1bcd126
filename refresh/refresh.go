// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package refresh

import (
	"context"
	"daytrader/backend/scanner"
	"daytrader/calendar"
	"daytrader/config"
	"daytrader/stockval"
	"daytrader/webclient"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const eventBufferSize = 16

// Classifier reports the current market session.
type Classifier interface {
	Now() calendar.SessionStatus
	TimeUntilNextSession(t time.Time) (calendar.NextSession, bool)
}

// ScannerSource fetches scanner results from the backend.
type ScannerSource interface {
	Status(ctx context.Context) (stockval.ScannerStatus, error)
	Scan(ctx context.Context, t stockval.ScannerType) (stockval.ScanResult, error)
}

// Event is either a StatusEvent or a ScanEvent.
type Event interface {
	isEvent()
}

type StatusEvent struct {
	Status calendar.SessionStatus
	// Next is only valid if HasNext is set, i.e. while the market is closed.
	Next    calendar.NextSession
	HasNext bool
}

type ScanEvent struct {
	Scanner stockval.ScannerType
	Result  stockval.ScanResult
	Err     error
	// Attempt counts from 0, retries have a higher attempt.
	Attempt         int
	UpgradeRequired bool
	Manual          bool
	// Zero if no further automatic refresh is scheduled.
	NextRefresh time.Time
}

func (StatusEvent) isEvent() {}
func (ScanEvent) isEvent()   {}

// Scheduler refreshes the active scanner while the market is open.
// Manual refreshes are always allowed.
type Scheduler struct {
	calendar Classifier
	source   ScannerSource
	config   config.RefreshConfig
	logger   zerolog.Logger
	events   chan Event
	trigger  chan struct{}

	mutex         sync.Mutex
	active        stockval.ScannerType
	autoRefresh   bool
	scannerStatus *stockval.ScannerStatus
	lastStatus    calendar.SessionStatus
}

func NewScheduler(cal Classifier, source ScannerSource, c config.RefreshConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		calendar:    cal,
		source:      source,
		config:      c,
		logger:      logger,
		events:      make(chan Event, eventBufferSize),
		trigger:     make(chan struct{}, 1),
		active:      stockval.ScannerMomentum,
		autoRefresh: c.IsAutoRefresh(),
	}
}

// Events returns the channel on which all events are published.
// It is never closed.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

func (s *Scheduler) Active() stockval.ScannerType {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.active
}

// SetActive selects the scanner to refresh. A running scheduler refreshes it immediately if allowed.
func (s *Scheduler) SetActive(t stockval.ScannerType) {
	s.mutex.Lock()
	changed := s.active != t
	s.active = t
	s.mutex.Unlock()
	if changed {
		s.wakeup()
	}
}

func (s *Scheduler) SetAutoRefresh(enabled bool) {
	s.mutex.Lock()
	changed := s.autoRefresh != enabled
	s.autoRefresh = enabled
	s.mutex.Unlock()
	if changed && enabled {
		s.wakeup()
	}
}

func (s *Scheduler) AutoRefresh() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.autoRefresh
}

func (s *Scheduler) wakeup() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Refresh fetches the active scanner regardless of the market session.
func (s *Scheduler) Refresh(ctx context.Context) (stockval.ScanResult, error) {
	return s.fetch(ctx, s.Active(), true)
}

// Run publishes status events and refreshes the active scanner until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	statusTicker := time.NewTicker(s.config.StatusInterval)
	defer statusTicker.Stop()
	dataTicker := time.NewTicker(s.config.ScannerInterval)
	defer dataTicker.Stop()

	s.updateScannerStatus(ctx)
	if err := s.publishStatus(ctx); err != nil {
		return err
	}
	s.autoFetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-statusTicker.C:
			if s.currentScannerStatus() == nil {
				s.updateScannerStatus(ctx)
			}
			if err := s.publishStatus(ctx); err != nil {
				return err
			}
		case <-dataTicker.C:
			s.autoFetch(ctx)
		case <-s.trigger:
			s.autoFetch(ctx)
		}
	}
}

func (s *Scheduler) publish(ctx context.Context, e Event) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryPublish drops the event if nobody is listening.
func (s *Scheduler) tryPublish(_ context.Context, e Event) error {
	select {
	case s.events <- e:
	default:
		s.logger.Debug().Msg("event dropped")
	}
	return nil
}

func (s *Scheduler) publishStatus(ctx context.Context) error {
	status := s.classify()
	e := StatusEvent{Status: status}
	if !status.IsOpen {
		e.Next, e.HasNext = s.calendar.TimeUntilNextSession(status.LocalTime)
	}
	return s.publish(ctx, e)
}

func (s *Scheduler) classify() calendar.SessionStatus {
	status := s.calendar.Now()
	s.mutex.Lock()
	s.lastStatus = status
	s.mutex.Unlock()
	return status
}

func (s *Scheduler) currentScannerStatus() *stockval.ScannerStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.scannerStatus
}

func (s *Scheduler) updateScannerStatus(ctx context.Context) {
	status, err := s.source.Status(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch scanner status")
		return
	}
	s.mutex.Lock()
	s.scannerStatus = &status
	s.mutex.Unlock()
}

// shouldFetch re-classifies the session before checking whether an automatic refresh is allowed.
func (s *Scheduler) shouldFetch() (stockval.ScannerType, bool) {
	status := s.classify()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !status.ShouldAutoRefresh || !s.autoRefresh || s.scannerStatus == nil {
		return s.active, false
	}
	return s.active, s.scannerStatus.IsEnabled(s.active)
}

func (s *Scheduler) autoFetch(ctx context.Context) {
	t, ok := s.shouldFetch()
	if !ok {
		s.logger.Trace().Str("scanner", string(t)).Msg("skipping automatic refresh")
		return
	}
	_, _ = s.fetch(ctx, t, false)
}

func (s *Scheduler) fetch(ctx context.Context, t stockval.ScannerType, manual bool) (stockval.ScanResult, error) {
	publish := s.publish
	if manual {
		publish = s.tryPublish
	}
	for attempt := 0; ; attempt++ {
		result, err := s.source.Scan(ctx, t)
		e := ScanEvent{
			Scanner: t,
			Attempt: attempt,
			Manual:  manual,
		}
		if err == nil {
			result = s.applyAccess(t, result)
			e.Result = result
			if !manual && s.AutoRefresh() {
				e.NextRefresh = result.LastUpdate.Add(s.config.ScannerInterval)
			}
			return result, publish(ctx, e)
		}
		e.Err = err
		e.UpgradeRequired = errors.Is(err, webclient.ErrUpgradeRequired)
		s.logger.Warn().Err(err).Str("scanner", string(t)).Int("attempt", attempt).Msg("scanner refresh failed")
		if pubErr := publish(ctx, e); pubErr != nil {
			return stockval.ScanResult{}, pubErr
		}
		if !webclient.IsRetryable(err) || ctx.Err() != nil || attempt >= s.config.MaxRetries {
			return stockval.ScanResult{}, err
		}
		timer := time.NewTimer(s.config.RetryDelay * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return stockval.ScanResult{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) applyAccess(t stockval.ScannerType, result stockval.ScanResult) stockval.ScanResult {
	status := s.currentScannerStatus()
	if status == nil {
		return result
	}
	rule := scanner.Access(t, status.Tier)
	if !rule.Available {
		// Results delivered by the backend are kept.
		s.logger.Debug().Str("scanner", string(t)).Str("tier", string(status.Tier)).Msg("scanner not in local access table")
		return result
	}
	return rule.Apply(result)
}

// LastStatus returns the session status of the last classification.
func (s *Scheduler) LastStatus() calendar.SessionStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastStatus
}
