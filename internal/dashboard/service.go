package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-glance/internal/localtime"
	"github.com/i474232898/weather-glance/internal/metrics"
	"github.com/i474232898/weather-glance/internal/precip"
	"github.com/i474232898/weather-glance/internal/weather"
)

// Trigger names what asked for a refresh.
type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// Fetcher is the fail-closed weather client; see weather.Client.
type Fetcher interface {
	FetchCurrent(ctx context.Context) (weather.CurrentConditions, error)
	FetchForecast(ctx context.Context) ([]weather.RawHourlySample, error)
}

// Store keeps the last successful snapshot.
type Store interface {
	Save(s Snapshot)
	GetLatest() (Snapshot, error)
}

// Service runs refresh cycles and owns the display state. Only one cycle runs
// at a time; triggers arriving meanwhile are dropped.
type Service struct {
	mu    sync.RWMutex
	state State

	fetcher Fetcher
	store   Store
	clock   *localtime.Clock
	opts    precip.Options

	now      func() time.Time
	newToken func() string
}

// NewService creates a new Service.
func NewService(fetcher Fetcher, store Store, clock *localtime.Clock, opts precip.Options) *Service {
	return &Service{
		state:    State{Phase: PhaseIdle},
		fetcher:  fetcher,
		store:    store,
		clock:    clock,
		opts:     opts,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// WithNow overrides the clock used to anchor the pipeline.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// State returns the current display state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Clock returns the display timezone clock.
func (s *Service) Clock() *localtime.Clock {
	return s.clock
}

// PrecipOptions returns the configured bucketing options.
func (s *Service) PrecipOptions() precip.Options {
	return s.opts
}

// Refresh runs one cycle and blocks until it finishes. It returns false
// without doing anything if another cycle is in flight.
func (s *Service) Refresh(ctx context.Context, trigger Trigger) bool {
	token, ok := s.begin(trigger)
	if !ok {
		return false
	}
	s.run(ctx, token)
	return true
}

// Start is Refresh without waiting for the cycle to finish.
func (s *Service) Start(ctx context.Context, trigger Trigger) bool {
	token, ok := s.begin(trigger)
	if !ok {
		return false
	}
	go s.run(ctx, token)
	return true
}

func (s *Service) begin(trigger Trigger) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Fetching() {
		log.Printf("INFO: refresh: %s trigger ignored, cycle %s still in flight", trigger, s.state.InFlight)
		metrics.RecordDroppedTrigger(string(trigger))
		return "", false
	}

	token := s.newToken()
	s.state = Next(s.state, Started{Token: token})
	log.Printf("DEBUG: refresh: cycle %s started by %s trigger", token, trigger)
	return token, true
}

// run fetches current conditions and the forecast concurrently and applies
// the joined result. Each fetch substitutes its own fallback on failure, so
// one failing call never blocks the other.
func (s *Service) run(ctx context.Context, token string) {
	var (
		wg sync.WaitGroup

		current    weather.CurrentConditions
		currentErr error
		samples    []weather.RawHourlySample
		samplesErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = s.fetcher.FetchCurrent(ctx)
	}()
	go func() {
		defer wg.Done()
		samples, samplesErr = s.fetcher.FetchForecast(ctx)
	}()
	wg.Wait()

	if ctx.Err() != nil {
		log.Printf("INFO: refresh: cycle %s abandoned: %v", token, ctx.Err())
		metrics.RecordCycle("abandoned")
		s.apply(Abandoned{Token: token})
		return
	}

	snap := BuildSnapshot(token, s.now(), current, samples, s.clock, s.opts)
	err := errors.Join(currentErr, samplesErr)

	var lastGood *Snapshot
	if err == nil {
		s.store.Save(snap)
		metrics.RecordCycle("ok")
	} else {
		if lg, getErr := s.store.GetLatest(); getErr == nil {
			lastGood = &lg
		}
		log.Printf("ERROR: refresh: cycle %s degraded (keeping last good: %v): %v", token, lastGood != nil, err)
		metrics.RecordCycle("degraded")
	}

	s.apply(Completed{Token: token, Snapshot: snap, Err: err, LastGood: lastGood})
}

func (s *Service) apply(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Next(s.state, e)
}
