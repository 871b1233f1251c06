package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-glance/internal/localtime"
	"github.com/i474232898/weather-glance/internal/precip"
	"github.com/i474232898/weather-glance/internal/store"
	"github.com/i474232898/weather-glance/internal/weather"
)

// MockFetcher is a testify mock of the fail-closed weather client.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchCurrent(ctx context.Context) (weather.CurrentConditions, error) {
	args := m.Called(ctx)
	return args.Get(0).(weather.CurrentConditions), args.Error(1)
}

func (m *MockFetcher) FetchForecast(ctx context.Context) ([]weather.RawHourlySample, error) {
	args := m.Called(ctx)
	return args.Get(0).([]weather.RawHourlySample), args.Error(1)
}

var now = time.Date(2024, 5, 14, 9, 20, 0, 0, time.UTC)

func genuineCurrent() weather.CurrentConditions {
	return weather.CurrentConditions{Timestamp: now, Temperature: 14, Condition: weather.ConditionDry, Icon: weather.IconClearDay}
}

func genuineForecast() []weather.RawHourlySample {
	out := make([]weather.RawHourlySample, 96)
	start := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = weather.RawHourlySample{
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Temperature: weather.Float(float64(10 + i%24)),
			Condition:   weather.ConditionDry,
			Icon:        weather.IconCloudy,
		}
	}
	return out
}

func newTestService(f Fetcher) (*Service, *store.MemoryStore[Snapshot]) {
	st := store.NewMemoryStore[Snapshot](6*time.Hour).WithNow(func() time.Time { return now })
	svc := NewService(f, st, localtime.MustNew("UTC"), precip.DefaultOptions()).WithNow(func() time.Time { return now })

	var n atomic.Int64
	svc.newToken = func() string { return fmt.Sprintf("cycle-%d", n.Add(1)) }
	return svc, st
}

func TestRefreshSuccess(t *testing.T) {
	f := new(MockFetcher)
	f.On("FetchCurrent", mock.Anything).Return(genuineCurrent(), nil).Once()
	f.On("FetchForecast", mock.Anything).Return(genuineForecast(), nil).Once()

	svc, st := newTestService(f)
	require.True(t, svc.Refresh(context.Background(), TriggerTimer))

	s := svc.State()
	assert.Equal(t, PhaseDisplaying, s.Phase)
	require.NotNil(t, s.Data)
	assert.Equal(t, "cycle-1", s.Data.CycleID)
	assert.False(t, s.Data.Degraded)
	assert.Len(t, s.Data.Forecast.Samples, 96)
	assert.Len(t, s.Data.Precip.Bars, 96)
	assert.True(t, s.Data.Forecast.Anchored)

	saved, err := st.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", saved.CycleID)
	f.AssertExpectations(t)
}

func TestRefreshBothCallsFailWithoutHistory(t *testing.T) {
	f := new(MockFetcher)
	f.On("FetchCurrent", mock.Anything).Return(weather.FallbackCurrent(now), errors.New("current: dial tcp: refused")).Once()
	f.On("FetchForecast", mock.Anything).Return(weather.FallbackForecast(now), errors.New("forecast: dial tcp: refused")).Once()

	svc, st := newTestService(f)
	require.True(t, svc.Refresh(context.Background(), TriggerTimer))

	s := svc.State()
	assert.Equal(t, PhaseDisplayingStale, s.Phase)
	require.NotNil(t, s.Data)
	assert.True(t, s.Data.Degraded)
	assert.Equal(t, weather.ConditionError, s.Data.Current.Condition)
	assert.Len(t, s.Data.Forecast.Samples, weather.FallbackForecastHours)
	assert.Error(t, s.Err)

	_, err := st.GetLatest()
	assert.ErrorIs(t, err, store.ErrNotFound, "a degraded cycle is never saved as last good")
}

func TestRefreshFailureKeepsLastGood(t *testing.T) {
	f := new(MockFetcher)
	f.On("FetchCurrent", mock.Anything).Return(genuineCurrent(), nil).Once()
	f.On("FetchForecast", mock.Anything).Return(genuineForecast(), nil).Once()
	f.On("FetchCurrent", mock.Anything).Return(genuineCurrent(), nil).Once()
	f.On("FetchForecast", mock.Anything).Return(weather.FallbackForecast(now), errors.New("forecast: status 502")).Once()

	svc, _ := newTestService(f)
	require.True(t, svc.Refresh(context.Background(), TriggerTimer))
	require.True(t, svc.Refresh(context.Background(), TriggerManual))

	s := svc.State()
	assert.Equal(t, PhaseDisplayingStale, s.Phase)
	require.NotNil(t, s.Data)
	assert.Equal(t, "cycle-1", s.Data.CycleID, "last good data stays on screen")
	assert.ErrorContains(t, s.Err, "502")
	f.AssertExpectations(t)
}

func TestRefreshDropsTriggerWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	f := new(MockFetcher)
	f.On("FetchCurrent", mock.Anything).Run(func(args mock.Arguments) {
		close(entered)
		<-release
	}).Return(genuineCurrent(), nil).Once()
	f.On("FetchForecast", mock.Anything).Return(genuineForecast(), nil).Once()

	svc, _ := newTestService(f)

	done := make(chan bool)
	go func() { done <- svc.Refresh(context.Background(), TriggerTimer) }()
	<-entered

	assert.Equal(t, PhaseFetching, svc.State().Phase)
	assert.False(t, svc.Refresh(context.Background(), TriggerManual), "second trigger must be ignored")
	assert.False(t, svc.Start(context.Background(), TriggerManual))

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, PhaseDisplaying, svc.State().Phase)

	// Only one cycle's worth of calls reached the fetcher.
	f.AssertNumberOfCalls(t, "FetchCurrent", 1)
	f.AssertNumberOfCalls(t, "FetchForecast", 1)
}

func TestRefreshAbandonedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	f := new(MockFetcher)
	f.On("FetchCurrent", mock.Anything).Return(genuineCurrent(), nil).Once()
	f.On("FetchForecast", mock.Anything).Run(func(args mock.Arguments) {
		cancel()
	}).Return(weather.FallbackForecast(now), context.Canceled).Once()

	svc, st := newTestService(f)
	require.True(t, svc.Refresh(ctx, TriggerTimer))

	s := svc.State()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Nil(t, s.Data, "no partial state is written by an abandoned cycle")
	assert.False(t, s.Fetching())

	_, err := st.GetLatest()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshLogLinesAreLevelled(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	release := make(chan struct{})
	entered := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	f := new(MockFetcher)
	f.On("FetchCurrent", mock.Anything).Run(func(args mock.Arguments) {
		close(entered)
		<-release
	}).Return(genuineCurrent(), nil).Once()
	f.On("FetchForecast", mock.Anything).Return(genuineForecast(), nil).Once()

	svc, _ := newTestService(f)
	done := make(chan bool)
	go func() { done <- svc.Refresh(ctx, TriggerTimer) }()
	<-entered

	assert.False(t, svc.Refresh(context.Background(), TriggerManual))
	cancel()
	close(release)
	require.True(t, <-done)
	assert.Equal(t, PhaseIdle, svc.State().Phase)

	out := buf.String()
	assert.Contains(t, out, "INFO: refresh: manual trigger ignored, cycle cycle-1 still in flight")
	assert.Contains(t, out, "INFO: refresh: cycle cycle-1 abandoned")
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.Regexp(t, `(INFO|ERROR|DEBUG): `, line)
	}
}

func TestStartRunsAsynchronously(t *testing.T) {
	f := new(MockFetcher)
	f.On("FetchCurrent", mock.Anything).Return(genuineCurrent(), nil).Once()
	f.On("FetchForecast", mock.Anything).Return(genuineForecast(), nil).Once()

	svc, _ := newTestService(f)
	require.True(t, svc.Start(context.Background(), TriggerManual))

	require.Eventually(t, func() bool {
		return svc.State().Phase == PhaseDisplaying
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBuildSnapshotScenarioAPIDown(t *testing.T) {
	s := BuildSnapshot("x", now, weather.FallbackCurrent(now), weather.FallbackForecast(now), localtime.MustNew("UTC"), precip.DefaultOptions())

	assert.True(t, s.Degraded)
	assert.Equal(t, weather.ConditionError, s.Current.Condition)
	assert.Len(t, s.Forecast.Samples, 24)
	assert.True(t, s.Forecast.Anchored)
}

func TestSnapshotRebucket(t *testing.T) {
	s := BuildSnapshot("x", now, genuineCurrent(), genuineForecast(), localtime.MustNew("UTC"), precip.DefaultOptions())
	require.Len(t, s.Precip.Blocks, 16)

	opts := precip.DefaultOptions()
	opts.BlockHours = 12
	r := s.Rebucket(opts)
	assert.Len(t, r.Precip.Blocks, 8)
	assert.Len(t, s.Precip.Blocks, 16, "original snapshot is untouched")
}
