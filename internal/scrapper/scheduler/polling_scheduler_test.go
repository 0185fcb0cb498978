package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/internal/scrapper/scheduler"
)

type MockLinkProcessor struct {
	mock.Mock
}

func (m *MockLinkProcessor) ProcessLink(ctx context.Context, link *models.Link) (bool, error) {
	args := m.Called(ctx, link)
	return args.Bool(0), args.Error(1)
}

type MockLinkSource struct {
	mock.Mock
}

func (m *MockLinkSource) FindDue(ctx context.Context, limit, offset int) ([]*models.Link, error) {
	args := m.Called(ctx, limit, offset)

	links, _ := args.Get(0).([]*models.Link)

	return links, args.Error(1)
}

type funcProcessor func(ctx context.Context, link *models.Link) (bool, error)

func (f funcProcessor) ProcessLink(ctx context.Context, link *models.Link) (bool, error) {
	return f(ctx, link)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollingScheduler_RunOnce_ProcessesAllBatches(t *testing.T) {
	processor := new(MockLinkProcessor)
	source := new(MockLinkSource)
	ctx := context.Background()

	link1 := &models.Link{ID: 1, URL: "https://github.com/a/b", Type: models.GitHub}
	link2 := &models.Link{ID: 2, URL: "https://stackoverflow.com/questions/1", Type: models.StackOverflow}
	link3 := &models.Link{ID: 3, URL: "https://github.com/c/d", Type: models.GitHub}

	source.On("FindDue", mock.Anything, 2, 0).Return([]*models.Link{link1, link2}, nil).Once()
	source.On("FindDue", mock.Anything, 2, 2).Return([]*models.Link{link3}, nil).Once()

	processor.On("ProcessLink", mock.Anything, link1).Return(true, nil).Once()
	processor.On("ProcessLink", mock.Anything, link2).Return(false, errors.New("parse error")).Once()
	processor.On("ProcessLink", mock.Anything, link3).Return(true, nil).Once()

	s := scheduler.NewPollingScheduler(processor, source, scheduler.Settings{
		Interval:  time.Hour,
		BatchSize: 2,
		Workers:   2,
	}, testLogger())

	assert.True(t, s.RunOnce(ctx))

	source.AssertExpectations(t)
	processor.AssertExpectations(t)
}

func TestPollingScheduler_RunOnce_FullLastBatchQueriesAgain(t *testing.T) {
	processor := new(MockLinkProcessor)
	source := new(MockLinkSource)

	link1 := &models.Link{ID: 1, URL: "https://github.com/a/b", Type: models.GitHub}

	source.On("FindDue", mock.Anything, 1, 0).Return([]*models.Link{link1}, nil).Once()
	source.On("FindDue", mock.Anything, 1, 1).Return([]*models.Link{}, nil).Once()
	processor.On("ProcessLink", mock.Anything, link1).Return(false, nil).Once()

	s := scheduler.NewPollingScheduler(processor, source, scheduler.Settings{
		Interval:  time.Hour,
		BatchSize: 1,
		Workers:   1,
	}, testLogger())

	s.RunOnce(context.Background())

	source.AssertExpectations(t)
	processor.AssertExpectations(t)
}

func TestPollingScheduler_RunOnce_SourceError(t *testing.T) {
	processor := new(MockLinkProcessor)
	source := new(MockLinkSource)

	source.On("FindDue", mock.Anything, 10, 0).Return(nil, errors.New("db is down")).Once()

	s := scheduler.NewPollingScheduler(processor, source, scheduler.Settings{
		Interval:  time.Hour,
		BatchSize: 10,
		Workers:   1,
	}, testLogger())

	assert.True(t, s.RunOnce(context.Background()))
	processor.AssertNotCalled(t, "ProcessLink", mock.Anything, mock.Anything)
}

func TestPollingScheduler_RunOnce_NoOverlap(t *testing.T) {
	source := new(MockLinkSource)
	link := &models.Link{ID: 1, URL: "https://github.com/a/b", Type: models.GitHub}

	source.On("FindDue", mock.Anything, 10, 0).Return([]*models.Link{link}, nil)

	started := make(chan struct{})
	release := make(chan struct{})

	processor := funcProcessor(func(context.Context, *models.Link) (bool, error) {
		close(started)
		<-release

		return false, nil
	})

	s := scheduler.NewPollingScheduler(processor, source, scheduler.Settings{
		Interval:  time.Hour,
		BatchSize: 10,
		Workers:   1,
	}, testLogger())

	done := make(chan bool)

	go func() {
		done <- s.RunOnce(context.Background())
	}()

	<-started
	assert.False(t, s.RunOnce(context.Background()))

	close(release)
	assert.True(t, <-done)
}

func TestPollingScheduler_StartRunsPeriodically(t *testing.T) {
	var calls atomic.Int32

	source := new(MockLinkSource)
	link := &models.Link{ID: 1, URL: "https://github.com/a/b", Type: models.GitHub}
	source.On("FindDue", mock.Anything, 10, 0).Return([]*models.Link{link}, nil)

	processor := funcProcessor(func(context.Context, *models.Link) (bool, error) {
		calls.Add(1)
		return false, nil
	})

	s := scheduler.NewPollingScheduler(processor, source, scheduler.Settings{
		Interval:  100 * time.Millisecond,
		BatchSize: 10,
		Workers:   1,
	}, testLogger())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
}
