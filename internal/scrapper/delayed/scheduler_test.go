package delayed_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/internal/scrapper/delayed"
)

type MockBotNotifier struct {
	mock.Mock
}

func (m *MockBotNotifier) SendUpdate(ctx context.Context, update *models.LinkUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func update(id int64, chats ...int64) *models.LinkUpdate {
	return &models.LinkUpdate{
		ID:          id,
		URL:         "https://github.com/owner/repo",
		Description: "Обновление репозитория",
		TgChatIDs:   chats,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 1, hour, minute, 30, 0, time.UTC)
}

func TestDelayedSendingScheduler_FlushSendsDueBucketOnly(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockBotNotifier)
	s := delayed.NewDelayedSendingScheduler(delayed.NewMemoryStore(), notifier, testLogger())

	require.NoError(t, s.Defer(ctx, "09:30", update(1, 2)))
	require.NoError(t, s.Defer(ctx, "9:30", update(2, 4)))
	require.NoError(t, s.Defer(ctx, "18:00", update(3, 5)))

	notifier.On("SendUpdate", mock.Anything, mock.MatchedBy(func(u *models.LinkUpdate) bool {
		return u.ID == 1 || u.ID == 2
	})).Return(nil).Twice()

	assert.Equal(t, 2, s.Flush(ctx, at(9, 30)))
	notifier.AssertExpectations(t)

	assert.Equal(t, 0, s.Flush(ctx, at(9, 30)), "bucket must be cleared after flush")
	notifier.AssertNumberOfCalls(t, "SendUpdate", 2)
}

func TestDelayedSendingScheduler_FlushCatchesUpSkippedMinutes(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockBotNotifier)
	s := delayed.NewDelayedSendingScheduler(delayed.NewMemoryStore(), notifier, testLogger())

	assert.Equal(t, 0, s.Flush(ctx, at(9, 28)))

	require.NoError(t, s.Defer(ctx, "09:29", update(1, 2)))
	require.NoError(t, s.Defer(ctx, "09:30", update(2, 2)))

	notifier.On("SendUpdate", mock.Anything, mock.Anything).Return(nil).Twice()

	assert.Equal(t, 2, s.Flush(ctx, at(9, 30)))
	notifier.AssertExpectations(t)
}

func TestDelayedSendingScheduler_SendErrorIsNotFatal(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockBotNotifier)
	s := delayed.NewDelayedSendingScheduler(delayed.NewMemoryStore(), notifier, testLogger())

	require.NoError(t, s.Defer(ctx, "10:00", update(1, 2)))
	require.NoError(t, s.Defer(ctx, "10:00", update(2, 3)))

	notifier.On("SendUpdate", mock.Anything, mock.MatchedBy(func(u *models.LinkUpdate) bool { return u.ID == 1 })).
		Return(errors.New("bot is down")).Once()
	notifier.On("SendUpdate", mock.Anything, mock.MatchedBy(func(u *models.LinkUpdate) bool { return u.ID == 2 })).
		Return(nil).Once()

	assert.Equal(t, 1, s.Flush(ctx, at(10, 0)))
	notifier.AssertExpectations(t)
}

func TestDelayedSendingScheduler_DeferRejectsInvalidTime(t *testing.T) {
	s := delayed.NewDelayedSendingScheduler(delayed.NewMemoryStore(), new(MockBotNotifier), testLogger())

	assert.Error(t, s.Defer(context.Background(), "25:99", update(1, 2)))
	assert.Error(t, s.Defer(context.Background(), "", update(1, 2)))
}

type failingStore struct {
	delayed.Store
}

func (failingStore) Drain(context.Context, string) ([]*models.LinkUpdate, error) {
	return nil, errors.New("redis is down")
}

func TestDelayedSendingScheduler_DrainError(t *testing.T) {
	notifier := new(MockBotNotifier)
	s := delayed.NewDelayedSendingScheduler(failingStore{Store: delayed.NewMemoryStore()}, notifier, testLogger())

	assert.Equal(t, 0, s.Flush(context.Background(), at(12, 0)))
	notifier.AssertNotCalled(t, "SendUpdate", mock.Anything, mock.Anything)
}

func TestMemoryStore_DrainClearsBucket(t *testing.T) {
	ctx := context.Background()
	store := delayed.NewMemoryStore()

	require.NoError(t, store.Append(ctx, "08:00", update(1, 2)))
	require.NoError(t, store.Append(ctx, "08:00", update(2, 3)))
	require.NoError(t, store.Append(ctx, "08:01", update(3, 4)))

	updates, err := store.Drain(ctx, "08:00")
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(1), updates[0].ID)
	assert.Equal(t, int64(2), updates[1].ID)

	updates, err = store.Drain(ctx, "08:00")
	require.NoError(t, err)
	assert.Empty(t, updates)

	updates, err = store.Drain(ctx, "08:01")
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}
