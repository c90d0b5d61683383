package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/mocks"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTicketSnapshotService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the collection and runs hooks", func(t *testing.T) {
		repo := mocks.NewMockTicketRepository()
		fc := clock.Fake(fixedNow)
		svc := services.NewTicketSnapshotService(repo, fc, nil, testLogger())

		assert.Empty(t, svc.Tickets())
		assert.True(t, svc.LoadedAt().IsZero())
		assert.ErrorIs(t, svc.Ping(ctx), apperrors.ErrSnapshotNotLoaded)

		first := []domain.Ticket{{ID: "a"}}
		second := []domain.Ticket{{ID: "a"}, {ID: "b"}}
		repo.On("ListAll", ctx).Return(first, nil).Once()
		repo.On("ListAll", ctx).Return(second, nil).Once()

		hookCalls := 0
		svc.OnRefresh(func() { hookCalls++ })

		require.NoError(t, svc.Refresh(ctx))
		assert.NoError(t, svc.Ping(ctx))
		held := svc.Tickets()
		assert.Len(t, held, 1)

		fc.Advance(time.Minute)
		require.NoError(t, svc.Refresh(ctx))

		assert.Len(t, svc.Tickets(), 2)
		assert.Len(t, held, 1, "earlier snapshots are not modified")
		assert.Equal(t, fixedNow.Add(time.Minute), svc.LoadedAt())
		assert.Equal(t, 2, hookCalls)
	})

	t.Run("failure keeps the previous collection", func(t *testing.T) {
		repo := mocks.NewMockTicketRepository()
		recorder := &mocks.RecordingRecorder{}
		svc := services.NewTicketSnapshotService(repo, clock.Fake(fixedNow), recorder, testLogger())

		repo.On("ListAll", ctx).Return([]domain.Ticket{{ID: "a"}}, nil).Once()
		repo.On("ListAll", ctx).Return(nil, errors.New("db unavailable")).Once()

		hookCalls := 0
		svc.OnRefresh(func() { hookCalls++ })

		require.NoError(t, svc.Refresh(ctx))
		err := svc.Refresh(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "refreshing ticket snapshot")
		assert.Len(t, svc.Tickets(), 1)
		assert.Equal(t, 1, hookCalls)
		assert.Equal(t, 2, recorder.Refreshes)
	})
}

func TestTicketSnapshotService_Run(t *testing.T) {
	const interval = 5 * time.Minute

	repo := mocks.NewMockTicketRepository()
	fc := clock.Fake(fixedNow)
	svc := services.NewTicketSnapshotService(repo, fc, nil, testLogger())

	repo.On("ListAll", mock.Anything).Return([]domain.Ticket{{ID: "a"}}, nil).Once()
	failed := make(chan struct{}, 1)
	repo.On("ListAll", mock.Anything).Return(nil, errors.New("db unavailable")).Once().
		Run(func(mock.Arguments) { failed <- struct{}{} })
	repo.On("ListAll", mock.Anything).Return([]domain.Ticket{{ID: "a"}, {ID: "b"}}, nil).Once()

	refreshed := make(chan struct{}, 4)
	svc.OnRefresh(func() { refreshed <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, interval)
		close(done)
	}()

	require.Eventually(t, func() bool { return fc.Pending() == 1 }, time.Second, time.Millisecond,
		"refresh loop registers its ticker on the injected clock")

	await := func(ch <-chan struct{}) {
		t.Helper()
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("no refresh after the interval elapsed")
		}
	}

	fc.Advance(interval - time.Second)
	assert.True(t, svc.LoadedAt().IsZero(), "nothing refreshes before the interval")

	fc.Advance(time.Second)
	await(refreshed)
	assert.Equal(t, fixedNow.Add(interval), svc.LoadedAt())

	// A failed refresh keeps the loop running for the next tick.
	fc.Advance(interval)
	await(failed)
	assert.Len(t, svc.Tickets(), 1)

	fc.Advance(interval)
	await(refreshed)
	assert.Len(t, svc.Tickets(), 2)
	assert.Equal(t, fixedNow.Add(3*interval), svc.LoadedAt())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop after cancellation")
	}
	repo.AssertExpectations(t)
}
