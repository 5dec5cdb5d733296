package sweep_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/IvanGLS/library-service-project/internal/model"
	"github.com/IvanGLS/library-service-project/internal/sweep"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu      sync.Mutex
	overdue []model.OverdueBorrowing
	stale   []model.Payment
	cutoffs []time.Time
}

func (f *fakeStore) ListOverdue(_ context.Context, _ time.Time) ([]model.OverdueBorrowing, error) {
	return f.overdue, nil
}

func (f *fakeStore) ExpireStalePayments(_ context.Context, cutoff time.Time) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.stale, nil
}

func (f *fakeStore) expireCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

// blockingStore parks ListOverdue on release so a tick can be held in flight.
type blockingStore struct {
	fakeStore
	started chan struct{}
	release chan struct{}
}

func (b *blockingStore) ListOverdue(_ context.Context, _ time.Time) ([]model.OverdueBorrowing, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return nil, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	tm, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return model.NewDate(tm)
}

func TestJob_Tick_Overdue(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		overdue: []model.OverdueBorrowing{
			{UserID: 1, BookTitle: "Kobzar", ExpectedReturnDate: mustDate(t, "2022-03-05")},
			{UserID: 2, BookTitle: "Dune", ExpectedReturnDate: mustDate(t, "2022-03-07")},
		},
	}
	notifier := &fakeNotifier{}
	job := sweep.New(store, notifier, time.Hour, 24*time.Hour, zap.NewExample().Named("test"))

	require.NoError(t, job.Tick(context.Background()))

	require.Len(t, notifier.texts, 1)
	require.Equal(t,
		"Overdue borrowings:\n"+
			"user 1 should have returned Kobzar by 2022-03-05\n"+
			"user 2 should have returned Dune by 2022-03-07",
		notifier.texts[0])
}

func TestJob_Tick_NothingOverdue(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	notifier := &fakeNotifier{}
	job := sweep.New(store, notifier, time.Hour, 24*time.Hour, zap.NewExample().Named("test"))

	require.NoError(t, job.Tick(context.Background()))

	require.Equal(t, []string{"No borrowings overdue today!"}, notifier.texts)
}

func TestJob_Tick_ExpiresStalePayments(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		stale: []model.Payment{{ID: 1, Status: model.PaymentExpired}},
	}
	notifier := &fakeNotifier{}
	job := sweep.New(store, notifier, time.Hour, 24*time.Hour, zap.NewExample().Named("test"))

	before := time.Now()
	require.NoError(t, job.Tick(context.Background()))

	require.Len(t, store.cutoffs, 1)
	// cutoff is now minus the expiry window
	require.WithinDuration(t, before.Add(-24*time.Hour), store.cutoffs[0], time.Minute)
}

func TestJob_Run_SkipsOverlappingTicks(t *testing.T) {
	t.Parallel()

	const interval = 10 * time.Millisecond
	store := &blockingStore{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	notifier := &fakeNotifier{}
	job := sweep.New(store, notifier, interval, 24*time.Hour, zap.NewExample().Named("test"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Run(ctx)
	}()

	// hold the first tick in flight
	<-store.started
	require.Eventually(t, func() bool { return store.expireCalls() == 1 }, time.Second, time.Millisecond)

	// several intervals pass while it is still running; each tick is skipped
	time.Sleep(5 * interval)
	require.Equal(t, 1, store.expireCalls())

	// once it finishes, ticks resume
	close(store.release)
	require.Eventually(t, func() bool { return store.expireCalls() >= 2 }, time.Second, time.Millisecond)

	cancel()
	<-done
}
