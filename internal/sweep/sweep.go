package sweep

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/IvanGLS/library-service-project/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=sweep.go -destination=mocks/mock.go -package=mocks

type Store interface {
	ListOverdue(ctx context.Context, today time.Time) ([]model.OverdueBorrowing, error)
	ExpireStalePayments(ctx context.Context, cutoff time.Time) ([]model.Payment, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Job periodically reports overdue borrowings in one aggregated message and
// expires stale pending payments. It never mutates book or borrowing state.
type Job struct {
	store        Store
	notifier     Notifier
	interval     time.Duration
	expiryWindow time.Duration
	log          *zap.Logger

	now     func() time.Time
	running atomic.Bool
}

func New(store Store, notifier Notifier, interval, expiryWindow time.Duration, log *zap.Logger) *Job {
	return &Job{
		store:        store,
		notifier:     notifier,
		interval:     interval,
		expiryWindow: expiryWindow,
		log:          log.Named("sweep"),
		now:          time.Now,
	}
}

// Run ticks until ctx is canceled. A tick is skipped if the previous one is
// still running.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !j.running.CompareAndSwap(false, true) {
				j.log.Warn("previous tick still running, skipping")
				continue
			}
			go func() {
				defer j.running.Store(false)
				if err := j.Tick(ctx); err != nil {
					j.log.Error("tick", zap.Error(err))
				}
			}()
		}
	}
}

// Tick runs one sweep pass.
func (j *Job) Tick(ctx context.Context) error {
	now := j.now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return j.reportOverdue(ctx, now)
	})
	g.Go(func() error {
		expired, err := j.store.ExpireStalePayments(ctx, now.Add(-j.expiryWindow))
		if err != nil {
			return err
		}
		if len(expired) > 0 {
			j.log.Info("expired stale payments", zap.Int("count", len(expired)))
		}
		return nil
	})
	return g.Wait()
}

func (j *Job) reportOverdue(ctx context.Context, now time.Time) error {
	overdue, err := j.store.ListOverdue(ctx, now)
	if err != nil {
		return err
	}

	text := "No borrowings overdue today!"
	if len(overdue) > 0 {
		var b strings.Builder
		b.WriteString("Overdue borrowings:")
		for _, item := range overdue {
			b.WriteString(fmt.Sprintf("\nuser %d should have returned %s by %s",
				item.UserID, item.BookTitle, item.ExpectedReturnDate.Format(time.DateOnly)))
		}
		text = b.String()
	}

	// best-effort: a failed notification only gets logged
	if err := j.notifier.Notify(ctx, text); err != nil {
		j.log.Warn("notify", zap.Error(err))
	}
	return nil
}
