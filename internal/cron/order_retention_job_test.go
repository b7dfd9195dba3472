package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

type fakeOrderPurger struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeOrderPurger) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestOrderRetentionUsesDefaultWindow(t *testing.T) {
	purger := &fakeOrderPurger{deleted: 3}
	job, err := NewOrderRetentionJob(OrderRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Orders: purger,
	})
	if err != nil {
		t.Fatalf("NewOrderRetentionJob returned error: %v", err)
	}

	frozen := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	job.(*orderRetentionJob).now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := frozen.Add(-orderRetentionDays * 24 * time.Hour)
	if !purger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.cutoff)
	}
}

func TestOrderRetentionSurfacesError(t *testing.T) {
	purger := &fakeOrderPurger{err: errors.New("deadlock")}
	job, err := NewOrderRetentionJob(OrderRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Orders: purger,
	})
	if err != nil {
		t.Fatalf("NewOrderRetentionJob returned error: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected purge error to surface")
	}
}
