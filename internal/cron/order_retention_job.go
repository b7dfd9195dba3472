package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

const orderRetentionDays = 90

// OrderRetentionJobParams configure the terminal order cleanup.
type OrderRetentionJobParams struct {
	Logger    *logger.Logger
	Orders    terminalOrderPurger
	Retention int
}

type terminalOrderPurger interface {
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOrderRetentionJob builds the job that prunes completed and cancelled
// provider orders. Order rows exist to match late provider signals back to a
// checkout attempt; once an order is terminal and old enough no signal can
// still reference it.
func NewOrderRetentionJob(params OrderRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = orderRetentionDays
	}
	return &orderRetentionJob{
		logg:      params.Logger,
		orders:    params.Orders,
		retention: retention,
		now:       time.Now,
	}, nil
}

type orderRetentionJob struct {
	logg      *logger.Logger
	orders    terminalOrderPurger
	retention int
	now       func() time.Time
}

func (j *orderRetentionJob) Name() string { return "order-retention" }

func (j *orderRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.orders.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("order retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "order retention cleanup complete")
	return nil
}
