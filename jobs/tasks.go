// Package jobs holds the background tasks processed by the Asynq worker.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/medilink/medilink/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotationExpire sweeps submitted quotations past their validity.
	TaskQuotationExpire = "procurement:quotation_expire"
	// TaskLowStockScan alerts hospitals about ledger rows under reorder point.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// NewQuotationExpireTask constructs the sweep task. It carries no payload.
func NewQuotationExpireTask() *asynq.Task {
	return asynq.NewTask(TaskQuotationExpire, nil)
}

// NewLowStockScanTask constructs the scan task. It carries no payload.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// QuotationExpirer is the slice of the lifecycle engine the sweep needs.
type QuotationExpirer interface {
	ExpireQuotations(ctx context.Context) (int64, error)
}

// QuotationExpireJob retires stale quotations on a schedule. The acceptance
// path checks validity inline; this keeps supplier and hospital listings
// honest between requests.
type QuotationExpireJob struct {
	service QuotationExpirer
	logger  *slog.Logger
}

// NewQuotationExpireJob constructs the job.
func NewQuotationExpireJob(service QuotationExpirer, logger *slog.Logger) *QuotationExpireJob {
	return &QuotationExpireJob{service: service, logger: logger}
}

// Handle processes TaskQuotationExpire tasks.
func (j *QuotationExpireJob) Handle(ctx context.Context, _ *asynq.Task) error {
	n, err := j.service.ExpireQuotations(ctx)
	if err != nil {
		j.logger.Error("quotation expire sweep", slog.Any("error", err))
		return err
	}
	if n > 0 {
		j.logger.Info("quotation expire sweep", slog.Int64("expired", n))
	}
	return nil
}

// LowStockSource provides the inventory reads the scan needs.
type LowStockSource interface {
	HospitalsWithInventory(ctx context.Context) ([]int64, error)
	LowStock(ctx context.Context, hospitalID int64) ([]inventory.HospitalItem, error)
}

// LowStockNotifier delivers the alert to a hospital's feed.
type LowStockNotifier interface {
	LowStockAlert(ctx context.Context, hospitalID int64, medicineNames []string)
}

// LowStockScanJob walks every hospital ledger and alerts on rows at or below
// their reorder point.
type LowStockScanJob struct {
	source   LowStockSource
	notifier LowStockNotifier
	logger   *slog.Logger
}

// NewLowStockScanJob constructs the job.
func NewLowStockScanJob(source LowStockSource, notifier LowStockNotifier, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{source: source, notifier: notifier, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	hospitals, err := j.source.HospitalsWithInventory(ctx)
	if err != nil {
		j.logger.Error("low stock scan", slog.Any("error", err))
		return err
	}
	for _, hospitalID := range hospitals {
		items, err := j.source.LowStock(ctx, hospitalID)
		if err != nil {
			j.logger.Error("low stock scan",
				slog.Int64("hospital_id", hospitalID), slog.Any("error", err))
			continue
		}
		if len(items) == 0 {
			continue
		}
		names := make([]string, 0, len(items))
		for _, item := range items {
			names = append(names, item.MedicineName)
		}
		j.notifier.LowStockAlert(ctx, hospitalID, names)
	}
	return nil
}
