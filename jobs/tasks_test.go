package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medilink/medilink/internal/inventory"
)

type fakeExpirer struct {
	expired int64
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireQuotations(context.Context) (int64, error) {
	f.calls++
	return f.expired, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQuotationExpireJob(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	job := NewQuotationExpireJob(expirer, discardLogger())

	require.NoError(t, job.Handle(context.Background(), NewQuotationExpireTask()))
	require.Equal(t, 1, expirer.calls)

	expirer.err = errors.New("boom")
	require.Error(t, job.Handle(context.Background(), NewQuotationExpireTask()))
}

type fakeSource struct {
	hospitals []int64
	lowStock  map[int64][]inventory.HospitalItem
}

func (f *fakeSource) HospitalsWithInventory(context.Context) ([]int64, error) {
	return f.hospitals, nil
}

func (f *fakeSource) LowStock(_ context.Context, hospitalID int64) ([]inventory.HospitalItem, error) {
	return f.lowStock[hospitalID], nil
}

type fakeNotifier struct {
	alerts map[int64][]string
}

func (f *fakeNotifier) LowStockAlert(_ context.Context, hospitalID int64, names []string) {
	if f.alerts == nil {
		f.alerts = make(map[int64][]string)
	}
	f.alerts[hospitalID] = names
}

func TestLowStockScanJob(t *testing.T) {
	source := &fakeSource{
		hospitals: []int64{10, 11},
		lowStock: map[int64][]inventory.HospitalItem{
			10: {
				{MedicineName: "Paracetamol 500mg"},
				{MedicineName: "Amoxicillin 250mg"},
			},
			// Hospital 11 is fully stocked.
		},
	}
	notifier := &fakeNotifier{}
	job := NewLowStockScanJob(source, notifier, discardLogger())

	require.NoError(t, job.Handle(context.Background(), NewLowStockScanTask()))
	require.Len(t, notifier.alerts, 1)
	require.Equal(t, []string{"Paracetamol 500mg", "Amoxicillin 250mg"}, notifier.alerts[10])
}
