package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

type fakeUsageRecords struct {
	calls []*stripe.UsageRecordParams
	err   error
}

func (f *fakeUsageRecords) New(params *stripe.UsageRecordParams) (*stripe.UsageRecord, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.UsageRecord{Quantity: *params.Quantity}, nil
}

func TestStripeReporter_Quantity(t *testing.T) {
	r := NewStripeReporterWith(&fakeUsageRecords{}, 0)
	assert.Equal(t, int64(10), r.Quantity(0.001))
	assert.Equal(t, int64(20), r.Quantity(0.002))
	assert.Equal(t, int64(0), r.Quantity(0.00001))
}

func TestStripeReporter_Report(t *testing.T) {
	fake := &fakeUsageRecords{}
	r := NewStripeReporterWith(fake, 10000)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	err := r.Report(context.Background(), UsageReport{
		RecordID:           "rec-1",
		SubscriptionItemID: "si_123",
		Cost:               0.0125,
		Timestamp:          ts,
	})
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)

	params := fake.calls[0]
	assert.Equal(t, "si_123", *params.SubscriptionItem)
	assert.Equal(t, int64(125), *params.Quantity)
	assert.Equal(t, ts.Unix(), *params.Timestamp)
	assert.Equal(t, "increment", *params.Action)
	assert.Equal(t, "rec-1", *params.IdempotencyKey)
}

func TestStripeReporter_SkipsZeroAndPropagatesErrors(t *testing.T) {
	fake := &fakeUsageRecords{err: errors.New("stripe down")}
	r := NewStripeReporterWith(fake, 10000)

	require.NoError(t, r.Report(context.Background(), UsageReport{RecordID: "r0", Cost: 0}))
	assert.Empty(t, fake.calls)

	err := r.Report(context.Background(), UsageReport{RecordID: "r1", SubscriptionItemID: "si", Cost: 1})
	assert.Error(t, err)
	assert.Len(t, fake.calls, 1)
}
