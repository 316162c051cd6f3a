package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormeda/labdesk/internal/domain/entity"
	"github.com/ormeda/labdesk/internal/domain/period"
)

func addEntry(t *testing.T, f *fixture, date time.Time, kind entity.EntryType, amount int64) {
	t.Helper()
	_, err := f.ledgerSvc.AddEntry(context.Background(), EntryInput{
		Date:     date,
		Category: "misc",
		Amount:   amount,
		Type:     kind,
	})
	require.NoError(t, err)
}

func TestStatsService_Aggregation(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	addEntry(t, f, testNow, entity.EntryIncome, 450000)
	addEntry(t, f, testNow.AddDate(0, 0, 1), entity.EntryIncome, 280000)
	addEntry(t, f, testNow.AddDate(0, 0, 2), entity.EntryExpense, 85000)
	addEntry(t, f, testNow.AddDate(0, 0, 3), entity.EntryExpense, 150000)

	stats, err := f.statsSvc.Stats(ctx, entity.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(730000), stats.Revenue)
	assert.Equal(t, int64(235000), stats.Expenses)
	assert.Equal(t, int64(495000), stats.NetProfit)
}

func TestStatsService_RangeScoping(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	addEntry(t, f, testNow, entity.EntryIncome, 100000)
	addEntry(t, f, testNow.AddDate(0, -2, 0), entity.EntryIncome, 999999)

	r, err := period.Resolve(period.FilterThisMonth, testNow)
	require.NoError(t, err)
	stats, err := f.statsSvc.Stats(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), stats.Revenue)
}

func TestStatsService_ZeroDenominators(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)

	stats, err := f.statsSvc.Stats(context.Background(), entity.DateRange{})
	require.NoError(t, err)
	assert.Zero(t, stats.QuoteCount)
	assert.Zero(t, stats.OrderCount)
	assert.Zero(t, stats.ConversionRate)
	assert.Zero(t, stats.AvgOrderValue)
}

func TestStatsService_ConversionAndAverageOrder(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	// Two quotes, one accepted and invoiced and paid, one left pending.
	invoice := paidableInvoice(t, f)
	_, err := f.quoteSvc.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = f.ledgerSvc.Record(ctx, invoice.ID, invoice.Total, entity.MethodBankTransfer, "")
	require.NoError(t, err)

	stats, err := f.statsSvc.Stats(ctx, entity.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.QuoteCount)
	assert.Equal(t, int64(1), stats.AcceptedQuotes)
	assert.InDelta(t, 50.0, stats.ConversionRate, 0.001)
	assert.Equal(t, int64(1), stats.OrderCount)
	assert.Equal(t, invoice.Total, stats.Revenue)
	assert.Equal(t, invoice.Total, stats.AvgOrderValue)
}

func TestStatsService_CancelledInvoicesAreNotOrders(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	invoice := paidableInvoice(t, f)
	_, err := f.invoiceSvc.Cancel(ctx, invoice.ID)
	require.NoError(t, err)

	stats, err := f.statsSvc.Stats(ctx, entity.DateRange{})
	require.NoError(t, err)
	assert.Zero(t, stats.OrderCount)
}

func TestStatsService_RefundLowersRevenue(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	invoice := paidableInvoice(t, f)
	tx, err := f.ledgerSvc.Record(ctx, invoice.ID, invoice.Total, entity.MethodBankTransfer, "")
	require.NoError(t, err)
	_, err = f.ledgerSvc.Refund(ctx, tx.ID)
	require.NoError(t, err)

	stats, err := f.statsSvc.Stats(ctx, entity.DateRange{})
	require.NoError(t, err)
	assert.Zero(t, stats.Revenue)
	assert.Zero(t, stats.NetProfit)
}

func TestStatsService_SalesByPeriodDailyBuckets(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	invoice := paidableInvoice(t, f)
	_, err := f.ledgerSvc.Record(ctx, invoice.ID, invoice.Total, entity.MethodBankTransfer, "")
	require.NoError(t, err)
	addEntry(t, f, testNow.AddDate(0, 0, 2), entity.EntryIncome, 120000)

	start := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	points, err := f.statsSvc.SalesByPeriod(ctx, entity.DateRange{Start: start, End: start.AddDate(0, 0, 7)})
	require.NoError(t, err)

	// Seven daily buckets, holes included.
	require.Len(t, points, 7)
	assert.Equal(t, "2026-03-16", points[0].Label)
	assert.Zero(t, points[0].Revenue)
	assert.Equal(t, "2026-03-18", points[2].Label)
	assert.Equal(t, invoice.Total, points[2].Revenue)
	assert.Equal(t, int64(1), points[2].OrderCount)
	assert.Equal(t, "2026-03-20", points[4].Label)
	assert.Equal(t, int64(120000), points[4].Revenue)
	assert.Zero(t, points[4].OrderCount)
}

func TestStatsService_SalesByPeriodMonthlyBuckets(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	addEntry(t, f, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), entity.EntryIncome, 50000)
	addEntry(t, f, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), entity.EntryIncome, 70000)

	r, err := period.Resolve(period.FilterThisYear, testNow)
	require.NoError(t, err)
	points, err := f.statsSvc.SalesByPeriod(ctx, r)
	require.NoError(t, err)

	require.Len(t, points, 12)
	assert.Equal(t, "2026-01", points[0].Label)
	assert.Equal(t, int64(50000), points[0].Revenue)
	assert.Equal(t, "2026-02", points[1].Label)
	assert.Zero(t, points[1].Revenue)
	assert.Equal(t, "2026-03", points[2].Label)
	assert.Equal(t, int64(70000), points[2].Revenue)
}

// The whole lifecycle in one pass: quote -> accept -> invoice -> payment, then
// the report reflects the sale.
func TestStatsService_EndToEnd(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, err := f.quoteSvc.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteSent)
	require.NoError(t, err)
	_, err = f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteAccepted)
	require.NoError(t, err)

	invoice, err := f.invoiceSvc.Derive(ctx, quote.ID)
	require.NoError(t, err)
	_, err = f.ledgerSvc.Record(ctx, invoice.ID, invoice.Total, entity.MethodBankTransfer, "")
	require.NoError(t, err)

	settled, err := f.invoiceSvc.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoicePaid, settled.Status)

	stats, err := f.statsSvc.Stats(ctx, entity.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(911550), stats.Revenue)
	assert.Equal(t, int64(911550), stats.NetProfit)
	assert.Equal(t, int64(1), stats.OrderCount)
	assert.InDelta(t, 100.0, stats.ConversionRate, 0.001)
}
