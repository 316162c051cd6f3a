package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

var testNow = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func sampleInput() CreateQuoteInput {
	return CreateQuoteInput{
		Customer: entity.CustomerSnapshot{
			Name:          "Dr. Elena Vasquez",
			Email:         "e.vasquez@iberlab.es",
			Phone:         "+34 600 123 456",
			Establishment: "IberLab Research",
			City:          "Valencia",
		},
		Items: []QuoteItemInput{
			{ProductName: "Borosilicate flask 500ml", Quantity: 25, UnitPrice: 8500},
			{ProductName: "Precision balance PB-220", Quantity: 2, UnitPrice: 280000},
		},
		Message: "Need delivery before end of quarter.",
	}
}

func TestQuoteService_Create(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)

	quote, err := f.quoteSvc.Create(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "QUO-20260318-001", quote.Number)
	assert.Equal(t, entity.QuotePending, quote.Status)
	assert.Equal(t, entity.PriorityMedium, quote.Priority)
	assert.Equal(t, int64(772500), quote.Subtotal)
	assert.Equal(t, int64(139050), quote.Tax)
	assert.Equal(t, int64(0), quote.Shipping)
	assert.Equal(t, int64(911550), quote.Total)
	assert.Equal(t, testNow.AddDate(0, 0, 30), quote.ValidUntil)
	assert.Nil(t, quote.SentAt)
	assert.Nil(t, quote.RespondedAt)
}

func TestQuoteService_Create_TotalsAlwaysReconcile(t *testing.T) {
	f := newFixture(Rules{TaxRateBasisPoints: 1800, PaymentTermsDays: 30, QuoteValidityDays: 30,
		Shipping: DefaultRules().Shipping}, fixedNow)

	inputs := [][]QuoteItemInput{
		{{ProductName: "Pipette tip box", Quantity: 1, UnitPrice: 1}},
		{{ProductName: "Microscope slide", Quantity: 3, UnitPrice: 33}},
		{{ProductName: "Centrifuge CX-9", Quantity: 7, UnitPrice: 999999}},
	}
	for _, items := range inputs {
		input := sampleInput()
		input.Items = items
		quote, err := f.quoteSvc.Create(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, quote.Total, quote.Subtotal+quote.Tax+quote.Shipping,
			"total must equal subtotal + tax + shipping")
	}
}

func TestQuoteService_Create_Validation(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateQuoteInput)
	}{
		{"empty items", func(in *CreateQuoteInput) { in.Items = nil }},
		{"zero quantity", func(in *CreateQuoteInput) { in.Items[0].Quantity = 0 }},
		{"negative quantity", func(in *CreateQuoteInput) { in.Items[0].Quantity = -2 }},
		{"negative unit price", func(in *CreateQuoteInput) { in.Items[0].UnitPrice = -1 }},
		{"blank product name", func(in *CreateQuoteInput) { in.Items[0].ProductName = "  " }},
		{"missing customer name", func(in *CreateQuoteInput) { in.Customer.Name = "" }},
		{"missing customer email", func(in *CreateQuoteInput) { in.Customer.Email = "" }},
		{"malformed customer email", func(in *CreateQuoteInput) { in.Customer.Email = "not-an-address" }},
		{"bogus priority", func(in *CreateQuoteInput) { in.Priority = entity.Priority("asap") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := sampleInput()
			tt.mutate(&input)
			_, err := f.quoteSvc.Create(ctx, input)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestQuoteService_UpdateStatus_SendIsIdempotent(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, err := f.quoteSvc.Create(ctx, sampleInput())
	require.NoError(t, err)

	sent, err := f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteSent)
	require.NoError(t, err)
	require.NotNil(t, sent.SentAt)
	firstSentAt := *sent.SentAt

	// Re-sending succeeds but the timestamp marks the first send only.
	f.quoteSvc.(*quoteServiceImpl).now = func() time.Time { return testNow.Add(time.Hour) }
	resent, err := f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteSent)
	require.NoError(t, err)
	require.NotNil(t, resent.SentAt)
	assert.Equal(t, firstSentAt, *resent.SentAt)
}

func TestQuoteService_UpdateStatus_AcceptSetsRespondedAt(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, _ := f.quoteSvc.Create(ctx, sampleInput())
	_, err := f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteSent)
	require.NoError(t, err)

	accepted, err := f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteAccepted)
	require.NoError(t, err)
	require.NotNil(t, accepted.RespondedAt)
	assert.Equal(t, testNow, *accepted.RespondedAt)
}

func TestQuoteService_UpdateStatus_RejectsOutOfTable(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, _ := f.quoteSvc.Create(ctx, sampleInput())
	f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteSent)
	f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteAccepted)

	_, err := f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuotePending)
	var transErr *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "accepted", transErr.Current)
	assert.Equal(t, "pending", transErr.Attempted)

	// Accepting straight from pending skips the send step and is rejected too.
	second, _ := f.quoteSvc.Create(ctx, sampleInput())
	_, err = f.quoteSvc.UpdateStatus(ctx, second.ID, entity.QuoteAccepted)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestQuoteService_ExpiredQuoteCannotBeAccepted(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	past := testNow.AddDate(0, 0, -1)
	input := sampleInput()
	input.ValidUntil = &past
	quote, err := f.quoteSvc.Create(ctx, input)
	require.NoError(t, err)

	// No write has happened, but every status read reports expired.
	got, err := f.quoteSvc.Get(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.QuoteExpired, got.Status)

	_, err = f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteSent)
	var transErr *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "expired", transErr.Current)
}

func TestQuoteService_StoredExpiryTransition(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, _ := f.quoteSvc.Create(ctx, sampleInput())
	expired, err := f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteExpired)
	require.NoError(t, err)
	assert.Equal(t, entity.QuoteExpired, expired.Status)
}

func TestQuoteService_PriorityIsOrthogonalToStatus(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, _ := f.quoteSvc.Create(ctx, sampleInput())
	f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteSent)
	f.quoteSvc.UpdateStatus(ctx, quote.ID, entity.QuoteRejected)

	// Terminal status, priority still mutable.
	updated, err := f.quoteSvc.UpdatePriority(ctx, quote.ID, entity.PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, entity.PriorityUrgent, updated.Priority)
	assert.Equal(t, entity.QuoteRejected, updated.Status)
}

func TestQuoteService_AddNote(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, _ := f.quoteSvc.Create(ctx, sampleInput())
	f.quoteSvc.(*quoteServiceImpl).now = func() time.Time { return testNow.Add(2 * time.Hour) }

	noted, err := f.quoteSvc.AddNote(ctx, quote.ID, "called customer, waiting on PO")
	require.NoError(t, err)
	assert.Equal(t, "called customer, waiting on PO", noted.Notes)
	assert.Equal(t, entity.QuotePending, noted.Status)
	assert.True(t, noted.UpdatedAt.After(quote.UpdatedAt))
}

func TestQuoteService_Duplicate(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	source, _ := f.quoteSvc.Create(ctx, sampleInput())
	f.quoteSvc.UpdateStatus(ctx, source.ID, entity.QuoteSent)
	f.quoteSvc.UpdateStatus(ctx, source.ID, entity.QuoteAccepted)

	dup1, err := f.quoteSvc.Duplicate(ctx, source.ID)
	require.NoError(t, err)
	dup2, err := f.quoteSvc.Duplicate(ctx, source.ID)
	require.NoError(t, err)

	// Two independent documents with fresh numbers, both pending.
	assert.NotEqual(t, source.Number, dup1.Number)
	assert.NotEqual(t, dup1.Number, dup2.Number)
	assert.Equal(t, entity.QuotePending, dup1.Status)
	assert.Equal(t, entity.QuotePending, dup2.Status)
	assert.Nil(t, dup1.SentAt)
	assert.Nil(t, dup1.RespondedAt)
	assert.Equal(t, testNow.AddDate(0, 0, 30), dup1.ValidUntil)
	assert.Equal(t, source.Total, dup1.Total)

	// The source is never mutated by duplication.
	reloaded, _ := f.quoteSvc.Get(ctx, source.ID)
	assert.Equal(t, entity.QuoteAccepted, reloaded.Status)
	assert.NotNil(t, reloaded.SentAt)
}

func TestQuoteService_Delete(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	quote, _ := f.quoteSvc.Create(ctx, sampleInput())
	require.NoError(t, f.quoteSvc.Delete(ctx, quote.ID))

	_, err := f.quoteSvc.Get(ctx, quote.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestQuoteService_GetUnknown(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	_, err := f.quoteSvc.Get(context.Background(), 9999)

	var nf *apperr.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "quote", nf.Entity)
}

func TestQuoteService_Search(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	f.quoteSvc.Create(ctx, sampleInput())
	other := sampleInput()
	other.Customer.Name = "Prof. K. Tanaka"
	other.Customer.Establishment = "Sendai Institute"
	other.Items = []QuoteItemInput{{ProductName: "Spectrometer SPX-3", Quantity: 1, UnitPrice: 1500000}}
	f.quoteSvc.Create(ctx, other)

	hits, err := f.quoteSvc.Search(ctx, "spectrometer")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Prof. K. Tanaka", hits[0].Customer.Name)

	_, err = f.quoteSvc.Search(ctx, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestQuoteService_ListFiltersDerivedExpiry(t *testing.T) {
	f := newFixture(DefaultRules(), fixedNow)
	ctx := context.Background()

	past := testNow.AddDate(0, 0, -1)
	stale := sampleInput()
	stale.ValidUntil = &past
	f.quoteSvc.Create(ctx, stale)
	f.quoteSvc.Create(ctx, sampleInput())

	expired, err := f.quoteSvc.List(ctx, entity.QuoteFilter{Status: entity.QuoteExpired})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, entity.QuoteExpired, expired[0].Status)

	pending, err := f.quoteSvc.List(ctx, entity.QuoteFilter{Status: entity.QuotePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
}
