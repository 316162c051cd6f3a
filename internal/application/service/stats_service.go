package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// daily buckets up to a month of span, monthly beyond that
const maxDailySpan = 31 * 24 * time.Hour

// StatsService computes period-scoped financial statistics. It is a pure
// read-side view: it owns no state and never mutates any.
type StatsService interface {
	Stats(ctx context.Context, r entity.DateRange) (*entity.PeriodStats, error)
	SalesByPeriod(ctx context.Context, r entity.DateRange) ([]entity.SalesPoint, error)
}

type statsServiceImpl struct {
	entryRepo   port.EntryRepository
	quoteRepo   port.QuoteRepository
	invoiceRepo port.InvoiceRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(
	entryRepo port.EntryRepository,
	quoteRepo port.QuoteRepository,
	invoiceRepo port.InvoiceRepository,
	txManager port.TransactionManager,
	logger Logger,
) StatsService {
	return &statsServiceImpl{
		entryRepo:   entryRepo,
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// Stats aggregates the ledger and quote store over the given range. All reads
// happen inside one store transaction so a report never sums a half-applied
// payment.
func (s *statsServiceImpl) Stats(ctx context.Context, r entity.DateRange) (*entity.PeriodStats, error) {
	var stats entity.PeriodStats

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		entries, err := s.entryRepo.List(ctx, entity.EntryFilter{Date: r})
		if err != nil {
			return err
		}
		for _, e := range entries {
			switch e.Type {
			case entity.EntryIncome:
				stats.Revenue += e.Amount
			case entity.EntryExpense:
				stats.Expenses -= e.Amount
			}
		}
		stats.NetProfit = stats.Revenue - stats.Expenses

		total, accepted, err := s.quoteRepo.CountByRange(ctx, r)
		if err != nil {
			return err
		}
		stats.QuoteCount = total
		stats.AcceptedQuotes = accepted

		orders, err := s.invoiceRepo.CountIssued(ctx, r)
		if err != nil {
			return err
		}
		stats.OrderCount = orders
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to compute period stats", "error", err)
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	// Rates are defined as zero when the denominator is zero, never NaN.
	if stats.QuoteCount > 0 {
		stats.ConversionRate = float64(stats.AcceptedQuotes) / float64(stats.QuoteCount) * 100
	}
	if stats.OrderCount > 0 {
		stats.AvgOrderValue = stats.Revenue / stats.OrderCount
	}
	return &stats, nil
}

// SalesByPeriod buckets revenue and order counts over the range: daily for
// spans up to a month, monthly otherwise.
func (s *statsServiceImpl) SalesByPeriod(ctx context.Context, r entity.DateRange) ([]entity.SalesPoint, error) {
	var entries []*entity.FinancialEntry
	var invoices []*entity.Invoice

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		entries, err = s.entryRepo.List(ctx, entity.EntryFilter{Type: entity.EntryIncome, Date: r})
		if err != nil {
			return err
		}
		invoices, err = s.invoiceRepo.List(ctx, entity.InvoiceFilter{Issued: r})
		return err
	})
	if err != nil {
		s.logger.Error("Failed to compute sales series", "error", err)
		return nil, fmt.Errorf("failed to compute sales series: %w", err)
	}

	layout := bucketLayout(r)
	revenue := make(map[string]int64)
	orders := make(map[string]int64)
	for _, e := range entries {
		revenue[e.Date.UTC().Format(layout)] += e.Amount
	}
	for _, inv := range invoices {
		if inv.Status == entity.InvoiceCancelled {
			continue
		}
		orders[inv.IssueDate.UTC().Format(layout)]++
	}

	labels := bucketLabels(r, layout, revenue, orders)
	points := make([]entity.SalesPoint, 0, len(labels))
	for _, label := range labels {
		points = append(points, entity.SalesPoint{
			Label:      label,
			Revenue:    revenue[label],
			OrderCount: orders[label],
		})
	}
	return points, nil
}

func bucketLayout(r entity.DateRange) string {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Sub(r.Start) <= maxDailySpan {
		return "2006-01-02"
	}
	return "2006-01"
}

// bucketLabels enumerates every bucket in a bounded range so the series has no
// holes; for open ranges it falls back to the buckets that have data.
func bucketLabels(r entity.DateRange, layout string, revenue, orders map[string]int64) []string {
	if r.Start.IsZero() || r.End.IsZero() {
		seen := make(map[string]bool)
		var labels []string
		for label := range revenue {
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
		for label := range orders {
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
		sort.Strings(labels)
		return labels
	}

	var labels []string
	if layout == "2006-01-02" {
		for t := r.Start.UTC().Truncate(24 * time.Hour); t.Before(r.End); t = t.AddDate(0, 0, 1) {
			labels = append(labels, t.Format(layout))
		}
	} else {
		start := r.Start.UTC()
		for t := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); t.Before(r.End); t = t.AddDate(0, 1, 0) {
			labels = append(labels, t.Format(layout))
		}
	}
	return labels
}
