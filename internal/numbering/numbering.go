// Package numbering generates unique, human-readable document numbers.
//
// Numbers follow <PREFIX>-<YYYYMMDD>-<seq> with seq zero-padded to 3 digits.
// Sequences run independently per document kind and day, backed by a durable
// counter row. Allocation is serialized globally per process and atomic in the
// store, so concurrent callers never observe a duplicate; numbers end up on
// printed documents, which makes a collision a correctness bug rather than a
// retryable condition.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/application/port"
)

// Kind selects the document sequence to draw from.
type Kind string

const (
	KindQuote   Kind = "quote"
	KindInvoice Kind = "invoice"
)

// Prefix returns the printed prefix for the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindQuote:
		return "QUO"
	case KindInvoice:
		return "INV"
	default:
		return "DOC"
	}
}

// conflictRetries bounds internal retries on lost counter races. Allocation is
// idempotent from the caller's perspective, so retrying here is safe.
const conflictRetries = 3

// Service allocates document numbers.
type Service struct {
	mu       sync.Mutex
	counters port.CounterRepository
}

// New creates a numbering service over the given counter store.
func New(counters port.CounterRepository) *Service {
	return &Service{counters: counters}
}

// Next allocates the next number for the kind on the given date.
func (s *Service) Next(ctx context.Context, kind Kind, date time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dateKey := date.UTC().Format("20060102")

	var seq int64
	var err error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		seq, err = s.counters.Next(ctx, string(kind), dateKey)
		if err == nil {
			break
		}
		if !errors.Is(err, apperr.ErrConcurrencyConflict) {
			return "", fmt.Errorf("failed to allocate %s number: %w", kind, err)
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", kind, err)
	}

	return fmt.Sprintf("%s-%s-%03d", kind.Prefix(), dateKey, seq), nil
}
