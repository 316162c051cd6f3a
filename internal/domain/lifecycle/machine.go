// Package lifecycle owns the quote status state machine. The transition table is
// configured once through a builder and consulted by the quote store on every
// status write; transitions outside the table are reported, never silently dropped.
package lifecycle

import (
	"fmt"
	"sort"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// Machine validates status transitions against a fixed table.
type Machine struct {
	allowed map[entity.QuoteStatus]map[entity.QuoteStatus]bool
}

// Builder assembles a transition table.
type Builder struct {
	allowed map[entity.QuoteStatus]map[entity.QuoteStatus]bool
}

// StateConfig configures the transitions leaving one state.
type StateConfig struct {
	builder *Builder
	from    entity.QuoteStatus
}

// NewBuilder creates an empty transition-table builder.
func NewBuilder() *Builder {
	return &Builder{allowed: make(map[entity.QuoteStatus]map[entity.QuoteStatus]bool)}
}

// Configure returns the configuration for transitions leaving the given state.
func (b *Builder) Configure(from entity.QuoteStatus) *StateConfig {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", from))
	}
	if _, ok := b.allowed[from]; !ok {
		b.allowed[from] = make(map[entity.QuoteStatus]bool)
	}
	return &StateConfig{builder: b, from: from}
}

// Permit allows a transition from the configured state to the target state.
func (c *StateConfig) Permit(to entity.QuoteStatus) *StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	c.builder.allowed[c.from][to] = true
	return c
}

// Build freezes the table into an immutable machine.
func (b *Builder) Build() *Machine {
	allowed := make(map[entity.QuoteStatus]map[entity.QuoteStatus]bool, len(b.allowed))
	for from, targets := range b.allowed {
		copied := make(map[entity.QuoteStatus]bool, len(targets))
		for to := range targets {
			copied[to] = true
		}
		allowed[from] = copied
	}
	return &Machine{allowed: allowed}
}

// CanMove reports whether the transition from -> to is in the table.
func (m *Machine) CanMove(from, to entity.QuoteStatus) bool {
	return m.allowed[from][to]
}

// Validate returns an InvalidTransitionError when from -> to is not permitted.
func (m *Machine) Validate(from, to entity.QuoteStatus) error {
	if !to.IsValid() {
		return apperr.NewValidation("status", "unknown status: "+to.String())
	}
	if !m.CanMove(from, to) {
		return apperr.NewInvalidTransition("quote", from.String(), to.String())
	}
	return nil
}

// Permitted returns the target states reachable from the given state, sorted.
func (m *Machine) Permitted(from entity.QuoteStatus) []entity.QuoteStatus {
	targets := make([]entity.QuoteStatus, 0, len(m.allowed[from]))
	for to := range m.allowed[from] {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// ForQuotes builds the quote lifecycle table:
//
//	pending -> sent | expired
//	sent    -> sent | accepted | rejected | expired
//
// accepted, rejected and expired are terminal. sent -> sent is the idempotent
// re-send; the store keeps the original sentAt timestamp.
func ForQuotes() *Machine {
	b := NewBuilder()
	b.Configure(entity.QuotePending).
		Permit(entity.QuoteSent).
		Permit(entity.QuoteExpired)
	b.Configure(entity.QuoteSent).
		Permit(entity.QuoteSent).
		Permit(entity.QuoteAccepted).
		Permit(entity.QuoteRejected).
		Permit(entity.QuoteExpired)
	return b.Build()
}
