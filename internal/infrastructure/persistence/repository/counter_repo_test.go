package repository

import (
	"errors"
	"fmt"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/ormeda/labdesk/internal/apperr"
)

func TestConflictOnBusyMapsDriverBusyErrors(t *testing.T) {
	busy := fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrBusy})
	assert.ErrorIs(t, conflictOnBusy(busy), apperr.ErrConcurrencyConflict)

	locked := sqlite3.Error{Code: sqlite3.ErrLocked}
	assert.ErrorIs(t, conflictOnBusy(locked), apperr.ErrConcurrencyConflict)
}

func TestConflictOnBusyPassesOtherErrorsThrough(t *testing.T) {
	plain := errors.New("disk I/O error")
	assert.Equal(t, plain, conflictOnBusy(plain))

	corrupt := sqlite3.Error{Code: sqlite3.ErrCorrupt}
	assert.NotErrorIs(t, conflictOnBusy(corrupt), apperr.ErrConcurrencyConflict)
}
