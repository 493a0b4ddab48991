package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"wastewatch-backend/internal/store"
)

func TestMigrationsCreateEveryTable(t *testing.T) {
	all := strings.Join(Migrations, "\n")

	for _, table := range []string{"users", "reports", "bins", "drivers", "device_tokens"} {
		assert.Contains(t, all, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	// Every statement must be safe to re-run on startup.
	for _, stmt := range Migrations {
		assert.Contains(t, stmt, "IF NOT EXISTS", stmt)
	}
}

func TestMigrationsEnforceDomainConstraints(t *testing.T) {
	all := strings.Join(Migrations, "\n")

	assert.Contains(t, all, "email TEXT NOT NULL UNIQUE")
	assert.Contains(t, all, "availability OR current_route IS NOT NULL")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert user: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows), store.ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, notFound(other))
}
