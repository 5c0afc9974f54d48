package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"testdrive/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	queries []string
	failAt  int
}

func (r *recordingExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	r.queries = append(r.queries, query)
	if r.failAt == len(r.queries) {
		return nil, errors.New("permission denied")
	}
	return nil, nil
}

func TestRunMigration(t *testing.T) {
	db := &recordingExecer{}

	require.NoError(t, RunMigration(context.Background(), db, logger.Discard()))
	require.Len(t, db.queries, len(statements))
	assert.Contains(t, db.queries[0], "UNIQUE (resource_id, date, time_label)")
	for _, q := range db.queries {
		assert.Contains(t, q, "IF NOT EXISTS")
	}
}

func TestRunMigration_StopsOnFailure(t *testing.T) {
	db := &recordingExecer{failAt: 2}

	err := RunMigration(context.Background(), db, logger.Discard())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "statement 2"))
	assert.Len(t, db.queries, 2)
}
