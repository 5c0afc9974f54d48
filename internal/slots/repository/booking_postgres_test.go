package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			if r.values[i] != nil {
				*p = []byte(r.values[i].(string))
			}
		case *sql.NullString:
			if r.values[i] != nil {
				*p = sql.NullString{String: r.values[i].(string), Valid: true}
			}
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

func TestScanBooking(t *testing.T) {
	created := time.Date(2025, 12, 1, 9, 0, 0, 0, time.FixedZone("X", 7200))
	row := fakeRow{values: []any{
		"5b1f6a6e-6b1e-4f61-9d0c-0b1b6f2a7c11", "TD-1764579600000",
		"car1", "2025-12-05", "10:00 AM",
		`{"id":"car1","name":"Roadster"}`,
		`{"first_name":"Jane","last_name":"Doe","email":"jane@example.com"}`,
		nil, created,
	}}

	booking, err := scanBooking(row)
	require.NoError(t, err)
	assert.Equal(t, model.SlotKey{ResourceID: "car1", Date: "2025-12-05", TimeLabel: "10:00 AM"}, booking.SlotKey)
	require.NotNil(t, booking.Vehicle)
	assert.Equal(t, "Roadster", booking.Vehicle.Name)
	assert.Equal(t, "jane@example.com", booking.Registrant.Email)
	assert.Empty(t, booking.SessionID)
	assert.Equal(t, time.UTC, booking.CreatedAt.Location())
}

func TestScanBooking_WithoutVehicle(t *testing.T) {
	row := fakeRow{values: []any{
		"5b1f6a6e-6b1e-4f61-9d0c-0b1b6f2a7c11", "TD-1",
		"car1", "2025-12-05", "10:00 AM",
		nil, `{}`, "sessA", time.Now(),
	}}

	booking, err := scanBooking(row)
	require.NoError(t, err)
	assert.Nil(t, booking.Vehicle)
	assert.Equal(t, "sessA", booking.SessionID)
}

func TestScanBooking_PropagatesNoRows(t *testing.T) {
	_, err := scanBooking(fakeRow{err: sql.ErrNoRows})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestPostgresBookingRepository_RejectsInvalidID(t *testing.T) {
	repo := NewPostgresBookingRepository(nil, time.Second, time.Second)

	_, err := repo.FindByID(context.Background(), "42")
	assert.ErrorIs(t, err, slotserrors.ErrInvalidID)

	err = repo.Delete(context.Background(), "42")
	assert.ErrorIs(t, err, slotserrors.ErrInvalidID)
}
