package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/pkg/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

const bookingColumns = `id, registration_id, resource_id, date, time_label, vehicle, registrant, session_id, created_at`

type postgresBookingRepository struct {
	db           *sql.DB
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewPostgresBookingRepository relies on the UNIQUE (resource_id, date,
// time_label) constraint of the bookings table.
func NewPostgresBookingRepository(db *sql.DB, readTimeout, writeTimeout time.Duration) BookingRepository {
	return &postgresBookingRepository{
		db:           db,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (r *postgresBookingRepository) Exists(ctx context.Context, key model.SlotKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	query := `
	SELECT EXISTS (
		SELECT 1 FROM bookings WHERE resource_id = $1 AND date = $2 AND time_label = $3
	)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, key.ResourceID, key.Date, key.TimeLabel).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check booking: %w", err)
	}
	return exists, nil
}

func (r *postgresBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}

	registrant, err := json.Marshal(booking.Registrant)
	if err != nil {
		return fmt.Errorf("failed to encode registrant: %w", err)
	}
	var vehicle sql.NullString
	if booking.Vehicle != nil {
		encoded, err := json.Marshal(booking.Vehicle)
		if err != nil {
			return fmt.Errorf("failed to encode vehicle: %w", err)
		}
		vehicle = sql.NullString{String: string(encoded), Valid: true}
	}

	query := `
	INSERT INTO bookings (` + bookingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		booking.ID, booking.RegistrationID,
		booking.ResourceID, booking.Date, booking.TimeLabel,
		vehicle, string(registrant), booking.SessionID, booking.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return slotserrors.ErrBookingExists
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *postgresBookingRepository) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE resource_id = $1 AND date = $2`
	return r.query(ctx, query, resourceID, date)
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, invalidID(id)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return booking, nil
}

func (r *postgresBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at, id LIMIT $1 OFFSET $2`
	return r.query(ctx, query, limit, offset)
}

func (r *postgresBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *postgresBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return invalidID(id)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if affected == 0 {
		return slotserrors.ErrNotFound
	}
	return nil
}

func (r *postgresBookingRepository) query(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		booking    model.Booking
		vehicle    []byte
		registrant []byte
		sessionID  sql.NullString
	)
	err := row.Scan(
		&booking.ID, &booking.RegistrationID,
		&booking.ResourceID, &booking.Date, &booking.TimeLabel,
		&vehicle, &registrant, &sessionID, &booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(vehicle) > 0 {
		booking.Vehicle = &model.Vehicle{}
		if err := json.Unmarshal(vehicle, booking.Vehicle); err != nil {
			return nil, fmt.Errorf("failed to decode vehicle: %w", err)
		}
	}
	if len(registrant) > 0 {
		if err := json.Unmarshal(registrant, &booking.Registrant); err != nil {
			return nil, fmt.Errorf("failed to decode registrant: %w", err)
		}
	}
	booking.SessionID = sessionID.String
	booking.CreatedAt = booking.CreatedAt.UTC()
	return &booking, nil
}
