package repository

import (
	"context"
	"fmt"

	"trip-booking/internal/data/entity"
	"trip-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TripRepository is read-only: trips belong to the trip-management side of the
// system and this core only consults price and capacity.
type TripRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error)
	// LockByID takes a row lock on the trip so concurrent confirmations for
	// the same trip serialize. Only meaningful inside RunInTx.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error)
}

type tripRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTripRepository(db database.PgxIface, log *zap.Logger) TripRepository {
	return &tripRepository{
		db:  db,
		log: log.With(zap.String("repository", "trip")),
	}
}

func (r *tripRepository) q(ctx context.Context) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

const tripColumns = `id, title, price, capacity, status, created_at, updated_at`

func scanTrip(row pgx.Row) (*entity.Trip, error) {
	var trip entity.Trip
	err := row.Scan(
		&trip.ID,
		&trip.Title,
		&trip.Price,
		&trip.Capacity,
		&trip.Status,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *tripRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q(ctx).QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find trip by ID",
			zap.Error(err),
			zap.String("trip_id", id.String()),
		)
		return nil, fmt.Errorf("find trip by ID %s: %w", id.String(), err)
	}

	return trip, nil
}

func (r *tripRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	trip, err := scanTrip(r.q(ctx).QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock trip by ID",
			zap.Error(err),
			zap.String("trip_id", id.String()),
		)
		return nil, fmt.Errorf("lock trip by ID %s: %w", id.String(), err)
	}

	return trip, nil
}
