package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotkeeper/libs/db"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

type Postgres struct {
	pool *db.Pool
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (r *Postgres) GetStore(ctx context.Context, storeID string) (model.Store, error) {
	var s model.Store
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, timezone, booking_interval_minutes
		FROM stores
		WHERE id = $1
	`, storeID).Scan(&s.ID, &s.OwnerID, &s.Timezone, &s.BookingIntervalMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Store{}, ErrNotFound
	}
	if err != nil {
		return model.Store{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_open, open_minute, close_minute
		FROM store_working_days
		WHERE store_id = $1
		ORDER BY weekday ASC
	`, storeID)
	if err != nil {
		return model.Store{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			wd int
			d  model.WorkingDay
		)
		if err := rows.Scan(&wd, &d.IsOpen, &d.OpenMinute, &d.CloseMinute); err != nil {
			return model.Store{}, err
		}
		d.Weekday = time.Weekday(wd)
		s.WorkingDays = append(s.WorkingDays, d)
	}
	if rows.Err() != nil {
		return model.Store{}, rows.Err()
	}
	return s, nil
}

func (r *Postgres) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, store_id, duration_minutes
		FROM services
		WHERE id = $1
	`, serviceID).Scan(&s.ID, &s.StoreID, &s.DurationMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Service{}, ErrNotFound
	}
	return s, err
}

func (r *Postgres) ListServices(ctx context.Context, storeID string) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, store_id, duration_minutes
		FROM services
		WHERE store_id = $1
		ORDER BY id ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.StoreID, &s.DurationMinutes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Postgres) StoreOwnedBy(ctx context.Context, userID string) (model.Store, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM stores WHERE owner_id = $1 ORDER BY id ASC LIMIT 1
	`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Store{}, ErrNotFound
	}
	if err != nil {
		return model.Store{}, err
	}
	return r.GetStore(ctx, id)
}

// UpsertStore replaces the store row and all seven working days in one transaction.
func (r *Postgres) UpsertStore(ctx context.Context, store model.Store) error {
	if err := store.Validate(); err != nil {
		return err
	}
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stores (id, owner_id, timezone, booking_interval_minutes)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET owner_id = EXCLUDED.owner_id,
				timezone = EXCLUDED.timezone,
				booking_interval_minutes = EXCLUDED.booking_interval_minutes,
				updated_at = now()
		`, store.ID, store.OwnerID, store.Timezone, store.BookingIntervalMinutes); err != nil {
			return fmt.Errorf("upsert store: %w", err)
		}
		for _, d := range store.WorkingDays {
			if _, err := tx.Exec(ctx, `
				INSERT INTO store_working_days (store_id, weekday, is_open, open_minute, close_minute)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (store_id, weekday) DO UPDATE
				SET is_open = EXCLUDED.is_open,
					open_minute = EXCLUDED.open_minute,
					close_minute = EXCLUDED.close_minute
			`, store.ID, int(d.Weekday), d.IsOpen, d.OpenMinute, d.CloseMinute); err != nil {
				return fmt.Errorf("upsert working day %s: %w", d.Weekday, err)
			}
		}
		return nil
	})
}

func (r *Postgres) UpsertService(ctx context.Context, service model.Service) error {
	if err := service.Validate(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, store_id, duration_minutes)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET store_id = EXCLUDED.store_id,
			duration_minutes = EXCLUDED.duration_minutes,
			updated_at = now()
	`, service.ID, service.StoreID, service.DurationMinutes)
	return err
}
