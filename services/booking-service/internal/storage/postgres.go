package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotkeeper/libs/db"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/outbox"
)

const appointmentColumns = `id::text, store_id, service_id, client_id, start_time, end_time, status, notes, created_at, updated_at`

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, events *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, outbox: events}
}

func (r *Postgres) FindByID(ctx context.Context, id string) (model.Appointment, error) {
	return findByID(ctx, r.pool, id, false)
}

func (r *Postgres) FindByStoreAndDateRange(ctx context.Context, storeID string, from, to time.Time) ([]model.Appointment, error) {
	return findByStoreAndDateRange(ctx, r.pool, storeID, from, to)
}

func (r *Postgres) ListByStore(ctx context.Context, storeID string, limit int) ([]model.Appointment, error) {
	return queryAppointments(ctx, r.pool, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE store_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, storeID, ClampLimit(limit))
}

func (r *Postgres) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	return queryAppointments(ctx, r.pool, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE client_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, clientID, ClampLimit(limit))
}

// WithinStoreLock takes a transaction-scoped advisory lock keyed by the store id. The
// exclusion constraint on appointments backs it up for writers that bypass the lock.
func (r *Postgres) WithinStoreLock(ctx context.Context, storeID string, fn func(ctx context.Context, tx Tx) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, storeID); err != nil {
			return fmt.Errorf("lock store: %w", err)
		}
		return fn(ctx, &pgTx{tx: tx, outbox: r.outbox})
	})
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *pgTx) FindByID(ctx context.Context, id string) (model.Appointment, error) {
	return findByID(ctx, t.tx, id, true)
}

func (t *pgTx) FindByStoreAndDateRange(ctx context.Context, storeID string, from, to time.Time) ([]model.Appointment, error) {
	return findByStoreAndDateRange(ctx, t.tx, storeID, from, to)
}

func (t *pgTx) Insert(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, store_id, service_id, client_id, start_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+appointmentColumns,
		a.ID, a.StoreID, a.ServiceID, a.ClientID, a.StartTime, a.EndTime, a.Status.String(), a.Notes, a.CreatedAt, a.UpdatedAt)
	out, err := scanAppointment(row)
	return out, mapError(err)
}

func (t *pgTx) ApplyPatch(ctx context.Context, id string, patch model.AppointmentPatch, updatedAt time.Time) (model.Appointment, error) {
	var status *string
	if patch.Status != nil {
		s := patch.Status.String()
		status = &s
	}
	row := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = COALESCE($2::timestamptz, start_time),
			end_time = COALESCE($3::timestamptz, end_time),
			status = COALESCE($4::text, status),
			notes = COALESCE($5::text, notes),
			updated_at = $6
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, patch.StartTime, patch.EndTime, status, patch.Notes, updatedAt)
	out, err := scanAppointment(row)
	return out, mapError(err)
}

func (t *pgTx) Delete(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func findByID(ctx context.Context, q queryer, id string, forUpdate bool) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, ErrNotFound
	}
	sql := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	a, err := scanAppointment(q.QueryRow(ctx, sql, id))
	return a, mapError(err)
}

func findByStoreAndDateRange(ctx context.Context, q queryer, storeID string, from, to time.Time) ([]model.Appointment, error) {
	return queryAppointments(ctx, q, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE store_id = $1
			AND start_time >= $2
			AND start_time < $3
			AND status <> 'cancelled'
		ORDER BY start_time ASC
	`, storeID, from, to)
}

func queryAppointments(ctx context.Context, q queryer, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	if err := row.Scan(&a.ID, &a.StoreID, &a.ServiceID, &a.ClientID, &a.StartTime, &a.EndTime, &status, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Appointment{}, err
	}
	s, err := model.ParseStatus(status)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = s
	return a, nil
}

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01", "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
