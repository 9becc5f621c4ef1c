// Package booking runs the appointment lifecycle: create, update, cancel and delete,
// each as one atomic decision under the store's write lock.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Service struct {
	catalog catalog.Reader
	repo    storage.Repository
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(cat catalog.Reader, repo storage.Repository, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: cat, repo: repo, logger: logger, now: now}
}

type CreateRequest struct {
	StoreID   string
	ServiceID string
	StartTime time.Time
	Notes     string
}

// UpdateRequest holds the optional fields of an update; nil leaves a field unchanged.
type UpdateRequest struct {
	StartTime *time.Time
	Status    *model.Status
	Notes     *string
}

func (r UpdateRequest) Empty() bool {
	return r.StartTime == nil && r.Status == nil && r.Notes == nil
}

func (s *Service) Create(ctx context.Context, ac policy.AuthorizationContext, req CreateRequest) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.Create", attribute.String("store_id", req.StoreID))
	defer func() { endSpan(span, err) }()

	if !ac.CanBook() {
		return model.Appointment{}, apperr.Forbidden("only clients can book appointments")
	}
	notes, err := normalizeNotes(req.Notes)
	if err != nil {
		return model.Appointment{}, err
	}
	target, err := availability.Resolve(ctx, s.catalog, req.StoreID, req.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}

	now := s.now()
	start := req.StartTime.Truncate(time.Minute)
	end := start.Add(target.Service.Duration())
	if err := s.checkSchedulable(target, req.StartTime, start, now); err != nil {
		return model.Appointment{}, err
	}

	var created model.Appointment
	err = s.repo.WithinStoreLock(ctx, target.Store.ID, func(ctx context.Context, tx storage.Tx) error {
		if err := s.checkFree(ctx, tx, target, start, end, ""); err != nil {
			return err
		}
		a, err := tx.Insert(ctx, model.Appointment{
			ID:        uuid.NewString(),
			StoreID:   target.Store.ID,
			ServiceID: target.Service.ID,
			ClientID:  ac.UserID,
			StartTime: start.UTC(),
			EndTime:   end.UTC(),
			Status:    model.StatusPending,
			Notes:     notes,
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		})
		if err != nil {
			return err
		}
		created = a
		return appendEvent(ctx, tx, outbox.EventAppointmentCreated, a, now)
	})
	if err != nil {
		return model.Appointment{}, translate(err)
	}

	s.logger.Info("appointment created", "appointment_id", created.ID, "store_id", created.StoreID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, ac policy.AuthorizationContext, id string, req UpdateRequest) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.Update", attribute.String("appointment_id", id))
	defer func() { endSpan(span, err) }()

	var notes *string
	if req.Notes != nil {
		n, err := normalizeNotes(*req.Notes)
		if err != nil {
			return model.Appointment{}, err
		}
		notes = &n
	}

	var updated model.Appointment
	err = s.withAppointment(ctx, id, func(ctx context.Context, tx storage.Tx, a model.Appointment) error {
		if !ac.CanModify(a) {
			return apperr.Forbidden("not allowed to modify this appointment")
		}
		if a.Status == model.StatusCancelled {
			return apperr.BadRequest("cannot update a cancelled appointment")
		}
		if req.Empty() {
			updated = a
			return nil
		}

		patch := model.AppointmentPatch{Notes: notes}
		if req.Status != nil && *req.Status != a.Status {
			if !ac.CanChangeStatus(a) {
				return apperr.Forbidden("only the store owner can change status")
			}
			if !a.Status.CanTransitionTo(*req.Status) {
				return apperr.BadRequest("invalid status transition")
			}
			patch.Status = req.Status
		}
		if req.StartTime != nil {
			start, end, err := s.reschedule(ctx, tx, ac, a, *req.StartTime)
			if err != nil {
				return err
			}
			patch.StartTime, patch.EndTime = &start, &end
		}
		if patch.Empty() {
			updated = a
			return nil
		}

		now := s.now()
		next, err := tx.ApplyPatch(ctx, a.ID, patch, now.UTC())
		if err != nil {
			return err
		}
		updated = next
		eventType := outbox.EventAppointmentUpdated
		if next.Status == model.StatusCancelled {
			eventType = outbox.EventAppointmentCancelled
		}
		return appendEvent(ctx, tx, eventType, next, now)
	})
	if err != nil {
		return model.Appointment{}, translate(err)
	}

	s.logger.Info("appointment updated", "appointment_id", updated.ID, "status", updated.Status.String())
	return updated, nil
}

// reschedule computes the new interval for a start-time patch. Clients go through the
// same checks as Create; store owners skip them and rely on the storage overlap guard.
func (s *Service) reschedule(ctx context.Context, tx storage.Tx, ac policy.AuthorizationContext, a model.Appointment, requested time.Time) (time.Time, time.Time, error) {
	target, err := availability.Resolve(ctx, s.catalog, a.StoreID, a.ServiceID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := requested.Truncate(time.Minute)
	end := start.Add(target.Service.Duration())

	if !ac.IsOperatorOf(a.StoreID) {
		if err := s.checkSchedulable(target, requested, start, s.now()); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if err := s.checkFree(ctx, tx, target, start, end, a.ID); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start.UTC(), end.UTC(), nil
}

func (s *Service) Cancel(ctx context.Context, ac policy.AuthorizationContext, id string) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.Cancel", attribute.String("appointment_id", id))
	defer func() { endSpan(span, err) }()

	var cancelled model.Appointment
	err = s.withAppointment(ctx, id, func(ctx context.Context, tx storage.Tx, a model.Appointment) error {
		if !ac.CanModify(a) {
			return apperr.Forbidden("not allowed to cancel this appointment")
		}
		switch a.Status {
		case model.StatusCancelled:
			return apperr.BadRequest("appointment is already cancelled")
		case model.StatusConfirmed:
			return apperr.BadRequest("cannot cancel a confirmed appointment")
		case model.StatusCompleted:
			return apperr.BadRequest("cannot cancel a completed appointment")
		}

		now := s.now()
		status := model.StatusCancelled
		next, err := tx.ApplyPatch(ctx, a.ID, model.AppointmentPatch{Status: &status}, now.UTC())
		if err != nil {
			return err
		}
		cancelled = next
		return appendEvent(ctx, tx, outbox.EventAppointmentCancelled, next, now)
	})
	if err != nil {
		return model.Appointment{}, translate(err)
	}

	s.logger.Info("appointment cancelled", "appointment_id", cancelled.ID, "store_id", cancelled.StoreID)
	return cancelled, nil
}

func (s *Service) Delete(ctx context.Context, ac policy.AuthorizationContext, id string) (err error) {
	ctx, span := startSpan(ctx, "booking.Delete", attribute.String("appointment_id", id))
	defer func() { endSpan(span, err) }()

	err = s.withAppointment(ctx, id, func(ctx context.Context, tx storage.Tx, a model.Appointment) error {
		if !ac.CanDelete(a) {
			return apperr.Forbidden("only the client who booked can delete this appointment")
		}
		if err := tx.Delete(ctx, a.ID); err != nil {
			return err
		}
		return appendEvent(ctx, tx, outbox.EventAppointmentDeleted, a, s.now())
	})
	if err != nil {
		return translate(err)
	}

	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, ac policy.AuthorizationContext, id string) (model.Appointment, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	if !ac.CanRead(a) {
		return model.Appointment{}, apperr.Forbidden("not allowed to read this appointment")
	}
	return a, nil
}

func (s *Service) ListStore(ctx context.Context, ac policy.AuthorizationContext, storeID string, limit int) ([]model.Appointment, error) {
	if !ac.CanListStore(storeID) {
		return nil, apperr.Forbidden("only the store operator can list its appointments")
	}
	out, err := s.repo.ListByStore(ctx, storeID, limit)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Service) ListMine(ctx context.Context, ac policy.AuthorizationContext, limit int) ([]model.Appointment, error) {
	if !ac.Authenticated() {
		return nil, apperr.Forbidden("authentication required")
	}
	out, err := s.repo.ListByClient(ctx, ac.UserID, limit)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// withAppointment locates id, takes its store's lock and re-reads it so fn decides on
// the row as it is while no other writer can touch the store.
func (s *Service) withAppointment(ctx context.Context, id string, fn func(ctx context.Context, tx storage.Tx, a model.Appointment) error) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.WithinStoreLock(ctx, current.StoreID, func(ctx context.Context, tx storage.Tx) error {
		a, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, tx, a)
	})
}

// checkSchedulable compares the requested instant against now before truncation so a
// start seconds ahead of now within the same minute still counts as future; the
// stored (truncated) start is what must fall inside working hours.
func (s *Service) checkSchedulable(target availability.Target, requested, start, now time.Time) error {
	if !requested.After(now) {
		return apperr.BadRequest("start time must be in the future")
	}
	if !availability.IsOpenAt(target.Store.WorkingDays, start.In(target.Location)) {
		return apperr.BadRequest("start time is outside working hours")
	}
	return nil
}

func (s *Service) checkFree(ctx context.Context, tx storage.Tx, target availability.Target, start, end time.Time, excludeID string) error {
	existing, durationOf, err := availability.BusyAround(ctx, s.catalog, tx, target.Store.ID, start.In(target.Location))
	if err != nil {
		return err
	}
	if availability.Overlaps(start, end, existing, durationOf, excludeID) {
		return apperr.Conflict("time slot is not available")
	}
	return nil
}

func normalizeNotes(raw string) (string, error) {
	notes := strings.TrimSpace(raw)
	if utf8.RuneCountInString(notes) > model.MaxNotesLength {
		return "", apperr.BadRequest("notes must be at most 500 characters")
	}
	return notes, nil
}

func appendEvent(ctx context.Context, tx storage.Tx, eventType string, a model.Appointment, at time.Time) error {
	evt, err := outbox.AppointmentEvent(eventType, a, at)
	if err != nil {
		return apperr.Internal("encode event", err)
	}
	return tx.AppendEvent(ctx, evt)
}

// translate maps storage sentinels onto the error taxonomy.
func translate(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("appointment not found")
	case errors.Is(err, storage.ErrConflict):
		return apperr.Conflict("time slot is not available")
	default:
		return apperr.Internal("storage failure", err)
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("booking").Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}
