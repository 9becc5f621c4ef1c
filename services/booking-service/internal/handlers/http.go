package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/slotkeeper/libs/httpx"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/policy"
)

type AppointmentHandler struct {
	bookings  *booking.Service
	engine    *availability.Engine
	logger    *slog.Logger
	validator *validator.Validate
}

func NewAppointmentHandler(bookings *booking.Service, engine *availability.Engine, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		bookings:  bookings,
		engine:    engine,
		logger:    logger,
		validator: validator.New(),
	}
}

// Register mounts the public slot query and the authenticated appointment routes.
func (h *AppointmentHandler) Register(mux *http.ServeMux, requireAuth httpx.Middleware) {
	mux.HandleFunc("GET /api/v1/public/slots", h.Slots)

	authed := func(fn http.HandlerFunc) http.Handler { return requireAuth(fn) }
	mux.Handle("POST /api/v1/appointments", authed(h.Create))
	mux.Handle("GET /api/v1/appointments", authed(h.ListMine))
	mux.Handle("GET /api/v1/appointments/{id}", authed(h.Get))
	mux.Handle("PATCH /api/v1/appointments/{id}", authed(h.Update))
	mux.Handle("POST /api/v1/appointments/{id}/cancel", authed(h.Cancel))
	mux.Handle("DELETE /api/v1/appointments/{id}", authed(h.Delete))
	mux.Handle("GET /api/v1/stores/{store_id}/appointments", authed(h.ListStore))
}

func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := slotsQuery{
		StoreID:   strings.TrimSpace(r.URL.Query().Get("store_id")),
		ServiceID: strings.TrimSpace(r.URL.Query().Get("service_id")),
		Date:      strings.TrimSpace(r.URL.Query().Get("date")),
	}
	if err := h.validator.Struct(q); err != nil {
		http.Error(w, "store_id, service_id, and date (YYYY-MM-DD) are required", http.StatusBadRequest)
		return
	}

	slots, err := h.engine.ListAvailableSlots(r.Context(), q.StoreID, q.ServiceID, q.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlotItems(slots))
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StoreID = strings.TrimSpace(req.StoreID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := h.validator.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	create, err := req.toCreateRequest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.Create(r.Context(), caller(r), create)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.bookings.Get(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		req.Notes = &trimmed
	}
	if err := h.validator.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	upd, err := req.toUpdateRequest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.Update(r.Context(), caller(r), r.PathValue("id"), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	appt, err := h.bookings.Cancel(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.bookings.Delete(r.Context(), caller(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	appts, err := h.bookings.ListMine(r.Context(), caller(r), parseLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentList(appts))
}

func (h *AppointmentHandler) ListStore(w http.ResponseWriter, r *http.Request) {
	appts, err := h.bookings.ListStore(r.Context(), caller(r), r.PathValue("store_id"), parseLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentList(appts))
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForKind(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "request_id", httpx.RequestIDFromContext(r.Context()), "path", r.URL.Path, "err", err)
	}
	http.Error(w, apperr.Message(err), status)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// caller returns the context set by RequireAuth; unauthenticated requests get the zero value.
func caller(r *http.Request) policy.AuthorizationContext {
	ac, _ := policy.FromContext(r.Context())
	return ac
}

func parseLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "missing required field: " + jsonName(fe.Field())
	case "datetime":
		return "invalid " + jsonName(fe.Field())
	case "max":
		return jsonName(fe.Field()) + " is too long"
	case "oneof":
		return "invalid " + jsonName(fe.Field())
	default:
		return "invalid request"
	}
}

var fieldNames = map[string]string{
	"StoreID":   "store_id",
	"ServiceID": "service_id",
	"StartTime": "start_time",
	"Status":    "status",
	"Notes":     "notes",
	"Date":      "date",
}

func jsonName(field string) string {
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}
