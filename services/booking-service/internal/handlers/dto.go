package handlers

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
)

var (
	errInvalidStartTime = errors.New("start_time must be an RFC3339 timestamp")
	errInvalidStatus    = errors.New("status must be one of pending, confirmed, completed, cancelled")
)

type createAppointmentRequest struct {
	StoreID   string `json:"store_id" validate:"required,max=64"`
	ServiceID string `json:"service_id" validate:"required,max=64"`
	StartTime string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Notes     string `json:"notes" validate:"max=500"`
}

type updateAppointmentRequest struct {
	StartTime *string `json:"start_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Status    *string `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

func (req createAppointmentRequest) toCreateRequest() (booking.CreateRequest, error) {
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return booking.CreateRequest{}, errInvalidStartTime
	}
	return booking.CreateRequest{
		StoreID:   req.StoreID,
		ServiceID: req.ServiceID,
		StartTime: start,
		Notes:     req.Notes,
	}, nil
}

func (req updateAppointmentRequest) toUpdateRequest() (booking.UpdateRequest, error) {
	upd := booking.UpdateRequest{Notes: req.Notes}
	if req.StartTime != nil {
		start, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			return booking.UpdateRequest{}, errInvalidStartTime
		}
		upd.StartTime = &start
	}
	if req.Status != nil {
		status, err := model.ParseStatus(*req.Status)
		if err != nil {
			return booking.UpdateRequest{}, errInvalidStatus
		}
		upd.Status = &status
	}
	return upd, nil
}

type slotsQuery struct {
	StoreID   string `validate:"required,max=64"`
	ServiceID string `validate:"required,max=64"`
	Date      string `validate:"required,datetime=2006-01-02"`
}

type appointmentResponse struct {
	ID        string `json:"id"`
	StoreID   string `json:"store_id"`
	ServiceID string `json:"service_id"`
	ClientID  string `json:"client_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type slotItem struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:        a.ID,
		StoreID:   a.StoreID,
		ServiceID: a.ServiceID,
		ClientID:  a.ClientID,
		StartTime: a.StartTime.UTC().Format(time.RFC3339),
		EndTime:   a.EndTime.UTC().Format(time.RFC3339),
		Status:    a.Status.String(),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toAppointmentList(appts []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toSlotItems(slots []model.TimeSlot) []slotItem {
	out := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotItem{
			Date:      s.Date,
			StartTime: s.Start.Format("15:04"),
			EndTime:   s.End.Format("15:04"),
		})
	}
	return out
}
