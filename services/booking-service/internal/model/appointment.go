package model

import "time"

const MaxNotesLength = 500

type Appointment struct {
	ID        string
	StoreID   string
	ServiceID string
	ClientID  string
	StartTime time.Time
	// EndTime is StartTime plus the service duration at the time of the last write.
	EndTime   time.Time
	Status    Status
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentPatch carries the optional fields of an update. Nil means unchanged.
type AppointmentPatch struct {
	StartTime *time.Time
	EndTime   *time.Time
	Status    *Status
	Notes     *string
}

func (p AppointmentPatch) Empty() bool {
	return p.StartTime == nil && p.EndTime == nil && p.Status == nil && p.Notes == nil
}

// Apply returns a copy of a with the patch fields written over it.
func (p AppointmentPatch) Apply(a Appointment) Appointment {
	if p.StartTime != nil {
		a.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		a.EndTime = *p.EndTime
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	return a
}
