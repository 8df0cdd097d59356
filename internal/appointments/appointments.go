package appointments

import (
	"errors"
	"time"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	Practitioner string    `json:"practitioner"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
}

type ScheduleAppointmentDTO struct {
	PatientID    string    `json:"patient_id"`
	Practitioner string    `json:"practitioner"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Notes        string    `json:"notes,omitempty"`
}

func (dto ScheduleAppointmentDTO) Validate() error {
	if dto.PatientID == "" {
		return errors.New("patient id is required")
	}
	if dto.Practitioner == "" {
		return errors.New("practitioner is required")
	}
	if dto.ScheduledAt.IsZero() {
		return errors.New("scheduled time is required")
	}
	if dto.ScheduledAt.Before(time.Now()) {
		return errors.New("scheduled time cannot be in the past")
	}
	return nil
}
