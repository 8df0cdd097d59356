package appointments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinicops/clinic-console/internal"
)

type APIClient interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

type Service struct {
	api    APIClient
	logger *slog.Logger
}

func NewService(api APIClient, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Appointment, error) {
	var out struct {
		Appointments []Appointment `json:"appointments"`
	}
	if err := s.api.Get(ctx, "/api/v1/appointments", &out); err != nil {
		s.logger.Warn("failed to list appointments", "error", err)
		return nil, err
	}
	return out.Appointments, nil
}

func (s *Service) Schedule(ctx context.Context, dto ScheduleAppointmentDTO) (*Appointment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		Appointment *Appointment `json:"appointment"`
	}
	if err := s.api.Post(ctx, "/api/v1/appointments", dto, &out); err != nil {
		s.logger.Warn("failed to schedule appointment", "error", err)
		return nil, err
	}
	if out.Appointment == nil {
		return nil, internal.NewAPIError(200, "schedule response missing appointment", internal.ErrCodeBadResponse)
	}
	s.logger.Info("appointment scheduled", "appointment_id", out.Appointment.ID, "patient_id", dto.PatientID)
	return out.Appointment, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	var out struct {
		Appointment *Appointment `json:"appointment"`
	}
	path := fmt.Sprintf("/api/v1/appointments/%s/cancel", id)
	if err := s.api.Post(ctx, path, nil, &out); err != nil {
		s.logger.Warn("failed to cancel appointment", "appointment_id", id, "error", err)
		return nil, err
	}
	if out.Appointment == nil {
		return nil, internal.NewAPIError(200, "cancel response missing appointment", internal.ErrCodeBadResponse)
	}
	return out.Appointment, nil
}
