package patients

import (
	"context"
	"log/slog"

	"github.com/clinicops/clinic-console/internal"
)

// APIClient is the slice of the transport client this service needs.
type APIClient interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Service is the thin patient-screen client: validate input, call the API,
// hand back records. Authentication rides on the transport's cookies; a 401
// surfaces as the not-authenticated error for the caller to handle.
type Service struct {
	api    APIClient
	logger *slog.Logger
}

func NewService(api APIClient, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Patient, error) {
	var out struct {
		Patients []Patient `json:"patients"`
	}
	if err := s.api.Get(ctx, "/api/v1/patients", &out); err != nil {
		s.logger.Warn("failed to list patients", "error", err)
		return nil, err
	}
	return out.Patients, nil
}

func (s *Service) Create(ctx context.Context, dto CreatePatientDTO) (*Patient, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		Patient *Patient `json:"patient"`
	}
	if err := s.api.Post(ctx, "/api/v1/patients", dto, &out); err != nil {
		s.logger.Warn("failed to create patient", "error", err)
		return nil, err
	}
	if out.Patient == nil {
		return nil, internal.NewAPIError(200, "create patient response missing patient", internal.ErrCodeBadResponse)
	}
	s.logger.Info("patient created", "patient_id", out.Patient.ID)
	return out.Patient, nil
}
