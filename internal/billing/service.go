package billing

import (
	"context"
	"log/slog"

	"github.com/clinicops/clinic-console/internal"
)

type APIClient interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Service covers the invoice, payment, product and expense screens. All of
// them are plain reads and writes against the billing endpoints; the session
// cookies on the transport decide whether they are allowed.
type Service struct {
	api    APIClient
	logger *slog.Logger
}

func NewService(api APIClient, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

func (s *Service) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var out struct {
		Invoices []Invoice `json:"invoices"`
	}
	if err := s.api.Get(ctx, "/api/v1/billing/invoices", &out); err != nil {
		s.logger.Warn("failed to list invoices", "error", err)
		return nil, err
	}
	return out.Invoices, nil
}

func (s *Service) CreateInvoice(ctx context.Context, dto CreateInvoiceDTO) (*Invoice, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		Invoice *Invoice `json:"invoice"`
	}
	if err := s.api.Post(ctx, "/api/v1/billing/invoices", dto, &out); err != nil {
		s.logger.Warn("failed to create invoice", "error", err)
		return nil, err
	}
	if out.Invoice == nil {
		return nil, internal.NewAPIError(200, "create invoice response missing invoice", internal.ErrCodeBadResponse)
	}
	s.logger.Info("invoice created", "invoice_id", out.Invoice.ID, "patient_id", dto.PatientID)
	return out.Invoice, nil
}

func (s *Service) RecordPayment(ctx context.Context, dto RecordPaymentDTO) (*Payment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		Payment *Payment `json:"payment"`
	}
	if err := s.api.Post(ctx, "/api/v1/billing/payments", dto, &out); err != nil {
		s.logger.Warn("failed to record payment", "invoice_id", dto.InvoiceID, "error", err)
		return nil, err
	}
	if out.Payment == nil {
		return nil, internal.NewAPIError(200, "record payment response missing payment", internal.ErrCodeBadResponse)
	}
	s.logger.Info("payment recorded", "payment_id", out.Payment.ID, "invoice_id", dto.InvoiceID)
	return out.Payment, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	if err := s.api.Get(ctx, "/api/v1/billing/products", &out); err != nil {
		s.logger.Warn("failed to list products", "error", err)
		return nil, err
	}
	return out.Products, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]Expense, error) {
	var out struct {
		Expenses []Expense `json:"expenses"`
	}
	if err := s.api.Get(ctx, "/api/v1/billing/expenses", &out); err != nil {
		s.logger.Warn("failed to list expenses", "error", err)
		return nil, err
	}
	return out.Expenses, nil
}
