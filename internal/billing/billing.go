package billing

import (
	"errors"
	"time"
)

const (
	InvoiceStatusOpen    = "open"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusVoid    = "void"
	PaymentStatusSettled = "settled"
)

type Invoice struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patient_id"`
	Number      string     `json:"number"`
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
}

type Payment struct {
	ID          string `json:"id"`
	InvoiceID   string `json:"invoice_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Status      string `json:"status"`
}

type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type Expense struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
}

type CreateInvoiceDTO struct {
	PatientID   string `json:"patient_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
}

func (dto CreateInvoiceDTO) Validate() error {
	if dto.PatientID == "" {
		return errors.New("patient id is required")
	}
	if dto.AmountCents <= 0 {
		return errors.New("amount must be greater than 0")
	}
	return nil
}

type RecordPaymentDTO struct {
	InvoiceID   string `json:"invoice_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
}

func (dto RecordPaymentDTO) Validate() error {
	if dto.InvoiceID == "" {
		return errors.New("invoice id is required")
	}
	if dto.AmountCents <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if dto.Method == "" {
		return errors.New("payment method is required")
	}
	return nil
}
