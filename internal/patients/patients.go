package patients

import (
	"errors"
	"strings"
)

// Patient is the record the clinic API returns for patient screens.
type Patient struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// CreatePatientDTO is the request payload for registering a patient.
type CreatePatientDTO struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address,omitempty"`
}

func (dto CreatePatientDTO) Validate() error {
	if dto.FirstName == "" {
		return errors.New("first name is required")
	}
	if dto.LastName == "" {
		return errors.New("last name is required")
	}
	if dto.DateOfBirth == "" {
		return errors.New("date of birth is required")
	}
	return nil
}
