package client

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/ledgerdesk/pkg/constants"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

type CreateDTO struct {
	Name          string `json:"name" validate:"required,max=255"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	CompanyNumber string `json:"companyNumber" validate:"omitempty,alphanum,max=8"`
	AddressLine1  string `json:"addressLine1" validate:"max=255"`
	AddressLine2  string `json:"addressLine2" validate:"max=255"`
	PostTown      string `json:"postTown" validate:"max=128"`
	PostCode      string `json:"postCode" validate:"max=16"`
	Country       string `json:"country" validate:"max=64"`
	Notes         string `json:"notes" validate:"max=4000"`
}

type UpdateDTO CreateDTO

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.CompanyNumber = strings.ToUpper(strings.TrimSpace(d.CompanyNumber))
	d.AddressLine1 = strings.TrimSpace(d.AddressLine1)
	d.AddressLine2 = strings.TrimSpace(d.AddressLine2)
	d.PostTown = strings.TrimSpace(d.PostTown)
	d.PostCode = strings.ToUpper(strings.TrimSpace(d.PostCode))
	d.Country = strings.TrimSpace(d.Country)
	d.Notes = strings.TrimSpace(d.Notes)
}

// Validate normalizes d and returns serrors.ValidationErrors when a field
// is invalid.
func (d *CreateDTO) Validate() error {
	d.Normalize()
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(errs, &verrs) {
		return errs
	}
	return serrors.ProcessValidatorErrors(verrs, jsonName)
}

func (d *UpdateDTO) Validate() error {
	return (*CreateDTO)(d).Validate()
}

func (d *CreateDTO) ToEntity() *Client {
	return &Client{
		Name:          d.Name,
		Email:         d.Email,
		Phone:         d.Phone,
		CompanyNumber: d.CompanyNumber,
		AddressLine1:  d.AddressLine1,
		AddressLine2:  d.AddressLine2,
		PostTown:      d.PostTown,
		PostCode:      d.PostCode,
		Country:       d.Country,
		Notes:         d.Notes,
	}
}

// Apply copies the DTO onto an existing client.
func (d *UpdateDTO) Apply(c *Client) *Client {
	out := (*CreateDTO)(d).ToEntity()
	out.ID = c.ID
	out.CreatedAt = c.CreatedAt
	return out
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
