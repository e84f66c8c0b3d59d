package reminder

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/ledgerdesk/pkg/constants"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

type CreateDTO struct {
	Channel string    `json:"channel" validate:"required,oneof=email post"`
	Subject string    `json:"subject" validate:"required,max=255"`
	Body    string    `json:"body" validate:"required,max=10000"`
	DueAt   time.Time `json:"dueAt" validate:"required"`
}

func (d *CreateDTO) Validate() error {
	d.Channel = strings.ToLower(strings.TrimSpace(d.Channel))
	d.Subject = strings.TrimSpace(d.Subject)
	d.Body = strings.TrimSpace(d.Body)
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(errs, &verrs) {
		return errs
	}
	return serrors.ProcessValidatorErrors(verrs, strings.ToLower)
}

func (d *CreateDTO) ToEntity(clientID uuid.UUID) *Reminder {
	return &Reminder{
		ClientID:    clientID,
		Kind:        KindCustom,
		Channel:     Channel(d.Channel),
		Subject:     d.Subject,
		Body:        d.Body,
		DueAt:       d.DueAt,
		Status:      StatusPending,
		AvailableAt: d.DueAt,
	}
}
