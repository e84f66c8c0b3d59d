package document

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/ledgerdesk/pkg/constants"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

type AnalysisDTO struct {
	Task string `json:"task" validate:"required,max=200"`
}

func (d *AnalysisDTO) Validate() error {
	d.Task = strings.Join(strings.Fields(d.Task), " ")
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

// UploadDTO carries the form fields sent alongside an uploaded file.
type UploadDTO struct {
	Filename string `validate:"required,max=255"`
	Category string `validate:"omitempty,max=64"`
	Data     []byte `validate:"-"`
}

func (d *UploadDTO) Validate() error {
	d.Filename = strings.TrimSpace(d.Filename)
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	if len(d.Data) == 0 {
		return ErrEmpty
	}
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
