package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
	"github.com/iota-uz/ledgerdesk/pkg/tabular"
)

var statuses = httpapi.StatusMapper{
	tabular.ErrNoRows.Code:           http.StatusUnprocessableEntity,
	tabular.ErrParse.Code:            http.StatusBadRequest,
	tabular.ErrHeaderNotFound.Code:   http.StatusBadRequest,
	services.ErrUnsupportedFile.Code: http.StatusUnsupportedMediaType,
	services.ErrFileTooLarge.Code:    http.StatusRequestEntityTooLarge,
	services.ErrEmptyFile.Code:       http.StatusBadRequest,
	services.ErrInvalidNumber.Code:   http.StatusBadRequest,
	company.ErrNotFound.Code:         http.StatusNotFound,
	storage.ErrNotFound.Code:         http.StatusNotFound,
	storage.ErrInvalidPath.Code:      http.StatusBadRequest,
	errMissingFile.Code:              http.StatusBadRequest,
}

var errMissingFile = serrors.NewError("UPLOAD_MISSING_FILE", "multipart field \"file\" is required", "Import.Errors.MissingFile")

type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// readUpload reads the multipart "file" field, capped at maxSize bytes.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize, maxMemory int64) (*upload, error) {
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit %d bytes", services.ErrFileTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %w", errMissingFile, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errMissingFile
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func writeError(w http.ResponseWriter, err error) {
	_ = httpapi.WriteServiceError(w, err, statuses)
}
