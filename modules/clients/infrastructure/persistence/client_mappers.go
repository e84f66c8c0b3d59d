package persistence

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/clients/infrastructure/persistence/models"
)

func ToDomainClient(m *models.Client) (*client.Client, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse uuid")
	}
	return &client.Client{
		ID:            id,
		Name:          m.Name,
		Email:         m.Email.String,
		Phone:         m.Phone.String,
		CompanyNumber: m.CompanyNumber.String,
		AddressLine1:  m.AddressLine1.String,
		AddressLine2:  m.AddressLine2.String,
		PostTown:      m.PostTown.String,
		PostCode:      m.PostCode.String,
		Country:       m.Country.String,
		Notes:         m.Notes.String,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func ToDBClient(c *client.Client) *models.Client {
	return &models.Client{
		ID:            c.ID.String(),
		Name:          c.Name,
		Email:         nullString(c.Email),
		Phone:         nullString(c.Phone),
		CompanyNumber: nullString(c.CompanyNumber),
		AddressLine1:  nullString(c.AddressLine1),
		AddressLine2:  nullString(c.AddressLine2),
		PostTown:      nullString(c.PostTown),
		PostCode:      nullString(c.PostCode),
		Country:       nullString(c.Country),
		Notes:         nullString(c.Notes),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
