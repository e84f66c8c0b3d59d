package models

import (
	"database/sql"
	"time"
)

type Client struct {
	ID            string
	Name          string
	Email         sql.NullString
	Phone         sql.NullString
	CompanyNumber sql.NullString
	AddressLine1  sql.NullString
	AddressLine2  sql.NullString
	PostTown      sql.NullString
	PostCode      sql.NullString
	Country       sql.NullString
	Notes         sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
