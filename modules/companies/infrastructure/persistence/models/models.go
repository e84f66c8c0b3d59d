package models

import (
	"database/sql"
	"time"
)

type Company struct {
	CompanyNumber          string
	CompanyName            sql.NullString
	CompanyStatus          sql.NullString
	CompanyCategory        sql.NullString
	CountryOfOrigin        sql.NullString
	RegAddressCareOf       sql.NullString
	RegAddressPOBox        sql.NullString
	RegAddressLine1        sql.NullString
	RegAddressLine2        sql.NullString
	RegAddressPostTown     sql.NullString
	RegAddressCounty       sql.NullString
	RegAddressCountry      sql.NullString
	RegAddressPostCode     sql.NullString
	IncorporationDate      *time.Time
	DissolutionDate        *time.Time
	AccountsNextDueDate    *time.Time
	AccountsLastMadeUpDate *time.Time
	ConfStmtNextDueDate    *time.Time
	ConfStmtLastMadeUpDate *time.Time
	SICCode1               sql.NullString
	SICCode2               sql.NullString
	SICCode3               sql.NullString
	SICCode4               sql.NullString
	URI                    sql.NullString
	UpdatedAt              time.Time
}
