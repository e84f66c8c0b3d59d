package company

import (
	"context"
	"time"

	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

var ErrNotFound = serrors.NewError("COMPANY_NOT_FOUND", "company not found", "Companies.Errors.NotFound")

type Address struct {
	CareOf   string `json:"careOf,omitempty"`
	POBox    string `json:"poBox,omitempty"`
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	PostTown string `json:"postTown,omitempty"`
	County   string `json:"county,omitempty"`
	Country  string `json:"country,omitempty"`
	PostCode string `json:"postCode,omitempty"`
}

type Company struct {
	Number            string     `json:"number"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	Category          string     `json:"category,omitempty"`
	CountryOfOrigin   string     `json:"countryOfOrigin,omitempty"`
	Address           Address    `json:"address"`
	IncorporationDate *time.Time `json:"incorporationDate,omitempty"`
	DissolutionDate   *time.Time `json:"dissolutionDate,omitempty"`
	AccountsNextDue   *time.Time `json:"accountsNextDue,omitempty"`
	AccountsLastMade  *time.Time `json:"accountsLastMadeUp,omitempty"`
	ConfStmtNextDue   *time.Time `json:"confirmationStatementNextDue,omitempty"`
	ConfStmtLastMade  *time.Time `json:"confirmationStatementLastMadeUp,omitempty"`
	SICCodes          []string   `json:"sicCodes,omitempty"`
	URI               string     `json:"uri,omitempty"`
	// Source is "store" for rows read from the companies table and
	// "registry" for live lookups.
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// NextDeadline returns the earlier of the accounts and confirmation
// statement due dates, or nil when neither is known.
func (c *Company) NextDeadline() *time.Time {
	switch {
	case c.AccountsNextDue == nil:
		return c.ConfStmtNextDue
	case c.ConfStmtNextDue == nil:
		return c.AccountsNextDue
	case c.ConfStmtNextDue.Before(*c.AccountsNextDue):
		return c.ConfStmtNextDue
	default:
		return c.AccountsNextDue
	}
}

type DueParams struct {
	Before time.Time
	Limit  int
	Offset int
}

type Repository interface {
	// Upsert writes rows keyed by company_number. Columns outside the
	// destination table are ignored.
	Upsert(ctx context.Context, columns []string, rows [][]string) error
	GetByNumber(ctx context.Context, number string) (*Company, error)
	ListDue(ctx context.Context, params *DueParams) ([]*Company, error)
}
