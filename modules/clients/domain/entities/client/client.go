package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

var ErrNotFound = serrors.NewError("CLIENT_NOT_FOUND", "client not found", "Clients.Errors.NotFound")

type Client struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	CompanyNumber string    `json:"companyNumber,omitempty"`
	AddressLine1  string    `json:"addressLine1,omitempty"`
	AddressLine2  string    `json:"addressLine2,omitempty"`
	PostTown      string    `json:"postTown,omitempty"`
	PostCode      string    `json:"postCode,omitempty"`
	Country       string    `json:"country,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasPostalAddress reports whether a letter can be addressed to the client.
func (c *Client) HasPostalAddress() bool {
	return c.AddressLine1 != "" && c.PostCode != ""
}

type SortField string

const (
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "created_at"
)

type FindParams struct {
	Query         string   `form:"q"`
	CompanyNumber string   `form:"company_number"`
	Limit         int      `form:"limit"`
	Offset        int      `form:"offset"`
	SortBy        []string `form:"sort"`
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	List(ctx context.Context, params *FindParams) ([]*Client, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, c *Client) (*Client, error)
	Update(ctx context.Context, c *Client) (*Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
