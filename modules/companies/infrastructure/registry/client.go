// Package registry is a client for the public Companies House API.
package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
)

type Options struct {
	BaseURL string
	APIKey  string
	RPS     float64
	Burst   int
	Timeout time.Duration
	Client  *http.Client
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.Client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		opts.Client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    opts.Client,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type profile struct {
	CompanyName          string   `json:"company_name"`
	CompanyNumber        string   `json:"company_number"`
	CompanyStatus        string   `json:"company_status"`
	Type                 string   `json:"type"`
	DateOfCreation       string   `json:"date_of_creation"`
	DateOfCessation      string   `json:"date_of_cessation"`
	SICCodes             []string `json:"sic_codes"`
	RegisteredOfficeAddr address  `json:"registered_office_address"`
	Accounts             struct {
		NextDue      string `json:"next_due"`
		LastAccounts struct {
			MadeUpTo string `json:"made_up_to"`
		} `json:"last_accounts"`
	} `json:"accounts"`
	ConfirmationStatement struct {
		NextDue      string `json:"next_due"`
		LastMadeUpTo string `json:"last_made_up_to"`
	} `json:"confirmation_statement"`
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
}

type address struct {
	CareOf       string `json:"care_of"`
	POBox        string `json:"po_box"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
}

// Company fetches a company profile. A 404 is reported as
// company.ErrNotFound.
func (c *Client) Company(ctx context.Context, number string) (*company.Company, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	target := c.baseURL + "/company/" + url.PathEscape(strings.TrimSpace(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch company profile")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, company.ErrNotFound
	case resp.StatusCode/100 != 2:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("registry responded %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var p profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode company profile")
	}
	return p.toDomain(), nil
}

func (p *profile) toDomain() *company.Company {
	a := p.RegisteredOfficeAddr
	return &company.Company{
		Number:   p.CompanyNumber,
		Name:     p.CompanyName,
		Status:   p.CompanyStatus,
		Category: p.Type,
		Address: company.Address{
			CareOf:   a.CareOf,
			POBox:    a.POBox,
			Line1:    a.AddressLine1,
			Line2:    a.AddressLine2,
			PostTown: a.Locality,
			County:   a.Region,
			Country:  a.Country,
			PostCode: a.PostalCode,
		},
		IncorporationDate: isoDate(p.DateOfCreation),
		DissolutionDate:   isoDate(p.DateOfCessation),
		AccountsNextDue:   isoDate(p.Accounts.NextDue),
		AccountsLastMade:  isoDate(p.Accounts.LastAccounts.MadeUpTo),
		ConfStmtNextDue:   isoDate(p.ConfirmationStatement.NextDue),
		ConfStmtLastMade:  isoDate(p.ConfirmationStatement.LastMadeUpTo),
		SICCodes:          p.SICCodes,
		URI:               p.Links.Self,
		Source:            "registry",
		UpdatedAt:         time.Now().UTC(),
	}
}

func isoDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}
