package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

var ErrInvalidNumber = serrors.NewError("COMPANY_INVALID_NUMBER", "company number is required", "Companies.Errors.InvalidNumber")

// RegistryClient fetches live company profiles.
type RegistryClient interface {
	Enabled() bool
	Company(ctx context.Context, number string) (*company.Company, error)
}

type LookupService struct {
	repo     company.Repository
	registry RegistryClient
}

func NewLookupService(repo company.Repository, registry RegistryClient) *LookupService {
	return &LookupService{repo: repo, registry: registry}
}

// Get returns the live registry profile when the registry is reachable and
// the stored row otherwise.
func (s *LookupService) Get(ctx context.Context, number string) (*company.Company, error) {
	number = NormalizeNumber(number)
	if number == "" {
		return nil, ErrInvalidNumber
	}
	if s.registry != nil && s.registry.Enabled() {
		c, err := s.registry.Company(ctx, number)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, company.ErrNotFound) {
			composables.UseLogger(ctx).WithError(err).WithField("company_number", number).
				Warn("companies: registry lookup failed, using stored row")
		}
	}
	return s.repo.GetByNumber(ctx, number)
}

// Stored returns the row held in the companies table.
func (s *LookupService) Stored(ctx context.Context, number string) (*company.Company, error) {
	number = NormalizeNumber(number)
	if number == "" {
		return nil, ErrInvalidNumber
	}
	return s.repo.GetByNumber(ctx, number)
}

func (s *LookupService) ListDue(ctx context.Context, before time.Time, limit, offset int) ([]*company.Company, error) {
	return s.repo.ListDue(ctx, &company.DueParams{Before: before, Limit: limit, Offset: offset})
}

// NormalizeNumber trims and upper-cases a company number.
func NormalizeNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}
