package persistence

import (
	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/modules/companies/infrastructure/persistence/models"
)

func ToDomainCompany(m *models.Company) *company.Company {
	c := &company.Company{
		Number:          m.CompanyNumber,
		Name:            m.CompanyName.String,
		Status:          m.CompanyStatus.String,
		Category:        m.CompanyCategory.String,
		CountryOfOrigin: m.CountryOfOrigin.String,
		Address: company.Address{
			CareOf:   m.RegAddressCareOf.String,
			POBox:    m.RegAddressPOBox.String,
			Line1:    m.RegAddressLine1.String,
			Line2:    m.RegAddressLine2.String,
			PostTown: m.RegAddressPostTown.String,
			County:   m.RegAddressCounty.String,
			Country:  m.RegAddressCountry.String,
			PostCode: m.RegAddressPostCode.String,
		},
		IncorporationDate: m.IncorporationDate,
		DissolutionDate:   m.DissolutionDate,
		AccountsNextDue:   m.AccountsNextDueDate,
		AccountsLastMade:  m.AccountsLastMadeUpDate,
		ConfStmtNextDue:   m.ConfStmtNextDueDate,
		ConfStmtLastMade:  m.ConfStmtLastMadeUpDate,
		URI:               m.URI.String,
		Source:            "store",
		UpdatedAt:         m.UpdatedAt,
	}
	for _, s := range []string{m.SICCode1.String, m.SICCode2.String, m.SICCode3.String, m.SICCode4.String} {
		if s != "" {
			c.SICCodes = append(c.SICCodes, s)
		}
	}
	return c
}
