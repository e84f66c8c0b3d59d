// Package registry describes the Companies House "BasicCompanyData" extract:
// its header names, the canonical columns they land in and how each column
// is cleaned.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/iota-uz/ledgerdesk/pkg/tabular"
)

const (
	PrimaryKey      = "company_number"
	StatusColumn    = "company_status"
	ExcludedStatus  = "liquidation"
	LegacyMonth     = "accounts_account_ref_month"
	PreviousNames   = 10
	placeholderName = "__parsed_extra"
	unnamedPrefix   = "Unnamed"
)

// HeaderSample identifies the header row of an extract that carries a
// preamble.
var HeaderSample = []string{"CompanyName", "CompanyNumber"}

var sentinels = []string{
	"NO ACCOUNTS FILED",
	"DORMANT",
	"ACCOUNTS TYPE NOT AVAILABLE",
	"NULL",
	"N/A",
}

type column struct {
	source string
	name   string
	kind   tabular.Kind
}

var fixedColumns = []column{
	{"CompanyName", "company_name", tabular.KindText},
	{"CompanyNumber", "company_number", tabular.KindText},
	{"RegAddress.CareOf", "reg_address_care_of", tabular.KindText},
	{"RegAddress.POBox", "reg_address_po_box", tabular.KindText},
	{"RegAddress.AddressLine1", "reg_address_line1", tabular.KindText},
	{"RegAddress.AddressLine2", "reg_address_line2", tabular.KindText},
	{"RegAddress.PostTown", "reg_address_post_town", tabular.KindText},
	{"RegAddress.County", "reg_address_county", tabular.KindText},
	{"RegAddress.Country", "reg_address_country", tabular.KindText},
	{"RegAddress.PostCode", "reg_address_post_code", tabular.KindText},
	{"CompanyCategory", "company_category", tabular.KindText},
	{"CompanyStatus", "company_status", tabular.KindText},
	{"CountryOfOrigin", "country_of_origin", tabular.KindText},
	{"DissolutionDate", "dissolution_date", tabular.KindDate},
	{"IncorporationDate", "incorporation_date", tabular.KindDate},
	{"Accounts.AccountRefDay", "accounts_account_ref_day", tabular.KindInteger},
	{"Accounts.AccountRefMonth", "accounts_account_ref_month", tabular.KindInteger},
	{"Accounts.NextDueDate", "accounts_next_due_date", tabular.KindDate},
	{"Accounts.LastMadeUpDate", "accounts_last_made_up_date", tabular.KindDate},
	{"Accounts.AccountCategory", "accounts_account_category", tabular.KindText},
	{"Returns.NextDueDate", "returns_next_due_date", tabular.KindDate},
	{"Returns.LastMadeUpDate", "returns_last_made_up_date", tabular.KindDate},
	{"Mortgages.NumMortCharges", "mortgages_num_mort_charges", tabular.KindInteger},
	{"Mortgages.NumMortOutstanding", "mortgages_num_mort_outstanding", tabular.KindInteger},
	{"Mortgages.NumMortPartSatisfied", "mortgages_num_mort_part_satisfied", tabular.KindInteger},
	{"Mortgages.NumMortSatisfied", "mortgages_num_mort_satisfied", tabular.KindInteger},
	{"SICCode.SicText_1", "sic_code_1", tabular.KindText},
	{"SICCode.SicText_2", "sic_code_2", tabular.KindText},
	{"SICCode.SicText_3", "sic_code_3", tabular.KindText},
	{"SICCode.SicText_4", "sic_code_4", tabular.KindText},
	{"LimitedPartnerships.NumGenPartners", "limited_partnerships_num_gen_partners", tabular.KindInteger},
	{"LimitedPartnerships.NumLimPartners", "limited_partnerships_num_lim_partners", tabular.KindInteger},
	{"URI", "uri", tabular.KindText},
}

var trailingColumns = []column{
	{"ConfStmtNextDueDate", "conf_stmt_next_due_date", tabular.KindDate},
	{"ConfStmtLastMadeUpDate", "conf_stmt_last_made_up_date", tabular.KindDate},
}

func allColumns() []column {
	cols := make([]column, 0, len(fixedColumns)+2*PreviousNames+len(trailingColumns))
	cols = append(cols, fixedColumns...)
	for i := 1; i <= PreviousNames; i++ {
		cols = append(cols,
			column{fmt.Sprintf("PreviousName_%d.CONDATE", i), fmt.Sprintf("previous_name_%d_condate", i), tabular.KindText},
			column{fmt.Sprintf("PreviousName_%d.CompanyName", i), fmt.Sprintf("previous_name_%d_company_name", i), tabular.KindText},
		)
	}
	return append(cols, trailingColumns...)
}

// Columns returns the canonical columns in destination order.
func Columns() []string {
	cols := allColumns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// KindOf reports the kind of a canonical column. Unknown columns are text.
func KindOf(name string) tabular.Kind {
	return Schema().Kinds[name]
}

// IsCanonical reports whether name is one of the destination columns.
func IsCanonical(name string) bool {
	_, ok := canonical()[name]
	return ok
}

var canonical = sync.OnceValue(func() map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range allColumns() {
		out[c.name] = struct{}{}
	}
	return out
})

func isCount(name string) bool {
	return strings.Contains(name, "_num_")
}

func isChangeOfNameDate(name string) bool {
	return strings.HasPrefix(name, "previous_name_") && strings.HasSuffix(name, "_condate")
}

// Schema returns the shared cleaning schema. Callers must not mutate it.
var Schema = sync.OnceValue(func() *tabular.Schema {
	cols := allColumns()
	headers := make(map[string]string, len(cols))
	kinds := make(map[string]tabular.Kind)
	for _, c := range cols {
		headers[c.source] = c.name
		if c.kind != tabular.KindText {
			kinds[c.name] = c.kind
		}
	}
	return &tabular.Schema{
		Headers:           headers,
		Kinds:             kinds,
		Sentinels:         tabular.SentinelSet(sentinels...),
		PlaceholderHeader: placeholderName,
		UnnamedPrefix:     unnamedPrefix,
		HeaderSample:      HeaderSample,
		PrimaryKey:        PrimaryKey,
		ExclusionColumn:   StatusColumn,
		ExclusionValue:    ExcludedStatus,
		LegacyMonthColumn: LegacyMonth,
		IsCount:           isCount,
		IsSoftDate:        isChangeOfNameDate,
	}
})
