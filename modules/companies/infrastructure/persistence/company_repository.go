package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/modules/companies/domain/registry"
	"github.com/iota-uz/ledgerdesk/modules/companies/infrastructure/persistence/models"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/repo"
	"github.com/iota-uz/ledgerdesk/pkg/tabular"
)

const selectCompanyColumns = `
	SELECT
		company_number,
		company_name,
		company_status,
		company_category,
		country_of_origin,
		reg_address_care_of,
		reg_address_po_box,
		reg_address_line1,
		reg_address_line2,
		reg_address_post_town,
		reg_address_county,
		reg_address_country,
		reg_address_post_code,
		incorporation_date,
		dissolution_date,
		accounts_next_due_date,
		accounts_last_made_up_date,
		conf_stmt_next_due_date,
		conf_stmt_last_made_up_date,
		sic_code_1,
		sic_code_2,
		sic_code_3,
		sic_code_4,
		uri,
		updated_at`

type CompanyRepository struct {
	table string
}

func NewCompanyRepository(table string) company.Repository {
	if table == "" {
		table = "companies"
	}
	return &CompanyRepository{table: pgx.Identifier{table}.Sanitize()}
}

// Upsert writes one multi-row INSERT ... ON CONFLICT statement. Empty cells
// are written as NULL and date/integer columns are cast on the server. Date
// cells that are not a real YYYY-MM-DD calendar date are written as NULL, so
// one bad date cannot fail the whole batch.
func (r *CompanyRepository) Upsert(ctx context.Context, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	keep := make([]int, 0, len(columns))
	hasKey := false
	var dropped []string
	for i, c := range columns {
		if !registry.IsCanonical(c) {
			dropped = append(dropped, c)
			continue
		}
		if c == registry.PrimaryKey {
			hasKey = true
		}
		keep = append(keep, i)
	}
	if !hasKey {
		return errors.Errorf("upsert into %s requires column %s", r.table, registry.PrimaryKey)
	}
	if len(dropped) > 0 {
		composables.UseLogger(ctx).WithField("columns", dropped).Warn("companies: columns not in destination schema were not written")
	}

	tx, err := composables.UseDB(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	query, args, cleared := r.buildUpsert(columns, keep, rows)
	if cleared > 0 {
		composables.UseLogger(ctx).WithField("cleared", cleared).Warn("companies: invalid dates written as NULL")
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "failed to upsert companies")
	}
	return nil
}

func (r *CompanyRepository) buildUpsert(columns []string, keep []int, rows [][]string) (string, []any, int) {
	names := make([]string, len(keep))
	updates := make([]string, 0, len(keep))
	for j, i := range keep {
		names[j] = columns[i]
		if columns[i] != registry.PrimaryKey {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", columns[i], columns[i]))
		}
	}
	updates = append(updates, "updated_at = now()")

	args := make([]any, 0, len(rows)*len(keep))
	values := make([]string, len(rows))
	cleared := 0
	for n, row := range rows {
		ph := make([]string, len(keep))
		for j, i := range keep {
			kind := registry.KindOf(columns[i])
			v := cell(row, i)
			if kind == tabular.KindDate && v != "" && !isISODate(v) {
				v = ""
				cleared++
			}
			args = append(args, nullable(v))
			ph[j] = placeholder(len(args), kind)
		}
		values[n] = "(" + strings.Join(ph, ", ") + ")"
	}

	query := repo.Join(
		"INSERT INTO", r.table, "("+strings.Join(names, ", ")+")",
		"VALUES", strings.Join(values, ", "),
		"ON CONFLICT ("+registry.PrimaryKey+") DO UPDATE SET", strings.Join(updates, ", "),
	)
	return query, args, cleared
}

func isISODate(v string) bool {
	_, err := time.Parse(time.DateOnly, v)
	return err == nil
}

func placeholder(n int, kind tabular.Kind) string {
	switch kind {
	case tabular.KindDate:
		return fmt.Sprintf("$%d::text::date", n)
	case tabular.KindInteger:
		return fmt.Sprintf("$%d::text::integer", n)
	default:
		return fmt.Sprintf("$%d::text", n)
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (r *CompanyRepository) GetByNumber(ctx context.Context, number string) (*company.Company, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, selectCompanyColumns+" FROM "+r.table+" WHERE company_number = $1", number)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query company")
	}
	companies, err := scanCompanies(rows)
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, company.ErrNotFound
	}
	return companies[0], nil
}

func (r *CompanyRepository) ListDue(ctx context.Context, params *company.DueParams) ([]*company.Company, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	query := repo.Join(
		selectCompanyColumns,
		"FROM", r.table,
		"WHERE accounts_next_due_date < $1 OR conf_stmt_next_due_date < $1",
		"ORDER BY LEAST(accounts_next_due_date, conf_stmt_next_due_date) ASC, company_number ASC",
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	rows, err := tx.Query(ctx, query, params.Before)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query due companies")
	}
	return scanCompanies(rows)
}

func scanCompanies(rows pgx.Rows) ([]*company.Company, error) {
	defer rows.Close()
	var out []*company.Company
	for rows.Next() {
		var m models.Company
		if err := rows.Scan(
			&m.CompanyNumber,
			&m.CompanyName,
			&m.CompanyStatus,
			&m.CompanyCategory,
			&m.CountryOfOrigin,
			&m.RegAddressCareOf,
			&m.RegAddressPOBox,
			&m.RegAddressLine1,
			&m.RegAddressLine2,
			&m.RegAddressPostTown,
			&m.RegAddressCounty,
			&m.RegAddressCountry,
			&m.RegAddressPostCode,
			&m.IncorporationDate,
			&m.DissolutionDate,
			&m.AccountsNextDueDate,
			&m.AccountsLastMadeUpDate,
			&m.ConfStmtNextDueDate,
			&m.ConfStmtLastMadeUpDate,
			&m.SICCode1,
			&m.SICCode2,
			&m.SICCode3,
			&m.SICCode4,
			&m.URI,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan company")
		}
		out = append(out, ToDomainCompany(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating companies")
	}
	return out, nil
}
