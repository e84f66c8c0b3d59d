package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/clients/infrastructure/persistence/models"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/repo"
)

const (
	clientColumns = `id, name, email, phone, company_number, address_line1, address_line2,
		post_town, post_code, country, notes, created_at, updated_at`

	selectClientsQuery = `SELECT ` + clientColumns + ` FROM clients`
	countClientsQuery  = `SELECT COUNT(*) FROM clients`

	insertClientQuery = `
		INSERT INTO clients (
			id, name, email, phone, company_number, address_line1, address_line2,
			post_town, post_code, country, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + clientColumns

	updateClientQuery = `
		UPDATE clients SET
			name = $2,
			email = $3,
			phone = $4,
			company_number = $5,
			address_line1 = $6,
			address_line2 = $7,
			post_town = $8,
			post_code = $9,
			country = $10,
			notes = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING ` + clientColumns

	deleteClientQuery = `DELETE FROM clients WHERE id = $1`
)

var sortColumns = map[string]string{
	string(client.SortByName):      "name",
	string(client.SortByCreatedAt): "created_at",
}

type ClientRepository struct{}

func NewClientRepository() client.Repository {
	return &ClientRepository{}
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	clients, err := r.query(ctx, selectClientsQuery+" WHERE id = $1", id.String())
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, client.ErrNotFound
	}
	return clients[0], nil
}

func (r *ClientRepository) List(ctx context.Context, params *client.FindParams) ([]*client.Client, error) {
	if params == nil {
		params = &client.FindParams{}
	}
	where, args := buildClientFilters(params)
	query := repo.Join(
		selectClientsQuery,
		where,
		orderBy(params.SortBy),
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	return r.query(ctx, query, args...)
}

func (r *ClientRepository) Count(ctx context.Context, params *client.FindParams) (int64, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	if params == nil {
		params = &client.FindParams{}
	}
	where, args := buildClientFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, repo.Join(countClientsQuery, where), args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count clients")
	}
	return count, nil
}

func (r *ClientRepository) Create(ctx context.Context, c *client.Client) (*client.Client, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m := ToDBClient(c)
	row := tx.QueryRow(ctx, insertClientQuery,
		m.ID, m.Name, m.Email, m.Phone, m.CompanyNumber, m.AddressLine1, m.AddressLine2,
		m.PostTown, m.PostCode, m.Country, m.Notes, m.CreatedAt, m.UpdatedAt,
	)
	created, err := scanClient(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}
	return created, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *client.Client) (*client.Client, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	c.UpdatedAt = time.Now()
	m := ToDBClient(c)
	row := tx.QueryRow(ctx, updateClientQuery,
		m.ID, m.Name, m.Email, m.Phone, m.CompanyNumber, m.AddressLine1, m.AddressLine2,
		m.PostTown, m.PostCode, m.Country, m.Notes, m.UpdatedAt,
	)
	updated, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, client.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update client")
	}
	return updated, nil
}

func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, deleteClientQuery, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to delete client")
	}
	if tag.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (r *ClientRepository) query(ctx context.Context, query string, args ...any) ([]*client.Client, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query clients")
	}
	defer rows.Close()

	var out []*client.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan client")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating clients")
	}
	return out, nil
}

func scanClient(row pgx.Row) (*client.Client, error) {
	var m models.Client
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Email,
		&m.Phone,
		&m.CompanyNumber,
		&m.AddressLine1,
		&m.AddressLine2,
		&m.PostTown,
		&m.PostCode,
		&m.Country,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return ToDomainClient(&m)
}

func buildClientFilters(params *client.FindParams) (string, []any) {
	var where []string
	var args []any
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR company_number ILIKE $%d)", len(args), len(args), len(args)))
	}
	if n := strings.TrimSpace(params.CompanyNumber); n != "" {
		args = append(args, strings.ToUpper(n))
		where = append(where, fmt.Sprintf("company_number = $%d", len(args)))
	}
	if len(where) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

// orderBy renders sort keys such as "name" or "-created_at". Unknown keys
// are ignored.
func orderBy(keys []string) string {
	var parts []string
	for _, k := range keys {
		dir := repo.SortAsc
		if strings.HasPrefix(k, "-") {
			dir = repo.SortDesc
			k = k[1:]
		}
		if col, ok := sortColumns[k]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", col, dir))
		}
	}
	if len(parts) == 0 {
		return "ORDER BY created_at DESC"
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
