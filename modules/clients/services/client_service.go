package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/pkg/eventbus"
)

// searchPool caps how many stored clients Search ranks in memory.
const searchPool = 500

type ClientService struct {
	repo      client.Repository
	publisher eventbus.EventBus
}

func NewClientService(repo client.Repository, publisher eventbus.EventBus) *ClientService {
	return &ClientService{repo: repo, publisher: publisher}
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one page of clients plus the total matching the filters.
func (s *ClientService) List(ctx context.Context, params *client.FindParams) ([]*client.Client, int64, error) {
	clients, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (s *ClientService) Create(ctx context.Context, dto *client.CreateDTO) (*client.Client, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, dto.ToEntity())
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(&client.CreatedEvent{Result: *created})
	return created, nil
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, dto *client.UpdateDTO) (*client.Client, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, dto.Apply(before))
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(&client.UpdatedEvent{Before: *before, Result: *updated})
	return updated, nil
}

func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.publisher.Publish(&client.DeletedEvent{Result: *existing})
	return existing, nil
}

// Search ranks clients by fuzzy match of q against their name, email and
// company number. Closest matches come first.
func (s *ClientService) Search(ctx context.Context, q string, limit int) ([]*client.Client, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*client.Client{}, nil
	}
	pool, err := s.repo.List(ctx, &client.FindParams{Limit: searchPool, SortBy: []string{string(client.SortByName)}})
	if err != nil {
		return nil, err
	}
	words := make([]string, len(pool))
	for i, c := range pool {
		words[i] = strings.Join([]string{c.Name, c.Email, c.CompanyNumber}, " ")
	}
	ranks := fuzzy.RankFindNormalizedFold(q, words)
	sort.Stable(ranks)

	out := make([]*client.Client, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, pool[rank.OriginalIndex])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
