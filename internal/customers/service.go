package customers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Insert(ctx context.Context, c Customer) (Customer, error)
	Get(ctx context.Context, id uuid.UUID) (Summary, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Summary, int, error)
	Count(ctx context.Context) (int, error)
}

// Service manages the customer directory.
type Service struct {
	repo    RepositoryPort
	effects *shared.Effects
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, effects *shared.Effects, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, effects: effects, logger: logger}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Create registers a customer profile on behalf of an admin.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (Customer, error) {
	if err := httpx.Validate(input); err != nil {
		return Customer{}, err
	}
	id := uuid.New()
	if input.ID != nil && *input.ID != uuid.Nil {
		id = *input.ID
	}
	c, err := s.repo.Insert(ctx, Customer{
		ID:              id,
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		FullName:        optional(input.FullName),
		Phone:           optional(input.Phone),
		Role:            shared.RoleCustomer,
		ShippingAddress: input.ShippingAddress,
		FavoriteBrands:  input.FavoriteBrands,
		FavoriteScents:  input.FavoriteScents,
	})
	if err != nil {
		return Customer{}, err
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{
		ActorID:  actorID,
		Action:   "customers:create",
		Entity:   "profile",
		EntityID: c.ID.String(),
	})
	s.logger.Info("customer created", slog.String("customer_id", c.ID.String()))
	return c, nil
}

// Get returns one customer with purchase statistics.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Summary, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of the customer directory.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Summary, shared.Pagination, error) {
	p := shared.NewPagination(filter.Page, filter.PerPage, 0)
	filter.Search = strings.TrimSpace(filter.Search)
	out, total, err := s.repo.List(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Count returns the number of registered customers.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
