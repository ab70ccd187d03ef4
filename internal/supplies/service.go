package supplies

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/realtime"
	"github.com/cologne-noir/decant/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Insert(ctx context.Context, s Supply) (Supply, error)
	Update(ctx context.Context, s Supply) (Supply, error)
	AddStock(ctx context.Context, id uuid.UUID, delta int) (Supply, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (Supply, error)
	List(ctx context.Context, lowOnly bool) ([]Supply, error)
}

// Service manages packaging supplies.
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

func fromInput(in Input) Supply {
	threshold := DefaultLowStockThreshold
	if in.LowStockThreshold != nil {
		threshold = *in.LowStockThreshold
	}
	return Supply{
		ItemName:          strings.TrimSpace(in.ItemName),
		SizeValue:         in.SizeValue,
		StockCount:        in.StockCount,
		LowStockThreshold: threshold,
	}
}

func (s *Service) published(ctx context.Context, actorID uuid.UUID, verb, action string, id uuid.UUID) {
	s.effects.AfterCommit(ctx, &shared.AuditLog{ActorID: actorID, Action: "supplies:" + verb, Entity: "supply", EntityID: id.String()},
		realtime.Change{Table: realtime.TableSupplies, Action: action, ID: id.String()})
}

// Create adds a supply.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in Input) (Supply, error) {
	if err := httpx.Validate(in); err != nil {
		return Supply{}, err
	}
	stored, err := s.repo.Insert(ctx, fromInput(in))
	if err != nil {
		return Supply{}, err
	}
	s.published(ctx, actorID, "create", realtime.ActionInsert, stored.ID)
	return stored, nil
}

// Update replaces a supply.
func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, in Input) (Supply, error) {
	if err := httpx.Validate(in); err != nil {
		return Supply{}, err
	}
	supply := fromInput(in)
	supply.ID = id
	stored, err := s.repo.Update(ctx, supply)
	if err != nil {
		return Supply{}, err
	}
	s.published(ctx, actorID, "update", realtime.ActionUpdate, id)
	return stored, nil
}

// Restock adds delta units, or removes them when delta is negative.
func (s *Service) Restock(ctx context.Context, actorID, id uuid.UUID, delta int) (Supply, error) {
	stored, err := s.repo.AddStock(ctx, id, delta)
	if err != nil {
		return Supply{}, err
	}
	if stored.Low() {
		s.logger.Warn("supply low", slog.String("item", stored.ItemName), slog.Int("stock", stored.StockCount))
	}
	s.published(ctx, actorID, "restock", realtime.ActionUpdate, id)
	return stored, nil
}

// Delete removes a supply.
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.published(ctx, actorID, "delete", realtime.ActionDelete, id)
	return nil
}

// Get returns a supply.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Supply, error) {
	return s.repo.Get(ctx, id)
}

// List returns every supply.
func (s *Service) List(ctx context.Context) ([]Supply, error) {
	return s.repo.List(ctx, false)
}

// LowStock returns supplies at or under their threshold.
func (s *Service) LowStock(ctx context.Context) ([]Supply, error) {
	return s.repo.List(ctx, true)
}
