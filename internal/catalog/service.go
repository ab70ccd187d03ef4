package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/realtime"
	"github.com/cologne-noir/decant/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int, error)
}

// Service manages the product catalog.
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

func view(p Product) View {
	return View{
		Product:        p,
		StockStatus:    inventory.Classify(p.CurrentVolume),
		AvailableSizes: inventory.AvailableSizes(p.Prices, p.CurrentVolume, 1),
	}
}

func validatePrices(prices inventory.Prices) error {
	priced := prices.Priced()
	if len(priced) == 0 {
		return ErrNoPrice
	}
	for _, size := range priced {
		if price, _ := prices.Price(size); !price.IsPositive() {
			return ErrInvalidPrice
		}
	}
	return nil
}

// Create registers a bottle and records its initial fill in the volume ledger
// within the same transaction.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (View, error) {
	if err := httpx.Validate(input); err != nil {
		return View{}, err
	}
	if !input.TotalVolume.IsPositive() || input.TotalVolume.GreaterThan(MaxBottleVolume) ||
		input.CurrentVolume.IsNegative() || input.CurrentVolume.GreaterThan(input.TotalVolume) ||
		!inventory.ValidScale(input.TotalVolume) || !inventory.ValidScale(input.CurrentVolume) {
		return View{}, ErrInvalidVolume
	}
	if err := validatePrices(input.Prices); err != nil {
		return View{}, err
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := Product{
		Name:          strings.TrimSpace(input.Name),
		Brand:         strings.TrimSpace(input.Brand),
		Description:   nullable(input.Description),
		Concentration: input.Concentration,
		Gender:        input.Gender,
		Season:        seasonOrDefault(input.Season),
		TotalVolume:   input.TotalVolume,
		CurrentVolume: input.CurrentVolume,
		BatchCode:     nullable(input.BatchCode),
		Notes:         input.Notes,
		Prices:        input.Prices,
		ImageURL:      nullable(input.ImageURL),
		IsActive:      active,
	}

	var fill *inventory.Adjustment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.InsertProduct(ctx, product)
		if err != nil {
			return err
		}
		product = stored
		fill, err = inventory.RecordInitialFill(ctx, tx.Ledger(), stored.ID, actorID)
		return err
	})
	if err != nil {
		return View{}, err
	}

	changes := []realtime.Change{{Table: realtime.TableProducts, Action: realtime.ActionInsert, ID: product.ID.String()}}
	if fill != nil {
		changes = append(changes, realtime.Change{Table: realtime.TableVolumeAdjustments, Action: realtime.ActionInsert, ID: fill.ID.String()})
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{
		ActorID:  actorID,
		Action:   "catalog:create",
		Entity:   "product",
		EntityID: product.ID.String(),
		Meta:     map[string]any{"name": product.Name, "total_volume_ml": product.TotalVolume.String()},
	}, changes...)
	s.logger.Info("product created", slog.String("product_id", product.ID.String()), slog.String("name", product.Name))
	return view(product), nil
}

// Update edits descriptive fields and prices. Volume is owned by the ledger
// and never changes here.
func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, details Details) (View, error) {
	if err := httpx.Validate(details); err != nil {
		return View{}, err
	}
	if err := validatePrices(details.Prices); err != nil {
		return View{}, err
	}
	details.Name = strings.TrimSpace(details.Name)
	details.Brand = strings.TrimSpace(details.Brand)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateDetails(ctx, id, details)
	})
	if err != nil {
		return View{}, err
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{
		ActorID:  actorID,
		Action:   "catalog:update",
		Entity:   "product",
		EntityID: id.String(),
	}, realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: id.String()})
	return s.Get(ctx, id, true)
}

// SetActive shows or hides a product from the storefront.
func (s *Service) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetActive(ctx, id, active)
	})
	if err != nil {
		return err
	}
	action := "catalog:deactivate"
	if active {
		action = "catalog:activate"
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{ActorID: actorID, Action: action, Entity: "product", EntityID: id.String()},
		realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: id.String()})
	return nil
}

// Delete removes a product that was never sold nor adjusted. Anything else
// must be deactivated instead.
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		referenced, err := tx.Referenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return ErrProductInUse
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{ActorID: actorID, Action: "catalog:delete", Entity: "product", EntityID: id.String()},
		realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionDelete, ID: id.String()})
	return nil
}

// Get returns a product with its stock state. Inactive products are hidden
// unless includeInactive is set.
func (s *Service) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (View, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if !p.IsActive && !includeInactive {
		return View{}, ErrProductNotFound
	}
	return view(p), nil
}

// List returns one page of products with their stock state.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]View, shared.Pagination, error) {
	p := shared.NewPagination(filter.Page, filter.PerPage, 0)
	products, total, err := s.repo.List(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	out := make([]View, 0, len(products))
	for _, product := range products {
		out = append(out, view(product))
	}
	return out, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// ListActive returns the storefront listing.
func (s *Service) ListActive(ctx context.Context, page, perPage int) ([]View, shared.Pagination, error) {
	return s.List(ctx, ListFilter{Page: page, PerPage: perPage})
}
