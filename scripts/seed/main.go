package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cologne-noir/decant/internal/app"
	"github.com/cologne-noir/decant/internal/catalog"
	"github.com/cologne-noir/decant/internal/customers"
	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/db"
	"github.com/cologne-noir/decant/internal/supplies"
)

//go:embed catalog.yaml
var fixtureYAML []byte

type fixture struct {
	Admin struct {
		Email    string `yaml:"email"`
		FullName string `yaml:"full_name"`
	} `yaml:"admin"`
	Customers []customerFixture `yaml:"customers"`
	Products  []productFixture  `yaml:"products"`
	Supplies  []supplyFixture   `yaml:"supplies"`
}

type customerFixture struct {
	Email          string   `yaml:"email"`
	FullName       string   `yaml:"full_name"`
	Phone          string   `yaml:"phone"`
	FavoriteBrands []string `yaml:"favorite_brands"`
	FavoriteScents []string `yaml:"favorite_scents"`
}

type productFixture struct {
	Name          string         `yaml:"name"`
	Brand         string         `yaml:"brand"`
	Description   string         `yaml:"description"`
	Concentration string         `yaml:"concentration"`
	Gender        string         `yaml:"gender"`
	Season        string         `yaml:"season"`
	TotalML       string         `yaml:"total_ml"`
	CurrentML     string         `yaml:"current_ml"`
	BatchCode     string         `yaml:"batch_code"`
	Notes         catalog.Notes  `yaml:"notes"`
	Prices        map[int]string `yaml:"prices"`
}

type supplyFixture struct {
	ItemName          string `yaml:"item_name"`
	SizeValue         int    `yaml:"size_value"`
	StockCount        int    `yaml:"stock_count"`
	LowStockThreshold *int   `yaml:"low_stock_threshold"`
}

func main() {
	ctx := context.Background()

	var fx fixture
	if err := yaml.Unmarshal(fixtureYAML, &fx); err != nil {
		log.Fatalf("parse fixture: %v", err)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// Seeding is offline; subscribers are not notified.
	cfg.NotifierDriver = app.NotifierNone
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	services, err := app.BuildServices(cfg, logger, pool, nil, nil)
	if err != nil {
		log.Fatalf("build services: %v", err)
	}
	defer services.Close()

	fmt.Println("→ Seeding admin profile...")
	adminID, err := seedAdmin(ctx, pool, fx.Admin.Email, fx.Admin.FullName)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	fmt.Println("→ Seeding customers...")
	for _, c := range fx.Customers {
		in := customers.CreateInput{
			Email:          c.Email,
			FullName:       c.FullName,
			Phone:          c.Phone,
			FavoriteBrands: c.FavoriteBrands,
			FavoriteScents: c.FavoriteScents,
		}
		if _, err := services.Customers.Create(ctx, adminID, in); err != nil {
			if errors.Is(err, customers.ErrEmailTaken) {
				continue
			}
			log.Fatalf("seed customer %s: %v", c.Email, err)
		}
	}

	fmt.Println("→ Seeding products...")
	for _, p := range fx.Products {
		exists, err := productExists(ctx, pool, p.Name, p.Brand)
		if err != nil {
			log.Fatalf("lookup product %s: %v", p.Name, err)
		}
		if exists {
			continue
		}
		in, err := p.input()
		if err != nil {
			log.Fatalf("product %s: %v", p.Name, err)
		}
		if _, err := services.Catalog.Create(ctx, adminID, in); err != nil {
			log.Fatalf("seed product %s: %v", p.Name, err)
		}
	}

	fmt.Println("→ Seeding supplies...")
	for _, s := range fx.Supplies {
		exists, err := supplyExists(ctx, pool, s.ItemName)
		if err != nil {
			log.Fatalf("lookup supply %s: %v", s.ItemName, err)
		}
		if exists {
			continue
		}
		if _, err := services.Supplies.Create(ctx, adminID, s.input()); err != nil {
			log.Fatalf("seed supply %s: %v", s.ItemName, err)
		}
	}

	fmt.Printf("✓ Seed complete (admin %s)\n", adminID)
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, fullName string) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx, `
		INSERT INTO profiles (email, full_name, role)
		VALUES ($1, $2, 'admin')
		ON CONFLICT (email) DO UPDATE SET role = 'admin', updated_at = NOW()
		RETURNING id`, strings.ToLower(email), fullName).Scan(&id)
	return id, err
}

func productExists(ctx context.Context, pool *pgxpool.Pool, name, brand string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE name = $1 AND brand = $2)`, name, brand).Scan(&exists)
	return exists, err
}

func supplyExists(ctx context.Context, pool *pgxpool.Pool, item string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM supplies WHERE item_name = $1)`, item).Scan(&exists)
	return exists, err
}

func (p productFixture) input() (catalog.CreateInput, error) {
	total, err := decimal.NewFromString(p.TotalML)
	if err != nil {
		return catalog.CreateInput{}, fmt.Errorf("total_ml: %w", err)
	}
	current, err := decimal.NewFromString(p.CurrentML)
	if err != nil {
		return catalog.CreateInput{}, fmt.Errorf("current_ml: %w", err)
	}
	var prices inventory.Prices
	for size, raw := range p.Prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.CreateInput{}, fmt.Errorf("price %dml: %w", size, err)
		}
		v := decimal.NewNullDecimal(price)
		switch inventory.Size(size) {
		case inventory.Size10ml:
			prices.Price10ml = v
		case inventory.Size15ml:
			prices.Price15ml = v
		case inventory.Size30ml:
			prices.Price30ml = v
		case inventory.Size100ml:
			prices.Price100ml = v
		default:
			return catalog.CreateInput{}, fmt.Errorf("unsupported size %dml", size)
		}
	}
	return catalog.CreateInput{
		Details: catalog.Details{
			Name:          p.Name,
			Brand:         p.Brand,
			Description:   p.Description,
			Concentration: catalog.Concentration(p.Concentration),
			Gender:        catalog.Gender(p.Gender),
			Season:        catalog.Season(p.Season),
			BatchCode:     p.BatchCode,
			Notes:         p.Notes,
			Prices:        prices,
		},
		TotalVolume:   total,
		CurrentVolume: current,
	}, nil
}

func (s supplyFixture) input() supplies.Input {
	in := supplies.Input{
		ItemName:          s.ItemName,
		StockCount:        s.StockCount,
		LowStockThreshold: s.LowStockThreshold,
	}
	if s.SizeValue > 0 {
		size := inventory.Size(s.SizeValue)
		in.SizeValue = &size
	}
	return in
}
