package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
)

// MaxBottleVolume is the largest source bottle the store decants from, in ml.
var MaxBottleVolume = decimal.NewFromInt(1000)

// Concentration is the fragrance strength.
type Concentration string

const (
	ConcentrationEDT     Concentration = "EDT"
	ConcentrationEDP     Concentration = "EDP"
	ConcentrationExtrait Concentration = "Extrait"
	ConcentrationParfum  Concentration = "Parfum"
	ConcentrationCologne Concentration = "Cologne"
)

// Gender is the marketing gender of a fragrance.
type Gender string

const (
	GenderMasculine Gender = "masculine"
	GenderFeminine  Gender = "feminine"
	GenderUnisex    Gender = "unisex"
)

// Season is the season a fragrance suits best.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
	SeasonAll    Season = "all"
)

func seasonOrDefault(s Season) Season {
	if s == "" {
		return SeasonAll
	}
	return s
}

// Notes lists the fragrance pyramid.
type Notes struct {
	Top   []string `json:"top_notes"`
	Heart []string `json:"heart_notes"`
	Base  []string `json:"base_notes"`
}

// Product is a source bottle offered as decants.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Description   *string         `json:"description,omitempty"`
	Concentration Concentration   `json:"concentration"`
	Gender        Gender          `json:"gender"`
	Season        Season          `json:"season"`
	TotalVolume   decimal.Decimal `json:"total_volume_ml"`
	CurrentVolume decimal.Decimal `json:"current_volume_ml"`
	BatchCode     *string         `json:"batch_code,omitempty"`
	Notes         Notes           `json:"notes"`
	ImageURL      *string         `json:"image_url,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	inventory.Prices
}

// Details holds the descriptive fields an admin may edit at any time.
type Details struct {
	Name          string        `json:"name" validate:"required,max=200"`
	Brand         string        `json:"brand" validate:"required,max=100"`
	Description   string        `json:"description" validate:"max=5000"`
	Concentration Concentration `json:"concentration" validate:"required,oneof=EDT EDP Extrait Parfum Cologne"`
	Gender        Gender        `json:"gender" validate:"required,oneof=masculine feminine unisex"`
	Season        Season        `json:"season" validate:"omitempty,oneof=spring summer fall winter all"`
	BatchCode     string        `json:"batch_code" validate:"max=50"`
	Notes         Notes         `json:"notes"`
	ImageURL      string        `json:"image_url" validate:"omitempty,url"`
	inventory.Prices
}

// CreateInput registers a new bottle.
type CreateInput struct {
	Details
	TotalVolume   decimal.Decimal `json:"total_volume_ml"`
	CurrentVolume decimal.Decimal `json:"current_volume_ml"`
	IsActive      *bool           `json:"is_active"`
}

// View is a product with its derived stock state.
type View struct {
	Product
	StockStatus    inventory.StockStatus `json:"stock_status"`
	AvailableSizes []inventory.Size      `json:"available_sizes"`
}

// ListFilter narrows the product listing.
type ListFilter struct {
	IncludeInactive bool
	Gender          Gender
	Page            int
	PerPage         int
}
