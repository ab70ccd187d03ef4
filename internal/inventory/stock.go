package inventory

import (
	"github.com/shopspring/decimal"
)

// StockStatus is the display and purchase-blocking state of a product.
type StockStatus string

const (
	StockOut StockStatus = "out_of_stock"
	StockLow StockStatus = "low_stock"
	StockIn  StockStatus = "in_stock"
)

// LowStockThreshold is the volume in ml below which a product needs restocking.
var LowStockThreshold = decimal.NewFromInt(10)

// VolumeScale is the number of decimal places a volume is stored with.
const VolumeScale int32 = 2

// ValidScale reports whether v fits VolumeScale without rounding.
func ValidScale(v decimal.Decimal) bool {
	return v.Truncate(VolumeScale).Equal(v)
}

// Classify maps a current volume to its stock status using LowStockThreshold.
func Classify(current decimal.Decimal) StockStatus {
	return ClassifyWithThreshold(current, LowStockThreshold)
}

// ClassifyWithThreshold is Classify with an explicit threshold (exclusive below).
func ClassifyWithThreshold(current, threshold decimal.Decimal) StockStatus {
	switch {
	case current.Sign() <= 0:
		return StockOut
	case current.LessThan(threshold):
		return StockLow
	default:
		return StockIn
	}
}

// Size is a decant size in ml.
type Size int

const (
	Size10ml  Size = 10
	Size15ml  Size = 15
	Size30ml  Size = 30
	Size100ml Size = 100
)

// Sizes lists every size the store sells, smallest first.
var Sizes = []Size{Size10ml, Size15ml, Size30ml, Size100ml}

// Valid reports whether s is a sold size.
func (s Size) Valid() bool {
	for _, v := range Sizes {
		if v == s {
			return true
		}
	}
	return false
}

// Volume returns the size as a decimal ml amount.
func (s Size) Volume() decimal.Decimal {
	return decimal.NewFromInt(int64(s))
}

// Required returns the ml needed for qty decants of size s.
func Required(s Size, qty int) decimal.Decimal {
	return s.Volume().Mul(decimal.NewFromInt(int64(qty)))
}

// CanPurchase reports whether current volume covers qty decants of size s.
func CanPurchase(current decimal.Decimal, s Size, qty int) bool {
	if qty <= 0 || !s.Valid() {
		return false
	}
	return current.GreaterThanOrEqual(Required(s, qty))
}

// Prices holds the optional per-size prices of a product. A size is sellable
// only when its price is set.
type Prices struct {
	Price10ml  decimal.NullDecimal `json:"price_10ml"`
	Price15ml  decimal.NullDecimal `json:"price_15ml"`
	Price30ml  decimal.NullDecimal `json:"price_30ml"`
	Price100ml decimal.NullDecimal `json:"price_100ml"`
}

// Price returns the price for s and whether s is sellable.
func (p Prices) Price(s Size) (decimal.Decimal, bool) {
	var v decimal.NullDecimal
	switch s {
	case Size10ml:
		v = p.Price10ml
	case Size15ml:
		v = p.Price15ml
	case Size30ml:
		v = p.Price30ml
	case Size100ml:
		v = p.Price100ml
	}
	return v.Decimal, v.Valid
}

// Priced returns the sizes that carry a price.
func (p Prices) Priced() []Size {
	var out []Size
	for _, s := range Sizes {
		if _, ok := p.Price(s); ok {
			out = append(out, s)
		}
	}
	return out
}

// AvailableSizes returns the priced sizes purchasable qty times from current.
func AvailableSizes(prices Prices, current decimal.Decimal, qty int) []Size {
	var out []Size
	for _, s := range prices.Priced() {
		if CanPurchase(current, s, qty) {
			out = append(out, s)
		}
	}
	return out
}
