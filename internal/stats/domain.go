package stats

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdminStats is the dashboard snapshot.
type AdminStats struct {
	TotalOrders     int             `json:"total_orders"`
	PendingOrders   int             `json:"pending_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TodayRevenue    decimal.Decimal `json:"today_revenue"`
	OrdersToday     int             `json:"orders_today"`
	ActiveProducts  int             `json:"active_products"`
	// LowStockCount includes empty products, like the low stock list.
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	TotalCustomers  int             `json:"total_customers"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// OrderCounts groups the order tallies.
type OrderCounts struct {
	Total   int
	Pending int
	Today   int
}

// Revenue groups paid order totals.
type Revenue struct {
	AllTime decimal.Decimal
	Today   decimal.Decimal
}
