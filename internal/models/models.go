package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD date as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, s)
}

// Order is one row of the pre-joined order/payment/customer dataset.
// A single order may appear on several rows (one per payment or item).
type Order struct {
	OrderID          string          `json:"order_id"`
	CustomerUniqueID string          `json:"customer_unique_id"`
	ApprovedAt       time.Time       `json:"order_approved_at"`
	DeliveredAt      time.Time       `json:"order_delivered_customer_date,omitempty"`
	PaymentType      string          `json:"payment_type"`
	PaymentValue     decimal.Decimal `json:"payment_value"`
	ProductCategory  string          `json:"product_category_name_english"`
	CustomerState    string          `json:"customer_state"`
	CustomerCity     string          `json:"customer_city"`
}

// Day is a calendar day, serialised as YYYY-MM-DD.
type Day time.Time

func (d Day) Time() time.Time { return time.Time(d) }

func (d Day) String() string { return time.Time(d).Format(DayLayout) }

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"`+DayLayout+`"`, string(b))
	if err != nil {
		return err
	}
	*d = Day(t)
	return nil
}

// Money is an exact amount that marshals as a bare JSON number.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

type DailyOrders struct {
	Date       Day   `json:"order_approved_at"`
	OrderCount int   `json:"order_count"`
	Revenue    Money `json:"revenue"`
}

type PaymentTypeCount struct {
	PaymentType string `json:"payment_type"`
	OrderCount  int    `json:"order_count"`
}

type CategorySales struct {
	Category   string `json:"product_category_name_english"`
	TotalSales int    `json:"total_sales"`
}

type StateCustomers struct {
	State         string `json:"customer_state"`
	CustomerCount int    `json:"customer_count"`
}

type CityCustomers struct {
	City          string `json:"customer_city"`
	CustomerCount int    `json:"customer_count"`
}

type RFM struct {
	CustomerUniqueID string `json:"customer_unique_id"`
	Frequency        int    `json:"frequency"`
	Monetary         Money  `json:"monetary"`
	Recency          int    `json:"recency"`
}

type Summary struct {
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue Money   `json:"total_revenue"`
	Customers    int     `json:"customers"`
	AvgRecency   float64 `json:"avg_recency"`
	AvgFrequency float64 `json:"avg_frequency"`
	AvgMonetary  Money   `json:"avg_monetary"`
}

// DashboardData bundles every table for one date range.
type DashboardData struct {
	Start   Day     `json:"start"`
	End     Day     `json:"end"`
	Rows    int     `json:"rows"`
	Summary Summary `json:"summary"`

	DailyOrders  []DailyOrders      `json:"daily_orders"`
	PaymentTypes []PaymentTypeCount `json:"payment_types"`
	Categories   []CategorySales    `json:"categories"`
	ByState      []StateCustomers   `json:"customers_by_state"`
	ByCity       []CityCustomers    `json:"customers_by_city"`
	RFM          []RFM              `json:"rfm"`

	BestCategories  []CategorySales  `json:"best_categories"`
	WorstCategories []CategorySales  `json:"worst_categories"`
	TopStates       []StateCustomers `json:"top_states"`
	TopCities       []CityCustomers  `json:"top_cities"`
	TopByRecency    []RFM            `json:"top_by_recency"`
	TopByFrequency  []RFM            `json:"top_by_frequency"`
	TopByMonetary   []RFM            `json:"top_by_monetary"`
}

type DataRange struct {
	MinDate Day `json:"min_date"`
	MaxDate Day `json:"max_date"`
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
}

type SearchHit struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}
