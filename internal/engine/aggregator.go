package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"dashboard/internal/models"
)

// UnknownKey labels rows whose grouping field is blank. Such rows are kept as
// their own group by every grouping operation.
const UnknownKey = "unknown"

func groupKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownKey
	}
	return s
}

type RegionField int

const (
	RegionState RegionField = iota
	RegionCity
)

func (f RegionField) String() string {
	switch f {
	case RegionState:
		return "customer_state"
	case RegionCity:
		return "customer_city"
	}
	return "unknown_region"
}

func (f RegionField) value(o *models.Order) string {
	if f == RegionCity {
		return o.CustomerCity
	}
	return o.CustomerState
}

type RegionCount struct {
	Region        string
	CustomerCount int
}

type dayStats struct {
	orders  map[string]struct{}
	revenue decimal.Decimal
}

// DailyOrders resamples the rows by approval day. The day axis is contiguous
// from the first to the last day present; days without orders are zero-filled.
// Rows without an order id add revenue but are not counted as orders.
func DailyOrders(orders []models.Order) []models.DailyOrders {
	out := make([]models.DailyOrders, 0)

	days := make(map[int64]*dayStats)
	var first, last time.Time
	for i := range orders {
		o := &orders[i]
		if o.ApprovedAt.IsZero() {
			continue
		}
		d := dayOf(o.ApprovedAt)
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}

		st, ok := days[d.Unix()]
		if !ok {
			st = &dayStats{orders: make(map[string]struct{})}
			days[d.Unix()] = st
		}
		if id := strings.TrimSpace(o.OrderID); id != "" {
			st.orders[id] = struct{}{}
		}
		st.revenue = st.revenue.Add(o.PaymentValue)
	}
	if first.IsZero() {
		return out
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		row := models.DailyOrders{Date: models.Day(d), Revenue: models.NewMoney(decimal.Zero)}
		if st, ok := days[d.Unix()]; ok {
			row.OrderCount = len(st.orders)
			row.Revenue = models.NewMoney(st.revenue)
		}
		out = append(out, row)
	}
	return out
}

// PaymentTypeCounts counts rows (not distinct orders) per payment type.
// Output is ordered by count descending, then by type.
func PaymentTypeCounts(orders []models.Order) []models.PaymentTypeCount {
	counts := make(map[string]int)
	for i := range orders {
		counts[groupKey(orders[i].PaymentType)]++
	}

	out := make([]models.PaymentTypeCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.PaymentTypeCount{PaymentType: k, OrderCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		return out[i].PaymentType < out[j].PaymentType
	})
	return out
}

// CategorySales counts rows per product category. An order with several item
// rows is counted once per row.
func CategorySales(orders []models.Order) []models.CategorySales {
	counts := make(map[string]int)
	for i := range orders {
		counts[groupKey(orders[i].ProductCategory)]++
	}

	out := make([]models.CategorySales, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.CategorySales{Category: k, TotalSales: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// CustomersByRegion counts distinct customers per value of field.
func CustomersByRegion(orders []models.Order, field RegionField) []RegionCount {
	groups := make(map[string]map[string]struct{})
	for i := range orders {
		o := &orders[i]
		region := groupKey(field.value(o))
		seen, ok := groups[region]
		if !ok {
			seen = make(map[string]struct{})
			groups[region] = seen
		}
		seen[groupKey(o.CustomerUniqueID)] = struct{}{}
	}

	out := make([]RegionCount, 0, len(groups))
	for region, seen := range groups {
		out = append(out, RegionCount{Region: region, CustomerCount: len(seen)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

func CustomersByState(orders []models.Order) []models.StateCustomers {
	counts := CustomersByRegion(orders, RegionState)
	out := make([]models.StateCustomers, len(counts))
	for i, c := range counts {
		out[i] = models.StateCustomers{State: c.Region, CustomerCount: c.CustomerCount}
	}
	return out
}

func CustomersByCity(orders []models.Order) []models.CityCustomers {
	counts := CustomersByRegion(orders, RegionCity)
	out := make([]models.CityCustomers, len(counts))
	for i, c := range counts {
		out[i] = models.CityCustomers{City: c.Region, CustomerCount: c.CustomerCount}
	}
	return out
}

type rfmStats struct {
	orders   map[string]struct{}
	monetary decimal.Decimal
	last     time.Time
}

// RFM computes raw recency/frequency/monetary per customer. Recency is the
// number of whole days between the latest approval date in orders and the
// customer's own latest approval date. Blank order ids do not add to
// frequency.
func RFM(orders []models.Order) []models.RFM {
	customers := make(map[string]*rfmStats)
	var latest time.Time
	for i := range orders {
		o := &orders[i]
		if o.ApprovedAt.IsZero() {
			continue
		}
		d := dayOf(o.ApprovedAt)
		if d.After(latest) {
			latest = d
		}

		id := groupKey(o.CustomerUniqueID)
		st, ok := customers[id]
		if !ok {
			st = &rfmStats{orders: make(map[string]struct{})}
			customers[id] = st
		}
		if id := strings.TrimSpace(o.OrderID); id != "" {
			st.orders[id] = struct{}{}
		}
		st.monetary = st.monetary.Add(o.PaymentValue)
		if d.After(st.last) {
			st.last = d
		}
	}

	out := make([]models.RFM, 0, len(customers))
	for id, st := range customers {
		out = append(out, models.RFM{
			CustomerUniqueID: id,
			Frequency:        len(st.orders),
			Monetary:         models.NewMoney(st.monetary),
			Recency:          daysBetween(st.last, latest),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerUniqueID < out[j].CustomerUniqueID })
	return out
}

// daysBetween expects both arguments at UTC midnight.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// Aggregate computes every table for the given rows. The six base tables are
// independent and built concurrently.
func Aggregate(ctx context.Context, orders []models.Order) (*models.DashboardData, error) {
	data := &models.DashboardData{Rows: len(orders)}

	g, ctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}
	run(func() { data.DailyOrders = DailyOrders(orders) })
	run(func() { data.PaymentTypes = PaymentTypeCounts(orders) })
	run(func() { data.Categories = CategorySales(orders) })
	run(func() { data.ByState = CustomersByState(orders) })
	run(func() { data.ByCity = CustomersByCity(orders) })
	run(func() { data.RFM = RFM(orders) })
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "aggregate orders")
	}

	data.Summary = Summarize(data.DailyOrders, data.RFM)
	data.BestCategories = BestCategories(data.Categories, DefaultCategoryLimit)
	data.WorstCategories = WorstCategories(data.Categories, DefaultCategoryLimit)
	data.TopStates = TopStates(data.ByState, DefaultRegionLimit)
	data.TopCities = TopCities(data.ByCity, DefaultRegionLimit)
	data.TopByRecency = TopCustomersByRecency(data.RFM, DefaultCustomerLimit)
	data.TopByFrequency = TopCustomersByFrequency(data.RFM, DefaultCustomerLimit)
	data.TopByMonetary = TopCustomersByMonetary(data.RFM, DefaultCustomerLimit)
	return data, nil
}

// Dashboard filters the dataset to [start, end] and aggregates the result.
func (ds *Dataset) Dashboard(ctx context.Context, start, end time.Time) (*models.DashboardData, error) {
	data, err := Aggregate(ctx, ds.Window(start, end))
	if err != nil {
		return nil, err
	}
	data.Start = models.Day(dayOf(start))
	data.End = models.Day(dayOf(end))
	return data, nil
}
