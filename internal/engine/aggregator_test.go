package engine

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard/internal/models"
)

func TestDailyOrdersContiguous(t *testing.T) {
	daily := DailyOrders(scenarioOrders(t))

	require.Len(t, daily, 5)
	wantCounts := []int{1, 0, 1, 0, 1}
	wantRevenue := []string{"10", "0", "5", "0", "20"}
	for i, d := range daily {
		assert.Equal(t, wantCounts[i], d.OrderCount, "day %s", d.Date)
		assertDecimal(t, wantRevenue[i], d.Revenue.Decimal)
	}
	assert.Equal(t, "2024-01-01", daily[0].Date.String())
	assert.Equal(t, "2024-01-05", daily[4].Date.String())
}

func TestDailyOrdersCountsDistinctOrders(t *testing.T) {
	orders := scenarioOrders(t)
	// second payment row for o1 on the same day
	extra := orders[0]
	extra.PaymentType = "voucher"
	extra.PaymentValue = decimal.NewFromFloat(2.5)
	orders = append(orders, extra)

	daily := DailyOrders(orders)
	require.NotEmpty(t, daily)
	assert.Equal(t, 1, daily[0].OrderCount)
	assertDecimal(t, "12.5", daily[0].Revenue.Decimal)

	total := 0
	for _, d := range daily {
		total += d.OrderCount
	}
	assert.Equal(t, 3, total)
}

func TestPaymentTypeCounts(t *testing.T) {
	counts := PaymentTypeCounts(scenarioOrders(t))

	assert.Equal(t, []models.PaymentTypeCount{
		{PaymentType: "credit_card", OrderCount: 2},
		{PaymentType: "voucher", OrderCount: 1},
	}, counts)
}

func TestCategorySalesCountsRows(t *testing.T) {
	orders := scenarioOrders(t)
	// same order, second item row
	orders = append(orders, orders[0])

	sales := CategorySales(orders)
	assert.Equal(t, []models.CategorySales{
		{Category: "garden", TotalSales: 1},
		{Category: "toys", TotalSales: 3},
	}, sales)

	sum := 0
	for _, s := range sales {
		sum += s.TotalSales
	}
	assert.Equal(t, len(orders), sum)
}

func TestCustomersByRegionCountsDistinctCustomers(t *testing.T) {
	orders := scenarioOrders(t)
	orders = append(orders, models.Order{
		OrderID: "o4", CustomerUniqueID: "C", ApprovedAt: mustTime(t, "2024-01-02 12:00:00"),
		CustomerState: "SP", CustomerCity: "campinas",
	})

	states := CustomersByState(orders)
	assert.Equal(t, []models.StateCustomers{
		{State: "RJ", CustomerCount: 1},
		{State: "SP", CustomerCount: 2},
	}, states)

	cities := CustomersByCity(orders)
	assert.Equal(t, []models.CityCustomers{
		{City: "campinas", CustomerCount: 1},
		{City: "rio de janeiro", CustomerCount: 1},
		{City: "sao paulo", CustomerCount: 1},
	}, cities)

	assert.Equal(t, "customer_state", RegionState.String())
	assert.Equal(t, "customer_city", RegionCity.String())
}

func TestRFMScenario(t *testing.T) {
	rfm := RFM(scenarioOrders(t))

	require.Len(t, rfm, 2)
	a, b := rfm[0], rfm[1]

	assert.Equal(t, "A", a.CustomerUniqueID)
	assert.Equal(t, 2, a.Frequency)
	assertDecimal(t, "30", a.Monetary.Decimal)
	assert.Equal(t, 0, a.Recency)

	assert.Equal(t, "B", b.CustomerUniqueID)
	assert.Equal(t, 1, b.Frequency)
	assertDecimal(t, "5", b.Monetary.Decimal)
	assert.Equal(t, 2, b.Recency)
}

func TestRFMRecencyIgnoresTimeOfDay(t *testing.T) {
	orders := []models.Order{
		{OrderID: "x1", CustomerUniqueID: "late", ApprovedAt: mustTime(t, "2024-03-10 23:59:00")},
		{OrderID: "x2", CustomerUniqueID: "early", ApprovedAt: mustTime(t, "2024-03-09 00:01:00")},
	}

	for _, r := range RFM(orders) {
		assert.GreaterOrEqual(t, r.Recency, 0)
		if r.CustomerUniqueID == "late" {
			assert.Equal(t, 0, r.Recency)
		} else {
			assert.Equal(t, 1, r.Recency)
		}
	}
}

func TestBlankKeysGroupAsUnknown(t *testing.T) {
	orders := scenarioOrders(t)
	orders = append(orders, models.Order{
		OrderID: "o9", CustomerUniqueID: " ", ApprovedAt: mustTime(t, "2024-01-04 08:00:00"),
		PaymentValue: decimal.NewFromInt(1),
	})

	payments := PaymentTypeCounts(orders)
	assert.Contains(t, payments, models.PaymentTypeCount{PaymentType: UnknownKey, OrderCount: 1})

	sales := CategorySales(orders)
	assert.Contains(t, sales, models.CategorySales{Category: UnknownKey, TotalSales: 1})

	assert.Contains(t, CustomersByState(orders), models.StateCustomers{State: UnknownKey, CustomerCount: 1})
	assert.Contains(t, CustomersByCity(orders), models.CityCustomers{City: UnknownKey, CustomerCount: 1})

	ids := make([]string, 0)
	for _, r := range RFM(orders) {
		ids = append(ids, r.CustomerUniqueID)
	}
	assert.Contains(t, ids, UnknownKey)
}

func TestBlankOrderIDNotCounted(t *testing.T) {
	orders := scenarioOrders(t)
	orders = append(orders, models.Order{
		OrderID: "", CustomerUniqueID: "B", ApprovedAt: mustTime(t, "2024-01-03 15:00:00"),
		PaymentType: "voucher", PaymentValue: decimal.NewFromInt(4),
	}, models.Order{
		OrderID: "  ", CustomerUniqueID: "C", ApprovedAt: mustTime(t, "2024-01-03 16:00:00"),
		PaymentType: "voucher", PaymentValue: decimal.NewFromInt(1),
	})

	daily := DailyOrders(orders)
	require.Len(t, daily, 5)
	assert.Equal(t, 1, daily[2].OrderCount)
	assertDecimal(t, "10", daily[2].Revenue.Decimal)

	byID := make(map[string]models.RFM)
	for _, r := range RFM(orders) {
		byID[r.CustomerUniqueID] = r
	}
	assert.Equal(t, 1, byID["B"].Frequency)
	assertDecimal(t, "9", byID["B"].Monetary.Decimal)
	assert.Equal(t, 0, byID["C"].Frequency)
	assertDecimal(t, "1", byID["C"].Monetary.Decimal)
}

func TestEmptyInput(t *testing.T) {
	var none []models.Order

	assert.Empty(t, DailyOrders(none))
	assert.NotNil(t, DailyOrders(none))
	assert.Empty(t, PaymentTypeCounts(none))
	assert.Empty(t, CategorySales(none))
	assert.Empty(t, CustomersByState(none))
	assert.Empty(t, CustomersByCity(none))
	assert.Empty(t, RFM(none))

	data, err := Aggregate(context.Background(), none)
	require.NoError(t, err)
	assert.Equal(t, 0, data.Summary.TotalOrders)
	assert.Equal(t, 0, data.Summary.Customers)
	assert.NotNil(t, data.TopByRecency)
}

func TestAggregationsArePure(t *testing.T) {
	orders := scenarioOrders(t)
	snapshot := append([]models.Order(nil), orders...)

	first, err := Aggregate(context.Background(), orders)
	require.NoError(t, err)
	second, err := Aggregate(context.Background(), orders)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, orders)
}

func TestAggregate(t *testing.T) {
	data, err := Aggregate(context.Background(), scenarioOrders(t))
	require.NoError(t, err)

	assert.Equal(t, 3, data.Rows)
	assert.Len(t, data.DailyOrders, 5)
	assert.Len(t, data.RFM, 2)

	assert.Equal(t, 3, data.Summary.TotalOrders)
	assertDecimal(t, "35", data.Summary.TotalRevenue.Decimal)
	assert.Equal(t, 2, data.Summary.Customers)
	assert.Equal(t, 1.0, data.Summary.AvgRecency)
	assert.Equal(t, 1.5, data.Summary.AvgFrequency)
	assertDecimal(t, "17.5", data.Summary.AvgMonetary.Decimal)

	require.NotEmpty(t, data.BestCategories)
	assert.Equal(t, "toys", data.BestCategories[0].Category)
	assert.Equal(t, "garden", data.WorstCategories[0].Category)

	// A holds the last day, so only B has a positive recency
	require.Len(t, data.TopByRecency, 1)
	assert.Equal(t, "B", data.TopByRecency[0].CustomerUniqueID)
}

func TestAggregateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Aggregate(ctx, scenarioOrders(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDatasetDashboard(t *testing.T) {
	ds := NewDataset(scenarioOrders(t), 0)

	data, err := ds.Dashboard(context.Background(), mustTime(t, "2024-01-02"), mustTime(t, "2024-01-05"))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-02", data.Start.String())
	assert.Equal(t, "2024-01-05", data.End.String())
	assert.Equal(t, 2, data.Rows)
	// span starts at the first day present in the window
	require.Len(t, data.DailyOrders, 3)
	assert.Equal(t, "2024-01-03", data.DailyOrders[0].Date.String())
}
