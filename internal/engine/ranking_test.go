package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard/internal/models"
)

var categories = []models.CategorySales{
	{Category: "toys", TotalSales: 7},
	{Category: "garden", TotalSales: 2},
	{Category: "books", TotalSales: 7},
	{Category: "auto", TotalSales: 1},
}

func TestBestAndWorstCategories(t *testing.T) {
	best := BestCategories(categories, 2)
	assert.Equal(t, []models.CategorySales{
		{Category: "books", TotalSales: 7},
		{Category: "toys", TotalSales: 7},
	}, best)

	worst := WorstCategories(categories, 0)
	require.Len(t, worst, 4)
	assert.Equal(t, "auto", worst[0].Category)
	assert.Equal(t, "garden", worst[1].Category)

	// input is left untouched
	assert.Equal(t, "toys", categories[0].Category)
	assert.NotNil(t, BestCategories(nil, 10))
}

func TestTopRegions(t *testing.T) {
	states := TopStates([]models.StateCustomers{{State: "RJ", CustomerCount: 3}, {State: "SP", CustomerCount: 9}}, 1)
	assert.Equal(t, []models.StateCustomers{{State: "SP", CustomerCount: 9}}, states)

	cities := TopCities([]models.CityCustomers{{City: "b", CustomerCount: 2}, {City: "a", CustomerCount: 2}}, 10)
	assert.Equal(t, "a", cities[0].City)
}

func rfmRows() []models.RFM {
	return []models.RFM{
		{CustomerUniqueID: "a", Frequency: 1, Monetary: models.NewMoney(decimal.NewFromInt(50)), Recency: 0},
		{CustomerUniqueID: "b", Frequency: 3, Monetary: models.NewMoney(decimal.NewFromInt(10)), Recency: 4},
		{CustomerUniqueID: "c", Frequency: 2, Monetary: models.NewMoney(decimal.NewFromInt(99)), Recency: 1},
	}
}

func TestTopCustomers(t *testing.T) {
	byRecency := TopCustomersByRecency(rfmRows(), 5)
	require.Len(t, byRecency, 2)
	assert.Equal(t, "c", byRecency[0].CustomerUniqueID)
	assert.Equal(t, "b", byRecency[1].CustomerUniqueID)

	byFrequency := TopCustomersByFrequency(rfmRows(), 1)
	require.Len(t, byFrequency, 1)
	assert.Equal(t, "b", byFrequency[0].CustomerUniqueID)

	byMonetary := TopCustomersByMonetary(rfmRows(), 0)
	assert.Equal(t, "c", byMonetary[0].CustomerUniqueID)
	assert.Equal(t, "a", byMonetary[1].CustomerUniqueID)
}

func TestRankCustomers(t *testing.T) {
	rows, err := RankCustomers(rfmRows(), "frequency", 2)
	require.NoError(t, err)
	assert.Equal(t, "b", rows[0].CustomerUniqueID)

	rows, err = RankCustomers(rfmRows(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "c", rows[0].CustomerUniqueID)

	_, err = RankCustomers(rfmRows(), "loyalty", 1)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	daily := []models.DailyOrders{
		{OrderCount: 2, Revenue: models.NewMoney(decimal.NewFromFloat(10.25))},
		{OrderCount: 0, Revenue: models.NewMoney(decimal.Zero)},
		{OrderCount: 1, Revenue: models.NewMoney(decimal.NewFromInt(5))},
	}
	s := Summarize(daily, rfmRows())

	assert.Equal(t, 3, s.TotalOrders)
	assertDecimal(t, "15.25", s.TotalRevenue.Decimal)
	assert.Equal(t, 3, s.Customers)
	assert.Equal(t, 1.7, s.AvgRecency)
	assert.Equal(t, 2.0, s.AvgFrequency)
	assertDecimal(t, "53", s.AvgMonetary.Decimal)

	empty := Summarize(nil, nil)
	assert.Equal(t, 0, empty.TotalOrders)
	assert.Equal(t, 0.0, empty.AvgRecency)
	assertDecimal(t, "0", empty.AvgMonetary.Decimal)
}
