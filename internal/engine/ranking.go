package engine

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"dashboard/internal/models"
)

const (
	DefaultCategoryLimit = 10
	DefaultRegionLimit   = 10
	DefaultCustomerLimit = 5
)

// head returns at most n leading elements; n <= 0 keeps everything.
func head[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func BestCategories(cats []models.CategorySales, n int) []models.CategorySales {
	out := append([]models.CategorySales(nil), cats...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalSales != out[j].TotalSales {
			return out[i].TotalSales > out[j].TotalSales
		}
		return out[i].Category < out[j].Category
	})
	return head(nonNil(out), n)
}

func WorstCategories(cats []models.CategorySales, n int) []models.CategorySales {
	out := append([]models.CategorySales(nil), cats...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalSales != out[j].TotalSales {
			return out[i].TotalSales < out[j].TotalSales
		}
		return out[i].Category < out[j].Category
	})
	return head(nonNil(out), n)
}

func TopStates(rows []models.StateCustomers, n int) []models.StateCustomers {
	out := append([]models.StateCustomers(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CustomerCount != out[j].CustomerCount {
			return out[i].CustomerCount > out[j].CustomerCount
		}
		return out[i].State < out[j].State
	})
	return head(nonNil(out), n)
}

func TopCities(rows []models.CityCustomers, n int) []models.CityCustomers {
	out := append([]models.CityCustomers(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CustomerCount != out[j].CustomerCount {
			return out[i].CustomerCount > out[j].CustomerCount
		}
		return out[i].City < out[j].City
	})
	return head(nonNil(out), n)
}

// TopCustomersByRecency lists the most recently active customers, leaving out
// those who bought on the last day of the range (recency 0).
func TopCustomersByRecency(rfm []models.RFM, n int) []models.RFM {
	out := make([]models.RFM, 0)
	for _, r := range rfm {
		if r.Recency > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Recency != out[j].Recency {
			return out[i].Recency < out[j].Recency
		}
		return out[i].CustomerUniqueID < out[j].CustomerUniqueID
	})
	return head(out, n)
}

func TopCustomersByFrequency(rfm []models.RFM, n int) []models.RFM {
	out := append([]models.RFM(nil), rfm...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].CustomerUniqueID < out[j].CustomerUniqueID
	})
	return head(nonNil(out), n)
}

func TopCustomersByMonetary(rfm []models.RFM, n int) []models.RFM {
	out := append([]models.RFM(nil), rfm...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Monetary.Cmp(out[j].Monetary.Decimal); c != 0 {
			return c > 0
		}
		return out[i].CustomerUniqueID < out[j].CustomerUniqueID
	})
	return head(nonNil(out), n)
}

// RankCustomers orders the RFM table by one of its metrics.
func RankCustomers(rfm []models.RFM, by string, n int) ([]models.RFM, error) {
	switch by {
	case "recency":
		return TopCustomersByRecency(rfm, n), nil
	case "frequency":
		return TopCustomersByFrequency(rfm, n), nil
	case "monetary", "":
		return TopCustomersByMonetary(rfm, n), nil
	}
	return nil, errors.Errorf("unknown rfm metric %q", by)
}

// Summarize derives the headline metrics shown above the charts.
func Summarize(daily []models.DailyOrders, rfm []models.RFM) models.Summary {
	var s models.Summary
	revenue := decimal.Zero
	for _, d := range daily {
		s.TotalOrders += d.OrderCount
		revenue = revenue.Add(d.Revenue.Decimal)
	}
	s.TotalRevenue = models.NewMoney(revenue)
	s.AvgMonetary = models.NewMoney(decimal.Zero)

	s.Customers = len(rfm)
	if len(rfm) == 0 {
		return s
	}

	var recency, frequency int
	monetary := decimal.Zero
	for _, r := range rfm {
		recency += r.Recency
		frequency += r.Frequency
		monetary = monetary.Add(r.Monetary.Decimal)
	}
	n := float64(len(rfm))
	s.AvgRecency = round(float64(recency)/n, 1)
	s.AvgFrequency = round(float64(frequency)/n, 2)
	s.AvgMonetary = models.NewMoney(monetary.Div(decimal.NewFromInt(int64(len(rfm)))).Round(2))
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}
	return s
}
