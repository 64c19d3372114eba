package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"dashboard/internal/models"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, ok := parseTimestamp(s)
	if !ok {
		t.Fatalf("bad fixture timestamp %q", s)
	}
	return ts
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// scenarioOrders:
// customer A on 2024-01-01 ($10, credit_card)
// customer A on 2024-01-05 ($20, credit_card)
// customer B on 2024-01-03 ($5, voucher)
func scenarioOrders(t *testing.T) []models.Order {
	return []models.Order{
		{
			OrderID: "o1", CustomerUniqueID: "A", ApprovedAt: mustTime(t, "2024-01-01 10:15:00"),
			PaymentType: "credit_card", PaymentValue: decimal.NewFromInt(10),
			ProductCategory: "toys", CustomerState: "SP", CustomerCity: "sao paulo",
		},
		{
			OrderID: "o2", CustomerUniqueID: "B", ApprovedAt: mustTime(t, "2024-01-03 09:00:00"),
			PaymentType: "voucher", PaymentValue: decimal.NewFromInt(5),
			ProductCategory: "garden", CustomerState: "RJ", CustomerCity: "rio de janeiro",
		},
		{
			OrderID: "o3", CustomerUniqueID: "A", ApprovedAt: mustTime(t, "2024-01-05 18:30:00"),
			PaymentType: "credit_card", PaymentValue: decimal.NewFromInt(20),
			ProductCategory: "toys", CustomerState: "SP", CustomerCity: "sao paulo",
		},
	}
}
