package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"dashboard/internal/models"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders an amount like $1,234.50.
func FormatUSD(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	if f < 0 {
		return "-$" + printer.Sprintf("%.2f", -f)
	}
	return "$" + printer.Sprintf("%.2f", f)
}

func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// Write renders data as "text" or "json".
func Write(w io.Writer, data *models.DashboardData, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(data), "encode report")
	case "text", "":
		return writeText(w, data)
	}
	return errors.Errorf("unknown report format %q", format)
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) section(title string) {
	t.printf("\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

func writeText(w io.Writer, data *models.DashboardData) error {
	t := &textWriter{w: w}
	s := data.Summary

	t.printf("E-Commerce Dashboard %s .. %s (%s rows)\n", data.Start, data.End, FormatCount(data.Rows))

	t.section("Daily Orders")
	t.printf("Total Orders:          %s\n", FormatCount(s.TotalOrders))
	t.printf("Total Revenue (USD):   %s\n", FormatUSD(s.TotalRevenue.Decimal))
	t.printf("Days:                  %d\n", len(data.DailyOrders))

	t.section("Best Performing Product Categories")
	for _, c := range data.BestCategories {
		t.printf("%-40s %8s\n", c.Category, FormatCount(c.TotalSales))
	}
	t.section("Worst Performing Product Categories")
	for _, c := range data.WorstCategories {
		t.printf("%-40s %8s\n", c.Category, FormatCount(c.TotalSales))
	}

	t.section("Number of Customers by State")
	for _, r := range data.TopStates {
		t.printf("%-40s %8s\n", r.State, FormatCount(r.CustomerCount))
	}
	t.section("Top Cities by Number of Customers")
	for _, r := range data.TopCities {
		t.printf("%-40s %8s\n", r.City, FormatCount(r.CustomerCount))
	}

	t.section("Number of Orders by Payment Type")
	for _, p := range data.PaymentTypes {
		t.printf("%-40s %8s\n", p.PaymentType, FormatCount(p.OrderCount))
	}

	t.section("Best Customer Based on RFM Parameters")
	t.printf("Average Recency (days): %.1f\n", s.AvgRecency)
	t.printf("Average Frequency:      %.2f\n", s.AvgFrequency)
	t.printf("Average Monetary (USD): %s\n", FormatUSD(s.AvgMonetary.Decimal))
	writeCustomers(t, "recency", data.TopByRecency, func(r models.RFM) string { return FormatCount(r.Recency) })
	writeCustomers(t, "frequency", data.TopByFrequency, func(r models.RFM) string { return FormatCount(r.Frequency) })
	writeCustomers(t, "monetary", data.TopByMonetary, func(r models.RFM) string { return FormatUSD(r.Monetary.Decimal) })

	return t.err
}

func writeCustomers(t *textWriter, metric string, rows []models.RFM, value func(models.RFM) string) {
	t.printf("\nTop customers by %s\n", metric)
	for _, r := range rows {
		t.printf("  %-34s %12s\n", r.CustomerUniqueID, value(r))
	}
}
