package engine

import (
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"dashboard/internal/models"
)

type Period int

const (
	PeriodDay Period = iota
	PeriodWeek
	PeriodMonth
)

func (p Period) String() string {
	switch p {
	case PeriodWeek:
		return "week"
	case PeriodMonth:
		return "month"
	}
	return "day"
}

// ParsePeriod accepts day, week or month. Blank means day.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "daily":
		return PeriodDay, nil
	case "week", "weekly":
		return PeriodWeek, nil
	case "month", "monthly":
		return PeriodMonth, nil
	}
	return PeriodDay, errors.Errorf("unknown period %q", s)
}

// Weeks start on Monday.
var calendar = &now.Config{WeekStartDay: time.Monday, TimeLocation: time.UTC}

// Start returns the first day of the period containing d.
func (p Period) Start(d time.Time) time.Time {
	n := calendar.With(dayOf(d))
	switch p {
	case PeriodWeek:
		return n.BeginningOfWeek()
	case PeriodMonth:
		return n.BeginningOfMonth()
	}
	return n.BeginningOfDay()
}

// Resample folds a daily series into weeks or months. Each row is labelled
// with the first day of its period, which may precede the first input day.
// Order counts are summed per day, so an order is counted once as long as all
// its rows share one approval day.
func Resample(daily []models.DailyOrders, p Period) []models.DailyOrders {
	out := make([]models.DailyOrders, 0)
	if p == PeriodDay {
		return append(out, daily...)
	}

	var revenue decimal.Decimal
	for _, d := range daily {
		start := models.Day(p.Start(d.Date.Time()))
		if len(out) == 0 || !out[len(out)-1].Date.Time().Equal(start.Time()) {
			if len(out) > 0 {
				out[len(out)-1].Revenue = models.NewMoney(revenue)
			}
			out = append(out, models.DailyOrders{Date: start})
			revenue = decimal.Zero
		}
		out[len(out)-1].OrderCount += d.OrderCount
		revenue = revenue.Add(d.Revenue.Decimal)
	}
	if len(out) > 0 {
		out[len(out)-1].Revenue = models.NewMoney(revenue)
	}
	return out
}
