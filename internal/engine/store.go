package engine

import (
	"time"

	"dashboard/internal/models"
)

// Dataset holds the loaded order rows sorted by approval time.
type Dataset struct {
	Orders []models.Order

	// Bounds of the approval timestamps, truncated to the day
	MinDate time.Time
	MaxDate time.Time

	// Rows dropped while loading (bad timestamp or payment value)
	Skipped int

	// xxh3 of the source bytes
	Fingerprint uint64
}

func (ds *Dataset) Range() models.DataRange {
	return models.DataRange{
		MinDate: models.Day(ds.MinDate),
		MaxDate: models.Day(ds.MaxDate),
		Rows:    len(ds.Orders),
		Skipped: ds.Skipped,
	}
}

// Window returns the rows approved between start and end, both days inclusive.
func (ds *Dataset) Window(start, end time.Time) []models.Order {
	return FilterByDate(ds.Orders, start, end)
}
