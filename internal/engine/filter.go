package engine

import (
	"time"

	"dashboard/internal/models"
)

// dayOf re-anchors the calendar date of t at UTC midnight, so days from
// differently located inputs compare by date.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FilterByDate keeps rows whose approval date lies in [start, end].
// Only the date part of start and end is used. A reversed range matches nothing.
func FilterByDate(orders []models.Order, start, end time.Time) []models.Order {
	out := make([]models.Order, 0)
	from := dayOf(start)
	to := dayOf(end)
	if from.After(to) {
		return out
	}

	for _, o := range orders {
		if o.ApprovedAt.IsZero() {
			continue
		}
		d := dayOf(o.ApprovedAt)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out
}
