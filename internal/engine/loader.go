package engine

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"dashboard/internal/models"
)

var ErrMissingColumn = errors.New("missing required column")

const (
	colOrderID     = "order_id"
	colCustomerID  = "customer_unique_id"
	colApprovedAt  = "order_approved_at"
	colDeliveredAt = "order_delivered_customer_date"
	colPaymentType = "payment_type"
	colPayment     = "payment_value"
	colCategory    = "product_category_name_english"
	colState       = "customer_state"
	colCity        = "customer_city"
)

var requiredColumns = []string{colOrderID, colCustomerID, colApprovedAt, colPayment}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	models.DayLayout,
}

// parseTimestamp reads a timestamp as UTC. ok is false for blank or
// unrecognised input.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parsePayment accepts non-negative decimals only.
func parsePayment(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// columns maps the known column names to their index in a record, -1 when the
// file has no such column.
type columns map[string]int

func newColumns(header []string) (columns, error) {
	cols := columns{
		colOrderID: -1, colCustomerID: -1, colApprovedAt: -1, colDeliveredAt: -1,
		colPaymentType: -1, colPayment: -1, colCategory: -1, colState: -1, colCity: -1,
	}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, known := cols[name]; known {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if cols[name] < 0 {
			return nil, errors.Wrap(ErrMissingColumn, name)
		}
	}
	return cols, nil
}

func (c columns) get(rec []string, name string) string {
	idx := c[name]
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// order converts one record. ok is false when the row must be dropped.
func (c columns) order(rec []string) (models.Order, bool) {
	approved, ok := parseTimestamp(c.get(rec, colApprovedAt))
	if !ok {
		return models.Order{}, false
	}
	payment, ok := parsePayment(c.get(rec, colPayment))
	if !ok {
		return models.Order{}, false
	}
	delivered, _ := parseTimestamp(c.get(rec, colDeliveredAt))

	return models.Order{
		OrderID:          c.get(rec, colOrderID),
		CustomerUniqueID: c.get(rec, colCustomerID),
		ApprovedAt:       approved,
		DeliveredAt:      delivered,
		PaymentType:      c.get(rec, colPaymentType),
		PaymentValue:     payment,
		ProductCategory:  c.get(rec, colCategory),
		CustomerState:    c.get(rec, colState),
		CustomerCity:     c.get(rec, colCity),
	}, true
}

// ParseOrders reads a CSV stream and returns its valid rows sorted by approval
// time, together with the number of rows that were dropped.
func ParseOrders(r io.Reader) ([]models.Order, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, errors.New("csv has no header")
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "read csv header")
	}
	cols, err := newColumns(header)
	if err != nil {
		return nil, 0, err
	}

	// A malformed line is dropped; the reader has already moved past it.
	var records [][]string
	malformed := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			malformed++
			continue
		}
		if err != nil {
			return nil, 0, errors.Wrap(err, "read csv")
		}
		records = append(records, rec)
	}

	// Convert in one chunk per worker, keeping the file order inside chunks.
	numWorkers := runtime.NumCPU()
	chunkSize := (len(records) + numWorkers - 1) / numWorkers
	if chunkSize == 0 {
		chunkSize = 1
	}
	numChunks := (len(records) + chunkSize - 1) / chunkSize
	chunks := make([][]models.Order, numChunks)
	skipped := make([]int, numChunks)

	var g errgroup.Group
	for idx := 0; idx < numChunks; idx++ {
		idx := idx
		start := idx * chunkSize
		end := min(start+chunkSize, len(records))

		g.Go(func() error {
			part := make([]models.Order, 0, end-start)
			for _, rec := range records[start:end] {
				o, ok := cols.order(rec)
				if !ok {
					skipped[idx]++
					continue
				}
				part = append(part, o)
			}
			chunks[idx] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, 0, len(records))
	totalSkipped := malformed
	for i, part := range chunks {
		orders = append(orders, part...)
		totalSkipped += skipped[i]
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].ApprovedAt.Before(orders[j].ApprovedAt) })

	return orders, totalSkipped, nil
}

// NewDataset wraps already parsed rows. orders must be sorted by approval time.
func NewDataset(orders []models.Order, skipped int) *Dataset {
	ds := &Dataset{Orders: orders, Skipped: skipped}
	if len(orders) > 0 {
		ds.MinDate = dayOf(orders[0].ApprovedAt)
		ds.MaxDate = dayOf(orders[len(orders)-1].ApprovedAt)
	}
	return ds
}

// LoadOrders reads the order dataset at path.
func LoadOrders(path string) (*Dataset, error) {
	start := time.Now()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	orders, skipped, err := ParseOrders(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	ds := NewDataset(orders, skipped)
	ds.Fingerprint = xxh3.Hash(content)

	log.WithFields(log.Fields{
		"path":    path,
		"rows":    len(ds.Orders),
		"skipped": ds.Skipped,
		"took":    time.Since(start),
	}).Info("Orders loaded")
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("Dropped rows with a bad approval timestamp or payment value")
	}
	return ds, nil
}
