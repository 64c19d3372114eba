package engine

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sahilm/fuzzy"

	"dashboard/internal/models"
)

// SearchField selects which order attribute label search runs over.
type SearchField string

const (
	SearchCategory SearchField = "category"
	SearchCity     SearchField = "city"
	SearchState    SearchField = "state"
)

func ParseSearchField(s string) (SearchField, error) {
	switch f := SearchField(strings.ToLower(strings.TrimSpace(s))); f {
	case SearchCategory, SearchCity, SearchState:
		return f, nil
	}
	return "", errors.Errorf("unknown search field %q", s)
}

func (f SearchField) value(o *models.Order) string {
	switch f {
	case SearchCity:
		return o.CustomerCity
	case SearchState:
		return o.CustomerState
	}
	return o.ProductCategory
}

// Labels returns the distinct, sorted values of field across orders, with
// blank values reported as UnknownKey.
func Labels(orders []models.Order, field SearchField) []string {
	seen := make(map[string]struct{})
	for i := range orders {
		seen[groupKey(field.value(&orders[i]))] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// labelSource implements fuzzy.Source
type labelSource []string

func (s labelSource) String(i int) string { return s[i] }

func (s labelSource) Len() int { return len(s) }

// SearchLabels fuzzy-matches query against labels, best match first.
func SearchLabels(labels []string, query string, limit int) []models.SearchHit {
	hits := make([]models.SearchHit, 0)
	query = strings.TrimSpace(query)
	if query == "" {
		return hits
	}

	for _, m := range fuzzy.FindFrom(query, labelSource(labels)) {
		hits = append(hits, models.SearchHit{Label: m.Str, Score: m.Score})
	}
	return head(hits, limit)
}
