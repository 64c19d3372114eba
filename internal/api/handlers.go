package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"dashboard/internal/engine"
	"dashboard/internal/models"
)

// Handler serves the dashboard tables for the currently loaded dataset.
// Until SetData is called every data route answers 503.
type Handler struct {
	mu    sync.RWMutex
	data  *engine.Dataset
	cache *lru.Cache
}

type cacheKey struct {
	fingerprint uint64
	start, end  int64
}

func (k cacheKey) etag() string {
	return fmt.Sprintf(`"%016x"`, xxh3.HashString(fmt.Sprintf("%d:%d:%d", k.fingerprint, k.start, k.end)))
}

func NewHandler(data *engine.Dataset, cacheSize int) (*Handler, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create dashboard cache")
	}
	return &Handler{data: data, cache: cache}, nil
}

// SetData swaps in a freshly loaded dataset and drops cached dashboards.
func (h *Handler) SetData(ds *engine.Dataset) {
	h.mu.Lock()
	h.data = ds
	h.mu.Unlock()
	h.cache.Purge()
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.GET("/range", h.GetRange)
	api.GET("/dashboard", h.withDashboard(h.GetDashboard))
	api.GET("/summary", h.withDashboard(h.GetSummary))
	api.GET("/orders/daily", h.withDashboard(h.GetDailyOrders))
	api.GET("/payments", h.withDashboard(h.GetPaymentTypes))
	api.GET("/categories", h.withDashboard(h.GetCategories))
	api.GET("/customers/state", h.withDashboard(h.GetCustomersByState))
	api.GET("/customers/city", h.withDashboard(h.GetCustomersByCity))
	api.GET("/rfm", h.withDashboard(h.GetRFM))
	api.GET("/search", h.Search)
}

func (h *Handler) dataset() (*engine.Dataset, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.data == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is still loading")
	}
	return h.data, nil
}

// --- HELPERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginate[T any](c echo.Context, rows []T) error {
	total := len(rows)
	limit, offset := getPaginationParams(c, total)

	page := make([]T, 0)
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = rows[offset:end]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   page,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// parseRange reads the start/end query parameters, defaulting to the bounds
// of the dataset.
func parseRange(c echo.Context, ds *engine.Dataset) (time.Time, time.Time, error) {
	start, end := ds.MinDate, ds.MaxDate
	if s := c.QueryParam("start"); s != "" {
		t, err := models.ParseDay(s)
		if err != nil {
			return start, end, echo.NewHTTPError(http.StatusBadRequest, "start must be YYYY-MM-DD").SetInternal(err)
		}
		start = t
	}
	if s := c.QueryParam("end"); s != "" {
		t, err := models.ParseDay(s)
		if err != nil {
			return start, end, echo.NewHTTPError(http.StatusBadRequest, "end must be YYYY-MM-DD").SetInternal(err)
		}
		end = t
	}
	return start, end, nil
}

const (
	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

var errNotModified = errors.New("not modified")

// etagMatches reports whether an If-None-Match value names etag. The value may
// be "*" or a comma separated list; weak tags compare by their opaque part.
func etagMatches(header, etag string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

// dashboard returns the (cached) tables for the requested range, or
// errNotModified when the client already holds the current version.
func (h *Handler) dashboard(c echo.Context) (*models.DashboardData, error) {
	ds, err := h.dataset()
	if err != nil {
		return nil, err
	}
	start, end, err := parseRange(c, ds)
	if err != nil {
		return nil, err
	}

	key := cacheKey{fingerprint: ds.Fingerprint, start: start.Unix(), end: end.Unix()}
	etag := key.etag()
	c.Response().Header().Set(headerETag, etag)
	if etagMatches(c.Request().Header.Get(headerIfNoneMatch), etag) {
		return nil, errNotModified
	}

	if v, ok := h.cache.Get(key); ok {
		return v.(*models.DashboardData), nil
	}
	data, err := ds.Dashboard(c.Request().Context(), start, end)
	if err != nil {
		return nil, err
	}
	h.cache.Add(key, data)
	return data, nil
}

func (h *Handler) withDashboard(fn func(echo.Context, *models.DashboardData) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := h.dashboard(c)
		if errors.Is(err, errNotModified) {
			return c.NoContent(http.StatusNotModified)
		}
		if err != nil {
			return err
		}
		return fn(c, data)
	}
}

// --- HANDLERS ---
func (h *Handler) Health(c echo.Context) error {
	h.mu.RLock()
	loaded := h.data != nil
	h.mu.RUnlock()
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "loaded": loaded})
}

func (h *Handler) GetRange(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ds.Range())
}

func (h *Handler) GetDashboard(c echo.Context, data *models.DashboardData) error {
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetSummary(c echo.Context, data *models.DashboardData) error {
	return c.JSON(http.StatusOK, data.Summary)
}

// daily series, or weekly/monthly with ?period=
func (h *Handler) GetDailyOrders(c echo.Context, data *models.DashboardData) error {
	period, err := engine.ParsePeriod(c.QueryParam("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "period must be day, week or month")
	}
	return c.JSON(http.StatusOK, engine.Resample(data.DailyOrders, period))
}

// payment types, most used first
func (h *Handler) GetPaymentTypes(c echo.Context, data *models.DashboardData) error {
	return c.JSON(http.StatusOK, data.PaymentTypes)
}

// best or worst categories, 10 by default
func (h *Handler) GetCategories(c echo.Context, data *models.DashboardData) error {
	limit, _ := getPaginationParams(c, engine.DefaultCategoryLimit)

	switch c.QueryParam("order") {
	case "", "best":
		return c.JSON(http.StatusOK, engine.BestCategories(data.Categories, limit))
	case "worst":
		return c.JSON(http.StatusOK, engine.WorstCategories(data.Categories, limit))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "order must be best or worst")
}

func (h *Handler) GetCustomersByState(c echo.Context, data *models.DashboardData) error {
	return paginate(c, engine.TopStates(data.ByState, 0))
}

func (h *Handler) GetCustomersByCity(c echo.Context, data *models.DashboardData) error {
	return paginate(c, engine.TopCities(data.ByCity, 0))
}

// top customers by one RFM metric, 5 by default
func (h *Handler) GetRFM(c echo.Context, data *models.DashboardData) error {
	limit, _ := getPaginationParams(c, engine.DefaultCustomerLimit)

	rows, err := engine.RankCustomers(data.RFM, c.QueryParam("sort"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) Search(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	field, err := engine.ParseSearchField(c.QueryParam("field"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	start, end, err := parseRange(c, ds)
	if err != nil {
		return err
	}
	limit, _ := getPaginationParams(c, 10)

	labels := engine.Labels(ds.Window(start, end), field)
	return c.JSON(http.StatusOK, engine.SearchLabels(labels, c.QueryParam("q"), limit))
}
