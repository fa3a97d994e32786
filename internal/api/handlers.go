package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"aidash/internal/dashboard"
	"aidash/internal/engine"
	"aidash/internal/filters"
	"aidash/internal/models"
	"aidash/internal/session"
)

type Handler struct {
	mu       sync.RWMutex
	store    *engine.ColumnStore
	sessions *session.Manager
}

// NewHandler accepts a nil store; data endpoints answer 503 until SetStore is called.
func NewHandler(store *engine.ColumnStore, sessions *session.Manager) *Handler {
	return &Handler{store: store, sessions: sessions}
}

// SetStore swaps in a freshly loaded dataset and rebases every session onto it.
func (h *Handler) SetStore(store *engine.ColumnStore) {
	h.mu.Lock()
	h.store = store
	h.mu.Unlock()
	h.sessions.Rebase(store.Vocabularies())
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = errorHandler(e)
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.GET("/vocabulary", h.GetVocabulary)
	api.GET("/metrics", h.GetOptions)
	api.GET("/summary", h.GetSummary)

	s := api.Group("/sessions")
	s.POST("", h.CreateSession)
	s.GET("/:id", h.GetSession)
	s.DELETE("/:id", h.DeleteSession)
	s.POST("/:id/reset", h.Reset)
	s.PUT("/:id/filters/:dim/all", h.ToggleAll)
	s.PUT("/:id/filters/:dim", h.SetSelection)
	s.PUT("/:id/controls", h.SetControls)
	s.GET("/:id/dashboard", h.GetDashboard)
	s.GET("/:id/table", h.GetTable)
	s.GET("/:id/export.csv", h.ExportCSV)
	s.GET("/:id/export.parquet", h.ExportParquet)
}

// --- ERRORS ---

// errorHandler maps domain errors onto HTTP statuses before echo's default handling.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
		case errors.Is(err, session.ErrNotFound):
			err = echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, models.ErrUnknownDimension), errors.Is(err, models.ErrUnknownMetric):
			err = echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

var errLoading = echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is still loading")

func (h *Handler) loadedStore() (*engine.ColumnStore, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.store == nil {
		return nil, errLoading
	}
	return h.store, nil
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	_, err := h.loadedStore()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"loaded":   err == nil,
		"sessions": h.sessions.Len(),
	})
}

func (h *Handler) GetVocabulary(c echo.Context) error {
	store, err := h.loadedStore()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, store.Vocabularies())
}

// GetOptions lists the enumerated choices for the metric and group-by selectors.
func (h *Handler) GetOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"metrics":    models.Metrics,
		"dimensions": models.Dimensions,
	})
}

func (h *Handler) GetSummary(c echo.Context) error {
	store, err := h.loadedStore()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, store.Summary(store.All()))
}

type sessionResponse struct {
	ID       string             `json:"id"`
	Revision uint64             `json:"revision"`
	Filters  models.FilterSet   `json:"filters"`
	Controls dashboard.Controls `json:"controls"`
}

func (h *Handler) CreateSession(c echo.Context) error {
	if _, err := h.loadedStore(); err != nil {
		return err
	}
	s := h.sessions.Create()
	return h.respondSession(c, http.StatusCreated, s)
}

func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return h.respondSession(c, http.StatusOK, s)
}

func (h *Handler) respondSession(c echo.Context, code int, s *session.Session) error {
	var resp sessionResponse
	err := s.Do(func(state *filters.State, controls *dashboard.Controls) error {
		resp = sessionResponse{ID: s.ID, Revision: state.Revision(), Filters: state.Snapshot(), Controls: *controls}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(code, resp)
}

func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// mutate applies fn to the session and answers with the dashboard recomputed
// under the same lock, so the filters shown always match the aggregates.
func (h *Handler) mutate(c echo.Context, fn func(state *filters.State, controls *dashboard.Controls) error) error {
	store, err := h.loadedStore()
	if err != nil {
		return err
	}
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return err
	}
	var data *models.DashboardData
	err = s.Do(func(state *filters.State, controls *dashboard.Controls) error {
		if err := fn(state, controls); err != nil {
			return err
		}
		var cerr error
		data, cerr = dashboard.Compute(store, state, *controls)
		return cerr
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	return h.mutate(c, func(*filters.State, *dashboard.Controls) error { return nil })
}

func (h *Handler) Reset(c echo.Context) error {
	return h.mutate(c, func(state *filters.State, _ *dashboard.Controls) error {
		state.Reset()
		return nil
	})
}

func dimensionParam(c echo.Context) (models.Dimension, error) {
	dim, ok := models.ParseDimension(c.Param("dim"))
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownDimension, c.Param("dim"))
	}
	return dim, nil
}

type toggleRequest struct {
	Checked *bool `json:"checked"`
}

func (h *Handler) ToggleAll(c echo.Context) error {
	dim, err := dimensionParam(c)
	if err != nil {
		return err
	}
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Checked == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing field: checked")
	}
	return h.mutate(c, func(state *filters.State, _ *dashboard.Controls) error {
		return state.ToggleAll(dim, *req.Checked)
	})
}

type selectionRequest struct {
	Values []string `json:"values"`
}

func (h *Handler) SetSelection(c echo.Context) error {
	dim, err := dimensionParam(c)
	if err != nil {
		return err
	}
	var req selectionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return h.mutate(c, func(state *filters.State, _ *dashboard.Controls) error {
		return state.SetSelection(dim, req.Values)
	})
}

type controlsRequest struct {
	Metric    *string `json:"metric"`
	GroupBy   *string `json:"group_by"`
	RadarYear *int    `json:"radar_year"`
	// ClearRadarYear returns the radar to "latest available year".
	ClearRadarYear bool `json:"clear_radar_year"`
}

func (h *Handler) SetControls(c echo.Context) error {
	var req controlsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	next := func(cur dashboard.Controls) (dashboard.Controls, error) {
		if req.Metric != nil {
			m, ok := models.ParseMetric(*req.Metric)
			if !ok {
				return cur, fmt.Errorf("%w: %q", models.ErrUnknownMetric, *req.Metric)
			}
			cur.Metric = m
		}
		if req.GroupBy != nil {
			d, ok := models.ParseDimension(*req.GroupBy)
			if !ok {
				return cur, fmt.Errorf("%w: %q", models.ErrUnknownDimension, *req.GroupBy)
			}
			cur.GroupBy = d
		}
		switch {
		case req.ClearRadarYear:
			cur.RadarYear = nil
		case req.RadarYear != nil:
			y := *req.RadarYear
			cur.RadarYear = &y
		}
		return cur, nil
	}
	return h.mutate(c, func(_ *filters.State, controls *dashboard.Controls) error {
		updated, err := next(*controls)
		if err != nil {
			return err
		}
		*controls = updated
		return nil
	})
}

// --- TABLE ---

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

// GetTable pages through the filtered rows sorted by (Year, Country), as raw cells.
func (h *Handler) GetTable(c echo.Context) error {
	store, err := h.loadedStore()
	if err != nil {
		return err
	}
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return err
	}
	var view engine.View
	err = s.Do(func(state *filters.State, _ *dashboard.Controls) error {
		view = store.Table(dashboard.View(store, state))
		return nil
	})
	if err != nil {
		return err
	}

	total := len(view)
	limit, offset := getPaginationParams(c, total)
	rows := make([][]string, 0)
	if offset < total {
		end := total
		if limit < total-offset {
			end = offset + limit
		}
		for _, j := range view[offset:end] {
			rows = append(rows, store.Raw[j])
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"columns": store.Header,
		"data":    rows,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// --- EXPORT ---

func (h *Handler) export(c echo.Context, contentType, ext string, write func(*engine.ColumnStore, engine.View) error) error {
	store, err := h.loadedStore()
	if err != nil {
		return err
	}
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return err
	}
	var view engine.View
	err = s.Do(func(state *filters.State, _ *dashboard.Controls) error {
		view = dashboard.View(store, state)
		return nil
	})
	if err != nil {
		return err
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", engine.ExportFilename+ext))
	res.WriteHeader(http.StatusOK)
	return write(store, view)
}

func (h *Handler) ExportCSV(c echo.Context) error {
	return h.export(c, "text/csv; charset=utf-8", ".csv", func(store *engine.ColumnStore, v engine.View) error {
		return store.WriteCSV(c.Response(), v)
	})
}

func (h *Handler) ExportParquet(c echo.Context) error {
	return h.export(c, "application/vnd.apache.parquet", ".parquet", func(store *engine.ColumnStore, v engine.View) error {
		return store.WriteParquet(c.Response(), v)
	})
}
