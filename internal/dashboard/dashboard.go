// Package dashboard recomputes every chart-ready aggregate from the loaded
// dataset and one session's filter state.
package dashboard

import (
	"fmt"

	"aidash/internal/engine"
	"aidash/internal/filters"
	"aidash/internal/models"
)

// Controls are the non-filter selectors of the dashboard.
type Controls struct {
	Metric    models.Metric    `json:"metric"`
	GroupBy   models.Dimension `json:"group_by"`
	RadarYear *int             `json:"radar_year,omitempty"`
}

// DefaultControls matches the initial render: adoption rate, grouped by country, latest year.
func DefaultControls() Controls {
	return Controls{Metric: models.AdoptionRate, GroupBy: models.Country}
}

// Validate rejects metrics and dimensions outside the enumerations.
func (c Controls) Validate() error {
	if c.Metric.Index() < 0 {
		return fmt.Errorf("%w: %q", models.ErrUnknownMetric, c.Metric)
	}
	for _, d := range models.Dimensions {
		if d == c.GroupBy {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", models.ErrUnknownDimension, c.GroupBy)
}

// Compute runs the row filter and the three aggregations for the current state.
// It is called after every mutation; nothing is cached between calls.
func Compute(store *engine.ColumnStore, state *filters.State, c Controls) (*models.DashboardData, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sel := state.Snapshot()
	view := store.Filter(sel)

	volume, err := store.VolumeByYear(view, c.GroupBy)
	if err != nil {
		return nil, err
	}
	means, err := store.MetricByYearAndTool(view, c.Metric)
	if err != nil {
		return nil, err
	}

	data := &models.DashboardData{
		Revision:   state.Revision(),
		Filters:    sel,
		Metric:     c.Metric,
		GroupBy:    c.GroupBy,
		Volume:     volume,
		MetricMean: means,
		Years:      store.YearOptions(view),
		Radar:      []models.RadarPoint{},
		Rows:       len(view),
	}

	if year, ok := RadarYear(data.Years, c.RadarYear); ok {
		data.RadarYear = &year
		if radar := store.Radar(view, year); radar != nil {
			data.Radar = radar
		}
	}
	return data, nil
}

// RadarYear picks the requested year, or the latest available one when none was requested.
// With no available years the radar is skipped.
func RadarYear(years []int, requested *int) (int, bool) {
	if requested != nil {
		return *requested, true
	}
	if len(years) == 0 {
		return 0, false
	}
	return years[len(years)-1], true
}

// View returns the filtered rows for the table and exports.
func View(store *engine.ColumnStore, state *filters.State) engine.View {
	return store.Filter(state.Snapshot())
}
