package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownMetric    = errors.New("unknown metric")
)

// Dimension is one of the three categorical axes used for filtering and grouping.
type Dimension string

const (
	Country  Dimension = "Country"
	Industry Dimension = "Industry"
	Tool     Dimension = "Top AI Tools Used"
)

// Dimensions lists the filterable axes in the order the dashboard shows them.
var Dimensions = []Dimension{Country, Industry, Tool}

// ParseDimension accepts either the column name or the short name (country, industry, tool).
func ParseDimension(s string) (Dimension, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "country":
		return Country, true
	case "industry":
		return Industry, true
	case "tool", "tools", "top ai tools used":
		return Tool, true
	}
	return "", false
}

// Metric is one of the six percentage columns.
type Metric string

const (
	AdoptionRate      Metric = "AI Adoption Rate (%)"
	JobLoss           Metric = "Job Loss Due to AI (%)"
	RevenueIncrease   Metric = "Revenue Increase Due to AI (%)"
	CollaborationRate Metric = "Human-AI Collaboration Rate (%)"
	ConsumerTrust     Metric = "Consumer Trust in AI (%)"
	MarketShare       Metric = "Market Share of AI Companies (%)"
)

// Metrics is the enumeration order; radar output follows it.
var Metrics = []Metric{
	AdoptionRate,
	JobLoss,
	RevenueIncrease,
	CollaborationRate,
	ConsumerTrust,
	MarketShare,
}

// Index returns the position of m in Metrics, or -1.
func (m Metric) Index() int {
	for i, v := range Metrics {
		if v == m {
			return i
		}
	}
	return -1
}

// ParseMetric matches a metric by its exact column name (case-insensitive).
func ParseMetric(s string) (Metric, bool) {
	s = strings.TrimSpace(s)
	for _, m := range Metrics {
		if strings.EqualFold(string(m), s) {
			return m, true
		}
	}
	return "", false
}

// Fixed column names read by the loader besides the dimensions and metrics.
const (
	YearColumn   = "Year"
	VolumeColumn = "AI-Generated Content Volume (TBs per year)"
)

// Selection is the per-dimension filter state.
type Selection struct {
	All    bool     `json:"all"`
	Values []string `json:"values"`
}

// FilterSet holds one selection per dimension.
type FilterSet struct {
	Countries  Selection `json:"countries"`
	Industries Selection `json:"industries"`
	Tools      Selection `json:"tools"`
}

// For returns the selection for dim.
func (f FilterSet) For(dim Dimension) Selection {
	switch dim {
	case Country:
		return f.Countries
	case Industry:
		return f.Industries
	case Tool:
		return f.Tools
	}
	panic(fmt.Sprintf("models: unknown dimension %q", dim))
}

// Vocabulary holds the sorted distinct values of each dimension.
type Vocabulary struct {
	Countries  []string `json:"countries"`
	Industries []string `json:"industries"`
	Tools      []string `json:"tools"`
}

// For returns the vocabulary of dim.
func (v Vocabulary) For(dim Dimension) []string {
	switch dim {
	case Country:
		return v.Countries
	case Industry:
		return v.Industries
	case Tool:
		return v.Tools
	}
	panic(fmt.Sprintf("models: unknown dimension %q", dim))
}

type VolumePoint struct {
	Year  int     `json:"year"`
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

type MetricPoint struct {
	Year  int     `json:"year"`
	Tool  string  `json:"tool"`
	Value float64 `json:"value"`
}

type RadarPoint struct {
	Tool   string  `json:"tool"`
	Metric Metric  `json:"metric"`
	Value  float64 `json:"value"`
}

type Summary struct {
	Rows        int                `json:"rows"`
	TotalVolume float64            `json:"total_volume"`
	Means       map[Metric]float64 `json:"means,omitempty"`
}

// DashboardData is everything a client needs to draw one render pass.
type DashboardData struct {
	Revision   uint64        `json:"revision"`
	Filters    FilterSet     `json:"filters"`
	Metric     Metric        `json:"metric"`
	GroupBy    Dimension     `json:"group_by"`
	Volume     []VolumePoint `json:"volume"`
	MetricMean []MetricPoint `json:"metric_mean"`
	Years      []int         `json:"years"`
	RadarYear  *int          `json:"radar_year,omitempty"`
	Radar      []RadarPoint  `json:"radar"`
	Rows       int           `json:"rows"`
}
