package engine

import (
	"fmt"
	"sort"

	"aidash/internal/models"
)

type aggStats struct {
	Sum   float64
	Count int
}

// maxDenseCells bounds the [Year][Key] matrix; wider year spans are grouped
// through a map instead.
const maxDenseCells = 1 << 20

// yearRange returns the smallest year in v and the number of year slots needed.
func (cs *ColumnStore) yearRange(v View) (base int32, span int) {
	if len(v) == 0 {
		return 0, 0
	}
	lo, hi := cs.Years[v[0]], cs.Years[v[0]]
	for _, j := range v {
		y := cs.Years[j]
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	return lo, int(hi) - int(lo) + 1
}

type yearCell struct {
	Year int
	Key  int32
	aggStats
}

// groupByYear accumulates values[j] per (Year, keys[j]). Small year spans use
// a flattened [Year][Key] matrix; cells never touched are skipped.
func (cs *ColumnStore) groupByYear(v View, keys []int32, numKeys int, values []float64) []yearCell {
	base, span := cs.yearRange(v)
	if numKeys == 0 || span > maxDenseCells/numKeys {
		return cs.groupByYearSparse(v, keys, values)
	}
	matrix := make([]aggStats, span*numKeys)
	years := cs.Years
	for _, j := range v {
		idx := (int(years[j])-int(base))*numKeys + int(keys[j])
		matrix[idx].Sum += values[j]
		matrix[idx].Count++
	}
	out := make([]yearCell, 0)
	for i, st := range matrix {
		if st.Count == 0 {
			continue
		}
		out = append(out, yearCell{Year: int(base) + i/numKeys, Key: int32(i % numKeys), aggStats: st})
	}
	return out
}

func (cs *ColumnStore) groupByYearSparse(v View, keys []int32, values []float64) []yearCell {
	type cellKey struct{ year, key int32 }
	cells := make(map[cellKey]*aggStats)
	for _, j := range v {
		k := cellKey{cs.Years[j], keys[j]}
		st, ok := cells[k]
		if !ok {
			st = &aggStats{}
			cells[k] = st
		}
		st.Sum += values[j]
		st.Count++
	}
	out := make([]yearCell, 0, len(cells))
	for k, st := range cells {
		out = append(out, yearCell{Year: int(k.year), Key: k.key, aggStats: *st})
	}
	return out
}

// VolumeByYear sums the content volume per (Year, value of dim).
func (cs *ColumnStore) VolumeByYear(v View, dim models.Dimension) ([]models.VolumePoint, error) {
	dict, ids := cs.dict(dim), cs.ids(dim)
	if dict == nil {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownDimension, dim)
	}
	cells := cs.groupByYear(v, ids, len(dict), cs.Volumes)

	out := make([]models.VolumePoint, 0, len(cells))
	for _, c := range cells {
		out = append(out, models.VolumePoint{Year: c.Year, Key: dict[c.Key], Value: c.Sum})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Year != out[b].Year {
			return out[a].Year < out[b].Year
		}
		return out[a].Key < out[b].Key
	})
	return out, nil
}

// MetricByYearAndTool averages metric per (Year, Tool).
func (cs *ColumnStore) MetricByYearAndTool(v View, metric models.Metric) ([]models.MetricPoint, error) {
	mi := metric.Index()
	if mi < 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownMetric, metric)
	}
	cells := cs.groupByYear(v, cs.ToolIDs, len(cs.ToolDict), cs.Metrics[mi])

	out := make([]models.MetricPoint, 0, len(cells))
	for _, c := range cells {
		out = append(out, models.MetricPoint{
			Year:  c.Year,
			Tool:  cs.ToolDict[c.Key],
			Value: c.Sum / float64(c.Count),
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Year != out[b].Year {
			return out[a].Year < out[b].Year
		}
		return out[a].Tool < out[b].Tool
	})
	return out, nil
}

// YearOptions returns the distinct years present in v, ascending.
func (cs *ColumnStore) YearOptions(v View) []int {
	base, span := cs.yearRange(v)
	if span > maxDenseCells {
		seen := make(map[int32]struct{})
		for _, j := range v {
			seen[cs.Years[j]] = struct{}{}
		}
		out := make([]int, 0, len(seen))
		for y := range seen {
			out = append(out, int(y))
		}
		sort.Ints(out)
		return out
	}
	seen := make([]bool, span)
	for _, j := range v {
		seen[int(cs.Years[j])-int(base)] = true
	}
	out := make([]int, 0)
	for i, ok := range seen {
		if ok {
			out = append(out, int(base)+i)
		}
	}
	return out
}

// Radar averages all six metrics per Tool over the rows of year, in long form.
// It returns nil when year has no rows in v.
func (cs *ColumnStore) Radar(v View, year int) []models.RadarPoint {
	numTools := len(cs.ToolDict)
	numMetrics := len(models.Metrics)
	matrix := make([]aggStats, numTools*numMetrics)

	rows := 0
	for _, j := range v {
		if int(cs.Years[j]) != year {
			continue
		}
		rows++
		tid := int(cs.ToolIDs[j])
		for m := 0; m < numMetrics; m++ {
			idx := tid*numMetrics + m
			matrix[idx].Sum += cs.Metrics[m][j]
			matrix[idx].Count++
		}
	}
	if rows == 0 {
		return nil
	}

	out := make([]models.RadarPoint, 0)
	for i, st := range matrix {
		if st.Count == 0 {
			continue
		}
		out = append(out, models.RadarPoint{
			Tool:   cs.ToolDict[i/numMetrics],
			Metric: models.Metrics[i%numMetrics],
			Value:  st.Sum / float64(st.Count),
		})
	}
	// Metric order within a tool is already the enumeration order.
	sort.SliceStable(out, func(a, b int) bool { return out[a].Tool < out[b].Tool })
	return out
}

// Summary reports the row count, total volume and per-metric means of v.
func (cs *ColumnStore) Summary(v View) models.Summary {
	s := models.Summary{Rows: len(v)}
	if len(v) == 0 {
		return s
	}
	s.Means = make(map[models.Metric]float64, len(models.Metrics))
	for _, j := range v {
		s.TotalVolume += cs.Volumes[j]
	}
	for m, metric := range models.Metrics {
		var total float64
		col := cs.Metrics[m]
		for _, j := range v {
			total += col[j]
		}
		s.Means[metric] = total / float64(len(v))
	}
	return s
}
