package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidash/internal/models"
)

func only(values ...string) models.Selection {
	return models.Selection{Values: values}
}

func everything(store *ColumnStore) models.FilterSet {
	v := store.Vocabularies()
	return models.FilterSet{
		Countries:  models.Selection{All: true, Values: v.Countries},
		Industries: models.Selection{All: true, Values: v.Industries},
		Tools:      models.Selection{All: true, Values: v.Tools},
	}
}

func TestVolumeByYearScenario(t *testing.T) {
	store := loadString(t, scenarioCSV)
	sel := everything(store)
	sel.Countries = only("USA")

	view := store.Filter(sel)
	got, err := store.VolumeByYear(view, models.Country)
	require.NoError(t, err)

	assert.Equal(t, []models.VolumePoint{
		{Year: 2020, Key: "USA", Value: 10},
		{Year: 2021, Key: "USA", Value: 20},
	}, got)
}

func TestVolumeByYearOmitsAbsentCombinations(t *testing.T) {
	store := loadString(t, scenarioCSV)
	got, err := store.VolumeByYear(store.All(), models.Tool)
	require.NoError(t, err)

	// (2020, ToolB) has no rows and must not appear as zero.
	assert.Equal(t, []models.VolumePoint{
		{Year: 2020, Key: "ToolA", Value: 10},
		{Year: 2021, Key: "ToolA", Value: 5},
		{Year: 2021, Key: "ToolB", Value: 20},
	}, got)
}

func TestVolumeByYearUnknownDimension(t *testing.T) {
	store := loadString(t, scenarioCSV)
	_, err := store.VolumeByYear(store.All(), models.Dimension("Region"))
	assert.ErrorIs(t, err, models.ErrUnknownDimension)
}

func TestMetricByYearAndTool(t *testing.T) {
	store := loadString(t, scenarioCSV)
	got, err := store.MetricByYearAndTool(store.All(), models.ConsumerTrust)
	require.NoError(t, err)

	assert.Equal(t, []models.MetricPoint{
		{Year: 2020, Tool: "ToolA", Value: 60},
		{Year: 2021, Tool: "ToolA", Value: 70},
		{Year: 2021, Tool: "ToolB", Value: 65},
	}, got)

	_, err = store.MetricByYearAndTool(store.All(), models.Metric("Nope"))
	assert.ErrorIs(t, err, models.ErrUnknownMetric)
}

func TestAggregatesOnEmptyView(t *testing.T) {
	store := loadString(t, scenarioCSV)
	empty := View{}

	vol, err := store.VolumeByYear(empty, models.Industry)
	require.NoError(t, err)
	assert.Empty(t, vol)

	means, err := store.MetricByYearAndTool(empty, models.JobLoss)
	require.NoError(t, err)
	assert.Empty(t, means)

	assert.Empty(t, store.YearOptions(empty))
	assert.Nil(t, store.Radar(empty, 2021))
	assert.Equal(t, models.Summary{}, store.Summary(empty))
}

func TestYearOptions(t *testing.T) {
	store := loadString(t, testHeader+
		"USA,2018,Tech,1,1,1,1,1,ToolA,S,1,1\n"+
		"USA,2024,Tech,1,1,1,1,1,ToolA,S,1,1\n"+
		"USA,2020,Tech,1,1,1,1,1,ToolA,S,1,1\n"+
		"USA,2024,Tech,1,1,1,1,1,ToolB,S,1,1\n")
	assert.Equal(t, []int{2018, 2020, 2024}, store.YearOptions(store.All()))
}

func TestAggregatesOnExtremeYears(t *testing.T) {
	store := loadString(t, testHeader+
		"USA,-2147483648,Tech,10,1,1,1,1,ToolA,S,1,1\n"+
		"Chile,2147483647,Tech,30,2,1,1,1,ToolB,S,1,1\n"+
		"USA,2147483647,Tech,50,4,1,1,1,ToolB,S,1,1\n")

	volume, err := store.VolumeByYear(store.All(), models.Country)
	require.NoError(t, err)
	assert.Equal(t, []models.VolumePoint{
		{Year: -2147483648, Key: "USA", Value: 1},
		{Year: 2147483647, Key: "Chile", Value: 2},
		{Year: 2147483647, Key: "USA", Value: 4},
	}, volume)

	means, err := store.MetricByYearAndTool(store.All(), models.AdoptionRate)
	require.NoError(t, err)
	assert.Equal(t, []models.MetricPoint{
		{Year: -2147483648, Tool: "ToolA", Value: 10},
		{Year: 2147483647, Tool: "ToolB", Value: 40},
	}, means)

	assert.Equal(t, []int{-2147483648, 2147483647}, store.YearOptions(store.All()))
}

func TestAggregatesOnWideYearSpan(t *testing.T) {
	store := loadString(t, testHeader+
		"USA,1,Tech,10,1,1,1,1,ToolA,S,1,1\n"+
		"USA,2000000000,Tech,20,2,1,1,1,ToolA,S,1,1\n")

	volume, err := store.VolumeByYear(store.All(), models.Tool)
	require.NoError(t, err)
	assert.Equal(t, []models.VolumePoint{
		{Year: 1, Key: "ToolA", Value: 1},
		{Year: 2000000000, Key: "ToolA", Value: 2},
	}, volume)
	assert.Equal(t, []int{1, 2000000000}, store.YearOptions(store.All()))
}

func TestRadar(t *testing.T) {
	store := loadString(t, scenarioCSV+"Chile,2021,Tech,70,1,9,14,65,ToolA,Strict,80,30\n")

	got := store.Radar(store.All(), 2021)
	require.Len(t, got, 2*len(models.Metrics))

	// ToolA in 2021: Brazil and Chile rows.
	for i, m := range models.Metrics {
		assert.Equal(t, "ToolA", got[i].Tool)
		assert.Equal(t, m, got[i].Metric)
	}
	assert.Equal(t, 50.0, got[0].Value)                     // (30+70)/2
	assert.Equal(t, 20.0, got[len(models.Metrics)-1].Value) // (10+30)/2
	assert.Equal(t, "ToolB", got[len(models.Metrics)].Tool)
	assert.Equal(t, 50.0, got[len(models.Metrics)].Value)

	assert.Nil(t, store.Radar(store.All(), 1999), "year without rows yields no radar data")
}

func TestSummary(t *testing.T) {
	store := loadString(t, scenarioCSV)
	s := store.Summary(store.All())

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 35.0, s.TotalVolume)
	assert.Equal(t, 40.0, s.Means[models.AdoptionRate])
}

// randomStore builds a dataset with enough rows and combinations to make
// grouping mistakes visible.
func randomStore(t *testing.T, rows int, seed int64) *ColumnStore {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	countries := []string{"USA", "Brazil", "India", "Germany", "Japan"}
	industries := []string{"Tech", "Health", "Finance", "Retail"}
	tools := []string{"ChatGPT", "Claude", "Gemini", "Midjourney"}

	var b strings.Builder
	b.WriteString(testHeader)
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%s,%d,%s", countries[rng.Intn(len(countries))], 2020+rng.Intn(6), industries[rng.Intn(len(industries))])
		fmt.Fprintf(&b, ",%.2f,%.2f,%.2f,%.2f,%.2f", rng.Float64()*100, rng.Float64()*1000, rng.Float64()*100, rng.Float64()*100, rng.Float64()*100)
		fmt.Fprintf(&b, ",%s,Moderate,%.2f,%.2f\n", tools[rng.Intn(len(tools))], rng.Float64()*100, rng.Float64()*100)
	}
	return loadString(t, b.String())
}

// Cross-check every aggregate against a naive recomputation over the explicit row subset.
func TestAggregatesMatchNaiveRecomputation(t *testing.T) {
	store := randomStore(t, 500, 7)
	sel := everything(store)
	sel.Countries = only("USA", "India", "Japan")
	sel.Tools = only("Claude", "Gemini")

	view := store.Filter(sel)
	require.NotEmpty(t, view)

	type key struct {
		year int
		k    string
	}
	sums := map[key]float64{}
	metricSum := map[key]float64{}
	metricCnt := map[key]int{}
	mi := models.RevenueIncrease.Index()
	for _, j := range view {
		y := int(store.Years[j])
		sums[key{y, store.Value(models.Industry, j)}] += store.Volumes[j]
		k := key{y, store.Value(models.Tool, j)}
		metricSum[k] += store.Metrics[mi][j]
		metricCnt[k]++
	}

	vol, err := store.VolumeByYear(view, models.Industry)
	require.NoError(t, err)
	require.Len(t, vol, len(sums))
	for _, p := range vol {
		assert.InDelta(t, sums[key{p.Year, p.Key}], p.Value, 1e-9)
	}

	means, err := store.MetricByYearAndTool(view, models.RevenueIncrease)
	require.NoError(t, err)
	require.Len(t, means, len(metricSum))
	for _, p := range means {
		k := key{p.Year, p.Tool}
		assert.InDelta(t, metricSum[k]/float64(metricCnt[k]), p.Value, 1e-9)
	}
}
