package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidash/internal/engine"
	"aidash/internal/filters"
	"aidash/internal/models"
)

const testCSV = "Country,Year,Industry,AI Adoption Rate (%),AI-Generated Content Volume (TBs per year),Job Loss Due to AI (%),Revenue Increase Due to AI (%),Human-AI Collaboration Rate (%),Top AI Tools Used,Regulation Status,Consumer Trust in AI (%),Market Share of AI Companies (%)\n" +
	"USA,2020,Tech,40,10,5,10,50,ToolA,Strict,60,20\n" +
	"USA,2021,Tech,50,20,7,12,55,ToolB,Strict,65,25\n" +
	"Brazil,2021,Health,30,5,3,8,45,ToolA,Lenient,70,10\n"

func setup(t *testing.T) (*engine.ColumnStore, *filters.State) {
	t.Helper()
	store, err := engine.LoadColumnar(strings.NewReader(testCSV))
	require.NoError(t, err)
	return store, filters.New(store.Vocabularies())
}

func TestComputeDefaults(t *testing.T) {
	store, state := setup(t)

	data, err := Compute(store, state, DefaultControls())
	require.NoError(t, err)

	assert.Equal(t, 3, data.Rows)
	assert.Equal(t, []int{2020, 2021}, data.Years)
	require.NotNil(t, data.RadarYear)
	assert.Equal(t, 2021, *data.RadarYear, "radar defaults to the latest year")
	assert.Len(t, data.Radar, 2*len(models.Metrics))
	assert.Equal(t, models.AdoptionRate, data.Metric)
	assert.Equal(t, models.Country, data.GroupBy)
}

func TestComputeCountryScenario(t *testing.T) {
	store, state := setup(t)
	require.NoError(t, state.SetSelection(models.Country, []string{"USA"}))

	data, err := Compute(store, state, DefaultControls())
	require.NoError(t, err)

	assert.Equal(t, []models.VolumePoint{
		{Year: 2020, Key: "USA", Value: 10},
		{Year: 2021, Key: "USA", Value: 20},
	}, data.Volume)
	assert.Equal(t, 2, data.Rows)
	assert.Equal(t, []string{"USA"}, data.Filters.Countries.Values)
}

func TestComputeEmptyView(t *testing.T) {
	store, state := setup(t)
	require.NoError(t, state.ToggleAll(models.Tool, false))

	data, err := Compute(store, state, DefaultControls())
	require.NoError(t, err)

	assert.Equal(t, 0, data.Rows)
	assert.Empty(t, data.Volume)
	assert.Empty(t, data.MetricMean)
	assert.Empty(t, data.Years)
	assert.Nil(t, data.RadarYear, "no year options means no radar")
	assert.Empty(t, data.Radar)
}

func TestComputeRadarYearWithoutRows(t *testing.T) {
	store, state := setup(t)
	c := DefaultControls()
	year := 2020
	c.RadarYear = &year
	require.NoError(t, state.SetSelection(models.Country, []string{"Brazil"}))

	data, err := Compute(store, state, c)
	require.NoError(t, err)
	assert.Empty(t, data.Radar)
	assert.Equal(t, []int{2021}, data.Years)
}

func TestComputeAfterResetSeesFullDataset(t *testing.T) {
	store, state := setup(t)
	require.NoError(t, state.ToggleAll(models.Country, false))
	require.NoError(t, state.SetSelection(models.Industry, []string{"Health"}))

	state.Reset()
	data, err := Compute(store, state, DefaultControls())
	require.NoError(t, err)
	assert.Equal(t, store.Len(), data.Rows)
	assert.Equal(t, store.All(), View(store, state))
}

func TestComputeRejectsBadControls(t *testing.T) {
	store, state := setup(t)

	_, err := Compute(store, state, Controls{Metric: "Happiness (%)", GroupBy: models.Country})
	assert.ErrorIs(t, err, models.ErrUnknownMetric)

	_, err = Compute(store, state, Controls{Metric: models.JobLoss, GroupBy: "Region"})
	assert.ErrorIs(t, err, models.ErrUnknownDimension)
}

func TestRadarYear(t *testing.T) {
	y, ok := RadarYear([]int{2019, 2022}, nil)
	assert.True(t, ok)
	assert.Equal(t, 2022, y)

	req := 2019
	y, ok = RadarYear([]int{2019, 2022}, &req)
	assert.True(t, ok)
	assert.Equal(t, 2019, y)

	_, ok = RadarYear(nil, nil)
	assert.False(t, ok)
}
