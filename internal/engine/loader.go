package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"aidash/internal/models"
)

// DefaultSource is the public dataset the dashboard was built around.
const DefaultSource = "https://raw.githubusercontent.com/OtavioAntonio/Ciencia_de_dadosDCA3501/main/Global_AI_Content_Impact_Dataset.csv"

// MissingColumnsError reports required columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "dataset is missing required columns: " + strings.Join(e.Columns, ", ")
}

// --- 1. SOURCE ---

// Open loads the dataset from an http(s) URL or a local path.
// timeout only applies to remote sources; zero means no limit.
func Open(ctx context.Context, source string, timeout time.Duration) (*ColumnStore, error) {
	start := time.Now()
	log.Infof("Loading dataset from %s", source)

	rc, err := openSource(ctx, source, timeout)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	store, err := LoadColumnar(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	log.Infof("Load Complete. Rows: %d. Time: %v", store.Len(), time.Since(start))
	return store, nil
}

func openSource(ctx context.Context, source string, timeout time.Duration) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		return f, nil
	}

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch dataset %s: unexpected status %s", source, resp.Status)
	}
	return resp.Body, nil
}

// --- 2. MAIN LOADER ---

type dictBuilder struct {
	m    map[string]int32
	list []string
}

func newDictBuilder() *dictBuilder {
	return &dictBuilder{m: make(map[string]int32)}
}

func (d *dictBuilder) id(s string) int32 {
	if id, ok := d.m[s]; ok {
		return id
	}
	id := int32(len(d.list))
	d.list = append(d.list, s)
	d.m[s] = id
	return id
}

// LoadColumnar parses a CSV stream into a ColumnStore.
// Columns are located by header name, so their order is free.
func LoadColumnar(r io.Reader) (*ColumnStore, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	required := []string{models.YearColumn, string(models.Country), string(models.Industry), string(models.Tool), models.VolumeColumn}
	for _, m := range models.Metrics {
		required = append(required, string(m))
	}
	var missing []string
	for _, name := range required {
		if _, ok := pos[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	yearCol := pos[models.YearColumn]
	countryCol := pos[string(models.Country)]
	industryCol := pos[string(models.Industry)]
	toolCol := pos[string(models.Tool)]
	volumeCol := pos[models.VolumeColumn]
	metricCols := make([]int, len(models.Metrics))
	for i, m := range models.Metrics {
		metricCols[i] = pos[string(m)]
	}

	store := &ColumnStore{
		Header:  header,
		Metrics: make([][]float64, len(models.Metrics)),
	}
	countries, industries, tools := newDictBuilder(), newDictBuilder(), newDictBuilder()

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		year, err := strconv.ParseInt(strings.TrimSpace(row[yearCol]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: column %q: %w", line, models.YearColumn, err)
		}
		vol, err := parseFloat(row[volumeCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: column %q: %w", line, models.VolumeColumn, err)
		}
		for i, col := range metricCols {
			v, err := parseFloat(row[col])
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: %w", line, models.Metrics[i], err)
			}
			store.Metrics[i] = append(store.Metrics[i], v)
		}

		store.Raw = append(store.Raw, row)
		store.Years = append(store.Years, int32(year))
		store.Volumes = append(store.Volumes, vol)
		store.CountryIDs = append(store.CountryIDs, countries.id(row[countryCol]))
		store.IndustryIDs = append(store.IndustryIDs, industries.id(row[industryCol]))
		store.ToolIDs = append(store.ToolIDs, tools.id(row[toolCol]))
	}

	store.CountryDict = countries.list
	store.IndustryDict = industries.list
	store.ToolDict = tools.list
	return store, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
