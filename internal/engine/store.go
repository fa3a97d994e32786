package engine

import (
	"sort"

	"aidash/internal/models"
)

// ColumnStore holds data in Struct-of-Arrays format for speed
type ColumnStore struct {
	// Raw input, kept for byte-faithful export
	Header []string
	Raw    [][]string

	// Data Columns (Flat Arrays)
	Years   []int32
	Volumes []float64
	Metrics [][]float64 // indexed by models.Metric.Index()

	// Dictionary Encoded IDs (0..N)
	CountryIDs  []int32
	IndustryIDs []int32
	ToolIDs     []int32

	// Dictionaries (ID -> String)
	CountryDict  []string
	IndustryDict []string
	ToolDict     []string
}

// Len returns the number of rows.
func (cs *ColumnStore) Len() int { return len(cs.Years) }

func (cs *ColumnStore) dict(dim models.Dimension) []string {
	switch dim {
	case models.Country:
		return cs.CountryDict
	case models.Industry:
		return cs.IndustryDict
	case models.Tool:
		return cs.ToolDict
	}
	return nil
}

func (cs *ColumnStore) ids(dim models.Dimension) []int32 {
	switch dim {
	case models.Country:
		return cs.CountryIDs
	case models.Industry:
		return cs.IndustryIDs
	case models.Tool:
		return cs.ToolIDs
	}
	return nil
}

// Value returns the string value of dim at row i.
func (cs *ColumnStore) Value(dim models.Dimension, i int) string {
	return cs.dict(dim)[cs.ids(dim)[i]]
}

// Vocabulary returns the sorted distinct values of dim.
func (cs *ColumnStore) Vocabulary(dim models.Dimension) []string {
	d := cs.dict(dim)
	out := make([]string, len(d))
	copy(out, d)
	sort.Strings(out)
	return out
}

// Vocabularies returns the vocabulary of all three dimensions.
func (cs *ColumnStore) Vocabularies() models.Vocabulary {
	return models.Vocabulary{
		Countries:  cs.Vocabulary(models.Country),
		Industries: cs.Vocabulary(models.Industry),
		Tools:      cs.Vocabulary(models.Tool),
	}
}
