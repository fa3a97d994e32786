package engine

import (
	"sort"

	"aidash/internal/models"
)

// View is an ordered list of row indices into a ColumnStore. No row data is copied.
type View []int

// All returns the identity view over the store.
func (cs *ColumnStore) All() View {
	v := make(View, cs.Len())
	for i := range v {
		v[i] = i
	}
	return v
}

// Filter returns the rows whose Country, Industry and Tool each belong to the
// corresponding selection. An empty selection matches nothing.
func (cs *ColumnStore) Filter(sel models.FilterSet) View {
	// Resolve each selection to a dictionary-id mask once, so the hot loop is index lookups only.
	cMask := cs.mask(models.Country, sel.For(models.Country).Values)
	iMask := cs.mask(models.Industry, sel.For(models.Industry).Values)
	tMask := cs.mask(models.Tool, sel.For(models.Tool).Values)

	out := make(View, 0)
	if !anySet(cMask) || !anySet(iMask) || !anySet(tMask) {
		return out
	}

	idsC := cs.CountryIDs
	idsI := cs.IndustryIDs
	idsT := cs.ToolIDs
	for j := range idsC {
		if cMask[idsC[j]] && iMask[idsI[j]] && tMask[idsT[j]] {
			out = append(out, j)
		}
	}
	return out
}

func (cs *ColumnStore) mask(dim models.Dimension, values []string) []bool {
	dict := cs.dict(dim)
	want := make(map[string]struct{}, len(values))
	for _, v := range values {
		want[v] = struct{}{}
	}
	m := make([]bool, len(dict))
	for id, s := range dict {
		_, m[id] = want[s]
	}
	return m
}

func anySet(mask []bool) bool {
	for _, b := range mask {
		if b {
			return true
		}
	}
	return false
}

// Table returns a copy of v sorted by (Year, Country) ascending. Ties keep input order.
func (cs *ColumnStore) Table(v View) View {
	out := make(View, len(v))
	copy(out, v)
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := out[a], out[b]
		if cs.Years[ra] != cs.Years[rb] {
			return cs.Years[ra] < cs.Years[rb]
		}
		return cs.Value(models.Country, ra) < cs.Value(models.Country, rb)
	})
	return out
}
