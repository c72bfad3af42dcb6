package listing

import (
	"testing"

	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFilters(t *testing.T) {
	f, err := DecodeFilters(map[string]string{
		"colorScheme": "fire",
		"power":       "2.5",
		"iterations":  "300",
		"width":       "",
	})
	require.NoError(t, err)
	assert.Equal(t, Filters{ColourScheme: "fire", Power: 2.5, Iterations: 300}, f)
	assert.Equal(t, map[string]string{"colourScheme": "fire", "power": "2.5", "iterations": "300"}, f.Map())
}

func TestDecodeFilters_Malformed(t *testing.T) {
	_, err := DecodeFilters(map[string]string{"width": "wide"})
	assert.ErrorIs(t, err, fractal.ErrValidation)

	_, err = DecodeFilters(map[string]string{"iterations": "1.5"})
	assert.ErrorIs(t, err, fractal.ErrValidation)
}

func TestSorts_Normalize(t *testing.T) {
	s := FractalSorts("added_at", map[string]string{"id": "g.id", "added_at": "g.added_at"})

	tests := []struct {
		name string
		in   Query
		want Query
	}{
		{"defaults", Query{}, Query{SortBy: "added_at", SortOrder: "DESC", Limit: DefaultLimit}},
		{"allowed column asc", Query{SortBy: "power", SortOrder: "asc", Limit: 10, Offset: 20},
			Query{SortBy: "power", SortOrder: "ASC", Limit: 10, Offset: 20}},
		{"injection falls back", Query{SortBy: "id; DROP TABLE gallery", SortOrder: "ASC"},
			Query{SortBy: "added_at", SortOrder: "ASC", Limit: DefaultLimit}},
		{"unknown order is desc", Query{SortBy: "width", SortOrder: "sideways"},
			Query{SortBy: "width", SortOrder: "DESC", Limit: DefaultLimit}},
		{"limit capped", Query{Limit: 5000, Offset: -3},
			Query{SortBy: "added_at", SortOrder: "DESC", Limit: MaxLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Normalize(tt.in))
		})
	}
}

func TestNewSorts_DefaultMustBeAllowed(t *testing.T) {
	assert.Panics(t, func() { NewSorts("nope", map[string]string{"id": "id"}) })
}
