// Package listing holds the filter, sort and pagination rules shared by the
// gallery and history listings.
package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultLimit = 5
	MaxLimit     = 100
)

// Filters constrains a listing by fractal parameters. Zero fields are absent.
type Filters struct {
	ColourScheme string  `mapstructure:"colourScheme"`
	Power        float64 `mapstructure:"power"`
	Iterations   int     `mapstructure:"iterations"`
	Width        int     `mapstructure:"width"`
	Height       int     `mapstructure:"height"`
}

// FilterKeys are the query parameters that become filters.
var FilterKeys = []string{"colourScheme", "colorScheme", "power", "iterations", "width", "height"}

// DecodeFilters converts raw query values into Filters. Empty values are
// ignored; "colorScheme" is accepted for "colourScheme".
func DecodeFilters(raw map[string]string) (Filters, error) {
	var f Filters
	input := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if k == "colorScheme" {
			k = "colourScheme"
		}
		input[k] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &f,
	})
	if err != nil {
		return f, err
	}
	if err := dec.Decode(input); err != nil {
		return Filters{}, fmt.Errorf("%w: filter: %v", fractal.ErrInvalidQuery, err)
	}
	return f, nil
}

// Map returns the present filters as strings, for cache keys and echoes.
func (f Filters) Map() map[string]string {
	m := make(map[string]string)
	if f.ColourScheme != "" {
		m["colourScheme"] = f.ColourScheme
	}
	if f.Power != 0 {
		m["power"] = strconv.FormatFloat(f.Power, 'g', -1, 64)
	}
	if f.Iterations != 0 {
		m["iterations"] = strconv.Itoa(f.Iterations)
	}
	if f.Width != 0 {
		m["width"] = strconv.Itoa(f.Width)
	}
	if f.Height != 0 {
		m["height"] = strconv.Itoa(f.Height)
	}
	return m
}

// Apply adds the present filters against the fractals table aliased f.
func (f Filters) Apply(db *gorm.DB) *gorm.DB {
	if f.ColourScheme != "" {
		db = db.Where("f.colour_scheme = ?", f.ColourScheme)
	}
	if f.Power != 0 {
		db = db.Where("f.power = ?", f.Power)
	}
	if f.Iterations != 0 {
		db = db.Where("f.iterations = ?", f.Iterations)
	}
	if f.Width != 0 {
		db = db.Where("f.width = ?", f.Width)
	}
	if f.Height != 0 {
		db = db.Where("f.height = ?", f.Height)
	}
	return db
}

// Query is a normalized listing request.
type Query struct {
	Filters   Filters
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// Sorts is an allow-list from sortable names to the SQL columns they order by.
// Only names present here ever reach the ORDER BY clause.
type Sorts struct {
	columns map[string]string
	def     string
}

// NewSorts creates an allow-list whose fallback is def, which must be a key
// of columns.
func NewSorts(def string, columns map[string]string) Sorts {
	if _, ok := columns[def]; !ok {
		panic("listing: default sort " + def + " not in allow-list")
	}
	return Sorts{columns: columns, def: def}
}

// Default returns the fallback sort name.
func (s Sorts) Default() string {
	return s.def
}

// Allowed reports whether name is sortable.
func (s Sorts) Allowed(name string) bool {
	_, ok := s.columns[name]
	return ok
}

// Normalize resolves the sort, order and page bounds of q. Unknown sort
// names fall back to the default; the order is ASC only when asked for.
func (s Sorts) Normalize(q Query) Query {
	if !s.Allowed(q.SortBy) {
		q.SortBy = s.def
	}
	if strings.ToUpper(strings.TrimSpace(q.SortOrder)) == "ASC" {
		q.SortOrder = "ASC"
	} else {
		q.SortOrder = "DESC"
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Order applies the ORDER BY of a normalized query, with tiebreak as a
// stable secondary key.
func (s Sorts) Order(db *gorm.DB, q Query, tiebreak string) *gorm.DB {
	col, ok := s.columns[q.SortBy]
	if !ok {
		col = s.columns[s.def]
	}
	desc := q.SortOrder != "ASC"
	db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: col, Raw: true}, Desc: desc})
	if tiebreak != "" && tiebreak != col {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: tiebreak, Raw: true}, Desc: desc})
	}
	return db
}

// Page applies LIMIT and OFFSET of a normalized query.
func Page(db *gorm.DB, q Query) *gorm.DB {
	return db.Limit(q.Limit).Offset(q.Offset)
}

// fractalSorts are the sortable fractal columns, keyed by the names clients
// send.
var fractalSorts = map[string]string{
	"hash":         "f.hash",
	"width":        "f.width",
	"height":       "f.height",
	"iterations":   "f.iterations",
	"power":        "f.power",
	"c_real":       "f.c_real",
	"c_imag":       "f.c_imag",
	"scale":        "f.scale",
	"offsetX":      "f.offset_x",
	"offsetY":      "f.offset_y",
	"colourScheme": "f.colour_scheme",
	"colorScheme":  "f.colour_scheme",
}

// FractalSorts returns a copy of the fractal columns merged with extra.
func FractalSorts(def string, extra map[string]string) Sorts {
	cols := make(map[string]string, len(fractalSorts)+len(extra))
	for k, v := range fractalSorts {
		cols[k] = v
	}
	for k, v := range extra {
		cols[k] = v
	}
	return NewSorts(def, cols)
}
