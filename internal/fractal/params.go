package fractal

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultWidth         = 1920
	DefaultHeight        = 1080
	DefaultMaxIterations = 500
	DefaultPower         = 2.0
	DefaultCReal         = 0.285
	DefaultCImag         = 0.01
	DefaultScale         = 1.0
	DefaultOffsetX       = 0.0
	DefaultOffsetY       = 0.0
	DefaultColourScheme  = SchemeRainbow

	MaxDimension  = 8192
	MaxIterations = 10000
)

// Complex is the Julia constant c.
type Complex struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// Params describes one fractal. Zero-valued fields mean "use the default",
// the same rule the query parser applies, so an omitted field and an
// explicit default produce the same canonical form.
type Params struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	MaxIterations int     `json:"maxIterations"`
	Power         float64 `json:"power"`
	C             Complex `json:"c"`
	Scale         float64 `json:"scale"`
	OffsetX       float64 `json:"offsetX"`
	OffsetY       float64 `json:"offsetY"`
	ColourScheme  string  `json:"colourScheme"`
}

// Defaults returns the parameter set used when a request specifies nothing.
func Defaults() Params {
	return Params{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		MaxIterations: DefaultMaxIterations,
		Power:         DefaultPower,
		C:             Complex{Real: DefaultCReal, Imag: DefaultCImag},
		Scale:         DefaultScale,
		OffsetX:       DefaultOffsetX,
		OffsetY:       DefaultOffsetY,
		ColourScheme:  DefaultColourScheme,
	}
}

// Normalize fills zero-valued fields with their defaults and folds -0 into 0.
func (p Params) Normalize() Params {
	d := Defaults()
	if p.Width == 0 {
		p.Width = d.Width
	}
	if p.Height == 0 {
		p.Height = d.Height
	}
	if p.MaxIterations == 0 {
		p.MaxIterations = d.MaxIterations
	}
	p.Power = orDefault(p.Power, d.Power)
	p.C.Real = orDefault(p.C.Real, d.C.Real)
	p.C.Imag = orDefault(p.C.Imag, d.C.Imag)
	p.Scale = orDefault(p.Scale, d.Scale)
	p.OffsetX = orDefault(p.OffsetX, d.OffsetX)
	p.OffsetY = orDefault(p.OffsetY, d.OffsetY)
	if strings.TrimSpace(p.ColourScheme) == "" {
		p.ColourScheme = d.ColourScheme
	}
	return p
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		// also catches -0
		return def + 0
	}
	return v
}

// Validate checks a normalized parameter set.
func (p Params) Validate() error {
	switch {
	case p.Width < 1 || p.Width > MaxDimension:
		return fmt.Errorf("%w: width must be between 1 and %d", ErrValidation, MaxDimension)
	case p.Height < 1 || p.Height > MaxDimension:
		return fmt.Errorf("%w: height must be between 1 and %d", ErrValidation, MaxDimension)
	case p.MaxIterations < 1 || p.MaxIterations > MaxIterations:
		return fmt.Errorf("%w: iterations must be between 1 and %d", ErrValidation, MaxIterations)
	case !IsKnownScheme(p.ColourScheme):
		return fmt.Errorf("%w: unknown colour scheme %q", ErrValidation, p.ColourScheme)
	}

	reals := map[string]float64{
		"power":   p.Power,
		"real":    p.C.Real,
		"imag":    p.C.Imag,
		"scale":   p.Scale,
		"offsetX": p.OffsetX,
		"offsetY": p.OffsetY,
	}
	for name, v := range reals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrValidation, name)
		}
	}
	if p.Scale < 0 {
		return fmt.Errorf("%w: scale must be positive", ErrValidation)
	}
	return nil
}

// ParseQuery builds parameters from the query string used by the gallery
// clients. Absent or empty values fall back to defaults.
func ParseQuery(q url.Values) (Params, error) {
	var p Params
	var err error

	if p.Width, err = queryInt(q, "width"); err != nil {
		return Params{}, err
	}
	if p.Height, err = queryInt(q, "height"); err != nil {
		return Params{}, err
	}
	if p.MaxIterations, err = queryInt(q, "iterations", "maxIterations"); err != nil {
		return Params{}, err
	}
	if p.Power, err = queryFloat(q, "power"); err != nil {
		return Params{}, err
	}
	if p.C.Real, err = queryFloat(q, "real"); err != nil {
		return Params{}, err
	}
	if p.C.Imag, err = queryFloat(q, "imag"); err != nil {
		return Params{}, err
	}
	if p.Scale, err = queryFloat(q, "scale"); err != nil {
		return Params{}, err
	}
	if p.OffsetX, err = queryFloat(q, "offsetX"); err != nil {
		return Params{}, err
	}
	if p.OffsetY, err = queryFloat(q, "offsetY"); err != nil {
		return Params{}, err
	}
	p.ColourScheme = firstValue(q, "color", "colourScheme", "colorScheme")

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func firstValue(q url.Values, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func queryInt(q url.Values, names ...string) (int, error) {
	raw := firstValue(q, names...)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrValidation, names[0])
	}
	return v, nil
}

func queryFloat(q url.Values, name string) (float64, error) {
	raw := firstValue(q, name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a number", ErrValidation, name)
	}
	return v, nil
}
