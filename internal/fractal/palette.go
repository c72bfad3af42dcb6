package fractal

import (
	"image/color"
	"math"

	"golang.org/x/image/colornames"
)

const (
	SchemeRainbow   = "rainbow"
	SchemeGrayscale = "grayscale"
	SchemeFire      = "fire"
	SchemeHSL       = "hsl"
)

var knownSchemes = map[string]struct{}{
	SchemeRainbow:   {},
	SchemeGrayscale: {},
	SchemeFire:      {},
	SchemeHSL:       {},
}

// IsKnownScheme reports whether name is one of the supported colour schemes.
func IsKnownScheme(name string) bool {
	_, ok := knownSchemes[name]
	return ok
}

// Schemes lists the supported colour schemes.
func Schemes() []string {
	return []string{SchemeRainbow, SchemeGrayscale, SchemeFire, SchemeHSL}
}

var fireStops = []color.RGBA{
	colornames.Black,
	colornames.Darkred,
	colornames.Orangered,
	colornames.Orange,
	colornames.Yellow,
	colornames.White,
}

var inside = color.NRGBA{A: 0xff}

// shade maps a normalized escape value t in [0,1] to a colour. Points that
// never escaped are drawn black regardless of scheme.
func shade(scheme string, t float64, escaped bool) color.NRGBA {
	if !escaped {
		return inside
	}
	t = math.Max(0, math.Min(1, t))

	switch scheme {
	case SchemeGrayscale:
		v := uint8(math.Round(255 * t))
		return color.NRGBA{R: v, G: v, B: v, A: 0xff}
	case SchemeFire:
		return gradient(fireStops, t)
	case SchemeHSL:
		return hslToRGB(math.Mod(200+360*t, 360), 0.8, 0.25+0.5*t)
	default:
		return hslToRGB(360*t, 1, 0.5)
	}
}

func gradient(stops []color.RGBA, t float64) color.NRGBA {
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		last := stops[len(stops)-1]
		return color.NRGBA{R: last.R, G: last.G, B: last.B, A: 0xff}
	}
	f := pos - float64(i)
	a, b := stops[i], stops[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xff}
}

func hslToRGB(h, s, l float64) color.NRGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	to8 := func(v float64) uint8 { return uint8(math.Round(255 * math.Max(0, math.Min(1, v+m)))) }
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: 0xff}
}
