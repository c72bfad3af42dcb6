package fractal

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const defaultsJSON = `{"width":1920,"height":1080,"maxIterations":500,"power":2,"c":{"real":0.285,"imag":0.01},"scale":1,"offsetX":0,"offsetY":0,"colourScheme":"rainbow"}`

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestCanonicalize_Defaults(t *testing.T) {
	b, err := Canonicalize(Params{})
	require.NoError(t, err)
	assert.Equal(t, defaultsJSON, string(b))

	explicit, err := Canonicalize(Defaults())
	require.NoError(t, err)
	assert.Equal(t, b, explicit)
}

func TestHash_KnownDigest(t *testing.T) {
	h, err := Params{}.Digest()
	require.NoError(t, err)
	assert.Equal(t, "5754c3d8189cdccccd785c2d157f875b91dcaf584f7fde828428544c15614272", h)
	assert.Regexp(t, hexDigest, h)
}

func TestCanonicalize_NegativeZero(t *testing.T) {
	negZero := func() float64 { z := 0.0; return -z }()
	a, err := Canonicalize(Params{OffsetX: negZero, OffsetY: negZero})
	require.NoError(t, err)
	b, err := Canonicalize(Params{})
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestCanonicalize_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"negative width", Params{Width: -1}},
		{"huge height", Params{Height: MaxDimension + 1}},
		{"too many iterations", Params{MaxIterations: MaxIterations + 1}},
		{"unknown scheme", Params{ColourScheme: "viridis"}},
		{"negative scale", Params{Scale: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Canonicalize(tt.params)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestParseQuery(t *testing.T) {
	t.Run("empty query uses defaults", func(t *testing.T) {
		p, err := ParseQuery(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, Defaults(), p)
	})

	t.Run("client parameter names", func(t *testing.T) {
		q := url.Values{}
		q.Set("width", "640")
		q.Set("height", "480")
		q.Set("iterations", "200")
		q.Set("power", "3")
		q.Set("real", "-0.8")
		q.Set("imag", "0.156")
		q.Set("scale", "1.5")
		q.Set("offsetX", "0.1")
		q.Set("offsetY", "-0.2")
		q.Set("color", "fire")

		p, err := ParseQuery(q)
		require.NoError(t, err)
		assert.Equal(t, Params{
			Width: 640, Height: 480, MaxIterations: 200, Power: 3,
			C:     Complex{Real: -0.8, Imag: 0.156},
			Scale: 1.5, OffsetX: 0.1, OffsetY: -0.2, ColourScheme: SchemeFire,
		}, p)
	})

	t.Run("malformed numbers", func(t *testing.T) {
		for _, kv := range [][2]string{{"width", "abc"}, {"power", "NaN"}, {"scale", "Inf"}, {"iterations", "1.5"}} {
			q := url.Values{}
			q.Set(kv[0], kv[1])
			_, err := ParseQuery(q)
			assert.ErrorIs(t, err, ErrValidation, "%s=%s", kv[0], kv[1])
		}
	})
}

// omitting a field and sending its default must hash the same, whatever
// order the query arrives in
func TestProperty_OmittedDefaultsHashIdentically(t *testing.T) {
	fields := []struct {
		name  string
		value string
	}{
		{"width", strconv.Itoa(DefaultWidth)},
		{"height", strconv.Itoa(DefaultHeight)},
		{"iterations", strconv.Itoa(DefaultMaxIterations)},
		{"power", "2"},
		{"real", "0.285"},
		{"imag", "0.01"},
		{"scale", "1"},
		{"offsetX", "0"},
		{"offsetY", "0"},
		{"color", DefaultColourScheme},
	}

	base, err := Params{}.Digest()
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		q := url.Values{}
		perm := rapid.Permutation(fields).Draw(rt, "order")
		for _, f := range perm {
			if rapid.Bool().Draw(rt, "include_"+f.name) {
				q.Add(f.name, f.value)
			}
		}
		p, err := ParseQuery(q)
		require.NoError(rt, err)
		h, err := p.Digest()
		require.NoError(rt, err)
		require.Equal(rt, base, h)
	})
}

func TestProperty_DigestDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := Params{
			Width:         rapid.IntRange(1, MaxDimension).Draw(rt, "width"),
			Height:        rapid.IntRange(1, MaxDimension).Draw(rt, "height"),
			MaxIterations: rapid.IntRange(1, MaxIterations).Draw(rt, "iterations"),
			Power:         rapid.Float64Range(-8, 8).Draw(rt, "power"),
			C: Complex{
				Real: rapid.Float64Range(-2, 2).Draw(rt, "real"),
				Imag: rapid.Float64Range(-2, 2).Draw(rt, "imag"),
			},
			Scale:        rapid.Float64Range(0.01, 100).Draw(rt, "scale"),
			OffsetX:      rapid.Float64Range(-2, 2).Draw(rt, "offsetX"),
			OffsetY:      rapid.Float64Range(-2, 2).Draw(rt, "offsetY"),
			ColourScheme: rapid.SampledFrom(Schemes()).Draw(rt, "scheme"),
		}

		first, err := p.Digest()
		require.NoError(rt, err)
		second, err := p.Normalize().Digest()
		require.NoError(rt, err)

		require.Equal(rt, first, second)
		require.Regexp(rt, hexDigest, first)
	})
}

func TestProperty_DistinctParamsDistinctHashes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(1, MaxDimension).Draw(rt, "a")
		b := rapid.IntRange(1, MaxDimension).Filter(func(v int) bool { return v != a }).Draw(rt, "b")

		ha, err := Params{Width: a}.Digest()
		require.NoError(rt, err)
		hb, err := Params{Width: b}.Digest()
		require.NoError(rt, err)
		require.NotEqual(rt, ha, hb)
	})
}
