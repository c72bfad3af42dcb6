package fractal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"math/cmplx"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Renderer turns parameters into encoded image bytes. Implementations must
// honour ctx and return ErrAborted when their time budget runs out.
type Renderer interface {
	Render(ctx context.Context, p Params) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, p Params) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, p Params) ([]byte, error) {
	return f(ctx, p)
}

// JuliaRenderer draws the escape-time Julia set of z -> z^power + c as PNG.
type JuliaRenderer struct {
	Workers int
}

// NewJuliaRenderer 创建渲染器，workers <= 0 时使用 CPU 数
func NewJuliaRenderer(workers int) *JuliaRenderer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &JuliaRenderer{Workers: workers}
}

const escapeRadius = 4.0

func (r *JuliaRenderer) Render(ctx context.Context, p Params) ([]byte, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	c := complex(p.C.Real, p.C.Imag)
	step := func(z complex128) complex128 {
		if p.Power == 2 {
			return z*z + c
		}
		return cmplx.Pow(z, complex(p.Power, 0)) + c
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Workers))

	halfW, halfH := float64(p.Width)/2, float64(p.Height)/2
	for y := 0; y < p.Height; y++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return ErrAborted
			}
			im := (float64(y)-halfH)/(0.5*p.Scale*float64(p.Height)) + p.OffsetY
			for x := 0; x < p.Width; x++ {
				re := (float64(x)-halfW)/(0.5*p.Scale*float64(p.Width)) + p.OffsetX
				z := complex(re, im)
				n := 0
				for ; n < p.MaxIterations && real(z)*real(z)+imag(z)*imag(z) <= escapeRadius; n++ {
					z = step(z)
				}
				escaped := n < p.MaxIterations
				t := 0.0
				if escaped {
					// smooth iteration count
					mod := cmplx.Abs(z)
					if mod > 1 {
						n2 := float64(n) + 1 - math.Log(math.Log(mod))/math.Log(math.Max(p.Power, 1.0001))
						t = n2 / float64(p.MaxIterations)
					} else {
						t = float64(n) / float64(p.MaxIterations)
					}
				}
				img.SetNRGBA(x, y, shade(p.ColourScheme, t, escaped))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrAborted) || ctx.Err() != nil {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}
