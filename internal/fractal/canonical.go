package fractal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonicalForm fixes the key order of the serialized parameters. It must
// not change: existing hashes in the store depend on it.
type canonicalForm struct {
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

// Canonicalize normalizes p and returns its byte-stable serialization.
func Canonicalize(p Params) ([]byte, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(canonicalForm{
		Width:         p.Width,
		Height:        p.Height,
		MaxIterations: p.MaxIterations,
		Power:         p.Power,
		C:             p.C,
		Scale:         p.Scale,
		OffsetX:       p.OffsetX,
		OffsetY:       p.OffsetY,
		ColourScheme:  p.ColourScheme,
	})
}

// Hash returns the SHA-256 digest of canonical bytes as lowercase hex.
func Hash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Digest canonicalizes and hashes p in one step.
func (p Params) Digest() (string, error) {
	b, err := Canonicalize(p)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}
