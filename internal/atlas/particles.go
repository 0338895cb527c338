package atlas

import (
	"fmt"
	"math"
)

// ParticleLayout addresses particle records row-major in a near-square texture.
type ParticleLayout struct {
	Count  int
	Width  int
	Height int
}

func NewParticleLayout(count int) (ParticleLayout, error) {
	if count <= 0 {
		return ParticleLayout{}, fmt.Errorf("%w: got %d", ErrParticleCount, count)
	}
	w := int(math.Ceil(math.Sqrt(float64(count))))
	h := (count + w - 1) / w
	return ParticleLayout{Count: count, Width: w, Height: h}, nil
}

func (p ParticleLayout) IndexToTexel(i int) (tx, ty int) {
	return i % p.Width, i / p.Width
}

func (p ParticleLayout) TexelToIndex(tx, ty int) (int, bool) {
	if tx < 0 || ty < 0 || tx >= p.Width || ty >= p.Height {
		return 0, false
	}
	i := ty*p.Width + tx
	return i, i < p.Count
}
