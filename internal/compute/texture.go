package compute

import (
	"fmt"
)

type Format int

const (
	R32F Format = iota + 1
	RG32F
	RGBA32F
)

func (f Format) Channels() int {
	switch f {
	case R32F:
		return 1
	case RG32F:
		return 2
	case RGBA32F:
		return 4
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case R32F:
		return "r32f"
	case RG32F:
		return "rg32f"
	case RGBA32F:
		return "rgba32f"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Texture is a 2D array of float32 texels with interleaved channels.
type Texture struct {
	Name   string
	Width  int
	Height int
	Format Format
	Data   []float32
}

func NewTexture(name string, width, height int, format Format) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %s is %dx%d", ErrTextureSize, name, width, height)
	}
	if format.Channels() == 0 {
		return nil, fmt.Errorf("%w: %s has %v", ErrFormat, name, format)
	}
	return &Texture{
		Name:   name,
		Width:  width,
		Height: height,
		Format: format,
		Data:   make([]float32, width*height*format.Channels()),
	}, nil
}

func (t *Texture) Channels() int { return t.Format.Channels() }

func (t *Texture) Texels() int { return t.Width * t.Height }

// At returns the channel slice of a flat texel index.
func (t *Texture) At(idx int) []float32 {
	c := t.Format.Channels()
	return t.Data[idx*c : idx*c+c]
}

func (t *Texture) Clear() {
	clear(t.Data)
}

func (t *Texture) CopyFrom(src *Texture) error {
	if !t.SameShape(src) {
		return fmt.Errorf("%w: copy %s into %s", ErrShape, src, t)
	}
	copy(t.Data, src.Data)
	return nil
}

func (t *Texture) Clone() *Texture {
	c := *t
	c.Data = make([]float32, len(t.Data))
	copy(c.Data, t.Data)
	return &c
}

func (t *Texture) SameShape(o *Texture) bool {
	return o != nil && t.Width == o.Width && t.Height == o.Height && t.Format == o.Format
}

func (t *Texture) String() string {
	if t == nil {
		return "<nil texture>"
	}
	return fmt.Sprintf("%s[%dx%d %v]", t.Name, t.Width, t.Height, t.Format)
}
