package compute

import (
	"errors"
	"fmt"
)

var (
	ErrMissingInput  = errors.New("compute: required input texture is not bound")
	ErrMissingOutput = errors.New("compute: output texture is not bound")
	ErrAliasing      = errors.New("compute: output texture aliases an input")
	ErrFormat        = errors.New("compute: unexpected texture format")
	ErrShape         = errors.New("compute: texture shape mismatch")
	ErrTextureSize   = errors.New("compute: texture dimensions must be positive")
	ErrBlendMode     = errors.New("compute: unsupported blend mode for kernel")
)

type BlendMode int

const (
	// BlendReplace clears the output and writes every texel the pass covers.
	BlendReplace BlendMode = iota
	// BlendAdditive adds the pass result to the existing output.
	BlendAdditive
)

func (b BlendMode) String() string {
	switch b {
	case BlendReplace:
		return "replace"
	case BlendAdditive:
		return "additive"
	}
	return fmt.Sprintf("blend(%d)", int(b))
}

// State is everything a single dispatch reads from the device: bound inputs,
// the output target and the blend equation.
type State struct {
	Inputs []*Texture
	Output *Texture
	Blend  BlendMode
}

// Validate checks that want inputs are bound and that the output does not
// alias any of them.
func (s State) Validate(want int) error {
	if len(s.Inputs) < want {
		return fmt.Errorf("%w: have %d of %d", ErrMissingInput, len(s.Inputs), want)
	}
	for i := 0; i < want; i++ {
		if s.Inputs[i] == nil {
			return fmt.Errorf("%w: slot %d", ErrMissingInput, i)
		}
	}
	if s.Output == nil {
		return ErrMissingOutput
	}
	for _, in := range s.Inputs {
		if in == s.Output {
			return fmt.Errorf("%w: %s", ErrAliasing, in)
		}
	}
	return nil
}

// Input returns input slot i, or nil when unbound.
func (s State) Input(i int) *Texture {
	if i < 0 || i >= len(s.Inputs) {
		return nil
	}
	return s.Inputs[i]
}

// ExpectFormat checks a bound texture against the format a kernel declares.
func ExpectFormat(t *Texture, f Format) error {
	if t.Format != f {
		return fmt.Errorf("%w: %s, want %v", ErrFormat, t, f)
	}
	return nil
}
