package pm

import (
	"errors"
	"log/slog"
)

var (
	ErrMissingTexture     = errors.New("pm: required texture not provided")
	ErrParticleCount      = errors.New("pm: particle count must be positive")
	ErrAssignment         = errors.New("pm: unknown mass assignment scheme")
	ErrDeconvolutionOrder = errors.New("pm: deconvolution order must be in [0, 3]")
	ErrSplit              = errors.New("pm: invalid spectral split parameters")
	ErrSmoothing          = errors.New("pm: smoothing width must be finite and non-negative")
	ErrAxis               = errors.New("pm: axis must be 0, 1 or 2")
	ErrLayoutMismatch     = errors.New("pm: texture does not match grid layout")
)

// KernelError records which kernel refused to run.
type KernelError struct {
	Kernel  string
	Wrapped error
}

func (e *KernelError) Error() string {
	return "pm: " + e.Kernel + ": " + e.Wrapped.Error()
}

func (e *KernelError) Unwrap() error {
	return e.Wrapped
}

func kernelErr(kernel string, err error) error {
	if err == nil {
		return nil
	}
	return &KernelError{Kernel: kernel, Wrapped: err}
}

type PassTimer interface {
	StartPhase(name string)
}

type options struct {
	logger *slog.Logger
	timer  PassTimer
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPassTimer reports the start of every pipeline pass.
func WithPassTimer(t PassTimer) Option {
	return func(o *options) { o.timer = t }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
