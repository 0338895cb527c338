package optim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/experiment"
	"github.com/san-kum/pmgrav/internal/sim"
)

var ErrNoTrials = errors.New("optim: no trial succeeded")

// RunFunc runs one configuration to completion.
type RunFunc func(ctx context.Context, cfg *config.Config) (*sim.Result, error)

// RunExperiment builds and runs an experiment with the default wiring.
func RunExperiment(ctx context.Context, cfg *config.Config) (*sim.Result, error) {
	exp, err := experiment.New(cfg, experiment.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// Trial is one point of a search.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// GridSearch evaluates every combination of the given parameter values and
// keeps the one minimising a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	logger     *slog.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, ok := Setters[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParam, name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: no values for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: slog.Default()}, nil
}

func (g *GridSearch) WithLogger(l *slog.Logger) *GridSearch {
	g.logger = l
	return g
}

// Size is the number of combinations.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs every combination against base. Failed trials are kept with
// their error and never win. Trials come back in evaluation order.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, run RunFunc, metricName string) (Trial, []Trial, error) {
	trials := make([]Trial, 0, g.Size())
	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		trials = append(trials, g.evaluate(ctx, base, params, run, metricName))
	})

	best := Trial{Value: math.Inf(1)}
	for _, t := range trials {
		if t.Err == nil && t.Value < best.Value {
			best = t
		}
	}
	if err != nil {
		return best, trials, err
	}
	if best.Params == nil {
		return best, trials, ErrNoTrials
	}
	return best, trials, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, run RunFunc, metricName string) Trial {
	t := Trial{Params: params, Value: math.NaN()}
	cfg, err := Apply(base, params)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		t.Err = err
		return t
	}

	result, err := run(ctx, cfg)
	if err != nil {
		t.Err = err
		return t
	}
	v, ok := result.Metrics[metricName]
	if !ok {
		t.Err = fmt.Errorf("optim: run reported no metric %q", metricName)
		return t
	}
	t.Value = v
	g.logger.Info("trial", "params", params, metricName, v)
	return t
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}

// Rank orders successful trials best first, failures last.
func Rank(trials []Trial) []Trial {
	out := append([]Trial(nil), trials...)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Err == nil) != (out[j].Err == nil) {
			return out[i].Err == nil
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
