package optim

import (
	"context"
	"math"

	"github.com/san-kum/pmgrav/internal/config"
	"gonum.org/v1/gonum/stat"
)

// EnsembleResult summarises one metric over runs that differ only in seed.
type EnsembleResult struct {
	Metric   string
	Values   []float64
	Mean     float64
	StdDev   float64
	Stable   int
	Unstable int
}

// RunEnsemble runs base with seeds base.Seed, base.Seed+1, ... A trial is
// unstable when it fails, reports invalid states or yields a non-finite
// metric.
func RunEnsemble(ctx context.Context, base *config.Config, trials int, run RunFunc, metricName string) (EnsembleResult, error) {
	res := EnsembleResult{Metric: metricName, Values: make([]float64, 0, trials)}
	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cfg := base.Clone()
		cfg.Particles.Seed = base.Particles.Seed + int64(i)

		result, err := run(ctx, cfg)
		if err != nil && ctx.Err() != nil {
			return res, ctx.Err()
		}
		v, ok := math.NaN(), false
		if result != nil {
			v, ok = result.Metrics[metricName]
		}
		if err != nil || !ok || len(result.Errors) > 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			res.Unstable++
			continue
		}
		res.Stable++
		res.Values = append(res.Values, v)
	}

	switch len(res.Values) {
	case 0:
		res.Mean, res.StdDev = math.NaN(), math.NaN()
	case 1:
		res.Mean = res.Values[0]
	default:
		res.Mean, res.StdDev = stat.MeanStdDev(res.Values, nil)
	}
	return res, nil
}
