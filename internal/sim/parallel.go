package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/dustdyn/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Scenario is one independent run of an ensemble.
type Scenario struct {
	Name      string
	Simulator *Simulator
	Initial   dynamo.State
	Config    Config
}

// RunEnsemble runs independent scenarios concurrently. Scenarios share no
// mutable state, so each gets its own goroutine; the first failure cancels
// the rest. Results are in scenario order.
func RunEnsemble(ctx context.Context, scenarios []Scenario) ([]*Result, error) {
	results := make([]*Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := sc.Simulator.Run(ctx, sc.Initial, sc.Config)
			results[i] = res
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
