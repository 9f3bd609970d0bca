package optim

import (
	"context"
	"testing"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Grid = config.GridConfig{NX: 4, NY: 1, NZ: 4}
	cfg.Duration = 0.3
	return cfg
}

func TestGridSearch_FindsSlowestWind(t *testing.T) {
	gs, err := NewGridSearch([]string{"wind"}, [][]float64{{3, 1, 2}})
	require.NoError(t, err)

	best, val, trials, err := gs.Search(context.Background(), smallConfig(), "max_speed")
	require.NoError(t, err)
	assert.Len(t, trials, 3)
	assert.Equal(t, 1.0, best["wind"])
	assert.Greater(t, val, 1.0, "gravity adds vertical speed")
}

func TestGridSearch_Combinations(t *testing.T) {
	gs, err := NewGridSearch([]string{"wind", "concentration"}, [][]float64{{1, 2}, {0.001, 0.002, 0.003}})
	require.NoError(t, err)

	_, _, trials, err := gs.Search(context.Background(), smallConfig(), "mean_concentration")
	require.NoError(t, err)
	assert.Len(t, trials, 6)
}

func TestGridSearch_FailedTrialsAreSkipped(t *testing.T) {
	gs, err := NewGridSearch([]string{"concentration"}, [][]float64{{-1, 0.002}})
	require.NoError(t, err)

	best, _, trials, err := gs.Search(context.Background(), smallConfig(), "mean_concentration")
	require.NoError(t, err)
	assert.Equal(t, 0.002, best["concentration"])
	require.Len(t, trials, 2)
	assert.Error(t, trials[0].Err)
}

func TestGridSearch_Errors(t *testing.T) {
	_, err := NewGridSearch([]string{"wind"}, nil)
	assert.Error(t, err)
	_, err = NewGridSearch([]string{"wind"}, [][]float64{{}})
	assert.Error(t, err)

	gs, err := NewGridSearch([]string{"wind"}, [][]float64{{1}})
	require.NoError(t, err)
	_, _, _, err = gs.Search(context.Background(), smallConfig(), "no_such_metric")
	assert.Error(t, err)

	gs, err = NewGridSearch([]string{"viscosity"}, [][]float64{{1}})
	require.NoError(t, err)
	_, _, _, err = gs.Search(context.Background(), smallConfig(), "max_speed")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gs, err = NewGridSearch([]string{"wind"}, [][]float64{{1}})
	require.NoError(t, err)
	_, _, _, err = gs.Search(ctx, smallConfig(), "max_speed")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
	assert.Equal(t, []float64{2}, Linspace(2, 5, 1))
}
