package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	name, values, err := parseRange("wind=1:3:3")
	require.NoError(t, err)
	assert.Equal(t, "wind", name)
	assert.Equal(t, []float64{1, 2, 3}, values)

	_, _, err = parseRange("wind")
	assert.Error(t, err)
	_, _, err = parseRange("wind=a:b:c")
	assert.Error(t, err)
}

func TestLoadConfig_FlagsOverridePreset(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	require.NoError(t, cmd.Flags().Set("nx", "3"))
	require.NoError(t, cmd.Flags().Set("integrator", "euler"))
	require.NoError(t, cmd.Flags().Set("coupling", "0.4"))

	cfg, err := loadConfig(cmd, []string{"mars/dust_storm"})
	require.NoError(t, err)
	assert.Equal(t, "mars", cfg.Planet)
	assert.Equal(t, 3, cfg.Grid.NX)
	assert.Equal(t, 16, cfg.Grid.NZ, "unset flags keep the preset's value")
	assert.Equal(t, "euler", cfg.Integrator)
	assert.Equal(t, 2.0, cfg.Duration)
	require.NotNil(t, cfg.Physics.FeedbackCoefficients)
	assert.Equal(t, 0.4, cfg.Physics.FeedbackCoefficients.Coupling)
}

func TestLoadConfig_UnknownPreset(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	_, err := loadConfig(cmd, []string{"earth/dust_storm"})
	assert.Error(t, err)
}
