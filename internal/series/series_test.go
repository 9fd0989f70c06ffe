package series

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendspec/internal/dynamo"
	"github.com/san-kum/pendspec/internal/integrators"
	"github.com/san-kum/pendspec/internal/physics"
)

func pendulumTrajectory(t *testing.T, tStop float64) *dynamo.Trajectory {
	t.Helper()
	sys, err := physics.NewParametricPendulum(physics.DefaultParams())
	require.NoError(t, err)
	tr, err := integrators.Integrate(context.Background(), sys, dynamo.State{math.Pi / 10, 0}, 0, tStop, dynamo.DefaultTolerances())
	require.NoError(t, err)
	return tr
}

func TestResampleConcreteScenario(t *testing.T) {
	tStop := 40 * math.Pi
	tr := pendulumTrajectory(t, tStop)

	s, err := Resample(tr, math.Pi/100)
	require.NoError(t, err)
	require.Equal(t, 4001, s.Len())
	require.Equal(t, 0.0, s.Times[0])
	require.Equal(t, tr.Initial(), s.States[0])
	require.LessOrEqual(t, s.Times[s.Len()-1], tStop)
	require.InDelta(t, tStop, s.Times[s.Len()-1], 1e-9)

	for k := 1; k < s.Len(); k++ {
		require.Greater(t, s.Times[k], s.Times[k-1])
	}
}

func TestResampleInvalidStep(t *testing.T) {
	tr := pendulumTrajectory(t, 10)

	for _, dt := range []float64{-1, 0, math.NaN(), math.Inf(1), 11, 1e-300, 1e-9} {
		_, err := Resample(tr, dt)
		require.ErrorIs(t, err, dynamo.ErrInvalidResampleStep, "dt=%g", dt)
	}
}

func TestResampleEmptyTrajectory(t *testing.T) {
	_, err := Resample(nil, 0.1)
	require.ErrorIs(t, err, dynamo.ErrEmptyTrajectory)

	empty := dynamo.NewTrajectory(0, 1, dynamo.State{0, 0}, dynamo.InterpDopri)
	_, err = Resample(empty, 0.1)
	require.ErrorIs(t, err, dynamo.ErrEmptyTrajectory)
}

func TestResampleRefinementAgrees(t *testing.T) {
	tr := pendulumTrajectory(t, 10)

	coarse, err := Resample(tr, 0.1)
	require.NoError(t, err)
	fine, err := Resample(tr, 0.05)
	require.NoError(t, err)
	halved, err := fine.Downsample(2)
	require.NoError(t, err)

	require.Equal(t, coarse.Len(), halved.Len())
	for k := range coarse.Times {
		require.InDelta(t, coarse.Times[k], halved.Times[k], 1e-12)
		require.InDelta(t, coarse.States[k][0], halved.States[k][0], 1e-12)
		require.InDelta(t, coarse.States[k][1], halved.States[k][1], 1e-12)
	}
}

func TestResampleMatchesDenseOutput(t *testing.T) {
	tr := pendulumTrajectory(t, 10)

	s, err := Resample(tr, 0.37)
	require.NoError(t, err)
	for k, tk := range s.Times {
		want, err := tr.At(tk)
		require.NoError(t, err)
		require.InDelta(t, want[0], s.States[k][0], 1e-14)
	}
}

func TestChannel(t *testing.T) {
	tr := pendulumTrajectory(t, 5)

	theta, err := ResampleChannel(tr, 0.5, 0)
	require.NoError(t, err)
	require.Len(t, theta, 11)
	require.Equal(t, math.Pi/10, theta[0])

	_, err = ResampleChannel(tr, 0.5, 2)
	require.ErrorIs(t, err, dynamo.ErrDimensionMismatch)

	s, err := Resample(tr, 0.5)
	require.NoError(t, err)
	lo, hi, err := s.Range(0)
	require.NoError(t, err)
	require.LessOrEqual(t, lo, hi)
	require.GreaterOrEqual(t, hi, math.Pi/10)
}

func TestDownsampleInvalidFactor(t *testing.T) {
	s := &Series{Dt: 1, Times: []float64{0, 1}, States: []dynamo.State{{0}, {1}}}
	_, err := s.Downsample(0)
	require.ErrorIs(t, err, dynamo.ErrInvalidResampleStep)
}

func TestStroboscopic(t *testing.T) {
	tStop := 40 * math.Pi
	tr := pendulumTrajectory(t, tStop)

	period := math.Pi
	s, err := Stroboscopic(tr, period, 0)
	require.NoError(t, err)
	require.Equal(t, 41, s.Len())
	for k, tk := range s.Times {
		require.InDelta(t, float64(k)*period, tk, 1e-9)
	}

	shifted, err := Stroboscopic(tr, period, period/2)
	require.NoError(t, err)
	require.Equal(t, 40, shifted.Len())

	_, err = Stroboscopic(tr, period, period)
	require.ErrorIs(t, err, dynamo.ErrInvalidResampleStep)
	_, err = Stroboscopic(tr, 1e-300, 0)
	require.ErrorIs(t, err, dynamo.ErrInvalidResampleStep)
	_, err = Stroboscopic(tr, -1, 0)
	require.ErrorIs(t, err, dynamo.ErrInvalidResampleStep)
}
