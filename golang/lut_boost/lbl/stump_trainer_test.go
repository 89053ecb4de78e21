package lbl

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"testing"
)

func TestScanForSplit(t *testing.T) {
	split := ScanForSplit(3, []float64{4, 1, 3, 2}, []float64{-1, 1, -1, 1})

	assert.Equal(t, 3, split.FeatureIndex)
	assert.Equal(t, 2.5, split.Threshold)
	assert.Equal(t, 1., split.Polarity)
	assert.Equal(t, 4., split.Gain)
}

func TestScanForSplitSkipsRepeatedValues(t *testing.T) {
	// the only boundary is between 1 and 2, the repeated ones can't be separated
	split := ScanForSplit(0, []float64{1, 1, 2, 1}, []float64{-1, 2, -3, 1})

	assert.Equal(t, 1.5, split.Threshold)
	assert.Equal(t, 1., split.Polarity)
	assert.Equal(t, 5., split.Gain)
}

func TestScanForSplitWithoutBoundaries(t *testing.T) {
	split := ScanForSplit(0, []float64{2, 2, 2}, []float64{1, 0.5, 1})

	// a threshold at the smallest value puts every sample above it
	assert.Equal(t, 2., split.Threshold)
	assert.Equal(t, -1., split.Polarity)
	assert.Equal(t, 2.5, split.Gain)
}

func TestStumpTrainer(t *testing.T) {
	features := mat.NewDense(6, 3, []float64{
		5, 0.1, 1,
		5, 0.4, 1,
		5, 0.2, 1,
		5, 0.9, 2,
		5, 0.7, 2,
		5, 0.8, 1,
	})
	gradient := mat.NewDense(6, 1, []float64{-1, -0.5, -2, 1, 0.25, 3})

	for _, threadsNum := range []int{1, 3} {
		stump, err := NewStumpTrainer(threadsNum).Train(features, gradient)
		require.NoError(t, err)
		assert.Equal(t, 1, stump.Index)
		assert.InDelta(t, 0.55, stump.Threshold, 1e-15)

		predictions := mat.NewDense(6, 1, nil)
		require.NoError(t, stump.PredictReal(features, predictions))
		for p := 0; p < 6; p++ {
			assert.Equal(t, -gradient.At(p, 0) > 0, predictions.At(p, 0) > 0, "sample %d", p)
		}
	}
}

func TestStumpTrainerPrefersFirstFeatureOnTies(t *testing.T) {
	features := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
	})
	gradient := mat.NewDense(4, 1, []float64{1, 1, -1, -1})

	stump, err := NewStumpTrainer(2).Train(features, gradient)
	require.NoError(t, err)
	assert.Equal(t, 0, stump.Index)
	assert.Equal(t, 2.5, stump.Threshold)
	assert.Equal(t, -1., stump.Polarity)
}

func TestStumpTrainerErrors(t *testing.T) {
	trainer := NewStumpTrainer(1)

	_, err := trainer.Train(mat.NewDense(3, 2, nil), mat.NewDense(2, 1, nil))
	assert.ErrorIs(t, err, ErrFeatureCountMismatch)
	_, err = trainer.Train(mat.NewDense(3, 2, nil), mat.NewDense(3, 2, nil))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	_, err = trainer.Train(shapeOnly{rows: 3}, mat.NewDense(3, 1, nil))
	assert.ErrorIs(t, err, ErrFeatureCountMismatch)
}
