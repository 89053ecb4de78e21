package lbl

import (
	"errors"
	"gonum.org/v1/gonum/mat"
	"testing"
)

func TestStumpForward(t *testing.T) {
	for _, polarity := range []float64{1, -1} {
		stump := NewStumpMachine(0.5, polarity, 1)
		for _, testCase := range []struct {
			value    float64
			expected float64
		}{
			{0.25, polarity},
			{0.5, -polarity},
			{0.75, -polarity},
		} {
			prediction, err := stump.ForwardReal([]float64{100, testCase.value})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if prediction != testCase.expected {
				t.Errorf("polarity %v, value %v: expected %v, got %v", polarity, testCase.value, testCase.expected, prediction)
			}
		}
	}
}

func TestStumpDiscreteBoundary(t *testing.T) {
	stump := NewStumpMachine(3, 1, 0)

	below, err := stump.Forward([]uint16{2})
	if err != nil || below != 1 {
		t.Fatalf("expected 1 below the threshold, got %v (%v)", below, err)
	}
	equal, err := stump.Forward([]uint16{3})
	if err != nil || equal != -1 {
		t.Fatalf("expected -1 at the threshold, got %v (%v)", equal, err)
	}
}

func TestStumpPredictBatch(t *testing.T) {
	stump := NewStumpMachine(0, -1, 2)
	features := mat.NewDense(3, 3, []float64{
		0, 0, -1,
		0, 0, 0,
		0, 0, 1,
	})
	predictions := mat.NewDense(3, 1, nil)
	if err := stump.PredictReal(features, predictions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := mat.NewDense(3, 1, []float64{-1, 1, 1})
	if !mat.Equal(predictions, expected) {
		t.Errorf("expected %v, got %v", mat.Formatted(expected), mat.Formatted(predictions))
	}
}

func TestStumpUnsupportedShapes(t *testing.T) {
	stump := NewStumpMachine(0, 1, 0)

	if err := stump.Predict(mat.NewDense(2, 1, nil), mat.NewDense(2, 3, nil)); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected an unsupported operation for three outputs, got %v", err)
	}
	if err := stump.ForwardVector([]uint16{1}, make([]float64, 2)); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected an unsupported operation for a vector of two outputs, got %v", err)
	}
	if _, err := stump.ForwardReal(nil); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected an index error for an empty feature vector, got %v", err)
	}
}

func TestStumpFeatureIndices(t *testing.T) {
	indices := NewStumpMachine(0, 1, 7).FeatureIndices()
	if len(indices) != 1 || indices[0] != 7 {
		t.Errorf("expected [7], got %v", indices)
	}
}
