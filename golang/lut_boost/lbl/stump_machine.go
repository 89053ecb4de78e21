package lbl

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/tarstars/lut_boosting/golang/lut_boost/gstore"
	"gonum.org/v1/gonum/mat"
)

//StumpMachineType is the type tag of StumpMachine.
const StumpMachineType = "StumpMachine"

//StumpMachine thresholds one feature: values below Threshold give Polarity, the rest give -Polarity.
//It has a single output.
type StumpMachine struct {
	Threshold float64
	Polarity  float64
	Index     int
}

//NewStumpMachine creates a stump.
func NewStumpMachine(threshold, polarity float64, index int) *StumpMachine {
	return &StumpMachine{Threshold: threshold, Polarity: polarity, Index: index}
}

func (s *StumpMachine) predict(value float64) float64 {
	if value < s.Threshold {
		return s.Polarity
	}
	return -s.Polarity
}

func (s *StumpMachine) TypeString() string {
	return StumpMachineType
}

func (s *StumpMachine) NumberOfOutputs() int {
	return 1
}

func (s *StumpMachine) Forward(features []uint16) (float64, error) {
	if err := checkFeatureIndex(s.Index, len(features)); err != nil {
		return 0, err
	}
	return s.predict(float64(features[s.Index])), nil
}

func (s *StumpMachine) ForwardReal(features []float64) (float64, error) {
	if err := checkFeatureIndex(s.Index, len(features)); err != nil {
		return 0, err
	}
	return s.predict(features[s.Index]), nil
}

func (s *StumpMachine) ForwardVector(features []uint16, predictions []float64) error {
	if len(predictions) != 1 {
		return errors.Wrapf(ErrUnsupportedOperation, "stump with %d outputs", len(predictions))
	}
	prediction, err := s.Forward(features)
	if err != nil {
		return err
	}
	predictions[0] = prediction
	return nil
}

//Predict thresholds a batch. Discrete and real batches are treated alike.
func (s *StumpMachine) Predict(features mat.Matrix, predictions *mat.Dense) error {
	return s.PredictReal(features, predictions)
}

func (s *StumpMachine) PredictReal(features mat.Matrix, predictions *mat.Dense) error {
	if err := checkPredictionShape(features, predictions, 1); err != nil {
		return err
	}
	h, w := features.Dims()
	if err := checkFeatureIndex(s.Index, w); err != nil {
		return err
	}
	for p := 0; p < h; p++ {
		predictions.Set(p, 0, s.predict(features.At(p, s.Index)))
	}
	return nil
}

func (s *StumpMachine) FeatureIndices() []int {
	return []int{s.Index}
}

func (s *StumpMachine) Save(store gstore.Store) error {
	if err := store.SetFloat("Threshold", s.Threshold); err != nil {
		return err
	}
	if err := store.SetFloat("Polarity", s.Polarity); err != nil {
		return err
	}
	if err := store.SetInt("Index", s.Index); err != nil {
		return err
	}
	return store.SetAttribute(MachineTypeAttribute, StumpMachineType)
}

func (s *StumpMachine) Load(store gstore.Store) error {
	threshold, err := store.Float("Threshold")
	if err != nil {
		return errors.Wrapf(ErrCorruptState, "stump threshold: %v", err)
	}
	polarity, err := store.Float("Polarity")
	if err != nil {
		return errors.Wrapf(ErrCorruptState, "stump polarity: %v", err)
	}
	index, err := store.Int("Index")
	if err != nil {
		return errors.Wrapf(ErrCorruptState, "stump index: %v", err)
	}
	if index < 0 {
		return errors.Wrapf(ErrCorruptState, "stump index %d", index)
	}
	s.Threshold, s.Polarity, s.Index = threshold, polarity, index
	return nil
}

func (s *StumpMachine) String() string {
	return fmt.Sprintf("stump: f_%d < %6.5f ? %+g : %+g", s.Index, s.Threshold, s.Polarity, -s.Polarity)
}
