package lbl

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//BoostedMachine is the strong machine: a weighted sum of weak machines.
//Weights form an M×K matrix, one row per weak machine. K is fixed by the first added machine.
//
//Adding machines must not run concurrently with anything else on the same instance;
//predictions and index queries may run concurrently with each other.
type BoostedMachine struct {
	machines []WeakMachine
	weights  []float64 // row major, len(machines)×outputs
	outputs  int
}

//NewBoostedMachine creates an empty boosted machine.
func NewBoostedMachine() *BoostedMachine {
	return &BoostedMachine{}
}

//AddWeakMachine appends a machine with a scalar weight. It is only legal for single output ensembles.
func (b *BoostedMachine) AddWeakMachine(machine WeakMachine, weight float64) error {
	if b.outputs > 1 {
		return errors.Wrapf(ErrFeatureCountMismatch, "scalar weight for a boosted machine with %d outputs", b.outputs)
	}
	return b.AddWeakMachineWeights(machine, []float64{weight})
}

//AddWeakMachineWeights appends a machine with one weight per output.
//On error the boosted machine is left untouched. A weak machine whose own number of outputs
//differs from K is accepted, but predictions through it fail with ErrUnsupportedOperation.
func (b *BoostedMachine) AddWeakMachineWeights(machine WeakMachine, weights []float64) error {
	if machine == nil {
		return errors.Wrap(ErrUnsupportedOperation, "nil weak machine")
	}
	if len(weights) == 0 {
		return errors.Wrap(ErrFeatureCountMismatch, "empty weight row")
	}
	if b.outputs != 0 && len(weights) != b.outputs {
		return errors.Wrapf(ErrFeatureCountMismatch, "%d weights for a boosted machine with %d outputs", len(weights), b.outputs)
	}

	b.outputs = len(weights)
	b.machines = append(b.machines, machine)
	b.weights = append(b.weights, weights...)
	return nil
}

//NumberOfMachines returns M.
func (b *BoostedMachine) NumberOfMachines() int {
	return len(b.machines)
}

//NumberOfOutputs returns K, zero for an empty machine.
func (b *BoostedMachine) NumberOfOutputs() int {
	return b.outputs
}

//WeakMachines returns the weak machines in insertion order.
func (b *BoostedMachine) WeakMachines() []WeakMachine {
	return append([]WeakMachine(nil), b.machines...)
}

//Weights returns a copy of the M×K weight matrix, nil for an empty machine.
func (b *BoostedMachine) Weights() *mat.Dense {
	if len(b.machines) == 0 {
		return nil
	}
	return mat.NewDense(len(b.machines), b.outputs, append([]float64(nil), b.weights...))
}

func (b *BoostedMachine) weightRow(ind int) []float64 {
	return b.weights[ind*b.outputs : (ind+1)*b.outputs]
}

//checkNotEmpty guards every prediction and Save: a machine without weak machines
//has no output count, so it is reported as ErrCorruptState.
func (b *BoostedMachine) checkNotEmpty() error {
	if len(b.machines) == 0 {
		return errors.Wrap(ErrCorruptState, "boosted machine without weak machines")
	}
	return nil
}

func (b *BoostedMachine) checkSingleOutput() error {
	if err := b.checkNotEmpty(); err != nil {
		return err
	}
	if b.outputs != 1 {
		return errors.Wrapf(ErrUnsupportedOperation, "scalar prediction of a boosted machine with %d outputs", b.outputs)
	}
	return nil
}

//Forward predicts the score of one discrete feature vector of a single output machine.
//A machine without weak machines fails with ErrCorruptState.
func (b *BoostedMachine) Forward(features []uint16) (float64, error) {
	if err := b.checkSingleOutput(); err != nil {
		return 0, err
	}
	sum := 0.0
	for ind, machine := range b.machines {
		prediction, err := machine.Forward(features)
		if err != nil {
			return 0, errors.WithMessagef(err, "weak machine %d", ind)
		}
		sum += b.weights[ind] * prediction
	}
	return sum, nil
}

//ForwardReal predicts the score of one real feature vector of a single output machine.
func (b *BoostedMachine) ForwardReal(features []float64) (float64, error) {
	if err := b.checkSingleOutput(); err != nil {
		return 0, err
	}
	sum := 0.0
	for ind, machine := range b.machines {
		prediction, err := machine.ForwardReal(features)
		if err != nil {
			return 0, errors.WithMessagef(err, "weak machine %d", ind)
		}
		sum += b.weights[ind] * prediction
	}
	return sum, nil
}

//ForwardVector writes the K scores of one discrete feature vector.
//A machine without weak machines fails with ErrCorruptState.
func (b *BoostedMachine) ForwardVector(features []uint16, scores []float64) error {
	if err := b.checkNotEmpty(); err != nil {
		return err
	}
	if len(scores) != b.outputs {
		return errors.Wrapf(ErrFeatureCountMismatch, "%d scores for a boosted machine with %d outputs", len(scores), b.outputs)
	}

	predictions := make([]float64, b.outputs)
	result := make([]float64, b.outputs)
	for ind, machine := range b.machines {
		if err := machine.ForwardVector(features, predictions); err != nil {
			return errors.WithMessagef(err, "weak machine %d", ind)
		}
		floats.Mul(predictions, b.weightRow(ind))
		floats.Add(result, predictions)
	}
	copy(scores, result)
	return nil
}

type batchPredictor func(machine WeakMachine, features mat.Matrix, predictions *mat.Dense) error

func (b *BoostedMachine) accumulate(features mat.Matrix, predict batchPredictor) (*mat.Dense, error) {
	if err := b.checkNotEmpty(); err != nil {
		return nil, err
	}
	h, _ := features.Dims()
	scores := mat.NewDense(h, b.outputs, nil)
	predictions := mat.NewDense(h, b.outputs, nil)

	for ind, machine := range b.machines {
		if err := predict(machine, features, predictions); err != nil {
			return nil, errors.WithMessagef(err, "weak machine %d", ind)
		}
		weightRow := b.weightRow(ind)
		for p := 0; p < h; p++ {
			for k, weight := range weightRow {
				scores.Set(p, k, scores.At(p, k)+weight*predictions.At(p, k))
			}
		}
	}
	return scores, nil
}

//Predict returns the N×K scores of a discrete feature batch.
//A machine without weak machines fails with ErrCorruptState, as do the other Predict and Forward methods.
func (b *BoostedMachine) Predict(features mat.Matrix) (*mat.Dense, error) {
	return b.accumulate(features, WeakMachine.Predict)
}

//PredictReal returns the N×K scores of a real feature batch.
func (b *BoostedMachine) PredictReal(features mat.Matrix) (*mat.Dense, error) {
	return b.accumulate(features, WeakMachine.PredictReal)
}

//PredictWithLabels returns the scores of a discrete feature batch and the labels derived from them.
func (b *BoostedMachine) PredictWithLabels(features mat.Matrix) (scores, labels *mat.Dense, err error) {
	scores, err = b.Predict(features)
	if err != nil {
		return nil, nil, err
	}
	return scores, Labels(scores), nil
}

//PredictRealWithLabels returns the scores of a real feature batch and the labels derived from them.
func (b *BoostedMachine) PredictRealWithLabels(features mat.Matrix) (scores, labels *mat.Dense, err error) {
	scores, err = b.PredictReal(features)
	if err != nil {
		return nil, nil, err
	}
	return scores, Labels(scores), nil
}

//Labels turns scores into labels. A single column gives +1 for positive scores and -1 otherwise.
//Several columns give one-hot rows of -1 with +1 at the first maximal score.
func Labels(scores mat.Matrix) *mat.Dense {
	h, w := scores.Dims()
	labels := mat.NewDense(h, w, nil)
	row := make([]float64, w)
	for p := 0; p < h; p++ {
		if w == 1 {
			label := -1.0
			if scores.At(p, 0) > 0 {
				label = 1
			}
			labels.Set(p, 0, label)
			continue
		}
		mat.Row(row, p, scores)
		best := floats.MaxIdx(row)
		for q := 0; q < w; q++ {
			labels.Set(p, q, -1)
		}
		labels.Set(p, best, 1)
	}
	return labels
}

//FeatureIndices returns the sorted union of feature indices of the machines in [start, end).
//A negative end means all machines.
func (b *BoostedMachine) FeatureIndices(start, end int) ([]int, error) {
	if end < 0 {
		end = len(b.machines)
	}
	if start < 0 || start > end || end > len(b.machines) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "machine range [%d, %d) of %d machines", start, end, len(b.machines))
	}

	var indices []int
	for _, machine := range b.machines[start:end] {
		indices = append(indices, machine.FeatureIndices()...)
	}
	return uniqueSorted(indices), nil
}
