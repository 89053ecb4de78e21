package lbl

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/tarstars/lut_boosting/golang/lut_boost/gstore"
	"gonum.org/v1/gonum/mat"
	"sort"
	"strings"
)

//LUTMachineType is the type tag of LUTMachine.
const LUTMachineType = "LUTMachine"

//LUTMachine maps discrete feature values to outputs through a look-up table.
//Output k reads the feature indices[k] and returns the table entry in that row and column k.
type LUTMachine struct {
	table   *mat.Dense
	indices []int
}

//NewLUTMachine creates a multi-output machine from a tableSize×K table and K feature indices.
//Both arguments are copied.
func NewLUTMachine(table mat.Matrix, indices []int) (*LUTMachine, error) {
	machine := &LUTMachine{}
	if err := machine.reset(mat.DenseCopyOf(table), append([]int(nil), indices...)); err != nil {
		return nil, err
	}
	return machine, nil
}

//NewScalarLUTMachine creates a single output machine.
func NewScalarLUTMachine(table []float64, index int) (*LUTMachine, error) {
	if len(table) == 0 {
		return nil, errors.Wrap(ErrIndexOutOfRange, "empty look-up table")
	}
	return NewLUTMachine(mat.NewDense(len(table), 1, append([]float64(nil), table...)), []int{index})
}

func (l *LUTMachine) reset(table *mat.Dense, indices []int) error {
	_, w := table.Dims()
	if w != len(indices) {
		return errors.Wrapf(ErrFeatureCountMismatch, "look-up table with %d columns and %d indices", w, len(indices))
	}
	for _, index := range indices {
		if index < 0 {
			return errors.Wrapf(ErrIndexOutOfRange, "negative feature index %d", index)
		}
	}
	l.table, l.indices = table, indices
	return nil
}

//Table returns a copy of the look-up table.
func (l *LUTMachine) Table() *mat.Dense {
	if l.table == nil {
		return nil
	}
	return mat.DenseCopyOf(l.table)
}

//Indices returns a copy of the per-output feature indices.
func (l *LUTMachine) Indices() []int {
	return append([]int(nil), l.indices...)
}

//TableSize is the number of table rows, i.e. the number of distinct feature values.
func (l *LUTMachine) TableSize() int {
	if l.table == nil {
		return 0
	}
	h, _ := l.table.Dims()
	return h
}

func (l *LUTMachine) TypeString() string {
	return LUTMachineType
}

func (l *LUTMachine) NumberOfOutputs() int {
	return len(l.indices)
}

func (l *LUTMachine) lookUp(features []uint16, output int) (float64, error) {
	index := l.indices[output]
	if err := checkFeatureIndex(index, len(features)); err != nil {
		return 0, err
	}
	bin := int(features[index])
	if bin >= l.TableSize() {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "feature value %d is not a bin of a table with %d entries", bin, l.TableSize())
	}
	return l.table.At(bin, output), nil
}

//Forward is the single output shortcut.
func (l *LUTMachine) Forward(features []uint16) (float64, error) {
	if len(l.indices) != 1 {
		return 0, errors.Wrapf(ErrUnsupportedOperation, "scalar forward of a look-up table with %d outputs", len(l.indices))
	}
	return l.lookUp(features, 0)
}

func (l *LUTMachine) ForwardReal([]float64) (float64, error) {
	return 0, errors.Wrap(ErrUnsupportedOperation, "look-up tables need discrete features")
}

func (l *LUTMachine) ForwardVector(features []uint16, predictions []float64) error {
	if len(predictions) != len(l.indices) {
		return errors.Wrapf(ErrUnsupportedOperation, "%d predictions for a look-up table with %d outputs", len(predictions), len(l.indices))
	}
	for k := range l.indices {
		prediction, err := l.lookUp(features, k)
		if err != nil {
			return err
		}
		predictions[k] = prediction
	}
	return nil
}

func (l *LUTMachine) Predict(features mat.Matrix, predictions *mat.Dense) error {
	if err := checkPredictionShape(features, predictions, len(l.indices)); err != nil {
		return err
	}
	h, w := features.Dims()
	for _, index := range l.indices {
		if err := checkFeatureIndex(index, w); err != nil {
			return err
		}
	}

	tableSize := l.TableSize()
	for p := 0; p < h; p++ {
		for k, index := range l.indices {
			bin, err := binIndex(features.At(p, index), tableSize)
			if err != nil {
				return errors.WithMessagef(err, "sample %d, output %d", p, k)
			}
			predictions.Set(p, k, l.table.At(bin, k))
		}
	}
	return nil
}

func (l *LUTMachine) PredictReal(mat.Matrix, *mat.Dense) error {
	return errors.Wrap(ErrUnsupportedOperation, "look-up tables need discrete features")
}

func (l *LUTMachine) FeatureIndices() []int {
	return uniqueSorted(l.indices)
}

func (l *LUTMachine) Save(store gstore.Store) error {
	if l.table == nil {
		return errors.Wrap(ErrCorruptState, "empty look-up table")
	}
	if err := store.SetArray("LUT", l.table); err != nil {
		return err
	}
	if err := store.SetIntArray("Indices", l.indices); err != nil {
		return err
	}
	return store.SetAttribute(MachineTypeAttribute, LUTMachineType)
}

//Load reads the table and the indices. Both may have been saved with any numeric element type.
func (l *LUTMachine) Load(store gstore.Store) error {
	table, err := store.Array("LUT")
	if err != nil {
		return errors.Wrapf(ErrCorruptState, "look-up table: %v", err)
	}
	indices, err := store.IntArray("Indices")
	if err != nil {
		return errors.Wrapf(ErrCorruptState, "look-up table indices: %v", err)
	}
	if err := l.reset(table, indices); err != nil {
		return errors.Wrapf(ErrCorruptState, "%v", err)
	}
	return nil
}

func (l *LUTMachine) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("lut: %d entries\n", l.TableSize()))
	for k, index := range l.indices {
		sb.WriteString(fmt.Sprintf("out_%d <- f_%d\n", k, index))
	}
	return sb.String()
}

func uniqueSorted(values []int) []int {
	result := append([]int(nil), values...)
	sort.Ints(result)
	unique := result[:0]
	for _, val := range result {
		if len(unique) == 0 || val != unique[len(unique)-1] {
			unique = append(unique, val)
		}
	}
	return unique
}
