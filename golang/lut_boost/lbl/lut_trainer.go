package lbl

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
	"math"
)

//SelectionStyle decides how feature indices are chosen for the outputs of a look-up table.
type SelectionStyle int

const (
	//Independent picks the best feature for every output separately.
	Independent SelectionStyle = iota
	//Shared picks one feature for all outputs, the best for the summed score.
	Shared
)

func (s SelectionStyle) String() string {
	switch s {
	case Independent:
		return "independent"
	case Shared:
		return "shared"
	}
	return "unknown"
}

//ParseSelectionStyle is the inverse of SelectionStyle.String.
func ParseSelectionStyle(name string) (SelectionStyle, error) {
	switch name {
	case "independent":
		return Independent, nil
	case "shared":
		return Shared, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedOperation, "selection style %q", name)
}

//LUTTrainerParams collect arguments required to construct a LUTTrainer.
type LUTTrainerParams struct {
	//MaximumFeatureValue is the number of distinct feature values, i.e. the table size.
	MaximumFeatureValue int
	NumberOfOutputs     int
	SelectionType       SelectionStyle
	//ThreadsNum parallelizes the scan over features; values below 2 scan in the calling goroutine.
	ThreadsNum int
}

//LUTTrainer fits a LUTMachine to a loss gradient. It keeps no state between calls
//and may be shared between goroutines.
type LUTTrainer struct {
	params LUTTrainerParams
}

//NewLUTTrainer validates the parameters and creates a trainer.
func NewLUTTrainer(params LUTTrainerParams) (*LUTTrainer, error) {
	if params.MaximumFeatureValue < 1 {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "maximum feature value %d", params.MaximumFeatureValue)
	}
	if params.NumberOfOutputs < 1 {
		return nil, errors.Wrapf(ErrFeatureCountMismatch, "%d outputs", params.NumberOfOutputs)
	}
	if params.SelectionType != Independent && params.SelectionType != Shared {
		return nil, errors.Wrapf(ErrUnsupportedOperation, "selection style %d", params.SelectionType)
	}
	return &LUTTrainer{params: params}, nil
}

//Params returns the trainer configuration.
func (trainer *LUTTrainer) Params() LUTTrainerParams {
	return trainer.params
}

//TaskLossSum fills the candidate scores of one feature for every output.
type TaskLossSum struct {
	lossSum      *tensor.Dense
	featureIndex int
	bins         []int
	gradients    [][]float64
	tableSize    int
	err          error
}

//Execute computes -Σ|H| for every output, H being the weighted histogram of the feature.
func (task *TaskLossSum) Execute() {
	histogram := make([]float64, task.tableSize)
	for outputIndex, gradient := range task.gradients {
		binHistogram(task.bins, gradient, histogram)
		sum := 0.0
		for _, val := range histogram {
			sum += math.Abs(val)
		}
		if err := task.lossSum.SetAt(-sum, task.featureIndex, outputIndex); err != nil {
			task.err = err
			return
		}
	}
}

//bestIndex returns the position of the first minimum, -1 for an empty slice.
func bestIndex(values []float64) int {
	minIndex := -1
	minimalValue := 0.0
	for ind, val := range values {
		if minIndex == -1 || val < minimalValue {
			minimalValue = val
			minIndex = ind
		}
	}
	return minIndex
}

//Train selects the most discriminative feature (one per output or one shared by all outputs)
//and fills the table with the signs of the gradient histogram at that feature.
//features is N×D with integral values below MaximumFeatureValue, lossGradient is N×K.
func (trainer *LUTTrainer) Train(features, lossGradient mat.Matrix) (*LUTMachine, error) {
	h, w := features.Dims()
	gradientH, gradientW := lossGradient.Dims()
	if gradientH != h {
		return nil, errors.Wrapf(ErrFeatureCountMismatch, "%d feature rows, %d gradient rows", h, gradientH)
	}
	outputs := trainer.params.NumberOfOutputs
	if gradientW != outputs {
		return nil, errors.Wrapf(ErrFeatureCountMismatch, "%d gradient columns for a trainer with %d outputs", gradientW, outputs)
	}
	if h == 0 || w == 0 {
		return nil, errors.Wrapf(ErrFeatureCountMismatch, "can't fit a look-up table to %d samples of %d features", h, w)
	}
	tableSize := trainer.params.MaximumFeatureValue

	featureBins, err := discreteColumns(features, tableSize)
	if err != nil {
		return nil, err
	}
	gradients := make([][]float64, outputs)
	for k := range gradients {
		gradients[k] = mat.Col(nil, k, lossGradient)
	}

	lossSum := tensor.New(tensor.WithShape(w, outputs), tensor.Of(tensor.Float64))
	tasks := make([]Task, w)
	lossTasks := make([]*TaskLossSum, w)
	for q := 0; q < w; q++ {
		lossTasks[q] = &TaskLossSum{lossSum: lossSum, featureIndex: q, bins: featureBins[q], gradients: gradients, tableSize: tableSize}
		tasks[q] = lossTasks[q]
	}
	runTasks(trainer.params.ThreadsNum, tasks)
	for _, task := range lossTasks {
		if task.err != nil {
			return nil, errors.Wrap(task.err, "candidate scores")
		}
	}

	selected, err := trainer.selectIndices(lossSum, w, outputs)
	if err != nil {
		return nil, err
	}

	table := mat.NewDense(tableSize, outputs, nil)
	histogram := make([]float64, tableSize)
	for k, featureIndex := range selected {
		binHistogram(featureBins[featureIndex], gradients[k], histogram)
		for v, val := range histogram {
			entry := -1.0
			if val > 0 {
				entry = 1
			}
			table.Set(v, k, entry)
		}
	}

	logger.Debug("look-up table trained",
		zap.Stringer("selection", trainer.params.SelectionType),
		zap.Ints("indices", selected),
		zap.Int("samples", h),
		zap.Int("features", w),
	)
	return NewLUTMachine(table, selected)
}

func (trainer *LUTTrainer) selectIndices(lossSum *tensor.Dense, w, outputs int) ([]int, error) {
	selected := make([]int, outputs)
	if trainer.params.SelectionType == Shared {
		total, err := lossSum.Sum(1)
		if err != nil {
			return nil, errors.Wrap(err, "summing candidate scores")
		}
		best := bestIndex(float64Data(total))
		for k := range selected {
			selected[k] = best
		}
		return selected, nil
	}

	column := make([]float64, w)
	for k := range selected {
		for q := 0; q < w; q++ {
			value, err := lossSum.At(q, k)
			if err != nil {
				return nil, errors.Wrap(err, "reading candidate scores")
			}
			column[q] = value.(float64)
		}
		selected[k] = bestIndex(column)
	}
	return selected, nil
}

func float64Data(t *tensor.Dense) []float64 {
	switch data := t.Data().(type) {
	case []float64:
		return data
	case float64:
		return []float64{data}
	}
	return nil
}

//discreteColumns converts every column of a discrete feature batch into validated bins.
func discreteColumns(features mat.Matrix, tableSize int) ([][]int, error) {
	h, w := features.Dims()
	columns := make([][]int, w)
	for q := 0; q < w; q++ {
		columns[q] = make([]int, h)
		for p := 0; p < h; p++ {
			bin, err := binIndex(features.At(p, q), tableSize)
			if err != nil {
				return nil, errors.WithMessagef(err, "sample %d, feature %d", p, q)
			}
			columns[q][p] = bin
		}
	}
	return columns, nil
}
