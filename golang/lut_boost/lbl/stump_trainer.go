package lbl

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"math"
)

//StumpSplit is the best stump found for one feature.
type StumpSplit struct {
	FeatureIndex int
	Threshold    float64
	Polarity     float64
	Gain         float64
}

//StumpTrainer fits a StumpMachine to the gradient of a single output loss.
type StumpTrainer struct {
	ThreadsNum int
}

//NewStumpTrainer creates a trainer scanning features on threadsNum goroutines.
func NewStumpTrainer(threadsNum int) *StumpTrainer {
	return &StumpTrainer{ThreadsNum: threadsNum}
}

//TaskFindBestSplit scans one feature column for its best threshold.
type TaskFindBestSplit struct {
	result  []StumpSplit
	q       int
	values  []float64
	weights []float64
}

func (task *TaskFindBestSplit) Execute() {
	task.result[task.q] = ScanForSplit(task.q, task.values, task.weights)
}

//ScanForSplit finds the threshold of one feature maximizing |L - U|, L and U being the sums of
//weights of samples below and at or above the threshold. Thresholds are midpoints of consecutive
//distinct values; the threshold at the smallest value (everything at or above) is a candidate too.
//Samples below the threshold get the polarity, which is the sign of L - U.
func ScanForSplit(featureIndex int, values, weights []float64) StumpSplit {
	sortedValues := append([]float64(nil), values...)
	order := make([]int, len(values))
	floats.Argsort(sortedValues, order)

	total := floats.Sum(weights)
	split := StumpSplit{FeatureIndex: featureIndex, Threshold: sortedValues[0], Polarity: polarityOf(-total), Gain: math.Abs(total)}

	lower := 0.0
	for ind := 0; ind < len(order)-1; ind++ {
		lower += weights[order[ind]]
		if sortedValues[ind] == sortedValues[ind+1] {
			continue
		}
		difference := lower - (total - lower)
		if gain := math.Abs(difference); gain > split.Gain {
			split.Gain = gain
			split.Threshold = (sortedValues[ind] + sortedValues[ind+1]) / 2
			split.Polarity = polarityOf(difference)
		}
	}
	return split
}

func polarityOf(difference float64) float64 {
	if difference > 0 {
		return 1
	}
	return -1
}

//Train picks the feature with the largest gain; the first one wins ties.
//The stump weights are the negated gradient, so the stump points down the loss.
func (trainer *StumpTrainer) Train(features, lossGradient mat.Matrix) (*StumpMachine, error) {
	h, w := features.Dims()
	gradientH, gradientW := lossGradient.Dims()
	if gradientH != h {
		return nil, errors.Wrapf(ErrFeatureCountMismatch, "%d feature rows, %d gradient rows", h, gradientH)
	}
	if gradientW != 1 {
		return nil, errors.Wrapf(ErrUnsupportedOperation, "stumps have one output, the gradient has %d columns", gradientW)
	}
	if h == 0 || w == 0 {
		return nil, errors.Wrapf(ErrFeatureCountMismatch, "can't fit a stump to %d samples of %d features", h, w)
	}

	weights := mat.Col(nil, 0, lossGradient)
	floats.Scale(-1, weights)

	result := make([]StumpSplit, w)
	tasks := make([]Task, w)
	for q := 0; q < w; q++ {
		tasks[q] = &TaskFindBestSplit{result: result, q: q, values: mat.Col(nil, q, features), weights: weights}
	}
	runTasks(trainer.ThreadsNum, tasks)

	best := 0
	for ind, split := range result {
		if split.Gain > result[best].Gain {
			best = ind
		}
	}

	split := result[best]
	logger.Debug("stump trained",
		zap.Int("index", split.FeatureIndex),
		zap.Float64("threshold", split.Threshold),
		zap.Float64("polarity", split.Polarity),
		zap.Float64("gain", split.Gain),
	)
	return NewStumpMachine(split.Threshold, split.Polarity, split.FeatureIndex), nil
}
