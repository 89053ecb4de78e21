package lbl

import (
	"gonum.org/v1/gonum/mat"
	"math"
)

const (
	ExponentialLossName = "exponential"
	LogitLossName       = "logit"
	TangentialLossName  = "tangential"
)

//marginFunc returns the loss and its derivative with respect to the score for a target and a score.
type marginFunc func(target, score float64) (loss, derivative float64)

func marginLoss(targets, scores mat.Matrix, f marginFunc) (*mat.Dense, error) {
	h, w, err := checkSameShape(targets, scores)
	if err != nil {
		return nil, err
	}
	errs := mat.NewDense(h, w, nil)
	errs.Apply(func(p, q int, v float64) float64 {
		loss, _ := f(targets.At(p, q), v)
		return loss
	}, scores)
	return errs, nil
}

func marginGradient(targets, scores mat.Matrix, f marginFunc) (*mat.Dense, error) {
	h, w, err := checkSameShape(targets, scores)
	if err != nil {
		return nil, err
	}
	gradient := mat.NewDense(h, w, nil)
	gradient.Apply(func(p, q int, v float64) float64 {
		_, derivative := f(targets.At(p, q), v)
		return derivative
	}, scores)
	return gradient, nil
}

//ExponentialLoss is exp(-t·s) per entry, for targets in {-1, +1}.
type ExponentialLoss struct{}

func exponential(target, score float64) (float64, float64) {
	e := math.Exp(-target * score)
	return e, -target * e
}

func (ExponentialLoss) Loss(targets, scores mat.Matrix) (*mat.Dense, error) {
	return marginLoss(targets, scores, exponential)
}

func (ExponentialLoss) LossGradient(targets, scores mat.Matrix) (*mat.Dense, error) {
	return marginGradient(targets, scores, exponential)
}

//LogitLoss is log(1 + exp(-t·s)) per entry.
type LogitLoss struct{}

func logit(target, score float64) (float64, float64) {
	e := math.Exp(-target * score)
	return math.Log1p(e), -target * e / (1 + e)
}

func (LogitLoss) Loss(targets, scores mat.Matrix) (*mat.Dense, error) {
	return marginLoss(targets, scores, logit)
}

func (LogitLoss) LossGradient(targets, scores mat.Matrix) (*mat.Dense, error) {
	return marginGradient(targets, scores, logit)
}

//TangentialLoss is (2·atan(t·s) - 1)² per entry.
type TangentialLoss struct{}

func tangential(target, score float64) (float64, float64) {
	margin := target * score
	residual := 2*math.Atan(margin) - 1
	return residual * residual, 4 * target * residual / (1 + margin*margin)
}

func (TangentialLoss) Loss(targets, scores mat.Matrix) (*mat.Dense, error) {
	return marginLoss(targets, scores, tangential)
}

func (TangentialLoss) LossGradient(targets, scores mat.Matrix) (*mat.Dense, error) {
	return marginGradient(targets, scores, tangential)
}
