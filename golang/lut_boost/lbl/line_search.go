package lbl

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

//LineSearchProblem builds the objective of the per-round weight search: the variable is alpha,
//the function is LossSum and the gradient is GradientSum.
//The shapes are validated here, so the returned closures only panic on errors of the loss itself.
func LineSearchProblem(loss LossFunction, targets, previousScores, currentScores mat.Matrix) (optimize.Problem, error) {
	_, w := targets.Dims()
	if _, err := LossSum(loss, make([]float64, w), targets, previousScores, currentScores); err != nil {
		return optimize.Problem{}, err
	}

	return optimize.Problem{
		Func: func(alpha []float64) float64 {
			value, err := LossSum(loss, alpha, targets, previousScores, currentScores)
			if err != nil {
				panic(err)
			}
			return value
		},
		Grad: func(grad, alpha []float64) {
			sums, err := GradientSum(loss, alpha, targets, previousScores, currentScores)
			if err != nil {
				panic(err)
			}
			copy(grad, sums)
		},
	}, nil
}
