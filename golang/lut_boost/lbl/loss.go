package lbl

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"sort"
	"sync"
)

//LossFunction measures the error of scores against targets, both N×K.
//Loss returns the per-sample error (N×1 or N×K, depending on the loss),
//LossGradient the derivative of the error with respect to every score (N×K).
type LossFunction interface {
	Loss(targets, scores mat.Matrix) (*mat.Dense, error)
	LossGradient(targets, scores mat.Matrix) (*mat.Dense, error)
}

//checkSameShape validates that targets and scores are parallel batches.
func checkSameShape(targets, scores mat.Matrix) (h, w int, err error) {
	h, w = targets.Dims()
	scoresH, scoresW := scores.Dims()
	if h != scoresH || w != scoresW {
		return 0, 0, errors.Wrapf(ErrFeatureCountMismatch, "targets %d×%d, scores %d×%d", h, w, scoresH, scoresW)
	}
	return h, w, nil
}

//combinedScores computes previous + alpha ⊙ current, alpha being broadcast over the rows.
func combinedScores(alpha []float64, targets, previousScores, currentScores mat.Matrix) (*mat.Dense, error) {
	h, w, err := checkSameShape(targets, previousScores)
	if err != nil {
		return nil, errors.WithMessage(err, "previous scores")
	}
	if _, _, err := checkSameShape(targets, currentScores); err != nil {
		return nil, errors.WithMessage(err, "current scores")
	}
	if len(alpha) != w {
		return nil, errors.Wrapf(ErrFeatureCountMismatch, "%d alpha values for %d outputs", len(alpha), w)
	}

	scores := mat.NewDense(h, w, nil)
	scores.Apply(func(p, q int, v float64) float64 {
		return v + alpha[q]*currentScores.At(p, q)
	}, previousScores)
	return scores, nil
}

//LossSum is the line search objective: the sum of all loss values of previous + alpha ⊙ current.
func LossSum(loss LossFunction, alpha []float64, targets, previousScores, currentScores mat.Matrix) (float64, error) {
	scores, err := combinedScores(alpha, targets, previousScores, currentScores)
	if err != nil {
		return 0, err
	}
	errs, err := loss.Loss(targets, scores)
	if err != nil {
		return 0, err
	}
	return mat.Sum(errs), nil
}

//GradientSum is the derivative of LossSum with respect to alpha: the column sums of
//LossGradient(previous + alpha ⊙ current) ⊙ current.
func GradientSum(loss LossFunction, alpha []float64, targets, previousScores, currentScores mat.Matrix) ([]float64, error) {
	scores, err := combinedScores(alpha, targets, previousScores, currentScores)
	if err != nil {
		return nil, err
	}
	gradient, err := loss.LossGradient(targets, scores)
	if err != nil {
		return nil, err
	}

	h, w := gradient.Dims()
	sums := make([]float64, w)
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			sums[q] += gradient.At(p, q) * currentScores.At(p, q)
		}
	}
	return sums, nil
}

//LossFactory creates a loss function.
type LossFactory func() LossFunction

var (
	lossMutex     sync.RWMutex
	lossFactories = map[string]LossFactory{}
)

//RegisterLoss makes a loss function available by name.
func RegisterLoss(name string, factory LossFactory) error {
	lossMutex.Lock()
	defer lossMutex.Unlock()

	if _, ok := lossFactories[name]; ok {
		return errors.Wrapf(ErrDuplicateRegistration, "loss %q", name)
	}
	lossFactories[name] = factory
	return nil
}

//LossByName creates a registered loss function.
func LossByName(name string) (LossFunction, error) {
	lossMutex.RLock()
	factory, ok := lossFactories[name]
	lossMutex.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedOperation, "unknown loss %q, known losses are %v", name, LossNames())
	}
	return factory(), nil
}

//LossNames lists registered losses in lexical order.
func LossNames() []string {
	lossMutex.RLock()
	defer lossMutex.RUnlock()

	names := make([]string, 0, len(lossFactories))
	for name := range lossFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
