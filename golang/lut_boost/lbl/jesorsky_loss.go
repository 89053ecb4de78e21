package lbl

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"math"
)

//JesorskyLossName is the registry name of JesorskyLoss.
const JesorskyLossName = "jesorsky"

//JesorskyLoss is the landmark localization error normalized by the distance of the two reference
//landmarks. Every row of targets and scores holds 2D points as y0, x0, y1, x1, ...;
//points 0 and 1 (the eyes, by convention) define the normalizing distance.
//
//The loss is N×1. Coinciding reference points give infinite or NaN values: callers must avoid them.
//A landmark predicted exactly at its target has a zero gradient.
type JesorskyLoss struct{}

func (JesorskyLoss) interEyeScale(targets mat.Matrix, p int) float64 {
	return 1. / math.Hypot(targets.At(p, 0)-targets.At(p, 2), targets.At(p, 1)-targets.At(p, 3))
}

func (JesorskyLoss) checkShape(targets, scores mat.Matrix) (h, w int, err error) {
	h, w, err = checkSameShape(targets, scores)
	if err != nil {
		return 0, 0, err
	}
	if w < 4 || w%2 != 0 {
		return 0, 0, errors.Wrapf(ErrUnsupportedOperation, "landmark loss needs pairs of coordinates of at least two points, got %d columns", w)
	}
	return h, w, nil
}

func (loss JesorskyLoss) Loss(targets, scores mat.Matrix) (*mat.Dense, error) {
	h, w, err := loss.checkShape(targets, scores)
	if err != nil {
		return nil, err
	}

	errs := mat.NewDense(h, 1, nil)
	for p := 0; p < h; p++ {
		scale := loss.interEyeScale(targets, p)
		sum := 0.0
		for q := 0; q < w; q += 2 {
			dy := scores.At(p, q) - targets.At(p, q)
			dx := scores.At(p, q+1) - targets.At(p, q+1)
			sum += math.Hypot(dy, dx) * scale
		}
		errs.Set(p, 0, sum)
	}
	return errs, nil
}

func (loss JesorskyLoss) LossGradient(targets, scores mat.Matrix) (*mat.Dense, error) {
	h, w, err := loss.checkShape(targets, scores)
	if err != nil {
		return nil, err
	}

	gradient := mat.NewDense(h, w, nil)
	for p := 0; p < h; p++ {
		scale := loss.interEyeScale(targets, p)
		for q := 0; q < w; q += 2 {
			dy := scores.At(p, q) - targets.At(p, q)
			dx := scores.At(p, q+1) - targets.At(p, q+1)
			distance := math.Hypot(dy, dx)
			if distance == 0 {
				continue
			}
			localScale := scale / distance
			gradient.Set(p, q, dy*localScale)
			gradient.Set(p, q+1, dx*localScale)
		}
	}
	return gradient, nil
}
