package lbl

import "github.com/pkg/errors"

//WeightedHistogram sums weights per feature value: histogram[v] is the sum of weights[i] over
//samples with values[i] == v. The histogram is overwritten; its length bounds the feature values.
func WeightedHistogram(values, weights, histogram []float64) error {
	if len(values) != len(weights) {
		return errors.Wrapf(ErrFeatureCountMismatch, "%d feature values, %d weights", len(values), len(weights))
	}
	bins := make([]int, len(values))
	for ind, value := range values {
		bin, err := binIndex(value, len(histogram))
		if err != nil {
			return errors.WithMessagef(err, "sample %d", ind)
		}
		bins[ind] = bin
	}
	binHistogram(bins, weights, histogram)
	return nil
}

//binHistogram is WeightedHistogram over already validated bins.
func binHistogram(bins []int, weights, histogram []float64) {
	for ind := range histogram {
		histogram[ind] = 0
	}
	for ind, bin := range bins {
		histogram[bin] += weights[ind]
	}
}
