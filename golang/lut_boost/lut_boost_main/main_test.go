package main

import (
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarstars/lut_boosting/golang/lut_boost/gstore"
	"github.com/tarstars/lut_boosting/golang/lut_boost/lbl"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	fileName := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0o644))
	return fileName
}

func TestParseOptions(t *testing.T) {
	options, err := parseOptions([]string{"--mode", "describe", "--config", "describe.yaml", "--verbose"})
	require.NoError(t, err)
	assert.Equal(t, Options{Mode: "describe", Config: "describe.yaml", Verbose: true}, options)

	t.Setenv("LUTBOOST_MODE", "graph")
	options, err = parseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, "graph", options.Mode)

	options, err = parseOptions([]string{"--mode", "loss"})
	require.NoError(t, err)
	assert.Equal(t, "loss", options.Mode, "flags win over the environment")
}

func TestDecodeConfig(t *testing.T) {
	dir := t.TempDir()
	fileName := writeConfig(t, dir, `
filename_features: features.npy
filename_gradient: gradient.npy
weight: [1, 0.5]
selection_style: shared
`)
	t.Setenv("LUTBOOST_FILENAME_MODEL", "from_env")

	config := TrainLUTConfig{MaximumFeatureValue: 16, SelectionStyle: "independent", ThreadsNum: 3}
	require.NoError(t, decodeConfig(fileName, &config))
	assert.Equal(t, TrainLUTConfig{
		FeaturesFileName:    "features.npy",
		GradientFileName:    "gradient.npy",
		ModelFileName:       "from_env",
		MaximumFeatureValue: 16,
		SelectionStyle:      "shared",
		Weight:              []float64{1, 0.5},
		ThreadsNum:          3,
	}, config)

	assert.Error(t, decodeConfig(filepath.Join(dir, "absent.yaml"), &config))
}

func TestRequireKeys(t *testing.T) {
	assert.NoError(t, requireKeys(map[string]string{"a": "x"}))
	err := requireKeys(map[string]string{"b": "", "a": "", "c": "x"})
	assert.EqualError(t, err, "missing config keys: a, b")
}

func TestUnknownMode(t *testing.T) {
	assert.Error(t, runMode("evaluate", ""))
}

func createModel(t *testing.T, dir string) (string, *lbl.BoostedMachine) {
	t.Helper()
	lut, err := lbl.NewLUTMachine(mat.NewDense(3, 2, []float64{
		1, -1,
		-1, 1,
		1, 1,
	}), []int{0, 2})
	require.NoError(t, err)
	second, err := lbl.NewLUTMachine(mat.NewDense(3, 2, []float64{
		-1, -1,
		1, -1,
		1, 1,
	}), []int{1, 1})
	require.NoError(t, err)

	machine := lbl.NewBoostedMachine()
	require.NoError(t, machine.AddWeakMachineWeights(lut, []float64{0.5, 0.25}))
	require.NoError(t, machine.AddWeakMachineWeights(second, []float64{0.125, 1}))

	fileName := filepath.Join(dir, "model")
	require.NoError(t, machine.SaveFile(fileName))
	return fileName, machine
}

func discreteFeatures() *mat.Dense {
	features := mat.NewDense(27, 3, nil)
	for p := 0; p < 27; p++ {
		features.SetRow(p, []float64{float64(p % 3), float64((p / 3) % 3), float64(p / 9)})
	}
	return features
}

func TestPredictMode(t *testing.T) {
	dir := t.TempDir()
	modelFileName, machine := createModel(t, dir)
	features := discreteFeatures()
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "features.npy"), features))

	config := writeConfig(t, dir, fmt.Sprintf(`
filename_model: %s
filename_features: %s
filename_scores: %s
filename_labels: %s
`, modelFileName, filepath.Join(dir, "features.npy"), filepath.Join(dir, "scores.npy"), filepath.Join(dir, "labels.npy")))
	require.NoError(t, runMode("predict", config))

	expected, err := machine.Predict(features)
	require.NoError(t, err)
	scores, err := gstore.ReadNpyFile(filepath.Join(dir, "scores.npy"))
	require.NoError(t, err)
	assert.True(t, mat.Equal(expected, scores))

	labels, err := gstore.ReadNpyFile(filepath.Join(dir, "labels.npy"))
	require.NoError(t, err)
	assert.True(t, mat.Equal(lbl.Labels(expected), labels))
}

func TestTrainLUTMode(t *testing.T) {
	dir := t.TempDir()
	features := discreteFeatures()
	gradient := mat.NewDense(27, 2, nil)
	for p := 0; p < 27; p++ {
		gradient.SetRow(p, []float64{features.At(p, 1) - 1, 1 - features.At(p, 2)})
	}
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "features.npy"), features))
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "gradient.npy"), gradient))
	modelFileName := filepath.Join(dir, "model")

	for ind, appendToModel := range []bool{false, true} {
		config := writeConfig(t, dir, fmt.Sprintf(`
filename_features: %s
filename_gradient: %s
filename_model: %s
maximum_feature_value: 3
append: %v
threads_num: 2
`, filepath.Join(dir, "features.npy"), filepath.Join(dir, "gradient.npy"), modelFileName, appendToModel))
		require.NoError(t, runMode("train_lut", config))

		machine, err := lbl.LoadBoostedMachineFile(modelFileName)
		require.NoError(t, err)
		assert.Equal(t, ind+1, machine.NumberOfMachines())
		assert.Equal(t, 2, machine.NumberOfOutputs())
		indices, err := machine.FeatureIndices(0, -1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, indices)
	}
}

func TestTrainStumpMode(t *testing.T) {
	dir := t.TempDir()
	features := mat.NewDense(4, 2, []float64{
		0.5, 3,
		0.1, 2,
		0.7, 1,
		0.2, 0,
	})
	gradient := mat.NewDense(4, 1, []float64{1, -1, 1, -1})
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "features.npy"), features))
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "gradient.npy"), gradient))

	config := writeConfig(t, dir, fmt.Sprintf(`
filename_features: %s
filename_gradient: %s
filename_model: %s
weight: 0.75
`, filepath.Join(dir, "features.npy"), filepath.Join(dir, "gradient.npy"), filepath.Join(dir, "model")))
	require.NoError(t, runMode("train_stump", config))

	machine, err := lbl.LoadBoostedMachineFile(filepath.Join(dir, "model"))
	require.NoError(t, err)
	require.Equal(t, 1, machine.NumberOfMachines())
	stump, ok := machine.WeakMachines()[0].(*lbl.StumpMachine)
	require.True(t, ok)
	assert.Equal(t, 0, stump.Index)
	assert.InDelta(t, 0.35, stump.Threshold, 1e-12)
	assert.Equal(t, 1., stump.Polarity)
	assert.Equal(t, 0.75, machine.Weights().At(0, 0))
}

func TestLossMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "targets.npy"), mat.NewDense(1, 4, []float64{0, 0, 0, 10})))
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "scores.npy"), mat.NewDense(1, 4, []float64{1, 0, 0, 10})))

	config := writeConfig(t, dir, fmt.Sprintf(`
loss: jesorsky
filename_targets: %s
filename_scores: %s
filename_loss: %s
filename_gradient: %s
`, filepath.Join(dir, "targets.npy"), filepath.Join(dir, "scores.npy"), filepath.Join(dir, "loss.npy"), filepath.Join(dir, "gradient.npy")))
	require.NoError(t, runMode("loss", config))

	errs, err := gstore.ReadNpyFile(filepath.Join(dir, "loss.npy"))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, errs.At(0, 0), 1e-15)
	gradient, err := gstore.ReadNpyFile(filepath.Join(dir, "gradient.npy"))
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(mat.NewDense(1, 4, []float64{0.1, 0, 0, 0}), gradient, 1e-15))
}

func TestLineSearchMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "targets.npy"), mat.NewDense(4, 1, []float64{1, 1, -1, -1})))
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "previous.npy"), mat.NewDense(4, 1, nil)))
	require.NoError(t, gstore.WriteNpyFile(filepath.Join(dir, "current.npy"), mat.NewDense(4, 1, []float64{1, 1, -1, 1})))

	config := writeConfig(t, dir, fmt.Sprintf(`
loss: exponential
filename_targets: %s
filename_previous_scores: %s
filename_current_scores: %s
filename_alpha: %s
`, filepath.Join(dir, "targets.npy"), filepath.Join(dir, "previous.npy"), filepath.Join(dir, "current.npy"), filepath.Join(dir, "alpha.npy")))
	require.NoError(t, runMode("line_search", config))

	alpha, err := gstore.ReadNpyFile(filepath.Join(dir, "alpha.npy"))
	require.NoError(t, err)
	assert.InDelta(t, math.Log(3)/2, alpha.At(0, 0), 1e-4)
}

func TestIndicesMode(t *testing.T) {
	dir := t.TempDir()
	modelFileName, _ := createModel(t, dir)

	config := writeConfig(t, dir, fmt.Sprintf(`
filename_model: %s
start: 1
filename_indices: %s
`, modelFileName, filepath.Join(dir, "indices.npy")))
	require.NoError(t, runMode("indices", config))

	featureIndices, err := gstore.ReadNpyFile(filepath.Join(dir, "indices.npy"))
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(1, 1, []float64{1}), featureIndices))
}

func TestDescribeMode(t *testing.T) {
	dir := t.TempDir()
	modelFileName, _ := createModel(t, dir)

	config := writeConfig(t, dir, fmt.Sprintf(`
filename_model: %s
filename_description: %s
`, modelFileName, filepath.Join(dir, "description.yaml")))
	require.NoError(t, runMode("describe", config))

	raw, err := os.ReadFile(filepath.Join(dir, "description.yaml"))
	require.NoError(t, err)
	var description MachineDescription
	require.NoError(t, yaml.Unmarshal(raw, &description))

	assert.Equal(t, lbl.FormatVersion, description.Version)
	assert.Equal(t, 2, description.Machines)
	assert.Equal(t, 2, description.Outputs)
	assert.Equal(t, []int{0, 1, 2}, description.Features)
	require.Len(t, description.WeakMachines, 2)
	assert.Equal(t, WeakMachineDescription{
		Type:      lbl.LUTMachineType,
		Outputs:   2,
		Indices:   []int{1, 1},
		Weights:   []float64{0.125, 1},
		TableSize: 3,
	}, description.WeakMachines[1])
}

func TestGraphMode(t *testing.T) {
	dir := t.TempDir()
	modelFileName, _ := createModel(t, dir)

	config := writeConfig(t, dir, fmt.Sprintf(`
filename_model: %s
figure_type: svg
filename_graph: %s
`, modelFileName, filepath.Join(dir, "model.svg")))
	require.NoError(t, runMode("graph", config))

	raw, err := os.ReadFile(filepath.Join(dir, "model.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "WeakMachine_1")
}
