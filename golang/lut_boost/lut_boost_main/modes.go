package main

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/tarstars/lut_boosting/golang/lut_boost/gstore"
	"github.com/tarstars/lut_boosting/golang/lut_boost/lbl"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"runtime"
)

type PredictConfig struct {
	ModelFileName    string `mapstructure:"filename_model"`
	FeaturesFileName string `mapstructure:"filename_features"`
	ScoresFileName   string `mapstructure:"filename_scores"`
	LabelsFileName   string `mapstructure:"filename_labels"`
	RealFeatures     bool   `mapstructure:"real_features"`
}

func predict(srcConfig string) error {
	var config PredictConfig
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	if err := requireKeys(map[string]string{
		"filename_model":    config.ModelFileName,
		"filename_features": config.FeaturesFileName,
		"filename_scores":   config.ScoresFileName,
	}); err != nil {
		return err
	}

	machine, err := lbl.LoadBoostedMachineFile(config.ModelFileName)
	if err != nil {
		return err
	}
	features, err := gstore.ReadNpyFile(config.FeaturesFileName)
	if err != nil {
		return err
	}

	predictWithLabels := machine.PredictWithLabels
	if config.RealFeatures {
		predictWithLabels = machine.PredictRealWithLabels
	}
	scores, labels, err := predictWithLabels(features)
	if err != nil {
		return err
	}

	if err := gstore.WriteNpyFile(config.ScoresFileName, scores); err != nil {
		return err
	}
	if config.LabelsFileName != "" {
		if err := gstore.WriteNpyFile(config.LabelsFileName, labels); err != nil {
			return err
		}
	}
	h, w := scores.Dims()
	logger.Info("scores written", zap.String("filename", config.ScoresFileName), zap.Int("samples", h), zap.Int("outputs", w))
	return nil
}

//modelToExtend loads the model at fileName for appending, or starts an empty one.
func modelToExtend(fileName string, appendToModel bool) (*lbl.BoostedMachine, error) {
	if !appendToModel {
		return lbl.NewBoostedMachine(), nil
	}
	return lbl.LoadBoostedMachineFile(fileName)
}

type TrainLUTConfig struct {
	FeaturesFileName    string    `mapstructure:"filename_features"`
	GradientFileName    string    `mapstructure:"filename_gradient"`
	ModelFileName       string    `mapstructure:"filename_model"`
	MaximumFeatureValue int       `mapstructure:"maximum_feature_value"`
	SelectionStyle      string    `mapstructure:"selection_style"`
	Weight              []float64 `mapstructure:"weight"`
	Append              bool      `mapstructure:"append"`
	ThreadsNum          int       `mapstructure:"threads_num"`
}

func trainLUT(srcConfig string) error {
	config := TrainLUTConfig{
		MaximumFeatureValue: 256,
		SelectionStyle:      lbl.Independent.String(),
		ThreadsNum:          runtime.NumCPU(),
	}
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	if err := requireKeys(map[string]string{
		"filename_features": config.FeaturesFileName,
		"filename_gradient": config.GradientFileName,
		"filename_model":    config.ModelFileName,
	}); err != nil {
		return err
	}
	selection, err := lbl.ParseSelectionStyle(config.SelectionStyle)
	if err != nil {
		return err
	}

	features, err := gstore.ReadNpyFile(config.FeaturesFileName)
	if err != nil {
		return err
	}
	gradient, err := gstore.ReadNpyFile(config.GradientFileName)
	if err != nil {
		return err
	}
	_, outputs := gradient.Dims()

	weights := config.Weight
	if len(weights) == 0 {
		weights = make([]float64, outputs)
		for k := range weights {
			weights[k] = 1
		}
	}

	machine, err := modelToExtend(config.ModelFileName, config.Append)
	if err != nil {
		return err
	}

	trainer, err := lbl.NewLUTTrainer(lbl.LUTTrainerParams{
		MaximumFeatureValue: config.MaximumFeatureValue,
		NumberOfOutputs:     outputs,
		SelectionType:       selection,
		ThreadsNum:          config.ThreadsNum,
	})
	if err != nil {
		return err
	}
	lut, err := trainer.Train(features, gradient)
	if err != nil {
		return err
	}
	if err := machine.AddWeakMachineWeights(lut, weights); err != nil {
		return err
	}
	if err := machine.SaveFile(config.ModelFileName); err != nil {
		return err
	}

	logger.Info("look-up table added",
		zap.String("model", config.ModelFileName),
		zap.Ints("indices", lut.Indices()),
		zap.Int("machines", machine.NumberOfMachines()),
	)
	return nil
}

type TrainStumpConfig struct {
	FeaturesFileName string  `mapstructure:"filename_features"`
	GradientFileName string  `mapstructure:"filename_gradient"`
	ModelFileName    string  `mapstructure:"filename_model"`
	Weight           float64 `mapstructure:"weight"`
	Append           bool    `mapstructure:"append"`
	ThreadsNum       int     `mapstructure:"threads_num"`
}

func trainStump(srcConfig string) error {
	config := TrainStumpConfig{Weight: 1, ThreadsNum: runtime.NumCPU()}
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	if err := requireKeys(map[string]string{
		"filename_features": config.FeaturesFileName,
		"filename_gradient": config.GradientFileName,
		"filename_model":    config.ModelFileName,
	}); err != nil {
		return err
	}

	features, err := gstore.ReadNpyFile(config.FeaturesFileName)
	if err != nil {
		return err
	}
	gradient, err := gstore.ReadNpyFile(config.GradientFileName)
	if err != nil {
		return err
	}
	machine, err := modelToExtend(config.ModelFileName, config.Append)
	if err != nil {
		return err
	}

	stump, err := lbl.NewStumpTrainer(config.ThreadsNum).Train(features, gradient)
	if err != nil {
		return err
	}
	if err := machine.AddWeakMachine(stump, config.Weight); err != nil {
		return err
	}
	if err := machine.SaveFile(config.ModelFileName); err != nil {
		return err
	}

	logger.Info("stump added",
		zap.String("model", config.ModelFileName),
		zap.Stringer("stump", stump),
		zap.Int("machines", machine.NumberOfMachines()),
	)
	return nil
}

type LossConfig struct {
	Loss             string `mapstructure:"loss"`
	TargetsFileName  string `mapstructure:"filename_targets"`
	ScoresFileName   string `mapstructure:"filename_scores"`
	LossFileName     string `mapstructure:"filename_loss"`
	GradientFileName string `mapstructure:"filename_gradient"`
}

func loss(srcConfig string) error {
	config := LossConfig{Loss: lbl.JesorskyLossName}
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	if err := requireKeys(map[string]string{
		"filename_targets": config.TargetsFileName,
		"filename_scores":  config.ScoresFileName,
	}); err != nil {
		return err
	}

	lossFunction, err := lbl.LossByName(config.Loss)
	if err != nil {
		return err
	}
	targets, err := gstore.ReadNpyFile(config.TargetsFileName)
	if err != nil {
		return err
	}
	scores, err := gstore.ReadNpyFile(config.ScoresFileName)
	if err != nil {
		return err
	}

	errs, err := lossFunction.Loss(targets, scores)
	if err != nil {
		return err
	}
	if config.LossFileName != "" {
		if err := gstore.WriteNpyFile(config.LossFileName, errs); err != nil {
			return err
		}
	}
	if config.GradientFileName != "" {
		gradient, err := lossFunction.LossGradient(targets, scores)
		if err != nil {
			return err
		}
		if err := gstore.WriteNpyFile(config.GradientFileName, gradient); err != nil {
			return err
		}
	}

	h, _ := errs.Dims()
	logger.Info("loss computed", zap.String("loss", config.Loss), zap.Float64("mean", mat.Sum(errs)/float64(h)))
	return nil
}

type LineSearchConfig struct {
	Loss                   string  `mapstructure:"loss"`
	TargetsFileName        string  `mapstructure:"filename_targets"`
	PreviousScoresFileName string  `mapstructure:"filename_previous_scores"`
	CurrentScoresFileName  string  `mapstructure:"filename_current_scores"`
	AlphaFileName          string  `mapstructure:"filename_alpha"`
	InitialAlpha           float64 `mapstructure:"initial_alpha"`
}

func lineSearch(srcConfig string) error {
	config := LineSearchConfig{Loss: lbl.JesorskyLossName}
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	if err := requireKeys(map[string]string{
		"filename_targets":         config.TargetsFileName,
		"filename_previous_scores": config.PreviousScoresFileName,
		"filename_current_scores":  config.CurrentScoresFileName,
		"filename_alpha":           config.AlphaFileName,
	}); err != nil {
		return err
	}

	lossFunction, err := lbl.LossByName(config.Loss)
	if err != nil {
		return err
	}
	var batches [3]*mat.Dense
	for ind, fileName := range []string{config.TargetsFileName, config.PreviousScoresFileName, config.CurrentScoresFileName} {
		if batches[ind], err = gstore.ReadNpyFile(fileName); err != nil {
			return err
		}
	}

	problem, err := lbl.LineSearchProblem(lossFunction, batches[0], batches[1], batches[2])
	if err != nil {
		return err
	}
	_, w := batches[0].Dims()
	initial := make([]float64, w)
	for k := range initial {
		initial[k] = config.InitialAlpha
	}
	result, err := optimize.Minimize(problem, initial, nil, &optimize.LBFGS{})
	if err != nil {
		return errors.Wrap(err, "line search")
	}

	if err := gstore.WriteNpyFile(config.AlphaFileName, mat.NewDense(1, w, result.X)); err != nil {
		return err
	}
	logger.Info("line search finished",
		zap.Float64s("alpha", result.X),
		zap.Float64("loss", result.F),
		zap.Stringer("status", result.Status),
		zap.Int("evaluations", result.Stats.FuncEvaluations),
	)
	return nil
}

type IndicesConfig struct {
	ModelFileName   string `mapstructure:"filename_model"`
	Start           int    `mapstructure:"start"`
	End             int    `mapstructure:"end"`
	IndicesFileName string `mapstructure:"filename_indices"`
}

func indices(srcConfig string) error {
	config := IndicesConfig{End: -1}
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	if err := requireKeys(map[string]string{"filename_model": config.ModelFileName}); err != nil {
		return err
	}

	machine, err := lbl.LoadBoostedMachineFile(config.ModelFileName)
	if err != nil {
		return err
	}
	featureIndices, err := machine.FeatureIndices(config.Start, config.End)
	if err != nil {
		return err
	}

	if config.IndicesFileName == "" {
		fmt.Println(featureIndices)
		return nil
	}
	return gstore.WriteIntNpyFile(config.IndicesFileName, featureIndices)
}

type GraphConfig struct {
	ModelFileName string `mapstructure:"filename_model"`
	FigureType    string `mapstructure:"figure_type"`
	GraphFileName string `mapstructure:"filename_graph"`
}

func graph(srcConfig string) error {
	config := GraphConfig{FigureType: "svg"}
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	if err := requireKeys(map[string]string{
		"filename_model": config.ModelFileName,
		"filename_graph": config.GraphFileName,
	}); err != nil {
		return err
	}

	machine, err := lbl.LoadBoostedMachineFile(config.ModelFileName)
	if err != nil {
		return err
	}
	return machine.RenderGraphFile(config.FigureType, config.GraphFileName)
}
