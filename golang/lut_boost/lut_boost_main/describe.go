package main

import (
	"github.com/pkg/errors"
	"github.com/tarstars/lut_boosting/golang/lut_boost/lbl"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
	"os"
)

type WeakMachineDescription struct {
	Type      string    `yaml:"type"`
	Outputs   int       `yaml:"outputs"`
	Indices   []int     `yaml:"indices,flow"`
	Weights   []float64 `yaml:"weights,flow"`
	Threshold *float64  `yaml:"threshold,omitempty"`
	Polarity  *float64  `yaml:"polarity,omitempty"`
	TableSize int       `yaml:"table_size,omitempty"`
}

type MachineDescription struct {
	Version      int                      `yaml:"version"`
	Machines     int                      `yaml:"machines"`
	Outputs      int                      `yaml:"outputs"`
	Features     []int                    `yaml:"features,flow"`
	WeakMachines []WeakMachineDescription `yaml:"weak_machines"`
}

func describeMachine(machine *lbl.BoostedMachine) (MachineDescription, error) {
	features, err := machine.FeatureIndices(0, -1)
	if err != nil {
		return MachineDescription{}, err
	}
	description := MachineDescription{
		Version:  lbl.FormatVersion,
		Machines: machine.NumberOfMachines(),
		Outputs:  machine.NumberOfOutputs(),
		Features: features,
	}

	weights := machine.Weights()
	for ind, weak := range machine.WeakMachines() {
		weakDescription := WeakMachineDescription{
			Type:    weak.TypeString(),
			Outputs: weak.NumberOfOutputs(),
			Indices: weak.FeatureIndices(),
			Weights: mat.Row(nil, ind, weights),
		}
		switch typed := weak.(type) {
		case *lbl.StumpMachine:
			threshold, polarity := typed.Threshold, typed.Polarity
			weakDescription.Threshold = &threshold
			weakDescription.Polarity = &polarity
		case *lbl.LUTMachine:
			weakDescription.Indices = typed.Indices()
			weakDescription.TableSize = typed.TableSize()
		}
		description.WeakMachines = append(description.WeakMachines, weakDescription)
	}
	return description, nil
}

type DescribeConfig struct {
	ModelFileName       string `mapstructure:"filename_model"`
	DescriptionFileName string `mapstructure:"filename_description"`
}

func describe(srcConfig string) error {
	var config DescribeConfig
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
	description, err := describeMachine(machine)
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(description)
	if err != nil {
		return errors.Wrap(err, "encode description")
	}

	if config.DescriptionFileName == "" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	return errors.Wrapf(os.WriteFile(config.DescriptionFileName, raw, 0o644), "write %s", config.DescriptionFileName)
}
