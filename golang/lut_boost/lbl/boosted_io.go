package lbl

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/tarstars/lut_boosting/golang/lut_boost/gstore"
	"go.uber.org/zap"
)

const (
	//FormatVersion is the version attribute written by Save.
	FormatVersion = 2

	versionAttribute   = "version"
	weightsArray       = "Weights"
	machineGroupPrefix = "WeakMachine_"
)

//MachineGroupName is the name of the group holding the weak machine number ind.
func MachineGroupName(ind int) string {
	return fmt.Sprint(machineGroupPrefix, ind)
}

//Save writes the version, the weight matrix and one group per weak machine.
func (b *BoostedMachine) Save(store gstore.Store) error {
	if err := b.checkNotEmpty(); err != nil {
		return err
	}
	if err := store.SetIntAttribute(versionAttribute, FormatVersion); err != nil {
		return err
	}
	if err := store.SetArray(weightsArray, b.Weights()); err != nil {
		return err
	}
	for ind, machine := range b.machines {
		group, err := store.CreateGroup(MachineGroupName(ind))
		if err != nil {
			return err
		}
		if err := machine.Save(group); err != nil {
			return errors.WithMessagef(err, "weak machine %d", ind)
		}
	}
	return nil
}

//Load replaces the content of the receiver with the machine saved in store.
//Weak machines are read from WeakMachine_0 on until the first missing index.
func (b *BoostedMachine) Load(store gstore.Store) error {
	if version, err := store.IntAttribute(versionAttribute); err == nil && version > FormatVersion {
		return errors.Wrapf(ErrCorruptState, "format version %d is newer than %d", version, FormatVersion)
	}

	weights, err := store.Array(weightsArray)
	if err != nil {
		return errors.Wrapf(ErrCorruptState, "weights: %v", err)
	}

	var machines []WeakMachine
	for ind := 0; store.HasGroup(MachineGroupName(ind)); ind++ {
		group, err := store.Group(MachineGroupName(ind))
		if err != nil {
			return err
		}
		machine, err := LoadWeakMachine(group)
		if err != nil {
			return errors.WithMessagef(err, "weak machine %d", ind)
		}
		machines = append(machines, machine)
	}
	if len(machines) == 0 {
		return errors.Wrap(ErrCorruptState, "could not read weak machines")
	}

	h, w := weights.Dims()
	if h != len(machines) {
		return errors.Wrapf(ErrCorruptState, "%d weight rows for %d weak machines", h, len(machines))
	}

	loaded := NewBoostedMachine()
	for ind, machine := range machines {
		if err := loaded.AddWeakMachineWeights(machine, weights.RawRowView(ind)); err != nil {
			return errors.Wrapf(ErrCorruptState, "weak machine %d: %v", ind, err)
		}
	}
	logger.Debug("boosted machine loaded", zap.Int("machines", h), zap.Int("outputs", w))

	*b = *loaded
	return nil
}

//LoadBoostedMachine reads a boosted machine from a store.
func LoadBoostedMachine(store gstore.Store) (*BoostedMachine, error) {
	machine := NewBoostedMachine()
	if err := machine.Load(store); err != nil {
		return nil, err
	}
	return machine, nil
}

//SaveFile saves the machine into a directory store at path.
func (b *BoostedMachine) SaveFile(path string) error {
	store, err := gstore.Create(path)
	if err != nil {
		return err
	}
	return b.Save(store)
}

//LoadBoostedMachineFile reads a machine saved with SaveFile.
func LoadBoostedMachineFile(path string) (*BoostedMachine, error) {
	store, err := gstore.Open(path)
	if err != nil {
		return nil, err
	}
	return LoadBoostedMachine(store)
}
