package lbl

import (
	"github.com/pkg/errors"
	"github.com/tarstars/lut_boosting/golang/lut_boost/gstore"
	"gonum.org/v1/gonum/mat"
	"sort"
	"sync"
)

//MachineTypeAttribute is the name of the attribute that carries the type tag of a saved weak machine.
const MachineTypeAttribute = "MachineType"

//WeakMachine is a weak predictor of a boosted machine.
//
//Discrete features are small non-negative integers: a single vector is a []uint16, a batch is an
//N×D matrix with integral entries. Real features are []float64 or an N×D matrix.
//Predictions are written into caller supplied buffers of N×K values, K being NumberOfOutputs.
//A machine that does not implement a shape returns ErrUnsupportedOperation.
//Implementations keep no scratch state, so a machine can be used from many goroutines at once.
type WeakMachine interface {
	//TypeString is the tag saved next to the machine and used to find its constructor on load.
	TypeString() string
	NumberOfOutputs() int

	Forward(features []uint16) (float64, error)
	ForwardReal(features []float64) (float64, error)
	ForwardVector(features []uint16, predictions []float64) error
	Predict(features mat.Matrix, predictions *mat.Dense) error
	PredictReal(features mat.Matrix, predictions *mat.Dense) error

	//FeatureIndices returns the sorted set of feature indices the machine reads.
	FeatureIndices() []int

	Save(store gstore.Store) error
	Load(store gstore.Store) error
}

//MachineFactory creates an empty machine that is filled by Load.
type MachineFactory func() WeakMachine

var (
	registryMutex    sync.RWMutex
	machineFactories = map[string]MachineFactory{}
)

//RegisterMachineType makes a machine type loadable. A tag can be registered once.
func RegisterMachineType(tag string, factory MachineFactory) error {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, ok := machineFactories[tag]; ok {
		return errors.Wrapf(ErrDuplicateRegistration, "machine type %q", tag)
	}
	machineFactories[tag] = factory
	return nil
}

//MachineTypes lists registered tags in lexical order.
func MachineTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	tags := make([]string, 0, len(machineFactories))
	for tag := range machineFactories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

//NewWeakMachine creates an empty machine of a registered type.
func NewWeakMachine(tag string) (WeakMachine, error) {
	registryMutex.RLock()
	factory, ok := machineFactories[tag]
	registryMutex.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownMachineType, "%q", tag)
	}
	return factory(), nil
}

//LoadWeakMachine reads a machine of any registered type from a group.
func LoadWeakMachine(store gstore.Store) (WeakMachine, error) {
	tag, err := store.Attribute(MachineTypeAttribute)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptState, "weak machine without type tag: %v", err)
	}

	machine, err := NewWeakMachine(tag)
	if err != nil {
		return nil, err
	}
	if err := machine.Load(store); err != nil {
		return nil, err
	}
	return machine, nil
}

//checkPredictionShape validates a batch against a prediction buffer of outputs columns.
func checkPredictionShape(features mat.Matrix, predictions *mat.Dense, outputs int) error {
	h, _ := features.Dims()
	predictionH, predictionW := predictions.Dims()
	if predictionH != h {
		return errors.Wrapf(ErrFeatureCountMismatch, "%d feature rows, %d prediction rows", h, predictionH)
	}
	if predictionW != outputs {
		return errors.Wrapf(ErrUnsupportedOperation, "%d prediction columns for a machine with %d outputs", predictionW, outputs)
	}
	return nil
}
