package lbl

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"math"
)

//Error is the type of the sentinel errors of the package. Classify returned errors with errors.Is.
type Error struct{ string }

func (e Error) Error() string { return e.string }

var (
	//ErrUnsupportedOperation means a machine was asked for an input or output shape it does not implement.
	ErrUnsupportedOperation = Error{"unsupported operation"}
	//ErrIndexOutOfRange means a feature value or an index is outside of a table, a histogram or a feature vector.
	ErrIndexOutOfRange = Error{"index out of range"}
	//ErrFeatureCountMismatch means parallel batches or weight rows disagree in size.
	ErrFeatureCountMismatch = Error{"feature count mismatch"}
	//ErrDuplicateRegistration means a type tag or a loss name was registered twice.
	ErrDuplicateRegistration = Error{"duplicate registration"}
	//ErrUnknownMachineType means a persisted machine carries a type tag nobody registered.
	ErrUnknownMachineType = Error{"unknown machine type"}
	//ErrCorruptState means persisted data can't be turned into a valid machine.
	ErrCorruptState = Error{"corrupt state"}
)

var logger = zap.NewNop()

//SetLogger replaces the package logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

//binIndex converts a discrete feature value into a table row.
func binIndex(value float64, size int) (int, error) {
	if value < 0 || value >= float64(size) || value != math.Trunc(value) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "feature value %v is not a bin of a table with %d entries", value, size)
	}
	return int(value), nil
}

func checkFeatureIndex(index, length int) error {
	if index < 0 || index >= length {
		return errors.Wrapf(ErrIndexOutOfRange, "feature index %d for a feature vector of length %d", index, length)
	}
	return nil
}
