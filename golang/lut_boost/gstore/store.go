package gstore

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"strings"
)

//Store is a hierarchical container of named scalars, numeric arrays, attributes and subgroups.
//A group is entered with Group or CreateGroup; the parent stays usable, so returning to it is
//just a matter of keeping the parent value.
type Store interface {
	SetAttribute(name, value string) error
	Attribute(name string) (string, error)
	SetIntAttribute(name string, value int) error
	IntAttribute(name string) (int, error)

	SetFloat(name string, value float64) error
	Float(name string) (float64, error)
	SetInt(name string, value int) error
	Int(name string) (int, error)

	//SetArray stores a real matrix. Array reads any numeric array back as float64, whatever
	//element type it was written with.
	SetArray(name string, value mat.Matrix) error
	Array(name string) (*mat.Dense, error)
	//SetIntArray stores an integer vector. IntArray casts any numeric vector to int.
	SetIntArray(name string, value []int) error
	IntArray(name string) ([]int, error)
	HasArray(name string) bool

	CreateGroup(name string) (Store, error)
	Group(name string) (Store, error)
	HasGroup(name string) bool
	Groups() []string
}

var (
	//ErrNotFound is returned when a requested name is absent from a group.
	ErrNotFound = errors.New("gstore: not found")
	//ErrInvalidName is returned for names that can't be used as a group member.
	ErrInvalidName = errors.New("gstore: invalid name")
	//ErrUnsupportedType is returned when an array holds a non numeric element type.
	ErrUnsupportedType = errors.New("gstore: unsupported element type")
)

var logger = zap.NewNop()

//SetLogger replaces the package logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

//groupMeta is everything of a group that is not an array or a subgroup.
type groupMeta struct {
	Attributes    map[string]string  `yaml:"attributes,omitempty"`
	IntAttributes map[string]int     `yaml:"int_attributes,omitempty"`
	Floats        map[string]float64 `yaml:"floats,omitempty"`
	Ints          map[string]int     `yaml:"ints,omitempty"`
}

func newGroupMeta() groupMeta {
	return groupMeta{
		Attributes:    map[string]string{},
		IntAttributes: map[string]int{},
		Floats:        map[string]float64{},
		Ints:          map[string]int{},
	}
}

//fill makes maps decoded from an empty document usable.
func (m *groupMeta) fill() {
	if m.Attributes == nil {
		m.Attributes = map[string]string{}
	}
	if m.IntAttributes == nil {
		m.IntAttributes = map[string]int{}
	}
	if m.Floats == nil {
		m.Floats = map[string]float64{}
	}
	if m.Ints == nil {
		m.Ints = map[string]int{}
	}
}

func lookup[V any](values map[string]V, kind, name string) (V, error) {
	v, ok := values[name]
	if !ok {
		return v, errors.Wrapf(ErrNotFound, "%s %q", kind, name)
	}
	return v, nil
}

//denseFromFlat builds a matrix out of row major (or column major when fortran is set) data.
func denseFromFlat(name string, shape []int, fortran bool, data []float64) (*mat.Dense, error) {
	var rows, cols int
	switch len(shape) {
	case 1:
		rows, cols = shape[0], 1
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, errors.Errorf("gstore: array %q has %d dimensions, expected 1 or 2", name, len(shape))
	}
	if rows == 0 || cols == 0 {
		return nil, errors.Errorf("gstore: array %q has an empty shape %v", name, shape)
	}
	if len(data) != rows*cols {
		return nil, errors.Errorf("gstore: array %q holds %d values for shape %v", name, len(data), shape)
	}
	if !fortran || cols == 1 {
		return mat.NewDense(rows, cols, data), nil
	}
	rowMajor := make([]float64, len(data))
	for p := 0; p < rows; p++ {
		for q := 0; q < cols; q++ {
			rowMajor[p*cols+q] = data[q*rows+p]
		}
	}
	return mat.NewDense(rows, cols, rowMajor), nil
}

func intsFromFlat(data []float64) []int {
	result := make([]int, len(data))
	for ind, val := range data {
		result[ind] = int(val)
	}
	return result
}
