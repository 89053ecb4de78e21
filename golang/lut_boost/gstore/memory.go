package gstore

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"sort"
)

type memoryArray struct {
	shape []int
	data  []float64
}

//Memory is a Store that lives in memory only.
type Memory struct {
	meta   groupMeta
	arrays map[string]memoryArray
	groups map[string]*Memory
}

//NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{meta: newGroupMeta(), arrays: map[string]memoryArray{}, groups: map[string]*Memory{}}
}

func (m *Memory) SetAttribute(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.meta.Attributes[name] = value
	return nil
}

func (m *Memory) Attribute(name string) (string, error) {
	return lookup(m.meta.Attributes, "attribute", name)
}

func (m *Memory) SetIntAttribute(name string, value int) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.meta.IntAttributes[name] = value
	return nil
}

func (m *Memory) IntAttribute(name string) (int, error) {
	return lookup(m.meta.IntAttributes, "attribute", name)
}

func (m *Memory) SetFloat(name string, value float64) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.meta.Floats[name] = value
	return nil
}

func (m *Memory) Float(name string) (float64, error) {
	if v, ok := m.meta.Floats[name]; ok {
		return v, nil
	}
	if v, ok := m.meta.Ints[name]; ok {
		return float64(v), nil
	}
	return 0, errors.Wrapf(ErrNotFound, "scalar %q", name)
}

func (m *Memory) SetInt(name string, value int) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.meta.Ints[name] = value
	return nil
}

func (m *Memory) Int(name string) (int, error) {
	if v, ok := m.meta.Ints[name]; ok {
		return v, nil
	}
	if v, ok := m.meta.Floats[name]; ok {
		return int(v), nil
	}
	return 0, errors.Wrapf(ErrNotFound, "scalar %q", name)
}

func (m *Memory) SetArray(name string, value mat.Matrix) error {
	if err := validateName(name); err != nil {
		return err
	}
	h, w := value.Dims()
	data := make([]float64, 0, h*w)
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			data = append(data, value.At(p, q))
		}
	}
	m.arrays[name] = memoryArray{shape: []int{h, w}, data: data}
	return nil
}

func (m *Memory) Array(name string) (*mat.Dense, error) {
	arr, err := lookup(m.arrays, "array", name)
	if err != nil {
		return nil, err
	}
	return denseFromFlat(name, arr.shape, false, append([]float64(nil), arr.data...))
}

func (m *Memory) SetIntArray(name string, value []int) error {
	if err := validateName(name); err != nil {
		return err
	}
	data := make([]float64, len(value))
	for ind, val := range value {
		data[ind] = float64(val)
	}
	m.arrays[name] = memoryArray{shape: []int{len(value)}, data: data}
	return nil
}

func (m *Memory) IntArray(name string) ([]int, error) {
	arr, err := lookup(m.arrays, "array", name)
	if err != nil {
		return nil, err
	}
	if len(arr.shape) > 1 && arr.shape[1] != 1 {
		return nil, errors.Errorf("gstore: array %q has shape %v, expected a vector", name, arr.shape)
	}
	return intsFromFlat(arr.data), nil
}

func (m *Memory) HasArray(name string) bool {
	_, ok := m.arrays[name]
	return ok
}

func (m *Memory) CreateGroup(name string) (Store, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	group := NewMemory()
	m.groups[name] = group
	return group, nil
}

func (m *Memory) Group(name string) (Store, error) {
	group, err := lookup(m.groups, "group", name)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (m *Memory) HasGroup(name string) bool {
	_, ok := m.groups[name]
	return ok
}

func (m *Memory) Groups() []string {
	names := make([]string, 0, len(m.groups))
	for name := range m.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
