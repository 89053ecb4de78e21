package gstore

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	metaFileName = "group.yaml"
	arraySuffix  = ".npy"
)

//Dir is a Store kept in a directory tree: every group is a directory with a group.yaml file
//for scalars and attributes, every array is an npy file, every subgroup is a subdirectory.
type Dir struct {
	path string
	meta groupMeta
}

//Create makes a new empty store at path. An existing store at the same path is replaced,
//any other non empty directory is refused.
func Create(path string) (*Dir, error) {
	if entries, err := os.ReadDir(path); err == nil && len(entries) > 0 {
		if _, statErr := os.Stat(filepath.Join(path, metaFileName)); statErr != nil {
			return nil, errors.Errorf("gstore: %s is a non empty directory without %s", path, metaFileName)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, errors.Wrapf(err, "gstore: clear %s", path)
		}
	}
	return createGroupDir(path)
}

func createGroupDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "gstore: create %s", path)
	}
	d := &Dir{path: path, meta: newGroupMeta()}
	if err := d.flush(); err != nil {
		return nil, err
	}
	logger.Debug("group created", zap.String("path", path))
	return d, nil
}

//Open opens an existing store at path.
func Open(path string) (*Dir, error) {
	raw, err := os.ReadFile(filepath.Join(path, metaFileName))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "group %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "gstore: open %s", path)
	}

	d := &Dir{path: path}
	if err := yaml.Unmarshal(raw, &d.meta); err != nil {
		return nil, errors.Wrapf(err, "gstore: decode %s", filepath.Join(path, metaFileName))
	}
	d.meta.fill()
	return d, nil
}

//Path returns the directory of the group.
func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) flush() error {
	raw, err := yaml.Marshal(&d.meta)
	if err != nil {
		return errors.Wrap(err, "gstore: encode group metadata")
	}
	if err := os.WriteFile(filepath.Join(d.path, metaFileName), raw, 0o644); err != nil {
		return errors.Wrapf(err, "gstore: write metadata of %s", d.path)
	}
	return nil
}

func (d *Dir) SetAttribute(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	d.meta.Attributes[name] = value
	return d.flush()
}

func (d *Dir) Attribute(name string) (string, error) {
	return lookup(d.meta.Attributes, "attribute", name)
}

func (d *Dir) SetIntAttribute(name string, value int) error {
	if err := validateName(name); err != nil {
		return err
	}
	d.meta.IntAttributes[name] = value
	return d.flush()
}

func (d *Dir) IntAttribute(name string) (int, error) {
	return lookup(d.meta.IntAttributes, "attribute", name)
}

func (d *Dir) SetFloat(name string, value float64) error {
	if err := validateName(name); err != nil {
		return err
	}
	d.meta.Floats[name] = value
	return d.flush()
}

func (d *Dir) Float(name string) (float64, error) {
	if v, ok := d.meta.Floats[name]; ok {
		return v, nil
	}
	if v, ok := d.meta.Ints[name]; ok {
		return float64(v), nil
	}
	return 0, errors.Wrapf(ErrNotFound, "scalar %q", name)
}

func (d *Dir) SetInt(name string, value int) error {
	if err := validateName(name); err != nil {
		return err
	}
	d.meta.Ints[name] = value
	return d.flush()
}

func (d *Dir) Int(name string) (int, error) {
	if v, ok := d.meta.Ints[name]; ok {
		return v, nil
	}
	if v, ok := d.meta.Floats[name]; ok {
		return int(v), nil
	}
	return 0, errors.Wrapf(ErrNotFound, "scalar %q", name)
}

func (d *Dir) arrayPath(name string) string {
	return filepath.Join(d.path, name+arraySuffix)
}

func (d *Dir) SetArray(name string, value mat.Matrix) error {
	if err := validateName(name); err != nil {
		return err
	}
	return WriteNpyFile(d.arrayPath(name), value)
}

func (d *Dir) readArray(name string) (NpyArray, error) {
	f, err := os.Open(d.arrayPath(name))
	if os.IsNotExist(err) {
		return NpyArray{}, errors.Wrapf(ErrNotFound, "array %q in %s", name, d.path)
	}
	if err != nil {
		return NpyArray{}, errors.Wrapf(err, "gstore: open array %q", name)
	}
	defer f.Close()

	arr, err := ReadNpy(f)
	if err != nil {
		return NpyArray{}, errors.Wrapf(err, "gstore: array %q in %s", name, d.path)
	}
	logger.Debug("array read", zap.String("group", d.path), zap.String("name", name), zap.Ints("shape", arr.Shape))
	return arr, nil
}

func (d *Dir) Array(name string) (*mat.Dense, error) {
	arr, err := d.readArray(name)
	if err != nil {
		return nil, err
	}
	return denseFromFlat(name, arr.Shape, arr.Fortran, arr.Data)
}

func (d *Dir) SetIntArray(name string, value []int) error {
	if err := validateName(name); err != nil {
		return err
	}
	return WriteIntNpyFile(d.arrayPath(name), value)
}

func (d *Dir) IntArray(name string) ([]int, error) {
	arr, err := d.readArray(name)
	if err != nil {
		return nil, err
	}
	if len(arr.Shape) > 1 && arr.Shape[1] != 1 {
		return nil, errors.Errorf("gstore: array %q has shape %v, expected a vector", name, arr.Shape)
	}
	return intsFromFlat(arr.Data), nil
}

func (d *Dir) HasArray(name string) bool {
	info, err := os.Stat(d.arrayPath(name))
	return err == nil && !info.IsDir()
}

func (d *Dir) CreateGroup(name string) (Store, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	groupPath := filepath.Join(d.path, name)
	if err := os.RemoveAll(groupPath); err != nil {
		return nil, errors.Wrapf(err, "gstore: clear group %s", groupPath)
	}
	group, err := createGroupDir(groupPath)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (d *Dir) Group(name string) (Store, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	group, err := Open(filepath.Join(d.path, name))
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (d *Dir) HasGroup(name string) bool {
	if validateName(name) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(d.path, name, metaFileName))
	return err == nil && !info.IsDir()
}

//Groups lists subgroups in lexical order.
func (d *Dir) Groups() []string {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") && d.HasGroup(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
