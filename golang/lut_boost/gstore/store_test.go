package gstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"os"
	"path/filepath"
	"testing"
)

//writeLegacyNpy writes an npy version 1.0 file with an arbitrary descriptor.
func writeLegacyNpy(t *testing.T, fileName, descr, shape string, payload interface{}) {
	t.Helper()
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shape)
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, payload))
	require.NoError(t, os.WriteFile(fileName, buf.Bytes(), 0o644))
}

func exerciseStore(t *testing.T, store Store) {
	require.NoError(t, store.SetIntAttribute("version", 2))
	require.NoError(t, store.SetAttribute("MachineType", "StumpMachine"))
	require.NoError(t, store.SetFloat("Threshold", 0.1+0.2))
	require.NoError(t, store.SetInt("Index", 7))
	require.NoError(t, store.SetArray("Weights", mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})))
	require.NoError(t, store.SetIntArray("Indices", []int{3, 5, 3}))

	group, err := store.CreateGroup("WeakMachine_0")
	require.NoError(t, err)
	require.NoError(t, group.SetFloat("Polarity", -1))

	version, err := store.IntAttribute("version")
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	machineType, err := store.Attribute("MachineType")
	require.NoError(t, err)
	assert.Equal(t, "StumpMachine", machineType)

	threshold, err := store.Float("Threshold")
	require.NoError(t, err)
	assert.Equal(t, 0.1+0.2, threshold)

	index, err := store.Int("Index")
	require.NoError(t, err)
	assert.Equal(t, 7, index)

	weights, err := store.Array("Weights")
	require.NoError(t, err)
	assert.True(t, mat.Equal(weights, mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})))

	indices, err := store.IntArray("Indices")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 3}, indices)

	assert.True(t, store.HasArray("Weights"))
	assert.False(t, store.HasArray("LUT"))
	assert.True(t, store.HasGroup("WeakMachine_0"))
	assert.False(t, store.HasGroup("WeakMachine_1"))
	assert.Equal(t, []string{"WeakMachine_0"}, store.Groups())

	_, err = store.Attribute("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.Array("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.Group("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.CreateGroup("../escape")
	assert.True(t, errors.Is(err, ErrInvalidName))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestDirStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "model")
	store, err := Create(root)
	require.NoError(t, err)
	exerciseStore(t, store)

	reopened, err := Open(root)
	require.NoError(t, err)
	group, err := reopened.Group("WeakMachine_0")
	require.NoError(t, err)
	polarity, err := group.Float("Polarity")
	require.NoError(t, err)
	assert.Equal(t, -1.0, polarity)

	threshold, err := reopened.Float("Threshold")
	require.NoError(t, err)
	assert.Equal(t, 0.1+0.2, threshold)
}

func TestDirCreateReplacesStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "model")
	store, err := Create(root)
	require.NoError(t, err)
	_, err = store.CreateGroup("WeakMachine_5")
	require.NoError(t, err)

	store, err = Create(root)
	require.NoError(t, err)
	assert.Empty(t, store.Groups())
}

func TestDirCreateRefusesForeignDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("keep"), 0o644))

	_, err := Create(root)
	require.Error(t, err)
	_, err = os.Stat(filepath.Join(root, "notes.txt"))
	assert.NoError(t, err)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLegacyIntegerArrays(t *testing.T) {
	root := filepath.Join(t.TempDir(), "legacy")
	store, err := Create(root)
	require.NoError(t, err)

	writeLegacyNpy(t, filepath.Join(root, "LUT.npy"), "<i4", "(3, 2)", []int32{1, -1, -1, 1, 1, 1})
	writeLegacyNpy(t, filepath.Join(root, "Indices.npy"), "<u2", "(2,)", []uint16{4, 9})

	lut, err := store.Array("LUT")
	require.NoError(t, err)
	assert.True(t, mat.Equal(lut, mat.NewDense(3, 2, []float64{1, -1, -1, 1, 1, 1})))

	indices, err := store.IntArray("Indices")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 9}, indices)
}

func TestNpyFileRoundTrip(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "scores.npy")
	scores := mat.NewDense(3, 1, []float64{0.5, -1.25, 3})
	require.NoError(t, WriteNpyFile(fileName, scores))

	loaded, err := ReadNpyFile(fileName)
	require.NoError(t, err)
	assert.True(t, mat.Equal(scores, loaded))
}
