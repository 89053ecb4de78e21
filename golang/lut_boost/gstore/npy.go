package gstore

import (
	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
	"io"
	"os"
	"strings"
)

//NpyArray is a decoded npy array converted to float64.
type NpyArray struct {
	Shape   []int
	Fortran bool
	Data    []float64
}

//ReadNpy decodes an npy stream of any numeric element type.
func ReadNpy(src io.Reader) (NpyArray, error) {
	r, err := npyio.NewReader(src)
	if err != nil {
		return NpyArray{}, errors.Wrap(err, "gstore: npy header")
	}

	descr := r.Header.Descr
	data, err := readCast(r, strings.TrimLeft(descr.Type, "<>|="))
	if err != nil {
		return NpyArray{}, errors.Wrapf(err, "gstore: npy type %s", descr.Type)
	}
	return NpyArray{Shape: descr.Shape, Fortran: descr.Fortran, Data: data}, nil
}

func readCast(r *npyio.Reader, kind string) ([]float64, error) {
	switch kind {
	case "f8":
		var v []float64
		err := r.Read(&v)
		return v, err
	case "f4":
		var v []float32
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "i8":
		var v []int64
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "i4":
		var v []int32
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "i2":
		var v []int16
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "i1":
		var v []int8
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "u8":
		var v []uint64
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "u4":
		var v []uint32
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "u2":
		var v []uint16
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "u1":
		var v []uint8
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return castSlice(v), nil
	case "b1":
		var v []bool
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		result := make([]float64, len(v))
		for ind, val := range v {
			if val {
				result[ind] = 1
			}
		}
		return result, nil
	}
	return nil, ErrUnsupportedType
}

type number interface {
	~float32 | ~int64 | ~int32 | ~int16 | ~int8 | ~uint64 | ~uint32 | ~uint16 | ~uint8
}

func castSlice[T number](values []T) []float64 {
	result := make([]float64, len(values))
	for ind, val := range values {
		result[ind] = float64(val)
	}
	return result
}

//ReadNpyFile reads a one or two dimensional npy file of any numeric type into a matrix.
func ReadNpyFile(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "gstore: open %s", fileName)
	}
	defer f.Close()

	arr, err := ReadNpy(f)
	if err != nil {
		return nil, errors.Wrapf(err, "gstore: read %s", fileName)
	}
	return denseFromFlat(fileName, arr.Shape, arr.Fortran, arr.Data)
}

//WriteNpyFile writes a matrix as a float64 npy file.
func WriteNpyFile(fileName string, value mat.Matrix) (err error) {
	dst, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "gstore: create %s", fileName)
	}
	defer func() {
		if closeErr := dst.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "gstore: close %s", fileName)
		}
	}()

	if err = npyio.Write(dst, mat.DenseCopyOf(value)); err != nil {
		return errors.Wrapf(err, "gstore: write %s", fileName)
	}
	return nil
}

//WriteIntNpyFile writes an integer vector as an int64 npy file.
func WriteIntNpyFile(fileName string, value []int) (err error) {
	dst, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "gstore: create %s", fileName)
	}
	defer func() {
		if closeErr := dst.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "gstore: close %s", fileName)
		}
	}()

	wide := make([]int64, len(value))
	for ind, val := range value {
		wide[ind] = int64(val)
	}
	if err = npyio.Write(dst, wide); err != nil {
		return errors.Wrapf(err, "gstore: write %s", fileName)
	}
	return nil
}
