// Package npy persists masks and reads numeric arrays in the NumPy .npy
// format so artifacts stay interchangeable with the Python tooling.
package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"

	"turmoric/internal/raster"
)

var ErrUnsupportedDtype = errors.New("unsupported npy dtype")

var magic = []byte("\x93NUMPY")

// WriteMask encodes m as a version 1.0 .npy array of dtype |b1 and shape (H, W).
func WriteMask(w io.Writer, m *raster.Mask) error {
	dict := fmt.Sprintf("{'descr': '|b1', 'fortran_order': False, 'shape': (%d, %d), }", m.Height, m.Width)

	// magic(6) + version(2) + header length(2) + dict + '\n', padded to 64 bytes.
	pad := 64 - (len(magic)+4+len(dict)+1)%64
	if pad == 64 {
		pad = 0
	}
	header := dict + strings.Repeat(" ", pad) + "\n"
	if len(header) > 0xffff {
		return fmt.Errorf("npy header too long: %d bytes", len(header))
	}

	var buf bytes.Buffer
	buf.Write(magic)
	buf.Write([]byte{1, 0})
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	buf.WriteString(header)

	body := make([]byte, len(m.Bits))
	for i, b := range m.Bits {
		if b {
			body[i] = 1
		}
	}
	buf.Write(body)

	_, err := w.Write(buf.Bytes())
	return err
}

// SaveMask writes m to path, creating or truncating the file.
func SaveMask(path string, m *raster.Mask) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mask file: %w", err)
	}

	if err := WriteMask(f, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to write mask %s: %w", path, err)
	}
	return f.Close()
}

// ReadMask decodes a 2-D array of any supported dtype; nonzero is foreground.
func ReadMask(r io.Reader) (*raster.Mask, error) {
	arr, err := readArray(r)
	if err != nil {
		return nil, err
	}
	if len(arr.shape) != 2 {
		return nil, fmt.Errorf("%w: mask must be 2-D, got shape %v", raster.ErrDimensionality, arr.shape)
	}

	m := raster.NewMask(arr.shape[0], arr.shape[1])
	for i, v := range arr.values {
		m.Bits[i] = v != 0
	}
	return m, nil
}

func LoadMask(path string) (*raster.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadMask(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to load mask %s: %w", path, err)
	}
	return m, nil
}

// ReadImage decodes a 2-D (H, W) or 3-D (H, W, C) numeric array.
func ReadImage(r io.Reader) (*raster.Image, error) {
	arr, err := readArray(r)
	if err != nil {
		return nil, err
	}

	var img *raster.Image
	switch len(arr.shape) {
	case 2:
		img = raster.NewImage(arr.shape[0], arr.shape[1], 1, arr.integer)
	case 3:
		img = raster.NewImage(arr.shape[0], arr.shape[1], arr.shape[2], arr.integer)
	default:
		return nil, fmt.Errorf("%w: image must be 2-D or 3-D, got shape %v", raster.ErrDimensionality, arr.shape)
	}
	copy(img.Pix, arr.values)
	return img, nil
}

func LoadImage(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := ReadImage(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to load array %s: %w", path, err)
	}
	return img, nil
}

// array is a decoded .npy payload flattened to float64 in C order.
type array struct {
	shape   []int
	values  []float64
	integer bool
}

func readArray(r io.Reader) (*array, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid npy header: %w", err)
	}

	shape := append([]int(nil), rd.Header.Descr.Shape...)
	values, integer, err := decodeValues(rd, dtypeCode(rd.Header.Descr.Type))
	if err != nil {
		return nil, err
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(values) {
		return nil, fmt.Errorf("npy payload has %d elements, shape %v needs %d", len(values), shape, n)
	}

	if rd.Header.Descr.Fortran && len(shape) > 1 {
		values = fortranToC(values, shape)
	}
	return &array{shape: shape, values: values, integer: integer}, nil
}

// dtypeCode strips the byte-order character: "<f8" -> "f8", "|b1" -> "b1".
func dtypeCode(descr string) string {
	if descr != "" && strings.ContainsRune("<>|=", rune(descr[0])) {
		return descr[1:]
	}
	return descr
}

func decodeValues(rd *npyio.Reader, code string) ([]float64, bool, error) {
	switch code {
	case "b1":
		var v []bool
		if err := rd.Read(&v); err != nil {
			return nil, false, err
		}
		out := make([]float64, len(v))
		for i, b := range v {
			if b {
				out[i] = 1
			}
		}
		return out, true, nil
	case "u1":
		var v []uint8
		return widen(rd, &v, true)
	case "i1":
		var v []int8
		return widen(rd, &v, true)
	case "u2":
		var v []uint16
		return widen(rd, &v, true)
	case "i2":
		var v []int16
		return widen(rd, &v, true)
	case "u4":
		var v []uint32
		return widen(rd, &v, true)
	case "i4":
		var v []int32
		return widen(rd, &v, true)
	case "u8":
		var v []uint64
		return widen(rd, &v, true)
	case "i8":
		var v []int64
		return widen(rd, &v, true)
	case "f4":
		var v []float32
		return widen(rd, &v, false)
	case "f8":
		var v []float64
		if err := rd.Read(&v); err != nil {
			return nil, false, err
		}
		return v, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnsupportedDtype, code)
	}
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32
}

func widen[T number](rd *npyio.Reader, ptr *[]T, integer bool) ([]float64, bool, error) {
	if err := rd.Read(ptr); err != nil {
		return nil, false, err
	}
	out := make([]float64, len(*ptr))
	for i, v := range *ptr {
		out[i] = float64(v)
	}
	return out, integer, nil
}

func fortranToC(values []float64, shape []int) []float64 {
	out := make([]float64, len(values))
	idx := make([]int, len(shape))
	for f := range values {
		// f is the column-major offset; walk idx in column-major order.
		c := 0
		for d := 0; d < len(shape); d++ {
			c = c*shape[d] + idx[d]
		}
		out[c] = values[f]
		for d := 0; d < len(shape); d++ {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return out
}
