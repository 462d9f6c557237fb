package opencv

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"turmoric/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImageReordersBGR(t *testing.T) {
	// Pixel (0,0) is pure red, (0,1) pure green, stored BGR.
	bgr := []byte{
		0, 0, 200, 0, 150, 0,
		10, 20, 30, 40, 50, 60,
	}
	m, err := gocv.NewMatFromBytes(2, 2, gocv.MatTypeCV8UC3, bgr)
	require.NoError(t, err)
	defer m.Close()

	path := filepath.Join(t.TempDir(), "rgb.tif")
	require.True(t, gocv.IMWrite(path, m))

	img, err := ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Channels)
	assert.True(t, img.Integer)

	assert.Equal(t, 200.0, img.At(0, 0, 0), "red")
	assert.Equal(t, 0.0, img.At(0, 0, 2))
	assert.Equal(t, 150.0, img.At(0, 1, 1), "channel 1 is green")
	assert.Equal(t, []float64{30, 20, 10}, img.Pix[6:9])
}

// grayStack encodes equally sized 8-bit pages as an uncompressed multi-page
// TIFF: each page's strip is followed by its IFD.
func grayStack(t *testing.T, width, height int, pages ...[]byte) []byte {
	t.Helper()
	const entries = 9
	const ifdSize = 2 + entries*12 + 4

	even := func(n int) int { return n + n%2 }
	dataOff := make([]int, len(pages))
	ifdOff := make([]int, len(pages))
	offset := 8
	for i, page := range pages {
		require.Len(t, page, width*height)
		dataOff[i] = offset
		offset += even(len(page))
		ifdOff[i] = offset
		offset += ifdSize
	}

	var buf bytes.Buffer
	write := func(v interface{}) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }
	entry := func(tag, typ uint16, value int) {
		write(tag)
		write(typ)
		write(uint32(1))
		if typ == 3 {
			write(uint16(value))
			write(uint16(0))
			return
		}
		write(uint32(value))
	}

	buf.WriteString("II")
	write(uint16(42))
	write(uint32(ifdOff[0]))

	for i, page := range pages {
		buf.Write(page)
		if len(page)%2 == 1 {
			buf.WriteByte(0)
		}

		write(uint16(entries))
		entry(256, 3, width)
		entry(257, 3, height)
		entry(258, 3, 8)
		entry(259, 3, 1)
		entry(262, 3, 1)
		entry(273, 4, dataOff[i])
		entry(277, 3, 1)
		entry(278, 3, height)
		entry(279, 4, width*height)

		next := 0
		if i+1 < len(pages) {
			next = ifdOff[i+1]
		}
		write(uint32(next))
	}
	require.Equal(t, offset, buf.Len())
	return buf.Bytes()
}

func TestReadImageStacksPagesAsChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.tif")
	require.NoError(t, os.WriteFile(path, grayStack(t, 2, 2,
		[]byte{1, 2, 3, 4},
		[]byte{100, 110, 120, 130},
	), 0o644))

	img, err := ReadImage(path)
	require.NoError(t, err)
	require.Equal(t, 2, img.Channels)
	assert.Equal(t, 1.0, img.At(0, 0, 0))
	assert.Equal(t, 100.0, img.At(0, 0, 1))
	assert.Equal(t, 4.0, img.At(1, 1, 0))
	assert.Equal(t, 130.0, img.At(1, 1, 1))
}

func TestReadImageMissingFile(t *testing.T) {
	_, err := ReadImage(filepath.Join(t.TempDir(), "missing.tif"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestConnectedComponentsRasterOrderAndSizes(t *testing.T) {
	m := raster.NewMask(6, 6)
	m.Fill(4, 6, 0, 3, true) // 6 px, starts on row 4
	m.Fill(0, 2, 4, 6, true) // 4 px, starts on row 0
	m.Set(2, 0, true)        // 1 px, row 2

	labels, sizes, err := ConnectedComponents(m, 8)
	require.NoError(t, err)
	require.Equal(t, 3, labels.Count)
	assert.Equal(t, int32(1), labels.At(0, 4))
	assert.Equal(t, int32(2), labels.At(2, 0))
	assert.Equal(t, int32(3), labels.At(5, 2))
	assert.Equal(t, []int{25, 4, 1, 6}, sizes)
}

func TestConnectedComponentsRejectsConnectivity(t *testing.T) {
	_, _, err := ConnectedComponents(raster.NewMask(2, 2), 6)
	assert.Error(t, err)
}

func TestRemoveSmallObjectsKeepsExactSize(t *testing.T) {
	m := raster.NewMask(5, 5)
	m.Fill(0, 2, 0, 2, true)
	m.Set(4, 4, true)

	out, err := RemoveSmallObjects(m, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Count())
	assert.False(t, out.At(4, 4))
}
