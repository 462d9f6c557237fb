package raster

// Mask is a 2-D boolean foreground map.
type Mask struct {
	Height int
	Width  int
	Bits   []bool
}

func NewMask(height, width int) *Mask {
	return &Mask{Height: height, Width: width, Bits: make([]bool, height*width)}
}

func (m *Mask) At(row, col int) bool {
	return m.Bits[row*m.Width+col]
}

func (m *Mask) Set(row, col int, v bool) {
	m.Bits[row*m.Width+col] = v
}

// Fill sets every pixel in rows [r0, r1) and columns [c0, c1).
func (m *Mask) Fill(r0, r1, c0, c1 int, v bool) {
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			m.Set(r, c, v)
		}
	}
}

func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

func (m *Mask) Clone() *Mask {
	out := &Mask{Height: m.Height, Width: m.Width, Bits: make([]bool, len(m.Bits))}
	copy(out.Bits, m.Bits)
	return out
}

func (m *Mask) Equal(other *Mask) bool {
	if other == nil || m.Height != other.Height || m.Width != other.Width {
		return false
	}
	for i, b := range m.Bits {
		if other.Bits[i] != b {
			return false
		}
	}
	return true
}

// Labels is a connected-component labeling: 0 is background, 1..Count are
// regions numbered in raster order of their first pixel.
type Labels struct {
	Height int
	Width  int
	Count  int
	Data   []int32
}

func (l *Labels) At(row, col int) int32 {
	return l.Data[row*l.Width+col]
}
