package gammaimg

import (
	"errors"
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
)

// SkyMap is a histogram over the bins of a FISBEL binning.
type SkyMap struct {
	binner  *FISBEL
	Content []Real
}

// NewSkyMap allocates an empty map over binner.
func NewSkyMap(binner *FISBEL) (*SkyMap, error) {
	if binner == nil {
		return nil, errors.New("binner must be non-nil")
	}
	return &SkyMap{binner: binner, Content: make([]Real, binner.NumberOfBins())}, nil
}

func (m *SkyMap) Binner() *FISBEL { return m.binner }

// Fill adds w to the bin containing (theta, phi).
func (m *SkyMap) Fill(theta, phi, w Real) error {
	b, err := m.binner.FindBin(theta, phi)
	if err != nil {
		return err
	}
	m.Content[b] += w
	return nil
}

// FillDirection adds w to the bin containing the direction of v.
func (m *SkyMap) FillDirection(v r3.Vector, w Real) error {
	b, err := m.binner.FindBinDirection(v)
	if err != nil {
		return err
	}
	m.Content[b] += w
	return nil
}

// Total returns the summed content.
func (m *SkyMap) Total() Real { return floats.Sum(m.Content) }

// Merge adds o bin by bin. Both maps must share an identical binning.
func (m *SkyMap) Merge(o *SkyMap) error {
	if !m.binner.Equal(o.binner) {
		return fmt.Errorf("%w: %v vs %v", ErrBinningMismatch, m.binner, o.binner)
	}
	floats.Add(m.Content, o.Content)
	return nil
}

// SavePNG renders the map in an equirectangular projection: theta runs
// down the image, phi from -π on the left to π on the right.
func (m *SkyMap) SavePNG(path string, width, height int, gamma Real) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", width, height)
	}
	maxv := 0.0
	if len(m.Content) > 0 {
		maxv = floats.Max(m.Content)
	}
	if maxv <= 0 {
		maxv = 1 // avoid div-by-zero, the map will be flat
	}
	dc := gg.NewContext(width, height)
	for py := 0; py < height; py++ {
		theta := (Real(py) + 0.5) / Real(height) * math.Pi
		for px := 0; px < width; px++ {
			phi := (Real(px)+0.5)/Real(width)*twoPi - math.Pi
			b, err := m.binner.FindBin(theta, phi)
			if err != nil {
				return err
			}
			v := m.Content[b] / maxv
			if v > 0 && gamma != 1 {
				v = math.Pow(v, 1/gamma)
			}
			dc.SetColor(viridis.At(v))
			dc.SetPixel(px, py)
		}
	}
	return dc.SavePNG(path)
}
