package gammaimg

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// SavePNGSequence16 writes one 16-bit grayscale PNG per z slice.
// Each slice is normalized to its own maximum, then gamma corrected.
func SavePNGSequence16(im *Image, prefix string, gamma Real) error {
	g := im.Grid
	Nx, Ny, Nz := g.Nx, g.Ny, g.Nz

	toU16 := func(v, scale Real) uint16 {
		if v <= 0 {
			return 0
		}
		n := v * scale // ideally in [0,1]
		if n > 1 {
			n = 1
		}
		if gamma != 1 {
			n = math.Pow(n, 1.0/gamma)
		}
		return uint16(math.Round(n * 65535.0))
	}

	// Zero-padding width based on number of slices.
	width := 1
	if Nz > 1 {
		width = int(math.Log10(Real(Nz-1))) + 1
	}
	if err := os.MkdirAll(filepath.Dir(prefix), 0o755); err != nil {
		return err
	}

	step := imax(1, Nz/100)
	for k := 0; k < Nz; k++ {
		if k%step == 0 {
			Logger().Info("[PNG]", "percent", Real(k+1)*100/Real(Nz))
		}
		sliceMax := im.sliceMax(k)
		if sliceMax == 0 {
			sliceMax = 1 // avoid div-by-zero; the slice will be black
		}
		scale := 1.0 / sliceMax

		// flip Y so up is up
		img := image.NewGray16(image.Rect(0, 0, Nx, Ny))
		for j := 0; j < Ny; j++ {
			y := Ny - 1 - j
			rowOff := y * img.Stride
			for i := 0; i < Nx; i++ {
				v := toU16(im.Buf[g.Index(i, j, k)], scale)
				p := rowOff + i*2
				// Gray16 stores big-endian uint16
				img.Pix[p+0] = uint8(v >> 8)
				img.Pix[p+1] = uint8(v)
			}
		}

		full := fmt.Sprintf("%s_%0*d.png", prefix, width, k)
		f, err := os.Create(full)
		if err != nil {
			return err
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
