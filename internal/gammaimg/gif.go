package gammaimg

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"os"
	"path/filepath"
)

// SaveAnimatedGIF writes a GIF with one frame per z slice, colored with viridis.
// delay is in 100ths of a second; per-slice normalization plus gamma.
func SaveAnimatedGIF(im *Image, path string, delay int, gamma Real) error {
	g := im.Grid
	Nx, Ny, Nz := g.Nx, g.Ny, g.Nz

	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, Nz),
		Delay:     make([]int, 0, Nz),
		LoopCount: 0,
	}
	rgba := image.NewNRGBA(image.Rect(0, 0, Nx, Ny))

	norm := func(v, scale Real) Real {
		if v <= 0 {
			return 0
		}
		n := v * scale
		if n > 1 {
			n = 1
		}
		if gamma != 1 {
			n = math.Pow(n, 1.0/gamma)
		}
		return n
	}

	for k := 0; k < Nz; k++ {
		if k%imax(1, Nz/100) == 0 {
			Logger().Info("[GIF]", "percent", Real(k+1)*100/Real(Nz))
		}
		sliceMax := im.sliceMax(k)
		if sliceMax == 0 {
			sliceMax = 1 // avoid div-by-zero, will be dark anyway
		}
		scale := 1.0 / sliceMax

		// flip Y so up is up
		for j := 0; j < Ny; j++ {
			y := Ny - 1 - j
			for i := 0; i < Nx; i++ {
				c := viridis.At(norm(im.Buf[g.Index(i, j, k)], scale))
				rgba.SetNRGBA(i, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
			}
		}

		pimg := image.NewPaletted(rgba.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(pimg, pimg.Bounds(), rgba, image.Point{})

		out.Image = append(out.Image, pimg)
		out.Delay = append(out.Delay, delay)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, out)
}
