package gammaimg

import "gonum.org/v1/gonum/floats"

// Image is a dense voxel image over a Grid, indexed like Grid.Index.
type Image struct {
	Grid *Grid
	Buf  []Real
}

// NewImage allocates a zero image for g.
func NewImage(g *Grid) *Image {
	return &Image{Grid: g, Buf: make([]Real, g.NumberOfVoxels())}
}

func (im *Image) At(ix, iy, iz int) Real { return im.Buf[im.Grid.Index(ix, iy, iz)] }

// Total returns the summed content.
func (im *Image) Total() Real { return floats.Sum(im.Buf) }

// Max returns the largest voxel value, or 0 for an all-negative or empty image.
func (im *Image) Max() Real {
	if len(im.Buf) == 0 {
		return 0
	}
	m := floats.Max(im.Buf)
	if m < 0 {
		return 0
	}
	return m
}

// sliceMax returns the largest value of z slice iz.
func (im *Image) sliceMax(iz int) Real {
	g := im.Grid
	start := g.Index(0, 0, iz)
	m := floats.Max(im.Buf[start : start+g.StrideZ])
	if m < 0 {
		return 0
	}
	return m
}
