package gammaimg

import "image/color"

// colormap maps normalized values in [0, 1] to colors by linear interpolation.
type colormap struct {
	colors []color.RGBA
}

func (c colormap) At(t Real) color.RGBA {
	if t <= 0 {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}
	idx := t * Real(len(c.colors)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(c.colors) {
		upper = len(c.colors) - 1
	}
	frac := idx - Real(lower)
	c1, c2 := c.colors[lower], c.colors[upper]
	return color.RGBA{
		R: uint8(Real(c1.R) + frac*(Real(c2.R)-Real(c1.R))),
		G: uint8(Real(c1.G) + frac*(Real(c2.G)-Real(c1.G))),
		B: uint8(Real(c1.B) + frac*(Real(c2.B)-Real(c1.B))),
		A: 255,
	}
}

// viridis (matplotlib)
var viridis = colormap{
	colors: []color.RGBA{
		{68, 1, 84, 255},
		{72, 35, 116, 255},
		{64, 67, 135, 255},
		{52, 94, 141, 255},
		{41, 120, 142, 255},
		{32, 144, 140, 255},
		{34, 167, 132, 255},
		{68, 190, 112, 255},
		{121, 209, 81, 255},
		{189, 222, 38, 255},
		{253, 231, 37, 255},
	},
}
