package gammaimg

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Grid is an axis-aligned box split into Nx*Ny*Nz voxels. The grid is
// separable, so voxel centers are kept as one array per axis.
type Grid struct {
	Min, Max   r3.Vector
	Nx, Ny, Nz int
	X, Y, Z    []Real // voxel centers per axis

	// cached mapping
	InvSpanX Real
	InvSpanY Real
	InvSpanZ Real
	StrideY  int // ix + iy*StrideY + iz*StrideZ
	StrideZ  int
}

// NewGrid builds the voxel-center arrays for the box [min, max]. A degenerate
// axis (min == max) is allowed and puts every voxel center on that plane.
func NewGrid(min, max r3.Vector, nx, ny, nz int) (*Grid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("voxel resolution must be positive, got (%d, %d, %d)", nx, ny, nz)
	}
	if max.X < min.X || max.Y < min.Y || max.Z < min.Z {
		return nil, fmt.Errorf("grid max %v below min %v", max, min)
	}
	g := &Grid{
		Min: min, Max: max,
		Nx: nx, Ny: ny, Nz: nz,
		X:       axisCenters(min.X, max.X, nx),
		Y:       axisCenters(min.Y, max.Y, ny),
		Z:       axisCenters(min.Z, max.Z, nz),
		StrideY: nx,
		StrideZ: nx * ny,
	}
	g.InvSpanX = invSpan(min.X, max.X)
	g.InvSpanY = invSpan(min.Y, max.Y)
	g.InvSpanZ = invSpan(min.Z, max.Z)
	DebugLog("Created grid min=%v, max=%v, resolution=(%d, %d, %d)", min, max, nx, ny, nz)
	return g, nil
}

func axisCenters(lo, hi Real, n int) []Real {
	out := make([]Real, n)
	step := (hi - lo) / Real(n)
	for i := range out {
		out[i] = lo + (Real(i)+0.5)*step
	}
	return out
}

func invSpan(lo, hi Real) Real {
	if hi == lo {
		return 0
	}
	return 1 / (hi - lo)
}

// NumberOfVoxels returns Nx*Ny*Nz.
func (g *Grid) NumberOfVoxels() int { return g.Nx * g.Ny * g.Nz }

// Index returns the linear voxel index; x varies fastest.
func (g *Grid) Index(ix, iy, iz int) int {
	return ix + iy*g.StrideY + iz*g.StrideZ
}

// Coords is the inverse of Index.
func (g *Grid) Coords(idx int) (ix, iy, iz int) {
	iz = idx / g.StrideZ
	rem := idx - iz*g.StrideZ
	iy = rem / g.StrideY
	ix = rem - iy*g.StrideY
	return
}

// Center returns the center of voxel idx.
func (g *Grid) Center(idx int) r3.Vector {
	ix, iy, iz := g.Coords(idx)
	return r3.Vector{X: g.X[ix], Y: g.Y[iy], Z: g.Z[iz]}
}

// VoxelSize returns the voxel pitch along X, Y, Z.
func (g *Grid) VoxelSize() (dx, dy, dz Real) {
	dx = (g.Max.X - g.Min.X) / Real(g.Nx)
	dy = (g.Max.Y - g.Min.Y) / Real(g.Ny)
	dz = (g.Max.Z - g.Min.Z) / Real(g.Nz)
	DebugLogOnce("Voxel size: (%.5f, %.5f, %.5f)", dx, dy, dz)
	return
}

// VoxelIndexOf maps a point to voxel indices. Points outside the box report ok=false.
// Degenerate axes accept only coordinates equal to the plane.
func (g *Grid) VoxelIndexOf(p r3.Vector) (ok bool, ix, iy, iz int) {
	var okX, okY, okZ bool
	if ix, okX = axisIndex(p.X, g.Min.X, g.Max.X, g.InvSpanX, g.Nx); !okX {
		return false, 0, 0, 0
	}
	if iy, okY = axisIndex(p.Y, g.Min.Y, g.Max.Y, g.InvSpanY, g.Ny); !okY {
		return false, 0, 0, 0
	}
	if iz, okZ = axisIndex(p.Z, g.Min.Z, g.Max.Z, g.InvSpanZ, g.Nz); !okZ {
		return false, 0, 0, 0
	}
	return true, ix, iy, iz
}

func axisIndex(v, lo, hi, inv Real, n int) (int, bool) {
	if inv == 0 {
		return 0, v == lo
	}
	if v < lo || v > hi {
		return 0, false
	}
	i := int((v - lo) * inv * Real(n))
	if i == n {
		i = n - 1
	}
	return i, true
}
