package gammaimg

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// RasterMode selects how a cone is rasterized onto the grid.
type RasterMode uint8

const (
	// RasterLine evaluates rows with analytic skip-ahead and derives the cone
	// radius from acos(AngleTrans).
	RasterLine RasterMode = iota
	// RasterArea evaluates every voxel and derives the cone radius from
	// cos(AngleTrans).
	RasterArea
)

func (m RasterMode) String() string {
	switch m {
	case RasterLine:
		return "line"
	case RasterArea:
		return "area"
	}
	return fmt.Sprintf("RasterMode(%d)", uint8(m))
}

// ParseRasterMode accepts "line" and "area"; the empty string means line.
func ParseRasterMode(s string) (RasterMode, error) {
	switch s {
	case "", "line":
		return RasterLine, nil
	case "area":
		return RasterArea, nil
	}
	return 0, fmt.Errorf("unknown raster mode %q", s)
}

type Options struct {
	Mode      RasterMode
	SkipAhead bool // only used by RasterLine
}

func DefaultOptions() Options { return Options{Mode: RasterLine, SkipAhead: true} }

// Backprojector rasterizes single events onto a fixed grid. It keeps no
// per-event state: one Backprojector may serve many goroutines as long as
// each passes its own Sparse.
type Backprojector struct {
	grid *Grid
	resp Response
	opts Options

	// cached band, widened by bandEps
	bandLo Real
	bandHi Real
}

// NewBackprojector binds a grid and a response.
func NewBackprojector(grid *Grid, resp Response, opts Options) (*Backprojector, error) {
	if grid == nil {
		return nil, errors.New("grid must be non-nil")
	}
	if resp == nil {
		return nil, errors.New("response must be non-nil")
	}
	lo, hi := resp.ComptonTransversalMin(), resp.ComptonTransversalMax()
	if !(hi >= lo) {
		return nil, fmt.Errorf("transversal band [%v, %v] is empty", lo, hi)
	}
	b := &Backprojector{
		grid:   grid,
		resp:   resp,
		opts:   opts,
		bandLo: lo - bandEps,
		bandHi: hi + bandEps,
	}
	DebugLog("Created backprojector mode=%s, skipAhead=%v, band=[%.6f, %.6f]", opts.Mode, opts.SkipAhead, lo, hi)
	return b, nil
}

func (b *Backprojector) Grid() *Grid { return b.grid }

// Backproject dispatches on the event type.
func (b *Backprojector) Backproject(ev Event, out *Sparse) error {
	switch e := ev.(type) {
	case *ComptonEvent:
		return b.BackprojectCompton(e, out)
	case *PairEvent:
		return b.BackprojectPair(e, out)
	}
	return fmt.Errorf("unsupported event type %T", ev)
}

// coneEdge is a cone of half-angle alpha around the event axis.
type coneEdge struct {
	cos       Real
	cos2      Real
	reachable bool
}

func newConeEdge(alpha Real) coneEdge {
	if alpha <= 0 || alpha >= math.Pi {
		return coneEdge{}
	}
	c := math.Cos(alpha)
	return coneEdge{cos: c, cos2: c * c, reachable: true}
}

// BackprojectCompton writes the response of the cone into out. On failure
// out is left empty and the error wraps ErrDegenerateEvent.
func (b *Backprojector) BackprojectCompton(ev *ComptonEvent, out *Sparse) error {
	out.Reset()
	if ev.tanPhi == 0 {
		if err := ev.Validate(); err != nil {
			return err
		}
	}
	g := b.grid
	CA, CC := ev.Axis, ev.Apex
	phi, tanPhi := ev.Phi, ev.tanPhi
	lineMode := b.opts.Mode == RasterLine
	skip := lineMode && b.opts.SkipAhead
	inner := newConeEdge(phi + b.bandLo)
	outer := newConeEdge(phi + b.bandHi)

	var nOrigin r3.Vector
	if ev.HasTrack {
		nOrigin = CA.Cross(ev.Origin)
	}

	sum := 0.0
	for iz := 0; iz < g.Nz; iz++ {
		vz := g.Z[iz] - CC.Z
		for iy := 0; iy < g.Ny; iy++ {
			vy := g.Y[iy] - CC.Y
			row := g.Index(0, iy, iz)
			for ix := 0; ix < g.Nx; {
				v := r3.Vector{X: g.X[ix] - CC.X, Y: vy, Z: vz}
				L := v.Norm()
				if L < minDistance {
					ix++
					continue
				}
				angleTrans := angleBetween(v, CA) - phi

				if angleTrans < b.bandLo || angleTrans > b.bandHi {
					if skip && ix+1 < g.Nx {
						edge := outer
						if angleTrans < b.bandLo {
							edge = inner
						}
						next, ok := skipAhead(g.X, ix, v, CA, edge)
						if !ok {
							break
						}
						ix = next
						continue
					}
					ix++
					continue
				}

				var radius Real
				if lineMode {
					radius = math.Abs(tanPhi * math.Acos(clampUnit(angleTrans)) * L)
				} else {
					radius = math.Abs(tanPhi * math.Cos(angleTrans) * L)
				}

				var r Real
				if ev.HasTrack {
					r = b.resp.ComptonResponseTracked(angleTrans, longitudinalAngle(v, CA, nOrigin))
				} else {
					r = b.resp.ComptonResponse(angleTrans)
				}
				if r == 0 {
					ix++
					continue
				}
				content := r / radius
				if !isFinite(content) || !isFinite(sum+content) {
					out.Reset()
					return ErrNaN
				}
				if content > 0 {
					out.add(row+ix, content)
					sum += content
				}
				ix++
			}
		}
	}
	return finish(out, sum)
}

// skipAhead returns the index of the first voxel along +x at or beyond the
// point where the ray from voxel ix crosses edge. ok is false when the row
// never reaches the edge again.
func skipAhead(xs []Real, ix int, v, CA r3.Vector, edge coneEdge) (next int, ok bool) {
	if !edge.reachable {
		return ix + 1, true
	}
	lambda, ok := crossing(v, CA, edge)
	if !ok {
		return 0, false
	}
	target := xs[ix] + lambda*(1-rowBackoff)
	next = ix + 1 + sort.SearchFloat64s(xs[ix+1:], target)
	if next >= len(xs) {
		return 0, false
	}
	return next, true
}

// crossing solves for the smallest lambda > 0 with angle(v + lambda*x, CA)
// equal to the edge half-angle:
//
//	(a + lambda*c)^2 = cos^2 * |v + lambda*x|^2,  a = v.CA, c = CA.X
//
// keeping only roots on the nappe whose sign matches cos.
func crossing(v, CA r3.Vector, edge coneEdge) (Real, bool) {
	a := v.Dot(CA)
	c := CA.X
	if math.Abs(edge.cos) < 1e-15 {
		// the edge is the plane through the apex orthogonal to the axis
		if c == 0 {
			return 0, false
		}
		lambda := -a / c
		return lambda, lambda > 0
	}
	k := edge.cos2
	qa := c*c - k
	qb := a*c - k*v.X // half of the linear coefficient
	qc := a*a - k*v.Norm2()

	onNappe := func(lambda Real) bool {
		return lambda > 0 && (a+lambda*c)*edge.cos >= 0
	}
	if math.Abs(qa) < 1e-14 {
		if qb == 0 {
			return 0, false
		}
		lambda := -qc / (2 * qb)
		return lambda, onNappe(lambda)
	}
	disc := qb*qb - qa*qc
	if disc <= 0 {
		return 0, false
	}
	// stable form of the two roots
	q := -(qb + math.Copysign(math.Sqrt(disc), qb))
	r1, r2 := q/qa, qc/q
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if onNappe(r1) {
		return r1, true
	}
	if onNappe(r2) {
		return r2, true
	}
	return 0, false
}

// BackprojectPair evaluates every voxel; pair events have no cone to skip around.
func (b *Backprojector) BackprojectPair(ev *PairEvent, out *Sparse) error {
	out.Reset()
	g := b.grid
	P, O := ev.Position, ev.Origin
	sum := 0.0
	for iz := 0; iz < g.Nz; iz++ {
		for iy := 0; iy < g.Ny; iy++ {
			row := g.Index(0, iy, iz)
			for ix := 0; ix < g.Nx; ix++ {
				v := r3.Vector{X: g.X[ix] - P.X, Y: g.Y[iy] - P.Y, Z: g.Z[iz] - P.Z}
				if v.Norm() < minDistance {
					continue
				}
				content := b.resp.PairResponse(angleBetween(v, O))
				if !isFinite(content) || !isFinite(sum+content) {
					out.Reset()
					return ErrNaN
				}
				if content > 0 {
					out.add(row+ix, content)
					sum += content
				}
			}
		}
	}
	return finish(out, sum)
}

// finish applies the post-loop checks shared by all backprojections.
func finish(out *Sparse, sum Real) error {
	if !isFinite(sum) {
		out.Reset()
		return ErrNaN
	}
	if sum == 0 && out.Len() > 0 {
		out.Reset()
		return ErrEmptyImage
	}
	return nil
}
