package gammaimg

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func vec(x, y, z Real) r3.Vector { return r3.Vector{X: x, Y: y, Z: z} }

// nanResponse returns NaN inside its band and zero outside.
type nanResponse struct{ BandResponse }

func (r *nanResponse) ComptonResponse(a Real) Real {
	if r.BandResponse.ComptonResponse(a) != 0 {
		return math.NaN()
	}
	return 0
}

func (r *nanResponse) ComptonResponseTracked(a, _ Real) Real { return r.ComptonResponse(a) }

// negResponse is negative everywhere inside its band.
type negResponse struct{ BandResponse }

func (r *negResponse) ComptonResponse(a Real) Real { return -r.BandResponse.ComptonResponse(a) }

func mustBand(t *testing.T, minDeg, maxDeg Real) *BandResponse {
	t.Helper()
	r, err := NewBandResponse(deg2rad(minDeg), deg2rad(maxDeg), deg2rad(10), 1)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func mustGrid(t *testing.T, min, max r3.Vector, nx, ny, nz int) *Grid {
	t.Helper()
	g, err := NewGrid(min, max, nx, ny, nz)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func mustBP(t *testing.T, g *Grid, resp Response, opts Options) *Backprojector {
	t.Helper()
	b, err := NewBackprojector(g, resp, opts)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustCone(t *testing.T, axis, apex r3.Vector, phiDeg Real) *ComptonEvent {
	t.Helper()
	ev, err := NewComptonEvent(axis, apex, deg2rad(phiDeg))
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func sparseEqual(a, b *Sparse) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.Bins {
		if a.Bins[i] != b.Bins[i] || a.Values[i] != b.Values[i] {
			return false
		}
	}
	return true
}

func TestRasterModeParse(t *testing.T) {
	for in, want := range map[string]RasterMode{"": RasterLine, "line": RasterLine, "area": RasterArea} {
		got, err := ParseRasterMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseRasterMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRasterMode("cube"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if RasterArea.String() != "area" || RasterMode(9).String() != "RasterMode(9)" {
		t.Fatal("unexpected String output")
	}
}

func TestNewBackprojectorErrors(t *testing.T) {
	g := mustGrid(t, vec(0, 0, 0), vec(1, 1, 1), 2, 2, 2)
	if _, err := NewBackprojector(nil, mustBand(t, -1, 1), DefaultOptions()); err == nil {
		t.Fatal("expected error for nil grid")
	}
	if _, err := NewBackprojector(g, nil, DefaultOptions()); err == nil {
		t.Fatal("expected error for nil response")
	}
}

// Every voxel lies in the plane through the apex orthogonal to the axis,
// so every voxel is 60 degrees off a 30 degree cone.
func TestBackprojectPlaneThroughApexIsEmpty(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, 0), vec(10, 10, 0), 20, 20, 1)
	ev := mustCone(t, vec(0, 0, 1), vec(0, 0, 0), 30)
	for _, opts := range []Options{DefaultOptions(), {Mode: RasterLine}, {Mode: RasterArea}} {
		b := mustBP(t, g, mustBand(t, -5, 5), opts)
		out := NewSparse(0)
		if err := b.BackprojectCompton(ev, out); err != nil {
			t.Fatalf("%+v: unexpected error %v", opts, err)
		}
		if out.Len() != 0 {
			t.Fatalf("%+v: expected no bins, got %d", opts, out.Len())
		}
	}
}

func TestBackprojectOffsetApex(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, 0), vec(10, 10, 0), 41, 41, 1)
	ev := mustCone(t, vec(0, 0, 1), vec(0, 0, -10), 30)
	resp := mustBand(t, -5, 5)
	tan30 := math.Tan(deg2rad(30))

	want := map[int]Real{}
	for iy := 0; iy < g.Ny; iy++ {
		for ix := 0; ix < g.Nx; ix++ {
			v := vec(g.X[ix], g.Y[iy], 10)
			at := math.Atan2(math.Hypot(v.X, v.Y), v.Z) - deg2rad(30)
			if at < deg2rad(-5)-bandEps || at > deg2rad(5)+bandEps {
				continue
			}
			want[g.Index(ix, iy, 0)] = 1 / math.Abs(tan30*math.Acos(at)*v.Norm())
		}
	}
	if len(want) == 0 {
		t.Fatal("reference selection is empty")
	}

	for _, skip := range []bool{true, false} {
		b := mustBP(t, g, resp, Options{Mode: RasterLine, SkipAhead: skip})
		out := NewSparse(0)
		if err := b.BackprojectCompton(ev, out); err != nil {
			t.Fatal(err)
		}
		if out.Len() != len(want) {
			t.Fatalf("skip=%v: %d bins, want %d", skip, out.Len(), len(want))
		}
		for i, bin := range out.Bins {
			w, ok := want[bin]
			if !ok {
				t.Fatalf("skip=%v: unexpected bin %d", skip, bin)
			}
			if math.Abs(out.Values[i]-w) > 1e-9*w {
				t.Fatalf("skip=%v: bin %d = %v, want %v", skip, bin, out.Values[i], w)
			}
		}
		if out.Maximum <= 0 || math.Abs(out.Sum()-sumValues(want)) > 1e-9*out.Sum() {
			t.Fatalf("skip=%v: sum %v, want %v", skip, out.Sum(), sumValues(want))
		}
	}
}

func sumValues(m map[int]Real) Real {
	s := 0.0
	for _, v := range m {
		s += v
	}
	return s
}

func TestBackprojectSkipAheadMatchesFullScan(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, -5), vec(10, 10, 5), 40, 40, 10)
	gr, err := NewGaussianResponse(deg2rad(1.5), deg2rad(30), deg2rad(2), 3)
	if err != nil {
		t.Fatal(err)
	}
	cones := []*ComptonEvent{
		mustCone(t, vec(0, 0, 1), vec(0, 0, -12), 25),
		mustCone(t, vec(0.3, -0.2, 1), vec(1, 2, -8), 40),
		mustCone(t, vec(1, 0, 0), vec(-15, 0, 0), 15),
		mustCone(t, vec(-1, 0.1, 0.2), vec(12, 1, 0), 35),
		mustCone(t, vec(0, 1, 1), vec(0.2, -0.3, 0.1), 60),
		mustCone(t, vec(0.1, 0, 1), vec(0, 0, 8), 120),
		mustCone(t, vec(1, 1, 1), vec(-3, -3, -3), 90),
		mustCone(t, vec(0, 0, -1), vec(2, 3, 9), 75).WithTrack(vec(1, 0, 0)),
	}
	for _, resp := range []Response{mustBand(t, -2, 2), gr} {
		fast := mustBP(t, g, resp, Options{Mode: RasterLine, SkipAhead: true})
		slow := mustBP(t, g, resp, Options{Mode: RasterLine})
		for i, ev := range cones {
			a, b := NewSparse(0), NewSparse(0)
			errA := fast.BackprojectCompton(ev, a)
			errB := slow.BackprojectCompton(ev, b)
			if !errors.Is(errA, errB) && errA != errB {
				t.Fatalf("cone %d: errors differ: %v vs %v", i, errA, errB)
			}
			if !sparseEqual(a, b) {
				t.Fatalf("cone %d: skip-ahead wrote %d bins, full scan %d", i, a.Len(), b.Len())
			}
			if a.Len() == 0 {
				t.Fatalf("cone %d: expected the cone to hit the grid", i)
			}
		}
	}
}

func TestBackprojectLineVersusArea(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, -10), vec(10, 10, 10), 24, 24, 24)
	ev := mustCone(t, vec(0.2, 0.1, 1), vec(0, 0, -15), 20)
	resp := mustBand(t, -3, 3)
	line, area := NewSparse(0), NewSparse(0)
	if err := mustBP(t, g, resp, DefaultOptions()).BackprojectCompton(ev, line); err != nil {
		t.Fatal(err)
	}
	if err := mustBP(t, g, resp, Options{Mode: RasterArea}).BackprojectCompton(ev, area); err != nil {
		t.Fatal(err)
	}
	if line.Len() == 0 || line.Len() != area.Len() {
		t.Fatalf("line wrote %d bins, area %d", line.Len(), area.Len())
	}
	tanPhi := math.Tan(ev.Phi)
	for i := range line.Bins {
		if line.Bins[i] != area.Bins[i] {
			t.Fatalf("entry %d: bin %d vs %d", i, line.Bins[i], area.Bins[i])
		}
		v := g.Center(area.Bins[i]).Sub(ev.Apex)
		at := angleBetween(v, ev.Axis) - ev.Phi
		want := 1 / math.Abs(tanPhi*math.Cos(at)*v.Norm())
		if math.Abs(area.Values[i]-want) > 1e-9*want {
			t.Fatalf("area bin %d = %v, want %v", area.Bins[i], area.Values[i], want)
		}
		if line.Values[i] == area.Values[i] {
			t.Fatalf("bin %d: line and area radius must differ", line.Bins[i])
		}
	}
}

func TestBackprojectTrackedNarrowsCone(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, 0), vec(10, 10, 0), 60, 60, 1)
	resp, err := NewGaussianResponse(deg2rad(2), deg2rad(20), deg2rad(2), 3)
	if err != nil {
		t.Fatal(err)
	}
	b := mustBP(t, g, resp, DefaultOptions())
	plain := mustCone(t, vec(0, 0, 1), vec(0, 0, -10), 30)
	tracked := mustCone(t, vec(0, 0, 1), vec(0, 0, -10), 30).WithTrack(vec(1, 0, 0))
	a, c := NewSparse(0), NewSparse(0)
	if err := b.Backproject(plain, a); err != nil {
		t.Fatal(err)
	}
	if err := b.Backproject(tracked, c); err != nil {
		t.Fatal(err)
	}
	if c.Len() == 0 || c.Len() >= a.Len() {
		t.Fatalf("tracked cone wrote %d bins, plain %d", c.Len(), a.Len())
	}
	for _, bin := range c.Bins {
		p := g.Center(bin)
		if p.X >= 0 {
			continue
		}
		// the arc must lie on the side of the origin direction
		t.Fatalf("tracked bin %d at %v is on the far side", bin, p)
	}
}

func TestBackprojectNaN(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, 0), vec(10, 10, 0), 20, 20, 1)
	ev := mustCone(t, vec(0, 0, 1), vec(0, 0, -10), 30)
	b := mustBP(t, g, &nanResponse{*mustBand(t, -5, 5)}, DefaultOptions())
	out := NewSparse(0)
	out.add(1, 1)
	err := b.Backproject(ev, out)
	if !errors.Is(err, ErrNaN) || !errors.Is(err, ErrDegenerateEvent) {
		t.Fatalf("expected ErrNaN, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("failed event must leave no bins, got %d", out.Len())
	}
}

func TestBackprojectNegativeResponseWritesNothing(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, 0), vec(10, 10, 0), 20, 20, 1)
	ev := mustCone(t, vec(0, 0, 1), vec(0, 0, -10), 30)
	b := mustBP(t, g, &negResponse{*mustBand(t, -5, 5)}, DefaultOptions())
	out := NewSparse(0)
	if err := b.Backproject(ev, out); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("non-positive content must not be stored, got %d bins", out.Len())
	}
}

func TestBackprojectApexVoxelSkipped(t *testing.T) {
	// odd resolution puts a voxel center exactly on the apex
	g := mustGrid(t, vec(-1, -1, -1), vec(1, 1, 1), 3, 3, 3)
	ev := mustCone(t, vec(0, 0, 1), vec(0, 0, 0), 45)
	b := mustBP(t, g, mustBand(t, -1, 1), Options{Mode: RasterArea})
	out := NewSparse(0)
	if err := b.Backproject(ev, out); err != nil {
		t.Fatal(err)
	}
	center := g.Index(1, 1, 1)
	for _, bin := range out.Bins {
		if bin == center {
			t.Fatal("voxel at the apex must be skipped")
		}
	}
	if out.Len() != 4 {
		// (±2/3, 0, 2/3) and (0, ±2/3, 2/3) sit exactly on the cone
		t.Fatalf("expected 4 bins on the cone, got %d", out.Len())
	}
}

func TestBackprojectPair(t *testing.T) {
	g := mustGrid(t, vec(-10, -10, 0), vec(10, 10, 0), 41, 41, 1)
	ev, err := NewPairEvent(vec(0, 0, -10), vec(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	b := mustBP(t, g, mustBand(t, -1, 1), DefaultOptions())
	out := NewSparse(0)
	if err := b.Backproject(ev, out); err != nil {
		t.Fatal(err)
	}
	want := 0
	for iy := 0; iy < g.Ny; iy++ {
		for ix := 0; ix < g.Nx; ix++ {
			if math.Hypot(g.X[ix], g.Y[iy]) <= 10*math.Tan(deg2rad(10))-1e-9 {
				want++
			}
		}
	}
	if out.Len() != want || want == 0 {
		t.Fatalf("pair wrote %d bins, want %d", out.Len(), want)
	}
	for _, v := range out.Values {
		if v != 1 {
			t.Fatalf("pair content %v, want 1", v)
		}
	}
}

func TestBackprojectUnsupportedEvent(t *testing.T) {
	g := mustGrid(t, vec(0, 0, 0), vec(1, 1, 1), 2, 2, 2)
	b := mustBP(t, g, mustBand(t, -1, 1), DefaultOptions())
	if err := b.Backproject(nil, NewSparse(0)); err == nil || errors.Is(err, ErrDegenerateEvent) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

func TestFinish(t *testing.T) {
	out := NewSparse(0)
	if err := finish(out, 0); err != nil {
		t.Fatalf("no bins is not an error, got %v", err)
	}
	out.add(3, 0)
	if err := finish(out, 0); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatal("finish must clear a rejected result")
	}
	out.add(3, 1)
	if err := finish(out, math.Inf(1)); !errors.Is(err, ErrNaN) {
		t.Fatalf("expected ErrNaN, got %v", err)
	}
	out.add(3, 1)
	if err := finish(out, 1); err != nil || out.Len() != 1 {
		t.Fatalf("valid result rejected: %v", err)
	}
}

func TestCrossing(t *testing.T) {
	axis := vec(0, 0, 1)
	lambda, ok := crossing(vec(-5, 0, 10), axis, newConeEdge(deg2rad(30)))
	want := 5 + 10*math.Tan(deg2rad(30))
	if !ok || math.Abs(lambda-want) > 1e-9 {
		t.Fatalf("30°: lambda = %v (%v), want %v", lambda, ok, want)
	}
	// the ray at z=10 never reaches the backward nappe
	if _, ok := crossing(vec(-5, 0, 10), axis, newConeEdge(deg2rad(150))); ok {
		t.Fatal("150°: expected no crossing")
	}
	lambda, ok = crossing(vec(-5, 0, 3), vec(1, 0, 0), newConeEdge(math.Pi/2))
	if !ok || math.Abs(lambda-5) > 1e-12 {
		t.Fatalf("90°: lambda = %v (%v), want 5", lambda, ok)
	}
	// moving away from a plane already behind
	if _, ok := crossing(vec(5, 0, 3), vec(1, 0, 0), newConeEdge(math.Pi/2)); ok {
		t.Fatal("90°: expected no crossing behind the ray")
	}
	// moving along the axis from inside, the ray never leaves the cone
	if _, ok := crossing(vec(5, 0, 1), vec(1, 0, 0), newConeEdge(deg2rad(80))); ok {
		t.Fatal("80°: expected no crossing")
	}
}

func TestSkipAhead(t *testing.T) {
	xs := []Real{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	axis := vec(0, 0, 1)
	// the row leaves the 30° cone at x=10.77, past the last voxel
	v := vec(-5, 0, 10)
	if _, ok := skipAhead(xs, 0, v, axis, newConeEdge(deg2rad(30))); ok {
		t.Fatal("exit beyond the row must end it")
	}
	next, ok := skipAhead(xs, 0, vec(-9, 0, 1), axis, newConeEdge(deg2rad(80)))
	wantX := 9 - math.Tan(deg2rad(80))
	if !ok || xs[next] < wantX*(1-1e-6) || xs[next-1] >= wantX {
		t.Fatalf("next = %d (%v), crossing at x=%v", next, ok, wantX)
	}
	if _, ok := skipAhead(xs, 0, vec(-100, 0, 1), axis, newConeEdge(deg2rad(30))); ok {
		t.Fatal("crossing beyond the row must end it")
	}
	if next, ok := skipAhead(xs, 4, v, axis, coneEdge{}); !ok || next != 5 {
		t.Fatalf("unreachable edge must step by one, got %d (%v)", next, ok)
	}
}
