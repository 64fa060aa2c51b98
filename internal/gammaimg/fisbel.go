package gammaimg

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// FISBEL partitions the unit sphere into bins of equal solid angle arranged
// in iso-latitude collars. Every bin boundary lies on a latitude or longitude
// line, the two polar collars are single circular caps and the layout is
// mirror symmetric about the equator.
//
// A FISBEL is immutable once built and safe for concurrent readers.
type FISBEL struct {
	nBins      int
	longBins   []int  // longitude bins per collar, north to south
	latEdges   []Real // collar boundaries in radians, 0 .. π
	shift      Real   // rotation of all longitude boundaries
	binsBefore []int  // exclusive prefix sum of longBins
}

// NewFISBEL builds an equal-area binning with n bins whose longitude
// boundaries are rotated by shift radians.
func NewFISBEL(n int, shift Real) (*FISBEL, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: number of bins must be >= 1, got %d", ErrParameterOutOfRange, n)
	}
	if !isFinite(shift) {
		return nil, fmt.Errorf("%w: longitude shift must be finite, got %v", ErrParameterOutOfRange, shift)
	}
	f := &FISBEL{nBins: n, shift: shift}
	f.create()
	f.computePrefix()
	DebugLog("Created FISBEL bins=%d, collars=%d, shift=%.6f", n, len(f.longBins), shift)
	return f, nil
}

// RestoreFISBEL rebuilds a binning from stored parameters without rerunning
// the construction. The parameters must satisfy the layout invariants.
func RestoreFISBEL(longBins []int, latEdges []Real, n int, shift Real) (*FISBEL, error) {
	if err := validateBinning(longBins, latEdges, n, shift); err != nil {
		return nil, err
	}
	f := &FISBEL{
		nBins:    n,
		longBins: append([]int(nil), longBins...),
		latEdges: append([]Real(nil), latEdges...),
		shift:    shift,
	}
	f.computePrefix()
	return f, nil
}

func validateBinning(longBins []int, latEdges []Real, n int, shift Real) error {
	if n < 1 {
		return fmt.Errorf("%w: number of bins must be >= 1, got %d", ErrInvalidBinning, n)
	}
	if len(longBins) == 0 {
		return fmt.Errorf("%w: no collars", ErrInvalidBinning)
	}
	if len(latEdges) != len(longBins)+1 {
		return fmt.Errorf("%w: %d latitude edges for %d collars", ErrInvalidBinning, len(latEdges), len(longBins))
	}
	if latEdges[0] != 0 || latEdges[len(latEdges)-1] != math.Pi {
		return fmt.Errorf("%w: latitude edges must span [0, π], got [%v, %v]", ErrInvalidBinning, latEdges[0], latEdges[len(latEdges)-1])
	}
	for i := 1; i < len(latEdges); i++ {
		if !(latEdges[i] > latEdges[i-1]) {
			return fmt.Errorf("%w: latitude edges not strictly increasing at %d", ErrInvalidBinning, i)
		}
	}
	sum := 0
	for i, b := range longBins {
		if b < 1 {
			return fmt.Errorf("%w: collar %d has %d longitude bins", ErrInvalidBinning, i, b)
		}
		sum += b
	}
	if sum != n {
		return fmt.Errorf("%w: longitude bins sum to %d, expected %d", ErrInvalidBinning, sum, n)
	}
	if !isFinite(shift) {
		return fmt.Errorf("%w: longitude shift must be finite", ErrInvalidBinning)
	}
	return nil
}

// create fills longBins and latEdges from nBins.
func (f *FISBEL) create() {
	n := f.nBins
	if n == 1 {
		f.latEdges = []Real{0, math.Pi}
		f.longBins = []int{1}
		return
	}

	area := 2 * twoPi / Real(n)
	square := math.Sqrt(area)

	// one collar per square length, plus one cap at each pole
	collars := int(math.Round(math.Pi/square-1)) + 2
	if collars < 2 {
		collars = 2
	}
	// a mirrored layout with an even number of collars always holds an even number of bins
	if n%2 == 1 && collars%2 == 0 {
		if math.Pi/square+1 > Real(collars) || collars == 2 {
			collars++
		} else {
			collars--
		}
	}

	f.longBins = make([]int, collars)
	f.latEdges = make([]Real, collars+1)
	f.latEdges[0] = 0
	f.latEdges[collars] = math.Pi

	f.longBins[0] = 1
	f.longBins[collars-1] = 1
	f.latEdges[1] = math.Acos(1 - 2/Real(n))
	f.latEdges[collars-1] = math.Pi - f.latEdges[1]
	if collars == 2 {
		return
	}

	used := 2
	lo, hi := 1, collars-2
	for hi-lo > 1 {
		remaining := hi - lo + 1
		next := f.latEdges[lo] + (f.latEdges[hi+1]-f.latEdges[lo])/Real(remaining)
		estimate := twoPi * (math.Cos(f.latEdges[lo]) - math.Cos(next)) / area
		bins := int(math.Round(estimate))

		// every collar still to be placed after this pair keeps at least one bin
		maxBins := (n - used - (remaining - 2)) / 2
		if bins > maxBins {
			bins = maxBins
		}
		if bins < 1 {
			bins = 1
		}

		edge := math.Acos(clampUnit(math.Cos(f.latEdges[lo]) - Real(bins)*area/twoPi))
		f.longBins[lo] = bins
		f.longBins[hi] = bins
		f.latEdges[lo+1] = edge
		f.latEdges[hi] = math.Pi - edge
		used += 2 * bins
		lo++
		hi--
	}

	rest := n - used
	if lo == hi {
		f.longBins[lo] = rest
		return
	}
	// two collars meeting at the equator
	f.longBins[lo] = rest / 2
	f.longBins[hi] = rest / 2
	f.latEdges[hi] = math.Pi / 2
}

func (f *FISBEL) computePrefix() {
	f.binsBefore = make([]int, len(f.longBins))
	for i := 1; i < len(f.longBins); i++ {
		f.binsBefore[i] = f.binsBefore[i-1] + f.longBins[i-1]
	}
}

func clampUnit(x Real) Real {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

func (f *FISBEL) NumberOfBins() int    { return f.nBins }
func (f *FISBEL) NumberOfCollars() int { return len(f.longBins) }
func (f *FISBEL) LongitudeShift() Real { return f.shift }

// BinArea returns the solid angle of every bin in steradians.
func (f *FISBEL) BinArea() Real { return 2 * twoPi / Real(f.nBins) }

// LongitudeBins returns a copy of the per-collar longitude bin counts.
func (f *FISBEL) LongitudeBins() []int { return append([]int(nil), f.longBins...) }

// LatitudeBinEdges returns a copy of the collar boundaries in radians.
func (f *FISBEL) LatitudeBinEdges() []Real { return append([]Real(nil), f.latEdges...) }

// phiOffset maps phi to [0, 2π) relative to the longitude shift.
func (f *FISBEL) phiOffset(phi Real) Real {
	p := math.Mod(phi-f.shift, twoPi)
	if p < 0 {
		p += twoPi
	}
	if p >= twoPi {
		p = 0
	}
	return p
}

// FindBin returns the bin containing the direction (theta, phi).
// theta must lie in [0, π]; phi may be any finite angle.
func (f *FISBEL) FindBin(theta, phi Real) (int, error) {
	if !(theta >= 0 && theta <= math.Pi) {
		return 0, fmt.Errorf("%w: theta %v not in [0, π]", ErrParameterOutOfRange, theta)
	}
	if theta == 0 {
		return 0, nil
	}
	if theta == math.Pi {
		return f.nBins - 1, nil
	}
	if !isFinite(phi) {
		return 0, fmt.Errorf("%w: phi %v is not finite", ErrParameterOutOfRange, phi)
	}

	// first edge >= theta closes the collar
	collar := sort.SearchFloat64s(f.latEdges, theta) - 1
	nLong := f.longBins[collar]
	local := int(math.Floor(f.phiOffset(phi) / (twoPi / Real(nLong))))
	if local >= nLong {
		local = nLong - 1
	}
	bin := f.binsBefore[collar] + local
	if bin >= f.nBins {
		return 0, fmt.Errorf("%w: bin %d >= %d", ErrIndexOutOfBounds, bin, f.nBins)
	}
	return bin, nil
}

// FindBinDirection returns the bin containing the direction of v.
func (f *FISBEL) FindBinDirection(v r3.Vector) (int, error) {
	theta, phi := anglesFromVector(v)
	return f.FindBin(theta, phi)
}

// Collar returns the collar that owns bin.
func (f *FISBEL) Collar(bin int) (int, error) {
	if bin < 0 || bin >= f.nBins {
		return 0, fmt.Errorf("%w: bin %d not in [0, %d)", ErrIndexOutOfBounds, bin, f.nBins)
	}
	c := 0
	for c+1 < len(f.binsBefore) && f.binsBefore[c+1] <= bin {
		c++
	}
	return c, nil
}

// BinCenter returns the center direction of bin. The polar caps map to
// (0, 0) and (π, 0).
func (f *FISBEL) BinCenter(bin int) (theta, phi Real, err error) {
	if bin < 0 || bin >= f.nBins {
		return 0, 0, fmt.Errorf("%w: bin %d not in [0, %d)", ErrIndexOutOfBounds, bin, f.nBins)
	}
	if bin == 0 {
		return 0, 0, nil
	}
	if bin == f.nBins-1 {
		return math.Pi, 0, nil
	}
	c, _ := f.Collar(bin)
	local := bin - f.binsBefore[c]
	theta = 0.5 * (f.latEdges[c] + f.latEdges[c+1])
	phi = f.shift + (Real(local)+0.5)*twoPi/Real(f.longBins[c])
	return theta, phi, nil
}

// BinEdges returns the latitude and longitude boundaries of bin.
func (f *FISBEL) BinEdges(bin int) (thetaMin, thetaMax, phiMin, phiMax Real, err error) {
	c, err := f.Collar(bin)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	local := bin - f.binsBefore[c]
	width := twoPi / Real(f.longBins[c])
	phiMin = f.shift + Real(local)*width
	return f.latEdges[c], f.latEdges[c+1], phiMin, phiMin + width, nil
}

// AllBinCenters returns the unit vector of every bin center, indexed by bin.
func (f *FISBEL) AllBinCenters() []r3.Vector {
	out := make([]r3.Vector, f.nBins)
	for b := range out {
		theta, phi, _ := f.BinCenter(b)
		out[b] = unitFromAngles(theta, phi)
	}
	return out
}

// Equal reports whether both binnings have identical parameters. Data sets
// are only combined bin by bin when their binnings are equal.
func (f *FISBEL) Equal(o *FISBEL) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.nBins != o.nBins || f.shift != o.shift ||
		len(f.longBins) != len(o.longBins) || len(f.latEdges) != len(o.latEdges) {
		return false
	}
	for i := range f.longBins {
		if f.longBins[i] != o.longBins[i] {
			return false
		}
	}
	for i := range f.latEdges {
		if f.latEdges[i] != o.latEdges[i] {
			return false
		}
	}
	return true
}

func (f *FISBEL) String() string {
	return fmt.Sprintf("FISBEL{bins=%d, collars=%d, shift=%.6g}", f.nBins, len(f.longBins), f.shift)
}
