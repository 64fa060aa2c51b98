package gammaimg

import (
	"math"

	"github.com/golang/geo/r3"
)

type Real = float64

func isFinite(x Real) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// unitFromAngles returns the unit vector for polar angle theta (from +Z) and azimuth phi.
func unitFromAngles(theta, phi Real) r3.Vector {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return r3.Vector{X: st * cp, Y: st * sp, Z: ct}
}

// anglesFromVector returns (theta, phi) of v, phi in (-π, π]. The zero vector maps to (0, 0).
func anglesFromVector(v r3.Vector) (theta, phi Real) {
	n := v.Norm()
	if n == 0 {
		return 0, 0
	}
	c := v.Z / n
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c), math.Atan2(v.Y, v.X)
}

// angleBetween returns the angle in [0, π] between a and b; 0 when either is zero.
func angleBetween(a, b r3.Vector) Real {
	return a.Angle(b).Radians()
}

func deg2rad(d Real) Real { return d * math.Pi / 180 }
func rad2deg(r Real) Real { return r * 180 / math.Pi }
