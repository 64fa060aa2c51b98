package gammaimg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// Response supplies the value written into the image for a voxel given its
// angular distance from the cone surface (transversal angle) and, for tracked
// events, the dihedral angle around the cone axis (longitudinal angle).
// All angles are radians. Implementations must be safe for concurrent readers.
type Response interface {
	ComptonResponse(transAngle Real) Real
	ComptonResponseTracked(transAngle, longAngle Real) Real
	// ComptonTransversalMin and ComptonTransversalMax bound the band outside
	// of which the Compton response is zero.
	ComptonTransversalMin() Real
	ComptonTransversalMax() Real
	PairResponse(angle Real) Real
}

// GaussianResponse is a truncated Gaussian in each angle. Sigmas are radians,
// Cutoff is in units of sigma.
type GaussianResponse struct {
	TransSigma Real
	LongSigma  Real
	PairSigma  Real
	Cutoff     Real

	// cached
	transMax Real
	longMax  Real
	pairMax  Real
}

// NewGaussianResponse validates the widths and precomputes the cutoffs.
func NewGaussianResponse(transSigma, longSigma, pairSigma, cutoff Real) (*GaussianResponse, error) {
	if transSigma <= 0 || pairSigma <= 0 {
		return nil, errors.New("gaussian widths must be positive")
	}
	if cutoff <= 0 {
		return nil, errors.New("cutoff must be positive")
	}
	if longSigma <= 0 {
		longSigma = math.Pi
	}
	r := &GaussianResponse{
		TransSigma: transSigma,
		LongSigma:  longSigma,
		PairSigma:  pairSigma,
		Cutoff:     cutoff,
		transMax:   cutoff * transSigma,
		longMax:    cutoff * longSigma,
		pairMax:    cutoff * pairSigma,
	}
	DebugLog("Created gaussian response %+v", r)
	return r, nil
}

func gauss(x, sigma, limit Real) Real {
	if math.Abs(x) > limit {
		return 0
	}
	return math.Exp(-0.5 * x * x / (sigma * sigma))
}

func (r *GaussianResponse) ComptonResponse(transAngle Real) Real {
	return gauss(transAngle, r.TransSigma, r.transMax)
}

func (r *GaussianResponse) ComptonResponseTracked(transAngle, longAngle Real) Real {
	return gauss(transAngle, r.TransSigma, r.transMax) * gauss(longAngle, r.LongSigma, r.longMax)
}

func (r *GaussianResponse) ComptonTransversalMin() Real { return -r.transMax }
func (r *GaussianResponse) ComptonTransversalMax() Real { return r.transMax }

func (r *GaussianResponse) PairResponse(angle Real) Real {
	return gauss(angle, r.PairSigma, r.pairMax)
}

// BandResponse is Value inside [Min, Max] and zero elsewhere. Pair events
// accept angles up to PairMax.
type BandResponse struct {
	Min, Max Real
	PairMax  Real
	Value    Real
}

// NewBandResponse returns a top-hat response of height value.
func NewBandResponse(min, max, pairMax, value Real) (*BandResponse, error) {
	if !(max > min) {
		return nil, fmt.Errorf("band max %v must exceed min %v", max, min)
	}
	if value == 0 {
		value = 1
	}
	return &BandResponse{Min: min, Max: max, PairMax: pairMax, Value: value}, nil
}

func (r *BandResponse) ComptonResponse(transAngle Real) Real {
	if transAngle < r.Min || transAngle > r.Max {
		return 0
	}
	return r.Value
}

func (r *BandResponse) ComptonResponseTracked(transAngle, _ Real) Real {
	return r.ComptonResponse(transAngle)
}

func (r *BandResponse) ComptonTransversalMin() Real { return r.Min }
func (r *BandResponse) ComptonTransversalMax() Real { return r.Max }

func (r *BandResponse) PairResponse(angle Real) Real {
	if angle < 0 || angle > r.PairMax {
		return 0
	}
	return r.Value
}

// TabulatedResponse interpolates measured curves linearly. The transversal
// table defines the acceptance band; outside its range the response is zero.
// Missing longitudinal or pair tables evaluate to 1 and 0 respectively.
type TabulatedResponse struct {
	trans    interp.PiecewiseLinear
	transMin Real
	transMax Real

	long    *interp.PiecewiseLinear
	longMax Real
	pair    *interp.PiecewiseLinear
	pairMax Real
}

// NewTabulatedResponse fits the tables. Each angle slice must be strictly
// increasing and match its value slice in length; long and pair may be nil.
func NewTabulatedResponse(transAngles, transValues, longAngles, longValues, pairAngles, pairValues []Real) (*TabulatedResponse, error) {
	if err := checkTable(transAngles, transValues); err != nil {
		return nil, fmt.Errorf("transversal table: %w", err)
	}
	if len(longAngles) > 0 {
		if err := checkTable(longAngles, longValues); err != nil {
			return nil, fmt.Errorf("longitudinal table: %w", err)
		}
	}
	if len(pairAngles) > 0 {
		if err := checkTable(pairAngles, pairValues); err != nil {
			return nil, fmt.Errorf("pair table: %w", err)
		}
	}
	r := &TabulatedResponse{}
	if err := r.trans.Fit(transAngles, transValues); err != nil {
		return nil, fmt.Errorf("transversal table: %w", err)
	}
	r.transMin, r.transMax = transAngles[0], transAngles[len(transAngles)-1]
	if len(longAngles) > 0 {
		r.long = &interp.PiecewiseLinear{}
		if err := r.long.Fit(longAngles, longValues); err != nil {
			return nil, fmt.Errorf("longitudinal table: %w", err)
		}
		r.longMax = longAngles[len(longAngles)-1]
	}
	if len(pairAngles) > 0 {
		r.pair = &interp.PiecewiseLinear{}
		if err := r.pair.Fit(pairAngles, pairValues); err != nil {
			return nil, fmt.Errorf("pair table: %w", err)
		}
		r.pairMax = pairAngles[len(pairAngles)-1]
	}
	return r, nil
}

func (r *TabulatedResponse) ComptonResponse(transAngle Real) Real {
	if transAngle < r.transMin || transAngle > r.transMax {
		return 0
	}
	return r.trans.Predict(transAngle)
}

func (r *TabulatedResponse) ComptonResponseTracked(transAngle, longAngle Real) Real {
	v := r.ComptonResponse(transAngle)
	if r.long == nil || v == 0 {
		return v
	}
	if longAngle > r.longMax {
		return 0
	}
	return v * r.long.Predict(longAngle)
}

func (r *TabulatedResponse) ComptonTransversalMin() Real { return r.transMin }
func (r *TabulatedResponse) ComptonTransversalMax() Real { return r.transMax }

func (r *TabulatedResponse) PairResponse(angle Real) Real {
	if r.pair == nil || angle > r.pairMax {
		return 0
	}
	return r.pair.Predict(angle)
}

func checkTable(xs, ys []Real) error {
	if len(xs) < 2 {
		return errors.New("need at least two samples")
	}
	if len(xs) != len(ys) {
		return fmt.Errorf("%d angles for %d values", len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return fmt.Errorf("angles not strictly increasing at %d", i)
		}
	}
	return nil
}
