package gammaimg

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
)

// Event is a reconstructed gamma-ray interaction: *ComptonEvent or *PairEvent.
type Event interface {
	Validate() error
}

// ComptonEvent is a Compton-scatter cone: every incoming direction u with
// angle(u, Axis) == Phi is compatible with the measurement.
type ComptonEvent struct {
	Axis r3.Vector // unit
	Apex r3.Vector // first interaction position
	Phi  Real      // half-angle in radians, (0, π)
	// HasTrack marks events whose recoil electron track narrows the cone to an
	// arc; Origin is then the reference direction for the longitudinal angle.
	HasTrack bool
	Origin   r3.Vector

	// cached
	tanPhi Real
}

// NewComptonEvent normalizes the axis and precomputes tan(phi).
func NewComptonEvent(axis, apex r3.Vector, phi Real) (*ComptonEvent, error) {
	ev := &ComptonEvent{Axis: axis, Apex: apex, Phi: phi}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

// WithTrack attaches the origin direction used for the longitudinal angle.
func (ev *ComptonEvent) WithTrack(origin r3.Vector) *ComptonEvent {
	ev.HasTrack = true
	ev.Origin = origin.Normalize()
	return ev
}

// Validate checks the cone and refreshes the cached values.
func (ev *ComptonEvent) Validate() error {
	if !(ev.Phi > 0 && ev.Phi < math.Pi) {
		return errors.New("cone half-angle must be in (0, π)")
	}
	if ev.Axis.Norm() == 0 {
		return errors.New("cone axis must be non-zero")
	}
	if ev.HasTrack && ev.Origin.Norm() == 0 {
		return errors.New("track origin direction must be non-zero")
	}
	ev.Axis = ev.Axis.Normalize()
	ev.tanPhi = math.Tan(ev.Phi)
	return nil
}

// PairEvent is a pair-production event: a single incoming direction
// measured at the conversion point.
type PairEvent struct {
	Position r3.Vector
	Origin   r3.Vector // unit, pointing back towards the source
}

// NewPairEvent normalizes the origin direction.
func NewPairEvent(position, origin r3.Vector) (*PairEvent, error) {
	ev := &PairEvent{Position: position, Origin: origin}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func (ev *PairEvent) Validate() error {
	if ev.Origin.Norm() == 0 {
		return errors.New("pair origin direction must be non-zero")
	}
	ev.Origin = ev.Origin.Normalize()
	return nil
}

// longitudinalAngle is the dihedral angle between the plane (v, axis) and
// the plane spanned by axis and the origin direction, given as the normal
// nOrigin = axis x origin.
func longitudinalAngle(v, axis, nOrigin r3.Vector) Real {
	return angleBetween(axis.Cross(v), nOrigin)
}
