package gammaimg

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
)

// SkyBackprojector rasterizes events onto the bins of a FISBEL sky binning.
// Sources are assumed infinitely far away, so only directions matter and the
// cone radius does not enter the content.
type SkyBackprojector struct {
	binner  *FISBEL
	centers []r3.Vector
	resp    Response
	bandLo  Real
	bandHi  Real
}

// NewSkyBackprojector precomputes the bin-center directions of binner.
func NewSkyBackprojector(binner *FISBEL, resp Response) (*SkyBackprojector, error) {
	if binner == nil || resp == nil {
		return nil, errors.New("binner and response must be non-nil")
	}
	return &SkyBackprojector{
		binner:  binner,
		centers: binner.AllBinCenters(),
		resp:    resp,
		bandLo:  resp.ComptonTransversalMin() - bandEps,
		bandHi:  resp.ComptonTransversalMax() + bandEps,
	}, nil
}

func (s *SkyBackprojector) Binner() *FISBEL { return s.binner }

// Backproject writes the sky response of ev into out, indexed by FISBEL bin.
func (s *SkyBackprojector) Backproject(ev Event, out *Sparse) error {
	out.Reset()
	switch e := ev.(type) {
	case *ComptonEvent:
		return s.compton(e, out)
	case *PairEvent:
		return s.pair(e, out)
	}
	return fmt.Errorf("unsupported event type %T", ev)
}

func (s *SkyBackprojector) compton(ev *ComptonEvent, out *Sparse) error {
	if ev.tanPhi == 0 {
		if err := ev.Validate(); err != nil {
			return err
		}
	}
	var nOrigin r3.Vector
	if ev.HasTrack {
		nOrigin = ev.Axis.Cross(ev.Origin)
	}
	sum := 0.0
	for bin, u := range s.centers {
		angleTrans := angleBetween(u, ev.Axis) - ev.Phi
		if angleTrans < s.bandLo || angleTrans > s.bandHi {
			continue
		}
		var content Real
		if ev.HasTrack {
			content = s.resp.ComptonResponseTracked(angleTrans, longitudinalAngle(u, ev.Axis, nOrigin))
		} else {
			content = s.resp.ComptonResponse(angleTrans)
		}
		if !isFinite(content) || !isFinite(sum+content) {
			out.Reset()
			return ErrNaN
		}
		if content > 0 {
			out.add(bin, content)
			sum += content
		}
	}
	return finish(out, sum)
}

func (s *SkyBackprojector) pair(ev *PairEvent, out *Sparse) error {
	sum := 0.0
	for bin, u := range s.centers {
		content := s.resp.PairResponse(angleBetween(u, ev.Origin))
		if !isFinite(content) || !isFinite(sum+content) {
			out.Reset()
			return ErrNaN
		}
		if content > 0 {
			out.add(bin, content)
			sum += content
		}
	}
	return finish(out, sum)
}
