package gammaimg

import (
	"errors"
	"fmt"
)

var (
	// ErrParameterOutOfRange is returned for inputs outside the domain of a lookup (theta outside [0, π]).
	ErrParameterOutOfRange = errors.New("parameter out of range")
	// ErrIndexOutOfBounds is returned for bin indices >= the number of bins.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	// ErrInvalidBinning is returned when restored binning parameters violate the FISBEL invariants.
	ErrInvalidBinning = errors.New("invalid binning")
	// ErrBinningMismatch is returned when two sky maps with different binnings are merged.
	ErrBinningMismatch = errors.New("binning mismatch")
	// ErrDegenerateEvent marks an event whose backprojection must be discarded.
	// The caller skips the event and continues with the next one.
	ErrDegenerateEvent = errors.New("degenerate event")
	ErrNaN             = fmt.Errorf("%w: non-finite image content", ErrDegenerateEvent)
	ErrEmptyImage      = fmt.Errorf("%w: empty image", ErrDegenerateEvent)
)
