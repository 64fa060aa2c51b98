package gammaimg

import "math"

const (
	GridBins        = 64
	GridHalfSize    = 10.0
	SkyBins         = 4000
	Workers         = 0 // 0 => runtime.NumCPU()
	RawOut          = "image.raw.zst"
	PNGPrefix       = "pngs/slice"
	GIFOut          = "image.gif"
	SkyOut          = "sky.png"
	SkyWidth        = 720
	SkyHeight       = 360
	GIFDelay        = 5 // 100ths of a second per frame
	Gamma           = 0.75
	NumShards       = 1024
	BinnerCacheSize = 32
	// hot-loop constants
	bandEps     = 1e-6  // widening of the transversal band in radians
	rowBackoff  = 1e-6  // relative backoff of the skip-ahead target along x
	minDistance = 1e-12 // voxels closer than this to the apex are ignored
	twoPi       = 2 * math.Pi
)
