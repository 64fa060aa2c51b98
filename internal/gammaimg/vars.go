package gammaimg

var (
	Debug    = false // set to true for verbose debug output and the event outcome log
	UseLocks = true  // set to false to disable shard locks when reducing sparse images
	PNG      = false // set to true to save a 16-bit PNG sequence of the image (one per z slice)
	RAW      = false // set to true to save the zstd-compressed raw image
	GIF      = false // set to true to save an animated GIF of the z slices
	// Compile time checks that every response model implements the collaborator contract
	_ Response = (*GaussianResponse)(nil)
	_ Response = (*BandResponse)(nil)
	_ Response = (*TabulatedResponse)(nil)
	_ Event    = (*ComptonEvent)(nil)
	_ Event    = (*PairEvent)(nil)
)
