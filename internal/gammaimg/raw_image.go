package gammaimg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
)

// SaveRaw writes Nx, Ny, Nz as int32 followed by the voxel values as float64
// (x fastest), little-endian, zstd-compressed.
func (im *Image) SaveRaw(path string) error {
	g := im.Grid
	// use 64-bit multiply to avoid overflow
	exp64 := int64(g.Nx) * int64(g.Ny) * int64(g.Nz)
	if int64(len(im.Buf)) != exp64 {
		return fmt.Errorf("Buf length mismatch: got %d, expected %d (Nx*Ny*Nz)", len(im.Buf), exp64)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	w := bufio.NewWriter(enc)
	for _, v := range []int32{int32(g.Nx), int32(g.Ny), int32(g.Nz)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if exp64 > 0 {
		if err := binary.Write(w, binary.LittleEndian, im.Buf); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if st, err := f.Stat(); err == nil {
		raw := uint64(exp64*8 + 12)
		Logger().Info("saved raw image", "path", path, "size", humanize.Bytes(uint64(st.Size())), "uncompressed", humanize.Bytes(raw))
	}
	return nil
}

// LoadRaw reads a file written by SaveRaw.
func LoadRaw(path string) (nx, ny, nz int, buf []Real, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return 0, 0, 0, nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	r := bufio.NewReader(dec)

	var dims [3]int32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return 0, 0, 0, nil, err
	}
	if dims[0] < 0 || dims[1] < 0 || dims[2] < 0 {
		return 0, 0, 0, nil, fmt.Errorf("negative dimensions: %v", dims)
	}
	nx, ny, nz = int(dims[0]), int(dims[1]), int(dims[2])
	buf = make([]Real, nx*ny*nz)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return 0, 0, 0, nil, err
	}
	return nx, ny, nz, buf, nil
}
