package gammaimg

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
)

var skyMagic = [4]byte{'F', 'S', 'B', 'L'}

// Save writes the binning parameters (radians, bit exact) followed by the
// content as zstd-compressed little-endian binary.
func (m *SkyMap) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	w := bufio.NewWriter(enc)
	b := m.binner
	header := []interface{}{
		skyMagic,
		int32(b.nBins),
		b.shift,
		int32(len(b.longBins)),
	}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	longBins := make([]int32, len(b.longBins))
	for i, n := range b.longBins {
		longBins[i] = int32(n)
	}
	for _, body := range []interface{}{longBins, b.latEdges, m.Content} {
		if err := binary.Write(w, binary.LittleEndian, body); err != nil {
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
		Logger().Info("saved sky map", "path", path, "bins", b.nBins, "size", humanize.Bytes(uint64(st.Size())))
	}
	return nil
}

// LoadSkyMap reads a map written by Save.
func LoadSkyMap(path string) (*SkyMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	return readSkyMap(bufio.NewReader(dec))
}

func readSkyMap(r io.Reader) (*SkyMap, error) {
	var (
		magic   [4]byte
		n       int32
		shift   Real
		collars int32
	)
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != skyMagic {
		return nil, errors.New("not a sky map file")
	}
	for _, h := range []interface{}{&n, &shift, &collars} {
		if err := binary.Read(r, binary.LittleEndian, h); err != nil {
			return nil, err
		}
	}
	if n < 1 || collars < 1 || collars > n {
		return nil, fmt.Errorf("%w: header bins=%d collars=%d", ErrInvalidBinning, n, collars)
	}
	longBins32 := make([]int32, collars)
	edges := make([]Real, collars+1)
	content := make([]Real, n)
	for _, body := range []interface{}{longBins32, edges, content} {
		if err := binary.Read(r, binary.LittleEndian, body); err != nil {
			return nil, err
		}
	}
	longBins := make([]int, collars)
	for i, v := range longBins32 {
		longBins[i] = int(v)
	}
	binner, err := RestoreFISBEL(longBins, edges, int(n), shift)
	if err != nil {
		return nil, err
	}
	return &SkyMap{binner: binner, Content: content}, nil
}
