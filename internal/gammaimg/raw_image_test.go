package gammaimg

import (
	"image/gif"
	"os"
	"path/filepath"
	"testing"
)

func tinyImage(t *testing.T) *Image {
	t.Helper()
	im := NewImage(mustGrid(t, vec(0, 0, 0), vec(1, 1, 1), 3, 2, 2))
	for i := range im.Buf {
		im.Buf[i] = Real(i) * 0.25
	}
	return im
}

func TestImageSaveLoadRaw(t *testing.T) {
	im := tinyImage(t)
	path := filepath.Join(t.TempDir(), "out", "image.raw.zst")
	if err := im.SaveRaw(path); err != nil {
		t.Fatalf("SaveRaw error: %v", err)
	}
	nx, ny, nz, buf, err := LoadRaw(path)
	if err != nil {
		t.Fatal(err)
	}
	if nx != 3 || ny != 2 || nz != 2 {
		t.Fatalf("header mismatch got (%d,%d,%d)", nx, ny, nz)
	}
	for i := range im.Buf {
		if buf[i] != im.Buf[i] {
			t.Fatalf("value %d mismatch got %v want %v", i, buf[i], im.Buf[i])
		}
	}
}

func TestImageSaveRaw_Errors(t *testing.T) {
	im := tinyImage(t)
	im.Buf = im.Buf[:5]
	if err := im.SaveRaw(filepath.Join(t.TempDir(), "mismatch.raw")); err == nil {
		t.Fatalf("expected error for buf length mismatch, got nil")
	}
	if _, _, _, _, err := LoadRaw(filepath.Join(t.TempDir(), "missing.raw")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveAnimatedGIF(t *testing.T) {
	im := tinyImage(t)
	path := filepath.Join(t.TempDir(), "out.gif")
	if err := SaveAnimatedGIF(im, path, 5, 0.8); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("gif not written: %v", err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Image) != 2 || g.Delay[0] != 5 {
		t.Fatalf("expected 2 frames with delay 5, got %d", len(g.Image))
	}
}

func TestSavePNGSequence16(t *testing.T) {
	im := tinyImage(t)
	prefix := filepath.Join(t.TempDir(), "pngs", "frame")
	if err := SavePNGSequence16(im, prefix, 0.8); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{prefix + "_0.png", prefix + "_1.png"} {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("png not written: %v", err)
		}
	}
}
