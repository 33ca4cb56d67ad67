package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScreenshotsSaveFlipsRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	s := NewScreenshots(dir, "fx")
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	// Two rows, bottom row red, top row blue.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	name, err := s.Save(pixels, 1, 2)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if want := filepath.Join(dir, "fx_2024-03-01_12-30-00.000.png"); name != want {
		t.Errorf("expected %s, got %s", want, name)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	r, _, b, _ := img.At(0, 0).RGBA()
	if b == 0 || r != 0 {
		t.Errorf("expected blue top row, got r=%d b=%d", r, b)
	}
	r, _, b, _ = img.At(0, 1).RGBA()
	if r == 0 || b != 0 {
		t.Errorf("expected red bottom row, got r=%d b=%d", r, b)
	}
}

func TestScreenshotsSaveSizeMismatch(t *testing.T) {
	s := NewScreenshots(t.TempDir(), "fx")
	if _, err := s.Save(make([]byte, 7), 1, 2); err == nil {
		t.Error("expected size mismatch error")
	}
}
