package render

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFramebufferPixels(t *testing.T) {
	fb := NewFramebuffer(4, 3)
	red := RGB(255, 0, 0)

	fb.SetPixel(1, 2, red)
	if got := fb.GetPixel(1, 2); got != red {
		t.Errorf("GetPixel(1, 2) = %v, want %v", got, red)
	}

	// Out of bounds writes are ignored and reads return transparent black.
	fb.SetPixel(-1, 0, red)
	fb.SetPixel(4, 0, red)
	if got := fb.GetPixel(10, 10); got != (color.RGBA{}) {
		t.Errorf("out of bounds GetPixel = %v", got)
	}

	w, h := fb.Size()
	if w != 4 || h != 3 {
		t.Errorf("Size() = %d, %d", w, h)
	}
}

func TestFramebufferClear(t *testing.T) {
	fb := NewFramebuffer(8, 8)
	fb.SetPixel(3, 3, RGB(1, 2, 3))

	gray := RGB(128, 128, 128)
	for range 2 {
		fb.Clear(gray)
		for i, p := range fb.Pixels {
			if p != gray {
				t.Fatalf("pixel %d = %v after Clear", i, p)
			}
		}
	}
}

func TestFramebufferResample(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	for y := range 4 {
		for x := range 4 {
			fb.SetPixel(x, y, RGB(uint8(x*60), uint8(y*60), 0))
		}
	}

	small := fb.Resample(2, 2)
	if small.Width != 2 || small.Height != 2 {
		t.Fatalf("Resample size = %dx%d", small.Width, small.Height)
	}
	if got, want := small.GetPixel(1, 1), fb.GetPixel(2, 2); got != want {
		t.Errorf("Resample(1, 1) = %v, want %v", got, want)
	}
}

func TestFramebufferSavePNG(t *testing.T) {
	fb := NewFramebuffer(5, 2)
	fb.Clear(RGB(10, 20, 30))
	fb.SetPixel(4, 1, RGB(200, 100, 50))

	path := filepath.Join(t.TempDir(), "out.png")
	if err := fb.SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 2 {
		t.Errorf("decoded bounds = %v", b)
	}
	r, g, b, _ := img.At(4, 1).RGBA()
	if r>>8 != 200 || g>>8 != 100 || b>>8 != 50 {
		t.Errorf("decoded pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestFramebufferSavePNGBadPath(t *testing.T) {
	fb := NewFramebuffer(1, 1)
	if err := fb.SavePNG(filepath.Join(t.TempDir(), "missing", "out.png")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestHalfBlocks(t *testing.T) {
	fb := NewFramebuffer(3, 4)
	fb.Clear(RGB(255, 255, 255))

	out := fb.HalfBlocks()
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines for 4 pixel rows, got %d", len(lines))
	}
	if n := strings.Count(out, halfBlock); n != 6 {
		t.Errorf("expected 6 half blocks, got %d", n)
	}
}
