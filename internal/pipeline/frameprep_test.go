package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareFrameWithinBudgetUnchanged(t *testing.T) {
	raw := encodeTestJPEG(t, 320, 240)
	out, err := prepareFrame(raw)
	if err != nil {
		t.Fatalf("prepareFrame: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("expected frame within budget to pass through unmodified")
	}
}

func TestPrepareFrameDownscalesOversizedFrame(t *testing.T) {
	raw := encodeTestJPEG(t, 3840, 2160)
	out, err := prepareFrame(raw)
	if err != nil {
		t.Fatalf("prepareFrame: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode prepared frame config: %v", err)
	}
	if cfg.Width > maxFrameDimension || cfg.Height > maxFrameDimension {
		t.Errorf("expected dimensions within %d, got %dx%d", maxFrameDimension, cfg.Width, cfg.Height)
	}
	// 3840x2160 is 16:9; downscaling should preserve aspect ratio.
	wantHeight := maxFrameDimension * 2160 / 3840
	if diff := cfg.Height - wantHeight; diff < -1 || diff > 1 {
		t.Errorf("expected height ~%d preserving aspect ratio, got %d", wantHeight, cfg.Height)
	}
}

func TestPrepareFrameInvalidDataFallsBackToRaw(t *testing.T) {
	raw := []byte("not a jpeg")
	out, err := prepareFrame(raw)
	if err == nil {
		t.Fatalf("expected decode error for invalid data")
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("expected raw bytes returned unchanged on decode failure")
	}
}
