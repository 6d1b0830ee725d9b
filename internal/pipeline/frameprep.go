package pipeline

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Frame size limits before a thumbnail is handed to a vision/CLIP provider.
// Cloud endpoints bill and rate-limit by payload size, and offline model
// wrappers allocate per decoded pixel; neither needs more than this to
// caption or embed a single scene. Mirrors djryanj-media-viewer's
// LoadImageConstrained dimension/pixel budget, scaled down for thumbnail-
// sized frames rather than full source images.
const (
	maxFrameDimension = 768
	maxFramePixels    = 768 * 768
)

// prepareFrame downscales a thumbnail JPEG to the frame size limits using a
// bilinear scaler, re-encoding the result. Frames already within budget are
// returned unmodified. Decode/encode failures are returned so callers can
// fall back to the original bytes rather than fail the stage outright.
func prepareFrame(raw []byte) ([]byte, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return raw, err
	}
	if cfg.Width <= maxFrameDimension && cfg.Height <= maxFrameDimension && cfg.Width*cfg.Height <= maxFramePixels {
		return raw, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return raw, err
	}

	targetW, targetH := cfg.Width, cfg.Height
	if targetW > maxFrameDimension || targetH > maxFrameDimension {
		if targetW > targetH {
			targetH = targetH * maxFrameDimension / targetW
			targetW = maxFrameDimension
		} else {
			targetW = targetW * maxFrameDimension / targetH
			targetH = maxFrameDimension
		}
	}
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 85}); err != nil {
		return raw, err
	}
	return out.Bytes(), nil
}
