// Package imagenorm re-encodes captured photos to fit remote transport
// constraints before a sync writes them to the document store.
//
// The normalizer fails soft on purpose: a sync must never be blocked by
// one corrupt image, so any decode failure returns the original input
// unchanged rather than an error.
package imagenorm

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Options are the normalization constraints.
type Options struct {
	// MaxWidth is the widest the output may be. Narrower sources are
	// never upscaled.
	MaxWidth int

	// Quality is the JPEG quality factor (1-100).
	Quality int
}

// DefaultOptions matches what the document-store orchestrator uses for
// outgoing images.
func DefaultOptions() Options {
	return Options{MaxWidth: 800, Quality: 70}
}

const jpegPrefix = "data:image/jpeg;base64,"

// Normalize re-encodes a data-URL image as a JPEG data URL that
// respects the options: aspect ratio preserved, downscaled only when
// the source exceeds MaxWidth, transparency flattened onto white, and
// re-encoded at the given quality.
//
// If the input cannot be decoded it is returned unchanged.
func Normalize(encoded string, opts Options) string {
	if encoded == "" {
		return encoded
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultOptions().MaxWidth
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultOptions().Quality
	}

	raw, ok := decodeDataURL(encoded)
	if !ok {
		return encoded
	}

	img, err := decodeImage(raw)
	if err != nil {
		return encoded
	}

	flat := flattenAndScale(img, opts.MaxWidth)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, flat, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return encoded
	}
	return jpegPrefix + base64.StdEncoding.EncodeToString(out.Bytes())
}

// decodeDataURL strips an optional data-URL prefix and base64-decodes
// the payload.
func decodeDataURL(s string) ([]byte, bool) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, false
		}
		payload = s[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some producers emit URL-safe base64.
		raw, err = base64.RawURLEncoding.DecodeString(payload)
		if err != nil {
			return nil, false
		}
	}
	if len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// decodeImage decodes JPEG, PNG, or WebP payloads.
func decodeImage(data []byte) (image.Image, error) {
	if isWEBP(data) {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// flattenAndScale composites the source over a white background at the
// target size. Scaling is nearest-neighbor; sources at or under
// maxWidth keep their dimensions.
func flattenAndScale(src image.Image, maxWidth int) *image.RGBA {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	dstW, dstH := srcW, srcH
	if srcW > maxWidth {
		dstW = maxWidth
		dstH = (srcH * maxWidth) / srcW
		if dstH < 1 {
			dstH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if srcW <= 0 || srcH <= 0 {
		return dst
	}

	if dstW == srcW && dstH == srcH {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
		return dst
	}

	for y := 0; y < dstH; y++ {
		srcY := b.Min.Y + (y*srcH)/dstH
		for x := 0; x < dstW; x++ {
			srcX := b.Min.X + (x*srcW)/dstW
			c := src.At(srcX, srcY)
			dst.Set(x, y, blendOverWhite(c))
		}
	}
	return dst
}

// blendOverWhite composites one pixel over opaque white.
func blendOverWhite(c color.Color) color.Color {
	r, g, b, a := c.RGBA()
	if a == 0xffff {
		return c
	}
	inv := 0xffff - a
	return color.RGBA64{
		R: uint16(r + inv),
		G: uint16(g + inv),
		B: uint16(b + inv),
		A: 0xffff,
	}
}

// Dimensions decodes just enough of a data-URL image to report its
// pixel size.
func Dimensions(encoded string) (w, h int, ok bool) {
	raw, valid := decodeDataURL(encoded)
	if !valid {
		return 0, 0, false
	}
	img, err := decodeImage(raw)
	if err != nil {
		return 0, 0, false
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), true
}
