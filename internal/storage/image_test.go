package storage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestDetectMagic(t *testing.T) {
	jpegHeader := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0, 0, 0}
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	webpHeader := []byte{'R', 'I', 'F', 'F', 0, 0, 0, 0, 'W', 'E', 'B', 'P'}
	garbage := []byte("this is not an image")

	if got, err := detectMagic(jpegHeader); err != nil || got != "image/jpeg" {
		t.Errorf("jpeg: %q, %v", got, err)
	}
	if got, err := detectMagic(pngHeader); err != nil || got != "image/png" {
		t.Errorf("png: %q, %v", got, err)
	}
	if got, err := detectMagic(webpHeader); err != nil || got != "image/webp" {
		t.Errorf("webp: %q, %v", got, err)
	}
	if _, err := detectMagic(garbage[:12]); !errors.Is(err, ErrUnsupported) {
		t.Errorf("garbage: %v", err)
	}
	if _, err := detectMagic([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("short header: %v", err)
	}
}

func TestMakeThumbnailDownscales(t *testing.T) {
	src := encodePNG(t, 1024, 768)

	out, contentType, size, err := MakeThumbnail(bytes.NewReader(src), DefaultThumbnailOptions())
	if err != nil {
		t.Fatalf("MakeThumbnail: %v", err)
	}
	if contentType != "image/jpeg" {
		t.Errorf("contentType = %q", contentType)
	}
	if size != int64(len(out)) {
		t.Errorf("size = %d, len = %d", size, len(out))
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 512 {
		t.Errorf("width = %d, want 512", bounds.Dx())
	}
	if bounds.Dy() != 384 {
		t.Errorf("height = %d, want 384 (aspect preserved)", bounds.Dy())
	}
}

func TestMakeThumbnailNeverUpscales(t *testing.T) {
	src := encodePNG(t, 100, 60)

	out, _, _, err := MakeThumbnail(bytes.NewReader(src), DefaultThumbnailOptions())
	if err != nil {
		t.Fatalf("MakeThumbnail: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 60 {
		t.Errorf("small image resized to %v", decoded.Bounds())
	}
}

func TestMakeThumbnailRejectsBadInput(t *testing.T) {
	if _, _, _, err := MakeThumbnail(bytes.NewReader([]byte("junk data, not an image")), DefaultThumbnailOptions()); err == nil {
		t.Errorf("garbage accepted")
	}

	opts := DefaultThumbnailOptions()
	opts.MaxBytes = 64
	src := encodePNG(t, 200, 200)
	if _, _, _, err := MakeThumbnail(bytes.NewReader(src), opts); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized input: %v", err)
	}
}
